//go:build windows

package executor

import (
	"os/exec"
	"syscall"
)

const createNoWindow = 0x08000000

// setProcessGroup keeps console tools such as pnputil from flashing a window.
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		HideWindow:    true,
		CreationFlags: createNoWindow,
	}
}

// killProcessGroup kills the process directly on Windows.
func killProcessGroup(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	return cmd.Process.Kill()
}
