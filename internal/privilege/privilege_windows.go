//go:build windows

package privilege

import (
	"github.com/Microsoft/go-winio"
	"golang.org/x/sys/windows"
)

// IsElevated reports whether the process token is elevated.
func IsElevated() bool {
	return windows.GetCurrentProcessToken().IsElevated()
}

// WithBackupPrivilege runs fn with SeBackupPrivilege enabled on the current
// thread, so store folders with restrictive ACLs can still be listed.
func WithBackupPrivilege(fn func() error) error {
	return winio.RunWithPrivilege(winio.SeBackupPrivilege, fn)
}
