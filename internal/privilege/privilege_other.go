//go:build !windows

package privilege

import "os"

// IsElevated returns true when running as root.
func IsElevated() bool {
	return os.Getuid() == 0
}

// WithBackupPrivilege runs fn directly; there is no backup privilege to
// enable outside Windows.
func WithBackupPrivilege(fn func() error) error {
	return fn()
}
