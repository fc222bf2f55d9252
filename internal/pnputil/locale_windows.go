//go:build windows

package pnputil

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	modkernel32         = windows.NewLazySystemDLL("kernel32.dll")
	procGetLocaleInfoEx = modkernel32.NewProc("GetLocaleInfoEx")
)

const localeSShortDate = 0x1F

// HostDateOrder reads the user's short date pattern. A nil locale name
// selects LOCALE_NAME_USER_DEFAULT.
func HostDateOrder() DateOrder {
	if err := procGetLocaleInfoEx.Find(); err != nil {
		return DateOrderUnknown
	}
	buf := make([]uint16, 80)
	n, _, _ := procGetLocaleInfoEx.Call(0, localeSShortDate,
		uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)))
	if n == 0 {
		return DateOrderUnknown
	}
	return DateOrderFromPattern(windows.UTF16ToString(buf[:n]))
}
