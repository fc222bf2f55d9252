//go:build !windows

package pnputil

// HostDateOrder is unknown off Windows; pnputil does not run there.
func HostDateOrder() DateOrder { return DateOrderUnknown }
