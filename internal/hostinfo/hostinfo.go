// Package hostinfo probes the operating system version used to decide which
// driver-store backends can run.
package hostinfo

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/shirou/gopsutil/v3/host"
)

// Info is the subset of host details backend selection needs.
type Info struct {
	OS              string `json:"os" yaml:"os"`
	Platform        string `json:"platform" yaml:"platform"`
	PlatformVersion string `json:"platformVersion" yaml:"platformVersion"`
	KernelVersion   string `json:"kernelVersion" yaml:"kernelVersion"`
	Arch            string `json:"arch" yaml:"arch"`
}

// Probe reads host details from the OS.
func Probe(ctx context.Context) (Info, error) {
	hi, err := host.InfoWithContext(ctx)
	if err != nil {
		return Info{}, fmt.Errorf("host info failed: %w", err)
	}
	return Info{
		OS:              hi.OS,
		Platform:        hi.Platform,
		PlatformVersion: hi.PlatformVersion,
		KernelVersion:   hi.KernelVersion,
		Arch:            hi.KernelArch,
	}, nil
}

// SupportsServicingAPI reports whether the servicing API (DISM) can be used:
// Windows 6.1 (7 / Server 2008 R2) and later.
func (i Info) SupportsServicingAPI() bool {
	if i.OS != "windows" {
		return false
	}
	v := i.KernelVersion
	if v == "" {
		v = i.PlatformVersion
	}
	return SupportsServicingAPI(v)
}

// SupportsServicingAPI checks a Windows version string such as
// "10.0.19045 Build 19045" or "6.1.7601".
func SupportsServicingAPI(version string) bool {
	major, minor, ok := majorMinor(version)
	if !ok {
		return false
	}
	return major > 6 || (major == 6 && minor >= 1)
}

func majorMinor(version string) (int, int, bool) {
	fields := strings.Fields(version)
	if len(fields) == 0 {
		return 0, 0, false
	}
	parts := strings.Split(fields[0], ".")
	if len(parts) < 2 {
		return 0, 0, false
	}
	major, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, false
	}
	minor, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, false
	}
	return major, minor, true
}
