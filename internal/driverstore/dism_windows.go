//go:build windows

package driverstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/breeze-rmm/drvstore/internal/devicemap"
	"github.com/breeze-rmm/drvstore/internal/driverpkg"
)

var (
	modDismapi           = windows.NewLazySystemDLL("dismapi.dll")
	procDismInitialize   = modDismapi.NewProc("DismInitialize")
	procDismShutdown     = modDismapi.NewProc("DismShutdown")
	procDismOpenSession  = modDismapi.NewProc("DismOpenSession")
	procDismCloseSession = modDismapi.NewProc("DismCloseSession")
	procDismGetDrivers   = modDismapi.NewProc("DismGetDrivers")
	procDismRemoveDriver = modDismapi.NewProc("DismRemoveDriver")
	procDismAddDriver    = modDismapi.NewProc("DismAddDriver")
	procDismDelete       = modDismapi.NewProc("DismDelete")
)

const (
	dismOnlineImage        = "DISM_{53BFAE52-B167-4E2F-A258-0A37B57FF845}"
	dismLogErrors          = 0
	dismAlreadyInitialized = 0xC0040001
)

// The servicing API is process-global and not re-entrant.
var dismMu sync.Mutex

// Dism uses the DISM servicing API, which can also reach offline images.
type Dism struct {
	target  Target
	devices devicemap.Source
	layout  dismLayout
}

func newDism(opts Options) (Backend, error) {
	if err := procDismInitialize.Find(); err != nil {
		return nil, errors.Join(driverpkg.ErrBackendUnavailable, err)
	}
	return &Dism{
		target:  opts.target(),
		devices: opts.devices(),
		layout:  newDismLayout(int(unsafe.Sizeof(uintptr(0)))),
	}, nil
}

func (d *Dism) ID() string     { return IDDism }
func (d *Dism) Name() string   { return "DISM API" }
func (d *Dism) Target() Target { return d.target }

func (d *Dism) Capabilities() driverpkg.Capabilities {
	return driverpkg.Capabilities{
		DeviceColumn:  d.target.Online,
		ExportPackage: true,
		ExportAll:     true,
	}
}

func (d *Dism) Enumerate(ctx context.Context) ([]driverpkg.PackageRecord, error) {
	var records []driverpkg.PackageRecord
	err := d.withSession(func(session uintptr) error {
		var (
			list  uintptr
			count uint32
		)
		hr, _, _ := procDismGetDrivers.Call(session, 0, uintptr(unsafe.Pointer(&list)), uintptr(unsafe.Pointer(&count)))
		if failed(hr) {
			return hresultError("DismGetDrivers", hr)
		}
		if list == 0 {
			return nil
		}
		defer procDismDelete.Call(list)

		buf := unsafe.Slice((*byte)(unsafe.Pointer(list)), int(count)*d.layout.size)
		for i := 0; i < int(count); i++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			elem := buf[i*d.layout.size : (i+1)*d.layout.size]
			rec, infPath := d.layout.decode(elem, pcwstr)
			records = append(records, withInfPath(rec, infPath, folderSize))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	devices := devicemap.Build(ctx, d.devices)
	return devices.AnnotateAll(records), nil
}

func (d *Dism) Delete(ctx context.Context, rec driverpkg.PackageRecord, force bool) Result {
	if force {
		return unsupported(d, "forced delete")
	}
	r := Succeeded("")
	err := d.withSession(func(session uintptr) error {
		p, err := windows.UTF16PtrFromString(rec.PublishedName)
		if err != nil {
			return err
		}
		hr, _, _ := procDismRemoveDriver.Call(session, uintptr(unsafe.Pointer(p)))
		if failed(hr) {
			return hresultError("DismRemoveDriver", hr)
		}
		return nil
	})
	if err != nil {
		r = Failed(err, "")
	}
	logOutcome(d, "delete", rec.PublishedName, r)
	return r
}

func (d *Dism) Add(ctx context.Context, infPath string, install bool) Result {
	if install {
		return unsupported(d, "install on add")
	}
	r := Succeeded("")
	err := d.withSession(func(session uintptr) error {
		p, err := windows.UTF16PtrFromString(infPath)
		if err != nil {
			return err
		}
		hr, _, _ := procDismAddDriver.Call(session, uintptr(unsafe.Pointer(p)), 0)
		if failed(hr) {
			return hresultError("DismAddDriver", hr)
		}
		return nil
	})
	if err != nil {
		r = Failed(err, "")
	}
	logOutcome(d, "add", infPath, r)
	return r
}

// withSession initializes the API, opens a session on the target and
// tears both down after action returns.
func (d *Dism) withSession(action func(session uintptr) error) error {
	dismMu.Lock()
	defer dismMu.Unlock()

	hr, _, _ := procDismInitialize.Call(dismLogErrors, 0, 0)
	if failed(hr) && uint32(hr) != dismAlreadyInitialized {
		return hresultError("DismInitialize", hr)
	}
	defer procDismShutdown.Call()

	image := dismOnlineImage
	if !d.target.Online {
		image = d.target.ImagePath
	}
	imagePtr, err := windows.UTF16PtrFromString(image)
	if err != nil {
		return err
	}

	var session uint32
	hr, _, _ = procDismOpenSession.Call(uintptr(unsafe.Pointer(imagePtr)), 0, 0, uintptr(unsafe.Pointer(&session)))
	if failed(hr) {
		return fmt.Errorf("open servicing session on %s: %w", d.target, hresultError("DismOpenSession", hr))
	}
	defer procDismCloseSession.Call(uintptr(session))

	return action(uintptr(session))
}

func pcwstr(p uintptr) string {
	if p == 0 {
		return ""
	}
	return windows.UTF16PtrToString((*uint16)(unsafe.Pointer(p)))
}

func failed(hr uintptr) bool { return int32(hr) < 0 }

func hresultError(op string, hr uintptr) error {
	return &driverpkg.NativeCallError{Op: op, Code: uint32(hr)}
}
