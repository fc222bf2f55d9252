//go:build windows

package driverstore

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"sync"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/breeze-rmm/drvstore/internal/devicemap"
	"github.com/breeze-rmm/drvstore/internal/devprop"
	"github.com/breeze-rmm/drvstore/internal/driverpkg"
)

var (
	modDrvstore                       = windows.NewLazySystemDLL("drvstore.dll")
	procDriverStoreOpenW              = modDrvstore.NewProc("DriverStoreOpenW")
	procDriverStoreClose              = modDrvstore.NewProc("DriverStoreClose")
	procDriverStoreEnumW              = modDrvstore.NewProc("DriverStoreEnumW")
	procDriverStoreGetObjectPropertyW = modDrvstore.NewProc("DriverStoreGetObjectPropertyW")
	procDriverStoreDeleteW            = modDrvstore.NewProc("DriverStoreDeleteW")
	procDriverStoreImportW            = modDrvstore.NewProc("DriverStoreImportW")

	modNewdev            = windows.NewLazySystemDLL("newdev.dll")
	procDiInstallDriverW = modNewdev.NewProc("DiInstallDriverW")
)

const (
	enumOemOnly             = 0x00000001
	deleteForce             = 0x00000001
	objectTypeDriverPackage = 1
)

// Native talks to drvstore.dll directly. It reads typed properties, so no
// text parsing or content correlation is involved.
type Native struct {
	target     Target
	systemPath string
	bootDrive  string
	devices    devicemap.Source
}

func newNative(opts Options) (Backend, error) {
	for _, p := range []*windows.LazyProc{procDriverStoreOpenW, procDriverStoreEnumW, procDriverStoreGetObjectPropertyW} {
		if err := p.Find(); err != nil {
			return nil, errors.Join(driverpkg.ErrBackendUnavailable, err)
		}
	}

	n := &Native{target: opts.target(), devices: opts.devices()}
	if opts.Online() {
		n.systemPath = opts.WindowsDir
		n.bootDrive = filepath.VolumeName(opts.WindowsDir) + `\`
	} else {
		n.systemPath = filepath.Join(opts.ImagePath, "Windows")
		n.bootDrive = opts.ImagePath
	}
	return n, nil
}

func (n *Native) ID() string     { return IDNative }
func (n *Native) Name() string   { return "Driver Store API" }
func (n *Native) Target() Target { return n.target }

func (n *Native) Capabilities() driverpkg.Capabilities {
	return driverpkg.Capabilities{
		InstallOnAdd:  n.target.Online,
		ForceDelete:   true,
		DeviceColumn:  n.target.Online,
		ExportPackage: true,
		ExportAll:     true,
	}
}

func (n *Native) Enumerate(ctx context.Context) ([]driverpkg.PackageRecord, error) {
	var records []driverpkg.PackageRecord
	err := n.withStore(func(h uintptr) error {
		paths, err := enumeratePackages(h)
		if err != nil {
			return err
		}
		for _, infPath := range paths {
			if err := ctx.Err(); err != nil {
				return err
			}
			get := func(key devprop.Key) (devprop.Value, bool) {
				return packageProperty(h, infPath, key)
			}
			rec := nativeRecord("", get)
			if rec.PublishedName == "" {
				log.Debug("skipping package without published name", "path", infPath)
				continue
			}
			records = append(records, checkOriginalName(withInfPath(rec, infPath, folderSize), get))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	devices := devicemap.Build(ctx, n.devices)
	return devices.AnnotateAll(records), nil
}

func (n *Native) Delete(ctx context.Context, rec driverpkg.PackageRecord, force bool) Result {
	if !rec.Resolved() {
		return Failed(fmt.Errorf("%s: store location unknown: %w", rec.PublishedName, driverpkg.ErrNotFound), "")
	}
	infPath := filepath.Join(rec.FolderLocation, rec.OriginalInfName)

	var flags uintptr
	if force {
		flags = deleteForce
	}
	r := Succeeded("")
	err := n.withStore(func(h uintptr) error {
		p, err := windows.UTF16PtrFromString(infPath)
		if err != nil {
			return err
		}
		hr, _, _ := procDriverStoreDeleteW.Call(h, uintptr(unsafe.Pointer(p)), flags)
		if hr != 0 {
			return &driverpkg.NativeCallError{Op: "DriverStoreDeleteW", Code: uint32(hr)}
		}
		return nil
	})
	if err != nil {
		r = Failed(err, "")
	}
	logOutcome(n, "delete", rec.PublishedName, r)
	return r
}

func (n *Native) Add(ctx context.Context, infPath string, install bool) Result {
	if install && !n.target.Online {
		return unsupported(n, "install on an offline image")
	}
	p, err := windows.UTF16PtrFromString(infPath)
	if err != nil {
		return Failed(err, "")
	}

	var r Result
	if install {
		r = diInstall(p)
	} else {
		r = n.importPackage(p)
	}
	logOutcome(n, "add", infPath, r)
	return r
}

func diInstall(infPath *uint16) Result {
	var needReboot int32
	ok, _, callErr := procDiInstallDriverW.Call(0, uintptr(unsafe.Pointer(infPath)), 0, uintptr(unsafe.Pointer(&needReboot)))
	if ok == 0 {
		return Failed(nativeCallError("DiInstallDriverW", callErr), "")
	}
	if needReboot != 0 {
		return Succeeded("reboot required")
	}
	return Succeeded("")
}

func (n *Native) importPackage(infPath *uint16) Result {
	var dest [windows.MAX_PATH]uint16
	err := n.withStore(func(h uintptr) error {
		hr, _, _ := procDriverStoreImportW.Call(
			h,
			uintptr(unsafe.Pointer(infPath)),
			uintptr(processorArchitecture()),
			0, // locale
			0, // flags
			uintptr(unsafe.Pointer(&dest[0])),
			uintptr(len(dest)),
		)
		if hr != 0 {
			return &driverpkg.NativeCallError{Op: "DriverStoreImportW", Code: uint32(hr)}
		}
		return nil
	})
	if err != nil {
		return Failed(err, "")
	}
	return Succeeded(windows.UTF16ToString(dest[:]))
}

func (n *Native) withStore(action func(h uintptr) error) error {
	sys, err := windows.UTF16PtrFromString(n.systemPath)
	if err != nil {
		return err
	}
	boot, err := windows.UTF16PtrFromString(n.bootDrive)
	if err != nil {
		return err
	}

	h, _, callErr := procDriverStoreOpenW.Call(uintptr(unsafe.Pointer(sys)), uintptr(unsafe.Pointer(boot)), 0, 0)
	if h == 0 || windows.Handle(h) == windows.InvalidHandle {
		return nativeCallError("DriverStoreOpenW", callErr)
	}
	defer procDriverStoreClose.Call(h)

	return action(h)
}

// Enumeration callbacks cannot carry Go pointers, so each walk registers
// its collector under an id passed as the callback's context argument.
var (
	enumCallbackOnce sync.Once
	enumCallback     uintptr

	enumMu         sync.Mutex
	enumCollectors = map[uintptr]*[]string{}
	enumNextID     uintptr
)

func enumPackageProc(_, storeFilename, _, lparam uintptr) uintptr {
	enumMu.Lock()
	paths := enumCollectors[lparam]
	enumMu.Unlock()
	if paths != nil && storeFilename != 0 {
		*paths = append(*paths, windows.UTF16PtrToString((*uint16)(unsafe.Pointer(storeFilename))))
	}
	return 1 // continue
}

// enumeratePackages returns the store INF path of every third-party package.
func enumeratePackages(h uintptr) ([]string, error) {
	enumCallbackOnce.Do(func() {
		enumCallback = windows.NewCallback(enumPackageProc)
	})

	var paths []string
	enumMu.Lock()
	enumNextID++
	id := enumNextID
	enumCollectors[id] = &paths
	enumMu.Unlock()
	defer func() {
		enumMu.Lock()
		delete(enumCollectors, id)
		enumMu.Unlock()
	}()

	ok, _, callErr := procDriverStoreEnumW.Call(h, enumOemOnly, enumCallback, id)
	if ok == 0 {
		return nil, nativeCallError("DriverStoreEnumW", callErr)
	}
	return paths, nil
}

// packageProperty reads one typed property of the package whose store INF
// is infPath. Absent or unreadable values report ok=false.
func packageProperty(h uintptr, infPath string, key devprop.Key) (devprop.Value, bool) {
	name, err := windows.UTF16PtrFromString(infPath)
	if err != nil {
		return devprop.Value{}, false
	}

	var (
		typ      devprop.Type
		required uint32
	)
	procDriverStoreGetObjectPropertyW.Call(
		h, objectTypeDriverPackage, uintptr(unsafe.Pointer(name)),
		uintptr(unsafe.Pointer(&key)), uintptr(unsafe.Pointer(&typ)),
		0, 0, uintptr(unsafe.Pointer(&required)), 0,
	)
	if required == 0 {
		return devprop.Value{}, false
	}

	buf := make([]byte, required)
	ok, _, _ := procDriverStoreGetObjectPropertyW.Call(
		h, objectTypeDriverPackage, uintptr(unsafe.Pointer(name)),
		uintptr(unsafe.Pointer(&key)), uintptr(unsafe.Pointer(&typ)),
		uintptr(unsafe.Pointer(&buf[0])), uintptr(required), uintptr(unsafe.Pointer(&required)), 0,
	)
	if ok == 0 {
		return devprop.Value{}, false
	}
	return devprop.Decode(typ, buf[:required])
}

func processorArchitecture() uint16 {
	switch runtime.GOARCH {
	case "amd64":
		return 9 // PROCESSOR_ARCHITECTURE_AMD64
	case "arm64":
		return 12 // PROCESSOR_ARCHITECTURE_ARM64
	default:
		return 0 // PROCESSOR_ARCHITECTURE_INTEL
	}
}

func nativeCallError(op string, callErr error) error {
	var errno windows.Errno
	if errors.As(callErr, &errno) {
		return &driverpkg.NativeCallError{Op: op, Code: uint32(errno)}
	}
	return &driverpkg.NativeCallError{Op: op}
}
