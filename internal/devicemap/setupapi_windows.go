//go:build windows

package devicemap

import (
	"context"
	"errors"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/breeze-rmm/drvstore/internal/devprop"
	"github.com/breeze-rmm/drvstore/internal/driverpkg"
)

var (
	modSetupAPI                      = windows.NewLazySystemDLL("setupapi.dll")
	procSetupDiGetClassDevsW         = modSetupAPI.NewProc("SetupDiGetClassDevsW")
	procSetupDiEnumDeviceInfo        = modSetupAPI.NewProc("SetupDiEnumDeviceInfo")
	procSetupDiGetDevicePropertyW    = modSetupAPI.NewProc("SetupDiGetDevicePropertyW")
	procSetupDiDestroyDeviceInfoList = modSetupAPI.NewProc("SetupDiDestroyDeviceInfoList")
)

// DIGCF_ALLCLASSES without DIGCF_PRESENT so absent devices are included.
const digcfAllClasses = 0x00000004

type spDevInfoData struct {
	cbSize    uint32
	classGUID devprop.GUID
	devInst   uint32
	reserved  uintptr
}

type setupAPISource struct{}

func newSetupAPISource() (Source, error) {
	if err := procSetupDiGetClassDevsW.Find(); err != nil {
		return nil, errors.Join(driverpkg.ErrBackendUnavailable, err)
	}
	return setupAPISource{}, nil
}

// Devices walks every device node, present or not.
func (setupAPISource) Devices(ctx context.Context) ([]driverpkg.DeviceRecord, error) {
	h, _, callErr := procSetupDiGetClassDevsW.Call(0, 0, 0, digcfAllClasses)
	if windows.Handle(h) == windows.InvalidHandle {
		return nil, nativeError("SetupDiGetClassDevsW", callErr)
	}
	defer procSetupDiDestroyDeviceInfoList.Call(h)

	var devices []driverpkg.DeviceRecord
	for index := uint32(0); ; index++ {
		if err := ctx.Err(); err != nil {
			return devices, err
		}

		data := spDevInfoData{}
		data.cbSize = uint32(unsafe.Sizeof(data))
		r, _, callErr := procSetupDiEnumDeviceInfo.Call(h, uintptr(index), uintptr(unsafe.Pointer(&data)))
		if r == 0 {
			if errors.Is(callErr, windows.ERROR_NO_MORE_ITEMS) {
				break
			}
			return devices, nativeError("SetupDiEnumDeviceInfo", callErr)
		}

		ref, ok := deviceProperty(h, &data, devprop.DeviceDriverInfPath)
		if !ok || ref.String == "" {
			continue
		}
		devices = append(devices, deviceRecord(h, &data, ref.String))
	}
	return devices, nil
}

func deviceRecord(h uintptr, data *spDevInfoData, ref string) driverpkg.DeviceRecord {
	d := driverpkg.DeviceRecord{DriverReference: ref}

	if v, ok := deviceProperty(h, data, devprop.DeviceInstanceID); ok {
		d.ID = v.String
	}
	if v, ok := deviceProperty(h, data, devprop.DeviceFriendlyName); ok && v.String != "" {
		d.Name = v.String
	} else if v, ok := deviceProperty(h, data, devprop.DeviceDesc); ok {
		d.Name = v.String
	}
	if v, ok := deviceProperty(h, data, devprop.DeviceDriverDate); ok {
		d.DriverDate = v.Time
	}
	if v, ok := deviceProperty(h, data, devprop.DeviceDriverVersion); ok {
		if ver, err := driverpkg.ParseVersion(v.String); err == nil {
			d.DriverVersion = ver
		}
	}
	if v, ok := deviceProperty(h, data, devprop.DeviceIsPresent); ok {
		d.Present = driverpkg.TriStateOf(v.Bool)
	}
	if v, ok := deviceProperty(h, data, devprop.DeviceInstallDate); ok {
		d.InstallDate = v.Time
	}
	return d
}

// deviceProperty reads one typed property. Missing or unreadable values
// report ok=false.
func deviceProperty(h uintptr, data *spDevInfoData, key devprop.Key) (devprop.Value, bool) {
	var (
		typ      devprop.Type
		required uint32
	)
	procSetupDiGetDevicePropertyW.Call(
		h,
		uintptr(unsafe.Pointer(data)),
		uintptr(unsafe.Pointer(&key)),
		uintptr(unsafe.Pointer(&typ)),
		0, 0,
		uintptr(unsafe.Pointer(&required)),
		0,
	)
	if required == 0 {
		return devprop.Value{}, false
	}

	buf := make([]byte, required)
	r, _, _ := procSetupDiGetDevicePropertyW.Call(
		h,
		uintptr(unsafe.Pointer(data)),
		uintptr(unsafe.Pointer(&key)),
		uintptr(unsafe.Pointer(&typ)),
		uintptr(unsafe.Pointer(&buf[0])),
		uintptr(required),
		uintptr(unsafe.Pointer(&required)),
		0,
	)
	if r == 0 {
		return devprop.Value{}, false
	}
	return devprop.Decode(typ, buf[:required])
}

func nativeError(op string, callErr error) error {
	var errno windows.Errno
	if errors.As(callErr, &errno) {
		return &driverpkg.NativeCallError{Op: op, Code: uint32(errno)}
	}
	return &driverpkg.NativeCallError{Op: op}
}
