//go:build windows

package devicemap

import (
	"context"
	"fmt"
	"runtime"

	"github.com/go-ole/go-ole"
	"github.com/go-ole/go-ole/oleutil"

	"github.com/breeze-rmm/drvstore/internal/driverpkg"
)

const signedDriverQuery = "SELECT DeviceID, DeviceName, FriendlyName, InfName, DriverDate, DriverVersion FROM Win32_PnPSignedDriver"

// wmiSource reads Win32_PnPSignedDriver. WMI has no presence flag, so every
// device it reports carries presence Unknown.
type wmiSource struct{}

func newWMISource() (Source, error) {
	return wmiSource{}, nil
}

func (wmiSource) Devices(ctx context.Context) ([]driverpkg.DeviceRecord, error) {
	var devices []driverpkg.DeviceRecord
	err := withWMIService(func(service *ole.IDispatch) error {
		resultVar, err := oleutil.CallMethod(service, "ExecQuery", signedDriverQuery)
		if err != nil {
			return fmt.Errorf("ExecQuery failed: %w", err)
		}
		defer resultVar.Clear()

		result := resultVar.ToIDispatch()
		if result == nil {
			return fmt.Errorf("ExecQuery failed: nil result")
		}

		countVar, err := oleutil.GetProperty(result, "Count")
		if err != nil {
			return fmt.Errorf("result count failed: %w", err)
		}
		count := int(countVar.Val)
		countVar.Clear()

		for i := 0; i < count; i++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			itemVar, err := oleutil.CallMethod(result, "ItemIndex", i)
			if err != nil {
				log.Debug("skipping unreadable WMI row", "index", i, "error", err)
				continue
			}
			item := itemVar.ToIDispatch()
			if item == nil {
				itemVar.Clear()
				continue
			}
			if d, ok := signedDriverRecord(item); ok {
				devices = append(devices, d)
			}
			itemVar.Clear()
		}
		return nil
	})
	return devices, err
}

func signedDriverRecord(item *ole.IDispatch) (driverpkg.DeviceRecord, bool) {
	ref := stringProperty(item, "InfName")
	if ref == "" {
		return driverpkg.DeviceRecord{}, false
	}
	d := driverpkg.DeviceRecord{
		ID:              stringProperty(item, "DeviceID"),
		Name:            stringProperty(item, "FriendlyName"),
		DriverReference: ref,
		DriverDate:      parseCIMDate(stringProperty(item, "DriverDate")),
	}
	if d.Name == "" {
		d.Name = stringProperty(item, "DeviceName")
	}
	if v, err := driverpkg.ParseVersion(stringProperty(item, "DriverVersion")); err == nil {
		d.DriverVersion = v
	}
	return d, true
}

func withWMIService(action func(service *ole.IDispatch) error) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if err := ole.CoInitializeEx(0, ole.COINIT_MULTITHREADED); err != nil {
		return fmt.Errorf("failed to initialize COM: %w", err)
	}
	defer ole.CoUninitialize()

	unknown, err := oleutil.CreateObject("WbemScripting.SWbemLocator")
	if err != nil {
		return fmt.Errorf("failed to create WMI locator: %w", err)
	}
	defer unknown.Release()

	locator, err := unknown.QueryInterface(ole.IID_IDispatch)
	if err != nil {
		return fmt.Errorf("failed to query WMI locator: %w", err)
	}
	defer locator.Release()

	serviceVar, err := oleutil.CallMethod(locator, "ConnectServer", nil, `root\cimv2`)
	if err != nil {
		return fmt.Errorf("failed to connect to WMI: %w", err)
	}
	defer serviceVar.Clear()

	service := serviceVar.ToIDispatch()
	if service == nil {
		return fmt.Errorf("failed to connect to WMI: nil service")
	}
	return action(service)
}

func stringProperty(dispatch *ole.IDispatch, name string) string {
	value, err := oleutil.GetProperty(dispatch, name)
	if err != nil {
		return ""
	}
	defer value.Clear()
	if value.VT == ole.VT_NULL || value.VT == ole.VT_EMPTY {
		return ""
	}
	return value.ToString()
}
