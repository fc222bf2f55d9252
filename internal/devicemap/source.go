package devicemap

import (
	"context"
	"fmt"
	"strings"

	"github.com/breeze-rmm/drvstore/internal/driverpkg"
	"github.com/breeze-rmm/drvstore/internal/logging"
)

var log = logging.L("devicemap")

// Source kinds accepted by NewSource.
const (
	KindSetupAPI = "setupapi"
	KindWMI      = "wmi"
)

// Source lists the device nodes known to the running system.
type Source interface {
	Devices(ctx context.Context) ([]driverpkg.DeviceRecord, error)
}

// StaticSource serves a fixed snapshot.
type StaticSource []driverpkg.DeviceRecord

// Devices returns a copy of the snapshot.
func (s StaticSource) Devices(context.Context) ([]driverpkg.DeviceRecord, error) {
	return append([]driverpkg.DeviceRecord(nil), s...), nil
}

// NewSource returns the device source named by kind.
func NewSource(kind string) (Source, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", KindSetupAPI:
		return newSetupAPISource()
	case KindWMI:
		return newWMISource()
	default:
		return nil, fmt.Errorf("unknown device source %q", kind)
	}
}

// Build queries src and indexes the result. A failing source yields an
// empty map so enumeration can continue with presence unknown.
func Build(ctx context.Context, src Source) *Map {
	if src == nil {
		return New(nil)
	}
	devices, err := src.Devices(ctx)
	if err != nil {
		log.Warn("device snapshot failed, device correlation disabled", "error", err)
		return New(nil)
	}
	log.Debug("device snapshot", "devices", len(devices))
	return New(devices)
}
