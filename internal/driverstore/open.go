package driverstore

import (
	"context"

	"github.com/breeze-rmm/drvstore/internal/devicemap"
	"github.com/breeze-rmm/drvstore/internal/hostinfo"
)

// Options configures backend construction for this host.
type Options struct {
	// Preferred is "auto" or a backend id.
	Preferred string
	// ImagePath is the root of an offline image; empty targets the running
	// system.
	ImagePath  string
	WindowsDir string

	PnputilPath           string
	PnputilTimeoutSeconds int
	UseBackupPrivilege    bool

	// Devices feeds device correlation on the running system.
	Devices devicemap.Source
	Host    hostinfo.Info
}

// Online reports whether the running system is targeted.
func (o Options) Online() bool { return o.ImagePath == "" }

func (o Options) target() Target {
	return Target{Online: o.Online(), ImagePath: o.ImagePath}
}

// devices returns the device source, or nil for offline images where no
// live device list applies.
func (o Options) devices() devicemap.Source {
	if !o.Online() {
		return nil
	}
	return o.Devices
}

// Open selects the best available backend for opts.
func Open(ctx context.Context, opts Options) (Backend, error) {
	ids := Order(opts.Preferred, opts.Host.SupportsServicingAPI(), opts.Online())
	return Select(ctx, ids, newOpener(opts))
}
