//go:build windows

package driverstore

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/breeze-rmm/drvstore/internal/driverpkg"
	"github.com/breeze-rmm/drvstore/internal/executor"
	"github.com/breeze-rmm/drvstore/internal/pnputil"
	"github.com/breeze-rmm/drvstore/internal/privilege"
)

// newOpener constructs the Windows backends on demand.
func newOpener(opts Options) Opener {
	return func(ctx context.Context, id string) (Backend, error) {
		switch id {
		case IDNative:
			return newNative(opts)
		case IDDism:
			return newDism(opts)
		case IDPnputil:
			return newLegacyForHost(opts)
		default:
			return nil, fmt.Errorf("unknown backend %q", id)
		}
	}
}

func newLegacyForHost(opts Options) (Backend, error) {
	if !opts.Online() {
		return nil, fmt.Errorf("pnputil cannot service an offline image: %w", driverpkg.ErrBackendUnavailable)
	}
	tool, err := exec.LookPath(opts.PnputilPath)
	if err != nil {
		return nil, fmt.Errorf("%s not found: %w", opts.PnputilPath, driverpkg.ErrBackendUnavailable)
	}

	storeRoot := filepath.Join(opts.WindowsDir, "System32", "DriverStore", "FileRepository")
	lo := LegacyOptions{
		Runner:    executor.New(opts.PnputilTimeoutSeconds),
		Tool:      tool,
		DateOrder: pnputil.HostDateOrder(),
		Mirror:    os.DirFS(filepath.Join(opts.WindowsDir, "INF")),
		Store:     os.DirFS(storeRoot),
		StoreRoot: storeRoot,
		Devices:   opts.devices(),
	}
	log.Debug("pnputil date order", "order", lo.DateOrder.String())
	if opts.UseBackupPrivilege && privilege.IsElevated() {
		lo.Scan = privilege.WithBackupPrivilege
	}
	return NewLegacy(lo), nil
}
