//go:build !windows

package driverstore

import (
	"context"
	"fmt"
	"runtime"

	"github.com/breeze-rmm/drvstore/internal/driverpkg"
)

// newOpener has no backends outside Windows.
func newOpener(Options) Opener {
	return func(_ context.Context, id string) (Backend, error) {
		return nil, fmt.Errorf("%s on %s: %w", id, runtime.GOOS, driverpkg.ErrBackendUnavailable)
	}
}
