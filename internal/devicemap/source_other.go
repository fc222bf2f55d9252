//go:build !windows

package devicemap

import (
	"fmt"

	"github.com/breeze-rmm/drvstore/internal/driverpkg"
)

func newSetupAPISource() (Source, error) {
	return nil, fmt.Errorf("setupapi device source: %w", driverpkg.ErrBackendUnavailable)
}

func newWMISource() (Source, error) {
	return nil, fmt.Errorf("wmi device source: %w", driverpkg.ErrBackendUnavailable)
}
