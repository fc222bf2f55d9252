package driverstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/breeze-rmm/drvstore/internal/driverpkg"
)

// Opener constructs the backend with the given id, or fails with an error
// wrapping driverpkg.ErrBackendUnavailable when it cannot run here.
type Opener func(ctx context.Context, id string) (Backend, error)

// Order lists backend ids to try. "auto" prefers the native API, then the
// servicing API where the OS supports it, then the legacy tool, which only
// serves the running system. Any other value names the only backend to use.
func Order(preferred string, servicingSupported, online bool) []string {
	if preferred != "" && preferred != "auto" {
		return []string{preferred}
	}
	ids := []string{IDNative}
	if servicingSupported {
		ids = append(ids, IDDism)
	}
	if online {
		ids = append(ids, IDPnputil)
	}
	return ids
}

// Select opens the first backend in ids that is available. Unavailable
// backends are skipped; if none opens, the joined causes are returned
// together with driverpkg.ErrBackendUnavailable.
func Select(ctx context.Context, ids []string, open Opener) (Backend, error) {
	var errs []error
	for _, id := range ids {
		b, err := open(ctx, id)
		if err == nil {
			log.Debug("backend selected", "backend", id)
			return b, nil
		}
		if !errors.Is(err, driverpkg.ErrBackendUnavailable) {
			log.Warn("backend failed to open", "backend", id, "error", err)
		} else {
			log.Debug("backend unavailable", "backend", id, "error", err)
		}
		errs = append(errs, fmt.Errorf("%s: %w", id, err))
	}
	return nil, fmt.Errorf("no driver store backend available: %w",
		errors.Join(append([]error{driverpkg.ErrBackendUnavailable}, errs...)...))
}
