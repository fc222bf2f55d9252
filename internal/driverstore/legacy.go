package driverstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/breeze-rmm/drvstore/internal/devicemap"
	"github.com/breeze-rmm/drvstore/internal/driverpkg"
	"github.com/breeze-rmm/drvstore/internal/executor"
	"github.com/breeze-rmm/drvstore/internal/infcorrelate"
	"github.com/breeze-rmm/drvstore/internal/logging"
	"github.com/breeze-rmm/drvstore/internal/pnputil"
)

// LegacyOptions wires the legacy-tool backend to its environment.
type LegacyOptions struct {
	Runner executor.Runner
	// Tool is the pnputil executable; empty means pnputil.DefaultExecutable.
	Tool string
	// DateOrder is the host's short date order, used to read pnputil dates.
	DateOrder pnputil.DateOrder

	// Mirror is the INF directory holding one stub per published name.
	Mirror fs.FS
	// Store is the package store (FileRepository); StoreRoot is its OS path.
	Store     fs.FS
	StoreRoot string

	Devices devicemap.Source
	// Scan wraps store correlation, e.g. to enable backup privilege.
	// Nil runs it directly.
	Scan func(fn func() error) error
}

// Legacy drives pnputil and recovers what its text output lacks (original
// INF name, folder, size) by content correlation against the store.
type Legacy struct {
	opts LegacyOptions
}

// NewLegacy creates the legacy-tool backend.
func NewLegacy(opts LegacyOptions) *Legacy {
	if opts.Tool == "" {
		opts.Tool = pnputil.DefaultExecutable
	}
	if opts.Scan == nil {
		opts.Scan = func(fn func() error) error { return fn() }
	}
	return &Legacy{opts: opts}
}

func (l *Legacy) ID() string   { return IDPnputil }
func (l *Legacy) Name() string { return "PnP Utility" }

func (l *Legacy) Capabilities() driverpkg.Capabilities {
	return driverpkg.Capabilities{
		InstallOnAdd:  true,
		ForceDelete:   true,
		DeviceColumn:  true,
		ExportPackage: true,
		ExportAll:     true,
	}
}

// Target is always the running system.
func (l *Legacy) Target() Target { return Target{Online: true} }

// Enumerate lists third-party packages, resolves their store location and
// correlates them with devices.
func (l *Legacy) Enumerate(ctx context.Context) ([]driverpkg.PackageRecord, error) {
	res, err := l.opts.Runner.Run(ctx, l.opts.Tool, pnputil.EnumerateArgs()...)
	if err != nil {
		return nil, fmt.Errorf("pnputil enumerate failed: %w", err)
	}

	parsed := pnputil.Parse(res.Output, pnputil.WithDateOrder(l.opts.DateOrder))
	records := make([]driverpkg.PackageRecord, 0, len(parsed))
	seen := make(map[string]bool, len(parsed))
	for _, rec := range parsed {
		key := strings.ToLower(rec.PublishedName)
		if seen[key] {
			log.Warn("duplicate published name in pnputil output", logging.KeyPublishedName, rec.PublishedName)
			continue
		}
		seen[key] = true
		records = append(records, rec)
	}

	records, err = l.resolve(records)
	if err != nil {
		return nil, err
	}

	devices := devicemap.Build(ctx, l.opts.Devices)
	return devices.AnnotateAll(records), nil
}

// resolve builds a fresh index for this pass; the index cannot be reused.
func (l *Legacy) resolve(records []driverpkg.PackageRecord) ([]driverpkg.PackageRecord, error) {
	out := make([]driverpkg.PackageRecord, len(records))
	copy(out, records)

	if l.opts.Mirror == nil || l.opts.Store == nil {
		return out, nil
	}

	index := infcorrelate.New(l.opts.Mirror, l.opts.Store, l.opts.StoreRoot)
	err := l.opts.Scan(func() error {
		for i, rec := range out {
			loc, ok := index.Resolve(rec.PublishedName)
			if !ok {
				continue
			}
			out[i] = rec.WithLocation(loc.OriginalInfName, loc.Folder, loc.Size)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("store correlation failed: %w", err)
	}
	log.Debug("store correlation finished", "records", len(out), "foldersVisited", index.Visited(), "unmatchedFolders", index.Cached())
	return out, nil
}

// Delete removes a package. pnputil's output decides the outcome; text that
// matches neither pattern counts as failure.
func (l *Legacy) Delete(ctx context.Context, rec driverpkg.PackageRecord, force bool) Result {
	args, err := pnputil.DeleteArgs(rec.PublishedName, force)
	if err != nil {
		return Failed(err, "")
	}
	r := l.classify(ctx, args, pnputil.ClassifyDelete)
	logOutcome(l, "delete", rec.PublishedName, r)
	return r
}

// Add stages a package and optionally installs it on matching devices.
func (l *Legacy) Add(ctx context.Context, infPath string, install bool) Result {
	args, err := pnputil.AddArgs(infPath, install)
	if err != nil {
		return Failed(err, "")
	}
	r := l.classify(ctx, args, pnputil.ClassifyAdd)
	logOutcome(l, "add", infPath, r)
	return r
}

func (l *Legacy) classify(ctx context.Context, args []string, classify func(string) pnputil.Outcome) Result {
	res, runErr := l.opts.Runner.Run(ctx, l.opts.Tool, args...)
	detail := strings.TrimSpace(res.Output)

	var procErr *driverpkg.ExternalProcessError
	if errors.As(runErr, &procErr) && procErr.ExitCode < 0 {
		// Never started, or timed out.
		return Failed(runErr, detail)
	}

	switch classify(res.Output) {
	case pnputil.Succeeded:
		return Succeeded(detail)
	case pnputil.Failed:
		if runErr == nil {
			runErr = errors.New("pnputil reported failure")
		}
		return Failed(runErr, detail)
	default:
		return Failed(errors.Join(driverpkg.ErrParseAmbiguous, runErr), detail)
	}
}
