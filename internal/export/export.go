package export

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/dustin/go-humanize"

	"github.com/breeze-rmm/drvstore/internal/driverpkg"
	"github.com/breeze-rmm/drvstore/internal/driverstore"
	"github.com/breeze-rmm/drvstore/internal/logging"
	"github.com/breeze-rmm/drvstore/internal/workerpool"
)

// Exporter copies package folders to a Sink under
// "<prefix>/<publishedName>/<relative path>".
type Exporter struct {
	sink    Sink
	prefix  string
	workers int

	// openFolder maps a package folder to a filesystem; os.DirFS by default.
	openFolder func(dir string) fs.FS
}

// New creates an Exporter. workers bounds ExportAll's parallelism.
func New(sink Sink, prefix string, workers int) *Exporter {
	return &Exporter{
		sink:       sink,
		prefix:     prefix,
		workers:    max(1, workers),
		openFolder: os.DirFS,
	}
}

// Export copies one package. Records whose folder is unknown fail with
// driverpkg.ErrNotFound.
func (e *Exporter) Export(ctx context.Context, rec driverpkg.PackageRecord) driverstore.Result {
	r := e.export(ctx, rec)
	l := log.With("sink", e.sink.Name())
	if r.OK {
		l.Info("export succeeded", logging.KeyPublishedName, rec.PublishedName, "detail", r.Detail)
	} else {
		l.Warn("export failed", logging.KeyPublishedName, rec.PublishedName, logging.KeyError, r.Error())
	}
	return r
}

func (e *Exporter) export(ctx context.Context, rec driverpkg.PackageRecord) driverstore.Result {
	if !rec.Resolved() {
		return driverstore.Failed(fmt.Errorf("%s: store folder unknown: %w", rec.PublishedName, driverpkg.ErrNotFound), "")
	}

	fsys := e.openFolder(rec.FolderLocation)
	var (
		files int
		bytes int64
	)
	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		f, err := fsys.Open(p)
		if err != nil {
			return err
		}
		defer f.Close()

		counter := &countingReader{r: f}
		if err := e.sink.Put(ctx, objectKey(e.prefix, rec.PublishedName, p), counter); err != nil {
			return err
		}
		files++
		bytes += counter.n
		return nil
	})
	if err != nil {
		return driverstore.Failed(fmt.Errorf("export %s failed: %w", rec.PublishedName, err), "")
	}
	return driverstore.Succeeded(fmt.Sprintf("%d files, %s", files, humanize.IBytes(uint64(bytes))))
}

// ExportAll exports recs in parallel and reports in input order.
func (e *Exporter) ExportAll(ctx context.Context, recs []driverpkg.PackageRecord) driverstore.BatchReport {
	results := make([]driverstore.Result, len(recs))
	pool := workerpool.New(e.workers, len(recs))

	for i, rec := range recs {
		if err := pool.Submit(ctx, func() { results[i] = e.Export(ctx, rec) }); err != nil {
			results[i] = driverstore.Failed(err, "")
		}
	}
	// Wait for every submitted task; each one observes ctx itself.
	_ = pool.Shutdown(context.Background())

	report := driverstore.NewBatchReport()
	for i, rec := range recs {
		report.Add(rec.PublishedName, results[i])
	}
	return report
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
