// Package export copies driver package folders to a local directory or an
// object store.
package export

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/breeze-rmm/drvstore/internal/config"
	"github.com/breeze-rmm/drvstore/internal/logging"
)

var log = logging.L("export")

// Sink names accepted by NewSink.
const (
	SinkLocal = "local"
	SinkS3    = "s3"
	SinkGCS   = "gcs"
	SinkAzure = "azure"
	SinkB2    = "b2"
)

// Sink stores exported files under slash-separated keys.
type Sink interface {
	Name() string
	Put(ctx context.Context, key string, r io.Reader) error
	Close() error
}

// NewSink opens the sink selected by cfg.Sink. For the local sink,
// cfg.Bucket is the destination directory.
func NewSink(ctx context.Context, cfg config.ExportConfig) (Sink, error) {
	switch strings.ToLower(cfg.Sink) {
	case "", SinkLocal:
		dir := cfg.Bucket
		if dir == "" {
			dir = "."
		}
		return NewLocalSink(dir), nil
	case SinkS3:
		return newS3Sink(ctx, cfg)
	case SinkGCS:
		return newGCSSink(ctx, cfg)
	case SinkAzure:
		return newAzureSink(cfg)
	case SinkB2:
		return newB2Sink(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown export sink %q", cfg.Sink)
	}
}

// objectKey builds "<prefix>/<publishedName>/<rel>", dropping empty parts.
func objectKey(prefix, publishedName, rel string) string {
	parts := make([]string, 0, 3)
	if p := strings.Trim(prefix, "/"); p != "" {
		parts = append(parts, p)
	}
	parts = append(parts, publishedName, rel)
	return path.Join(parts...)
}

func requireBucket(sink string, cfg config.ExportConfig) error {
	if cfg.Bucket == "" {
		return fmt.Errorf("%s export requires export.bucket", sink)
	}
	return nil
}
