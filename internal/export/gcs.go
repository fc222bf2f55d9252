package export

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/breeze-rmm/drvstore/internal/config"
)

// GCSSink uploads to a Google Cloud Storage bucket.
type GCSSink struct {
	client *storage.Client
	bucket *storage.BucketHandle
}

func newGCSSink(ctx context.Context, cfg config.ExportConfig) (*GCSSink, error) {
	if err := requireBucket(SinkGCS, cfg); err != nil {
		return nil, err
	}

	var opts []option.ClientOption
	if cfg.GCSCredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.GCSCredentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create gcs client failed: %w", err)
	}
	return &GCSSink{client: client, bucket: client.Bucket(cfg.Bucket)}, nil
}

func (s *GCSSink) Name() string { return SinkGCS }

func (s *GCSSink) Put(ctx context.Context, key string, r io.Reader) error {
	w := s.bucket.Object(key).NewWriter(ctx)
	if _, err := io.Copy(w, r); err != nil {
		return errors.Join(fmt.Errorf("gcs upload of %s failed: %w", key, err), w.Close())
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("gcs upload of %s failed: %w", key, err)
	}
	return nil
}

func (s *GCSSink) Close() error { return s.client.Close() }
