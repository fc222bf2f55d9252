package export

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/Backblaze/blazer/b2"

	"github.com/breeze-rmm/drvstore/internal/config"
)

// B2Sink uploads to a Backblaze B2 bucket.
type B2Sink struct {
	bucket *b2.Bucket
}

func newB2Sink(ctx context.Context, cfg config.ExportConfig) (*B2Sink, error) {
	if err := requireBucket(SinkB2, cfg); err != nil {
		return nil, err
	}
	if cfg.B2KeyID == "" || cfg.B2AppKey == "" {
		return nil, errors.New("b2 export requires export.b2_key_id and export.b2_app_key")
	}
	client, err := b2.NewClient(ctx, cfg.B2KeyID, cfg.B2AppKey)
	if err != nil {
		return nil, fmt.Errorf("create b2 client failed: %w", err)
	}
	bucket, err := client.Bucket(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("open b2 bucket %s failed: %w", cfg.Bucket, err)
	}
	return &B2Sink{bucket: bucket}, nil
}

func (s *B2Sink) Name() string { return SinkB2 }

func (s *B2Sink) Put(ctx context.Context, key string, r io.Reader) error {
	w := s.bucket.Object(key).NewWriter(ctx)
	if _, err := io.Copy(w, r); err != nil {
		return errors.Join(fmt.Errorf("b2 upload of %s failed: %w", key, err), w.Close())
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("b2 upload of %s failed: %w", key, err)
	}
	return nil
}

func (s *B2Sink) Close() error { return nil }
