package export

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"

	"github.com/breeze-rmm/drvstore/internal/config"
)

// AzureSink uploads block blobs into the container named by export.bucket.
type AzureSink struct {
	client    *azblob.Client
	container string
}

func newAzureSink(cfg config.ExportConfig) (*AzureSink, error) {
	if err := requireBucket(SinkAzure, cfg); err != nil {
		return nil, err
	}
	if cfg.AzureConnectionString == "" {
		return nil, errors.New("azure export requires export.azure_connection_string")
	}
	client, err := azblob.NewClientFromConnectionString(cfg.AzureConnectionString, nil)
	if err != nil {
		return nil, fmt.Errorf("create azure blob client failed: %w", err)
	}
	return &AzureSink{client: client, container: cfg.Bucket}, nil
}

func (s *AzureSink) Name() string { return SinkAzure }

func (s *AzureSink) Put(ctx context.Context, key string, r io.Reader) error {
	if _, err := s.client.UploadStream(ctx, s.container, key, r, nil); err != nil {
		return fmt.Errorf("azure upload of %s failed: %w", key, err)
	}
	return nil
}

func (s *AzureSink) Close() error { return nil }
