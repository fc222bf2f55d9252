package export

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/breeze-rmm/drvstore/internal/config"
)

// S3Sink uploads to an S3 bucket with the multipart upload manager.
type S3Sink struct {
	bucket   string
	uploader *manager.Uploader
}

func newS3Sink(ctx context.Context, cfg config.ExportConfig) (*S3Sink, error) {
	if err := requireBucket(SinkS3, cfg); err != nil {
		return nil, err
	}

	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.S3AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3AccessKeyID, cfg.S3SecretAccessKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config failed: %w", err)
	}

	return &S3Sink{
		bucket:   cfg.Bucket,
		uploader: manager.NewUploader(s3.NewFromConfig(awsCfg)),
	}, nil
}

func (s *S3Sink) Name() string { return SinkS3 }

func (s *S3Sink) Put(ctx context.Context, key string, r io.Reader) error {
	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   r,
	})
	if err != nil {
		return fmt.Errorf("s3 upload of %s failed: %w", key, err)
	}
	return nil
}

func (s *S3Sink) Close() error { return nil }
