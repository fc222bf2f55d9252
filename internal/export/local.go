package export

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// containedPath ensures that the resolved path stays within basePath.
// Returns the safe absolute path or an error if path traversal is detected.
func containedPath(basePath, untrustedPath string) (string, error) {
	absBase, err := filepath.Abs(basePath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve base path: %w", err)
	}
	joined := filepath.Join(absBase, filepath.FromSlash(untrustedPath))
	absJoined, err := filepath.Abs(joined)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}
	if !strings.HasPrefix(absJoined, absBase+string(filepath.Separator)) {
		return "", fmt.Errorf("path traversal detected: %q resolves outside base %q", untrustedPath, absBase)
	}
	return absJoined, nil
}

// LocalSink writes exports below a local or mounted directory.
type LocalSink struct {
	BasePath string
}

// NewLocalSink creates a LocalSink rooted at basePath.
func NewLocalSink(basePath string) *LocalSink {
	return &LocalSink{BasePath: filepath.Clean(basePath)}
}

func (s *LocalSink) Name() string { return SinkLocal }

// Put writes r to key below BasePath. Keys escaping the base are rejected.
func (s *LocalSink) Put(ctx context.Context, key string, r io.Reader) error {
	if s.BasePath == "" {
		return errors.New("local sink base path is required")
	}
	if key == "" {
		return errors.New("destination key is required")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	destPath, err := containedPath(s.BasePath, key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return fmt.Errorf("failed to create destination directory: %w", err)
	}

	destFile, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("failed to create destination file: %w", err)
	}
	_, err = io.Copy(destFile, r)
	closeErr := destFile.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

func (s *LocalSink) Close() error { return nil }
