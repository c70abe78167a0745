package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"storybook-server/internal/config"
)

// ErrImageSaveFailed is returned when illustration bytes cannot be persisted.
var ErrImageSaveFailed = errors.New("image save failed")

// BlobStore persists illustration bytes and resolves stored references to
// public URLs.
type BlobStore interface {
	// Store writes the blob and returns an opaque storage reference.
	Store(ctx context.Context, data []byte) (string, error)
	// URL returns the public URL for a stored reference.
	URL(ref string) string
}

type fileBlobStore struct {
	dir     string
	baseURL string
	logger  *zap.Logger
}

// NewFileBlobStore stores blobs as files under cfg.BlobDir, served from
// cfg.BlobPublicURL.
func NewFileBlobStore(cfg *config.Config, logger *zap.Logger) (BlobStore, error) {
	if cfg.BlobDir == "" {
		return nil, errors.New("blob directory (BLOB_DIR) is not configured")
	}
	if cfg.BlobPublicURL == "" {
		return nil, errors.New("blob public base URL (BLOB_PUBLIC_URL) is not configured")
	}
	if err := os.MkdirAll(cfg.BlobDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create blob directory %q: %w", cfg.BlobDir, err)
	}
	return &fileBlobStore{
		dir:     cfg.BlobDir,
		baseURL: strings.TrimSuffix(cfg.BlobPublicURL, "/"),
		logger:  logger.Named("blobstore"),
	}, nil
}

var _ BlobStore = (*fileBlobStore)(nil)

func (s *fileBlobStore) Store(ctx context.Context, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", fmt.Errorf("%w: empty blob", ErrImageSaveFailed)
	}

	ref := uuid.NewString() + ".png"
	path := filepath.Join(s.dir, ref)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		s.logger.Error("Failed to save blob to file", zap.String("path", path), zap.Error(err))
		return "", fmt.Errorf("%w: %v", ErrImageSaveFailed, err)
	}

	s.logger.Debug("Blob saved", zap.String("ref", ref), zap.Int("size_bytes", len(data)))
	return ref, nil
}

func (s *fileBlobStore) URL(ref string) string {
	return s.baseURL + "/" + ref
}
