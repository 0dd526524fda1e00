// Package storage persists lead export snapshots in S3-compatible object
// storage.
package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"leadcall_backend/platform/config"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ArchiveStore uploads export snapshots to a MinIO bucket.
type ArchiveStore struct {
	client *minio.Client
	bucket string
}

// NewArchiveStore creates an archive store from the MinIO configuration.
func NewArchiveStore(cfg config.MinIOConfig) (*ArchiveStore, error) {
	if !cfg.IsMinIOEnabled() {
		return nil, fmt.Errorf("MinIO is not configured")
	}

	client, err := minio.New(cfg.GetMinIOEndpoint(), &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.GetMinIOAccessKey(), cfg.GetMinIOSecretKey(), ""),
		Secure: cfg.GetMinIOUseSSL(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	return &ArchiveStore{
		client: client,
		bucket: cfg.GetMinioBucketExports(),
	}, nil
}

// Bucket returns the configured export bucket name.
func (s *ArchiveStore) Bucket() string { return s.bucket }

// EnsureBucket creates the export bucket if it does not exist.
func (s *ArchiveStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", s.bucket, err)
		}
	}

	return nil
}

// Upload stores one snapshot and returns its object key. Keys are
// timestamped so snapshots never overwrite each other.
func (s *ArchiveStore) Upload(ctx context.Context, reader io.Reader, size int64, contentType string) (string, error) {
	key := fmt.Sprintf("leads/%s.csv", time.Now().UTC().Format("20060102T150405Z"))

	_, err := s.client.PutObject(ctx, s.bucket, key, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload snapshot %s: %w", key, err)
	}
	return key, nil
}
