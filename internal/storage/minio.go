package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinIOConfig holds the object storage connection settings.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// MinIOStore keeps objects in one bucket, keyed by the generated filename.
type MinIOStore struct {
	mc     *minio.Client
	bucket string
}

var _ Store = (*MinIOStore)(nil)

// NewMinIOStore creates the client. It does not contact the server; call
// EnsureBucket for that.
func NewMinIOStore(cfg MinIOConfig) (*MinIOStore, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("minio endpoint is required")
	}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("minio access key and secret key are required")
	}

	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	bucket := cfg.Bucket
	if bucket == "" {
		bucket = "file-hosting"
	}
	return &MinIOStore{mc: mc, bucket: bucket}, nil
}

// EnsureBucket creates the bucket when it does not exist.
func (s *MinIOStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.mc.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := s.mc.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("create bucket: %w", err)
		}
		slog.Info("Created bucket", "bucket", s.bucket)
	}
	return nil
}

func (s *MinIOStore) Save(ctx context.Context, filename string, r io.Reader, size int64, contentType string) (string, error) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err := s.mc.PutObject(ctx, s.bucket, filename, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", filename, err)
	}
	return filename, nil
}

// Open stats the object first since GetObject does not fail on a missing key.
func (s *MinIOStore) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	obj, err := s.mc.GetObject(ctx, s.bucket, path, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", path, err)
	}
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		if isNoSuchKey(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	return obj, nil
}

func (s *MinIOStore) Exists(ctx context.Context, path string) (bool, error) {
	_, err := s.mc.StatObject(ctx, s.bucket, path, minio.StatObjectOptions{})
	if err != nil {
		if isNoSuchKey(err) {
			return false, nil
		}
		return false, fmt.Errorf("stat %s: %w", path, err)
	}
	return true, nil
}

func (s *MinIOStore) Remove(ctx context.Context, path string) error {
	if err := s.mc.RemoveObject(ctx, s.bucket, path, minio.RemoveObjectOptions{}); err != nil && !isNoSuchKey(err) {
		return fmt.Errorf("remove %s: %w", path, err)
	}
	return nil
}

func isNoSuchKey(err error) bool {
	return minio.ToErrorResponse(err).Code == "NoSuchKey"
}
