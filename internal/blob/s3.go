package blob

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// S3Store keeps blobs in an S3-compatible bucket. LocalPath stages objects
// into a scratch directory because the conversion tools only read files.
type S3Store struct {
	client     *minio.Client
	bucket     string
	stagingDir string
}

type S3Config struct {
	Endpoint   string
	AccessKey  string
	SecretKey  string
	Bucket     string
	UseSSL     bool
	StagingDir string
}

func NewS3Store(cfg S3Config) (*S3Store, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("connect object store: %w", err)
	}
	if err := os.MkdirAll(cfg.StagingDir, 0o755); err != nil {
		return nil, fmt.Errorf("create staging dir: %w", err)
	}
	return &S3Store{client: client, bucket: cfg.Bucket, stagingDir: cfg.StagingDir}, nil
}

func (s *S3Store) Put(ctx context.Context, key string, r io.Reader, size int64) error {
	_, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{})
	if err != nil {
		return fmt.Errorf("put object: %w", err)
	}
	return nil
}

func (s *S3Store) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get object: %w", err)
	}
	// GetObject defers the request; surface missing keys now.
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		return nil, mapS3Err(err)
	}
	return obj, nil
}

func (s *S3Store) Stat(ctx context.Context, key string) (Info, error) {
	info, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return Info{}, mapS3Err(err)
	}
	return Info{Size: info.Size, ModTime: info.LastModified}, nil
}

func (s *S3Store) Delete(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove object: %w", err)
	}
	return nil
}

func (s *S3Store) LocalPath(ctx context.Context, key string) (string, func(), error) {
	name := uuid.NewString()
	if ext := filepath.Ext(key); ext != "" {
		name += ext
	}
	staged := filepath.Join(s.stagingDir, name)
	if err := s.client.FGetObject(ctx, s.bucket, key, staged, minio.GetObjectOptions{}); err != nil {
		os.Remove(staged)
		return "", nil, mapS3Err(err)
	}
	return staged, func() { os.Remove(staged) }, nil
}

func mapS3Err(err error) error {
	resp := minio.ToErrorResponse(err)
	if resp.Code == "NoSuchKey" || strings.Contains(err.Error(), "does not exist") {
		return ErrNotFound
	}
	return fmt.Errorf("object store: %w", err)
}
