package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/staffhub/portal/internal/config"
)

// MinIOStorage stores uploads in a single bucket.
type MinIOStorage struct {
	client  *minio.Client
	bucket  string
	expires time.Duration
	now     func() time.Time
}

// NewMinIOStorage connects to MinIO and ensures the bucket exists.
func NewMinIOStorage(ctx context.Context, cfg config.MinIOConfig) (*MinIOStorage, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("minio endpoint not configured")
	}
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio new: %w", err)
	}
	expires := cfg.PresignTTL
	if expires <= 0 {
		expires = 15 * time.Minute
	}
	s := &MinIOStorage{client: mc, bucket: cfg.Bucket, expires: expires, now: time.Now}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	exists, err := mc.BucketExists(ctx, s.bucket)
	if err != nil {
		return nil, fmt.Errorf("minio bucket check: %w", err)
	}
	if !exists {
		if err := mc.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("minio bucket create: %w", err)
		}
	}
	return s, nil
}

// Upload stores the object under a fresh key and returns the key as the file reference.
func (s *MinIOStorage) Upload(ctx context.Context, folder, filename string, r io.Reader, size int64, contentType string) (string, error) {
	key := ObjectKey(folder, filename, s.now())
	opts := minio.PutObjectOptions{
		ContentType:  contentType,
		UserMetadata: map[string]string{"original-filename": filename},
	}
	if _, err := s.client.PutObject(ctx, s.bucket, key, r, size, opts); err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	return key, nil
}

// PresignedURL returns a GET link for ref valid for the configured duration.
func (s *MinIOStorage) PresignedURL(ctx context.Context, ref string) (string, error) {
	if _, err := s.client.StatObject(ctx, s.bucket, ref, minio.StatObjectOptions{}); err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return "", ErrNotFound
		}
		return "", err
	}
	u, err := s.client.PresignedGetObject(ctx, s.bucket, ref, s.expires, url.Values{})
	if err != nil {
		return "", err
	}
	return u.String(), nil
}
