// Package avatar stores person profile images in a MinIO (S3-compatible)
// bucket and hands out short-lived presigned URLs for reads.
package avatar

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const (
	maxUploadBytes = 5 << 20 // 5 MiB
	urlExpiry      = 15 * time.Minute
)

var allowedContentTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// Config holds the MinIO connection settings.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// Store uploads and serves avatars.
type Store struct {
	client *minio.Client
	bucket string
}

// New connects to MinIO and ensures the avatar bucket exists.
func New(ctx context.Context, cfg Config) (*Store, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("connect minio: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check avatar bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create avatar bucket: %w", err)
		}
	}

	return &Store{client: client, bucket: cfg.Bucket}, nil
}

// ErrUnsupportedType is returned for uploads that are not a known image type.
type ErrUnsupportedType struct {
	ContentType string
}

func (e ErrUnsupportedType) Error() string {
	return fmt.Sprintf("unsupported avatar content type %q", e.ContentType)
}

// Upload stores an avatar for a person and returns the object key. The key
// embeds the person id so a re-upload replaces the previous object.
func (s *Store) Upload(ctx context.Context, userID, personID, contentType string, body io.Reader, size int64) (string, error) {
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	ext, ok := allowedContentTypes[contentType]
	if !ok {
		return "", ErrUnsupportedType{ContentType: contentType}
	}
	if size > maxUploadBytes {
		return "", fmt.Errorf("avatar exceeds %d bytes", maxUploadBytes)
	}

	key := fmt.Sprintf("%s/%s%s", userID, personID, ext)
	_, err := s.client.PutObject(ctx, s.bucket, key, io.LimitReader(body, maxUploadBytes), size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("put avatar object: %w", err)
	}
	return key, nil
}

// URL returns a presigned GET URL for a stored avatar key.
func (s *Store) URL(ctx context.Context, key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", nil
	}
	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, urlExpiry, url.Values{})
	if err != nil {
		return "", fmt.Errorf("presign avatar url: %w", err)
	}
	return u.String(), nil
}

// Remove deletes a stored avatar object. Missing objects are not an error.
func (s *Store) Remove(ctx context.Context, key string) error {
	if strings.TrimSpace(key) == "" {
		return nil
	}
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove avatar object: %w", err)
	}
	return nil
}
