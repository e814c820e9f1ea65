// Package blob stores and presigns uploaded PDF objects.
package blob

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	domain "github.com/tejasgodse/chatpdf/internal/domain/chatpdf"
	apperrors "github.com/tejasgodse/chatpdf/pkg/errors"
)

// S3Blob stores objects in any S3-compatible bucket (R2, MinIO, S3
// itself) and issues presigned PUT/GET URLs for direct client upload
// and download.
type S3Blob struct {
	client *minio.Client
	bucket string
	logger *slog.Logger
}

// NewS3Blob constructs the blob adapter.
func NewS3Blob(endpoint, accessKey, secretKey, bucket, region string, logger *slog.Logger) (*S3Blob, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cleanEndpoint := sanitizeEndpoint(endpoint)
	useSSL := strings.HasPrefix(strings.ToLower(endpoint), "https")
	client, err := minio.New(cleanEndpoint, &minio.Options{
		Creds:        credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure:       useSSL,
		Region:       region,
		BucketLookup: minio.BucketLookupPath,
	})
	if err != nil {
		return nil, fmt.Errorf("init blob client: %w", err)
	}
	return &S3Blob{client: client, bucket: bucket, logger: logger.With("component", "chatpdf.blob.s3")}, nil
}

func (s *S3Blob) ensureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err == nil && exists {
		return nil
	}
	err = s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{})
	if err != nil && minio.ToErrorResponse(err).Code != "BucketAlreadyOwnedByYou" {
		return err
	}
	return nil
}

// Put uploads data to the bucket under key.
func (s *S3Blob) Put(ctx context.Context, key string, data []byte, mimeType string) error {
	if err := s.ensureBucket(ctx); err != nil {
		return apperrors.Wrap(domain.CodeBlobUnavailable, "ensure bucket", err)
	}
	reader := bytes.NewReader(data)
	_, err := s.client.PutObject(ctx, s.bucket, key, reader, int64(len(data)), minio.PutObjectOptions{
		ContentType:      mimeType,
		DisableMultipart: len(data) < 5*1024*1024,
	})
	if err != nil {
		return apperrors.Wrap(domain.CodeBlobUnavailable, "put object", err)
	}
	return nil
}

// Get fetches an object for reading.
func (s *S3Blob) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, apperrors.Wrap(domain.CodeBlobUnavailable, "get object", err)
	}
	if _, statErr := obj.Stat(); statErr != nil {
		errResp := minio.ToErrorResponse(statErr)
		if errResp.Code == "NoSuchKey" {
			return nil, apperrors.Wrap(domain.CodeBlobNotFound, "object not found: "+key, statErr)
		}
		return nil, apperrors.Wrap(domain.CodeBlobUnavailable, "stat object", statErr)
	}
	return obj, nil
}

// PresignPut returns a URL a client can PUT the raw file bytes to
// directly, bypassing the application server.
func (s *S3Blob) PresignPut(ctx context.Context, key string, expires time.Duration) (string, error) {
	if err := s.ensureBucket(ctx); err != nil {
		return "", apperrors.Wrap(domain.CodeBlobUnavailable, "ensure bucket", err)
	}
	u, err := s.client.PresignedPutObject(ctx, s.bucket, key, expires)
	if err != nil {
		return "", apperrors.Wrap(domain.CodeBlobUnavailable, "presign put", err)
	}
	return u.String(), nil
}

// PresignGet returns a URL a client can GET the raw file bytes from
// directly.
func (s *S3Blob) PresignGet(ctx context.Context, key string, expires time.Duration) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, expires, nil)
	if err != nil {
		return "", apperrors.Wrap(domain.CodeBlobUnavailable, "presign get", err)
	}
	return u.String(), nil
}

var _ domain.Blob = (*S3Blob)(nil)

// sanitizeEndpoint removes schemes and paths to satisfy minio.New expectations.
func sanitizeEndpoint(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return raw
	}
	raw = strings.TrimPrefix(strings.TrimPrefix(raw, "https://"), "http://")
	if strings.Contains(raw, "/") {
		parts := strings.Split(raw, "/")
		raw = parts[0]
	}
	return raw
}
