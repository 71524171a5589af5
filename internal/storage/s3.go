package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/arcade/backend/internal/config"
	"github.com/arcade/backend/pkg/logger"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// PresignExpiry is the validity of every presigned URL the broker issues.
const PresignExpiry = time.Hour

var ErrBucketMissing = errors.New("bucket does not exist")

type S3Client struct {
	client    *minio.Client
	bucket    string
	endpoint  string
	secure    bool
	publicURL string
}

func NewS3Client(cfg config.StorageConfig) (*S3Client, error) {
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, errors.New("storage credentials are not configured")
	}

	host, secure, err := parseEndpoint(cfg.Endpoint, cfg.UseSSL)
	if err != nil {
		return nil, err
	}

	client, err := minio.New(host, &minio.Options{
		Creds:        credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:       secure,
		Region:       cfg.Region,
		BucketLookup: minio.BucketLookupPath,
	})
	if err != nil {
		return nil, err
	}

	return &S3Client{
		client:    client,
		bucket:    cfg.Bucket,
		endpoint:  host,
		secure:    secure,
		publicURL: strings.TrimRight(cfg.PublicURL, "/"),
	}, nil
}

// parseEndpoint accepts either a bare host[:port] or a URL. A URL's scheme
// decides TLS and any path (e.g. a trailing /bucket) is dropped.
func parseEndpoint(raw string, useSSL bool) (string, bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false, errors.New("storage endpoint is empty")
	}
	if !strings.Contains(raw, "://") {
		return strings.TrimRight(raw, "/"), useSSL, nil
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "", false, fmt.Errorf("invalid storage endpoint: %w", err)
	}
	if parsed.Host == "" {
		return "", false, fmt.Errorf("invalid storage endpoint %q", raw)
	}
	switch parsed.Scheme {
	case "https":
		return parsed.Host, true, nil
	case "http":
		return parsed.Host, false, nil
	default:
		return "", false, fmt.Errorf("unsupported storage endpoint scheme %q", parsed.Scheme)
	}
}

func (s *S3Client) Bucket() string {
	return s.bucket
}

func (s *S3Client) Endpoint() string {
	return s.endpoint
}

func (s *S3Client) Upload(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, objectName, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		logger.Error("s3_upload_failed", err, map[string]interface{}{
			"object_name":  objectName,
			"size":         size,
			"content_type": contentType,
			"bucket":       s.bucket,
			"endpoint":     s.endpoint,
		})
		return err
	}
	logger.Info("s3_upload_success", map[string]interface{}{
		"object_name":  objectName,
		"size":         size,
		"content_type": contentType,
		"bucket":       s.bucket,
	})
	return nil
}

func (s *S3Client) PresignedPutURL(ctx context.Context, objectName string, expiry time.Duration) (string, error) {
	urlValue, err := s.client.PresignedPutObject(ctx, s.bucket, objectName, expiry)
	if err != nil {
		logger.Error("s3_presign_put_failed", err, map[string]interface{}{
			"object_name": objectName,
			"bucket":      s.bucket,
		})
		return "", err
	}
	return urlValue.String(), nil
}

func (s *S3Client) PresignedGetURL(ctx context.Context, objectName string, expiry time.Duration) (string, error) {
	urlValue, err := s.client.PresignedGetObject(ctx, s.bucket, objectName, expiry, nil)
	if err != nil {
		logger.Error("s3_presign_get_failed", err, map[string]interface{}{
			"object_name": objectName,
			"bucket":      s.bucket,
		})
		return "", err
	}
	return urlValue.String(), nil
}

// PublicURL is where an object is served from once written. Without a
// configured public base it falls back to the path-style endpoint URL.
func (s *S3Client) PublicURL(objectName string) string {
	escaped := (&url.URL{Path: objectName}).EscapedPath()
	if s.publicURL != "" {
		return s.publicURL + "/" + escaped
	}
	scheme := "http"
	if s.secure {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/%s/%s", scheme, s.endpoint, s.bucket, escaped)
}

// Probe stats a single object. Callers use it as a connectivity check.
func (s *S3Client) Probe(ctx context.Context, objectName string) error {
	_, err := s.client.StatObject(ctx, s.bucket, objectName, minio.StatObjectOptions{})
	return err
}

func (s *S3Client) CheckConnection(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: %s", ErrBucketMissing, s.bucket)
	}
	return nil
}
