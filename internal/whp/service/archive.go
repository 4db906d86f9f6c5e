package service

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/bitfantasy/whp/internal/config"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Archive stores uploaded spreadsheets as received.
type Archive interface {
	Put(ctx context.Context, key string, data []byte) error
}

// ArchiveKey returns imports/YYYY/MM/<uuid>-<name> for a file uploaded at now.
func ArchiveKey(now time.Time, fileName string) string {
	name := path.Base(strings.ReplaceAll(fileName, "\\", "/"))
	if name == "." || name == "/" {
		name = "upload"
	}
	return fmt.Sprintf("imports/%s/%s-%s", now.Format("2006/01"), uuid.New().String(), name)
}

// MinIOArchive keeps files in one MinIO bucket.
type MinIOArchive struct {
	client *minio.Client
	bucket string
}

// NewMinIOArchive connects to MinIO. It returns nil, nil when no endpoint
// is configured.
func NewMinIOArchive(cfg config.MinIOConfig) (*MinIOArchive, error) {
	if cfg.Endpoint == "" {
		return nil, nil
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}
	return &MinIOArchive{client: client, bucket: cfg.Bucket}, nil
}

// EnsureBucket creates the bucket when it does not exist yet.
func (a *MinIOArchive) EnsureBucket(ctx context.Context) error {
	exists, err := a.client.BucketExists(ctx, a.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", a.bucket, err)
	}
	if exists {
		return nil
	}
	if err := a.client.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("create bucket %s: %w", a.bucket, err)
	}
	return nil
}

func (a *MinIOArchive) Put(ctx context.Context, key string, data []byte) error {
	contentType := "application/vnd.ms-excel"
	if strings.HasSuffix(strings.ToLower(key), ".xlsx") {
		contentType = xlsxContentType
	}
	_, err := a.client.PutObject(ctx, a.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("upload file: %w", err)
	}
	return nil
}
