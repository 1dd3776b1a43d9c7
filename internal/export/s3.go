package export

import (
	"bytes"
	"context"
	"path"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"l10ntrack/pkg/errors"
	"l10ntrack/pkg/models"
)

// Uploader stores rendered reports.
type Uploader interface {
	Upload(ctx context.Context, key string, content []byte, contentType string) (string, error)
}

// S3Uploader writes reports to an S3-compatible bucket, creating it on first use.
type S3Uploader struct {
	client *minio.Client
	bucket string
	region string

	initOnce sync.Once
	initErr  error
}

// NewS3Uploader validates cfg and builds a minio client.
func NewS3Uploader(cfg models.S3) (*S3Uploader, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, errors.ConfigError("s3 endpoint is required", "export.s3.endpoint")
	}
	access := strings.TrimSpace(cfg.AccessKey)
	secret := strings.TrimSpace(cfg.SecretKey)
	if access == "" || secret == "" {
		return nil, errors.ConfigError("s3 access key and secret key are required", "export.s3.access_key")
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, errors.ConfigError("s3 bucket is required", "export.s3.bucket")
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(access, secret, ""),
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to create s3 client")
	}

	return &S3Uploader{client: client, bucket: bucket, region: region}, nil
}

func (u *S3Uploader) ensureBucket(ctx context.Context) error {
	u.initOnce.Do(func() {
		exists, err := u.client.BucketExists(ctx, u.bucket)
		if err != nil {
			u.initErr = err
			return
		}
		if exists {
			return
		}
		u.initErr = u.client.MakeBucket(ctx, u.bucket, minio.MakeBucketOptions{Region: u.region})
	})
	return u.initErr
}

// Upload stores content under key and returns its s3:// location.
func (u *S3Uploader) Upload(ctx context.Context, key string, content []byte, contentType string) (string, error) {
	key = strings.TrimLeft(strings.TrimSpace(key), "/")
	if key == "" {
		return "", errors.ValidationError("key", key, "object key is required")
	}
	if err := u.ensureBucket(ctx); err != nil {
		return "", errors.Wrap(err, errors.ErrCodeStorage, "failed to prepare export bucket").
			WithContext("bucket", u.bucket)
	}

	_, err := u.client.PutObject(ctx, u.bucket, key, bytes.NewReader(content), int64(len(content)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeStorage, "failed to upload report").
			WithContext("bucket", u.bucket).
			WithContext("key", key)
	}
	return "s3://" + u.bucket + "/" + key, nil
}

// ObjectKey places a report file under exports/<site-slug>/.
func ObjectKey(siteName, filename string) string {
	return path.Join("exports", Slug(siteName), filename)
}
