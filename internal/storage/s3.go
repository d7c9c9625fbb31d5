package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/imagefeed/backend/internal/config"
	"github.com/imagefeed/backend/internal/media"
)

// Uploader is the subset of the S3 upload manager used by S3Storage.
type Uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// S3Storage implements media.Store backed by an S3-compatible service.
type S3Storage struct {
	uploader Uploader
	bucket   string
	baseURL  string
}

// NewS3Storage configures an uploader targeting the provided object store.
func NewS3Storage(ctx context.Context, cfg config.ObjectStoreConfig) (*S3Storage, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, errors.New("s3 storage: bucket is required")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint := strings.TrimSpace(cfg.Endpoint); endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
		o.UsePathStyle = cfg.PathStyle
	})

	uploader := manager.NewUploader(client, func(u *manager.Uploader) {
		u.PartSize = 5 * 1024 * 1024
		u.LeavePartsOnError = false
	})

	return NewS3StorageWithUploader(uploader, cfg.Bucket, cfg.PublicBaseURL), nil
}

// NewS3StorageWithUploader builds an S3Storage around an existing uploader.
func NewS3StorageWithUploader(uploader Uploader, bucket, publicBaseURL string) *S3Storage {
	return &S3Storage{
		uploader: uploader,
		bucket:   bucket,
		baseURL:  strings.TrimSuffix(publicBaseURL, "/"),
	}
}

// Upload stores the file under its key with a public-read ACL. The object key
// doubles as the file id.
func (s *S3Storage) Upload(ctx context.Context, upload media.Upload) (media.Asset, error) {
	if s == nil || s.uploader == nil {
		return media.Asset{}, media.ErrStoreUnavailable
	}

	key := strings.TrimLeft(upload.Key, "/")
	if key == "" {
		return media.Asset{}, errors.New("s3 storage: empty key")
	}

	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   upload.Body,
		ACL:    s3types.ObjectCannedACLPublicRead,
	}
	if upload.ContentType != "" {
		input.ContentType = aws.String(upload.ContentType)
	}
	if upload.FileName != "" {
		input.Metadata = map[string]string{"original-name": url.QueryEscape(upload.FileName)}
	}

	out, err := s.uploader.Upload(ctx, input)
	if err != nil {
		return media.Asset{}, fmt.Errorf("s3 storage upload %s: %w", key, err)
	}

	return media.Asset{URL: s.publicURL(key, out), FileID: key}, nil
}

// publicURL path-escapes the key; it carries the client's file name.
func (s *S3Storage) publicURL(key string, out *manager.UploadOutput) string {
	escaped := (&url.URL{Path: key}).EscapedPath()
	if s.baseURL != "" {
		return fmt.Sprintf("%s/%s", s.baseURL, escaped)
	}
	if out != nil && out.Location != "" {
		return out.Location
	}
	return escaped
}

var _ media.Store = (*S3Storage)(nil)
