package services

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"packshop/internal/config"
)

// ImageStore persists pack images and returns their public URL. Delete
// takes a URL previously returned by Upload.
type ImageStore interface {
	Upload(ctx context.Context, packID string, filename string, contentType string, body io.Reader) (string, error)
	Delete(ctx context.Context, url string) error
}

type s3Uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

type s3Deleter interface {
	DeleteObject(ctx context.Context, input *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

type S3ImageStore struct {
	uploader      s3Uploader
	deleter       s3Deleter
	bucket        string
	publicBaseURL string
}

func NewS3ImageStore(cfg *config.S3Config) *S3ImageStore {
	return &S3ImageStore{
		uploader:      manager.NewUploader(cfg.Client),
		deleter:       cfg.Client,
		bucket:        cfg.Bucket,
		publicBaseURL: cfg.PublicBaseURL,
	}
}

func (s *S3ImageStore) Upload(ctx context.Context, packID string, filename string, contentType string, body io.Reader) (string, error) {
	key := path.Join("packs", packID, uuid.NewString()+strings.ToLower(path.Ext(filename)))

	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	return strings.TrimRight(s.publicBaseURL, "/") + "/" + key, nil
}

func (s *S3ImageStore) Delete(ctx context.Context, url string) error {
	prefix := strings.TrimRight(s.publicBaseURL, "/") + "/"
	if !strings.HasPrefix(url, prefix) {
		return fmt.Errorf("image %s is not stored in bucket %s", url, s.bucket)
	}
	key := strings.TrimPrefix(url, prefix)

	_, err := s.deleter.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}
