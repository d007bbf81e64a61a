package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// MaxImageBytes caps a single image upload.
const MaxImageBytes = 5 << 20

// ImageKind selects the key prefix of an upload.
type ImageKind string

const (
	KindPost   ImageKind = "posts"
	KindAvatar ImageKind = "avatars"
)

var (
	ErrEmptyFile       = errors.New("file is empty")
	ErrFileTooLarge    = fmt.Errorf("file exceeds %d bytes", MaxImageBytes)
	ErrUnsupportedType = errors.New("only jpeg, png, gif and webp images are allowed")
)

var allowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// S3Uploader stores images in one S3 bucket and serves them from baseURL
// (a CDN in front of the bucket, or the bucket's own endpoint).
type S3Uploader struct {
	client  *s3.Client
	bucket  string
	region  string
	baseURL string
}

// UploadResult contains the result of an S3 upload
type UploadResult struct {
	Key         string `json:"key"`
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

// NewS3Uploader loads the default AWS credential chain for region.
func NewS3Uploader(ctx context.Context, region, bucket, baseURL string) (*S3Uploader, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return NewS3UploaderWithClient(s3.NewFromConfig(cfg), region, bucket, baseURL), nil
}

// NewS3UploaderWithClient wraps an existing client. An empty baseURL means
// the bucket's virtual-hosted endpoint.
func NewS3UploaderWithClient(client *s3.Client, region, bucket, baseURL string) *S3Uploader {
	if baseURL == "" {
		baseURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", bucket, region)
	}
	return &S3Uploader{client: client, bucket: bucket, region: region, baseURL: strings.TrimSuffix(baseURL, "/")}
}

// ValidateImage sniffs the content type of data and returns it with the file
// extension to store it under.
func ValidateImage(data []byte) (contentType, ext string, err error) {
	if len(data) == 0 {
		return "", "", ErrEmptyFile
	}
	if len(data) > MaxImageBytes {
		return "", "", ErrFileTooLarge
	}
	contentType = http.DetectContentType(data)
	ext, ok := allowedImageTypes[contentType]
	if !ok {
		return "", "", ErrUnsupportedType
	}
	return contentType, ext, nil
}

// ObjectKey builds {kind}/{yyyy}/{mm}/{userID}/{uuid}{ext}.
func ObjectKey(kind ImageKind, userID, ext string, now time.Time) string {
	return fmt.Sprintf("%s/%d/%02d/%s/%s%s", kind, now.Year(), now.Month(), userID, uuid.New().String(), ext)
}

// UploadImage validates and stores one image.
func (u *S3Uploader) UploadImage(ctx context.Context, data []byte, userID, filename string, kind ImageKind) (*UploadResult, error) {
	contentType, ext, err := ValidateImage(data)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	key := ObjectKey(kind, userID, ext, now)

	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(u.bucket),
		Key:          aws.String(key),
		Body:         bytes.NewReader(data),
		ContentType:  aws.String(contentType),
		CacheControl: aws.String("public, max-age=31536000, immutable"),
		Metadata: map[string]string{
			"user-id":           userID,
			"original-filename": filepath.Base(filename),
			"upload-timestamp":  now.Format(time.RFC3339),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload to S3: %w", err)
	}

	return &UploadResult{
		Key:         key,
		URL:         u.baseURL + "/" + key,
		ContentType: contentType,
		Size:        int64(len(data)),
	}, nil
}

// DeleteFile deletes a file from S3
func (u *S3Uploader) DeleteFile(ctx context.Context, key string) error {
	_, err := u.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(u.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete from S3: %w", err)
	}
	return nil
}

// KeyFromURL reverses URL for objects this uploader created.
func (u *S3Uploader) KeyFromURL(url string) (string, bool) {
	prefix := u.baseURL + "/"
	if !strings.HasPrefix(url, prefix) {
		return "", false
	}
	return strings.TrimPrefix(url, prefix), true
}

// CheckBucketAccess verifies that we can access the S3 bucket
func (u *S3Uploader) CheckBucketAccess(ctx context.Context) error {
	_, err := u.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(u.bucket),
	})
	if err != nil {
		return fmt.Errorf("cannot access S3 bucket %s: %w", u.bucket, err)
	}
	return nil
}
