package storage

import "context"

// ImageUploader stores user images. Handlers depend on this so tests can
// swap in a fake.
type ImageUploader interface {
	UploadImage(ctx context.Context, data []byte, userID, filename string, kind ImageKind) (*UploadResult, error)
	DeleteFile(ctx context.Context, key string) error
}

var _ ImageUploader = (*S3Uploader)(nil)
