package storage

import (
	"context"
	"errors"
	"io"
)

// ErrDisabled is returned by Disabled.Upload
var ErrDisabled = errors.New("image storage is not configured")

// ImageStore persists user images and removes them by key
type ImageStore interface {
	Upload(ctx context.Context, body io.Reader, size int64, userID, filename string) (*UploadResult, error)
	Delete(ctx context.Context, key string) error
}

// Upload is a file supplied with a request, ready to hand to an ImageStore
type Upload struct {
	Filename string
	Body     io.Reader
	Size     int64
}

// Disabled rejects uploads and ignores deletes. It stands in for S3 when no
// bucket is configured.
type Disabled struct{}

func (Disabled) Upload(ctx context.Context, body io.Reader, size int64, userID, filename string) (*UploadResult, error) {
	return nil, ErrDisabled
}

func (Disabled) Delete(ctx context.Context, key string) error { return nil }

var (
	_ ImageStore = (*S3ImageStore)(nil)
	_ ImageStore = Disabled{}
)
