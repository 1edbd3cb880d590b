package export

import "context"

// ObjectStorage captures the minimal S3-compatible operations report export
// needs.
type ObjectStorage interface {
	UploadObject(ctx context.Context, key string, contentType string, data []byte) error
}
