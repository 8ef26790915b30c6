package storage

import (
	"context"
	"path"
	"time"

	"github.com/google/uuid"
)

// ObjectStore defines the object storage operations the API needs.
type ObjectStore interface {
	// PutObject uploads body under objectKey, overwriting any existing object.
	PutObject(ctx context.Context, objectKey string, body []byte, contentType string) error
}

// NewObjectKey returns "<prefix>/<yyyy>/<mm>/<dd>/<uuid>.<ext>".
func NewObjectKey(prefix, ext string, now time.Time) string {
	name := uuid.NewString()
	if ext != "" {
		name += "." + ext
	}
	return path.Join(prefix, now.UTC().Format("2006/01/02"), name)
}
