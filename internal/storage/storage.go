package storage

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// ErrNotFound is returned when the named object does not exist.
var ErrNotFound = errors.New("storage: object not found")

// ObjectInfo is metadata about a stored object.
type ObjectInfo struct {
	Name        string    `json:"name"`
	Size        uint64    `json:"size"`
	ContentType string    `json:"content_type"`
	ModTime     time.Time `json:"mod_time"`
}

// ObjectStore stores uploaded files (payment receipts, product images) and
// serves them back by name.
type ObjectStore interface {
	Put(ctx context.Context, name string, data []byte, contentType string) (*ObjectInfo, error)
	Get(ctx context.Context, name string) ([]byte, *ObjectInfo, error)
	Delete(ctx context.Context, name string) error
	GetInfo(ctx context.Context, name string) (*ObjectInfo, error)
	List(ctx context.Context) ([]*ObjectInfo, error)
}
