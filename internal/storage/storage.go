// Package storage defines the object store contract the ETL reads from.
package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrObjectNotFound reports a key with no object behind it. Implementations
// translate their native not-found errors to this one.
var ErrObjectNotFound = errors.New("object not found")

// ObjectInfo describes a stored object without fetching its body.
type ObjectInfo struct {
	Key          string
	Size         int64
	ETag         string
	LastModified time.Time
}

// ObjectStore is the read-side contract for fetching ETL source files.
// Uploads happen out of band through the bucket's own tooling.
type ObjectStore interface {
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Stat(ctx context.Context, key string) (ObjectInfo, error)
}
