package etl

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/costnav/costnav/internal/storage"
)

// FetchToTemp copies an object to a local temp file so the readers can
// seek (Parquet needs random access). The temp file keeps the object's
// extension so format detection still works on it. The cleanup function
// removes the file.
func FetchToTemp(ctx context.Context, store storage.ObjectStore, key string) (string, func(), error) {
	reader, err := store.Get(ctx, key)
	if err != nil {
		return "", nil, fmt.Errorf("fetch object %q: %w", key, err)
	}
	defer func() { _ = reader.Close() }()

	tmp, err := os.CreateTemp("", "costnav-etl-*"+filepath.Ext(key))
	if err != nil {
		return "", nil, fmt.Errorf("create temp file: %w", err)
	}

	if _, err := io.Copy(tmp, reader); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return "", nil, fmt.Errorf("copy object %q: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return "", nil, fmt.Errorf("close temp file: %w", err)
	}

	cleanup := func() { _ = os.Remove(tmp.Name()) }
	return tmp.Name(), cleanup, nil
}
