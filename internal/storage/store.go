// Package storage abstracts the backing file store used for uploaded
// media. The local-disk backend is the default; an S3 backend can be
// selected through configuration.
package storage

import (
	"context"
	"fmt"
	"io"

	"vision-server/internal/config"
)

// Store persists uploaded files under opaque keys.
type Store interface {
	// Save writes the content under the given key and returns the
	// stored path (local path or object key, depending on the backend).
	Save(ctx context.Context, key string, content io.Reader, contentType string) (string, error)
	// Delete removes the stored file. Deleting a missing key is not an
	// error; the delete paths tolerate already-gone files.
	Delete(ctx context.Context, key string) error
	// Exists reports whether the key currently resolves to a file.
	Exists(ctx context.Context, key string) (bool, error)
}

// NewFromConfig selects the backend based on the storage driver setting.
func NewFromConfig(ctx context.Context, cfg config.Storage) (Store, error) {
	switch cfg.Driver {
	case "", "local":
		return NewLocalStore(cfg.LocalDir)
	case "s3":
		return NewS3Store(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unknown storage driver: %q", cfg.Driver)
	}
}
