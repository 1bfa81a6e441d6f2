package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
)

var ErrNotExist = errors.New("blob does not exist")

// StorageInterface defines the interface for blob storage backends.
// Keys are slash separated and relative, e.g. "exports/20240520T100000Z/tools.csv".
type StorageInterface interface {
	// Put writes the object, replacing any existing one.
	Put(ctx context.Context, key string, r io.Reader, contentType string) error

	// Get opens the object for reading. Missing objects return ErrNotExist.
	Get(ctx context.Context, key string) (io.ReadCloser, error)

	// Exists checks if an object exists and returns its size
	Exists(ctx context.Context, key string) (exists bool, size int64, err error)

	Delete(ctx context.Context, key string) error

	// Location describes where keys end up, for logging.
	Location() string
}

// New builds the backend selected by cfg.Type.
func New(ctx context.Context, cfg Config) (StorageInterface, error) {
	switch cfg.Type {
	case "", TypeFS:
		return NewFileStorage(cfg.Dir)
	case TypeS3:
		return NewS3Storage(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Type)
	}
}

func cleanKey(key string) (string, error) {
	cleaned := path.Clean("/" + strings.TrimSpace(key))
	cleaned = strings.TrimPrefix(cleaned, "/")
	if cleaned == "" || cleaned == "." {
		return "", fmt.Errorf("invalid storage key %q", key)
	}
	return cleaned, nil
}
