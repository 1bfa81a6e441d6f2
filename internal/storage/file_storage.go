package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"toolshare-backend/internal/logger"
)

// FileStorage keeps objects as plain files under a root directory.
type FileStorage struct {
	root string
}

// NewFileStorage creates the root directory if needed.
func NewFileStorage(root string) (*FileStorage, error) {
	if root == "" {
		root = "exports"
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &FileStorage{root: root}, nil
}

func (f *FileStorage) Location() string {
	return f.root
}

func (f *FileStorage) path(key string) (string, error) {
	cleaned, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	return filepath.Join(f.root, filepath.FromSlash(cleaned)), nil
}

func (f *FileStorage) Put(ctx context.Context, key string, r io.Reader, contentType string) error {
	fullPath, err := f.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return fmt.Errorf("failed to create directories: %w", err)
	}

	// write to a temp file first so readers never see a partial object
	tmp, err := os.CreateTemp(filepath.Dir(fullPath), ".put-*")
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := os.Rename(tmp.Name(), fullPath); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write file: %w", err)
	}
	logger.Debug("Blob written", "driver", TypeFS, "key", key)
	return nil
}

func (f *FileStorage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	fullPath, err := f.path(key)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(fullPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", key, ErrNotExist)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return file, nil
}

func (f *FileStorage) Exists(ctx context.Context, key string) (bool, int64, error) {
	fullPath, err := f.path(key)
	if err != nil {
		return false, 0, err
	}
	info, err := os.Stat(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, 0, nil
		}
		return false, 0, err
	}
	return true, info.Size(), nil
}

func (f *FileStorage) Delete(ctx context.Context, key string) error {
	fullPath, err := f.path(key)
	if err != nil {
		return err
	}
	err = os.Remove(fullPath)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}
