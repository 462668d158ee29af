package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// FileStorage implements Storage on the local filesystem. Blobs live as plain
// files under a single root directory; serving them is left to a static file
// server (or reverse proxy) pointed at the same directory.
type FileStorage struct {
	root       string
	publicBase string
}

// NewFileStorage ensures the root directory exists and returns a FileStorage.
func NewFileStorage(root, publicBase string) (*FileStorage, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir %q: %w", root, err)
	}
	return &FileStorage{
		root:       root,
		publicBase: strings.TrimRight(publicBase, "/"),
	}, nil
}

// Upload writes reader to a file named key under the storage root.
func (s *FileStorage) Upload(_ context.Context, key string, reader io.Reader, _ int64, _ string) error {
	f, err := os.Create(filepath.Join(s.root, key))
	if err != nil {
		return fmt.Errorf("create file %q: %w", key, err)
	}
	defer f.Close()

	if _, err := io.Copy(f, reader); err != nil {
		return fmt.Errorf("write file %q: %w", key, err)
	}
	return nil
}

// Delete removes the file named key from the storage root.
func (s *FileStorage) Delete(_ context.Context, key string) error {
	if err := os.Remove(filepath.Join(s.root, key)); err != nil {
		return fmt.Errorf("remove file %q: %w", key, err)
	}
	return nil
}

// PublicURL returns the browser-accessible URL for the given key.
func (s *FileStorage) PublicURL(key string) string {
	return s.publicBase + "/" + key
}
