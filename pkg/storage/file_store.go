package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// FileStore saves recordings to disk under a base directory.
type FileStore struct {
	basePath string
}

// NewFileStore creates the base directory if missing.
func NewFileStore(basePath string) (*FileStore, error) {
	if strings.TrimSpace(basePath) == "" {
		return nil, fmt.Errorf("storage base path is required")
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &FileStore{basePath: basePath}, nil
}

// Save writes the recording and returns its public relative path.
func (f *FileStore) Save(_ context.Context, name string, r io.Reader, _ int64, _ string) (string, error) {
	name = safeFilename(name)
	target := filepath.Join(f.basePath, name)
	out, err := os.Create(target)
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}
	defer out.Close()
	if _, err := io.Copy(out, r); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	return path.Join(PublicAudioPrefix, name), nil
}

// Open streams a stored recording back.
func (f *FileStore) Open(name string) (io.ReadCloser, error) {
	return os.Open(filepath.Join(f.basePath, safeFilename(name)))
}

func safeFilename(name string) string {
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, string(os.PathSeparator), "_")
	name = strings.TrimSpace(name)
	if name == "" {
		return "audio"
	}
	return name
}
