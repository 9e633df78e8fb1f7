package blobstore

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
)

// FilesystemStore writes images under a root directory and serves them
// back through a configured public base URL — the "local filesystem
// writes" variant the image-generation gateway's storage contract allows.
type FilesystemStore struct {
	root    string
	baseURL string
}

func NewFilesystemStore(root, baseURL string) (*FilesystemStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("blobstore: failed to create root %s: %w", root, err)
	}
	return &FilesystemStore{root: root, baseURL: baseURL}, nil
}

func (s *FilesystemStore) Put(_ context.Context, jobID string, index int, obj Object) (string, error) {
	ext := extensionFor(obj.Mime)
	name := fmt.Sprintf("%s-%d%s", jobID, index, ext)
	path := filepath.Join(s.root, name)

	if err := os.WriteFile(path, obj.Data, 0o644); err != nil {
		return "", fmt.Errorf("blobstore: failed to write %s: %w", path, err)
	}

	return fmt.Sprintf("%s/%s", s.baseURL, name), nil
}

func extensionFor(mimeType string) string {
	exts, err := mime.ExtensionsByType(mimeType)
	if err != nil || len(exts) == 0 {
		return ".bin"
	}
	return exts[0]
}
