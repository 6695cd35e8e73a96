package blob

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Store persists uploaded objects and returns a URL the object can be fetched from.
// Uploads are independent of any database write; an object whose owning record
// update later fails is simply orphaned.
type Store interface {
	Put(ctx context.Context, key string, contentType string, r io.Reader) (string, error)
}

// LocalStore writes objects under a base directory and serves them over HTTP.
// It is the dev-friendly default (pair with a reverse proxy or the built-in
// Handler); swap in an S3-compatible Store for production.
type LocalStore struct {
	baseDir string
	baseURL string
}

func NewLocalStore(baseDir, baseURL string) (*LocalStore, error) {
	baseDir = strings.TrimSpace(baseDir)
	if baseDir == "" {
		baseDir = "/var/lib/bookable/blobs"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create blob dir: %w", err)
	}
	return &LocalStore{
		baseDir: baseDir,
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
	}, nil
}

func (s *LocalStore) Put(ctx context.Context, key string, contentType string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	key = sanitizeKey(key)
	if key == "" {
		return "", fmt.Errorf("empty blob key")
	}

	dst := filepath.Join(s.baseDir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return "", err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return "", err
	}
	return s.baseURL + "/" + key, nil
}

// Handler serves stored objects; mount it at the path component of the base URL.
func (s *LocalStore) Handler() http.Handler {
	return http.FileServer(http.Dir(s.baseDir))
}

func sanitizeKey(key string) string {
	key = strings.TrimLeft(strings.TrimSpace(key), "/")
	cleaned := path.Clean(key)
	if cleaned == "." || strings.HasPrefix(cleaned, "..") {
		return ""
	}
	return cleaned
}
