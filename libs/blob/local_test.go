package blob

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLocalStorePut(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(dir, "http://localhost:8082/static/")
	if err != nil {
		t.Fatalf("NewLocalStore failed: %v", err)
	}

	url, err := store.Put(context.Background(), "logos/biz-1.png", "image/png", strings.NewReader("png-bytes"))
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if url != "http://localhost:8082/static/logos/biz-1.png" {
		t.Fatalf("unexpected url %q", url)
	}

	data, err := os.ReadFile(filepath.Join(dir, "logos", "biz-1.png"))
	if err != nil {
		t.Fatalf("reading stored object: %v", err)
	}
	if string(data) != "png-bytes" {
		t.Fatalf("unexpected object contents %q", data)
	}
}

func TestLocalStoreRejectsTraversal(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), "http://localhost:8082/static")
	if err != nil {
		t.Fatalf("NewLocalStore failed: %v", err)
	}
	if _, err := store.Put(context.Background(), "../escape.txt", "text/plain", strings.NewReader("x")); err == nil {
		t.Fatal("expected traversal key to be rejected")
	}
}
