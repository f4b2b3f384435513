package storage

import (
	"context"
	"errors"
	"testing"
)

func TestFileStoreRoundTrip(t *testing.T) {
	store, err := NewFileStore(t.TempDir(), "http://localhost:8080/static/")
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	ctx := context.Background()

	key, err := store.Write(ctx, "/videos/../videos/clip.mp4", []byte("bytes"))
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if key != "videos/clip.mp4" {
		t.Fatalf("key = %q, want videos/clip.mp4", key)
	}
	url := store.URL(key)
	if url != "http://localhost:8080/static/videos/clip.mp4" {
		t.Fatalf("URL = %q", url)
	}
	back, ok := store.KeyFromURL(url)
	if !ok || back != key {
		t.Fatalf("KeyFromURL = %q, %v", back, ok)
	}

	data, err := store.Read(ctx, key)
	if err != nil || string(data) != "bytes" {
		t.Fatalf("Read = %q, %v", data, err)
	}
	if err := store.Delete(ctx, key); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Read(ctx, key); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Read after delete err = %v, want ErrNotFound", err)
	}
	if err := store.Delete(ctx, key); err != nil {
		t.Fatalf("Delete of missing key should be a no-op, got %v", err)
	}
}

func TestSanitizeKeyRejectsTraversal(t *testing.T) {
	tests := []string{"", "   ", "../secret", "..", "a/../../b"}
	for _, key := range tests {
		if _, err := sanitizeKey(key); err == nil {
			t.Fatalf("sanitizeKey(%q) expected error", key)
		}
	}
}

func TestKeyFromURLIgnoresForeignLocators(t *testing.T) {
	store, err := NewFileStore(t.TempDir(), "http://localhost:8080/static")
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	for _, locator := range []string{"data:image/png;base64,AAAA", "https://cdn.example.com/static/a.mp4"} {
		if _, ok := store.KeyFromURL(locator); ok {
			t.Fatalf("KeyFromURL(%q) should not match", locator)
		}
	}
}
