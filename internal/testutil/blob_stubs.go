// Package testutil provides shared test doubles and fixtures for backend tests.
package testutil

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
	"sync"
)

// BlobStoreStub is an in-memory blob store that records every put and delete.
type BlobStoreStub struct {
	mu      sync.Mutex
	items   map[string][]byte
	deleted []string
	// PutErr, when set, is returned from every Put.
	PutErr error
}

// NewBlobStoreStub creates an empty in-memory blob store.
func NewBlobStoreStub() *BlobStoreStub {
	return &BlobStoreStub{items: make(map[string][]byte)}
}

// Put stores data and returns its public URL.
func (s *BlobStoreStub) Put(_ context.Context, data []byte, name string) (string, error) {
	if s.PutErr != nil {
		return "", s.PutErr
	}
	if name == "" {
		return "", errors.New("empty blob name")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	url := "/uploads/avatars/" + name
	s.items[url] = append([]byte(nil), data...)
	return url, nil
}

// Delete removes a stored blob, reporting whether it existed.
func (s *BlobStoreStub) Delete(_ context.Context, url string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, url)
	if _, ok := s.items[url]; !ok {
		return false
	}
	delete(s.items, url)
	return true
}

// Has reports whether url is currently stored.
func (s *BlobStoreStub) Has(url string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.items[url]
	return ok
}

// Get returns the stored bytes for url.
func (s *BlobStoreStub) Get(url string) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items[url]
}

// Len returns the number of stored blobs.
func (s *BlobStoreStub) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Deleted returns every URL passed to Delete, in order.
func (s *BlobStoreStub) Deleted() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.deleted...)
}

type fatalHelper interface {
	Helper()
	Fatalf(string, ...any)
}

// TinyPNG returns an in-memory PNG byte slice with the requested dimensions.
func TinyPNG(t fatalHelper, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 200, A: 255})
	buf := bytes.NewBuffer(nil)
	if err := png.Encode(buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

// TinyJPEG returns an in-memory JPEG byte slice with the requested dimensions.
func TinyJPEG(t fatalHelper, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	buf := bytes.NewBuffer(nil)
	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: 80}); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	return buf.Bytes()
}

// IsAvatarURL reports whether url looks like a stored avatar address.
func IsAvatarURL(url string) bool {
	return strings.HasPrefix(url, "/uploads/avatars/avatar_")
}
