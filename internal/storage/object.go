package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"time"

	"handbook/internal/middleware"
)

// ObjectStore talks to a Supabase-compatible storage REST API.
type ObjectStore struct {
	baseURL string
	key     string
	bucket  string
	client  *http.Client
}

// NewObjectStore builds a store for bucket on the storage service at baseURL.
func NewObjectStore(baseURL, key, bucket string) *ObjectStore {
	if bucket == "" {
		bucket = "avatars"
	}
	return &ObjectStore{
		baseURL: strings.TrimRight(baseURL, "/"),
		key:     key,
		bucket:  bucket,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

func (s *ObjectStore) objectURL(name string) string {
	return fmt.Sprintf("%s/storage/v1/object/%s/%s", s.baseURL, s.bucket, name)
}

func (s *ObjectStore) publicPrefix() string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/", s.baseURL, s.bucket)
}

func (s *ObjectStore) Put(ctx context.Context, data []byte, name string) (string, error) {
	name, err := cleanName(name)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.objectURL(name), bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+s.key)
	req.Header.Set("Content-Type", contentTypeFor(name))
	req.Header.Set("x-upsert", "true")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", name, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("upload %s: status %d: %s", name, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return s.publicPrefix() + name, nil
}

// Delete removes an object previously returned by Put.
func (s *ObjectStore) Delete(ctx context.Context, url string) bool {
	prefix := s.publicPrefix()
	if !strings.HasPrefix(url, prefix) {
		return false
	}
	name, err := cleanName(strings.TrimPrefix(url, prefix))
	if err != nil {
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, s.objectURL(name), nil)
	if err != nil {
		return false
	}
	req.Header.Set("Authorization", "Bearer "+s.key)

	resp, err := s.client.Do(req)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "Object storage delete failed", slog.String("error", err.Error()))
		return false
	}
	defer func() { _ = resp.Body.Close() }()
	return resp.StatusCode < http.StatusMultipleChoices
}

func contentTypeFor(name string) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}
