package storage

import (
	"context"
	"log/slog"

	"handbook/internal/middleware"
)

// FallbackStore writes to Primary and falls back to Fallback when Primary fails.
type FallbackStore struct {
	Primary  BlobStore
	Fallback BlobStore
}

func (s *FallbackStore) Put(ctx context.Context, data []byte, name string) (string, error) {
	url, err := s.Primary.Put(ctx, data, name)
	if err == nil {
		return url, nil
	}
	middleware.Logger.WarnContext(ctx, "Primary blob store failed, using fallback",
		slog.String("name", name),
		slog.String("error", err.Error()),
	)
	return s.Fallback.Put(ctx, data, name)
}

// Delete tries both stores; a blob lives in whichever accepted the Put.
func (s *FallbackStore) Delete(ctx context.Context, url string) bool {
	if s.Primary.Delete(ctx, url) {
		return true
	}
	return s.Fallback.Delete(ctx, url)
}
