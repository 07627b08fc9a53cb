// Package storage holds the blob stores that keep uploaded avatars.
package storage

import (
	"context"
	"strings"

	"handbook/internal/config"
	"handbook/internal/middleware"
)

// AvatarURLPrefix is where locally stored avatars are served from.
const AvatarURLPrefix = "/uploads/avatars/"

// BlobStore saves and removes named blobs addressed by URL.
type BlobStore interface {
	// Put stores data under name and returns the URL clients fetch it from.
	Put(ctx context.Context, data []byte, name string) (string, error)
	// Delete removes the blob behind url, reporting whether anything was removed.
	Delete(ctx context.Context, url string) bool
}

// New picks the blob store from configuration: the remote object store with
// a local fallback when STORAGE_URL and STORAGE_KEY are set, local disk otherwise.
func New(cfg *config.Config) BlobStore {
	local := NewLocalStore(cfg.UploadDir)
	if strings.TrimSpace(cfg.StorageURL) == "" || strings.TrimSpace(cfg.StorageKey) == "" {
		middleware.Logger.Info("Using local avatar storage")
		return local
	}

	middleware.Logger.Info("Using object storage for avatars with local fallback")
	return &FallbackStore{
		Primary:  NewObjectStore(cfg.StorageURL, cfg.StorageKey, cfg.StorageBucket),
		Fallback: local,
	}
}
