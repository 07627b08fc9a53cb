package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"handbook/internal/middleware"
)

// LocalStore writes avatars under <root>/avatars and serves them from
// AvatarURLPrefix.
type LocalStore struct {
	root string
}

// NewLocalStore returns a store rooted at dir ("uploads" when empty).
func NewLocalStore(dir string) *LocalStore {
	if strings.TrimSpace(dir) == "" {
		dir = "uploads"
	}
	return &LocalStore{root: dir}
}

// Root is the directory served at /uploads.
func (s *LocalStore) Root() string {
	return s.root
}

func (s *LocalStore) Put(_ context.Context, data []byte, name string) (string, error) {
	name, err := cleanName(name)
	if err != nil {
		return "", err
	}

	dir := filepath.Join(s.root, "avatars")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create avatar directory: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("write avatar: %w", err)
	}
	return AvatarURLPrefix + name, nil
}

// Delete removes a file previously returned by Put. URLs outside the avatar
// prefix are left alone.
func (s *LocalStore) Delete(ctx context.Context, url string) bool {
	if !strings.HasPrefix(url, AvatarURLPrefix) {
		return false
	}
	name, err := cleanName(strings.TrimPrefix(url, AvatarURLPrefix))
	if err != nil {
		return false
	}

	if err := os.Remove(filepath.Join(s.root, "avatars", name)); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			middleware.Logger.WarnContext(ctx, "Failed to delete avatar",
				slog.String("url", url),
				slog.String("error", err.Error()),
			)
		}
		return false
	}
	return true
}

func cleanName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." {
		return "", fmt.Errorf("invalid blob name %q", name)
	}
	return name, nil
}
