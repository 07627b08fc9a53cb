// Package bootstrap wires the storage backend, Redis and seed data for the
// server and the command-line tools.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"handbook/internal/cache"
	"handbook/internal/config"
	"handbook/internal/database"
	"handbook/internal/middleware"
	"handbook/internal/seed"

	"github.com/redis/go-redis/v9"
)

// Options control runtime initialization behavior.
type Options struct {
	// ApplySchema forces the schema script to run regardless of backend.
	ApplySchema bool
	// Seed loads reference data after the schema is in place.
	Seed bool
}

// Runtime holds the shared connections of a running process.
type Runtime struct {
	Store database.Store
	Redis *redis.Client
}

// Close releases the connections.
func (r *Runtime) Close() error {
	_ = cache.Close()
	if r.Store != nil {
		return r.Store.Close()
	}
	return nil
}

// InitRuntime connects to the database and Redis, applies the schema when
// the backend calls for it and optionally seeds reference data.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (*Runtime, error) {
	store, err := database.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	if opts.ApplySchema || database.ShouldAutoApply(cfg, store.Dialect()) {
		if _, err := database.ApplySchema(ctx, store, database.SchemaOptions{}); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("schema initialization failed: %w", err)
		}
	} else {
		middleware.Logger.InfoContext(ctx, "Skipping schema initialization",
			slog.String("backend", string(store.Dialect())))
	}

	// Redis is optional; the client stays nil when it is unreachable.
	cache.InitRedis(cfg.RedisURL)

	if opts.Seed || cfg.SeedOnStart {
		if err := seed.Seed(ctx, store, seed.Options{}); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("failed to seed reference data: %w", err)
		}
	}

	return &Runtime{Store: store, Redis: cache.GetClient()}, nil
}
