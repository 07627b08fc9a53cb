package database

import (
	"context"
	"time"

	"handbook/internal/config"
)

// Open selects the backend once from configuration: postgres when
// DATABASE_URL is set, the embedded sqlite file otherwise.
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	if cfg.UsesPostgres() {
		return OpenPostgres(ctx, cfg.DatabaseURL, PoolOptions{
			MaxOpenConns:    cfg.DBMaxOpenConns,
			MaxIdleConns:    cfg.DBMaxIdleConns,
			ConnMaxLifetime: time.Duration(cfg.DBConnMaxLifetimeMinutes) * time.Minute,
		})
	}
	return OpenSQLite(ctx, cfg.DBPath)
}
