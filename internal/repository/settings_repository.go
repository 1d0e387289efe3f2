package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
)

const maintenanceKey = "maintenance_mode"

const maintenanceCacheKey = "registrar:settings:maintenance"

// SettingsRepository stores institution-wide flags in Postgres with a
// short-lived Redis cache in front. The maintenance flag is read on
// every registrar request, so cache reads absorb the hot path while the
// database stays the source of truth.
type SettingsRepository struct {
	db       *sqlx.DB
	cache    *redis.Client
	cacheTTL time.Duration
}

// NewSettingsRepository constructs the repository. cache may be nil, in
// which case every read hits the database.
func NewSettingsRepository(db *sqlx.DB, cache *redis.Client, cacheTTL time.Duration) *SettingsRepository {
	return &SettingsRepository{db: db, cache: cache, cacheTTL: cacheTTL}
}

// MaintenanceMode reports whether the registrar is locked for maintenance.
func (r *SettingsRepository) MaintenanceMode(ctx context.Context) (bool, error) {
	if r.cache != nil {
		cached, err := r.cache.Get(ctx, maintenanceCacheKey).Result()
		if err == nil {
			return cached == "1", nil
		}
		if !errors.Is(err, redis.Nil) {
			// Cache failures fall through to the database.
			return r.maintenanceFromDB(ctx)
		}
	}

	enabled, err := r.maintenanceFromDB(ctx)
	if err != nil {
		return false, err
	}
	if r.cache != nil {
		value := "0"
		if enabled {
			value = "1"
		}
		_ = r.cache.Set(ctx, maintenanceCacheKey, value, r.cacheTTL).Err()
	}
	return enabled, nil
}

// SetMaintenanceMode flips the flag and invalidates the cached copy.
func (r *SettingsRepository) SetMaintenanceMode(ctx context.Context, enabled bool) error {
	value := "false"
	if enabled {
		value = "true"
	}
	const query = `INSERT INTO settings (key, value, updated_at) VALUES ($1, $2, $3)
        ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.ExecContext(ctx, query, maintenanceKey, value, time.Now().UTC()); err != nil {
		return fmt.Errorf("set maintenance mode: %w", err)
	}
	if r.cache != nil {
		_ = r.cache.Del(ctx, maintenanceCacheKey).Err()
	}
	return nil
}

func (r *SettingsRepository) maintenanceFromDB(ctx context.Context) (bool, error) {
	var value string
	err := r.db.GetContext(ctx, &value, `SELECT value FROM settings WHERE key = $1`, maintenanceKey)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read maintenance mode: %w", err)
	}
	return value == "true", nil
}
