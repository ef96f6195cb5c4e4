package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/modullar/violations-tracker-backend-sub003/internal/geocoding/metrics"
	"github.com/modullar/violations-tracker-backend-sub003/internal/geocoding/models"
	"github.com/modullar/violations-tracker-backend-sub003/pkg/platform/sentinel"
	"github.com/modullar/violations-tracker-backend-sub003/pkg/requestcontext"
)

const postgresStoreLabel = "postgres"

// PostgresCache persists geocode cache entries in the geocode_cache table.
type PostgresCache struct {
	db      *sql.DB
	metrics *metrics.Metrics
}

// NewPostgresCache constructs a PostgreSQL-backed geocode cache.
func NewPostgresCache(db *sql.DB, metrics *metrics.Metrics) *PostgresCache {
	return &PostgresCache{
		db:      db,
		metrics: metrics,
	}
}

func (c *PostgresCache) FindByKey(ctx context.Context, key string) (*models.CacheEntry, error) {
	start := time.Now()
	defer c.metrics.ObserveCacheLookup(postgresStoreLabel, start)

	query := `
		SELECT cache_key, place_name, admin_division, language,
			latitude, longitude, formatted_address, country, city, state, street, quality,
			source, hit_count, created_at, last_hit_at
		FROM geocode_cache
		WHERE cache_key = $1
	`
	var (
		entry     models.CacheEntry
		lastHitAt sql.NullTime
	)
	err := c.db.QueryRowContext(ctx, query, key).Scan(
		&entry.Key,
		&entry.SearchTerms.PlaceName,
		&entry.SearchTerms.AdminDivision,
		&entry.SearchTerms.Language,
		&entry.Result.Coordinates.Latitude,
		&entry.Result.Coordinates.Longitude,
		&entry.Result.FormattedAddress,
		&entry.Result.Country,
		&entry.Result.City,
		&entry.Result.State,
		&entry.Result.Street,
		&entry.Result.Quality,
		&entry.Source,
		&entry.HitCount,
		&entry.CreatedAt,
		&lastHitAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.metrics.IncrementCacheLookup(postgresStoreLabel, "miss")
			return nil, sentinel.ErrNotFound
		}
		c.metrics.IncrementCacheLookup(postgresStoreLabel, "error")
		return nil, fmt.Errorf("find geocode cache: %w", classify(err))
	}
	if lastHitAt.Valid {
		t := lastHitAt.Time
		entry.LastHitAt = &t
	}
	c.metrics.IncrementCacheLookup(postgresStoreLabel, "hit")
	return &entry, nil
}

func (c *PostgresCache) RecordHit(ctx context.Context, key string) error {
	query := `
		UPDATE geocode_cache
		SET hit_count = hit_count + 1, last_hit_at = $2
		WHERE cache_key = $1
	`
	res, err := c.db.ExecContext(ctx, query, key, requestcontext.Now(ctx))
	if err != nil {
		return fmt.Errorf("record geocode cache hit: %w", classify(err))
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("record geocode cache hit: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// Upsert inserts the entry or refreshes its result. hit_count, created_at and
// last_hit_at survive a conflict.
func (c *PostgresCache) Upsert(ctx context.Context, entry *models.CacheEntry) error {
	if entry == nil {
		return fmt.Errorf("cache entry is required")
	}
	query := `
		INSERT INTO geocode_cache (
			cache_key, place_name, admin_division, language,
			latitude, longitude, formatted_address, country, city, state, street, quality,
			source, hit_count, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, 0, $14)
		ON CONFLICT (cache_key) DO UPDATE SET
			latitude = EXCLUDED.latitude,
			longitude = EXCLUDED.longitude,
			formatted_address = EXCLUDED.formatted_address,
			country = EXCLUDED.country,
			city = EXCLUDED.city,
			state = EXCLUDED.state,
			street = EXCLUDED.street,
			quality = EXCLUDED.quality,
			source = EXCLUDED.source
	`
	_, err := c.db.ExecContext(ctx, query,
		entry.Key,
		entry.SearchTerms.PlaceName,
		entry.SearchTerms.AdminDivision,
		string(entry.SearchTerms.Language),
		entry.Result.Coordinates.Latitude,
		entry.Result.Coordinates.Longitude,
		entry.Result.FormattedAddress,
		entry.Result.Country,
		entry.Result.City,
		entry.Result.State,
		entry.Result.Street,
		entry.Result.Quality,
		string(entry.Source),
		requestcontext.Now(ctx),
	)
	if err != nil {
		return fmt.Errorf("upsert geocode cache: %w", classify(err))
	}
	return nil
}

// classify marks connection-level failures (SQLSTATE class 08, 57P0x) as
// sentinel.ErrUnavailable while keeping the driver error in the chain.
func classify(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch {
		case pqErr.Code.Class() == "08", pqErr.Code == "57P01", pqErr.Code == "57P03":
			return errors.Join(sentinel.ErrUnavailable, err)
		}
		return err
	}
	if errors.Is(err, sql.ErrConnDone) {
		return errors.Join(sentinel.ErrUnavailable, err)
	}
	return err
}
