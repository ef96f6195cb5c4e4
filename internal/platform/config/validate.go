package config

import (
	"fmt"
	"strings"
)

// Validate performs range checks on the loaded configuration.
// Load calls it automatically.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("log.format must be json or text (got %q)", c.Log.Format)
	}

	if err := c.Geocoding.validate(c); err != nil {
		return fmt.Errorf("geocoding: %w", err)
	}
	if err := c.Region.validate(); err != nil {
		return fmt.Errorf("region: %w", err)
	}
	if err := c.Reconcile.validate(); err != nil {
		return fmt.Errorf("reconcile: %w", err)
	}
	if err := c.Ingestion.validate(); err != nil {
		return fmt.Errorf("ingestion: %w", err)
	}
	if len(c.Kafka.Brokers) > 0 && c.Kafka.Topic == "" {
		return fmt.Errorf("kafka.topic is required when brokers are set")
	}
	return nil
}

func (g *GeocodingConfig) validate(c *Config) error {
	if g.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be > 0 (got %v)", g.RequestTimeout)
	}
	if g.PremiumDailyLimit < 0 {
		return fmt.Errorf("premium_daily_limit must be >= 0 (got %d)", g.PremiumDailyLimit)
	}
	if g.BreakerFailureThreshold <= 0 || g.BreakerSuccessThreshold <= 0 {
		return fmt.Errorf("breaker thresholds must be > 0")
	}
	switch g.CacheBackend {
	case CacheBackendAuto, CacheBackendMemory:
	case CacheBackendPostgres:
		if c.Database.DSN == "" {
			return fmt.Errorf("cache_backend postgres requires database.dsn")
		}
	case CacheBackendRedis:
		if c.Redis.URL == "" {
			return fmt.Errorf("cache_backend redis requires redis.url")
		}
	default:
		return fmt.Errorf("unknown cache_backend %q", g.CacheBackend)
	}
	return nil
}

// ResolvedCacheBackend turns auto into a concrete backend.
func (c *Config) ResolvedCacheBackend() string {
	if c.Geocoding.CacheBackend != CacheBackendAuto {
		return c.Geocoding.CacheBackend
	}
	switch {
	case c.Database.DSN != "":
		return CacheBackendPostgres
	case c.Redis.URL != "":
		return CacheBackendRedis
	default:
		return CacheBackendMemory
	}
}

func (r *RegionConfig) validate() error {
	if r.MinLatitude >= r.MaxLatitude || r.MinLongitude >= r.MaxLongitude {
		return fmt.Errorf("bounding box is empty")
	}
	if r.MinLatitude < -90 || r.MaxLatitude > 90 || r.MinLongitude < -180 || r.MaxLongitude > 180 {
		return fmt.Errorf("bounding box out of range")
	}
	if r.CountryName == "" {
		return fmt.Errorf("country_name is required")
	}
	return nil
}

func (r *ReconcileConfig) validate() error {
	if r.ProximityMeters <= 0 {
		return fmt.Errorf("proximity_meters must be > 0 (got %v)", r.ProximityMeters)
	}
	if r.SimilarityThreshold <= 0 || r.SimilarityThreshold > 1 {
		return fmt.Errorf("similarity_threshold must be in (0, 1] (got %v)", r.SimilarityThreshold)
	}
	if r.CandidateWindowDays < 0 {
		return fmt.Errorf("candidate_window_days must be >= 0 (got %d)", r.CandidateWindowDays)
	}
	if r.CandidateLimit <= 0 {
		return fmt.Errorf("candidate_limit must be > 0 (got %d)", r.CandidateLimit)
	}
	return nil
}

func (i *IngestionConfig) validate() error {
	if i.Concurrency <= 0 {
		return fmt.Errorf("concurrency must be > 0 (got %d)", i.Concurrency)
	}
	if i.RecordTimeout <= 0 {
		return fmt.Errorf("record_timeout must be > 0 (got %v)", i.RecordTimeout)
	}
	if i.MaxBatchSize <= 0 {
		return fmt.Errorf("max_batch_size must be > 0 (got %d)", i.MaxBatchSize)
	}
	return nil
}
