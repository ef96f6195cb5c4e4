package config

import (
	"time"
)

// Config is the root application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Log       LogConfig       `yaml:"log"`
	Geocoding GeocodingConfig `yaml:"geocoding"`
	Region    RegionConfig    `yaml:"region"`
	Reconcile ReconcileConfig `yaml:"reconcile"`
	Ingestion IngestionConfig `yaml:"ingestion"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr              string        `yaml:"addr"                env:"SERVER_ADDR"                env-default:":8080"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout" env:"SERVER_READ_HEADER_TIMEOUT" env-default:"5s"`
	WriteTimeout      time.Duration `yaml:"write_timeout"       env:"SERVER_WRITE_TIMEOUT"       env-default:"120s"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"    env:"SERVER_SHUTDOWN_TIMEOUT"    env-default:"15s"`
}

// DatabaseConfig holds PostgreSQL settings. An empty DSN selects in-memory
// stores.
type DatabaseConfig struct {
	DSN             string        `yaml:"dsn"                env:"DATABASE_DSN"`
	MaxConns        int32         `yaml:"max_conns"          env:"DATABASE_MAX_CONNS"          env-default:"20"`
	MinConns        int32         `yaml:"min_conns"          env:"DATABASE_MIN_CONNS"          env-default:"2"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"  env:"DATABASE_MAX_CONN_LIFETIME"  env-default:"1h"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time" env:"DATABASE_MAX_CONN_IDLE_TIME" env-default:"30m"`
	AutoMigrate     bool          `yaml:"auto_migrate"       env:"DATABASE_AUTO_MIGRATE"       env-default:"true"`
}

// RedisConfig holds Redis settings. An empty URL disables Redis.
type RedisConfig struct {
	URL          string        `yaml:"url"            env:"REDIS_URL"`
	PoolSize     int           `yaml:"pool_size"      env:"REDIS_POOL_SIZE"      env-default:"10"`
	MinIdleConns int           `yaml:"min_idle_conns" env:"REDIS_MIN_IDLE_CONNS" env-default:"2"`
	DialTimeout  time.Duration `yaml:"dial_timeout"   env:"REDIS_DIAL_TIMEOUT"   env-default:"5s"`
	ReadTimeout  time.Duration `yaml:"read_timeout"   env:"REDIS_READ_TIMEOUT"   env-default:"3s"`
	WriteTimeout time.Duration `yaml:"write_timeout"  env:"REDIS_WRITE_TIMEOUT"  env-default:"3s"`
}

// KafkaConfig holds event publishing settings. No brokers disables
// publishing.
type KafkaConfig struct {
	Brokers           []string `yaml:"brokers"            env:"KAFKA_BROKERS"            env-separator:","`
	Topic             string   `yaml:"topic"              env:"KAFKA_TOPIC"              env-default:"violations.reconciled"`
	ClientID          string   `yaml:"client_id"          env:"KAFKA_CLIENT_ID"          env-default:"violations-tracker"`
	Partitions        int32    `yaml:"partitions"         env:"KAFKA_PARTITIONS"         env-default:"3"`
	ReplicationFactor int16    `yaml:"replication_factor" env:"KAFKA_REPLICATION_FACTOR" env-default:"1"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json"`
}

// Cache backends for geocode results.
const (
	CacheBackendAuto     = "auto"
	CacheBackendMemory   = "memory"
	CacheBackendPostgres = "postgres"
	CacheBackendRedis    = "redis"
)

// GeocodingConfig holds backend and budget settings.
type GeocodingConfig struct {
	NominatimURL       string        `yaml:"nominatim_url"        env:"GEOCODING_NOMINATIM_URL"        env-default:"https://nominatim.openstreetmap.org"`
	NominatimUserAgent string        `yaml:"nominatim_user_agent" env:"GEOCODING_NOMINATIM_USER_AGENT" env-default:"violations-tracker-geocoder/1.0"`
	GooglePlacesURL    string        `yaml:"google_places_url"    env:"GEOCODING_GOOGLE_PLACES_URL"    env-default:"https://maps.googleapis.com/maps/api/place"`
	GooglePlacesAPIKey string        `yaml:"google_places_api_key" env:"GEOCODING_GOOGLE_PLACES_API_KEY"`
	RequestTimeout     time.Duration `yaml:"request_timeout"      env:"GEOCODING_REQUEST_TIMEOUT"      env-default:"8s"`
	PremiumDailyLimit  int           `yaml:"premium_daily_limit"  env:"GEOCODING_PREMIUM_DAILY_LIMIT"  env-default:"1000"`
	// KeywordsPath overrides the built-in classifier keyword sets.
	KeywordsPath string `yaml:"keywords_path" env:"GEOCODING_KEYWORDS_PATH"`
	// CacheBackend is auto, memory, postgres or redis. auto prefers postgres,
	// then redis, then memory, depending on what is configured.
	CacheBackend            string        `yaml:"cache_backend"             env:"GEOCODING_CACHE_BACKEND"             env-default:"auto"`
	RedisCacheTTL           time.Duration `yaml:"redis_cache_ttl"           env:"GEOCODING_REDIS_CACHE_TTL"           env-default:"0s"`
	BreakerFailureThreshold int           `yaml:"breaker_failure_threshold" env:"GEOCODING_BREAKER_FAILURE_THRESHOLD" env-default:"5"`
	BreakerSuccessThreshold int           `yaml:"breaker_success_threshold" env:"GEOCODING_BREAKER_SUCCESS_THRESHOLD" env-default:"3"`
}

// PremiumEnabled reports whether a premium API key is configured.
func (g GeocodingConfig) PremiumEnabled() bool {
	return g.GooglePlacesAPIKey != ""
}

// RegionConfig is the target region every resolution must fall into.
type RegionConfig struct {
	CountryName   string  `yaml:"country_name"    env:"REGION_COUNTRY_NAME"    env-default:"Syria"`
	CountryNameAr string  `yaml:"country_name_ar" env:"REGION_COUNTRY_NAME_AR" env-default:"سوريا"`
	CountryCode   string  `yaml:"country_code"    env:"REGION_COUNTRY_CODE"    env-default:"sy"`
	MinLatitude   float64 `yaml:"min_latitude"    env:"REGION_MIN_LATITUDE"    env-default:"32.0"`
	MaxLatitude   float64 `yaml:"max_latitude"    env:"REGION_MAX_LATITUDE"    env-default:"37.5"`
	MinLongitude  float64 `yaml:"min_longitude"   env:"REGION_MIN_LONGITUDE"   env-default:"35.5"`
	MaxLongitude  float64 `yaml:"max_longitude"   env:"REGION_MAX_LONGITUDE"   env-default:"42.5"`
}

// ReconcileConfig tunes duplicate detection.
type ReconcileConfig struct {
	ProximityMeters     float64 `yaml:"proximity_meters"      env:"RECONCILE_PROXIMITY_METERS"      env-default:"100"`
	SimilarityThreshold float64 `yaml:"similarity_threshold"  env:"RECONCILE_SIMILARITY_THRESHOLD"  env-default:"0.75"`
	CandidateWindowDays int     `yaml:"candidate_window_days" env:"RECONCILE_CANDIDATE_WINDOW_DAYS" env-default:"3"`
	CandidateLimit      int     `yaml:"candidate_limit"       env:"RECONCILE_CANDIDATE_LIMIT"       env-default:"5"`
}

// IngestionConfig tunes batch processing.
type IngestionConfig struct {
	Concurrency   int           `yaml:"concurrency"    env:"INGESTION_CONCURRENCY"    env-default:"8"`
	RecordTimeout time.Duration `yaml:"record_timeout" env:"INGESTION_RECORD_TIMEOUT" env-default:"30s"`
	MaxBatchSize  int           `yaml:"max_batch_size" env:"INGESTION_MAX_BATCH_SIZE" env-default:"500"`
}
