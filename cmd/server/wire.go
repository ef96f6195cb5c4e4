package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/modullar/violations-tracker-backend-sub003/internal/geocoding/budget"
	"github.com/modullar/violations-tracker-backend-sub003/internal/geocoding/classifier"
	geometrics "github.com/modullar/violations-tracker-backend-sub003/internal/geocoding/metrics"
	geomodels "github.com/modullar/violations-tracker-backend-sub003/internal/geocoding/models"
	"github.com/modullar/violations-tracker-backend-sub003/internal/geocoding/providers/googleplaces"
	"github.com/modullar/violations-tracker-backend-sub003/internal/geocoding/providers/nominatim"
	geoservice "github.com/modullar/violations-tracker-backend-sub003/internal/geocoding/service"
	geostore "github.com/modullar/violations-tracker-backend-sub003/internal/geocoding/store"
	"github.com/modullar/violations-tracker-backend-sub003/internal/ingestion"
	"github.com/modullar/violations-tracker-backend-sub003/internal/ingestion/events"
	ingestmetrics "github.com/modullar/violations-tracker-backend-sub003/internal/ingestion/metrics"
	"github.com/modullar/violations-tracker-backend-sub003/internal/platform/config"
	"github.com/modullar/violations-tracker-backend-sub003/internal/platform/postgres"
	platformredis "github.com/modullar/violations-tracker-backend-sub003/internal/platform/redis"
	"github.com/modullar/violations-tracker-backend-sub003/internal/reconcile/matcher"
	recmetrics "github.com/modullar/violations-tracker-backend-sub003/internal/reconcile/metrics"
	recservice "github.com/modullar/violations-tracker-backend-sub003/internal/reconcile/service"
	recstore "github.com/modullar/violations-tracker-backend-sub003/internal/reconcile/store"
	"github.com/modullar/violations-tracker-backend-sub003/pkg/platform/circuit"
)

// app holds the wired pipeline and every resource that must be released on
// shutdown.
type app struct {
	handler       *ingestion.Handler
	recordBackend string
	cacheBackend  string

	closers []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

type recordStore interface {
	ingestion.RecordStore
	recservice.CandidateFinder
}

func buildApp(ctx context.Context, cfg *config.Config, log *slog.Logger) (_ *app, err error) {
	a := &app{}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	var (
		db   *sql.DB
		pool *pgxpool.Pool
	)
	if cfg.Database.DSN != "" {
		db, err = postgres.OpenDB(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { db.Close() })
		if cfg.Database.AutoMigrate {
			applied, err := postgres.Migrate(ctx, db)
			if err != nil {
				return nil, err
			}
			log.Info("database migrated", "applied", applied)
		}
		pool, err = postgres.NewPool(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, pool.Close)
	}

	redisClient, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		return nil, err
	}
	if redisClient != nil {
		a.closers = append(a.closers, func() { _ = redisClient.Close() })
	}

	geoMetrics := geometrics.New()
	a.cacheBackend = cfg.ResolvedCacheBackend()
	var cacheStore geoservice.CacheStore
	switch a.cacheBackend {
	case config.CacheBackendPostgres:
		if db == nil {
			return nil, fmt.Errorf("cache backend postgres needs DATABASE_DSN")
		}
		cacheStore = geostore.NewPostgresCache(db, geoMetrics)
	case config.CacheBackendRedis:
		if redisClient == nil {
			return nil, fmt.Errorf("cache backend redis needs REDIS_URL")
		}
		cacheStore = geostore.NewRedisCache(redisClient.Client, cfg.Geocoding.RedisCacheTTL, geoMetrics)
	default:
		cacheStore = geostore.NewInMemoryCache()
	}

	resolver, err := buildResolver(cfg, cacheStore, geoMetrics, log)
	if err != nil {
		return nil, err
	}

	var records recordStore = recstore.NewInMemoryStore()
	a.recordBackend = "memory"
	if pool != nil {
		records = recstore.NewPostgresStore(pool)
		a.recordBackend = "postgres"
	}

	reconciler := recservice.New(records,
		recservice.WithMatcher(matcher.New(
			matcher.WithProximity(cfg.Reconcile.ProximityMeters),
			matcher.WithSimilarityThreshold(cfg.Reconcile.SimilarityThreshold),
			matcher.WithCandidateWindow(cfg.Reconcile.CandidateWindowDays),
			matcher.WithCandidateLimit(cfg.Reconcile.CandidateLimit),
		)),
		recservice.WithMetrics(recmetrics.New()),
		recservice.WithLogger(log),
	)

	var publisher events.Publisher = events.NopPublisher{}
	if len(cfg.Kafka.Brokers) > 0 {
		kp, err := events.NewKafkaPublisher(ctx, cfg.Kafka, log)
		if err != nil {
			return nil, err
		}
		publisher = kp
		a.closers = append(a.closers, kp.Close)
	}

	svc, err := ingestion.New(resolver, reconciler, records,
		ingestion.WithPublisher(publisher),
		ingestion.WithConcurrency(cfg.Ingestion.Concurrency),
		ingestion.WithRecordTimeout(cfg.Ingestion.RecordTimeout),
		ingestion.WithCandidateWindow(cfg.Reconcile.CandidateWindowDays),
		ingestion.WithMetrics(ingestmetrics.New()),
		ingestion.WithLogger(log),
	)
	if err != nil {
		return nil, err
	}
	var checks []ingestion.HandlerOption
	if pool != nil {
		checks = append(checks, ingestion.WithHealthCheck("postgres", pool.Ping))
	}
	if redisClient != nil {
		checks = append(checks, ingestion.WithHealthCheck("redis", redisClient.Health))
	}
	a.handler = ingestion.NewHandler(svc, cfg.Ingestion.MaxBatchSize, log, checks...)
	return a, nil
}

func buildResolver(cfg *config.Config, cacheStore geoservice.CacheStore, m *geometrics.Metrics, log *slog.Logger) (*geoservice.Resolver, error) {
	cls := classifier.NewDefault()
	if cfg.Geocoding.KeywordsPath != "" {
		kw, err := classifier.LoadKeywords(cfg.Geocoding.KeywordsPath)
		if err != nil {
			return nil, err
		}
		cls = classifier.New(kw)
	}

	tracker := budget.New(cls,
		budget.WithLimit(cfg.Geocoding.PremiumDailyLimit),
		budget.WithLogger(log),
	)

	bulk := nominatim.NewProvider(nominatim.Config{
		BaseURL:      cfg.Geocoding.NominatimURL,
		UserAgent:    cfg.Geocoding.NominatimUserAgent,
		CountryCodes: cfg.Region.CountryCode,
		Timeout:      cfg.Geocoding.RequestTimeout,
	}, log)

	region := geomodels.Region{
		CountryName:   cfg.Region.CountryName,
		CountryNameAr: cfg.Region.CountryNameAr,
		CountryCode:   cfg.Region.CountryCode,
		Bounds: geomodels.BoundingBox{
			MinLatitude:  cfg.Region.MinLatitude,
			MaxLatitude:  cfg.Region.MaxLatitude,
			MinLongitude: cfg.Region.MinLongitude,
			MaxLongitude: cfg.Region.MaxLongitude,
		},
	}

	opts := []geoservice.Option{
		geoservice.WithBreaker(circuit.New("google_places",
			circuit.WithFailureThreshold(cfg.Geocoding.BreakerFailureThreshold),
			circuit.WithSuccessThreshold(cfg.Geocoding.BreakerSuccessThreshold),
		)),
		geoservice.WithRequestTimeout(cfg.Geocoding.RequestTimeout),
		geoservice.WithMetrics(m),
		geoservice.WithLogger(log),
	}
	if cfg.Geocoding.PremiumEnabled() {
		opts = append(opts, geoservice.WithPremium(googleplaces.NewProvider(googleplaces.Config{
			BaseURL: cfg.Geocoding.GooglePlacesURL,
			APIKey:  cfg.Geocoding.GooglePlacesAPIKey,
			Timeout: cfg.Geocoding.RequestTimeout,
		}, log)))
	}
	return geoservice.New(bulk, cacheStore, tracker, region, opts...)
}
