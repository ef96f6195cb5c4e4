// Package service resolves free-text location strings into coordinates.
//
// Resolve checks the cache first, then walks an ordered list of strategies
// (premium, bulk with admin division, bulk with the name only) and stops at
// the first result that lies inside the configured region. Every accepted
// result is written back to the cache.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/modullar/violations-tracker-backend-sub003/internal/geocoding/budget"
	"github.com/modullar/violations-tracker-backend-sub003/internal/geocoding/cache"
	"github.com/modullar/violations-tracker-backend-sub003/internal/geocoding/classifier"
	"github.com/modullar/violations-tracker-backend-sub003/internal/geocoding/metrics"
	"github.com/modullar/violations-tracker-backend-sub003/internal/geocoding/models"
	"github.com/modullar/violations-tracker-backend-sub003/internal/geocoding/providers"
	dErrors "github.com/modullar/violations-tracker-backend-sub003/pkg/domain-errors"
	"github.com/modullar/violations-tracker-backend-sub003/pkg/platform/circuit"
	"github.com/modullar/violations-tracker-backend-sub003/pkg/platform/sentinel"
	"github.com/modullar/violations-tracker-backend-sub003/pkg/requestcontext"
)

//go:generate mockgen -source=resolver.go -destination=mocks/mocks.go -package=mocks CacheStore

// Strategy names, as reported in Resolution.Strategy and metrics.
const (
	StrategyCache         = "cache"
	StrategyPremium       = "premium"
	StrategyBulkWithAdmin = "bulk_with_admin"
	StrategyBulkNameOnly  = "bulk_name_only"
)

const (
	// DefaultRequestTimeout bounds each backend round trip.
	DefaultRequestTimeout = 8 * time.Second

	// A premium lookup is a place search followed by a detail fetch.
	premiumCallsPerLookup = 2
)

var (
	errSkipped     = errors.New("strategy not applicable")
	errNoResult    = errors.New("no result")
	errOutOfRegion = errors.New("all results outside the target region")
)

// CacheStore persists resolutions keyed by cache.Key.
type CacheStore interface {
	// FindByKey returns sentinel.ErrNotFound on a miss.
	FindByKey(ctx context.Context, key string) (*models.CacheEntry, error)
	RecordHit(ctx context.Context, key string) error
	Upsert(ctx context.Context, entry *models.CacheEntry) error
}

// Resolver is safe for concurrent use.
type Resolver struct {
	bulk           providers.BulkGeocoder
	premium        providers.PremiumGeocoder
	cache          CacheStore
	budget         *budget.Tracker
	breaker        *circuit.Breaker
	region         models.Region
	requestTimeout time.Duration
	metrics        *metrics.Metrics
	logger         *slog.Logger
	tracer         trace.Tracer
	strategies     []strategy
}

type strategy struct {
	name   string
	source models.Source
	run    func(ctx context.Context, q query, calls *int) (*models.Place, error)
}

type query struct {
	models.SearchTerms
	usePremium bool
}

type Option func(*Resolver)

// WithPremium enables the premium strategy.
func WithPremium(premium providers.PremiumGeocoder) Option {
	return func(r *Resolver) {
		r.premium = premium
	}
}

// WithBreaker replaces the default premium circuit breaker.
func WithBreaker(b *circuit.Breaker) Option {
	return func(r *Resolver) {
		if b != nil {
			r.breaker = b
		}
	}
}

func WithRequestTimeout(d time.Duration) Option {
	return func(r *Resolver) {
		if d > 0 {
			r.requestTimeout = d
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Resolver) {
		r.metrics = m
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(r *Resolver) {
		if tracer != nil {
			r.tracer = tracer
		}
	}
}

// New creates a Resolver. bulk, cache and tracker are required; the premium
// backend is optional (WithPremium).
func New(bulk providers.BulkGeocoder, cacheStore CacheStore, tracker *budget.Tracker, region models.Region, opts ...Option) (*Resolver, error) {
	if bulk == nil {
		return nil, fmt.Errorf("bulk geocoder is required")
	}
	if cacheStore == nil {
		return nil, fmt.Errorf("cache store is required")
	}
	if tracker == nil {
		return nil, fmt.Errorf("budget tracker is required")
	}

	r := &Resolver{
		bulk:           bulk,
		cache:          cacheStore,
		budget:         tracker,
		region:         region,
		requestTimeout: DefaultRequestTimeout,
		logger:         slog.Default(),
		tracer:         otel.Tracer("github.com/modullar/violations-tracker-backend-sub003/internal/geocoding/service"),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.breaker == nil {
		r.breaker = circuit.New(StrategyPremium)
	}

	r.strategies = []strategy{
		{name: StrategyPremium, source: models.SourcePremiumAPI, run: r.premiumLookup},
		{name: StrategyBulkWithAdmin, source: models.SourceBulkAPI, run: r.bulkWithAdmin},
		{name: StrategyBulkNameOnly, source: models.SourceBulkAPI, run: r.bulkNameOnly},
	}
	return r, nil
}

// Resolve turns a location string into coordinates. An empty lang is
// detected from placeName.
//
// Failures of individual strategies are never returned directly: when every
// strategy fails the error is a *ResolutionError that records each attempt
// and the backend calls spent.
func (r *Resolver) Resolve(ctx context.Context, placeName, adminDivision string, lang models.Language) (*models.Resolution, error) {
	placeName = strings.TrimSpace(placeName)
	adminDivision = strings.TrimSpace(adminDivision)
	if placeName == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "place name is required")
	}
	if lang == "" {
		lang = classifier.DetectLanguage(placeName)
	} else if !lang.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("unsupported language %q", lang))
	}

	ctx, span := r.tracer.Start(ctx, "geocoding.Resolve", trace.WithAttributes(
		attribute.String("geocoding.language", string(lang)),
		attribute.Bool("geocoding.has_admin_division", adminDivision != ""),
	))
	defer span.End()
	defer r.metrics.ObserveResolve(time.Now())

	terms := models.SearchTerms{PlaceName: placeName, AdminDivision: adminDivision, Language: lang}
	key := cache.KeyFor(terms)

	if res := r.fromCache(ctx, key); res != nil {
		span.SetAttributes(attribute.String("geocoding.strategy", StrategyCache))
		r.metrics.IncrementResolution(StrategyCache)
		return res, nil
	}

	q := query{SearchTerms: terms, usePremium: r.premium != nil && r.budget.ShouldUsePremium(placeName, adminDivision, lang)}

	var calls int
	var attempts []StrategyAttempt
	for _, s := range r.strategies {
		if err := ctx.Err(); err != nil {
			attempts = append(attempts, StrategyAttempt{Strategy: s.name, Err: err})
			break
		}
		place, err := s.run(ctx, q, &calls)
		if errors.Is(err, errSkipped) {
			continue
		}
		if err != nil {
			attempts = append(attempts, StrategyAttempt{Strategy: s.name, Err: err})
			r.logger.DebugContext(ctx, "geocoding strategy failed",
				"strategy", s.name,
				"place_name", placeName,
				"error", err,
			)
			continue
		}

		place.Quality = Quality(*place, placeName, r.region)
		r.writeThrough(ctx, key, terms, *place, s.source)

		span.SetAttributes(
			attribute.String("geocoding.strategy", s.name),
			attribute.Int("geocoding.api_calls", calls),
		)
		r.metrics.IncrementResolution(s.name)
		r.metrics.SetPremiumBudgetUsed(r.budget.Usage().Used)
		r.logger.InfoContext(ctx, "location resolved",
			"strategy", s.name,
			"place_name", placeName,
			"api_calls", calls,
			"quality", place.Quality,
		)
		return &models.Resolution{
			Place:          *place,
			Strategy:       s.name,
			FromPremiumAPI: s.source == models.SourcePremiumAPI,
			APICalls:       calls,
		}, nil
	}

	rerr := newResolutionError(terms, calls, attempts)
	span.RecordError(rerr)
	span.SetStatus(codes.Error, string(rerr.Code()))
	r.metrics.IncrementResolution("failed")
	r.metrics.SetPremiumBudgetUsed(r.budget.Usage().Used)
	r.logger.WarnContext(ctx, "location could not be resolved",
		"place_name", placeName,
		"admin_division", adminDivision,
		"api_calls", calls,
		"error", rerr,
	)
	return nil, rerr
}

// fromCache returns nil on a miss. Store failures are treated as misses.
func (r *Resolver) fromCache(ctx context.Context, key string) *models.Resolution {
	callCtx, cancel := context.WithTimeout(ctx, r.requestTimeout)
	defer cancel()

	entry, err := r.cache.FindByKey(callCtx, key)
	if err != nil {
		if !errors.Is(err, sentinel.ErrNotFound) {
			r.logger.WarnContext(ctx, "geocode cache lookup failed, treating as miss",
				"cache_key", key,
				"error", err,
			)
		}
		return nil
	}
	if err := r.cache.RecordHit(callCtx, key); err != nil {
		r.logger.WarnContext(ctx, "failed to record geocode cache hit",
			"cache_key", key,
			"error", err,
		)
	}
	return &models.Resolution{
		Place:          entry.Result,
		Strategy:       StrategyCache,
		FromCache:      true,
		FromPremiumAPI: entry.Source == models.SourcePremiumAPI,
	}
}

func (r *Resolver) writeThrough(ctx context.Context, key string, terms models.SearchTerms, place models.Place, source models.Source) {
	callCtx, cancel := context.WithTimeout(ctx, r.requestTimeout)
	defer cancel()

	entry := &models.CacheEntry{
		Key:         key,
		SearchTerms: terms,
		Result:      place,
		Source:      source,
		CreatedAt:   requestcontext.Now(ctx),
	}
	if err := r.cache.Upsert(callCtx, entry); err != nil {
		r.logger.WarnContext(ctx, "failed to cache resolution",
			"cache_key", key,
			"error", err,
		)
	}
}

// premiumLookup reserves the full two-call budget up front and refunds what
// it did not spend.
func (r *Resolver) premiumLookup(ctx context.Context, q query, calls *int) (*models.Place, error) {
	if !q.usePremium {
		return nil, errSkipped
	}
	if !r.budget.Reserve(premiumCallsPerLookup) {
		return nil, errSkipped
	}
	made := 0
	defer func() {
		r.budget.Release(premiumCallsPerLookup - made)
	}()
	if !r.breaker.Allow() {
		r.logger.DebugContext(ctx, "premium geocoder circuit open, skipping", "place_name", q.PlaceName)
		return nil, errSkipped
	}

	text := joinQuery(q.PlaceName, q.AdminDivision, r.region.CountryFor(q.Language))

	callCtx, cancel := context.WithTimeout(ctx, r.requestTimeout)
	placeID, err := r.premium.FindPlace(callCtx, text, r.region.Bounds, q.Language)
	cancel()
	made++
	*calls++
	if err != nil {
		r.recordPremium(ctx, err)
		return nil, err
	}
	if placeID == "" {
		r.recordPremium(ctx, nil)
		return nil, errNoResult
	}

	callCtx, cancel = context.WithTimeout(ctx, r.requestTimeout)
	details, err := r.premium.PlaceDetails(callCtx, placeID, q.Language)
	cancel()
	made++
	*calls++
	r.recordPremium(ctx, err)
	if err != nil {
		return nil, err
	}
	if !r.region.Bounds.Contains(details.Coordinates) {
		r.logger.DebugContext(ctx, "discarding premium result outside region",
			"place_name", q.PlaceName,
			"place_id", placeID,
		)
		return nil, errOutOfRegion
	}
	place := details.Place
	return &place, nil
}

func (r *Resolver) recordPremium(ctx context.Context, err error) {
	r.metrics.IncrementBackendCall(r.premium.ID(), outcomeOf(err))
	if err != nil && providers.IsTransport(err) {
		if _, change := r.breaker.RecordFailure(); change.Opened {
			r.logger.WarnContext(ctx, "premium geocoder circuit opened", "backend", r.premium.ID(), "error", err)
		}
		return
	}
	if _, change := r.breaker.RecordSuccess(); change.Closed {
		r.logger.InfoContext(ctx, "premium geocoder circuit closed", "backend", r.premium.ID())
	}
}

func (r *Resolver) bulkWithAdmin(ctx context.Context, q query, calls *int) (*models.Place, error) {
	if q.AdminDivision == "" {
		return nil, errSkipped
	}
	return r.bulkLookup(ctx, joinQuery(q.PlaceName, q.AdminDivision, r.region.CountryFor(q.Language)), q.Language, calls)
}

func (r *Resolver) bulkNameOnly(ctx context.Context, q query, calls *int) (*models.Place, error) {
	return r.bulkLookup(ctx, joinQuery(q.PlaceName, r.region.CountryFor(q.Language)), q.Language, calls)
}

// bulkLookup returns the first result inside the region.
func (r *Resolver) bulkLookup(ctx context.Context, text string, lang models.Language, calls *int) (*models.Place, error) {
	callCtx, cancel := context.WithTimeout(ctx, r.requestTimeout)
	defer cancel()

	*calls++
	places, err := r.bulk.Geocode(callCtx, text, lang)
	r.metrics.IncrementBackendCall(r.bulk.ID(), outcomeOf(err))
	if err != nil {
		return nil, err
	}
	if len(places) == 0 {
		return nil, errNoResult
	}
	for i := range places {
		if r.region.Bounds.Contains(places[i].Coordinates) {
			place := places[i]
			return &place, nil
		}
	}
	r.logger.DebugContext(ctx, "discarding bulk results outside region", "query", text, "results", len(places))
	return nil, errOutOfRegion
}

func joinQuery(parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, ", ")
}

func outcomeOf(err error) string {
	if err == nil {
		return "ok"
	}
	return string(providers.GetCategory(err))
}
