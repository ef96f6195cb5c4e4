// Package ingestion runs batches of submitted violation records through
// reconciliation, location resolution and persistence.
package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	geomodels "github.com/modullar/violations-tracker-backend-sub003/internal/geocoding/models"
	geoservice "github.com/modullar/violations-tracker-backend-sub003/internal/geocoding/service"
	"github.com/modullar/violations-tracker-backend-sub003/internal/ingestion/events"
	"github.com/modullar/violations-tracker-backend-sub003/internal/ingestion/metrics"
	"github.com/modullar/violations-tracker-backend-sub003/internal/reconcile/matcher"
	"github.com/modullar/violations-tracker-backend-sub003/internal/reconcile/models"
	dErrors "github.com/modullar/violations-tracker-backend-sub003/pkg/domain-errors"
	"github.com/modullar/violations-tracker-backend-sub003/pkg/requestcontext"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Resolver,Reconciler,RecordStore

const (
	DefaultConcurrency   = 8
	DefaultRecordTimeout = 30 * time.Second
)

// Resolver turns a location into coordinates.
type Resolver interface {
	Resolve(ctx context.Context, placeName, adminDivision string, lang geomodels.Language) (*geomodels.Resolution, error)
}

// Reconciler decides what to do with a new record.
type Reconciler interface {
	ReconcileWithStore(ctx context.Context, record models.ViolationRecord) models.Decision
}

// RecordStore persists records.
type RecordStore interface {
	Create(ctx context.Context, record *models.ViolationRecord) error
	Update(ctx context.Context, record *models.ViolationRecord) error
}

// ResolutionSummary describes how a record's location was resolved.
type ResolutionSummary struct {
	Coordinates    geomodels.Coordinates `json:"coordinates"`
	Quality        float64               `json:"quality"`
	Strategy       string                `json:"strategy"`
	FromCache      bool                  `json:"from_cache"`
	FromPremiumAPI bool                  `json:"from_premium_api"`
	APICalls       int                   `json:"api_calls"`
}

// ResolutionFailure reports a location that could not be resolved. The record
// is still stored, without coordinates.
type ResolutionFailure struct {
	Code     dErrors.Code `json:"code"`
	Message  string       `json:"message"`
	APICalls int          `json:"api_calls"`
}

// RecordOutcome is the result for one record of a batch, at the same index.
type RecordOutcome struct {
	Index           int                     `json:"index"`
	Action          models.Action           `json:"action,omitempty"`
	RecordID        uuid.UUID               `json:"record_id,omitzero"`
	Relationship    models.RelationshipType `json:"relationship,omitempty"`
	Reason          string                  `json:"reason,omitempty"`
	Resolution      *ResolutionSummary      `json:"resolution,omitempty"`
	ResolutionError *ResolutionFailure      `json:"resolution_error,omitempty"`
	Error           string                  `json:"error,omitempty"`
}

func (o RecordOutcome) Failed() bool {
	return o.Error != ""
}

// BatchResult holds one outcome per submitted record plus totals.
type BatchResult struct {
	Outcomes []RecordOutcome `json:"outcomes"`
	Created  int             `json:"created"`
	Updated  int             `json:"updated"`
	Skipped  int             `json:"skipped"`
	Failed   int             `json:"failed"`
}

type Service struct {
	resolver      Resolver
	reconciler    Reconciler
	records       RecordStore
	publisher     events.Publisher
	concurrency   int
	recordTimeout time.Duration
	windowDays    int
	locks         *candidateLocks
	metrics       *metrics.Metrics
	logger        *slog.Logger
	tracer        trace.Tracer
}

type Option func(*Service)

func WithPublisher(p events.Publisher) Option {
	return func(s *Service) {
		if p != nil {
			s.publisher = p
		}
	}
}

// WithConcurrency bounds how many records are processed at once.
func WithConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithRecordTimeout bounds the work on a single record.
func WithRecordTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.recordTimeout = d
		}
	}
}

// WithCandidateWindow sets how many days either side of a record's date its
// duplicates may fall. It must match the reconciler's matcher window, since
// records whose windows overlap are processed one at a time.
func WithCandidateWindow(days int) Option {
	return func(s *Service) {
		if days >= 0 {
			s.windowDays = days
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

func New(resolver Resolver, reconciler Reconciler, records RecordStore, opts ...Option) (*Service, error) {
	if resolver == nil {
		return nil, fmt.Errorf("resolver is required")
	}
	if reconciler == nil {
		return nil, fmt.Errorf("reconciler is required")
	}
	if records == nil {
		return nil, fmt.Errorf("record store is required")
	}
	s := &Service{
		resolver:      resolver,
		reconciler:    reconciler,
		records:       records,
		publisher:     events.NopPublisher{},
		concurrency:   DefaultConcurrency,
		recordTimeout: DefaultRecordTimeout,
		windowDays:    matcher.DefaultCandidateWindowDays,
		logger:        slog.Default(),
		tracer:        otel.Tracer("github.com/modullar/violations-tracker-backend-sub003/internal/ingestion"),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.locks = newCandidateLocks(s.windowDays)
	return s, nil
}

// ProcessBatch handles every record independently: each runs under its own
// timeout, detached from the caller's cancellation, and a failure is
// reported in that record's outcome without touching the others. Records of
// the same type with nearby dates are reconciled and stored one at a time,
// so a later one sees what an earlier one wrote.
// actor fills CreatedBy/UpdatedBy where the records leave them empty.
func (s *Service) ProcessBatch(ctx context.Context, records []models.ViolationRecord, actor string) BatchResult {
	ctx, span := s.tracer.Start(ctx, "ingestion.ProcessBatch", trace.WithAttributes(
		attribute.Int("ingestion.batch_size", len(records)),
	))
	defer span.End()
	defer s.metrics.ObserveBatch(len(records), time.Now())

	outcomes := make([]RecordOutcome, len(records))
	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i := range records {
		g.Go(func() error {
			outcomes[i] = s.processRecord(ctx, i, records[i], actor)
			return nil
		})
	}
	_ = g.Wait()

	result := BatchResult{Outcomes: outcomes}
	for _, o := range outcomes {
		switch {
		case o.Failed():
			result.Failed++
		case o.Action == models.ActionCreate:
			result.Created++
		case o.Action == models.ActionUpdate:
			result.Updated++
		case o.Action == models.ActionSkip:
			result.Skipped++
		}
	}
	span.SetAttributes(
		attribute.Int("ingestion.created", result.Created),
		attribute.Int("ingestion.updated", result.Updated),
		attribute.Int("ingestion.skipped", result.Skipped),
		attribute.Int("ingestion.failed", result.Failed),
	)
	s.logger.InfoContext(ctx, "batch processed",
		"records", len(records),
		"created", result.Created,
		"updated", result.Updated,
		"skipped", result.Skipped,
		"failed", result.Failed,
	)
	return result
}

func (s *Service) processRecord(parent context.Context, index int, record models.ViolationRecord, actor string) (out RecordOutcome) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), s.recordTimeout)
	defer cancel()

	out = RecordOutcome{Index: index}
	defer func() {
		if r := recover(); r != nil {
			s.logger.ErrorContext(ctx, "panic while processing record", "index", index, "panic", r)
			out.Error = fmt.Sprintf("internal error: %v", r)
		}
		outcome := string(out.Action)
		if out.Failed() {
			outcome = "failed"
		}
		s.metrics.IncrementOutcome(outcome)
	}()

	if actor != "" {
		if record.CreatedBy == "" {
			record.CreatedBy = actor
		}
		if record.UpdatedBy == "" {
			record.UpdatedBy = actor
		}
	}

	decision, stored, ok := s.reconcileAndStore(ctx, record, &out)
	if !ok {
		return out
	}

	event := events.RecordEvent{
		EventID:     uuid.New(),
		Action:      decision.Action,
		RecordID:    stored.ID,
		Type:        stored.Type,
		Date:        stored.Date,
		Coordinates: stored.Location.Coordinates,
		Actor:       actor,
		RequestID:   requestcontext.RequestID(ctx),
		OccurredAt:  requestcontext.Now(ctx),
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.metrics.IncrementPublishFailure()
		s.logger.WarnContext(ctx, "failed to publish record event",
			"record_id", stored.ID,
			"error", err,
		)
	}
	return out
}

// reconcileAndStore holds the candidate lock for record from the store lookup
// to the write. ok is false when there is nothing to publish: the record was
// skipped or failed.
func (s *Service) reconcileAndStore(ctx context.Context, record models.ViolationRecord, out *RecordOutcome) (decision models.Decision, stored models.ViolationRecord, ok bool) {
	unlock, err := s.locks.lock(ctx, record)
	if err != nil {
		out.Error = err.Error()
		return decision, stored, false
	}
	defer unlock()

	decision = s.reconciler.ReconcileWithStore(ctx, record)
	out.Action = decision.Action
	out.Reason = decision.Reason
	if decision.Match != nil {
		out.Relationship = decision.Match.Relationship
	}
	if decision.Action == models.ActionSkip {
		out.RecordID = decision.TargetID
		return decision, stored, false
	}

	stored = decision.Record
	s.resolveLocation(ctx, &stored, out)

	if decision.Action == models.ActionUpdate {
		stored.ID = decision.TargetID
		err = s.records.Update(ctx, &stored)
	} else {
		err = s.records.Create(ctx, &stored)
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to persist record",
			"index", out.Index,
			"action", decision.Action,
			"error", err,
		)
		out.Error = fmt.Sprintf("persist record: %v", err)
		return decision, stored, false
	}
	out.RecordID = stored.ID
	return decision, stored, true
}

// resolveLocation fills missing coordinates. A failed resolution is recorded
// on out and the record is kept without coordinates.
func (s *Service) resolveLocation(ctx context.Context, record *models.ViolationRecord, out *RecordOutcome) {
	loc := record.Location
	if loc.Coordinates != nil || loc.Name.IsEmpty() {
		return
	}

	name, admin := loc.Name.En, loc.AdministrativeDivision.En
	if name == "" {
		name, admin = loc.Name.Ar, loc.AdministrativeDivision.Ar
	}

	res, err := s.resolver.Resolve(ctx, name, admin, "")
	if err != nil {
		code := dErrors.CodeOf(err)
		if code == dErrors.CodeInternal && errors.Is(err, context.DeadlineExceeded) {
			code = dErrors.CodeTimeout
		}
		failure := &ResolutionFailure{Code: code, Message: err.Error()}
		var rerr *geoservice.ResolutionError
		if errors.As(err, &rerr) {
			failure.APICalls = rerr.APICalls
		}
		out.ResolutionError = failure
		s.logger.WarnContext(ctx, "location not resolved",
			"index", out.Index,
			"place_name", name,
			"error", err,
		)
		return
	}

	coords := res.Coordinates
	record.Location.Coordinates = &coords
	out.Resolution = &ResolutionSummary{
		Coordinates:    res.Coordinates,
		Quality:        res.Quality,
		Strategy:       res.Strategy,
		FromCache:      res.FromCache,
		FromPremiumAPI: res.FromPremiumAPI,
		APICalls:       res.APICalls,
	}
}
