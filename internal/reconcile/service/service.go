// Package service decides whether a new violation record is created, merged
// into an existing one or skipped as an identical duplicate.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/google/uuid"

	"github.com/modullar/violations-tracker-backend-sub003/internal/reconcile/matcher"
	"github.com/modullar/violations-tracker-backend-sub003/internal/reconcile/merge"
	"github.com/modullar/violations-tracker-backend-sub003/internal/reconcile/metrics"
	"github.com/modullar/violations-tracker-backend-sub003/internal/reconcile/models"
)

// CandidateFinder returns stored records matching q, at most q.Limit.
type CandidateFinder interface {
	FindCandidates(ctx context.Context, q models.CandidateQuery) ([]models.ViolationRecord, error)
}

type Service struct {
	matcher  *matcher.Matcher
	finder   CandidateFinder
	strategy merge.Strategy
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

type Option func(*Service)

func WithMatcher(m *matcher.Matcher) Option {
	return func(s *Service) {
		if m != nil {
			s.matcher = m
		}
	}
}

// WithStrategy replaces merge.DefaultStrategy.
func WithStrategy(strategy merge.Strategy) Option {
	return func(s *Service) {
		s.strategy = strategy
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

// New creates a Service. finder may be nil when only Reconcile is used.
func New(finder CandidateFinder, opts ...Option) *Service {
	s := &Service{
		matcher:  matcher.New(),
		finder:   finder,
		strategy: merge.DefaultStrategy(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Reconcile compares newRecord with every candidate and decides:
//   - skip when a candidate is identical
//   - update with the merged record when a candidate is complementary
//   - create otherwise
//
// An identical candidate beats a complementary one; among equals the higher
// similarity wins, then the nearer location. Reconcile performs no I/O.
func (s *Service) Reconcile(newRecord models.ViolationRecord, candidates []models.ViolationRecord) models.Decision {
	var (
		best      *models.ViolationRecord
		bestMatch models.MatchResult
	)
	for i := range candidates {
		c := &candidates[i]
		if c.ID == newRecord.ID && c.ID != uuid.Nil {
			continue
		}
		res := s.matcher.Compare(*c, newRecord)
		if !res.IsDuplicate {
			continue
		}
		if best == nil || better(res, bestMatch) {
			best, bestMatch = c, res
		}
	}

	var d models.Decision
	switch {
	case best == nil:
		d = models.Decision{
			Action: models.ActionCreate,
			Record: newRecord.Clone(),
			Reason: fmt.Sprintf("no duplicate among %d candidates", len(candidates)),
		}
	case bestMatch.Relationship == models.RelationshipIdentical:
		d = models.Decision{
			Action:   models.ActionSkip,
			Record:   best.Clone(),
			TargetID: best.ID,
			Match:    &bestMatch,
			Reason:   fmt.Sprintf("identical to %s", best.ID),
		}
	default:
		d = models.Decision{
			Action:   models.ActionUpdate,
			Record:   merge.Merge(*best, newRecord, s.strategy),
			TargetID: best.ID,
			Match:    &bestMatch,
			Reason: fmt.Sprintf("complementary to %s (similarity %.2f, distance %s)",
				best.ID, bestMatch.Details.Similarity, formatDistance(bestMatch.Details.DistanceMeters)),
		}
	}

	relationship := models.RelationshipNone
	if d.Match != nil {
		relationship = d.Match.Relationship
	}
	s.metrics.IncrementDecision(string(d.Action), string(relationship))
	return d
}

// ReconcileWithStore loads candidates for record and reconciles against them.
// A failing candidate query is logged and treated as no candidates.
func (s *Service) ReconcileWithStore(ctx context.Context, record models.ViolationRecord) models.Decision {
	var candidates []models.ViolationRecord
	if s.finder != nil {
		q := s.matcher.CandidateQuery(record)
		found, err := s.finder.FindCandidates(ctx, q)
		if err != nil {
			s.metrics.IncrementCandidateFailure()
			s.logger.WarnContext(ctx, "candidate lookup failed, reconciling without candidates",
				"type", q.Type,
				"error", err,
			)
		} else {
			candidates = found
		}
	}
	s.metrics.ObserveCandidates(len(candidates))
	return s.Reconcile(record, candidates)
}

func better(a, b models.MatchResult) bool {
	ai := a.Relationship == models.RelationshipIdentical
	bi := b.Relationship == models.RelationshipIdentical
	if ai != bi {
		return ai
	}
	if a.Details.Similarity != b.Details.Similarity {
		return a.Details.Similarity > b.Details.Similarity
	}
	return a.Details.DistanceMeters < b.Details.DistanceMeters
}

func formatDistance(meters float64) string {
	if math.IsInf(meters, 1) {
		return "unknown"
	}
	return fmt.Sprintf("%.0fm", meters)
}
