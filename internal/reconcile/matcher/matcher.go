// Package matcher scores how likely two violation records describe the same
// incident.
//
// The result is a heuristic: false positives and negatives are expected and
// are tuned through the proximity and similarity thresholds.
package matcher

import (
	"strings"
	"time"

	"github.com/modullar/violations-tracker-backend-sub003/internal/reconcile/models"
)

const (
	DefaultProximityMeters     = 100.0
	DefaultSimilarityThreshold = 0.75
	DefaultCandidateWindowDays = 3
	DefaultCandidateLimit      = 5
)

// Matcher is immutable after construction and safe for concurrent use.
type Matcher struct {
	proximityMeters     float64
	similarityThreshold float64
	windowDays          int
	candidateLimit      int
}

type Option func(*Matcher)

// WithProximity sets the distance below which two locations are nearby.
func WithProximity(meters float64) Option {
	return func(m *Matcher) {
		if meters > 0 {
			m.proximityMeters = meters
		}
	}
}

// WithSimilarityThreshold sets the score a description similarity must
// exceed to count as a match.
func WithSimilarityThreshold(threshold float64) Option {
	return func(m *Matcher) {
		if threshold > 0 && threshold <= 1 {
			m.similarityThreshold = threshold
		}
	}
}

func WithCandidateWindow(days int) Option {
	return func(m *Matcher) {
		if days >= 0 {
			m.windowDays = days
		}
	}
}

func WithCandidateLimit(limit int) Option {
	return func(m *Matcher) {
		if limit > 0 {
			m.candidateLimit = limit
		}
	}
}

func New(opts ...Option) *Matcher {
	m := &Matcher{
		proximityMeters:     DefaultProximityMeters,
		similarityThreshold: DefaultSimilarityThreshold,
		windowDays:          DefaultCandidateWindowDays,
		candidateLimit:      DefaultCandidateLimit,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Compare scores b against a. It never fails: a missing description or
// missing coordinates turn the matching signal off.
func (m *Matcher) Compare(a, b models.ViolationRecord) models.MatchResult {
	d := models.MatchDetails{
		SameType:        a.Type == b.Type,
		SameDate:        sameDay(a.Date, b.Date),
		SamePerpetrator: a.PerpetratorAffiliation == b.PerpetratorAffiliation,
		SameCasualties:  a.Casualties == b.Casualties,
		DistanceMeters:  Distance(a.Location.Coordinates, b.Location.Coordinates),
		Similarity:      Similarity(a.Description, b.Description),
	}
	d.NearbyLocation = d.DistanceMeters < m.proximityMeters
	d.ExactMatch = d.SameType && d.SameDate && d.SamePerpetrator && d.NearbyLocation
	d.SimilarityMatch = d.Similarity > m.similarityThreshold

	res := models.MatchResult{
		IsDuplicate:  d.ExactMatch || d.SimilarityMatch,
		Details:      d,
		Relationship: models.RelationshipNone,
	}
	if res.IsDuplicate {
		res.Relationship = models.RelationshipComplementary
		if d.ExactMatch && fullOverlap(a, b) {
			res.Relationship = models.RelationshipIdentical
		}
	}
	return res
}

// CandidateQuery builds the store query for records that may duplicate r:
// same type, a date within the window on either side, and the location name
// when r has one.
func (m *Matcher) CandidateQuery(r models.ViolationRecord) models.CandidateQuery {
	day := dayOf(r.Date)
	window := time.Duration(m.windowDays) * 24 * time.Hour
	return models.CandidateQuery{
		Type:         r.Type,
		From:         day.Add(-window),
		To:           day.Add(window + 24*time.Hour - time.Nanosecond),
		LocationName: strings.TrimSpace(r.Location.Name.Primary()),
		Limit:        m.candidateLimit,
	}
}

// fullOverlap holds when the supplementary fields agree: casualties, the
// length of each description form and the number of victims.
func fullOverlap(a, b models.ViolationRecord) bool {
	return a.Casualties == b.Casualties &&
		len([]rune(a.Description.En)) == len([]rune(b.Description.En)) &&
		len([]rune(a.Description.Ar)) == len([]rune(b.Description.Ar)) &&
		len(a.Victims) == len(b.Victims)
}

func sameDay(a, b time.Time) bool {
	return dayOf(a).Equal(dayOf(b))
}

func dayOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
