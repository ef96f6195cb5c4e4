// Package budget tracks premium geocoding calls made during the current UTC
// day.
package budget

import (
	"log/slog"
	"sync"
	"time"

	"github.com/modullar/violations-tracker-backend-sub003/internal/geocoding/models"
)

// DefaultDailyLimit is the premium call allowance per UTC day.
const DefaultDailyLimit = 1000

// ComplexityClassifier decides whether a location needs the premium backend.
type ComplexityClassifier interface {
	IsComplex(placeName, adminDivision string, lang models.Language) bool
}

// Usage is a snapshot of the counter.
type Usage struct {
	Used  int
	Limit int
	// Date is midnight UTC of the day the counter belongs to.
	Date time.Time
}

// Remaining returns the calls left today, never negative.
func (u Usage) Remaining() int {
	if u.Used >= u.Limit {
		return 0
	}
	return u.Limit - u.Used
}

// Tracker is the premium call counter. It is safe for concurrent use; every
// method first rolls the counter over when the UTC day has changed.
type Tracker struct {
	mu         sync.Mutex
	used       int
	day        time.Time
	limit      int
	classifier ComplexityClassifier
	now        func() time.Time
	logger     *slog.Logger
}

type Option func(*Tracker)

func WithLimit(limit int) Option {
	return func(t *Tracker) {
		t.limit = limit
	}
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		t.now = now
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(t *Tracker) {
		t.logger = logger
	}
}

func New(classifier ComplexityClassifier, opts ...Option) *Tracker {
	t := &Tracker{
		limit:      DefaultDailyLimit,
		classifier: classifier,
		now:        time.Now,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.day = dayOf(t.now())
	return t
}

// Usage returns today's counter.
func (t *Tracker) Usage() Usage {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.resetIfNewDayLocked()
	return Usage{Used: t.used, Limit: t.limit, Date: t.day}
}

// ShouldUsePremium is false once the daily limit is reached and otherwise
// reports whether the location is complex.
func (t *Tracker) ShouldUsePremium(placeName, adminDivision string, lang models.Language) bool {
	t.mu.Lock()
	t.resetIfNewDayLocked()
	exhausted := t.used >= t.limit
	t.mu.Unlock()

	if exhausted {
		return false
	}
	return t.classifier.IsComplex(placeName, adminDivision, lang)
}

// Increment adds calls to today's counter unconditionally.
func (t *Tracker) Increment(calls int) {
	if calls <= 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.resetIfNewDayLocked()
	t.used += calls
}

// Reserve adds calls to the counter only if the result stays within the
// limit. Check and increment happen under one lock, so concurrent callers can
// never push the counter past the limit.
func (t *Tracker) Reserve(calls int) bool {
	if calls <= 0 {
		return true
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.resetIfNewDayLocked()
	if t.used+calls > t.limit {
		return false
	}
	t.used += calls
	return true
}

// Release refunds reserved calls that were not made.
func (t *Tracker) Release(calls int) {
	if calls <= 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.resetIfNewDayLocked()
	t.used -= calls
	if t.used < 0 {
		t.used = 0
	}
}

func (t *Tracker) resetIfNewDayLocked() {
	today := dayOf(t.now())
	if today.Equal(t.day) {
		return
	}
	if t.used > 0 {
		t.logger.Info("premium geocoding budget reset",
			"previous_day", t.day.Format(time.DateOnly),
			"calls_used", t.used,
			"limit", t.limit,
		)
	}
	t.day = today
	t.used = 0
}

func dayOf(ts time.Time) time.Time {
	y, m, d := ts.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
