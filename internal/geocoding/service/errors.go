package service

import (
	"fmt"
	"strings"

	"github.com/modullar/violations-tracker-backend-sub003/internal/geocoding/models"
	"github.com/modullar/violations-tracker-backend-sub003/internal/geocoding/providers"
	dErrors "github.com/modullar/violations-tracker-backend-sub003/pkg/domain-errors"
)

// StrategyAttempt is one strategy that ran and failed.
type StrategyAttempt struct {
	Strategy string
	Err      error
}

// ResolutionError is returned when no strategy produced a result in the
// target region. It carries the backend calls spent so callers can account
// for them.
type ResolutionError struct {
	Query    models.SearchTerms
	APICalls int
	Attempts []StrategyAttempt
	code     dErrors.Code
}

func newResolutionError(terms models.SearchTerms, calls int, attempts []StrategyAttempt) *ResolutionError {
	code := dErrors.CodeNotFound
	if len(attempts) > 0 {
		transport := true
		for _, a := range attempts {
			if !providers.IsTransport(a.Err) {
				transport = false
				break
			}
		}
		if transport {
			code = dErrors.CodeUnavailable
		}
	}
	return &ResolutionError{Query: terms, APICalls: calls, Attempts: attempts, code: code}
}

// Code is not_found, or unavailable when every attempt failed to reach its
// backend.
func (e *ResolutionError) Code() dErrors.Code {
	return e.code
}

func (e *ResolutionError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "resolve %q: %s after %d api calls", e.Query.PlaceName, e.code, e.APICalls)
	for _, a := range e.Attempts {
		fmt.Fprintf(&b, "; %s: %v", a.Strategy, a.Err)
	}
	return b.String()
}

// Unwrap exposes the coded error first, then each attempt's cause.
func (e *ResolutionError) Unwrap() []error {
	errs := make([]error, 0, len(e.Attempts)+1)
	errs = append(errs, dErrors.New(e.code, "location could not be resolved"))
	for _, a := range e.Attempts {
		errs = append(errs, a.Err)
	}
	return errs
}
