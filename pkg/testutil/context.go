package testutil

import (
	"net/http"
	"time"

	"github.com/modullar/violations-tracker-backend-sub003/pkg/requestcontext"
)

// WithActor stamps req the way the request scope middleware does for an
// X-Actor header.
func WithActor(req *http.Request, actor string) *http.Request {
	return req.WithContext(requestcontext.WithActor(req.Context(), actor))
}

// WithRequestTime fixes the request's "now".
func WithRequestTime(req *http.Request, now time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), now))
}
