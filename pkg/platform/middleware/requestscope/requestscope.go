// Package requestscope stamps every request context with the values services
// read through pkg/requestcontext: one "now" for the whole request, a request
// ID, and the submitting actor.
package requestscope

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/modullar/violations-tracker-backend-sub003/pkg/requestcontext"
)

const (
	HeaderRequestID = "X-Request-ID"
	// HeaderActor names the submitting identity. Authentication happens
	// upstream; the value is recorded, not verified.
	HeaderActor = "X-Actor"

	maxHeaderLen = 128
)

// Middleware must run before any handler that reads requestcontext values.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now())

		requestID := clean(r.Header.Get(HeaderRequestID))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		ctx = requestcontext.WithRequestID(ctx, requestID)
		w.Header().Set(HeaderRequestID, requestID)

		if actor := clean(r.Header.Get(HeaderActor)); actor != "" {
			ctx = requestcontext.WithActor(ctx, actor)
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func clean(v string) string {
	v = strings.TrimSpace(v)
	if len(v) > maxHeaderLen {
		v = v[:maxHeaderLen]
	}
	return v
}
