package requestscope

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/modullar/violations-tracker-backend-sub003/pkg/requestcontext"
)

func TestMiddleware(t *testing.T) {
	var (
		gotID    string
		gotActor string
		gotTime  time.Time
	)
	h := Middleware(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		gotID = requestcontext.RequestID(r.Context())
		gotActor = requestcontext.Actor(r.Context())
		gotTime = requestcontext.Now(r.Context())
	}))

	t.Run("propagates incoming headers", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.Header.Set(HeaderRequestID, "req-1")
		req.Header.Set(HeaderActor, " analyst@example.org ")
		w := httptest.NewRecorder()

		before := time.Now()
		h.ServeHTTP(w, req)

		assert.Equal(t, "req-1", gotID)
		assert.Equal(t, "analyst@example.org", gotActor)
		assert.False(t, gotTime.Before(before))
		assert.Equal(t, "req-1", w.Header().Get(HeaderRequestID))
	})

	t.Run("generates a request id when absent", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		_, err := uuid.Parse(gotID)
		assert.NoError(t, err)
		assert.Empty(t, gotActor)
		assert.Equal(t, gotID, w.Header().Get(HeaderRequestID))
	})

	t.Run("truncates oversized headers", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(HeaderActor, strings.Repeat("a", 500))
		h.ServeHTTP(httptest.NewRecorder(), req)
		assert.Len(t, gotActor, maxHeaderLen)
	})
}
