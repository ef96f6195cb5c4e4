package googleplaces

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modullar/violations-tracker-backend-sub003/internal/geocoding/models"
	"github.com/modullar/violations-tracker-backend-sub003/internal/geocoding/providers"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var syria = models.BoundingBox{MinLatitude: 32.0, MaxLatitude: 37.5, MinLongitude: 35.5, MaxLongitude: 42.5}

func TestProvider_FindPlace(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/findplacefromtext/json", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "Al-Midan neighborhood, Damascus, Syria", q.Get("input"))
		assert.Equal(t, "textquery", q.Get("inputtype"))
		assert.Equal(t, "rectangle:32,35.5|37.5,42.5", q.Get("locationbias"))
		assert.Equal(t, "secret", q.Get("key"))
		_, _ = w.Write([]byte(`{"candidates":[{"place_id":"ChIJ-midan"},{"place_id":"other"}],"status":"OK"}`))
	}))
	defer srv.Close()

	p := NewProvider(Config{BaseURL: srv.URL, APIKey: "secret"}, newTestLogger())
	id, err := p.FindPlace(context.Background(), "Al-Midan neighborhood, Damascus, Syria", syria, models.LanguageEnglish)
	require.NoError(t, err)
	assert.Equal(t, "ChIJ-midan", id)
}

func TestProvider_FindPlace_Statuses(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantID   string
		category providers.ErrorCategory
	}{
		{name: "zero results", body: `{"candidates":[],"status":"ZERO_RESULTS"}`},
		{name: "ok without candidates", body: `{"candidates":[],"status":"OK"}`},
		{name: "over query limit", body: `{"status":"OVER_QUERY_LIMIT"}`, category: providers.ErrorRateLimited},
		{name: "request denied", body: `{"status":"REQUEST_DENIED","error_message":"bad key"}`, category: providers.ErrorAuthentication},
		{name: "invalid request", body: `{"status":"INVALID_REQUEST"}`, category: providers.ErrorBadData},
		{name: "unknown error", body: `{"status":"UNKNOWN_ERROR"}`, category: providers.ErrorProviderOutage},
		{name: "malformed", body: `not json`, category: providers.ErrorBadData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			p := NewProvider(Config{BaseURL: srv.URL}, newTestLogger())
			id, err := p.FindPlace(context.Background(), "x", syria, models.LanguageEnglish)
			if tt.category == "" {
				require.NoError(t, err)
				assert.Equal(t, tt.wantID, id)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.category, providers.GetCategory(err))
		})
	}
}

func TestProvider_PlaceDetails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/details/json", r.URL.Path)
		assert.Equal(t, "ChIJ-midan", r.URL.Query().Get("place_id"))
		assert.Equal(t, "ar", r.URL.Query().Get("language"))
		assert.Equal(t, "geometry,formatted_address,address_component", r.URL.Query().Get("fields"))
		_, _ = w.Write([]byte(`{
			"status": "OK",
			"result": {
				"formatted_address": "12 Midan St, Al-Midan, Damascus, Syria",
				"geometry": {"location": {"lat": 33.4968, "lng": 36.2986}},
				"address_components": [
					{"long_name": "12", "types": ["street_number"]},
					{"long_name": "Midan St", "types": ["route"]},
					{"long_name": "Damascus", "types": ["locality", "political"]},
					{"long_name": "Damascus Governorate", "types": ["administrative_area_level_1", "political"]},
					{"long_name": "Syria", "short_name": "SY", "types": ["country", "political"]}
				]
			}
		}`))
	}))
	defer srv.Close()

	p := NewProvider(Config{BaseURL: srv.URL}, newTestLogger())
	details, err := p.PlaceDetails(context.Background(), "ChIJ-midan", models.LanguageArabic)
	require.NoError(t, err)

	assert.Equal(t, "ChIJ-midan", details.PlaceID)
	assert.InDelta(t, 33.4968, details.Coordinates.Latitude, 1e-9)
	assert.InDelta(t, 36.2986, details.Coordinates.Longitude, 1e-9)
	assert.Equal(t, "Syria", details.Country)
	assert.Equal(t, "Damascus", details.City)
	assert.Equal(t, "Damascus Governorate", details.State)
	assert.Equal(t, "12 Midan St", details.Street)
}

func TestProvider_PlaceDetails_Errors(t *testing.T) {
	t.Run("not found", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"status":"NOT_FOUND"}`))
		}))
		defer srv.Close()

		_, err := NewProvider(Config{BaseURL: srv.URL}, newTestLogger()).PlaceDetails(context.Background(), "gone", models.LanguageEnglish)
		require.Error(t, err)
		assert.Equal(t, providers.ErrorNotFound, providers.GetCategory(err))
		assert.False(t, providers.IsTransport(err))
	})

	t.Run("missing geometry", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"status":"OK","result":{"formatted_address":"x"}}`))
		}))
		defer srv.Close()

		_, err := NewProvider(Config{BaseURL: srv.URL}, newTestLogger()).PlaceDetails(context.Background(), "p", models.LanguageEnglish)
		require.Error(t, err)
		assert.Equal(t, providers.ErrorBadData, providers.GetCategory(err))
	})

	t.Run("http 503", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		_, err := NewProvider(Config{BaseURL: srv.URL, APIKey: "secret"}, newTestLogger()).PlaceDetails(context.Background(), "p", models.LanguageEnglish)
		require.Error(t, err)
		assert.True(t, providers.IsTransport(err))
	})

	t.Run("transport error hides the api key", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
		url := srv.URL
		srv.Close()

		_, err := NewProvider(Config{BaseURL: url, APIKey: "secret"}, newTestLogger()).PlaceDetails(context.Background(), "p", models.LanguageEnglish)
		require.Error(t, err)
		assert.NotContains(t, err.Error(), "secret")
		assert.Equal(t, providers.ErrorProviderOutage, providers.GetCategory(err))
	})
}
