// Package providers defines the contracts of the external geocoding backends
// and the normalized error taxonomy their adapters report.
package providers

import (
	"context"

	"github.com/modullar/violations-tracker-backend-sub003/internal/geocoding/models"
)

//go:generate mockgen -source=provider.go -destination=mocks/mocks.go -package=mocks BulkGeocoder,PremiumGeocoder

// BulkGeocoder is the cheap single-call backend. An empty slice with a nil
// error means the query matched nothing.
type BulkGeocoder interface {
	ID() string
	Geocode(ctx context.Context, query string, lang models.Language) ([]models.Place, error)
}

// PremiumGeocoder is the two-call search-then-detail backend.
type PremiumGeocoder interface {
	ID() string
	// FindPlace returns the best candidate's place ID, or "" when there is none.
	FindPlace(ctx context.Context, query string, bias models.BoundingBox, lang models.Language) (string, error)
	// PlaceDetails returns coordinates and address components of a place ID.
	PlaceDetails(ctx context.Context, placeID string, lang models.Language) (*PlaceDetails, error)
}

// PlaceDetails is the premium backend's detail response, mapped.
type PlaceDetails struct {
	PlaceID string
	models.Place
}
