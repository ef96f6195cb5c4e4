package matcher

import (
	"math"

	geomodels "github.com/modullar/violations-tracker-backend-sub003/internal/geocoding/models"
)

// mean Earth radius (IUGG)
const earthRadiusMeters = 6371008.8

// Distance is the haversine great-circle distance in meters, or +Inf when
// either point is missing.
func Distance(a, b *geomodels.Coordinates) float64 {
	if a == nil || b == nil {
		return math.Inf(1)
	}
	lat1 := a.Latitude * math.Pi / 180
	lat2 := b.Latitude * math.Pi / 180
	dLat := (b.Latitude - a.Latitude) * math.Pi / 180
	dLon := (b.Longitude - a.Longitude) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusMeters * math.Asin(math.Sqrt(min(h, 1)))
}
