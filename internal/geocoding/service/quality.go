package service

import (
	"strings"

	"github.com/modullar/violations-tracker-backend-sub003/internal/geocoding/cache"
	"github.com/modullar/violations-tracker-backend-sub003/internal/geocoding/models"
)

const (
	qualityBase        = 0.5
	qualityAddressHit  = 0.3
	qualityCountryHit  = 0.2
	qualityCityState   = 0.1
	qualityStreetLevel = 0.1
)

// Quality scores how well place answers a query for placeName in region.
// The score is in [0.5, 1.0].
func Quality(place models.Place, placeName string, region models.Region) float64 {
	score := qualityBase

	name := cache.Normalize(placeName)
	if name != "" && strings.Contains(cache.Normalize(place.FormattedAddress), name) {
		score += qualityAddressHit
	}
	if countryMatches(place.Country, region) {
		score += qualityCountryHit
	}
	if place.City != "" && place.State != "" {
		score += qualityCityState
	}
	if place.Street != "" {
		score += qualityStreetLevel
	}
	return min(score, 1.0)
}

func countryMatches(country string, region models.Region) bool {
	c := cache.Normalize(country)
	if c == "" {
		return false
	}
	for _, want := range []string{region.CountryName, region.CountryNameAr, region.CountryCode} {
		if want != "" && c == cache.Normalize(want) {
			return true
		}
	}
	return false
}
