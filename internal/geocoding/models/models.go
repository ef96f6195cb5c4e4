package models

import (
	"time"
)

// Language is the script a location string is written in.
type Language string

const (
	LanguageEnglish Language = "en"
	LanguageArabic  Language = "ar"
	LanguageMixed   Language = "mixed"
)

// IsValid reports whether l is one of the known languages.
func (l Language) IsValid() bool {
	switch l {
	case LanguageEnglish, LanguageArabic, LanguageMixed:
		return true
	}
	return false
}

// Complexity decides which backend a location needs.
type Complexity string

const (
	ComplexitySimple  Complexity = "simple"
	ComplexityComplex Complexity = "complex"
)

// Source identifies the backend that produced a cached resolution.
type Source string

const (
	SourceBulkAPI    Source = "bulk_api"
	SourcePremiumAPI Source = "premium_api"
)

// Coordinates is a WGS84 point.
type Coordinates struct {
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
}

// BoundingBox is an axis-aligned lat/lon rectangle.
type BoundingBox struct {
	MinLatitude  float64
	MaxLatitude  float64
	MinLongitude float64
	MaxLongitude float64
}

// Contains reports whether c lies inside the box (edges inclusive).
func (b BoundingBox) Contains(c Coordinates) bool {
	return c.Latitude >= b.MinLatitude && c.Latitude <= b.MaxLatitude &&
		c.Longitude >= b.MinLongitude && c.Longitude <= b.MaxLongitude
}

// Region is the geographic target every accepted resolution must fall into.
type Region struct {
	// CountryName is appended to bulk queries and compared against results.
	CountryName   string
	CountryNameAr string
	// CountryCode is the ISO 3166-1 alpha-2 code (lowercase).
	CountryCode string
	Bounds      BoundingBox
}

// CountryFor returns the country name to use in a query written in lang.
func (r Region) CountryFor(lang Language) string {
	if lang == LanguageArabic && r.CountryNameAr != "" {
		return r.CountryNameAr
	}
	return r.CountryName
}

// SearchTerms are the inputs a cache entry was created for.
type SearchTerms struct {
	PlaceName     string   `json:"place_name"`
	AdminDivision string   `json:"admin_division"`
	Language      Language `json:"language"`
}

// Place is a resolved location with its address breakdown.
type Place struct {
	Coordinates      Coordinates `json:"coordinates"`
	FormattedAddress string      `json:"formatted_address"`
	Country          string      `json:"country"`
	City             string      `json:"city"`
	State            string      `json:"state"`
	// Street is set when the address carries a street-level component.
	Street  string  `json:"street,omitempty"`
	Quality float64 `json:"quality"`
}

// CacheEntry is a stored resolution.
//
// Invariants:
//   - Key is derived from SearchTerms by cache.Key and never changes
//   - HitCount only grows; LastHitAt is refreshed with every hit
type CacheEntry struct {
	Key         string
	SearchTerms SearchTerms
	Result      Place
	Source      Source
	HitCount    int
	CreatedAt   time.Time
	LastHitAt   *time.Time
}

// Resolution is the outcome of resolving one location.
type Resolution struct {
	Place
	// Strategy names the step that produced the result ("cache" on hits).
	Strategy       string
	FromCache      bool
	FromPremiumAPI bool
	// APICalls counts backend round trips made for this resolution.
	APICalls int
}
