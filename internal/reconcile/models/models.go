package models

import (
	"strings"
	"time"

	"github.com/google/uuid"

	geomodels "github.com/modullar/violations-tracker-backend-sub003/internal/geocoding/models"
)

// LocalizedText holds the English and Arabic forms of a field. Either may be
// empty.
type LocalizedText struct {
	En string `json:"en,omitempty" validate:"max=10000"`
	Ar string `json:"ar,omitempty" validate:"max=10000"`
}

func (t LocalizedText) IsEmpty() bool {
	return strings.TrimSpace(t.En) == "" && strings.TrimSpace(t.Ar) == ""
}

// Primary returns the English form, or the Arabic one when English is empty.
func (t LocalizedText) Primary() string {
	if strings.TrimSpace(t.En) != "" {
		return t.En
	}
	return t.Ar
}

// Location is where a violation took place.
type Location struct {
	Name                   LocalizedText `json:"name"`
	AdministrativeDivision LocalizedText `json:"administrative_division"`
	// Coordinates is nil until the location has been resolved.
	Coordinates *geomodels.Coordinates `json:"coordinates,omitempty"`
}

// Victim is compared structurally on all three fields.
type Victim struct {
	Age    int    `json:"age,omitempty" validate:"gte=0,lte=150"`
	Gender string `json:"gender,omitempty"`
	Status string `json:"status,omitempty"`
}

// ViolationRecord is one reported incident.
type ViolationRecord struct {
	ID                     uuid.UUID       `json:"id"`
	Type                   string          `json:"type" validate:"required"`
	Date                   time.Time       `json:"date" validate:"required"`
	PerpetratorAffiliation string          `json:"perpetrator_affiliation,omitempty"`
	Location               Location        `json:"location"`
	Casualties             int             `json:"casualties" validate:"gte=0"`
	Description            LocalizedText   `json:"description"`
	Victims                []Victim        `json:"victims,omitempty" validate:"dive"`
	Tags                   []LocalizedText `json:"tags,omitempty"`
	SourceURLs             []string        `json:"source_urls,omitempty"`
	MediaLinks             []string        `json:"media_links,omitempty"`
	CreatedBy              string          `json:"created_by,omitempty"`
	UpdatedBy              string          `json:"updated_by,omitempty"`
	CreatedAt              time.Time       `json:"created_at"`
	UpdatedAt              time.Time       `json:"updated_at"`
}

// Clone returns a deep copy of r.
func (r ViolationRecord) Clone() ViolationRecord {
	out := r
	if r.Location.Coordinates != nil {
		c := *r.Location.Coordinates
		out.Location.Coordinates = &c
	}
	out.Victims = cloneSlice(r.Victims)
	out.Tags = cloneSlice(r.Tags)
	out.SourceURLs = cloneSlice(r.SourceURLs)
	out.MediaLinks = cloneSlice(r.MediaLinks)
	return out
}

func cloneSlice[T any](s []T) []T {
	if s == nil {
		return nil
	}
	return append(make([]T, 0, len(s)), s...)
}

// RelationshipType classifies how two records relate.
type RelationshipType string

const (
	RelationshipNone          RelationshipType = "none"
	RelationshipIdentical     RelationshipType = "identical"
	RelationshipComplementary RelationshipType = "complementary"
)

// MatchDetails are the individual signals behind a MatchResult.
type MatchDetails struct {
	ExactMatch      bool    `json:"exact_match"`
	SameType        bool    `json:"same_type"`
	SameDate        bool    `json:"same_date"`
	SamePerpetrator bool    `json:"same_perpetrator"`
	NearbyLocation  bool    `json:"nearby_location"`
	SameCasualties  bool    `json:"same_casualties"`
	SimilarityMatch bool    `json:"similarity_match"`
	Similarity      float64 `json:"similarity"`
	// DistanceMeters is +Inf when either record has no coordinates.
	DistanceMeters float64 `json:"distance_meters"`
}

// MatchResult is the outcome of comparing two records.
type MatchResult struct {
	IsDuplicate  bool             `json:"is_duplicate"`
	Details      MatchDetails     `json:"match_details"`
	Relationship RelationshipType `json:"relationship_type"`
}

// Action is what ingestion does with a new record.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionSkip   Action = "skip"
)

// Decision is the reconciliation outcome for one new record.
type Decision struct {
	Action Action
	// Record is the value to persist: the new record on create, the merged
	// record on update and the existing record on skip.
	Record ViolationRecord
	// TargetID is the existing record's ID on update and skip.
	TargetID uuid.UUID
	// Match is the comparison with the chosen candidate, nil on create
	// without candidates.
	Match  *MatchResult
	Reason string
}

// CandidateQuery selects stored records that could duplicate a new one.
type CandidateQuery struct {
	Type string
	From time.Time
	To   time.Time
	// LocationName, when set, is matched case-insensitively as a substring of
	// either localized location name.
	LocationName string
	Limit        int
}
