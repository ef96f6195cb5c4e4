package matcher

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	geomodels "github.com/modullar/violations-tracker-backend-sub003/internal/geocoding/models"
	"github.com/modullar/violations-tracker-backend-sub003/internal/reconcile/models"
)

var (
	damascus = &geomodels.Coordinates{Latitude: 33.5138, Longitude: 36.2765}
	nearby   = &geomodels.Coordinates{Latitude: 33.5140, Longitude: 36.2768}
	aleppo   = &geomodels.Coordinates{Latitude: 36.2021, Longitude: 37.1343}
)

func baseRecord() models.ViolationRecord {
	return models.ViolationRecord{
		Type:                   "AIRSTRIKE",
		Date:                   time.Date(2024, 3, 10, 9, 30, 0, 0, time.UTC),
		PerpetratorAffiliation: "government",
		Location: models.Location{
			Name:        models.LocalizedText{En: "Douma", Ar: "دوما"},
			Coordinates: damascus,
		},
		Casualties:  3,
		Description: models.LocalizedText{En: "Airstrike hit the central market in Douma killing several civilians"},
		Victims:     []models.Victim{{Age: 34, Gender: "male", Status: "civilian"}},
	}
}

func TestDistance(t *testing.T) {
	t.Run("zero for the same point", func(t *testing.T) {
		assert.Zero(t, Distance(damascus, damascus))
		assert.Zero(t, Distance(aleppo, aleppo))
	})

	t.Run("symmetric", func(t *testing.T) {
		assert.Equal(t, Distance(damascus, aleppo), Distance(aleppo, damascus))
		assert.Equal(t, Distance(damascus, nearby), Distance(nearby, damascus))
	})

	t.Run("known distances", func(t *testing.T) {
		assert.InDelta(t, 309_000, Distance(damascus, aleppo), 1_000)
		assert.InDelta(t, 35.6, Distance(damascus, nearby), 0.5)
	})

	t.Run("missing coordinates", func(t *testing.T) {
		assert.True(t, math.IsInf(Distance(nil, damascus), 1))
		assert.True(t, math.IsInf(Distance(damascus, nil), 1))
		assert.True(t, math.IsInf(Distance(nil, nil), 1))
	})
}

func TestSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b models.LocalizedText
		min  float64
		max  float64
	}{
		{
			name: "identical after case and whitespace folding",
			a:    models.LocalizedText{En: "Shelling of the  OLD market"},
			b:    models.LocalizedText{En: "shelling of the old market "},
			min:  1, max: 1,
		},
		{
			name: "extended description",
			a:    models.LocalizedText{En: "Airstrike hit the central market in Douma killing several civilians"},
			b:    models.LocalizedText{En: "Airstrike hit the central market in Douma killing several civilians and injuring dozens"},
			min:  0.8, max: 0.99,
		},
		{
			name: "unrelated",
			a:    models.LocalizedText{En: "Shelling of a residential building"},
			b:    models.LocalizedText{En: "Detention of two journalists at a checkpoint near the river"},
			min:  0, max: 0.75,
		},
		{
			name: "only arabic in common",
			a:    models.LocalizedText{En: "Airstrike", Ar: "قصف جوي على السوق"},
			b:    models.LocalizedText{Ar: "قصف جوي على السوق"},
			min:  1, max: 1,
		},
		{
			name: "no language in common",
			a:    models.LocalizedText{En: "Airstrike on the market"},
			b:    models.LocalizedText{Ar: "قصف جوي على السوق"},
			min:  0, max: 0,
		},
		{
			name: "missing descriptions",
			min:  0, max: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Similarity(tt.a, tt.b)
			assert.GreaterOrEqual(t, got, tt.min)
			assert.LessOrEqual(t, got, tt.max)
			assert.InDelta(t, got, Similarity(tt.b, tt.a), 1e-9)
		})
	}
}

func TestCompare(t *testing.T) {
	m := New()

	t.Run("identical records", func(t *testing.T) {
		a := baseRecord()
		b := baseRecord()
		b.Date = b.Date.Add(6 * time.Hour)
		b.Location.Coordinates = nearby

		res := m.Compare(a, b)
		assert.True(t, res.IsDuplicate)
		assert.Equal(t, models.RelationshipIdentical, res.Relationship)
		assert.True(t, res.Details.ExactMatch)
		assert.True(t, res.Details.SameDate)
		assert.True(t, res.Details.NearbyLocation)
		assert.True(t, res.Details.SameCasualties)
		assert.InDelta(t, 1.0, res.Details.Similarity, 1e-9)
	})

	t.Run("differing casualties and longer description are complementary", func(t *testing.T) {
		a := baseRecord()
		b := baseRecord()
		b.Casualties = 5
		b.Description.En = a.Description.En + " and injuring dozens"

		res := m.Compare(a, b)
		assert.True(t, res.IsDuplicate)
		assert.Equal(t, models.RelationshipComplementary, res.Relationship)
		assert.False(t, res.Details.SameCasualties)
		assert.True(t, res.Details.SimilarityMatch)
	})

	t.Run("similar description alone is a duplicate", func(t *testing.T) {
		a := baseRecord()
		b := baseRecord()
		b.Location.Coordinates = nil
		b.PerpetratorAffiliation = "unknown"

		res := m.Compare(a, b)
		assert.False(t, res.Details.ExactMatch)
		assert.True(t, math.IsInf(res.Details.DistanceMeters, 1))
		assert.True(t, res.IsDuplicate)
		assert.Equal(t, models.RelationshipComplementary, res.Relationship)
	})

	t.Run("exact match without descriptions", func(t *testing.T) {
		a := baseRecord()
		b := baseRecord()
		a.Description = models.LocalizedText{}
		b.Description = models.LocalizedText{}

		res := m.Compare(a, b)
		assert.Zero(t, res.Details.Similarity)
		assert.False(t, res.Details.SimilarityMatch)
		assert.True(t, res.IsDuplicate)
		assert.Equal(t, models.RelationshipIdentical, res.Relationship)
	})

	t.Run("unrelated records", func(t *testing.T) {
		a := baseRecord()
		b := baseRecord()
		b.Type = "DETENTION"
		b.Date = b.Date.AddDate(0, 0, 2)
		b.Location.Coordinates = aleppo
		b.Description.En = "Detention of two journalists at a checkpoint near the river"

		res := m.Compare(a, b)
		assert.False(t, res.IsDuplicate)
		assert.Equal(t, models.RelationshipNone, res.Relationship)
		assert.False(t, res.Details.NearbyLocation)
	})

	t.Run("thresholds are configurable", func(t *testing.T) {
		a := baseRecord()
		b := baseRecord()
		b.Location.Coordinates = aleppo
		b.Description.En = a.Description.En + " and injuring dozens"

		strict := New(WithSimilarityThreshold(0.99))
		assert.False(t, strict.Compare(a, b).IsDuplicate)

		wide := New(WithProximity(400_000), WithSimilarityThreshold(0.99))
		assert.True(t, wide.Compare(a, b).Details.NearbyLocation)
		assert.True(t, wide.Compare(a, b).IsDuplicate)
	})
}

func TestCandidateQuery(t *testing.T) {
	r := baseRecord()
	r.Date = time.Date(2024, 3, 10, 15, 0, 0, 0, time.UTC)

	q := New().CandidateQuery(r)
	assert.Equal(t, "AIRSTRIKE", q.Type)
	assert.Equal(t, time.Date(2024, 3, 7, 0, 0, 0, 0, time.UTC), q.From)
	assert.Equal(t, time.Date(2024, 3, 13, 23, 59, 59, 999999999, time.UTC), q.To)
	assert.Equal(t, "Douma", q.LocationName)
	assert.Equal(t, DefaultCandidateLimit, q.Limit)

	r.Location.Name = models.LocalizedText{Ar: "دوما"}
	q = New(WithCandidateWindow(1), WithCandidateLimit(10)).CandidateQuery(r)
	assert.Equal(t, "دوما", q.LocationName)
	assert.Equal(t, time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC), q.From)
	assert.Equal(t, 10, q.Limit)
}
