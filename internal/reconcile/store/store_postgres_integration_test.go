//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	geomodels "github.com/modullar/violations-tracker-backend-sub003/internal/geocoding/models"
	"github.com/modullar/violations-tracker-backend-sub003/internal/reconcile/models"
	"github.com/modullar/violations-tracker-backend-sub003/internal/reconcile/store"
	"github.com/modullar/violations-tracker-backend-sub003/pkg/platform/sentinel"
	"github.com/modullar/violations-tracker-backend-sub003/pkg/requestcontext"
	"github.com/modullar/violations-tracker-backend-sub003/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = store.NewPostgresStore(s.postgres.Pool)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "violations"))
}

func doumaStrike(day int) *models.ViolationRecord {
	return &models.ViolationRecord{
		Type:                   "AIRSTRIKE",
		Date:                   time.Date(2024, 3, day, 0, 0, 0, 0, time.UTC),
		PerpetratorAffiliation: "government",
		Location: models.Location{
			Name:                   models.LocalizedText{En: "Douma", Ar: "دوما"},
			AdministrativeDivision: models.LocalizedText{En: "Rif Dimashq"},
			Coordinates:            &geomodels.Coordinates{Latitude: 33.5722, Longitude: 36.4031},
		},
		Casualties:  3,
		Description: models.LocalizedText{En: "Airstrike on the central market"},
		Victims:     []models.Victim{{Age: 34, Gender: "male", Status: "civilian"}},
		Tags:        []models.LocalizedText{{En: "airstrike", Ar: "قصف جوي"}},
		SourceURLs:  []string{"https://example.org/a"},
		CreatedBy:   "reporter-1",
		UpdatedBy:   "reporter-1",
	}
}

func (s *PostgresStoreSuite) TestCreateAndGet() {
	ctx := requestcontext.WithTime(context.Background(), time.Date(2024, 3, 11, 8, 0, 0, 0, time.UTC))
	r := doumaStrike(10)

	s.Require().NoError(s.store.Create(ctx, r))
	s.NotEqual(uuid.Nil, r.ID)

	got, err := s.store.Get(ctx, r.ID)
	s.Require().NoError(err)
	s.Equal(r.Type, got.Type)
	s.True(r.Date.Equal(got.Date))
	s.Equal(r.Location.Name, got.Location.Name)
	s.Require().NotNil(got.Location.Coordinates)
	s.InDelta(33.5722, got.Location.Coordinates.Latitude, 1e-9)
	s.Equal(r.Victims, got.Victims)
	s.Equal(r.Tags, got.Tags)
	s.Equal(r.SourceURLs, got.SourceURLs)
	s.Empty(got.MediaLinks)
	s.True(r.CreatedAt.Equal(got.CreatedAt))
}

func (s *PostgresStoreSuite) TestCreateWithoutCoordinates() {
	ctx := context.Background()
	r := doumaStrike(10)
	r.Location.Coordinates = nil
	r.Victims = nil

	s.Require().NoError(s.store.Create(ctx, r))
	got, err := s.store.Get(ctx, r.ID)
	s.Require().NoError(err)
	s.Nil(got.Location.Coordinates)
	s.Empty(got.Victims)
}

func (s *PostgresStoreSuite) TestCreateDuplicateID() {
	ctx := context.Background()
	r := doumaStrike(10)
	s.Require().NoError(s.store.Create(ctx, r))

	err := s.store.Create(ctx, r)
	s.ErrorIs(err, sentinel.ErrConflict)
}

func (s *PostgresStoreSuite) TestUpdate() {
	ctx := context.Background()
	r := doumaStrike(10)
	s.Require().NoError(s.store.Create(ctx, r))
	createdAt := r.CreatedAt

	r.Casualties = 5
	r.CreatedBy = "ignored"
	r.UpdatedBy = "reporter-2"
	r.MediaLinks = []string{"https://example.org/a.jpg"}
	s.Require().NoError(s.store.Update(ctx, r))
	s.Equal("reporter-1", r.CreatedBy)
	s.True(createdAt.Equal(r.CreatedAt))

	got, err := s.store.Get(ctx, r.ID)
	s.Require().NoError(err)
	s.Equal(5, got.Casualties)
	s.Equal("reporter-2", got.UpdatedBy)
	s.Equal([]string{"https://example.org/a.jpg"}, got.MediaLinks)

	missing := doumaStrike(10)
	missing.ID = uuid.New()
	s.ErrorIs(s.store.Update(ctx, missing), sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestGetNotFound() {
	_, err := s.store.Get(context.Background(), uuid.New())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestFindCandidates() {
	ctx := context.Background()
	for _, day := range []int{6, 8, 10, 12, 20} {
		s.Require().NoError(s.store.Create(ctx, doumaStrike(day)))
	}
	other := doumaStrike(10)
	other.Type = "SHELLING"
	s.Require().NoError(s.store.Create(ctx, other))
	harasta := doumaStrike(11)
	harasta.Location.Name = models.LocalizedText{En: "Harasta", Ar: "حرستا"}
	s.Require().NoError(s.store.Create(ctx, harasta))

	q := models.CandidateQuery{
		Type: "AIRSTRIKE",
		From: time.Date(2024, 3, 7, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2024, 3, 13, 23, 59, 59, 0, time.UTC),
	}

	got, err := s.store.FindCandidates(ctx, q)
	s.Require().NoError(err)
	s.Len(got, 4)
	s.Equal(12, got[0].Date.Day())

	q.LocationName = "DOUMA"
	got, err = s.store.FindCandidates(ctx, q)
	s.Require().NoError(err)
	s.Len(got, 3)

	q.LocationName = "حرستا"
	got, err = s.store.FindCandidates(ctx, q)
	s.Require().NoError(err)
	s.Len(got, 1)

	q.LocationName = "%"
	got, err = s.store.FindCandidates(ctx, q)
	s.Require().NoError(err)
	s.Empty(got)

	q.LocationName = ""
	q.Limit = 2
	got, err = s.store.FindCandidates(ctx, q)
	s.Require().NoError(err)
	s.Len(got, 2)
}
