package ingestion_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	geomodels "github.com/modullar/violations-tracker-backend-sub003/internal/geocoding/models"
	"github.com/modullar/violations-tracker-backend-sub003/internal/ingestion"
	"github.com/modullar/violations-tracker-backend-sub003/internal/ingestion/events"
	"github.com/modullar/violations-tracker-backend-sub003/internal/ingestion/mocks"
	"github.com/modullar/violations-tracker-backend-sub003/internal/reconcile/models"
	reconcile "github.com/modullar/violations-tracker-backend-sub003/internal/reconcile/service"
	"github.com/modullar/violations-tracker-backend-sub003/internal/reconcile/store"
	dErrors "github.com/modullar/violations-tracker-backend-sub003/pkg/domain-errors"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.RecordEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e events.RecordEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) Close() {}

func (p *recordingPublisher) Events() []events.RecordEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]events.RecordEvent(nil), p.events...)
}

// failingStore rejects records of one type and stores the rest.
type failingStore struct {
	*store.InMemoryStore
	failType string
}

func (s *failingStore) Create(ctx context.Context, r *models.ViolationRecord) error {
	if r.Type == s.failType {
		return errors.New("disk full")
	}
	return s.InMemoryStore.Create(ctx, r)
}

type ProcessBatchSuite struct {
	suite.Suite
	ctrl      *gomock.Controller
	resolver  *mocks.MockResolver
	records   *store.InMemoryStore
	publisher *recordingPublisher
	service   *ingestion.Service
}

func TestProcessBatchSuite(t *testing.T) {
	suite.Run(t, new(ProcessBatchSuite))
}

func (s *ProcessBatchSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.resolver = mocks.NewMockResolver(s.ctrl)
	s.records = store.NewInMemoryStore()
	s.publisher = &recordingPublisher{}
	s.service = s.newService(s.records)
}

func (s *ProcessBatchSuite) newService(records ingestion.RecordStore, opts ...ingestion.Option) *ingestion.Service {
	opts = append([]ingestion.Option{ingestion.WithPublisher(s.publisher)}, opts...)
	svc, err := ingestion.New(s.resolver, reconcile.New(s.records), records, opts...)
	s.Require().NoError(err)
	return svc
}

const doumaDescription = "Airstrike hit the central market in Douma killing several civilians"

func douma(casualties int) models.ViolationRecord {
	return models.ViolationRecord{
		Type:                   "AIRSTRIKE",
		Date:                   time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC),
		PerpetratorAffiliation: "government",
		Location: models.Location{
			Name:                   models.LocalizedText{En: "Douma"},
			AdministrativeDivision: models.LocalizedText{En: "Rif Dimashq"},
		},
		Casualties:  casualties,
		Description: models.LocalizedText{En: doumaDescription},
	}
}

func doumaResolution() *geomodels.Resolution {
	return &geomodels.Resolution{
		Place: geomodels.Place{
			Coordinates:      geomodels.Coordinates{Latitude: 33.5722, Longitude: 36.4031},
			FormattedAddress: "Douma, Rif Dimashq, Syria",
			Country:          "Syria",
			Quality:          0.9,
		},
		Strategy: "bulk_with_admin",
		APICalls: 1,
	}
}

func (s *ProcessBatchSuite) TestCreatesAndResolvesNewRecord() {
	s.resolver.EXPECT().
		Resolve(gomock.Any(), "Douma", "Rif Dimashq", geomodels.Language("")).
		Return(doumaResolution(), nil)

	result := s.service.ProcessBatch(context.Background(), []models.ViolationRecord{douma(3)}, "analyst-1")

	s.Equal(1, result.Created)
	s.Require().Len(result.Outcomes, 1)
	out := result.Outcomes[0]
	s.Equal(models.ActionCreate, out.Action)
	s.NotEqual(uuid.Nil, out.RecordID)
	s.Require().NotNil(out.Resolution)
	s.Equal(0.9, out.Resolution.Quality)
	s.Equal(1, out.Resolution.APICalls)
	s.Nil(out.ResolutionError)

	stored, err := s.records.Get(context.Background(), out.RecordID)
	s.Require().NoError(err)
	s.Require().NotNil(stored.Location.Coordinates)
	s.InDelta(33.5722, stored.Location.Coordinates.Latitude, 1e-9)
	s.Equal("analyst-1", stored.CreatedBy)
	s.Equal("analyst-1", stored.UpdatedBy)

	evs := s.publisher.Events()
	s.Require().Len(evs, 1)
	s.Equal(out.RecordID, evs[0].RecordID)
	s.Equal(models.ActionCreate, evs[0].Action)
}

func (s *ProcessBatchSuite) TestSkipsIdenticalRecord() {
	existing := douma(3)
	existing.Location.Coordinates = &geomodels.Coordinates{Latitude: 33.5722, Longitude: 36.4031}
	s.Require().NoError(s.records.Create(context.Background(), &existing))

	incoming := douma(3)
	incoming.Location.Coordinates = &geomodels.Coordinates{Latitude: 33.5722, Longitude: 36.4031}
	result := s.service.ProcessBatch(context.Background(), []models.ViolationRecord{incoming}, "")

	s.Equal(1, result.Skipped)
	out := result.Outcomes[0]
	s.Equal(models.ActionSkip, out.Action)
	s.Equal(existing.ID, out.RecordID)
	s.Equal(models.RelationshipIdentical, out.Relationship)
	s.Equal(1, s.records.Len())
	s.Empty(s.publisher.Events())
}

func (s *ProcessBatchSuite) TestMergesComplementaryRecord() {
	existing := douma(3)
	existing.Location.Coordinates = &geomodels.Coordinates{Latitude: 33.5722, Longitude: 36.4031}
	s.Require().NoError(s.records.Create(context.Background(), &existing))

	incoming := douma(5)
	incoming.Location.Coordinates = &geomodels.Coordinates{Latitude: 33.5723, Longitude: 36.4031}
	incoming.SourceURLs = []string{"https://example.org/douma"}

	result := s.service.ProcessBatch(context.Background(), []models.ViolationRecord{incoming}, "")

	s.Equal(1, result.Updated)
	out := result.Outcomes[0]
	s.Equal(models.ActionUpdate, out.Action)
	s.Equal(existing.ID, out.RecordID)
	s.Equal(models.RelationshipComplementary, out.Relationship)
	s.Contains(out.Reason, "complementary")

	stored, err := s.records.Get(context.Background(), existing.ID)
	s.Require().NoError(err)
	s.Equal(5, stored.Casualties)
	s.Equal([]string{"https://example.org/douma"}, stored.SourceURLs)
	s.Equal(1, s.records.Len())
}

func (s *ProcessBatchSuite) TestComplementaryRecordsInOneBatchKeepEveryUnionField() {
	coords := &geomodels.Coordinates{Latitude: 33.5722, Longitude: 36.4031}
	existing := douma(3)
	existing.Location.Coordinates = coords
	existing.SourceURLs = []string{"https://example.org/a"}
	s.Require().NoError(s.records.Create(context.Background(), &existing))

	var batch []models.ViolationRecord
	wantURLs := []string{"https://example.org/a"}
	for i := range 5 {
		r := douma(4 + i)
		r.Location.Coordinates = coords
		url := fmt.Sprintf("https://example.org/%c", 'b'+i)
		r.SourceURLs = []string{url}
		batch = append(batch, r)
		wantURLs = append(wantURLs, url)
	}

	result := s.service.ProcessBatch(context.Background(), batch, "")

	s.Equal(5, result.Updated)
	s.Zero(result.Failed)
	for _, out := range result.Outcomes {
		s.Equal(existing.ID, out.RecordID)
	}
	stored, err := s.records.Get(context.Background(), existing.ID)
	s.Require().NoError(err)
	s.ElementsMatch(wantURLs, stored.SourceURLs)
	s.Equal(8, stored.Casualties)
	s.Equal(1, s.records.Len())
}

func (s *ProcessBatchSuite) TestRepeatedRecordInOneBatchIsStoredOnce() {
	r := douma(3)
	r.Location.Coordinates = &geomodels.Coordinates{Latitude: 33.5722, Longitude: 36.4031}

	result := s.service.ProcessBatch(context.Background(), []models.ViolationRecord{r, r}, "")

	s.Equal(1, result.Created)
	s.Equal(1, result.Skipped)
	s.Equal(result.Outcomes[0].RecordID, result.Outcomes[1].RecordID)
	s.Equal(1, s.records.Len())
	s.Len(s.publisher.Events(), 1)
}

func (s *ProcessBatchSuite) TestRecordsOutsideTheWindowAreIndependent() {
	coords := &geomodels.Coordinates{Latitude: 33.5722, Longitude: 36.4031}
	first := douma(3)
	first.Location.Coordinates = coords
	later := douma(3)
	later.Location.Coordinates = coords
	later.Date = first.Date.AddDate(0, 0, 10)

	result := s.newService(s.records, ingestion.WithCandidateWindow(1)).
		ProcessBatch(context.Background(), []models.ViolationRecord{first, later}, "")

	s.Equal(2, result.Created)
	s.Equal(2, s.records.Len())
}

func (s *ProcessBatchSuite) TestStoresRecordWhenResolutionFails() {
	s.resolver.EXPECT().
		Resolve(gomock.Any(), "Douma", "Rif Dimashq", gomock.Any()).
		Return(nil, dErrors.New(dErrors.CodeNotFound, "no backend found the place"))

	result := s.service.ProcessBatch(context.Background(), []models.ViolationRecord{douma(3)}, "")

	s.Equal(1, result.Created)
	out := result.Outcomes[0]
	s.Nil(out.Resolution)
	s.Require().NotNil(out.ResolutionError)
	s.Equal(dErrors.CodeNotFound, out.ResolutionError.Code)

	stored, err := s.records.Get(context.Background(), out.RecordID)
	s.Require().NoError(err)
	s.Nil(stored.Location.Coordinates)
}

func (s *ProcessBatchSuite) TestUsesArabicLocationWhenEnglishMissing() {
	r := douma(3)
	r.Location = models.Location{
		Name:                   models.LocalizedText{Ar: "دوما"},
		AdministrativeDivision: models.LocalizedText{Ar: "ريف دمشق"},
	}
	s.resolver.EXPECT().
		Resolve(gomock.Any(), "دوما", "ريف دمشق", gomock.Any()).
		Return(doumaResolution(), nil)

	result := s.service.ProcessBatch(context.Background(), []models.ViolationRecord{r}, "")
	s.Equal(1, result.Created)
}

func (s *ProcessBatchSuite) TestFailureDoesNotAffectSiblings() {
	records := &failingStore{InMemoryStore: s.records, failType: "DETENTION"}
	svc := s.newService(records)

	bad := douma(1)
	bad.Type = "DETENTION"
	bad.Location.Coordinates = &geomodels.Coordinates{Latitude: 33.5, Longitude: 36.3}
	good := douma(3)
	good.Location.Coordinates = &geomodels.Coordinates{Latitude: 33.5722, Longitude: 36.4031}

	result := svc.ProcessBatch(context.Background(), []models.ViolationRecord{bad, good}, "")

	s.Equal(1, result.Failed)
	s.Equal(1, result.Created)
	s.Equal(0, result.Outcomes[0].Index)
	s.Contains(result.Outcomes[0].Error, "disk full")
	s.Equal(1, result.Outcomes[1].Index)
	s.Empty(result.Outcomes[1].Error)
	s.Equal(1, s.records.Len())
}

func (s *ProcessBatchSuite) TestPublishFailureIsNotFatal() {
	s.publisher.err = errors.New("broker unreachable")
	r := douma(3)
	r.Location.Coordinates = &geomodels.Coordinates{Latitude: 33.5722, Longitude: 36.4031}

	result := s.service.ProcessBatch(context.Background(), []models.ViolationRecord{r}, "")

	s.Equal(1, result.Created)
	s.Empty(result.Outcomes[0].Error)
	s.Equal(1, s.records.Len())
}

func (s *ProcessBatchSuite) TestRecordTimeout() {
	svc := s.newService(s.records, ingestion.WithRecordTimeout(20*time.Millisecond))
	s.resolver.EXPECT().
		Resolve(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _, _ string, _ geomodels.Language) (*geomodels.Resolution, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		})

	result := svc.ProcessBatch(context.Background(), []models.ViolationRecord{douma(3)}, "")

	out := result.Outcomes[0]
	s.Require().NotNil(out.ResolutionError)
	s.Equal(dErrors.CodeTimeout, out.ResolutionError.Code)
}

func (s *ProcessBatchSuite) TestCallerCancellationDoesNotAbortRecords() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.resolver.EXPECT().
		Resolve(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _, _ string, _ geomodels.Language) (*geomodels.Resolution, error) {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			return doumaResolution(), nil
		})

	result := s.service.ProcessBatch(ctx, []models.ViolationRecord{douma(3)}, "")

	s.Equal(1, result.Created)
	s.NotNil(result.Outcomes[0].Resolution)
}

func TestProcessBatch_BoundedConcurrency(t *testing.T) {
	var inFlight, peak atomic.Int32
	resolver := resolverFunc(func(ctx context.Context, name, _ string, _ geomodels.Language) (*geomodels.Resolution, error) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		return doumaResolution(), nil
	})
	records := store.NewInMemoryStore()
	svc, err := ingestion.New(resolver, reconcile.New(records), records, ingestion.WithConcurrency(2))
	require.NoError(t, err)

	batch := make([]models.ViolationRecord, 10)
	for i := range batch {
		batch[i] = douma(i)
		batch[i].Type = fmt.Sprintf("TYPE_%d", i)
	}
	result := svc.ProcessBatch(context.Background(), batch, "")

	assert.Equal(t, 10, result.Created)
	assert.LessOrEqual(t, peak.Load(), int32(2))
	for i, out := range result.Outcomes {
		assert.Equal(t, i, out.Index)
	}
}

func TestNew_RequiresCollaborators(t *testing.T) {
	records := store.NewInMemoryStore()
	reconciler := reconcile.New(records)
	resolver := resolverFunc(nil)

	_, err := ingestion.New(nil, reconciler, records)
	assert.Error(t, err)
	_, err = ingestion.New(resolver, nil, records)
	assert.Error(t, err)
	_, err = ingestion.New(resolver, reconciler, nil)
	assert.Error(t, err)
	_, err = ingestion.New(resolver, reconciler, records)
	assert.NoError(t, err)
}

type resolverFunc func(ctx context.Context, name, admin string, lang geomodels.Language) (*geomodels.Resolution, error)

func (f resolverFunc) Resolve(ctx context.Context, name, admin string, lang geomodels.Language) (*geomodels.Resolution, error) {
	return f(ctx, name, admin, lang)
}
