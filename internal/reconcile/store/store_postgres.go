package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	geomodels "github.com/modullar/violations-tracker-backend-sub003/internal/geocoding/models"
	"github.com/modullar/violations-tracker-backend-sub003/internal/reconcile/models"
	"github.com/modullar/violations-tracker-backend-sub003/pkg/platform/sentinel"
	"github.com/modullar/violations-tracker-backend-sub003/pkg/requestcontext"
)

const violationsTable = "violations"

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

var violationColumns = []string{
	"id", "type", "date", "perpetrator_affiliation",
	"location_name_en", "location_name_ar", "admin_division_en", "admin_division_ar",
	"latitude", "longitude", "casualties", "description_en", "description_ar",
	"victims", "tags", "source_urls", "media_links",
	"created_by", "updated_by", "created_at", "updated_at",
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// PostgresStore persists records in the violations table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Create inserts a new record, assigning an ID when it has none.
func (s *PostgresStore) Create(ctx context.Context, record *models.ViolationRecord) error {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	now := requestcontext.Now(ctx)
	record.CreatedAt = now
	record.UpdatedAt = now

	lat, lon := coordinateArgs(record.Location.Coordinates)
	query, args, err := psql.Insert(violationsTable).
		Columns(violationColumns...).
		Values(
			record.ID, record.Type, record.Date, record.PerpetratorAffiliation,
			record.Location.Name.En, record.Location.Name.Ar,
			record.Location.AdministrativeDivision.En, record.Location.AdministrativeDivision.Ar,
			lat, lon, record.Casualties, record.Description.En, record.Description.Ar,
			orEmpty(record.Victims), orEmpty(record.Tags), orEmpty(record.SourceURLs), orEmpty(record.MediaLinks),
			record.CreatedBy, record.UpdatedBy, record.CreatedAt, record.UpdatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert violation %s: %w", record.ID, classify(err))
	}
	return nil
}

// Update overwrites the mutable columns of an existing record.
func (s *PostgresStore) Update(ctx context.Context, record *models.ViolationRecord) error {
	record.UpdatedAt = requestcontext.Now(ctx)

	lat, lon := coordinateArgs(record.Location.Coordinates)
	query, args, err := psql.Update(violationsTable).
		SetMap(map[string]any{
			"type":                    record.Type,
			"date":                    record.Date,
			"perpetrator_affiliation": record.PerpetratorAffiliation,
			"location_name_en":        record.Location.Name.En,
			"location_name_ar":        record.Location.Name.Ar,
			"admin_division_en":       record.Location.AdministrativeDivision.En,
			"admin_division_ar":       record.Location.AdministrativeDivision.Ar,
			"latitude":                lat,
			"longitude":               lon,
			"casualties":              record.Casualties,
			"description_en":          record.Description.En,
			"description_ar":          record.Description.Ar,
			"victims":                 orEmpty(record.Victims),
			"tags":                    orEmpty(record.Tags),
			"source_urls":             orEmpty(record.SourceURLs),
			"media_links":             orEmpty(record.MediaLinks),
			"updated_by":              record.UpdatedBy,
			"updated_at":              record.UpdatedAt,
		}).
		Where(squirrel.Eq{"id": record.ID}).
		Suffix("RETURNING created_by, created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}
	err = s.pool.QueryRow(ctx, query, args...).Scan(&record.CreatedBy, &record.CreatedAt)
	if err != nil {
		return fmt.Errorf("update violation %s: %w", record.ID, classify(err))
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id uuid.UUID) (*models.ViolationRecord, error) {
	query, args, err := psql.Select(violationColumns...).
		From(violationsTable).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}
	record, err := scanRecord(s.pool.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, fmt.Errorf("get violation %s: %w", id, classify(err))
	}
	return record, nil
}

// FindCandidates returns the newest records of q.Type dated within
// [q.From, q.To], optionally filtered by a case-insensitive location name
// substring.
func (s *PostgresStore) FindCandidates(ctx context.Context, q models.CandidateQuery) ([]models.ViolationRecord, error) {
	builder := psql.Select(violationColumns...).
		From(violationsTable).
		Where(squirrel.Eq{"type": q.Type}).
		Where(squirrel.GtOrEq{"date": q.From}).
		Where(squirrel.LtOrEq{"date": q.To}).
		OrderBy("date DESC", "created_at DESC")
	if name := strings.TrimSpace(q.LocationName); name != "" {
		pattern := "%" + likeEscaper.Replace(name) + "%"
		builder = builder.Where(squirrel.Or{
			squirrel.ILike{"location_name_en": pattern},
			squirrel.ILike{"location_name_ar": pattern},
		})
	}
	if q.Limit > 0 {
		builder = builder.Limit(uint64(q.Limit))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build candidate query: %w", err)
	}
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query candidates: %w", classify(err))
	}
	defer rows.Close()

	var out []models.ViolationRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		out = append(out, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candidates: %w", classify(err))
	}
	return out, nil
}

func scanRecord(row pgx.Row) (*models.ViolationRecord, error) {
	var (
		r        models.ViolationRecord
		lat, lon *float64
	)
	err := row.Scan(
		&r.ID, &r.Type, &r.Date, &r.PerpetratorAffiliation,
		&r.Location.Name.En, &r.Location.Name.Ar,
		&r.Location.AdministrativeDivision.En, &r.Location.AdministrativeDivision.Ar,
		&lat, &lon, &r.Casualties, &r.Description.En, &r.Description.Ar,
		&r.Victims, &r.Tags, &r.SourceURLs, &r.MediaLinks,
		&r.CreatedBy, &r.UpdatedBy, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if lat != nil && lon != nil {
		r.Location.Coordinates = &geomodels.Coordinates{Latitude: *lat, Longitude: *lon}
	}
	return &r, nil
}

func coordinateArgs(c *geomodels.Coordinates) (lat, lon *float64) {
	if c == nil {
		return nil, nil
	}
	return &c.Latitude, &c.Longitude
}

// orEmpty keeps NOT NULL array and jsonb columns from receiving NULL.
func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func classify(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return sentinel.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == "23505":
			return errors.Join(sentinel.ErrConflict, err)
		case strings.HasPrefix(pgErr.Code, "08"), pgErr.Code == "57P01", pgErr.Code == "57P03":
			return errors.Join(sentinel.ErrUnavailable, err)
		}
		return err
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return errors.Join(sentinel.ErrUnavailable, err)
	}
	return err
}
