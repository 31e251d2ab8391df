package poi

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

var _ Repository = (*RepositoryImpl)(nil)

// Repository is the read side of the place catalog.
type Repository interface {
	// GetPlacesByIDs returns every place that still exists; unknown ids are absent.
	GetPlacesByIDs(ctx context.Context, ids []uuid.UUID) ([]types.Place, error)
	// GetDescriptions returns generated descriptions keyed by place id.
	GetDescriptions(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error)
	// ListPlaces pages through the whole catalog ordered by id.
	ListPlaces(ctx context.Context, limit, offset int) ([]types.Place, error)
}

// DB is the subset of pgxpool.Pool used by the repository.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type RepositoryImpl struct {
	logger *slog.Logger
	pgpool DB
}

func NewRepository(pgpool DB, logger *slog.Logger) *RepositoryImpl {
	return &RepositoryImpl{
		logger: logger,
		pgpool: pgpool,
	}
}

const placeColumns = `
            id,
            name,
            region,
            primary_category,
            tags,
            operating_hours,
            meal_type,
            ST_Y(geom::geometry) AS latitude,
            ST_X(geom::geometry) AS longitude,
            indoor_outdoor,
            website,
            naver_url`

func (r *RepositoryImpl) GetPlacesByIDs(ctx context.Context, ids []uuid.UUID) ([]types.Place, error) {
	ctx, span := otel.Tracer("PlaceRepository").Start(ctx, "GetPlacesByIDs", trace.WithAttributes(
		attribute.Int("ids.count", len(ids)),
	))
	defer span.End()

	if len(ids) == 0 {
		return nil, nil
	}

	l := r.logger.With(slog.String("method", "GetPlacesByIDs"))

	query := `SELECT` + placeColumns + `
        FROM locations
        WHERE id = ANY($1)`

	rows, err := r.pgpool.Query(ctx, query, ids)
	if err != nil {
		l.ErrorContext(ctx, "Failed to query places", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Database query failed")
		return nil, fmt.Errorf("failed to query places: %w", err)
	}
	defer rows.Close()

	places, err := r.scanPlaces(ctx, rows)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	l.DebugContext(ctx, "Places fetched", slog.Int("requested", len(ids)), slog.Int("found", len(places)))
	span.SetAttributes(attribute.Int("places.count", len(places)))
	span.SetStatus(codes.Ok, "Places fetched")
	return places, nil
}

func (r *RepositoryImpl) ListPlaces(ctx context.Context, limit, offset int) ([]types.Place, error) {
	ctx, span := otel.Tracer("PlaceRepository").Start(ctx, "ListPlaces", trace.WithAttributes(
		attribute.Int("limit", limit),
		attribute.Int("offset", offset),
	))
	defer span.End()

	query := `SELECT` + placeColumns + `
        FROM locations
        ORDER BY id
        LIMIT $1 OFFSET $2`

	rows, err := r.pgpool.Query(ctx, query, limit, offset)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list places: %w", err)
	}
	defer rows.Close()

	return r.scanPlaces(ctx, rows)
}

func (r *RepositoryImpl) GetDescriptions(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	ctx, span := otel.Tracer("PlaceRepository").Start(ctx, "GetDescriptions", trace.WithAttributes(
		attribute.Int("ids.count", len(ids)),
	))
	defer span.End()

	descriptions := make(map[uuid.UUID]string, len(ids))
	if len(ids) == 0 {
		return descriptions, nil
	}

	query := `
        SELECT place_id, description
        FROM place_descriptions
        WHERE place_id = ANY($1)`

	rows, err := r.pgpool.Query(ctx, query, ids)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Database query failed")
		return nil, fmt.Errorf("failed to query place descriptions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id uuid.UUID
		var description sql.NullString
		if err := rows.Scan(&id, &description); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("failed to scan place description row: %w", err)
		}
		if description.Valid {
			descriptions[id] = description.String
		}
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("error iterating place description rows: %w", err)
	}

	return descriptions, nil
}

func (r *RepositoryImpl) scanPlaces(ctx context.Context, rows pgx.Rows) ([]types.Place, error) {
	var places []types.Place
	for rows.Next() {
		var p types.Place
		var hoursJSON []byte
		var mealType, indoorOutdoor, website, naverURL sql.NullString

		err := rows.Scan(
			&p.ID,
			&p.Name,
			&p.Region,
			&p.PrimaryCategory,
			&p.Tags,
			&hoursJSON,
			&mealType,
			&p.Latitude,
			&p.Longitude,
			&indoorOutdoor,
			&website,
			&naverURL,
		)
		if err != nil {
			r.logger.ErrorContext(ctx, "Failed to scan place row", slog.Any("error", err))
			return nil, fmt.Errorf("failed to scan place row: %w", err)
		}

		p.Region = strings.TrimSpace(p.Region)
		p.MealType = mealType.String
		p.IndoorOutdoor = strings.ToLower(strings.TrimSpace(indoorOutdoor.String))
		p.Website = website.String
		p.ExternalURL = naverURL.String

		if len(hoursJSON) > 0 {
			if err := json.Unmarshal(hoursJSON, &p.OperatingHours); err != nil {
				// unreadable hours make the place count as closed
				r.logger.WarnContext(ctx, "Malformed operating hours",
					slog.String("place_id", p.ID.String()),
					slog.Any("error", err))
				p.OperatingHours = nil
			}
		}

		places = append(places, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating place rows: %w", err)
	}
	return places, nil
}
