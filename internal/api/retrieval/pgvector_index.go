package retrieval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DB is the subset of pgxpool.Pool used by PgVectorIndex.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

var _ Index = (*PgVectorIndex)(nil)

// PgVectorIndex stores the index in the place_embeddings table and answers
// queries with the pgvector negative inner product operator.
type PgVectorIndex struct {
	logger *slog.Logger
	pgpool DB
}

func NewPgVectorIndex(pgpool DB, logger *slog.Logger) *PgVectorIndex {
	return &PgVectorIndex{
		logger: logger,
		pgpool: pgpool,
	}
}

func (p *PgVectorIndex) Search(ctx context.Context, query []float32, k int) ([]Hit, error) {
	ctx, span := otel.Tracer("PgVectorIndex").Start(ctx, "Search", trace.WithAttributes(
		attribute.Int("k", k),
	))
	defer span.End()

	if k <= 0 {
		return nil, nil
	}

	sql := `
        SELECT position, -(embedding <#> $1) AS score
        FROM place_embeddings
        ORDER BY embedding <#> $1, position
        LIMIT $2`

	rows, err := p.pgpool.Query(ctx, sql, pgvector.NewVector(query), k)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Vector search failed")
		return nil, fmt.Errorf("failed to search place embeddings: %w", err)
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		var h Hit
		if err := rows.Scan(&h.Position, &h.Score); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("failed to scan vector hit: %w", err)
		}
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("error iterating vector hits: %w", err)
	}

	span.SetAttributes(attribute.Int("hits.count", len(hits)))
	return hits, nil
}

// LoadIDs returns the parallel id array ordered by position.
func (p *PgVectorIndex) LoadIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := p.pgpool.Query(ctx, `SELECT place_id FROM place_embeddings ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("failed to load index ids: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan index id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// LoadFlatIndex reads every stored embedding into an in-memory index.
func (p *PgVectorIndex) LoadFlatIndex(ctx context.Context) (*FlatIndex, error) {
	ctx, span := otel.Tracer("PgVectorIndex").Start(ctx, "LoadFlatIndex")
	defer span.End()

	rows, err := p.pgpool.Query(ctx, `SELECT place_id, embedding FROM place_embeddings ORDER BY position`)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to load place embeddings: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	var matrix [][]float32
	for rows.Next() {
		var id uuid.UUID
		var vec pgvector.Vector
		if err := rows.Scan(&id, &vec); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("failed to scan place embedding: %w", err)
		}
		ids = append(ids, id)
		matrix = append(matrix, vec.Slice())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating place embeddings: %w", err)
	}

	p.logger.InfoContext(ctx, "Loaded vector index", slog.Int("vectors", len(ids)))
	return BuildFlatIndex(ids, matrix)
}

// Persist replaces the stored index with idx in a single transaction.
func (p *PgVectorIndex) Persist(ctx context.Context, idx *FlatIndex) (err error) {
	ctx, span := otel.Tracer("PgVectorIndex").Start(ctx, "Persist", trace.WithAttributes(
		attribute.Int("vectors", idx.Len()),
	))
	defer span.End()

	tx, err := p.pgpool.Begin(ctx)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err == nil {
			return
		}
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			p.logger.WarnContext(ctx, "Rollback failed", slog.Any("error", rbErr))
		}
	}()

	if _, err = tx.Exec(ctx, `TRUNCATE place_embeddings`); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to truncate place embeddings: %w", err)
	}

	ids := idx.IDs()
	rows := make([][]any, idx.Len())
	for i := range rows {
		rows[i] = []any{i, ids[i], pgvector.NewVector(idx.Vector(i))}
	}
	copied, err := tx.CopyFrom(ctx,
		pgx.Identifier{"place_embeddings"},
		[]string{"position", "place_id", "embedding"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Copy failed")
		return fmt.Errorf("failed to copy place embeddings: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to commit place embeddings: %w", err)
	}

	p.logger.InfoContext(ctx, "Persisted vector index", slog.Int64("rows", copied))
	span.SetStatus(codes.Ok, "Index persisted")
	return nil
}
