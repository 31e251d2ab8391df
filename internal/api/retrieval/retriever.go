package retrieval

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	generativeAI "github.com/FACorreiaa/go-trip-planner/internal/api/generative_ai"
	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

const DefaultTopK = 20

// Retriever maps a sub-query to the nearest catalog places.
type Retriever struct {
	encoder generativeAI.Encoder
	index   Index
	ids     []uuid.UUID
	topK    int
	logger  *slog.Logger
}

// NewRetriever pairs an index with its parallel id array.
func NewRetriever(encoder generativeAI.Encoder, index Index, ids []uuid.UUID, topK int, logger *slog.Logger) *Retriever {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Retriever{
		encoder: encoder,
		index:   index,
		ids:     ids,
		topK:    topK,
		logger:  logger,
	}
}

func (r *Retriever) TopK() int { return r.topK }

// Encoder exposes the encoder so callers can warm its cache.
func (r *Retriever) Encoder() generativeAI.Encoder { return r.encoder }

// Retrieve returns up to k matches for subQuery, highest similarity first.
// Places in exclude are dropped after the index lookup, so fewer than k
// matches may come back.
func (r *Retriever) Retrieve(ctx context.Context, subQuery string, k int, exclude map[uuid.UUID]struct{}) ([]types.Match, error) {
	ctx, span := otel.Tracer("Retriever").Start(ctx, "Retrieve", trace.WithAttributes(
		attribute.String("sub_query", subQuery),
		attribute.Int("k", k),
	))
	defer span.End()

	if k <= 0 {
		k = r.topK
	}

	vec, err := r.encoder.Encode(ctx, subQuery)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Encoding failed")
		return nil, fmt.Errorf("failed to encode sub-query %q: %w", subQuery, err)
	}

	hits, err := r.index.Search(ctx, Normalize(vec), k)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Index search failed")
		return nil, fmt.Errorf("failed to search index: %w", err)
	}

	matches := make([]types.Match, 0, len(hits))
	for _, h := range hits {
		if h.Position < 0 || h.Position >= len(r.ids) {
			r.logger.WarnContext(ctx, "Index position outside id array",
				slog.Int("position", h.Position), slog.Int("ids", len(r.ids)))
			continue
		}
		id := r.ids[h.Position]
		if _, skip := exclude[id]; skip {
			continue
		}
		matches = append(matches, types.Match{
			PlaceID:         id,
			SimilarityScore: h.Score,
			SourceQuery:     subQuery,
		})
	}

	span.SetAttributes(attribute.Int("matches.count", len(matches)))
	span.SetStatus(codes.Ok, "Retrieved")
	return matches, nil
}
