package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	generativeAI "github.com/FACorreiaa/go-trip-planner/internal/api/generative_ai"
	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

const DefaultBatchSize = 100

// Catalog is the part of the place repository the builder reads.
type Catalog interface {
	ListPlaces(ctx context.Context, limit, offset int) ([]types.Place, error)
	GetDescriptions(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error)
}

// EmbeddingText is the text a place is indexed under: its generated
// description, or its name and tags when there is none.
func EmbeddingText(p types.Place, description string) string {
	if d := strings.TrimSpace(description); d != "" {
		return d
	}
	if len(p.Tags) == 0 {
		return p.Name
	}
	return fmt.Sprintf("%s. Tags include: %s", p.Name, strings.Join(p.Tags, ", "))
}

// BuildFromCatalog pages through the catalog, encodes every place and builds
// a flat index whose positions follow catalog order.
func BuildFromCatalog(ctx context.Context, catalog Catalog, encoder generativeAI.Encoder, batchSize int, logger *slog.Logger) (*FlatIndex, error) {
	ctx, span := otel.Tracer("IndexBuilder").Start(ctx, "BuildFromCatalog", trace.WithAttributes(
		attribute.Int("batch_size", batchSize),
	))
	defer span.End()

	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	var ids []uuid.UUID
	var matrix [][]float32
	for offset := 0; ; offset += batchSize {
		places, err := catalog.ListPlaces(ctx, batchSize, offset)
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("failed to list places at offset %d: %w", offset, err)
		}
		if len(places) == 0 {
			break
		}

		batchIDs := make([]uuid.UUID, len(places))
		for i, p := range places {
			batchIDs[i] = p.ID
		}
		descriptions, err := catalog.GetDescriptions(ctx, batchIDs)
		if err != nil {
			logger.WarnContext(ctx, "Descriptions unavailable, indexing names only", slog.Any("error", err))
			descriptions = nil
		}

		texts := make([]string, len(places))
		for i, p := range places {
			texts[i] = EmbeddingText(p, descriptions[p.ID])
		}
		vectors, err := encoder.EncodeBatch(ctx, texts)
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("failed to encode places at offset %d: %w", offset, err)
		}

		ids = append(ids, batchIDs...)
		matrix = append(matrix, vectors...)
		logger.InfoContext(ctx, "Encoded batch", slog.Int("offset", offset), slog.Int("places", len(places)))

		if len(places) < batchSize {
			break
		}
	}

	span.SetAttributes(attribute.Int("places.count", len(ids)))
	return BuildFlatIndex(ids, matrix)
}
