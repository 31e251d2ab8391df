package recommend

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/FACorreiaa/go-trip-planner/internal/api/poi"
	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

// Enricher turns raw matches into candidates carrying catalog data.
type Enricher struct {
	repo   poi.Repository
	logger *slog.Logger
}

func NewEnricher(repo poi.Repository, logger *slog.Logger) *Enricher {
	return &Enricher{repo: repo, logger: logger}
}

// Enrich keeps the first match per place, drops excluded places and joins the
// rest with the catalog. Places missing from the catalog disappear; a missing
// description is left empty. Match order is preserved.
func (e *Enricher) Enrich(ctx context.Context, matches []types.Match, exclude map[uuid.UUID]struct{}) ([]types.Candidate, error) {
	seen := make(map[uuid.UUID]struct{}, len(matches))
	kept := make([]types.Match, 0, len(matches))
	for _, m := range matches {
		if _, dup := seen[m.PlaceID]; dup {
			continue
		}
		seen[m.PlaceID] = struct{}{}
		if _, skip := exclude[m.PlaceID]; skip {
			continue
		}
		kept = append(kept, m)
	}
	if len(kept) == 0 {
		return nil, nil
	}

	ids := make([]uuid.UUID, len(kept))
	for i, m := range kept {
		ids[i] = m.PlaceID
	}

	places, err := e.repo.GetPlacesByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load candidate places: %w", err)
	}
	byID := make(map[uuid.UUID]types.Place, len(places))
	for _, p := range places {
		byID[p.ID] = p
	}

	descriptions, err := e.repo.GetDescriptions(ctx, ids)
	if err != nil {
		e.logger.WarnContext(ctx, "Descriptions unavailable, continuing without them", slog.Any("error", err))
		descriptions = nil
	}

	candidates := make([]types.Candidate, 0, len(kept))
	for _, m := range kept {
		place, ok := byID[m.PlaceID]
		if !ok {
			continue
		}
		place.Description = descriptions[m.PlaceID]
		candidates = append(candidates, types.Candidate{
			Place:           place,
			SimilarityScore: m.SimilarityScore,
			SourceQuery:     m.SourceQuery,
		})
	}
	return candidates, nil
}
