package recommend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-trip-planner/app/observability/metrics"
	"github.com/FACorreiaa/go-trip-planner/internal/api/poi"
	"github.com/FACorreiaa/go-trip-planner/internal/api/query"
	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

var ErrNoCandidates = errors.New("no candidates left for query")

// Retriever finds the nearest catalog places for one sub-query.
type Retriever interface {
	Retrieve(ctx context.Context, subQuery string, k int, exclude map[uuid.UUID]struct{}) ([]types.Match, error)
}

// DayPlanner assigns scored candidates to the daily template.
type DayPlanner interface {
	Plan(ctx context.Context, candidates []types.Candidate, mustHaves []string) (types.DayItinerary, error)
}

// Service builds one day plan per free-text query.
type Service interface {
	Recommend(ctx context.Context, q string, loc types.UserLocation, exclude map[uuid.UUID]struct{}) (types.DayItinerary, error)
}

var _ Service = (*ServiceImpl)(nil)

type ServiceImpl struct {
	retriever Retriever
	enricher  *Enricher
	planner   DayPlanner
	topK      int
	now       func() time.Time
	logger    *slog.Logger
}

func NewServiceImpl(retriever Retriever, repo poi.Repository, planner DayPlanner, topK int, now func() time.Time, logger *slog.Logger) *ServiceImpl {
	if now == nil {
		now = time.Now
	}
	return &ServiceImpl{
		retriever: retriever,
		enricher:  NewEnricher(repo, logger),
		planner:   planner,
		topK:      topK,
		now:       now,
		logger:    logger,
	}
}

// Recommend runs decomposition through planning for q. Running out of
// candidates is an empty itinerary, not an error.
func (s *ServiceImpl) Recommend(ctx context.Context, q string, loc types.UserLocation, exclude map[uuid.UUID]struct{}) (types.DayItinerary, error) {
	ctx, span := otel.Tracer("RecommendService").Start(ctx, "Recommend", trace.WithAttributes(
		attribute.String("query", q),
		attribute.Int("exclude.count", len(exclude)),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "Recommend"), slog.String("query", q))
	start := time.Now()
	defer func() {
		metrics.Get().RecommendDurationSeconds.Record(ctx, time.Since(start).Seconds())
	}()

	subQueries := query.Decompose(q)
	l.DebugContext(ctx, "Query decomposed", slog.Any("sub_queries", subQueries))

	candidates, err := s.candidates(ctx, subQueries, loc, exclude)
	if err != nil {
		if errors.Is(err, ErrNoCandidates) {
			l.InfoContext(ctx, "No candidates for query")
			span.SetStatus(codes.Ok, "No candidates")
			return types.DayItinerary{}, nil
		}
		l.ErrorContext(ctx, "Failed to build candidates", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Candidate generation failed")
		return types.DayItinerary{}, err
	}

	mustHaves := ExtractMustHaves(subQueries, candidates)
	if len(mustHaves) > 0 {
		l.InfoContext(ctx, "Applying hard constraints", slog.Any("must_haves", mustHaves))
	}

	day, err := s.planner.Plan(ctx, candidates, mustHaves)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Planning failed")
		return types.DayItinerary{}, fmt.Errorf("failed to plan day: %w", err)
	}

	span.SetAttributes(attribute.Int("steps.count", len(day.Steps)))
	span.SetStatus(codes.Ok, "Day recommended")
	return day, nil
}

// candidates returns the scored candidates of the winning region, best first.
func (s *ServiceImpl) candidates(ctx context.Context, subQueries []string, loc types.UserLocation, exclude map[uuid.UUID]struct{}) ([]types.Candidate, error) {
	var pool []types.Match
	for _, sq := range subQueries {
		matches, err := s.retriever.Retrieve(ctx, sq, s.topK, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to retrieve candidates for %q: %w", sq, err)
		}
		pool = append(pool, matches...)
	}
	if len(pool) == 0 {
		return nil, ErrNoCandidates
	}

	enriched, err := s.enricher.Enrich(ctx, pool, exclude)
	if err != nil {
		return nil, err
	}
	if len(enriched) == 0 {
		return nil, ErrNoCandidates
	}

	region, inRegion := SelectRegion(enriched)
	s.logger.DebugContext(ctx, "Winning region", slog.String("region", region), slog.Int("candidates", len(inRegion)))
	if len(inRegion) == 0 {
		return nil, ErrNoCandidates
	}

	return Score(inRegion, loc, s.now()), nil
}
