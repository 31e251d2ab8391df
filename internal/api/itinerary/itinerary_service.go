package itinerary

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
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/FACorreiaa/go-trip-planner/app/observability/metrics"
	generativeAI "github.com/FACorreiaa/go-trip-planner/internal/api/generative_ai"
	"github.com/FACorreiaa/go-trip-planner/internal/api/query"
	"github.com/FACorreiaa/go-trip-planner/internal/api/recommend"
	"github.com/FACorreiaa/go-trip-planner/internal/api/weather"
	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

const (
	forecastDays    = 7
	prefetchWorkers = 4
)

// ErrAllQueriesFailed is returned when no query could be processed at all.
var ErrAllQueriesFailed = errors.New("every query failed")

// Scheduler places day plans on calendar dates.
type Scheduler interface {
	Schedule(ctx context.Context, itineraries []types.QueryItinerary, loc types.UserLocation, start, end time.Time) types.SchedulingResult
}

// Service plans and schedules a whole trip request.
type Service interface {
	Schedule(ctx context.Context, req types.TripRequest) (types.ScheduleResponse, error)
}

var _ Service = (*ServiceImpl)(nil)

type ServiceImpl struct {
	recommender recommend.Service
	encoder     generativeAI.Encoder
	scheduler   Scheduler
	forecaster  weather.Provider
	now         func() time.Time
	logger      *slog.Logger
}

func NewServiceImpl(recommender recommend.Service, encoder generativeAI.Encoder, scheduler Scheduler,
	forecaster weather.Provider, now func() time.Time, logger *slog.Logger) *ServiceImpl {
	if now == nil {
		now = time.Now
	}
	return &ServiceImpl{
		recommender: recommender,
		encoder:     encoder,
		scheduler:   scheduler,
		forecaster:  forecaster,
		now:         now,
		logger:      logger,
	}
}

// Schedule builds one day plan per query, claiming places so that no two
// plans of the request share one, then spreads the plans over the date range.
func (s *ServiceImpl) Schedule(ctx context.Context, req types.TripRequest) (types.ScheduleResponse, error) {
	ctx, span := otel.Tracer("ItineraryService").Start(ctx, "Schedule", trace.WithAttributes(
		attribute.Int("queries.count", len(req.Queries)),
		attribute.Float64("user.lat", req.Location.UserLat),
		attribute.Float64("user.lon", req.Location.UserLon),
		attribute.String("start_date", weather.DateKey(req.StartDate)),
		attribute.String("end_date", weather.DateKey(req.EndDate)),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "Schedule"))
	start := time.Now()
	outcome := "ok"
	defer func() {
		attrs := metric.WithAttributes(attribute.String("outcome", outcome))
		metrics.Get().ScheduleRequestsTotal.Add(ctx, 1, attrs)
		metrics.Get().ScheduleDurationSeconds.Record(ctx, time.Since(start).Seconds(), attrs)
	}()

	s.prefetch(ctx, l, req.Queries)

	used := make(map[uuid.UUID]struct{})
	var planned []types.QueryItinerary
	var unmatched []string
	failures := 0
	for _, q := range req.Queries {
		day, err := s.recommender.Recommend(ctx, q, req.Location, used)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				outcome = "canceled"
				span.RecordError(ctxErr)
				span.SetStatus(codes.Error, "Request canceled")
				return types.ScheduleResponse{}, fmt.Errorf("failed to plan query %q: %w", q, ctxErr)
			}
			failures++
			l.ErrorContext(ctx, "Failed to plan query, skipping", slog.String("query", q), slog.Any("error", err))
			span.RecordError(err)
			unmatched = append(unmatched, q)
			continue
		}
		if day.IsEmpty() {
			l.InfoContext(ctx, "No itinerary for query", slog.String("query", q))
			unmatched = append(unmatched, q)
			continue
		}
		for _, id := range day.PlaceIDs() {
			used[id] = struct{}{}
		}
		planned = append(planned, types.QueryItinerary{Query: q, Itinerary: day})
	}

	if len(req.Queries) > 0 && failures == len(req.Queries) {
		outcome = "error"
		span.SetStatus(codes.Error, "All queries failed")
		return types.ScheduleResponse{}, ErrAllQueriesFailed
	}

	result := s.scheduler.Schedule(ctx, planned, req.Location, req.StartDate, req.EndDate)

	resp := types.ScheduleResponse{
		ScheduledItineraries: result.Scheduled,
		NeedsReschedule:      result.NeedsReschedule,
		DailyForecast:        s.dailyForecast(ctx, l, req.Location),
		UnmatchedQueries:     unmatched,
	}
	if resp.ScheduledItineraries == nil {
		resp.ScheduledItineraries = []types.ScheduledDay{}
	}

	l.InfoContext(ctx, "Trip scheduled",
		slog.Int("planned", len(planned)),
		slog.Int("unmatched", len(unmatched)),
		slog.Bool("needs_reschedule", resp.NeedsReschedule))
	span.SetAttributes(
		attribute.Int("planned.count", len(planned)),
		attribute.Int("unmatched.count", len(unmatched)),
	)
	span.SetStatus(codes.Ok, "Trip scheduled")
	return resp, nil
}

// prefetch warms the encoder cache with every sub-query of the request so the
// sequential planning loop only waits on retrieval. Failures are left for the
// planning loop to surface.
func (s *ServiceImpl) prefetch(ctx context.Context, l *slog.Logger, queries []string) {
	if s.encoder == nil {
		return
	}
	seen := make(map[string]struct{})
	var subQueries []string
	for _, q := range queries {
		for _, sq := range query.Decompose(q) {
			if _, ok := seen[sq]; ok {
				continue
			}
			seen[sq] = struct{}{}
			subQueries = append(subQueries, sq)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(prefetchWorkers)
	for _, sq := range subQueries {
		g.Go(func() error {
			if _, err := s.encoder.Encode(gctx, sq); err != nil {
				return fmt.Errorf("failed to encode %q: %w", sq, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		l.WarnContext(ctx, "Sub-query prefetch incomplete", slog.Any("error", err))
	}
}

func (s *ServiceImpl) dailyForecast(ctx context.Context, l *slog.Logger, loc types.UserLocation) []types.DailyForecast {
	if s.forecaster == nil {
		return []types.DailyForecast{}
	}
	today := s.now()
	records, err := s.forecaster.Forecast(ctx, loc.UserLat, loc.UserLon, today, today.AddDate(0, 0, forecastDays-1))
	if err != nil {
		l.WarnContext(ctx, "Daily forecast unavailable", slog.Any("error", err))
		return []types.DailyForecast{}
	}
	return weather.SummarizeDaily(records)
}
