package itinerary

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-trip-planner/internal/api"
	"github.com/FACorreiaa/go-trip-planner/internal/api/weather"
	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

const (
	maxQueries  = 10
	maxTripDays = 30
)

type HandlerImpl struct {
	service Service
	logger  *slog.Logger
}

func NewHandlerImpl(service Service, logger *slog.Logger) *HandlerImpl {
	return &HandlerImpl{
		service: service,
		logger:  logger,
	}
}

// ScheduleItineraries godoc
// @Summary      Schedule Itineraries
// @Description  Plans one day per query and places the days on the requested date range with the forecast.
// @Tags         Itineraries
// @Accept       json
// @Produce      json
// @Param        request body types.ScheduleRequest true "Queries, user location and trip dates"
// @Success      200 {object} types.ScheduleResponse "Scheduled itineraries"
// @Failure      400 {object} types.Response "Invalid Input"
// @Failure      500 {object} types.Response "Internal Server Error"
// @Router       /api/v1/itineraries/schedule [post]
func (h *HandlerImpl) ScheduleItineraries(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("ItineraryHandler").Start(r.Context(), "ScheduleItineraries", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/api/v1/itineraries/schedule"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "ScheduleItineraries"))

	var body types.ScheduleRequest
	if err := api.DecodeJSONBody(w, r, &body); err != nil {
		l.WarnContext(ctx, "Failed to decode request body", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Invalid request body")
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	req, err := ValidateRequest(body)
	if err != nil {
		l.WarnContext(ctx, "Invalid schedule request", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Invalid request")
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	span.SetAttributes(attribute.Int("queries.count", len(req.Queries)))

	resp, err := h.service.Schedule(ctx, req)
	if err != nil {
		l.ErrorContext(ctx, "Failed to schedule itineraries", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to schedule itineraries")
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to schedule itineraries")
		return
	}

	span.SetStatus(codes.Ok, "Itineraries scheduled")
	api.WriteJSONResponse(w, r, http.StatusOK, resp)
}

// ValidateRequest trims the queries and parses the YYYY-MM-DD dates.
func ValidateRequest(body types.ScheduleRequest) (types.TripRequest, error) {
	var queries []string
	for _, q := range body.Queries {
		if q = strings.TrimSpace(q); q != "" {
			queries = append(queries, q)
		}
	}
	if len(queries) == 0 {
		return types.TripRequest{}, errors.New("at least one query is required")
	}
	if len(queries) > maxQueries {
		return types.TripRequest{}, fmt.Errorf("at most %d queries are allowed", maxQueries)
	}
	if body.UserLat < -90 || body.UserLat > 90 {
		return types.TripRequest{}, fmt.Errorf("user_lat %v is out of range", body.UserLat)
	}
	if body.UserLon < -180 || body.UserLon > 180 {
		return types.TripRequest{}, fmt.Errorf("user_lon %v is out of range", body.UserLon)
	}

	start, err := time.Parse(weather.DateLayout, body.StartDate)
	if err != nil {
		return types.TripRequest{}, fmt.Errorf("start_date must be YYYY-MM-DD: %w", err)
	}
	end, err := time.Parse(weather.DateLayout, body.EndDate)
	if err != nil {
		return types.TripRequest{}, fmt.Errorf("end_date must be YYYY-MM-DD: %w", err)
	}
	if end.Sub(start) >= maxTripDays*24*time.Hour {
		return types.TripRequest{}, fmt.Errorf("trip may span at most %d days", maxTripDays)
	}

	return types.TripRequest{
		Queries:   queries,
		Location:  types.UserLocation{UserLat: body.UserLat, UserLon: body.UserLon},
		StartDate: start,
		EndDate:   end,
	}, nil
}
