package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-trip-planner/internal/api/weather"
	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

const (
	DefaultHorizonDays = 7

	NoForecastStatus = "no forecast available"
	OutdoorWarning   = "⚠️ Weather may not be ideal for these outdoor activities."

	daytimeStartHour = 9
	daytimeEndHour   = 18
	outdoorThreshold = 0.5
)

var keyHours = map[int]bool{12: true, 15: true, 18: true, 21: true}

// Scheduler places single-day itineraries on calendar dates and annotates them
// with the forecast.
type Scheduler struct {
	provider    weather.Provider
	horizonDays int
	now         func() time.Time
	logger      *slog.Logger
}

func New(provider weather.Provider, horizonDays int, now func() time.Time, logger *slog.Logger) *Scheduler {
	if horizonDays <= 0 {
		horizonDays = DefaultHorizonDays
	}
	if now == nil {
		now = time.Now
	}
	return &Scheduler{
		provider:    provider,
		horizonDays: horizonDays,
		now:         now,
		logger:      logger,
	}
}

// Schedule assigns the i-th itinerary to date[i mod len(dates)]. A forecast
// failure never fails the schedule; affected days read "no forecast available".
func (s *Scheduler) Schedule(ctx context.Context, itineraries []types.QueryItinerary, loc types.UserLocation, start, end time.Time) types.SchedulingResult {
	ctx, span := otel.Tracer("ItineraryScheduler").Start(ctx, "Schedule", trace.WithAttributes(
		attribute.Int("itineraries.count", len(itineraries)),
		attribute.String("start", weather.DateKey(start)),
		attribute.String("end", weather.DateKey(end)),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "Schedule"))

	days := DateRange(start, end)
	records := s.forecast(ctx, l, loc, days[0], days[len(days)-1])

	scheduled := make([]types.ScheduledDay, 0, len(itineraries))
	for i, qi := range itineraries {
		day := days[i%len(days)]
		scheduled = append(scheduled, scheduleDay(qi, day, forDate(records, day)))
	}

	result := types.SchedulingResult{
		Scheduled:       scheduled,
		NeedsReschedule: NeedsReschedule(scheduled),
	}
	l.InfoContext(ctx, "Itineraries scheduled",
		slog.Int("days", len(days)),
		slog.Int("forecast_records", len(records)),
		slog.Bool("needs_reschedule", result.NeedsReschedule))
	span.SetAttributes(attribute.Bool("needs_reschedule", result.NeedsReschedule))
	span.SetStatus(codes.Ok, "Itineraries scheduled")
	return result
}

func (s *Scheduler) forecast(ctx context.Context, l *slog.Logger, loc types.UserLocation, first, last time.Time) []types.ForecastRecord {
	if s.provider == nil {
		return nil
	}
	horizon := truncateDay(s.now()).AddDate(0, 0, s.horizonDays)
	forecastEnd := last
	if horizon.Before(forecastEnd) {
		forecastEnd = horizon
	}
	if forecastEnd.Before(first) {
		l.DebugContext(ctx, "Trip starts beyond the forecast horizon")
		return nil
	}

	records, err := s.provider.Forecast(ctx, loc.UserLat, loc.UserLon, first, forecastEnd)
	if err != nil {
		l.ErrorContext(ctx, "Failed to fetch forecast, scheduling without weather", slog.Any("error", err))
		return nil
	}
	return records
}

func scheduleDay(qi types.QueryItinerary, day time.Time, dayRecords []types.ForecastRecord) types.ScheduledDay {
	status := NoForecastStatus
	var warning *string

	if !qi.Itinerary.IsEmpty() {
		good := true
		if len(dayRecords) > 0 {
			var keyRecords []types.ForecastRecord
			for _, r := range dayRecords {
				if keyHours[r.DateTime.Hour()] {
					keyRecords = append(keyRecords, r)
				}
			}
			if len(keyRecords) > 0 {
				good = allGood(keyRecords)
				status = FormatStatus(keyRecords)
			}
			if qi.Itinerary.OutdoorRatio() > outdoorThreshold && !good {
				w := OutdoorWarning
				warning = &w
			}
		}
	}

	itinerary := qi.Itinerary
	if len(itinerary.Steps) > 0 {
		steps := make([]types.ItineraryStep, len(itinerary.Steps))
		copy(steps, itinerary.Steps)
		for i := range steps {
			steps[i].Weather = status
		}
		itinerary.Steps = steps
	}

	return types.ScheduledDay{
		Query:      qi.Query,
		Day:        weather.DateKey(day),
		Itinerary:  itinerary,
		Weather:    status,
		Warning:    warning,
		Conditions: Daytime(dayRecords),
	}
}

// Daytime averages the 09:00-18:00 records of a day. Without daytime records
// it reports "N/A" and "unknown".
func Daytime(dayRecords []types.ForecastRecord) types.DaytimeConditions {
	conditions := types.DaytimeConditions{AvgTemp: "N/A", Condition: "unknown"}

	var sum float64
	var labels []string
	for _, r := range dayRecords {
		h := r.DateTime.Hour()
		if h < daytimeStartHour || h > daytimeEndHour {
			continue
		}
		sum += r.Temp
		labels = append(labels, r.Weather)
	}
	if len(labels) == 0 {
		return conditions
	}
	conditions.AvgTemp = fmt.Sprintf("%d", int(sum/float64(len(labels))))
	conditions.Condition = weather.MostCommon(labels)
	return conditions
}

// FormatStatus renders records as "12:00 clear (21.3°C), 15:00 rain (19.0°C)".
func FormatStatus(records []types.ForecastRecord) string {
	parts := make([]string, 0, len(records))
	for _, r := range records {
		parts = append(parts, fmt.Sprintf("%d:00 %s (%.1f°C)", r.DateTime.Hour(), r.Weather, r.Temp))
	}
	return strings.Join(parts, ", ")
}

// NeedsReschedule is true when there is at least one populated day and every
// populated day carries a warning.
func NeedsReschedule(days []types.ScheduledDay) bool {
	populated := 0
	for _, d := range days {
		if d.Itinerary.IsEmpty() {
			continue
		}
		populated++
		if d.Warning == nil {
			return false
		}
	}
	return populated > 0
}

// DateRange lists every calendar date from start to end inclusive. An end
// before start yields only the start date.
func DateRange(start, end time.Time) []time.Time {
	start, end = truncateDay(start), truncateDay(end)
	if end.Before(start) {
		return []time.Time{start}
	}
	var days []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

func forDate(records []types.ForecastRecord, day time.Time) []types.ForecastRecord {
	key := weather.DateKey(day)
	var out []types.ForecastRecord
	for _, r := range records {
		if weather.DateKey(r.DateTime) == key {
			out = append(out, r)
		}
	}
	return out
}

func allGood(records []types.ForecastRecord) bool {
	for _, r := range records {
		if !weather.IsGoodWeather(r) {
			return false
		}
	}
	return true
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
