package metrics

import (
	"log"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// AppMetrics holds the application's metric instruments.
type AppMetrics struct {
	ScheduleRequestsTotal    metric.Int64Counter
	ScheduleDurationSeconds  metric.Float64Histogram
	RecommendDurationSeconds metric.Float64Histogram
	PlannerStrategyTotal     metric.Int64Counter
	SolverOutcomesTotal      metric.Int64Counter
	WeatherFetchErrorsTotal  metric.Int64Counter
	DbQueryErrorsTotal       metric.Int64Counter
}

var (
	appMetrics *AppMetrics
	once       sync.Once
)

// InitAppMetrics creates the instruments once from the global MeterProvider.
// Call it after the provider is installed, otherwise the no-op provider is used.
func InitAppMetrics() {
	once.Do(func() {
		meter := otel.GetMeterProvider().Meter("go-trip-planner")
		var err error
		m := &AppMetrics{}

		m.ScheduleRequestsTotal, err = meter.Int64Counter(
			"schedule_requests_total",
			metric.WithDescription("Total number of itinerary schedule requests"),
			metric.WithUnit("{request}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create schedule_requests_total: %v", err)
		}

		m.ScheduleDurationSeconds, err = meter.Float64Histogram(
			"schedule_duration_seconds",
			metric.WithDescription("Duration of a full schedule request in seconds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create schedule_duration_seconds: %v", err)
		}

		m.RecommendDurationSeconds, err = meter.Float64Histogram(
			"recommend_duration_seconds",
			metric.WithDescription("Duration of recommending one day plan in seconds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create recommend_duration_seconds: %v", err)
		}

		m.PlannerStrategyTotal, err = meter.Int64Counter(
			"planner_strategy_total",
			metric.WithDescription("Day plans produced, by planning strategy"),
			metric.WithUnit("{plan}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create planner_strategy_total: %v", err)
		}

		m.SolverOutcomesTotal, err = meter.Int64Counter(
			"solver_outcomes_total",
			metric.WithDescription("Constraint solver runs, by outcome"),
			metric.WithUnit("{run}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create solver_outcomes_total: %v", err)
		}

		m.WeatherFetchErrorsTotal, err = meter.Int64Counter(
			"weather_fetch_errors_total",
			metric.WithDescription("Total number of failed forecast fetches"),
			metric.WithUnit("{error}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create weather_fetch_errors_total: %v", err)
		}

		m.DbQueryErrorsTotal, err = meter.Int64Counter(
			"db_query_errors_total",
			metric.WithDescription("Total number of database query errors"),
			metric.WithUnit("{error}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create db_query_errors_total: %v", err)
		}

		log.Println("Application metrics instruments initialized.")
		appMetrics = m
	})
}

// Get returns the AppMetrics instance, initialising it on first use.
func Get() *AppMetrics {
	InitAppMetrics()
	return appMetrics
}
