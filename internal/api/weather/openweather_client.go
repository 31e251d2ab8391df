package weather

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/patrickmn/go-cache"
	gobreaker "github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/FACorreiaa/go-trip-planner/app/observability/metrics"
	"github.com/FACorreiaa/go-trip-planner/config"
	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

const defaultBaseURL = "https://api.openweathermap.org/data/2.5/forecast"

var ErrMissingAPIKey = errors.New("openweather api key is not set")

type forecastResponse struct {
	List []struct {
		Dt   int64 `json:"dt"`
		Main struct {
			Temp float64 `json:"temp"`
		} `json:"main"`
		Weather []struct {
			Main string `json:"main"`
		} `json:"weather"`
		Rain struct {
			ThreeHour float64 `json:"3h"`
		} `json:"rain"`
	} `json:"list"`
	City struct {
		// Timezone is the UTC offset of the location in seconds.
		Timezone int `json:"timezone"`
	} `json:"city"`
}

var _ Provider = (*Client)(nil)

// Client reads the OpenWeatherMap 5 day / 3 hour forecast. Responses are
// cached per coordinate, outbound calls are rate limited and guarded by a
// circuit breaker.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	cache      *cache.Cache
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker[[]types.ForecastRecord]
	logger     *slog.Logger
}

func NewClient(cfg config.WeatherConfig, logger *slog.Logger) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	cacheTTL := cfg.CacheTTL
	if cacheTTL <= 0 {
		cacheTTL = 30 * time.Minute
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	failures := cfg.Breaker.ConsecutiveFailures
	if failures == 0 {
		failures = 3
	}

	c := &Client{
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		cache:      cache.New(cacheTTL, 2*cacheTTL),
		limiter:    rate.NewLimiter(limit, 1),
		logger:     logger,
	}
	c.breaker = gobreaker.NewCircuitBreaker[[]types.ForecastRecord](gobreaker.Settings{
		Name:        "openweather",
		MaxRequests: cfg.Breaker.MaxRequests,
		Interval:    cfg.Breaker.Interval,
		Timeout:     cfg.Breaker.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()))
		},
	})
	return c
}

func (c *Client) Forecast(ctx context.Context, lat, lon float64, start, end time.Time) ([]types.ForecastRecord, error) {
	ctx, span := otel.Tracer("WeatherClient").Start(ctx, "Forecast", trace.WithAttributes(
		attribute.Float64("lat", lat),
		attribute.Float64("lon", lon),
		attribute.String("start", DateKey(start)),
		attribute.String("end", DateKey(end)),
	))
	defer span.End()

	records, err := c.fetch(ctx, lat, lon)
	if err != nil {
		metrics.Get().WeatherFetchErrorsTotal.Add(ctx, 1)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Forecast fetch failed")
		return nil, err
	}

	from, to := DateKey(start), DateKey(end)
	var inRange []types.ForecastRecord
	for _, r := range records {
		d := DateKey(r.DateTime)
		if d >= from && d <= to {
			inRange = append(inRange, r)
		}
	}

	span.SetAttributes(attribute.Int("records.count", len(inRange)))
	span.SetStatus(codes.Ok, "Forecast fetched")
	return inRange, nil
}

func (c *Client) fetch(ctx context.Context, lat, lon float64) ([]types.ForecastRecord, error) {
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	key := cacheKey(lat, lon)
	if cached, found := c.cache.Get(key); found {
		return cached.([]types.ForecastRecord), nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("failed to wait for weather rate limiter: %w", err)
	}

	records, err := c.breaker.Execute(func() ([]types.ForecastRecord, error) {
		return c.request(ctx, lat, lon)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			c.logger.WarnContext(ctx, "Weather circuit open, skipping forecast", slog.Any("error", err))
		}
		return nil, fmt.Errorf("failed to fetch forecast: %w", err)
	}

	c.cache.Set(key, records, cache.DefaultExpiration)
	return records, nil
}

func (c *Client) request(ctx context.Context, lat, lon float64) ([]types.ForecastRecord, error) {
	params := url.Values{}
	params.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	params.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	params.Set("appid", c.apiKey)
	params.Set("units", "metric")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build forecast request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("forecast request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("forecast request returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload forecastResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode forecast: %w", err)
	}

	loc := time.FixedZone("local", payload.City.Timezone)
	records := make([]types.ForecastRecord, 0, len(payload.List))
	for _, item := range payload.List {
		condition := ""
		if len(item.Weather) > 0 {
			condition = strings.ToLower(item.Weather[0].Main)
		}
		records = append(records, types.ForecastRecord{
			DateTime: time.Unix(item.Dt, 0).In(loc),
			Temp:     item.Main.Temp,
			Weather:  condition,
			RainMM:   item.Rain.ThreeHour,
		})
	}
	return records, nil
}

// cacheKey rounds to roughly 1 km so nearby users share a forecast.
func cacheKey(lat, lon float64) string {
	return fmt.Sprintf("%.2f,%.2f", lat, lon)
}
