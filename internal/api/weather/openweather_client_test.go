package weather

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-trip-planner/config"
)

// 2025-06-13 03:00 UTC is 12:00 in Busan (UTC+9)
const forecastFixture = `{
  "cod": "200",
  "list": [
    {"dt": 1749783600, "main": {"temp": 24.1}, "weather": [{"main": "Clear"}]},
    {"dt": 1749794400, "main": {"temp": 25.6}, "weather": [{"main": "Rain"}], "rain": {"3h": 2.4}},
    {"dt": 1749870000, "main": {"temp": 21.0}, "weather": [{"main": "Clouds"}]}
  ],
  "city": {"name": "Busan", "timezone": 32400}
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		handler(w, r)
	}))
	t.Cleanup(server.Close)

	cfg := config.WeatherConfig{
		BaseURL:  server.URL,
		APIKey:   "test-key",
		Timeout:  2 * time.Second,
		CacheTTL: time.Minute,
	}
	cfg.Breaker.ConsecutiveFailures = 2
	cfg.Breaker.Timeout = time.Minute
	return NewClient(cfg, slog.New(slog.NewTextHandler(io.Discard, nil))), &hits
}

func TestClient_Forecast(t *testing.T) {
	ctx := context.Background()
	day := func(d int) time.Time { return time.Date(2025, 6, d, 0, 0, 0, 0, time.UTC) }

	t.Run("parses records in local time", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "test-key", r.URL.Query().Get("appid"))
			assert.Equal(t, "metric", r.URL.Query().Get("units"))
			assert.Equal(t, "35.1796", r.URL.Query().Get("lat"))
			_, _ = io.WriteString(w, forecastFixture)
		})

		records, err := client.Forecast(ctx, 35.1796, 129.0756, day(13), day(14))
		require.NoError(t, err)
		require.Len(t, records, 3)

		assert.Equal(t, 12, records[0].DateTime.Hour())
		assert.Equal(t, "2025-06-13", DateKey(records[0].DateTime))
		assert.Equal(t, "clear", records[0].Weather)
		assert.Equal(t, 24.1, records[0].Temp)
		assert.Equal(t, 0.0, records[0].RainMM)

		assert.Equal(t, 15, records[1].DateTime.Hour())
		assert.Equal(t, "rain", records[1].Weather)
		assert.Equal(t, 2.4, records[1].RainMM)
		assert.False(t, IsGoodWeather(records[1]))
	})

	t.Run("filters by date range", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, forecastFixture)
		})

		records, err := client.Forecast(ctx, 35.1796, 129.0756, day(14), day(20))
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, "clouds", records[0].Weather)
	})

	t.Run("responses are cached per coordinate", func(t *testing.T) {
		client, hits := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, forecastFixture)
		})

		_, err := client.Forecast(ctx, 35.1796, 129.0756, day(13), day(13))
		require.NoError(t, err)
		_, err = client.Forecast(ctx, 35.1799, 129.0759, day(13), day(14))
		require.NoError(t, err)
		assert.Equal(t, int32(1), hits.Load())
	})

	t.Run("non-200 is an error", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"cod":401,"message":"Invalid API key"}`, http.StatusUnauthorized)
		})

		_, err := client.Forecast(ctx, 35.1796, 129.0756, day(13), day(14))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "401")
	})

	t.Run("breaker opens after consecutive failures", func(t *testing.T) {
		client, hits := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		})

		for i := 0; i < 2; i++ {
			_, err := client.Forecast(ctx, 35.1796, 129.0756, day(13), day(14))
			require.Error(t, err)
		}
		_, err := client.Forecast(ctx, 35.1796, 129.0756, day(13), day(14))
		require.Error(t, err)
		assert.Equal(t, int32(2), hits.Load(), "open breaker must not call the api")
	})

	t.Run("missing api key", func(t *testing.T) {
		client := NewClient(config.WeatherConfig{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
		_, err := client.Forecast(ctx, 35.1796, 129.0756, day(13), day(14))
		assert.ErrorIs(t, err, ErrMissingAPIKey)
	})
}
