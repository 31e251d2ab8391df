package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) Forecast(ctx context.Context, lat, lon float64, start, end time.Time) ([]types.ForecastRecord, error) {
	args := m.Called(ctx, lat, lon, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.ForecastRecord), args.Error(1)
}

var (
	busan = types.UserLocation{UserLat: 35.1796, UserLon: 129.0756}
	today = time.Date(2025, 6, 13, 8, 0, 0, 0, time.UTC)
)

func date(d int) time.Time { return time.Date(2025, 6, d, 0, 0, 0, 0, time.UTC) }

func at(d, hour int, weather string, temp, rain float64) types.ForecastRecord {
	return types.ForecastRecord{
		DateTime: time.Date(2025, 6, d, hour, 0, 0, 0, time.UTC),
		Temp:     temp,
		Weather:  weather,
		RainMM:   rain,
	}
}

func itinerary(query string, flags ...string) types.QueryItinerary {
	steps := make([]types.ItineraryStep, 0, len(flags))
	for i, f := range flags {
		steps = append(steps, types.ItineraryStep{
			Step:          i + 1,
			PlaceID:       uuid.New(),
			Name:          query,
			IndoorOutdoor: f,
		})
	}
	return types.QueryItinerary{Query: query, Itinerary: types.DayItinerary{Steps: steps}}
}

func newScheduler(p *MockProvider) *Scheduler {
	return New(p, 7, func() time.Time { return today }, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestDateRange(t *testing.T) {
	assert.Equal(t, []time.Time{date(13), date(14), date(15)}, DateRange(date(13), date(15)))
	assert.Equal(t, []time.Time{date(13)}, DateRange(date(13), date(13)))
	assert.Equal(t, []time.Time{date(15)}, DateRange(date(15), date(13)), "end before start keeps only the start date")
	assert.Equal(t, []time.Time{date(13), date(14)}, DateRange(date(13).Add(20*time.Hour), date(14).Add(time.Hour)))
}

func TestNeedsReschedule(t *testing.T) {
	w := OutdoorWarning
	populated := itinerary("park", types.Outdoor).Itinerary

	tests := []struct {
		name string
		days []types.ScheduledDay
		want bool
	}{
		{"no days", nil, false},
		{"only empty itineraries", []types.ScheduledDay{{Day: "2025-06-13"}, {Day: "2025-06-14"}}, false},
		{"all populated days warned", []types.ScheduledDay{
			{Itinerary: populated, Warning: &w},
			{Day: "2025-06-14"},
			{Itinerary: populated, Warning: &w},
		}, true},
		{"one populated day without warning", []types.ScheduledDay{
			{Itinerary: populated, Warning: &w},
			{Itinerary: populated},
		}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NeedsReschedule(tt.days))
		})
	}
}

func TestDaytime(t *testing.T) {
	records := []types.ForecastRecord{
		at(13, 6, "rain", 10, 0),
		at(13, 9, "clouds", 20, 0),
		at(13, 12, "clear", 23, 0),
		at(13, 15, "clear", 24, 0),
		at(13, 21, "rain", 15, 0),
	}
	assert.Equal(t, types.DaytimeConditions{AvgTemp: "22", Condition: "clear"}, Daytime(records))
	assert.Equal(t, types.DaytimeConditions{AvgTemp: "N/A", Condition: "unknown"}, Daytime(records[:1]))
	assert.Equal(t, types.DaytimeConditions{AvgTemp: "N/A", Condition: "unknown"}, Daytime(nil))
}

func TestFormatStatus(t *testing.T) {
	got := FormatStatus([]types.ForecastRecord{at(13, 12, "clear", 21.34, 0), at(13, 15, "rain", 19, 3)})
	assert.Equal(t, "12:00 clear (21.3°C), 15:00 rain (19.0°C)", got)
}

func TestSchedule(t *testing.T) {
	ctx := context.Background()

	t.Run("round robin over the date range", func(t *testing.T) {
		p := new(MockProvider)
		p.On("Forecast", mock.Anything, busan.UserLat, busan.UserLon, date(13), date(14)).Return([]types.ForecastRecord{}, nil).Once()

		result := newScheduler(p).Schedule(ctx, []types.QueryItinerary{
			itinerary("korean restaurant", types.Indoor),
			itinerary("jazz club", types.Indoor),
			itinerary("beach", types.Outdoor),
		}, busan, date(13), date(14))

		require.Len(t, result.Scheduled, 3)
		assert.Equal(t, "2025-06-13", result.Scheduled[0].Day)
		assert.Equal(t, "2025-06-14", result.Scheduled[1].Day)
		assert.Equal(t, "2025-06-13", result.Scheduled[2].Day)
		assert.Equal(t, "jazz club", result.Scheduled[1].Query)
		for _, d := range result.Scheduled {
			assert.Equal(t, NoForecastStatus, d.Weather)
			assert.Nil(t, d.Warning)
		}
		assert.False(t, result.NeedsReschedule)
		p.AssertExpectations(t)
	})

	t.Run("rainy outdoor day is warned and annotated", func(t *testing.T) {
		p := new(MockProvider)
		p.On("Forecast", mock.Anything, busan.UserLat, busan.UserLon, date(13), date(13)).Return([]types.ForecastRecord{
			at(13, 9, "clouds", 20, 0),
			at(13, 12, "rain", 19, 2.5),
			at(13, 15, "clouds", 21, 0),
		}, nil).Once()

		qi := itinerary("hiking", types.Outdoor, types.Outdoor, types.Indoor)
		result := newScheduler(p).Schedule(ctx, []types.QueryItinerary{qi}, busan, date(13), date(13))

		require.Len(t, result.Scheduled, 1)
		day := result.Scheduled[0]
		require.NotNil(t, day.Warning)
		assert.Equal(t, OutdoorWarning, *day.Warning)
		assert.Equal(t, "12:00 rain (19.0°C), 15:00 clouds (21.0°C)", day.Weather)
		for _, s := range day.Itinerary.Steps {
			assert.Equal(t, day.Weather, s.Weather)
		}
		assert.Empty(t, qi.Itinerary.Steps[0].Weather, "input itinerary is not mutated")
		assert.Equal(t, types.DaytimeConditions{AvgTemp: "20", Condition: "clouds"}, day.Conditions)
		assert.True(t, result.NeedsReschedule)
	})

	t.Run("mostly indoor day is not warned in bad weather", func(t *testing.T) {
		p := new(MockProvider)
		p.On("Forecast", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return([]types.ForecastRecord{
			at(13, 12, "thunderstorm", 18, 6),
		}, nil).Once()

		result := newScheduler(p).Schedule(ctx, []types.QueryItinerary{
			itinerary("museum", types.Indoor, types.Outdoor),
		}, busan, date(13), date(13))

		assert.Nil(t, result.Scheduled[0].Warning)
		assert.False(t, result.NeedsReschedule)
	})

	t.Run("empty itineraries keep needs reschedule false", func(t *testing.T) {
		p := new(MockProvider)
		p.On("Forecast", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return([]types.ForecastRecord{
			at(13, 12, "rain", 18, 6),
		}, nil).Once()

		result := newScheduler(p).Schedule(ctx, []types.QueryItinerary{
			{Query: "nothing here"},
		}, busan, date(13), date(13))

		require.Len(t, result.Scheduled, 1)
		assert.Equal(t, NoForecastStatus, result.Scheduled[0].Weather)
		assert.Nil(t, result.Scheduled[0].Warning)
		assert.False(t, result.NeedsReschedule)
	})

	t.Run("provider failure degrades to no forecast", func(t *testing.T) {
		p := new(MockProvider)
		p.On("Forecast", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(nil, errors.New("connection refused")).Once()

		result := newScheduler(p).Schedule(ctx, []types.QueryItinerary{
			itinerary("beach", types.Outdoor),
		}, busan, date(13), date(13))

		assert.Equal(t, NoForecastStatus, result.Scheduled[0].Weather)
		assert.Nil(t, result.Scheduled[0].Warning)
		assert.False(t, result.NeedsReschedule)
	})

	t.Run("forecast window is capped at the horizon", func(t *testing.T) {
		p := new(MockProvider)
		p.On("Forecast", mock.Anything, mock.Anything, mock.Anything, date(18), date(20)).Return([]types.ForecastRecord{}, nil).Once()

		newScheduler(p).Schedule(ctx, []types.QueryItinerary{itinerary("beach", types.Outdoor)}, busan, date(18), date(25))
		p.AssertExpectations(t)
	})

	t.Run("trip beyond the horizon skips the provider", func(t *testing.T) {
		p := new(MockProvider)

		result := newScheduler(p).Schedule(ctx, []types.QueryItinerary{itinerary("beach", types.Outdoor)}, busan, date(24), date(26))
		assert.Equal(t, NoForecastStatus, result.Scheduled[0].Weather)
		p.AssertNotCalled(t, "Forecast", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}
