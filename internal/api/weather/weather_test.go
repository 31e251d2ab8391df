package weather

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

func TestIsGoodWeather(t *testing.T) {
	tests := []struct {
		name   string
		record types.ForecastRecord
		want   bool
	}{
		{"clear and dry", types.ForecastRecord{Weather: "clear", RainMM: 0}, true},
		{"light drizzle amount", types.ForecastRecord{Weather: "clouds", RainMM: 0.9}, true},
		{"one millimetre", types.ForecastRecord{Weather: "clouds", RainMM: 1}, false},
		{"rain label", types.ForecastRecord{Weather: "rain", RainMM: 0}, false},
		{"thunderstorm", types.ForecastRecord{Weather: "thunderstorm"}, false},
		{"snow is fine", types.ForecastRecord{Weather: "snow"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsGoodWeather(tt.record))
		})
	}
}

func TestMostCommon(t *testing.T) {
	assert.Equal(t, "clouds", MostCommon([]string{"clear", "clouds", "clouds", "rain"}))
	assert.Equal(t, "clear", MostCommon([]string{"clear", "rain"}), "ties go to the first label")
	assert.Empty(t, MostCommon(nil))
}

func TestSummarizeDaily(t *testing.T) {
	at := func(day, hour int) time.Time { return time.Date(2025, 6, day, hour, 0, 0, 0, time.UTC) }
	records := []types.ForecastRecord{
		{DateTime: at(14, 9), Temp: 20.0, Weather: "rain"},
		{DateTime: at(13, 12), Temp: 24.0, Weather: "clear"},
		{DateTime: at(13, 15), Temp: 26.5, Weather: "clouds"},
		{DateTime: at(13, 18), Temp: 22.0, Weather: "clear"},
		{DateTime: at(14, 12), Temp: 18.0, Weather: ""},
	}

	got := SummarizeDaily(records)
	assert.Equal(t, []types.DailyForecast{
		{Date: "2025-06-13", TempMin: 22.0, TempMax: 26.5, AvgTemp: 24.2, DominantWeather: "Clear"},
		{Date: "2025-06-14", TempMin: 18.0, TempMax: 20.0, AvgTemp: 19.0, DominantWeather: "Rain"},
	}, got)

	assert.Empty(t, SummarizeDaily(nil))
}
