package types

import "time"

// ForecastRecord is one 3-hour forecast block.
type ForecastRecord struct {
	DateTime time.Time `json:"datetime"`
	Temp     float64   `json:"temp"`
	Weather  string    `json:"weather"`
	RainMM   float64   `json:"rain"`
}

// DailyForecast is the per-date summary shown next to a plan.
type DailyForecast struct {
	Date            string  `json:"date"`
	TempMin         float64 `json:"temp_min"`
	TempMax         float64 `json:"temp_max"`
	AvgTemp         float64 `json:"avg_temp"`
	DominantWeather string  `json:"dominant_weather"`
}
