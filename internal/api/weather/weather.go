package weather

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

const (
	DateLayout = "2006-01-02"

	rainThresholdMM = 1.0
)

// Provider returns 3-hour forecast blocks whose local date falls within
// [start, end].
type Provider interface {
	Forecast(ctx context.Context, lat, lon float64, start, end time.Time) ([]types.ForecastRecord, error)
}

// IsGoodWeather reports whether a block is fit for outdoor plans: less than
// 1 mm of rain and no rain or thunderstorm condition.
func IsGoodWeather(r types.ForecastRecord) bool {
	if r.RainMM >= rainThresholdMM {
		return false
	}
	switch r.Weather {
	case "rain", "thunderstorm":
		return false
	}
	return true
}

// DateKey formats the calendar date of t.
func DateKey(t time.Time) string {
	return t.Format(DateLayout)
}

// MostCommon returns the most frequent label; ties go to the label seen first.
func MostCommon(labels []string) string {
	counts := make(map[string]int, len(labels))
	best, bestCount := "", 0
	for _, l := range labels {
		counts[l]++
	}
	for _, l := range labels {
		if counts[l] > bestCount {
			best, bestCount = l, counts[l]
		}
	}
	return best
}

// SummarizeDaily groups records per date into min/max/average temperature and
// the dominant condition, ordered by date.
func SummarizeDaily(records []types.ForecastRecord) []types.DailyForecast {
	type day struct {
		temps    []float64
		weathers []string
	}
	days := make(map[string]*day)
	for _, r := range records {
		key := DateKey(r.DateTime)
		d, ok := days[key]
		if !ok {
			d = &day{}
			days[key] = d
		}
		d.temps = append(d.temps, r.Temp)
		if r.Weather != "" {
			d.weathers = append(d.weathers, r.Weather)
		}
	}

	keys := make([]string, 0, len(days))
	for k := range days {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	summary := make([]types.DailyForecast, 0, len(keys))
	for _, k := range keys {
		d := days[k]
		minT, maxT, sum := d.temps[0], d.temps[0], 0.0
		for _, t := range d.temps {
			minT = math.Min(minT, t)
			maxT = math.Max(maxT, t)
			sum += t
		}
		dominant := "Unknown"
		if w := MostCommon(d.weathers); w != "" {
			dominant = capitalize(w)
		}
		summary = append(summary, types.DailyForecast{
			Date:            k,
			TempMin:         minT,
			TempMax:         maxT,
			AvgTemp:         math.Round(sum/float64(len(d.temps))*10) / 10,
			DominantWeather: dominant,
		})
	}
	return summary
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}
