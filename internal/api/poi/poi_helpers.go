package poi

import (
	"math"
	"strconv"
	"strings"
	"time"
)

const (
	hoursClosed   = "Closed"
	hoursAllDay   = "24 hours"
	earthRadiusKm = 6371
)

// CalculateDistance returns the great-circle distance in kilometers between two
// coordinates using the Haversine formula.
func CalculateDistance(lat1, lon1, lat2, lon2 float64) float64 {
	lat1Rad := lat1 * math.Pi / 180
	lon1Rad := lon1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	lon2Rad := lon2 * math.Pi / 180

	dlat := lat2Rad - lat1Rad
	dlon := lon2Rad - lon1Rad

	a := math.Sin(dlat/2)*math.Sin(dlat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*math.Sin(dlon/2)*math.Sin(dlon/2)
	c := 2 * math.Asin(math.Sqrt(a))

	return earthRadiusKm * c
}

// DistancePenalty maps a distance to (0,1]; 0 km yields 1.
func DistancePenalty(distanceKm float64) float64 {
	return 1 / (1 + distanceKm*distanceKm)
}

// WeekdayName returns the lower-case weekday used as operating-hours key.
func WeekdayName(t time.Time) string {
	return strings.ToLower(t.Weekday().String())
}

// ClockTime formats t as "HH:MM".
func ClockTime(t time.Time) string {
	return t.Format("15:04")
}

// IsOpenAt reports whether hours mark the place as open on day at clock ("HH:MM").
// Missing days and malformed entries count as closed.
func IsOpenAt(hours map[string]string, day, clock string) bool {
	if hours == nil {
		return false
	}
	timeRange, ok := hours[day]
	if !ok {
		return false
	}
	timeRange = strings.TrimSpace(timeRange)
	switch timeRange {
	case hoursClosed:
		return false
	case hoursAllDay:
		return true
	}

	now, ok := parseClock(clock)
	if !ok {
		return false
	}
	parts := strings.Split(timeRange, "-")
	if len(parts) != 2 {
		return false
	}
	start, ok := parseClock(parts[0])
	if !ok {
		return false
	}
	end, ok := parseClock(parts[1])
	if !ok {
		return false
	}

	// overnight window, e.g. 22:00-02:00
	if end < start {
		return now >= start || now < end
	}
	return start <= now && now < end
}

// IsOpen is IsOpenAt evaluated at t.
func IsOpen(hours map[string]string, t time.Time) bool {
	return IsOpenAt(hours, WeekdayName(t), ClockTime(t))
}

// parseClock converts "HH:MM" into minutes since midnight. "24:00" is accepted
// as the end of the day.
func parseClock(s string) (int, bool) {
	s = strings.TrimSpace(s)
	hh, mm, found := strings.Cut(s, ":")
	if !found {
		return 0, false
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 24 {
		return 0, false
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 {
		return 0, false
	}
	if h == 24 && m != 0 {
		return 0, false
	}
	return h*60 + m, true
}
