package recommend

import (
	"sort"
	"time"

	"github.com/FACorreiaa/go-trip-planner/internal/api/poi"
	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

const openNowBonus = 1.2

// Score fills the distance and time components of every candidate and returns
// them sorted by final score, best first. Equal scores keep their input order.
func Score(candidates []types.Candidate, loc types.UserLocation, now time.Time) []types.Candidate {
	day, clock := poi.WeekdayName(now), poi.ClockTime(now)

	scored := make([]types.Candidate, len(candidates))
	for i, c := range candidates {
		c.DistanceKm = poi.CalculateDistance(loc.UserLat, loc.UserLon, c.Place.Latitude, c.Place.Longitude)
		c.DistancePenalty = poi.DistancePenalty(c.DistanceKm)
		c.TimeBonus = 1.0
		if poi.IsOpenAt(c.Place.OperatingHours, day, clock) {
			c.TimeBonus = openNowBonus
		}
		c.FinalScore = c.SimilarityScore * c.DistancePenalty * c.TimeBonus
		scored[i] = c
	}

	sort.SliceStable(scored, func(a, b int) bool {
		return scored[a].FinalScore > scored[b].FinalScore
	})
	return scored
}
