package types

import (
	"time"

	"github.com/google/uuid"
)

// PlanStrategy names the algorithm that produced a day plan.
type PlanStrategy string

const (
	StrategyBeam       PlanStrategy = "beam"
	StrategyConstraint PlanStrategy = "constraint"
)

// ScheduleSlot is one entry of the fixed daily template.
type ScheduleSlot struct {
	Label      string             `json:"slot"`
	Time       string             `json:"time"`
	Categories []ScheduleCategory `json:"types"`
}

// Accepts reports whether a place of category c may fill the slot.
func (s ScheduleSlot) Accepts(c ScheduleCategory) bool {
	for _, sc := range s.Categories {
		if sc == c {
			return true
		}
	}
	return false
}

// DefaultSchedule is the daily template shared by every request.
var DefaultSchedule = []ScheduleSlot{
	{Label: "Lunch", Time: "13:00", Categories: []ScheduleCategory{CategoryFood}},
	{Label: "Activity", Time: "14:00", Categories: []ScheduleCategory{CategoryAfternoon, CategoryActivity}},
	{Label: "Activity", Time: "15:00", Categories: []ScheduleCategory{CategoryAfternoon, CategoryActivity}},
	{Label: "Cafe", Time: "16:30", Categories: []ScheduleCategory{CategoryCafe}},
	{Label: "Dinner", Time: "19:00", Categories: []ScheduleCategory{CategoryFood}},
	{Label: "Evening", Time: "21:00", Categories: []ScheduleCategory{CategoryEveningEvent}},
}

type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// ItineraryStep is a single place assigned to a slot.
type ItineraryStep struct {
	Step           int               `json:"step"`
	Slot           string            `json:"slot"`
	PlaceID        uuid.UUID         `json:"id"`
	Name           string            `json:"name"`
	Geom           GeoPoint          `json:"geom"`
	OperatingHours map[string]string `json:"operating_hours"`
	IndoorOutdoor  string            `json:"indoor_outdoor"`
	Website        string            `json:"website,omitempty"`
	ExternalURL    string            `json:"external_url,omitempty"`
	Description    string            `json:"description"`
	Weather        string            `json:"weather,omitempty"`
}

// DayItinerary is the ordered plan for a single day.
type DayItinerary struct {
	Steps          []ItineraryStep `json:"steps"`
	CoveredQueries []string        `json:"covered_queries,omitempty"`
	Strategy       PlanStrategy    `json:"strategy,omitempty"`
}

func (d DayItinerary) IsEmpty() bool {
	return len(d.Steps) == 0
}

// OutdoorRatio is the fraction of steps flagged outdoor.
func (d DayItinerary) OutdoorRatio() float64 {
	if len(d.Steps) == 0 {
		return 0
	}
	outdoor := 0
	for _, s := range d.Steps {
		if s.IndoorOutdoor == Outdoor {
			outdoor++
		}
	}
	return float64(outdoor) / float64(len(d.Steps))
}

// PlaceIDs returns the ids of every step in order.
func (d DayItinerary) PlaceIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(d.Steps))
	for _, s := range d.Steps {
		ids = append(ids, s.PlaceID)
	}
	return ids
}

// QueryItinerary pairs a request query with the day plan produced for it.
type QueryItinerary struct {
	Query     string
	Itinerary DayItinerary
}

// DaytimeConditions summarises the 09:00-18:00 forecast of a day.
type DaytimeConditions struct {
	AvgTemp   string `json:"avg_temp"`
	Condition string `json:"condition"`
}

// ScheduledDay is a day plan placed on a calendar date.
type ScheduledDay struct {
	Query      string            `json:"query"`
	Day        string            `json:"day"`
	Itinerary  DayItinerary      `json:"itinerary"`
	Weather    string            `json:"weather"`
	Warning    *string           `json:"warning"`
	Conditions DaytimeConditions `json:"conditions"`
}

// SchedulingResult is the terminal output of the scheduler.
type SchedulingResult struct {
	Scheduled       []ScheduledDay `json:"scheduled"`
	NeedsReschedule bool           `json:"needs_reschedule"`
}

// ScheduleRequest is the transport shape of a planning request.
type ScheduleRequest struct {
	Queries   []string `json:"queries"`
	UserLat   float64  `json:"user_lat"`
	UserLon   float64  `json:"user_lon"`
	StartDate string   `json:"start_date"`
	EndDate   string   `json:"end_date"`
}

// TripRequest is a validated ScheduleRequest.
type TripRequest struct {
	Queries   []string
	Location  UserLocation
	StartDate time.Time
	EndDate   time.Time
}

// ScheduleResponse is returned by the schedule endpoint.
type ScheduleResponse struct {
	ScheduledItineraries []ScheduledDay  `json:"scheduled_itineraries"`
	NeedsReschedule      bool            `json:"needs_reschedule"`
	DailyForecast        []DailyForecast `json:"daily_forecast"`
	UnmatchedQueries     []string        `json:"unmatched_queries,omitempty"`
}
