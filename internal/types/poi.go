package types

import (
	"strings"

	"github.com/google/uuid"
)

// ScheduleCategory classifies a place for slot eligibility.
type ScheduleCategory string

const (
	CategoryFood         ScheduleCategory = "FOOD"
	CategoryCafe         ScheduleCategory = "CAFE"
	CategoryAfternoon    ScheduleCategory = "AFTERNOON"
	CategoryActivity     ScheduleCategory = "ACTIVITY"
	CategoryEveningEvent ScheduleCategory = "EVENING_EVENT"
)

const (
	Indoor  = "indoor"
	Outdoor = "outdoor"
)

// Place is a catalog entry. OperatingHours is keyed by lower-case weekday
// ("monday") and holds "HH:MM-HH:MM", "Closed" or "24 hours".
type Place struct {
	ID              uuid.UUID         `json:"id"`
	Name            string            `json:"name"`
	Region          string            `json:"region"`
	PrimaryCategory string            `json:"primary_category"`
	Tags            []string          `json:"tags,omitempty"`
	OperatingHours  map[string]string `json:"operating_hours"`
	MealType        string            `json:"meal_type,omitempty"`
	Latitude        float64           `json:"latitude"`
	Longitude       float64           `json:"longitude"`
	IndoorOutdoor   string            `json:"indoor_outdoor"`
	Website         string            `json:"website,omitempty"`
	ExternalURL     string            `json:"external_url,omitempty"`
	Description     string            `json:"description,omitempty"`
}

// IsOutdoor reports whether the place is flagged as an outdoor activity.
func (p Place) IsOutdoor() bool {
	return p.IndoorOutdoor == Outdoor
}

// SearchText is the lower-case "category name" text used for keyword matching.
func (p Place) SearchText() string {
	return strings.ToLower(p.PrimaryCategory + " " + p.Name)
}

// Match is a raw nearest-neighbour hit for one sub-query.
type Match struct {
	PlaceID         uuid.UUID `json:"place_id"`
	SimilarityScore float64   `json:"similarity_score"`
	SourceQuery     string    `json:"source_query"`
}

// Candidate is a scored place built fresh for one request.
type Candidate struct {
	Place            Place            `json:"place"`
	SimilarityScore  float64          `json:"similarity_score"`
	SourceQuery      string           `json:"source_query"`
	ScheduleCategory ScheduleCategory `json:"schedule_category"`
	DistanceKm       float64          `json:"distance_km"`
	DistancePenalty  float64          `json:"distance_penalty"`
	TimeBonus        float64          `json:"time_bonus"`
	FinalScore       float64          `json:"final_score"`
}

// UserLocation holds the coordinates of the requesting user.
type UserLocation struct {
	UserLat float64 `json:"user_lat"`
	UserLon float64 `json:"user_lon"`
}
