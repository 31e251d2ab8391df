package planner

import (
	"strings"

	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

var (
	eveningKeywords = []string{"bar", "jazz club", "izakaya", "wine bar", "coffee bar", "lp bar", "whisky bar"}
	foodKeywords    = []string{
		"dinner restaurant", "brunch", "restaurant", "bbq", "japanese restaurant",
		"chinese restaurant", "italian restaurant", "korean restaurant", "burger",
		"taiwanese restaurant", "fried chicken", "spanish restaurant",
	}
	cafeKeywords      = []string{"cafe", "tea house", "dessert cafe", "bakery", "specialty coffee", "gelato shop", "brunch cafe", "bakery cafe"}
	afternoonKeywords = []string{"museum", "entertainment", "shopping", "park", "dog cafe", "cat cafe"}
)

type transition struct {
	from, to types.ScheduleCategory
}

var transitionScores = map[transition]float64{
	{types.CategoryFood, types.CategoryActivity}:         1.0,
	{types.CategoryFood, types.CategoryCafe}:             1.0,
	{types.CategoryActivity, types.CategoryFood}:         1.0,
	{types.CategoryCafe, types.CategoryFood}:             1.0,
	{types.CategoryCafe, types.CategoryEveningEvent}:     1.0,
	{types.CategoryActivity, types.CategoryEveningEvent}: 1.0,
	{types.CategoryAfternoon, types.CategoryFood}:        1.0,
	{types.CategoryFood, types.CategoryFood}:             -0.5,
}

// Categorize maps a place's primary category onto a schedule category. The
// first matching group wins in the order evening, food, cafe, afternoon.
func Categorize(p types.Place) types.ScheduleCategory {
	category := strings.ToLower(p.PrimaryCategory)
	switch {
	case containsAny(category, eveningKeywords):
		return types.CategoryEveningEvent
	case containsAny(category, foodKeywords):
		return types.CategoryFood
	case containsAny(category, cafeKeywords):
		return types.CategoryCafe
	case containsAny(category, afternoonKeywords):
		return types.CategoryAfternoon
	default:
		return types.CategoryActivity
	}
}

// TransitionScore rewards or penalises moving from one category to the next.
// Unlisted pairs score 0.
func TransitionScore(from, to types.ScheduleCategory) float64 {
	return transitionScores[transition{from, to}]
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
