package model

import (
	"fmt"
	"time"
)

// RecipeStats tracks how often a recipe fired for a user and how its last
// runs went.
type RecipeStats struct {
	DateLastTrigger time.Time `json:"dateLastTrigger"`
	ID              string    `json:"id"`
	UserID          string    `json:"userId"`
	RecipeID        string    `json:"recipeId"`
	Activities      []string  `json:"activities"`
	ActivityCount   int       `json:"activityCount"`
	Counter         int       `json:"counter"`
	RecentFailures  int       `json:"recentFailures"`
	Archived        bool      `json:"archived,omitempty"`
}

// RecipeStatsID returns the display key for a user's recipe stats. It is not
// unique when either part contains a hyphen; records are keyed by the
// (UserID, RecipeID) pair.
func RecipeStatsID(userID, recipeID string) string {
	return fmt.Sprintf("%s-%s", userID, recipeID)
}
