// Package profile serves the user profile record through the same tier
// stack as the meal log, in a lighter shape: cached read-through,
// optimistic update with rollback, local-first offline reads. Profile
// edits are rare, so there is no offline queue; a conflicting edit
// resolves last-write-wins.
package profile

import (
	"errors"
	"time"
)

// Profile is the onboarding/profile record, one per user.
type Profile struct {
	UserID             string    `json:"user_id"`
	DisplayName        string    `json:"display_name"`
	Age                int       `json:"age"`
	HeightCm           float64   `json:"height_cm"`
	WeightKg           float64   `json:"weight_kg"`
	Goal               string    `json:"goal"`
	ActivityLevel      string    `json:"activity_level"`
	DailyCalorieTarget float64   `json:"daily_calorie_target"`
	Onboarded          bool      `json:"onboarded"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// ErrNotFound is returned by source stores when no profile row exists.
var ErrNotFound = errors.New("profile: record not found")
