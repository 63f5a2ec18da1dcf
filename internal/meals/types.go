// Package meals orchestrates the three data tiers for the per-user,
// per-date meal log: device-local store, shared remote cache, and the
// source-of-truth database.
//
// Reads prefer the fastest tier that has an answer and repopulate the
// tiers above the one that did. Writes are optimistic: the UI callback
// fires with the post-mutation state before any I/O, the local tier is
// written immediately, and a source-of-truth failure rolls the caller
// back to the exact pre-mutation snapshot. Offline writes queue for FIFO
// replay on reconnect.
package meals

import (
	"errors"
	"time"
)

// MealType partitions a day's log.
type MealType string

// The four meal slots of a day.
const (
	Breakfast MealType = "breakfast"
	Lunch     MealType = "lunch"
	Dinner    MealType = "dinner"
	Snacks    MealType = "snacks"
)

// Valid reports whether t is one of the four meal slots.
func (t MealType) Valid() bool {
	switch t {
	case Breakfast, Lunch, Dinner, Snacks:
		return true
	}
	return false
}

// MealItem is one logged food item. Identity is ID, unique within a day.
type MealItem struct {
	ID       string   `json:"id"`
	MealType MealType `json:"meal_type"`
	Name     string   `json:"name"`
	Calories float64  `json:"calories"`
	Protein  float64  `json:"protein"`
	Carbs    float64  `json:"carbs"`
	Fat      float64  `json:"fat"`

	// Time is the wall-clock "HH:MM" the item was eaten.
	Time string `json:"time"`

	// AddedAt is when the item was logged, unix milliseconds.
	AddedAt int64 `json:"added_at"`
}

// DailyMeals is the logical record for one user's log on one date.
// There is exactly one per (UserID, MealDate) at the source of truth.
type DailyMeals struct {
	ID       string     `json:"id"`
	UserID   string     `json:"user_id"`
	MealDate string     `json:"meal_date"` // "YYYY-MM-DD"
	Meals    []MealItem `json:"meals"`

	// IsLocked is true for past dates and forbids further mutation.
	IsLocked  bool      `json:"is_locked"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SyncAction names one kind of queued offline mutation.
type SyncAction string

// Queueable mutations. Each carries the full post-mutation meal list, so
// replaying an item is a whole-state overwrite: idempotent, and
// order-independent in effect. This deliberately trades multi-device
// merge fidelity for not needing an operation log.
const (
	ActionAdd    SyncAction = "add"
	ActionUpdate SyncAction = "update"
	ActionDelete SyncAction = "delete"
	ActionClear  SyncAction = "clear"
)

// SyncItem is one queued offline mutation.
type SyncItem struct {
	ID        string     `json:"id"`
	Action    SyncAction `json:"action"`
	UserID    string     `json:"user_id"`
	MealDate  string     `json:"meal_date"`
	Meals     []MealItem `json:"meals,omitempty"`
	Timestamp int64      `json:"timestamp"` // unix milliseconds
}

// Nutrition is a summed nutritional profile.
type Nutrition struct {
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fat      float64 `json:"fat"`
}

// Errors surfaced by the meals service.
var (
	// ErrNotFound is returned by source stores when no row exists for
	// a (user, date) pair.
	ErrNotFound = errors.New("meals: record not found")

	// ErrDayLocked rejects mutations against a locked (past-date)
	// record. Callers are expected to filter locked days before calling;
	// this is the backstop.
	ErrDayLocked = errors.New("meals: day is locked")

	// ErrInvalidMealType rejects items outside the four meal slots.
	ErrInvalidMealType = errors.New("meals: invalid meal type")
)
