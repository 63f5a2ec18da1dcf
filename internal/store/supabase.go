package store

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/supabase-community/postgrest-go"
	"github.com/supabase-community/supabase-go"

	"github.com/mealtier/mealtier/internal/meals"
	"github.com/mealtier/mealtier/internal/profile"
)

const (
	tableDailyMeals = "daily_meals"
	tableProfiles   = "profiles"

	// daily_meals has a unique constraint on this column pair; upserts
	// resolve against it.
	dailyMealsConflict = "user_id,meal_date"
)

// Supabase persists records through PostgREST. Safe for concurrent use;
// the underlying client is a stateless HTTP wrapper.
//
// The PostgREST client does not thread a context through its requests;
// each method checks ctx before dispatch so canceled callers at least
// fail fast.
type Supabase struct {
	client *supabase.Client
	log    zerolog.Logger
}

// GetDailyMeals returns the record for (userID, date), or
// meals.ErrNotFound when no row exists.
func (s *Supabase) GetDailyMeals(ctx context.Context, userID, date string) (*meals.DailyMeals, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var rows []meals.DailyMeals
	_, err := s.client.From(tableDailyMeals).
		Select("*", "", false).
		Eq("user_id", userID).
		Eq("meal_date", date).
		ExecuteTo(&rows)
	if err != nil {
		return nil, fmt.Errorf("store: select daily_meals: %w", err)
	}
	if len(rows) == 0 {
		return nil, meals.ErrNotFound
	}
	return &rows[0], nil
}

// UpsertDailyMeals inserts or replaces the row for (rec.UserID,
// rec.MealDate). Replay and retry both funnel through here, which is what
// makes them idempotent: the row after N identical upserts equals the row
// after one.
func (s *Supabase) UpsertDailyMeals(ctx context.Context, rec *meals.DailyMeals) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, _, err := s.client.From(tableDailyMeals).
		Insert(rec, true, dailyMealsConflict, "", "").
		Execute()
	if err != nil {
		return fmt.Errorf("store: upsert daily_meals: %w", err)
	}
	s.log.Debug().
		Str("user_id", rec.UserID).
		Str("meal_date", rec.MealDate).
		Int("meals", len(rec.Meals)).
		Msg("daily meals upserted")
	return nil
}

// DeleteDailyMeals removes the row for (userID, date). Deleting an absent
// row is not an error.
func (s *Supabase) DeleteDailyMeals(ctx context.Context, userID, date string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, _, err := s.client.From(tableDailyMeals).
		Delete("", "").
		Eq("user_id", userID).
		Eq("meal_date", date).
		Execute()
	if err != nil {
		return fmt.Errorf("store: delete daily_meals: %w", err)
	}
	s.log.Debug().Str("user_id", userID).Str("meal_date", date).Msg("daily meals deleted")
	return nil
}

// ListDailyMeals returns the records for userID with from <= meal_date <=
// to, ascending by date.
func (s *Supabase) ListDailyMeals(ctx context.Context, userID, from, to string) ([]meals.DailyMeals, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var rows []meals.DailyMeals
	_, err := s.client.From(tableDailyMeals).
		Select("*", "", false).
		Eq("user_id", userID).
		Gte("meal_date", from).
		Lte("meal_date", to).
		Order("meal_date", &postgrest.OrderOpts{Ascending: true}).
		ExecuteTo(&rows)
	if err != nil {
		return nil, fmt.Errorf("store: list daily_meals: %w", err)
	}
	return rows, nil
}

// GetProfile returns the profile for userID, or profile.ErrNotFound.
func (s *Supabase) GetProfile(ctx context.Context, userID string) (*profile.Profile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var rows []profile.Profile
	_, err := s.client.From(tableProfiles).
		Select("*", "", false).
		Eq("user_id", userID).
		ExecuteTo(&rows)
	if err != nil {
		return nil, fmt.Errorf("store: select profiles: %w", err)
	}
	if len(rows) == 0 {
		return nil, profile.ErrNotFound
	}
	return &rows[0], nil
}

// UpsertProfile inserts or replaces the profile row for p.UserID.
func (s *Supabase) UpsertProfile(ctx context.Context, p *profile.Profile) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, _, err := s.client.From(tableProfiles).
		Insert(p, true, "user_id", "", "").
		Execute()
	if err != nil {
		return fmt.Errorf("store: upsert profiles: %w", err)
	}
	s.log.Debug().Str("user_id", p.UserID).Msg("profile upserted")
	return nil
}
