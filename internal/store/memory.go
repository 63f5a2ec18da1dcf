package store

import (
	"context"
	"sync"
	"time"

	"github.com/mealtier/mealtier/internal/meals"
	"github.com/mealtier/mealtier/internal/profile"
)

// Memory is an in-process source-of-truth store for tests and offline
// development. It honors the same contracts as the Supabase store:
// upsert-by-(user,date), not-found sentinels, whole-row overwrites.
//
// FailNextWrite arms a one-shot write fault, which is how rollback paths
// get exercised without a real backend outage.
type Memory struct {
	mu       sync.Mutex
	days     map[string]*meals.DailyMeals
	profiles map[string]*profile.Profile

	failNext error

	// WriteCount tallies successful daily-meals writes, letting tests
	// assert that offline paths never touched the store.
	writeCount int
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		days:     make(map[string]*meals.DailyMeals),
		profiles: make(map[string]*profile.Profile),
	}
}

// FailNextWrite arms a fault: the next mutating call returns err and
// disarms. A nil err disarms immediately.
func (m *Memory) FailNextWrite(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNext = err
}

// WriteCount returns how many daily-meals mutations have succeeded.
func (m *Memory) WriteCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writeCount
}

// takeFault consumes the armed fault, if any. Caller must hold mu.
func (m *Memory) takeFault() error {
	err := m.failNext
	m.failNext = nil
	return err
}

func dayKey(userID, date string) string {
	return userID + "|" + date
}

func cloneDay(rec *meals.DailyMeals) *meals.DailyMeals {
	out := *rec
	out.Meals = make([]meals.MealItem, len(rec.Meals))
	copy(out.Meals, rec.Meals)
	return &out
}

// GetDailyMeals returns the record for (userID, date), or meals.ErrNotFound.
func (m *Memory) GetDailyMeals(ctx context.Context, userID, date string) (*meals.DailyMeals, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.days[dayKey(userID, date)]
	if !ok {
		return nil, meals.ErrNotFound
	}
	return cloneDay(rec), nil
}

// UpsertDailyMeals inserts or replaces the row for (rec.UserID, rec.MealDate).
func (m *Memory) UpsertDailyMeals(ctx context.Context, rec *meals.DailyMeals) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.takeFault(); err != nil {
		return err
	}

	stored := cloneDay(rec)
	stored.UpdatedAt = time.Now()
	if existing, ok := m.days[dayKey(rec.UserID, rec.MealDate)]; ok {
		stored.CreatedAt = existing.CreatedAt
	} else if stored.CreatedAt.IsZero() {
		stored.CreatedAt = stored.UpdatedAt
	}
	m.days[dayKey(rec.UserID, rec.MealDate)] = stored
	m.writeCount++
	return nil
}

// DeleteDailyMeals removes the row for (userID, date), if present.
func (m *Memory) DeleteDailyMeals(ctx context.Context, userID, date string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.takeFault(); err != nil {
		return err
	}
	delete(m.days, dayKey(userID, date))
	m.writeCount++
	return nil
}

// ListDailyMeals returns the records for userID with from <= meal_date <= to,
// ascending by date.
func (m *Memory) ListDailyMeals(ctx context.Context, userID, from, to string) ([]meals.DailyMeals, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []meals.DailyMeals
	for _, rec := range m.days {
		if rec.UserID == userID && rec.MealDate >= from && rec.MealDate <= to {
			out = append(out, *cloneDay(rec))
		}
	}
	// ISO dates sort lexically.
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1].MealDate > out[j].MealDate; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out, nil
}

// GetProfile returns the profile for userID, or profile.ErrNotFound.
func (m *Memory) GetProfile(ctx context.Context, userID string) (*profile.Profile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.profiles[userID]
	if !ok {
		return nil, profile.ErrNotFound
	}
	out := *p
	return &out, nil
}

// UpsertProfile inserts or replaces the profile row for p.UserID.
func (m *Memory) UpsertProfile(ctx context.Context, p *profile.Profile) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.takeFault(); err != nil {
		return err
	}
	stored := *p
	stored.UpdatedAt = time.Now()
	m.profiles[p.UserID] = &stored
	return nil
}
