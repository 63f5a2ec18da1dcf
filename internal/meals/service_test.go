package meals_test

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mealtier/mealtier/internal/cache"
	"github.com/mealtier/mealtier/internal/local"
	"github.com/mealtier/mealtier/internal/meals"
	"github.com/mealtier/mealtier/internal/netwatch"
	"github.com/mealtier/mealtier/internal/remote"
	"github.com/mealtier/mealtier/internal/store"
)

type harness struct {
	svc    *meals.Service
	source *store.Memory
	local  *local.Store
	net    *netwatch.Static
}

func newHarness(t *testing.T, online bool) *harness {
	t.Helper()

	src := store.NewMemory()
	cacheSvc := cache.NewService(remote.NewMemory())
	localStore, err := local.Open(filepath.Join(t.TempDir(), "tiers.db"))
	require.NoError(t, err)
	t.Cleanup(func() { localStore.Close() })
	net := netwatch.NewStatic(online)

	svc := meals.NewService(src, cacheSvc, localStore, net, meals.DefaultConfig())
	// Drain background refreshes before the bolt store closes.
	t.Cleanup(svc.WaitBackground)

	return &harness{
		svc:    svc,
		source: src,
		local:  localStore,
		net:    net,
	}
}

func breakfastItem(name string, calories float64) meals.MealItem {
	return meals.MealItem{
		MealType: meals.Breakfast,
		Name:     name,
		Calories: calories,
		Time:     "08:30",
	}
}

func TestService_AddThenReadBack(t *testing.T) {
	h := newHarness(t, true)
	ctx := context.Background()

	err := h.svc.AddMeal(ctx, nil, "u1", "2025-03-01", breakfastItem("Oats", 280), meals.Callbacks{})
	require.NoError(t, err)

	day, err := h.svc.MealsForDate(ctx, "u1", "2025-03-01")
	require.NoError(t, err)
	require.NotNil(t, day)
	require.Len(t, day.Meals, 1)
	assert.Equal(t, "Oats", day.Meals[0].Name)
	assert.Equal(t, meals.Breakfast, day.Meals[0].MealType)
	assert.NotEmpty(t, day.Meals[0].ID)

	total := meals.TotalNutrition(day.Meals)
	assert.InDelta(t, 280, total.Calories, 0.001)
}

func TestService_OptimisticCallbackFiresBeforeWrite(t *testing.T) {
	h := newHarness(t, true)
	ctx := context.Background()

	var sawItems []meals.MealItem
	var writesAtCallback int
	cb := meals.Callbacks{
		OnOptimistic: func(items []meals.MealItem) {
			sawItems = items
			writesAtCallback = h.source.WriteCount()
		},
	}

	require.NoError(t, h.svc.AddMeal(ctx, nil, "u1", "2025-03-01", breakfastItem("Oats", 280), cb))

	require.Len(t, sawItems, 1)
	assert.Equal(t, 0, writesAtCallback, "optimistic callback must precede source I/O")
	assert.Equal(t, 1, h.source.WriteCount())
}

func TestService_RollbackSequenceOnWriteFailure(t *testing.T) {
	h := newHarness(t, true)
	ctx := context.Background()

	existing := meals.MealItem{ID: "meal_1", MealType: meals.Lunch, Name: "Salad", Calories: 150}
	current := &meals.DailyMeals{
		ID:       "rec_1",
		UserID:   "u1",
		MealDate: "2025-03-01",
		Meals:    []meals.MealItem{existing},
	}

	h.source.FailNextWrite(assert.AnError)

	var sequence []string
	var optimistic, rolledBack []meals.MealItem
	cb := meals.Callbacks{
		OnOptimistic: func(items []meals.MealItem) {
			sequence = append(sequence, "optimistic")
			optimistic = items
		},
		OnRollback: func(items []meals.MealItem, err error) {
			sequence = append(sequence, "rollback")
			rolledBack = items
			assert.ErrorIs(t, err, assert.AnError)
		},
	}

	err := h.svc.AddMeal(ctx, current, "u1", "2025-03-01", breakfastItem("Oats", 280), cb)
	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)

	require.Equal(t, []string{"optimistic", "rollback"}, sequence)
	require.Len(t, optimistic, 2)
	require.Len(t, rolledBack, 1)
	assert.Equal(t, "Salad", rolledBack[0].Name, "rollback must carry the exact pre-mutation list")
}

func TestService_OfflineMutationQueuesWithoutSourceContact(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()

	require.NoError(t, h.svc.AddMeal(ctx, nil, "u1", "2025-03-01", breakfastItem("Oats", 280), meals.Callbacks{}))

	assert.Equal(t, 0, h.source.WriteCount(), "offline writes must not touch the source")
	assert.Equal(t, 1, h.svc.PendingSync(ctx))

	// The local tier holds the optimistic state and serves offline reads.
	day, err := h.svc.MealsForDate(ctx, "u1", "2025-03-01")
	require.NoError(t, err)
	require.NotNil(t, day)
	require.Len(t, day.Meals, 1)
	assert.Equal(t, "Oats", day.Meals[0].Name)
}

func TestService_SyncOfflineReplaysFIFO(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()

	oats := breakfastItem("Oats", 280)
	require.NoError(t, h.svc.AddMeal(ctx, nil, "u1", "2025-03-01", oats, meals.Callbacks{}))

	day, err := h.svc.MealsForDate(ctx, "u1", "2025-03-01")
	require.NoError(t, err)
	require.NoError(t, h.svc.AddMeal(ctx, day, "u1", "2025-03-01", meals.MealItem{
		MealType: meals.Lunch, Name: "Salad", Calories: 150,
	}, meals.Callbacks{}))
	require.Equal(t, 2, h.svc.PendingSync(ctx))

	h.net.SetOnline(true)
	replayed, err := h.svc.SyncOffline(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, replayed)
	assert.Equal(t, 0, h.svc.PendingSync(ctx))

	rec, err := h.source.GetDailyMeals(ctx, "u1", "2025-03-01")
	require.NoError(t, err)
	require.Len(t, rec.Meals, 2)
	assert.Equal(t, "Oats", rec.Meals[0].Name)
	assert.Equal(t, "Salad", rec.Meals[1].Name)
}

func TestService_SyncOfflineIsIdempotent(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()

	require.NoError(t, h.svc.AddMeal(ctx, nil, "u1", "2025-03-01", breakfastItem("Oats", 280), meals.Callbacks{}))
	h.net.SetOnline(true)

	first, err := h.svc.SyncOffline(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, first)

	second, err := h.svc.SyncOffline(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, second, "drained queue must not replay again")

	rec, err := h.source.GetDailyMeals(ctx, "u1", "2025-03-01")
	require.NoError(t, err)
	assert.Len(t, rec.Meals, 1)
}

func TestService_SyncHaltsOnFailureAndRetains(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()

	require.NoError(t, h.svc.AddMeal(ctx, nil, "u1", "2025-03-01", breakfastItem("Oats", 280), meals.Callbacks{}))
	require.NoError(t, h.svc.AddMeal(ctx, nil, "u1", "2025-03-02", breakfastItem("Eggs", 210), meals.Callbacks{}))

	h.net.SetOnline(true)
	h.source.FailNextWrite(assert.AnError)

	replayed, err := h.svc.SyncOffline(ctx)
	require.Error(t, err)
	assert.Equal(t, 0, replayed)
	assert.Equal(t, 2, h.svc.PendingSync(ctx), "failed item and successors stay queued")

	replayed, err = h.svc.SyncOffline(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, replayed)
	assert.Equal(t, 0, h.svc.PendingSync(ctx))
}

func TestService_ClearThenReadIsEmpty(t *testing.T) {
	h := newHarness(t, true)
	ctx := context.Background()

	require.NoError(t, h.svc.AddMeal(ctx, nil, "u1", "2025-03-01", breakfastItem("Oats", 280), meals.Callbacks{}))
	day, err := h.svc.MealsForDate(ctx, "u1", "2025-03-01")
	require.NoError(t, err)
	require.NotNil(t, day)

	require.NoError(t, h.svc.ClearMeals(ctx, day, "u1", "2025-03-01", meals.Callbacks{}))
	h.svc.WaitBackground()

	got, err := h.svc.MealsForDate(ctx, "u1", "2025-03-01")
	require.NoError(t, err)
	if got != nil {
		assert.Empty(t, got.Meals)
	}

	_, err = h.source.GetDailyMeals(ctx, "u1", "2025-03-01")
	assert.ErrorIs(t, err, meals.ErrNotFound)
}

func TestService_UpdateAndRemove(t *testing.T) {
	h := newHarness(t, true)
	ctx := context.Background()

	require.NoError(t, h.svc.AddMeal(ctx, nil, "u1", "2025-03-01", breakfastItem("Oats", 280), meals.Callbacks{}))
	require.NoError(t, h.svc.AddMeal(
		ctx,
		mustDay(t, h, "u1", "2025-03-01"),
		"u1", "2025-03-01",
		meals.MealItem{MealType: meals.Lunch, Name: "Salad", Calories: 150},
		meals.Callbacks{},
	))

	day := mustDay(t, h, "u1", "2025-03-01")
	require.Len(t, day.Meals, 2)

	edited := day.Meals[0]
	edited.Calories = 320
	require.NoError(t, h.svc.UpdateMeal(ctx, day, "u1", "2025-03-01", edited, meals.Callbacks{}))

	day = mustDay(t, h, "u1", "2025-03-01")
	assert.InDelta(t, 320, day.Meals[0].Calories, 0.001)

	require.NoError(t, h.svc.RemoveMeal(ctx, day, "u1", "2025-03-01", day.Meals[1].ID, meals.Callbacks{}))
	day = mustDay(t, h, "u1", "2025-03-01")
	require.Len(t, day.Meals, 1)
	assert.InDelta(t, 320, meals.TotalNutrition(day.Meals).Calories, 0.001)
}

func mustDay(t *testing.T, h *harness, userID, date string) *meals.DailyMeals {
	t.Helper()
	day, err := h.svc.MealsForDate(context.Background(), userID, date)
	require.NoError(t, err)
	require.NotNil(t, day)
	return day
}

func TestService_LockedDayRejectsMutation(t *testing.T) {
	h := newHarness(t, true)
	ctx := context.Background()

	locked := &meals.DailyMeals{
		ID:       "rec_1",
		UserID:   "u1",
		MealDate: "2025-02-01",
		IsLocked: true,
	}
	err := h.svc.AddMeal(ctx, locked, "u1", "2025-02-01", breakfastItem("Oats", 280), meals.Callbacks{})
	assert.ErrorIs(t, err, meals.ErrDayLocked)
	assert.Equal(t, 0, h.source.WriteCount())
}

func TestService_InvalidMealTypeRejected(t *testing.T) {
	h := newHarness(t, true)

	err := h.svc.AddMeal(context.Background(), nil, "u1", "2025-03-01", meals.MealItem{
		MealType: "brunch",
		Name:     "Pancakes",
	}, meals.Callbacks{})
	assert.ErrorIs(t, err, meals.ErrInvalidMealType)
}

func TestService_OfflineReadMissReturnsNothing(t *testing.T) {
	h := newHarness(t, false)

	day, err := h.svc.MealsForDate(context.Background(), "u1", "2025-03-01")
	require.NoError(t, err)
	assert.Nil(t, day)
	assert.Equal(t, 0, h.source.WriteCount())
}

func TestService_HistoryListsRange(t *testing.T) {
	h := newHarness(t, true)
	ctx := context.Background()

	for _, date := range []string{"2025-03-03", "2025-03-01", "2025-03-02"} {
		require.NoError(t, h.svc.AddMeal(ctx, nil, "u1", date, breakfastItem("Oats", 280), meals.Callbacks{}))
	}

	days, err := h.svc.History(ctx, "u1", "2025-03-01", "2025-03-02")
	require.NoError(t, err)
	require.Len(t, days, 2)
	assert.Equal(t, "2025-03-01", days[0].MealDate)
	assert.Equal(t, "2025-03-02", days[1].MealDate)
}

// wrappingSource decorates a source store, wrapping every error the way a
// driver adding call-site context would.
type wrappingSource struct {
	inner *store.Memory
}

func (w *wrappingSource) GetDailyMeals(ctx context.Context, userID, date string) (*meals.DailyMeals, error) {
	rec, err := w.inner.GetDailyMeals(ctx, userID, date)
	if err != nil {
		return nil, fmt.Errorf("source: get %s/%s: %w", userID, date, err)
	}
	return rec, nil
}

func (w *wrappingSource) UpsertDailyMeals(ctx context.Context, rec *meals.DailyMeals) error {
	return w.inner.UpsertDailyMeals(ctx, rec)
}

func (w *wrappingSource) DeleteDailyMeals(ctx context.Context, userID, date string) error {
	return w.inner.DeleteDailyMeals(ctx, userID, date)
}

func (w *wrappingSource) ListDailyMeals(ctx context.Context, userID, from, to string) ([]meals.DailyMeals, error) {
	return w.inner.ListDailyMeals(ctx, userID, from, to)
}

func TestService_WrappedAbsenceStillReadsAsEmpty(t *testing.T) {
	src := &wrappingSource{inner: store.NewMemory()}
	cacheSvc := cache.NewService(remote.NewMemory())
	localStore, err := local.Open(filepath.Join(t.TempDir(), "tiers.db"))
	require.NoError(t, err)
	t.Cleanup(func() { localStore.Close() })
	net := netwatch.NewStatic(false)

	svc := meals.NewService(src, cacheSvc, localStore, net, meals.DefaultConfig())
	t.Cleanup(svc.WaitBackground)
	ctx := context.Background()

	// Queue a mutation offline, then replay against a source whose
	// absence sentinel arrives wrapped. The replay must treat it as an
	// empty day, not as a failure.
	require.NoError(t, svc.AddMeal(ctx, nil, "u1", "2025-03-01", breakfastItem("Oats", 280), meals.Callbacks{}))
	net.SetOnline(true)

	replayed, err := svc.SyncOffline(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, replayed)

	// A read of a day the source has never seen likewise maps the
	// wrapped sentinel to an empty answer.
	day, err := svc.MealsForDate(ctx, "u1", "2025-04-15")
	require.NoError(t, err)
	assert.Nil(t, day)
}

func TestNewMealID_Unique(t *testing.T) {
	seen := make(map[string]struct{}, 1000)
	for range 1000 {
		id := meals.NewMealID()
		_, dup := seen[id]
		require.False(t, dup, "duplicate meal id %q", id)
		seen[id] = struct{}{}
	}
}
