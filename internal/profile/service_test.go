package profile_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mealtier/mealtier/internal/cache"
	"github.com/mealtier/mealtier/internal/local"
	"github.com/mealtier/mealtier/internal/netwatch"
	"github.com/mealtier/mealtier/internal/profile"
	"github.com/mealtier/mealtier/internal/remote"
	"github.com/mealtier/mealtier/internal/store"
)

type harness struct {
	svc    *profile.Service
	source *store.Memory
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

	svc := profile.NewService(src, cacheSvc, localStore, net, profile.DefaultConfig())
	t.Cleanup(svc.WaitBackground)

	return &harness{svc: svc, source: src, net: net}
}

func testProfile() *profile.Profile {
	return &profile.Profile{
		UserID:             "u1",
		DisplayName:        "Sam",
		Age:                31,
		HeightCm:           172,
		WeightKg:           68,
		Goal:               "maintain",
		ActivityLevel:      "moderate",
		DailyCalorieTarget: 2200,
		Onboarded:          true,
	}
}

func TestService_UpdateThenGet(t *testing.T) {
	h := newHarness(t, true)
	ctx := context.Background()

	require.NoError(t, h.svc.Update(ctx, nil, testProfile(), profile.Callbacks{}))

	got, err := h.svc.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Sam", got.DisplayName)
	assert.InDelta(t, 2200, got.DailyCalorieTarget, 0.001)
	assert.False(t, got.UpdatedAt.IsZero())
}

func TestService_GetUnknownUser(t *testing.T) {
	h := newHarness(t, true)

	_, err := h.svc.Get(context.Background(), "nobody")
	assert.ErrorIs(t, err, profile.ErrNotFound)
}

func TestService_OptimisticCallbackBeforeWrite(t *testing.T) {
	h := newHarness(t, true)
	ctx := context.Background()

	var writesAtCallback int
	cb := profile.Callbacks{
		OnOptimistic: func(p *profile.Profile) {
			writesAtCallback = h.source.WriteCount()
			assert.Equal(t, "Sam", p.DisplayName)
		},
	}

	require.NoError(t, h.svc.Update(ctx, nil, testProfile(), cb))
	assert.Equal(t, 0, writesAtCallback)
	assert.Equal(t, 1, h.source.WriteCount())
}

func TestService_RollbackOnWriteFailure(t *testing.T) {
	h := newHarness(t, true)
	ctx := context.Background()

	previous := testProfile()
	require.NoError(t, h.svc.Update(ctx, nil, previous, profile.Callbacks{}))

	h.source.FailNextWrite(assert.AnError)

	edited := *previous
	edited.DailyCalorieTarget = 1800

	var rolledBack *profile.Profile
	err := h.svc.Update(ctx, previous, &edited, profile.Callbacks{
		OnRollback: func(p *profile.Profile, err error) {
			rolledBack = p
			assert.ErrorIs(t, err, assert.AnError)
		},
	})
	require.Error(t, err)
	require.NotNil(t, rolledBack)
	assert.InDelta(t, 2200, rolledBack.DailyCalorieTarget, 0.001)

	// The source still holds the pre-update row.
	src, err := h.source.GetProfile(ctx, "u1")
	require.NoError(t, err)
	assert.InDelta(t, 2200, src.DailyCalorieTarget, 0.001)
}

func TestService_OfflineUpdateStaysLocal(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()

	require.NoError(t, h.svc.Update(ctx, nil, testProfile(), profile.Callbacks{}))
	assert.Equal(t, 0, h.source.WriteCount())

	// The offline read serves the local copy.
	got, err := h.svc.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Sam", got.DisplayName)
}

func TestService_InvalidateForcesSourceRead(t *testing.T) {
	h := newHarness(t, true)
	ctx := context.Background()

	require.NoError(t, h.svc.Update(ctx, nil, testProfile(), profile.Callbacks{}))
	h.svc.WaitBackground()

	// Mutate the source behind the tiers' back, then invalidate.
	fresh := testProfile()
	fresh.DisplayName = "Samantha"
	require.NoError(t, h.source.UpsertProfile(ctx, fresh))

	h.svc.Invalidate(ctx, "u1")
	h.svc.WaitBackground()

	got, err := h.svc.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Samantha", got.DisplayName)
}
