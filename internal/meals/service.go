package meals

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/mealtier/mealtier/internal/cache"
	"github.com/mealtier/mealtier/internal/keys"
	"github.com/mealtier/mealtier/internal/local"
	"github.com/mealtier/mealtier/internal/netwatch"
	"github.com/mealtier/mealtier/internal/pkg/kmu"
)

// SourceStore is the source-of-truth contract the service consumes.
// Any store that can select, upsert, and delete by (user, date) fits.
type SourceStore interface {
	GetDailyMeals(ctx context.Context, userID, date string) (*DailyMeals, error)
	UpsertDailyMeals(ctx context.Context, rec *DailyMeals) error
	DeleteDailyMeals(ctx context.Context, userID, date string) error
	ListDailyMeals(ctx context.Context, userID, from, to string) ([]DailyMeals, error)
}

// Callbacks carries the UI hooks for one optimistic mutation.
type Callbacks struct {
	// OnOptimistic fires with the post-mutation list before any I/O.
	OnOptimistic func(items []MealItem)

	// OnRollback fires with the pre-mutation list when the
	// source-of-truth write fails. The caller restores its UI from it.
	OnRollback func(items []MealItem, err error)
}

func (c Callbacks) optimistic(items []MealItem) {
	if c.OnOptimistic != nil {
		c.OnOptimistic(items)
	}
}

func (c Callbacks) rollback(items []MealItem, err error) {
	if c.OnRollback != nil {
		c.OnRollback(items, err)
	}
}

// Config tunes the service's tier behavior.
type Config struct {
	// CacheTTL is the remote-cache freshness lifetime for meal logs.
	CacheTTL time.Duration `yaml:"cache_ttl" toml:"cache_ttl"`

	// CacheGrace is the stale-while-revalidate window past CacheTTL.
	CacheGrace time.Duration `yaml:"cache_grace" toml:"cache_grace"`

	// LocalTTL is the age past which a local record is served as stale.
	LocalTTL time.Duration `yaml:"local_ttl" toml:"local_ttl"`
}

// DefaultConfig returns the production tuning: 5 minute cache TTL with a
// 1 minute grace window, 24 hour local staleness threshold.
func DefaultConfig() Config {
	return Config{
		CacheTTL:   5 * time.Minute,
		CacheGrace: time.Minute,
		LocalTTL:   24 * time.Hour,
	}
}

// Service orchestrates the three tiers for the per-user-per-date meal
// log. Safe for concurrent use; mutations on the same (user, date) are
// serialized by a keyed mutex so rapid double-taps cannot interleave
// their read-compute-persist sequences.
type Service struct {
	source SourceStore
	cache  *cache.Service
	local  *local.Store
	net    netwatch.Monitor
	cfg    Config
	log    zerolog.Logger

	locks *kmu.Mutex
	bg    sync.WaitGroup

	now func() time.Time
}

// NewService wires the meal log service over its three tiers.
func NewService(source SourceStore, cacheSvc *cache.Service, localStore *local.Store, net netwatch.Monitor, cfg Config) *Service {
	if cfg.CacheTTL <= 0 {
		cfg = DefaultConfig()
	}
	return &Service{
		source: source,
		cache:  cacheSvc,
		local:  localStore,
		net:    net,
		cfg:    cfg,
		log:    logger(),
		locks:  kmu.New(),
		now:    time.Now,
	}
}

func (s *Service) cacheOpts(userID string) cache.Options {
	return cache.Options{
		TTL:   s.cfg.CacheTTL,
		Grace: s.cfg.CacheGrace,
		Tags:  []string{keys.UserMealsTag(userID)},
	}
}

// MealsForDate returns the meal log for (userID, date), preferring the
// fastest tier that has an answer:
//
//  1. Offline: the local record or nothing; remote tiers are not touched.
//  2. Local hit: returned immediately, with a background refresh pulling
//     the authoritative record down through the remote tiers.
//  3. Local miss: a synchronous cache-aside read against the source of
//     truth, after which the local tier is populated.
//
// A day with no record returns (nil, nil): absence is an answer here,
// not an error.
func (s *Service) MealsForDate(ctx context.Context, userID, date string) (*DailyMeals, error) {
	localKey := keys.LocalMeals(userID, date)

	if !s.net.Online() {
		rec, found, _ := local.GetTyped[DailyMeals](ctx, s.local, localKey, s.cfg.LocalTTL)
		if !found {
			return nil, nil
		}
		s.log.Debug().Str("user_id", userID).Str("date", date).Msg("offline read served from local tier")
		return &rec, nil
	}

	if rec, found, _ := local.GetTyped[DailyMeals](ctx, s.local, localKey, s.cfg.LocalTTL); found {
		s.refreshInBackground(userID, date)
		return &rec, nil
	}

	rec, err := cache.GetOrSet(ctx, s.cache, keys.Meals(userID, date), s.sourceFetcher(userID, date), s.cacheOpts(userID))
	if err != nil {
		return nil, err
	}
	if rec != nil {
		local.SetTyped(ctx, s.local, localKey, rec)
	}
	return rec, nil
}

// sourceFetcher adapts the source store to a cache fetcher. Absence maps
// to a nil record rather than an error, so empty days are cached too and
// do not hammer the source.
func (s *Service) sourceFetcher(userID, date string) cache.Fetcher[*DailyMeals] {
	return func(ctx context.Context) (*DailyMeals, error) {
		rec, err := s.source.GetDailyMeals(ctx, userID, date)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil, nil
			}
			return nil, err
		}
		return rec, nil
	}
}

// refreshInBackground pulls the authoritative record and repopulates the
// faster tiers. Fire-and-forget: the caller has already returned its
// answer, and every tier read re-validates freshness before trusting a
// value, so losing the race is harmless.
func (s *Service) refreshInBackground(userID, date string) {
	s.bg.Add(1)
	go func() {
		defer s.bg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		rec, err := s.source.GetDailyMeals(ctx, userID, date)
		switch {
		case errors.Is(err, ErrNotFound):
			// Deleted elsewhere; drop the derived copies.
			s.local.Remove(ctx, keys.LocalMeals(userID, date))
			s.cache.Del(ctx, keys.Meals(userID, date))
		case err != nil:
			s.log.Warn().Err(err).Str("user_id", userID).Str("date", date).Msg("background refresh failed")
		default:
			cache.SetTyped(ctx, s.cache, keys.Meals(userID, date), rec, s.cacheOpts(userID))
			local.SetTyped(ctx, s.local, keys.LocalMeals(userID, date), rec)
		}
	}()
}

// WaitBackground blocks until background refreshes spawned so far have
// finished. Intended for tests and orderly shutdown.
func (s *Service) WaitBackground() {
	s.bg.Wait()
	s.cache.WaitBackground()
}

// AddMeal appends item to the day's log optimistically. current is the
// caller's view of the day (nil for an untouched day); the service never
// re-fetches state inside a mutation.
func (s *Service) AddMeal(ctx context.Context, current *DailyMeals, userID, date string, item MealItem, cb Callbacks) error {
	if !item.MealType.Valid() {
		return ErrInvalidMealType
	}
	if item.ID == "" {
		item.ID = NewMealID()
	}
	if item.AddedAt == 0 {
		item.AddedAt = s.now().UnixMilli()
	}

	updated := append(currentItems(current), item)
	return s.mutate(ctx, current, userID, date, ActionAdd, updated, cb)
}

// UpdateMeal replaces the item with updated.ID in the day's log.
func (s *Service) UpdateMeal(ctx context.Context, current *DailyMeals, userID, date string, updatedItem MealItem, cb Callbacks) error {
	items := lo.Map(currentItems(current), func(it MealItem, _ int) MealItem {
		if it.ID == updatedItem.ID {
			return updatedItem
		}
		return it
	})
	return s.mutate(ctx, current, userID, date, ActionUpdate, items, cb)
}

// RemoveMeal deletes the item with itemID from the day's log.
func (s *Service) RemoveMeal(ctx context.Context, current *DailyMeals, userID, date, itemID string, cb Callbacks) error {
	items := lo.Reject(currentItems(current), func(it MealItem, _ int) bool {
		return it.ID == itemID
	})
	return s.mutate(ctx, current, userID, date, ActionDelete, items, cb)
}

// ClearMeals removes the whole day. Unlike the other mutations this
// deletes the source-of-truth row and the cached entry rather than
// writing an empty list: "no meals logged today" is the absence of a
// record, not a record of nothing.
func (s *Service) ClearMeals(ctx context.Context, current *DailyMeals, userID, date string, cb Callbacks) error {
	return s.mutate(ctx, current, userID, date, ActionClear, nil, cb)
}

func currentItems(current *DailyMeals) []MealItem {
	if current == nil {
		return nil
	}
	// Copy so optimistic arrays never alias the caller's state.
	out := make([]MealItem, len(current.Meals))
	copy(out, current.Meals)
	return out
}

// mutate runs the uniform optimistic write contract:
//
//  1. The post-mutation list was computed by the caller entry point from
//     in-memory state; no tier is read inside the mutation.
//  2. The optimistic callback fires before any I/O.
//  3. The local tier is written immediately, so a crash right after this
//     point still preserves the user's intent offline.
//  4. Offline: the mutation is queued for replay and that is success.
//  5. Online: the source row is upserted (or deleted, for clear) and the
//     remote cache updated in place; on failure the rollback callback
//     fires with the pre-mutation list and the error is returned. No
//     automatic retry.
func (s *Service) mutate(ctx context.Context, current *DailyMeals, userID, date string, action SyncAction, updated []MealItem, cb Callbacks) error {
	if current != nil && current.IsLocked {
		return ErrDayLocked
	}

	lockKey := userID + "|" + date
	s.locks.Lock(lockKey)
	defer s.locks.Unlock(lockKey)

	original := currentItems(current)
	rec := s.buildRecord(current, userID, date, updated)

	cb.optimistic(updated)

	localKey := keys.LocalMeals(userID, date)
	if action == ActionClear {
		s.local.Remove(ctx, localKey)
	} else {
		local.SetTyped(ctx, s.local, localKey, rec)
	}

	if !s.net.Online() {
		item := SyncItem{
			ID:        NewSyncID(),
			Action:    action,
			UserID:    userID,
			MealDate:  date,
			Meals:     updated,
			Timestamp: s.now().UnixMilli(),
		}
		if err := appendSync(ctx, s.local, item); err != nil {
			// The local tier already holds the optimistic state; a
			// queue append failure loses only the replay, so it is
			// surfaced rather than rolled back.
			return fmt.Errorf("meals: queue offline mutation: %w", err)
		}
		s.log.Debug().
			Str("user_id", userID).
			Str("date", date).
			Str("action", string(action)).
			Msg("offline mutation queued")
		return nil
	}

	if err := s.persist(ctx, action, rec, userID, date); err != nil {
		cb.rollback(original, err)
		return fmt.Errorf("meals: %s for %s/%s: %w", action, userID, date, err)
	}
	return nil
}

// persist applies one mutation to the source of truth and mirrors it into
// the remote cache.
func (s *Service) persist(ctx context.Context, action SyncAction, rec *DailyMeals, userID, date string) error {
	cacheKey := keys.Meals(userID, date)

	if action == ActionClear {
		if err := s.source.DeleteDailyMeals(ctx, userID, date); err != nil {
			return err
		}
		s.cache.Del(ctx, cacheKey)
		return nil
	}

	if err := s.source.UpsertDailyMeals(ctx, rec); err != nil {
		return err
	}
	cache.SetTyped(ctx, s.cache, cacheKey, rec, s.cacheOpts(userID))
	return nil
}

// buildRecord assembles the post-mutation record, preserving identity and
// creation time of an existing row.
func (s *Service) buildRecord(current *DailyMeals, userID, date string, items []MealItem) *DailyMeals {
	now := s.now()
	rec := &DailyMeals{
		UserID:    userID,
		MealDate:  date,
		Meals:     items,
		UpdatedAt: now,
	}
	if current != nil {
		rec.ID = current.ID
		rec.CreatedAt = current.CreatedAt
		rec.IsLocked = current.IsLocked
	}
	if rec.ID == "" {
		rec.ID = NewRecordID()
		rec.CreatedAt = now
	}
	return rec
}

// History returns the user's records in [from, to], straight from the
// source of truth. History views are infrequent; they bypass the cache
// tiers and require connectivity.
func (s *Service) History(ctx context.Context, userID, from, to string) ([]DailyMeals, error) {
	return s.source.ListDailyMeals(ctx, userID, from, to)
}
