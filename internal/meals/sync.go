package meals

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mealtier/mealtier/internal/cache"
	"github.com/mealtier/mealtier/internal/keys"
	"github.com/mealtier/mealtier/internal/local"
)

// appendSync serializes one mutation onto the durable replay queue.
func appendSync(ctx context.Context, store *local.Store, item SyncItem) error {
	payload, err := json.Marshal(item)
	if err != nil {
		return err
	}
	return store.AppendSync(ctx, item.ID, payload)
}

// SyncOffline replays queued offline mutations against the source of
// truth in FIFO order. Each item is removed from the queue only after its
// write succeeds; the first failure stops the drain so later items, which
// may build on the failed one, keep their order for the next attempt.
//
// Replay is idempotent: every queued item carries the full post-mutation
// list for its day, so upserting the same item twice converges on the
// same row.
//
// Returns the number of mutations replayed.
func (s *Service) SyncOffline(ctx context.Context) (int, error) {
	if !s.net.Probe(ctx) {
		s.log.Debug().Msg("sync skipped, probe says offline")
		return 0, nil
	}

	queue := s.local.SyncQueue(ctx)
	if len(queue) == 0 {
		return 0, nil
	}
	s.log.Info().Int("queued", len(queue)).Msg("replaying offline mutations")

	replayed := 0
	for _, qm := range queue {
		var item SyncItem
		if err := json.Unmarshal(qm.Payload, &item); err != nil {
			// Unreadable payloads can never replay; drop them instead
			// of wedging the queue.
			s.log.Error().Err(err).Str("id", qm.ID).Msg("dropping corrupt sync item")
			s.local.RemoveSync(ctx, qm.ID)
			continue
		}

		if err := s.replay(ctx, item); err != nil {
			s.log.Warn().
				Err(err).
				Str("id", item.ID).
				Str("action", string(item.Action)).
				Msg("sync halted, item left queued")
			return replayed, fmt.Errorf("meals: replay %s: %w", item.ID, err)
		}

		s.local.RemoveSync(ctx, qm.ID)
		replayed++
	}

	s.log.Info().Int("replayed", replayed).Msg("offline sync complete")
	return replayed, nil
}

// replay applies a single queued mutation to the source of truth and
// refreshes the remote cache to match.
func (s *Service) replay(ctx context.Context, item SyncItem) error {
	cacheKey := keys.Meals(item.UserID, item.MealDate)

	if item.Action == ActionClear {
		if err := s.source.DeleteDailyMeals(ctx, item.UserID, item.MealDate); err != nil {
			return err
		}
		s.cache.Del(ctx, cacheKey)
		return nil
	}

	// The queued state may predate a record created on another device;
	// reuse the live row's identity when one exists.
	existing, err := s.source.GetDailyMeals(ctx, item.UserID, item.MealDate)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}

	rec := s.buildRecord(existing, item.UserID, item.MealDate, item.Meals)
	if err := s.source.UpsertDailyMeals(ctx, rec); err != nil {
		return err
	}
	cache.SetTyped(ctx, s.cache, cacheKey, rec, s.cacheOpts(item.UserID))
	return nil
}

// PendingSync reports how many offline mutations await replay.
func (s *Service) PendingSync(ctx context.Context) int {
	return len(s.local.SyncQueue(ctx))
}
