package profile

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/mealtier/mealtier/internal/cache"
	"github.com/mealtier/mealtier/internal/keys"
	"github.com/mealtier/mealtier/internal/local"
	"github.com/mealtier/mealtier/internal/netwatch"
)

// SourceStore is the source-of-truth contract the profile service
// consumes.
type SourceStore interface {
	GetProfile(ctx context.Context, userID string) (*Profile, error)
	UpsertProfile(ctx context.Context, p *Profile) error
}

// Callbacks carries the UI hooks for one optimistic profile update.
type Callbacks struct {
	// OnOptimistic fires with the updated profile before any I/O.
	OnOptimistic func(p *Profile)

	// OnRollback fires with the pre-update profile when the write fails.
	OnRollback func(p *Profile, err error)
}

// Config tunes the profile tiers. Profiles change rarely, so the cache
// TTL runs longer than the meal log's.
type Config struct {
	CacheTTL   time.Duration `yaml:"cache_ttl" toml:"cache_ttl"`
	CacheGrace time.Duration `yaml:"cache_grace" toml:"cache_grace"`
	LocalTTL   time.Duration `yaml:"local_ttl" toml:"local_ttl"`
}

// DefaultConfig returns the production tuning.
func DefaultConfig() Config {
	return Config{
		CacheTTL:   30 * time.Minute,
		CacheGrace: 5 * time.Minute,
		LocalTTL:   7 * 24 * time.Hour,
	}
}

// Service serves profile reads through the tiers and applies optimistic
// updates. There is no offline mutation queue: an offline update lands in
// the local tier only, and the next online update overwrites it
// last-write-wins.
type Service struct {
	source SourceStore
	cache  *cache.Service
	local  *local.Store
	net    netwatch.Monitor
	cfg    Config
	log    zerolog.Logger

	bg sync.WaitGroup

	now func() time.Time
}

// NewService wires the profile service over its three tiers.
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
		now:    time.Now,
	}
}

func (s *Service) cacheOpts(userID string) cache.Options {
	return cache.Options{
		TTL:   s.cfg.CacheTTL,
		Grace: s.cfg.CacheGrace,
		Tags:  []string{keys.UserProfileTag(userID)},
	}
}

// Get returns the user's profile, local tier first, then cache-aside
// against the source. A user with no profile row yet returns
// ErrNotFound.
func (s *Service) Get(ctx context.Context, userID string) (*Profile, error) {
	localKey := keys.LocalProfile(userID)

	if !s.net.Online() {
		p, found, _ := local.GetTyped[Profile](ctx, s.local, localKey, s.cfg.LocalTTL)
		if !found {
			return nil, ErrNotFound
		}
		return &p, nil
	}

	if p, found, isStale := local.GetTyped[Profile](ctx, s.local, localKey, s.cfg.LocalTTL); found && !isStale {
		return &p, nil
	}

	p, err := cache.GetOrSet(ctx, s.cache, keys.Profile(userID), func(ctx context.Context) (*Profile, error) {
		return s.source.GetProfile(ctx, userID)
	}, s.cacheOpts(userID))
	if err != nil {
		return nil, err
	}
	local.SetTyped(ctx, s.local, localKey, p)
	return p, nil
}

// Update writes the profile optimistically: the callback fires and the
// local tier is written before the source upsert. A failed upsert fires
// the rollback callback with the previous profile (nil when this is the
// first write) and restores the local tier to it.
//
// Offline, the update lands in the local tier only and returns
// successfully; it is not queued. The next online update carries the
// full profile anyway, so last-write-wins covers the gap.
func (s *Service) Update(ctx context.Context, previous *Profile, updated *Profile, cb Callbacks) error {
	if updated == nil || updated.UserID == "" {
		return fmt.Errorf("profile: update requires a user id")
	}

	updated.UpdatedAt = s.now()
	if updated.CreatedAt.IsZero() {
		if previous != nil {
			updated.CreatedAt = previous.CreatedAt
		} else {
			updated.CreatedAt = updated.UpdatedAt
		}
	}

	if cb.OnOptimistic != nil {
		cb.OnOptimistic(updated)
	}

	localKey := keys.LocalProfile(updated.UserID)
	local.SetTyped(ctx, s.local, localKey, updated)

	if !s.net.Online() {
		s.log.Debug().Str("user_id", updated.UserID).Msg("offline profile update kept local only")
		return nil
	}

	if err := s.source.UpsertProfile(ctx, updated); err != nil {
		if previous != nil {
			local.SetTyped(ctx, s.local, localKey, previous)
		} else {
			s.local.Remove(ctx, localKey)
		}
		if cb.OnRollback != nil {
			cb.OnRollback(previous, err)
		}
		return fmt.Errorf("profile: update %s: %w", updated.UserID, err)
	}

	cache.SetTyped(ctx, s.cache, keys.Profile(updated.UserID), updated, s.cacheOpts(updated.UserID))
	return nil
}

// Invalidate drops the user's cached profile across the shared cache
// tier, forcing the next read through to the source.
func (s *Service) Invalidate(ctx context.Context, userID string) {
	s.cache.InvalidateByTag(ctx, keys.UserProfileTag(userID))
	s.local.Remove(ctx, keys.LocalProfile(userID))
}

// WaitBackground blocks until background cache population has finished.
func (s *Service) WaitBackground() {
	s.cache.WaitBackground()
}
