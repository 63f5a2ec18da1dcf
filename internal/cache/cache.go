// Package cache implements the shared remote cache tier's read and write
// patterns on top of the remote command client.
//
// Values are stored as envelopes carrying the payload, its write time, its
// freshness deadline, and the tags it belongs to. On top of plain get/set
// the service provides:
//   - cache-aside reads (GetOrSet): fetch on miss, populate asynchronously
//   - stale-while-revalidate reads: serve a stale value within a grace
//     window while a background refresh replaces it
//   - tag-based group invalidation
//
// Every backend failure degrades to a miss or a skipped write; correctness
// rests on the source-of-truth store alone. Hit/miss counters live for the
// process lifetime and can be reset on demand.
package cache

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/mealtier/mealtier/internal/keys"
	"github.com/mealtier/mealtier/internal/remote"
)

// DefaultTTL applies when Options.TTL is zero.
const DefaultTTL = 5 * time.Minute

// tagTTLFactor stretches a tag list's expiry past the entries it indexes,
// so the index can never expire while a member it must invalidate lives on.
const tagTTLFactor = 2

// Envelope wraps a cached payload with its freshness metadata.
// Invariant: ExpiresAt > CachedAt (both unix milliseconds).
type Envelope struct {
	Data      json.RawMessage `json:"data"`
	CachedAt  int64           `json:"cached_at"`
	ExpiresAt int64           `json:"expires_at"`
	Tags      []string        `json:"tags,omitempty"`
}

// Options controls a single cache write or read-through.
type Options struct {
	// TTL is the freshness lifetime. Zero means DefaultTTL.
	TTL time.Duration

	// Grace extends readability past TTL for stale-while-revalidate
	// reads. Zero means no grace window.
	Grace time.Duration

	// Tags name the invalidation groups this entry joins.
	Tags []string
}

func (o Options) ttl() time.Duration {
	if o.TTL <= 0 {
		return DefaultTTL
	}
	return o.TTL
}

// Stats reports hit/miss counters since process start or the last Reset.
type Stats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
}

// Service is the cache tier facade. Safe for concurrent use.
type Service struct {
	client remote.Client
	log    zerolog.Logger

	hits   atomic.Int64
	misses atomic.Int64

	// flights dedups concurrent fetches and revalidations per key.
	flights singleflight.Group

	bg sync.WaitGroup

	// now is swappable so freshness tests can travel in time.
	now func() time.Time
}

// NewService creates a cache service over the given remote client.
func NewService(client remote.Client) *Service {
	return &Service{
		client: client,
		log:    logger(),
		now:    time.Now,
	}
}

// freshness classifies an envelope against the clock.
type freshness int

const (
	fresh freshness = iota
	stale           // past ExpiresAt but within grace
	gone            // past ExpiresAt + grace, or absent
)

// lookup fetches and classifies the envelope at key.
// A corrupt envelope self-heals by deletion and reads as absent.
func (s *Service) lookup(ctx context.Context, key string, grace time.Duration) (*Envelope, freshness) {
	raw := s.client.Get(ctx, key)
	if raw == "" {
		return nil, gone
	}

	var env Envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil || env.ExpiresAt <= env.CachedAt {
		s.log.Warn().Str("key", key).Msg("corrupt cache envelope, deleting")
		s.client.Del(ctx, key)
		return nil, gone
	}

	now := s.now().UnixMilli()
	switch {
	case now < env.ExpiresAt:
		return &env, fresh
	case now < env.ExpiresAt+grace.Milliseconds():
		return &env, stale
	default:
		return &env, gone
	}
}

// Get returns the cached payload at key, or found=false on miss.
// An expired entry counts as a miss and is lazily deleted.
func (s *Service) Get(ctx context.Context, key string) (json.RawMessage, bool) {
	env, state := s.lookup(ctx, key, 0)
	if state != fresh {
		s.misses.Add(1)
		if env != nil {
			// Expired but still stored: clean it up.
			s.client.Del(ctx, key)
		}
		s.log.Debug().Str("key", key).Bool("hit", false).Msg("cache get")
		return nil, false
	}

	s.hits.Add(1)
	s.log.Debug().Str("key", key).Bool("hit", true).Msg("cache get")
	return env.Data, true
}

// Set stores data at key wrapped in a fresh envelope and registers the key
// under each tag in opts.Tags. The tag lists receive a TTL twice the
// entry's, so group invalidation stays complete for the entry's lifetime.
// Returns false when the backend write did not happen.
func (s *Service) Set(ctx context.Context, key string, data json.RawMessage, opts Options) bool {
	ttl := opts.ttl()
	// The backend must physically retain the envelope through its grace
	// window, or stale-while-revalidate reads would find nothing to serve.
	// The logical ExpiresAt below still encodes freshness.
	hold := ttl
	if opts.Grace > 0 {
		hold += opts.Grace
	}
	now := s.now().UnixMilli()
	env := Envelope{
		Data:      data,
		CachedAt:  now,
		ExpiresAt: now + ttl.Milliseconds(),
		Tags:      opts.Tags,
	}

	payload, err := json.Marshal(env)
	if err != nil {
		s.log.Error().Err(err).Str("key", key).Msg("cache envelope encode failed")
		return false
	}

	if len(opts.Tags) == 0 {
		ok := s.client.Set(ctx, key, string(payload), hold)
		s.log.Debug().Str("key", key).Dur("ttl", ttl).Bool("ok", ok).Msg("cache set")
		return ok
	}

	// Entry write and tag bookkeeping go out as one batch.
	pipe := s.client.Pipeline()
	pipe.Set(key, string(payload), hold)
	for _, tag := range opts.Tags {
		tagKey := keys.Tag(tag)
		pipe.RPush(tagKey, key)
		pipe.Expire(tagKey, tagTTLFactor*hold)
	}
	ok := pipe.Exec(ctx)
	s.log.Debug().
		Str("key", key).
		Dur("ttl", ttl).
		Strs("tags", opts.Tags).
		Bool("ok", ok).
		Msg("cache set")
	return ok
}

// Del removes the given keys and returns how many existed.
func (s *Service) Del(ctx context.Context, keysToDel ...string) int64 {
	if len(keysToDel) == 0 {
		return 0
	}
	n := s.client.Del(ctx, keysToDel...)
	s.log.Debug().Int("keys", len(keysToDel)).Int64("removed", n).Msg("cache del")
	return n
}

// InvalidateByTag deletes every key registered under tag, then the tag
// list itself. Returns the number of member keys deleted. A tag with no
// members is a no-op, not an error.
func (s *Service) InvalidateByTag(ctx context.Context, tag string) int64 {
	tagKey := keys.Tag(tag)
	members := s.client.LRange(ctx, tagKey, 0, -1)
	if len(members) == 0 {
		s.client.Del(ctx, tagKey)
		return 0
	}

	// A key can appear more than once if it was re-set under the same tag.
	seen := make(map[string]struct{}, len(members))
	unique := make([]string, 0, len(members))
	for _, m := range members {
		if _, dup := seen[m]; dup {
			continue
		}
		seen[m] = struct{}{}
		unique = append(unique, m)
	}

	n := s.client.Del(ctx, unique...)
	s.client.Del(ctx, tagKey)
	s.log.Debug().Str("tag", tag).Int64("invalidated", n).Msg("cache invalidate by tag")
	return n
}

// Stats returns the hit/miss counters.
func (s *Service) Stats() Stats {
	return Stats{Hits: s.hits.Load(), Misses: s.misses.Load()}
}

// ResetStats zeroes the hit/miss counters.
func (s *Service) ResetStats() {
	s.hits.Store(0)
	s.misses.Store(0)
}

// Enabled reports whether a real cache backend is configured.
func (s *Service) Enabled() bool {
	return s.client.Enabled()
}

// WaitBackground blocks until all fire-and-forget cache writes and
// revalidations spawned so far have finished. Intended for tests and for
// orderly shutdown.
func (s *Service) WaitBackground() {
	s.bg.Wait()
}

// spawn runs fn on its own goroutine, tracked by WaitBackground.
// The caller's context may be canceled the moment the caller returns, so
// background work gets a detached context with a bounded deadline.
func (s *Service) spawn(fn func(ctx context.Context)) {
	s.bg.Add(1)
	go func() {
		defer s.bg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		fn(ctx)
	}()
}
