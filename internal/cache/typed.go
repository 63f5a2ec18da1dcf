package cache

import (
	"context"
	"encoding/json"
	"fmt"
)

// Fetcher produces the authoritative value for a key on a cache miss.
// It typically wraps a source-of-truth query. Its error propagates to the
// caller and is never cached.
type Fetcher[T any] func(ctx context.Context) (T, error)

// GetTyped returns the cached value at key decoded into T.
// A payload that no longer decodes into T reads as a miss.
func GetTyped[T any](ctx context.Context, s *Service, key string) (T, bool) {
	var zero T
	raw, ok := s.Get(ctx, key)
	if !ok {
		return zero, false
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("cached payload decode failed")
		return zero, false
	}
	return v, true
}

// SetTyped encodes v and stores it at key.
func SetTyped[T any](ctx context.Context, s *Service, key string, v T, opts Options) bool {
	raw, err := json.Marshal(v)
	if err != nil {
		s.log.Error().Err(err).Str("key", key).Msg("cache payload encode failed")
		return false
	}
	return s.Set(ctx, key, raw, opts)
}

// GetOrSet is the cache-aside read: return the cached value on a hit;
// on a miss call fetcher, return its result, and populate the cache in the
// background. A fetcher error propagates and is never cached; a cache
// population failure never fails the read, which already holds the fresh
// value. Concurrent misses for the same key share one fetch.
func GetOrSet[T any](ctx context.Context, s *Service, key string, fetcher Fetcher[T], opts Options) (T, error) {
	if v, ok := GetTyped[T](ctx, s, key); ok {
		return v, nil
	}

	var zero T
	res, err, _ := s.flights.Do(key, func() (any, error) {
		v, err := fetcher(ctx)
		if err != nil {
			return nil, err
		}
		s.spawn(func(ctx context.Context) {
			SetTyped(ctx, s, key, v, opts)
		})
		return v, nil
	})
	if err != nil {
		return zero, fmt.Errorf("cache: fetch for %s: %w", key, err)
	}

	v, ok := res.(T)
	if !ok {
		// Another flight cached a different type under this key.
		return zero, fmt.Errorf("cache: fetch for %s: unexpected value type", key)
	}
	return v, nil
}

// GetStaleWhileRevalidate serves reads with a bounded staleness window:
//
//   - fresh: return the cached value, nothing else happens
//   - stale within opts.Grace: return the cached value immediately and
//     refresh it in the background (refresh errors are logged and
//     swallowed, stale data was already served)
//   - expired beyond grace or absent: fetch synchronously, cache the
//     result in the background, return it
//
// This trades a bounded staleness window for perceived-latency elimination
// on warm paths.
func GetStaleWhileRevalidate[T any](ctx context.Context, s *Service, key string, fetcher Fetcher[T], opts Options) (T, error) {
	env, state := s.lookup(ctx, key, opts.Grace)

	if state == fresh || state == stale {
		var v T
		if err := json.Unmarshal(env.Data, &v); err == nil {
			s.hits.Add(1)
			if state == stale {
				s.log.Debug().Str("key", key).Msg("serving stale value, revalidating")
				revalidate(s, key, fetcher, opts)
			}
			return v, nil
		}
		// Undecodable payload: fall through to a synchronous fetch.
		s.client.Del(ctx, key)
	}

	s.misses.Add(1)

	var zero T
	v, err := fetcher(ctx)
	if err != nil {
		return zero, fmt.Errorf("cache: fetch for %s: %w", key, err)
	}
	s.spawn(func(ctx context.Context) {
		SetTyped(ctx, s, key, v, opts)
	})
	return v, nil
}

// revalidate refreshes key in the background. Concurrent stale readers
// share a single flight.
func revalidate[T any](s *Service, key string, fetcher Fetcher[T], opts Options) {
	s.spawn(func(ctx context.Context) {
		_, _, _ = s.flights.Do("revalidate:"+key, func() (any, error) {
			v, err := fetcher(ctx)
			if err != nil {
				s.log.Warn().Err(err).Str("key", key).Msg("background revalidation failed")
				return nil, nil //nolint:nilerr // stale value already served
			}
			SetTyped(ctx, s, key, v, opts)
			return nil, nil
		})
	})
}
