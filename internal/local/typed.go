package local

import (
	"context"
	"encoding/json"
	"time"
)

// GetTyped reads the record at key decoded into T. A payload that no
// longer decodes into T is removed and read as absent.
func GetTyped[T any](ctx context.Context, s *Store, key string, ttl time.Duration) (v T, found, isStale bool) {
	var zero T
	raw, ok, isStale := s.Get(ctx, key, ttl)
	if !ok {
		return zero, false, false
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("local payload decode failed, deleting")
		s.Remove(ctx, key)
		return zero, false, false
	}
	return v, true, isStale
}

// SetTyped encodes v and stores it at key.
func SetTyped[T any](ctx context.Context, s *Store, key string, v T) bool {
	raw, err := json.Marshal(v)
	if err != nil {
		s.log.Error().Err(err).Str("key", key).Msg("local payload encode failed")
		return false
	}
	return s.Set(ctx, key, raw)
}
