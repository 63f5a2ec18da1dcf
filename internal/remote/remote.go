// Package remote provides the command client for the shared remote cache
// tier.
//
// The package abstracts over three backends:
//   - Redis mode: a hosted Redis-protocol key-value service
//   - Memory mode: an in-process map for tests and offline development
//   - Disabled mode: a no-op client used when no backend is configured
//
// The client deliberately has no error returns on data commands. The remote
// cache is an accelerator, never an authority: every backend failure is
// caught, logged, and mapped to a neutral value (empty string, zero count,
// nil map) so that an unreachable cache behaves exactly like a cold cache.
// The mapping is governed by a policy.Degradation value, and a circuit
// breaker stops hammering a backend that keeps failing. Ping is the one
// command that reports errors, because liveness checks exist to see them.
//
// All implementations are safe for concurrent use.
package remote

import (
	"context"
	"time"
)

// Z is a sorted-set member with its score.
type Z struct {
	Score  float64
	Member string
}

// Client is the command surface of the remote cache tier.
//
// Data commands return neutral values on failure instead of errors; use
// Enabled to tell a disabled backend from an empty one, and Ping to check
// liveness explicitly.
type Client interface {
	// Get returns the string value at key, or "" if the key is absent
	// or the backend failed.
	Get(ctx context.Context, key string) string

	// Set stores value at key with the given TTL. A zero ttl stores
	// without expiry. Returns false if the write did not happen.
	Set(ctx context.Context, key, value string, ttl time.Duration) bool

	// SetNX stores value only if key does not already exist.
	// Returns true only when the value was written.
	SetNX(ctx context.Context, key, value string, ttl time.Duration) bool

	// Del removes the given keys and returns how many existed.
	Del(ctx context.Context, keys ...string) int64

	// Exists reports whether key is present.
	Exists(ctx context.Context, key string) bool

	// Expire sets a fresh TTL on an existing key.
	Expire(ctx context.Context, key string, ttl time.Duration) bool

	// Incr atomically increments the integer at key and returns the new
	// value, or 0 on failure.
	Incr(ctx context.Context, key string) int64

	// HGet returns one hash field, or "" when absent.
	HGet(ctx context.Context, key, field string) string

	// HSet writes the given hash fields.
	HSet(ctx context.Context, key string, fields map[string]string) bool

	// HGetAll returns every field of a hash, or an empty map.
	HGetAll(ctx context.Context, key string) map[string]string

	// RPush appends values to the list at key and returns its new length.
	RPush(ctx context.Context, key string, values ...string) int64

	// LRange returns the list elements between start and stop inclusive,
	// with negative indexes counted from the tail.
	LRange(ctx context.Context, key string, start, stop int64) []string

	// LRem removes count occurrences of value from the list at key.
	LRem(ctx context.Context, key string, count int64, value string) int64

	// ZAdd adds a member with score to the sorted set at key.
	ZAdd(ctx context.Context, key string, score float64, member string) bool

	// ZCard returns the cardinality of the sorted set at key.
	ZCard(ctx context.Context, key string) int64

	// ZRangeWithScores returns sorted-set members between rank start and
	// stop inclusive, ordered by ascending score.
	ZRangeWithScores(ctx context.Context, key string, start, stop int64) []Z

	// ZRemRangeByScore removes members whose score falls in [min, max]
	// and returns how many were removed.
	ZRemRangeByScore(ctx context.Context, key string, min, max float64) int64

	// Scan returns keys matching a glob pattern. Count hints the page
	// size; the full matching set is returned.
	Scan(ctx context.Context, pattern string, count int64) []string

	// Pipeline returns a builder that accumulates commands and sends
	// them as one batch on Exec.
	Pipeline() Pipeline

	// Ping verifies the backend is alive.
	Ping(ctx context.Context) error

	// Enabled reports whether a real backend is configured. When false,
	// every read is a miss and every write a no-op; callers may use this
	// to skip work whose only purpose is to populate the cache.
	Enabled() bool

	// Close releases backend resources. Idempotent.
	Close() error
}

// Pipeline accumulates commands for batched execution.
//
// Exec sends the batch in one round trip. Like the rest of the client it
// never surfaces backend errors; a failed batch is logged and dropped.
type Pipeline interface {
	Set(key, value string, ttl time.Duration)
	Del(keys ...string)
	RPush(key string, values ...string)
	Expire(key string, ttl time.Duration)
	ZAdd(key string, score float64, member string)
	ZRemRangeByScore(key string, min, max float64)

	// Exec executes the accumulated commands and reports whether the
	// batch was delivered.
	Exec(ctx context.Context) bool
}
