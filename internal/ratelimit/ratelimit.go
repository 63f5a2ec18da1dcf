// Package ratelimit implements a sliding-window rate limiter on top of
// the remote cache tier's sorted sets.
//
// Each identifier keeps a sorted set of request timestamps (unix
// milliseconds as scores). A check prunes entries older than the window,
// counts what remains, and admits the request if the count is under the
// limit. The window slides continuously; there is no fixed-bucket reset
// edge.
//
// When the backend is disabled or unreachable the limiter degrades
// according to policy: fail-open admits everything (availability over
// enforcement), fail-closed rejects. The choice is an explicit
// policy.Degradation field, never an accident of error handling.
package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/mealtier/mealtier/internal/keys"
	"github.com/mealtier/mealtier/internal/policy"
	"github.com/mealtier/mealtier/internal/remote"
)

// Result is the outcome of one rate-limit check.
type Result struct {
	// Allowed reports whether the request may proceed.
	Allowed bool

	// Limit is the configured maximum for the window.
	Limit int

	// Remaining is how many further requests the window admits.
	Remaining int

	// Reset is when the oldest counted request slides out of the window.
	Reset time.Time

	// RetryAfter is how long to wait before the next attempt can
	// succeed. Zero when Allowed.
	RetryAfter time.Duration
}

// Error is returned to callers who want a rejected check as an error
// value, carrying the backoff hint.
type Error struct {
	Identifier string
	RetryAfter time.Duration
}

func (e *Error) Error() string {
	return fmt.Sprintf("ratelimit: %s exceeded, retry after %s", e.Identifier, e.RetryAfter)
}

// Limiter is a sliding-window rate limiter. Safe for concurrent use.
type Limiter struct {
	client remote.Client
	pol    policy.Degradation

	// now is swappable so window tests can travel in time.
	now func() time.Time
}

// New builds a limiter over the given remote client.
func New(client remote.Client, pol policy.Degradation) *Limiter {
	return &Limiter{
		client: client,
		pol:    pol,
		now:    time.Now,
	}
}

// Check records one request for identifier and reports whether it is
// within limit requests per window.
//
// The admitted request is counted immediately, so N concurrent callers
// against a limit of N-1 cannot all slip through one stale read. Note
// the count-then-add pair is not atomic across processes; a burst racing
// the window edge can briefly overshoot by the number of racers, which
// is acceptable for client-side throttling.
func (l *Limiter) Check(ctx context.Context, identifier string, limit int, window time.Duration) Result {
	if limit <= 0 || window <= 0 {
		return l.degraded(identifier, limit)
	}
	if !l.client.Enabled() {
		return l.degraded(identifier, limit)
	}

	key := keys.RateLimit(identifier)
	nowMs := l.now().UnixMilli()
	windowStart := nowMs - window.Milliseconds()

	// Prune expired entries first so the count below sees only the
	// live window.
	l.client.ZRemRangeByScore(ctx, key, 0, float64(windowStart))

	count := l.client.ZCard(ctx, key)
	if count >= int64(limit) {
		reset := l.resetAt(ctx, key, window)
		retry := time.Duration(0)
		if wait := reset.Sub(l.now()); wait > 0 {
			retry = wait
		}
		return Result{
			Allowed:    false,
			Limit:      limit,
			Remaining:  0,
			Reset:      reset,
			RetryAfter: retry,
		}
	}

	member := strconv.FormatInt(nowMs, 10) + "-" + uuid.NewString()[:8]
	pipe := l.client.Pipeline()
	pipe.ZAdd(key, float64(nowMs), member)
	// Keep the set alive past one full window so a revived identifier
	// still sees its own history, but let idle ones expire.
	pipe.Expire(key, 2*window)
	pipe.Exec(ctx)

	return Result{
		Allowed:   true,
		Limit:     limit,
		Remaining: limit - int(count) - 1,
		Reset:     l.resetAt(ctx, key, window),
	}
}

// CheckErr is Check for callers on an error-return path: a rejected
// check comes back as *Error with the backoff hint attached.
func (l *Limiter) CheckErr(ctx context.Context, identifier string, limit int, window time.Duration) (Result, error) {
	res := l.Check(ctx, identifier, limit, window)
	if !res.Allowed {
		return res, &Error{Identifier: identifier, RetryAfter: res.RetryAfter}
	}
	return res, nil
}

// resetAt derives when the oldest live entry slides out of the window.
// With no entries the window is already clear.
func (l *Limiter) resetAt(ctx context.Context, key string, window time.Duration) time.Time {
	oldest := l.client.ZRangeWithScores(ctx, key, 0, 0)
	if len(oldest) == 0 {
		return l.now()
	}
	return time.UnixMilli(int64(oldest[0].Score)).Add(window)
}

// Reset forgets all recorded requests for identifier.
func (l *Limiter) Reset(ctx context.Context, identifier string) {
	l.client.Del(ctx, keys.RateLimit(identifier))
}

// degraded is the no-backend outcome, shaped by policy.
func (l *Limiter) degraded(identifier string, limit int) Result {
	log := logger()
	if l.pol.FailOpenRateLimit {
		log.Debug().Str("identifier", identifier).Msg("limiter degraded, failing open")
		return Result{Allowed: true, Limit: limit, Remaining: limit, Reset: l.now()}
	}
	log.Warn().Str("identifier", identifier).Msg("limiter degraded, failing closed")
	return Result{Allowed: false, Limit: limit, Reset: l.now()}
}
