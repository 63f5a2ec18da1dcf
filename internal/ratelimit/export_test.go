package ratelimit

import "time"

// SetNow swaps the limiter's clock for window tests.
func (l *Limiter) SetNow(fn func() time.Time) {
	l.now = fn
}
