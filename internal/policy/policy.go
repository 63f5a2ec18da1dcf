// Package policy declares the failure-tolerance behavior of the data tiers
// in one auditable place.
//
// The original behavior this codifies: remote-cache failures degrade to
// cache misses, rate limiting fails open when its backend is unreachable,
// and correctness never depends on anything but the source-of-truth store.
// Rather than scattering recover-and-default logic across call sites, each
// component receives a Degradation value and consults it.
package policy

import (
	"errors"
	"time"
)

// Degradation describes how the system behaves when a tier is unavailable.
type Degradation struct {
	// SoftCacheFailures makes every remote-cache failure non-fatal:
	// reads degrade to misses, writes to no-ops. Disabling this is only
	// useful in tests that want to observe backend errors directly.
	SoftCacheFailures bool `yaml:"soft_cache_failures" toml:"soft_cache_failures"`

	// FailOpenRateLimit admits every request when the rate-limit backend
	// is unreachable or not configured.
	FailOpenRateLimit bool `yaml:"fail_open_rate_limit" toml:"fail_open_rate_limit"`

	// BreakerFailureThreshold is the number of consecutive remote-cache
	// failures that opens the circuit breaker.
	BreakerFailureThreshold uint32 `yaml:"breaker_failure_threshold" toml:"breaker_failure_threshold"`

	// BreakerCooldown is how long the breaker stays open before probing
	// the backend again.
	BreakerCooldown time.Duration `yaml:"breaker_cooldown" toml:"breaker_cooldown"`
}

// Default returns the production policy: soft cache failures, fail-open
// rate limiting, breaker opens after 5 consecutive failures and cools down
// for 30 seconds.
func Default() Degradation {
	return Degradation{
		SoftCacheFailures:       true,
		FailOpenRateLimit:       true,
		BreakerFailureThreshold: 5,
		BreakerCooldown:         30 * time.Second,
	}
}

// Validate checks the policy for configuration errors.
func (d Degradation) Validate() error {
	if d.BreakerFailureThreshold == 0 {
		return errors.New("policy: breaker_failure_threshold must be positive")
	}
	if d.BreakerCooldown <= 0 {
		return errors.New("policy: breaker_cooldown must be positive")
	}
	return nil
}
