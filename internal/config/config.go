// Package config provides configuration loading, validation, and
// hot-reload for the tiered data layer.
package config

import (
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/mo"

	"github.com/mealtier/mealtier/internal/meals"
	"github.com/mealtier/mealtier/internal/netwatch"
	"github.com/mealtier/mealtier/internal/policy"
	"github.com/mealtier/mealtier/internal/profile"
	"github.com/mealtier/mealtier/internal/remote"
	"github.com/mealtier/mealtier/internal/store"
)

// RuntimeConfig is the read surface for components that must observe
// hot-reloaded configuration. Holding a direct *Config pointer would go
// stale after a reload; calling Get per operation does not.
type RuntimeConfig interface {
	Get() *Config
}

// Log level constants.
const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

// Config is the complete configuration for the tiered data layer.
type Config struct {
	Remote    remote.Config   `yaml:"remote" toml:"remote"`
	Store     store.Config    `yaml:"store" toml:"store"`
	Local     LocalConfig     `yaml:"local" toml:"local"`
	Netwatch  netwatch.Config `yaml:"netwatch" toml:"netwatch"`
	Meals     meals.Config    `yaml:"meals" toml:"meals"`
	Profile   profile.Config  `yaml:"profile" toml:"profile"`
	RateLimit RateLimitConfig `yaml:"ratelimit" toml:"ratelimit"`
	Policy    PolicyConfig    `yaml:"policy" toml:"policy"`
	Logging   LoggingConfig   `yaml:"logging" toml:"logging"`
}

// LocalConfig configures the device-local persistent tier.
type LocalConfig struct {
	// Path is the bolt database file. Created on first open.
	Path string `yaml:"path" toml:"path"`
}

// RateLimitConfig configures the sliding-window limiter defaults.
type RateLimitConfig struct {
	Enabled bool `yaml:"enabled" toml:"enabled"`

	// Limit is the maximum number of requests per window.
	Limit int `yaml:"limit" toml:"limit"`

	// WindowMS is the sliding window length in milliseconds.
	WindowMS int `yaml:"window_ms" toml:"window_ms"`
}

// Window returns the configured window as a duration.
func (r *RateLimitConfig) Window() time.Duration {
	return time.Duration(r.WindowMS) * time.Millisecond
}

// WindowOption returns the window as a duration Option.
// Returns None if WindowMS is zero or negative.
func (r *RateLimitConfig) WindowOption() mo.Option[time.Duration] {
	if r.WindowMS <= 0 {
		return mo.None[time.Duration]()
	}
	return mo.Some(r.Window())
}

// LimitOption returns the request limit as an Option.
// Returns None if Limit is zero or negative.
func (r *RateLimitConfig) LimitOption() mo.Option[int] {
	if r.Limit <= 0 {
		return mo.None[int]()
	}
	return mo.Some(r.Limit)
}

// PolicyConfig is the file-facing shape of the degradation policy.
type PolicyConfig struct {
	SoftCacheFailures       bool `yaml:"soft_cache_failures" toml:"soft_cache_failures"`
	FailOpenRateLimit       bool `yaml:"fail_open_rate_limit" toml:"fail_open_rate_limit"`
	BreakerFailureThreshold int  `yaml:"breaker_failure_threshold" toml:"breaker_failure_threshold"`
	BreakerCooldownMS       int  `yaml:"breaker_cooldown_ms" toml:"breaker_cooldown_ms"`
}

// Degradation converts the file shape into the policy value object,
// filling defaults for unset breaker fields.
func (p *PolicyConfig) Degradation() policy.Degradation {
	d := policy.Default()
	d.SoftCacheFailures = p.SoftCacheFailures
	d.FailOpenRateLimit = p.FailOpenRateLimit
	if p.BreakerFailureThreshold > 0 {
		d.BreakerFailureThreshold = uint32(p.BreakerFailureThreshold)
	}
	if p.BreakerCooldownMS > 0 {
		d.BreakerCooldown = time.Duration(p.BreakerCooldownMS) * time.Millisecond
	}
	return d
}

// LoggingConfig defines logging behavior.
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`   // debug, info, warn, error
	Format string `yaml:"format" toml:"format"` // json, console
	Output string `yaml:"output" toml:"output"` // stdout, stderr, or file path
	Pretty bool   `yaml:"pretty" toml:"pretty"` // colored console output
}

// ParseLevel converts the configured level to zerolog.Level.
// Returns zerolog.InfoLevel for unknown values.
func (l *LoggingConfig) ParseLevel() zerolog.Level {
	switch strings.ToLower(l.Level) {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelInfo:
		return zerolog.InfoLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Default returns a configuration suitable for local development:
// in-memory backends everywhere and a local bolt file in the working
// directory.
func Default() *Config {
	return &Config{
		Remote:    remote.DefaultConfig(),
		Store:     store.DefaultConfig(),
		Local:     LocalConfig{Path: "mealtier.db"},
		Netwatch:  netwatch.DefaultConfig(),
		Meals:     meals.DefaultConfig(),
		Profile:   profile.DefaultConfig(),
		RateLimit: RateLimitConfig{Enabled: true, Limit: 60, WindowMS: 60_000},
		Policy: PolicyConfig{
			SoftCacheFailures: true,
			FailOpenRateLimit: true,
		},
		Logging: LoggingConfig{Level: LevelInfo, Format: "console", Output: "stderr"},
	}
}

// Validate checks the whole configuration, collecting every error rather
// than stopping at the first.
func (c *Config) Validate() error {
	verr := &ValidationError{}

	if err := c.Remote.Validate(); err != nil {
		verr.Add(err.Error())
	}
	if err := c.Store.Validate(); err != nil {
		verr.Add(err.Error())
	}
	if c.Local.Path == "" {
		verr.Add("local: path is required")
	}
	if err := c.Policy.Degradation().Validate(); err != nil {
		verr.Add(err.Error())
	}
	if c.RateLimit.Enabled {
		if c.RateLimit.Limit <= 0 {
			verr.Addf("ratelimit: limit must be positive, got %d", c.RateLimit.Limit)
		}
		if c.RateLimit.WindowMS <= 0 {
			verr.Addf("ratelimit: window_ms must be positive, got %d", c.RateLimit.WindowMS)
		}
	}

	return verr.ToError()
}
