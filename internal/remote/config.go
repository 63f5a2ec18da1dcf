package remote

import (
	"errors"
	"fmt"
	"time"
)

// Mode selects the remote cache backend.
type Mode string

const (
	// ModeRedis talks to a hosted Redis-protocol key-value service.
	ModeRedis Mode = "redis"

	// ModeMemory keeps everything in an in-process map. Intended for
	// tests and offline development; data does not survive the process.
	ModeMemory Mode = "memory"

	// ModeDisabled declares that no shared cache backend exists. Every
	// read misses and every write is dropped; the system stays correct,
	// only slower.
	ModeDisabled Mode = "disabled"
)

// Config defines remote cache configuration.
type Config struct {
	Mode  Mode        `yaml:"mode" toml:"mode"`
	Redis RedisConfig `yaml:"redis" toml:"redis"`

	// Timeout bounds every individual command. A command that exceeds it
	// is treated as failed, never left pending.
	Timeout time.Duration `yaml:"timeout" toml:"timeout"`
}

// RedisConfig configures the Redis backend.
type RedisConfig struct {
	// Addr is the host:port of the Redis endpoint.
	Addr string `yaml:"addr" toml:"addr"`

	// Password is the auth token. Hosted providers issue one per
	// database; leave empty for unauthenticated local instances.
	Password string `yaml:"password" toml:"password"`

	// DB is the logical database index.
	DB int `yaml:"db" toml:"db"`

	// TLS enables an encrypted connection, which hosted providers
	// generally require.
	TLS bool `yaml:"tls" toml:"tls"`
}

// DefaultConfig returns a Config suitable for local development:
// in-process memory backend and a 2s command timeout.
func DefaultConfig() Config {
	return Config{
		Mode:    ModeMemory,
		Timeout: 2 * time.Second,
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return errors.New("remote: timeout must be positive")
	}
	switch c.Mode {
	case ModeRedis:
		if c.Redis.Addr == "" {
			return errors.New("remote: redis.addr required in redis mode")
		}
	case ModeMemory, ModeDisabled:
		// No backend settings to check.
	case "":
		return errors.New("remote: mode is required")
	default:
		return fmt.Errorf("remote: unknown mode %q", c.Mode)
	}
	return nil
}
