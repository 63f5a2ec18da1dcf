package remote

import (
	"fmt"
	"time"

	"github.com/mealtier/mealtier/internal/policy"
)

// New creates a Client based on the configuration.
// It returns an error only for invalid configuration; an unreachable
// backend is not detected here (the breaker and per-command timeouts
// handle that at call time).
func New(cfg *Config, pol policy.Degradation) (Client, error) {
	log := logger().With().Str("component", "remote_factory").Logger()
	start := time.Now()

	if err := cfg.Validate(); err != nil {
		log.Debug().Err(err).Str("mode", string(cfg.Mode)).Msg("remote factory: validation failed")
		return nil, err
	}
	if err := pol.Validate(); err != nil {
		return nil, err
	}

	var client Client
	switch cfg.Mode {
	case ModeRedis:
		client = newRedisClient(cfg, pol)
	case ModeMemory:
		client = newMemoryClient()
	case ModeDisabled:
		client = newNoopClient()
	default:
		return nil, fmt.Errorf("remote: unknown mode %q", cfg.Mode)
	}

	log.Info().
		Str("mode", string(cfg.Mode)).
		Dur("init_time", time.Since(start)).
		Msg("remote factory: backend initialized")

	return client, nil
}

// NewMemory returns a standalone in-process client. Tests use this to get
// a fully functional backend without configuration plumbing.
func NewMemory() Client {
	return newMemoryClient()
}
