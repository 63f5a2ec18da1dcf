package di

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/samber/do/v2"

	"github.com/mealtier/mealtier/internal/config"
)

// ConfigService wraps the loaded configuration with hot-reload support.
// Reads go through a config.Runtime so in-flight operations keep the
// config they started with while new operations see reloaded values.
type ConfigService struct {
	runtime *config.Runtime
	watcher *config.Watcher
	Config  *config.Config
	path    string
}

// Get returns the current configuration via atomic load.
func (c *ConfigService) Get() *config.Config {
	return c.runtime.Get()
}

// StartWatching begins watching the config file for changes, swapping the
// runtime config on each valid reload and then running any extra
// callbacks. Call after the container is fully initialized; the context
// controls the watcher lifecycle.
func (c *ConfigService) StartWatching(ctx context.Context, extra ...config.ReloadCallback) {
	if c.watcher == nil {
		return
	}

	c.watcher.OnReload(func(newCfg *config.Config) error {
		c.runtime.Store(newCfg)
		c.Config = newCfg
		log.Info().Str("path", c.path).Msg("config hot-reloaded")
		return nil
	})
	for _, cb := range extra {
		c.watcher.OnReload(cb)
	}

	go func() {
		if err := c.watcher.Watch(ctx); err != nil {
			log.Error().Err(err).Msg("config watcher error")
		}
	}()

	log.Info().Str("path", c.path).Msg("config file watcher started")
}

// Shutdown implements do.Shutdowner for graceful watcher cleanup.
func (c *ConfigService) Shutdown() error {
	if c.watcher != nil {
		return c.watcher.Close()
	}
	return nil
}

// NewConfig loads the configuration from the config path and creates a
// watcher. An empty path uses the built-in defaults with no watcher.
func NewConfig(i do.Injector) (*ConfigService, error) {
	path := do.MustInvokeNamed[string](i, ConfigPathKey)

	if path == "" {
		cfg := config.Default()
		return &ConfigService{
			runtime: config.NewRuntime(cfg),
			Config:  cfg,
		}, nil
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	svc := &ConfigService{
		runtime: config.NewRuntime(cfg),
		Config:  cfg,
		path:    path,
	}

	// Hot-reload is optional; a watcher failure only disables it.
	watcher, err := config.NewWatcher(path)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("config watcher creation failed, hot-reload disabled")
	} else {
		svc.watcher = watcher
	}

	return svc, nil
}
