// Package di provides dependency injection using samber/do v2.
// It creates and configures the DI container with all service providers.
package di

import (
	"context"
	"fmt"

	"github.com/samber/do/v2"

	"github.com/mealtier/mealtier/internal/config"
)

// ConfigPathKey is the named key for the config path string.
const ConfigPathKey = "config.path"

// Container wraps the do.Injector with the data layer's wiring.
type Container struct {
	injector *do.RootScope
}

// NewContainer creates and configures the DI container. configPath may be
// empty, in which case the built-in defaults apply. All service providers
// are registered during container creation; services initialize lazily on
// first resolution.
func NewContainer(configPath string) (*Container, error) {
	injector := do.New()

	do.ProvideNamedValue(injector, ConfigPathKey, configPath)
	RegisterSingletons(injector)

	return &Container{injector: injector}, nil
}

// Injector returns the underlying do.Injector for service resolution.
func (c *Container) Injector() *do.RootScope {
	return c.injector
}

// Invoke resolves a service from the container.
func Invoke[T any](c *Container) (T, error) {
	return do.Invoke[T](c.injector)
}

// MustInvoke resolves a service from the container or panics.
// Use this only during application startup where errors are fatal.
func MustInvoke[T any](c *Container) T {
	return do.MustInvoke[T](c.injector)
}

// StartWatching turns on config hot-reload for long-running commands.
// Each valid reload swaps the runtime config and re-derives the log level
// across every component package. A no-op when the container runs on
// built-in defaults, since there is no file to watch.
func (c *Container) StartWatching(ctx context.Context) error {
	cfgSvc, err := Invoke[*ConfigService](c)
	if err != nil {
		return err
	}
	logSvc, err := Invoke[*LoggerService](c)
	if err != nil {
		return err
	}

	cfgSvc.StartWatching(ctx, func(cfg *config.Config) error {
		logSvc.ApplyLevel(cfg.Logging)
		return nil
	})
	return nil
}

// Shutdown gracefully shuts down all services in reverse order of
// initialization. Services implementing do.Shutdowner have their Shutdown
// method called.
func (c *Container) Shutdown() error {
	report := c.injector.Shutdown()
	if report != nil && !report.Succeed {
		return fmt.Errorf("shutdown failed: %s", report.Error())
	}
	return nil
}

// ShutdownWithContext gracefully shuts down with context for timeout control.
func (c *Container) ShutdownWithContext(ctx context.Context) error {
	done := make(chan *do.ShutdownReport, 1)
	go func() {
		done <- c.injector.ShutdownWithContext(ctx)
	}()

	select {
	case report := <-done:
		if report != nil && !report.Succeed {
			return fmt.Errorf("shutdown failed: %s", report.Error())
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// HealthCheck verifies the core services can be resolved, triggering
// their lazy initialization and surfacing wiring errors early.
func (c *Container) HealthCheck() error {
	if _, err := do.Invoke[*ConfigService](c.injector); err != nil {
		return fmt.Errorf("config service unhealthy: %w", err)
	}
	if _, err := do.Invoke[*RemoteService](c.injector); err != nil {
		return fmt.Errorf("remote service unhealthy: %w", err)
	}
	if _, err := do.Invoke[*LocalService](c.injector); err != nil {
		return fmt.Errorf("local service unhealthy: %w", err)
	}
	if _, err := do.Invoke[*StoreService](c.injector); err != nil {
		return fmt.Errorf("store service unhealthy: %w", err)
	}
	return nil
}
