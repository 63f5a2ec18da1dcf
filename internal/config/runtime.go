package config

import "sync/atomic"

// Runtime provides atomic access to configuration for hot-reload
// support. Reads are lock-free; in-flight operations keep the config
// they started with while new operations see the updated one.
type Runtime struct {
	ptr atomic.Pointer[Config]
}

// NewRuntime creates a Runtime holding the given initial configuration.
func NewRuntime(initial *Config) *Runtime {
	r := &Runtime{}
	r.ptr.Store(initial)
	return r
}

// Get returns the current configuration atomically. Components should
// call Get per operation so they observe the latest config after a
// hot reload.
func (r *Runtime) Get() *Config {
	return r.ptr.Load()
}

// Store atomically swaps in a new configuration. Called by the config
// watcher when a file change parses and validates cleanly.
func (r *Runtime) Store(cfg *Config) {
	r.ptr.Store(cfg)
}

var _ RuntimeConfig = (*Runtime)(nil)
