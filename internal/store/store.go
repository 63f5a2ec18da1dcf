// Package store provides source-of-truth persistence for daily meal logs
// and user profiles.
//
// The domain services define the interfaces they consume; this package
// supplies two implementations: a Supabase (PostgREST) client for
// production and an in-memory store for tests and offline development.
// The source of truth is the one tier whose failures are surfaced to
// callers rather than degraded away.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/supabase-community/supabase-go"

	"github.com/mealtier/mealtier/internal/meals"
	"github.com/mealtier/mealtier/internal/profile"
)

// Mode selects the source-of-truth backend.
type Mode string

const (
	// ModeSupabase talks to a hosted Supabase project over PostgREST.
	ModeSupabase Mode = "supabase"

	// ModeMemory keeps rows in an in-process map. Intended for tests and
	// offline development; data does not survive the process.
	ModeMemory Mode = "memory"
)

// Config configures the source-of-truth backend.
type Config struct {
	Mode Mode `yaml:"mode" toml:"mode"`

	// URL is the project base URL, e.g. https://xyzcompany.supabase.co.
	URL string `yaml:"url" toml:"url"`

	// Key is the service-role key. Table access is performed with
	// backend privileges; row-level security applies to client apps,
	// not to this library.
	Key string `yaml:"key" toml:"key"`
}

// DefaultConfig returns a Config suitable for local development.
func DefaultConfig() Config {
	return Config{Mode: ModeMemory}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	switch c.Mode {
	case ModeSupabase:
		if c.URL == "" {
			return errors.New("store: url is required in supabase mode")
		}
		if c.Key == "" {
			return errors.New("store: key is required in supabase mode")
		}
	case ModeMemory:
		// No backend settings to check.
	case "":
		return errors.New("store: mode is required")
	default:
		return fmt.Errorf("store: unknown mode %q", c.Mode)
	}
	return nil
}

// MealStore is the daily-meal half of the source of truth.
type MealStore interface {
	GetDailyMeals(ctx context.Context, userID, date string) (*meals.DailyMeals, error)
	UpsertDailyMeals(ctx context.Context, rec *meals.DailyMeals) error
	DeleteDailyMeals(ctx context.Context, userID, date string) error
	ListDailyMeals(ctx context.Context, userID, from, to string) ([]meals.DailyMeals, error)
}

// ProfileStore is the profile half of the source of truth.
type ProfileStore interface {
	GetProfile(ctx context.Context, userID string) (*profile.Profile, error)
	UpsertProfile(ctx context.Context, p *profile.Profile) error
}

// Store is the combined source-of-truth surface: daily meal rows plus
// profile rows.
type Store interface {
	MealStore
	ProfileStore
}

var (
	_ Store = (*Supabase)(nil)
	_ Store = (*Memory)(nil)
)

// New builds a store for the configured mode.
func New(cfg *Config) (Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Mode {
	case ModeSupabase:
		return NewSupabase(cfg)
	case ModeMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("store: unknown mode %q", cfg.Mode)
	}
}

// NewSupabase creates a Supabase-backed store.
func NewSupabase(cfg *Config) (*Supabase, error) {
	client, err := supabase.NewClient(cfg.URL, cfg.Key, nil)
	if err != nil {
		return nil, fmt.Errorf("store: create supabase client: %w", err)
	}
	log := logger()
	log.Info().Str("url", cfg.URL).Msg("supabase store created")
	return &Supabase{client: client, log: log}, nil
}
