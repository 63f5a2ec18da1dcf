package remote

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mealtier/mealtier/internal/policy"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"memory mode", Config{Mode: ModeMemory, Timeout: time.Second}, false},
		{"disabled mode", Config{Mode: ModeDisabled, Timeout: time.Second}, false},
		{"redis with addr", Config{Mode: ModeRedis, Timeout: time.Second, Redis: RedisConfig{Addr: "localhost:6379"}}, false},
		{"redis missing addr", Config{Mode: ModeRedis, Timeout: time.Second}, true},
		{"missing mode", Config{Timeout: time.Second}, true},
		{"unknown mode", Config{Mode: "etcd", Timeout: time.Second}, true},
		{"zero timeout", Config{Mode: ModeMemory}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNew_Disabled(t *testing.T) {
	cfg := Config{Mode: ModeDisabled, Timeout: time.Second}
	c, err := New(&cfg, policy.Default())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer c.Close()

	ctx := context.Background()

	if c.Enabled() {
		t.Error("disabled client reports Enabled")
	}
	if c.Set(ctx, "k", "v", 0) {
		t.Error("disabled client accepted a write")
	}
	if got := c.Get(ctx, "k"); got != "" {
		t.Errorf("disabled client returned %q", got)
	}
	if err := c.Ping(ctx); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("Ping = %v, want ErrNotConfigured", err)
	}
	if pipe := c.Pipeline(); pipe.Exec(ctx) {
		t.Error("disabled pipeline reported success")
	}
}

func TestNew_Memory(t *testing.T) {
	cfg := DefaultConfig()
	c, err := New(&cfg, policy.Default())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer c.Close()

	ctx := context.Background()
	if !c.Enabled() {
		t.Error("memory client reports disabled")
	}
	if err := c.Ping(ctx); err != nil {
		t.Errorf("Ping = %v, want nil", err)
	}
}

func TestNew_InvalidPolicy(t *testing.T) {
	cfg := DefaultConfig()
	if _, err := New(&cfg, policy.Degradation{}); err == nil {
		t.Error("New accepted a zero-value degradation policy")
	}
}
