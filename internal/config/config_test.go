package config_test

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mealtier/mealtier/internal/config"
	"github.com/mealtier/mealtier/internal/remote"
	"github.com/mealtier/mealtier/internal/store"
)

func TestDefault_Validates(t *testing.T) {
	cfg := config.Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, remote.ModeMemory, cfg.Remote.Mode)
	assert.Equal(t, store.ModeMemory, cfg.Store.Mode)
	assert.NotEmpty(t, cfg.Local.Path)
	assert.True(t, cfg.Policy.SoftCacheFailures)
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := config.Default()
	cfg.Remote.Mode = "carrier-pigeon"
	cfg.Local.Path = ""
	cfg.RateLimit.Limit = 0

	err := cfg.Validate()
	require.Error(t, err)

	var verr *config.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Errors, 3)
}

func TestValidate_SupabaseModeNeedsCredentials(t *testing.T) {
	cfg := config.Default()
	cfg.Store.Mode = store.ModeSupabase

	require.Error(t, cfg.Validate())

	cfg.Store.URL = "https://example.supabase.co"
	cfg.Store.Key = "service-role-key"
	assert.NoError(t, cfg.Validate())
}

func TestPolicyConfig_Degradation(t *testing.T) {
	p := config.PolicyConfig{
		SoftCacheFailures:       true,
		FailOpenRateLimit:       false,
		BreakerFailureThreshold: 10,
		BreakerCooldownMS:       5000,
	}

	d := p.Degradation()
	assert.True(t, d.SoftCacheFailures)
	assert.False(t, d.FailOpenRateLimit)
	assert.Equal(t, uint32(10), d.BreakerFailureThreshold)
	assert.Equal(t, 5*time.Second, d.BreakerCooldown)
}

func TestPolicyConfig_DegradationDefaultsBreakerFields(t *testing.T) {
	p := config.PolicyConfig{SoftCacheFailures: true, FailOpenRateLimit: true}

	d := p.Degradation()
	assert.Positive(t, d.BreakerFailureThreshold)
	assert.Positive(t, d.BreakerCooldown)
}

func TestRateLimitConfig_Window(t *testing.T) {
	r := config.RateLimitConfig{WindowMS: 60_000}
	assert.Equal(t, time.Minute, r.Window())
}

func TestRateLimitConfig_Options(t *testing.T) {
	unset := config.RateLimitConfig{}
	assert.True(t, unset.WindowOption().IsAbsent())
	assert.True(t, unset.LimitOption().IsAbsent())
	assert.Equal(t, time.Minute, unset.WindowOption().OrElse(time.Minute))

	set := config.RateLimitConfig{Limit: 10, WindowMS: 5000}
	assert.Equal(t, 5*time.Second, set.WindowOption().MustGet())
	assert.Equal(t, 10, set.LimitOption().MustGet())
}

func TestLoggingConfig_ParseLevel(t *testing.T) {
	tests := []struct {
		level string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"DEBUG", zerolog.DebugLevel},
		{"nonsense", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		l := config.LoggingConfig{Level: tt.level}
		assert.Equal(t, tt.want, l.ParseLevel(), "level %q", tt.level)
	}
}

func TestRuntime_GetStore(t *testing.T) {
	initial := config.Default()
	rt := config.NewRuntime(initial)
	assert.Same(t, initial, rt.Get())

	next := config.Default()
	next.Logging.Level = config.LevelDebug
	rt.Store(next)
	assert.Same(t, next, rt.Get())
}
