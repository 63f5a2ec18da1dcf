package di

import (
	"time"

	"github.com/samber/do/v2"

	"github.com/mealtier/mealtier/internal/ratelimit"
)

// Defaults applied when the config leaves limiter tuning unset.
const (
	defaultRateLimit  = 60
	defaultRateWindow = time.Minute
)

// RateLimitService wraps the sliding-window limiter together with its
// configured defaults.
type RateLimitService struct {
	Limiter *ratelimit.Limiter

	// Enabled mirrors the config flag; a disabled limiter is still
	// constructed so callers need no nil checks.
	Enabled bool

	// Limit and Window are the resolved per-identifier defaults.
	Limit  int
	Window time.Duration
}

// NewRateLimit creates the limiter over the remote client.
func NewRateLimit(i do.Injector) (*RateLimitService, error) {
	cfgSvc := do.MustInvoke[*ConfigService](i)
	remoteSvc := do.MustInvoke[*RemoteService](i)

	rlCfg := cfgSvc.Config.RateLimit
	limiter := ratelimit.New(remoteSvc.Client, cfgSvc.Config.Policy.Degradation())

	return &RateLimitService{
		Limiter: limiter,
		Enabled: rlCfg.Enabled,
		Limit:   rlCfg.LimitOption().OrElse(defaultRateLimit),
		Window:  rlCfg.WindowOption().OrElse(defaultRateWindow),
	}, nil
}
