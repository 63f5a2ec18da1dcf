package di

import (
	"github.com/samber/do/v2"

	"github.com/mealtier/mealtier/internal/profile"
)

// ProfileService wraps the profile orchestration service.
type ProfileService struct {
	Service *profile.Service
}

// NewProfile wires the profile service over its three tiers.
func NewProfile(i do.Injector) (*ProfileService, error) {
	cfgSvc := do.MustInvoke[*ConfigService](i)
	cacheSvc := do.MustInvoke[*CacheService](i)
	localSvc := do.MustInvoke[*LocalService](i)
	netSvc := do.MustInvoke[*NetwatchService](i)
	storeSvc := do.MustInvoke[*StoreService](i)

	svc := profile.NewService(
		storeSvc.Store,
		cacheSvc.Cache,
		localSvc.Store,
		netSvc.Monitor,
		cfgSvc.Config.Profile,
	)

	return &ProfileService{Service: svc}, nil
}
