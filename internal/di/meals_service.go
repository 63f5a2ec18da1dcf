package di

import (
	"github.com/samber/do/v2"

	"github.com/mealtier/mealtier/internal/meals"
)

// MealsService wraps the meal log orchestration service.
type MealsService struct {
	Service *meals.Service
}

// NewMeals wires the meal log service over its three tiers.
func NewMeals(i do.Injector) (*MealsService, error) {
	cfgSvc := do.MustInvoke[*ConfigService](i)
	cacheSvc := do.MustInvoke[*CacheService](i)
	localSvc := do.MustInvoke[*LocalService](i)
	netSvc := do.MustInvoke[*NetwatchService](i)
	storeSvc := do.MustInvoke[*StoreService](i)

	svc := meals.NewService(
		storeSvc.Store,
		cacheSvc.Cache,
		localSvc.Store,
		netSvc.Monitor,
		cfgSvc.Config.Meals,
	)

	return &MealsService{Service: svc}, nil
}

// Shutdown implements do.Shutdowner, draining background refreshes.
func (s *MealsService) Shutdown() error {
	if s.Service != nil {
		s.Service.WaitBackground()
	}
	return nil
}
