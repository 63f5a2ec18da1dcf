package di

import (
	"github.com/samber/do/v2"

	"github.com/mealtier/mealtier/internal/cache"
)

// CacheService wraps the cache orchestration layer.
type CacheService struct {
	Cache *cache.Service
}

// NewCache creates the cache service over the remote client.
func NewCache(i do.Injector) (*CacheService, error) {
	remoteSvc := do.MustInvoke[*RemoteService](i)
	return &CacheService{Cache: cache.NewService(remoteSvc.Client)}, nil
}

// Shutdown implements do.Shutdowner, draining background cache writes.
func (s *CacheService) Shutdown() error {
	if s.Cache != nil {
		s.Cache.WaitBackground()
	}
	return nil
}
