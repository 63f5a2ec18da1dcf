package di

import (
	"fmt"

	"github.com/samber/do/v2"

	"github.com/mealtier/mealtier/internal/local"
)

// LocalService wraps the device-local persistent store.
type LocalService struct {
	Store *local.Store
}

// NewLocal opens the bolt-backed local tier at the configured path.
func NewLocal(i do.Injector) (*LocalService, error) {
	cfgSvc := do.MustInvoke[*ConfigService](i)
	do.MustInvoke[*LoggerService](i)

	store, err := local.Open(cfgSvc.Config.Local.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open local store: %w", err)
	}

	return &LocalService{Store: store}, nil
}

// Shutdown implements do.Shutdowner for graceful store cleanup.
func (s *LocalService) Shutdown() error {
	if s.Store != nil {
		return s.Store.Close()
	}
	return nil
}
