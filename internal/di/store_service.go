package di

import (
	"fmt"

	"github.com/samber/do/v2"

	"github.com/mealtier/mealtier/internal/store"
)

// StoreService wraps the source-of-truth store.
type StoreService struct {
	Store store.Store
}

// NewStore creates the source-of-truth store for the configured mode.
func NewStore(i do.Injector) (*StoreService, error) {
	cfgSvc := do.MustInvoke[*ConfigService](i)
	do.MustInvoke[*LoggerService](i)

	s, err := store.New(&cfgSvc.Config.Store)
	if err != nil {
		return nil, fmt.Errorf("failed to create store: %w", err)
	}

	return &StoreService{Store: s}, nil
}
