package di

import (
	"github.com/samber/do/v2"

	"github.com/mealtier/mealtier/internal/netwatch"
)

// NetwatchService wraps the connectivity monitor.
type NetwatchService struct {
	Monitor netwatch.Monitor

	closer interface{ Close() error }
}

// NewNetwatch starts the probing connectivity monitor.
func NewNetwatch(i do.Injector) (*NetwatchService, error) {
	cfgSvc := do.MustInvoke[*ConfigService](i)
	do.MustInvoke[*LoggerService](i)

	m := netwatch.New(cfgSvc.Config.Netwatch)
	return &NetwatchService{Monitor: m, closer: m}, nil
}

// Shutdown implements do.Shutdowner, stopping the probe loop.
func (s *NetwatchService) Shutdown() error {
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}
