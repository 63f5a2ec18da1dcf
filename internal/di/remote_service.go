package di

import (
	"fmt"

	"github.com/samber/do/v2"

	"github.com/mealtier/mealtier/internal/remote"
)

// RemoteService wraps the remote cache client.
type RemoteService struct {
	Client remote.Client
}

// NewRemote creates the remote cache client from configuration. The
// logger service resolves first so the client logs through the
// configured sink from its first command.
func NewRemote(i do.Injector) (*RemoteService, error) {
	cfgSvc := do.MustInvoke[*ConfigService](i)
	do.MustInvoke[*LoggerService](i)

	client, err := remote.New(&cfgSvc.Config.Remote, cfgSvc.Config.Policy.Degradation())
	if err != nil {
		return nil, fmt.Errorf("failed to create remote client: %w", err)
	}

	return &RemoteService{Client: client}, nil
}

// Shutdown implements do.Shutdowner for graceful client cleanup.
func (s *RemoteService) Shutdown() error {
	if s.Client != nil {
		return s.Client.Close()
	}
	return nil
}
