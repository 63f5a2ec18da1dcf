package di

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/samber/do/v2"

	"github.com/mealtier/mealtier/internal/config"
	"github.com/mealtier/mealtier/internal/logging"
)

// LoggerService wraps the zerolog logger for DI.
type LoggerService struct {
	Logger *zerolog.Logger
}

// ApplyLevel re-derives the log level from a reloaded logging config and
// pushes the adjusted logger back out to every component package. Output
// and format changes require a restart; the level does not.
func (l *LoggerService) ApplyLevel(cfg config.LoggingConfig) {
	updated := l.Logger.Level(cfg.ParseLevel())
	l.Logger = &updated
	logging.Wire(l.Logger)
}

// NewLogger creates the zerolog logger from configuration and wires it
// into every component package.
func NewLogger(i do.Injector) (*LoggerService, error) {
	cfgSvc := do.MustInvoke[*ConfigService](i)

	logger, err := logging.New(cfgSvc.Config.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	logging.Wire(&logger)

	return &LoggerService{Logger: &logger}, nil
}
