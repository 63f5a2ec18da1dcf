package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/mealtier/mealtier/internal/di"
)

var (
	syncWatch    bool
	syncInterval time.Duration
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Replay queued offline mutations",
	Long: `Drain the offline mutation queue against the source of truth in FIFO
order. Each mutation is removed from the queue only after its write
succeeds; a failure stops the drain and leaves the remainder queued.

With --watch the command stays running, retrying the drain on an
interval and hot-reloading the config file (including the log level)
when it changes.`,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().BoolVar(&syncWatch, "watch", false,
		"keep running and drain the queue periodically")
	syncCmd.Flags().DurationVar(&syncInterval, "interval", 30*time.Second,
		"drain interval in watch mode")
	rootCmd.AddCommand(syncCmd)
}

func runSync(_ *cobra.Command, _ []string) error {
	container, err := di.NewContainer(configPath())
	if err != nil {
		return err
	}
	defer shutdownContainer(container)

	logSvc, err := di.Invoke[*di.LoggerService](container)
	if err != nil {
		return err
	}
	log.Logger = *logSvc.Logger
	zerolog.DefaultContextLogger = logSvc.Logger

	mealsSvc, err := di.Invoke[*di.MealsService](container)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if syncWatch {
		return watchSync(ctx, container, mealsSvc)
	}

	ctx, timeout := context.WithTimeout(ctx, 2*time.Minute)
	defer timeout()

	pending := mealsSvc.Service.PendingSync(ctx)
	if pending == 0 {
		fmt.Println("nothing to sync")
		return nil
	}

	replayed, err := mealsSvc.Service.SyncOffline(ctx)
	if err != nil {
		fmt.Printf("✗ synced %d of %d, stopped: %s\n", replayed, pending, err)
		return err
	}

	fmt.Printf("✓ synced %d mutation(s)\n", replayed)
	return nil
}

// watchSync drains the queue on an interval until interrupted. Config
// hot-reload runs for the lifetime of the loop, so a log-level edit takes
// effect without a restart.
func watchSync(ctx context.Context, container *di.Container, mealsSvc *di.MealsService) error {
	if err := container.StartWatching(ctx); err != nil {
		return err
	}

	log.Info().Dur("interval", syncInterval).Msg("watching offline queue")
	drainOnce(ctx, mealsSvc)

	ticker := time.NewTicker(syncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("sync watch stopped")
			return nil
		case <-ticker.C:
			drainOnce(ctx, mealsSvc)
		}
	}
}

// drainOnce replays whatever is queued right now. Failures are logged,
// not fatal; the remainder stays queued for the next tick.
func drainOnce(ctx context.Context, mealsSvc *di.MealsService) {
	pending := mealsSvc.Service.PendingSync(ctx)
	if pending == 0 {
		return
	}

	replayed, err := mealsSvc.Service.SyncOffline(ctx)
	if err != nil {
		log.Warn().Err(err).Int("replayed", replayed).Int("pending", pending).Msg("queue drain stopped")
		return
	}
	log.Info().Int("replayed", replayed).Msg("offline queue drained")
}

// shutdownContainer shuts the container down, logging rather than
// failing the command on cleanup errors.
func shutdownContainer(container *di.Container) {
	if err := container.Shutdown(); err != nil {
		log.Warn().Err(err).Msg("container shutdown")
	}
}
