package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mealtier/mealtier/internal/di"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache and sync queue statistics",
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(_ *cobra.Command, _ []string) error {
	container, err := di.NewContainer(configPath())
	if err != nil {
		return err
	}
	defer shutdownContainer(container)

	cacheSvc, err := di.Invoke[*di.CacheService](container)
	if err != nil {
		return err
	}
	mealsSvc, err := di.Invoke[*di.MealsService](container)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stats := cacheSvc.Cache.Stats()
	fmt.Printf("cache enabled:  %v\n", cacheSvc.Cache.Enabled())
	fmt.Printf("cache hits:     %d\n", stats.Hits)
	fmt.Printf("cache misses:   %d\n", stats.Misses)
	if total := stats.Hits + stats.Misses; total > 0 {
		fmt.Printf("hit rate:       %.1f%%\n", float64(stats.Hits)/float64(total)*100)
	}
	fmt.Printf("pending sync:   %d\n", mealsSvc.Service.PendingSync(ctx))

	return nil
}
