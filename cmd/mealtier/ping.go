package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mealtier/mealtier/internal/di"
)

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check remote cache and network reachability",
	Long: `Probe the connectivity endpoint and ping the remote cache backend.
Exits non-zero when the remote cache backend is configured but down.`,
	RunE: runPing,
}

func init() {
	rootCmd.AddCommand(pingCmd)
}

func runPing(_ *cobra.Command, _ []string) error {
	container, err := di.NewContainer(configPath())
	if err != nil {
		return err
	}
	defer shutdownContainer(container)

	remoteSvc, err := di.Invoke[*di.RemoteService](container)
	if err != nil {
		return err
	}
	netSvc, err := di.Invoke[*di.NetwatchService](container)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if netSvc.Monitor.Probe(ctx) {
		fmt.Println("✓ network reachable")
	} else {
		fmt.Println("✗ network unreachable")
	}

	if !remoteSvc.Client.Enabled() {
		fmt.Println("- remote cache disabled")
		return nil
	}
	if err := remoteSvc.Client.Ping(ctx); err != nil {
		fmt.Printf("✗ remote cache: %s\n", err)
		return err
	}
	fmt.Println("✓ remote cache reachable")

	return nil
}
