// Package main is the entry point for mealtier.
package main

import (
	"context"
	"os"
	"path/filepath"

	"charm.land/fang/v2"
	"github.com/spf13/cobra"
)

const defaultConfigFile = "config.yaml"

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "mealtier",
	Short: "Tiered data layer for meal logs",
	Long: `mealtier manages the three data tiers behind a meal tracking app:
a device-local store, a shared remote cache, and the source-of-truth
database. It serves reads from the fastest tier available, applies writes
optimistically, and replays offline mutations when connectivity returns.`,
}

func init() {
	// Global flags available to all subcommands
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file path (default: ./"+defaultConfigFile+" or ~/.config/mealtier/"+defaultConfigFile+")")
}

// findConfigFile searches the default locations, preferring the current
// directory over ~/.config/mealtier/.
func findConfigFile() string {
	if _, err := os.Stat(defaultConfigFile); err == nil {
		return defaultConfigFile
	}
	home, err := os.UserHomeDir()
	if err == nil && home != "" {
		p := filepath.Join(home, ".config", "mealtier", defaultConfigFile)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return defaultConfigFile // Default, will error if not found
}

// configPath resolves the --config flag with fallback to the default
// search locations.
func configPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return findConfigFile()
}

func main() {
	if err := fang.Execute(context.Background(), rootCmd); err != nil {
		os.Exit(1)
	}
}
