package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/michaelbrown/toolbelt/internal/config"
	"github.com/michaelbrown/toolbelt/internal/mcpconfig"
	"github.com/michaelbrown/toolbelt/internal/storage"
	"github.com/michaelbrown/toolbelt/internal/storage/sqlite"
)

var (
	configFlag   string
	policyFlag   string
	settingsFlag string
)

var rootCmd = &cobra.Command{
	Use:   "toolbelt",
	Short: "Toolbelt - MCP tool server configuration",
	Long: `Toolbelt loads and validates the document that declares which MCP tool
servers to launch, and how to launch them.

Placeholders of the form ${VAR} in env values are resolved against the
process environment. Use --policy to choose what happens to unset variables.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "Server document path or URL (overrides settings)")
	rootCmd.PersistentFlags().StringVar(&policyFlag, "policy", "", "Unset placeholder policy (fail, empty, keep)")
	rootCmd.PersistentFlags().StringVar(&settingsFlag, "settings", "", "Settings file (default: ./toolbelt.yaml or ~/.toolbelt/toolbelt.yaml)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadSettings reads toolbelt settings and applies the global flags.
func loadSettings() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if settingsFlag != "" {
		cfg, err = config.LoadFile(settingsFlag)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}

	if configFlag != "" {
		cfg.Document.Path = configFlag
	}
	if policyFlag != "" {
		cfg.Document.PlaceholderPolicy = policyFlag
		if _, err := cfg.Policy(); err != nil {
			return nil, fmt.Errorf("--policy: %w", err)
		}
	}
	return cfg, nil
}

func openStore(cfg *config.Config) (storage.Store, error) {
	store, err := sqlite.Open(cfg.Storage.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening storage: %w", err)
	}
	return store, nil
}

// loadDocument loads the configured server document against the process
// environment.
func loadDocument(ctx context.Context, cfg *config.Config) (*mcpconfig.Loader, *mcpconfig.Set, error) {
	loader, err := cfg.Loader()
	if err != nil {
		return nil, nil, err
	}
	set, err := loader.LoadFrom(ctx, cfg.Document.Path, mcpconfig.OSEnvironment())
	return loader, set, err
}
