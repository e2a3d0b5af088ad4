package main

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/michaelbrown/toolbelt/internal/config"
	"github.com/michaelbrown/toolbelt/internal/mcpconfig"
	"github.com/michaelbrown/toolbelt/internal/storage"
)

var noRecordFlag bool

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the server document",
	Long: `Load the server document and report every problem found.

Exits non-zero when the document has problems. Each attempt is recorded in
the load history unless --no-record is given.

Examples:
  toolbelt validate
  toolbelt validate --config ./mcp_config.json --policy empty`,
	Args: cobra.NoArgs,
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().BoolVar(&noRecordFlag, "no-record", false, "Do not record this load in history")
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadSettings()
	if err != nil {
		return err
	}

	ctx := context.Background()
	loader, set, loadErr := loadDocument(ctx, cfg)
	if loader == nil {
		return loadErr
	}

	if !noRecordFlag {
		recordLoad(ctx, cfg, loader, set, loadErr)
	}

	if loadErr != nil {
		problems := mcpconfig.Problems(loadErr)
		fmt.Printf("%s: %d problem(s)\n", cfg.Document.Path, len(problems))
		for _, p := range problems {
			fmt.Printf("  - %s\n", p)
		}
		return fmt.Errorf("validation failed")
	}

	fmt.Printf("%s: OK, %d server(s)\n", cfg.Document.Path, set.Len())
	if set.Len() > 0 {
		fmt.Printf("  %s\n", strings.Join(set.Names(), ", "))
	}
	return nil
}

// recordLoad stores the outcome in load history. History is best effort:
// failures are logged, not returned.
func recordLoad(ctx context.Context, cfg *config.Config, loader *mcpconfig.Loader, set *mcpconfig.Set, loadErr error) {
	store, err := openStore(cfg)
	if err != nil {
		log.Printf("Warning: not recording load: %v", err)
		return
	}
	defer store.Close()

	rec := storage.NewLoadRecord(uuid.New().String(), cfg.Document.Path, loader.Policy(), set, loadErr)
	if err := store.SaveLoad(ctx, rec); err != nil {
		log.Printf("Warning: recording load: %v", err)
	}
}
