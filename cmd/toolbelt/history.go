package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/michaelbrown/toolbelt/internal/storage"
)

var (
	statusFilter string
	sourceFilter string
	limitFlag    int
	exportFormat string
	exportOutput string
	forceFlag    bool
)

var historyCmd = &cobra.Command{
	Use:     "history",
	Aliases: []string{"loads", "h"},
	Short:   "Inspect recorded document loads",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded loads",
	Args:  cobra.NoArgs,
	RunE:  runHistoryList,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <load-id>",
	Short: "Show a load's servers and problems",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete <load-id>",
	Short: "Delete a recorded load",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryDelete,
}

var historyExportCmd = &cobra.Command{
	Use:   "export <load-id>",
	Short: "Export a load as markdown or JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryExport,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyListCmd, historyShowCmd, historyDeleteCmd, historyExportCmd)

	historyListCmd.Flags().StringVar(&statusFilter, "status", "", "Filter by status (ok, failed)")
	historyListCmd.Flags().StringVar(&sourceFilter, "source", "", "Filter by document location")
	historyListCmd.Flags().IntVar(&limitFlag, "limit", 20, "Max loads to show")

	historyExportCmd.Flags().StringVar(&exportFormat, "format", "md", "Export format: md or json")
	historyExportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file (default: stdout)")

	historyDeleteCmd.Flags().BoolVar(&forceFlag, "force", false, "Skip confirmation")
}

func openHistory() (storage.Store, error) {
	cfg, err := loadSettings()
	if err != nil {
		return nil, err
	}
	return openStore(cfg)
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	store, err := openHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	opts := storage.LoadListOptions{
		Status: storage.LoadStatus(statusFilter),
		Source: sourceFilter,
		Limit:  limitFlag,
	}

	recs, err := store.ListLoads(context.Background(), opts)
	if err != nil {
		return err
	}

	if len(recs) == 0 {
		fmt.Println("No loads recorded.")
		return nil
	}

	// Header
	fmt.Printf("%-10s %-8s %-8s %-40s %s\n", "ID", "STATUS", "SERVERS", "SOURCE", "WHEN")
	fmt.Println(strings.Repeat("─", 85))

	for _, rec := range recs {
		count := fmt.Sprintf("%d", len(rec.Servers))
		if rec.Status == storage.StatusFailed {
			count = fmt.Sprintf("%d err", len(rec.Problems))
		}
		fmt.Printf("%-10s %-8s %-8s %-40s %s\n",
			shortID(rec.ID), rec.Status, count, truncate(rec.Source, 40), timeAgo(rec.CreatedAt))
	}

	return nil
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	store, err := openHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	rec, err := store.GetLoad(context.Background(), args[0])
	if err != nil {
		return err
	}

	fmt.Printf("Load:    %s\n", rec.ID)
	fmt.Printf("Source:  %s\n", rec.Source)
	fmt.Printf("Status:  %s\n", rec.Status)
	fmt.Printf("Policy:  %s\n", rec.Policy)
	fmt.Printf("Created: %s\n", rec.CreatedAt.Format(time.RFC3339))

	if len(rec.Problems) > 0 {
		fmt.Printf("\nProblems: %d\n", len(rec.Problems))
		fmt.Println(strings.Repeat("─", 60))
		for _, p := range rec.Problems {
			fmt.Printf("  \033[31m✗\033[0m %s\n", p)
		}
		return nil
	}

	fmt.Printf("\nServers: %d\n", len(rec.Descriptors))
	fmt.Println(strings.Repeat("─", 60))
	return writeDescriptors(os.Stdout, rec.Descriptors, "text")
}

func runHistoryDelete(cmd *cobra.Command, args []string) error {
	store, err := openHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	rec, err := store.GetLoad(ctx, args[0])
	if err != nil {
		return err
	}

	if !forceFlag {
		fmt.Printf("Delete load %s of %q? [y/N] ", shortID(rec.ID), rec.Source)
		var confirm string
		fmt.Scanln(&confirm)
		if strings.ToLower(confirm) != "y" {
			fmt.Println("Cancelled.")
			return nil
		}
	}

	if err := store.DeleteLoad(ctx, rec.ID); err != nil {
		return err
	}
	fmt.Printf("Deleted load %s\n", shortID(rec.ID))
	return nil
}

func runHistoryExport(cmd *cobra.Command, args []string) error {
	store, err := openHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	rec, err := store.GetLoad(context.Background(), args[0])
	if err != nil {
		return err
	}

	var output string
	switch exportFormat {
	case "json":
		data, err := storage.ExportJSON(rec)
		if err != nil {
			return err
		}
		output = string(data)
	default:
		output = storage.ExportMarkdown(rec)
	}

	if exportOutput != "" {
		return os.WriteFile(exportOutput, []byte(output), 0o644)
	}

	fmt.Print(output)
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(s string, maxLen int) string {
	s = strings.TrimSpace(s)
	if len(s) > maxLen {
		return s[:maxLen-2] + ".."
	}
	return s
}

func timeAgo(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}
