package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/michaelbrown/toolbelt/internal/mcpconfig"
)

var (
	showFormat string
	revealFlag bool
)

var showCmd = &cobra.Command{
	Use:   "show [server]",
	Short: "Show loaded server descriptors",
	Long: `Load the server document and print its descriptors in document order.

Env values are masked unless --reveal is given.

Examples:
  toolbelt show
  toolbelt show github --format yaml
  toolbelt show --format json --reveal`,
	Args: cobra.MaximumNArgs(1),
	RunE: runShow,
}

func init() {
	showCmd.Flags().StringVar(&showFormat, "format", "text", "Output format: text, json or yaml")
	showCmd.Flags().BoolVar(&revealFlag, "reveal", false, "Print env values instead of masking them")
	rootCmd.AddCommand(showCmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadSettings()
	if err != nil {
		return err
	}

	_, set, err := loadDocument(context.Background(), cfg)
	if err != nil {
		return err
	}

	descs := set.All()
	if len(args) == 1 {
		desc, ok := set.Get(args[0])
		if !ok {
			return fmt.Errorf("no server named %q (have: %s)", args[0], strings.Join(set.Names(), ", "))
		}
		descs = []mcpconfig.ServerDescriptor{desc}
	}
	if !revealFlag {
		for i := range descs {
			descs[i] = descs[i].Redacted()
		}
	}

	return writeDescriptors(os.Stdout, descs, showFormat)
}

func writeDescriptors(w io.Writer, descs []mcpconfig.ServerDescriptor, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(descs)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(descs)
	case "text":
		if len(descs) == 0 {
			fmt.Fprintln(w, "No servers defined.")
			return nil
		}
		for i, d := range descs {
			if i > 0 {
				fmt.Fprintln(w)
			}
			writeDescriptorText(w, d)
		}
		return nil
	default:
		return fmt.Errorf("unknown format %q (want text, json or yaml)", format)
	}
}

func writeDescriptorText(w io.Writer, d mcpconfig.ServerDescriptor) {
	fmt.Fprintf(w, "%s\n", d.Name)
	fmt.Fprintf(w, "  command: %s\n", d.Command)
	if len(d.Args) > 0 {
		fmt.Fprintf(w, "  args:    %s\n", strings.Join(d.Args, " "))
	}
	if len(d.Env) > 0 {
		fmt.Fprintln(w, "  env:")
		for _, kv := range d.Environ() {
			fmt.Fprintf(w, "    %s\n", kv)
		}
	}
	if len(d.Config) > 0 {
		fmt.Fprintln(w, "  config:")
		keys := make([]string, 0, len(d.Config))
		for k := range d.Config {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			fmt.Fprintf(w, "    %s: %s\n", k, d.Config[k])
		}
	}
}
