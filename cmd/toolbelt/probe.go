package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/michaelbrown/toolbelt/internal/tools"
)

var probeCmd = &cobra.Command{
	Use:   "probe <server>",
	Short: "Launch one tool server and call its tools interactively",
	Long: `Launch a single server from the document, list the tools it exposes and
call them by hand.

At the prompt, type a tool name followed by optional JSON arguments:
  echo_env {"name": "HOME"}

Examples:
  toolbelt probe github
  toolbelt probe echo --config ./mcp_config.json`,
	Args: cobra.ExactArgs(1),
	RunE: runProbe,
}

func init() {
	rootCmd.AddCommand(probeCmd)
}

func runProbe(cmd *cobra.Command, args []string) error {
	cfg, err := loadSettings()
	if err != nil {
		return err
	}

	ctx := context.Background()
	_, set, err := loadDocument(ctx, cfg)
	if err != nil {
		return err
	}

	desc, ok := set.Get(args[0])
	if !ok {
		return fmt.Errorf("no server named %q (have: %s)", args[0], strings.Join(set.Names(), ", "))
	}

	registry := newRegistry(cfg, slog.New(slog.NewTextHandler(os.Stderr, nil)))
	defer registry.Close()

	if err := registry.Register(ctx, desc); err != nil {
		return fmt.Errorf("starting %s: %w", desc.Name, err)
	}
	if !registry.HasTools() {
		fmt.Printf("%s exposes no tools (or is disabled).\n", desc.Name)
		return nil
	}

	fmt.Printf("Toolbelt - probing %s\n", desc.Name)
	printTools(registry)
	fmt.Printf("Type /help for commands, /quit to exit\n\n")

	historyFile := filepath.Join(os.TempDir(), "toolbelt_probe_history")
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "\033[36m" + desc.Name + ">\033[0m ",
		HistoryFile:     historyFile,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("readline: %w", err)
	}
	defer rl.Close()

	// Ctrl+C cancels the running call, not the session.
	var inFlight callCanceler
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		for range sigCh {
			inFlight.cancel()
		}
	}()

	for {
		input, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt || err == io.EOF {
				fmt.Println("\nGoodbye!")
				return nil
			}
			return err
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			if handleProbeCommand(input, registry) {
				return nil
			}
			continue
		}

		name, callArgs, err := parseCall(input)
		if err != nil {
			fmt.Printf("\033[31merror: %s\033[0m\n\n", err)
			continue
		}

		callCtx, cancel := context.WithCancel(ctx)
		inFlight.set(cancel)
		result, err := registry.CallTool(callCtx, name, callArgs)
		wasInterrupted := callCtx.Err() != nil
		inFlight.set(nil)
		cancel()

		if err != nil {
			if wasInterrupted {
				fmt.Println("(interrupted)")
				continue
			}
			fmt.Printf("\033[31merror: %s\033[0m\n\n", err)
			continue
		}
		for _, line := range strings.Split(strings.TrimRight(result, "\n"), "\n") {
			fmt.Printf("  \033[90m│ %s\033[0m\n", line)
		}
		fmt.Println()
	}
}

// parseCall splits "tool {json}" into a tool name and its arguments.
func parseCall(input string) (string, map[string]any, error) {
	name, rest, _ := strings.Cut(input, " ")
	rest = strings.TrimSpace(rest)

	callArgs := map[string]any{}
	if rest != "" {
		if err := json.Unmarshal([]byte(rest), &callArgs); err != nil {
			return "", nil, fmt.Errorf("arguments must be a JSON object: %w", err)
		}
	}
	return name, callArgs, nil
}

func printTools(registry *tools.Registry) {
	fmt.Println("Tools:")
	for _, t := range registry.Tools() {
		desc := t.Description
		if desc == "" {
			desc = "(no description)"
		}
		fmt.Printf("  \033[33m%s\033[0m - %s\n", t.Name, truncate(desc, 70))
	}
}

// handleProbeCommand runs a slash command and reports whether to quit.
func handleProbeCommand(input string, registry *tools.Registry) bool {
	switch strings.ToLower(strings.Fields(input)[0]) {
	case "/quit", "/exit", "/q":
		fmt.Println("Goodbye!")
		return true
	case "/tools":
		printTools(registry)
		fmt.Println()
	case "/help":
		fmt.Println("Commands:")
		fmt.Println("  <tool> [json]  - Call a tool, e.g. echo_env {\"name\": \"HOME\"}")
		fmt.Println("  /tools         - List the server's tools")
		fmt.Println("  /help          - Show this help")
		fmt.Println("  /quit          - Exit")
		fmt.Println()
	default:
		fmt.Printf("Unknown command: %s (try /help)\n\n", input)
	}
	return false
}

// callCanceler holds the cancel func of the call in flight. The signal
// goroutine and the read loop both touch it.
type callCanceler struct {
	mu sync.Mutex
	fn context.CancelFunc
}

func (c *callCanceler) set(fn context.CancelFunc) {
	c.mu.Lock()
	c.fn = fn
	c.mu.Unlock()
}

// cancel stops the call in flight, if any.
func (c *callCanceler) cancel() {
	c.mu.Lock()
	fn := c.fn
	c.mu.Unlock()
	if fn != nil {
		fn()
	}
}
