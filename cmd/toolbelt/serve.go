package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/michaelbrown/toolbelt/internal/config"
	"github.com/michaelbrown/toolbelt/internal/server"
	"github.com/michaelbrown/toolbelt/internal/tools"
)

var (
	portFlag   int
	launchFlag bool
	watchFlag  bool
	traceFlag  bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the toolbelt HTTP API",
	Long: `Start the toolbelt HTTP server with REST API and WebSocket support.

The document is loaded once at startup and again on POST /api/reload.
API endpoints are under /api. Reload events stream on /api/events.

Examples:
  toolbelt serve
  toolbelt serve --port 9090
  toolbelt serve --launch
  toolbelt serve --watch --trace`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&portFlag, "port", 0, "Port to listen on (overrides settings)")
	serveCmd.Flags().BoolVar(&launchFlag, "launch", false, "Launch every loaded tool server at startup")
	serveCmd.Flags().BoolVar(&watchFlag, "watch", false, "Reload when the document file changes")
	serveCmd.Flags().BoolVar(&traceFlag, "trace", false, "Log a trace span for every reload")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadSettings()
	if err != nil {
		return err
	}

	loader, err := cfg.Loader()
	if err != nil {
		return err
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	var opts []server.Option
	if traceFlag {
		tp := newTracerProvider(logger)
		defer tp.Shutdown(context.Background())
		opts = append(opts, server.WithTracerProvider(tp))
	}
	srv := server.New(cfg, loader, store, opts...)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if _, err := srv.Reload(ctx); err != nil {
		log.Printf("Warning: %v", err)
	}

	if watchFlag {
		go func() {
			if err := srv.Watch(ctx); err != nil {
				log.Printf("Warning: %v", err)
			}
		}()
	}

	if launchFlag {
		registry := newRegistry(cfg, logger)
		defer registry.Close()

		if set := srv.Current(); set != nil {
			if err := registry.RegisterAll(ctx, set); err != nil {
				log.Printf("Warning: %v", err)
			}
		}
		log.Printf("Tools: %d launched from %d servers", len(registry.Tools()), len(registry.Servers()))
	}

	port := cfg.Server.Port
	if portFlag > 0 {
		port = portFlag
	}

	// Graceful shutdown on SIGINT/SIGTERM
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		cancel()
		srv.Shutdown(context.Background())
	}()

	if err := srv.Start(port); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}

func newRegistry(cfg *config.Config, logger *slog.Logger) *tools.Registry {
	return tools.NewRegistry(
		tools.WithLogger(logger),
		tools.WithClientInfo(tools.ClientInfo{
			Name:    cfg.Launcher.ClientName,
			Version: cfg.Launcher.ClientVersion,
		}),
		tools.WithDefaultRate(cfg.Launcher.CallsPerMinute),
	)
}
