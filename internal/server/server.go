package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/michaelbrown/toolbelt/internal/config"
	"github.com/michaelbrown/toolbelt/internal/mcpconfig"
	"github.com/michaelbrown/toolbelt/internal/storage"
)

// Option configures a Server.
type Option func(*Server)

// WithEnvironment sets the environment placeholders are resolved against.
// The default is the process environment.
func WithEnvironment(env mcpconfig.Environment) Option {
	return func(s *Server) { s.env = env }
}

// Server is the HTTP API over the current descriptor set.
type Server struct {
	cfg    *config.Config
	loader *mcpconfig.Loader
	env    mcpconfig.Environment
	store  storage.Store
	hub    *Hub
	router chi.Router
	http   *http.Server

	tracer  trace.Tracer
	meter   metric.Meter
	metrics *loadMetrics

	mu      sync.RWMutex
	current *mcpconfig.Set
}

// New creates a new Server. Nothing is loaded until Reload is called.
func New(cfg *config.Config, loader *mcpconfig.Loader, store storage.Store, opts ...Option) *Server {
	s := &Server{
		cfg:    cfg,
		loader: loader,
		env:    mcpconfig.OSEnvironment(),
		store:  store,
		hub:    NewHub(),
		router: chi.NewRouter(),
		tracer: defaultTracer(),
		meter:  defaultMeter(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.initMetrics()
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	r := s.router

	// Global middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	r.Route("/api", func(r chi.Router) {
		// WebSocket (no JSON content-type)
		r.Get("/events", s.handleEvents)

		r.Group(func(r chi.Router) {
			r.Use(jsonContentType)

			// Descriptors
			r.Get("/servers", s.handleListServers)
			r.Get("/servers/{name}", s.handleGetServer)
			r.Post("/validate", s.handleValidate)
			r.Post("/reload", s.handleReload)

			// Load history
			r.Get("/loads", s.handleListLoads)
			r.Get("/loads/{id}", s.handleGetLoad)
			r.Delete("/loads/{id}", s.handleDeleteLoad)
		})
	})
}

// jsonContentType sets Content-Type to application/json for API routes.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// Handler returns the server's router.
func (s *Server) Handler() http.Handler { return s.router }

// Current returns the descriptor set from the last successful reload, or
// nil before one has happened.
func (s *Server) Current() *mcpconfig.Set {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Reload loads the configured document, records the attempt and notifies
// event subscribers. A failed load leaves the current set untouched. The
// returned error is only set when the record could not be stored.
func (s *Server) Reload(ctx context.Context) (*storage.LoadRecord, error) {
	source := s.cfg.Document.Path
	ctx, span := s.startReloadSpan(ctx, source)
	defer span.End()

	start := time.Now()
	set, loadErr := s.loader.LoadFrom(ctx, source, s.env)

	rec := storage.NewLoadRecord(uuid.New().String(), source, s.loader.Policy(), set, loadErr)
	s.recordLoad(ctx, span, rec, time.Since(start))
	if loadErr == nil {
		s.mu.Lock()
		s.current = set
		s.mu.Unlock()
		log.Printf("Loaded %d tool servers from %s", set.Len(), source)
	} else {
		log.Printf("Reload of %s failed: %v", source, loadErr)
	}

	s.hub.Broadcast(Event{
		Type:     EventReload,
		LoadID:   rec.ID,
		OK:       loadErr == nil,
		Servers:  rec.Servers,
		Problems: rec.Problems,
	})

	if err := s.store.SaveLoad(ctx, rec); err != nil {
		span.RecordError(err)
		return rec, fmt.Errorf("recording load: %w", err)
	}
	return rec, nil
}

// Start begins listening on the given port.
func (s *Server) Start(port int) error {
	addr := fmt.Sprintf(":%d", port)
	s.http = &http.Server{
		Addr:    addr,
		Handler: s.router,
	}

	log.Printf("toolbelt server starting on http://localhost%s", addr)
	return s.http.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down server...")
	s.hub.CloseAll()

	if s.http == nil {
		return nil
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	return s.http.Shutdown(shutdownCtx)
}
