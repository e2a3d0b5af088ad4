package tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/michaelbrown/toolbelt/internal/mcpconfig"
)

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the registry's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) { r.logger = logger }
}

// WithClientInfo sets the name and version sent during MCP initialize.
func WithClientInfo(info ClientInfo) Option {
	return func(r *Registry) { r.info = info }
}

// WithDefaultRate limits servers whose config sets no rate of their own.
func WithDefaultRate(callsPerMinute int) Option {
	return func(r *Registry) { r.defaultRate = callsPerMinute }
}

type server struct {
	conn    *MCPConnection
	limiter *Limiter
}

// Registry manages the MCP connections launched from a descriptor set.
type Registry struct {
	mu          sync.RWMutex
	servers     map[string]*server // server name → connection
	toolIndex   map[string]string  // tool name → server name
	logger      *slog.Logger
	info        ClientInfo
	defaultRate int
}

// NewRegistry creates an empty tool registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		servers:   make(map[string]*server),
		toolIndex: make(map[string]string),
		logger:    slog.Default(),
		info:      ClientInfo{Name: "toolbelt", Version: "0.1.0"},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register launches the server described by desc and indexes its tools.
// Descriptors with config disabled: true are skipped.
func (r *Registry) Register(ctx context.Context, desc mcpconfig.ServerDescriptor) error {
	if disabled, _ := desc.ConfigBool(ConfigDisabled); disabled {
		r.logger.Info("skipping disabled tool server", "server", desc.Name)
		return nil
	}

	r.mu.RLock()
	_, exists := r.servers[desc.Name]
	r.mu.RUnlock()
	if exists {
		return fmt.Errorf("tool server %s already registered", desc.Name)
	}

	conn, err := NewMCPConnection(ctx, desc, r.info)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	// Another Register for the same name may have won while this one was
	// launching.
	if _, exists := r.servers[desc.Name]; exists {
		if err := conn.Close(); err != nil {
			r.logger.Debug("closing duplicate tool server", "server", desc.Name, "error", err)
		}
		return fmt.Errorf("tool server %s already registered", desc.Name)
	}
	r.servers[desc.Name] = &server{conn: conn, limiter: limiterFor(desc, r.defaultRate, r.logger)}
	for _, toolName := range conn.ToolNames() {
		if owner, taken := r.toolIndex[toolName]; taken {
			r.logger.Warn("tool name shadowed", "tool", toolName, "server", desc.Name, "previous", owner)
		}
		r.toolIndex[toolName] = desc.Name
	}
	r.logger.Info("tool server registered", "server", desc.Name, "tools", len(conn.ToolNames()))
	return nil
}

// RegisterAll registers every descriptor in set. Servers that start stay
// registered; failures are logged and returned joined.
func (r *Registry) RegisterAll(ctx context.Context, set *mcpconfig.Set) error {
	var errs []error
	for _, desc := range set.All() {
		if err := r.Register(ctx, desc); err != nil {
			r.logger.Warn("failed to start tool server", "server", desc.Name, "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Tools returns tool descriptions from all registered servers, sorted by
// server then tool name.
func (r *Registry) Tools() []ToolInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var all []ToolInfo
	for _, s := range r.servers {
		all = append(all, s.conn.Tools()...)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Server != all[j].Server {
			return all[i].Server < all[j].Server
		}
		return all[i].Name < all[j].Name
	})
	return all
}

// Servers returns the names of registered servers, sorted.
func (r *Registry) Servers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.servers))
	for name := range r.servers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CallTool routes a tool call to the server that owns the tool, waiting on
// that server's rate limit first.
func (r *Registry) CallTool(ctx context.Context, name string, args map[string]any) (string, error) {
	r.mu.RLock()
	serverName, ok := r.toolIndex[name]
	s := r.servers[serverName]
	r.mu.RUnlock()
	if !ok || s == nil {
		return "", fmt.Errorf("unknown tool: %s", name)
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("waiting for rate limit on %s: %w", serverName, err)
	}
	return s.conn.CallTool(ctx, name, args)
}

// HasTools returns true if any tools are registered.
func (r *Registry) HasTools() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.toolIndex) > 0
}

// Close shuts down all server connections.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for name, s := range r.servers {
		if err := s.conn.Close(); err != nil {
			r.logger.Debug("closing tool server", "server", name, "error", err)
		}
		delete(r.servers, name)
	}
	r.toolIndex = make(map[string]string)
}
