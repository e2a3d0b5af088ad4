package tools

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/michaelbrown/toolbelt/internal/mcpconfig"
)

// MCPConnection wraps an mcp-go stdio client for a single tool server.
type MCPConnection struct {
	name   string
	client *client.Client
	tools  []mcp.Tool
}

// NewMCPConnection launches the server described by desc and initializes
// the connection. The child inherits the process environment with desc.Env
// layered on top.
func NewMCPConnection(ctx context.Context, desc mcpconfig.ServerDescriptor, info ClientInfo) (*MCPConnection, error) {
	env := append(os.Environ(), desc.Environ()...)

	c, err := client.NewStdioMCPClient(desc.Command, env, desc.Args...)
	if err != nil {
		return nil, fmt.Errorf("starting MCP server %s (%s): %w", desc.Name, desc.Command, err)
	}

	_, err = c.Initialize(ctx, mcp.InitializeRequest{
		Params: mcp.InitializeParams{
			ProtocolVersion: mcp.LATEST_PROTOCOL_VERSION,
			ClientInfo: mcp.Implementation{
				Name:    info.Name,
				Version: info.Version,
			},
		},
	})
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("initializing MCP server %s: %w", desc.Name, err)
	}

	result, err := c.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("listing tools from %s: %w", desc.Name, err)
	}

	return &MCPConnection{
		name:   desc.Name,
		client: c,
		tools:  result.Tools,
	}, nil
}

// Tools describes every tool on this server.
func (mc *MCPConnection) Tools() []ToolInfo {
	infos := make([]ToolInfo, 0, len(mc.tools))
	for _, t := range mc.tools {
		schema := map[string]any{
			"type": t.InputSchema.Type,
		}
		if t.InputSchema.Properties != nil {
			schema["properties"] = t.InputSchema.Properties
		}
		if len(t.InputSchema.Required) > 0 {
			schema["required"] = t.InputSchema.Required
		}
		infos = append(infos, ToolInfo{
			Server:      mc.name,
			Name:        t.Name,
			Description: t.Description,
			InputSchema: schema,
		})
	}
	return infos
}

// CallTool invokes a tool on this server and returns its text content.
// A tool-level failure comes back as text prefixed with "error: ".
func (mc *MCPConnection) CallTool(ctx context.Context, name string, args map[string]any) (string, error) {
	result, err := mc.client.CallTool(ctx, mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	})
	if err != nil {
		return "", fmt.Errorf("calling tool %s on %s: %w", name, mc.name, err)
	}

	var parts []string
	for _, c := range result.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			parts = append(parts, tc.Text)
		}
	}

	text := strings.Join(parts, "\n")
	if result.IsError {
		return "error: " + text, nil
	}
	return text, nil
}

// ToolNames returns the names of all tools on this server.
func (mc *MCPConnection) ToolNames() []string {
	names := make([]string, len(mc.tools))
	for i, t := range mc.tools {
		names[i] = t.Name
	}
	return names
}

// Close shuts down the server subprocess.
func (mc *MCPConnection) Close() error {
	return mc.client.Close()
}
