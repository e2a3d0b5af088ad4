// Command toolbelt-echo is a minimal stdio MCP server that reports how it was
// launched. It is the probe target for launcher tests and for checking that a
// descriptor's args and env reach the child process.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

func main() {
	s := server.NewMCPServer("toolbelt-echo", "0.1.0")

	s.AddTool(mcp.Tool{
		Name:        "echo_env",
		Description: "Return the value of an environment variable as seen by this server.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"name": map[string]any{
					"type":        "string",
					"description": "Environment variable name",
				},
			},
			Required: []string{"name"},
		},
	}, handleEchoEnv)

	s.AddTool(mcp.Tool{
		Name:        "echo_args",
		Description: "Return the command-line arguments this server was started with, one per line.",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{},
		},
	}, handleEchoArgs)

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
	}
}

func textResult(text string, isError bool) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: text}},
		IsError: isError,
	}
}

func handleEchoEnv(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]any)
	name, ok := args["name"].(string)
	if !ok || name == "" {
		return textResult("'name' argument must be a non-empty string", true), nil
	}
	value, set := os.LookupEnv(name)
	if !set {
		return textResult(name+" is not set", true), nil
	}
	return textResult(value, false), nil
}

func handleEchoArgs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return textResult(strings.Join(os.Args[1:], "\n"), false), nil
}
