package tools

// ToolInfo describes one tool exposed by a launched server.
type ToolInfo struct {
	Server      string         `json:"server"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema,omitempty"`
}

// ClientInfo is what toolbelt reports about itself during MCP initialize.
type ClientInfo struct {
	Name    string
	Version string
}

// Config keys read from a descriptor's config block. The loader passes these
// through untouched; only the launcher gives them meaning.
const (
	ConfigCallsPerMinute = "calls_per_minute"
	ConfigRateLimit      = "rate_limit"
	ConfigDisabled       = "disabled"
)
