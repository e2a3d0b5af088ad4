package storage

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/michaelbrown/toolbelt/internal/mcpconfig"
)

func TestExportMarkdown(t *testing.T) {
	doc := `{"servers":{"calc":{"command":"wolfram-mcp","args":["--stdio"],"env":{"APPID":"${APPID}"},"config":{"calls_per_minute":5}}}}`
	set, err := mcpconfig.Load([]byte(doc), mcpconfig.MapEnvironment{"APPID": "real-app-id"})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	rec := NewLoadRecord("id-1", "mcp.json", mcpconfig.PolicyFail, set, nil)
	rec.CreatedAt = time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)

	md := ExportMarkdown(rec)
	for _, want := range []string{
		"# Load id-1",
		"- **Status:** ok",
		"- **Loaded:** 2026-03-04 05:06:07",
		"## calc",
		"wolfram-mcp --stdio",
		"- `APPID=***`",
		`"calls_per_minute":5`,
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q:\n%s", want, md)
		}
	}
	if strings.Contains(md, "real-app-id") {
		t.Error("markdown must not leak env values")
	}
}

func TestExportMarkdownProblems(t *testing.T) {
	_, err := mcpconfig.Load([]byte(`{"servers":{"a":{"command":""}}}`), nil)
	rec := NewLoadRecord("id-2", "mcp.json", mcpconfig.PolicyEmpty, nil, err)

	md := ExportMarkdown(rec)
	if !strings.Contains(md, "## Problems") || !strings.Contains(md, "command is empty") {
		t.Errorf("markdown should list problems:\n%s", md)
	}
	if !strings.Contains(md, "- **Policy:** empty") {
		t.Errorf("markdown should show policy:\n%s", md)
	}
}

func TestExportJSON(t *testing.T) {
	rec := NewLoadRecord("id-3", "mcp.json", mcpconfig.PolicyFail, nil, nil)
	data, err := ExportJSON(rec)
	if err != nil {
		t.Fatalf("ExportJSON: %v", err)
	}
	var back map[string]any
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back["id"] != "id-3" || back["status"] != "ok" {
		t.Errorf("unexpected export: %s", data)
	}
}
