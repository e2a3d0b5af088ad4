package storage

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ExportMarkdown renders a load record as a markdown document.
func ExportMarkdown(rec *LoadRecord) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("# Load %s\n\n", rec.ID))
	b.WriteString(fmt.Sprintf("- **Source:** %s\n", rec.Source))
	b.WriteString(fmt.Sprintf("- **Status:** %s\n", rec.Status))
	b.WriteString(fmt.Sprintf("- **Policy:** %s\n", rec.Policy))
	b.WriteString(fmt.Sprintf("- **Loaded:** %s\n", rec.CreatedAt.Format("2006-01-02 15:04:05")))
	b.WriteString("\n---\n\n")

	if len(rec.Problems) > 0 {
		b.WriteString("## Problems\n\n")
		for _, p := range rec.Problems {
			b.WriteString(fmt.Sprintf("- %s\n", p))
		}
		b.WriteString("\n")
	}

	for _, d := range rec.Descriptors {
		b.WriteString(fmt.Sprintf("## %s\n\n", d.Name))
		b.WriteString(fmt.Sprintf("```\n%s %s\n```\n\n", d.Command, strings.Join(d.Args, " ")))
		for _, kv := range d.Environ() {
			b.WriteString(fmt.Sprintf("- `%s`\n", kv))
		}
		if len(d.Config) > 0 {
			cfg, _ := json.Marshal(d.Config)
			b.WriteString(fmt.Sprintf("\n**Config:**\n```json\n%s\n```\n", string(cfg)))
		}
		b.WriteString("\n")
	}

	return b.String()
}

// ExportJSON renders a load record as indented JSON.
func ExportJSON(rec *LoadRecord) ([]byte, error) {
	return json.MarshalIndent(rec, "", "  ")
}
