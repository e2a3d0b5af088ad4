package main

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"go.opentelemetry.io/otel/attribute"

	"github.com/michaelbrown/toolbelt/internal/mcpconfig"
)

func TestParseCall(t *testing.T) {
	tests := []struct {
		input    string
		wantName string
		wantArgs map[string]any
		wantErr  bool
	}{
		{input: "echo_args", wantName: "echo_args", wantArgs: map[string]any{}},
		{input: `echo_env {"name": "HOME"}`, wantName: "echo_env", wantArgs: map[string]any{"name": "HOME"}},
		{input: `echo_env   {"n": 2}`, wantName: "echo_env", wantArgs: map[string]any{"n": float64(2)}},
		{input: `echo_env [1]`, wantErr: true},
		{input: `echo_env {bad`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			name, args, err := parseCall(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("parseCall(%q) succeeded, want error", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseCall(%q): %v", tt.input, err)
			}
			if name != tt.wantName {
				t.Errorf("name = %q, want %q", name, tt.wantName)
			}
			if len(args) != len(tt.wantArgs) {
				t.Fatalf("args = %v, want %v", args, tt.wantArgs)
			}
			for k, v := range tt.wantArgs {
				if args[k] != v {
					t.Errorf("args[%q] = %v, want %v", k, args[k], v)
				}
			}
		})
	}
}

func TestWriteDescriptors(t *testing.T) {
	set, err := mcpconfig.Load([]byte(`
servers:
  github:
    command: npx
    args: ["-y", "server-github"]
    env:
      TOKEN: ${TOKEN}
    config:
      rate_limit: 30
      disabled: false
`), mcpconfig.MapEnvironment{"TOKEN": "s3cret"})
	if err != nil {
		t.Fatal(err)
	}
	descs := set.Redacted()

	var text bytes.Buffer
	if err := writeDescriptors(&text, descs, "text"); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"github", "command: npx", "args:    -y server-github", "TOKEN=***", "rate_limit: 30", "disabled: false"} {
		if !strings.Contains(text.String(), want) {
			t.Errorf("text output missing %q:\n%s", want, text.String())
		}
	}

	var js bytes.Buffer
	if err := writeDescriptors(&js, descs, "json"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(js.String(), `"rate_limit": 30`) || strings.Contains(js.String(), "s3cret") {
		t.Errorf("unexpected json output:\n%s", js.String())
	}

	var y bytes.Buffer
	if err := writeDescriptors(&y, descs, "yaml"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(y.String(), "name: github") || strings.Contains(y.String(), "s3cret") {
		t.Errorf("unexpected yaml output:\n%s", y.String())
	}

	if err := writeDescriptors(&y, descs, "toml"); err == nil {
		t.Error("unknown format should fail")
	}
}

func TestLogSpanExporter(t *testing.T) {
	var buf bytes.Buffer
	tp := newTracerProvider(slog.New(slog.NewTextHandler(&buf, nil)))

	_, span := tp.Tracer("test").Start(context.Background(), "toolbelt.reload")
	span.SetAttributes(attribute.String("load.status", "ok"))
	span.End()

	if err := tp.Shutdown(context.Background()); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"span=toolbelt.reload", "load.status=ok", "status=Unset"} {
		if !strings.Contains(out, want) {
			t.Errorf("log missing %q:\n%s", want, out)
		}
	}
}

func TestCallCancelerConcurrent(t *testing.T) {
	var c callCanceler
	c.cancel() // nothing in flight

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			c.cancel()
		}
	}()
	for i := 0; i < 1000; i++ {
		ctx, cancel := context.WithCancel(context.Background())
		c.set(cancel)
		c.set(nil)
		cancel()
		<-ctx.Done()
	}
	wg.Wait()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c.set(cancel)
	c.cancel()
	if ctx.Err() == nil {
		t.Fatal("cancel should stop the call in flight")
	}
}
