package tools_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/michaelbrown/toolbelt/internal/mcpconfig"
	"github.com/michaelbrown/toolbelt/internal/tools"
)

// The integration tests need the echo server binary built first.
// Run: go build -o bin/toolbelt-echo ./cmd/tools/echo && go test ./internal/tools/ -v

func binPath(name string) string {
	// Walk up from the test's working directory to find the project root bin/
	wd, _ := os.Getwd()
	for d := wd; d != "/"; d = filepath.Dir(d) {
		candidate := filepath.Join(d, "bin", name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return filepath.Join("bin", name)
}

func skipIfNoBinary(t *testing.T, name string) string {
	t.Helper()
	path := binPath(name)
	if _, err := os.Stat(path); err != nil {
		t.Skipf("binary %s not found at %s (build it into bin/ first)", name, path)
	}
	return path
}

func loadSet(t *testing.T, doc string, env mcpconfig.MapEnvironment) *mcpconfig.Set {
	t.Helper()
	set, err := mcpconfig.Load([]byte(doc), env)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return set
}

// --- Registry tests ---

func TestRegistryEmpty(t *testing.T) {
	r := tools.NewRegistry()
	defer r.Close()

	if r.HasTools() {
		t.Fatal("empty registry should not have tools")
	}
	if got := r.Tools(); len(got) != 0 {
		t.Fatalf("Tools() = %d, want 0", len(got))
	}
	if got := r.Servers(); len(got) != 0 {
		t.Fatalf("Servers() = %v, want none", got)
	}

	_, err := r.CallTool(context.Background(), "nonexistent", nil)
	if err == nil {
		t.Fatal("CallTool on empty registry should return error")
	}
}

func TestRegistrySkipsDisabled(t *testing.T) {
	r := tools.NewRegistry()
	defer r.Close()

	set := loadSet(t, `{"servers":{"off":{"command":"/nonexistent/binary","config":{"disabled":true}}}}`, nil)
	if err := r.RegisterAll(context.Background(), set); err != nil {
		t.Fatalf("RegisterAll with disabled server should not error: %v", err)
	}
	if r.HasTools() {
		t.Fatal("disabled server should not register tools")
	}
}

func TestRegistryBadBinary(t *testing.T) {
	r := tools.NewRegistry()
	defer r.Close()

	set := loadSet(t, `{"servers":{"bad":{"command":"/nonexistent/binary"}}}`, nil)
	err := r.RegisterAll(context.Background(), set)
	if err == nil {
		t.Fatal("RegisterAll with bad binary should return error")
	}
	if !strings.Contains(err.Error(), "bad") {
		t.Errorf("error should name the server: %v", err)
	}
	if len(r.Servers()) != 0 {
		t.Errorf("failed server should not stay registered: %v", r.Servers())
	}
}

// --- echo server integration tests ---

func TestEchoDescriptorReachesChild(t *testing.T) {
	bin := skipIfNoBinary(t, "toolbelt-echo")

	doc := `{"servers":{"echo":{
		"command": "` + bin + `",
		"args": ["--flag", "value with space"],
		"env": {"ECHO_TOKEN": "Bearer ${TOKEN}"}
	}}}`
	set := loadSet(t, doc, mcpconfig.MapEnvironment{"TOKEN": "t-123"})

	r := tools.NewRegistry()
	defer r.Close()

	ctx := context.Background()
	if err := r.RegisterAll(ctx, set); err != nil {
		t.Fatalf("RegisterAll: %v", err)
	}

	found := map[string]bool{}
	for _, ti := range r.Tools() {
		if ti.Server != "echo" {
			t.Errorf("tool %s has server %q, want echo", ti.Name, ti.Server)
		}
		found[ti.Name] = true
	}
	if !found["echo_env"] || !found["echo_args"] {
		t.Fatalf("echo tools not discovered: %v", r.Tools())
	}

	got, err := r.CallTool(ctx, "echo_env", map[string]any{"name": "ECHO_TOKEN"})
	if err != nil {
		t.Fatalf("echo_env: %v", err)
	}
	if got != "Bearer t-123" {
		t.Errorf("echo_env = %q, want %q", got, "Bearer t-123")
	}

	got, err = r.CallTool(ctx, "echo_args", nil)
	if err != nil {
		t.Fatalf("echo_args: %v", err)
	}
	if got != "--flag\nvalue with space" {
		t.Errorf("echo_args = %q", got)
	}

	got, err = r.CallTool(ctx, "echo_env", map[string]any{"name": "TOOLBELT_SURELY_UNSET"})
	if err != nil {
		t.Fatalf("echo_env unset: %v", err)
	}
	if !strings.HasPrefix(got, "error: ") {
		t.Errorf("expected tool error for unset variable, got %q", got)
	}
}

func TestRegistryDuplicateRegister(t *testing.T) {
	bin := skipIfNoBinary(t, "toolbelt-echo")

	r := tools.NewRegistry()
	defer r.Close()

	desc := mcpconfig.ServerDescriptor{Name: "echo", Command: bin}
	ctx := context.Background()
	if err := r.Register(ctx, desc); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.Register(ctx, desc); err == nil {
		t.Fatal("registering the same server twice should fail")
	}
}

func TestRegistryConcurrentRegisterSameName(t *testing.T) {
	bin := skipIfNoBinary(t, "toolbelt-echo")

	r := tools.NewRegistry()
	defer r.Close()

	desc := mcpconfig.ServerDescriptor{Name: "echo", Command: bin}
	const n = 4
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = r.Register(context.Background(), desc)
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
		} else if !strings.Contains(err.Error(), "already registered") {
			t.Errorf("unexpected error: %v", err)
		}
	}
	if ok != 1 {
		t.Fatalf("%d registrations succeeded, want 1", ok)
	}
	if got := r.Servers(); len(got) != 1 || got[0] != "echo" {
		t.Fatalf("Servers() = %v, want [echo]", got)
	}
}

func TestRegistryRateLimitedCall(t *testing.T) {
	bin := skipIfNoBinary(t, "toolbelt-echo")

	doc := `{"servers":{"echo":{"command":"` + bin + `","config":{"calls_per_minute":1}}}}`
	set := loadSet(t, doc, nil)

	r := tools.NewRegistry()
	defer r.Close()
	if err := r.RegisterAll(context.Background(), set); err != nil {
		t.Fatalf("RegisterAll: %v", err)
	}

	if _, err := r.CallTool(context.Background(), "echo_args", nil); err != nil {
		t.Fatalf("first call: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := r.CallTool(ctx, "echo_args", nil); err == nil {
		t.Fatal("second call within the window should wait and fail on a cancelled context")
	}
}
