package tools

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/michaelbrown/toolbelt/internal/mcpconfig"
)

func TestLimiterNilNeverBlocks(t *testing.T) {
	var l *Limiter
	if err := l.Wait(context.Background()); err != nil {
		t.Fatalf("nil limiter: %v", err)
	}
	if NewLimiter(0, time.Minute) != nil {
		t.Fatal("zero limit should give a nil limiter")
	}
}

func TestLimiterWindow(t *testing.T) {
	now := time.Unix(1000, 0)
	l := NewLimiter(2, time.Minute)
	l.now = func() time.Time { return now }

	if d := l.reserve(); d != 0 {
		t.Fatalf("first reserve = %v, want 0", d)
	}
	now = now.Add(10 * time.Second)
	if d := l.reserve(); d != 0 {
		t.Fatalf("second reserve = %v, want 0", d)
	}
	now = now.Add(10 * time.Second)
	if d := l.reserve(); d != 40*time.Second {
		t.Fatalf("third reserve = %v, want 40s", d)
	}

	// oldest call falls out of the window
	now = now.Add(40 * time.Second)
	if d := l.reserve(); d != 0 {
		t.Fatalf("reserve after window = %v, want 0", d)
	}
}

func TestLimiterWaitHonorsContext(t *testing.T) {
	l := NewLimiter(1, time.Hour)
	if err := l.Wait(context.Background()); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := l.Wait(ctx); err == nil {
		t.Fatal("Wait should fail once the context expires")
	}
}

func TestLimiterWaitUnblocks(t *testing.T) {
	l := NewLimiter(1, 30*time.Millisecond)
	start := time.Now()
	for i := 0; i < 2; i++ {
		if err := l.Wait(context.Background()); err != nil {
			t.Fatal(err)
		}
	}
	if elapsed := time.Since(start); elapsed < 25*time.Millisecond {
		t.Fatalf("second call returned after %v, expected to wait for the window", elapsed)
	}
}

func TestLimiterFor(t *testing.T) {
	tests := []struct {
		name   string
		config map[string]mcpconfig.Value
		def    int
		want   int
	}{
		{"default", nil, 5, 5},
		{"unlimited", nil, 0, 0},
		{"calls_per_minute", map[string]mcpconfig.Value{"calls_per_minute": mcpconfig.NumberValue(10)}, 5, 10},
		{"rate_limit", map[string]mcpconfig.Value{"rate_limit": mcpconfig.NumberValue(3)}, 0, 3},
		{"non-number ignored", map[string]mcpconfig.Value{"calls_per_minute": mcpconfig.StringValue("ten")}, 7, 7},
		{"fraction rounds up", map[string]mcpconfig.Value{"calls_per_minute": mcpconfig.NumberValue(0.5)}, 0, 1},
		{"fraction above one", map[string]mcpconfig.Value{"rate_limit": mcpconfig.NumberValue(2.1)}, 0, 3},
		{"zero is unlimited", map[string]mcpconfig.Value{"calls_per_minute": mcpconfig.NumberValue(0)}, 5, 0},
		{"negative is unlimited", map[string]mcpconfig.Value{"calls_per_minute": mcpconfig.NumberValue(-3)}, 5, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var logs bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&logs, nil))
			l := limiterFor(mcpconfig.ServerDescriptor{Name: "srv", Config: tt.config}, tt.def, logger)
			warned := strings.Contains(logs.String(), "level=WARN")
			if n, ok := tt.config["calls_per_minute"].Number(); ok && n <= 0 && !warned {
				t.Errorf("expected a warning for calls_per_minute %v", n)
			}
			if tt.want == 0 {
				if l != nil {
					t.Fatalf("want nil limiter, got limit %d", l.limit)
				}
				return
			}
			if l == nil || l.limit != tt.want || l.window != time.Minute {
				t.Fatalf("limiter = %+v, want %d per minute", l, tt.want)
			}
		})
	}
}
