package tools

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/michaelbrown/toolbelt/internal/mcpconfig"
)

// Limiter allows at most limit calls in any sliding window. A nil Limiter
// never blocks.
type Limiter struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	calls  []time.Time
	now    func() time.Time
}

// NewLimiter returns a limiter for limit calls per window, or nil when
// limit is not positive.
func NewLimiter(limit int, window time.Duration) *Limiter {
	if limit <= 0 || window <= 0 {
		return nil
	}
	return &Limiter{limit: limit, window: window, now: time.Now}
}

// Wait blocks until a call is allowed or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil {
		return nil
	}
	for {
		delay := l.reserve()
		if delay <= 0 {
			return nil
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// reserve records a call and returns 0, or returns how long to wait before
// trying again.
func (l *Limiter) reserve() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.window)
	keep := l.calls[:0]
	for _, t := range l.calls {
		if t.After(cutoff) {
			keep = append(keep, t)
		}
	}
	l.calls = keep

	if len(l.calls) < l.limit {
		l.calls = append(l.calls, now)
		return 0
	}
	return l.calls[0].Add(l.window).Sub(now)
}

// limiterFor builds the per-minute limiter for a server from its config
// block, falling back to defaultPerMinute. Fractional limits round up.
func limiterFor(desc mcpconfig.ServerDescriptor, defaultPerMinute int, logger *slog.Logger) *Limiter {
	limit := defaultPerMinute
	for _, key := range []string{ConfigCallsPerMinute, ConfigRateLimit} {
		n, ok := desc.ConfigNumber(key)
		if !ok {
			continue
		}
		if !(n > 0) || math.IsInf(n, 1) {
			logger.Warn("ignoring rate limit that is not a positive number; calls are unlimited",
				"server", desc.Name, "key", key, "value", n)
			return nil
		}
		limit = int(math.Min(math.Ceil(n), math.MaxInt32))
		break
	}
	return NewLimiter(limit, time.Minute)
}
