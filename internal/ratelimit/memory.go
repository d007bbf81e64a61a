package ratelimit

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/feek13/mini-social-sub003/internal/logger"
	"go.uber.org/zap"
)

const DefaultSweepInterval = 5 * time.Minute

type window struct {
	count   int
	resetAt time.Time
}

// MemoryLimiter keeps fixed-window counters in a mutex-guarded map. Expired
// windows are removed by a sweeper goroutine between Start and Stop.
type MemoryLimiter struct {
	mu      sync.Mutex
	windows map[string]*window

	now           func() time.Time
	sweepInterval time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

type MemoryOption func(*MemoryLimiter)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) MemoryOption {
	return func(m *MemoryLimiter) { m.now = now }
}

func WithSweepInterval(d time.Duration) MemoryOption {
	return func(m *MemoryLimiter) { m.sweepInterval = d }
}

func NewMemoryLimiter(opts ...MemoryOption) *MemoryLimiter {
	m := &MemoryLimiter{
		windows:       make(map[string]*window),
		now:           time.Now,
		sweepInterval: DefaultSweepInterval,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *MemoryLimiter) Backend() string { return "memory" }

// Check never returns an error.
func (m *MemoryLimiter) Check(_ context.Context, identifier string, rule Rule) (Result, error) {
	key := rule.key(identifier)
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	w, ok := m.windows[key]
	if !ok || !now.Before(w.resetAt) {
		w = &window{count: 1, resetAt: now.Add(rule.Window)}
		m.windows[key] = w
		return Result{Allowed: true, Limit: rule.Max, Remaining: rule.Max - 1, ResetAt: w.resetAt}, nil
	}

	if w.count < rule.Max {
		w.count++
		return Result{Allowed: true, Limit: rule.Max, Remaining: rule.Max - w.count, ResetAt: w.resetAt}, nil
	}
	return Result{Allowed: false, Limit: rule.Max, Remaining: 0, ResetAt: w.resetAt}, nil
}

// Reset drops every window held by identifier, across rules.
func (m *MemoryLimiter) Reset(_ context.Context, identifier string) error {
	suffix := ":" + identifier

	m.mu.Lock()
	defer m.mu.Unlock()
	for key := range m.windows {
		if strings.HasSuffix(key, suffix) {
			delete(m.windows, key)
		}
	}
	return nil
}

// Len is the number of live windows.
func (m *MemoryLimiter) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.windows)
}

// Sweep removes expired windows and returns how many were dropped.
func (m *MemoryLimiter) Sweep() int {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for key, w := range m.windows {
		if !now.Before(w.resetAt) {
			delete(m.windows, key)
			removed++
		}
	}
	return removed
}

// Start launches the sweeper. Calling Start twice is a no-op.
func (m *MemoryLimiter) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		return
	}
	m.ctx, m.cancel = context.WithCancel(context.Background())
	m.done = make(chan struct{})
	go m.run(m.ctx, m.done)
}

// Stop halts the sweeper and waits for it to exit.
func (m *MemoryLimiter) Stop() {
	m.mu.Lock()
	cancel, done := m.cancel, m.done
	m.cancel, m.done = nil, nil
	m.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

func (m *MemoryLimiter) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(m.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := m.Sweep(); n > 0 {
				logger.Log.Debug("Swept expired rate limit windows", zap.Int("removed", n))
			}
		case <-ctx.Done():
			return
		}
	}
}
