// Package ratelimit implements fixed-window request counters keyed by an
// identifier (user id or client IP).
package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/feek13/mini-social-sub003/internal/cache"
)

// Rule caps an identifier at Max calls per Window.
type Rule struct {
	Name   string
	Max    int
	Window time.Duration
}

// Presets used by the HTTP routes.
var (
	Strict  = Rule{Name: "strict", Max: 5, Window: time.Minute}
	Normal  = Rule{Name: "normal", Max: 30, Window: time.Minute}
	Relaxed = Rule{Name: "relaxed", Max: 100, Window: time.Minute}
	Burst   = Rule{Name: "burst", Max: 10, Window: 10 * time.Second}
)

// Presets lists the named rules, for the admin CLI.
func Presets() []Rule {
	return []Rule{Strict, Normal, Relaxed, Burst}
}

// PresetByName returns the preset with the given name.
func PresetByName(name string) (Rule, bool) {
	for _, r := range Presets() {
		if strings.EqualFold(r.Name, name) {
			return r, true
		}
	}
	return Rule{}, false
}

// key namespaces counters by rule so two presets never share a window.
func (r Rule) key(identifier string) string {
	return fmt.Sprintf("%d/%d:%s", r.Max, r.Window.Milliseconds(), identifier)
}

func (r Rule) String() string {
	if r.Name != "" {
		return r.Name
	}
	return fmt.Sprintf("%d/%s", r.Max, r.Window)
}

// Result is the outcome of one Check.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RetryAfter is how long a denied caller should wait, rounded up to whole
// seconds and never below one.
func (r Result) RetryAfter(now time.Time) int {
	d := r.ResetAt.Sub(now)
	secs := int((d + time.Second - 1) / time.Second)
	if secs < 1 {
		return 1
	}
	return secs
}

// Limiter counts calls per identifier.
type Limiter interface {
	Check(ctx context.Context, identifier string, rule Rule) (Result, error)
	Reset(ctx context.Context, identifier string) error
	Backend() string
}

// NewLimiter returns a Redis-backed limiter shared by every instance when
// Redis is configured, and a process-local one otherwise. The memory limiter
// is started; callers Stop it on shutdown through Close.
func NewLimiter(client *cache.RedisClient) Limiter {
	if client != nil {
		return NewRedisLimiter(client)
	}
	m := NewMemoryLimiter()
	m.Start()
	return m
}

// Close stops background work owned by l, if any.
func Close(l Limiter) {
	if m, ok := l.(*MemoryLimiter); ok {
		m.Stop()
	}
}
