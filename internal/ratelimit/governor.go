// Package ratelimit tracks upstream failure bursts and enforces cool-down
// windows before new listing requests are issued.
package ratelimit

import (
	"math/rand"
	"sync"
	"time"
)

const (
	baseBackoff = 5 * time.Second
	maxBackoff  = 10 * time.Minute
	// burstWindow separates correlated failure bursts from sporadic ones:
	// only failures within this window of the previous failure escalate the
	// backoff exponent.
	burstWindow = 10 * time.Second
)

// Governor gates upstream requests behind an exponential-backoff cool-down.
// Jitter spreads the cool-down across independent governor instances so they
// do not retry in lockstep.
type Governor struct {
	mu           sync.Mutex
	consecutive  int
	lastFailure  time.Time
	limitedUntil time.Time

	now    func() time.Time
	jitter func() float64
}

// Option customises Governor construction.
type Option func(*Governor)

// WithClock overrides the time source (used in tests).
func WithClock(now func() time.Time) Option {
	return func(g *Governor) {
		if now != nil {
			g.now = now
		}
	}
}

// WithJitter overrides the jitter source. The function must return values in
// [0, 1); the governor maps them onto the [0.5, 1.5) multiplier range.
func WithJitter(jitter func() float64) Option {
	return func(g *Governor) {
		if jitter != nil {
			g.jitter = jitter
		}
	}
}

// New constructs a Governor.
func New(opts ...Option) *Governor {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	g := &Governor{
		now:    time.Now,
		jitter: rng.Float64,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Suppressed reports whether the governor is inside an active cool-down
// window. An expired window resets the limited state.
func (g *Governor) Suppressed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.limitedUntil.IsZero() {
		return false
	}
	if !g.now().Before(g.limitedUntil) {
		g.limitedUntil = time.Time{}
		return false
	}
	return true
}

// Cooldown returns the remaining cool-down duration, or zero when requests
// are permitted.
func (g *Governor) Cooldown() time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.limitedUntil.IsZero() {
		return 0
	}
	remaining := g.limitedUntil.Sub(g.now())
	if remaining < 0 {
		return 0
	}
	return remaining
}

// RecordSuccess clears the consecutive-failure count.
func (g *Governor) RecordSuccess() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.consecutive = 0
}

// RecordFailure notes an upstream failure and starts or extends the cool-down.
// When the upstream supplied an explicit retry-after duration it is honoured
// exactly; otherwise an exponential backoff with jitter is computed.
func (g *Governor) RecordFailure(retryAfter time.Duration) time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	if !g.lastFailure.IsZero() && now.Sub(g.lastFailure) <= burstWindow {
		g.consecutive++
	} else {
		g.consecutive = 1
	}
	g.lastFailure = now

	cooldown := retryAfter
	if cooldown <= 0 {
		cooldown = g.backoffLocked()
	}
	g.limitedUntil = now.Add(cooldown)
	return cooldown
}

func (g *Governor) backoffLocked() time.Duration {
	backoff := baseBackoff
	for i := 1; i < g.consecutive; i++ {
		backoff *= 2
		if backoff >= maxBackoff {
			backoff = maxBackoff
			break
		}
	}
	multiplier := 0.5 + g.jitter()
	jittered := time.Duration(float64(backoff) * multiplier)
	if jittered > maxBackoff {
		jittered = maxBackoff
	}
	return jittered
}

// ConsecutiveFailures returns the current burst length, for diagnostics.
func (g *Governor) ConsecutiveFailures() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.consecutive
}
