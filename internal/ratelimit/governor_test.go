package ratelimit

import (
	"testing"
	"time"
)

func fixedJitter(value float64) func() float64 {
	return func() float64 { return value }
}

func TestBackoffGrowsStrictlyWithinBurst(t *testing.T) {
	current := time.Unix(1_700_000_000, 0)
	g := New(
		WithClock(func() time.Time { return current }),
		WithJitter(fixedJitter(0.5)), // multiplier 1.0, deterministic
	)

	var cooldowns []time.Duration
	for i := 0; i < 3; i++ {
		cooldowns = append(cooldowns, g.RecordFailure(0))
		current = current.Add(2 * time.Second)
	}

	if !(cooldowns[0] < cooldowns[1] && cooldowns[1] < cooldowns[2]) {
		t.Fatalf("cooldowns not strictly increasing: %v", cooldowns)
	}
	for _, cooldown := range cooldowns {
		if cooldown > maxBackoff {
			t.Fatalf("cooldown %v exceeds cap %v", cooldown, maxBackoff)
		}
	}
}

func TestBackoffCapped(t *testing.T) {
	current := time.Unix(1_700_000_000, 0)
	g := New(
		WithClock(func() time.Time { return current }),
		WithJitter(fixedJitter(0.999)),
	)

	var last time.Duration
	for i := 0; i < 20; i++ {
		last = g.RecordFailure(0)
		current = current.Add(time.Second)
	}
	if last > maxBackoff {
		t.Fatalf("cooldown %v exceeds cap %v", last, maxBackoff)
	}
}

func TestSporadicFailuresDoNotEscalate(t *testing.T) {
	current := time.Unix(1_700_000_000, 0)
	g := New(
		WithClock(func() time.Time { return current }),
		WithJitter(fixedJitter(0.5)),
	)

	first := g.RecordFailure(0)
	current = current.Add(time.Minute) // outside the burst window
	second := g.RecordFailure(0)

	if first != second {
		t.Fatalf("sporadic failure escalated backoff: first=%v second=%v", first, second)
	}
	if g.ConsecutiveFailures() != 1 {
		t.Fatalf("expected burst reset, got %d", g.ConsecutiveFailures())
	}
}

func TestExplicitRetryAfterWins(t *testing.T) {
	current := time.Unix(1_700_000_000, 0)
	g := New(WithClock(func() time.Time { return current }))

	got := g.RecordFailure(42 * time.Second)
	if got != 42*time.Second {
		t.Fatalf("expected exact retry-after, got %v", got)
	}
	if !g.Suppressed() {
		t.Fatal("expected suppression during retry-after window")
	}
}

func TestSuppressionExpires(t *testing.T) {
	current := time.Unix(1_700_000_000, 0)
	g := New(
		WithClock(func() time.Time { return current }),
		WithJitter(fixedJitter(0.5)),
	)

	g.RecordFailure(0)
	if !g.Suppressed() {
		t.Fatal("expected suppression right after failure")
	}

	current = current.Add(time.Hour)
	if g.Suppressed() {
		t.Fatal("expected suppression to expire")
	}
	if g.Cooldown() != 0 {
		t.Fatalf("expected zero cooldown, got %v", g.Cooldown())
	}
}

func TestRecordSuccessResetsBurst(t *testing.T) {
	current := time.Unix(1_700_000_000, 0)
	g := New(
		WithClock(func() time.Time { return current }),
		WithJitter(fixedJitter(0.5)),
	)

	g.RecordFailure(0)
	current = current.Add(time.Second)
	g.RecordFailure(0)
	g.RecordSuccess()

	if g.ConsecutiveFailures() != 0 {
		t.Fatalf("expected reset, got %d", g.ConsecutiveFailures())
	}
}
