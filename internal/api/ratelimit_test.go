package api

import (
	"fmt"
	"testing"
	"time"
)

func TestRateLimiter_FixedWindow(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	now := time.Now()
	rl.now = func() time.Time { return now }

	want := []Result{
		{Allowed: true, Remaining: 1},
		{Allowed: true, Remaining: 0},
		{Allowed: false, Remaining: 0},
	}
	for i, w := range want {
		if got := rl.Check("client"); got != w {
			t.Errorf("Check() call %d = %+v, want %+v", i+1, got, w)
		}
	}
}

func TestRateLimiter_WindowRolloverResetsToOne(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	now := time.Now()
	rl.now = func() time.Time { return now }

	rl.Check("client")
	rl.Check("client")
	if got := rl.Check("client"); got.Allowed {
		t.Fatal("third call in window allowed")
	}

	now = now.Add(61 * time.Second)
	got := rl.Check("client")
	if !got.Allowed || got.Remaining != 1 {
		t.Errorf("Check() after rollover = %+v, want counter reset to 1", got)
	}
}

func TestRateLimiter_IdentifiersIndependent(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)
	now := time.Now()
	rl.now = func() time.Time { return now }

	if got := rl.Check("a"); !got.Allowed {
		t.Error("first call for a denied")
	}
	if got := rl.Check("b"); !got.Allowed {
		t.Error("first call for b denied")
	}
	if got := rl.Check("a"); got.Allowed {
		t.Error("second call for a allowed")
	}
}

func TestRateLimiter_SweepRemovesExpired(t *testing.T) {
	rl := NewRateLimiter(5, time.Minute)
	now := time.Now()
	rl.now = func() time.Time { return now }

	for i := range 50 {
		rl.Check(fmt.Sprintf("client-%d", i))
	}
	if got := len(rl.counters); got != 50 {
		t.Fatalf("len(counters) = %d, want 50", got)
	}

	// All windows expire; the next check past the sweep interval
	// cleans them up.
	now = now.Add(sweepInterval + time.Minute)
	rl.Check("fresh")
	if got := len(rl.counters); got != 1 {
		t.Errorf("len(counters) after sweep = %d, want 1", got)
	}
}
