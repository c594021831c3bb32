package ratelimit

import (
	"context"
	"testing"
	"time"
)

func testLimiter(t *testing.T, max int) *Limiter {
	t.Helper()
	l, err := Open(Config{DBPath: ":memory:", Window: time.Hour, Max: max})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

func TestAllowWithinBudget(t *testing.T) {
	l := testLimiter(t, 3)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		ok, err := l.Allow(ctx, "+15550001")
		if err != nil {
			t.Fatalf("Allow %d: %v", i, err)
		}
		if !ok {
			t.Fatalf("message %d should be allowed", i)
		}
	}

	ok, err := l.Allow(ctx, "+15550001")
	if err != nil {
		t.Fatalf("Allow over budget: %v", err)
	}
	if ok {
		t.Error("message over the budget should be denied")
	}
}

func TestAllowIsPerIdentity(t *testing.T) {
	l := testLimiter(t, 1)
	ctx := context.Background()

	if ok, _ := l.Allow(ctx, "+15550001"); !ok {
		t.Fatal("first sender should be allowed")
	}
	if ok, _ := l.Allow(ctx, "+15550002"); !ok {
		t.Error("second sender has their own window")
	}
	if ok, _ := l.Allow(ctx, "+15550001"); ok {
		t.Error("first sender should now be denied")
	}
}

func TestWindowRollover(t *testing.T) {
	l := testLimiter(t, 1)
	ctx := context.Background()

	base := time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return base }

	if ok, _ := l.Allow(ctx, "+15550001"); !ok {
		t.Fatal("first message allowed")
	}
	if ok, _ := l.Allow(ctx, "+15550001"); ok {
		t.Fatal("second message denied in the same window")
	}

	l.now = func() time.Time { return base.Add(time.Hour) }
	if ok, err := l.Allow(ctx, "+15550001"); err != nil || !ok {
		t.Errorf("new window should reset the budget (ok=%v err=%v)", ok, err)
	}
}

func TestOpenDefaults(t *testing.T) {
	l, err := Open(Config{DBPath: ":memory:"})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer l.Close()
	if l.window != DefaultWindow || l.max != DefaultMax {
		t.Errorf("defaults not applied: window=%v max=%d", l.window, l.max)
	}
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open(Config{}); err == nil {
		t.Fatal("expected error for empty db path")
	}
}
