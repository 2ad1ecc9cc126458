package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestLimiterSpacing(t *testing.T) {
	limiter := NewLimiter(100, 1000)

	ctx := context.Background()
	start := time.Now()

	// Three calls at 100 rps must take at least 20ms total spacing.
	for i := 0; i < 3; i++ {
		if err := limiter.Wait(ctx); err != nil {
			t.Fatalf("Wait() error = %v", err)
		}
	}

	elapsed := time.Since(start)
	if elapsed < 20*time.Millisecond {
		t.Errorf("3 calls completed in %v, want >= 20ms of pacing", elapsed)
	}
}

func TestLimiterHourlyCeiling(t *testing.T) {
	limiter := NewLimiter(1000, 10)

	// Inject a fixed clock and capture the suspension instead of sleeping.
	base := time.Now()
	limiter.windowStart = base
	limiter.now = func() time.Time { return base }

	var slept time.Duration
	limiter.sleep = func(ctx context.Context, d time.Duration) error {
		slept += d
		return nil
	}

	ctx := context.Background()
	for i := 0; i < 10; i++ {
		if err := limiter.Wait(ctx); err != nil {
			t.Fatalf("Wait() call %d error = %v", i, err)
		}
	}
	if slept != 0 {
		t.Fatalf("first 10 calls should not hit the hourly ceiling, slept %v", slept)
	}

	// The 11th call must suspend until the hour boundary.
	if err := limiter.Wait(ctx); err != nil {
		t.Fatalf("Wait() call 11 error = %v", err)
	}
	if slept != time.Hour {
		t.Errorf("11th call slept %v, want 1h until window reset", slept)
	}

	stats := limiter.Stats()
	if stats.RequestsThisWindow != 1 {
		t.Errorf("RequestsThisWindow = %d after window reset, want 1", stats.RequestsThisWindow)
	}
}

func TestLimiterWindowRollover(t *testing.T) {
	limiter := NewLimiter(1000, 5)

	base := time.Now()
	current := base
	limiter.windowStart = base
	limiter.now = func() time.Time { return current }
	limiter.sleep = func(ctx context.Context, d time.Duration) error {
		t.Fatalf("unexpected suspension of %v", d)
		return nil
	}

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if err := limiter.Wait(ctx); err != nil {
			t.Fatalf("Wait() error = %v", err)
		}
	}

	// More than an hour later the counter must reset without suspending.
	current = base.Add(61 * time.Minute)
	if err := limiter.Wait(ctx); err != nil {
		t.Fatalf("Wait() after rollover error = %v", err)
	}

	stats := limiter.Stats()
	if stats.RequestsThisWindow != 1 {
		t.Errorf("RequestsThisWindow = %d after rollover, want 1", stats.RequestsThisWindow)
	}
}

func TestLimiterContextCancelled(t *testing.T) {
	limiter := NewLimiter(1, 1000)

	ctx, cancel := context.WithCancel(context.Background())
	if err := limiter.Wait(ctx); err != nil {
		t.Fatalf("first Wait() error = %v", err)
	}

	cancel()
	if err := limiter.Wait(ctx); err == nil {
		t.Error("Wait() with cancelled context should fail")
	}
}

func TestLimiterStats(t *testing.T) {
	limiter := NewLimiter(1000, 200)

	ctx := context.Background()
	for i := 0; i < 50; i++ {
		if err := limiter.Wait(ctx); err != nil {
			t.Fatalf("Wait() error = %v", err)
		}
	}

	stats := limiter.Stats()
	if stats.RequestsThisWindow != 50 {
		t.Errorf("RequestsThisWindow = %d, want 50", stats.RequestsThisWindow)
	}
	if stats.MaxHourlyRequests != 200 {
		t.Errorf("MaxHourlyRequests = %d, want 200", stats.MaxHourlyRequests)
	}
	if stats.UtilizationPct != 25 {
		t.Errorf("UtilizationPct = %v, want 25", stats.UtilizationPct)
	}
	if stats.WindowResetAt.Before(time.Now()) {
		t.Error("WindowResetAt should be in the future")
	}
}
