// Package ratelimit throttles outbound calls to the external sports-data API.
//
// Two gates compose: the Limiter paces every outbound HTTP request (minimum
// inter-request spacing plus a hard rolling-hour ceiling), and the QuotaGuard
// tracks the daily call budget for the enrichment path, flipping into
// emergency mode when the remaining quota runs critically low.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter enforces a dual constraint on outbound requests: a minimum spacing
// between consecutive requests (1000/rps milliseconds) and a hard ceiling on
// requests per rolling hour window.
//
// Callers must call Wait before every outbound request. Concurrent callers
// serialize through the limiter; its counters are guarded by the mutex.
type Limiter struct {
	mu sync.Mutex

	// pacer enforces the per-request spacing. Burst of 1 keeps requests
	// strictly 1000/rps ms apart regardless of idle time.
	pacer *rate.Limiter

	maxHourlyRequests int
	requestCount      int
	windowStart       time.Time
	lastRequest       time.Time

	// Injection points for tests.
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// Stats reports the limiter's current utilization.
type Stats struct {
	RequestsThisWindow int       `json:"requests_this_window"`
	MaxHourlyRequests  int       `json:"max_hourly_requests"`
	UtilizationPct     float64   `json:"utilization_pct"`
	WindowProgressPct  float64   `json:"window_progress_pct"`
	WindowResetAt      time.Time `json:"window_reset_at"`
}

// NewLimiter creates a limiter allowing requestsPerSecond outbound requests
// with at most maxHourlyRequests per rolling hour window.
//
// The defaults used by the application (5 rps, 1000/hour) are deliberately
// conservative versus the API's documented limits to tolerate clock drift and
// concurrent callers.
func NewLimiter(requestsPerSecond, maxHourlyRequests int) *Limiter {
	if requestsPerSecond < 1 {
		requestsPerSecond = 1
	}
	if maxHourlyRequests < 1 {
		maxHourlyRequests = 1
	}

	return &Limiter{
		pacer:             rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
		maxHourlyRequests: maxHourlyRequests,
		windowStart:       time.Now(),
		now:               time.Now,
		sleep:             sleepContext,
	}
}

// Wait blocks until it is safe to issue the next outbound request. It returns
// early only when the context is cancelled.
//
// The hourly ceiling is checked first: once maxHourlyRequests have been
// issued inside the current window, Wait suspends until the window resets.
// The per-request pacing is then applied on top.
func (l *Limiter) Wait(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()

	// Roll the hourly window forward.
	if now.Sub(l.windowStart) > time.Hour {
		l.requestCount = 0
		l.windowStart = now
	}

	// Hard ceiling: suspend until the window boundary.
	if l.requestCount >= l.maxHourlyRequests {
		waitFor := time.Hour - now.Sub(l.windowStart)
		if waitFor > 0 {
			if err := l.sleep(ctx, waitFor); err != nil {
				return err
			}
		}
		l.requestCount = 0
		l.windowStart = l.now()
	}

	// Soft pacing: minimum inter-request spacing.
	if err := l.pacer.Wait(ctx); err != nil {
		return err
	}

	l.requestCount++
	l.lastRequest = l.now()
	return nil
}

// Stats returns the limiter's current window utilization.
func (l *Limiter) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	elapsed := now.Sub(l.windowStart)
	if elapsed > time.Hour {
		elapsed = time.Hour
	}

	return Stats{
		RequestsThisWindow: l.requestCount,
		MaxHourlyRequests:  l.maxHourlyRequests,
		UtilizationPct:     100 * float64(l.requestCount) / float64(l.maxHourlyRequests),
		WindowProgressPct:  100 * elapsed.Seconds() / time.Hour.Seconds(),
		WindowResetAt:      l.windowStart.Add(time.Hour),
	}
}

// sleepContext sleeps for d or until the context is cancelled.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
