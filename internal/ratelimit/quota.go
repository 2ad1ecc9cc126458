package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	apperrors "transfer-dashboard/internal/common/errors"
	"transfer-dashboard/internal/common/logging"
)

// CounterStore persists the daily call counter. The local implementation is
// process-scoped; the Redis implementation shares the counter between
// processes hitting the same API key.
type CounterStore interface {
	// Incr increments the counter for the given day key and returns the new
	// count.
	Incr(ctx context.Context, day string) (int, error)

	// Get returns the current count for the given day key.
	Get(ctx context.Context, day string) (int, error)

	// Reset clears the counter for the given day key.
	Reset(ctx context.Context, day string) error
}

// QuotaGuard tracks the daily call budget for the enrichment path. Once the
// remaining quota drops to 10% of the ceiling it enters emergency mode:
// further Acquire calls fail fast without consuming quota, protecting the
// remaining budget for critical traffic.
//
// The counter resets at local midnight, scheduled with cron.
type QuotaGuard struct {
	mu        sync.Mutex
	limit     int
	store     CounterStore
	emergency bool
	cron      *cron.Cron
	logger    logging.Logger

	now func() time.Time
}

// QuotaState is a snapshot of the guard's state for observability.
type QuotaState struct {
	DailyLimit     int       `json:"daily_limit"`
	CallsUsed      int       `json:"calls_used"`
	CallsRemaining int       `json:"calls_remaining"`
	EmergencyMode  bool      `json:"emergency_mode"`
	ResetTime      time.Time `json:"reset_time"`
}

// NewQuotaGuard creates a quota guard with the given daily ceiling. A nil
// store falls back to the in-process counter.
func NewQuotaGuard(dailyLimit int, store CounterStore, logger logging.Logger) *QuotaGuard {
	if dailyLimit < 1 {
		dailyLimit = 1
	}
	if store == nil {
		store = NewLocalCounterStore()
	}
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}

	return &QuotaGuard{
		limit:  dailyLimit,
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// Acquire consumes one call from the daily budget. In emergency mode it fails
// immediately with a rate-limit error and does not touch the counter.
func (g *QuotaGuard) Acquire(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.emergency {
		return apperrors.RateLimitError("daily API quota").
			WithContext("reason", "Rate limit exceeded - using cached data")
	}

	count, err := g.store.Incr(ctx, g.dayKey())
	if err != nil {
		return apperrors.InternalError("failed to update quota counter", err)
	}

	remaining := g.limit - count
	if remaining < 0 {
		remaining = 0
	}

	if remaining <= g.limit/10 {
		g.emergency = true
		g.logger.Warn("Entering emergency mode, daily API quota nearly exhausted",
			logging.Field{Key: "calls_used", Value: count},
			logging.Field{Key: "daily_limit", Value: g.limit},
		)
	}

	if count > g.limit {
		return apperrors.RateLimitError("daily API quota").
			WithContext("reason", "Rate limit exceeded - using cached data")
	}

	return nil
}

// State returns a snapshot of the quota counters.
func (g *QuotaGuard) State(ctx context.Context) QuotaState {
	g.mu.Lock()
	defer g.mu.Unlock()

	used, err := g.store.Get(ctx, g.dayKey())
	if err != nil {
		g.logger.Warn("Failed to read quota counter", logging.Field{Key: "error", Value: err.Error()})
	}

	remaining := g.limit - used
	if remaining < 0 {
		remaining = 0
	}

	return QuotaState{
		DailyLimit:     g.limit,
		CallsUsed:      used,
		CallsRemaining: remaining,
		EmergencyMode:  g.emergency,
		ResetTime:      g.resetTime(),
	}
}

// EmergencyMode reports whether the guard is refusing network-bound calls.
func (g *QuotaGuard) EmergencyMode() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.emergency
}

// StartResetSchedule begins the midnight reset job. Call Stop on shutdown.
func (g *QuotaGuard) StartResetSchedule() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.cron != nil {
		return
	}

	g.cron = cron.New()
	// Local midnight: the day key changes with the date, so resetting the
	// previous day's counter is bookkeeping; the important part is clearing
	// the emergency flag.
	_, err := g.cron.AddFunc("@midnight", g.resetDaily)
	if err != nil {
		g.logger.Error("Failed to schedule quota reset", err)
		g.cron = nil
		return
	}
	g.cron.Start()
}

// Stop halts the midnight reset job.
func (g *QuotaGuard) Stop() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.cron != nil {
		g.cron.Stop()
		g.cron = nil
	}
}

func (g *QuotaGuard) resetDaily() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.emergency = false

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	yesterday := g.now().AddDate(0, 0, -1).Format("2006-01-02")
	if err := g.store.Reset(ctx, yesterday); err != nil {
		g.logger.Warn("Failed to reset quota counter",
			logging.Field{Key: "day", Value: yesterday},
			logging.Field{Key: "error", Value: err.Error()},
		)
	}

	g.logger.Info("Daily API quota reset", logging.Field{Key: "daily_limit", Value: g.limit})
}

func (g *QuotaGuard) dayKey() string {
	return g.now().Format("2006-01-02")
}

func (g *QuotaGuard) resetTime() time.Time {
	now := g.now()
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, now.Location()).AddDate(0, 0, 1)
}

// LocalCounterStore keeps the daily counter in process memory.
type LocalCounterStore struct {
	mu     sync.Mutex
	counts map[string]int
}

// NewLocalCounterStore creates an in-process counter store.
func NewLocalCounterStore() *LocalCounterStore {
	return &LocalCounterStore{counts: make(map[string]int)}
}

func (s *LocalCounterStore) Incr(ctx context.Context, day string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts[day]++
	return s.counts[day], nil
}

func (s *LocalCounterStore) Get(ctx context.Context, day string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[day], nil
}

func (s *LocalCounterStore) Reset(ctx context.Context, day string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.counts, day)
	return nil
}

var _ CounterStore = (*LocalCounterStore)(nil)
