package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"transfer-dashboard/internal/config"
	"transfer-dashboard/internal/enrichment"
	"transfer-dashboard/internal/pipeline"
	"transfer-dashboard/internal/ratelimit"
	"transfer-dashboard/internal/storage"
)

// Runner is the pipeline surface the route layer needs. Satisfied by
// *pipeline.Pipeline.
type Runner interface {
	EnrichTransfers(ctx context.Context, season string, resumeFromID int64, useCache bool) (*pipeline.Progress, error)
	RetryFailed(ctx context.Context, season string, maxRetries int) (*pipeline.Progress, error)
}

// LimiterStats exposes rolling-window limiter counters. Satisfied by
// *ratelimit.Limiter.
type LimiterStats interface {
	Stats() ratelimit.Stats
}

// QuotaMonitor exposes daily quota state. Satisfied by *ratelimit.QuotaGuard.
type QuotaMonitor interface {
	State(ctx context.Context) ratelimit.QuotaState
}

// CacheStats exposes snapshot cache counters. Satisfied by
// *enrichment.PlayerCache.
type CacheStats interface {
	Stats() enrichment.CacheStats
}

type Handlers struct {
	storage storage.Storage
	runner  Runner
	limiter LimiterStats
	quota   QuotaMonitor
	cache   CacheStats
	config  *config.Config
}

func New(store storage.Storage, runner Runner, limiter LimiterStats, quota QuotaMonitor, cache CacheStats, cfg *config.Config) *Handlers {
	return &Handlers{
		storage: store,
		runner:  runner,
		limiter: limiter,
		quota:   quota,
		cache:   cache,
		config:  cfg,
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

// runFailure is the error envelope for enrichment run endpoints.
func runFailure(w http.ResponseWriter, status int, message string, durationMS int64) {
	writeJSON(w, status, map[string]interface{}{
		"success":     false,
		"error":       message,
		"duration_ms": durationMS,
	})
}
