package handlers

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	apperrors "transfer-dashboard/internal/common/errors"
)

// Enrichment run and stats handlers

const (
	defaultRetryMax   = 3
	failedListLimit   = 50
	defaultUseCache   = true
	defaultResumeFrom = 0
)

// RunEnrichment starts a synchronous enrichment run for a season
// @Summary Run enrichment for a season
// @Description Enriches every unenriched transfer in the season. Supports resuming past a transfer ID and serving repeat players from the snapshot cache.
// @Tags enrichment
// @Produce json
// @Param season path string true "Season, e.g. 2023"
// @Param resume_from query int false "Skip transfers with ID at or below this value (default: 0)"
// @Param use_cache query bool false "Serve repeat players from the snapshot cache (default: true)"
// @Success 200 {object} map[string]interface{} "Run progress"
// @Failure 400 {object} map[string]interface{} "Invalid parameters"
// @Failure 500 {object} map[string]interface{} "Run aborted"
// @Router /api/enrichment/{season}/run [post]
func (h *Handlers) RunEnrichment(w http.ResponseWriter, r *http.Request) {
	season := mux.Vars(r)["season"]

	resumeFrom := int64(defaultResumeFrom)
	if raw := r.URL.Query().Get("resume_from"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed < 0 {
			runFailure(w, http.StatusBadRequest, "resume_from must be a non-negative integer", 0)
			return
		}
		resumeFrom = parsed
	}

	useCache := defaultUseCache
	if raw := r.URL.Query().Get("use_cache"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			runFailure(w, http.StatusBadRequest, "use_cache must be a boolean", 0)
			return
		}
		useCache = parsed
	}

	progress, err := h.runner.EnrichTransfers(r.Context(), season, resumeFrom, useCache)
	if err != nil {
		status := http.StatusInternalServerError
		if apperrors.IsType(err, apperrors.ErrTypeValidation) {
			status = http.StatusBadRequest
		}
		var durationMS int64
		if progress != nil {
			durationMS = progress.DurationMS
		}
		runFailure(w, status, err.Error(), durationMS)
		return
	}

	response := map[string]interface{}{
		"success":  true,
		"progress": progress,
	}
	if useCache && h.cache != nil {
		response["cache_stats"] = h.cache.Stats()
	}

	writeJSON(w, http.StatusOK, response)
}

// RetryEnrichment re-attempts failed transfers for a season
// @Summary Retry failed enrichments
// @Description Re-attempts transfers whose latest enrichment outcome is failed and that have not exhausted the retry allowance.
// @Tags enrichment
// @Produce json
// @Param season path string true "Season, e.g. 2023"
// @Param max_retries query int false "Total failed attempts allowed per transfer (default: 3)"
// @Success 200 {object} map[string]interface{} "Run progress"
// @Failure 400 {object} map[string]interface{} "Invalid parameters"
// @Failure 500 {object} map[string]interface{} "Run aborted"
// @Router /api/enrichment/{season}/retry [patch]
func (h *Handlers) RetryEnrichment(w http.ResponseWriter, r *http.Request) {
	season := mux.Vars(r)["season"]

	maxRetries := defaultRetryMax
	if raw := r.URL.Query().Get("max_retries"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			runFailure(w, http.StatusBadRequest, "max_retries must be a positive integer", 0)
			return
		}
		maxRetries = parsed
	}

	progress, err := h.runner.RetryFailed(r.Context(), season, maxRetries)
	if err != nil {
		status := http.StatusInternalServerError
		if apperrors.IsType(err, apperrors.ErrTypeValidation) {
			status = http.StatusBadRequest
		}
		var durationMS int64
		if progress != nil {
			durationMS = progress.DurationMS
		}
		runFailure(w, status, err.Error(), durationMS)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"progress": progress,
	})
}

// GetEnrichmentStats returns enrichment coverage statistics
// @Summary Get enrichment statistics
// @Description Returns enrichment coverage across all seasons, optionally with the most recent failed transfers.
// @Tags enrichment
// @Produce json
// @Param include_failed query bool false "Include the failed-transfer list (default: false)"
// @Success 200 {object} map[string]interface{} "Enrichment statistics"
// @Failure 500 {string} string "Failed to get statistics"
// @Router /api/enrichment/stats [get]
func (h *Handlers) GetEnrichmentStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.storage.GetEnrichmentStats()
	if err != nil {
		http.Error(w, "Failed to get enrichment statistics", http.StatusInternalServerError)
		return
	}

	response := map[string]interface{}{
		"stats": stats,
	}

	if include, _ := strconv.ParseBool(r.URL.Query().Get("include_failed")); include {
		failed, err := h.storage.GetFailedEnrichments(0, failedListLimit)
		if err != nil {
			http.Error(w, "Failed to get failed enrichments", http.StatusInternalServerError)
			return
		}
		response["failed"] = failed
	}

	writeJSON(w, http.StatusOK, response)
}

// GetRateLimitStats returns rate limiter and daily quota state
// @Summary Get rate limit state
// @Description Returns the rolling-hour limiter counters and the daily quota state including emergency mode.
// @Tags enrichment
// @Produce json
// @Success 200 {object} map[string]interface{} "Rate limit state"
// @Router /api/enrichment/ratelimit [get]
func (h *Handlers) GetRateLimitStats(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{}
	if h.limiter != nil {
		response["limiter"] = h.limiter.Stats()
	}
	if h.quota != nil {
		response["quota"] = h.quota.State(r.Context())
	}

	writeJSON(w, http.StatusOK, response)
}
