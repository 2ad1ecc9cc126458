// Package pipeline drives enrichment runs over a season's transfers. Runs are
// resumable (skip everything at or below a transfer ID), idempotent (already
// enriched transfers are skipped), and record-isolated (one bad record never
// aborts the run).
package pipeline

import (
	"context"
	"time"

	apperrors "transfer-dashboard/internal/common/errors"
	"transfer-dashboard/internal/common/logging"
	"transfer-dashboard/internal/enrichment"
	"transfer-dashboard/internal/storage"
)

// Enricher fetches one player profile. Satisfied by *enrichment.Service.
type Enricher interface {
	Enrich(ctx context.Context, playerID int) (*storage.Player, error)
}

// Cache is the snapshot cache surface. Satisfied by *enrichment.PlayerCache.
type Cache interface {
	Initialize() error
	Get(playerID int) (*storage.Player, bool)
	Put(player *storage.Player)
	Persist() error
	Stats() enrichment.CacheStats
}

// Progress summarizes one run. Processed counts transfers the run attempted;
// Skipped counts transfers excluded before any attempt.
type Progress struct {
	StartTime  time.Time `json:"start_time"`
	DurationMS int64     `json:"duration_ms"`
	Processed  int       `json:"processed"`
	Succeeded  int       `json:"succeeded"`
	Failed     int       `json:"failed"`
	Skipped    int       `json:"skipped"`
}

// Pipeline orchestrates enrichment runs.
type Pipeline struct {
	store    storage.Storage
	enricher Enricher
	cache    Cache
	logger   logging.Logger
	now      func() time.Time
}

// New creates a pipeline. cache may be nil; runs then hit storage directly
// and useCache requests are ignored.
func New(store storage.Storage, enricher Enricher, cache Cache, logger logging.Logger) *Pipeline {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &Pipeline{
		store:    store,
		enricher: enricher,
		cache:    cache,
		logger:   logger,
		now:      time.Now,
	}
}

// EnrichTransfers runs enrichment over every unenriched transfer in season.
// Transfers with ID at or below resumeFromID are skipped, as are transfers
// without a player ID. With useCache the player cache is warmed from storage
// first, cache hits complete without network traffic, and new players are
// flushed back in one batch at the end.
func (p *Pipeline) EnrichTransfers(ctx context.Context, season string, resumeFromID int64, useCache bool) (*Progress, error) {
	if season == "" {
		return nil, apperrors.ValidationError("season is required")
	}

	progress := &Progress{StartTime: p.now()}
	defer func() {
		progress.DurationMS = time.Since(progress.StartTime).Milliseconds()
	}()

	transfers, err := p.store.GetTransfersBySeason(season)
	if err != nil {
		return progress, err
	}
	latestLogs, err := p.store.GetLatestLogsBySeason(season)
	if err != nil {
		return progress, err
	}

	useCache = useCache && p.cache != nil
	if useCache {
		if err := p.cache.Initialize(); err != nil {
			return progress, err
		}
	}

	p.logger.Info("enrichment run started",
		logging.Field{Key: "season", Value: season},
		logging.Field{Key: "transfers", Value: len(transfers)},
		logging.Field{Key: "resume_from", Value: resumeFromID},
		logging.Field{Key: "use_cache", Value: useCache},
	)

	for _, transfer := range transfers {
		if err := ctx.Err(); err != nil {
			p.finishRun(progress, useCache)
			return progress, apperrors.TimeoutError("enrichment run").WithContext("cause", err.Error())
		}

		if transfer.ID <= resumeFromID || transfer.PlayerID == 0 || transfer.Enriched {
			progress.Skipped++
			continue
		}

		p.processTransfer(ctx, transfer, latestLogs[transfer.ID], useCache, progress)
	}

	p.finishRun(progress, useCache)
	return progress, nil
}

// RetryFailed re-attempts transfers whose latest log entry is a failure and
// that have accumulated fewer than maxRetries failed attempts in total. The
// stored retry count is the number of failures before that entry, so a latest
// count of maxRetries-1 means the allowance is spent and the transfer is
// skipped permanently.
func (p *Pipeline) RetryFailed(ctx context.Context, season string, maxRetries int) (*Progress, error) {
	if season == "" {
		return nil, apperrors.ValidationError("season is required")
	}
	if maxRetries < 1 {
		return nil, apperrors.ValidationError("maxRetries must be positive")
	}

	progress := &Progress{StartTime: p.now()}
	defer func() {
		progress.DurationMS = time.Since(progress.StartTime).Milliseconds()
	}()

	transfers, err := p.store.GetTransfersBySeason(season)
	if err != nil {
		return progress, err
	}
	latestLogs, err := p.store.GetLatestLogsBySeason(season)
	if err != nil {
		return progress, err
	}

	useCache := p.cache != nil
	if useCache {
		if err := p.cache.Initialize(); err != nil {
			return progress, err
		}
	}

	for _, transfer := range transfers {
		if err := ctx.Err(); err != nil {
			p.finishRun(progress, useCache)
			return progress, apperrors.TimeoutError("retry run").WithContext("cause", err.Error())
		}

		latest := latestLogs[transfer.ID]
		if transfer.Enriched || transfer.PlayerID == 0 || latest == nil || latest.Outcome != storage.OutcomeFailed {
			continue
		}
		if latest.RetryCount >= maxRetries-1 {
			progress.Skipped++
			continue
		}

		p.processTransfer(ctx, transfer, latest, useCache, progress)
	}

	p.finishRun(progress, useCache)
	return progress, nil
}

// processTransfer attempts one record and records the outcome. Failures are
// logged and counted, never propagated.
func (p *Pipeline) processTransfer(ctx context.Context, transfer *storage.Transfer, latest *storage.EnrichmentLog, useCache bool, progress *Progress) {
	progress.Processed++

	retryCount := 0
	if latest != nil && latest.Outcome == storage.OutcomeFailed {
		retryCount = latest.RetryCount + 1
	}

	if useCache {
		if _, hit := p.cache.Get(transfer.PlayerID); hit {
			p.recordSuccess(transfer, retryCount, progress)
			return
		}
	}

	player, err := p.enricher.Enrich(ctx, transfer.PlayerID)
	if err != nil {
		p.recordFailure(transfer, retryCount, err, progress)
		return
	}

	if useCache {
		p.cache.Put(player)
	} else if err := p.store.UpsertPlayer(player); err != nil {
		p.recordFailure(transfer, retryCount, err, progress)
		return
	}

	p.recordSuccess(transfer, retryCount, progress)
}

func (p *Pipeline) recordSuccess(transfer *storage.Transfer, retryCount int, progress *Progress) {
	if err := p.store.MarkTransferEnriched(transfer.ID); err != nil {
		p.recordFailure(transfer, retryCount, err, progress)
		return
	}

	entry := &storage.EnrichmentLog{
		TransferID: transfer.ID,
		PlayerID:   transfer.PlayerID,
		Outcome:    storage.OutcomeSuccess,
		RetryCount: retryCount,
		CreatedAt:  p.now(),
	}
	if err := p.store.CreateEnrichmentLog(entry); err != nil {
		p.logger.Error("failed to record enrichment success", err,
			logging.Field{Key: "transfer_id", Value: transfer.ID},
		)
	}

	progress.Succeeded++
}

func (p *Pipeline) recordFailure(transfer *storage.Transfer, retryCount int, cause error, progress *Progress) {
	entry := &storage.EnrichmentLog{
		TransferID: transfer.ID,
		PlayerID:   transfer.PlayerID,
		Outcome:    storage.OutcomeFailed,
		Error:      cause.Error(),
		RetryCount: retryCount,
		CreatedAt:  p.now(),
	}
	if err := p.store.CreateEnrichmentLog(entry); err != nil {
		p.logger.Error("failed to record enrichment failure", err,
			logging.Field{Key: "transfer_id", Value: transfer.ID},
		)
	}

	p.logger.Warn("enrichment failed for transfer",
		logging.Field{Key: "transfer_id", Value: transfer.ID},
		logging.Field{Key: "player_id", Value: transfer.PlayerID},
		logging.Field{Key: "retry_count", Value: retryCount},
		logging.Field{Key: "error", Value: cause.Error()},
	)

	progress.Failed++
}

func (p *Pipeline) finishRun(progress *Progress, useCache bool) {
	if useCache {
		if err := p.cache.Persist(); err != nil {
			p.logger.Error("failed to persist player cache", err)
		}
	}

	p.logger.Info("enrichment run finished",
		logging.Field{Key: "processed", Value: progress.Processed},
		logging.Field{Key: "succeeded", Value: progress.Succeeded},
		logging.Field{Key: "failed", Value: progress.Failed},
		logging.Field{Key: "skipped", Value: progress.Skipped},
	)
}
