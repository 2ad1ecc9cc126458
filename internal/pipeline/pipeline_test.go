package pipeline

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "transfer-dashboard/internal/common/errors"
	"transfer-dashboard/internal/common/logging"
	"transfer-dashboard/internal/enrichment"
	"transfer-dashboard/internal/storage"
)

// fakeStore is an in-memory Storage good enough for pipeline runs.
type fakeStore struct {
	storage.Storage

	transfers []*storage.Transfer
	players   map[int]*storage.Player
	logs      []*storage.EnrichmentLog

	markErr error
}

func newFakeStore(transfers ...*storage.Transfer) *fakeStore {
	return &fakeStore{
		transfers: transfers,
		players:   make(map[int]*storage.Player),
	}
}

func (s *fakeStore) GetTransfersBySeason(season string) ([]*storage.Transfer, error) {
	var out []*storage.Transfer
	for _, t := range s.transfers {
		if t.Season == season {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *fakeStore) GetLatestLogsBySeason(season string) (map[int64]*storage.EnrichmentLog, error) {
	latest := make(map[int64]*storage.EnrichmentLog)
	for _, entry := range s.logs {
		latest[entry.TransferID] = entry
	}
	return latest, nil
}

func (s *fakeStore) UpsertPlayer(player *storage.Player) error {
	s.players[player.ID] = player
	return nil
}

func (s *fakeStore) UpsertPlayers(players []*storage.Player) error {
	for _, p := range players {
		s.players[p.ID] = p
	}
	return nil
}

func (s *fakeStore) GetPlayers() ([]*storage.Player, error) {
	var out []*storage.Player
	for _, p := range s.players {
		out = append(out, p)
	}
	return out, nil
}

func (s *fakeStore) MarkTransferEnriched(transferID int64) error {
	if s.markErr != nil {
		return s.markErr
	}
	for _, t := range s.transfers {
		if t.ID == transferID {
			t.Enriched = true
		}
	}
	return nil
}

func (s *fakeStore) CreateEnrichmentLog(entry *storage.EnrichmentLog) error {
	entry.ID = int64(len(s.logs) + 1)
	s.logs = append(s.logs, entry)
	return nil
}

func (s *fakeStore) latestLog(transferID int64) *storage.EnrichmentLog {
	var latest *storage.EnrichmentLog
	for _, entry := range s.logs {
		if entry.TransferID == transferID {
			latest = entry
		}
	}
	return latest
}

// fakeEnricher succeeds unless the player ID is listed in failing.
type fakeEnricher struct {
	calls   []int
	failing map[int]error
}

func (e *fakeEnricher) Enrich(_ context.Context, playerID int) (*storage.Player, error) {
	e.calls = append(e.calls, playerID)
	if err, ok := e.failing[playerID]; ok {
		return nil, err
	}
	return &storage.Player{
		ID:        playerID,
		Name:      fmt.Sprintf("Player %d", playerID),
		UpdatedAt: time.Now(),
	}, nil
}

func transferRecord(id int64, playerID int, season string) *storage.Transfer {
	return &storage.Transfer{
		ID:         id,
		PlayerID:   playerID,
		PlayerName: fmt.Sprintf("Player %d", playerID),
		Season:     season,
	}
}

func newTestPipeline(store *fakeStore, enricher Enricher, withCache bool) *Pipeline {
	logger := logging.NewDefaultLogger()
	var cache Cache
	if withCache {
		cache = enrichment.NewPlayerCache(store, logger)
	}
	return New(store, enricher, cache, logger)
}

func TestEnrichTransfersHappyPath(t *testing.T) {
	store := newFakeStore(
		transferRecord(1, 100, "2023"),
		transferRecord(2, 200, "2023"),
		transferRecord(3, 300, "2024"),
	)
	enricher := &fakeEnricher{}
	p := newTestPipeline(store, enricher, false)

	progress, err := p.EnrichTransfers(context.Background(), "2023", 0, false)
	require.NoError(t, err)

	assert.Equal(t, 2, progress.Processed)
	assert.Equal(t, 2, progress.Succeeded)
	assert.Equal(t, 0, progress.Failed)
	assert.Equal(t, []int{100, 200}, enricher.calls)

	assert.True(t, store.transfers[0].Enriched)
	assert.True(t, store.transfers[1].Enriched)
	assert.False(t, store.transfers[2].Enriched)
	assert.Contains(t, store.players, 100)

	log := store.latestLog(1)
	require.NotNil(t, log)
	assert.Equal(t, storage.OutcomeSuccess, log.Outcome)
	assert.Equal(t, 0, log.RetryCount)
}

func TestEnrichTransfersSkipsEnrichedAndZeroPlayer(t *testing.T) {
	done := transferRecord(1, 100, "2023")
	done.Enriched = true
	store := newFakeStore(
		done,
		transferRecord(2, 0, "2023"),
		transferRecord(3, 300, "2023"),
	)
	enricher := &fakeEnricher{}
	p := newTestPipeline(store, enricher, false)

	progress, err := p.EnrichTransfers(context.Background(), "2023", 0, false)
	require.NoError(t, err)

	assert.Equal(t, 2, progress.Skipped)
	assert.Equal(t, 1, progress.Succeeded)
	assert.Equal(t, []int{300}, enricher.calls)
}

func TestEnrichTransfersResumesFromID(t *testing.T) {
	store := newFakeStore(
		transferRecord(1, 100, "2023"),
		transferRecord(2, 200, "2023"),
		transferRecord(3, 300, "2023"),
	)
	enricher := &fakeEnricher{}
	p := newTestPipeline(store, enricher, false)

	progress, err := p.EnrichTransfers(context.Background(), "2023", 2, false)
	require.NoError(t, err)

	assert.Equal(t, 2, progress.Skipped)
	assert.Equal(t, []int{300}, enricher.calls)
}

func TestEnrichTransfersFailureDoesNotAbortRun(t *testing.T) {
	store := newFakeStore(
		transferRecord(1, 100, "2023"),
		transferRecord(2, 200, "2023"),
		transferRecord(3, 300, "2023"),
	)
	enricher := &fakeEnricher{failing: map[int]error{
		200: apperrors.ConnectionError("api unreachable", nil),
	}}
	p := newTestPipeline(store, enricher, false)

	progress, err := p.EnrichTransfers(context.Background(), "2023", 0, false)
	require.NoError(t, err)

	assert.Equal(t, 3, progress.Processed)
	assert.Equal(t, 2, progress.Succeeded)
	assert.Equal(t, 1, progress.Failed)

	log := store.latestLog(2)
	require.NotNil(t, log)
	assert.Equal(t, storage.OutcomeFailed, log.Outcome)
	assert.Equal(t, 0, log.RetryCount)
	assert.Contains(t, log.Error, "api unreachable")
	assert.False(t, store.transfers[1].Enriched)
}

func TestEnrichTransfersRetryCountAccumulates(t *testing.T) {
	store := newFakeStore(transferRecord(1, 100, "2023"))
	store.logs = append(store.logs, &storage.EnrichmentLog{
		ID: 1, TransferID: 1, PlayerID: 100,
		Outcome: storage.OutcomeFailed, RetryCount: 1,
	})
	enricher := &fakeEnricher{failing: map[int]error{
		100: apperrors.ConnectionError("still down", nil),
	}}
	p := newTestPipeline(store, enricher, false)

	_, err := p.EnrichTransfers(context.Background(), "2023", 0, false)
	require.NoError(t, err)

	log := store.latestLog(1)
	assert.Equal(t, 2, log.RetryCount)
}

func TestEnrichTransfersCacheHitSkipsNetwork(t *testing.T) {
	store := newFakeStore(
		transferRecord(1, 100, "2023"),
		transferRecord(2, 200, "2023"),
	)
	store.players[100] = &storage.Player{ID: 100, Name: "Cached"}

	enricher := &fakeEnricher{}
	p := newTestPipeline(store, enricher, true)

	progress, err := p.EnrichTransfers(context.Background(), "2023", 0, true)
	require.NoError(t, err)

	// Player 100 comes from the warmed cache; only 200 hits the API.
	assert.Equal(t, 2, progress.Succeeded)
	assert.Equal(t, []int{200}, enricher.calls)
	assert.True(t, store.transfers[0].Enriched)

	// The fetched player was persisted by the end-of-run flush.
	assert.Contains(t, store.players, 200)
}

func TestEnrichTransfersIdempotent(t *testing.T) {
	store := newFakeStore(
		transferRecord(1, 100, "2023"),
		transferRecord(2, 200, "2023"),
	)
	enricher := &fakeEnricher{}
	p := newTestPipeline(store, enricher, false)

	_, err := p.EnrichTransfers(context.Background(), "2023", 0, false)
	require.NoError(t, err)

	progress, err := p.EnrichTransfers(context.Background(), "2023", 0, false)
	require.NoError(t, err)

	assert.Equal(t, 0, progress.Processed)
	assert.Equal(t, 2, progress.Skipped)
	assert.Len(t, enricher.calls, 2)
}

func TestEnrichTransfersHonorsContext(t *testing.T) {
	store := newFakeStore(transferRecord(1, 100, "2023"))
	p := newTestPipeline(store, &fakeEnricher{}, false)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	progress, err := p.EnrichTransfers(ctx, "2023", 0, false)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeTimeout))
	assert.Equal(t, 0, progress.Processed)
}

func TestEnrichTransfersRequiresSeason(t *testing.T) {
	p := newTestPipeline(newFakeStore(), &fakeEnricher{}, false)

	_, err := p.EnrichTransfers(context.Background(), "", 0, false)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeValidation))
}

func TestRetryFailedReattemptsWithinBound(t *testing.T) {
	store := newFakeStore(
		transferRecord(1, 100, "2023"),
		transferRecord(2, 200, "2023"),
		transferRecord(3, 300, "2023"),
	)
	store.logs = append(store.logs,
		&storage.EnrichmentLog{ID: 1, TransferID: 1, PlayerID: 100, Outcome: storage.OutcomeFailed, RetryCount: 0},
		// Exhausted: count 2 means a third failure was already recorded.
		&storage.EnrichmentLog{ID: 2, TransferID: 2, PlayerID: 200, Outcome: storage.OutcomeFailed, RetryCount: 2},
	)
	enricher := &fakeEnricher{}
	p := newTestPipeline(store, enricher, false)

	progress, err := p.RetryFailed(context.Background(), "2023", 3)
	require.NoError(t, err)

	assert.Equal(t, 1, progress.Processed)
	assert.Equal(t, 1, progress.Succeeded)
	assert.Equal(t, 1, progress.Skipped)
	assert.Equal(t, []int{100}, enricher.calls)

	log := store.latestLog(1)
	assert.Equal(t, storage.OutcomeSuccess, log.Outcome)
	assert.Equal(t, 1, log.RetryCount)
	assert.True(t, store.transfers[0].Enriched)

	// Transfer 3 has no failure log at all; not a retry candidate.
	assert.False(t, store.transfers[2].Enriched)
}

func TestRetryFailedIgnoresSucceededTransfers(t *testing.T) {
	done := transferRecord(1, 100, "2023")
	done.Enriched = true
	store := newFakeStore(done)
	store.logs = append(store.logs, &storage.EnrichmentLog{
		ID: 1, TransferID: 1, PlayerID: 100, Outcome: storage.OutcomeSuccess,
	})
	enricher := &fakeEnricher{}
	p := newTestPipeline(store, enricher, false)

	progress, err := p.RetryFailed(context.Background(), "2023", 3)
	require.NoError(t, err)
	assert.Equal(t, 0, progress.Processed)
	assert.Empty(t, enricher.calls)
}

func TestRetryFailedValidatesInput(t *testing.T) {
	p := newTestPipeline(newFakeStore(), &fakeEnricher{}, false)

	_, err := p.RetryFailed(context.Background(), "", 3)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeValidation))

	_, err = p.RetryFailed(context.Background(), "2023", 0)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeValidation))
}

func TestMarkEnrichedFailureCountsAsFailed(t *testing.T) {
	store := newFakeStore(transferRecord(1, 100, "2023"))
	store.markErr = apperrors.InternalError("db locked", nil)
	p := newTestPipeline(store, &fakeEnricher{}, false)

	progress, err := p.EnrichTransfers(context.Background(), "2023", 0, false)
	require.NoError(t, err)
	assert.Equal(t, 1, progress.Failed)
	assert.Equal(t, storage.OutcomeFailed, store.latestLog(1).Outcome)
}
