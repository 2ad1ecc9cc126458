package storage

// Storage is the persistence contract consumed by the enrichment pipeline and
// the route layer. Adapters exist for SQLite and PostgreSQL; both share the
// query implementation in sqlstore.go and differ only in DDL and placeholder
// syntax.
type Storage interface {
	// Connection management
	Close() error
	Health() error

	// Players (enriched attributes)
	UpsertPlayer(player *Player) error
	UpsertPlayers(players []*Player) error
	GetPlayer(id int) (*Player, error)
	GetPlayers() ([]*Player, error)

	// Transfers
	CreateTransfer(transfer *Transfer) error
	GetTransfersBySeason(season string) ([]*Transfer, error)
	MarkTransferEnriched(transferID int64) error

	// Enrichment audit log
	CreateEnrichmentLog(entry *EnrichmentLog) error

	// GetLatestLogsBySeason returns the most recent log entry per transfer
	// for the given season, keyed by transfer ID. The pipeline derives its
	// resume and retry state purely from this map plus transfer ordering.
	GetLatestLogsBySeason(season string) (map[int64]*EnrichmentLog, error)

	// GetFailedEnrichments returns transfers whose latest entry is failed
	// with at least minRetryCount prior failures, most recent first, capped
	// at limit.
	GetFailedEnrichments(minRetryCount, limit int) ([]*EnrichmentLog, error)

	// GetEnrichmentStats aggregates enrichment coverage across all seasons.
	GetEnrichmentStats() (*EnrichmentStats, error)
}

// StorageConfig is implemented by each adapter's configuration.
type StorageConfig interface {
	Validate() error
	GetType() string
	GetConnectionString() string
}
