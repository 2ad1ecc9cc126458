// Package sqlite provides the SQLite storage adapter, the default backend for
// single-node deployments.
package sqlite

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"transfer-dashboard/internal/storage"
)

// Adapter implements storage.Storage backed by SQLite.
type Adapter struct {
	*storage.SQLStore
}

// New opens the SQLite database at the configured path and runs migrations.
func New(cfg *Config) (*Adapter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", cfg.GetConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// database/sql pools connections; SQLite tolerates exactly one writer.
	db.SetMaxOpenConns(1)

	adapter := &Adapter{SQLStore: storage.NewSQLStore(db, storage.DialectSQLite)}
	if err := adapter.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return adapter, nil
}

func (a *Adapter) migrate() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS players (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			firstname TEXT NOT NULL DEFAULT '',
			lastname TEXT NOT NULL DEFAULT '',
			age INTEGER NOT NULL DEFAULT 0,
			birth_date TEXT NOT NULL DEFAULT '',
			birth_place TEXT NOT NULL DEFAULT '',
			birth_country TEXT NOT NULL DEFAULT '',
			nationality TEXT NOT NULL DEFAULT '',
			height TEXT NOT NULL DEFAULT '',
			weight TEXT NOT NULL DEFAULT '',
			injured BOOLEAN NOT NULL DEFAULT 0,
			photo_url TEXT NOT NULL DEFAULT '',
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS transfers (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			player_id INTEGER NOT NULL DEFAULT 0,
			player_name TEXT NOT NULL DEFAULT '',
			season TEXT NOT NULL,
			from_club TEXT NOT NULL DEFAULT '',
			to_club TEXT NOT NULL DEFAULT '',
			transfer_date TEXT NOT NULL DEFAULT '',
			fee TEXT NOT NULL DEFAULT '',
			enriched BOOLEAN NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS enrichment_logs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			transfer_id INTEGER NOT NULL,
			player_id INTEGER NOT NULL DEFAULT 0,
			outcome TEXT NOT NULL,
			error TEXT NOT NULL DEFAULT '',
			retry_count INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (transfer_id) REFERENCES transfers (id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_transfers_season ON transfers(season)`,
		`CREATE INDEX IF NOT EXISTS idx_transfers_player_id ON transfers(player_id)`,
		`CREATE INDEX IF NOT EXISTS idx_enrichment_logs_transfer_id ON enrichment_logs(transfer_id)`,
		`CREATE INDEX IF NOT EXISTS idx_enrichment_logs_outcome ON enrichment_logs(outcome)`,
	}

	for _, query := range queries {
		if _, err := a.DB().Exec(query); err != nil {
			return fmt.Errorf("failed to execute migration query: %w", err)
		}
	}
	return nil
}

var _ storage.Storage = (*Adapter)(nil)
