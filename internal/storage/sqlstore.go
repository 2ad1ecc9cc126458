package storage

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// Dialect selects placeholder style for the shared query code.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// SQLStore implements Storage on top of database/sql. Both adapters embed it;
// queries are written with ? placeholders and rebound for PostgreSQL.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
}

// NewSQLStore wraps an open database handle.
func NewSQLStore(db *sql.DB, dialect Dialect) *SQLStore {
	return &SQLStore{db: db, dialect: dialect}
}

// DB exposes the underlying handle for adapter-specific migration code.
func (s *SQLStore) DB() *sql.DB {
	return s.db
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) Health() error {
	return s.db.Ping()
}

// rebind converts ? placeholders to $1..$n for PostgreSQL.
func (s *SQLStore) rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}

	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *SQLStore) UpsertPlayer(player *Player) error {
	if player == nil {
		return fmt.Errorf("player is required")
	}

	player.UpdatedAt = time.Now()
	query := s.rebind(`INSERT INTO players
		(id, name, firstname, lastname, age, birth_date, birth_place, birth_country,
		 nationality, height, weight, injured, photo_url, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			firstname = excluded.firstname,
			lastname = excluded.lastname,
			age = excluded.age,
			birth_date = excluded.birth_date,
			birth_place = excluded.birth_place,
			birth_country = excluded.birth_country,
			nationality = excluded.nationality,
			height = excluded.height,
			weight = excluded.weight,
			injured = excluded.injured,
			photo_url = excluded.photo_url,
			updated_at = excluded.updated_at`)

	_, err := s.db.Exec(query,
		player.ID, player.Name, player.FirstName, player.LastName, player.Age,
		player.BirthDate, player.BirthPlace, player.BirthCountry,
		player.Nationality, player.Height, player.Weight, player.Injured,
		player.PhotoURL, player.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert player %d: %w", player.ID, err)
	}
	return nil
}

func (s *SQLStore) UpsertPlayers(players []*Player) error {
	if len(players) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := s.rebind(`INSERT INTO players
		(id, name, firstname, lastname, age, birth_date, birth_place, birth_country,
		 nationality, height, weight, injured, photo_url, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			firstname = excluded.firstname,
			lastname = excluded.lastname,
			age = excluded.age,
			birth_date = excluded.birth_date,
			birth_place = excluded.birth_place,
			birth_country = excluded.birth_country,
			nationality = excluded.nationality,
			height = excluded.height,
			weight = excluded.weight,
			injured = excluded.injured,
			photo_url = excluded.photo_url,
			updated_at = excluded.updated_at`)

	stmt, err := tx.Prepare(query)
	if err != nil {
		return fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	now := time.Now()
	for _, player := range players {
		player.UpdatedAt = now
		if _, err := stmt.Exec(
			player.ID, player.Name, player.FirstName, player.LastName, player.Age,
			player.BirthDate, player.BirthPlace, player.BirthCountry,
			player.Nationality, player.Height, player.Weight, player.Injured,
			player.PhotoURL, player.UpdatedAt); err != nil {
			return fmt.Errorf("failed to upsert player %d: %w", player.ID, err)
		}
	}

	return tx.Commit()
}

func (s *SQLStore) GetPlayer(id int) (*Player, error) {
	query := s.rebind(`SELECT id, name, firstname, lastname, age, birth_date,
		birth_place, birth_country, nationality, height, weight, injured,
		photo_url, updated_at
		FROM players WHERE id = ?`)

	player := &Player{}
	err := s.db.QueryRow(query, id).Scan(
		&player.ID, &player.Name, &player.FirstName, &player.LastName,
		&player.Age, &player.BirthDate, &player.BirthPlace, &player.BirthCountry,
		&player.Nationality, &player.Height, &player.Weight, &player.Injured,
		&player.PhotoURL, &player.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get player %d: %w", id, err)
	}
	return player, nil
}

func (s *SQLStore) GetPlayers() ([]*Player, error) {
	rows, err := s.db.Query(`SELECT id, name, firstname, lastname, age,
		birth_date, birth_place, birth_country, nationality, height, weight,
		injured, photo_url, updated_at
		FROM players ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query players: %w", err)
	}
	defer rows.Close()

	var players []*Player
	for rows.Next() {
		player := &Player{}
		if err := rows.Scan(
			&player.ID, &player.Name, &player.FirstName, &player.LastName,
			&player.Age, &player.BirthDate, &player.BirthPlace, &player.BirthCountry,
			&player.Nationality, &player.Height, &player.Weight, &player.Injured,
			&player.PhotoURL, &player.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan player: %w", err)
		}
		players = append(players, player)
	}
	return players, rows.Err()
}

func (s *SQLStore) CreateTransfer(transfer *Transfer) error {
	if transfer == nil {
		return fmt.Errorf("transfer is required")
	}

	transfer.CreatedAt = time.Now()
	query := s.rebind(`INSERT INTO transfers
		(player_id, player_name, season, from_club, to_club, transfer_date, fee, enriched, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)

	if s.dialect == DialectPostgres {
		err := s.db.QueryRow(query+` RETURNING id`,
			transfer.PlayerID, transfer.PlayerName, transfer.Season,
			transfer.FromClub, transfer.ToClub, transfer.TransferDate,
			transfer.Fee, transfer.Enriched, transfer.CreatedAt).Scan(&transfer.ID)
		if err != nil {
			return fmt.Errorf("failed to create transfer: %w", err)
		}
		return nil
	}

	result, err := s.db.Exec(query,
		transfer.PlayerID, transfer.PlayerName, transfer.Season,
		transfer.FromClub, transfer.ToClub, transfer.TransferDate,
		transfer.Fee, transfer.Enriched, transfer.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create transfer: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get transfer id: %w", err)
	}
	transfer.ID = id
	return nil
}

func (s *SQLStore) GetTransfersBySeason(season string) ([]*Transfer, error) {
	query := s.rebind(`SELECT id, player_id, player_name, season, from_club,
		to_club, transfer_date, fee, enriched, created_at
		FROM transfers WHERE season = ? ORDER BY id`)

	rows, err := s.db.Query(query, season)
	if err != nil {
		return nil, fmt.Errorf("failed to query transfers for season %s: %w", season, err)
	}
	defer rows.Close()

	var transfers []*Transfer
	for rows.Next() {
		transfer := &Transfer{}
		if err := rows.Scan(
			&transfer.ID, &transfer.PlayerID, &transfer.PlayerName,
			&transfer.Season, &transfer.FromClub, &transfer.ToClub,
			&transfer.TransferDate, &transfer.Fee, &transfer.Enriched,
			&transfer.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan transfer: %w", err)
		}
		transfers = append(transfers, transfer)
	}
	return transfers, rows.Err()
}

func (s *SQLStore) MarkTransferEnriched(transferID int64) error {
	query := s.rebind(`UPDATE transfers SET enriched = ? WHERE id = ?`)
	if _, err := s.db.Exec(query, true, transferID); err != nil {
		return fmt.Errorf("failed to mark transfer %d enriched: %w", transferID, err)
	}
	return nil
}

func (s *SQLStore) CreateEnrichmentLog(entry *EnrichmentLog) error {
	if entry == nil {
		return fmt.Errorf("log entry is required")
	}

	entry.CreatedAt = time.Now()
	query := s.rebind(`INSERT INTO enrichment_logs
		(transfer_id, player_id, outcome, error, retry_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`)

	_, err := s.db.Exec(query,
		entry.TransferID, entry.PlayerID, entry.Outcome, entry.Error,
		entry.RetryCount, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create enrichment log: %w", err)
	}
	return nil
}

func (s *SQLStore) GetLatestLogsBySeason(season string) (map[int64]*EnrichmentLog, error) {
	query := s.rebind(`SELECT l.id, l.transfer_id, l.player_id, l.outcome,
		l.error, l.retry_count, l.created_at
		FROM enrichment_logs l
		JOIN transfers t ON t.id = l.transfer_id
		WHERE t.season = ?
		AND l.id = (SELECT MAX(l2.id) FROM enrichment_logs l2 WHERE l2.transfer_id = l.transfer_id)`)

	rows, err := s.db.Query(query, season)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest logs: %w", err)
	}
	defer rows.Close()

	latest := make(map[int64]*EnrichmentLog)
	for rows.Next() {
		entry := &EnrichmentLog{}
		if err := rows.Scan(
			&entry.ID, &entry.TransferID, &entry.PlayerID, &entry.Outcome,
			&entry.Error, &entry.RetryCount, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan enrichment log: %w", err)
		}
		latest[entry.TransferID] = entry
	}
	return latest, rows.Err()
}

func (s *SQLStore) GetFailedEnrichments(minRetryCount, limit int) ([]*EnrichmentLog, error) {
	query := s.rebind(`SELECT l.id, l.transfer_id, l.player_id, l.outcome,
		l.error, l.retry_count, l.created_at
		FROM enrichment_logs l
		WHERE l.outcome = ? AND l.retry_count >= ?
		AND l.id = (SELECT MAX(l2.id) FROM enrichment_logs l2 WHERE l2.transfer_id = l.transfer_id)
		ORDER BY l.id DESC LIMIT ?`)

	rows, err := s.db.Query(query, OutcomeFailed, minRetryCount, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query failed enrichments: %w", err)
	}
	defer rows.Close()

	var entries []*EnrichmentLog
	for rows.Next() {
		entry := &EnrichmentLog{}
		if err := rows.Scan(
			&entry.ID, &entry.TransferID, &entry.PlayerID, &entry.Outcome,
			&entry.Error, &entry.RetryCount, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan enrichment log: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (s *SQLStore) GetEnrichmentStats() (*EnrichmentStats, error) {
	stats := &EnrichmentStats{}

	if err := s.db.QueryRow(`SELECT COUNT(*) FROM transfers`).Scan(&stats.TotalTransfers); err != nil {
		return nil, fmt.Errorf("failed to count transfers: %w", err)
	}

	enrichedQuery := s.rebind(`SELECT COUNT(*) FROM transfers WHERE enriched = ?`)
	if err := s.db.QueryRow(enrichedQuery, true).Scan(&stats.Enriched); err != nil {
		return nil, fmt.Errorf("failed to count enriched transfers: %w", err)
	}

	failedQuery := s.rebind(`SELECT COUNT(*) FROM enrichment_logs l
		WHERE l.outcome = ?
		AND l.id = (SELECT MAX(l2.id) FROM enrichment_logs l2 WHERE l2.transfer_id = l.transfer_id)`)
	if err := s.db.QueryRow(failedQuery, OutcomeFailed).Scan(&stats.Failed); err != nil {
		return nil, fmt.Errorf("failed to count failed enrichments: %w", err)
	}

	stats.Pending = stats.TotalTransfers - stats.Enriched - stats.Failed
	if stats.Pending < 0 {
		stats.Pending = 0
	}
	if stats.TotalTransfers > 0 {
		stats.EnrichmentRate = 100 * float64(stats.Enriched) / float64(stats.TotalTransfers)
	}

	return stats, nil
}
