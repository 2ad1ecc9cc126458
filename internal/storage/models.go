package storage

import "time"

// Enrichment log outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeFailed  = "failed"
)

// Player holds the enriched attributes fetched from the external sports-data
// API, keyed by the API's player identifier. A successful enrichment creates
// or overwrites the row; once cached for a pipeline run the record is treated
// as immutable.
type Player struct {
	ID           int       `json:"id"`
	Name         string    `json:"name"`
	FirstName    string    `json:"firstname"`
	LastName     string    `json:"lastname"`
	Age          int       `json:"age"`
	BirthDate    string    `json:"birth_date"`
	BirthPlace   string    `json:"birth_place"`
	BirthCountry string    `json:"birth_country"`
	Nationality  string    `json:"nationality"`
	Height       string    `json:"height"`
	Weight       string    `json:"weight"`
	Injured      bool      `json:"injured"`
	PhotoURL     string    `json:"photo_url"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Transfer identifies a transfer record. PlayerID is the enrichment key; a
// zero PlayerID means the record cannot be enriched and is skipped. The
// pipeline only touches the enrichment-derived Enriched flag.
type Transfer struct {
	ID           int64     `json:"id"`
	PlayerID     int       `json:"player_id"`
	PlayerName   string    `json:"player_name"`
	Season       string    `json:"season"`
	FromClub     string    `json:"from_club"`
	ToClub       string    `json:"to_club"`
	TransferDate string    `json:"transfer_date"`
	Fee          string    `json:"fee,omitempty"`
	Enriched     bool      `json:"enriched"`
	CreatedAt    time.Time `json:"created_at"`
}

// EnrichmentLog is one append-only audit entry per enrichment attempt.
// RetryCount is the number of prior failed attempts for the transfer at the
// time the attempt was made; the latest entry per transfer implies the
// transfer's current enrichment state.
type EnrichmentLog struct {
	ID         int64     `json:"id"`
	TransferID int64     `json:"transfer_id"`
	PlayerID   int       `json:"player_id"`
	Outcome    string    `json:"outcome"`
	Error      string    `json:"error,omitempty"`
	RetryCount int       `json:"retry_count"`
	CreatedAt  time.Time `json:"timestamp"`
}

// EnrichmentStats summarizes enrichment coverage for the stats endpoint.
type EnrichmentStats struct {
	TotalTransfers int     `json:"total_transfers"`
	Enriched       int     `json:"enriched"`
	Failed         int     `json:"failed"`
	Pending        int     `json:"pending"`
	EnrichmentRate float64 `json:"enrichment_rate"`
}
