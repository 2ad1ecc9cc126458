// Package enrichment fetches player profiles from the external sports-data
// API and maps them to local player records. The service sits behind the
// daily quota guard so a run degrades to cached data instead of burning
// through the remaining allowance.
package enrichment

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"transfer-dashboard/internal/apiclient"
	apperrors "transfer-dashboard/internal/common/errors"
	"transfer-dashboard/internal/common/logging"
	"transfer-dashboard/internal/storage"
)

// Fetcher is the API surface the service needs. Satisfied by *apiclient.Client.
type Fetcher interface {
	FetchWithRetry(ctx context.Context, endpoint string) (*apiclient.Envelope, error)
}

// Quota gates calls against the daily allowance. Satisfied by
// *ratelimit.QuotaGuard.
type Quota interface {
	Acquire(ctx context.Context) error
}

// profilePayload matches one element of the API's player-profile response.
type profilePayload struct {
	Player struct {
		ID        int    `json:"id"`
		Name      string `json:"name"`
		FirstName string `json:"firstname"`
		LastName  string `json:"lastname"`
		Age       int    `json:"age"`
		Birth     struct {
			Date    string `json:"date"`
			Place   string `json:"place"`
			Country string `json:"country"`
		} `json:"birth"`
		Nationality string `json:"nationality"`
		Height      string `json:"height"`
		Weight      string `json:"weight"`
		Injured     bool   `json:"injured"`
		Photo       string `json:"photo"`
	} `json:"player"`
}

// Service performs single-player enrichment lookups.
type Service struct {
	fetcher Fetcher
	quota   Quota
	logger  logging.Logger
	now     func() time.Time
}

// NewService creates an enrichment service. quota may be nil when no daily
// ceiling is configured.
func NewService(fetcher Fetcher, quota Quota, logger logging.Logger) *Service {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &Service{
		fetcher: fetcher,
		quota:   quota,
		logger:  logger,
		now:     time.Now,
	}
}

// Enrich fetches the profile for playerID. In emergency mode the quota guard
// fails the call before any network traffic, which the caller records as a
// failed attempt like any other error.
func (s *Service) Enrich(ctx context.Context, playerID int) (*storage.Player, error) {
	if playerID <= 0 {
		return nil, apperrors.ValidationError("player ID must be positive")
	}

	if s.quota != nil {
		if err := s.quota.Acquire(ctx); err != nil {
			return nil, err
		}
	}

	endpoint := fmt.Sprintf("/players/profiles?player=%d", playerID)
	envelope, err := s.fetcher.FetchWithRetry(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	if len(envelope.Response) == 0 {
		return nil, apperrors.NotFoundError(fmt.Sprintf("player %d", playerID))
	}

	var payload profilePayload
	if err := json.Unmarshal(envelope.Response[0], &payload); err != nil {
		return nil, apperrors.InternalError("failed to parse player profile", err)
	}
	if payload.Player.ID == 0 {
		return nil, apperrors.InternalError("player profile missing identifier", nil)
	}

	player := &storage.Player{
		ID:           payload.Player.ID,
		Name:         payload.Player.Name,
		FirstName:    payload.Player.FirstName,
		LastName:     payload.Player.LastName,
		Age:          payload.Player.Age,
		BirthDate:    payload.Player.Birth.Date,
		BirthPlace:   payload.Player.Birth.Place,
		BirthCountry: payload.Player.Birth.Country,
		Nationality:  payload.Player.Nationality,
		Height:       payload.Player.Height,
		Weight:       payload.Player.Weight,
		Injured:      payload.Player.Injured,
		PhotoURL:     payload.Player.Photo,
		UpdatedAt:    s.now(),
	}

	s.logger.Debug("enriched player",
		logging.Field{Key: "player_id", Value: player.ID},
		logging.Field{Key: "name", Value: player.Name},
	)

	return player, nil
}
