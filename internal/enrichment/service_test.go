package enrichment

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"transfer-dashboard/internal/apiclient"
	apperrors "transfer-dashboard/internal/common/errors"
	"transfer-dashboard/internal/common/logging"
)

type fakeFetcher struct {
	envelope *apiclient.Envelope
	err      error
	calls    int
	lastPath string
}

func (f *fakeFetcher) FetchWithRetry(_ context.Context, endpoint string) (*apiclient.Envelope, error) {
	f.calls++
	f.lastPath = endpoint
	return f.envelope, f.err
}

type fakeQuota struct {
	err   error
	calls int
}

func (q *fakeQuota) Acquire(_ context.Context) error {
	q.calls++
	return q.err
}

func profileEnvelope(t *testing.T, playerJSON string) *apiclient.Envelope {
	t.Helper()
	return &apiclient.Envelope{
		Results:  1,
		Response: []json.RawMessage{json.RawMessage(playerJSON)},
	}
}

func TestEnrichMapsProfile(t *testing.T) {
	fetcher := &fakeFetcher{envelope: profileEnvelope(t, `{
		"player": {
			"id": 276,
			"name": "Neymar",
			"firstname": "Neymar",
			"lastname": "da Silva Santos Junior",
			"age": 28,
			"birth": {"date": "1992-02-05", "place": "Mogi das Cruzes", "country": "Brazil"},
			"nationality": "Brazil",
			"height": "175 cm",
			"weight": "68 kg",
			"injured": false,
			"photo": "https://media.example.com/players/276.png"
		}
	}`)}
	quota := &fakeQuota{}

	svc := NewService(fetcher, quota, logging.NewDefaultLogger())

	player, err := svc.Enrich(context.Background(), 276)
	require.NoError(t, err)

	assert.Equal(t, 276, player.ID)
	assert.Equal(t, "Neymar", player.Name)
	assert.Equal(t, "da Silva Santos Junior", player.LastName)
	assert.Equal(t, 28, player.Age)
	assert.Equal(t, "1992-02-05", player.BirthDate)
	assert.Equal(t, "Brazil", player.BirthCountry)
	assert.Equal(t, "175 cm", player.Height)
	assert.False(t, player.Injured)
	assert.Equal(t, "https://media.example.com/players/276.png", player.PhotoURL)
	assert.False(t, player.UpdatedAt.IsZero())

	assert.Equal(t, "/players/profiles?player=276", fetcher.lastPath)
	assert.Equal(t, 1, quota.calls)
}

func TestEnrichFailsFastInEmergencyMode(t *testing.T) {
	fetcher := &fakeFetcher{}
	quota := &fakeQuota{err: apperrors.RateLimitError("daily quota")}

	svc := NewService(fetcher, quota, logging.NewDefaultLogger())

	_, err := svc.Enrich(context.Background(), 276)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeRateLimit))
	assert.Equal(t, 0, fetcher.calls)
}

func TestEnrichEmptyResponseIsNotFound(t *testing.T) {
	fetcher := &fakeFetcher{envelope: &apiclient.Envelope{Results: 0}}

	svc := NewService(fetcher, nil, logging.NewDefaultLogger())

	_, err := svc.Enrich(context.Background(), 999999)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeNotFound))
}

func TestEnrichRejectsInvalidPlayerID(t *testing.T) {
	svc := NewService(&fakeFetcher{}, nil, logging.NewDefaultLogger())

	_, err := svc.Enrich(context.Background(), 0)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeValidation))
}

func TestEnrichPropagatesFetchError(t *testing.T) {
	fetcher := &fakeFetcher{err: apperrors.ConnectionError("boom", nil)}

	svc := NewService(fetcher, nil, logging.NewDefaultLogger())

	_, err := svc.Enrich(context.Background(), 276)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeConnection))
}

func TestEnrichRejectsProfileWithoutID(t *testing.T) {
	fetcher := &fakeFetcher{envelope: profileEnvelope(t, `{"player": {"name": "Ghost"}}`)}

	svc := NewService(fetcher, nil, logging.NewDefaultLogger())

	_, err := svc.Enrich(context.Background(), 276)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeInternal))
}
