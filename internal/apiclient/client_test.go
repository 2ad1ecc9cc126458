package apiclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "transfer-dashboard/internal/common/errors"
)

type countingLimiter struct {
	waits int32
}

func (l *countingLimiter) Wait(_ context.Context) error {
	atomic.AddInt32(&l.waits, 1)
	return nil
}

func newTestClient(t *testing.T, baseURL string) (*Client, *[]time.Duration, *countingLimiter) {
	t.Helper()

	limiter := &countingLimiter{}
	client, err := New(Config{
		BaseURL:    baseURL,
		APIKey:     "test-key",
		MaxRetries: 3,
		Limiter:    limiter,
	})
	require.NoError(t, err)

	var slept []time.Duration
	client.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}

	return client, &slept, limiter
}

func TestNewRequiresCredentials(t *testing.T) {
	_, err := New(Config{BaseURL: "http://example.com"})
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeConfig))

	_, err = New(Config{APIKey: "key"})
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeConfig))
}

func TestFetchSuccess(t *testing.T) {
	var gotKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("x-apisports-key")
		w.Write([]byte(`{"results":1,"response":[{"player":{"id":276}}]}`))
	}))
	defer server.Close()

	client, slept, limiter := newTestClient(t, server.URL)

	envelope, err := client.FetchWithRetry(context.Background(), "/players/profiles?player=276")
	require.NoError(t, err)

	assert.Equal(t, "test-key", gotKey)
	assert.Equal(t, 1, envelope.Results)
	assert.Len(t, envelope.Response, 1)
	assert.Empty(t, *slept)
	assert.Equal(t, int32(1), limiter.waits)
}

func TestFetchEmptyResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"results":0,"response":[]}`))
	}))
	defer server.Close()

	client, _, _ := newTestClient(t, server.URL)

	envelope, err := client.FetchWithRetry(context.Background(), "/players/profiles?player=999")
	require.NoError(t, err)
	assert.Empty(t, envelope.Response)
}

func TestRateLimitBackoffEscalates(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"results":1,"response":[{}]}`))
	}))
	defer server.Close()

	client, slept, limiter := newTestClient(t, server.URL)

	_, err := client.FetchWithRetry(context.Background(), "/players/profiles?player=1")
	require.NoError(t, err)

	// Two throttled attempts before success: 5s then 10s.
	assert.Equal(t, []time.Duration{5 * time.Second, 10 * time.Second}, *slept)
	assert.Equal(t, int32(3), limiter.waits)
}

func TestTransientBackoffEscalates(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"results":1,"response":[{}]}`))
	}))
	defer server.Close()

	client, slept, _ := newTestClient(t, server.URL)

	_, err := client.FetchWithRetry(context.Background(), "/players/profiles?player=1")
	require.NoError(t, err)

	assert.Equal(t, []time.Duration{1 * time.Second, 2 * time.Second}, *slept)
}

func TestExhaustedRetriesReturnsTerminalError(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client, slept, limiter := newTestClient(t, server.URL)

	_, err := client.FetchWithRetry(context.Background(), "/players/profiles?player=1")
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeInternal))
	assert.Equal(t, int32(3), calls)
	// No sleep after the final attempt.
	assert.Equal(t, []time.Duration{1 * time.Second, 2 * time.Second}, *slept)
	assert.Equal(t, int32(3), limiter.waits)
}

func TestNetworkFailureClassifiedAsConnection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	url := server.URL
	server.Close()

	client, _, _ := newTestClient(t, url)

	_, err := client.doRequest(context.Background(), "/players/profiles?player=1")
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeConnection))
}

func TestBackoffHonorsCancelledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client, _, _ := newTestClient(t, server.URL)
	client.sleep = sleepContext

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.FetchWithRetry(ctx, "/players/profiles?player=1")
	require.Error(t, err)
}

func TestMalformedBodyIsInternal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer server.Close()

	client, _, _ := newTestClient(t, server.URL)

	_, err := client.FetchWithRetry(context.Background(), "/players/profiles?player=1")
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeInternal))
}
