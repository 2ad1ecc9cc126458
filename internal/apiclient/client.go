// Package apiclient issues authenticated requests to the external sports-data
// API with rate limiting, retry with differentiated backoff, and a circuit
// breaker around the transport.
package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	apperrors "transfer-dashboard/internal/common/errors"
	"transfer-dashboard/internal/common/logging"
)

const (
	// Backoff bases. Server-side throttling (429) gets the longer escalating
	// cool-down; transient failures the shorter one. Both scale linearly with
	// the attempt number.
	quotaBackoffBase     = 5 * time.Second
	transientBackoffBase = 1 * time.Second

	defaultMaxRetries = 3
)

// Limiter gates outbound requests. Satisfied by *ratelimit.Limiter.
type Limiter interface {
	Wait(ctx context.Context) error
}

// Envelope is the external API's response wrapper. "Not found" is signalled
// by an empty Response array, distinct from an HTTP error.
type Envelope struct {
	Results  int               `json:"results"`
	Response []json.RawMessage `json:"response"`
}

// Config holds client construction parameters.
type Config struct {
	BaseURL    string
	APIKey     string
	MaxRetries int
	Timeout    time.Duration
	Limiter    Limiter
	HTTPClient *http.Client
	Logger     logging.Logger
}

// Client is the resilient sports-data API client.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	maxRetries int
	limiter    Limiter
	breaker    *gobreaker.CircuitBreaker
	logger     logging.Logger

	// sleep is an injection point for backoff tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a client. Construction fails on missing credentials so the
// pipeline cannot start half-configured.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, apperrors.ConfigError("API base URL is required")
	}
	if cfg.APIKey == "" {
		return nil, apperrors.ConfigError("API key is required")
	}
	if cfg.MaxRetries < 1 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.GetGlobalLogger()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "sports-api",
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.Requests >= 5 && counts.TotalFailures > counts.Requests/2
		},
	})

	return &Client{
		httpClient: httpClient,
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		maxRetries: cfg.MaxRetries,
		limiter:    cfg.Limiter,
		breaker:    breaker,
		logger:     cfg.Logger,
		sleep:      sleepContext,
	}, nil
}

// FetchWithRetry issues an authenticated GET against the given endpoint
// (path plus query, relative to the base URL), awaiting the rate limiter
// before every attempt.
//
// Per attempt: 2xx returns the parsed envelope; a 429 is retried after
// 5s x attempt; any other failure (non-2xx status or network error) is
// retried after 1s x attempt. After maxRetries attempts the last error is
// returned as terminal and the caller must treat the enrichment as failed.
func (c *Client) FetchWithRetry(ctx context.Context, endpoint string) (*Envelope, error) {
	var lastErr error

	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, apperrors.InternalError("rate limiter wait interrupted", err)
			}
		}

		envelope, err := c.doRequest(ctx, endpoint)
		if err == nil {
			return envelope, nil
		}
		lastErr = err

		if attempt == c.maxRetries {
			break
		}

		backoff := transientBackoffBase * time.Duration(attempt)
		if apperrors.IsType(err, apperrors.ErrTypeRateLimit) {
			backoff = quotaBackoffBase * time.Duration(attempt)
		}

		c.logger.Warn("API request failed, retrying",
			logging.Field{Key: "endpoint", Value: endpoint},
			logging.Field{Key: "attempt", Value: attempt},
			logging.Field{Key: "backoff", Value: backoff.String()},
			logging.Field{Key: "error", Value: err.Error()},
		)

		if err := c.sleep(ctx, backoff); err != nil {
			return nil, apperrors.InternalError("retry backoff interrupted", err)
		}
	}

	return nil, apperrors.InternalError(
		fmt.Sprintf("request failed after %d attempts", c.maxRetries), lastErr)
}

// doRequest executes a single attempt and classifies the outcome.
func (c *Client) doRequest(ctx context.Context, endpoint string) (*Envelope, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return nil, apperrors.InternalError("failed to create request", err)
	}
	req.Header.Set("x-apisports-key", c.apiKey)
	req.Header.Set("Accept", "application/json")

	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.httpClient.Do(req)
	})
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		return nil, apperrors.ConnectionError("circuit breaker open", err)
	}
	if err != nil {
		return nil, apperrors.ConnectionError("request failed", err)
	}

	resp := result.(*http.Response)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.ConnectionError("failed to read response body", err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		envelope := &Envelope{}
		if err := json.Unmarshal(body, envelope); err != nil {
			return nil, apperrors.InternalError("failed to parse API response", err)
		}
		return envelope, nil

	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, apperrors.RateLimitError("sports API")

	default:
		return nil, apperrors.ConnectionError(
			fmt.Sprintf("request failed with status %d", resp.StatusCode), nil)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
