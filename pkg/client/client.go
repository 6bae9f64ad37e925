// Package client provides the shared HTTP client used to reach upstream
// providers, with pacing, error classification and metrics.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/Sternrassler/datecontext/pkg/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for upstream client operations.
var (
	upstreamRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "datecontext_upstream_requests_total",
		Help: "Total upstream requests by provider and status",
	}, []string{"provider", "status"})

	upstreamRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "datecontext_upstream_request_duration_seconds",
		Help:    "Upstream request duration in seconds by provider",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"provider"})

	upstreamErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "datecontext_upstream_errors_total",
		Help: "Total upstream errors by provider and class",
	}, []string{"provider", "class"})
)

// maxErrorBody bounds how much of an error response is kept for logs.
const maxErrorBody = 512

// Config holds the client configuration.
type Config struct {
	// Provider labels logs and metrics (e.g. "google_geocode", "nager").
	Provider string

	// UserAgent header sent with every request
	UserAgent string

	// Timeout per request
	Timeout time.Duration

	// Pacing
	RequestsPerSecond float64
	Burst             int
}

// DefaultConfig returns a safe default configuration for provider.
func DefaultConfig(provider string) Config {
	return Config{
		Provider:          provider,
		UserAgent:         "datecontext/0.1.0",
		Timeout:           10 * time.Second,
		RequestsPerSecond: ratelimit.DefaultRequestsPerSecond,
		Burst:             ratelimit.DefaultBurst,
	}
}

// Client performs JSON GET requests against one upstream provider.
type Client struct {
	httpClient *http.Client
	limiter    *ratelimit.Tracker
	config     Config
	logger     zerolog.Logger
}

// New creates a new upstream client.
func New(cfg Config, logger zerolog.Logger) (*Client, error) {
	if cfg.Provider == "" {
		return nil, fmt.Errorf("provider name is required")
	}
	if cfg.Timeout <= 0 {
		return nil, fmt.Errorf("timeout must be positive (got %s)", cfg.Timeout)
	}

	logger = logger.With().Str("provider", cfg.Provider).Logger()

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		limiter: ratelimit.NewTracker(cfg.Provider, cfg.RequestsPerSecond, cfg.Burst, logger),
		config:  cfg,
		logger:  logger,
	}, nil
}

// GetJSON performs a GET on rawURL and decodes a 2xx JSON body into out.
// It returns the HTTP status code. A 204 response leaves out untouched.
// Non-2xx responses and transport failures are returned as *UpstreamError;
// cancellation is returned wrapping ErrContextCancelled.
//
// rawURL may carry credentials, so it is never logged.
func (c *Client) GetJSON(ctx context.Context, rawURL string, out any) (int, error) {
	provider := c.config.Provider

	// Step 1: Pace the request
	if err := c.limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return 0, fmt.Errorf("%w: %w", ErrContextCancelled, ctx.Err())
		}
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")

	// Step 2: Execute
	startTime := time.Now()
	resp, err := c.httpClient.Do(req)
	upstreamRequestDuration.WithLabelValues(provider).Observe(time.Since(startTime).Seconds())

	if err != nil {
		if ctx.Err() != nil {
			upstreamRequestsTotal.WithLabelValues(provider, "cancelled").Inc()
			return 0, fmt.Errorf("%w: %w", ErrContextCancelled, ctx.Err())
		}
		upstreamErrorsTotal.WithLabelValues(provider, string(ErrorClassNetwork)).Inc()
		upstreamRequestsTotal.WithLabelValues(provider, "network_error").Inc()
		c.logger.Error().Err(redactURLError(err)).Msg("Upstream request failed")
		return 0, &UpstreamError{
			Provider:   provider,
			ErrorClass: ErrorClassNetwork,
			Message:    "request failed",
			Err:        redactURLError(err),
		}
	}
	defer resp.Body.Close()

	upstreamRequestsTotal.WithLabelValues(provider, strconv.Itoa(resp.StatusCode)).Inc()

	// Step 3: Classify HTTP errors
	if resp.StatusCode >= 400 {
		errClass := classifyStatus(resp.StatusCode)
		upstreamErrorsTotal.WithLabelValues(provider, string(errClass)).Inc()

		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.logger.Warn().
			Int("status", resp.StatusCode).
			Str("error_class", string(errClass)).
			Msg("Upstream request error")

		return resp.StatusCode, &UpstreamError{
			Provider:   provider,
			StatusCode: resp.StatusCode,
			ErrorClass: errClass,
			Message:    string(body),
		}
	}

	if resp.StatusCode == http.StatusNoContent {
		return resp.StatusCode, nil
	}

	// Step 4: Decode
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		upstreamErrorsTotal.WithLabelValues(provider, string(ErrorClassDecode)).Inc()
		c.logger.Warn().Err(err).Int("status", resp.StatusCode).Msg("Failed to decode upstream response")
		return resp.StatusCode, &UpstreamError{
			Provider:   provider,
			StatusCode: resp.StatusCode,
			ErrorClass: ErrorClassDecode,
			Message:    "invalid response body",
			Err:        err,
		}
	}

	c.logger.Debug().Int("status", resp.StatusCode).Msg("Upstream request complete")
	return resp.StatusCode, nil
}

// RateLimit exposes the provider's rate limit tracker.
func (c *Client) RateLimit() *ratelimit.Tracker {
	return c.limiter
}

// Provider returns the provider name.
func (c *Client) Provider() string {
	return c.config.Provider
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// classifyStatus categorizes an HTTP error status.
func classifyStatus(status int) ErrorClass {
	switch {
	case status == http.StatusTooManyRequests:
		return ErrorClassRateLimit
	case status >= 500:
		return ErrorClassServer
	default:
		return ErrorClassClient
	}
}

// redactURLError strips the request URL (which may hold an API key) from
// transport errors.
func redactURLError(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("%s: %w", urlErr.Op, urlErr.Err)
	}
	return err
}
