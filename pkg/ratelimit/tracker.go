package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Prometheus metrics for rate limit tracking.
var (
	rateLimitWaitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "datecontext_rate_limit_waits_total",
		Help: "Total number of outbound requests delayed by the local limiter",
	}, []string{"provider"})

	overLimitSignalsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "datecontext_over_limit_signals_total",
		Help: "Total number of over-limit responses received from providers",
	}, []string{"provider"})
)

// Tracker paces requests to one provider with a token bucket and records
// over-limit signals reported by the caller.
type Tracker struct {
	provider string
	limiter  *rate.Limiter
	logger   zerolog.Logger
	now      func() time.Time

	mu    sync.Mutex
	state State
}

// NewTracker creates a tracker for provider. Non-positive values fall back to
// DefaultRequestsPerSecond and DefaultBurst.
func NewTracker(provider string, requestsPerSecond float64, burst int, logger zerolog.Logger) *Tracker {
	if requestsPerSecond <= 0 {
		requestsPerSecond = DefaultRequestsPerSecond
	}
	if burst <= 0 {
		burst = DefaultBurst
	}

	return &Tracker{
		provider: provider,
		limiter:  rate.NewLimiter(rate.Limit(requestsPerSecond), burst),
		logger:   logger,
		now:      time.Now,
		state:    State{Provider: provider, IsHealthy: true},
	}
}

// Wait blocks until a request may be sent or ctx is done.
func (t *Tracker) Wait(ctx context.Context) error {
	if t.limiter.Allow() {
		return nil
	}

	rateLimitWaitsTotal.WithLabelValues(t.provider).Inc()
	t.logger.Debug().Str("provider", t.provider).Msg("Outbound request paced by limiter")

	if err := t.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait: %w", err)
	}
	return nil
}

// RecordOverLimit notes that the provider answered with an over-limit status.
func (t *Tracker) RecordOverLimit() {
	now := t.now()

	t.mu.Lock()
	t.state.OverLimitTotal++
	t.state.LastOverLimit = now
	t.state.UpdateHealth(now)
	total := t.state.OverLimitTotal
	t.mu.Unlock()

	overLimitSignalsTotal.WithLabelValues(t.provider).Inc()
	t.logger.Warn().
		Str("provider", t.provider).
		Int64("over_limit_total", total).
		Msg("Provider signalled over query limit")
}

// State returns a snapshot of the provider's rate limit state.
func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := t.state
	s.UpdateHealth(t.now())
	return s
}
