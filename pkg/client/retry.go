package client

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for retry operations.
var (
	retriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "datecontext_retries_total",
		Help: "Total number of retry attempts by provider",
	}, []string{"provider"})

	retryDelaySeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "datecontext_retry_delay_seconds",
		Help:    "Delay before retries by provider",
		Buckets: []float64{0.1, 0.5, 1, 2, 5},
	}, []string{"provider"})

	retryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "datecontext_retry_exhausted_total",
		Help: "Total number of times retry attempts were exhausted by provider",
	}, []string{"provider"})
)

// RetryConfig holds the configuration for retry logic.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (including the initial request).
	MaxAttempts int

	// Delay is the wait before the first retry.
	Delay time.Duration

	// BackoffMultiplier scales the delay after each retry. Values <= 1 keep
	// the delay fixed.
	BackoffMultiplier float64

	// MaxDelay caps the delay when BackoffMultiplier > 1. Zero means no cap.
	MaxDelay time.Duration
}

// OverQueryLimitRetryConfig is the policy for provider over-limit statuses:
// the initial call plus 2 retries, 1 second apart.
func OverQueryLimitRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		Delay:             1 * time.Second,
		BackoffMultiplier: 1,
	}
}

// Retry runs fn until it succeeds, returns an error retryIf rejects, or
// MaxAttempts is reached. Delays between attempts observe ctx.
func Retry(ctx context.Context, provider string, config RetryConfig, retryIf func(error) bool, fn func() error) error {
	if config.MaxAttempts < 1 {
		config.MaxAttempts = 1
	}

	var lastErr error
	delay := config.Delay

	for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
		err := fn()
		if err == nil {
			if attempt > 1 {
				log.Info().
					Str("provider", provider).
					Int("attempt", attempt).
					Msg("Request succeeded after retry")
			}
			return nil
		}

		lastErr = err

		if !retryIf(err) {
			return err
		}

		// If this was the last attempt, don't wait
		if attempt >= config.MaxAttempts {
			break
		}

		retriesTotal.WithLabelValues(provider).Inc()
		retryDelaySeconds.WithLabelValues(provider).Observe(delay.Seconds())

		log.Warn().
			Str("provider", provider).
			Int("attempt", attempt).
			Int("max_attempts", config.MaxAttempts).
			Dur("delay", delay).
			Msg("Retrying request after delay")

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			log.Warn().
				Str("provider", provider).
				Int("attempt", attempt).
				Msg("Context cancelled during retry delay")
			return fmt.Errorf("%w: %w", ErrContextCancelled, ctx.Err())
		case <-timer.C:
		}

		if config.BackoffMultiplier > 1 {
			delay = time.Duration(float64(delay) * config.BackoffMultiplier)
			if config.MaxDelay > 0 && delay > config.MaxDelay {
				delay = config.MaxDelay
			}
		}
	}

	retryExhaustedTotal.WithLabelValues(provider).Inc()
	log.Warn().
		Str("provider", provider).
		Int("max_attempts", config.MaxAttempts).
		Msg("Retry attempts exhausted")

	return fmt.Errorf("%w after %d attempts: %w", ErrRetryExhausted, config.MaxAttempts, lastErr)
}
