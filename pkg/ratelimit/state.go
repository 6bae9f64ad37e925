// Package ratelimit paces outbound provider calls and tracks the
// over-query-limit signals providers send back.
package ratelimit

import (
	"time"
)

// Defaults for outbound pacing.
const (
	// DefaultRequestsPerSecond is the sustained rate per provider.
	DefaultRequestsPerSecond = 10.0

	// DefaultBurst is the token bucket size per provider.
	DefaultBurst = 20

	// DegradedWindow is how long a provider counts as throttled after its
	// last over-limit signal.
	DegradedWindow = 5 * time.Minute
)

// State represents the current rate limit state of one provider.
type State struct {
	// Provider is the upstream name (e.g. "google_geocode").
	Provider string `json:"provider"`

	// OverLimitTotal counts over-limit signals since start.
	OverLimitTotal int64 `json:"over_limit_total"`

	// LastOverLimit is when the provider last signalled over-limit.
	// Zero when it never has.
	LastOverLimit time.Time `json:"last_over_limit,omitempty"`

	// IsHealthy is false while within DegradedWindow of LastOverLimit.
	IsHealthy bool `json:"is_healthy"`
}

// UpdateHealth updates IsHealthy as seen from now.
func (s *State) UpdateHealth(now time.Time) {
	s.IsHealthy = s.LastOverLimit.IsZero() || now.Sub(s.LastOverLimit) >= DegradedWindow
}

// TimeSinceOverLimit returns the duration since the last over-limit signal.
// Returns 0 if there never was one.
func (s *State) TimeSinceOverLimit(now time.Time) time.Duration {
	if s.LastOverLimit.IsZero() {
		return 0
	}
	return now.Sub(s.LastOverLimit)
}
