package ratelimit

import (
	"testing"
	"time"
)

func TestState_UpdateHealth(t *testing.T) {
	now := time.Date(2026, 2, 13, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name          string
		lastOverLimit time.Time
		want          bool
	}{
		{
			name: "never throttled",
			want: true,
		},
		{
			name:          "throttled just now",
			lastOverLimit: now,
			want:          false,
		},
		{
			name:          "inside degraded window",
			lastOverLimit: now.Add(-DegradedWindow + time.Second),
			want:          false,
		},
		{
			name:          "window elapsed",
			lastOverLimit: now.Add(-DegradedWindow),
			want:          true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &State{LastOverLimit: tt.lastOverLimit}
			s.UpdateHealth(now)
			if s.IsHealthy != tt.want {
				t.Errorf("IsHealthy = %v, want %v", s.IsHealthy, tt.want)
			}
		})
	}
}

func TestState_TimeSinceOverLimit(t *testing.T) {
	now := time.Date(2026, 2, 13, 12, 0, 0, 0, time.UTC)

	s := &State{}
	if got := s.TimeSinceOverLimit(now); got != 0 {
		t.Errorf("TimeSinceOverLimit() = %v, want 0", got)
	}

	s.LastOverLimit = now.Add(-90 * time.Second)
	if got := s.TimeSinceOverLimit(now); got != 90*time.Second {
		t.Errorf("TimeSinceOverLimit() = %v, want 90s", got)
	}
}
