package calendar

import (
	"testing"
	"time"
)

func TestNextOccurrence_StrictlyFuture(t *testing.T) {
	start := date(t, "2026-02-09") // Monday
	for i := 0; i < 7; i++ {
		from := start.AddDays(i)
		for _, target := range Weekdays {
			got := NextOccurrence(from, target)

			if Weekday(got) != target {
				t.Errorf("NextOccurrence(%s, %s) = %s (%s)", from, target, got, Weekday(got))
			}
			days := got.DaysSince(from)
			if days < 1 || days > 7 {
				t.Errorf("NextOccurrence(%s, %s) is %d days away, want 1..7", from, target, days)
			}
			if Weekday(from) == target && days != 7 {
				t.Errorf("NextOccurrence(%s, %s) from same weekday = +%d, want +7", from, target, days)
			}
		}
	}
}

func TestNextOccurrence_Examples(t *testing.T) {
	friday := date(t, "2026-02-13")

	tests := []struct {
		target time.Weekday
		want   string
	}{
		{time.Monday, "2026-02-16"},
		{time.Tuesday, "2026-02-17"},
		{time.Wednesday, "2026-02-18"},
		{time.Thursday, "2026-02-19"},
		{time.Friday, "2026-02-20"},
		{time.Saturday, "2026-02-14"},
		{time.Sunday, "2026-02-15"},
	}

	for _, tt := range tests {
		t.Run(tt.target.String(), func(t *testing.T) {
			if got := NextOccurrence(friday, tt.target); got.String() != tt.want {
				t.Errorf("NextOccurrence(Friday, %s) = %s, want %s", tt.target, got, tt.want)
			}
		})
	}
}

func TestStartAndEndOfWeek(t *testing.T) {
	tests := []struct {
		day        string
		wantMonday string
		wantSunday string
	}{
		{"2026-02-09", "2026-02-09", "2026-02-15"}, // Monday
		{"2026-02-13", "2026-02-09", "2026-02-15"}, // Friday
		{"2026-02-15", "2026-02-09", "2026-02-15"}, // Sunday
		{"2027-01-01", "2026-12-28", "2027-01-03"}, // Friday across new year
	}

	for _, tt := range tests {
		t.Run(tt.day, func(t *testing.T) {
			d := date(t, tt.day)
			if got := StartOfWeek(d); got.String() != tt.wantMonday {
				t.Errorf("StartOfWeek(%s) = %s, want %s", tt.day, got, tt.wantMonday)
			}
			if got := EndOfWeek(d); got.String() != tt.wantSunday {
				t.Errorf("EndOfWeek(%s) = %s, want %s", tt.day, got, tt.wantSunday)
			}
		})
	}
}

func TestNextWeekMonday(t *testing.T) {
	tests := []struct {
		day  string
		want string
	}{
		{"2026-02-09", "2026-02-16"}, // Monday -> following Monday
		{"2026-02-13", "2026-02-16"},
		{"2026-02-15", "2026-02-16"}, // Sunday -> next day
	}

	for _, tt := range tests {
		t.Run(tt.day, func(t *testing.T) {
			if got := NextWeekMonday(date(t, tt.day)); got.String() != tt.want {
				t.Errorf("NextWeekMonday(%s) = %s, want %s", tt.day, got, tt.want)
			}
		})
	}
}
