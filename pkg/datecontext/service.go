// Package datecontext composes location resolution, the holiday catalog and
// the calendar engine into a single date context snapshot.
package datecontext

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/Sternrassler/datecontext/pkg/calendar"
	"github.com/Sternrassler/datecontext/pkg/holidays"
	"github.com/Sternrassler/datecontext/pkg/location"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for analyses.
var (
	analysesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "datecontext_analyses_total",
		Help: "Total number of date context analyses by outcome",
	}, []string{"outcome"})

	analysisDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "datecontext_analysis_duration_seconds",
		Help:    "Duration of date context analyses",
		Buckets: prometheus.DefBuckets,
	})
)

const (
	// DefaultLookaheadDays is the holiday window after today.
	DefaultLookaheadDays = 90

	// MaxUpcomingHolidays caps the upcoming holiday list.
	MaxUpcomingHolidays = 10
)

// LocationResolver resolves place names.
type LocationResolver interface {
	Resolve(ctx context.Context, placeName string) (*location.ResolvedLocation, error)
}

// HolidayCatalog serves public holidays for a date range.
type HolidayCatalog interface {
	GetHolidays(ctx context.Context, countryCode string, start, end civil.Date, subdivision string) ([]holidays.PublicHoliday, error)
}

// Config holds the service configuration.
type Config struct {
	// LookaheadDays is how far after today holidays are fetched.
	LookaheadDays int

	// Now is the wall clock; time.Now when nil.
	Now func() time.Time
}

// DefaultConfig returns the default service configuration.
func DefaultConfig() Config {
	return Config{LookaheadDays: DefaultLookaheadDays}
}

// Service builds date context snapshots.
type Service struct {
	resolver LocationResolver
	catalog  HolidayCatalog
	config   Config
	now      func() time.Time
	logger   zerolog.Logger
}

// NewService creates a service.
func NewService(resolver LocationResolver, catalog HolidayCatalog, cfg Config, logger zerolog.Logger) (*Service, error) {
	if resolver == nil {
		return nil, fmt.Errorf("location resolver is required")
	}
	if catalog == nil {
		return nil, fmt.Errorf("holiday catalog is required")
	}
	if cfg.LookaheadDays <= 0 {
		return nil, fmt.Errorf("lookahead days must be positive (got %d)", cfg.LookaheadDays)
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Service{
		resolver: resolver,
		catalog:  catalog,
		config:   cfg,
		now:      now,
		logger:   logger.With().Str("component", "datecontext").Logger(),
	}, nil
}

// AnalyzeDateContext builds the snapshot for placeName. When asOf is set it
// replaces today for all calendar math; the UTC offset and local time in the
// location block still reflect the real current instant.
//
// Errors from the resolver and the catalog are returned unchanged and no
// partial snapshot is produced.
func (s *Service) AnalyzeDateContext(ctx context.Context, placeName string, asOf *civil.Date) (*Snapshot, error) {
	start := time.Now()
	defer func() {
		analysisDuration.Observe(time.Since(start).Seconds())
	}()

	snapshot, err := s.analyze(ctx, placeName, asOf)
	if err != nil {
		analysesTotal.WithLabelValues(Outcome(err)).Inc()
		return nil, err
	}

	analysesTotal.WithLabelValues(OutcomeSuccess).Inc()
	return snapshot, nil
}

func (s *Service) analyze(ctx context.Context, placeName string, asOf *civil.Date) (*Snapshot, error) {
	if strings.TrimSpace(placeName) == "" {
		return nil, ErrMissingLocation
	}

	logEvent := s.logger.Info().Str("place", placeName)
	if asOf != nil {
		logEvent = logEvent.Str("as_of", asOf.String())
	}
	logEvent.Msg("Analyzing date context")

	// Step 1: Resolve location
	loc, err := s.resolver.Resolve(ctx, placeName)
	if err != nil {
		return nil, err
	}

	// Step 2: Local now and today
	zone, err := time.LoadLocation(loc.TimeZoneID)
	if err != nil {
		s.logger.Error().Err(err).Str("time_zone", loc.TimeZoneID).Msg("Unknown time zone")
		return nil, fmt.Errorf("%w %q: %w", ErrUnknownTimeZone, loc.TimeZoneID, err)
	}
	localNow := s.now().In(zone)

	today := civil.DateOf(localNow)
	if asOf != nil {
		today = *asOf
	}

	// Step 3: Holidays for the lookahead window
	lookaheadEnd := today.AddDays(s.config.LookaheadDays)
	allHolidays, err := s.catalog.GetHolidays(ctx, loc.CountryCode, today, lookaheadEnd, loc.SubdivisionCode)
	if err != nil {
		return nil, err
	}

	// Step 4: Assemble
	snapshot := &Snapshot{
		Location:         buildLocationInfo(loc, localNow),
		Today:            buildDateInfo(today, loc.CountryCode, allHolidays),
		Tomorrow:         buildDateInfo(today.AddDays(1), loc.CountryCode, allHolidays),
		DayAfterTomorrow: buildDateInfo(today.AddDays(2), loc.CountryCode, allHolidays),
		ThisWeek:         buildThisWeek(today, loc.CountryCode),
		NextWeek:         buildNextWeek(today, loc.CountryCode),
		UpcomingHolidays: buildUpcomingHolidays(today, allHolidays),
		KeyDates:         buildKeyDates(today, loc.CountryCode),
	}

	s.logger.Info().
		Str("place", placeName).
		Str("country", loc.CountryCode).
		Str("today", today.String()).
		Int("holidays", len(allHolidays)).
		Msg("Date context analysis complete")

	return snapshot, nil
}

func buildLocationInfo(loc *location.ResolvedLocation, localNow time.Time) LocationInfo {
	return LocationInfo{
		ResolvedName:     loc.PlaceName,
		FormattedAddress: loc.FormattedAddress,
		CountryCode:      loc.CountryCode,
		Timezone:         loc.TimeZoneID,
		UTCOffset:        FormatOffset(localNow),
		CurrentLocalTime: localNow.Format("2006-01-02T15:04:05"),
	}
}

// FormatOffset renders t's UTC offset as ±HH:mm.
func FormatOffset(t time.Time) string {
	_, offset := t.Zone()
	sign := '+'
	if offset < 0 {
		sign = '-'
		offset = -offset
	}
	return fmt.Sprintf("%c%02d:%02d", sign, offset/3600, (offset%3600)/60)
}

func buildDateInfo(d civil.Date, countryCode string, all []holidays.PublicHoliday) DateInfo {
	info := DateInfo{
		Date:      d.String(),
		DayOfWeek: calendar.Weekday(d).String(),
		IsWeekend: calendar.IsWeekend(d, countryCode),
	}
	for _, h := range all {
		if h.Date == d {
			name := h.Name
			info.IsHoliday = true
			info.HolidayName = &name
			break
		}
	}
	return info
}

func buildThisWeek(today civil.Date, countryCode string) ThisWeekInfo {
	sunday := calendar.EndOfWeek(today)

	weekendDays := calendar.WeekendDaysFor(countryCode)
	names := make([]string, 0, len(weekendDays))
	for _, day := range weekendDays {
		names = append(names, day.String())
	}

	return ThisWeekInfo{
		WeekendDays:       names,
		WeekendDates:      formatDates(calendar.WeekendDatesInRange(today, sunday, countryCode)),
		RemainingWorkdays: formatDates(calendar.WorkdaysInRange(today, sunday, countryCode)),
	}
}

func buildNextWeek(today civil.Date, countryCode string) NextWeekInfo {
	monday := calendar.NextWeekMonday(today)
	sunday := monday.AddDays(6)

	return NextWeekInfo{
		Monday:       monday.String(),
		Friday:       monday.AddDays(4).String(),
		WeekendDates: formatDates(calendar.WeekendDatesInRange(monday, sunday, countryCode)),
		Workdays:     formatDates(calendar.WorkdaysInRange(monday, sunday, countryCode)),
	}
}

func buildUpcomingHolidays(today civil.Date, all []holidays.PublicHoliday) []HolidayInfo {
	upcoming := make([]HolidayInfo, 0, MaxUpcomingHolidays)
	for _, h := range all {
		if !h.Date.After(today) {
			continue
		}
		upcoming = append(upcoming, HolidayInfo{
			Date:      h.Date.String(),
			Name:      h.Name,
			DayOfWeek: calendar.Weekday(h.Date).String(),
		})
		if len(upcoming) == MaxUpcomingHolidays {
			break
		}
	}
	return upcoming
}

func buildKeyDates(today civil.Date, countryCode string) KeyDatesInfo {
	next := func(w time.Weekday) string {
		return calendar.NextOccurrence(today, w).String()
	}
	start, end := calendar.NextWeekendRange(today, countryCode)

	return KeyDatesInfo{
		NextMonday:    next(time.Monday),
		NextTuesday:   next(time.Tuesday),
		NextWednesday: next(time.Wednesday),
		NextThursday:  next(time.Thursday),
		NextFriday:    next(time.Friday),
		NextSaturday:  next(time.Saturday),
		NextSunday:    next(time.Sunday),
		NextWeekend:   WeekendRange{Start: start.String(), End: end.String()},
	}
}

func formatDates(dates []civil.Date) []string {
	out := make([]string, 0, len(dates))
	for _, d := range dates {
		out = append(out, d.String())
	}
	return out
}
