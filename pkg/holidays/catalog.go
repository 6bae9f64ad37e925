package holidays

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"cloud.google.com/go/civil"
	"github.com/Sternrassler/datecontext/pkg/cache"
	"github.com/Sternrassler/datecontext/pkg/client"
	"github.com/rs/zerolog"
)

// CacheName is the holiday cache name used for keys and metrics.
const CacheName = "holidays"

// Config holds the catalog configuration.
type Config struct {
	// CacheTTL is how long a country-year list is kept, including empty ones.
	CacheTTL time.Duration

	// Store is the per-year cache; an in-memory store when nil.
	Store cache.Store[[]PublicHoliday]

	// Now is the wall clock; time.Now when nil.
	Now func() time.Time
}

// DefaultConfig returns the default catalog configuration (30 day TTL).
func DefaultConfig() Config {
	return Config{
		CacheTTL: 30 * 24 * time.Hour,
	}
}

// Stats holds catalog counters.
type Stats struct {
	CacheHits    int64 `json:"cache_hits"`
	CacheMisses  int64 `json:"cache_misses"`
	Fetches      int64 `json:"fetches"`
	EmptyResults int64 `json:"empty_results"`
}

// Catalog serves public holidays per country, caching each country-year.
// It is safe for concurrent use; concurrent misses may each fetch.
type Catalog struct {
	provider Provider
	store    cache.Store[[]PublicHoliday]
	config   Config
	now      func() time.Time
	logger   zerolog.Logger

	cacheHits    atomic.Int64
	cacheMisses  atomic.Int64
	fetches      atomic.Int64
	emptyResults atomic.Int64
}

// NewCatalog creates a catalog backed by provider.
func NewCatalog(provider Provider, cfg Config, logger zerolog.Logger) (*Catalog, error) {
	if provider == nil {
		return nil, fmt.Errorf("holiday provider is required")
	}
	if cfg.CacheTTL <= 0 {
		return nil, fmt.Errorf("cache ttl must be positive (got %s)", cfg.CacheTTL)
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	store := cfg.Store
	if store == nil {
		store = cache.NewMemoryStore[[]PublicHoliday](CacheName, now)
	}

	return &Catalog{
		provider: provider,
		store:    store,
		config:   cfg,
		now:      now,
		logger:   logger.With().Str("component", "holiday-catalog").Str("provider", provider.Name()).Logger(),
	}, nil
}

// GetHolidays returns the holidays in [start, end] that apply to subdivision,
// sorted ascending by date. Each calendar year in the range is fetched once.
func (c *Catalog) GetHolidays(ctx context.Context, countryCode string, start, end civil.Date, subdivision string) ([]PublicHoliday, error) {
	result := []PublicHoliday{}

	for year := start.Year; year <= end.Year; year++ {
		yearHolidays, err := c.yearHolidays(ctx, countryCode, year)
		if err != nil {
			return nil, err
		}

		for _, h := range yearHolidays {
			if h.Date.Before(start) || h.Date.After(end) {
				continue
			}
			if !h.AppliesTo(subdivision) {
				continue
			}
			result = append(result, h)
		}
	}

	slices.SortStableFunc(result, func(a, b PublicHoliday) int {
		switch {
		case a.Date.Before(b.Date):
			return -1
		case a.Date.After(b.Date):
			return 1
		}
		return 0
	})

	return result, nil
}

// GetHolidayForDate returns the first holiday on date that applies to
// subdivision, or nil.
func (c *Catalog) GetHolidayForDate(ctx context.Context, countryCode string, date civil.Date, subdivision string) (*PublicHoliday, error) {
	yearHolidays, err := c.yearHolidays(ctx, countryCode, date.Year)
	if err != nil {
		return nil, err
	}

	for _, h := range yearHolidays {
		if h.Date == date && h.AppliesTo(subdivision) {
			holiday := h
			return &holiday, nil
		}
	}
	return nil, nil
}

// Prefetch loads one country-year into the cache.
func (c *Catalog) Prefetch(ctx context.Context, countryCode string, year int) (int, error) {
	holidays, err := c.yearHolidays(ctx, countryCode, year)
	return len(holidays), err
}

// Stats returns a snapshot of the catalog counters.
func (c *Catalog) Stats() Stats {
	return Stats{
		CacheHits:    c.cacheHits.Load(),
		CacheMisses:  c.cacheMisses.Load(),
		Fetches:      c.fetches.Load(),
		EmptyResults: c.emptyResults.Load(),
	}
}

func (c *Catalog) yearHolidays(ctx context.Context, countryCode string, year int) ([]PublicHoliday, error) {
	cc := strings.ToUpper(countryCode)
	key := cache.HolidayKey(cc, year)

	// Step 1: Cache
	if entry, err := c.store.Get(ctx, key); err == nil {
		c.cacheHits.Add(1)
		c.logger.Debug().Str("country", cc).Int("year", year).Msg("Using cached holidays")
		return entry.Value, nil
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		c.logger.Warn().Err(err).Str("key", key).Msg("Holiday cache get error")
	}
	c.cacheMisses.Add(1)

	// Step 2: Fetch
	c.logger.Info().Str("country", cc).Int("year", year).Msg("Fetching holidays")
	c.fetches.Add(1)

	holidays, err := c.provider.PublicHolidays(ctx, year, cc)
	switch {
	case err == nil:
	case errors.Is(err, ErrNoData):
		c.emptyResults.Add(1)
		c.logger.Warn().Str("country", cc).Int("year", year).Msg("No holidays found")
		holidays = []PublicHoliday{}
	case errors.Is(err, client.ErrContextCancelled),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded),
		client.IsNetwork(err):
		return nil, err
	default:
		c.logger.Error().Err(err).Str("country", cc).Int("year", year).Msg("Holiday provider failed")
		return nil, &ServiceError{CountryCode: cc, Year: year, Err: err}
	}
	if holidays == nil {
		holidays = []PublicHoliday{}
	}

	// Step 3: Store, including empty lists
	if err := c.store.Set(ctx, key, cache.NewEntry(holidays, c.now(), c.config.CacheTTL)); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("Failed to cache holidays")
	}

	c.logger.Info().Str("country", cc).Int("year", year).Int("count", len(holidays)).Msg("Cached holidays")
	return holidays, nil
}
