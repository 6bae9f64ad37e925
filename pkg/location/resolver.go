package location

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/Sternrassler/datecontext/pkg/cache"
	"github.com/Sternrassler/datecontext/pkg/client"
	"github.com/rs/zerolog"
)

// Cache names used for keys and metrics.
const (
	CacheNamePositive = "location"
	CacheNameNegative = "location_not_found"
)

// errOverQueryLimit marks a provider response that may be retried.
var errOverQueryLimit = errors.New("provider over query limit")

// NotFoundMarker is the negative cache value for a place that did not resolve.
type NotFoundMarker struct {
	Status string `json:"status"`
}

// Config holds the resolver configuration.
type Config struct {
	// CacheTTL is how long resolved locations are kept.
	CacheTTL time.Duration

	// NegativeCacheTTL is how long "not found" markers are kept.
	NegativeCacheTTL time.Duration

	// Retry governs over-query-limit retries, applied per provider call.
	Retry client.RetryConfig

	// Positive and Negative are the caches; in-memory stores when nil.
	Positive cache.Store[ResolvedLocation]
	Negative cache.Store[NotFoundMarker]

	// Now is the wall clock; time.Now when nil.
	Now func() time.Time
}

// DefaultConfig returns the default resolver configuration: 7 day positive
// TTL, 1 hour negative TTL, 3 attempts 1 second apart on over-limit.
func DefaultConfig() Config {
	return Config{
		CacheTTL:         7 * 24 * time.Hour,
		NegativeCacheTTL: time.Hour,
		Retry:            client.OverQueryLimitRetryConfig(),
	}
}

// Stats holds resolver counters.
type Stats struct {
	CacheHits         int64 `json:"cache_hits"`
	NegativeCacheHits int64 `json:"negative_cache_hits"`
	CacheMisses       int64 `json:"cache_misses"`
	GeocodeCalls      int64 `json:"geocode_calls"`
	TimeZoneCalls     int64 `json:"timezone_calls"`
}

// Resolver resolves place names. It is safe for concurrent use; concurrent
// misses on the same key each call the provider and the last write wins.
type Resolver struct {
	provider Provider
	positive cache.Store[ResolvedLocation]
	negative cache.Store[NotFoundMarker]
	config   Config
	now      func() time.Time
	logger   zerolog.Logger

	cacheHits         atomic.Int64
	negativeCacheHits atomic.Int64
	cacheMisses       atomic.Int64
	geocodeCalls      atomic.Int64
	timezoneCalls     atomic.Int64
}

// NewResolver creates a resolver backed by provider.
func NewResolver(provider Provider, cfg Config, logger zerolog.Logger) (*Resolver, error) {
	if provider == nil {
		return nil, fmt.Errorf("location provider is required")
	}
	if cfg.CacheTTL <= 0 {
		return nil, fmt.Errorf("cache ttl must be positive (got %s)", cfg.CacheTTL)
	}
	if cfg.NegativeCacheTTL <= 0 {
		return nil, fmt.Errorf("negative cache ttl must be positive (got %s)", cfg.NegativeCacheTTL)
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	positive := cfg.Positive
	if positive == nil {
		positive = cache.NewMemoryStore[ResolvedLocation](CacheNamePositive, now)
	}
	negative := cfg.Negative
	if negative == nil {
		negative = cache.NewMemoryStore[NotFoundMarker](CacheNameNegative, now)
	}

	return &Resolver{
		provider: provider,
		positive: positive,
		negative: negative,
		config:   cfg,
		now:      now,
		logger:   logger.With().Str("component", "location-resolver").Logger(),
	}, nil
}

// Resolve returns the location for placeName.
//
// Lookup order: negative cache, positive cache, then geocode followed by a
// timezone lookup at the current wall-clock instant. Failures are *Error,
// except transport failures (*client.UpstreamError of class network) and
// cancellation, which are returned as-is.
func (r *Resolver) Resolve(ctx context.Context, placeName string) (*ResolvedLocation, error) {
	key := cache.LocationKey(placeName)

	// Step 1: Negative cache
	if _, err := r.negative.Get(ctx, key); err == nil {
		r.negativeCacheHits.Add(1)
		r.logger.Debug().Str("place", placeName).Msg("Negative cache hit")
		return nil, errNotFound(placeName)
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		r.logger.Warn().Err(err).Str("place", placeName).Msg("Negative cache get error")
	}

	// Step 2: Positive cache
	if entry, err := r.positive.Get(ctx, key); err == nil {
		r.cacheHits.Add(1)
		r.logger.Debug().Str("place", placeName).Msg("Using cached location")
		loc := entry.Value
		return &loc, nil
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		r.logger.Warn().Err(err).Str("place", placeName).Msg("Location cache get error")
	}

	// Step 3: Resolve upstream
	r.cacheMisses.Add(1)
	r.logger.Info().Str("place", placeName).Msg("Resolving location")

	loc, err := r.resolve(ctx, placeName, key)
	if err != nil {
		return nil, err
	}

	if err := r.positive.Set(ctx, key, cache.NewEntry(*loc, r.now(), r.config.CacheTTL)); err != nil {
		r.logger.Warn().Err(err).Str("place", placeName).Msg("Failed to cache location")
	}

	r.logger.Info().
		Str("place", placeName).
		Str("country", loc.CountryCode).
		Str("time_zone", loc.TimeZoneID).
		Msg("Resolved location")

	return loc, nil
}

func (r *Resolver) resolve(ctx context.Context, placeName, key string) (*ResolvedLocation, error) {
	// Geocode
	var geocode *GeocodeResponse
	err := client.Retry(ctx, ProviderGeocode, r.config.Retry, isOverQueryLimit, func() error {
		r.geocodeCalls.Add(1)
		resp, err := r.provider.Geocode(ctx, placeName)
		if err != nil {
			return err
		}
		if strings.EqualFold(resp.Status, StatusOverQueryLimit) {
			return errOverQueryLimit
		}
		geocode = resp
		return nil
	})
	if err != nil {
		return nil, r.callError(placeName, err)
	}

	if err := r.checkStatus(ctx, geocode.Status, placeName, key); err != nil {
		return nil, err
	}

	if len(geocode.Results) == 0 {
		r.cacheNotFound(ctx, key, StatusZeroResults)
		return nil, errNotFound(placeName)
	}

	result := geocode.Results[0]

	country, ok := findComponent(result.AddressComponents, componentCountry)
	if !ok {
		r.logger.Warn().Str("place", placeName).Msg("Geocoding result has no country component")
		return nil, errNoCountry(placeName)
	}
	countryCode := strings.ToUpper(country.ShortName)

	var subdivision string
	if admin, ok := findComponent(result.AddressComponents, componentAdminLevel1); ok {
		subdivision = subdivisionCode(countryCode, admin.ShortName)
	}

	lat := result.Geometry.Location.Lat
	lng := result.Geometry.Location.Lng

	// Timezone, always at the real current instant
	at := r.now()
	var timezone *TimeZoneResponse
	err = client.Retry(ctx, ProviderTimeZone, r.config.Retry, isOverQueryLimit, func() error {
		r.timezoneCalls.Add(1)
		resp, err := r.provider.TimeZone(ctx, lat, lng, at)
		if err != nil {
			return err
		}
		if strings.EqualFold(resp.Status, StatusOverQueryLimit) {
			return errOverQueryLimit
		}
		timezone = resp
		return nil
	})
	if err != nil {
		return nil, r.callError(placeName, err)
	}

	// Timezone failures are never negatively cached
	if err := r.checkStatus(ctx, timezone.Status, placeName, ""); err != nil {
		return nil, err
	}

	return &ResolvedLocation{
		PlaceName:        placeName,
		FormattedAddress: result.FormattedAddress,
		Latitude:         lat,
		Longitude:        lng,
		TimeZoneID:       timezone.TimeZoneID,
		CountryCode:      countryCode,
		SubdivisionCode:  subdivision,
	}, nil
}

// checkStatus maps a non-OK provider status to an *Error. A ZERO_RESULTS
// status writes a negative cache entry when key is non-empty.
func (r *Resolver) checkStatus(ctx context.Context, status, placeName, key string) error {
	switch strings.ToUpper(status) {
	case StatusOK:
		return nil

	case StatusZeroResults:
		if key != "" {
			r.cacheNotFound(ctx, key, StatusZeroResults)
		}
		return errNotFound(placeName)

	case StatusOverQueryLimit:
		return errRateLimited(nil)

	case StatusRequestDenied:
		r.logger.Error().Str("place", placeName).Msg("Location provider denied the request - check API key configuration")
		return errConfiguration(fmt.Errorf("provider status %s", status))

	default:
		r.logger.Error().Str("place", placeName).Str("status", status).Msg("Location provider returned unexpected status")
		return errUnknown(placeName, fmt.Errorf("provider status %q", status))
	}
}

// callError maps a failed provider call to the error returned by Resolve.
func (r *Resolver) callError(placeName string, err error) error {
	switch {
	case errors.Is(err, client.ErrRetryExhausted):
		r.logger.Warn().Str("place", placeName).Msg("Location provider still over query limit after retries")
		return errRateLimited(err)
	case errors.Is(err, client.ErrContextCancelled),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return err
	case client.IsNetwork(err):
		return err
	}

	var upstreamErr *client.UpstreamError
	if errors.As(err, &upstreamErr) {
		return errServiceUnavailable(placeName, err)
	}
	return errUnknown(placeName, err)
}

func (r *Resolver) cacheNotFound(ctx context.Context, key, status string) {
	entry := cache.NewEntry(NotFoundMarker{Status: status}, r.now(), r.config.NegativeCacheTTL)
	if err := r.negative.Set(ctx, key, entry); err != nil {
		r.logger.Warn().Err(err).Str("key", key).Msg("Failed to cache negative result")
		return
	}
	r.logger.Debug().Str("key", key).Dur("ttl", r.config.NegativeCacheTTL).Msg("Cached negative result")
}

// Stats returns a snapshot of the resolver counters.
func (r *Resolver) Stats() Stats {
	return Stats{
		CacheHits:         r.cacheHits.Load(),
		NegativeCacheHits: r.negativeCacheHits.Load(),
		CacheMisses:       r.cacheMisses.Load(),
		GeocodeCalls:      r.geocodeCalls.Load(),
		TimeZoneCalls:     r.timezoneCalls.Load(),
	}
}

func isOverQueryLimit(err error) bool {
	return errors.Is(err, errOverQueryLimit)
}
