package main

import (
	"context"
	"fmt"

	"github.com/Sternrassler/datecontext/internal/config"
	"github.com/Sternrassler/datecontext/internal/mcpserver"
	"github.com/Sternrassler/datecontext/pkg/cache"
	"github.com/Sternrassler/datecontext/pkg/client"
	"github.com/Sternrassler/datecontext/pkg/datecontext"
	"github.com/Sternrassler/datecontext/pkg/holidays"
	"github.com/Sternrassler/datecontext/pkg/location"
	"github.com/Sternrassler/datecontext/pkg/ratelimit"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// app wires the components for one command run.
type app struct {
	cfg    *config.Config
	logger zerolog.Logger

	redis    *redis.Client
	google   *location.GoogleClient
	nager    *holidays.NagerClient
	resolver *location.Resolver
	catalog  *holidays.Catalog
	service  *datecontext.Service
}

// newApp builds the holiday catalog and, when withLocation is set, the
// location resolver and date context service on top of it.
func newApp(ctx context.Context, cfg *config.Config, logger zerolog.Logger, withLocation bool) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	// Step 1: Shared cache backend
	if cfg.Cache.Backend == config.CacheBackendRedis {
		a.redis = redis.NewClient(&redis.Options{
			Addr: cfg.Cache.RedisAddr,
			DB:   cfg.Cache.RedisDB,
		})
		if err := a.redis.Ping(ctx).Err(); err != nil {
			a.close()
			return nil, fmt.Errorf("connect to redis at %s: %w", cfg.Cache.RedisAddr, err)
		}
		logger.Info().Str("addr", cfg.Cache.RedisAddr).Int("db", cfg.Cache.RedisDB).Msg("Connected to Redis")
	}

	// Step 2: Holiday catalog
	provider, err := a.holidayProvider()
	if err != nil {
		a.close()
		return nil, err
	}
	catalogCfg := holidays.DefaultConfig()
	catalogCfg.CacheTTL = cfg.DateService.HolidayCacheTTL()
	if a.redis != nil {
		catalogCfg.Store = cache.NewRedisStore[[]holidays.PublicHoliday](a.redis, holidays.CacheName, nil)
	}
	a.catalog, err = holidays.NewCatalog(provider, catalogCfg, logger)
	if err != nil {
		a.close()
		return nil, err
	}

	if !withLocation {
		return a, nil
	}

	// Step 3: Location resolver
	a.google, err = location.NewGoogleClient(location.GoogleConfig{
		APIKey:      cfg.Google.APIKey,
		GeocodeURL:  cfg.Google.GeocodeURL,
		TimeZoneURL: cfg.Google.TimeZoneURL,
		Client:      upstreamConfig(cfg, location.ProviderGeocode),
	}, logger)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("%w (set GOOGLE_API_KEY or google.api_key)", err)
	}

	resolverCfg := location.DefaultConfig()
	resolverCfg.CacheTTL = cfg.DateService.GeocodeCacheTTL()
	if a.redis != nil {
		resolverCfg.Positive = cache.NewRedisStore[location.ResolvedLocation](a.redis, location.CacheNamePositive, nil)
		resolverCfg.Negative = cache.NewRedisStore[location.NotFoundMarker](a.redis, location.CacheNameNegative, nil)
	}
	a.resolver, err = location.NewResolver(a.google, resolverCfg, logger)
	if err != nil {
		a.close()
		return nil, err
	}

	// Step 4: Date context service
	a.service, err = datecontext.NewService(a.resolver, a.catalog, datecontext.Config{
		LookaheadDays: cfg.DateService.HolidayLookaheadDays,
	}, logger)
	if err != nil {
		a.close()
		return nil, err
	}

	return a, nil
}

func (a *app) holidayProvider() (holidays.Provider, error) {
	if a.cfg.Holidays.Provider == config.HolidayProviderOffline {
		a.logger.Info().Msg("Using offline holiday provider")
		return holidays.NewOfflineProvider(), nil
	}

	nager, err := holidays.NewNagerClient(a.cfg.Holidays.BaseURL, upstreamConfig(a.cfg, holidays.ProviderNager), a.logger)
	if err != nil {
		return nil, err
	}
	a.nager = nager
	return nager, nil
}

func upstreamConfig(cfg *config.Config, provider string) client.Config {
	c := client.DefaultConfig(provider)
	c.UserAgent = "datecontext/" + mcpserver.Version
	c.Timeout = cfg.Upstream.Timeout
	c.RequestsPerSecond = cfg.Upstream.RequestsPerSecond
	c.Burst = cfg.Upstream.Burst
	return c
}

// health reports provider pacing state and cache counters.
func (a *app) health() mcpserver.Health {
	var providers []ratelimit.State
	if a.google != nil {
		providers = append(providers, a.google.RateLimitStates()...)
	}
	if a.nager != nil {
		providers = append(providers, a.nager.RateLimitState())
	}

	h := mcpserver.Health{Providers: providers}
	if a.resolver != nil {
		stats := a.resolver.Stats()
		h.Location = &stats
	}
	if a.catalog != nil {
		stats := a.catalog.Stats()
		h.Holidays = &stats
	}
	return h
}

func (a *app) close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn().Err(err).Msg("Failed to close Redis client")
		}
	}
}
