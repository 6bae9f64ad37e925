// Package config loads the service configuration from YAML, an optional
// dotenv file and environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/datecontext/pkg/logging"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Transports for the tool server.
const (
	TransportHTTP  = "http"
	TransportStdio = "stdio"
)

// Holiday providers.
const (
	HolidayProviderNager   = "nager"
	HolidayProviderOffline = "offline"
)

// Cache backends.
const (
	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
)

// DefaultEnvFile is loaded before environment overrides when present.
const DefaultEnvFile = ".env.local"

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level service configuration.
type Config struct {
	Server      Server      `yaml:"server"`
	Google      Google      `yaml:"google"`
	Holidays    Holidays    `yaml:"holidays"`
	DateService DateService `yaml:"date_service"`
	Cache       Cache       `yaml:"cache"`
	Upstream    Upstream    `yaml:"upstream"`
	Logging     Logging     `yaml:"logging"`
}

// Server holds the tool server listener configuration.
type Server struct {
	Addr      string `yaml:"addr"`
	Transport string `yaml:"transport"`

	// APIKey, when set, is required in the X-API-Key header on /mcp.
	APIKey string `yaml:"api_key"`

	// RequestsPerMinute limits /mcp calls per client IP; 0 disables.
	RequestsPerMinute int `yaml:"requests_per_minute"`
}

// Google holds credentials and endpoints for the geocoding provider.
type Google struct {
	APIKey      string `yaml:"api_key"`
	GeocodeURL  string `yaml:"geocode_url"`
	TimeZoneURL string `yaml:"timezone_url"`
}

// Holidays configures the holiday provider and startup prefetch.
type Holidays struct {
	Provider         string   `yaml:"provider"`
	BaseURL          string   `yaml:"base_url"`
	PrewarmCountries []string `yaml:"prewarm_countries"`
	PrewarmWorkers   int      `yaml:"prewarm_workers"`
}

// DateService holds the cache lifetimes and lookahead window.
type DateService struct {
	GeocodeCacheTTLDays  int `yaml:"geocode_cache_ttl_days"`
	HolidayCacheTTLDays  int `yaml:"holiday_cache_ttl_days"`
	HolidayLookaheadDays int `yaml:"holiday_lookahead_days"`
}

// Cache selects the cache backend.
type Cache struct {
	Backend   string `yaml:"backend"`
	RedisAddr string `yaml:"redis_addr"`
	RedisDB   int    `yaml:"redis_db"`
}

// Upstream configures outbound HTTP pacing.
type Upstream struct {
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Burst             int           `yaml:"burst"`
	Timeout           time.Duration `yaml:"timeout"`
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Server: Server{
			Addr:              ":8080",
			Transport:         TransportHTTP,
			RequestsPerMinute: 100,
		},
		Holidays: Holidays{
			Provider:       HolidayProviderNager,
			PrewarmWorkers: 4,
		},
		DateService: DateService{
			GeocodeCacheTTLDays:  7,
			HolidayCacheTTLDays:  30,
			HolidayLookaheadDays: 90,
		},
		Cache: Cache{
			Backend:   CacheBackendMemory,
			RedisAddr: "localhost:6379",
		},
		Upstream: Upstream{
			RequestsPerSecond: 10,
			Burst:             20,
			Timeout:           10 * time.Second,
		},
		Logging: Logging{
			Level: "info",
		},
	}
}

// GeocodeCacheTTL returns the resolved location lifetime.
func (d DateService) GeocodeCacheTTL() time.Duration {
	return time.Duration(d.GeocodeCacheTTLDays) * 24 * time.Hour
}

// HolidayCacheTTL returns the country-year holiday list lifetime.
func (d DateService) HolidayCacheTTL() time.Duration {
	return time.Duration(d.HolidayCacheTTLDays) * 24 * time.Hour
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Load reads the YAML file at path over the defaults, then applies
// environment overrides. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadEnvFile loads KEY=VALUE pairs from path into the process environment.
// A missing file is not an error; variables already set are kept.
func LoadEnvFile(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("GOOGLE_API_KEY"); v != "" {
		cfg.Google.APIKey = v
	}

	if v := os.Getenv("PORT"); v != "" {
		if _, err := strconv.Atoi(v); err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		cfg.Server.Addr = ":" + v
	}

	if v := os.Getenv("MCP_API_KEY"); v != "" {
		cfg.Server.APIKey = v
	}

	if v := os.Getenv("MCP_TRANSPORT"); v != "" {
		cfg.Server.Transport = v
	}

	if v := os.Getenv("HOLIDAY_PROVIDER"); v != "" {
		cfg.Holidays.Provider = v
	}

	if v := os.Getenv("CACHE_BACKEND"); v != "" {
		cfg.Cache.Backend = v
	}

	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Cache.RedisAddr = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	return nil
}

// Validate rejects values the service cannot run with.
func (c *Config) Validate() error {
	var errs []error

	switch c.Server.Transport {
	case TransportHTTP, TransportStdio:
	default:
		errs = append(errs, fmt.Errorf("server.transport must be %q or %q (got %q)", TransportHTTP, TransportStdio, c.Server.Transport))
	}

	if c.Server.RequestsPerMinute < 0 {
		errs = append(errs, fmt.Errorf("server.requests_per_minute must not be negative (got %d)", c.Server.RequestsPerMinute))
	}

	switch c.Holidays.Provider {
	case HolidayProviderNager, HolidayProviderOffline:
	default:
		errs = append(errs, fmt.Errorf("holidays.provider must be %q or %q (got %q)", HolidayProviderNager, HolidayProviderOffline, c.Holidays.Provider))
	}

	switch c.Cache.Backend {
	case CacheBackendMemory:
	case CacheBackendRedis:
		if strings.TrimSpace(c.Cache.RedisAddr) == "" {
			errs = append(errs, errors.New("cache.redis_addr is required for the redis backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("cache.backend must be %q or %q (got %q)", CacheBackendMemory, CacheBackendRedis, c.Cache.Backend))
	}

	if c.DateService.GeocodeCacheTTLDays <= 0 {
		errs = append(errs, fmt.Errorf("date_service.geocode_cache_ttl_days must be positive (got %d)", c.DateService.GeocodeCacheTTLDays))
	}
	if c.DateService.HolidayCacheTTLDays <= 0 {
		errs = append(errs, fmt.Errorf("date_service.holiday_cache_ttl_days must be positive (got %d)", c.DateService.HolidayCacheTTLDays))
	}
	if c.DateService.HolidayLookaheadDays <= 0 {
		errs = append(errs, fmt.Errorf("date_service.holiday_lookahead_days must be positive (got %d)", c.DateService.HolidayLookaheadDays))
	}

	if c.Upstream.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("upstream.timeout must be positive (got %s)", c.Upstream.Timeout))
	}

	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, fmt.Errorf("logging.level: %w", err))
	}

	return errors.Join(errs...)
}
