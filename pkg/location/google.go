package location

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/datecontext/pkg/client"
	"github.com/Sternrassler/datecontext/pkg/ratelimit"
	"github.com/rs/zerolog"
)

// Default Google Maps Platform endpoints.
const (
	DefaultGeocodeURL  = "https://maps.googleapis.com/maps/api/geocode/json"
	DefaultTimeZoneURL = "https://maps.googleapis.com/maps/api/timezone/json"
)

// Provider names used for logs and metrics.
const (
	ProviderGeocode  = "google_geocode"
	ProviderTimeZone = "google_timezone"
)

// Provider is the upstream geocoding and timezone service.
type Provider interface {
	// Geocode looks up a free-text address.
	Geocode(ctx context.Context, address string) (*GeocodeResponse, error)

	// TimeZone looks up the zone at a coordinate for instant at.
	TimeZone(ctx context.Context, lat, lng float64, at time.Time) (*TimeZoneResponse, error)
}

// GoogleConfig holds the Google provider configuration.
type GoogleConfig struct {
	APIKey      string
	GeocodeURL  string
	TimeZoneURL string

	// Client is the base upstream client config; Provider is overwritten.
	Client client.Config
}

// DefaultGoogleConfig returns a configuration pointing at the public API.
func DefaultGoogleConfig(apiKey string) GoogleConfig {
	return GoogleConfig{
		APIKey:      apiKey,
		GeocodeURL:  DefaultGeocodeURL,
		TimeZoneURL: DefaultTimeZoneURL,
		Client:      client.DefaultConfig(ProviderGeocode),
	}
}

// GoogleClient talks to the Google Geocoding and Time Zone APIs.
type GoogleClient struct {
	geocode  *client.Client
	timezone *client.Client
	config   GoogleConfig
}

// NewGoogleClient creates a Google provider.
func NewGoogleClient(cfg GoogleConfig, logger zerolog.Logger) (*GoogleClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("google api key is required")
	}
	if cfg.GeocodeURL == "" {
		cfg.GeocodeURL = DefaultGeocodeURL
	}
	if cfg.TimeZoneURL == "" {
		cfg.TimeZoneURL = DefaultTimeZoneURL
	}

	geocodeCfg := cfg.Client
	geocodeCfg.Provider = ProviderGeocode
	geocode, err := client.New(geocodeCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("geocode client: %w", err)
	}

	timezoneCfg := cfg.Client
	timezoneCfg.Provider = ProviderTimeZone
	timezone, err := client.New(timezoneCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("timezone client: %w", err)
	}

	return &GoogleClient{
		geocode:  geocode,
		timezone: timezone,
		config:   cfg,
	}, nil
}

// Geocode implements Provider.
func (g *GoogleClient) Geocode(ctx context.Context, address string) (*GeocodeResponse, error) {
	query := url.Values{
		"address": []string{address},
		"key":     []string{g.config.APIKey},
	}

	var resp GeocodeResponse
	if _, err := g.geocode.GetJSON(ctx, g.config.GeocodeURL+"?"+query.Encode(), &resp); err != nil {
		return nil, err
	}
	if strings.EqualFold(resp.Status, StatusOverQueryLimit) {
		g.geocode.RateLimit().RecordOverLimit()
	}
	return &resp, nil
}

// TimeZone implements Provider.
func (g *GoogleClient) TimeZone(ctx context.Context, lat, lng float64, at time.Time) (*TimeZoneResponse, error) {
	query := url.Values{
		"location":  []string{strconv.FormatFloat(lat, 'f', -1, 64) + "," + strconv.FormatFloat(lng, 'f', -1, 64)},
		"timestamp": []string{strconv.FormatInt(at.Unix(), 10)},
		"key":       []string{g.config.APIKey},
	}

	var resp TimeZoneResponse
	if _, err := g.timezone.GetJSON(ctx, g.config.TimeZoneURL+"?"+query.Encode(), &resp); err != nil {
		return nil, err
	}
	if strings.EqualFold(resp.Status, StatusOverQueryLimit) {
		g.timezone.RateLimit().RecordOverLimit()
	}
	return &resp, nil
}

// RateLimitStates reports the geocode and timezone rate limit states.
func (g *GoogleClient) RateLimitStates() []ratelimit.State {
	return []ratelimit.State{
		g.geocode.RateLimit().State(),
		g.timezone.RateLimit().State(),
	}
}
