package holidays

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/Sternrassler/datecontext/pkg/client"
	"github.com/Sternrassler/datecontext/pkg/ratelimit"
	"github.com/rs/zerolog"
)

// DefaultNagerBaseURL is the public Nager.Date API.
const DefaultNagerBaseURL = "https://date.nager.at"

// ProviderNager is the provider name used for logs and metrics.
const ProviderNager = "nager"

// NagerClient fetches holidays from the Nager.Date v3 API.
type NagerClient struct {
	http    *client.Client
	baseURL string
}

// NewNagerClient creates a Nager.Date provider. An empty baseURL uses the
// public API.
func NewNagerClient(baseURL string, cfg client.Config, logger zerolog.Logger) (*NagerClient, error) {
	if baseURL == "" {
		baseURL = DefaultNagerBaseURL
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid nager base url: %w", err)
	}

	cfg.Provider = ProviderNager
	c, err := client.New(cfg, logger)
	if err != nil {
		return nil, err
	}

	return &NagerClient{
		http:    c,
		baseURL: strings.TrimRight(baseURL, "/"),
	}, nil
}

// Name implements Provider.
func (n *NagerClient) Name() string {
	return ProviderNager
}

// PublicHolidays implements Provider. 404 and 204 responses mean the API has
// no data for that country and year.
func (n *NagerClient) PublicHolidays(ctx context.Context, year int, countryCode string) ([]PublicHoliday, error) {
	endpoint := n.baseURL + "/api/v3/PublicHolidays/" + strconv.Itoa(year) + "/" + url.PathEscape(countryCode)

	var holidays []PublicHoliday
	status, err := n.http.GetJSON(ctx, endpoint, &holidays)
	if err != nil {
		if client.StatusCode(err) == http.StatusNotFound {
			return nil, fmt.Errorf("%s %d: %w", countryCode, year, ErrNoData)
		}
		return nil, err
	}
	if status == http.StatusNoContent {
		return nil, fmt.Errorf("%s %d: %w", countryCode, year, ErrNoData)
	}

	return holidays, nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (n *NagerClient) SetHTTPClient(c *http.Client) {
	n.http.SetHTTPClient(c)
}

// RateLimitState reports the outbound pacing state for Nager.Date.
func (n *NagerClient) RateLimitState() ratelimit.State {
	return n.http.RateLimit().State()
}
