package location

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Sternrassler/datecontext/pkg/client"
	"github.com/rs/zerolog"
)

// fakeProvider returns scripted responses in order; the last response repeats.
type fakeProvider struct {
	mu sync.Mutex

	geocodeResponses  []*GeocodeResponse
	geocodeErr        error
	timezoneResponses []*TimeZoneResponse
	timezoneErr       error

	geocodeCalls  int
	timezoneCalls int
	timezoneAt    []time.Time
}

func (f *fakeProvider) Geocode(_ context.Context, _ string) (*GeocodeResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.geocodeCalls++
	if f.geocodeErr != nil {
		return nil, f.geocodeErr
	}
	idx := min(f.geocodeCalls-1, len(f.geocodeResponses)-1)
	return f.geocodeResponses[idx], nil
}

func (f *fakeProvider) TimeZone(_ context.Context, _, _ float64, at time.Time) (*TimeZoneResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.timezoneCalls++
	f.timezoneAt = append(f.timezoneAt, at)
	if f.timezoneErr != nil {
		return nil, f.timezoneErr
	}
	idx := min(f.timezoneCalls-1, len(f.timezoneResponses)-1)
	return f.timezoneResponses[idx], nil
}

func (f *fakeProvider) calls() (geocode, timezone int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.geocodeCalls, f.timezoneCalls
}

func londonGeocode() *GeocodeResponse {
	return &GeocodeResponse{
		Status: StatusOK,
		Results: []GeocodeResult{{
			FormattedAddress: "London, UK",
			Geometry:         Geometry{Location: LatLng{Lat: 51.5072, Lng: -0.1276}},
			AddressComponents: []AddressComponent{
				{LongName: "London", ShortName: "London", Types: []string{"locality", "political"}},
				{LongName: "England", ShortName: "England", Types: []string{componentAdminLevel1, "political"}},
				{LongName: "United Kingdom", ShortName: "GB", Types: []string{componentCountry, "political"}},
			},
		}},
	}
}

func londonTimeZone() *TimeZoneResponse {
	return &TimeZoneResponse{Status: StatusOK, TimeZoneID: "Europe/London", TimeZoneName: "Greenwich Mean Time"}
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestResolver(t *testing.T, provider Provider, clock *testClock) *Resolver {
	t.Helper()

	cfg := DefaultConfig()
	cfg.Retry.Delay = time.Millisecond
	if clock != nil {
		cfg.Now = clock.Now
	}

	r, err := NewResolver(provider, cfg, zerolog.New(os.Stderr).Level(zerolog.Disabled))
	if err != nil {
		t.Fatalf("NewResolver() error = %v", err)
	}
	return r
}

func TestNewResolver_Validation(t *testing.T) {
	logger := zerolog.New(os.Stderr).Level(zerolog.Disabled)
	provider := &fakeProvider{}

	zeroTTL := DefaultConfig()
	zeroTTL.CacheTTL = 0
	zeroNegative := DefaultConfig()
	zeroNegative.NegativeCacheTTL = 0

	tests := []struct {
		name     string
		provider Provider
		config   Config
		wantErr  bool
	}{
		{"valid", provider, DefaultConfig(), false},
		{"nil provider", nil, DefaultConfig(), true},
		{"zero cache ttl", provider, zeroTTL, true},
		{"zero negative ttl", provider, zeroNegative, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewResolver(tt.provider, tt.config, logger)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewResolver() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestResolver_Resolve_Success(t *testing.T) {
	provider := &fakeProvider{
		geocodeResponses:  []*GeocodeResponse{londonGeocode()},
		timezoneResponses: []*TimeZoneResponse{londonTimeZone()},
	}
	r := newTestResolver(t, provider, nil)

	loc, err := r.Resolve(context.Background(), "London")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	if loc.PlaceName != "London" {
		t.Errorf("PlaceName = %q, want London", loc.PlaceName)
	}
	if loc.FormattedAddress != "London, UK" {
		t.Errorf("FormattedAddress = %q", loc.FormattedAddress)
	}
	if loc.CountryCode != "GB" {
		t.Errorf("CountryCode = %q, want GB", loc.CountryCode)
	}
	if loc.TimeZoneID != "Europe/London" {
		t.Errorf("TimeZoneID = %q, want Europe/London", loc.TimeZoneID)
	}
	if loc.SubdivisionCode != "" {
		t.Errorf("SubdivisionCode = %q, want empty for long admin name", loc.SubdivisionCode)
	}
	if loc.Latitude != 51.5072 || loc.Longitude != -0.1276 {
		t.Errorf("coordinates = (%v, %v)", loc.Latitude, loc.Longitude)
	}
}

func TestResolver_Resolve_Subdivision(t *testing.T) {
	geocode := &GeocodeResponse{
		Status: StatusOK,
		Results: []GeocodeResult{{
			FormattedAddress: "San Francisco, CA, USA",
			AddressComponents: []AddressComponent{
				{LongName: "California", ShortName: "CA", Types: []string{componentAdminLevel1}},
				{LongName: "United States", ShortName: "us", Types: []string{componentCountry}},
			},
		}},
	}
	provider := &fakeProvider{
		geocodeResponses:  []*GeocodeResponse{geocode},
		timezoneResponses: []*TimeZoneResponse{{Status: StatusOK, TimeZoneID: "America/Los_Angeles"}},
	}
	r := newTestResolver(t, provider, nil)

	loc, err := r.Resolve(context.Background(), "San Francisco")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if loc.CountryCode != "US" {
		t.Errorf("CountryCode = %q, want US", loc.CountryCode)
	}
	if loc.SubdivisionCode != "US-CA" {
		t.Errorf("SubdivisionCode = %q, want US-CA", loc.SubdivisionCode)
	}
}

func TestResolver_Resolve_PositiveCache(t *testing.T) {
	provider := &fakeProvider{
		geocodeResponses:  []*GeocodeResponse{londonGeocode()},
		timezoneResponses: []*TimeZoneResponse{londonTimeZone()},
	}
	r := newTestResolver(t, provider, nil)
	ctx := context.Background()

	if _, err := r.Resolve(ctx, "London"); err != nil {
		t.Fatalf("first Resolve() error = %v", err)
	}
	// Case-folded key shares the entry
	if _, err := r.Resolve(ctx, "LONDON"); err != nil {
		t.Fatalf("second Resolve() error = %v", err)
	}

	geocodeCalls, timezoneCalls := provider.calls()
	if geocodeCalls != 1 || timezoneCalls != 1 {
		t.Errorf("calls = (%d, %d), want (1, 1)", geocodeCalls, timezoneCalls)
	}

	stats := r.Stats()
	if stats.CacheHits != 1 || stats.CacheMisses != 1 {
		t.Errorf("Stats = %+v, want 1 hit and 1 miss", stats)
	}
}

func TestResolver_Resolve_KeyIsNotNormalized(t *testing.T) {
	provider := &fakeProvider{
		geocodeResponses:  []*GeocodeResponse{londonGeocode()},
		timezoneResponses: []*TimeZoneResponse{londonTimeZone()},
	}
	r := newTestResolver(t, provider, nil)
	ctx := context.Background()

	for _, place := range []string{"London", "London, UK", " london"} {
		if _, err := r.Resolve(ctx, place); err != nil {
			t.Fatalf("Resolve(%q) error = %v", place, err)
		}
	}

	if geocodeCalls, _ := provider.calls(); geocodeCalls != 3 {
		t.Errorf("geocode calls = %d, want 3", geocodeCalls)
	}
}

func TestResolver_Resolve_PositiveCacheExpires(t *testing.T) {
	clock := &testClock{now: time.Date(2026, 2, 13, 9, 0, 0, 0, time.UTC)}
	provider := &fakeProvider{
		geocodeResponses:  []*GeocodeResponse{londonGeocode()},
		timezoneResponses: []*TimeZoneResponse{londonTimeZone()},
	}
	r := newTestResolver(t, provider, clock)
	ctx := context.Background()

	if _, err := r.Resolve(ctx, "London"); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	clock.Advance(7 * 24 * time.Hour)
	if _, err := r.Resolve(ctx, "London"); err != nil {
		t.Fatalf("Resolve() after expiry error = %v", err)
	}

	if geocodeCalls, _ := provider.calls(); geocodeCalls != 2 {
		t.Errorf("geocode calls = %d, want 2", geocodeCalls)
	}
}

func TestResolver_Resolve_TimeZoneUsesCurrentInstant(t *testing.T) {
	now := time.Date(2026, 2, 13, 9, 30, 0, 0, time.UTC)
	clock := &testClock{now: now}
	provider := &fakeProvider{
		geocodeResponses:  []*GeocodeResponse{londonGeocode()},
		timezoneResponses: []*TimeZoneResponse{londonTimeZone()},
	}
	r := newTestResolver(t, provider, clock)

	if _, err := r.Resolve(context.Background(), "London"); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if len(provider.timezoneAt) != 1 || !provider.timezoneAt[0].Equal(now) {
		t.Errorf("timezone lookup at %v, want %v", provider.timezoneAt, now)
	}
}

func TestResolver_Resolve_ZeroResults(t *testing.T) {
	tests := []struct {
		name    string
		geocode *GeocodeResponse
	}{
		{"zero results status", &GeocodeResponse{Status: StatusZeroResults}},
		{"lower case status", &GeocodeResponse{Status: "zero_results"}},
		{"ok with empty results", &GeocodeResponse{Status: StatusOK}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := &fakeProvider{geocodeResponses: []*GeocodeResponse{tt.geocode}}
			r := newTestResolver(t, provider, nil)
			ctx := context.Background()

			_, err := r.Resolve(ctx, "Atlantis")
			if reason, _ := ReasonOf(err); reason != ReasonNotFound {
				t.Fatalf("first Resolve() reason = %q, want not_found (err = %v)", reason, err)
			}

			_, err = r.Resolve(ctx, "atlantis")
			if reason, _ := ReasonOf(err); reason != ReasonNotFound {
				t.Fatalf("second Resolve() reason = %q, want not_found", reason)
			}

			geocodeCalls, timezoneCalls := provider.calls()
			if geocodeCalls != 1 || timezoneCalls != 0 {
				t.Errorf("calls = (%d, %d), want (1, 0)", geocodeCalls, timezoneCalls)
			}
			if r.Stats().NegativeCacheHits != 1 {
				t.Errorf("NegativeCacheHits = %d, want 1", r.Stats().NegativeCacheHits)
			}
		})
	}
}

func TestResolver_Resolve_NegativeCacheExpires(t *testing.T) {
	clock := &testClock{now: time.Date(2026, 2, 13, 9, 0, 0, 0, time.UTC)}
	provider := &fakeProvider{
		geocodeResponses:  []*GeocodeResponse{{Status: StatusZeroResults}, londonGeocode()},
		timezoneResponses: []*TimeZoneResponse{londonTimeZone()},
	}
	r := newTestResolver(t, provider, clock)
	ctx := context.Background()

	if _, err := r.Resolve(ctx, "Londn"); err == nil {
		t.Fatal("expected NotFound")
	}

	clock.Advance(59 * time.Minute)
	if _, err := r.Resolve(ctx, "Londn"); err == nil {
		t.Fatal("expected NotFound within negative ttl")
	}

	clock.Advance(time.Minute)
	if _, err := r.Resolve(ctx, "Londn"); err != nil {
		t.Fatalf("Resolve() after negative expiry error = %v", err)
	}

	if geocodeCalls, _ := provider.calls(); geocodeCalls != 2 {
		t.Errorf("geocode calls = %d, want 2", geocodeCalls)
	}
}

func TestResolver_Resolve_NoCountry(t *testing.T) {
	geocode := &GeocodeResponse{
		Status: StatusOK,
		Results: []GeocodeResult{{
			FormattedAddress:  "Somewhere",
			AddressComponents: []AddressComponent{{LongName: "Ocean", ShortName: "Ocean", Types: []string{"natural_feature"}}},
		}},
	}
	provider := &fakeProvider{geocodeResponses: []*GeocodeResponse{geocode}}
	r := newTestResolver(t, provider, nil)

	_, err := r.Resolve(context.Background(), "Pacific")
	var locErr *Error
	if !errors.As(err, &locErr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if locErr.Reason != ReasonNotFound {
		t.Errorf("Reason = %q, want not_found", locErr.Reason)
	}
	if strings.Contains(strings.ToLower(locErr.Message), "unexpected") {
		t.Errorf("Message %q must not claim an unexpected error", locErr.Message)
	}
	if _, timezoneCalls := provider.calls(); timezoneCalls != 0 {
		t.Errorf("timezone calls = %d, want 0", timezoneCalls)
	}
}

func TestResolver_Resolve_OverQueryLimitExhausted(t *testing.T) {
	provider := &fakeProvider{
		geocodeResponses: []*GeocodeResponse{{Status: StatusOverQueryLimit}},
	}
	r := newTestResolver(t, provider, nil)

	_, err := r.Resolve(context.Background(), "London")
	if reason, _ := ReasonOf(err); reason != ReasonRateLimited {
		t.Fatalf("reason = %q, want rate_limited (err = %v)", reason, err)
	}
	if !errors.Is(err, client.ErrRetryExhausted) {
		t.Errorf("expected ErrRetryExhausted in chain, got %v", err)
	}

	geocodeCalls, timezoneCalls := provider.calls()
	if geocodeCalls != 3 || timezoneCalls != 0 {
		t.Errorf("calls = (%d, %d), want (3, 0)", geocodeCalls, timezoneCalls)
	}
}

func TestResolver_Resolve_OverQueryLimitThenOK(t *testing.T) {
	provider := &fakeProvider{
		geocodeResponses:  []*GeocodeResponse{{Status: StatusOverQueryLimit}, londonGeocode()},
		timezoneResponses: []*TimeZoneResponse{londonTimeZone()},
	}
	r := newTestResolver(t, provider, nil)

	loc, err := r.Resolve(context.Background(), "London")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if loc.TimeZoneID != "Europe/London" {
		t.Errorf("TimeZoneID = %q", loc.TimeZoneID)
	}

	geocodeCalls, timezoneCalls := provider.calls()
	if total := geocodeCalls + timezoneCalls; total != 3 {
		t.Errorf("upstream calls = %d, want 3", total)
	}
}

func TestResolver_Resolve_TimeZoneOverQueryLimitRetriedIndependently(t *testing.T) {
	provider := &fakeProvider{
		geocodeResponses: []*GeocodeResponse{{Status: StatusOverQueryLimit}, {Status: StatusOverQueryLimit}, londonGeocode()},
		timezoneResponses: []*TimeZoneResponse{
			{Status: StatusOverQueryLimit},
			{Status: StatusOverQueryLimit},
			londonTimeZone(),
		},
	}
	r := newTestResolver(t, provider, nil)

	if _, err := r.Resolve(context.Background(), "London"); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	geocodeCalls, timezoneCalls := provider.calls()
	if geocodeCalls != 3 || timezoneCalls != 3 {
		t.Errorf("calls = (%d, %d), want (3, 3)", geocodeCalls, timezoneCalls)
	}
}

func TestResolver_Resolve_StatusMapping(t *testing.T) {
	tests := []struct {
		name       string
		geocode    *GeocodeResponse
		timezone   *TimeZoneResponse
		wantReason Reason
	}{
		{
			name:       "request denied",
			geocode:    &GeocodeResponse{Status: StatusRequestDenied, ErrorMessage: "The provided API key is invalid."},
			wantReason: ReasonConfiguration,
		},
		{
			name:       "invalid request",
			geocode:    &GeocodeResponse{Status: "INVALID_REQUEST"},
			wantReason: ReasonUnknown,
		},
		{
			name:       "timezone request denied",
			geocode:    londonGeocode(),
			timezone:   &TimeZoneResponse{Status: StatusRequestDenied},
			wantReason: ReasonConfiguration,
		},
		{
			name:       "timezone unknown error",
			geocode:    londonGeocode(),
			timezone:   &TimeZoneResponse{Status: "UNKNOWN_ERROR"},
			wantReason: ReasonUnknown,
		},
		{
			name:       "timezone zero results",
			geocode:    londonGeocode(),
			timezone:   &TimeZoneResponse{Status: StatusZeroResults},
			wantReason: ReasonNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := &fakeProvider{geocodeResponses: []*GeocodeResponse{tt.geocode}}
			if tt.timezone != nil {
				provider.timezoneResponses = []*TimeZoneResponse{tt.timezone}
			}
			r := newTestResolver(t, provider, nil)

			_, err := r.Resolve(context.Background(), "London")
			var locErr *Error
			if !errors.As(err, &locErr) {
				t.Fatalf("expected *Error, got %v", err)
			}
			if locErr.Reason != tt.wantReason {
				t.Errorf("Reason = %q, want %q", locErr.Reason, tt.wantReason)
			}
			for _, leaked := range []string{StatusRequestDenied, "INVALID_REQUEST", "UNKNOWN_ERROR", "API key is invalid"} {
				if strings.Contains(locErr.Message, leaked) {
					t.Errorf("Message %q leaks provider text %q", locErr.Message, leaked)
				}
			}
		})
	}
}

func TestResolver_Resolve_TimeZoneZeroResultsNotCachedNegatively(t *testing.T) {
	provider := &fakeProvider{
		geocodeResponses:  []*GeocodeResponse{londonGeocode()},
		timezoneResponses: []*TimeZoneResponse{{Status: StatusZeroResults}, londonTimeZone()},
	}
	r := newTestResolver(t, provider, nil)
	ctx := context.Background()

	if _, err := r.Resolve(ctx, "London"); err == nil {
		t.Fatal("expected NotFound on first call")
	}
	if _, err := r.Resolve(ctx, "London"); err != nil {
		t.Fatalf("second Resolve() error = %v", err)
	}
}

func TestResolver_Resolve_UpstreamErrors(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantReason  Reason
		wantNetwork bool
	}{
		{
			name:       "server error",
			err:        &client.UpstreamError{Provider: ProviderGeocode, StatusCode: 503, ErrorClass: client.ErrorClassServer},
			wantReason: ReasonServiceUnavailable,
		},
		{
			name:       "decode error",
			err:        &client.UpstreamError{Provider: ProviderGeocode, StatusCode: 200, ErrorClass: client.ErrorClassDecode},
			wantReason: ReasonServiceUnavailable,
		},
		{
			name:        "network error",
			err:         &client.UpstreamError{Provider: ProviderGeocode, ErrorClass: client.ErrorClassNetwork, Err: errors.New("dial tcp: refused")},
			wantNetwork: true,
		},
		{
			name:       "unclassified error",
			err:        errors.New("boom"),
			wantReason: ReasonUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := &fakeProvider{geocodeErr: tt.err}
			r := newTestResolver(t, provider, nil)

			_, err := r.Resolve(context.Background(), "London")
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.wantNetwork {
				if !client.IsNetwork(err) {
					t.Errorf("expected network error, got %v", err)
				}
				if _, ok := ReasonOf(err); ok {
					t.Errorf("network error must not be a location *Error: %v", err)
				}
				return
			}
			if reason, _ := ReasonOf(err); reason != tt.wantReason {
				t.Errorf("reason = %q, want %q", reason, tt.wantReason)
			}
			if geocodeCalls, _ := provider.calls(); geocodeCalls != 1 {
				t.Errorf("geocode calls = %d, want 1 (no retry)", geocodeCalls)
			}
		})
	}
}

func TestResolver_Resolve_ContextCancelledDuringRetry(t *testing.T) {
	provider := &fakeProvider{
		geocodeResponses: []*GeocodeResponse{{Status: StatusOverQueryLimit}},
	}
	cfg := DefaultConfig()
	cfg.Retry.Delay = time.Hour
	r, err := NewResolver(provider, cfg, zerolog.New(os.Stderr).Level(zerolog.Disabled))
	if err != nil {
		t.Fatalf("NewResolver() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err = r.Resolve(ctx, "London")
	if !errors.Is(err, client.ErrContextCancelled) {
		t.Fatalf("expected ErrContextCancelled, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("Resolve() took %v after cancellation", elapsed)
	}
	if geocodeCalls, _ := provider.calls(); geocodeCalls != 1 {
		t.Errorf("geocode calls = %d, want 1", geocodeCalls)
	}
}

func TestResolver_Resolve_ConcurrentAccess(t *testing.T) {
	provider := &fakeProvider{
		geocodeResponses:  []*GeocodeResponse{londonGeocode()},
		timezoneResponses: []*TimeZoneResponse{londonTimeZone()},
	}
	r := newTestResolver(t, provider, nil)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			loc, err := r.Resolve(context.Background(), "London")
			if err != nil {
				t.Errorf("Resolve() error = %v", err)
				return
			}
			if loc.CountryCode != "GB" {
				t.Errorf("CountryCode = %q", loc.CountryCode)
			}
		}()
	}
	wg.Wait()

	geocodeCalls, _ := provider.calls()
	if geocodeCalls < 1 || geocodeCalls > 20 {
		t.Errorf("geocode calls = %d, want between 1 and 20", geocodeCalls)
	}
}

func TestSubdivisionCode(t *testing.T) {
	tests := []struct {
		country string
		admin   string
		want    string
	}{
		{"US", "CA", "US-CA"},
		{"US", "ca", "US-CA"},
		{"DE", "BY", "DE-BY"},
		{"GB", "England", ""},
		{"JP", "13", "JP-13"},
		{"FR", "IDF", "FR-IDF"},
		{"FR", "I-F", ""},
		{"US", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.country+"/"+tt.admin, func(t *testing.T) {
			if got := subdivisionCode(tt.country, tt.admin); got != tt.want {
				t.Errorf("subdivisionCode(%q, %q) = %q, want %q", tt.country, tt.admin, got, tt.want)
			}
		})
	}
}
