package location

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/Sternrassler/datecontext/pkg/client"
	"github.com/rs/zerolog"
)

func newTestGoogleClient(t *testing.T, serverURL string) *GoogleClient {
	t.Helper()

	cfg := DefaultGoogleConfig("test-key")
	cfg.GeocodeURL = serverURL + "/geocode/json"
	cfg.TimeZoneURL = serverURL + "/timezone/json"
	cfg.Client.Timeout = 2 * time.Second

	g, err := NewGoogleClient(cfg, zerolog.New(os.Stderr).Level(zerolog.Disabled))
	if err != nil {
		t.Fatalf("NewGoogleClient() error = %v", err)
	}
	return g
}

func TestNewGoogleClient_RequiresAPIKey(t *testing.T) {
	_, err := NewGoogleClient(DefaultGoogleConfig(""), zerolog.New(os.Stderr).Level(zerolog.Disabled))
	if err == nil {
		t.Fatal("expected error for missing api key")
	}
}

func TestGoogleClient_Geocode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/geocode/json" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("address"); got != "Berlin, Germany" {
			t.Errorf("address = %q", got)
		}
		if got := r.URL.Query().Get("key"); got != "test-key" {
			t.Errorf("key = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(GeocodeResponse{
			Status: StatusOK,
			Results: []GeocodeResult{{
				FormattedAddress: "Berlin, Germany",
				Geometry:         Geometry{Location: LatLng{Lat: 52.52, Lng: 13.405}},
				AddressComponents: []AddressComponent{
					{LongName: "Berlin", ShortName: "BE", Types: []string{componentAdminLevel1}},
					{LongName: "Germany", ShortName: "DE", Types: []string{componentCountry}},
				},
			}},
		})
	}))
	defer server.Close()

	g := newTestGoogleClient(t, server.URL)

	resp, err := g.Geocode(context.Background(), "Berlin, Germany")
	if err != nil {
		t.Fatalf("Geocode() error = %v", err)
	}
	if resp.Status != StatusOK || len(resp.Results) != 1 {
		t.Fatalf("unexpected response %+v", resp)
	}
	if resp.Results[0].Geometry.Location.Lat != 52.52 {
		t.Errorf("Lat = %v", resp.Results[0].Geometry.Location.Lat)
	}
	if c, ok := findComponent(resp.Results[0].AddressComponents, componentCountry); !ok || c.ShortName != "DE" {
		t.Errorf("country component = %+v, %v", c, ok)
	}
}

func TestGoogleClient_TimeZone(t *testing.T) {
	at := time.Date(2026, 2, 13, 12, 0, 0, 0, time.UTC)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if got := q.Get("location"); got != "52.52,13.405" {
			t.Errorf("location = %q", got)
		}
		if got := q.Get("timestamp"); got != "1770984000" {
			t.Errorf("timestamp = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"OK","timeZoneId":"Europe/Berlin","timeZoneName":"Central European Standard Time"}`))
	}))
	defer server.Close()

	g := newTestGoogleClient(t, server.URL)

	resp, err := g.TimeZone(context.Background(), 52.52, 13.405, at)
	if err != nil {
		t.Fatalf("TimeZone() error = %v", err)
	}
	if resp.TimeZoneID != "Europe/Berlin" {
		t.Errorf("TimeZoneID = %q", resp.TimeZoneID)
	}
}

func TestGoogleClient_OverQueryLimitRecorded(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"OVER_QUERY_LIMIT","results":[]}`))
	}))
	defer server.Close()

	g := newTestGoogleClient(t, server.URL)

	resp, err := g.Geocode(context.Background(), "London")
	if err != nil {
		t.Fatalf("Geocode() error = %v", err)
	}
	if resp.Status != StatusOverQueryLimit {
		t.Errorf("Status = %q", resp.Status)
	}

	states := g.RateLimitStates()
	if len(states) != 2 {
		t.Fatalf("len(states) = %d, want 2", len(states))
	}
	if states[0].Provider != ProviderGeocode || states[0].OverLimitTotal != 1 {
		t.Errorf("geocode state = %+v", states[0])
	}
	if states[1].OverLimitTotal != 0 {
		t.Errorf("timezone state = %+v", states[1])
	}
}

func TestGoogleClient_HTTPErrors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantClass client.ErrorClass
	}{
		{"server error", http.StatusBadGateway, "bad gateway", client.ErrorClassServer},
		{"forbidden", http.StatusForbidden, "forbidden", client.ErrorClassClient},
		{"invalid json", http.StatusOK, "{not json", client.ErrorClassDecode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			g := newTestGoogleClient(t, server.URL)

			_, err := g.Geocode(context.Background(), "London")
			if !client.IsClass(err, tt.wantClass) {
				t.Errorf("error = %v, want class %q", err, tt.wantClass)
			}
		})
	}
}

func TestResolver_WithGoogleClient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/geocode/json":
			_, _ = w.Write([]byte(`{"status":"OK","results":[{"formatted_address":"London, UK",
				"geometry":{"location":{"lat":51.5072,"lng":-0.1276}},
				"address_components":[{"long_name":"United Kingdom","short_name":"GB","types":["country","political"]}]}]}`))
		case "/timezone/json":
			_, _ = w.Write([]byte(`{"status":"OK","timeZoneId":"Europe/London","timeZoneName":"Greenwich Mean Time"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	r := newTestResolver(t, newTestGoogleClient(t, server.URL), nil)

	loc, err := r.Resolve(context.Background(), "London")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if loc.CountryCode != "GB" || loc.TimeZoneID != "Europe/London" {
		t.Errorf("loc = %+v", loc)
	}
}
