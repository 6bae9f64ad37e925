// Package testutil provides a mock Google Maps and Nager.Date server for
// tests that exercise the full resolution path over HTTP.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"

	"cloud.google.com/go/civil"
	"github.com/Sternrassler/datecontext/pkg/holidays"
	"github.com/Sternrassler/datecontext/pkg/location"
)

// Paths served by the mock.
const (
	GeocodePath     = "/maps/api/geocode/json"
	TimeZonePath    = "/maps/api/timezone/json"
	NagerPathPrefix = "/api/v3/PublicHolidays/"
)

// MockResponse defines the behavior for one mock response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// Place describes a location the mock geocodes successfully.
type Place struct {
	Address          string
	FormattedAddress string
	Lat, Lng         float64
	CountryCode      string
	CountryName      string
	// Admin1 is the short name of administrative_area_level_1, optional.
	Admin1 string
	ZoneID string
}

// MockUpstream is a configurable mock of the Google Geocoding, Google Time
// Zone and Nager.Date APIs. Responses are scripted per key; the last scripted
// response repeats.
type MockUpstream struct {
	server *httptest.Server

	mu        sync.Mutex
	geocode   map[string][]MockResponse
	timezone  map[string][]MockResponse
	holidays  map[string][]MockResponse
	requests  map[string]int
	lastQuery map[string]string
}

// NewMockUpstream starts a new mock server.
func NewMockUpstream() *MockUpstream {
	m := &MockUpstream{
		geocode:   make(map[string][]MockResponse),
		timezone:  make(map[string][]MockResponse),
		holidays:  make(map[string][]MockResponse),
		requests:  make(map[string]int),
		lastQuery: make(map[string]string),
	}

	m.server = httptest.NewServer(http.HandlerFunc(m.serve))
	return m
}

// URL returns the mock server base URL.
func (m *MockUpstream) URL() string {
	return m.server.URL
}

// GeocodeURL returns the geocoding endpoint.
func (m *MockUpstream) GeocodeURL() string {
	return m.server.URL + GeocodePath
}

// TimeZoneURL returns the timezone endpoint.
func (m *MockUpstream) TimeZoneURL() string {
	return m.server.URL + TimeZonePath
}

// Close shuts down the mock server.
func (m *MockUpstream) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockUpstream) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = make(map[string]int)
	m.lastQuery = make(map[string]string)
}

// SetGeocode scripts the responses for address.
func (m *MockUpstream) SetGeocode(address string, responses ...MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.geocode[address] = responses
}

// SetTimeZone scripts the responses for a "lat,lng" location.
func (m *MockUpstream) SetTimeZone(latLng string, responses ...MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.timezone[latLng] = responses
}

// SetHolidays scripts the responses for one country and year.
func (m *MockUpstream) SetHolidays(countryCode string, year int, responses ...MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.holidays[fmt.Sprintf("%d/%s", year, strings.ToUpper(countryCode))] = responses
}

// AddPlace scripts a successful geocode and timezone lookup for p.
func (m *MockUpstream) AddPlace(p Place) {
	m.SetGeocode(p.Address, NewGeocodeResponse(p))
	m.SetTimeZone(LatLngKey(p.Lat, p.Lng), NewTimeZoneResponse(p.ZoneID))
}

// RequestCount returns the number of requests made to path.
func (m *MockUpstream) RequestCount(path string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if path == NagerPathPrefix {
		total := 0
		for p, n := range m.requests {
			if strings.HasPrefix(p, NagerPathPrefix) {
				total += n
			}
		}
		return total
	}
	return m.requests[path]
}

// LastQuery returns the raw query of the last request to path.
func (m *MockUpstream) LastQuery(path string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastQuery[path]
}

func (m *MockUpstream) serve(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	m.requests[r.URL.Path]++
	m.lastQuery[r.URL.Path] = r.URL.RawQuery

	var resp MockResponse
	switch {
	case r.URL.Path == GeocodePath:
		resp = next(m.geocode, r.URL.Query().Get("address"), MockResponse{
			StatusCode: http.StatusOK,
			Body:       `{"status":"ZERO_RESULTS","results":[]}`,
		})
	case r.URL.Path == TimeZonePath:
		resp = next(m.timezone, r.URL.Query().Get("location"), MockResponse{
			StatusCode: http.StatusOK,
			Body:       `{"status":"ZERO_RESULTS"}`,
		})
	case strings.HasPrefix(r.URL.Path, NagerPathPrefix):
		resp = next(m.holidays, strings.TrimPrefix(r.URL.Path, NagerPathPrefix), MockResponse{
			StatusCode: http.StatusNotFound,
		})
	default:
		resp = MockResponse{StatusCode: http.StatusNotFound}
	}
	m.mu.Unlock()

	if resp.Delay > 0 {
		time.Sleep(resp.Delay)
	}
	for key, value := range resp.Headers {
		w.Header().Set(key, value)
	}
	if resp.Body != "" && w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
	}
	w.WriteHeader(resp.StatusCode)
	if resp.Body != "" {
		w.Write([]byte(resp.Body)) //nolint:errcheck
	}
}

// next pops the next scripted response for key, keeping the last one.
// Caller holds mu.
func next(scripts map[string][]MockResponse, key string, fallback MockResponse) MockResponse {
	queue := scripts[key]
	if len(queue) == 0 {
		return fallback
	}
	resp := queue[0]
	if len(queue) > 1 {
		scripts[key] = queue[1:]
	}
	return resp
}

// LatLngKey formats a coordinate the way the Google client sends it.
func LatLngKey(lat, lng float64) string {
	return strconv.FormatFloat(lat, 'f', -1, 64) + "," + strconv.FormatFloat(lng, 'f', -1, 64)
}

// NewGeocodeResponse creates a 200 OK geocoding response for p.
func NewGeocodeResponse(p Place) MockResponse {
	components := []location.AddressComponent{
		{LongName: p.CountryName, ShortName: p.CountryCode, Types: []string{"country", "political"}},
	}
	if p.Admin1 != "" {
		components = append(components, location.AddressComponent{
			LongName:  p.Admin1,
			ShortName: p.Admin1,
			Types:     []string{"administrative_area_level_1", "political"},
		})
	}
	if p.CountryCode == "" {
		components = nil
	}

	return jsonResponse(location.GeocodeResponse{
		Status: location.StatusOK,
		Results: []location.GeocodeResult{{
			FormattedAddress:  p.FormattedAddress,
			Geometry:          location.Geometry{Location: location.LatLng{Lat: p.Lat, Lng: p.Lng}},
			AddressComponents: components,
		}},
	})
}

// NewTimeZoneResponse creates a 200 OK timezone response.
func NewTimeZoneResponse(zoneID string) MockResponse {
	return jsonResponse(location.TimeZoneResponse{
		Status:     location.StatusOK,
		TimeZoneID: zoneID,
	})
}

// NewStatusResponse creates a 200 response carrying only a provider status,
// the way Google reports OVER_QUERY_LIMIT or REQUEST_DENIED.
func NewStatusResponse(status string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       fmt.Sprintf(`{"status":%q,"results":[],"error_message":"mock %s"}`, status, status),
	}
}

// NewHolidaysResponse creates a 200 OK Nager.Date response.
func NewHolidaysResponse(countryCode string, entries map[string]string) MockResponse {
	list := make([]holidays.PublicHoliday, 0, len(entries))
	for date, name := range entries {
		d, err := civil.ParseDate(date)
		if err != nil {
			panic(fmt.Sprintf("testutil: bad holiday date %q: %v", date, err))
		}
		list = append(list, holidays.PublicHoliday{
			Date:        d,
			LocalName:   name,
			Name:        name,
			CountryCode: strings.ToUpper(countryCode),
			Global:      true,
			Types:       []string{"Public"},
		})
	}
	return jsonResponse(list)
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"error": "Internal server error"}`,
	}
}

func jsonResponse(v any) MockResponse {
	body, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("testutil: marshal mock body: %v", err))
	}
	return MockResponse{StatusCode: http.StatusOK, Body: string(body)}
}
