// Package location resolves free-text place names to coordinates, country,
// subdivision and IANA timezone, with positive and negative TTL caching and a
// bounded retry on provider rate limiting.
package location

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Provider statuses shared by the geocoding and timezone APIs.
const (
	StatusOK             = "OK"
	StatusZeroResults    = "ZERO_RESULTS"
	StatusOverQueryLimit = "OVER_QUERY_LIMIT"
	StatusRequestDenied  = "REQUEST_DENIED"
)

// Address component types used during resolution.
const (
	componentCountry     = "country"
	componentAdminLevel1 = "administrative_area_level_1"
)

// ResolvedLocation is the outcome of a successful resolution.
// It is never mutated after construction.
type ResolvedLocation struct {
	PlaceName        string  `json:"place_name"`
	FormattedAddress string  `json:"formatted_address"`
	Latitude         float64 `json:"latitude"`
	Longitude        float64 `json:"longitude"`
	TimeZoneID       string  `json:"time_zone_id"`
	CountryCode      string  `json:"country_code"`
	// SubdivisionCode is "{country}-{admin}", empty when unknown.
	SubdivisionCode string `json:"subdivision_code,omitempty"`
}

// GeocodeResponse is the geocoding API response body.
type GeocodeResponse struct {
	Status       string          `json:"status"`
	Results      []GeocodeResult `json:"results"`
	ErrorMessage string          `json:"error_message,omitempty"`
}

// GeocodeResult is one geocoding match.
type GeocodeResult struct {
	FormattedAddress  string             `json:"formatted_address"`
	Geometry          Geometry           `json:"geometry"`
	AddressComponents []AddressComponent `json:"address_components"`
}

// Geometry holds the location of a geocoding match.
type Geometry struct {
	Location LatLng `json:"location"`
}

// LatLng is a coordinate pair.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// AddressComponent is one part of a structured address.
type AddressComponent struct {
	LongName  string   `json:"long_name"`
	ShortName string   `json:"short_name"`
	Types     []string `json:"types"`
}

// HasType reports whether the component is tagged with t.
func (c AddressComponent) HasType(t string) bool {
	for _, typ := range c.Types {
		if typ == t {
			return true
		}
	}
	return false
}

// TimeZoneResponse is the timezone API response body.
type TimeZoneResponse struct {
	Status       string `json:"status"`
	TimeZoneID   string `json:"timeZoneId"`
	TimeZoneName string `json:"timeZoneName"`
	ErrorMessage string `json:"errorMessage,omitempty"`
}

// findComponent returns the first component tagged with t.
func findComponent(components []AddressComponent, t string) (AddressComponent, bool) {
	for _, c := range components {
		if c.HasType(t) {
			return c, true
		}
	}
	return AddressComponent{}, false
}

// subdivisionCode builds "{country}-{admin}" when the admin short code is at
// most 3 letters or digits, otherwise "".
func subdivisionCode(countryCode, adminShortName string) string {
	admin := strings.ToUpper(adminShortName)
	if admin == "" || utf8.RuneCountInString(admin) > 3 {
		return ""
	}
	for _, r := range admin {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return ""
		}
	}
	return countryCode + "-" + admin
}
