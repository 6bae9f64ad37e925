// Package holidays provides a per-country, per-year public holiday catalog
// with TTL caching and subdivision filtering, backed by the Nager.Date API or
// an offline calendar.
package holidays

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/civil"
)

// ErrNoData indicates the provider has no holidays for a country and year.
// The catalog absorbs it as an empty list.
var ErrNoData = errors.New("no holiday data")

// PublicHoliday is one public holiday as published by the provider.
type PublicHoliday struct {
	Date        civil.Date `json:"date"`
	LocalName   string     `json:"localName"`
	Name        string     `json:"name"`
	CountryCode string     `json:"countryCode"`
	// Counties restricts the holiday to subdivisions; empty means nationwide.
	Counties []string `json:"counties,omitempty"`
	Global   bool     `json:"global"`
	Types    []string `json:"types,omitempty"`
}

// AppliesTo reports whether the holiday applies to subdivision.
// Nationwide holidays apply everywhere, and any holiday applies when
// subdivision is empty.
func (h PublicHoliday) AppliesTo(subdivision string) bool {
	if len(h.Counties) == 0 || subdivision == "" {
		return true
	}
	for _, county := range h.Counties {
		if strings.EqualFold(county, subdivision) {
			return true
		}
	}
	return false
}

// Provider is an upstream source of public holidays.
type Provider interface {
	// PublicHolidays returns all holidays for countryCode in year, or an
	// error wrapping ErrNoData when the provider has none.
	PublicHolidays(ctx context.Context, year int, countryCode string) ([]PublicHoliday, error)

	// Name identifies the provider in logs.
	Name() string
}

// ServiceError is a holiday provider failure other than "no data".
type ServiceError struct {
	CountryCode string
	Year        int
	Err         error
}

// Error implements the error interface.
func (e *ServiceError) Error() string {
	return fmt.Sprintf("holiday service error for %s %d: %v", e.CountryCode, e.Year, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}
