package cache

import (
	"fmt"
	"strings"
)

// Namespace prefixes every key written to a shared backend.
const Namespace = "datecontext"

// LocationKey returns the cache key for a place name.
// The key is the lower-cased input; whitespace and punctuation are kept as-is,
// so "New York" and "new york, usa" are cached independently.
func LocationKey(placeName string) string {
	return strings.ToLower(placeName)
}

// HolidayKey returns the cache key for one country's holidays in one year.
//
// Example:
//
//	HolidayKey("GB", 2026) == "GB-2026"
func HolidayKey(countryCode string, year int) string {
	return fmt.Sprintf("%s-%d", countryCode, year)
}

// namespacedKey builds the backend key: datecontext:<cache>:<key>.
func namespacedKey(name, key string) string {
	return strings.Join([]string{Namespace, name, key}, ":")
}
