package location

import (
	"errors"
	"fmt"
)

// Reason classifies a location resolution failure.
type Reason string

const (
	ReasonNotFound           Reason = "not_found"
	ReasonRateLimited        Reason = "rate_limited"
	ReasonServiceUnavailable Reason = "service_unavailable"
	ReasonConfiguration      Reason = "configuration_error"
	ReasonUnknown            Reason = "unknown"
)

// Error is a location resolution failure. Message is safe to show to end
// users; provider statuses and messages only ever live in Err.
type Error struct {
	Reason  Reason
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("location %s: %s: %v", e.Reason, e.Message, e.Err)
	}
	return fmt.Sprintf("location %s: %s", e.Reason, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Err
}

// ReasonOf returns the Reason of a location *Error anywhere in err's chain.
func ReasonOf(err error) (Reason, bool) {
	var locErr *Error
	if errors.As(err, &locErr) {
		return locErr.Reason, true
	}
	return "", false
}

func errNotFound(placeName string) *Error {
	return &Error{
		Reason:  ReasonNotFound,
		Message: fmt.Sprintf("Could not find location '%s'. Please check the spelling or try a more specific place name.", placeName),
	}
}

func errNoCountry(placeName string) *Error {
	return &Error{
		Reason:  ReasonNotFound,
		Message: fmt.Sprintf("Could not determine the country for location '%s'. Please try a more specific place name.", placeName),
	}
}

func errRateLimited(err error) *Error {
	return &Error{
		Reason:  ReasonRateLimited,
		Message: "Location service is temporarily busy. Please try again in a moment.",
		Err:     err,
	}
}

func errConfiguration(err error) *Error {
	return &Error{
		Reason:  ReasonConfiguration,
		Message: "Location service configuration error. Please contact support.",
		Err:     err,
	}
}

func errServiceUnavailable(placeName string, err error) *Error {
	return &Error{
		Reason:  ReasonServiceUnavailable,
		Message: fmt.Sprintf("Location service is currently unavailable for '%s'. Please try again later.", placeName),
		Err:     err,
	}
}

func errUnknown(placeName string, err error) *Error {
	return &Error{
		Reason:  ReasonUnknown,
		Message: fmt.Sprintf("Location service returned an unexpected error for '%s'.", placeName),
		Err:     err,
	}
}
