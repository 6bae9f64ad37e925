package datecontext

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/Sternrassler/datecontext/pkg/client"
	"github.com/Sternrassler/datecontext/pkg/holidays"
	"github.com/Sternrassler/datecontext/pkg/location"
)

var (
	// ErrInvalidAsOfDate is returned by ParseAsOfDate for unparseable input.
	ErrInvalidAsOfDate = errors.New("invalid as-of date")

	// ErrUnknownTimeZone is returned when a resolved zone cannot be loaded.
	ErrUnknownTimeZone = errors.New("unknown time zone")

	// ErrMissingLocation is returned for a blank place name.
	ErrMissingLocation = errors.New("location is required")
)

// Analysis outcomes used for metrics and logs.
const (
	OutcomeSuccess      = "success"
	OutcomeInvalidInput = "invalid_input"
	OutcomeHoliday      = "holiday_error"
	OutcomeNetwork      = "network_error"
	OutcomeDecode       = "decode_error"
	OutcomeCancelled    = "cancelled"
	OutcomeInternal     = "internal_error"
)

// User-facing messages for failures that carry no message of their own.
const (
	MessageNetwork    = "Unable to reach the location service. Please try again later."
	MessageDecode     = "Received an unexpected response from the location service."
	MessageUnexpected = "An unexpected error occurred. Please try again."
	MessageMissing    = "Please provide a location to analyze (e.g., 'London')."
)

// ErrorPayload is the structured error returned to callers.
type ErrorPayload struct {
	Error string `json:"error"`
}

// asOfDateError keeps the raw input for the user message.
type asOfDateError struct {
	input string
	err   error
}

func (e *asOfDateError) Error() string {
	return fmt.Sprintf("%v %q: %v", ErrInvalidAsOfDate, e.input, e.err)
}

func (e *asOfDateError) Unwrap() []error {
	return []error{ErrInvalidAsOfDate, e.err}
}

// ParseAsOfDate parses an optional ISO 8601 calendar date. Blank input
// yields nil. No range check is applied beyond parseability.
func ParseAsOfDate(s string) (*civil.Date, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return nil, nil
	}

	d, err := civil.ParseDate(trimmed)
	if err != nil {
		return nil, &asOfDateError{input: s, err: err}
	}
	return &d, nil
}

// UserMessage converts err into a stable human-readable message. Provider
// statuses, provider text and Go error strings never appear in the result.
func UserMessage(err error) string {
	var locErr *location.Error
	if errors.As(err, &locErr) {
		return locErr.Message
	}

	var dateErr *asOfDateError
	if errors.As(err, &dateErr) {
		return fmt.Sprintf("Invalid date format: '%s'. Please use ISO 8601 format (e.g., '2026-02-15').", dateErr.input)
	}

	if errors.Is(err, ErrMissingLocation) {
		return MessageMissing
	}

	var svcErr *holidays.ServiceError
	if errors.As(err, &svcErr) {
		return fmt.Sprintf("Holiday information is currently unavailable for country '%s'. Please try again later.", svcErr.CountryCode)
	}

	switch {
	case client.IsNetwork(err):
		return MessageNetwork
	case client.IsClass(err, client.ErrorClassDecode):
		return MessageDecode
	default:
		return MessageUnexpected
	}
}

// NewErrorPayload builds the error payload for err.
func NewErrorPayload(err error) ErrorPayload {
	return ErrorPayload{Error: UserMessage(err)}
}

// Outcome classifies err for metrics.
func Outcome(err error) string {
	if err == nil {
		return OutcomeSuccess
	}
	if reason, ok := location.ReasonOf(err); ok {
		return "location_" + string(reason)
	}

	var svcErr *holidays.ServiceError
	switch {
	case errors.Is(err, ErrInvalidAsOfDate), errors.Is(err, ErrMissingLocation):
		return OutcomeInvalidInput
	case errors.As(err, &svcErr):
		return OutcomeHoliday
	case errors.Is(err, client.ErrContextCancelled),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return OutcomeCancelled
	case client.IsNetwork(err):
		return OutcomeNetwork
	case client.IsClass(err, client.ErrorClassDecode):
		return OutcomeDecode
	default:
		return OutcomeInternal
	}
}
