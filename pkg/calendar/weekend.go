// Package calendar implements locale-aware weekend rules and date arithmetic
// over calendar dates. It performs no I/O and never fails.
package calendar

import (
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

// DefaultWeekend applies to every country without an explicit rule.
var DefaultWeekend = []time.Weekday{time.Saturday, time.Sunday}

// fridaySaturday is the weekend in most of the Gulf region and Israel.
var fridaySaturday = []time.Weekday{time.Friday, time.Saturday}

// weekendRules maps ISO-3166-1 alpha-2 codes to their weekend days.
var weekendRules = map[string][]time.Weekday{
	"AE": fridaySaturday, // United Arab Emirates
	"SA": fridaySaturday, // Saudi Arabia
	"IL": fridaySaturday, // Israel
	"BH": fridaySaturday, // Bahrain
	"KW": fridaySaturday, // Kuwait
	"OM": fridaySaturday, // Oman
	"QA": fridaySaturday, // Qatar
}

// WeekendDaysFor returns the ordered weekend days for countryCode.
// Lookup is case-insensitive. The returned slice must not be modified.
func WeekendDaysFor(countryCode string) []time.Weekday {
	if days, ok := weekendRules[strings.ToUpper(countryCode)]; ok {
		return days
	}
	return DefaultWeekend
}

// Weekday returns the day of the week of d.
func Weekday(d civil.Date) time.Weekday {
	return d.In(time.UTC).Weekday()
}

// IsWeekend reports whether d falls on a weekend day in countryCode.
func IsWeekend(d civil.Date, countryCode string) bool {
	return isWeekendDay(Weekday(d), WeekendDaysFor(countryCode))
}

// WeekendDatesInRange returns every weekend date in [start, end], ascending.
func WeekendDatesInRange(start, end civil.Date, countryCode string) []civil.Date {
	days := WeekendDaysFor(countryCode)

	var dates []civil.Date
	for d := start; !d.After(end); d = d.AddDays(1) {
		if isWeekendDay(Weekday(d), days) {
			dates = append(dates, d)
		}
	}
	return dates
}

// WorkdaysInRange returns every non-weekend date in [start, end], ascending.
// Public holidays are not excluded.
func WorkdaysInRange(start, end civil.Date, countryCode string) []civil.Date {
	days := WeekendDaysFor(countryCode)

	var dates []civil.Date
	for d := start; !d.After(end); d = d.AddDays(1) {
		if !isWeekendDay(Weekday(d), days) {
			dates = append(dates, d)
		}
	}
	return dates
}

// NextWeekend returns the earliest weekend date strictly after from.
func NextWeekend(from civil.Date, countryCode string) civil.Date {
	days := WeekendDaysFor(countryCode)

	d := from.AddDays(1)
	for !isWeekendDay(Weekday(d), days) {
		d = d.AddDays(1)
	}
	return d
}

// NextWeekendRange returns the start and end of the next weekend after from.
// The end is the day after the start when that day is also a weekend day;
// otherwise the weekend is a single day and end equals start.
func NextWeekendRange(from civil.Date, countryCode string) (start, end civil.Date) {
	start = NextWeekend(from, countryCode)
	end = start
	if next := start.AddDays(1); IsWeekend(next, countryCode) {
		end = next
	}
	return start, end
}

func isWeekendDay(day time.Weekday, weekend []time.Weekday) bool {
	for _, w := range weekend {
		if w == day {
			return true
		}
	}
	return false
}
