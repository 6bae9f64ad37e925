package calendar

import (
	"time"

	"cloud.google.com/go/civil"
)

// DaysUntil returns how many days after from the next target weekday falls.
// The result is in [1, 7]: when from already is target, the answer is 7.
func DaysUntil(from civil.Date, target time.Weekday) int {
	days := (int(target) - int(Weekday(from)) + 7) % 7
	if days == 0 {
		days = 7
	}
	return days
}

// NextOccurrence returns the next date strictly after from that falls on
// target. It never returns from itself.
func NextOccurrence(from civil.Date, target time.Weekday) civil.Date {
	return from.AddDays(DaysUntil(from, target))
}

// StartOfWeek returns the Monday of the Monday–Sunday week containing d.
func StartOfWeek(d civil.Date) civil.Date {
	daysFromMonday := (int(Weekday(d)) - int(time.Monday) + 7) % 7
	return d.AddDays(-daysFromMonday)
}

// EndOfWeek returns the Sunday of the Monday–Sunday week containing d.
func EndOfWeek(d civil.Date) civil.Date {
	return StartOfWeek(d).AddDays(6)
}

// NextWeekMonday returns the Monday strictly after d's week.
func NextWeekMonday(d civil.Date) civil.Date {
	return NextOccurrence(d, time.Monday)
}

// Weekdays lists the days Monday through Sunday.
var Weekdays = []time.Weekday{
	time.Monday,
	time.Tuesday,
	time.Wednesday,
	time.Thursday,
	time.Friday,
	time.Saturday,
	time.Sunday,
}
