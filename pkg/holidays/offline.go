package holidays

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/rickar/cal/v2"
	"github.com/rickar/cal/v2/de"
	"github.com/rickar/cal/v2/gb"
	"github.com/rickar/cal/v2/us"
)

// ProviderOffline is the provider name used for logs and metrics.
const ProviderOffline = "offline"

// OfflineProvider computes nationwide holidays locally for a fixed set of
// countries. Unknown countries report ErrNoData.
type OfflineProvider struct {
	calendars map[string]*cal.BusinessCalendar
}

// NewOfflineProvider creates an offline provider for US, GB and DE.
func NewOfflineProvider() *OfflineProvider {
	return &OfflineProvider{
		calendars: map[string]*cal.BusinessCalendar{
			"US": newCalendar(us.Holidays),
			"GB": newCalendar(gb.Holidays),
			"DE": newCalendar(de.Holidays),
		},
	}
}

func newCalendar(holidays []*cal.Holiday) *cal.BusinessCalendar {
	c := cal.NewBusinessCalendar()
	c.AddHoliday(holidays...)
	return c
}

// Name implements Provider.
func (o *OfflineProvider) Name() string {
	return ProviderOffline
}

// Countries returns the supported country codes.
func (o *OfflineProvider) Countries() []string {
	countries := make([]string, 0, len(o.calendars))
	for cc := range o.calendars {
		countries = append(countries, cc)
	}
	return countries
}

// PublicHolidays implements Provider by scanning every day of year.
// Only the actual holiday date is reported, not the observed substitute.
func (o *OfflineProvider) PublicHolidays(ctx context.Context, year int, countryCode string) ([]PublicHoliday, error) {
	cc := strings.ToUpper(countryCode)
	calendar, ok := o.calendars[cc]
	if !ok {
		return nil, fmt.Errorf("%s %d: %w", cc, year, ErrNoData)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var holidays []PublicHoliday
	day := civil.Date{Year: year, Month: time.January, Day: 1}
	for day.Year == year {
		actual, _, h := calendar.IsHoliday(day.In(time.UTC))
		if actual && h != nil {
			holidays = append(holidays, PublicHoliday{
				Date:        day,
				LocalName:   h.Name,
				Name:        h.Name,
				CountryCode: cc,
				Global:      true,
				Types:       []string{"Public"},
			})
		}
		day = day.AddDays(1)
	}

	return holidays, nil
}
