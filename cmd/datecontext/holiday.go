package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/Sternrassler/datecontext/pkg/calendar"
	"github.com/Sternrassler/datecontext/pkg/datecontext"
	"github.com/Sternrassler/datecontext/pkg/holidays"
	"github.com/spf13/cobra"
)

// holidayResult is the output of the holiday command.
type holidayResult struct {
	Date        string                  `json:"date"`
	DayOfWeek   string                  `json:"dayOfWeek"`
	CountryCode string                  `json:"countryCode"`
	Subdivision string                  `json:"subdivision,omitempty"`
	IsWeekend   bool                    `json:"isWeekend"`
	IsHoliday   bool                    `json:"isHoliday"`
	Holiday     *holidays.PublicHoliday `json:"holiday,omitempty"`
}

func newHolidayCmd(c *cli) *cobra.Command {
	var country, date, subdivision string

	cmd := &cobra.Command{
		Use:   "holiday",
		Short: "Check whether a date is a public holiday",
		Long: `Look up the public holiday on a date for a country, optionally narrowed to a
subdivision such as US-CA or GB-SCT. No geocoding key is needed.

Examples:
  datecontext holiday --country GB --date 2026-12-28
  datecontext holiday --country US --subdivision US-CA --date 2026-03-31`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			country = strings.ToUpper(strings.TrimSpace(country))

			day := civil.DateOf(time.Now())
			parsed, err := datecontext.ParseAsOfDate(date)
			if err != nil {
				return errors.New(datecontext.UserMessage(err))
			}
			if parsed != nil {
				day = *parsed
			}

			a, err := newApp(ctx, c.cfg, c.logger, false)
			if err != nil {
				return err
			}
			defer a.close()

			h, err := a.catalog.GetHolidayForDate(ctx, country, day, subdivision)
			if err != nil {
				return errors.New(datecontext.UserMessage(err))
			}

			result := holidayResult{
				Date:        day.String(),
				DayOfWeek:   calendar.Weekday(day).String(),
				CountryCode: country,
				Subdivision: subdivision,
				IsWeekend:   calendar.IsWeekend(day, country),
				IsHoliday:   h != nil,
				Holiday:     h,
			}
			data, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}

	cmd.Flags().StringVar(&country, "country", "", "ISO 3166-1 alpha-2 country code (required)")
	cmd.Flags().StringVar(&date, "date", "", "date to check, ISO 8601 (default today)")
	cmd.Flags().StringVar(&subdivision, "subdivision", "", "subdivision code, e.g. US-CA")
	cmd.MarkFlagRequired("country") //nolint:errcheck

	return cmd
}
