package datecontext

// Snapshot is the date context for one place as of one day. Dates are
// yyyy-MM-dd and weekday names are full English names.
type Snapshot struct {
	Location         LocationInfo  `json:"location"`
	Today            DateInfo      `json:"today"`
	Tomorrow         DateInfo      `json:"tomorrow"`
	DayAfterTomorrow DateInfo      `json:"dayAfterTomorrow"`
	ThisWeek         ThisWeekInfo  `json:"thisWeek"`
	NextWeek         NextWeekInfo  `json:"nextWeek"`
	UpcomingHolidays []HolidayInfo `json:"upcomingHolidays"`
	KeyDates         KeyDatesInfo  `json:"keyDates"`
}

// LocationInfo describes the resolved place. UTCOffset and CurrentLocalTime
// always reflect the real current instant, even with an as-of date.
type LocationInfo struct {
	ResolvedName     string `json:"resolvedName"`
	FormattedAddress string `json:"formattedAddress"`
	CountryCode      string `json:"countryCode"`
	Timezone         string `json:"timezone"`
	UTCOffset        string `json:"utcOffset"`
	CurrentLocalTime string `json:"currentLocalTime"`
}

// DateInfo holds the facts for a single day.
type DateInfo struct {
	Date        string  `json:"date"`
	DayOfWeek   string  `json:"dayOfWeek"`
	IsWeekend   bool    `json:"isWeekend"`
	IsHoliday   bool    `json:"isHoliday"`
	HolidayName *string `json:"holidayName"`
}

// ThisWeekInfo summarises the Monday to Sunday week containing today.
type ThisWeekInfo struct {
	WeekendDays       []string `json:"weekendDays"`
	WeekendDates      []string `json:"weekendDates"`
	RemainingWorkdays []string `json:"remainingWorkdays"`
}

// NextWeekInfo summarises the week after this one.
type NextWeekInfo struct {
	Monday       string   `json:"monday"`
	Friday       string   `json:"friday"`
	WeekendDates []string `json:"weekendDates"`
	Workdays     []string `json:"workdays"`
}

// HolidayInfo is an upcoming holiday.
type HolidayInfo struct {
	Date      string `json:"date"`
	Name      string `json:"name"`
	DayOfWeek string `json:"dayOfWeek"`
}

// KeyDatesInfo holds the next occurrence of each weekday and the next weekend.
type KeyDatesInfo struct {
	NextMonday    string       `json:"nextMonday"`
	NextTuesday   string       `json:"nextTuesday"`
	NextWednesday string       `json:"nextWednesday"`
	NextThursday  string       `json:"nextThursday"`
	NextFriday    string       `json:"nextFriday"`
	NextSaturday  string       `json:"nextSaturday"`
	NextSunday    string       `json:"nextSunday"`
	NextWeekend   WeekendRange `json:"nextWeekend"`
}

// WeekendRange is an inclusive date range.
type WeekendRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}
