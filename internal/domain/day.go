package domain

import (
	"fmt"
	"strings"
	"time"
)

// DayLayout is the calendar-day format used in URLs and range queries.
const DayLayout = "2006-01-02"

var dayInputLayouts = []string{
	DayLayout,
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
}

// Day is a UTC calendar day expressed as inclusive instant bounds.
type Day struct {
	Start time.Time // 00:00:00.000 UTC
	End   time.Time // 23:59:59.999 UTC
}

// DayOf returns the UTC calendar day containing t.
func DayOf(t time.Time) Day {
	u := t.UTC()
	start := time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
	return Day{
		Start: start,
		End:   start.Add(24*time.Hour - time.Millisecond),
	}
}

// ParseDay parses an ISO date or date-time and normalises it to its UTC day.
// Date-times carrying an offset are converted to UTC before truncation;
// date-times without one are taken as UTC.
func ParseDay(s string) (Day, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Day{}, fmt.Errorf("%w: date is required", ErrInvalidInput)
	}
	for _, layout := range dayInputLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return DayOf(t), nil
		}
	}
	return Day{}, fmt.Errorf("%w: date %q is not an ISO 8601 date", ErrInvalidInput, s)
}

// String formats the day as YYYY-MM-DD.
func (d Day) String() string {
	return d.Start.Format(DayLayout)
}

// Next returns the following calendar day.
func (d Day) Next() Day {
	return DayOf(d.Start.AddDate(0, 0, 1))
}

// Contains reports whether t falls inside the day bounds, inclusive.
func (d Day) Contains(t time.Time) bool {
	return !t.Before(d.Start) && !t.After(d.End)
}
