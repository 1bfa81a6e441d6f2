package domain

import (
	"strings"
	"time"
)

const (
	DateLayout      = "2006-01-02"
	TimestampLayout = "2006-01-02 15:04:05"
)

// DateRange is an inclusive range of calendar days.
type DateRange struct {
	Start time.Time
	End   time.Time
}

func ParseDate(value string) (time.Time, error) {
	d, err := time.Parse(DateLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, NewValidationError("date %q must use the YYYY-MM-DD format", value)
	}
	return d, nil
}

func NewDateRange(start, end string) (DateRange, error) {
	s, err := ParseDate(start)
	if err != nil {
		return DateRange{}, err
	}
	e, err := ParseDate(end)
	if err != nil {
		return DateRange{}, err
	}
	if e.Before(s) {
		return DateRange{}, NewValidationError("end date %s is before start date %s", end, start)
	}
	return DateRange{Start: s, End: e}, nil
}

// Overlaps reports whether two inclusive ranges share at least one day.
func (r DateRange) Overlaps(other DateRange) bool {
	return !r.Start.After(other.End) && !r.End.Before(other.Start)
}

// Days is the billable duration: the number of days between start and end,
// with a one day minimum.
func (r DateRange) Days() int {
	days := int(r.End.Sub(r.Start).Hours() / 24)
	if days < 1 {
		return 1
	}
	return days
}

func (r DateRange) Contains(day time.Time) bool {
	d := day.UTC().Truncate(24 * time.Hour)
	return !d.Before(r.Start) && !d.After(r.End)
}

func (r DateRange) String() string {
	return r.Start.Format(DateLayout) + ".." + r.End.Format(DateLayout)
}

// Today returns the calendar day of t in UTC.
func Today(t time.Time) string {
	return t.UTC().Format(DateLayout)
}
