// Package timezone resolves clinic locations and calendar days. Clinic
// agendas, working hours and date filters are read in the clinic's zone and
// stored in UTC.
package timezone

import (
	"errors"
	"time"
)

const (
	DefaultTimezone = "UTC"
	DayLayout       = "2006-01-02"
)

var ErrInvalidDay = errors.New("invalid day, expected YYYY-MM-DD")

func IsValid(tz string) bool {
	if tz == "" {
		return false
	}
	_, err := time.LoadLocation(tz)
	return err == nil
}

// Location falls back to UTC for empty or unknown zones.
func Location(tz string) *time.Location {
	if tz != "" {
		if loc, err := time.LoadLocation(tz); err == nil {
			return loc
		}
	}
	return time.UTC
}

// ParseDay reads a calendar day as its midnight in loc.
func ParseDay(s string, loc *time.Location) (time.Time, error) {
	d, err := time.ParseInLocation(DayLayout, s, loc)
	if err != nil {
		return time.Time{}, ErrInvalidDay
	}
	return d, nil
}

// DayRange turns optional from/to days into a half open UTC range. to is
// inclusive; an empty bound stays zero.
func DayRange(from, to string, loc *time.Location) (start, end time.Time, err error) {
	if from != "" {
		d, err := ParseDay(from, loc)
		if err != nil {
			return start, end, err
		}
		start = d.UTC()
	}
	if to != "" {
		d, err := ParseDay(to, loc)
		if err != nil {
			return start, end, err
		}
		end = d.AddDate(0, 0, 1).UTC()
	}
	return start, end, nil
}
