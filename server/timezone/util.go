// Package timezone provides IANA timezone helpers for study-day handling.
//
// Due dates and "attempts today" counts depend on where the learner's day
// starts; everything here keeps that boundary consistent.
package timezone

import (
	"fmt"
	"time"
)

// UTC is the coordinated universal time location.
var UTC = time.UTC

// ParseTimezone parses an IANA timezone identifier (e.g. "Europe/Berlin").
// If the timezone is invalid, returns UTC and an error.
func ParseTimezone(tz string) (*time.Location, error) {
	if tz == "" || tz == "UTC" {
		return UTC, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return UTC, fmt.Errorf("invalid timezone %q: %w", tz, err)
	}
	return loc, nil
}

// MustParseTimezone parses a timezone or panics if invalid. Use this for
// identifiers known to be valid at compile time.
func MustParseTimezone(tz string) *time.Location {
	loc, err := ParseTimezone(tz)
	if err != nil {
		panic(err)
	}
	return loc
}

// IsValidTimezone checks if a timezone identifier is valid.
func IsValidTimezone(tz string) bool {
	if tz == "" || tz == "UTC" {
		return true
	}
	_, err := time.LoadLocation(tz)
	return err == nil
}

// ToUserTimezone converts a Unix timestamp to the user's timezone.
func ToUserTimezone(ts int64, tz *time.Location) time.Time {
	if tz == nil {
		tz = UTC
	}
	return time.Unix(ts, 0).In(tz)
}

// StartOfDay returns the start of the study day (00:00:00) in the given
// timezone.
func StartOfDay(t time.Time, tz *time.Location) time.Time {
	if tz == nil {
		tz = UTC
	}
	local := t.In(tz)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, tz)
}

// EndOfDay returns the last instant of the study day in the given timezone.
func EndOfDay(t time.Time, tz *time.Location) time.Time {
	if tz == nil {
		tz = UTC
	}
	local := t.In(tz)
	return time.Date(local.Year(), local.Month(), local.Day(), 23, 59, 59, 999999999, tz)
}

// StudyDayBounds returns the Unix timestamp range [start, end) of the study
// day containing t in the given timezone.
func StudyDayBounds(t time.Time, tz *time.Location) (int64, int64) {
	start := StartOfDay(t, tz)
	return start.Unix(), start.AddDate(0, 0, 1).Unix()
}

// SameStudyDay reports whether two instants fall in the same study day.
func SameStudyDay(a, b time.Time, tz *time.Location) bool {
	return StartOfDay(a, tz).Equal(StartOfDay(b, tz))
}
