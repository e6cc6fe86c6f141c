// Package schedule holds the pure time math behind daily reminders:
// next-occurrence computation for a local wall-clock time and the
// local calendar date keys used to deduplicate reminders and check-ins.
package schedule

import (
	"errors"
	"regexp"
	"strconv"
	"time"
)

// ErrInvalidTimeFormat is returned when a reminder time is not a valid "HH:MM" string.
var ErrInvalidTimeFormat = errors.New("invalid reminder time format, expected HH:MM")

var timePattern = regexp.MustCompile(`^(?:[01]\d|2[0-3]):[0-5]\d$`)

// ParseReminderTime validates a 24-hour "HH:MM" string and returns its components.
func ParseReminderTime(s string) (hour, minute int, err error) {
	if !timePattern.MatchString(s) {
		return 0, 0, ErrInvalidTimeFormat
	}
	hour, _ = strconv.Atoi(s[:2])
	minute, _ = strconv.Atoi(s[3:])
	return hour, minute, nil
}

// NextReminderAt returns the next instant at which the wall-clock time
// reminderTime occurs in the given timezone, strictly after now.
// If today's occurrence has not yet passed it is returned, otherwise
// tomorrow's. The offset in effect at the target wall-clock time is used,
// so the result is correct across DST transitions and month/year rollovers.
// An unknown timezone falls back to UTC rather than failing.
func NextReminderAt(reminderTime, timezone string, now time.Time) (time.Time, error) {
	hour, minute, err := ParseReminderTime(reminderTime)
	if err != nil {
		return time.Time{}, err
	}

	loc := loadLocation(timezone)
	localNow := now.In(loc)

	today := time.Date(localNow.Year(), localNow.Month(), localNow.Day(), hour, minute, 0, 0, loc)
	if today.After(now) {
		return today.UTC(), nil
	}

	tomorrow := time.Date(localNow.Year(), localNow.Month(), localNow.Day()+1, hour, minute, 0, 0, loc)
	return tomorrow.UTC(), nil
}

// LocalDateKey formats the instant as a YYYY-MM-DD calendar date in the
// user's timezone. This is the deduplication unit for both reminders and
// check-ins: "one per day" always means one per local calendar date.
func LocalDateKey(t time.Time, timezone string) string {
	return t.In(loadLocation(timezone)).Format(dateKeyLayout)
}

// DateKeyAddDays shifts a YYYY-MM-DD key by the given number of days.
// Malformed keys are returned unchanged.
func DateKeyAddDays(key string, days int) string {
	d, err := time.Parse(dateKeyLayout, key)
	if err != nil {
		return key
	}
	return d.AddDate(0, 0, days).Format(dateKeyLayout)
}

const dateKeyLayout = "2006-01-02"

func loadLocation(timezone string) *time.Location {
	if timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
