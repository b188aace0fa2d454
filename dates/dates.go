// Package dates parses the timestamps found in Jira sprint reports and
// renders them for humans.
package dates

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

// TrackerLayout is the format the sprint report uses for startDate/endDate,
// e.g. "03/Jan/18 10:48 AM".
const TrackerLayout = "02/Jan/06 03:04 PM"

// ErrBadDate is returned when a tracker date does not match TrackerLayout.
var ErrBadDate = errors.New("bad tracker date")

// ParseTrackerDate parses s strictly against TrackerLayout. The result is in UTC.
func ParseTrackerDate(s string) (time.Time, error) {
	return ParseTrackerDateIn(s, time.UTC)
}

// ParseTrackerDateIn is ParseTrackerDate for a Jira instance whose wall clock
// is in loc. The dates carry no offset, so loc decides which instant they
// name. A nil loc means UTC.
func ParseTrackerDateIn(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(TrackerLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrBadDate, s)
	}
	return t, nil
}

// OrdinalSuffix returns "st", "nd", "rd" or "th" for a day of the month.
func OrdinalSuffix(day int) string {
	if day%100/10 == 1 {
		return "th"
	}
	switch day % 10 {
	case 1:
		return "st"
	case 2:
		return "nd"
	case 3:
		return "rd"
	default:
		return "th"
	}
}

// Ordinal returns the day number with its suffix, e.g. "21st".
func Ordinal(day int) string {
	return strconv.Itoa(day) + OrdinalSuffix(day)
}

// PrettyDate renders t as "Wednesday, January 3rd, 2018".
func PrettyDate(t time.Time) string {
	return fmt.Sprintf("%s, %s %s, %d", t.Weekday(), t.Month(), Ordinal(t.Day()), t.Year())
}
