package parse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var clockRe = regexp.MustCompile(`^(\d{1,2}):(\d{2})$`)

// MinutesPerDay is the exclusive upper bound of a wall-clock minute, except
// that "24:00" is accepted as an end-of-day closing time.
const MinutesPerDay = 24 * 60

// DateLayout is the layout of dates exchanged with clients.
const DateLayout = "2006-01-02"

// Clock converts an "HH:MM" wall-clock string into minutes since midnight.
func Clock(raw string) (int, error) {
	s := strings.TrimSpace(raw)
	m := clockRe.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("invalid clock time %q: want HH:MM", raw)
	}

	hours, _ := strconv.Atoi(m[1])
	minutes, _ := strconv.Atoi(m[2])
	if minutes > 59 {
		return 0, fmt.Errorf("invalid clock time %q: minutes out of range", raw)
	}

	total := hours*60 + minutes
	if total > MinutesPerDay {
		return 0, fmt.Errorf("invalid clock time %q: past end of day", raw)
	}
	return total, nil
}

// FormatClock renders minutes since midnight as "HH:MM".
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// Date parses a YYYY-MM-DD date as midnight in loc.
func Date(raw string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	d, err := time.ParseInLocation(DateLayout, strings.TrimSpace(raw), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD", raw)
	}
	return d, nil
}

// Location loads an IANA timezone, falling back to UTC when name is empty.
func Location(name string) (*time.Location, error) {
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %q: %w", name, err)
	}
	return loc, nil
}
