// Package availability computes bookable time slots for a location and day.
package availability

import (
	"time"

	"spa-booking-backend/internal/parse"
)

// Hours is the opening window of one day in minutes since local midnight.
type Hours struct {
	Open   int
	Close  int
	Closed bool
}

// Interval is a half-open [Start, End) span of time.
type Interval struct {
	Start time.Time
	End   time.Time
}

// Overlaps reports whether i and o share any instant.
func (i Interval) Overlaps(o Interval) bool {
	return i.Start.Before(o.End) && o.Start.Before(i.End)
}

// Input describes one availability query.
type Input struct {
	// Day is any instant on the requested date, in the business timezone.
	Day      time.Time
	Hours    *Hours
	Duration time.Duration
	Step     time.Duration
	Booked   []Interval
	Now      time.Time
}

// Slot is one candidate start time.
type Slot struct {
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Time      string    `json:"time"`
	Available bool      `json:"available"`
}

// Slots lists every start time between opening and closing, stepping by
// in.Step, where the service fits before closing. A slot is unavailable when
// it overlaps a booking or starts before in.Now.
func Slots(in Input) []Slot {
	if in.Hours == nil || in.Hours.Closed || in.Hours.Close <= in.Hours.Open {
		return []Slot{}
	}
	if in.Duration <= 0 {
		return []Slot{}
	}
	step := int(in.Step / time.Minute)
	if step <= 0 {
		step = 15
	}
	durationMinutes := int((in.Duration + time.Minute - 1) / time.Minute)

	y, m, d := in.Day.Date()
	loc := in.Day.Location()

	slots := []Slot{}
	for minute := in.Hours.Open; minute+durationMinutes <= in.Hours.Close; minute += step {
		start := time.Date(y, m, d, 0, minute, 0, 0, loc)
		end := start.Add(in.Duration)
		candidate := Interval{Start: start, End: end}

		available := !start.Before(in.Now)
		if available {
			for _, b := range in.Booked {
				if candidate.Overlaps(b) {
					available = false
					break
				}
			}
		}

		slots = append(slots, Slot{
			Start:     start,
			End:       end,
			Time:      parse.FormatClock(minute),
			Available: available,
		})
	}
	return slots
}

// IsAvailable reports whether start matches an available slot.
func IsAvailable(slots []Slot, start time.Time) bool {
	for _, s := range slots {
		if s.Start.Equal(start) {
			return s.Available
		}
	}
	return false
}

// AvailableCount returns the number of available slots.
func AvailableCount(slots []Slot) int {
	n := 0
	for _, s := range slots {
		if s.Available {
			n++
		}
	}
	return n
}
