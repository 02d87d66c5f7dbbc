// Package availability computes bookable time slots for a single day.
// All functions are pure: callers fetch hours and appointments, this
// package only does interval arithmetic in minutes since midnight.
package availability

import (
	"errors"

	"salonbook/services/scheduling-service/internal/schedule"
)

// ErrClosedDay distinguishes "salon is closed" from "open but fully
// booked"; callers render a closed state instead of an empty grid.
var ErrClosedDay = errors.New("salon is closed on the requested day")

// Span is a busy interval [StartMinute, EndMinute) taken by an existing
// non-cancelled appointment.
type Span struct {
	StartMinute int
	EndMinute   int
}

// Slot is one candidate booking window starting at StartMinute.
type Slot struct {
	StartMinute int
	Available   bool
}

// Slots returns the ordered candidate start times for a service of the
// given duration: one every stepMins from opening, keeping only starts
// whose full service window fits before closing. An open day too short
// for the service yields an empty (non-nil-error) result.
func Slots(day schedule.DayHours, durationMins, stepMins int) ([]int, error) {
	if day.Closed {
		return nil, ErrClosedDay
	}
	if durationMins <= 0 || stepMins <= 0 {
		return nil, errors.New("duration and step must be positive")
	}
	var starts []int
	for t := day.StartMinute; t+durationMins <= day.EndMinute; t += stepMins {
		starts = append(starts, t)
	}
	return starts, nil
}

// Annotate marks each candidate start available unless its window
// [t, t+duration) overlaps any busy span. Adjacent intervals do not
// conflict.
func Annotate(starts []int, durationMins int, busy []Span) []Slot {
	slots := make([]Slot, 0, len(starts))
	for _, t := range starts {
		slots = append(slots, Slot{
			StartMinute: t,
			Available:   !overlapsAny(t, t+durationMins, busy),
		})
	}
	return slots
}

// Overlaps reports whether half-open intervals [aStart, aEnd) and
// [bStart, bEnd) share at least one instant.
func Overlaps(aStart, aEnd, bStart, bEnd int) bool {
	return aStart < bEnd && bStart < aEnd
}

func overlapsAny(start, end int, busy []Span) bool {
	for _, b := range busy {
		if Overlaps(start, end, b.StartMinute, b.EndMinute) {
			return true
		}
	}
	return false
}
