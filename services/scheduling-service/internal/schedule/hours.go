// Package schedule models the salon's weekly working hours.
//
// Hours are stored as minutes since midnight in the salon's own timezone,
// which keeps slot arithmetic integer-only and leaves timezone conversion
// at the edges (request parsing and "now" checks).
package schedule

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const MinutesPerDay = 24 * 60

// DayHours is one weekday's open/close configuration.
// The zero value is an open day with an empty window; stores must set
// Closed explicitly for non-working days.
type DayHours struct {
	StartMinute int
	EndMinute   int
	Closed      bool
}

func (d DayHours) Validate() error {
	if d.Closed {
		return nil
	}
	if d.StartMinute < 0 || d.EndMinute > MinutesPerDay {
		return errors.New("working hours must fall within a single day")
	}
	if d.StartMinute >= d.EndMinute {
		return errors.New("opening time must be before closing time")
	}
	return nil
}

// Weekly holds hours for all seven weekdays, indexed by time.Weekday
// (Sunday = 0). A nil *Weekly means the salon has not configured hours
// yet and is treated as closed every day rather than an error.
type Weekly struct {
	Days [7]DayHours
}

func (w *Weekly) Day(d time.Weekday) DayHours {
	if w == nil {
		return DayHours{Closed: true}
	}
	return w.Days[int(d)%7]
}

func (w *Weekly) Set(d time.Weekday, hours DayHours) {
	w.Days[int(d)%7] = hours
}

// ParseClock converts "HH:MM" (or "HH:MM:SS", seconds ignored) to a
// minute-of-day value.
func ParseClock(s string) (int, error) {
	s = strings.TrimSpace(s)
	var h, m int
	if _, err := fmt.Sscanf(s+":00", "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("invalid clock value %q", s)
	}
	if h < 0 || h > 24 || m < 0 || m > 59 || h*60+m > MinutesPerDay {
		return 0, fmt.Errorf("invalid clock value %q", s)
	}
	return h*60 + m, nil
}

func FormatClock(minute int) string {
	return fmt.Sprintf("%02d:%02d", minute/60, minute%60)
}

// ParseDate parses a calendar date "YYYY-MM-DD" anchored in the salon's
// timezone.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation("2006-01-02", strings.TrimSpace(s), loc)
}

// MinuteOfDay returns t's wall-clock position in loc as minutes since
// midnight.
func MinuteOfDay(t time.Time, loc *time.Location) int {
	local := t.In(loc)
	return local.Hour()*60 + local.Minute()
}

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// ParseWeekday maps a lowercase weekday name ("monday".."sunday") to
// time.Weekday.
func ParseWeekday(name string) (time.Weekday, bool) {
	d, ok := weekdayNames[strings.ToLower(strings.TrimSpace(name))]
	return d, ok
}

func WeekdayName(d time.Weekday) string {
	return strings.ToLower(d.String())
}
