package schedule

import (
	"testing"
	"time"
)

func TestParseClock(t *testing.T) {
	cases := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"09:00", 540, false},
		{"18:30", 1110, false},
		{"00:00", 0, false},
		{"24:00", 1440, false},
		{"09:00:30", 540, false},
		{" 10:15 ", 615, false},
		{"25:00", 0, true},
		{"09:75", 0, true},
		{"nine", 0, true},
		{"", 0, true},
	}
	for _, tc := range cases {
		got, err := ParseClock(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseClock(%q): expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseClock(%q): %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseClock(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestFormatClock(t *testing.T) {
	if got := FormatClock(540); got != "09:00" {
		t.Fatalf("FormatClock(540) = %q", got)
	}
	if got := FormatClock(1110); got != "18:30" {
		t.Fatalf("FormatClock(1110) = %q", got)
	}
	if got := FormatClock(0); got != "00:00" {
		t.Fatalf("FormatClock(0) = %q", got)
	}
}

func TestDayHoursValidate(t *testing.T) {
	if err := (DayHours{StartMinute: 540, EndMinute: 1080}).Validate(); err != nil {
		t.Fatalf("valid hours rejected: %v", err)
	}
	if err := (DayHours{StartMinute: 1080, EndMinute: 540}).Validate(); err == nil {
		t.Fatal("start after end must be rejected")
	}
	if err := (DayHours{StartMinute: 540, EndMinute: 540}).Validate(); err == nil {
		t.Fatal("empty window must be rejected")
	}
	if err := (DayHours{Closed: true, StartMinute: 99, EndMinute: 1}).Validate(); err != nil {
		t.Fatalf("closed day should skip window validation: %v", err)
	}
}

func TestWeeklyNilMeansClosed(t *testing.T) {
	var weekly *Weekly
	for d := time.Sunday; d <= time.Saturday; d++ {
		if !weekly.Day(d).Closed {
			t.Fatalf("unconfigured schedule must read closed on %s", d)
		}
	}
}

func TestWeeklySetAndDay(t *testing.T) {
	var weekly Weekly
	weekly.Set(time.Monday, DayHours{StartMinute: 540, EndMinute: 1080})
	day := weekly.Day(time.Monday)
	if day.Closed || day.StartMinute != 540 || day.EndMinute != 1080 {
		t.Fatalf("unexpected monday hours: %+v", day)
	}
}

func TestParseWeekday(t *testing.T) {
	d, ok := ParseWeekday("Monday")
	if !ok || d != time.Monday {
		t.Fatalf("ParseWeekday(Monday) = %v, %v", d, ok)
	}
	if _, ok := ParseWeekday("someday"); ok {
		t.Fatal("unknown weekday accepted")
	}
	if got := WeekdayName(time.Sunday); got != "sunday" {
		t.Fatalf("WeekdayName(Sunday) = %q", got)
	}
}

func TestMinuteOfDay(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Madrid")
	if err != nil {
		t.Skip("tzdata unavailable")
	}
	// 12:30 UTC in summer is 14:30 in Madrid.
	utc := time.Date(2026, 7, 10, 12, 30, 0, 0, time.UTC)
	if got := MinuteOfDay(utc, loc); got != 14*60+30 {
		t.Fatalf("MinuteOfDay = %d, want %d", got, 14*60+30)
	}
}

func TestParseDate(t *testing.T) {
	day, err := ParseDate("2026-09-14", time.UTC)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if day.Weekday() != time.Monday {
		t.Fatalf("2026-09-14 should be a Monday, got %s", day.Weekday())
	}
	if _, err := ParseDate("14/09/2026", time.UTC); err == nil {
		t.Fatal("non-ISO date accepted")
	}
}
