package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	"salonbook/services/scheduling-service/internal/availability"
	"salonbook/services/scheduling-service/internal/schedule"
)

type stubHours struct {
	weekly *schedule.Weekly
	err    error
}

func (s stubHours) Weekly(context.Context) (*schedule.Weekly, error) { return s.weekly, s.err }

type stubDurations map[string]int

func (s stubDurations) Duration(_ context.Context, id string) (int, error) {
	d, ok := s[id]
	if !ok {
		return 0, pgx.ErrNoRows
	}
	return d, nil
}

type stubSpans struct {
	spans []availability.Span
	err   error
}

func (s stubSpans) DaySpans(context.Context, string) ([]availability.Span, error) {
	return s.spans, s.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func allWeekOpen(start, end int) *schedule.Weekly {
	weekly := &schedule.Weekly{}
	for d := 0; d < 7; d++ {
		weekly.Days[d] = schedule.DayHours{StartMinute: start, EndMinute: end}
	}
	return weekly
}

func newScheduleHandler(hours HoursSource, services DurationSource, spans SpanReader) *ScheduleHandler {
	h := NewScheduleHandler(hours, services, spans, testLogger(), time.UTC, 30)
	h.now = func() time.Time { return time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC) }
	return h
}

func doDay(t *testing.T, h *ScheduleHandler, url string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, url, nil)
	rec := httptest.NewRecorder()
	h.Day(rec, req)
	return rec
}

func TestScheduleDay_FullGrid(t *testing.T) {
	h := newScheduleHandler(
		stubHours{weekly: allWeekOpen(9*60, 18*60)},
		stubDurations{"cut": 60},
		stubSpans{},
	)

	rec := doDay(t, h, "/api/v1/public/schedule?date=2026-09-14&service_id=cut")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp dayScheduleResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad json: %v", err)
	}
	if resp.Closed {
		t.Fatal("open day rendered closed")
	}
	if len(resp.Slots) != 17 {
		t.Fatalf("expected 17 slots, got %d", len(resp.Slots))
	}
	if resp.Slots[0].StartTime != "09:00" || resp.Slots[len(resp.Slots)-1].StartTime != "17:00" {
		t.Fatalf("unexpected grid bounds: %s .. %s", resp.Slots[0].StartTime, resp.Slots[len(resp.Slots)-1].StartTime)
	}
	for _, s := range resp.Slots {
		if !s.Available {
			t.Fatalf("slot %s should be available with no appointments", s.StartTime)
		}
	}
}

func TestScheduleDay_BookedAppointmentBlocksOverlaps(t *testing.T) {
	h := newScheduleHandler(
		stubHours{weekly: allWeekOpen(9*60, 18*60)},
		stubDurations{"cut": 60},
		stubSpans{spans: []availability.Span{{StartMinute: 10 * 60, EndMinute: 11 * 60}}},
	)

	rec := doDay(t, h, "/api/v1/public/schedule?date=2026-09-14&service_id=cut")
	var resp dayScheduleResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad json: %v", err)
	}

	avail := map[string]bool{}
	for _, s := range resp.Slots {
		avail[s.StartTime] = s.Available
	}
	if !avail["09:00"] {
		t.Error("09:00 should be available")
	}
	if avail["09:30"] {
		t.Error("09:30 should be blocked")
	}
	if !avail["11:00"] {
		t.Error("11:00 should be available")
	}
}

func TestScheduleDay_ClosedDistinctFromFullyBooked(t *testing.T) {
	weekly := allWeekOpen(9*60, 18*60)
	weekly.Set(time.Monday, schedule.DayHours{Closed: true})
	h := newScheduleHandler(stubHours{weekly: weekly}, stubDurations{"cut": 60}, stubSpans{})

	rec := doDay(t, h, "/api/v1/public/schedule?date=2026-09-14&service_id=cut")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp dayScheduleResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad json: %v", err)
	}
	if !resp.Closed {
		t.Fatal("closed day must be flagged closed")
	}
	if len(resp.Slots) != 0 {
		t.Fatalf("closed day must have no slots, got %d", len(resp.Slots))
	}
}

func TestScheduleDay_UnconfiguredHoursRenderClosed(t *testing.T) {
	h := newScheduleHandler(stubHours{weekly: nil}, stubDurations{"cut": 60}, stubSpans{})

	rec := doDay(t, h, "/api/v1/public/schedule?date=2026-09-14&service_id=cut")
	if rec.Code != http.StatusOK {
		t.Fatalf("missing config must not error, status = %d", rec.Code)
	}
	var resp dayScheduleResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad json: %v", err)
	}
	if !resp.Closed {
		t.Fatal("unconfigured hours must render closed")
	}
}

func TestScheduleDay_SkipsPastSlotsToday(t *testing.T) {
	h := newScheduleHandler(
		stubHours{weekly: allWeekOpen(9*60, 18*60)},
		stubDurations{"cut": 60},
		stubSpans{},
	)
	h.now = func() time.Time { return time.Date(2026, 9, 14, 16, 10, 0, 0, time.UTC) }

	rec := doDay(t, h, "/api/v1/public/schedule?date=2026-09-14&service_id=cut")
	var resp dayScheduleResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad json: %v", err)
	}
	// Only 16:30 and 17:00 remain after 16:10.
	if len(resp.Slots) != 2 {
		t.Fatalf("expected 2 remaining slots, got %d", len(resp.Slots))
	}
	if resp.Slots[0].StartTime != "16:30" {
		t.Fatalf("first remaining slot = %s", resp.Slots[0].StartTime)
	}
}

func TestScheduleDay_PastDateHasNoSlots(t *testing.T) {
	h := newScheduleHandler(
		stubHours{weekly: allWeekOpen(9*60, 18*60)},
		stubDurations{"cut": 60},
		stubSpans{},
	)
	// now is 2026-09-01; the whole grid for an earlier date is unbookable.
	rec := doDay(t, h, "/api/v1/public/schedule?date=2026-08-20&service_id=cut")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp dayScheduleResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad json: %v", err)
	}
	if resp.Closed {
		t.Fatal("a past open day is not closed, just unbookable")
	}
	if len(resp.Slots) != 0 {
		t.Fatalf("past date must offer no slots, got %d", len(resp.Slots))
	}
}

func TestScheduleDay_UnknownService(t *testing.T) {
	h := newScheduleHandler(stubHours{weekly: allWeekOpen(9*60, 18*60)}, stubDurations{}, stubSpans{})
	rec := doDay(t, h, "/api/v1/public/schedule?date=2026-09-14&service_id=nope")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestScheduleDay_BadRequests(t *testing.T) {
	h := newScheduleHandler(stubHours{weekly: allWeekOpen(9*60, 18*60)}, stubDurations{"cut": 60}, stubSpans{})

	if rec := doDay(t, h, "/api/v1/public/schedule?service_id=cut"); rec.Code != http.StatusBadRequest {
		t.Fatalf("missing date: status = %d", rec.Code)
	}
	if rec := doDay(t, h, "/api/v1/public/schedule?date=notadate&service_id=cut"); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad date: status = %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/public/schedule?date=2026-09-14&service_id=cut", nil)
	rec := httptest.NewRecorder()
	h.Day(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("POST: status = %d", rec.Code)
	}
}
