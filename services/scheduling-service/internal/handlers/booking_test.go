package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	"salonbook/services/scheduling-service/internal/availability"
	"salonbook/services/scheduling-service/internal/booking"
	"salonbook/services/scheduling-service/internal/model"
	"salonbook/services/scheduling-service/internal/outbox"
	"salonbook/services/scheduling-service/internal/realtime"
)

type stubBooker struct {
	res  booking.Result
	err  error
	last booking.Request
}

func (s *stubBooker) Commit(_ context.Context, req booking.Request) (booking.Result, error) {
	s.last = req
	return s.res, s.err
}

type stubAppointments struct {
	cancelled model.Appointment
	cancelErr error
	listed    []model.Appointment
	listErr   error
	evt       *outbox.Event
}

func (s *stubAppointments) CancelAtomic(_ context.Context, _, reason string, build func(model.Appointment, time.Time) *outbox.Event) (model.Appointment, error) {
	if s.cancelErr != nil {
		return model.Appointment{}, s.cancelErr
	}
	if build != nil {
		s.evt = build(s.cancelled, time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC))
	}
	return s.cancelled, nil
}

func (s *stubAppointments) ListByDate(context.Context, string, int) ([]model.Appointment, error) {
	return s.listed, s.listErr
}

type recordingFeed struct {
	channels []string
}

func (f *recordingFeed) Publish(_ context.Context, channel string, _ []byte) error {
	f.channels = append(f.channels, channel)
	return nil
}

func (f *recordingFeed) Subscribe(context.Context, string, func([]byte)) (func(), error) {
	return func() {}, nil
}

func postJSON(t *testing.T, h http.HandlerFunc, url, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, url, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func TestBook_Created(t *testing.T) {
	booker := &stubBooker{res: booking.Result{
		AppointmentID: "appt-1",
		Status:        model.StatusPending,
		StartMinute:   10 * 60,
		EndMinute:     11 * 60,
	}}
	feed := &recordingFeed{}
	h := NewBookingHandler(booker, &stubAppointments{}, feed, testLogger())

	rec := postJSON(t, h.Book, "/api/v1/public/book",
		`{"date":"2026-09-14","time":"10:00","service_id":"cut","client_id":"client-1"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp bookResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad json: %v", err)
	}
	if resp.AppointmentID != "appt-1" || resp.Status != model.StatusPending {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.StartTime != "10:00" || resp.EndTime != "11:00" {
		t.Fatalf("unexpected window: %s-%s", resp.StartTime, resp.EndTime)
	}
	if booker.last.AdminInitiated {
		t.Fatal("public booking must not be admin-initiated")
	}
	if len(feed.channels) != 1 || feed.channels[0] != realtime.ScheduleChannel("2026-09-14") {
		t.Fatalf("expected one schedule invalidation, got %v", feed.channels)
	}
}

func TestBook_SlotTakenConflict(t *testing.T) {
	booker := &stubBooker{err: booking.ErrSlotTaken}
	feed := &recordingFeed{}
	h := NewBookingHandler(booker, &stubAppointments{}, feed, testLogger())

	rec := postJSON(t, h.Book, "/api/v1/public/book",
		`{"date":"2026-09-14","time":"10:00","service_id":"cut","client_id":"client-1"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
	if len(feed.channels) != 0 {
		t.Fatal("rejected booking must not invalidate the schedule")
	}
}

func TestBook_RejectionStatuses(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"closed day", availability.ErrClosedDay, http.StatusUnprocessableEntity},
		{"outside hours", booking.ErrOutsideHours, http.StatusUnprocessableEntity},
		{"validation", booking.ErrValidation, http.StatusUnprocessableEntity},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := NewBookingHandler(&stubBooker{err: tc.err}, &stubAppointments{}, &recordingFeed{}, testLogger())
			rec := postJSON(t, h.Book, "/api/v1/public/book",
				`{"date":"2026-09-14","time":"10:00","service_id":"cut","client_id":"client-1"}`)
			if rec.Code != tc.want {
				t.Fatalf("status = %d, want %d", rec.Code, tc.want)
			}
		})
	}
}

func TestBook_InvalidBody(t *testing.T) {
	h := NewBookingHandler(&stubBooker{}, &stubAppointments{}, &recordingFeed{}, testLogger())
	rec := postJSON(t, h.Book, "/api/v1/public/book", `{bad json`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestAdminBook_Confirmed(t *testing.T) {
	booker := &stubBooker{res: booking.Result{AppointmentID: "appt-2", Status: model.StatusConfirmed}}
	h := NewBookingHandler(booker, &stubAppointments{}, &recordingFeed{}, testLogger())

	rec := postJSON(t, h.AdminBook, "/api/v1/admin/appointments",
		`{"date":"2026-09-14","time":"10:00","service_id":"cut","client_id":"walk-in"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d", rec.Code)
	}
	if !booker.last.AdminInitiated {
		t.Fatal("admin route must mark the request admin-initiated")
	}
}

func TestCancel_PublishesInvalidationAndEvent(t *testing.T) {
	cancelledAt := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	store := &stubAppointments{cancelled: model.Appointment{
		ID:          "appt-1",
		ClientID:    "client-1",
		ServiceID:   "cut",
		Date:        "2026-09-14",
		StartMinute: 10 * 60,
		EndMinute:   11 * 60,
		Status:      model.StatusCancelled,
		CancelledAt: &cancelledAt,
	}}
	feed := &recordingFeed{}
	h := NewBookingHandler(&stubBooker{}, store, feed, testLogger())

	rec := postJSON(t, h.Cancel, "/api/v1/appointments/cancel",
		`{"appointment_id":"appt-1","reason":"client request"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if store.evt == nil || store.evt.EventType != outbox.EventAppointmentCancelled {
		t.Fatalf("expected cancellation event, got %+v", store.evt)
	}
	if len(feed.channels) != 1 || feed.channels[0] != realtime.ScheduleChannel("2026-09-14") {
		t.Fatalf("expected invalidation for the appointment date, got %v", feed.channels)
	}
}

func TestCancel_RequiresAdminToken(t *testing.T) {
	cancelledAt := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	store := &stubAppointments{cancelled: model.Appointment{
		ID:          "appt-1",
		Date:        "2026-09-14",
		Status:      model.StatusCancelled,
		CancelledAt: &cancelledAt,
	}}
	h := NewBookingHandler(&stubBooker{}, store, &recordingFeed{}, testLogger())

	secret := []byte("test-secret")
	guarded := WithAdminAuth(secret)(http.HandlerFunc(h.Cancel))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/appointments/cancel",
		strings.NewReader(`{"appointment_id":"appt-1"}`))
	rec := httptest.NewRecorder()
	guarded.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated cancel: status = %d, want 401", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/appointments/cancel",
		strings.NewReader(`{"appointment_id":"appt-1"}`))
	req.Header.Set("Authorization", "Bearer "+mintToken(t, secret, "admin"))
	rec = httptest.NewRecorder()
	guarded.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("admin cancel: status = %d, body %s", rec.Code, rec.Body.String())
	}
}

func TestCancel_NotFound(t *testing.T) {
	store := &stubAppointments{cancelErr: pgx.ErrNoRows}
	h := NewBookingHandler(&stubBooker{}, store, &recordingFeed{}, testLogger())

	rec := postJSON(t, h.Cancel, "/api/v1/appointments/cancel", `{"appointment_id":"ghost"}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestList_FormatsAppointments(t *testing.T) {
	store := &stubAppointments{listed: []model.Appointment{{
		ID:          "appt-1",
		ClientID:    "client-1",
		ServiceID:   "cut",
		Date:        "2026-09-14",
		StartMinute: 9 * 60,
		EndMinute:   10 * 60,
		Status:      model.StatusConfirmed,
		CreatedAt:   time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC),
	}}}
	h := NewBookingHandler(&stubBooker{}, store, &recordingFeed{}, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/appointments?date=2026-09-14", nil)
	rec := httptest.NewRecorder()
	h.List(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var items []appointmentItem
	if err := json.Unmarshal(rec.Body.Bytes(), &items); err != nil {
		t.Fatalf("bad json: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	if items[0].StartTime != "09:00" || items[0].EndTime != "10:00" {
		t.Fatalf("unexpected times: %+v", items[0])
	}
}
