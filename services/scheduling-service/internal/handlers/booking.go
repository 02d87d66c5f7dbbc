package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"salonbook/services/scheduling-service/internal/availability"
	"salonbook/services/scheduling-service/internal/booking"
	"salonbook/services/scheduling-service/internal/model"
	"salonbook/services/scheduling-service/internal/outbox"
	"salonbook/services/scheduling-service/internal/realtime"
	"salonbook/services/scheduling-service/internal/schedule"
	"salonbook/services/scheduling-service/internal/storage"
)

// Booker commits a booking request atomically.
type Booker interface {
	Commit(ctx context.Context, req booking.Request) (booking.Result, error)
}

// AppointmentStore is the read/cancel slice of the repository the
// booking handler uses.
type AppointmentStore interface {
	CancelAtomic(ctx context.Context, appointmentID, reason string, buildEvent func(appt model.Appointment, cancelledAt time.Time) *outbox.Event) (model.Appointment, error)
	ListByDate(ctx context.Context, date string, limit int) ([]model.Appointment, error)
}

type BookingHandler struct {
	tx     Booker
	store  AppointmentStore
	feed   realtime.Feed
	logger *slog.Logger
}

func NewBookingHandler(tx Booker, store AppointmentStore, feed realtime.Feed, logger *slog.Logger) *BookingHandler {
	return &BookingHandler{tx: tx, store: store, feed: feed, logger: logger}
}

type bookRequest struct {
	Date      string `json:"date"`
	Time      string `json:"time"`
	ServiceID string `json:"service_id"`
	ClientID  string `json:"client_id"`
}

type bookResponse struct {
	AppointmentID string `json:"appointment_id"`
	Status        string `json:"status"`
	StartTime     string `json:"start_time"`
	EndTime       string `json:"end_time"`
}

// Book is the public booking endpoint; client-initiated appointments
// enter status pending.
func (h *BookingHandler) Book(w http.ResponseWriter, r *http.Request) {
	h.book(w, r, false)
}

// AdminBook creates a confirmed appointment directly; the route sits
// behind admin auth.
func (h *BookingHandler) AdminBook(w http.ResponseWriter, r *http.Request) {
	h.book(w, r, true)
}

func (h *BookingHandler) book(w http.ResponseWriter, r *http.Request, adminInitiated bool) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req bookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}

	res, err := h.tx.Commit(r.Context(), booking.Request{
		Date:           strings.TrimSpace(req.Date),
		Time:           strings.TrimSpace(req.Time),
		ServiceID:      strings.TrimSpace(req.ServiceID),
		ClientID:       strings.TrimSpace(req.ClientID),
		AdminInitiated: adminInitiated,
	})
	if err != nil {
		switch {
		case errors.Is(err, booking.ErrSlotTaken) || storage.IsConflict(err):
			writeJSON(w, http.StatusConflict, map[string]string{"error": "this time was just taken, pick another"})
		case errors.Is(err, availability.ErrClosedDay):
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": "salon is closed on that day"})
		case errors.Is(err, booking.ErrOutsideHours):
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
		case errors.Is(err, booking.ErrValidation) || storage.IsNotFound(err):
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
		default:
			h.logger.Error("booking commit failed", "err", err)
			http.Error(w, "failed to create appointment", http.StatusInternalServerError)
		}
		return
	}

	h.invalidateSchedule(r.Context(), req.Date)

	writeJSON(w, http.StatusCreated, bookResponse{
		AppointmentID: res.AppointmentID,
		Status:        res.Status,
		StartTime:     schedule.FormatClock(res.StartMinute),
		EndTime:       schedule.FormatClock(res.EndMinute),
	})
}

type cancelRequest struct {
	AppointmentID string `json:"appointment_id"`
	Reason        string `json:"reason"`
}

func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req cancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.AppointmentID = strings.TrimSpace(req.AppointmentID)
	req.Reason = strings.TrimSpace(req.Reason)
	if req.AppointmentID == "" {
		http.Error(w, "appointment_id required", http.StatusBadRequest)
		return
	}

	appt, err := h.store.CancelAtomic(r.Context(), req.AppointmentID, req.Reason, func(appt model.Appointment, cancelledAt time.Time) *outbox.Event {
		evt, err := outbox.AppointmentCancelled(appt, cancelledAt, req.Reason)
		if err != nil {
			h.logger.Error("cancellation payload build failed", "err", err)
			return nil
		}
		return evt
	})
	if err != nil {
		switch {
		case storage.IsNotFound(err):
			http.Error(w, "appointment not found", http.StatusNotFound)
		case errors.Is(err, storage.ErrNotCancellable):
			http.Error(w, "appointment cannot be cancelled", http.StatusConflict)
		default:
			h.logger.Error("cancel failed", "err", err)
			http.Error(w, "failed to cancel appointment", http.StatusInternalServerError)
		}
		return
	}

	h.invalidateSchedule(r.Context(), appt.Date)

	resp := map[string]string{
		"appointment_id": appt.ID,
		"status":         model.StatusCancelled,
	}
	if appt.CancelledAt != nil {
		resp["cancelled_at"] = appt.CancelledAt.UTC().Format(time.RFC3339)
	}
	writeJSON(w, http.StatusOK, resp)
}

type appointmentItem struct {
	AppointmentID string `json:"appointment_id"`
	ClientID      string `json:"client_id"`
	ServiceID     string `json:"service_id"`
	Date          string `json:"date"`
	StartTime     string `json:"start_time"`
	EndTime       string `json:"end_time"`
	Status        string `json:"status"`
	CancelledAt   string `json:"cancelled_at,omitempty"`
	CreatedAt     string `json:"created_at"`
}

func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	date := strings.TrimSpace(r.URL.Query().Get("date"))
	if date == "" {
		http.Error(w, "date required", http.StatusBadRequest)
		return
	}
	limit := 100
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	appts, err := h.store.ListByDate(r.Context(), date, limit)
	if err != nil {
		http.Error(w, "failed to list appointments", http.StatusInternalServerError)
		return
	}

	items := make([]appointmentItem, 0, len(appts))
	for _, appt := range appts {
		item := appointmentItem{
			AppointmentID: appt.ID,
			ClientID:      appt.ClientID,
			ServiceID:     appt.ServiceID,
			Date:          appt.Date,
			StartTime:     schedule.FormatClock(appt.StartMinute),
			EndTime:       schedule.FormatClock(appt.EndMinute),
			Status:        appt.Status,
			CreatedAt:     appt.CreatedAt.UTC().Format(time.RFC3339),
		}
		if appt.CancelledAt != nil {
			item.CancelledAt = appt.CancelledAt.UTC().Format(time.RFC3339)
		}
		items = append(items, item)
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *BookingHandler) invalidateSchedule(ctx context.Context, date string) {
	payload, _ := json.Marshal(map[string]string{"date": date})
	if err := h.feed.Publish(ctx, realtime.ScheduleChannel(date), payload); err != nil {
		h.logger.Warn("schedule invalidation publish failed", "date", date, "err", err)
	}
}
