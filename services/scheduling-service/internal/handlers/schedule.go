package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"salonbook/services/scheduling-service/internal/availability"
	"salonbook/services/scheduling-service/internal/schedule"
	"salonbook/services/scheduling-service/internal/storage"
)

// HoursSource yields the salon's weekly schedule; nil means not yet
// configured (rendered as closed, never an error).
type HoursSource interface {
	Weekly(ctx context.Context) (*schedule.Weekly, error)
}

// DurationSource resolves a service's length in minutes.
type DurationSource interface {
	Duration(ctx context.Context, serviceID string) (int, error)
}

// SpanReader yields the busy intervals for a date.
type SpanReader interface {
	DaySpans(ctx context.Context, date string) ([]availability.Span, error)
}

type ScheduleHandler struct {
	hours    HoursSource
	services DurationSource
	appts    SpanReader
	logger   *slog.Logger
	loc      *time.Location
	stepMins int
	now      func() time.Time
}

func NewScheduleHandler(hours HoursSource, services DurationSource, appts SpanReader, logger *slog.Logger, loc *time.Location, stepMins int) *ScheduleHandler {
	if stepMins <= 0 {
		stepMins = 30
	}
	return &ScheduleHandler{
		hours:    hours,
		services: services,
		appts:    appts,
		logger:   logger,
		loc:      loc,
		stepMins: stepMins,
		now:      time.Now,
	}
}

type slotItem struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Available bool   `json:"available"`
}

type dayScheduleResponse struct {
	Date   string     `json:"date"`
	Closed bool       `json:"closed"`
	Slots  []slotItem `json:"slots"`
}

// Day renders the slot grid for one date and service. The grid is a UX
// snapshot only; the booking commit re-validates server-side.
func (h *ScheduleHandler) Day(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	dateStr := strings.TrimSpace(r.URL.Query().Get("date"))
	serviceID := strings.TrimSpace(r.URL.Query().Get("service_id"))
	if dateStr == "" || serviceID == "" {
		http.Error(w, "date and service_id are required", http.StatusBadRequest)
		return
	}

	day, err := schedule.ParseDate(dateStr, h.loc)
	if err != nil {
		http.Error(w, "invalid date", http.StatusBadRequest)
		return
	}

	durationMins, err := h.services.Duration(r.Context(), serviceID)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "unknown service", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to load service", http.StatusInternalServerError)
		return
	}

	weekly, err := h.hours.Weekly(r.Context())
	if err != nil {
		http.Error(w, "failed to load working hours", http.StatusInternalServerError)
		return
	}

	starts, err := availability.Slots(weekly.Day(day.Weekday()), durationMins, h.stepMins)
	if err != nil {
		if errors.Is(err, availability.ErrClosedDay) {
			writeJSON(w, http.StatusOK, dayScheduleResponse{Date: dateStr, Closed: true, Slots: []slotItem{}})
			return
		}
		http.Error(w, "failed to build slots", http.StatusUnprocessableEntity)
		return
	}

	// A past date offers nothing; today drops its already-passed starts.
	// Lexicographic compare is safe: ParseDate enforces zero-padded ISO dates.
	now := h.now().In(h.loc)
	today := now.Format("2006-01-02")
	switch {
	case dateStr < today:
		starts = nil
	case dateStr == today:
		nowMinute := schedule.MinuteOfDay(now, h.loc)
		kept := starts[:0]
		for _, t := range starts {
			if t >= nowMinute {
				kept = append(kept, t)
			}
		}
		starts = kept
	}

	busy, err := h.appts.DaySpans(r.Context(), dateStr)
	if err != nil {
		http.Error(w, "failed to load appointments", http.StatusInternalServerError)
		return
	}

	slots := availability.Annotate(starts, durationMins, busy)
	items := make([]slotItem, 0, len(slots))
	for _, s := range slots {
		items = append(items, slotItem{
			StartTime: schedule.FormatClock(s.StartMinute),
			EndTime:   schedule.FormatClock(s.StartMinute + durationMins),
			Available: s.Available,
		})
	}
	writeJSON(w, http.StatusOK, dayScheduleResponse{Date: dateStr, Closed: false, Slots: items})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
