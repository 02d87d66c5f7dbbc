package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"salonbook/services/scheduling-service/internal/model"
	"salonbook/services/scheduling-service/internal/schedule"
)

// HoursStore is the write side of the weekly schedule. UpsertWeek must
// apply all updates or none.
type HoursStore interface {
	HoursSource
	UpsertWeek(ctx context.Context, updates map[time.Weekday]schedule.DayHours) error
}

// ServiceStore manages the bookable service catalogue.
type ServiceStore interface {
	Create(ctx context.Context, name string, durationMins int, price, description string) (string, error)
	List(ctx context.Context, limit int) ([]model.SalonService, error)
}

type AdminHandler struct {
	hours    HoursStore
	services ServiceStore
	logger   *slog.Logger
}

func NewAdminHandler(hours HoursStore, services ServiceStore, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{hours: hours, services: services, logger: logger}
}

type dayHoursBody struct {
	Start  string `json:"start"`
	End    string `json:"end"`
	Closed bool   `json:"closed"`
}

// WorkingHours reads or replaces the weekly schedule. The JSON shape is
// keyed by weekday name: {"monday": {"start":"09:00","end":"18:00","closed":false}, ...}.
func (h *AdminHandler) WorkingHours(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.getWorkingHours(w, r)
	case http.MethodPut:
		h.putWorkingHours(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *AdminHandler) getWorkingHours(w http.ResponseWriter, r *http.Request) {
	weekly, err := h.hours.Weekly(r.Context())
	if err != nil {
		http.Error(w, "failed to load working hours", http.StatusInternalServerError)
		return
	}

	out := make(map[string]dayHoursBody, 7)
	for d := time.Sunday; d <= time.Saturday; d++ {
		day := weekly.Day(d)
		body := dayHoursBody{Closed: day.Closed}
		if !day.Closed {
			body.Start = schedule.FormatClock(day.StartMinute)
			body.End = schedule.FormatClock(day.EndMinute)
		}
		out[schedule.WeekdayName(d)] = body
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *AdminHandler) putWorkingHours(w http.ResponseWriter, r *http.Request) {
	var req map[string]dayHoursBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}

	updates := make(map[time.Weekday]schedule.DayHours, len(req))
	for name, body := range req {
		weekday, ok := schedule.ParseWeekday(name)
		if !ok {
			http.Error(w, "unknown weekday "+name, http.StatusBadRequest)
			return
		}
		hours := schedule.DayHours{Closed: body.Closed}
		if !body.Closed {
			start, err := schedule.ParseClock(body.Start)
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			end, err := schedule.ParseClock(body.End)
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			hours.StartMinute = start
			hours.EndMinute = end
		}
		if err := hours.Validate(); err != nil {
			http.Error(w, name+": "+err.Error(), http.StatusBadRequest)
			return
		}
		updates[weekday] = hours
	}

	if err := h.hours.UpsertWeek(r.Context(), updates); err != nil {
		h.logger.Error("working hours upsert failed", "err", err)
		http.Error(w, "failed to update working hours", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) Services(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listServices(w, r)
	case http.MethodPost:
		h.createService(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *AdminHandler) listServices(w http.ResponseWriter, r *http.Request) {
	services, err := h.services.List(r.Context(), 100)
	if err != nil {
		http.Error(w, "failed to list services", http.StatusInternalServerError)
		return
	}

	type serviceItem struct {
		ID           string `json:"id"`
		Name         string `json:"name"`
		DurationMins int    `json:"duration_minutes"`
		Price        string `json:"price"`
		Description  string `json:"description"`
	}
	items := make([]serviceItem, 0, len(services))
	for _, s := range services {
		items = append(items, serviceItem{
			ID:           s.ID,
			Name:         s.Name,
			DurationMins: s.DurationMins,
			Price:        s.Price,
			Description:  s.Description,
		})
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *AdminHandler) createService(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name         string `json:"name"`
		DurationMins int    `json:"duration_minutes"`
		Price        string `json:"price"`
		Description  string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || req.DurationMins <= 0 {
		http.Error(w, "name and duration_minutes required", http.StatusBadRequest)
		return
	}
	if req.DurationMins > schedule.MinutesPerDay {
		http.Error(w, "duration_minutes too large", http.StatusBadRequest)
		return
	}

	id, err := h.services.Create(r.Context(), req.Name, req.DurationMins, strings.TrimSpace(req.Price), strings.TrimSpace(req.Description))
	if err != nil {
		h.logger.Error("service create failed", "err", err)
		http.Error(w, "failed to create service", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}
