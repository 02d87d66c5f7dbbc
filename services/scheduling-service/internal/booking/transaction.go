// Package booking implements the write path for appointments: a request
// is validated against working hours, then re-validated against the live
// appointment set inside the store's atomic commit, so a stale client
// snapshot can never produce a double booking.
package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"salonbook/services/scheduling-service/internal/availability"
	"salonbook/services/scheduling-service/internal/model"
	"salonbook/services/scheduling-service/internal/outbox"
	"salonbook/services/scheduling-service/internal/schedule"
)

var (
	// ErrSlotTaken means commit-time re-validation found a conflicting
	// appointment. The caller must re-fetch the slot grid; the same slot
	// is never silently retried.
	ErrSlotTaken = errors.New("time slot was just taken")

	// ErrOutsideHours means the requested window does not fit within the
	// day's working hours.
	ErrOutsideHours = errors.New("requested time is outside working hours")

	// ErrValidation wraps malformed or nonsensical requests.
	ErrValidation = errors.New("invalid booking request")
)

// Store is the atomic commit surface: re-read the date's busy spans,
// run check against them, and insert — indivisible relative to other
// bookings for the same date.
type Store interface {
	BookAtomic(ctx context.Context, date string, check func(busy []availability.Span) error, appt *model.Appointment, evt *outbox.Event) (string, error)
}

// HoursSource yields the weekly schedule; nil means not configured,
// which is treated as closed for all days.
type HoursSource interface {
	Weekly(ctx context.Context) (*schedule.Weekly, error)
}

// ServiceSource resolves a service's duration in minutes.
type ServiceSource interface {
	Duration(ctx context.Context, serviceID string) (int, error)
}

type Request struct {
	Date      string // "YYYY-MM-DD"
	Time      string // "HH:MM"
	ServiceID string
	ClientID  string

	// AdminInitiated bookings are inserted as confirmed instead of
	// pending.
	AdminInitiated bool
}

type Result struct {
	AppointmentID string
	Status        string
	StartMinute   int
	EndMinute     int
}

type Transaction struct {
	store    Store
	hours    HoursSource
	services ServiceSource
	loc      *time.Location
	now      func() time.Time
}

func NewTransaction(store Store, hours HoursSource, services ServiceSource, loc *time.Location) *Transaction {
	return &Transaction{
		store:    store,
		hours:    hours,
		services: services,
		loc:      loc,
		now:      time.Now,
	}
}

// Commit drives the request through Validating to Committed or Rejected.
// It returns ErrSlotTaken, ErrOutsideHours, availability.ErrClosedDay, or
// an ErrValidation-wrapped error on rejection.
func (t *Transaction) Commit(ctx context.Context, req Request) (Result, error) {
	if req.ServiceID == "" || req.ClientID == "" {
		return Result{}, fmt.Errorf("%w: service_id and client_id are required", ErrValidation)
	}

	day, err := schedule.ParseDate(req.Date, t.loc)
	if err != nil {
		return Result{}, fmt.Errorf("%w: invalid date %q", ErrValidation, req.Date)
	}
	startMinute, err := schedule.ParseClock(req.Time)
	if err != nil {
		return Result{}, fmt.Errorf("%w: invalid time %q", ErrValidation, req.Time)
	}

	durationMins, err := t.services.Duration(ctx, req.ServiceID)
	if err != nil {
		return Result{}, fmt.Errorf("service lookup: %w", err)
	}
	if durationMins <= 0 {
		return Result{}, fmt.Errorf("%w: service has no duration", ErrValidation)
	}
	endMinute := startMinute + durationMins
	if endMinute > schedule.MinutesPerDay {
		return Result{}, fmt.Errorf("%w: appointment would run past midnight", ErrValidation)
	}

	start := day.Add(time.Duration(startMinute) * time.Minute)
	if start.Before(t.now().In(t.loc)) {
		return Result{}, fmt.Errorf("%w: requested time is in the past", ErrValidation)
	}

	weekly, err := t.hours.Weekly(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("working hours lookup: %w", err)
	}
	dayHours := weekly.Day(day.Weekday())
	if dayHours.Closed {
		return Result{}, availability.ErrClosedDay
	}
	if startMinute < dayHours.StartMinute || endMinute > dayHours.EndMinute {
		return Result{}, ErrOutsideHours
	}

	status := model.StatusPending
	if req.AdminInitiated {
		status = model.StatusConfirmed
	}
	appt := &model.Appointment{
		ClientID:    req.ClientID,
		ServiceID:   req.ServiceID,
		Date:        req.Date,
		StartMinute: startMinute,
		EndMinute:   endMinute,
		Status:      status,
	}

	evt, err := outbox.AppointmentBooked(*appt)
	if err != nil {
		return Result{}, err
	}

	check := func(busy []availability.Span) error {
		for _, b := range busy {
			if availability.Overlaps(startMinute, endMinute, b.StartMinute, b.EndMinute) {
				return ErrSlotTaken
			}
		}
		return nil
	}

	id, err := t.store.BookAtomic(ctx, req.Date, check, appt, evt)
	if err != nil {
		return Result{}, err
	}
	return Result{
		AppointmentID: id,
		Status:        status,
		StartMinute:   startMinute,
		EndMinute:     endMinute,
	}, nil
}
