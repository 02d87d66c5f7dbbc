package model

import "time"

const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
	StatusCompleted = "completed"
)

// Appointment is one booked service window on a calendar day. Times are
// salon-local minutes since midnight; Date is "YYYY-MM-DD". Cancelled
// appointments keep their row (cancellation is a status transition) and
// never block a slot.
type Appointment struct {
	ID           string
	ClientID     string
	ServiceID    string
	Date         string
	StartMinute  int
	EndMinute    int
	Status       string
	CancelledAt  *time.Time
	CancelReason string
	CreatedAt    time.Time
}

// Blocking reports whether the appointment participates in overlap
// checks.
func (a Appointment) Blocking() bool {
	return a.Status != StatusCancelled
}

// SalonService is a bookable service; its duration drives slot spacing
// and the overlap window width.
type SalonService struct {
	ID           string
	Name         string
	DurationMins int
	Price        string
	Description  string
	CreatedAt    time.Time
}
