package outbox

import (
	"encoding/json"
	"time"

	"salonbook/services/scheduling-service/internal/model"
	"salonbook/services/scheduling-service/internal/schedule"
)

// Event is the domain event envelope written to the outbox table.
// The Kafka topic name equals EventType (event per topic).
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

const (
	EventAppointmentBooked    = "booking.appointment.booked.v1"
	EventAppointmentCancelled = "booking.appointment.cancelled.v1"
	EventReminderDue          = "booking.reminder.due.v1"
)

// AppointmentBooked builds the booked event. The aggregate id is filled
// in by the store once the appointment row exists.
func AppointmentBooked(appt model.Appointment) (*Event, error) {
	payload, err := json.Marshal(map[string]any{
		"client_id":  appt.ClientID,
		"service_id": appt.ServiceID,
		"date":       appt.Date,
		"start_time": schedule.FormatClock(appt.StartMinute),
		"end_time":   schedule.FormatClock(appt.EndMinute),
		"status":     appt.Status,
	})
	if err != nil {
		return nil, err
	}
	return &Event{
		AggregateType: "appointment",
		EventType:     EventAppointmentBooked,
		Payload:       payload,
	}, nil
}

func AppointmentCancelled(appt model.Appointment, cancelledAt time.Time, reason string) (*Event, error) {
	payload, err := json.Marshal(map[string]any{
		"appointment_id": appt.ID,
		"client_id":      appt.ClientID,
		"service_id":     appt.ServiceID,
		"date":           appt.Date,
		"start_time":     schedule.FormatClock(appt.StartMinute),
		"end_time":       schedule.FormatClock(appt.EndMinute),
		"cancelled_at":   cancelledAt.UTC().Format(time.RFC3339),
		"reason":         reason,
	})
	if err != nil {
		return nil, err
	}
	return &Event{
		AggregateType: "appointment",
		AggregateID:   appt.ID,
		EventType:     EventAppointmentCancelled,
		Payload:       payload,
	}, nil
}

func ReminderDue(appt model.Appointment) (*Event, error) {
	payload, err := json.Marshal(map[string]any{
		"appointment_id": appt.ID,
		"client_id":      appt.ClientID,
		"service_id":     appt.ServiceID,
		"date":           appt.Date,
		"start_time":     schedule.FormatClock(appt.StartMinute),
	})
	if err != nil {
		return nil, err
	}
	return &Event{
		AggregateType: "appointment",
		AggregateID:   appt.ID,
		EventType:     EventReminderDue,
		Payload:       payload,
	}, nil
}
