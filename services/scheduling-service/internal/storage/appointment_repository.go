package storage

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"salonbook/libs/db"
	"salonbook/services/scheduling-service/internal/availability"
	"salonbook/services/scheduling-service/internal/model"
	"salonbook/services/scheduling-service/internal/outbox"
)

// ErrNotCancellable is returned when an appointment's status does not
// allow cancellation (already completed).
var ErrNotCancellable = errors.New("appointment cannot be cancelled")

type AppointmentRepository struct {
	pool       *db.Pool
	outboxRepo *outbox.Repository
}

func NewAppointmentRepository(pool *db.Pool, outboxRepo *outbox.Repository) *AppointmentRepository {
	return &AppointmentRepository{pool: pool, outboxRepo: outboxRepo}
}

// DaySpans returns the busy intervals of every non-cancelled appointment
// on the given date, ordered by start time.
func (r *AppointmentRepository) DaySpans(ctx context.Context, date string) ([]availability.Span, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT start_minute, end_minute
		FROM appointments
		WHERE appointment_date = $1
			AND status <> 'cancelled'
		ORDER BY start_minute ASC
	`, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var spans []availability.Span
	for rows.Next() {
		var s availability.Span
		if err := rows.Scan(&s.StartMinute, &s.EndMinute); err != nil {
			return nil, err
		}
		spans = append(spans, s)
	}
	return spans, rows.Err()
}

// BookAtomic is the commit path for a booking: it serializes on a
// per-date advisory lock, re-reads the live appointment set, runs the
// caller's overlap check against it, and inserts — all in one
// transaction, so two concurrent attempts for the same slot cannot both
// win. An optional outbox event is written in the same transaction.
func (r *AppointmentRepository) BookAtomic(ctx context.Context, date string, check func(busy []availability.Span) error, appt *model.Appointment, evt *outbox.Event) (string, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, "appointments:"+date); err != nil {
		return "", err
	}

	busy, err := r.daySpansTx(ctx, tx, date)
	if err != nil {
		return "", err
	}
	if err := check(busy); err != nil {
		return "", err
	}

	var id string
	err = tx.QueryRow(ctx, `
		INSERT INTO appointments
			(client_id, service_id, appointment_date, start_minute, end_minute, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id::text
	`, appt.ClientID, appt.ServiceID, date, appt.StartMinute, appt.EndMinute, appt.Status).Scan(&id)
	if err != nil {
		return "", err
	}

	if evt != nil {
		evt.AggregateID = id
		if err := r.outboxRepo.Insert(ctx, tx, *evt); err != nil {
			return "", err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return "", err
	}
	return id, nil
}

// CancelAtomic flips an appointment to cancelled. Cancelling an already
// cancelled appointment is idempotent. The cancellation event is written
// in the same transaction.
func (r *AppointmentRepository) CancelAtomic(ctx context.Context, appointmentID, reason string, buildEvent func(appt model.Appointment, cancelledAt time.Time) *outbox.Event) (model.Appointment, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return model.Appointment{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	appt, err := r.getForUpdate(ctx, tx, appointmentID)
	if err != nil {
		return model.Appointment{}, err
	}

	if appt.Status == model.StatusCancelled && appt.CancelledAt != nil {
		return appt, nil
	}
	if appt.Status == model.StatusCompleted {
		return model.Appointment{}, ErrNotCancellable
	}

	var cancelledAt time.Time
	err = tx.QueryRow(ctx, `
		UPDATE appointments
		SET status = 'cancelled',
			cancelled_at = now(),
			cancellation_reason = $2
		WHERE id = $1
		RETURNING cancelled_at
	`, appointmentID, reason).Scan(&cancelledAt)
	if err != nil {
		return model.Appointment{}, err
	}

	if buildEvent != nil {
		if evt := buildEvent(appt, cancelledAt); evt != nil {
			if err := r.outboxRepo.Insert(ctx, tx, *evt); err != nil {
				return model.Appointment{}, err
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return model.Appointment{}, err
	}
	appt.Status = model.StatusCancelled
	appt.CancelledAt = &cancelledAt
	appt.CancelReason = reason
	return appt, nil
}

func (r *AppointmentRepository) ListByDate(ctx context.Context, date string, limit int) ([]model.Appointment, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, client_id, service_id, appointment_date::text, start_minute, end_minute,
			status, cancelled_at, COALESCE(cancellation_reason, ''), created_at
		FROM appointments
		WHERE appointment_date = $1
		ORDER BY start_minute ASC
		LIMIT $2
	`, date, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAppointments(rows)
}

// ListForReminder returns non-cancelled appointments on date that do not
// yet have a reminder recorded for remindDate.
func (r *AppointmentRepository) ListForReminder(ctx context.Context, date, remindDate string) ([]model.Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT a.id::text, a.client_id, a.service_id, a.appointment_date::text, a.start_minute, a.end_minute,
			a.status, a.cancelled_at, COALESCE(a.cancellation_reason, ''), a.created_at
		FROM appointments a
		WHERE a.appointment_date = $1
			AND a.status <> 'cancelled'
			AND NOT EXISTS (
				SELECT 1 FROM reminder_log l
				WHERE l.appointment_id = a.id AND l.remind_date = $2
			)
		ORDER BY a.start_minute ASC
	`, date, remindDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAppointments(rows)
}

// MarkReminded records that a reminder event was enqueued, and inserts
// the event in the same transaction. Safe to call concurrently; the
// reminder_log primary key makes it at-most-once per appointment/day.
func (r *AppointmentRepository) MarkReminded(ctx context.Context, appointmentID, remindDate string, evt outbox.Event) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
		INSERT INTO reminder_log (appointment_id, remind_date)
		VALUES ($1, $2)
		ON CONFLICT (appointment_id, remind_date) DO NOTHING
	`, appointmentID, remindDate)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return tx.Commit(ctx)
	}

	if err := r.outboxRepo.Insert(ctx, tx, evt); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *AppointmentRepository) daySpansTx(ctx context.Context, tx pgx.Tx, date string) ([]availability.Span, error) {
	rows, err := tx.Query(ctx, `
		SELECT start_minute, end_minute
		FROM appointments
		WHERE appointment_date = $1
			AND status <> 'cancelled'
		ORDER BY start_minute ASC
	`, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var spans []availability.Span
	for rows.Next() {
		var s availability.Span
		if err := rows.Scan(&s.StartMinute, &s.EndMinute); err != nil {
			return nil, err
		}
		spans = append(spans, s)
	}
	return spans, rows.Err()
}

func (r *AppointmentRepository) getForUpdate(ctx context.Context, tx pgx.Tx, appointmentID string) (model.Appointment, error) {
	var appt model.Appointment
	var cancelledAt *time.Time
	err := tx.QueryRow(ctx, `
		SELECT id::text, client_id, service_id, appointment_date::text, start_minute, end_minute,
			status, cancelled_at, COALESCE(cancellation_reason, ''), created_at
		FROM appointments
		WHERE id = $1
		FOR UPDATE
	`, appointmentID).Scan(
		&appt.ID,
		&appt.ClientID,
		&appt.ServiceID,
		&appt.Date,
		&appt.StartMinute,
		&appt.EndMinute,
		&appt.Status,
		&cancelledAt,
		&appt.CancelReason,
		&appt.CreatedAt,
	)
	if err != nil {
		return model.Appointment{}, err
	}
	appt.CancelledAt = cancelledAt
	return appt, nil
}

func scanAppointments(rows pgx.Rows) ([]model.Appointment, error) {
	var appts []model.Appointment
	for rows.Next() {
		var appt model.Appointment
		var cancelledAt *time.Time
		if err := rows.Scan(
			&appt.ID,
			&appt.ClientID,
			&appt.ServiceID,
			&appt.Date,
			&appt.StartMinute,
			&appt.EndMinute,
			&appt.Status,
			&cancelledAt,
			&appt.CancelReason,
			&appt.CreatedAt,
		); err != nil {
			return nil, err
		}
		appt.CancelledAt = cancelledAt
		appts = append(appts, appt)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return appts, nil
}

// IsConflict reports a Postgres exclusion-constraint violation; the
// appointments table carries a no-overlap constraint as a backstop under
// the advisory lock.
func IsConflict(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23P01"
}

func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
