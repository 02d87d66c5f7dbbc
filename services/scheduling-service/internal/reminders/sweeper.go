// Package reminders enqueues next-day appointment reminder events on a
// cron schedule. Delivery itself (push, SMS, email) belongs to the
// notification pipeline consuming the Kafka topic.
package reminders

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"salonbook/services/scheduling-service/internal/model"
	"salonbook/services/scheduling-service/internal/outbox"
)

// Store is the slice of the appointment repository the sweeper needs.
type Store interface {
	ListForReminder(ctx context.Context, date, remindDate string) ([]model.Appointment, error)
	MarkReminded(ctx context.Context, appointmentID, remindDate string, evt outbox.Event) error
}

type Sweeper struct {
	store  Store
	logger *slog.Logger
	loc    *time.Location
	now    func() time.Time
}

func NewSweeper(store Store, logger *slog.Logger, loc *time.Location) *Sweeper {
	return &Sweeper{
		store:  store,
		logger: logger,
		loc:    loc,
		now:    time.Now,
	}
}

// Run schedules the sweep with the given cron spec (e.g. "0 18 * * *")
// and blocks until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context, spec string) error {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		if err := s.Sweep(ctx); err != nil {
			s.logger.Error("reminder sweep failed", "err", err)
		}
	})
	if err != nil {
		return err
	}
	c.Start()
	<-ctx.Done()
	stopCtx := c.Stop()
	<-stopCtx.Done()
	return nil
}

// Sweep enqueues one reminder event per non-cancelled appointment on
// tomorrow's (salon-local) date. The reminder log makes it idempotent
// across restarts and repeated runs.
func (s *Sweeper) Sweep(ctx context.Context) error {
	today := s.now().In(s.loc).Format("2006-01-02")
	tomorrow := s.now().In(s.loc).AddDate(0, 0, 1).Format("2006-01-02")

	appts, err := s.store.ListForReminder(ctx, tomorrow, today)
	if err != nil {
		return err
	}

	for _, appt := range appts {
		evt, err := outbox.ReminderDue(appt)
		if err != nil {
			s.logger.Error("reminder payload build failed", "appointment_id", appt.ID, "err", err)
			continue
		}
		if err := s.store.MarkReminded(ctx, appt.ID, today, *evt); err != nil {
			s.logger.Error("reminder enqueue failed", "appointment_id", appt.ID, "err", err)
		}
	}

	if len(appts) > 0 {
		s.logger.Info("reminder sweep complete", "date", tomorrow, "appointments", len(appts))
	}
	return nil
}
