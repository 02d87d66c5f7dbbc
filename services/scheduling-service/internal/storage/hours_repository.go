package storage

import (
	"context"
	"fmt"
	"time"

	"salonbook/libs/db"
	"salonbook/services/scheduling-service/internal/schedule"
)

type HoursRepository struct {
	pool *db.Pool
}

func NewHoursRepository(pool *db.Pool) *HoursRepository {
	return &HoursRepository{pool: pool}
}

// Weekly loads the salon's working hours. When no hours have been
// configured it returns (nil, nil); callers treat that as closed every
// day rather than an error.
func (r *HoursRepository) Weekly(ctx context.Context) (*schedule.Weekly, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT weekday, is_open, start_minute, end_minute
		FROM working_hours
		ORDER BY weekday ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var weekly *schedule.Weekly
	for rows.Next() {
		var weekday, startMinute, endMinute int
		var isOpen bool
		if err := rows.Scan(&weekday, &isOpen, &startMinute, &endMinute); err != nil {
			return nil, err
		}
		if weekday < 0 || weekday > 6 {
			continue
		}
		if weekly == nil {
			// Rows exist: unlisted weekdays are closed, not unset.
			weekly = &schedule.Weekly{}
			for d := 0; d < 7; d++ {
				weekly.Days[d] = schedule.DayHours{Closed: true}
			}
		}
		weekly.Days[weekday] = schedule.DayHours{
			StartMinute: startMinute,
			EndMinute:   endMinute,
			Closed:      !isOpen,
		}
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return weekly, nil
}

// UpsertWeek applies all weekday updates in a single transaction, so a
// failure cannot leave the week partially written.
func (r *HoursRepository) UpsertWeek(ctx context.Context, updates map[time.Weekday]schedule.DayHours) error {
	for weekday, hours := range updates {
		if err := hours.Validate(); err != nil {
			return fmt.Errorf("working hours for %s: %w", schedule.WeekdayName(weekday), err)
		}
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for weekday, hours := range updates {
		_, err := tx.Exec(ctx, `
			INSERT INTO working_hours (weekday, is_open, start_minute, end_minute)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (weekday) DO UPDATE
			SET is_open = EXCLUDED.is_open,
				start_minute = EXCLUDED.start_minute,
				end_minute = EXCLUDED.end_minute,
				updated_at = now()
		`, int(weekday), !hours.Closed, hours.StartMinute, hours.EndMinute)
		if err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}
