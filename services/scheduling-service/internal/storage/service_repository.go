package storage

import (
	"context"

	"github.com/google/uuid"

	"salonbook/libs/db"
	"salonbook/services/scheduling-service/internal/model"
)

type ServiceRepository struct {
	pool *db.Pool
}

func NewServiceRepository(pool *db.Pool) *ServiceRepository {
	return &ServiceRepository{pool: pool}
}

func (r *ServiceRepository) Create(ctx context.Context, name string, durationMins int, price, description string) (string, error) {
	id := uuid.NewString()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO salon_services (id, name, duration_minutes, price, description)
		VALUES ($1, $2, $3, $4, $5)
	`, id, name, durationMins, price, description)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (r *ServiceRepository) List(ctx context.Context, limit int) ([]model.SalonService, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, name, duration_minutes, price::text, description, created_at
		FROM salon_services
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.SalonService
	for rows.Next() {
		var s model.SalonService
		if err := rows.Scan(&s.ID, &s.Name, &s.DurationMins, &s.Price, &s.Description, &s.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

// Duration returns a service's length in minutes.
func (r *ServiceRepository) Duration(ctx context.Context, serviceID string) (int, error) {
	var mins int
	err := r.pool.QueryRow(ctx, `
		SELECT duration_minutes
		FROM salon_services
		WHERE id = $1
	`, serviceID).Scan(&mins)
	return mins, err
}
