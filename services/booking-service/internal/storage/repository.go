package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/slotline/slotline/libs/db"
	"github.com/slotline/slotline/services/booking-service/internal/booking"
	"github.com/slotline/slotline/services/booking-service/internal/model"
	"github.com/slotline/slotline/services/booking-service/internal/schedule"
	"golang.org/x/crypto/bcrypt"
)

// Repository covers the catalog side: businesses, their services and their
// weekly hours.
type Repository struct {
	pool *db.Pool
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) CreateBusiness(ctx context.Context, name, timezone, managementKey string) (model.Business, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(managementKey), bcrypt.DefaultCost)
	if err != nil {
		return model.Business{}, err
	}

	id := uuid.NewString()
	var b model.Business
	err = r.pool.QueryRow(ctx, `
		INSERT INTO businesses (id, name, timezone, management_key_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING id::text, name, timezone, created_at
	`, id, name, timezone, string(hash)).Scan(&b.ID, &b.Name, &b.Timezone, &b.CreatedAt)
	if err != nil {
		return model.Business{}, err
	}
	return b, nil
}

func (r *Repository) GetBusiness(ctx context.Context, businessID string) (model.Business, error) {
	var b model.Business
	err := r.pool.QueryRow(ctx, `
		SELECT id::text, name, timezone, created_at
		FROM businesses
		WHERE id = $1
	`, businessID).Scan(&b.ID, &b.Name, &b.Timezone, &b.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Business{}, fmt.Errorf("get business %s: %w", businessID, booking.ErrServiceNotFound)
	}
	if err != nil {
		return model.Business{}, err
	}
	return b, nil
}

func (r *Repository) GetManagementKeyHash(ctx context.Context, businessID string) (string, error) {
	var hash string
	err := r.pool.QueryRow(ctx, `
		SELECT management_key_hash
		FROM businesses
		WHERE id = $1
	`, businessID).Scan(&hash)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("get business %s: %w", businessID, booking.ErrServiceNotFound)
	}
	return hash, err
}

func (r *Repository) CreateService(ctx context.Context, businessID, name string, durationMinutes int, price string) (model.Service, error) {
	id := uuid.NewString()
	var s model.Service
	err := r.pool.QueryRow(ctx, `
		INSERT INTO business_services (id, business_id, name, duration_minutes, price)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id::text, business_id::text, name, duration_minutes, price::text, created_at
	`, id, businessID, name, durationMinutes, price).Scan(&s.ID, &s.BusinessID, &s.Name, &s.DurationMinutes, &s.Price, &s.CreatedAt)
	if err != nil {
		return model.Service{}, err
	}
	return s, nil
}

func (r *Repository) GetService(ctx context.Context, serviceID string) (model.Service, error) {
	var s model.Service
	err := r.pool.QueryRow(ctx, `
		SELECT id::text, business_id::text, name, duration_minutes, price::text, created_at
		FROM business_services
		WHERE id = $1
	`, serviceID).Scan(&s.ID, &s.BusinessID, &s.Name, &s.DurationMinutes, &s.Price, &s.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Service{}, fmt.Errorf("get service %s: %w", serviceID, booking.ErrServiceNotFound)
	}
	if err != nil {
		return model.Service{}, err
	}
	return s, nil
}

func (r *Repository) ListServices(ctx context.Context, businessID string, limit int) ([]model.Service, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, business_id::text, name, duration_minutes, price::text, created_at
		FROM business_services
		WHERE business_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, businessID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Service
	for rows.Next() {
		var s model.Service
		if err := rows.Scan(&s.ID, &s.BusinessID, &s.Name, &s.DurationMinutes, &s.Price, &s.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

// GetBusinessHours returns nil when no hours rows exist for the business.
// Callers treat nil as "unconfigured", which opens every day with the
// default window.
func (r *Repository) GetBusinessHours(ctx context.Context, businessID string) ([]schedule.DayHours, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT weekday, open_time, close_time, closed
		FROM business_hours
		WHERE business_id = $1
		ORDER BY weekday ASC
	`, businessID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var week []schedule.DayHours
	for rows.Next() {
		var d schedule.DayHours
		if err := rows.Scan(&d.Weekday, &d.Open, &d.Close, &d.Closed); err != nil {
			return nil, err
		}
		week = append(week, d)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return week, nil
}

// ReplaceBusinessHours swaps the whole weekly configuration in one
// transaction so readers never see a partial week.
func (r *Repository) ReplaceBusinessHours(ctx context.Context, businessID string, week []schedule.DayHours) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `
		DELETE FROM business_hours
		WHERE business_id = $1
	`, businessID); err != nil {
		return err
	}

	for _, d := range week {
		if _, err := tx.Exec(ctx, `
			INSERT INTO business_hours (business_id, weekday, open_time, close_time, closed)
			VALUES ($1, $2, $3, $4, $5)
		`, businessID, d.Weekday, d.Open, d.Close, d.Closed); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}
