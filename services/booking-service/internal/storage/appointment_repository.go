package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/slotline/slotline/libs/db"
	"github.com/slotline/slotline/services/booking-service/internal/booking"
	"github.com/slotline/slotline/services/booking-service/internal/model"
	"github.com/slotline/slotline/services/booking-service/internal/outbox"
)

// AppointmentRepository persists appointments and writes the matching
// outbox event in the same transaction. The appointments table carries a
// range exclusion constraint on booked rows, so overlapping writes fail
// with SQLSTATE 23P01 no matter which instance issues them.
type AppointmentRepository struct {
	pool   *db.Pool
	outbox *outbox.Repository
}

func NewAppointmentRepository(pool *db.Pool, outboxRepo *outbox.Repository) *AppointmentRepository {
	return &AppointmentRepository{pool: pool, outbox: outboxRepo}
}

const apptColumns = `id::text, business_id::text, account_id, service_id::text, start_time, end_time, status, cancelled_at, created_at`

func (r *AppointmentRepository) Insert(ctx context.Context, appt model.Appointment) (model.Appointment, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return model.Appointment{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	id := uuid.NewString()
	stored, err := scanAppointment(tx.QueryRow(ctx, `
		INSERT INTO appointments (id, business_id, account_id, service_id, start_time, end_time, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+apptColumns+`
	`, id, appt.BusinessID, appt.AccountID, appt.ServiceID, appt.StartTime, appt.EndTime, appt.Status))
	if err != nil {
		return model.Appointment{}, mapWriteError("insert appointment", err)
	}

	evt, err := outbox.AppointmentBooked(stored)
	if err != nil {
		return model.Appointment{}, err
	}
	if err := r.outbox.Insert(ctx, tx, evt); err != nil {
		return model.Appointment{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return model.Appointment{}, mapWriteError("insert appointment", err)
	}
	return stored, nil
}

func (r *AppointmentRepository) Get(ctx context.Context, appointmentID string) (model.Appointment, error) {
	appt, err := scanAppointment(r.pool.QueryRow(ctx, `
		SELECT `+apptColumns+`
		FROM appointments
		WHERE id = $1
	`, appointmentID))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Appointment{}, fmt.Errorf("get appointment %s: %w", appointmentID, booking.ErrAppointmentNotFound)
	}
	return appt, err
}

// ListForBusiness returns booked appointments whose interval touches
// [from, to] including exact boundary contact, which the conflict predicate
// needs to see.
func (r *AppointmentRepository) ListForBusiness(ctx context.Context, businessID string, from, to time.Time) ([]model.Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+apptColumns+`
		FROM appointments
		WHERE business_id = $1
			AND status = 'booked'
			AND start_time <= $3
			AND end_time >= $2
		ORDER BY start_time ASC
	`, businessID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var appts []model.Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		appts = append(appts, appt)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return appts, nil
}

func (r *AppointmentRepository) ListByBusiness(ctx context.Context, businessID string, limit int) ([]model.Appointment, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+apptColumns+`
		FROM appointments
		WHERE business_id = $1
		ORDER BY start_time DESC
		LIMIT $2
	`, businessID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var appts []model.Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		appts = append(appts, appt)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return appts, nil
}

func (r *AppointmentRepository) Reschedule(ctx context.Context, appointmentID, serviceID string, start, end time.Time) (model.Appointment, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return model.Appointment{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	stored, err := scanAppointment(tx.QueryRow(ctx, `
		UPDATE appointments
		SET service_id = $2,
			start_time = $3,
			end_time = $4
		WHERE id = $1 AND status = 'booked'
		RETURNING `+apptColumns+`
	`, appointmentID, serviceID, start, end))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Appointment{}, fmt.Errorf("reschedule appointment %s: %w", appointmentID, booking.ErrAppointmentNotFound)
	}
	if err != nil {
		return model.Appointment{}, mapWriteError("reschedule appointment", err)
	}

	evt, err := outbox.AppointmentRescheduled(stored)
	if err != nil {
		return model.Appointment{}, err
	}
	if err := r.outbox.Insert(ctx, tx, evt); err != nil {
		return model.Appointment{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return model.Appointment{}, mapWriteError("reschedule appointment", err)
	}
	return stored, nil
}

func (r *AppointmentRepository) Cancel(ctx context.Context, appointmentID string) (model.Appointment, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return model.Appointment{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	stored, err := scanAppointment(tx.QueryRow(ctx, `
		UPDATE appointments
		SET status = 'cancelled',
			cancelled_at = now()
		WHERE id = $1 AND status = 'booked'
		RETURNING `+apptColumns+`
	`, appointmentID))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Appointment{}, fmt.Errorf("cancel appointment %s: %w", appointmentID, booking.ErrAppointmentNotFound)
	}
	if err != nil {
		return model.Appointment{}, err
	}

	evt, err := outbox.AppointmentCancelled(stored)
	if err != nil {
		return model.Appointment{}, err
	}
	if err := r.outbox.Insert(ctx, tx, evt); err != nil {
		return model.Appointment{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return model.Appointment{}, err
	}
	return stored, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAppointment(row rowScanner) (model.Appointment, error) {
	var appt model.Appointment
	var cancelledAt *time.Time
	err := row.Scan(
		&appt.ID,
		&appt.BusinessID,
		&appt.AccountID,
		&appt.ServiceID,
		&appt.StartTime,
		&appt.EndTime,
		&appt.Status,
		&cancelledAt,
		&appt.CreatedAt,
	)
	if err != nil {
		return model.Appointment{}, err
	}
	appt.CancelledAt = cancelledAt
	return appt, nil
}

// mapWriteError turns the exclusion constraint violation into the typed
// conflict error the orchestrator retries on.
func mapWriteError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23P01" {
		return fmt.Errorf("%s: %w", op, booking.ErrSchedulingConflict)
	}
	return err
}
