package storage

import (
	"context"
	"errors"
	"time"

	"github.com/bookable-app/bookable/libs/db"
	"github.com/bookable-app/bookable/services/booking-service/internal/availability"
	"github.com/bookable-app/bookable/services/booking-service/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type BookingRepository struct {
	pool *db.Pool
}

func NewBookingRepository(pool *db.Pool) *BookingRepository {
	return &BookingRepository{pool: pool}
}

func (r *BookingRepository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

// IsConflict matches the exclusion-constraint violation raised when two
// bookings for the same staff member overlap.
func IsConflict(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23P01"
}

func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// Create inserts the appointment and one row per assigned team member. The
// per-staff rows carry the times so the exclusion constraint guards each
// member's calendar independently; a conflict aborts the whole transaction.
func (r *BookingRepository) Create(ctx context.Context, tx pgx.Tx, appt *model.Appointment) (string, error) {
	id := uuid.NewString()
	_, err := tx.Exec(ctx, `
		INSERT INTO appointments
			(id, business_id, service_id, service_name, service_duration_minutes,
			start_time, end_time, status, customer_name, customer_email, customer_phone)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, id, appt.BusinessID, appt.ServiceID, appt.ServiceName, appt.DurationMins,
		appt.StartTime, appt.EndTime, appt.Status,
		appt.CustomerName, appt.CustomerEmail, appt.CustomerPhone)
	if err != nil {
		return "", err
	}

	for _, s := range appt.Staff {
		if _, err := tx.Exec(ctx, `
			INSERT INTO appointment_staff (appointment_id, staff_id, display_name, start_time, end_time)
			VALUES ($1, $2, $3, $4, $5)
		`, id, s.StaffID, s.DisplayName, appt.StartTime, appt.EndTime); err != nil {
			return "", err
		}
	}
	return id, nil
}

func (r *BookingRepository) Get(ctx context.Context, businessID, appointmentID string) (model.Appointment, error) {
	var appt model.Appointment
	err := r.pool.QueryRow(ctx, `
		SELECT id::text, business_id::text, service_id::text, service_name, service_duration_minutes,
			customer_name, customer_email, customer_phone, start_time, end_time, status, created_at
		FROM appointments
		WHERE business_id = $1 AND id = $2
	`, businessID, appointmentID).Scan(
		&appt.ID, &appt.BusinessID, &appt.ServiceID, &appt.ServiceName, &appt.DurationMins,
		&appt.CustomerName, &appt.CustomerEmail, &appt.CustomerPhone,
		&appt.StartTime, &appt.EndTime, &appt.Status, &appt.CreatedAt,
	)
	if err != nil {
		return model.Appointment{}, err
	}
	appt.Staff, err = r.listAssignments(ctx, appt.ID)
	if err != nil {
		return model.Appointment{}, err
	}
	return appt, nil
}

func (r *BookingRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, businessID, appointmentID string) (model.Appointment, error) {
	var appt model.Appointment
	err := tx.QueryRow(ctx, `
		SELECT id::text, business_id::text, service_id::text, service_name, service_duration_minutes,
			customer_name, customer_email, customer_phone, start_time, end_time, status, created_at
		FROM appointments
		WHERE business_id = $1 AND id = $2
		FOR UPDATE
	`, businessID, appointmentID).Scan(
		&appt.ID, &appt.BusinessID, &appt.ServiceID, &appt.ServiceName, &appt.DurationMins,
		&appt.CustomerName, &appt.CustomerEmail, &appt.CustomerPhone,
		&appt.StartTime, &appt.EndTime, &appt.Status, &appt.CreatedAt,
	)
	if err != nil {
		return model.Appointment{}, err
	}
	appt.Staff, err = r.listAssignments(ctx, appt.ID)
	if err != nil {
		return model.Appointment{}, err
	}
	return appt, nil
}

// Delete removes the appointment outright; the staff rows cascade, which
// frees the slots immediately.
func (r *BookingRepository) Delete(ctx context.Context, tx pgx.Tx, businessID, appointmentID string) error {
	tag, err := tx.Exec(ctx, `
		DELETE FROM appointments
		WHERE business_id = $1 AND id = $2
	`, businessID, appointmentID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// Reassign overwrites the service snapshot, times, and team assignment in
// one shot. The staff rows are deleted and reinserted so the exclusion
// constraint re-checks the slot against the new members' calendars.
func (r *BookingRepository) Reassign(ctx context.Context, tx pgx.Tx, appt *model.Appointment) error {
	tag, err := tx.Exec(ctx, `
		UPDATE appointments
		SET service_id = $3,
			service_name = $4,
			service_duration_minutes = $5,
			start_time = $6,
			end_time = $7
		WHERE business_id = $1 AND id = $2
	`, appt.BusinessID, appt.ID, appt.ServiceID, appt.ServiceName, appt.DurationMins,
		appt.StartTime, appt.EndTime)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}

	if _, err := tx.Exec(ctx, `
		DELETE FROM appointment_staff
		WHERE appointment_id = $1
	`, appt.ID); err != nil {
		return err
	}
	for _, s := range appt.Staff {
		if _, err := tx.Exec(ctx, `
			INSERT INTO appointment_staff (appointment_id, staff_id, display_name, start_time, end_time)
			VALUES ($1, $2, $3, $4, $5)
		`, appt.ID, s.StaffID, s.DisplayName, appt.StartTime, appt.EndTime); err != nil {
			return err
		}
	}
	return nil
}

func (r *BookingRepository) ListByBusiness(ctx context.Context, businessID string, limit int) ([]model.Appointment, error) {
	return r.list(ctx, `
		SELECT id::text, business_id::text, service_id::text, service_name, service_duration_minutes,
			customer_name, customer_email, customer_phone, start_time, end_time, status, created_at
		FROM appointments
		WHERE business_id = $1
		ORDER BY start_time DESC
		LIMIT $2
	`, businessID, clampLimit(limit))
}

func (r *BookingRepository) ListByCustomer(ctx context.Context, businessID, customerEmail string, limit int) ([]model.Appointment, error) {
	return r.list(ctx, `
		SELECT id::text, business_id::text, service_id::text, service_name, service_duration_minutes,
			customer_name, customer_email, customer_phone, start_time, end_time, status, created_at
		FROM appointments
		WHERE business_id = $1 AND customer_email = $2
		ORDER BY start_time DESC
		LIMIT $3
	`, businessID, customerEmail, clampLimit(limit))
}

func (r *BookingRepository) ListByStaff(ctx context.Context, businessID, staffID string, limit int) ([]model.Appointment, error) {
	return r.list(ctx, `
		SELECT a.id::text, a.business_id::text, a.service_id::text, a.service_name, a.service_duration_minutes,
			a.customer_name, a.customer_email, a.customer_phone, a.start_time, a.end_time, a.status, a.created_at
		FROM appointments a
		JOIN appointment_staff s ON s.appointment_id = a.id
		WHERE a.business_id = $1 AND s.staff_id = $2
		ORDER BY a.start_time DESC
		LIMIT $3
	`, businessID, staffID, clampLimit(limit))
}

// ListBookedIntervals returns one staff member's busy intervals overlapping
// [start, end), straight from the rows the exclusion constraint guards.
func (r *BookingRepository) ListBookedIntervals(ctx context.Context, staffID string, start, end time.Time) ([]availability.Interval, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT start_time, end_time
		FROM appointment_staff
		WHERE staff_id = $1
			AND start_time < $3
			AND end_time > $2
		ORDER BY start_time ASC
	`, staffID, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []availability.Interval
	for rows.Next() {
		var iv availability.Interval
		if err := rows.Scan(&iv.Start, &iv.End); err != nil {
			return nil, err
		}
		out = append(out, iv)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func (r *BookingRepository) list(ctx context.Context, query string, args ...any) ([]model.Appointment, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var appts []model.Appointment
	for rows.Next() {
		var appt model.Appointment
		if err := rows.Scan(
			&appt.ID, &appt.BusinessID, &appt.ServiceID, &appt.ServiceName, &appt.DurationMins,
			&appt.CustomerName, &appt.CustomerEmail, &appt.CustomerPhone,
			&appt.StartTime, &appt.EndTime, &appt.Status, &appt.CreatedAt,
		); err != nil {
			return nil, err
		}
		appts = append(appts, appt)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}

	for i := range appts {
		staff, err := r.listAssignments(ctx, appts[i].ID)
		if err != nil {
			return nil, err
		}
		appts[i].Staff = staff
	}
	return appts, nil
}

func (r *BookingRepository) listAssignments(ctx context.Context, appointmentID string) ([]model.StaffAssignment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT staff_id::text, display_name
		FROM appointment_staff
		WHERE appointment_id = $1
		ORDER BY display_name ASC
	`, appointmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.StaffAssignment
	for rows.Next() {
		var s model.StaffAssignment
		if err := rows.Scan(&s.StaffID, &s.DisplayName); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > 200 {
		return 50
	}
	return limit
}

type IdempotencyRecord struct {
	BusinessID      string
	IdempotencyKey  string
	AppointmentID   string
	StatusCode      int
	ResponsePayload []byte
}

func (r *BookingRepository) LockIdempotencyKey(ctx context.Context, tx pgx.Tx, businessID, key string) (IdempotencyRecord, bool, error) {
	rec, err := r.selectIdempotencyForUpdate(ctx, tx, businessID, key)
	if err == nil {
		return rec, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return IdempotencyRecord{}, false, err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO booking_idempotency_keys (business_id, idempotency_key)
		VALUES ($1, $2)
		ON CONFLICT (business_id, idempotency_key) DO NOTHING
	`, businessID, key)
	if err != nil {
		return IdempotencyRecord{}, false, err
	}

	rec, err = r.selectIdempotencyForUpdate(ctx, tx, businessID, key)
	if err != nil {
		return IdempotencyRecord{}, false, err
	}
	return rec, false, nil
}

func (r *BookingRepository) FinalizeIdempotency(ctx context.Context, tx pgx.Tx, businessID, key, appointmentID string, statusCode int, response []byte) error {
	_, err := tx.Exec(ctx, `
		UPDATE booking_idempotency_keys
		SET appointment_id = NULLIF($3, '')::uuid,
			status_code = $4,
			response_payload = $5,
			updated_at = now()
		WHERE business_id = $1 AND idempotency_key = $2
	`, businessID, key, appointmentID, statusCode, response)
	return err
}

func (r *BookingRepository) selectIdempotencyForUpdate(ctx context.Context, tx pgx.Tx, businessID, key string) (IdempotencyRecord, error) {
	var rec IdempotencyRecord
	var responseText string
	err := tx.QueryRow(ctx, `
		SELECT business_id::text,
			idempotency_key,
			COALESCE(appointment_id::text, ''),
			COALESCE(status_code, 0),
			COALESCE(response_payload::text, '')
		FROM booking_idempotency_keys
		WHERE business_id = $1 AND idempotency_key = $2
		FOR UPDATE
	`, businessID, key).Scan(
		&rec.BusinessID,
		&rec.IdempotencyKey,
		&rec.AppointmentID,
		&rec.StatusCode,
		&responseText,
	)
	if err != nil {
		return IdempotencyRecord{}, err
	}
	if responseText != "" {
		rec.ResponsePayload = []byte(responseText)
	}
	return rec, nil
}
