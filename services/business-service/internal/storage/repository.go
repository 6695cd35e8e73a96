package storage

import (
	"context"
	"errors"
	"time"

	"github.com/bookable-app/bookable/libs/db"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type Repository struct {
	pool *db.Pool
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool}
}

func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

type BusinessProfile struct {
	BusinessID string
	Name       string
	Category   string
	Address    string
	Phone      string
	Timezone   string
	LogoURL    string
	UpdatedAt  time.Time
}

func (r *Repository) GetOrCreateProfile(ctx context.Context, businessID string) (BusinessProfile, error) {
	// Create a default profile if missing (keeps dev UX smooth while the owner
	// is still filling out onboarding).
	_, err := r.pool.Exec(ctx, `
		INSERT INTO business_profiles (business_id)
		VALUES ($1)
		ON CONFLICT (business_id) DO NOTHING
	`, businessID)
	if err != nil {
		return BusinessProfile{}, err
	}

	var p BusinessProfile
	err = r.pool.QueryRow(ctx, `
		SELECT business_id::text, name, category, address, phone, timezone, logo_url, updated_at
		FROM business_profiles
		WHERE business_id = $1
	`, businessID).Scan(&p.BusinessID, &p.Name, &p.Category, &p.Address, &p.Phone, &p.Timezone, &p.LogoURL, &p.UpdatedAt)
	return p, err
}

func (r *Repository) UpdateProfile(ctx context.Context, p BusinessProfile) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO business_profiles (business_id, name, category, address, phone, timezone)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (business_id) DO UPDATE
		SET name = EXCLUDED.name,
			category = EXCLUDED.category,
			address = EXCLUDED.address,
			phone = EXCLUDED.phone,
			timezone = EXCLUDED.timezone,
			updated_at = now()
	`, p.BusinessID, p.Name, p.Category, p.Address, p.Phone, p.Timezone)
	return err
}

func (r *Repository) UpdateLogoURL(ctx context.Context, businessID, logoURL string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE business_profiles
		SET logo_url = $2, updated_at = now()
		WHERE business_id = $1
	`, businessID, logoURL)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// DeleteBusiness removes the profile and everything hanging off it. Staff and
// services carry business_id without a foreign key to the profile, so they are
// deleted explicitly in the same transaction.
func (r *Repository) DeleteBusiness(ctx context.Context, businessID string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM business_services WHERE business_id = $1`, businessID); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM staff WHERE business_id = $1`, businessID); err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, `DELETE FROM business_profiles WHERE business_id = $1`, businessID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return tx.Commit(ctx)
}

type BusinessHours struct {
	Weekday     int
	IsOpen      bool
	StartMinute int
	EndMinute   int
}

func (r *Repository) ListBusinessHours(ctx context.Context, businessID string) ([]BusinessHours, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT weekday, is_open, start_minute, end_minute
		FROM business_hours
		WHERE business_id = $1
		ORDER BY weekday ASC
	`, businessID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []BusinessHours
	for rows.Next() {
		var h BusinessHours
		if err := rows.Scan(&h.Weekday, &h.IsOpen, &h.StartMinute, &h.EndMinute); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

// GetBusinessHours returns the window for one weekday. A missing row means the
// business never configured that day and it is treated as closed.
func (r *Repository) GetBusinessHours(ctx context.Context, businessID string, weekday int) (BusinessHours, error) {
	var h BusinessHours
	err := r.pool.QueryRow(ctx, `
		SELECT weekday, is_open, start_minute, end_minute
		FROM business_hours
		WHERE business_id = $1 AND weekday = $2
	`, businessID, weekday).Scan(&h.Weekday, &h.IsOpen, &h.StartMinute, &h.EndMinute)
	if err == pgx.ErrNoRows {
		return BusinessHours{Weekday: weekday, IsOpen: false}, nil
	}
	if err != nil {
		return BusinessHours{}, err
	}
	return h, nil
}

func (r *Repository) UpsertBusinessHours(ctx context.Context, businessID string, h BusinessHours) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO business_hours (business_id, weekday, is_open, start_minute, end_minute)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (business_id, weekday) DO UPDATE
		SET is_open = EXCLUDED.is_open,
			start_minute = EXCLUDED.start_minute,
			end_minute = EXCLUDED.end_minute
	`, businessID, h.Weekday, h.IsOpen, h.StartMinute, h.EndMinute)
	return err
}

type Staff struct {
	ID         string
	BusinessID string
	UserID     string
	Name       string
	Email      string
	IsActive   bool
	CreatedAt  time.Time
}

func (r *Repository) CreateStaff(ctx context.Context, businessID, userID, name, email string) (string, error) {
	id := uuid.NewString()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO staff (id, business_id, user_id, name, email, is_active)
		VALUES ($1, $2, NULLIF($3, '')::uuid, $4, $5, true)
	`, id, businessID, userID, name, email)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (r *Repository) ListStaff(ctx context.Context, businessID string, limit int) ([]Staff, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, business_id::text, COALESCE(user_id::text, ''), name, email, is_active, created_at
		FROM staff
		WHERE business_id = $1
		ORDER BY created_at ASC
		LIMIT $2
	`, businessID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Staff
	for rows.Next() {
		var s Staff
		if err := rows.Scan(&s.ID, &s.BusinessID, &s.UserID, &s.Name, &s.Email, &s.IsActive, &s.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func (r *Repository) GetStaff(ctx context.Context, businessID, staffID string) (Staff, error) {
	var s Staff
	err := r.pool.QueryRow(ctx, `
		SELECT id::text, business_id::text, COALESCE(user_id::text, ''), name, email, is_active, created_at
		FROM staff
		WHERE business_id = $1 AND id = $2
	`, businessID, staffID).Scan(&s.ID, &s.BusinessID, &s.UserID, &s.Name, &s.Email, &s.IsActive, &s.CreatedAt)
	return s, err
}

func (r *Repository) SetStaffActive(ctx context.Context, businessID, staffID string, active bool) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE staff SET is_active = $3
		WHERE business_id = $1 AND id = $2
	`, businessID, staffID, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *Repository) staffBelongs(ctx context.Context, businessID, staffID string) error {
	var exists bool
	if err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM staff WHERE id = $1 AND business_id = $2
		)
	`, staffID, businessID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return pgx.ErrNoRows
	}
	return nil
}

// GetDayStatus returns the stored flag for the weekday; an empty string means
// the day was never set.
func (r *Repository) GetDayStatus(ctx context.Context, businessID, staffID string, weekday int) (string, error) {
	if err := r.staffBelongs(ctx, businessID, staffID); err != nil {
		return "", err
	}
	var status string
	err := r.pool.QueryRow(ctx, `
		SELECT status FROM staff_day_status
		WHERE staff_id = $1 AND weekday = $2
	`, staffID, weekday).Scan(&status)
	if err == pgx.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return status, nil
}

func (r *Repository) SetDayStatus(ctx context.Context, businessID, staffID string, weekday int, status string) error {
	if err := r.staffBelongs(ctx, businessID, staffID); err != nil {
		return err
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO staff_day_status (staff_id, weekday, status)
		VALUES ($1, $2, $3)
		ON CONFLICT (staff_id, weekday) DO UPDATE
		SET status = EXCLUDED.status
	`, staffID, weekday, status)
	return err
}

// ClearDayStatus removes the row, returning the day to its unset state.
// Clearing an already-unset day is a no-op.
func (r *Repository) ClearDayStatus(ctx context.Context, businessID, staffID string, weekday int) error {
	if err := r.staffBelongs(ctx, businessID, staffID); err != nil {
		return err
	}
	_, err := r.pool.Exec(ctx, `
		DELETE FROM staff_day_status
		WHERE staff_id = $1 AND weekday = $2
	`, staffID, weekday)
	return err
}

type WorkingHours struct {
	StaffID     string
	Weekday     int
	StartMinute int
	EndMinute   int
}

func (r *Repository) ListWorkingHours(ctx context.Context, businessID, staffID string) ([]WorkingHours, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT h.staff_id::text, h.weekday, h.start_minute, h.end_minute
		FROM staff_working_hours h
		JOIN staff s ON s.id = h.staff_id
		WHERE s.business_id = $1 AND h.staff_id = $2
		ORDER BY h.weekday ASC
	`, businessID, staffID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []WorkingHours
	for rows.Next() {
		var wh WorkingHours
		if err := rows.Scan(&wh.StaffID, &wh.Weekday, &wh.StartMinute, &wh.EndMinute); err != nil {
			return nil, err
		}
		out = append(out, wh)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func (r *Repository) UpsertWorkingHours(ctx context.Context, businessID string, wh WorkingHours) error {
	if err := r.staffBelongs(ctx, businessID, wh.StaffID); err != nil {
		return err
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO staff_working_hours (staff_id, weekday, start_minute, end_minute)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (staff_id, weekday) DO UPDATE
		SET start_minute = EXCLUDED.start_minute,
			end_minute = EXCLUDED.end_minute
	`, wh.StaffID, wh.Weekday, wh.StartMinute, wh.EndMinute)
	return err
}

type Break struct {
	ID          string
	StaffID     string
	Weekday     int
	StartMinute int
	EndMinute   int
}

func (r *Repository) ListBreaks(ctx context.Context, businessID, staffID string, weekday int) ([]Break, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT b.id::text, b.staff_id::text, b.weekday, b.start_minute, b.end_minute
		FROM staff_breaks b
		JOIN staff s ON s.id = b.staff_id
		WHERE s.business_id = $1 AND b.staff_id = $2 AND b.weekday = $3
		ORDER BY b.start_minute ASC
	`, businessID, staffID, weekday)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Break
	for rows.Next() {
		var b Break
		if err := rows.Scan(&b.ID, &b.StaffID, &b.Weekday, &b.StartMinute, &b.EndMinute); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func (r *Repository) AddBreak(ctx context.Context, businessID string, b Break) (string, error) {
	if err := r.staffBelongs(ctx, businessID, b.StaffID); err != nil {
		return "", err
	}
	id := uuid.NewString()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO staff_breaks (id, staff_id, weekday, start_minute, end_minute)
		VALUES ($1, $2, $3, $4, $5)
	`, id, b.StaffID, b.Weekday, b.StartMinute, b.EndMinute)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (r *Repository) DeleteBreak(ctx context.Context, businessID, breakID string) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM staff_breaks b
		USING staff s
		WHERE b.staff_id = s.id
		  AND s.business_id = $1
		  AND b.id = $2
	`, businessID, breakID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

type BusinessService struct {
	ID           string
	BusinessID   string
	Name         string
	Description  string
	DurationMins int
	Price        string
	TeamAll      bool
	StaffIDs     []string
	CreatedAt    time.Time
}

// CreateService stores the service and, when it is not offered by the whole
// team, the explicit staff assignments.
func (r *Repository) CreateService(ctx context.Context, svc BusinessService) (string, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	id := uuid.NewString()
	_, err = tx.Exec(ctx, `
		INSERT INTO business_services (id, business_id, name, description, duration_minutes, price, team_all)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, id, svc.BusinessID, svc.Name, svc.Description, svc.DurationMins, svc.Price, svc.TeamAll)
	if err != nil {
		return "", err
	}

	if !svc.TeamAll {
		for _, staffID := range svc.StaffIDs {
			if _, err := tx.Exec(ctx, `
				INSERT INTO service_staff (service_id, staff_id)
				VALUES ($1, $2)
				ON CONFLICT DO NOTHING
			`, id, staffID); err != nil {
				return "", err
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return "", err
	}
	return id, nil
}

func (r *Repository) ListServices(ctx context.Context, businessID string, limit int) ([]BusinessService, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT s.id::text, s.business_id::text, s.name, s.description, s.duration_minutes,
			s.price::text, s.team_all, s.created_at,
			COALESCE(array_agg(ss.staff_id::text) FILTER (WHERE ss.staff_id IS NOT NULL), '{}')
		FROM business_services s
		LEFT JOIN service_staff ss ON ss.service_id = s.id
		WHERE s.business_id = $1
		GROUP BY s.id
		ORDER BY s.created_at DESC
		LIMIT $2
	`, businessID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []BusinessService
	for rows.Next() {
		var s BusinessService
		if err := rows.Scan(&s.ID, &s.BusinessID, &s.Name, &s.Description, &s.DurationMins,
			&s.Price, &s.TeamAll, &s.CreatedAt, &s.StaffIDs); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func (r *Repository) DeleteService(ctx context.Context, businessID, serviceID string) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM business_services
		WHERE business_id = $1 AND id = $2
	`, businessID, serviceID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
