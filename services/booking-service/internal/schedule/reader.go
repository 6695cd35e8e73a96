package schedule

import (
	"context"
	"time"

	"github.com/bookable-app/bookable/libs/db"
	"github.com/bookable-app/bookable/services/booking-service/internal/availability"
	"github.com/jackc/pgx/v5"
)

// Reader resolves bookable windows and team eligibility from the business
// schedule tables. Booking and business services share one Postgres in this
// deployment, so reads go straight to the tables instead of over the wire.
type Reader struct {
	pool *db.Pool
}

func NewReader(pool *db.Pool) *Reader {
	return &Reader{pool: pool}
}

type ServiceInfo struct {
	ID           string
	BusinessID   string
	Name         string
	DurationMins int
	TeamAll      bool
	StaffIDs     []string
}

func (r *Reader) GetService(ctx context.Context, businessID, serviceID string) (ServiceInfo, error) {
	var svc ServiceInfo
	err := r.pool.QueryRow(ctx, `
		SELECT s.id::text, s.business_id::text, s.name, s.duration_minutes, s.team_all,
			COALESCE(array_agg(ss.staff_id::text) FILTER (WHERE ss.staff_id IS NOT NULL), '{}')
		FROM business_services s
		LEFT JOIN service_staff ss ON ss.service_id = s.id
		WHERE s.business_id = $1 AND s.id = $2
		GROUP BY s.id
	`, businessID, serviceID).Scan(&svc.ID, &svc.BusinessID, &svc.Name, &svc.DurationMins, &svc.TeamAll, &svc.StaffIDs)
	return svc, err
}

type StaffInfo struct {
	ID   string
	Name string
}

// EligibleStaff resolves a service's team selection to concrete active
// members: the whole team when the service is offered by everyone, otherwise
// the assigned members. Inactive members are always excluded.
func (r *Reader) EligibleStaff(ctx context.Context, svc ServiceInfo) ([]StaffInfo, error) {
	var rows pgx.Rows
	var err error
	if svc.TeamAll {
		rows, err = r.pool.Query(ctx, `
			SELECT id::text, name
			FROM staff
			WHERE business_id = $1 AND is_active
			ORDER BY created_at ASC
		`, svc.BusinessID)
	} else {
		rows, err = r.pool.Query(ctx, `
			SELECT id::text, name
			FROM staff
			WHERE business_id = $1 AND is_active AND id = ANY($2::uuid[])
			ORDER BY created_at ASC
		`, svc.BusinessID, svc.StaffIDs)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []StaffInfo
	for rows.Next() {
		var s StaffInfo
		if err := rows.Scan(&s.ID, &s.Name); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

// Timezone loads the business's configured location, defaulting to UTC.
func (r *Reader) Timezone(ctx context.Context, businessID string) (*time.Location, error) {
	var tz string
	err := r.pool.QueryRow(ctx, `
		SELECT timezone FROM business_profiles WHERE business_id = $1
	`, businessID).Scan(&tz)
	if err == pgx.ErrNoRows || tz == "" {
		return time.UTC, nil
	}
	if err != nil {
		return nil, err
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.UTC, nil
	}
	return loc, nil
}

// DayWindows resolves a team member's bookable windows for one local date:
// the intersection of business hours and working hours, minus breaks. Nil
// means the member cannot be booked that day — the business is closed, the
// day is not marked Available, or no working hours are set.
func (r *Reader) DayWindows(ctx context.Context, businessID, staffID string, day time.Time, loc *time.Location) ([]availability.Interval, error) {
	weekday := int(day.In(loc).Weekday())

	var bizOpen bool
	var bizStart, bizEnd int
	err := r.pool.QueryRow(ctx, `
		SELECT is_open, start_minute, end_minute
		FROM business_hours
		WHERE business_id = $1 AND weekday = $2
	`, businessID, weekday).Scan(&bizOpen, &bizStart, &bizEnd)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !bizOpen {
		return nil, nil
	}

	var status string
	err = r.pool.QueryRow(ctx, `
		SELECT status FROM staff_day_status
		WHERE staff_id = $1 AND weekday = $2
	`, staffID, weekday).Scan(&status)
	if err != nil && err != pgx.ErrNoRows {
		return nil, err
	}
	if status != "Available" {
		return nil, nil
	}

	var workStart, workEnd int
	err = r.pool.QueryRow(ctx, `
		SELECT start_minute, end_minute
		FROM staff_working_hours
		WHERE staff_id = $1 AND weekday = $2
	`, staffID, weekday).Scan(&workStart, &workEnd)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	start := max(bizStart, workStart)
	end := min(bizEnd, workEnd)
	if end <= start {
		return nil, nil
	}

	rows, err := r.pool.Query(ctx, `
		SELECT start_minute, end_minute
		FROM staff_breaks
		WHERE staff_id = $1 AND weekday = $2
		ORDER BY start_minute ASC
	`, staffID, weekday)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	type span struct{ start, end int }
	windows := []span{{start, end}}
	for rows.Next() {
		var b span
		if err := rows.Scan(&b.start, &b.end); err != nil {
			return nil, err
		}
		var next []span
		for _, w := range windows {
			if b.start >= w.end || b.end <= w.start {
				next = append(next, w)
				continue
			}
			if b.start > w.start {
				next = append(next, span{w.start, b.start})
			}
			if b.end < w.end {
				next = append(next, span{b.end, w.end})
			}
		}
		windows = next
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}

	localDay := day.In(loc)
	midnight := time.Date(localDay.Year(), localDay.Month(), localDay.Day(), 0, 0, 0, 0, loc)
	out := make([]availability.Interval, 0, len(windows))
	for _, w := range windows {
		out = append(out, availability.Interval{
			Start: midnight.Add(time.Duration(w.start) * time.Minute),
			End:   midnight.Add(time.Duration(w.end) * time.Minute),
		})
	}
	return out, nil
}
