package availability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

const errRepoNotConfigured = "availability repository not configured"

// Repository reads technicians, their weekly rules and booked tickets.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an availability repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListTechnicians returns active technicians.
func (r *Repository) ListTechnicians(ctx context.Context) ([]Technician, error) {
	if r == nil || r.pool == nil {
		return nil, errors.New(errRepoNotConfigured)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, display_name, phone, zones
		FROM technicians
		WHERE active = TRUE
		ORDER BY display_name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list technicians: %w", err)
	}
	defer rows.Close()

	items := make([]Technician, 0)
	for rows.Next() {
		var item Technician
		if err := rows.Scan(&item.ID, &item.DisplayName, &item.Phone, &item.Zones); err != nil {
			return nil, fmt.Errorf("failed to scan technician: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate technicians: %w", err)
	}

	return items, nil
}

// ListRules returns the weekly rules for weekday (0 = Sunday).
func (r *Repository) ListRules(ctx context.Context, weekday int) ([]Rule, error) {
	if r == nil || r.pool == nil {
		return nil, errors.New(errRepoNotConfigured)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT technician_id, weekday, start_time, end_time, timezone
		FROM technician_availability_rules
		WHERE weekday = $1
		ORDER BY start_time`, weekday)
	if err != nil {
		return nil, fmt.Errorf("failed to list availability rules: %w", err)
	}
	defer rows.Close()

	items := make([]Rule, 0)
	for rows.Next() {
		var (
			item       Rule
			start, end pgtype.Time
		)
		if err := rows.Scan(&item.TechnicianID, &item.Weekday, &start, &end, &item.Timezone); err != nil {
			return nil, fmt.Errorf("failed to scan availability rule: %w", err)
		}
		item.StartTime = clockTime(start)
		item.EndTime = clockTime(end)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate availability rules: %w", err)
	}

	return items, nil
}

// ListBookings returns scheduled, still active tickets starting in [from, to).
func (r *Repository) ListBookings(ctx context.Context, from, to time.Time) ([]Booking, error) {
	if r == nil || r.pool == nil {
		return nil, errors.New(errRepoNotConfigured)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT technician_id, scheduled_at, scheduled_at + make_interval(mins => duration_minutes)
		FROM tickets
		WHERE technician_id IS NOT NULL
		  AND scheduled_at >= $1 AND scheduled_at < $2
		  AND status NOT IN ('cancelled', 'closed', 'timeout')`, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	defer rows.Close()

	items := make([]Booking, 0)
	for rows.Next() {
		var item Booking
		if err := rows.Scan(&item.TechnicianID, &item.Start, &item.End); err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate bookings: %w", err)
	}

	return items, nil
}

func clockTime(t pgtype.Time) time.Time {
	return time.Date(0, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(t.Microseconds) * time.Microsecond)
}
