package tickets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"repairdesk_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	errRepoNotConfigured = "ticket repository not configured"
	defaultEligibleLimit = 50

	ticketColumns = `id, status, technician_id, scheduled_at, duration_minutes, origin_channel,
		contact_name, contact_phone, contact_email, service_zone, appliance, proposal,
		processing_lock, created_at, updated_at`
)

// Repository is the Postgres request store.
type Repository struct {
	pool     *pgxpool.Pool
	timezone string
}

// NewRepository creates a request store. loc decides the calendar day used
// by the eligible-request ordering.
func NewRepository(pool *pgxpool.Pool, loc *time.Location) *Repository {
	tz := "UTC"
	if loc != nil {
		tz = loc.String()
	}
	return &Repository{pool: pool, timezone: tz}
}

// ListEligible returns requests that may receive an automatic proposal, newest
// creation day first and oldest first within a day.
func (r *Repository) ListEligible(ctx context.Context, limit int) ([]Ticket, error) {
	if r == nil || r.pool == nil {
		return nil, errors.New(errRepoNotConfigured)
	}
	if limit < 1 {
		limit = defaultEligibleLimit
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+ticketColumns+`
		FROM tickets
		WHERE status = 'requested'
		  AND proposal IS NULL
		  AND processing_lock IS NULL
		  AND technician_id IS NULL
		  AND scheduled_at IS NULL
		ORDER BY (created_at AT TIME ZONE $1)::date DESC, created_at ASC
		LIMIT $2`, r.timezone, limit)
	if err != nil {
		return nil, fmt.Errorf("list eligible tickets: %w", err)
	}
	defer rows.Close()

	return collectTickets(rows)
}

// GetByID loads a single request.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Ticket, error) {
	if r == nil || r.pool == nil {
		return Ticket{}, errors.New(errRepoNotConfigured)
	}

	row := r.pool.QueryRow(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE id = $1`, id)
	t, err := scanTicket(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Ticket{}, apperr.NotFound("ticket not found")
	}
	if err != nil {
		return Ticket{}, fmt.Errorf("get ticket: %w", err)
	}
	return t, nil
}

// AcquireLock sets processing_lock in one conditional update. Zero rows
// updated returns ErrLockNotAcquired.
func (r *Repository) AcquireLock(ctx context.Context, id uuid.UUID, now time.Time) (Ticket, error) {
	if r == nil || r.pool == nil {
		return Ticket{}, errors.New(errRepoNotConfigured)
	}

	row := r.pool.QueryRow(ctx, `
		UPDATE tickets
		SET processing_lock = $2, updated_at = $2
		WHERE id = $1
		  AND processing_lock IS NULL
		  AND status = 'requested'
		  AND proposal IS NULL
		  AND technician_id IS NULL
		  AND scheduled_at IS NULL
		RETURNING `+ticketColumns, id, now)
	t, err := scanTicket(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Ticket{}, ErrLockNotAcquired
	}
	if err != nil {
		return Ticket{}, fmt.Errorf("acquire processing lock: %w", err)
	}
	return t, nil
}

// ReleaseLock clears the processing lock and leaves every other column alone.
func (r *Repository) ReleaseLock(ctx context.Context, id uuid.UUID) error {
	if r == nil || r.pool == nil {
		return errors.New(errRepoNotConfigured)
	}

	_, err := r.pool.Exec(ctx, `
		UPDATE tickets SET processing_lock = NULL, updated_at = now()
		WHERE id = $1 AND processing_lock IS NOT NULL`, id)
	if err != nil {
		return fmt.Errorf("release processing lock: %w", err)
	}
	return nil
}

// ReleaseStaleLocks clears locks taken before olderThan on requests that still
// have no proposal.
func (r *Repository) ReleaseStaleLocks(ctx context.Context, olderThan time.Time) (int, error) {
	if r == nil || r.pool == nil {
		return 0, errors.New(errRepoNotConfigured)
	}

	tag, err := r.pool.Exec(ctx, `
		UPDATE tickets SET processing_lock = NULL, updated_at = now()
		WHERE processing_lock IS NOT NULL
		  AND processing_lock < $1
		  AND proposal IS NULL`, olderThan)
	if err != nil {
		return 0, fmt.Errorf("release stale locks: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// AttachProposal writes the proposal and clears the lock in the same update.
// Zero rows means the request stopped being open and ErrNotOpen is returned.
func (r *Repository) AttachProposal(ctx context.Context, id uuid.UUID, proposal Proposal) error {
	if r == nil || r.pool == nil {
		return errors.New(errRepoNotConfigured)
	}

	payload, err := json.Marshal(proposal)
	if err != nil {
		return fmt.Errorf("marshal proposal: %w", err)
	}

	tag, err := r.pool.Exec(ctx, `
		UPDATE tickets
		SET proposal = $2, processing_lock = NULL, updated_at = now()
		WHERE id = $1
		  AND status = 'requested'
		  AND proposal IS NULL
		  AND technician_id IS NULL
		  AND scheduled_at IS NULL`, id, payload)
	if err != nil {
		return fmt.Errorf("attach proposal: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotOpen
	}
	return nil
}

// ListWaitingSelection returns open requests whose proposal awaits an answer.
func (r *Repository) ListWaitingSelection(ctx context.Context) ([]Ticket, error) {
	if r == nil || r.pool == nil {
		return nil, errors.New(errRepoNotConfigured)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+ticketColumns+`
		FROM tickets
		WHERE status = 'requested'
		  AND proposal IS NOT NULL
		  AND proposal->>'status' = 'waiting_selection'
		ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("list waiting tickets: %w", err)
	}
	defer rows.Close()

	return collectTickets(rows)
}

// ExpireProposal moves a waiting proposal to expired and the request to
// timeout in one statement. Returns false when the request already moved on.
func (r *Repository) ExpireProposal(ctx context.Context, id uuid.UUID, expiredAt time.Time) (bool, error) {
	if r == nil || r.pool == nil {
		return false, errors.New(errRepoNotConfigured)
	}

	tag, err := r.pool.Exec(ctx, `
		UPDATE tickets
		SET status = 'timeout',
		    proposal = proposal || jsonb_build_object('status', 'expired', 'expiredAt', $2::text, 'reason', $3::text),
		    updated_at = now()
		WHERE id = $1
		  AND status = 'requested'
		  AND proposal->>'status' = 'waiting_selection'`,
		id, expiredAt.UTC().Format(time.RFC3339Nano), ExpiryReasonTimeout)
	if err != nil {
		return false, fmt.Errorf("expire proposal: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func collectTickets(rows pgx.Rows) ([]Ticket, error) {
	items := make([]Ticket, 0)
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ticket: %w", err)
		}
		items = append(items, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func scanTicket(row pgx.Row) (Ticket, error) {
	var (
		t        Ticket
		status   string
		origin   string
		proposal []byte
	)
	if err := row.Scan(
		&t.ID, &status, &t.TechnicianID, &t.ScheduledAt, &t.DurationMinutes, &origin,
		&t.ContactName, &t.ContactPhone, &t.ContactEmail, &t.ServiceZone, &t.Appliance, &proposal,
		&t.ProcessingLock, &t.CreatedAt, &t.UpdatedAt,
	); err != nil {
		return Ticket{}, err
	}
	t.Status = Status(status)
	t.OriginChannel = OriginChannel(origin)

	if len(proposal) > 0 {
		var p Proposal
		if err := json.Unmarshal(proposal, &p); err != nil {
			return Ticket{}, fmt.Errorf("decode proposal: %w", err)
		}
		t.Proposal = &p
	}
	return t, nil
}
