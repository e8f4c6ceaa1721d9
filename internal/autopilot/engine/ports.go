// Package engine turns unscheduled service requests into time-boxed slot
// proposals and expires the proposals nobody answered.
package engine

import (
	"context"
	"time"

	"repairdesk_backend/internal/availability"
	"repairdesk_backend/internal/tickets"

	"github.com/google/uuid"
)

// TicketStore is the request store. Every mutating call is a single
// conditional update.
type TicketStore interface {
	ListEligible(ctx context.Context, limit int) ([]tickets.Ticket, error)
	GetByID(ctx context.Context, id uuid.UUID) (tickets.Ticket, error)
	AcquireLock(ctx context.Context, id uuid.UUID, now time.Time) (tickets.Ticket, error)
	ReleaseLock(ctx context.Context, id uuid.UUID) error
	ReleaseStaleLocks(ctx context.Context, olderThan time.Time) (int, error)
	AttachProposal(ctx context.Context, id uuid.UUID, proposal tickets.Proposal) error
	ListWaitingSelection(ctx context.Context) ([]tickets.Ticket, error)
	ExpireProposal(ctx context.Context, id uuid.UUID, expiredAt time.Time) (bool, error)
}

// AvailabilityQuery returns openings for one day, best first.
type AvailabilityQuery interface {
	SlotsForDay(ctx context.Context, req availability.Request) ([]availability.Slot, error)
}

// ProposalEmail is the content of a proposal sent by email.
type ProposalEmail struct {
	TicketID    uuid.UUID
	To          string
	ContactName string
	Appliance   string
	Options     []string
	ExpiresAt   time.Time
}

// Dispatcher delivers customer messages. Calls are fire-and-forget from the
// engine's point of view: errors are logged, never retried here.
type Dispatcher interface {
	SendWhatsApp(ctx context.Context, phone, message string) error
	SendProposalEmail(ctx context.Context, msg ProposalEmail) error
}
