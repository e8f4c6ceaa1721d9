// Package tickets holds the service request domain types and the request store.
package tickets

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle status of a service request.
type Status string

const (
	StatusRequested  Status = "requested"
	StatusAssigned   Status = "assigned"
	StatusEnRoute    Status = "en_route"
	StatusInProgress Status = "in_progress"
	StatusTimeout    Status = "timeout"
	StatusCancelled  Status = "cancelled"
	StatusClosed     Status = "closed"
)

// OriginChannel is where the customer created the request.
type OriginChannel string

const (
	OriginApp        OriginChannel = "app"
	OriginWhatsApp   OriginChannel = "whatsapp"
	OriginBackoffice OriginChannel = "backoffice"
)

// ProposalStatus tracks a proposal through selection and expiry.
type ProposalStatus string

const (
	ProposalWaitingSelection ProposalStatus = "waiting_selection"
	ProposalExpired          ProposalStatus = "expired"
	ProposalNoSlots          ProposalStatus = "no_slots"
)

// ExpiryReasonTimeout is stored on proposals closed by the timeout sweep.
const ExpiryReasonTimeout = "timeout"

// ErrLockNotAcquired means another worker holds the processing lock or the
// request stopped being eligible between read and update.
var ErrLockNotAcquired = errors.New("processing lock not acquired")

// ErrNotOpen means the request was closed, assigned, scheduled or already
// proposed to while a worker held its lock.
var ErrNotOpen = errors.New("request no longer open for a proposal")

// SlotOption is one offered appointment.
type SlotOption struct {
	Date           string    `json:"date"`
	StartTime      string    `json:"startTime"`
	EndTime        string    `json:"endTime"`
	TechnicianID   uuid.UUID `json:"technicianId"`
	TechnicianName string    `json:"technicianName"`
}

// Proposal is the set of options attached to a request.
// ExpiresAt is fixed at creation and never extended.
type Proposal struct {
	Status    ProposalStatus `json:"status"`
	Slots     []SlotOption   `json:"slots"`
	CreatedAt time.Time      `json:"createdAt"`
	ExpiresAt *time.Time     `json:"expiresAt,omitempty"`
	ExpiredAt *time.Time     `json:"expiredAt,omitempty"`
	Reason    string         `json:"reason,omitempty"`
}

// NewProposal builds a proposal waiting for the customer's choice.
func NewProposal(slots []SlotOption, createdAt time.Time, timeoutMinutes int) Proposal {
	expiresAt := createdAt.Add(time.Duration(timeoutMinutes) * time.Minute)
	return Proposal{
		Status:    ProposalWaitingSelection,
		Slots:     slots,
		CreatedAt: createdAt,
		ExpiresAt: &expiresAt,
	}
}

// NoSlotsProposal records that no availability was found in the search window.
func NoSlotsProposal(createdAt time.Time) Proposal {
	return Proposal{
		Status:    ProposalNoSlots,
		Slots:     []SlotOption{},
		CreatedAt: createdAt,
	}
}

// ExpiredAfter reports whether a waiting proposal is past createdAt+timeout at now.
func (p Proposal) ExpiredAfter(timeoutMinutes int, now time.Time) bool {
	if p.Status != ProposalWaitingSelection {
		return false
	}
	return now.After(p.CreatedAt.Add(time.Duration(timeoutMinutes) * time.Minute))
}

func (p Proposal) clone() Proposal {
	out := p
	out.Slots = append([]SlotOption(nil), p.Slots...)
	if p.ExpiresAt != nil {
		v := *p.ExpiresAt
		out.ExpiresAt = &v
	}
	if p.ExpiredAt != nil {
		v := *p.ExpiredAt
		out.ExpiredAt = &v
	}
	return out
}

// Ticket is a customer service request.
type Ticket struct {
	ID              uuid.UUID
	Status          Status
	TechnicianID    *uuid.UUID
	ScheduledAt     *time.Time
	DurationMinutes int
	OriginChannel   OriginChannel
	ContactName     string
	ContactPhone    string
	ContactEmail    string
	ServiceZone     string
	Appliance       string
	Proposal        *Proposal
	ProcessingLock  *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// IsEligible reports whether the request may receive an automatic proposal.
func (t Ticket) IsEligible() bool {
	return t.Status == StatusRequested &&
		t.Proposal == nil &&
		t.ProcessingLock == nil &&
		t.TechnicianID == nil &&
		t.ScheduledAt == nil
}

// acceptsProposal reports whether a locked request may still receive a proposal.
func (t Ticket) acceptsProposal() bool {
	return t.Status == StatusRequested &&
		t.Proposal == nil &&
		t.TechnicianID == nil &&
		t.ScheduledAt == nil
}

// IsWaitingSelection reports whether the request carries an open proposal.
func (t Ticket) IsWaitingSelection() bool {
	return t.Status == StatusRequested && t.Proposal != nil && t.Proposal.Status == ProposalWaitingSelection
}

func (t Ticket) clone() Ticket {
	out := t
	if t.TechnicianID != nil {
		v := *t.TechnicianID
		out.TechnicianID = &v
	}
	if t.ScheduledAt != nil {
		v := *t.ScheduledAt
		out.ScheduledAt = &v
	}
	if t.ProcessingLock != nil {
		v := *t.ProcessingLock
		out.ProcessingLock = &v
	}
	if t.Proposal != nil {
		p := t.Proposal.clone()
		out.Proposal = &p
	}
	return out
}
