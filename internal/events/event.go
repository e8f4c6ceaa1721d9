// Package events defines what the autopilot announces about proposals.
// The notification module subscribes to push them to dashboards and to
// message customers.
package events

import (
	"time"

	"repairdesk_backend/platform/events"

	"github.com/google/uuid"
)

// Bus plumbing from platform/events, so modules import a single package.
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

var (
	NewBaseEvent   = events.NewBaseEvent
	NewBaseEventAt = events.NewBaseEventAt
)

// =============================================================================
// Autopilot Domain Events
// =============================================================================

// ProposedSlot is one option of a proposal as seen by subscribers.
type ProposedSlot struct {
	Date           string    `json:"date"`
	StartTime      string    `json:"startTime"`
	EndTime        string    `json:"endTime"`
	TechnicianID   uuid.UUID `json:"technicianId"`
	TechnicianName string    `json:"technicianName"`
}

// ProposalCreated is published after slot options were attached to a ticket.
type ProposalCreated struct {
	BaseEvent
	TicketID      uuid.UUID      `json:"ticketId"`
	OriginChannel string         `json:"originChannel"`
	ContactName   string         `json:"contactName"`
	ContactPhone  string         `json:"contactPhone"`
	ContactEmail  string         `json:"contactEmail"`
	Appliance     string         `json:"appliance"`
	Slots         []ProposedSlot `json:"slots"`
	ExpiresAt     time.Time      `json:"expiresAt"`
}

func (e ProposalCreated) EventName() string { return "autopilot.proposal.created" }

// ProposalExpired is published once per ticket moved to timeout by the sweep.
type ProposalExpired struct {
	BaseEvent
	TicketID      uuid.UUID `json:"ticketId"`
	OriginChannel string    `json:"originChannel"`
	ContactName   string    `json:"contactName"`
	ContactPhone  string    `json:"contactPhone"`
	ContactEmail  string    `json:"contactEmail"`
	ExpiredAt     time.Time `json:"expiredAt"`
}

func (e ProposalExpired) EventName() string { return "autopilot.proposal.expired" }

// NoSlotsFound is published when the search window had no availability.
type NoSlotsFound struct {
	BaseEvent
	TicketID      uuid.UUID `json:"ticketId"`
	OriginChannel string    `json:"originChannel"`
	SearchDays    int       `json:"searchDays"`
}

func (e NoSlotsFound) EventName() string { return "autopilot.proposal.no_slots" }
