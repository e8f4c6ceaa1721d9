package transport

import (
	"time"

	"github.com/google/uuid"
)

// RunMode tells which entry mode a run used.
type RunMode string

const (
	RunModeTicket RunMode = "ticket"
	RunModeNext   RunMode = "next"
	RunModeBatch  RunMode = "batch"
)

// RunRequest is the body of POST /autopilot/run. A ticketId selects one
// request; batch processes up to five; neither processes the single
// highest-priority request.
type RunRequest struct {
	TicketID *uuid.UUID `json:"ticketId,omitempty"`
	Batch    bool       `json:"batch"`
	Limit    int        `json:"limit,omitempty" validate:"omitempty,min=1,max=5"`
}

// SlotOptionResponse is one offered appointment.
type SlotOptionResponse struct {
	Date           string    `json:"date"`
	StartTime      string    `json:"startTime"`
	EndTime        string    `json:"endTime"`
	TechnicianID   uuid.UUID `json:"technicianId"`
	TechnicianName string    `json:"technicianName"`
}

// TicketResult is the outcome for one ticket.
type TicketResult struct {
	TicketID *uuid.UUID           `json:"ticketId,omitempty"`
	Outcome  string               `json:"outcome"`
	Slots    []SlotOptionResponse `json:"slots,omitempty"`
	Error    string               `json:"error,omitempty"`
}

// RunResponse is returned by every run entry.
type RunResponse struct {
	Mode    RunMode        `json:"mode"`
	Results []TicketResult `json:"results"`
}

// WebhookRecord is the inserted row carried by a database webhook.
type WebhookRecord struct {
	ID     uuid.UUID `json:"id" validate:"required"`
	Status string    `json:"status"`
}

// WebhookRequest is a database change notification.
type WebhookRequest struct {
	Type   string        `json:"type" validate:"required"`
	Table  string        `json:"table" validate:"required"`
	Record WebhookRecord `json:"record"`
}

// WebhookResponse reports what the webhook did.
type WebhookResponse struct {
	TicketID uuid.UUID     `json:"ticketId"`
	Queued   bool          `json:"queued"`
	Ignored  bool          `json:"ignored,omitempty"`
	Result   *TicketResult `json:"result,omitempty"`
}

// SweepResponse reports the counts of a timeout sweep.
type SweepResponse struct {
	Checked            int       `json:"checked"`
	Expired            int       `json:"expired"`
	Skipped            int       `json:"skipped"`
	StaleLocksReleased int       `json:"staleLocksReleased"`
	TimeoutMinutes     int       `json:"timeoutMinutes"`
	RanAt              time.Time `json:"ranAt"`
}
