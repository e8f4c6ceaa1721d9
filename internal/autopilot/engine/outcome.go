package engine

import (
	"repairdesk_backend/internal/tickets"

	"github.com/google/uuid"
)

// Outcome is the result of one processing attempt.
type Outcome string

const (
	OutcomeProposed          Outcome = "proposed"
	OutcomeNoSlots           Outcome = "no_slots"
	OutcomeSkippedDisabled   Outcome = "skipped_disabled"
	OutcomeSkippedRaceLost   Outcome = "skipped_race_lost"
	OutcomeSkippedIneligible Outcome = "skipped_ineligible"
	OutcomeNoEligible        Outcome = "no_eligible"
	OutcomeFailed            Outcome = "failed"
)

// Result describes what happened to one ticket.
type Result struct {
	TicketID uuid.UUID
	Outcome  Outcome
	Slots    []tickets.SlotOption
	Err      error
}

// Skipped reports informational outcomes that are not errors.
func (r Result) Skipped() bool {
	switch r.Outcome {
	case OutcomeSkippedDisabled, OutcomeSkippedRaceLost, OutcomeSkippedIneligible, OutcomeNoEligible:
		return true
	}
	return false
}
