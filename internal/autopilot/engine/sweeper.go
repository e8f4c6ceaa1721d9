package engine

import (
	"context"
	"time"

	"repairdesk_backend/internal/events"
	"repairdesk_backend/platform/apperr"
	"repairdesk_backend/platform/logger"
)

// SweepResult counts what one sweep did.
type SweepResult struct {
	Checked            int `json:"checked"`
	Expired            int `json:"expired"`
	Skipped            int `json:"skipped"`
	StaleLocksReleased int `json:"staleLocksReleased"`
}

// Sweeper expires proposals nobody answered in time.
type Sweeper struct {
	store    TicketStore
	bus      events.Bus
	log      *logger.Logger
	staleAge time.Duration
	now      func() time.Time
}

// NewSweeper creates a Sweeper. bus may be nil.
func NewSweeper(store TicketStore, bus events.Bus, log *logger.Logger, opts Options) *Sweeper {
	if opts.StaleLockMaxAge <= 0 {
		opts.StaleLockMaxAge = defaultStaleLockMaxAge
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Sweeper{store: store, bus: bus, log: log, staleAge: opts.StaleLockMaxAge, now: opts.Now}
}

// SweepExpired moves every waiting proposal older than timeoutMinutes to
// expired and its request to timeout. Each transition is one conditional
// update, so running the sweep again is a no-op.
func (s *Sweeper) SweepExpired(ctx context.Context, timeoutMinutes int) (SweepResult, error) {
	var result SweepResult
	if timeoutMinutes < 1 {
		return result, apperr.Validation("timeout minutes must be positive")
	}

	now := s.now()

	released, err := s.store.ReleaseStaleLocks(ctx, now.Add(-s.staleAge))
	if err != nil {
		s.log.Error("failed to release stale locks", "error", err)
	} else {
		result.StaleLocksReleased = released
	}

	waiting, err := s.store.ListWaitingSelection(ctx)
	if err != nil {
		return result, apperr.Unavailable("failed to list waiting proposals", err)
	}

	for _, t := range waiting {
		result.Checked++
		if t.Proposal == nil || !t.Proposal.ExpiredAfter(timeoutMinutes, now) {
			result.Skipped++
			continue
		}

		expired, err := s.store.ExpireProposal(ctx, t.ID, now)
		if err != nil {
			s.log.WithTicketID(t.ID.String()).Error("failed to expire proposal", "error", err)
			result.Skipped++
			continue
		}
		if !expired {
			result.Skipped++
			continue
		}

		result.Expired++
		if s.bus != nil {
			s.bus.Publish(ctx, events.ProposalExpired{
				BaseEvent:     events.NewBaseEventAt(now),
				TicketID:      t.ID,
				OriginChannel: string(t.OriginChannel),
				ContactName:   t.ContactName,
				ContactPhone:  t.ContactPhone,
				ContactEmail:  t.ContactEmail,
				ExpiredAt:     now,
			})
		}
	}

	s.log.Info("timeout sweep finished",
		"checked", result.Checked,
		"expired", result.Expired,
		"skipped", result.Skipped,
		"stale_locks_released", result.StaleLocksReleased,
	)
	return result, nil
}
