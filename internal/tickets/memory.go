package tickets

import (
	"context"
	"sort"
	"sync"
	"time"

	"repairdesk_backend/platform/apperr"

	"github.com/google/uuid"
)

// MemoryStore is an in-process request store with the same conditional
// update semantics as Repository. Used by tests and local tooling.
type MemoryStore struct {
	mu      sync.Mutex
	tickets map[uuid.UUID]Ticket
	loc     *time.Location
}

// NewMemoryStore creates an empty store ordering by calendar day in loc.
func NewMemoryStore(loc *time.Location) *MemoryStore {
	if loc == nil {
		loc = time.UTC
	}
	return &MemoryStore{tickets: make(map[uuid.UUID]Ticket), loc: loc}
}

// Put inserts or replaces a request.
func (s *MemoryStore) Put(t Ticket) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tickets[t.ID] = t.clone()
}

// ListEligible mirrors Repository.ListEligible.
func (s *MemoryStore) ListEligible(_ context.Context, limit int) ([]Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit < 1 {
		limit = defaultEligibleLimit
	}
	items := make([]Ticket, 0)
	for _, t := range s.tickets {
		if t.IsEligible() {
			items = append(items, t.clone())
		}
	}
	SortByPriority(items, s.loc)
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

// GetByID mirrors Repository.GetByID.
func (s *MemoryStore) GetByID(_ context.Context, id uuid.UUID) (Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tickets[id]
	if !ok {
		return Ticket{}, apperr.NotFound("ticket not found")
	}
	return t.clone(), nil
}

// AcquireLock mirrors Repository.AcquireLock.
func (s *MemoryStore) AcquireLock(_ context.Context, id uuid.UUID, now time.Time) (Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tickets[id]
	if !ok || !t.IsEligible() {
		return Ticket{}, ErrLockNotAcquired
	}
	lock := now
	t.ProcessingLock = &lock
	t.UpdatedAt = now
	s.tickets[id] = t
	return t.clone(), nil
}

// ReleaseLock mirrors Repository.ReleaseLock.
func (s *MemoryStore) ReleaseLock(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tickets[id]
	if !ok || t.ProcessingLock == nil {
		return nil
	}
	t.ProcessingLock = nil
	s.tickets[id] = t
	return nil
}

// ReleaseStaleLocks mirrors Repository.ReleaseStaleLocks.
func (s *MemoryStore) ReleaseStaleLocks(_ context.Context, olderThan time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	released := 0
	for id, t := range s.tickets {
		if t.ProcessingLock != nil && t.ProcessingLock.Before(olderThan) && t.Proposal == nil {
			t.ProcessingLock = nil
			s.tickets[id] = t
			released++
		}
	}
	return released, nil
}

// AttachProposal mirrors Repository.AttachProposal.
func (s *MemoryStore) AttachProposal(_ context.Context, id uuid.UUID, proposal Proposal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tickets[id]
	if !ok {
		return apperr.NotFound("ticket not found")
	}
	if !t.acceptsProposal() {
		return ErrNotOpen
	}
	p := proposal.clone()
	t.Proposal = &p
	t.ProcessingLock = nil
	s.tickets[id] = t
	return nil
}

// ListWaitingSelection mirrors Repository.ListWaitingSelection.
func (s *MemoryStore) ListWaitingSelection(_ context.Context) ([]Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := make([]Ticket, 0)
	for _, t := range s.tickets {
		if t.IsWaitingSelection() {
			items = append(items, t.clone())
		}
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	return items, nil
}

// ExpireProposal mirrors Repository.ExpireProposal.
func (s *MemoryStore) ExpireProposal(_ context.Context, id uuid.UUID, expiredAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tickets[id]
	if !ok || !t.IsWaitingSelection() {
		return false, nil
	}
	p := t.Proposal.clone()
	at := expiredAt
	p.Status = ProposalExpired
	p.ExpiredAt = &at
	p.Reason = ExpiryReasonTimeout
	t.Proposal = &p
	t.Status = StatusTimeout
	s.tickets[id] = t
	return true, nil
}
