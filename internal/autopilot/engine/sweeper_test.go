package engine

import (
	"context"
	"testing"
	"time"

	"repairdesk_backend/internal/events"
	"repairdesk_backend/internal/tickets"
)

func newSweeper(store *tickets.MemoryStore, bus *recordingBus, now time.Time) *Sweeper {
	return NewSweeper(store, bus, nil, Options{Now: func() time.Time { return now }})
}

func withProposal(t tickets.Ticket, createdAt time.Time) tickets.Ticket {
	p := tickets.NewProposal([]tickets.SlotOption{{Date: "2024-01-04", StartTime: "09:00", EndTime: "11:00"}}, createdAt, 30)
	t.Proposal = &p
	return t
}

func TestSweepExpiredTransitionsOnlyPastDeadline(t *testing.T) {
	store := tickets.NewMemoryStore(time.UTC)
	bus := &recordingBus{}

	old := withProposal(requested(fixedNow.Add(-2*time.Hour), tickets.OriginWhatsApp), fixedNow.Add(-45*time.Minute))
	fresh := withProposal(requested(fixedNow.Add(-time.Hour), tickets.OriginApp), fixedNow.Add(-10*time.Minute))
	eligible := requested(fixedNow, tickets.OriginApp)
	for _, tk := range []tickets.Ticket{old, fresh, eligible} {
		store.Put(tk)
	}

	result, err := newSweeper(store, bus, fixedNow).SweepExpired(context.Background(), 30)
	if err != nil {
		t.Fatalf("SweepExpired: %v", err)
	}
	if result.Checked != 2 || result.Expired != 1 || result.Skipped != 1 {
		t.Fatalf("result = %+v", result)
	}

	got, _ := store.GetByID(context.Background(), old.ID)
	if got.Status != tickets.StatusTimeout || got.Proposal.Status != tickets.ProposalExpired {
		t.Fatalf("old ticket not expired: %+v", got)
	}
	if got.Proposal.ExpiredAt == nil || !got.Proposal.ExpiredAt.Equal(fixedNow) {
		t.Errorf("expiredAt = %v", got.Proposal.ExpiredAt)
	}

	kept, _ := store.GetByID(context.Background(), fresh.ID)
	if kept.Status != tickets.StatusRequested || kept.Proposal.Status != tickets.ProposalWaitingSelection {
		t.Fatalf("fresh ticket changed: %+v", kept)
	}
	if bus.count(events.ProposalExpired{}.EventName()) != 1 {
		t.Error("expected one ProposalExpired event")
	}
}

func TestSweepExpiredIsIdempotent(t *testing.T) {
	store := tickets.NewMemoryStore(time.UTC)
	bus := &recordingBus{}
	old := withProposal(requested(fixedNow.Add(-2*time.Hour), tickets.OriginWhatsApp), fixedNow.Add(-time.Hour))
	store.Put(old)

	sweeper := newSweeper(store, bus, fixedNow)
	if _, err := sweeper.SweepExpired(context.Background(), 30); err != nil {
		t.Fatalf("first sweep: %v", err)
	}
	first, _ := store.GetByID(context.Background(), old.ID)

	second, err := sweeper.SweepExpired(context.Background(), 30)
	if err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	if second.Expired != 0 || second.Checked != 0 {
		t.Fatalf("second sweep result = %+v", second)
	}

	after, _ := store.GetByID(context.Background(), old.ID)
	if after.Status != first.Status || !after.Proposal.ExpiredAt.Equal(*first.Proposal.ExpiredAt) {
		t.Fatal("second sweep changed state")
	}
	if bus.count(events.ProposalExpired{}.EventName()) != 1 {
		t.Fatal("expected exactly one ProposalExpired event")
	}
}

func TestSweepExpiredReleasesStaleLocks(t *testing.T) {
	store := tickets.NewMemoryStore(time.UTC)
	stuck := requested(fixedNow.Add(-time.Hour), tickets.OriginApp)
	lockedAt := fixedNow.Add(-6 * time.Minute)
	stuck.ProcessingLock = &lockedAt
	store.Put(stuck)

	result, err := newSweeper(store, &recordingBus{}, fixedNow).SweepExpired(context.Background(), 30)
	if err != nil {
		t.Fatalf("SweepExpired: %v", err)
	}
	if result.StaleLocksReleased != 1 {
		t.Fatalf("stale locks released = %d", result.StaleLocksReleased)
	}
	got, _ := store.GetByID(context.Background(), stuck.ID)
	if !got.IsEligible() {
		t.Fatal("ticket should be eligible again")
	}
}

func TestSweepExpiredRejectsNonPositiveTimeout(t *testing.T) {
	if _, err := newSweeper(tickets.NewMemoryStore(time.UTC), nil, fixedNow).SweepExpired(context.Background(), 0); err == nil {
		t.Fatal("expected error")
	}
}
