package sse

import (
	"testing"

	"github.com/google/uuid"
)

func TestPublishFiltersByTechnician(t *testing.T) {
	s := New(nil)
	techA, techB := uuid.New(), uuid.New()

	all := &client{events: make(chan Event, 4)}
	onlyA := &client{technician: &techA, events: make(chan Event, 4)}
	s.addClient(all)
	s.addClient(onlyA)

	s.Publish(Event{Type: EventLocationFix, TechnicianID: &techA})
	s.Publish(Event{Type: EventLocationFix, TechnicianID: &techB})
	s.Publish(Event{Type: EventProposalCreated})

	if got := len(all.events); got != 3 {
		t.Errorf("unfiltered client got %d events, want 3", got)
	}
	if got := len(onlyA.events); got != 2 {
		t.Errorf("filtered client got %d events, want 2", got)
	}
}

func TestPublishDropsWhenBufferFull(t *testing.T) {
	s := New(nil)
	c := &client{events: make(chan Event, 1)}
	s.addClient(c)

	s.Publish(Event{Type: EventLocationFix})
	s.Publish(Event{Type: EventLocationFix})

	if got := len(c.events); got != 1 {
		t.Fatalf("buffered = %d, want 1", got)
	}
}

func TestCloseThenRemoveDoesNotPanic(t *testing.T) {
	s := New(nil)
	c := &client{events: make(chan Event, 1)}
	s.addClient(c)

	s.Close()
	s.removeClient(c)
	s.Publish(Event{Type: EventLocationFix})

	if s.ClientCount() != 0 {
		t.Fatal("expected no clients after close")
	}
}
