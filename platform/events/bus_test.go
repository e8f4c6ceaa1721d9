package events

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"repairdesk_backend/platform/logger"
)

type pingEvent struct {
	BaseEvent
}

func (pingEvent) EventName() string { return "test.ping" }

func TestPublishSyncRunsAllHandlersAndReturnsFirstError(t *testing.T) {
	bus := NewInMemoryBus(logger.Discard())

	var calls int32
	boom := errors.New("boom")
	bus.Subscribe("test.ping", HandlerFunc(func(context.Context, Event) error {
		atomic.AddInt32(&calls, 1)
		return boom
	}))
	bus.Subscribe("test.ping", HandlerFunc(func(context.Context, Event) error {
		atomic.AddInt32(&calls, 1)
		panic("handler exploded")
	}))

	err := bus.PublishSync(context.Background(), pingEvent{BaseEvent: NewBaseEvent()})
	if !errors.Is(err, boom) {
		t.Fatalf("PublishSync error = %v, want boom", err)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Fatalf("handlers called %d times, want 2", got)
	}
}

func TestPublishIsAsynchronous(t *testing.T) {
	bus := NewInMemoryBus(logger.Discard())

	var calls int32
	bus.Subscribe("test.ping", HandlerFunc(func(context.Context, Event) error {
		atomic.AddInt32(&calls, 1)
		return nil
	}))

	bus.Publish(context.Background(), pingEvent{BaseEvent: NewBaseEvent()})
	bus.Wait()

	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("handler called %d times, want 1", got)
	}
}

func TestNewBaseEventAtUsesGivenClock(t *testing.T) {
	madrid := time.FixedZone("CET", 3600)
	at := time.Date(2024, 1, 3, 13, 0, 0, 0, madrid)

	got := pingEvent{BaseEvent: NewBaseEventAt(at)}.OccurredAt()
	if !got.Equal(at) || got.Location() != time.UTC {
		t.Fatalf("OccurredAt = %v, want %v in UTC", got, at)
	}
}
