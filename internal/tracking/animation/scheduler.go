package animation

import (
	"sync"
	"time"
)

// DefaultFrameInterval approximates a 60Hz display refresh.
const DefaultFrameInterval = 16 * time.Millisecond

// FrameID identifies a scheduled frame callback.
type FrameID uint64

// FrameScheduler is the per-frame redraw callback source.
type FrameScheduler interface {
	Now() time.Time
	RequestFrame(fn func()) FrameID
	CancelFrame(id FrameID)
}

// TimerFrameScheduler fires frames on a fixed interval using timers.
type TimerFrameScheduler struct {
	interval time.Duration
	mu       sync.Mutex
	next     FrameID
	timers   map[FrameID]*time.Timer
}

// NewTimerFrameScheduler creates a scheduler. A non-positive interval uses
// DefaultFrameInterval.
func NewTimerFrameScheduler(interval time.Duration) *TimerFrameScheduler {
	if interval <= 0 {
		interval = DefaultFrameInterval
	}
	return &TimerFrameScheduler{interval: interval, timers: make(map[FrameID]*time.Timer)}
}

// Now returns the wall clock.
func (s *TimerFrameScheduler) Now() time.Time {
	return time.Now()
}

// RequestFrame runs fn once after one interval.
func (s *TimerFrameScheduler) RequestFrame(fn func()) FrameID {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.next++
	id := s.next
	s.timers[id] = time.AfterFunc(s.interval, func() {
		s.mu.Lock()
		_, pending := s.timers[id]
		delete(s.timers, id)
		s.mu.Unlock()
		if pending {
			fn()
		}
	})
	return id
}

// CancelFrame drops a pending frame. Unknown ids are ignored.
func (s *TimerFrameScheduler) CancelFrame(id FrameID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.timers[id]; ok {
		t.Stop()
		delete(s.timers, id)
	}
}

// Pending returns the number of scheduled frames.
func (s *TimerFrameScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}
