package animation

import (
	"math"
	"sync"
	"testing"
	"time"

	"repairdesk_backend/platform/geo"
)

type manualScheduler struct {
	mu      sync.Mutex
	now     time.Time
	next    FrameID
	pending map[FrameID]func()
}

func newManualScheduler() *manualScheduler {
	return &manualScheduler{now: time.Date(2024, 1, 3, 12, 0, 0, 0, time.UTC), pending: map[FrameID]func(){}}
}

func (m *manualScheduler) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *manualScheduler) RequestFrame(fn func()) FrameID {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	m.pending[m.next] = fn
	return m.next
}

func (m *manualScheduler) CancelFrame(id FrameID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.pending, id)
}

func (m *manualScheduler) pendingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// tick advances the clock and runs the frames that were pending.
func (m *manualScheduler) tick(d time.Duration) {
	m.mu.Lock()
	m.now = m.now.Add(d)
	fns := make([]func(), 0, len(m.pending))
	for id, fn := range m.pending {
		fns = append(fns, fn)
		delete(m.pending, id)
	}
	m.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

type recorder struct {
	mu        sync.Mutex
	updates   []Frame
	completes []Frame
}

func (r *recorder) config() Config {
	return Config{
		OnUpdate: func(f Frame) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.updates = append(r.updates, f)
		},
		OnComplete: func(f Frame) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.completes = append(r.completes, f)
		},
	}
}

const metersPerDegree = geo.EarthRadiusMeters * math.Pi / 180

// offset moves m meters from the equator origin along bearing (degrees).
func offset(from geo.Position, m, bearing float64) geo.Position {
	rad := bearing * math.Pi / 180
	return geo.Position{
		Lat: from.Lat + m*math.Cos(rad)/metersPerDegree,
		Lng: from.Lng + m*math.Sin(rad)/metersPerDegree,
	}
}

func angleDiff(a, b float64) float64 {
	d := math.Mod(math.Abs(a-b), 360)
	if d > 180 {
		d = 360 - d
	}
	return d
}

func TestFirstFixSnaps(t *testing.T) {
	sched := newManualScheduler()
	rec := &recorder{}
	a := New(sched, rec.config())

	a.AnimateTo(geo.Position{Lat: 40.4, Lng: -3.7}, AnimateOptions{})

	if len(rec.updates) != 1 || len(rec.completes) != 1 {
		t.Fatalf("updates=%d completes=%d", len(rec.updates), len(rec.completes))
	}
	if sched.pendingCount() != 0 {
		t.Fatal("snap must not schedule frames")
	}
	if !a.State().Initialized {
		t.Fatal("expected initialized state")
	}
}

func TestAnimationInterpolatesAndCompletes(t *testing.T) {
	sched := newManualScheduler()
	rec := &recorder{}
	a := New(sched, rec.config())

	start := geo.Position{}
	target := offset(start, 100, 0)
	a.AnimateTo(start, AnimateOptions{Immediate: true})
	a.AnimateTo(target, AnimateOptions{})

	if !a.State().Animating || sched.pendingCount() != 1 {
		t.Fatal("expected one pending frame")
	}

	sched.tick(1000 * time.Millisecond)
	mid := rec.updates[len(rec.updates)-1]
	if math.Abs(mid.Progress-0.5) > 1e-9 {
		t.Fatalf("progress = %v, want 0.5", mid.Progress)
	}
	if d := geo.Distance(mid.Position, offset(start, 50, 0)); d > 0.1 {
		t.Fatalf("midpoint off by %vm", d)
	}
	if len(rec.completes) != 1 {
		t.Fatal("completion must wait for the end of the animation")
	}

	sched.tick(1000 * time.Millisecond)
	if len(rec.completes) != 2 {
		t.Fatalf("completes = %d, want 2", len(rec.completes))
	}
	final := a.State()
	if final.Animating || final.Position != target {
		t.Fatalf("final state = %+v", final)
	}
	if sched.pendingCount() != 0 {
		t.Fatal("no frames after completion")
	}
}

func TestTeleportFiresOneSynchronousUpdate(t *testing.T) {
	sched := newManualScheduler()
	rec := &recorder{}
	a := New(sched, rec.config())

	start := geo.Position{}
	a.AnimateTo(start, AnimateOptions{})
	before := len(rec.updates)

	far := offset(start, 1000, 90)
	a.AnimateTo(far, AnimateOptions{})

	if got := len(rec.updates) - before; got != 1 {
		t.Fatalf("teleport produced %d updates, want 1", got)
	}
	if sched.pendingCount() != 0 {
		t.Fatal("teleport must not schedule frames")
	}
	last := rec.updates[len(rec.updates)-1]
	if last.Position != far || math.Abs(last.Bearing-90) > 0.01 {
		t.Fatalf("teleport frame = %+v", last)
	}
}

func TestStationaryUpdateIsSkipped(t *testing.T) {
	sched := newManualScheduler()
	rec := &recorder{}
	a := New(sched, rec.config())

	a.AnimateTo(geo.Position{Lat: 1, Lng: 1}, AnimateOptions{})
	a.AnimateTo(geo.Position{Lat: 1 + 1e-7, Lng: 1}, AnimateOptions{})

	if len(rec.updates) != 1 || sched.pendingCount() != 0 {
		t.Fatalf("updates=%d pending=%d", len(rec.updates), sched.pendingCount())
	}
}

func TestNewTargetSupersedesFlight(t *testing.T) {
	sched := newManualScheduler()
	rec := &recorder{}
	a := New(sched, rec.config())

	start := geo.Position{}
	a.AnimateTo(start, AnimateOptions{})
	a.AnimateTo(offset(start, 100, 0), AnimateOptions{})
	sched.tick(500 * time.Millisecond)

	second := offset(start, 100, 90)
	a.AnimateTo(second, AnimateOptions{})
	if sched.pendingCount() != 1 {
		t.Fatalf("pending = %d, want exactly one loop", sched.pendingCount())
	}
	if a.State().Target != second {
		t.Fatal("latest target must win")
	}

	for i := 0; i < 5; i++ {
		sched.tick(500 * time.Millisecond)
	}
	if got := a.State().Position; got != second {
		t.Fatalf("position = %v, want %v", got, second)
	}
}

func TestTargetAtCurrentPositionEndsFlight(t *testing.T) {
	sched := newManualScheduler()
	rec := &recorder{}
	a := New(sched, rec.config())

	start := geo.Position{}
	a.AnimateTo(start, AnimateOptions{})
	a.AnimateTo(offset(start, 100, 0), AnimateOptions{})
	sched.tick(500 * time.Millisecond)

	here := a.State().Position
	a.AnimateTo(here, AnimateOptions{})

	state := a.State()
	if state.Animating || state.Target != here {
		t.Fatalf("state = %+v, want stopped at %v", state, here)
	}
	if sched.pendingCount() != 0 {
		t.Fatalf("pending = %d, want 0", sched.pendingCount())
	}

	updates := len(rec.updates)
	sched.tick(2 * time.Second)
	if len(rec.updates) != updates {
		t.Error("no frames expected after the flight was dropped")
	}
	if got := a.State().Position; got != here {
		t.Fatalf("position = %v, want %v", got, here)
	}
}

func TestBearingRotatesThroughNorth(t *testing.T) {
	sched := newManualScheduler()
	rec := &recorder{}
	a := New(sched, rec.config())

	origin := geo.Position{}
	heading350 := offset(origin, 50, 350)
	a.AnimateTo(origin, AnimateOptions{})
	a.AnimateTo(heading350, AnimateOptions{Immediate: true})
	if b := a.State().Bearing; angleDiff(b, 350) > 0.1 {
		t.Fatalf("bearing = %v, want 350", b)
	}

	a.AnimateTo(offset(heading350, 100, 10), AnimateOptions{})
	sched.tick(1000 * time.Millisecond)

	mid := rec.updates[len(rec.updates)-1]
	if angleDiff(mid.Bearing, 0) > 0.2 {
		t.Fatalf("mid bearing = %v, want about 0", mid.Bearing)
	}
	for _, f := range rec.updates {
		if f.Bearing < 0 || f.Bearing >= 360 {
			t.Fatalf("bearing %v out of range", f.Bearing)
		}
	}
}

func TestStopCancelsPendingFrame(t *testing.T) {
	sched := newManualScheduler()
	rec := &recorder{}
	a := New(sched, rec.config())

	a.AnimateTo(geo.Position{}, AnimateOptions{})
	a.AnimateTo(offset(geo.Position{}, 100, 45), AnimateOptions{})
	a.Stop()

	if sched.pendingCount() != 0 || a.State().Animating {
		t.Fatal("stop must cancel the frame loop")
	}
	before := len(rec.updates)
	sched.tick(3 * time.Second)
	if len(rec.updates) != before {
		t.Fatal("no updates after stop")
	}
}

func TestDestroyReleasesCallbacks(t *testing.T) {
	sched := newManualScheduler()
	rec := &recorder{}
	a := New(sched, rec.config())

	a.AnimateTo(geo.Position{}, AnimateOptions{})
	a.AnimateTo(offset(geo.Position{}, 100, 45), AnimateOptions{})
	a.Destroy()

	before := len(rec.updates)
	a.AnimateTo(offset(geo.Position{}, 2000, 45), AnimateOptions{})
	sched.tick(3 * time.Second)

	if len(rec.updates) != before || sched.pendingCount() != 0 {
		t.Fatal("destroyed animator must stay silent")
	}
}

func TestEasingEndpoints(t *testing.T) {
	for name, fn := range map[string]EasingFunc{"linear": Linear, "outQuad": EaseOutQuad, "inOutCubic": EaseInOutCubic} {
		if fn(0) != 0 || fn(1) != 1 {
			t.Errorf("%s: endpoints %v %v", name, fn(0), fn(1))
		}
	}
	if EaseInOutCubic(0.5) != 0.5 {
		t.Errorf("cubic midpoint = %v", EaseInOutCubic(0.5))
	}
	if EaseInOutCubic(0.25) >= 0.25 || EaseInOutCubic(0.75) <= 0.75 {
		t.Error("cubic should ease in and out")
	}
}

func TestTimerFrameScheduler(t *testing.T) {
	s := NewTimerFrameScheduler(time.Millisecond)

	fired := make(chan struct{}, 1)
	s.RequestFrame(func() { fired <- struct{}{} })
	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("frame did not fire")
	}

	cancelled := make(chan struct{}, 1)
	id := s.RequestFrame(func() { cancelled <- struct{}{} })
	s.CancelFrame(id)
	select {
	case <-cancelled:
		t.Fatal("cancelled frame fired")
	case <-time.After(20 * time.Millisecond):
	}
	if s.Pending() != 0 {
		t.Fatalf("pending = %d", s.Pending())
	}
}
