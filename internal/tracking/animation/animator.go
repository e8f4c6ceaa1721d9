// Package animation turns discrete position updates into continuous eased
// motion with a rotating heading, for display only.
package animation

import (
	"math"
	"sync"
	"time"

	"repairdesk_backend/platform/geo"
)

const (
	DefaultDuration          = 2000 * time.Millisecond
	DefaultTeleportMeters    = 500.0
	DefaultLinearBelowMeters = 10.0
	stopEpsilonDegrees       = 1e-6
)

// Frame is one rendered state.
type Frame struct {
	Position geo.Position `json:"position"`
	Bearing  float64      `json:"bearing"`
	Progress float64      `json:"progress"`
}

// State is a snapshot of the animator.
type State struct {
	Position    geo.Position `json:"position"`
	Bearing     float64      `json:"bearing"`
	Target      geo.Position `json:"target"`
	Animating   bool         `json:"animating"`
	Initialized bool         `json:"initialized"`
}

// AnimateOptions modifies one AnimateTo call.
type AnimateOptions struct {
	// Immediate snaps to the position without animating.
	Immediate bool
}

// Config tunes an Animator. Zero values take the defaults.
type Config struct {
	Duration          time.Duration
	TeleportMeters    float64
	LinearBelowMeters float64
	Easing            EasingFunc
	OnUpdate          func(Frame)
	OnComplete        func(Frame)
}

type flight struct {
	from        geo.Position
	to          geo.Position
	fromBearing float64
	toBearing   float64
	start       time.Time
	linear      bool
}

// Animator interpolates one marker. A new AnimateTo always supersedes the
// animation in flight; callbacks run outside the internal lock.
type Animator struct {
	mu    sync.Mutex
	sched FrameScheduler
	cfg   Config

	position    geo.Position
	bearing     float64
	initialized bool
	destroyed   bool

	current    *flight
	frame      FrameID
	hasFrame   bool
	generation uint64
}

// New creates an animator driven by sched.
func New(sched FrameScheduler, cfg Config) *Animator {
	if cfg.Duration <= 0 {
		cfg.Duration = DefaultDuration
	}
	if cfg.TeleportMeters <= 0 {
		cfg.TeleportMeters = DefaultTeleportMeters
	}
	if cfg.LinearBelowMeters <= 0 {
		cfg.LinearBelowMeters = DefaultLinearBelowMeters
	}
	if cfg.Easing == nil {
		cfg.Easing = EaseInOutCubic
	}
	return &Animator{sched: sched, cfg: cfg}
}

// AnimateTo moves the marker to target.
func (a *Animator) AnimateTo(target geo.Position, opts AnimateOptions) {
	a.mu.Lock()
	if a.destroyed {
		a.mu.Unlock()
		return
	}

	if !a.initialized || opts.Immediate {
		bearing := a.bearing
		if a.initialized && !samePosition(a.position, target) {
			bearing = geo.Bearing(a.position, target)
		}
		snap := a.snapLocked(target, bearing)
		a.mu.Unlock()
		a.emitSnap(snap)
		return
	}

	if samePosition(a.position, target) {
		// Already there: a flight toward an older target is dropped.
		a.cancelLocked()
		a.mu.Unlock()
		return
	}

	distance := geo.Distance(a.position, target)
	bearing := geo.Bearing(a.position, target)
	if distance > a.cfg.TeleportMeters {
		snap := a.snapLocked(target, bearing)
		a.mu.Unlock()
		a.emitSnap(snap)
		return
	}

	a.cancelLocked()
	a.current = &flight{
		from:        a.position,
		to:          target,
		fromBearing: a.bearing,
		toBearing:   bearing,
		start:       a.sched.Now(),
		linear:      distance < a.cfg.LinearBelowMeters,
	}
	a.scheduleLocked()
	a.mu.Unlock()
}

// Stop cancels the animation in flight and freezes the current position.
func (a *Animator) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cancelLocked()
}

// State returns a snapshot.
func (a *Animator) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()

	s := State{
		Position:    a.position,
		Bearing:     a.bearing,
		Target:      a.position,
		Animating:   a.current != nil,
		Initialized: a.initialized,
	}
	if a.current != nil {
		s.Target = a.current.to
	}
	return s
}

// Destroy cancels pending frames and drops the callbacks. Later calls are no-ops.
func (a *Animator) Destroy() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.cancelLocked()
	a.destroyed = true
	a.cfg.OnUpdate = nil
	a.cfg.OnComplete = nil
}

func (a *Animator) snapLocked(target geo.Position, bearing float64) Frame {
	a.cancelLocked()
	a.position = target
	a.bearing = geo.NormalizeBearing(bearing)
	a.initialized = true
	return Frame{Position: a.position, Bearing: a.bearing, Progress: 1}
}

func (a *Animator) emitSnap(f Frame) {
	a.mu.Lock()
	onUpdate, onComplete := a.cfg.OnUpdate, a.cfg.OnComplete
	a.mu.Unlock()

	if onUpdate != nil {
		onUpdate(f)
	}
	if onComplete != nil {
		onComplete(f)
	}
}

// cancelLocked drops the flight and its pending frame. The generation bump
// turns frames that already fired into no-ops.
func (a *Animator) cancelLocked() {
	if a.hasFrame {
		a.sched.CancelFrame(a.frame)
		a.hasFrame = false
	}
	a.current = nil
	a.generation++
}

func (a *Animator) scheduleLocked() {
	gen := a.generation
	a.frame = a.sched.RequestFrame(func() { a.step(gen) })
	a.hasFrame = true
}

func (a *Animator) step(gen uint64) {
	a.mu.Lock()
	if gen != a.generation || a.current == nil || a.destroyed {
		a.mu.Unlock()
		return
	}
	a.hasFrame = false

	fl := a.current
	elapsed := a.sched.Now().Sub(fl.start)
	raw := math.Min(float64(elapsed)/float64(a.cfg.Duration), 1)
	if raw < 0 {
		raw = 0
	}
	eased := a.cfg.Easing(raw)

	done := raw >= 1
	if done {
		a.position = fl.to
		a.bearing = geo.NormalizeBearing(fl.toBearing)
		a.current = nil
	} else {
		if fl.linear {
			a.position = geo.Lerp(fl.from, fl.to, eased)
		} else {
			a.position = geo.Slerp(fl.from, fl.to, eased)
		}
		a.bearing = geo.InterpolateBearing(fl.fromBearing, fl.toBearing, eased)
		a.scheduleLocked()
	}

	frame := Frame{Position: a.position, Bearing: a.bearing, Progress: raw}
	onUpdate, onComplete := a.cfg.OnUpdate, a.cfg.OnComplete
	a.mu.Unlock()

	if onUpdate != nil {
		onUpdate(frame)
	}
	if done && onComplete != nil {
		onComplete(frame)
	}
}

func samePosition(a, b geo.Position) bool {
	return math.Abs(a.Lat-b.Lat) < stopEpsilonDegrees && math.Abs(a.Lng-b.Lng) < stopEpsilonDegrees
}
