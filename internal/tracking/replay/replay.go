// Package replay runs a recorded GPS track through the filter and the
// animator on a virtual clock, for tuning thresholds offline.
package replay

import (
	"errors"
	"fmt"
	"io"
	"time"

	"repairdesk_backend/internal/tracking/animation"
	"repairdesk_backend/internal/tracking/gps"
	"repairdesk_backend/platform/geo"

	"gopkg.in/yaml.v3"
)

const defaultFixSpacing = time.Second

// Fix is one recorded location.
type Fix struct {
	Lat float64   `yaml:"lat"`
	Lng float64   `yaml:"lng"`
	At  time.Time `yaml:"at"`
}

// AnimationConfig mirrors animation.Config in a file-friendly shape.
type AnimationConfig struct {
	DurationMs     int     `yaml:"durationMs"`
	TeleportMeters float64 `yaml:"teleportMeters"`
	Easing         string  `yaml:"easing"`
}

// Track is a replay file.
type Track struct {
	Name      string           `yaml:"name"`
	Filter    gps.FilterConfig `yaml:"filter"`
	Animation AnimationConfig  `yaml:"animation"`
	Fixes     []Fix            `yaml:"fixes"`
}

// Load decodes a YAML track. Fixes without a timestamp are spaced one
// second after the previous fix.
func Load(r io.Reader) (Track, error) {
	var t Track
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&t); err != nil {
		return Track{}, fmt.Errorf("decode track: %w", err)
	}
	if len(t.Fixes) == 0 {
		return Track{}, errors.New("track has no fixes")
	}

	base := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range t.Fixes {
		if t.Fixes[i].At.IsZero() {
			if i == 0 {
				t.Fixes[i].At = base
			} else {
				t.Fixes[i].At = t.Fixes[i-1].At.Add(defaultFixSpacing)
			}
		}
		if i > 0 && t.Fixes[i].At.Before(t.Fixes[i-1].At) {
			return Track{}, fmt.Errorf("fix %d is earlier than fix %d", i, i-1)
		}
	}
	return t, nil
}

// Step is the filter outcome of one fix.
type Step struct {
	Index    int           `json:"index"`
	At       time.Time     `json:"at"`
	Decision gps.Decision  `json:"decision"`
	Emitted  *geo.Position `json:"emitted,omitempty"`
}

// Report summarizes a replay.
type Report struct {
	Steps    []Step          `json:"steps"`
	Accepted int             `json:"accepted"`
	Dropped  int             `json:"dropped"`
	Frames   int             `json:"frames"`
	Final    animation.State `json:"final"`
}

// Options controls a replay run.
type Options struct {
	Animate       bool
	FrameInterval time.Duration
	OnFrame       func(at time.Time, f animation.Frame)
}

// Run replays track.
func Run(track Track, opts Options) Report {
	if opts.FrameInterval <= 0 {
		opts.FrameInterval = animation.DefaultFrameInterval
	}

	filter := gps.NewFilter(track.Filter)
	clock := newVirtualClock(track.Fixes[0].At, opts.FrameInterval)

	var report Report
	var animator *animation.Animator
	if opts.Animate {
		cfg := animation.Config{
			Duration:       time.Duration(track.Animation.DurationMs) * time.Millisecond,
			TeleportMeters: track.Animation.TeleportMeters,
			Easing:         animation.EasingByName(track.Animation.Easing),
			OnUpdate: func(f animation.Frame) {
				report.Frames++
				if opts.OnFrame != nil {
					opts.OnFrame(clock.Now(), f)
				}
			},
		}
		animator = animation.New(clock, cfg)
	}

	for i, fix := range track.Fixes {
		clock.advanceTo(fix.At)

		out, decision := filter.Decide(geo.Position{Lat: fix.Lat, Lng: fix.Lng})
		step := Step{Index: i, At: fix.At, Decision: decision}
		switch decision {
		case gps.DecisionFirst, gps.DecisionJump, gps.DecisionMove:
			emitted := out
			step.Emitted = &emitted
			report.Accepted++
			if animator != nil {
				animator.AnimateTo(out, animation.AnimateOptions{})
			}
		default:
			report.Dropped++
		}
		report.Steps = append(report.Steps, step)
	}

	if animator != nil {
		duration := time.Duration(track.Animation.DurationMs) * time.Millisecond
		if duration <= 0 {
			duration = animation.DefaultDuration
		}
		clock.advanceTo(clock.Now().Add(duration + opts.FrameInterval))
		report.Final = animator.State()
		animator.Destroy()
	}
	return report
}

// virtualClock is a FrameScheduler driven by the replay loop. Not safe for
// concurrent use.
type virtualClock struct {
	now      time.Time
	interval time.Duration
	next     animation.FrameID
	pending  map[animation.FrameID]func()
}

func newVirtualClock(start time.Time, interval time.Duration) *virtualClock {
	return &virtualClock{now: start, interval: interval, pending: make(map[animation.FrameID]func())}
}

func (c *virtualClock) Now() time.Time { return c.now }

func (c *virtualClock) RequestFrame(fn func()) animation.FrameID {
	c.next++
	c.pending[c.next] = fn
	return c.next
}

func (c *virtualClock) CancelFrame(id animation.FrameID) {
	delete(c.pending, id)
}

// advanceTo ticks frame by frame until t, running due frames on each tick.
func (c *virtualClock) advanceTo(t time.Time) {
	for len(c.pending) > 0 {
		due := c.now.Add(c.interval)
		if due.After(t) {
			break
		}
		c.now = due
		fns := make([]func(), 0, len(c.pending))
		for id, fn := range c.pending {
			fns = append(fns, fn)
			delete(c.pending, id)
		}
		for _, fn := range fns {
			fn()
		}
	}
	if t.After(c.now) {
		c.now = t
	}
}
