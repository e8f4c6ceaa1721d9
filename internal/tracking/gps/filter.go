// Package gps cleans a raw stream of location fixes: it drops jitter,
// rejects implausible spikes and smooths normal movement.
package gps

import (
	"math"

	"repairdesk_backend/platform/geo"
)

const (
	DefaultMinMovementMeters = 5.0
	DefaultMaxJumpMeters     = 500.0
	DefaultSmoothingFactor   = 0.3
	DefaultWindowSize        = 3
	DefaultNoiseMultiplier   = 2.0
)

// FilterConfig tunes a Filter. Zero values take the defaults.
type FilterConfig struct {
	MinMovementMeters float64 `yaml:"minMovementMeters" json:"minMovementMeters"`
	MaxJumpMeters     float64 `yaml:"maxJumpMeters" json:"maxJumpMeters"`
	SmoothingFactor   float64 `yaml:"smoothingFactor" json:"smoothingFactor"`
	WindowSize        int     `yaml:"windowSize" json:"windowSize"`
	NoiseMultiplier   float64 `yaml:"noiseMultiplier" json:"noiseMultiplier"`
}

// DefaultFilterConfig returns the stock thresholds.
func DefaultFilterConfig() FilterConfig {
	return FilterConfig{
		MinMovementMeters: DefaultMinMovementMeters,
		MaxJumpMeters:     DefaultMaxJumpMeters,
		SmoothingFactor:   DefaultSmoothingFactor,
		WindowSize:        DefaultWindowSize,
		NoiseMultiplier:   DefaultNoiseMultiplier,
	}
}

func (c FilterConfig) withDefaults() FilterConfig {
	def := DefaultFilterConfig()
	if c.MinMovementMeters <= 0 {
		c.MinMovementMeters = def.MinMovementMeters
	}
	if c.MaxJumpMeters <= 0 {
		c.MaxJumpMeters = def.MaxJumpMeters
	}
	if c.SmoothingFactor <= 0 || c.SmoothingFactor > 1 {
		c.SmoothingFactor = def.SmoothingFactor
	}
	if c.WindowSize <= 0 {
		c.WindowSize = def.WindowSize
	}
	if c.NoiseMultiplier <= 0 {
		c.NoiseMultiplier = def.NoiseMultiplier
	}
	return c
}

// Decision says which branch handled a fix.
type Decision string

const (
	DecisionFirst  Decision = "first"
	DecisionJitter Decision = "jitter"
	DecisionNoise  Decision = "noise"
	DecisionJump   Decision = "jump"
	DecisionMove   Decision = "move"
	DecisionBad    Decision = "invalid"
)

// Filter holds the state of one location stream. Not safe for concurrent use.
type Filter struct {
	cfg          FilterConfig
	initialized  bool
	lastAccepted geo.Position
	lastEmitted  geo.Position
	history      []geo.Position
}

// NewFilter creates a filter.
func NewFilter(cfg FilterConfig) *Filter {
	return &Filter{cfg: cfg.withDefaults()}
}

// Config returns the effective thresholds.
func (f *Filter) Config() FilterConfig {
	return f.cfg
}

// Apply feeds one fix and returns the position to emit, or false when the
// fix is dropped.
func (f *Filter) Apply(p geo.Position) (geo.Position, bool) {
	out, decision := f.Decide(p)
	switch decision {
	case DecisionFirst, DecisionJump, DecisionMove:
		return out, true
	default:
		return geo.Position{}, false
	}
}

// Decide is Apply with the branch that handled the fix.
func (f *Filter) Decide(p geo.Position) (geo.Position, Decision) {
	if !valid(p) {
		return geo.Position{}, DecisionBad
	}

	if !f.initialized {
		f.reset(p)
		return p, DecisionFirst
	}

	distance := geo.Distance(f.lastAccepted, p)
	if distance < f.cfg.MinMovementMeters {
		return geo.Position{}, DecisionJitter
	}

	if distance > f.cfg.MaxJumpMeters {
		avg := geo.Centroid(f.window())
		if geo.Distance(avg, p) > f.cfg.NoiseMultiplier*f.cfg.MaxJumpMeters {
			return geo.Position{}, DecisionNoise
		}
		f.reset(p)
		return p, DecisionJump
	}

	alpha := f.cfg.SmoothingFactor
	smoothed := geo.Position{
		Lat: f.lastEmitted.Lat + alpha*(p.Lat-f.lastEmitted.Lat),
		Lng: f.lastEmitted.Lng + alpha*(p.Lng-f.lastEmitted.Lng),
	}

	f.history = append(f.history, p)
	if limit := 2 * f.cfg.WindowSize; len(f.history) > limit {
		f.history = append([]geo.Position(nil), f.history[len(f.history)-limit:]...)
	}
	f.lastAccepted = p
	f.lastEmitted = smoothed
	return smoothed, DecisionMove
}

// Reset forgets all state; the next fix is treated as the first.
func (f *Filter) Reset() {
	f.initialized = false
	f.lastAccepted = geo.Position{}
	f.lastEmitted = geo.Position{}
	f.history = nil
}

// LastEmitted returns the last position handed out.
func (f *Filter) LastEmitted() (geo.Position, bool) {
	return f.lastEmitted, f.initialized
}

// HistoryLen returns how many accepted fixes are remembered.
func (f *Filter) HistoryLen() int {
	return len(f.history)
}

func (f *Filter) reset(p geo.Position) {
	f.initialized = true
	f.lastAccepted = p
	f.lastEmitted = p
	f.history = []geo.Position{p}
}

func (f *Filter) window() []geo.Position {
	if len(f.history) <= f.cfg.WindowSize {
		return f.history
	}
	return f.history[len(f.history)-f.cfg.WindowSize:]
}

func valid(p geo.Position) bool {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lng) || math.IsInf(p.Lat, 0) || math.IsInf(p.Lng, 0) {
		return false
	}
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}
