// Package settings reads the business configuration store: the operating
// mode switch and the slot selection policy.
package settings

import "strings"

// Mode is the operating mode of the business.
type Mode string

const (
	// ModePro enables automatic slot proposals.
	ModePro Mode = "pro"
	// ModeManual leaves scheduling to the back office.
	ModeManual Mode = "manual"
)

// Strategy names a slot selection strategy.
type Strategy string

const (
	StrategySpeed    Strategy = "speed"
	StrategyVariety  Strategy = "variety"
	StrategyBalanced Strategy = "balanced"
)

const (
	keyOperatingMode = "operating_mode"
	keySlotSelection = "slot_selection"

	DefaultSlotsToOffer        = 3
	DefaultTimeoutMinutes      = 30
	DefaultSearchDays          = 7
	DefaultSlotDurationMinutes = 120
)

// SlotSelection is the tunable proposal policy.
type SlotSelection struct {
	SlotsToOffer        int      `json:"slotsToOffer" validate:"min=1,max=3"`
	TimeoutMinutes      int      `json:"timeoutMinutes" validate:"min=1"`
	SearchDays          int      `json:"searchDays" validate:"min=1,max=60"`
	Strategy            Strategy `json:"strategy" validate:"slotstrategy"`
	SlotDurationMinutes int      `json:"slotDurationMinutes" validate:"min=15,max=720"`
}

// Settings is the explicit configuration handed to every engine invocation.
type Settings struct {
	Mode          Mode          `json:"operatingMode" validate:"operatingmode"`
	SlotSelection SlotSelection `json:"slotSelection"`
}

// Enabled reports whether automatic proposals are active.
func (s Settings) Enabled() bool {
	return s.Mode == ModePro
}

// Defaults returns the configuration used when the store has no rows.
func Defaults() Settings {
	return Settings{
		Mode:          ModeManual,
		SlotSelection: DefaultSlotSelection(),
	}
}

// DefaultSlotSelection returns the default proposal policy.
func DefaultSlotSelection() SlotSelection {
	return SlotSelection{
		SlotsToOffer:        DefaultSlotsToOffer,
		TimeoutMinutes:      DefaultTimeoutMinutes,
		SearchDays:          DefaultSearchDays,
		Strategy:            StrategyBalanced,
		SlotDurationMinutes: DefaultSlotDurationMinutes,
	}
}

// Normalize fills zero values with defaults and lower-cases names.
func (s SlotSelection) Normalize() SlotSelection {
	def := DefaultSlotSelection()
	if s.SlotsToOffer <= 0 {
		s.SlotsToOffer = def.SlotsToOffer
	}
	if s.SlotsToOffer > 3 {
		s.SlotsToOffer = 3
	}
	if s.TimeoutMinutes <= 0 {
		s.TimeoutMinutes = def.TimeoutMinutes
	}
	if s.SearchDays <= 0 {
		s.SearchDays = def.SearchDays
	}
	if s.SlotDurationMinutes <= 0 {
		s.SlotDurationMinutes = def.SlotDurationMinutes
	}
	s.Strategy = Strategy(strings.ToLower(strings.TrimSpace(string(s.Strategy))))
	switch s.Strategy {
	case StrategySpeed, StrategyVariety, StrategyBalanced:
	default:
		s.Strategy = def.Strategy
	}
	return s
}

// ParseMode maps stored text to a Mode. Unknown values disable the engine.
func ParseMode(value string) Mode {
	if Mode(strings.ToLower(strings.TrimSpace(value))) == ModePro {
		return ModePro
	}
	return ModeManual
}
