package engine

import (
	"time"

	"repairdesk_backend/internal/availability"
	"repairdesk_backend/internal/settings"

	"github.com/google/uuid"
)

const (
	fewSlotsThreshold  = 5
	someSlotsThreshold = 8
	maxOfferedSlots    = 3
	afternoonHour      = 14
)

// DecideSlotCount maps total availability to how many options to offer:
// 1 below 5 openings, 2 below 8, otherwise 3, capped by maxConfigured.
func DecideSlotCount(totalSlotsFound, maxConfigured int) int {
	count := maxOfferedSlots
	switch {
	case totalSlotsFound < fewSlotsThreshold:
		count = 1
	case totalSlotsFound < someSlotsThreshold:
		count = 2
	}

	if maxConfigured < 1 {
		maxConfigured = 1
	}
	if maxConfigured > maxOfferedSlots {
		maxConfigured = maxOfferedSlots
	}
	return min(count, maxConfigured)
}

// SelectSlots picks up to count options from all. The first option is always
// all[0]; later picks take the first qualifying candidate in list order.
// loc decides what counts as afternoon.
func SelectSlots(all []availability.Slot, count int, strategy settings.Strategy, loc *time.Location) []availability.Slot {
	if len(all) == 0 || count < 1 {
		return nil
	}
	if loc == nil {
		loc = time.UTC
	}

	used := map[int]bool{0: true}
	selected := []availability.Slot{all[0]}
	if count < 2 || len(all) < 2 {
		return selected
	}

	second := pickSecond(all, strategy, loc)
	used[second] = true
	selected = append(selected, all[second])
	if count < 3 || len(all) < 3 {
		return selected
	}

	third := pickThird(all, used, []uuid.UUID{all[0].TechnicianID, all[second].TechnicianID})
	return append(selected, all[third])
}

func pickSecond(all []availability.Slot, strategy settings.Strategy, loc *time.Location) int {
	firstTech := all[0].TechnicianID

	switch strategy {
	case settings.StrategyVariety:
		for i := 1; i < len(all); i++ {
			if all[i].TechnicianID != firstTech {
				return i
			}
		}
	case settings.StrategyBalanced:
		for i := 1; i < len(all); i++ {
			if isAfternoon(all[i], loc) || all[i].TechnicianID != firstTech {
				return i
			}
		}
	}
	return 1
}

func pickThird(all []availability.Slot, used map[int]bool, usedTechs []uuid.UUID) int {
	for i := 1; i < len(all); i++ {
		if used[i] || containsTech(usedTechs, all[i].TechnicianID) {
			continue
		}
		return i
	}
	for i := 1; i < len(all); i++ {
		if !used[i] {
			return i
		}
	}
	return 2
}

func isAfternoon(s availability.Slot, loc *time.Location) bool {
	return s.Start.In(loc).Hour() >= afternoonHour
}

func containsTech(ids []uuid.UUID, id uuid.UUID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
