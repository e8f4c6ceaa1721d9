// Package availability answers "which technician openings exist on this day".
// It combines weekly working-hour rules with booked tickets.
package availability

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	optimalZoneWeight = 0.6
	freeShareWeight   = 0.4
)

// Technician is a field technician who can be offered to customers.
type Technician struct {
	ID          uuid.UUID
	DisplayName string
	Phone       string
	Zones       []string
}

// Rule is a weekly working window. StartTime and EndTime carry only a clock.
type Rule struct {
	TechnicianID uuid.UUID
	Weekday      int
	StartTime    time.Time
	EndTime      time.Time
	Timezone     string
}

// Booking is time already committed to a scheduled ticket.
type Booking struct {
	TechnicianID uuid.UUID
	Start        time.Time
	End          time.Time
}

// Slot is a candidate opening.
type Slot struct {
	TechnicianID    uuid.UUID
	TechnicianName  string
	Start           time.Time
	End             time.Time
	IsOptimalZone   bool
	EfficiencyScore float64
}

// Request asks for openings on Date (year, month and day are used).
type Request struct {
	Date            time.Time
	DurationMinutes int
	ServiceZone     string
}

// Source loads the raw inputs of the query.
type Source interface {
	ListTechnicians(ctx context.Context) ([]Technician, error)
	ListRules(ctx context.Context, weekday int) ([]Rule, error)
	ListBookings(ctx context.Context, from, to time.Time) ([]Booking, error)
}

// Query computes openings per day.
type Query struct {
	src Source
}

// NewQuery creates an availability query.
func NewQuery(src Source) *Query {
	return &Query{src: src}
}

// SlotsForDay returns openings best first: earliest start, then technicians
// in the ticket's zone, then the less loaded technician.
func (q *Query) SlotsForDay(ctx context.Context, req Request) ([]Slot, error) {
	if req.DurationMinutes <= 0 {
		return nil, fmt.Errorf("duration must be positive, got %d", req.DurationMinutes)
	}

	day := time.Date(req.Date.Year(), req.Date.Month(), req.Date.Day(), 0, 0, 0, 0, time.UTC)
	weekday := int(day.Weekday())

	rules, err := q.src.ListRules(ctx, weekday)
	if err != nil {
		return nil, fmt.Errorf("list availability rules: %w", err)
	}
	if len(rules) == 0 {
		return []Slot{}, nil
	}

	technicians, err := q.src.ListTechnicians(ctx)
	if err != nil {
		return nil, fmt.Errorf("list technicians: %w", err)
	}
	byID := make(map[uuid.UUID]Technician, len(technicians))
	for _, tech := range technicians {
		byID[tech.ID] = tech
	}

	// Rules may use different zones; widen the booking window by a day each side.
	bookings, err := q.src.ListBookings(ctx, day.AddDate(0, 0, -1), day.AddDate(0, 0, 2))
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	bookingsByTech := make(map[uuid.UUID][]Booking)
	for _, b := range bookings {
		bookingsByTech[b.TechnicianID] = append(bookingsByTech[b.TechnicianID], b)
	}

	windowsByTech := make(map[uuid.UUID][][2]time.Time)
	for _, rule := range rules {
		if rule.Weekday != weekday {
			continue
		}
		if _, ok := byID[rule.TechnicianID]; !ok {
			continue
		}
		start, end := resolveWindow(day, rule)
		if !end.After(start) {
			continue
		}
		windowsByTech[rule.TechnicianID] = append(windowsByTech[rule.TechnicianID], [2]time.Time{start, end})
	}

	slots := make([]Slot, 0)
	for techID, windows := range windowsByTech {
		tech := byID[techID]
		booked := bookingsByTech[techID]
		optimal := inZone(tech.Zones, req.ServiceZone)
		score := efficiency(optimal, bookedShare(windows, booked))

		for _, w := range windows {
			for _, s := range generateSlotsForWindow(w[0], w[1], req.DurationMinutes, booked) {
				s.TechnicianID = techID
				s.TechnicianName = tech.DisplayName
				s.IsOptimalZone = optimal
				s.EfficiencyScore = score
				slots = append(slots, s)
			}
		}
	}

	sortBestFirst(slots)
	return slots, nil
}

func resolveWindow(day time.Time, rule Rule) (time.Time, time.Time) {
	loc, err := time.LoadLocation(rule.Timezone)
	if err != nil {
		loc = time.UTC
	}
	start := time.Date(day.Year(), day.Month(), day.Day(), rule.StartTime.Hour(), rule.StartTime.Minute(), 0, 0, loc)
	end := time.Date(day.Year(), day.Month(), day.Day(), rule.EndTime.Hour(), rule.EndTime.Minute(), 0, 0, loc)
	return start, end
}

// generateSlotsForWindow cuts a window into back-to-back slots, dropping those
// that overlap a booking.
func generateSlotsForWindow(windowStart, windowEnd time.Time, durationMinutes int, bookings []Booking) []Slot {
	var slots []Slot
	duration := time.Duration(durationMinutes) * time.Minute

	for slotStart := windowStart; !slotStart.Add(duration).After(windowEnd); slotStart = slotStart.Add(duration) {
		slotEnd := slotStart.Add(duration)

		conflicts := false
		for _, b := range bookings {
			if slotStart.Before(b.End) && slotEnd.After(b.Start) {
				conflicts = true
				break
			}
		}

		if !conflicts {
			slots = append(slots, Slot{Start: slotStart, End: slotEnd})
		}
	}

	return slots
}

func bookedShare(windows [][2]time.Time, bookings []Booking) float64 {
	var total, booked time.Duration
	for _, w := range windows {
		total += w[1].Sub(w[0])
		for _, b := range bookings {
			start := maxTime(w[0], b.Start)
			end := minTime(w[1], b.End)
			if end.After(start) {
				booked += end.Sub(start)
			}
		}
	}
	if total <= 0 {
		return 0
	}
	share := float64(booked) / float64(total)
	if share > 1 {
		return 1
	}
	return share
}

func efficiency(optimal bool, share float64) float64 {
	score := freeShareWeight * (1 - share)
	if optimal {
		score += optimalZoneWeight
	}
	return score
}

func inZone(zones []string, zone string) bool {
	zone = strings.TrimSpace(zone)
	if zone == "" {
		return false
	}
	for _, z := range zones {
		if strings.EqualFold(strings.TrimSpace(z), zone) {
			return true
		}
	}
	return false
}

func sortBestFirst(slots []Slot) {
	sort.SliceStable(slots, func(i, j int) bool {
		a, b := slots[i], slots[j]
		if !a.Start.Equal(b.Start) {
			return a.Start.Before(b.Start)
		}
		if a.IsOptimalZone != b.IsOptimalZone {
			return a.IsOptimalZone
		}
		if a.EfficiencyScore != b.EfficiencyScore {
			return a.EfficiencyScore > b.EfficiencyScore
		}
		return a.TechnicianName < b.TechnicianName
	})
}

func maxTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
