package availability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

type fakeSource struct {
	technicians []Technician
	rules       []Rule
	bookings    []Booking
	err         error
}

func (f *fakeSource) ListTechnicians(context.Context) ([]Technician, error) {
	return f.technicians, f.err
}

func (f *fakeSource) ListRules(_ context.Context, weekday int) ([]Rule, error) {
	var out []Rule
	for _, r := range f.rules {
		if r.Weekday == weekday {
			out = append(out, r)
		}
	}
	return out, f.err
}

func (f *fakeSource) ListBookings(context.Context, time.Time, time.Time) ([]Booking, error) {
	return f.bookings, f.err
}

func clock(hour int) time.Time {
	return time.Date(0, 1, 1, hour, 0, 0, 0, time.UTC)
}

func TestSlotsForDayExcludesBookedTimeAndRanksZone(t *testing.T) {
	ana := Technician{ID: uuid.New(), DisplayName: "Ana", Zones: []string{"centro"}}
	luis := Technician{ID: uuid.New(), DisplayName: "Luis", Zones: []string{"norte"}}
	// 2024-01-04 is a Thursday.
	day := time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC)

	src := &fakeSource{
		technicians: []Technician{ana, luis},
		rules: []Rule{
			{TechnicianID: ana.ID, Weekday: 4, StartTime: clock(9), EndTime: clock(13), Timezone: "UTC"},
			{TechnicianID: luis.ID, Weekday: 4, StartTime: clock(9), EndTime: clock(13), Timezone: "UTC"},
		},
		bookings: []Booking{
			{TechnicianID: ana.ID, Start: day.Add(11 * time.Hour), End: day.Add(13 * time.Hour)},
		},
	}

	slots, err := NewQuery(src).SlotsForDay(context.Background(), Request{Date: day, DurationMinutes: 120, ServiceZone: "Centro"})
	if err != nil {
		t.Fatalf("SlotsForDay: %v", err)
	}
	if len(slots) != 3 {
		t.Fatalf("got %d slots, want 3", len(slots))
	}

	if slots[0].TechnicianID != ana.ID || !slots[0].IsOptimalZone {
		t.Errorf("first slot should be Ana in zone, got %+v", slots[0])
	}
	if slots[1].TechnicianID != luis.ID || slots[1].Start.Hour() != 9 {
		t.Errorf("second slot should be Luis at 09:00, got %+v", slots[1])
	}
	if slots[2].TechnicianID != luis.ID || slots[2].Start.Hour() != 11 {
		t.Errorf("third slot should be Luis at 11:00, got %+v", slots[2])
	}

	// Ana is in zone but half booked: 0.6 + 0.4*0.5.
	if got := slots[0].EfficiencyScore; got < 0.799 || got > 0.801 {
		t.Errorf("Ana efficiency = %v, want 0.8", got)
	}
	if got := slots[1].EfficiencyScore; got < 0.399 || got > 0.401 {
		t.Errorf("Luis efficiency = %v, want 0.4", got)
	}
}

func TestSlotsForDayNoRules(t *testing.T) {
	src := &fakeSource{}
	slots, err := NewQuery(src).SlotsForDay(context.Background(), Request{Date: time.Now(), DurationMinutes: 60})
	if err != nil {
		t.Fatalf("SlotsForDay: %v", err)
	}
	if len(slots) != 0 {
		t.Fatalf("expected no slots, got %d", len(slots))
	}
}

func TestSlotsForDayPropagatesSourceErrors(t *testing.T) {
	src := &fakeSource{
		rules: []Rule{{Weekday: int(time.Now().Weekday())}},
		err:   errors.New("db down"),
	}
	if _, err := NewQuery(src).SlotsForDay(context.Background(), Request{Date: time.Now(), DurationMinutes: 60}); err == nil {
		t.Fatal("expected error")
	}
}

func TestSlotsForDayRejectsNonPositiveDuration(t *testing.T) {
	if _, err := NewQuery(&fakeSource{}).SlotsForDay(context.Background(), Request{Date: time.Now()}); err == nil {
		t.Fatal("expected error")
	}
}
