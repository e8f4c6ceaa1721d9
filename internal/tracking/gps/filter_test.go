package gps

import (
	"math"
	"testing"

	"repairdesk_backend/platform/geo"
)

// north returns a point m meters north of the origin.
func north(m float64) geo.Position {
	return geo.Position{Lat: m / (geo.EarthRadiusMeters * math.Pi / 180), Lng: 0}
}

func near(a, b geo.Position, toleranceMeters float64) bool {
	return geo.Distance(a, b) <= toleranceMeters
}

func TestFirstFixIsAcceptedAsIs(t *testing.T) {
	f := NewFilter(FilterConfig{})
	p := geo.Position{Lat: 40.4168, Lng: -3.7038}

	got, ok := f.Apply(p)
	if !ok || got != p {
		t.Fatalf("got %v, %v", got, ok)
	}
}

func TestJitterIsRejected(t *testing.T) {
	f := NewFilter(FilterConfig{})
	f.Apply(north(0))

	if _, ok := f.Apply(north(3)); ok {
		t.Fatal("3m movement must be rejected")
	}
	if f.HistoryLen() != 1 {
		t.Fatal("rejected fix must not change state")
	}
}

func TestIsolatedSpikeIsRejectedAsNoise(t *testing.T) {
	f := NewFilter(FilterConfig{})
	f.Apply(north(0))

	_, decision := f.Decide(north(1200))
	if decision != DecisionNoise {
		t.Fatalf("decision = %s, want noise", decision)
	}
	last, _ := f.LastEmitted()
	if last != north(0) {
		t.Fatal("noise must not move the emitted position")
	}
}

func TestJumpConsistentWithHistoryResetsState(t *testing.T) {
	f := NewFilter(FilterConfig{})
	for _, m := range []float64{0, 450, 900} {
		if _, ok := f.Apply(north(m)); !ok {
			t.Fatalf("fix at %vm rejected", m)
		}
	}

	// 1200m from the last fix, 750m from the history average.
	target := north(-300)
	got, decision := f.Decide(target)
	if decision != DecisionJump || got != target {
		t.Fatalf("decision = %s got = %v", decision, got)
	}
	if f.HistoryLen() != 1 {
		t.Fatalf("history = %d, want hard reset to 1", f.HistoryLen())
	}

	next, ok := f.Apply(north(-290))
	if !ok {
		t.Fatal("fix after the jump should be accepted")
	}
	if !near(next, north(-297), 0.01) {
		t.Fatalf("next = %v, want smoothing from the jump target", next)
	}
}

func TestSmoothingMovesByAlpha(t *testing.T) {
	f := NewFilter(FilterConfig{MaxJumpMeters: 500000})
	f.Apply(geo.Position{Lat: 0, Lng: 0})

	got, ok := f.Apply(geo.Position{Lat: 1, Lng: 0})
	if !ok {
		t.Fatal("expected acceptance")
	}
	if math.Abs(got.Lat-0.3) > 1e-9 || math.Abs(got.Lng) > 1e-9 {
		t.Fatalf("got %v, want {0.3 0}", got)
	}
}

func TestHistoryIsCappedAtTwiceWindow(t *testing.T) {
	f := NewFilter(FilterConfig{WindowSize: 2})
	for i := 0; i < 10; i++ {
		f.Apply(north(float64(i) * 20))
	}
	if f.HistoryLen() != 4 {
		t.Fatalf("history = %d, want 4", f.HistoryLen())
	}
}

func TestInvalidInputNeverPanics(t *testing.T) {
	f := NewFilter(FilterConfig{})
	inputs := []geo.Position{
		{Lat: math.NaN(), Lng: 0},
		{Lat: 0, Lng: math.Inf(1)},
		{Lat: 91, Lng: 0},
		{Lat: 0, Lng: -181},
	}
	for _, p := range inputs {
		if _, ok := f.Apply(p); ok {
			t.Errorf("%v should be rejected", p)
		}
	}
	if _, initialized := f.LastEmitted(); initialized {
		t.Fatal("invalid fixes must not seed the filter")
	}
}

func TestResetTreatsNextFixAsFirst(t *testing.T) {
	f := NewFilter(FilterConfig{})
	f.Apply(north(0))
	f.Reset()

	far := north(5000)
	got, decision := f.Decide(far)
	if decision != DecisionFirst || got != far {
		t.Fatalf("decision = %s", decision)
	}
}
