package geo

import (
	"math"
	"testing"
)

const metersPerDegreeLat = EarthRadiusMeters * math.Pi / 180

func approx(a, b, tol float64) bool { return math.Abs(a-b) <= tol }

func TestDistanceAlongMeridian(t *testing.T) {
	a := Position{Lat: 40, Lng: -3.7}
	b := Position{Lat: 40 + 1000/metersPerDegreeLat, Lng: -3.7}

	if got := Distance(a, b); !approx(got, 1000, 0.01) {
		t.Fatalf("Distance = %f, want 1000", got)
	}
	if got := Distance(a, a); got != 0 {
		t.Fatalf("Distance to self = %f, want 0", got)
	}
}

func TestBearingCardinalDirections(t *testing.T) {
	origin := Position{Lat: 0, Lng: 0}
	cases := []struct {
		name string
		to   Position
		want float64
	}{
		{name: "north", to: Position{Lat: 1, Lng: 0}, want: 0},
		{name: "east", to: Position{Lat: 0, Lng: 1}, want: 90},
		{name: "south", to: Position{Lat: -1, Lng: 0}, want: 180},
		{name: "west", to: Position{Lat: 0, Lng: -1}, want: 270},
	}
	for _, tc := range cases {
		if got := Bearing(origin, tc.to); !approx(got, tc.want, 1e-9) {
			t.Errorf("%s: Bearing = %f, want %f", tc.name, got, tc.want)
		}
	}
}

func TestInterpolateBearingTakesShortestArc(t *testing.T) {
	cases := []struct {
		from, to, t, want float64
	}{
		{from: 350, to: 10, t: 0.5, want: 0},
		{from: 10, to: 350, t: 0.5, want: 0},
		{from: 0, to: 90, t: 0.5, want: 45},
		{from: 90, to: 270, t: 1, want: 270},
		{from: 270, to: 90, t: 0, want: 270},
	}
	for _, tc := range cases {
		got := InterpolateBearing(tc.from, tc.to, tc.t)
		if !approx(got, tc.want, 1e-9) && !approx(math.Abs(got-tc.want), 360, 1e-9) {
			t.Errorf("InterpolateBearing(%v, %v, %v) = %v, want %v", tc.from, tc.to, tc.t, got, tc.want)
		}
	}
}

func TestSlerpMatchesLerpAtShortRange(t *testing.T) {
	a := Position{Lat: 40.4168, Lng: -3.7038}
	b := Position{Lat: 40.4268, Lng: -3.6938}

	s := Slerp(a, b, 0.5)
	l := Lerp(a, b, 0.5)
	if d := Distance(s, l); d > 1 {
		t.Fatalf("slerp and lerp midpoints differ by %fm", d)
	}
	if got := Slerp(a, b, 0); Distance(got, a) > 1e-6 {
		t.Fatalf("Slerp(t=0) = %+v, want %+v", got, a)
	}
	if got := Slerp(a, b, 1); Distance(got, b) > 1e-6 {
		t.Fatalf("Slerp(t=1) = %+v, want %+v", got, b)
	}
}

func TestCentroid(t *testing.T) {
	got := Centroid([]Position{{Lat: 0, Lng: 0}, {Lat: 2, Lng: 4}})
	if got.Lat != 1 || got.Lng != 2 {
		t.Fatalf("Centroid = %+v, want {1 2}", got)
	}
	if got := Centroid(nil); got != (Position{}) {
		t.Fatalf("Centroid(nil) = %+v, want zero", got)
	}
}
