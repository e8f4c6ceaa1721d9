// Package geo provides spherical geometry helpers for WGS84 coordinates.
// This is part of the platform layer and contains no business logic.
package geo

import "math"

// EarthRadiusMeters is the mean Earth radius used by every distance calculation.
const EarthRadiusMeters = 6371000.0

// Position is a latitude/longitude pair in degrees.
type Position struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func toRadians(deg float64) float64 { return deg * math.Pi / 180 }
func toDegrees(rad float64) float64 { return rad * 180 / math.Pi }

// Distance returns the great-circle distance between a and b in meters (haversine).
func Distance(a, b Position) float64 {
	dLat := toRadians(b.Lat - a.Lat)
	dLng := toRadians(b.Lng - a.Lng)
	lat1 := toRadians(a.Lat)
	lat2 := toRadians(b.Lat)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return EarthRadiusMeters * c
}

// Bearing returns the initial forward azimuth from a to b, normalized to [0, 360).
func Bearing(a, b Position) float64 {
	lat1 := toRadians(a.Lat)
	lat2 := toRadians(b.Lat)
	dLng := toRadians(b.Lng - a.Lng)

	y := math.Sin(dLng) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLng)
	return NormalizeBearing(toDegrees(math.Atan2(y, x)))
}

// NormalizeBearing maps any angle in degrees into [0, 360).
func NormalizeBearing(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	if deg >= 360 {
		deg = 0
	}
	return deg
}

// Lerp interpolates linearly between a and b; t is clamped to [0, 1].
func Lerp(a, b Position, t float64) Position {
	t = clamp01(t)
	return Position{
		Lat: a.Lat + (b.Lat-a.Lat)*t,
		Lng: a.Lng + (b.Lng-a.Lng)*t,
	}
}

// Slerp returns the point at fraction t along the great circle from a to b.
func Slerp(a, b Position, t float64) Position {
	t = clamp01(t)
	lat1, lng1 := toRadians(a.Lat), toRadians(a.Lng)
	lat2, lng2 := toRadians(b.Lat), toRadians(b.Lng)

	delta := Distance(a, b) / EarthRadiusMeters
	if delta == 0 {
		return a
	}

	sinDelta := math.Sin(delta)
	wa := math.Sin((1-t)*delta) / sinDelta
	wb := math.Sin(t*delta) / sinDelta

	x := wa*math.Cos(lat1)*math.Cos(lng1) + wb*math.Cos(lat2)*math.Cos(lng2)
	y := wa*math.Cos(lat1)*math.Sin(lng1) + wb*math.Cos(lat2)*math.Sin(lng2)
	z := wa*math.Sin(lat1) + wb*math.Sin(lat2)

	return Position{
		Lat: toDegrees(math.Atan2(z, math.Sqrt(x*x+y*y))),
		Lng: toDegrees(math.Atan2(y, x)),
	}
}

// InterpolateBearing rotates from `from` toward `to` along the shortest arc.
// The step never exceeds 180 degrees in either direction.
func InterpolateBearing(from, to, t float64) float64 {
	t = clamp01(t)
	diff := math.Mod(to-from+540, 360) - 180
	return NormalizeBearing(from + diff*t)
}

// Centroid returns the arithmetic mean of positions. It is only meaningful
// for points a few kilometres apart, which is all the jump classifier needs.
func Centroid(positions []Position) Position {
	if len(positions) == 0 {
		return Position{}
	}
	var sum Position
	for _, p := range positions {
		sum.Lat += p.Lat
		sum.Lng += p.Lng
	}
	n := float64(len(positions))
	return Position{Lat: sum.Lat / n, Lng: sum.Lng / n}
}

func clamp01(t float64) float64 {
	switch {
	case t < 0:
		return 0
	case t > 1:
		return 1
	default:
		return t
	}
}
