package animation

import "math"

// EasingFunc maps linear progress in [0,1] to eased progress.
type EasingFunc func(t float64) float64

// Linear applies no easing.
func Linear(t float64) float64 { return t }

// EaseOutQuad decelerates towards the end.
func EaseOutQuad(t float64) float64 { return 1 - (1-t)*(1-t) }

// EaseInOutCubic accelerates then decelerates symmetrically.
func EaseInOutCubic(t float64) float64 {
	if t < 0.5 {
		return 4 * t * t * t
	}
	return 1 - math.Pow(-2*t+2, 3)/2
}

// EasingByName resolves a configured easing. Unknown names use EaseInOutCubic.
func EasingByName(name string) EasingFunc {
	switch name {
	case "linear":
		return Linear
	case "easeOutQuad", "ease-out-quad":
		return EaseOutQuad
	default:
		return EaseInOutCubic
	}
}
