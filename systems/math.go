package systems

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// normalizeAngle wraps an angle to [-Pi, Pi].
func normalizeAngle(angle float64) float64 {
	for angle > math.Pi {
		angle -= 2 * math.Pi
	}
	for angle < -math.Pi {
		angle += 2 * math.Pi
	}
	return angle
}

// headingOf returns the angle of v, or fallback for the zero vector.
func headingOf(v r2.Vec, fallback float64) float64 {
	if v.X == 0 && v.Y == 0 {
		return fallback
	}
	return normalizeAngle(math.Atan2(v.Y, v.X))
}

// unit returns v scaled to length 1, or the zero vector.
func unit(v r2.Vec) r2.Vec {
	n := r2.Norm(v)
	if n == 0 {
		return r2.Vec{}
	}
	return r2.Scale(1/n, v)
}
