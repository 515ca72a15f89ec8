package collision

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

const (
	// sweptSamplesPerRadius sets the sampling density of SweptShapeVsRect.
	sweptSamplesPerRadius = 2.0
	// capsuleSample is the perpendicular sample offset as a fraction of radius.
	capsuleSample = 0.7
	// stationaryFraction of the radius below which a body counts as not moving.
	stationaryFraction = 0.5
)

// CircleIntersectsCircle reports whether two circles overlap or touch.
func CircleIntersectsCircle(a r2.Vec, ra float64, b r2.Vec, rb float64) bool {
	r := ra + rb
	return r2.Norm2(r2.Sub(a, b)) <= r*r
}

// ClosestPointInRect clamps p into rect.
func ClosestPointInRect(p r2.Vec, rect Rect) r2.Vec {
	return r2.Vec{
		X: clamp(p.X, rect.X, rect.X+rect.W),
		Y: clamp(p.Y, rect.Y, rect.Y+rect.H),
	}
}

// CircleIntersectsRect reports whether a circle overlaps a rect.
func CircleIntersectsRect(c r2.Vec, radius float64, rect Rect) bool {
	closest := ClosestPointInRect(c, rect)
	return r2.Norm2(r2.Sub(c, closest)) <= radius*radius
}

// RectIntersectsRect reports whether two rects overlap (touching edges count).
func RectIntersectsRect(a, b Rect) bool {
	return a.X <= b.X+b.W && b.X <= a.X+a.W &&
		a.Y <= b.Y+b.H && b.Y <= a.Y+a.H
}

// PointInRect reports whether p lies inside rect, edges included.
func PointInRect(p r2.Vec, rect Rect) bool {
	return p.X >= rect.X && p.X <= rect.X+rect.W &&
		p.Y >= rect.Y && p.Y <= rect.Y+rect.H
}

// ClosestPointOnSegment projects p onto [a, b], clamped to the segment.
func ClosestPointOnSegment(a, b, p r2.Vec) r2.Vec {
	ab := r2.Sub(b, a)
	lenSq := r2.Norm2(ab)
	if lenSq == 0 {
		return a
	}
	t := clamp(r2.Dot(r2.Sub(p, a), ab)/lenSq, 0, 1)
	return r2.Add(a, r2.Scale(t, ab))
}

// SweptCircleVsCircle reports whether a circle of radiusA travelling from
// prevA to curA this tick touched a stationary circle at centerB.
// Movement shorter than half of radiusA is treated as jitter and only the
// end position is tested.
func SweptCircleVsCircle(prevA, curA r2.Vec, radiusA float64, centerB r2.Vec, radiusB float64) bool {
	if CircleIntersectsCircle(curA, radiusA, centerB, radiusB) {
		return true
	}
	if r2.Norm(r2.Sub(curA, prevA)) < radiusA*stationaryFraction {
		return false
	}
	closest := ClosestPointOnSegment(prevA, curA, centerB)
	return CircleIntersectsCircle(closest, radiusA, centerB, radiusB)
}

// SweptShapeVsRect reports whether a body of the given radius moving from
// prev to cur crossed rect. It samples the segment at a density
// proportional to length/radius and samples either side of the path, which
// approximates a capsule sweep.
func SweptShapeVsRect(prev, cur r2.Vec, radius float64, rect Rect) bool {
	if PointInRect(cur, rect) {
		return true
	}

	d := r2.Sub(cur, prev)
	length := r2.Norm(d)
	if length == 0 {
		return false
	}

	spacing := radius
	if spacing <= 0 {
		spacing = 1
	}
	steps := int(math.Ceil(length / spacing * sweptSamplesPerRadius))
	if steps < 1 {
		steps = 1
	}

	dir := r2.Scale(1/length, d)
	perp := r2.Scale(radius*capsuleSample, r2.Vec{X: -dir.Y, Y: dir.X})

	for i := 0; i <= steps; i++ {
		p := r2.Add(prev, r2.Scale(float64(i)/float64(steps), d))
		if PointInRect(p, rect) ||
			PointInRect(r2.Add(p, perp), rect) ||
			PointInRect(r2.Sub(p, perp), rect) {
			return true
		}
	}
	return false
}

// SegmentBounds returns the bounding rect of a swept circle.
func SegmentBounds(a, b r2.Vec, radius float64) Rect {
	minX, maxX := math.Min(a.X, b.X), math.Max(a.X, b.X)
	minY, maxY := math.Min(a.Y, b.Y), math.Max(a.Y, b.Y)
	return Rect{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}.Expand(radius)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
