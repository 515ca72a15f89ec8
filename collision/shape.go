// Package collision provides collider shapes, stateless intersection tests
// and a sparse per-tile collider index.
package collision

import (
	"gonum.org/v1/gonum/spatial/r2"
)

// Shape tags the variant held by a Collider.
type Shape uint8

const (
	ShapeCircle Shape = iota
	ShapeRect
	numShapes // sentinel; keep last
)

func (s Shape) String() string {
	switch s {
	case ShapeCircle:
		return "circle"
	case ShapeRect:
		return "rect"
	}
	return "unknown"
}

// Rect is an axis-aligned rectangle given by its origin (min corner) and size.
type Rect struct {
	X, Y float64
	W, H float64
}

// RectAround returns the rect centred on c with the given size.
func RectAround(c r2.Vec, w, h float64) Rect {
	return Rect{X: c.X - w/2, Y: c.Y - h/2, W: w, H: h}
}

// Min returns the minimum corner.
func (r Rect) Min() r2.Vec { return r2.Vec{X: r.X, Y: r.Y} }

// Max returns the maximum corner.
func (r Rect) Max() r2.Vec { return r2.Vec{X: r.X + r.W, Y: r.Y + r.H} }

// Center returns the rect centre.
func (r Rect) Center() r2.Vec { return r2.Vec{X: r.X + r.W/2, Y: r.Y + r.H/2} }

// Expand grows the rect by d on every side.
func (r Rect) Expand(d float64) Rect {
	return Rect{X: r.X - d, Y: r.Y - d, W: r.W + 2*d, H: r.H + 2*d}
}

// Collider is a closed union of circle and rectangle shapes.
// The shape and its dimensions never change after construction; only the
// position moves.
type Collider struct {
	shape  Shape
	pos    r2.Vec  // circle centre or rect origin
	radius float64 // circle only
	w, h   float64 // rect only
}

// NewCircle returns a circle collider.
func NewCircle(center r2.Vec, radius float64) Collider {
	return Collider{shape: ShapeCircle, pos: center, radius: radius}
}

// NewRect returns a rectangle collider.
func NewRect(r Rect) Collider {
	return Collider{shape: ShapeRect, pos: r2.Vec{X: r.X, Y: r.Y}, w: r.W, h: r.H}
}

// Shape returns the collider's variant.
func (c Collider) Shape() Shape { return c.shape }

// Pos returns the circle centre or the rect origin.
func (c Collider) Pos() r2.Vec { return c.pos }

// Radius returns the circle radius, or 0 for rects.
func (c Collider) Radius() float64 { return c.radius }

// MoveTo sets the circle centre or rect origin.
func (c *Collider) MoveTo(p r2.Vec) { c.pos = p }

// Rect returns the rectangle for rect colliders and the bounding box for circles.
func (c Collider) Rect() Rect {
	if c.shape == ShapeCircle {
		return RectAround(c.pos, 2*c.radius, 2*c.radius)
	}
	return Rect{X: c.pos.X, Y: c.pos.Y, W: c.w, H: c.h}
}

// Center returns the geometric centre.
func (c Collider) Center() r2.Vec {
	if c.shape == ShapeCircle {
		return c.pos
	}
	return c.Rect().Center()
}

// pairTest decides whether two colliders of known shapes overlap.
type pairTest func(a, b Collider) bool

// intersectTable is indexed by [a.shape][b.shape]. Adding a Shape grows
// numShapes, and TestDispatchTableComplete fails until every new pair has
// an entry.
var intersectTable = [numShapes][numShapes]pairTest{
	ShapeCircle: {
		ShapeCircle: func(a, b Collider) bool {
			return CircleIntersectsCircle(a.pos, a.radius, b.pos, b.radius)
		},
		ShapeRect: func(a, b Collider) bool {
			return CircleIntersectsRect(a.pos, a.radius, b.Rect())
		},
	},
	ShapeRect: {
		ShapeCircle: func(a, b Collider) bool {
			return CircleIntersectsRect(b.pos, b.radius, a.Rect())
		},
		ShapeRect: func(a, b Collider) bool {
			return RectIntersectsRect(a.Rect(), b.Rect())
		},
	},
}

// Intersects reports whether two colliders overlap.
func Intersects(a, b Collider) bool {
	return intersectTable[a.shape][b.shape](a, b)
}
