// Package components defines ECS components for the simulation.
package components

import "gonum.org/v1/gonum/spatial/r2"

// Position represents an entity's world position.
type Position struct {
	X, Y float64
}

// Vec returns the position as a vector.
func (p Position) Vec() r2.Vec { return r2.Vec{X: p.X, Y: p.Y} }

// Set overwrites the position from a vector.
func (p *Position) Set(v r2.Vec) { p.X, p.Y = v.X, v.Y }

// PrevPosition is the position at the start of the current tick.
// Overwritten exactly once per tick, before integration.
type PrevPosition struct {
	X, Y float64
}

// Vec returns the previous position as a vector.
func (p PrevPosition) Vec() r2.Vec { return r2.Vec{X: p.X, Y: p.Y} }

// Heading represents an entity's direction of travel.
type Heading struct {
	Angle float64 // radians
}
