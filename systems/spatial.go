// Package systems provides the simulation systems: terrain queries, agent
// broadphase, steering, scheduling and projectile resolution.
package systems

import (
	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r2"
)

// Neighbor holds a nearby entity with precomputed spatial data.
type Neighbor struct {
	E      ecs.Entity
	ID     uint32 // Agent.ID
	Pos    r2.Vec
	Radius float64
	DistSq float64 // Squared distance from the query origin
}

type gridItem struct {
	e      ecs.Entity
	id     uint32
	pos    r2.Vec
	radius float64
}

// SpatialGrid provides O(1) neighbor lookups using a cell-based grid.
// Positions outside the world are clamped into the border cells.
type SpatialGrid struct {
	cellSize float64
	cols     int
	rows     int
	cells    [][]gridItem // flat grid of entity lists
	maxR     float64      // largest inserted radius since Clear
}

// NewSpatialGrid creates a spatial grid covering the given world size.
func NewSpatialGrid(width, height, cellSize float64) *SpatialGrid {
	cols := int(width/cellSize) + 1
	rows := int(height/cellSize) + 1

	cells := make([][]gridItem, cols*rows)
	for i := range cells {
		cells[i] = make([]gridItem, 0, 8) // pre-allocate small capacity
	}

	return &SpatialGrid{
		cellSize: cellSize,
		cols:     cols,
		rows:     rows,
		cells:    cells,
	}
}

// Clear removes all entities from the grid.
func (g *SpatialGrid) Clear() {
	for i := range g.cells {
		g.cells[i] = g.cells[i][:0]
	}
	g.maxR = 0
}

// Insert adds an entity with a circular body to the grid.
func (g *SpatialGrid) Insert(e ecs.Entity, id uint32, pos r2.Vec, radius float64) {
	idx := g.cellIndex(pos.X, pos.Y)
	g.cells[idx] = append(g.cells[idx], gridItem{e: e, id: id, pos: pos, radius: radius})
	g.maxR = max(g.maxR, radius)
}

// Remove deletes e from the cell holding pos, the position it was
// inserted at. It reports whether e was found.
func (g *SpatialGrid) Remove(e ecs.Entity, pos r2.Vec) bool {
	idx := g.cellIndex(pos.X, pos.Y)
	cell := g.cells[idx]
	for i, it := range cell {
		if it.e == e {
			last := len(cell) - 1
			cell[i] = cell[last]
			g.cells[idx] = cell[:last]
			return true
		}
	}
	return false
}

// MaxQueryResults caps the number of neighbors returned by spatial queries.
// This prevents density spikes from causing unbounded work.
const MaxQueryResults = 128

// QueryRadiusInto finds entities whose bodies come within radius of (x, y)
// and appends them to dst (up to MaxQueryResults). Reuse dst across calls
// to avoid allocations.
func (g *SpatialGrid) QueryRadiusInto(dst []Neighbor, p r2.Vec, radius float64, exclude ecs.Entity) []Neighbor {
	reach := radius + g.maxR
	c0, r0 := g.cellCoords(p.X-reach, p.Y-reach)
	c1, r1 := g.cellCoords(p.X+reach, p.Y+reach)

	for row := r0; row <= r1; row++ {
		for col := c0; col <= c1; col++ {
			for _, it := range g.cells[row*g.cols+col] {
				if it.e == exclude {
					continue
				}
				distSq := r2.Norm2(r2.Sub(it.pos, p))
				within := radius + it.radius
				if distSq > within*within {
					continue
				}
				dst = append(dst, Neighbor{E: it.e, ID: it.id, Pos: it.pos, Radius: it.radius, DistSq: distSq})
				if len(dst) >= MaxQueryResults {
					return dst
				}
			}
		}
	}
	return dst
}

// QuerySegmentInto appends entities whose bodies may touch a circle of the
// given radius swept from a to b. Callers run the exact swept test.
func (g *SpatialGrid) QuerySegmentInto(dst []Neighbor, a, b r2.Vec, radius float64) []Neighbor {
	reach := radius + g.maxR
	c0, r0 := g.cellCoords(min(a.X, b.X)-reach, min(a.Y, b.Y)-reach)
	c1, r1 := g.cellCoords(max(a.X, b.X)+reach, max(a.Y, b.Y)+reach)

	for row := r0; row <= r1; row++ {
		for col := c0; col <= c1; col++ {
			for _, it := range g.cells[row*g.cols+col] {
				dst = append(dst, Neighbor{E: it.e, ID: it.id, Pos: it.pos, Radius: it.radius})
			}
		}
	}
	return dst
}

// cellCoords returns the clamped cell column and row for a world position.
func (g *SpatialGrid) cellCoords(x, y float64) (col, row int) {
	col = int(x / g.cellSize)
	row = int(y / g.cellSize)

	// Clamp to valid range
	if x < 0 || col < 0 {
		col = 0
	} else if col >= g.cols {
		col = g.cols - 1
	}
	if y < 0 || row < 0 {
		row = 0
	} else if row >= g.rows {
		row = g.rows - 1
	}
	return col, row
}

// cellIndex returns the flat index for a world position.
func (g *SpatialGrid) cellIndex(x, y float64) int {
	col, row := g.cellCoords(x, y)
	return row*g.cols + col
}
