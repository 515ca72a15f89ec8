package systems

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/skirmish/collision"
	"github.com/pthm-cable/skirmish/tilemap"
)

// TerrainSystem owns a published tile grid and its collider index.
// Both are read-only after construction; a regenerated world gets a new
// TerrainSystem with the next generation number.
type TerrainSystem struct {
	grid       *tilemap.Grid
	index      *collision.Index
	tileSize   float64
	width      float64 // world units
	height     float64
	generation uint64
}

// NewTerrainSystem indexes grid. generation identifies this terrain so
// results computed against an older one can be discarded.
func NewTerrainSystem(grid *tilemap.Grid, tileSize, shrink float64, generation uint64) *TerrainSystem {
	return &TerrainSystem{
		grid:       grid,
		index:      collision.Build(grid, tileSize, shrink),
		tileSize:   tileSize,
		width:      float64(grid.Width()) * tileSize,
		height:     float64(grid.Height()) * tileSize,
		generation: generation,
	}
}

// Grid returns the backing tile grid.
func (t *TerrainSystem) Grid() *tilemap.Grid { return t.grid }

// Index returns the collider index.
func (t *TerrainSystem) Index() *collision.Index { return t.index }

// Generation returns the terrain generation number.
func (t *TerrainSystem) Generation() uint64 { return t.generation }

// TileSize returns the world size of one tile.
func (t *TerrainSystem) TileSize() float64 { return t.tileSize }

// Size returns the world extent in world units.
func (t *TerrainSystem) Size() (w, h float64) { return t.width, t.height }

// tileAt returns the tile coordinates containing a world position.
func (t *TerrainSystem) tileAt(x, y float64) (int, int) {
	return int(math.Floor(x / t.tileSize)), int(math.Floor(y / t.tileSize))
}

// IsSolid returns true if the world position lies on a non-walkable tile.
// Positions outside the world are solid.
func (t *TerrainSystem) IsSolid(x, y float64) bool {
	gx, gy := t.tileAt(x, y)
	return !t.grid.Walkable(gx, gy)
}

// IsWalkable is the inverse of IsSolid.
func (t *TerrainSystem) IsWalkable(x, y float64) bool {
	return !t.IsSolid(x, y)
}

// IsAreaWalkable reports whether rect lies inside the world and overlaps no
// solid collider.
func (t *TerrainSystem) IsAreaWalkable(rect collision.Rect) bool {
	if rect.X < 0 || rect.Y < 0 || rect.X+rect.W > t.width || rect.Y+rect.H > t.height {
		return false
	}
	var buf [32]collision.Entry
	for _, e := range t.index.QueryInto(buf[:0], rect, 0) {
		if collision.RectIntersectsRect(rect, e.Collider.Rect()) {
			return false
		}
	}
	return true
}

// CheckCircleCollision returns true if a circle leaves the world or
// intersects a solid collider.
func (t *TerrainSystem) CheckCircleCollision(c r2.Vec, radius float64) bool {
	if c.X-radius < 0 || c.Y-radius < 0 || c.X+radius > t.width || c.Y+radius > t.height {
		return true
	}
	return t.index.Blocked(c, radius)
}

// CircleWalkable is the inverse of CheckCircleCollision.
func (t *TerrainSystem) CircleWalkable(c r2.Vec, radius float64) bool {
	return !t.CheckCircleCollision(c, radius)
}

// NearbyColliders returns the solid colliders within one tile of (x, y).
func (t *TerrainSystem) NearbyColliders(x, y float64) map[collision.Key]collision.Collider {
	var buf [9]collision.Entry
	entries := t.index.QueryInto(buf[:0], collision.Rect{X: x, Y: y}, 0)
	out := make(map[collision.Key]collision.Collider, len(entries))
	for _, e := range entries {
		out[e.Key] = e.Collider
	}
	return out
}

// BlockProjectile finds the projectile-blocking collider crossed by a body of
// the given radius travelling from prev to cur. When several are crossed
// the one nearest prev wins.
func (t *TerrainSystem) BlockProjectile(prev, cur r2.Vec, radius float64) (collision.Entry, bool) {
	var buf [32]collision.Entry
	var hit collision.Entry
	found := false
	best := math.Inf(1)
	for _, e := range t.index.QueryInto(buf[:0], collision.SegmentBounds(prev, cur, radius), radius) {
		if e.Tile.AllowsProjectiles() {
			continue
		}
		r := e.Collider.Rect()
		if !collision.SweptShapeVsRect(prev, cur, radius, r) {
			continue
		}
		if d := r2.Norm2(r2.Sub(r.Center(), prev)); d < best {
			best, hit, found = d, e, true
		}
	}
	return hit, found
}

// OutOfBounds reports whether p lies outside the world.
func (t *TerrainSystem) OutOfBounds(p r2.Vec) bool {
	return p.X < 0 || p.Y < 0 || p.X >= t.width || p.Y >= t.height
}

// FindNearestOpen searches outward in square rings of tiles from p for a
// tile centre where a circle of radius fits. maxRings bounds the search.
func (t *TerrainSystem) FindNearestOpen(p r2.Vec, radius float64, maxRings int) (r2.Vec, bool) {
	if t.CircleWalkable(p, radius) {
		return p, true
	}
	cx, cy := t.tileAt(p.X, p.Y)

	for ring := 1; ring <= maxRings; ring++ {
		var best r2.Vec
		bestDist := math.Inf(1)
		for dx := -ring; dx <= ring; dx++ {
			for dy := -ring; dy <= ring; dy++ {
				if max(abs(dx), abs(dy)) != ring {
					continue
				}
				c := t.tileCentre(cx+dx, cy+dy)
				if !t.CircleWalkable(c, radius) {
					continue
				}
				if d := r2.Norm2(r2.Sub(c, p)); d < bestDist {
					best, bestDist = c, d
				}
			}
		}
		if !math.IsInf(bestDist, 1) {
			return best, true
		}
	}
	return p, false
}

func (t *TerrainSystem) tileCentre(x, y int) r2.Vec {
	return r2.Vec{X: (float64(x) + 0.5) * t.tileSize, Y: (float64(y) + 0.5) * t.tileSize}
}

// HasLineOfSight returns true if no solid tile lies between two points.
// Uses a simple raycast with steps smaller than a tile.
func (t *TerrainSystem) HasLineOfSight(a, b r2.Vec) bool {
	d := r2.Sub(b, a)
	dist := r2.Norm(d)
	if dist < 0.001 {
		return true
	}

	step := t.tileSize * 0.4
	steps := int(dist/step) + 1
	dir := r2.Scale(1/dist, d)

	// Skip start and end points
	for i := 1; i < steps; i++ {
		p := r2.Add(a, r2.Scale(float64(i)*step, dir))
		if t.IsSolid(p.X, p.Y) {
			return false
		}
	}
	return true
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
