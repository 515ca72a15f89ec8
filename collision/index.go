package collision

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/skirmish/tilemap"
)

// Key packs tile coordinates as x*height + y.
type Key int

// Entry is one indexed solid tile.
type Entry struct {
	Key      Key
	X, Y     int
	Collider Collider
	Tile     tilemap.TileType
}

// Index maps non-walkable tiles to rectangle colliders. It is built once
// per grid and read-only afterwards, so it may be shared across goroutines.
type Index struct {
	width, height int
	tileSize      float64
	entries       map[Key]Entry
}

// Build indexes every non-walkable cell of grid. Each collider is centred in
// its tile with side tileSize*shrink.
func Build(grid *tilemap.Grid, tileSize, shrink float64) *Index {
	idx := &Index{
		width:    grid.Width(),
		height:   grid.Height(),
		tileSize: tileSize,
		entries:  make(map[Key]Entry),
	}
	side := tileSize * shrink
	inset := (tileSize - side) / 2

	for x := 0; x < idx.width; x++ {
		for y := 0; y < idx.height; y++ {
			t, _ := grid.At(x, y)
			if t.Walkable() {
				continue
			}
			k := idx.Key(x, y)
			idx.entries[k] = Entry{
				Key: k,
				X:   x,
				Y:   y,
				Collider: NewRect(Rect{
					X: float64(x)*tileSize + inset,
					Y: float64(y)*tileSize + inset,
					W: side,
					H: side,
				}),
				Tile: t,
			}
		}
	}
	return idx
}

// Key returns the packed key for tile (x, y).
func (idx *Index) Key(x, y int) Key { return Key(x*idx.height + y) }

// Len returns the number of indexed colliders.
func (idx *Index) Len() int { return len(idx.entries) }

// TileSize returns the world size of one tile.
func (idx *Index) TileSize() float64 { return idx.tileSize }

// Get returns the entry for tile (x, y), if that tile is solid.
func (idx *Index) Get(x, y int) (Entry, bool) {
	if x < 0 || y < 0 || x >= idx.width || y >= idx.height {
		return Entry{}, false
	}
	e, ok := idx.entries[idx.Key(x, y)]
	return e, ok
}

// TileOf converts a world coordinate into tile coordinates. Results may be
// out of bounds.
func (idx *Index) TileOf(wx, wy float64) (int, int) {
	return int(math.Floor(wx / idx.tileSize)), int(math.Floor(wy / idx.tileSize))
}

// TileRange returns the inclusive tile range overlapping rect expanded by
// radius plus one tile of slack, clamped to the grid. ok is false when the
// range misses the grid entirely.
func (idx *Index) TileRange(rect Rect, radius float64) (x0, y0, x1, y1 int, ok bool) {
	r := rect.Expand(radius)
	x0 = int(math.Floor(r.X/idx.tileSize)) - 1
	y0 = int(math.Floor(r.Y/idx.tileSize)) - 1
	x1 = int(math.Floor((r.X+r.W)/idx.tileSize)) + 1
	y1 = int(math.Floor((r.Y+r.H)/idx.tileSize)) + 1

	x0, y0 = max(x0, 0), max(y0, 0)
	x1, y1 = min(x1, idx.width-1), min(y1, idx.height-1)
	return x0, y0, x1, y1, x0 <= x1 && y0 <= y1
}

// QueryInto appends to dst the entries whose tiles overlap rect expanded by
// radius plus one tile of slack. Cost is proportional to the queried area.
func (idx *Index) QueryInto(dst []Entry, rect Rect, radius float64) []Entry {
	x0, y0, x1, y1, ok := idx.TileRange(rect, radius)
	if !ok {
		return dst
	}
	for x := x0; x <= x1; x++ {
		for y := y0; y <= y1; y++ {
			if e, ok := idx.entries[idx.Key(x, y)]; ok {
				dst = append(dst, e)
			}
		}
	}
	return dst
}

// Blocked reports whether a circle at c overlaps any indexed collider.
func (idx *Index) Blocked(c r2.Vec, radius float64) bool {
	var buf [16]Entry
	for _, e := range idx.QueryInto(buf[:0], RectAround(c, 2*radius, 2*radius), 0) {
		if CircleIntersectsRect(c, radius, e.Collider.Rect()) {
			return true
		}
	}
	return false
}
