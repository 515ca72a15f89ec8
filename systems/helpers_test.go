package systems

import (
	"testing"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/skirmish/tilemap"
)

var glyphTiles = map[byte]tilemap.TileType{
	'.': tilemap.Grass,
	':': tilemap.Dirt,
	'~': tilemap.Water,
	'#': tilemap.Stone,
	',': tilemap.Sand,
}

// gridFromRows builds a grid from rows of tile glyphs, top row first.
func gridFromRows(t *testing.T, rows ...string) *tilemap.Grid {
	t.Helper()
	h, w := len(rows), len(rows[0])
	cells := make([]tilemap.TileType, w*h)
	for y, row := range rows {
		for x := 0; x < w; x++ {
			tt, ok := glyphTiles[row[x]]
			if !ok {
				t.Fatalf("unknown glyph %q", row[x])
			}
			cells[x*h+y] = tt
		}
	}
	grid, err := tilemap.FromCells(w, h, cells)
	if err != nil {
		t.Fatalf("FromCells: %v", err)
	}
	return grid
}

// stubWalk is a Walkability backed by a predicate.
type stubWalk struct {
	blocked func(r2.Vec) bool
	gen     uint64
}

func (w stubWalk) CircleWalkable(c r2.Vec, _ float64) bool {
	return w.blocked == nil || !w.blocked(c)
}

func (w stubWalk) Generation() uint64 { return w.gen }

func vec(x, y float64) r2.Vec { return r2.Vec{X: x, Y: y} }
