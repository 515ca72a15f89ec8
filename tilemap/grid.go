package tilemap

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidSize is returned for non-positive grid dimensions.
var ErrInvalidSize = errors.New("invalid grid size")

// Grid is a fixed-size 2-D array of tiles.
// Cells are stored column-major: index = x*height + y.
type Grid struct {
	width  int
	height int
	cells  []TileType
}

// NewGrid creates a grid filled with fill.
func NewGrid(width, height int, fill TileType) (*Grid, error) {
	if width < 1 || height < 1 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidSize, width, height)
	}
	if !fill.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownTile, fill)
	}
	cells := make([]TileType, width*height)
	for i := range cells {
		cells[i] = fill
	}
	return &Grid{width: width, height: height, cells: cells}, nil
}

// FromCells builds a grid from previously generated cell data, in the same
// column-major order returned by Cells.
func FromCells(width, height int, cells []TileType) (*Grid, error) {
	if width < 1 || height < 1 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidSize, width, height)
	}
	if len(cells) != width*height {
		return nil, fmt.Errorf("%w: %d cells for %dx%d", ErrInvalidSize, len(cells), width, height)
	}
	for i, t := range cells {
		if !t.Valid() {
			return nil, fmt.Errorf("%w: %d at cell %d", ErrUnknownTile, t, i)
		}
	}
	g := &Grid{width: width, height: height, cells: make([]TileType, len(cells))}
	copy(g.cells, cells)
	return g, nil
}

// Width returns the grid width in tiles.
func (g *Grid) Width() int { return g.width }

// Height returns the grid height in tiles.
func (g *Grid) Height() int { return g.height }

// Len returns the number of cells.
func (g *Grid) Len() int { return len(g.cells) }

// Index returns the packed index of (x, y). Callers must check InBounds.
func (g *Grid) Index(x, y int) int {
	return x*g.height + y
}

// InBounds reports whether (x, y) lies inside the grid.
func (g *Grid) InBounds(x, y int) bool {
	return x >= 0 && x < g.width && y >= 0 && y < g.height
}

// At returns the tile at (x, y) and false when out of bounds.
func (g *Grid) At(x, y int) (TileType, bool) {
	if !g.InBounds(x, y) {
		return 0, false
	}
	return g.cells[g.Index(x, y)], true
}

// Walkable reports whether (x, y) is walkable. Out of bounds is solid.
func (g *Grid) Walkable(x, y int) bool {
	t, ok := g.At(x, y)
	return ok && t.Walkable()
}

// Count returns how many cells hold t.
func (g *Grid) Count(t TileType) int {
	n := 0
	for _, c := range g.cells {
		if c == t {
			n++
		}
	}
	return n
}

// Counts returns per-type cell counts.
func (g *Grid) Counts() [NumTileTypes]int {
	var counts [NumTileTypes]int
	for _, c := range g.cells {
		counts[c]++
	}
	return counts
}

// Cells returns a copy of the cell data in column-major order.
func (g *Grid) Cells() []TileType {
	out := make([]TileType, len(g.cells))
	copy(out, g.cells)
	return out
}

// Clone returns a deep copy.
func (g *Grid) Clone() *Grid {
	return &Grid{width: g.width, height: g.height, cells: g.Cells()}
}

// Equal reports whether two grids have identical size and contents.
func (g *Grid) Equal(o *Grid) bool {
	if g.width != o.width || g.height != o.height {
		return false
	}
	for i := range g.cells {
		if g.cells[i] != o.cells[i] {
			return false
		}
	}
	return true
}

// String renders the grid one row per line using tile glyphs.
func (g *Grid) String() string {
	var sb strings.Builder
	sb.Grow((g.width + 1) * g.height)
	for y := 0; y < g.height; y++ {
		for x := 0; x < g.width; x++ {
			sb.WriteByte(g.cells[g.Index(x, y)].Glyph())
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// set writes a cell. Only generation phases call it, before publication.
func (g *Grid) set(x, y int, t TileType) {
	g.cells[g.Index(x, y)] = t
}

// neighbours8 lists the 8-connected offsets in a fixed order.
var neighbours8 = [8][2]int{
	{-1, -1}, {0, -1}, {1, -1},
	{-1, 0}, {1, 0},
	{-1, 1}, {0, 1}, {1, 1},
}

// neighbours4 lists the 4-connected offsets in a fixed order.
var neighbours4 = [4][2]int{{0, -1}, {-1, 0}, {1, 0}, {0, 1}}
