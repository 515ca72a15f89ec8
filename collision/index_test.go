package collision

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pthm-cable/skirmish/tilemap"
)

func testGrid(t *testing.T) *tilemap.Grid {
	t.Helper()
	// 4x3, column-major.
	//   x: 0 1 2 3
	// y0:  . # . .
	// y1:  . . ~ .
	// y2:  # . . #
	G, S, W := tilemap.Grass, tilemap.Stone, tilemap.Water
	cells := []tilemap.TileType{
		G, G, S, // x=0
		S, G, G, // x=1
		G, W, G, // x=2
		G, G, S, // x=3
	}
	grid, err := tilemap.FromCells(4, 3, cells)
	require.NoError(t, err)
	return grid
}

func TestBuildIndexesSolidTilesOnly(t *testing.T) {
	idx := Build(testGrid(t), 32, 0.98)

	assert.Equal(t, 4, idx.Len())
	for _, tc := range []struct {
		x, y int
		tile tilemap.TileType
	}{
		{1, 0, tilemap.Stone},
		{2, 1, tilemap.Water},
		{0, 2, tilemap.Stone},
		{3, 2, tilemap.Stone},
	} {
		e, ok := idx.Get(tc.x, tc.y)
		require.True(t, ok, "tile %d,%d", tc.x, tc.y)
		assert.Equal(t, tc.tile, e.Tile)
		assert.Equal(t, Key(tc.x*3+tc.y), e.Key)
	}

	_, ok := idx.Get(0, 0)
	assert.False(t, ok, "walkable tile indexed")
	_, ok = idx.Get(-1, 0)
	assert.False(t, ok)
	_, ok = idx.Get(4, 0)
	assert.False(t, ok)
}

func TestBuildCentresShrunkCollider(t *testing.T) {
	idx := Build(testGrid(t), 32, 0.5)
	e, ok := idx.Get(1, 0)
	require.True(t, ok)

	r := e.Collider.Rect()
	assert.Equal(t, ShapeRect, e.Collider.Shape())
	assert.InDelta(t, 16, r.W, 1e-9)
	assert.InDelta(t, 40, r.X, 1e-9)
	assert.InDelta(t, 8, r.Y, 1e-9)
	assert.InDelta(t, 48, r.Center().X, 1e-9)
	assert.InDelta(t, 16, r.Center().Y, 1e-9)
}

func TestIndexSparsityMatchesGrid(t *testing.T) {
	for _, seed := range []uint64{1, 7, 42, 1234} {
		grid, err := tilemap.Generate(30, 20, seed, tilemap.Grass)
		require.NoError(t, err)

		idx := Build(grid, 16, 0.98)
		solid := 0
		for x := 0; x < grid.Width(); x++ {
			for y := 0; y < grid.Height(); y++ {
				if !grid.Walkable(x, y) {
					solid++
				}
			}
		}
		assert.Equal(t, solid, idx.Len(), "seed %d", seed)
	}
}

func TestTileRangeClamps(t *testing.T) {
	idx := Build(testGrid(t), 32, 0.98)

	tests := []struct {
		name           string
		rect           Rect
		radius         float64
		x0, y0, x1, y1 int
		ok             bool
	}{
		{"interior point gets slack", Rect{X: 48, Y: 48, W: 0, H: 0}, 0, 0, 0, 2, 2, true},
		{"radius widens range", Rect{X: 80, Y: 16, W: 0, H: 0}, 40, 0, 0, 3, 2, true},
		{"clamped at origin", Rect{X: -100, Y: -100, W: 110, H: 110}, 0, 0, 0, 1, 1, true},
		{"entirely outside", Rect{X: 1000, Y: 1000, W: 10, H: 10}, 5, 0, 0, 0, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x0, y0, x1, y1, ok := idx.TileRange(tt.rect, tt.radius)
			require.Equal(t, tt.ok, ok)
			if !ok {
				return
			}
			assert.Equal(t, [4]int{tt.x0, tt.y0, tt.x1, tt.y1}, [4]int{x0, y0, x1, y1})
		})
	}
}

func TestQueryIntoIsLocal(t *testing.T) {
	grid, err := tilemap.NewGrid(400, 400, tilemap.Stone)
	require.NoError(t, err)
	idx := Build(grid, 10, 1)
	require.Equal(t, 400*400, idx.Len())

	got := idx.QueryInto(nil, Rect{X: 2000, Y: 2000, W: 5, H: 5}, 0)
	// 5 unit rect inside one tile, plus one tile of slack each side.
	assert.Len(t, got, 9)
	for _, e := range got {
		assert.InDelta(t, 200, e.X, 1)
		assert.InDelta(t, 200, e.Y, 1)
	}

	assert.Empty(t, idx.QueryInto(nil, Rect{X: -500, Y: -500, W: 5, H: 5}, 0))
}

func TestQueryIntoReusesBuffer(t *testing.T) {
	idx := Build(testGrid(t), 32, 0.98)
	buf := make([]Entry, 0, 8)
	got := idx.QueryInto(buf, Rect{X: 0, Y: 0, W: 128, H: 96}, 0)
	assert.Len(t, got, 4)
	assert.Equal(t, cap(buf), cap(got))
}

func TestBlocked(t *testing.T) {
	idx := Build(testGrid(t), 32, 0.98)
	assert.True(t, idx.Blocked(v(48, 16), 4), "on stone")
	assert.False(t, idx.Blocked(v(16, 16), 4), "open grass")
	assert.True(t, idx.Blocked(v(29, 16), 4), "reaches into neighbouring stone")
	assert.False(t, idx.Blocked(v(27, 16), 4))
}
