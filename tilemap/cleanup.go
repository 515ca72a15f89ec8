package tilemap

import "gonum.org/v1/gonum/floats"

// regionWalker holds scratch buffers for flood fills over one grid.
type regionWalker struct {
	grid  *Grid
	seen  []bool
	stamp []uint32 // border de-duplication, compared against cur
	cur   uint32
	stack []int
	comp  []int
}

func newRegionWalker(grid *Grid) *regionWalker {
	return &regionWalker{
		grid:  grid,
		seen:  make([]bool, grid.Len()),
		stamp: make([]uint32, grid.Len()),
	}
}

// flood collects the 4-connected component of type t containing start
// into w.comp, marking every member seen.
func (w *regionWalker) flood(start int, t TileType) []int {
	g := w.grid
	w.comp = w.comp[:0]
	w.stack = append(w.stack[:0], start)
	w.seen[start] = true

	for len(w.stack) > 0 {
		i := w.stack[len(w.stack)-1]
		w.stack = w.stack[:len(w.stack)-1]
		w.comp = append(w.comp, i)

		x, y := i/g.height, i%g.height
		for _, d := range neighbours4 {
			nx, ny := x+d[0], y+d[1]
			if !g.InBounds(nx, ny) {
				continue
			}
			ni := g.Index(nx, ny)
			if w.seen[ni] || g.cells[ni] != t {
				continue
			}
			w.seen[ni] = true
			w.stack = append(w.stack, ni)
		}
	}
	return w.comp
}

// dominantBorder returns the most common type among distinct cells
// 4-adjacent to comp. ok is false when comp has no border (it fills the grid).
func (w *regionWalker) dominantBorder(comp []int, t TileType) (TileType, bool) {
	g := w.grid
	w.cur++
	var counts [NumTileTypes]float64
	total := 0

	for _, i := range comp {
		x, y := i/g.height, i%g.height
		for _, d := range neighbours4 {
			nx, ny := x+d[0], y+d[1]
			if !g.InBounds(nx, ny) {
				continue
			}
			ni := g.Index(nx, ny)
			if g.cells[ni] == t || w.stamp[ni] == w.cur {
				continue
			}
			w.stamp[ni] = w.cur
			counts[g.cells[ni]]++
			total++
		}
	}
	if total == 0 {
		return 0, false
	}
	return TileType(floats.MaxIdx(counts[:])), true
}

// cleanup reassigns every non-background component smaller than minSize
// to its dominant bordering type. Passes repeat until nothing changes; each
// reassignment merges two components, so the loop terminates and a second
// call is a no-op. The component containing anchor (-1 for none) is never
// reassigned. Returns regions removed and cells reassigned.
func cleanup(grid *Grid, minSize int, background TileType, anchor int) (regions, cells int) {
	if minSize <= 1 {
		return 0, 0
	}
	w := newRegionWalker(grid)

	for {
		changed := 0
		clear(w.seen)

		for t := TileType(0); t < NumTileTypes; t++ {
			if t == background {
				continue
			}
			for i := range grid.cells {
				if w.seen[i] || grid.cells[i] != t {
					continue
				}
				comp := w.flood(i, t)
				if len(comp) >= minSize || contains(comp, anchor) {
					continue
				}
				target, ok := w.dominantBorder(comp, t)
				if !ok {
					continue
				}
				for _, c := range comp {
					grid.cells[c] = target
					// Reassigned cells join target's component; let a later
					// flood of target walk through them.
					w.seen[c] = false
				}
				changed++
				cells += len(comp)
			}
		}

		regions += changed
		if changed == 0 {
			return regions, cells
		}
	}
}

// RegionSizes returns the size of every 4-connected component of t.
func (g *Grid) RegionSizes(t TileType) []int {
	w := newRegionWalker(g)
	var sizes []int
	for i := range g.cells {
		if w.seen[i] || g.cells[i] != t {
			continue
		}
		sizes = append(sizes, len(w.flood(i, t)))
	}
	return sizes
}

func contains(s []int, v int) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}
