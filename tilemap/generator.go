package tilemap

import (
	"fmt"
	"math/rand/v2"
	"time"

	"gonum.org/v1/gonum/floats"
)

// seedMix decorrelates the two PCG state words derived from one seed.
const seedMix = 0x9e3779b97f4a7c15

// NewRand returns the generator's random source for seed.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^seedMix))
}

// Generator produces tile grids from a seed.
// It holds no random state between calls; a Generator is safe for
// concurrent use.
type Generator struct {
	rules Rules
	// edges[c] is the cumulative transition row for c, prefixed with 0.
	edges [NumTileTypes][]float64
}

// Report summarises one generation run.
type Report struct {
	Seed             uint64
	Width, Height    int
	Initial          TileType
	PreCleanup       [NumTileTypes]int
	PostCleanup      [NumTileTypes]int
	UnvisitedFilled  int
	SmoothingChanges int
	RegionsRemoved   int
	CellsReassigned  int
	Elapsed          time.Duration
}

// NewGenerator validates rules and precomputes sampling tables.
func NewGenerator(rules Rules) (*Generator, error) {
	if err := rules.Validate(); err != nil {
		return nil, err
	}
	g := &Generator{rules: rules}
	for c := range g.edges {
		edges := make([]float64, NumTileTypes+1)
		floats.CumSum(edges[1:], rules.Transitions[c][:])
		g.edges[c] = edges
	}
	return g, nil
}

// Rules returns the generator's rules.
func (g *Generator) Rules() Rules {
	return g.rules
}

// Generate creates a grid with DefaultRules.
func Generate(width, height int, seed uint64, initial TileType) (*Grid, error) {
	g, err := NewGenerator(DefaultRules())
	if err != nil {
		return nil, err
	}
	return g.Generate(width, height, seed, initial)
}

// Generate runs all three phases. The same arguments always yield the same
// grid. The centre cell is the growth anchor and always holds initial.
func (g *Generator) Generate(width, height int, seed uint64, initial TileType) (*Grid, error) {
	grid, _, err := g.GenerateWithReport(width, height, seed, initial)
	return grid, err
}

// GenerateWithReport is Generate plus a summary of each phase.
func (g *Generator) GenerateWithReport(width, height int, seed uint64, initial TileType) (*Grid, Report, error) {
	start := time.Now()
	report := Report{Seed: seed, Width: width, Height: height, Initial: initial}

	if !initial.Valid() {
		return nil, report, fmt.Errorf("initial tile: %w: %d", ErrUnknownTile, initial)
	}
	grid, err := NewGrid(width, height, initial)
	if err != nil {
		return nil, report, err
	}

	rng := NewRand(seed)
	anchor := grid.Index(width/2, height/2)

	// Phase A: stochastic seed growth
	report.UnvisitedFilled = g.grow(grid, rng, initial)

	// Phase B: cellular automaton smoothing
	report.SmoothingChanges = g.smooth(grid, anchor)
	report.PreCleanup = grid.Counts()

	// Phase C: small-region cleanup
	report.RegionsRemoved, report.CellsReassigned = cleanup(grid, g.rules.MinRegionSize, g.rules.Background, anchor)
	report.PostCleanup = grid.Counts()

	report.Elapsed = time.Since(start)
	return grid, report, nil
}

// sample draws the next tile type given the discovering cell's type.
func (g *Generator) sample(current TileType, rng *rand.Rand) TileType {
	edges := g.edges[current]
	u := rng.Float64() * edges[len(edges)-1]
	i := floats.Within(edges, u)
	if i < 0 {
		// u landed on the upper edge through rounding.
		i = lastBin(edges)
	}
	return TileType(i)
}

// lastBin returns the highest bin with non-zero width.
func lastBin(edges []float64) int {
	i := len(edges) - 2
	for i > 0 && edges[i+1] == edges[i] {
		i--
	}
	return i
}

// grow expands outward from the centre breadth-first over 8-neighbours.
// It returns how many cells had to be filled after the frontier ran out.
func (g *Generator) grow(grid *Grid, rng *rand.Rand, initial TileType) int {
	visited := make([]bool, grid.Len())
	queue := make([]int, 0, grid.Len())

	cx, cy := grid.width/2, grid.height/2
	start := grid.Index(cx, cy)
	grid.cells[start] = initial
	visited[start] = true
	queue = append(queue, start)

	for head := 0; head < len(queue); head++ {
		i := queue[head]
		x, y := i/grid.height, i%grid.height
		src := grid.cells[i]

		for _, d := range neighbours8 {
			nx, ny := x+d[0], y+d[1]
			if !grid.InBounds(nx, ny) {
				continue
			}
			ni := grid.Index(nx, ny)
			if visited[ni] {
				continue
			}
			visited[ni] = true
			grid.cells[ni] = g.sample(src, rng)
			queue = append(queue, ni)
		}
	}

	if len(queue) == grid.Len() {
		return 0
	}

	filled := 0
	var assigned [8]TileType
	for i := range visited {
		if visited[i] {
			continue
		}
		x, y := i/grid.height, i%grid.height
		n := 0
		for _, d := range neighbours8 {
			nx, ny := x+d[0], y+d[1]
			if grid.InBounds(nx, ny) && visited[grid.Index(nx, ny)] {
				assigned[n] = grid.cells[grid.Index(nx, ny)]
				n++
			}
		}
		if n == 0 {
			grid.cells[i] = initial
		} else {
			grid.cells[i] = assigned[rng.IntN(n)]
		}
		visited[i] = true
		filled++
	}
	return filled
}

// smooth runs the cellular automaton. Each iteration reads only the
// previous iteration's cells. The anchor cell keeps the initial type.
// Returns the total number of cell changes.
func (g *Generator) smooth(grid *Grid, anchor int) int {
	next := make([]TileType, grid.Len())
	var counts [NumTileTypes]float64
	changes := 0

	for iter := 0; iter < g.rules.Iterations; iter++ {
		for x := 0; x < grid.width; x++ {
			for y := 0; y < grid.height; y++ {
				i := grid.Index(x, y)
				cur := grid.cells[i]

				counts = [NumTileTypes]float64{}
				total := 0
				for _, d := range neighbours8 {
					nx, ny := x+d[0], y+d[1]
					if !grid.InBounds(nx, ny) {
						continue
					}
					counts[grid.cells[grid.Index(nx, ny)]]++
					total++
				}

				if i == anchor || total == 0 || g.rules.Survival[cur].Contains(int(counts[cur])) {
					next[i] = cur
					continue
				}
				// MaxIdx returns the first maximum, so ties go to the
				// earliest declared type.
				next[i] = TileType(floats.MaxIdx(counts[:]))
				if next[i] != cur {
					changes++
				}
			}
		}
		grid.cells, next = next, grid.cells
	}
	return changes
}
