package main

import (
	"math"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/pthm-cable/skirmish/config"
	"github.com/pthm-cable/skirmish/tilemap"
)

// Targets holds the desired post-cleanup terrain fractions. Negative
// values are not scored.
type Targets struct {
	Walkable float64
	Water    float64
	Stone    float64
}

// FitnessEvaluator generates worlds and scores them against targets.
type FitnessEvaluator struct {
	params     *ParamVector
	width      int
	height     int
	seeds      []uint64
	baseConfig *config.Config
	targets    Targets

	// Best run tracking
	mu          sync.Mutex
	lastQuality float64 // connectivity from most recent Evaluate call
}

// NewFitnessEvaluator creates a new evaluator.
func NewFitnessEvaluator(params *ParamVector, width, height int, seeds []uint64, baseCfg *config.Config, targets Targets) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:     params,
		width:      width,
		height:     height,
		seeds:      seeds,
		baseConfig: baseCfg,
		targets:    targets,
	}
}

// LastQuality returns the mean walkable connectivity from the most recent
// evaluation.
func (fe *FitnessEvaluator) LastQuality() float64 {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastQuality
}

// invalidFitness scores parameter vectors the generator rejects.
const invalidFitness = 1e6

// mapResult holds the measurements from one generated world.
type mapResult struct {
	walkable     float64 // fraction of walkable cells
	water        float64
	stone        float64
	connectivity float64 // largest walkable region / all walkable cells
}

// Evaluate computes fitness for a parameter vector (lower = better).
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	cfg := fe.copyConfig()
	fe.params.ApplyToConfig(cfg, x)

	rules, initial, err := tilemap.RulesFromConfig(cfg.Generation)
	if err != nil {
		return invalidFitness
	}
	gen, err := tilemap.NewGenerator(rules)
	if err != nil {
		return invalidFitness
	}

	// Generate all seeds in parallel
	results := make([]mapResult, len(fe.seeds))
	var eg errgroup.Group
	for i, seed := range fe.seeds {
		eg.Go(func() error {
			grid, err := gen.Generate(fe.width, fe.height, seed, initial)
			if err != nil {
				return err
			}
			results[i] = measure(grid)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return invalidFitness
	}

	var total, quality float64
	for _, r := range results {
		total += fe.score(r)
		quality += r.connectivity
	}
	n := float64(len(results))

	fe.mu.Lock()
	fe.lastQuality = quality / n
	fe.mu.Unlock()

	if math.IsNaN(total) {
		return invalidFitness
	}
	return total / n
}

// score is the squared fraction error plus the disconnected walkable share.
func (fe *FitnessEvaluator) score(r mapResult) float64 {
	var s float64
	if fe.targets.Walkable >= 0 {
		s += sq(r.walkable - fe.targets.Walkable)
	}
	if fe.targets.Water >= 0 {
		s += sq(r.water - fe.targets.Water)
	}
	if fe.targets.Stone >= 0 {
		s += sq(r.stone - fe.targets.Stone)
	}
	return 100*s + (1 - r.connectivity)
}

// measure computes terrain fractions and walkable connectivity.
func measure(grid *tilemap.Grid) mapResult {
	n := float64(grid.Len())
	counts := grid.Counts()

	var walkable int
	for t, c := range counts {
		if tilemap.TileType(t).Walkable() {
			walkable += c
		}
	}

	r := mapResult{
		walkable: float64(walkable) / n,
		water:    float64(counts[tilemap.Water]) / n,
		stone:    float64(counts[tilemap.Stone]) / n,
	}
	if walkable > 0 {
		r.connectivity = float64(largestWalkableRegion(grid)) / float64(walkable)
	}
	return r
}

// largestWalkableRegion returns the size of the biggest 4-connected
// walkable region, whatever its tile types.
func largestWalkableRegion(grid *tilemap.Grid) int {
	w, h := grid.Width(), grid.Height()
	seen := make([]bool, grid.Len())
	stack := make([]int, 0, 64)
	best := 0

	for start := range seen {
		x, y := start/h, start%h
		if seen[start] || !grid.Walkable(x, y) {
			continue
		}
		seen[start] = true
		stack = append(stack[:0], start)
		size := 0
		for len(stack) > 0 {
			i := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			size++
			cx, cy := i/h, i%h
			for _, d := range [4][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}} {
				nx, ny := cx+d[0], cy+d[1]
				if nx < 0 || ny < 0 || nx >= w || ny >= h {
					continue
				}
				j := grid.Index(nx, ny)
				if !seen[j] && grid.Walkable(nx, ny) {
					seen[j] = true
					stack = append(stack, j)
				}
			}
		}
		best = max(best, size)
	}
	return best
}

// copyConfig creates a copy of the base config.
func (fe *FitnessEvaluator) copyConfig() *config.Config {
	cfg := *fe.baseConfig
	return &cfg
}

func sq(v float64) float64 { return v * v }
