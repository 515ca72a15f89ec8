package tilemap

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/pthm-cable/skirmish/config"
)

// ErrInvalidRules is returned when generation rules are malformed.
var ErrInvalidRules = errors.New("invalid generation rules")

// Range is an inclusive [Min, Max] neighbour count.
type Range struct {
	Min, Max int
}

// Contains reports whether n lies in the range.
func (r Range) Contains(n int) bool {
	return n >= r.Min && n <= r.Max
}

// Rules parameterise the three generation phases.
type Rules struct {
	// Transitions[c][t] is P(next = t | current = c). Rows sum to 1.
	Transitions [NumTileTypes][NumTileTypes]float64
	// Survival[t] is the same-type neighbour range in which a t cell keeps its type.
	Survival      [NumTileTypes]Range
	Iterations    int
	MinRegionSize int
	// Background is exempt from region cleanup.
	Background TileType
}

// rowTolerance bounds how far a transition row may stray from summing to 1.
const rowTolerance = 1e-6

// DefaultRules returns the rules used when no config is supplied.
func DefaultRules() Rules {
	return Rules{
		Transitions: [NumTileTypes][NumTileTypes]float64{
			Grass: {Grass: 0.80, Dirt: 0.08, Water: 0.05, Stone: 0.04, Sand: 0.03},
			Dirt:  {Grass: 0.25, Dirt: 0.60, Water: 0.03, Stone: 0.08, Sand: 0.04},
			Water: {Grass: 0.05, Dirt: 0.02, Water: 0.75, Stone: 0.03, Sand: 0.15},
			Stone: {Grass: 0.10, Dirt: 0.15, Water: 0.02, Stone: 0.70, Sand: 0.03},
			Sand:  {Grass: 0.15, Dirt: 0.05, Water: 0.25, Stone: 0.05, Sand: 0.50},
		},
		Survival: [NumTileTypes]Range{
			Grass: {2, 8},
			Dirt:  {3, 8},
			Water: {3, 8},
			Stone: {3, 8},
			Sand:  {2, 8},
		},
		Iterations:    4,
		MinRegionSize: 4,
		Background:    Grass,
	}
}

// Validate checks every row and range. It never clamps.
func (r *Rules) Validate() error {
	if !r.Background.Valid() {
		return fmt.Errorf("%w: background %d", ErrUnknownTile, r.Background)
	}
	if r.Iterations < 0 || r.MinRegionSize < 0 {
		return fmt.Errorf("%w: negative iterations or region size", ErrInvalidRules)
	}
	for c := TileType(0); c < NumTileTypes; c++ {
		row := r.Transitions[c][:]
		if floats.Min(row) < 0 {
			return fmt.Errorf("%w: negative weight in %s row", ErrInvalidRules, c)
		}
		if sum := floats.Sum(row); math.Abs(sum-1) > rowTolerance {
			return fmt.Errorf("%w: %s row sums to %g", ErrInvalidRules, c, sum)
		}
		s := r.Survival[c]
		if s.Min < 0 || s.Max > 8 || s.Min > s.Max {
			return fmt.Errorf("%w: %s survival range [%d,%d]", ErrInvalidRules, c, s.Min, s.Max)
		}
	}
	return nil
}

// RulesFromConfig converts name-keyed config into rules and the initial tile.
// Rows and ranges missing from cfg keep their DefaultRules values.
func RulesFromConfig(cfg config.GenerationConfig) (Rules, TileType, error) {
	rules := DefaultRules()
	rules.Iterations = cfg.Iterations
	rules.MinRegionSize = cfg.MinRegionSize

	initial := Grass
	if cfg.InitialTile != "" {
		t, err := ParseTileType(cfg.InitialTile)
		if err != nil {
			return Rules{}, 0, fmt.Errorf("generation.initial_tile: %w", err)
		}
		initial = t
	}
	if cfg.Background != "" {
		t, err := ParseTileType(cfg.Background)
		if err != nil {
			return Rules{}, 0, fmt.Errorf("generation.background: %w", err)
		}
		rules.Background = t
	}

	for srcName, row := range cfg.Transitions {
		src, err := ParseTileType(srcName)
		if err != nil {
			return Rules{}, 0, fmt.Errorf("generation.transitions: %w", err)
		}
		var weights [NumTileTypes]float64
		for dstName, p := range row {
			dst, err := ParseTileType(dstName)
			if err != nil {
				return Rules{}, 0, fmt.Errorf("generation.transitions.%s: %w", srcName, err)
			}
			weights[dst] = p
		}
		rules.Transitions[src] = weights
	}

	for name, mm := range cfg.Survival {
		t, err := ParseTileType(name)
		if err != nil {
			return Rules{}, 0, fmt.Errorf("generation.survival: %w", err)
		}
		rules.Survival[t] = Range{Min: mm[0], Max: mm[1]}
	}

	if err := rules.Validate(); err != nil {
		return Rules{}, 0, err
	}
	return rules, initial, nil
}
