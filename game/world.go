package game

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/skirmish/collision"
	"github.com/pthm-cable/skirmish/systems"
	"github.com/pthm-cable/skirmish/telemetry"
	"github.com/pthm-cable/skirmish/tilemap"
)

// relocateRings bounds the search for open ground when a new world
// buries an existing agent.
const relocateRings = 8

// ErrNilGrid is returned by LoadWorld for a nil grid.
var ErrNilGrid = errors.New("nil grid")

// ConfigureWorld generates and installs a new world with a seed drawn from
// the session RNG.
func (g *Game) ConfigureWorld(width, height int) (*tilemap.Grid, error) {
	return g.ConfigureWorldSeeded(width, height, g.rng.Uint64())
}

// ConfigureWorldSeeded generates and installs a new world from seed.
// Rounds in flight against the previous world are discarded on collect.
func (g *Game) ConfigureWorldSeeded(width, height int, seed uint64) (*tilemap.Grid, error) {
	grid, report, err := g.generator.GenerateWithReport(width, height, seed, g.initialTile)
	if err != nil {
		return nil, fmt.Errorf("configuring world: %w", err)
	}
	g.install(grid, seed)

	if err := g.outputManager.WriteGeneration(telemetry.NewGenerationRecord(g.tick, report)); err != nil {
		g.logger.Error("failed to write generation", "error", err)
	}
	g.logger.Info("world generated",
		"seed", seed,
		"width", width,
		"height", height,
		"generation", g.generation,
		"regions_removed", report.RegionsRemoved,
		"elapsed", report.Elapsed,
	)
	return grid, nil
}

// LoadWorld installs an externally persisted grid verbatim.
func (g *Game) LoadWorld(grid *tilemap.Grid) error {
	if grid == nil {
		return fmt.Errorf("loading world: %w", ErrNilGrid)
	}
	g.install(grid, 0)
	g.logger.Info("world loaded",
		"width", grid.Width(),
		"height", grid.Height(),
		"generation", g.generation,
	)
	return nil
}

// install replaces the terrain and rebuilds everything sized by it.
func (g *Game) install(grid *tilemap.Grid, seed uint64) {
	g.generation++
	g.terrain = systems.NewTerrainSystem(grid, g.cfg.World.TileSize, g.cfg.Collision.Shrink, g.generation)
	g.planner = systems.NewPathPlanner(g.terrain)
	w, h := g.terrain.Size()
	g.spatialGrid = systems.NewSpatialGrid(w, h, g.cfg.Collision.AgentGridCellSize)

	g.relocateAgents()
	g.updateSpatialGrid()

	g.collector.RecordRegeneration()
	g.pending = append(g.pending, Message{
		Kind:       MsgWorldRegenerated,
		Tick:       g.tick,
		Generation: g.generation,
		Seed:       seed,
	})
}

// relocateAgents moves agents left inside solid terrain to the nearest
// open ground and drops paths planned on the old terrain. Agents with no
// open ground nearby stay put.
func (g *Game) relocateAgents() {
	query := g.agentFilter.Query()
	for query.Next() {
		pos, prev, _, body, agent, _ := query.Get()
		agent.Path = nil
		agent.Stuck = 0
		p := pos.Vec()
		if g.terrain.CircleWalkable(p, body.Radius) {
			continue
		}
		open, ok := g.terrain.FindNearestOpen(p, body.Radius, relocateRings)
		if !ok {
			g.logger.Warn("agent buried by new world", "id", agent.ID, "x", p.X, "y", p.Y)
			continue
		}
		pos.Set(open)
		prev.X, prev.Y = open.X, open.Y
		agent.Target = open
		agent.Retarget = 0
	}
}

// ShouldRegenerate reports whether a resize from old to new dimensions is
// large enough to warrant a new world. Deltas below threshold in both
// dimensions are ignored.
func ShouldRegenerate(oldW, oldH, newW, newH, threshold int) bool {
	return abs(newW-oldW) >= threshold || abs(newH-oldH) >= threshold
}

// IsWalkable reports whether the tile under (x, y) is walkable.
// Out of bounds is not walkable.
func (g *Game) IsWalkable(x, y float64) bool {
	return g.terrain.IsWalkable(x, y)
}

// IsAreaWalkable reports whether rect lies inside the world and overlaps
// no terrain collider.
func (g *Game) IsAreaWalkable(rect collision.Rect) bool {
	return g.terrain.IsAreaWalkable(rect)
}

// IsCircleWalkable reports whether a circle fits without touching terrain.
func (g *Game) IsCircleWalkable(center r2.Vec, radius float64) bool {
	return g.terrain.CircleWalkable(center, radius)
}

// NearbyColliders returns the terrain colliders around (x, y).
func (g *Game) NearbyColliders(x, y float64) map[collision.Key]collision.Collider {
	return g.terrain.NearbyColliders(x, y)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
