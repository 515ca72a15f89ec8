package game

import (
	"errors"
	"fmt"
	"math"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/skirmish/components"
)

// spawnSearchRings bounds the ring search after random attempts fail.
const spawnSearchRings = 6

// ErrNoSpawnPoint is returned when no walkable position is found and
// unsafe spawns are disabled.
var ErrNoSpawnPoint = errors.New("no walkable spawn point")

// AgentParams describes an agent to spawn. Zero numeric fields use the
// configured defaults.
type AgentParams struct {
	Pos    r2.Vec
	Kind   components.AgentKind
	Speed  float64
	Radius float64
	Health float64
}

// withDefaults fills zero fields from config.
func (p AgentParams) withDefaults(g *Game) AgentParams {
	cfg := g.cfg.Agents
	if p.Speed == 0 {
		p.Speed = cfg.Speed
	}
	if p.Radius == 0 {
		p.Radius = cfg.Radius
	}
	if p.Health == 0 {
		p.Health = cfg.Health
	}
	return p
}

// SpawnAgent creates an agent at p.Pos. If the position is not walkable
// the spawn fails unless unsafe spawns are enabled.
func (g *Game) SpawnAgent(p AgentParams) (ecs.Entity, error) {
	p = p.withDefaults(g)
	if !g.terrain.CircleWalkable(p.Pos, p.Radius) {
		return g.spawnFallback(p)
	}
	return g.spawnEntity(p), nil
}

// SpawnAgentNear creates an agent at a random walkable position within
// spread of p.Pos, clear of other agents. It tries the configured number of
// random candidates, then the nearest open tile, then the unsafe fallback.
func (g *Game) SpawnAgentNear(p AgentParams, spread float64) (ecs.Entity, error) {
	p = p.withDefaults(g)
	centre := p.Pos

	for range g.cfg.Agents.SpawnAttempts {
		angle := g.rng.Float64() * 2 * math.Pi
		dist := math.Sqrt(g.rng.Float64()) * spread
		c := r2.Add(centre, r2.Vec{X: math.Cos(angle) * dist, Y: math.Sin(angle) * dist})
		if g.terrain.CircleWalkable(c, p.Radius) && !g.overlapsAgent(c, p.Radius) {
			p.Pos = c
			return g.spawnEntity(p), nil
		}
	}

	if open, ok := g.terrain.FindNearestOpen(centre, p.Radius, spawnSearchRings); ok {
		p.Pos = open
		return g.spawnEntity(p), nil
	}
	return g.spawnFallback(p)
}

// overlapsAgent reports whether a body at c would overlap a living agent.
func (g *Game) overlapsAgent(c r2.Vec, radius float64) bool {
	g.scratch = g.spatialGrid.QueryRadiusInto(g.scratch[:0], c, radius, ecs.Entity{})
	return len(g.scratch) > 0
}

// spawnFallback handles a spawn with no walkable position.
func (g *Game) spawnFallback(p AgentParams) (ecs.Entity, error) {
	if !g.cfg.Agents.AllowUnsafeSpawn {
		return ecs.Entity{}, fmt.Errorf("spawning at (%.1f, %.1f): %w", p.Pos.X, p.Pos.Y, ErrNoSpawnPoint)
	}
	g.logger.Warn("unsafe spawn",
		"x", p.Pos.X,
		"y", p.Pos.Y,
		"radius", p.Radius,
		"out_of_bounds", g.terrain.OutOfBounds(p.Pos),
	)
	return g.spawnEntity(p), nil
}

// SpawnInitialPopulation scatters the configured number of agents over
// the world. Roughly one in three is a skirter.
func (g *Game) SpawnInitialPopulation() int {
	w, h := g.terrain.Size()
	centre := r2.Vec{X: w / 2, Y: h / 2}
	spread := math.Hypot(w, h) / 2

	spawned := 0
	for range g.cfg.Agents.Initial {
		kind := components.KindChaser
		if g.rng.IntN(3) == 0 {
			kind = components.KindSkirter
		}
		if _, err := g.SpawnAgentNear(AgentParams{Pos: centre, Kind: kind}, spread); err != nil {
			g.logger.Warn("initial spawn failed", "error", err)
			continue
		}
		spawned++
	}
	return spawned
}

// spawnEntity creates the agent entity.
func (g *Game) spawnEntity(p AgentParams) ecs.Entity {
	id := g.nextID
	g.nextID++

	pos := components.Position{X: p.Pos.X, Y: p.Pos.Y}
	prev := components.PrevPosition{X: p.Pos.X, Y: p.Pos.Y}
	heading := components.Heading{Angle: g.rng.Float64() * 2 * math.Pi}
	body := components.Body{Radius: p.Radius}
	agent := components.Agent{
		ID:     id,
		Kind:   p.Kind,
		Speed:  p.Speed,
		Target: p.Pos,
	}
	health := components.Health{Value: p.Health, Max: p.Health}

	entity := g.agentMapper.NewEntity(&pos, &prev, &heading, &body, &agent, &health)
	g.spatialGrid.Insert(entity, id, p.Pos, p.Radius)

	g.collector.RecordSpawn()
	g.lifetimeTracker.Register(id, g.tick, p.Kind)

	return entity
}

// cleanupDead removes agents with no health left.
func (g *Game) cleanupDead() {
	// First pass: collect dead entities (must complete before modifying)
	type deadInfo struct {
		entity ecs.Entity
		id     uint32
	}
	var toRemove []deadInfo

	query := g.agentFilter.Query()
	for query.Next() {
		_, _, _, _, agent, health := query.Get()
		if !health.Alive() {
			toRemove = append(toRemove, deadInfo{entity: query.Entity(), id: agent.ID})
		}
	}

	// Second pass: remove entities (query iteration complete)
	for _, dead := range toRemove {
		g.world.RemoveEntity(dead.entity)

		stats := g.lifetimeTracker.Remove(dead.id, g.tick, g.cfg.Physics.DT)
		if err := g.outputManager.WriteLifetime(stats); err != nil {
			g.logger.Error("failed to write lifetime", "error", err)
		}
	}
}
