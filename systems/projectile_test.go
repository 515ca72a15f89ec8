package systems

import (
	"testing"

	"github.com/pthm-cable/skirmish/components"
)

// openArena returns a 10x10 grass terrain with 32 unit tiles and a stone
// tile at column 5, row 0.
func openArena(t *testing.T) *TerrainSystem {
	t.Helper()
	rows := []string{
		".....#....",
		"..........",
		"..........",
		"..........",
		"..........",
		"..........",
		"..........",
		"..........",
		"..........",
		"..........",
	}
	return NewTerrainSystem(gridFromRows(t, rows...), 32, 0.98, 1)
}

// TestResolveProjectileAgent verifies the swept hit against an agent at the path midpoint.
func TestResolveProjectileAgent(t *testing.T) {
	terrain := openArena(t)
	es := newEntities(t, 1)
	agents := NewSpatialGrid(320, 320, 64)
	agents.Insert(es[0], 1, vec(50, 40), 10)

	p := components.Projectile{Prev: vec(0, 40), Pos: vec(100, 40), Radius: 3, TTL: 1}
	res, _ := ResolveProjectile(&p, terrain, agents, nil)
	if res.Outcome != OutcomeHit || res.Target.ID != 1 {
		t.Fatalf("got %v target %d, want hit on agent 1", res.Outcome, res.Target.ID)
	}

	p = components.Projectile{Prev: vec(0, 40), Pos: vec(100, 90), Radius: 3, TTL: 1}
	if res, _ := ResolveProjectile(&p, terrain, agents, nil); res.Outcome != OutcomeFlying {
		t.Errorf("diagonal shot outcome = %v, want flying", res.Outcome)
	}

	p = components.Projectile{Prev: vec(0, 40), Pos: vec(100, 40), Radius: 3, TTL: 1, Owner: 1}
	if res, _ := ResolveProjectile(&p, terrain, agents, nil); res.Outcome == OutcomeHit {
		t.Error("projectile hit its owner")
	}
}

// TestResolveProjectileWallFirst verifies terrain in front of an agent shields it.
func TestResolveProjectileWallFirst(t *testing.T) {
	terrain := openArena(t)
	es := newEntities(t, 1)
	agents := NewSpatialGrid(320, 320, 64)
	agents.Insert(es[0], 1, vec(220, 16), 10)

	p := components.Projectile{Prev: vec(100, 16), Pos: vec(260, 16), Radius: 3, TTL: 1}
	res, _ := ResolveProjectile(&p, terrain, agents, nil)
	if res.Outcome != OutcomeBlocked {
		t.Fatalf("outcome = %v, want blocked", res.Outcome)
	}
	if res.Wall.X != 5 || res.Wall.Y != 0 {
		t.Errorf("wall = (%d, %d), want (5, 0)", res.Wall.X, res.Wall.Y)
	}

	// Agent in front of the wall is hit first.
	agents.Clear()
	agents.Insert(es[0], 1, vec(130, 16), 10)
	if res, _ := ResolveProjectile(&p, terrain, agents, nil); res.Outcome != OutcomeHit {
		t.Errorf("outcome = %v, want hit", res.Outcome)
	}
}

// TestResolveProjectileLifetime verifies expiry and leaving the world.
func TestResolveProjectileLifetime(t *testing.T) {
	terrain := openArena(t)
	agents := NewSpatialGrid(320, 320, 64)

	p := components.Projectile{Prev: vec(10, 100), Pos: vec(20, 100), Radius: 3, TTL: 0}
	if res, _ := ResolveProjectile(&p, terrain, agents, nil); res.Outcome != OutcomeExpired {
		t.Errorf("outcome = %v, want expired", res.Outcome)
	}

	p = components.Projectile{Prev: vec(310, 100), Pos: vec(330, 100), Radius: 3, TTL: 1}
	if res, _ := ResolveProjectile(&p, terrain, agents, nil); res.Outcome != OutcomeOutOfBounds {
		t.Errorf("outcome = %v, want out of bounds", res.Outcome)
	}
}
