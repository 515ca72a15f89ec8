package game

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/skirmish/components"
	"github.com/pthm-cable/skirmish/systems"
)

// ErrProjectileLimit is returned when max_active projectiles are in flight.
var ErrProjectileLimit = errors.New("projectile limit reached")

// SpawnParams describes a projectile launch. Zero numeric fields use the
// configured defaults; a zero Dir launches along +X.
type SpawnParams struct {
	Pos    r2.Vec
	Dir    r2.Vec
	Speed  float64
	Radius float64
	Damage float64
	TTL    float64
	Owner  uint32 // shooter's agent ID, 0 for the player
}

// ProjectileHandle refers to one launch of a pooled projectile. Once the
// projectile returns to the pool the handle goes stale, even if the same
// object is launched again.
type ProjectileHandle struct {
	p   *components.Projectile
	gen uint32
}

// Get returns the projectile while this launch is still in flight.
func (h ProjectileHandle) Get() (*components.Projectile, bool) {
	if h.p == nil || h.p.Gen != h.gen || !h.p.Active {
		return nil, false
	}
	return h.p, true
}

// AcquireProjectile takes a projectile from the pool and launches it. The
// projectile is integrated by Tick until it hits, is blocked, leaves the
// world or expires, at which point it returns to the pool.
func (g *Game) AcquireProjectile(sp SpawnParams) (ProjectileHandle, error) {
	cfg := g.cfg.Projectiles
	if cfg.MaxActive > 0 && len(g.active) >= cfg.MaxActive {
		return ProjectileHandle{}, ErrProjectileLimit
	}

	p, err := g.projectiles.Acquire()
	if err != nil {
		return ProjectileHandle{}, fmt.Errorf("acquiring projectile: %w", err)
	}

	speed := valueOr(sp.Speed, cfg.Speed)
	dir := sp.Dir
	if n := r2.Norm(dir); n > 0 {
		dir = r2.Scale(1/n, dir)
	} else {
		dir = r2.Vec{X: 1}
	}

	*p = components.Projectile{
		Pos:    sp.Pos,
		Prev:   sp.Pos,
		Vel:    r2.Scale(speed, dir),
		Radius: valueOr(sp.Radius, cfg.Radius),
		Damage: valueOr(sp.Damage, cfg.Damage),
		TTL:    valueOr(sp.TTL, cfg.TTL),
		Owner:  sp.Owner,
		Active: true,
		Gen:    p.Gen,
	}
	g.active = append(g.active, p)

	g.collector.RecordShot()
	g.lifetimeTracker.RecordShot(sp.Owner)
	return ProjectileHandle{p: p, gen: p.Gen}, nil
}

// ReleaseProjectile returns an in-flight projectile to the pool. Stale
// handles, including ones whose projectile Tick already retired, are
// ignored.
func (g *Game) ReleaseProjectile(h ProjectileHandle) {
	p, ok := h.Get()
	if !ok {
		return
	}
	for i, a := range g.active {
		if a == p {
			g.releaseAt(i)
			return
		}
	}
}

// ActiveProjectiles returns the number of projectiles in flight.
func (g *Game) ActiveProjectiles() int { return len(g.active) }

// releaseAt swap-removes active[i] and returns it to the pool.
func (g *Game) releaseAt(i int) {
	p := g.active[i]
	last := len(g.active) - 1
	g.active[i] = g.active[last]
	g.active[last] = nil
	g.active = g.active[:last]
	g.projectiles.Release(p)
}

// updateProjectiles advances every projectile and resolves collisions.
func (g *Game) updateProjectiles(dt float64) {
	for i := 0; i < len(g.active); {
		p := g.active[i]
		p.Advance(dt)

		var res systems.ProjectileResult
		res, g.scratch = systems.ResolveProjectile(p, g.terrain, g.spatialGrid, g.scratch)

		switch res.Outcome {
		case systems.OutcomeFlying:
			i++
			continue
		case systems.OutcomeHit:
			g.applyHit(p, res.Target)
		case systems.OutcomeBlocked:
			g.collector.RecordBlocked()
			g.emit(Message{Kind: MsgProjectileBlocked, Owner: p.Owner, Pos: p.Pos, Tile: res.Wall.Tile})
		case systems.OutcomeOutOfBounds:
			g.collector.RecordOutOfBounds()
			g.emit(Message{Kind: MsgProjectileOutOfBounds, Owner: p.Owner, Pos: p.Pos})
		case systems.OutcomeExpired:
			g.collector.RecordExpired()
			g.emit(Message{Kind: MsgProjectileExpired, Owner: p.Owner, Pos: p.Pos})
		}
		g.releaseAt(i)
	}
}

// applyHit damages the struck agent.
func (g *Game) applyHit(p *components.Projectile, target systems.Neighbor) {
	g.collector.RecordHit()
	g.lifetimeTracker.RecordHit(p.Owner)
	g.emit(Message{
		Kind:    MsgProjectileHit,
		Entity:  target.E,
		AgentID: target.ID,
		Owner:   p.Owner,
		Pos:     p.Pos,
		Damage:  p.Damage,
	})

	if !g.world.Alive(target.E) {
		return
	}
	health := g.healthMap.Get(target.E)
	wasAlive := health.Alive()
	lethal := health.Apply(p.Damage)
	if wasAlive {
		g.lifetimeTracker.RecordDamage(target.ID, p.Damage)
	}
	if !lethal {
		return
	}

	// Later projectiles this tick must not hit the corpse.
	g.spatialGrid.Remove(target.E, target.Pos)

	g.collector.RecordKill()
	g.lifetimeTracker.RecordKill(p.Owner)
	g.emit(Message{
		Kind:    MsgAgentKilled,
		Entity:  target.E,
		AgentID: target.ID,
		Owner:   p.Owner,
		Pos:     target.Pos,
	})
}

func valueOr(v, fallback float64) float64 {
	if v == 0 {
		return fallback
	}
	return v
}
