package systems

import (
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/skirmish/collision"
	"github.com/pthm-cable/skirmish/components"
)

// ProjectileOutcome is what happened to a projectile this tick.
type ProjectileOutcome uint8

const (
	OutcomeFlying ProjectileOutcome = iota
	OutcomeHit                      // struck an agent
	OutcomeBlocked                  // struck terrain that stops projectiles
	OutcomeExpired                  // TTL ran out
	OutcomeOutOfBounds
)

func (o ProjectileOutcome) String() string {
	switch o {
	case OutcomeFlying:
		return "flying"
	case OutcomeHit:
		return "hit"
	case OutcomeBlocked:
		return "blocked"
	case OutcomeExpired:
		return "expired"
	case OutcomeOutOfBounds:
		return "out_of_bounds"
	}
	return "unknown"
}

// ProjectileResult describes a resolved projectile.
type ProjectileResult struct {
	Outcome ProjectileOutcome
	Target  Neighbor        // valid for OutcomeHit
	Wall    collision.Entry // valid for OutcomeBlocked
}

// ResolveProjectile tests an advanced projectile's path this tick against
// agents and terrain. When both are crossed, whichever lies earlier along
// the path wins. scratch is reused for the broadphase and returned.
func ResolveProjectile(p *components.Projectile, terrain *TerrainSystem, agents *SpatialGrid, scratch []Neighbor) (ProjectileResult, []Neighbor) {
	var res ProjectileResult
	var haveHit bool
	agentT := 0.0
	dir := r2.Sub(p.Pos, p.Prev)
	dirLenSq := r2.Norm2(dir)

	along := func(c r2.Vec) float64 {
		if dirLenSq == 0 {
			return 0
		}
		return r2.Dot(r2.Sub(c, p.Prev), dir) / dirLenSq
	}

	scratch = agents.QuerySegmentInto(scratch[:0], p.Prev, p.Pos, p.Radius)
	for _, n := range scratch {
		if n.ID == p.Owner && p.Owner != 0 {
			continue
		}
		if !collision.SweptCircleVsCircle(p.Prev, p.Pos, p.Radius, n.Pos, n.Radius) {
			continue
		}
		if t := along(n.Pos); !haveHit || t < agentT {
			res.Target, agentT, haveHit = n, t, true
		}
	}

	if wall, ok := terrain.BlockProjectile(p.Prev, p.Pos, p.Radius); ok {
		if !haveHit || along(wall.Collider.Center()) < agentT {
			return ProjectileResult{Outcome: OutcomeBlocked, Wall: wall}, scratch
		}
	}
	if haveHit {
		res.Outcome = OutcomeHit
		return res, scratch
	}

	switch {
	case terrain.OutOfBounds(p.Pos):
		res.Outcome = OutcomeOutOfBounds
	case p.TTL <= 0:
		res.Outcome = OutcomeExpired
	}
	return res, scratch
}
