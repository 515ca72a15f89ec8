package components

import "gonum.org/v1/gonum/spatial/r2"

// Projectile is a pooled, fast-moving body. It is not an ECS entity:
// projectiles churn too quickly to be worth archetype moves.
type Projectile struct {
	Pos    r2.Vec
	Prev   r2.Vec
	Vel    r2.Vec
	Radius float64
	Damage float64
	TTL    float64 // seconds remaining
	Owner  uint32  // Agent.ID of the shooter, 0 for the player
	Active bool
	Gen    uint32 // bumped on every Reset; stale handles compare unequal
}

// Reset clears the projectile for reuse and advances its generation.
func (p *Projectile) Reset() {
	*p = Projectile{Gen: p.Gen + 1}
}

// Advance records the previous position then integrates velocity over dt.
func (p *Projectile) Advance(dt float64) {
	p.Prev = p.Pos
	p.Pos = r2.Add(p.Pos, r2.Scale(dt, p.Vel))
	p.TTL -= dt
}
