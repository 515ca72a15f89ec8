package systems

import (
	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/skirmish/components"
	"github.com/pthm-cable/skirmish/config"
)

// skirterStandoff multiplies the stop distance for KindSkirter agents.
const skirterStandoff = 4

// Walkability is the read-only terrain view agents steer against.
type Walkability interface {
	CircleWalkable(center r2.Vec, radius float64) bool
	Generation() uint64
}

// SteerParams holds steering thresholds.
type SteerParams struct {
	VisibilityBound float64
	NearDistance    float64
	FarDistance     float64
	NearInterval    float64
	MidInterval     float64
	FarInterval     float64
	StopDistance    float64
}

// SteerParamsFromConfig extracts steering thresholds from cfg.
func SteerParamsFromConfig(cfg *config.Config) SteerParams {
	s := cfg.Scheduler
	return SteerParams{
		VisibilityBound: cfg.Derived.VisibilityBound,
		NearDistance:    s.NearDistance,
		FarDistance:     s.FarDistance,
		NearInterval:    s.NearInterval,
		MidInterval:     s.MidInterval,
		FarInterval:     s.FarInterval,
		StopDistance:    s.StopDistance,
	}
}

// AgentSnapshot captures read-only agent state for one scheduling round.
type AgentSnapshot struct {
	Entity   ecs.Entity
	ID       uint32
	Kind     components.AgentKind
	Pos      r2.Vec
	Heading  float64
	Radius   float64
	Speed    float64
	Target   r2.Vec
	Retarget float64

	Waypoint    r2.Vec // first path waypoint, steered to before Target
	HasWaypoint bool
}

// Intent captures a steering result to apply on the tick goroutine.
type Intent struct {
	Valid    bool // false for dropped groups
	Skipped  bool // outside the visibility bound
	Moved    bool
	Blocked  bool // no walkable step, including slides
	Reached  bool // the snapshot's waypoint is within reach
	Pos      r2.Vec
	Heading  float64
	Target   r2.Vec
	Retarget float64
}

// RetargetInterval returns how long an agent at dist from the reference
// waits before re-evaluating its target.
func RetargetInterval(dist float64, p SteerParams) float64 {
	switch {
	case dist < p.NearDistance:
		return p.NearInterval
	case dist < p.FarDistance:
		return p.MidInterval
	default:
		return p.FarInterval
	}
}

// SteerAgent advances one agent toward its target. It reads only its
// arguments and is safe to call from worker goroutines.
func SteerAgent(snap *AgentSnapshot, ref r2.Vec, dt float64, walk Walkability, p SteerParams) Intent {
	out := Intent{
		Valid:    true,
		Pos:      snap.Pos,
		Heading:  snap.Heading,
		Target:   snap.Target,
		Retarget: snap.Retarget,
	}

	distRef := r2.Norm(r2.Sub(ref, snap.Pos))
	if distRef > p.VisibilityBound {
		out.Skipped = true
		return out
	}

	out.Retarget -= dt
	if out.Retarget <= 0 {
		out.Target = ref
		out.Retarget = RetargetInterval(distRef, p)
	}

	goal, stop := out.Target, p.StopDistance
	if snap.Kind == components.KindSkirter {
		stop *= skirterStandoff
	}
	if snap.HasWaypoint {
		if r2.Norm(r2.Sub(snap.Waypoint, snap.Pos)) <= snap.Radius {
			out.Reached = true
		} else {
			goal, stop = snap.Waypoint, 0
		}
	}

	toTarget := r2.Sub(goal, snap.Pos)
	dist := r2.Norm(toTarget)
	if dist <= stop {
		out.Heading = headingOf(toTarget, snap.Heading)
		return out
	}

	stepLen := min(snap.Speed*dt, dist-stop)
	step := r2.Scale(stepLen, unit(toTarget))

	next, ok := slide(snap.Pos, step, snap.Radius, walk)
	if !ok {
		out.Blocked = true
		out.Heading = headingOf(toTarget, snap.Heading)
		return out
	}
	out.Pos = next
	out.Moved = true
	out.Heading = headingOf(r2.Sub(next, snap.Pos), snap.Heading)
	return out
}

// slide tries the full step, then each axis alone.
func slide(pos, step r2.Vec, radius float64, walk Walkability) (r2.Vec, bool) {
	candidates := [3]r2.Vec{
		r2.Add(pos, step),
		{X: pos.X + step.X, Y: pos.Y},
		{X: pos.X, Y: pos.Y + step.Y},
	}
	for i, c := range candidates {
		if i > 0 && c == pos {
			continue
		}
		if walk.CircleWalkable(c, radius) {
			return c, true
		}
	}
	return pos, false
}
