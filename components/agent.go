package components

import "gonum.org/v1/gonum/spatial/r2"

// AgentKind distinguishes agent behaviours.
type AgentKind uint8

const (
	KindChaser  AgentKind = iota // Closes on the reference position
	KindSkirter                  // Holds at stop distance
)

func (k AgentKind) String() string {
	switch k {
	case KindChaser:
		return "chaser"
	case KindSkirter:
		return "skirter"
	}
	return "unknown"
}

// Agent holds autonomous movement state.
type Agent struct {
	ID       uint32
	Kind     AgentKind
	Speed    float64 // world units per second
	Target   r2.Vec
	Retarget float64  // seconds until the target is re-evaluated
	Stuck    int      // consecutive ticks the agent failed to move
	Path     []r2.Vec // waypoints around terrain, nearest first
}
