package game

import (
	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/skirmish/systems"
	"github.com/pthm-cable/skirmish/tilemap"
)

// MessageKind identifies what a Message reports.
type MessageKind uint8

const (
	MsgProjectileHit MessageKind = iota
	MsgAgentKilled
	MsgProjectileExpired
	MsgProjectileBlocked
	MsgProjectileOutOfBounds
	MsgRoundSkipped
	MsgRoundFailed
	MsgWorldRegenerated
)

func (k MessageKind) String() string {
	switch k {
	case MsgProjectileHit:
		return "projectile_hit"
	case MsgAgentKilled:
		return "agent_killed"
	case MsgProjectileExpired:
		return "projectile_expired"
	case MsgProjectileBlocked:
		return "projectile_blocked"
	case MsgProjectileOutOfBounds:
		return "projectile_out_of_bounds"
	case MsgRoundSkipped:
		return "round_skipped"
	case MsgRoundFailed:
		return "round_failed"
	case MsgWorldRegenerated:
		return "world_regenerated"
	}
	return "unknown"
}

// Message is an event produced by the simulation. Which fields are set
// depends on Kind.
type Message struct {
	Kind MessageKind
	Tick int64

	// Agent events
	Entity  ecs.Entity
	AgentID uint32

	// Projectile events
	Owner  uint32
	Pos    r2.Vec
	Damage float64
	Tile   tilemap.TileType // MsgProjectileBlocked

	// Scheduler events
	Round uint64
	Group systems.Group // MsgRoundFailed

	// World events
	Generation uint64
	Seed       uint64
}
