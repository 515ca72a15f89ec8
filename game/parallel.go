package game

import (
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/skirmish/components"
	"github.com/pthm-cable/skirmish/systems"
	"github.com/pthm-cable/skirmish/telemetry"
)

// pathDriftTiles is how far, in tiles, the end of a path may lie from the
// agent's target before the path is dropped.
const pathDriftTiles = 2

// ScheduleAgentUpdates snapshots every agent and starts a steering round
// toward reference. It returns false when the previous round is still in
// flight; the skip is reported by the next Tick.
func (g *Game) ScheduleAgentUpdates(reference r2.Vec, dt float64) bool {
	g.snapshots = g.snapshots[:0]

	query := g.agentFilter.Query()
	for query.Next() {
		pos, _, heading, body, agent, health := query.Get()
		if !health.Alive() {
			continue
		}
		g.snapshots = append(g.snapshots, systems.AgentSnapshot{
			Entity:   query.Entity(),
			ID:       agent.ID,
			Kind:     agent.Kind,
			Pos:      pos.Vec(),
			Heading:  heading.Angle,
			Radius:   body.Radius,
			Speed:    agent.Speed,
			Target:   agent.Target,
			Retarget: agent.Retarget,
		})
		if len(agent.Path) > 0 {
			snap := &g.snapshots[len(g.snapshots)-1]
			snap.Waypoint, snap.HasWaypoint = agent.Path[0], true
		}
	}

	if g.scheduler.Schedule(g.snapshots, reference, dt, g.terrain) {
		return true
	}
	g.collector.RecordRoundSkipped()
	g.pending = append(g.pending, Message{Kind: MsgRoundSkipped, Tick: g.tick})
	return false
}

// collectRound takes the latest finished round, if any, and applies it.
func (g *Game) collectRound() {
	round, ok := g.scheduler.Collect()
	if !ok {
		return
	}
	if round.Generation != g.generation {
		g.collector.RecordRoundStale()
		g.logger.Debug("dropping stale round",
			"round", round.ID,
			"round_generation", round.Generation,
			"generation", g.generation,
		)
		return
	}

	g.collector.RecordRound(len(round.Failed))
	for _, gi := range round.Failed {
		g.emit(Message{Kind: MsgRoundFailed, Round: round.ID, Group: round.Groups[gi]})
	}

	g.perfCollector.StartPhase(telemetry.PhaseApply)
	g.applyIntents(round)
}

// applyIntents writes a round's results to the agents it snapshotted.
// PrevPosition is overwritten once here, before the new position.
func (g *Game) applyIntents(round systems.Round) {
	for i := range round.Intents {
		in := &round.Intents[i]
		if !in.Valid {
			continue
		}
		snap := &round.Snapshots[i]
		if !g.world.Alive(snap.Entity) {
			continue
		}
		pos := g.posMap.Get(snap.Entity)
		prev := g.prevMap.Get(snap.Entity)
		agent := g.agentMap.Get(snap.Entity)

		prev.X, prev.Y = pos.X, pos.Y
		if in.Skipped {
			continue
		}

		var moved float64
		if in.Moved {
			moved = r2.Norm(r2.Sub(in.Pos, pos.Vec()))
			pos.Set(in.Pos)
			agent.Stuck = 0
		} else if in.Blocked {
			agent.Stuck++
		}
		g.headMap.Get(snap.Entity).Angle = in.Heading
		agent.Target = in.Target
		agent.Retarget = in.Retarget
		g.followPath(agent, snap, in, pos.Vec())

		g.lifetimeTracker.RecordMove(agent.ID, moved, in.Blocked)
	}
}

// followPath advances an agent along its path and drops a path whose end
// no longer leads to the target. An agent blocked for repath_after
// consecutive steps plans a new path.
func (g *Game) followPath(agent *components.Agent, snap *systems.AgentSnapshot, in *systems.Intent, pos r2.Vec) {
	if in.Reached && len(agent.Path) > 0 && agent.Path[0] == snap.Waypoint {
		agent.Path = agent.Path[1:]
	}
	if n := len(agent.Path); n > 0 && r2.Norm(r2.Sub(agent.Path[n-1], agent.Target)) > pathDriftTiles*g.terrain.TileSize() {
		agent.Path = nil
	}

	after := g.cfg.Agents.RepathAfter
	if after == 0 || agent.Stuck < after {
		return
	}
	agent.Stuck = 0
	agent.Path = g.planner.FindPath(pos, agent.Target)
	if agent.Path != nil {
		g.collector.RecordRepath()
	}
}
