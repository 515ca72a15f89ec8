package game

import (
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/skirmish/telemetry"
)

// Tick runs one authoritative simulation step and returns the messages it
// produced, along with any produced since the previous tick.
func (g *Game) Tick(dt float64) []Message {
	return g.step(dt, nil)
}

// Update is Tick followed by scheduling the next steering round toward
// reference, timed as one tick.
func (g *Game) Update(reference r2.Vec, dt float64) []Message {
	return g.step(dt, &reference)
}

// step runs a single tick of the simulation.
func (g *Game) step(dt float64, reference *r2.Vec) []Message {
	g.perfCollector.StartTick()

	g.messages = append([]Message(nil), g.pending...)
	g.pending = g.pending[:0]

	// 1. Apply the latest finished steering round
	g.perfCollector.StartPhase(telemetry.PhaseCollect)
	g.collectRound()

	// 2. Rebuild the agent broadphase
	g.perfCollector.StartPhase(telemetry.PhaseSpatialGrid)
	g.updateSpatialGrid()

	// 3. Move projectiles and resolve hits
	g.perfCollector.StartPhase(telemetry.PhaseProjectiles)
	g.updateProjectiles(dt)

	// 4. Remove dead agents
	g.perfCollector.StartPhase(telemetry.PhaseCleanup)
	g.cleanupDead()

	// 5. Start the next round
	if reference != nil {
		g.perfCollector.StartPhase(telemetry.PhaseSchedule)
		g.ScheduleAgentUpdates(*reference, dt)
	}

	g.tick++

	// 6. Telemetry
	g.perfCollector.StartPhase(telemetry.PhaseTelemetry)
	g.flushTelemetry()

	g.perfCollector.EndTick()
	return g.messages
}

// emit records a message for the current tick.
func (g *Game) emit(m Message) {
	m.Tick = g.tick
	g.messages = append(g.messages, m)
}

// updateSpatialGrid rebuilds the spatial index.
func (g *Game) updateSpatialGrid() {
	g.spatialGrid.Clear()

	query := g.agentFilter.Query()
	for query.Next() {
		pos, _, _, body, agent, health := query.Get()

		if health.Alive() {
			g.spatialGrid.Insert(query.Entity(), agent.ID, pos.Vec(), body.Radius)
		}
	}
}
