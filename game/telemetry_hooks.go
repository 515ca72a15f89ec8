package game

import "github.com/pthm-cable/skirmish/telemetry"

// flushTelemetry checks if the stats window should be flushed.
func (g *Game) flushTelemetry() {
	if !g.collector.ShouldFlush(g.tick) {
		return
	}

	healths := g.sampleHealths()
	stats := g.collector.Flush(g.tick, healths, len(g.active), g.projectiles.Stats())
	perfStats := g.perfCollector.Stats()

	// Call stats callback if provided
	if g.statsCallback != nil {
		g.statsCallback(stats)
	}

	// Log stats if enabled (console output)
	if g.logStats {
		stats.LogStats()
		perfStats.LogStats()
	}

	// Write to CSV if output manager is enabled
	if err := g.outputManager.WriteTelemetry(stats); err != nil {
		g.logger.Error("failed to write telemetry", "error", err)
	}
	if err := g.outputManager.WritePerf(perfStats, stats.WindowEndTick); err != nil {
		g.logger.Error("failed to write perf", "error", err)
	}
}

// sampleHealths collects health values of living agents.
func (g *Game) sampleHealths() []float64 {
	var healths []float64
	query := g.agentFilter.Query()
	for query.Next() {
		_, _, _, _, _, health := query.Get()
		if health.Alive() {
			healths = append(healths, health.Value)
		}
	}
	return healths
}

// PerfStats returns timing aggregated over the perf window.
func (g *Game) PerfStats() telemetry.PerfStats {
	return g.perfCollector.Stats()
}
