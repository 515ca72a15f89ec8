package telemetry

import (
	"log/slog"
	"slices"

	"gonum.org/v1/gonum/stat"
)

// WindowStats holds aggregated statistics for a time window.
type WindowStats struct {
	WindowStartTick int64   `csv:"-"`
	WindowEndTick   int64   `csv:"window_end"`
	SimTimeSec      float64 `csv:"sim_time"`

	// Population at window end
	AgentsAlive       int `csv:"agents"`
	ProjectilesActive int `csv:"projectiles"`

	// Combat during window
	Spawns      int     `csv:"spawns"`
	Shots       int     `csv:"shots"`
	Hits        int     `csv:"hits"`
	Kills       int     `csv:"kills"`
	Blocked     int     `csv:"blocked"`
	Expired     int     `csv:"expired"`
	OutOfBounds int     `csv:"out_of_bounds"`
	HitRate     float64 `csv:"hit_rate"`

	// Scheduling
	RoundsCollected int `csv:"rounds_collected"`
	RoundsSkipped   int `csv:"rounds_skipped"`
	RoundsStale     int `csv:"rounds_stale"`
	GroupsFailed    int `csv:"groups_failed"`
	Regenerations   int `csv:"regenerations"`
	Repaths         int `csv:"repaths"`

	// Health distribution (sampled at window end)
	HealthMean float64 `csv:"health_mean"`
	HealthP10  float64 `csv:"health_p10"`
	HealthP50  float64 `csv:"health_p50"`
	HealthP90  float64 `csv:"health_p90"`

	// Projectile pool
	PoolCreated   int     `csv:"pool_created"`
	PoolReused    int     `csv:"pool_reused"`
	PoolFree      int     `csv:"pool_free"`
	PoolReuseRate float64 `csv:"pool_reuse_rate"`
}

// ComputeHealthStats returns the mean and the empirical 10th, 50th and
// 90th percentiles of values, or zeros when values is empty.
func ComputeHealthStats(values []float64) (mean, p10, p50, p90 float64) {
	if len(values) == 0 {
		return 0, 0, 0, 0
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)

	mean = stat.Mean(sorted, nil)
	p10 = stat.Quantile(0.10, stat.Empirical, sorted, nil)
	p50 = stat.Quantile(0.50, stat.Empirical, sorted, nil)
	p90 = stat.Quantile(0.90, stat.Empirical, sorted, nil)
	return mean, p10, p50, p90
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int64("window_start", s.WindowStartTick),
		slog.Int64("window_end", s.WindowEndTick),
		slog.Float64("sim_time", s.SimTimeSec),
		slog.Int("agents", s.AgentsAlive),
		slog.Int("projectiles", s.ProjectilesActive),
		slog.Int("spawns", s.Spawns),
		slog.Int("shots", s.Shots),
		slog.Int("hits", s.Hits),
		slog.Int("kills", s.Kills),
		slog.Int("blocked", s.Blocked),
		slog.Int("expired", s.Expired),
		slog.Int("out_of_bounds", s.OutOfBounds),
		slog.Float64("hit_rate", s.HitRate),
		slog.Int("rounds_collected", s.RoundsCollected),
		slog.Int("rounds_skipped", s.RoundsSkipped),
		slog.Int("rounds_stale", s.RoundsStale),
		slog.Int("groups_failed", s.GroupsFailed),
		slog.Int("regenerations", s.Regenerations),
		slog.Int("repaths", s.Repaths),
		slog.Float64("health_mean", s.HealthMean),
		slog.Float64("health_p50", s.HealthP50),
		slog.Int("pool_created", s.PoolCreated),
		slog.Int("pool_reused", s.PoolReused),
		slog.Float64("pool_reuse_rate", s.PoolReuseRate),
	)
}

// LogStats logs the window stats using slog.
func (s WindowStats) LogStats() {
	slog.Info("stats", "window", s)
}
