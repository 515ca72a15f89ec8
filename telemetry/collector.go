// Package telemetry provides window statistics, performance timing and CSV
// output for simulation runs.
package telemetry

import "github.com/pthm-cable/skirmish/pool"

// Collector accumulates events within time windows and produces WindowStats.
type Collector struct {
	windowDurationSec   float64
	windowDurationTicks int64
	dt                  float64

	// Current window tracking
	windowStartTick int64

	// Event counters for current window
	spawns          int
	shots           int
	hits            int
	kills           int
	blocked         int
	expired         int
	outOfBounds     int
	roundsCollected int
	roundsSkipped   int
	roundsStale     int
	groupsFailed    int
	regenerations   int
	repaths         int
}

// NewCollector creates a new stats collector.
// windowDurationSec: how long each stats window lasts in simulation seconds
// dt: seconds per tick (used for tick-to-time conversion)
func NewCollector(windowDurationSec, dt float64) *Collector {
	ticksPerWindow := int64(windowDurationSec / dt)
	if ticksPerWindow < 1 {
		ticksPerWindow = 1
	}

	return &Collector{
		windowDurationSec:   windowDurationSec,
		windowDurationTicks: ticksPerWindow,
		dt:                  dt,
	}
}

// RecordSpawn records an agent spawn.
func (c *Collector) RecordSpawn() { c.spawns++ }

// RecordShot records a projectile launch.
func (c *Collector) RecordShot() { c.shots++ }

// RecordHit records a projectile striking an agent.
func (c *Collector) RecordHit() { c.hits++ }

// RecordKill records an agent killed by a projectile.
func (c *Collector) RecordKill() { c.kills++ }

// RecordBlocked records a projectile stopped by terrain.
func (c *Collector) RecordBlocked() { c.blocked++ }

// RecordExpired records a projectile whose TTL ran out.
func (c *Collector) RecordExpired() { c.expired++ }

// RecordOutOfBounds records a projectile that left the world.
func (c *Collector) RecordOutOfBounds() { c.outOfBounds++ }

// RecordRound records a collected scheduler round and its failed groups.
func (c *Collector) RecordRound(failedGroups int) {
	c.roundsCollected++
	c.groupsFailed += failedGroups
}

// RecordRoundSkipped records a round refused because one was in flight.
func (c *Collector) RecordRoundSkipped() { c.roundsSkipped++ }

// RecordRoundStale records a round dropped because the terrain changed.
func (c *Collector) RecordRoundStale() { c.roundsStale++ }

// RecordRegeneration records a world regeneration.
func (c *Collector) RecordRegeneration() { c.regenerations++ }

// RecordRepath records a stuck agent planning a path around terrain.
func (c *Collector) RecordRepath() { c.repaths++ }

// ShouldFlush returns true if enough ticks have passed to flush the window.
func (c *Collector) ShouldFlush(currentTick int64) bool {
	return currentTick-c.windowStartTick >= c.windowDurationTicks
}

// Flush produces a WindowStats and resets counters for the next window.
// The caller must provide:
// - currentTick: the current simulation tick
// - healths: health values of living agents for percentile calculation
// - projectilesActive: projectiles in flight at window end
// - pool: projectile pool counters
func (c *Collector) Flush(currentTick int64, healths []float64, projectilesActive int, ps pool.Stats) WindowStats {
	var hitRate float64
	if c.shots > 0 {
		hitRate = float64(c.hits) / float64(c.shots)
	}
	var reuseRate float64
	if acquires := ps.Created + ps.Reused; acquires > 0 {
		reuseRate = float64(ps.Reused) / float64(acquires)
	}

	mean, p10, p50, p90 := ComputeHealthStats(healths)

	stats := WindowStats{
		WindowStartTick: c.windowStartTick,
		WindowEndTick:   currentTick,
		SimTimeSec:      float64(currentTick) * c.dt,

		AgentsAlive:       len(healths),
		ProjectilesActive: projectilesActive,

		Spawns:      c.spawns,
		Shots:       c.shots,
		Hits:        c.hits,
		Kills:       c.kills,
		Blocked:     c.blocked,
		Expired:     c.expired,
		OutOfBounds: c.outOfBounds,
		HitRate:     hitRate,

		RoundsCollected: c.roundsCollected,
		RoundsSkipped:   c.roundsSkipped,
		RoundsStale:     c.roundsStale,
		GroupsFailed:    c.groupsFailed,
		Regenerations:   c.regenerations,
		Repaths:         c.repaths,

		HealthMean: mean,
		HealthP10:  p10,
		HealthP50:  p50,
		HealthP90:  p90,

		PoolCreated:   ps.Created,
		PoolReused:    ps.Reused,
		PoolFree:      ps.Free,
		PoolReuseRate: reuseRate,
	}

	// Reset for next window
	*c = Collector{
		windowDurationSec:   c.windowDurationSec,
		windowDurationTicks: c.windowDurationTicks,
		dt:                  c.dt,
		windowStartTick:     currentTick,
	}

	return stats
}

// WindowDurationTicks returns the number of ticks per window.
func (c *Collector) WindowDurationTicks() int64 {
	return c.windowDurationTicks
}
