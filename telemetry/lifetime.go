package telemetry

import "github.com/pthm-cable/skirmish/components"

// LifetimeStats tracks per-agent statistics over its lifetime.
type LifetimeStats struct {
	ID              uint32               `csv:"id"`
	Kind            components.AgentKind `csv:"-"`
	KindName        string               `csv:"kind"`
	SpawnTick       int64                `csv:"spawn_tick"`
	DeathTick       int64                `csv:"death_tick"`
	SurvivalTimeSec float64              `csv:"survival_sec"`

	// Combat
	Shots       int     `csv:"shots"`
	Hits        int     `csv:"hits"`
	Kills       int     `csv:"kills"`
	DamageTaken float64 `csv:"damage_taken"`

	// Movement
	Distance float64 `csv:"distance"`
	Blocked  int     `csv:"blocked_steps"` // steps with no walkable move
}

// LifetimeTracker manages per-agent lifetime statistics.
type LifetimeTracker struct {
	stats map[uint32]*LifetimeStats
}

// NewLifetimeTracker creates a new lifetime tracker.
func NewLifetimeTracker() *LifetimeTracker {
	return &LifetimeTracker{
		stats: make(map[uint32]*LifetimeStats),
	}
}

// Register creates lifetime stats for a newly spawned agent.
func (lt *LifetimeTracker) Register(id uint32, spawnTick int64, kind components.AgentKind) {
	lt.stats[id] = &LifetimeStats{
		ID:        id,
		Kind:      kind,
		KindName:  kind.String(),
		SpawnTick: spawnTick,
	}
}

// Get returns the lifetime stats for an agent, or nil if not found.
func (lt *LifetimeTracker) Get(id uint32) *LifetimeStats {
	return lt.stats[id]
}

// Remove finalises and removes an agent's stats.
func (lt *LifetimeTracker) Remove(id uint32, currentTick int64, dt float64) *LifetimeStats {
	s := lt.stats[id]
	if s == nil {
		return nil
	}
	delete(lt.stats, id)
	s.DeathTick = currentTick
	s.SurvivalTimeSec = float64(currentTick-s.SpawnTick) * dt
	return s
}

// RecordShot increments the shooter's shot count.
func (lt *LifetimeTracker) RecordShot(id uint32) {
	if s := lt.stats[id]; s != nil {
		s.Shots++
	}
}

// RecordHit increments the shooter's hit count.
func (lt *LifetimeTracker) RecordHit(id uint32) {
	if s := lt.stats[id]; s != nil {
		s.Hits++
	}
}

// RecordKill increments the shooter's kill count.
func (lt *LifetimeTracker) RecordKill(id uint32) {
	if s := lt.stats[id]; s != nil {
		s.Kills++
	}
}

// RecordDamage adds damage taken by the target.
func (lt *LifetimeTracker) RecordDamage(id uint32, amount float64) {
	if s := lt.stats[id]; s != nil {
		s.DamageTaken += amount
	}
}

// RecordMove adds travelled distance, or counts a blocked step.
func (lt *LifetimeTracker) RecordMove(id uint32, dist float64, blocked bool) {
	s := lt.stats[id]
	if s == nil {
		return
	}
	s.Distance += dist
	if blocked {
		s.Blocked++
	}
}

// Count returns the number of tracked agents.
func (lt *LifetimeTracker) Count() int {
	return len(lt.stats)
}
