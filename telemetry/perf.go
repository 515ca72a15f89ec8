package telemetry

import (
	"log/slog"
	"slices"
	"time"
)

// Phase identifies one stage of the simulation step.
type Phase uint8

const (
	PhaseCollect     Phase = iota // apply the finished steering round
	PhaseApply                    // write intents back to agents
	PhaseSpatialGrid              // rebuild the agent broadphase
	PhaseProjectiles              // integrate and resolve projectiles
	PhaseCleanup                  // remove dead agents
	PhaseSchedule                 // snapshot agents and start a round
	PhaseTelemetry                // flush stats windows
	NumPhases
)

var phaseNames = [NumPhases]string{
	"collect", "apply_intents", "spatial_grid", "projectiles",
	"cleanup", "schedule", "telemetry",
}

func (p Phase) String() string {
	if p < NumPhases {
		return phaseNames[p]
	}
	return "unknown"
}

// PerfSample holds timing data for a single tick.
type PerfSample struct {
	TickDuration time.Duration
	Phases       [NumPhases]time.Duration
}

// PerfCollector tracks tick timing over a rolling window and counts ticks
// that overrun the frame budget. Recording does not allocate.
type PerfCollector struct {
	budget      time.Duration
	samples     []PerfSample
	writeIndex  int
	sampleCount int
	current     PerfSample
	tickStart   time.Time
	phaseStart  time.Time
	phase       Phase
	inPhase     bool
	sorted      []time.Duration // scratch for percentiles
	now         func() time.Time
}

// NewPerfCollector creates a collector averaging over windowSize ticks.
// A budget of zero disables overrun counting.
func NewPerfCollector(windowSize int, budget time.Duration) *PerfCollector {
	if windowSize < 1 {
		windowSize = 60
	}
	return &PerfCollector{
		budget:  budget,
		samples: make([]PerfSample, windowSize),
		sorted:  make([]time.Duration, 0, windowSize),
		now:     time.Now,
	}
}

// StartTick begins timing a new simulation tick.
func (p *PerfCollector) StartTick() {
	p.tickStart = p.now()
	p.current = PerfSample{}
	p.inPhase = false
}

// StartPhase ends the running phase, if any, and starts timing phase.
// A phase entered twice in one tick accumulates.
func (p *PerfCollector) StartPhase(phase Phase) {
	now := p.now()
	p.endPhase(now)
	p.phaseStart = now
	p.phase = phase
	p.inPhase = true
}

func (p *PerfCollector) endPhase(now time.Time) {
	if p.inPhase && p.phase < NumPhases {
		p.current.Phases[p.phase] += now.Sub(p.phaseStart)
	}
	p.inPhase = false
}

// EndTick finishes timing the current tick and records the sample.
func (p *PerfCollector) EndTick() {
	now := p.now()
	p.endPhase(now)
	p.current.TickDuration = now.Sub(p.tickStart)

	p.samples[p.writeIndex] = p.current
	p.writeIndex = (p.writeIndex + 1) % len(p.samples)
	if p.sampleCount < len(p.samples) {
		p.sampleCount++
	}
}

// PerfStats holds aggregated performance statistics.
type PerfStats struct {
	Samples int

	// Tick timing
	AvgTickDuration time.Duration
	MinTickDuration time.Duration
	MaxTickDuration time.Duration
	P95TickDuration time.Duration

	// Ticks in the window longer than the budget
	Budget     time.Duration
	OverBudget int

	// Average duration and share of tick time per phase
	PhaseAvg [NumPhases]time.Duration
	PhasePct [NumPhases]float64

	TicksPerSecond float64
}

// Stats computes aggregated statistics over the current window.
func (p *PerfCollector) Stats() PerfStats {
	stats := PerfStats{Samples: p.sampleCount, Budget: p.budget}
	if p.sampleCount == 0 {
		return stats
	}

	var total time.Duration
	var phaseSum [NumPhases]time.Duration
	p.sorted = p.sorted[:0]
	for i := range p.sampleCount {
		s := &p.samples[i]
		total += s.TickDuration
		p.sorted = append(p.sorted, s.TickDuration)
		if p.budget > 0 && s.TickDuration > p.budget {
			stats.OverBudget++
		}
		for ph, d := range s.Phases {
			phaseSum[ph] += d
		}
	}
	slices.Sort(p.sorted)

	n := time.Duration(p.sampleCount)
	stats.AvgTickDuration = total / n
	stats.MinTickDuration = p.sorted[0]
	stats.MaxTickDuration = p.sorted[len(p.sorted)-1]
	stats.P95TickDuration = p.sorted[(len(p.sorted)-1)*95/100]

	for ph, sum := range phaseSum {
		stats.PhaseAvg[ph] = sum / n
		if total > 0 {
			stats.PhasePct[ph] = float64(sum) / float64(total) * 100
		}
	}
	if stats.AvgTickDuration > 0 {
		stats.TicksPerSecond = float64(time.Second) / float64(stats.AvgTickDuration)
	}
	return stats
}

// LogStats logs performance statistics, omitting negligible phases.
func (s PerfStats) LogStats() {
	attrs := []any{
		"avg_tick_us", s.AvgTickDuration.Microseconds(),
		"p95_tick_us", s.P95TickDuration.Microseconds(),
		"max_tick_us", s.MaxTickDuration.Microseconds(),
		"over_budget", s.OverBudget,
		"ticks_per_sec", int(s.TicksPerSecond),
	}
	for ph := range NumPhases {
		if pct := s.PhasePct[ph]; pct > 0.1 {
			attrs = append(attrs, ph.String()+"_pct", int(pct*10)/10.0)
		}
	}
	slog.Info("perf", attrs...)
}

// LogValue implements slog.LogValuer for structured logging.
func (s PerfStats) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Int("samples", s.Samples),
		slog.Int64("avg_tick_us", s.AvgTickDuration.Microseconds()),
		slog.Int64("min_tick_us", s.MinTickDuration.Microseconds()),
		slog.Int64("p95_tick_us", s.P95TickDuration.Microseconds()),
		slog.Int64("max_tick_us", s.MaxTickDuration.Microseconds()),
		slog.Int("over_budget", s.OverBudget),
		slog.Float64("ticks_per_sec", s.TicksPerSecond),
	}
	for ph := range NumPhases {
		attrs = append(attrs, slog.Float64(ph.String()+"_pct", s.PhasePct[ph]))
	}
	return slog.GroupValue(attrs...)
}

// PerfStatsCSV is one row of perf.csv.
type PerfStatsCSV struct {
	WindowEnd      int64   `csv:"window_end"`
	AvgTickUS      int64   `csv:"avg_tick_us"`
	MinTickUS      int64   `csv:"min_tick_us"`
	P95TickUS      int64   `csv:"p95_tick_us"`
	MaxTickUS      int64   `csv:"max_tick_us"`
	OverBudget     int     `csv:"over_budget"`
	TicksPerSec    float64 `csv:"ticks_per_sec"`
	CollectPct     float64 `csv:"collect_pct"`
	ApplyPct       float64 `csv:"apply_intents_pct"`
	SpatialGridPct float64 `csv:"spatial_grid_pct"`
	ProjectilesPct float64 `csv:"projectiles_pct"`
	CleanupPct     float64 `csv:"cleanup_pct"`
	SchedulePct    float64 `csv:"schedule_pct"`
	TelemetryPct   float64 `csv:"telemetry_pct"`
}

// ToCSV flattens s into a perf.csv row.
func (s PerfStats) ToCSV(windowEnd int64) PerfStatsCSV {
	return PerfStatsCSV{
		WindowEnd:      windowEnd,
		AvgTickUS:      s.AvgTickDuration.Microseconds(),
		MinTickUS:      s.MinTickDuration.Microseconds(),
		P95TickUS:      s.P95TickDuration.Microseconds(),
		MaxTickUS:      s.MaxTickDuration.Microseconds(),
		OverBudget:     s.OverBudget,
		TicksPerSec:    s.TicksPerSecond,
		CollectPct:     s.PhasePct[PhaseCollect],
		ApplyPct:       s.PhasePct[PhaseApply],
		SpatialGridPct: s.PhasePct[PhaseSpatialGrid],
		ProjectilesPct: s.PhasePct[PhaseProjectiles],
		CleanupPct:     s.PhasePct[PhaseCleanup],
		SchedulePct:    s.PhasePct[PhaseSchedule],
		TelemetryPct:   s.PhasePct[PhaseTelemetry],
	}
}
