package telemetry

import (
	"testing"
	"time"
)

// fakeClock is a manually advanced time source.
type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newFakePerf(windowSize int, budget time.Duration) (*PerfCollector, *fakeClock) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	pc := NewPerfCollector(windowSize, budget)
	pc.now = clock.now
	return pc, clock
}

// TestPerfCollectorPhases verifies phase time is attributed to the right phase.
func TestPerfCollectorPhases(t *testing.T) {
	pc, clock := newFakePerf(10, 0)

	for range 5 {
		pc.StartTick()
		pc.StartPhase(PhaseSpatialGrid)
		clock.advance(100 * time.Microsecond)
		pc.StartPhase(PhaseProjectiles)
		clock.advance(300 * time.Microsecond)
		pc.EndTick()
	}

	stats := pc.Stats()
	if stats.Samples != 5 {
		t.Errorf("Samples = %d, want 5", stats.Samples)
	}
	if stats.AvgTickDuration != 400*time.Microsecond {
		t.Errorf("AvgTickDuration = %v, want 400µs", stats.AvgTickDuration)
	}
	if stats.PhaseAvg[PhaseSpatialGrid] != 100*time.Microsecond || stats.PhaseAvg[PhaseProjectiles] != 300*time.Microsecond {
		t.Errorf("phase averages = %v", stats.PhaseAvg)
	}
	if stats.PhasePct[PhaseProjectiles] != 75 || stats.PhasePct[PhaseSpatialGrid] != 25 {
		t.Errorf("phase pct = %v", stats.PhasePct)
	}
	if stats.PhaseAvg[PhaseCleanup] != 0 {
		t.Errorf("untouched phase has time %v", stats.PhaseAvg[PhaseCleanup])
	}
	if stats.TicksPerSecond != 2500 {
		t.Errorf("TicksPerSecond = %v, want 2500", stats.TicksPerSecond)
	}
}

// TestPerfCollectorRollingWindow verifies the window caps the sample count.
func TestPerfCollectorRollingWindow(t *testing.T) {
	pc, clock := newFakePerf(5, 0)

	for i := 1; i <= 10; i++ {
		pc.StartTick()
		pc.StartPhase(PhaseSpatialGrid)
		clock.advance(time.Duration(i) * time.Millisecond)
		pc.EndTick()
	}

	stats := pc.Stats()
	if stats.Samples != 5 {
		t.Errorf("Samples = %d, want 5", stats.Samples)
	}
	if stats.MinTickDuration != 6*time.Millisecond || stats.MaxTickDuration != 10*time.Millisecond {
		t.Errorf("min/max = %v/%v, want 6ms/10ms", stats.MinTickDuration, stats.MaxTickDuration)
	}
	if stats.P95TickDuration != 9*time.Millisecond {
		t.Errorf("P95TickDuration = %v, want 9ms", stats.P95TickDuration)
	}
}

// TestPerfCollectorBudget verifies overruns are counted against the budget.
func TestPerfCollectorBudget(t *testing.T) {
	pc, clock := newFakePerf(10, time.Millisecond)

	for i := range 4 {
		pc.StartTick()
		if i%2 == 0 {
			clock.advance(2 * time.Millisecond)
		} else {
			clock.advance(time.Millisecond)
		}
		pc.EndTick()
	}

	stats := pc.Stats()
	if stats.OverBudget != 2 {
		t.Errorf("OverBudget = %d, want 2", stats.OverBudget)
	}
	if stats.MinTickDuration != time.Millisecond || stats.MaxTickDuration != 2*time.Millisecond {
		t.Errorf("min/max = %v/%v, want 1ms/2ms", stats.MinTickDuration, stats.MaxTickDuration)
	}
}

// TestPerfCollectorEmpty verifies an empty collector reports zeros.
func TestPerfCollectorEmpty(t *testing.T) {
	stats := NewPerfCollector(10, 0).Stats()
	if stats.AvgTickDuration != 0 || stats.Samples != 0 || stats.TicksPerSecond != 0 {
		t.Errorf("got %+v, want zero stats", stats)
	}
}

// TestPerfStatsToCSV verifies phase shares land in their columns.
func TestPerfStatsToCSV(t *testing.T) {
	stats := PerfStats{AvgTickDuration: 2 * time.Millisecond, OverBudget: 3}
	stats.PhasePct[PhaseProjectiles] = 40
	stats.PhasePct[PhaseApply] = 10

	row := stats.ToCSV(600)

	if row.WindowEnd != 600 || row.AvgTickUS != 2000 || row.OverBudget != 3 {
		t.Errorf("row = %+v", row)
	}
	if row.ProjectilesPct != 40 || row.ApplyPct != 10 {
		t.Errorf("phase pct = %v/%v, want 40/10", row.ProjectilesPct, row.ApplyPct)
	}
}

// TestPhaseString verifies phase names used as log and CSV keys.
func TestPhaseString(t *testing.T) {
	if PhaseApply.String() != "apply_intents" || NumPhases.String() != "unknown" {
		t.Errorf("got %q/%q", PhaseApply, NumPhases)
	}
}
