package systems

import (
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"gonum.org/v1/gonum/spatial/r2"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testAgents(n int) []AgentSnapshot {
	out := make([]AgentSnapshot, n)
	for i := range out {
		out[i] = AgentSnapshot{ID: uint32(i + 1), Pos: vec(float64(i), 0), Speed: 10, Radius: 2}
	}
	return out
}

// waitIdle polls until the scheduler has no round in flight.
func waitIdle(t *testing.T, s *Scheduler) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for s.Busy() {
		if time.Now().After(deadline) {
			t.Fatal("scheduler still busy")
		}
		time.Sleep(time.Millisecond)
	}
}

// TestWorkerCount verifies the adaptive worker budget.
func TestWorkerCount(t *testing.T) {
	tests := []struct {
		n, perWorker, par int
		want              int
	}{
		{0, 64, 8, 1},
		{10, 64, 8, 1},
		{200, 64, 8, 4},
		{1000, 64, 8, 7},
		{100, 64, 1, 1},
		{100, 0, 4, 3},
	}
	for _, tt := range tests {
		if got := WorkerCount(tt.n, tt.perWorker, tt.par); got != tt.want {
			t.Errorf("WorkerCount(%d, %d, %d) = %d, want %d", tt.n, tt.perWorker, tt.par, got, tt.want)
		}
	}
}

// TestPartitionDisjoint verifies groups cover every index exactly once.
func TestPartitionDisjoint(t *testing.T) {
	for n := 0; n <= 50; n++ {
		for groups := 1; groups <= 9; groups++ {
			parts := Partition(n, groups)
			seen := make([]int, n)
			next := 0
			minLen, maxLen := n+1, -1
			for _, p := range parts {
				if p.Start != next {
					t.Fatalf("n=%d groups=%d: group %+v not contiguous", n, groups, p)
				}
				next = p.End
				for i := p.Start; i < p.End; i++ {
					seen[i]++
				}
				minLen = min(minLen, p.Len())
				maxLen = max(maxLen, p.Len())
			}
			if next != n {
				t.Fatalf("n=%d groups=%d: groups end at %d", n, groups, next)
			}
			for i, c := range seen {
				if c != 1 {
					t.Fatalf("n=%d groups=%d: index %d seen %d times", n, groups, i, c)
				}
			}
			if n > 0 && maxLen-minLen > 1 {
				t.Errorf("n=%d groups=%d: sizes range %d..%d", n, groups, minLen, maxLen)
			}
			if n > 0 && len(parts) > groups {
				t.Errorf("n=%d groups=%d: got %d groups", n, groups, len(parts))
			}
		}
	}
}

// TestScheduleAndCollect verifies a round computes an intent for every agent.
func TestScheduleAndCollect(t *testing.T) {
	s := NewScheduler(SchedulerOptions{
		MaxAgentsPerWorker: 16,
		Parallelism:        4,
		Params:             testSteerParams(),
		Logger:             quietLogger(),
	})
	agents := testAgents(100)

	if !s.Schedule(agents, vec(50, 50), 0.1, stubWalk{gen: 7}) {
		t.Fatal("first round skipped")
	}
	// Mutating the caller's slice must not reach the round.
	agents[0].Pos = vec(-999, -999)

	waitIdle(t, s)
	round, ok := s.Collect()
	if !ok {
		t.Fatal("no round collected")
	}
	if round.Generation != 7 {
		t.Errorf("Generation = %d, want 7", round.Generation)
	}
	if len(round.Groups) != 3 {
		t.Errorf("groups = %d, want 3", len(round.Groups))
	}
	if round.Snapshots[0].Pos != vec(0, 0) {
		t.Errorf("snapshot aliased caller slice: %v", round.Snapshots[0].Pos)
	}
	for i, in := range round.Intents {
		if !in.Valid {
			t.Errorf("intent %d invalid", i)
		}
	}
	if _, ok := s.Collect(); ok {
		t.Error("round collected twice")
	}
}

// TestScheduleSkipsWhenBusy verifies rounds are skipped, not queued.
func TestScheduleSkipsWhenBusy(t *testing.T) {
	release := make(chan struct{})
	s := NewScheduler(SchedulerOptions{
		MaxAgentsPerWorker: 8,
		Parallelism:        4,
		Params:             testSteerParams(),
		Logger:             quietLogger(),
		Step: func(snap *AgentSnapshot, ref r2.Vec, dt float64, walk Walkability, p SteerParams) Intent {
			<-release
			return SteerAgent(snap, ref, dt, walk, p)
		},
	})

	if !s.Schedule(testAgents(20), vec(0, 0), 0.1, stubWalk{}) {
		t.Fatal("first round skipped")
	}
	if !s.Busy() {
		t.Error("scheduler not busy with blocked round")
	}
	for i := 0; i < 3; i++ {
		if s.Schedule(testAgents(20), vec(0, 0), 0.1, stubWalk{}) {
			t.Fatal("round dispatched while busy")
		}
	}

	close(release)
	waitIdle(t, s)

	st := s.Stats()
	if st.Dispatched != 1 || st.Skipped != 3 {
		t.Errorf("stats = %+v, want 1 dispatched 3 skipped", st)
	}
	if !s.Schedule(testAgents(20), vec(0, 0), 0.1, stubWalk{}) {
		t.Error("round skipped after previous finished")
	}
	waitIdle(t, s)
}

// TestGroupFailureIsolated verifies a panicking group drops only its own intents.
func TestGroupFailureIsolated(t *testing.T) {
	s := NewScheduler(SchedulerOptions{
		MaxAgentsPerWorker: 10,
		Parallelism:        5,
		Params:             testSteerParams(),
		Logger:             quietLogger(),
		Step: func(snap *AgentSnapshot, ref r2.Vec, dt float64, walk Walkability, p SteerParams) Intent {
			if snap.ID == 7 {
				panic("bad agent")
			}
			return SteerAgent(snap, ref, dt, walk, p)
		},
	})

	if !s.Schedule(testAgents(40), vec(0, 0), 0.1, stubWalk{}) {
		t.Fatal("round skipped")
	}
	waitIdle(t, s)
	round, ok := s.Collect()
	if !ok {
		t.Fatal("no round collected")
	}

	if len(round.Groups) != 4 {
		t.Fatalf("groups = %d, want 4", len(round.Groups))
	}
	if len(round.Failed) != 1 || round.Failed[0] != 0 {
		t.Fatalf("Failed = %v, want [0]", round.Failed)
	}
	for i, in := range round.Intents {
		want := i >= 10
		if in.Valid != want {
			t.Errorf("intent %d valid = %v, want %v", i, in.Valid, want)
		}
	}
	if got := s.Stats().FailedGroups; got != 1 {
		t.Errorf("FailedGroups = %d, want 1", got)
	}
}

// TestStopWaitsForInFlight verifies bounded shutdown.
func TestStopWaitsForInFlight(t *testing.T) {
	release := make(chan struct{})
	s := NewScheduler(SchedulerOptions{
		MaxAgentsPerWorker: 8,
		Parallelism:        2,
		Params:             testSteerParams(),
		Logger:             quietLogger(),
		Step: func(snap *AgentSnapshot, ref r2.Vec, dt float64, walk Walkability, p SteerParams) Intent {
			<-release
			return Intent{Valid: true}
		},
	})

	if !s.Schedule(testAgents(4), vec(0, 0), 0.1, stubWalk{}) {
		t.Fatal("round skipped")
	}
	if s.Stop(10 * time.Millisecond) {
		t.Error("Stop reported success with a blocked round")
	}
	if s.Schedule(testAgents(4), vec(0, 0), 0.1, stubWalk{}) {
		t.Error("round dispatched after Stop")
	}

	close(release)
	if !s.Stop(5 * time.Second) {
		t.Error("Stop timed out after round released")
	}
	if _, ok := s.Collect(); !ok {
		t.Error("in-flight round was not published")
	}
}

// TestStopConcurrentWithSchedule verifies that a round either starts before
// Stop begins waiting or is refused, with Schedule called from other goroutines.
func TestStopConcurrentWithSchedule(t *testing.T) {
	s := NewScheduler(SchedulerOptions{
		MaxAgentsPerWorker: 4,
		Parallelism:        2,
		Params:             testSteerParams(),
		Logger:             quietLogger(),
	})

	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 200 {
				s.Schedule(testAgents(8), vec(0, 0), 0.1, stubWalk{})
			}
		}()
	}

	if !s.Stop(5 * time.Second) {
		t.Error("Stop timed out")
	}
	if s.Busy() {
		t.Error("round still in flight after Stop returned")
	}
	wg.Wait()
	if s.Schedule(testAgents(8), vec(0, 0), 0.1, stubWalk{}) {
		t.Error("round dispatched after Stop")
	}
}
