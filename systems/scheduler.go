package systems

import (
	"fmt"
	"log/slog"
	"runtime/debug"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/skirmish/config"
)

// StepFunc computes one agent's intent. SteerAgent is the default.
type StepFunc func(snap *AgentSnapshot, ref r2.Vec, dt float64, walk Walkability, p SteerParams) Intent

// Group is a contiguous [Start, End) range of a round's snapshot.
type Group struct {
	Start, End int
}

// Len returns the number of agents in the group.
func (g Group) Len() int { return g.End - g.Start }

// Round is the result of one scheduling round. Intents[i] belongs to
// Snapshots[i]; intents of failed groups are left invalid.
type Round struct {
	ID         uint64
	Generation uint64 // terrain generation the round was computed against
	Snapshots  []AgentSnapshot
	Intents    []Intent
	Groups     []Group
	Failed     []int // indices into Groups
	Elapsed    time.Duration
}

// SchedulerStats holds cumulative scheduler counters.
type SchedulerStats struct {
	Dispatched   uint64
	Skipped      uint64 // rounds refused because the previous was in flight
	FailedGroups uint64
	Superseded   uint64 // finished rounds replaced before Collect
}

// SchedulerOptions configures a Scheduler.
type SchedulerOptions struct {
	MaxAgentsPerWorker int
	Parallelism        int
	Params             SteerParams
	Logger             *slog.Logger // nil uses slog.Default()
	Step               StepFunc     // nil uses SteerAgent
}

// SchedulerOptionsFromConfig builds options from cfg.
func SchedulerOptionsFromConfig(cfg *config.Config) SchedulerOptions {
	return SchedulerOptions{
		MaxAgentsPerWorker: cfg.Scheduler.MaxAgentsPerWorker,
		Parallelism:        cfg.Derived.Parallelism,
		Params:             SteerParamsFromConfig(cfg),
	}
}

// Scheduler runs agent steering on worker goroutines, at most one round at
// a time. Workers read a value snapshot and write only their own range of
// the round's intents; the owner applies intents after Collect.
type Scheduler struct {
	opts   SchedulerOptions
	logger *slog.Logger
	step   StepFunc

	outstanding atomic.Int32 // running groups + the round collector

	// startMu orders wg.Add in Schedule before wg.Wait in Stop.
	startMu  sync.Mutex
	stopping bool
	wg       sync.WaitGroup

	mu    sync.Mutex
	ready *Round

	nextID       uint64
	dispatched   atomic.Uint64
	skipped      atomic.Uint64
	failedGroups atomic.Uint64
	superseded   atomic.Uint64
}

// NewScheduler creates a scheduler.
func NewScheduler(opts SchedulerOptions) *Scheduler {
	if opts.MaxAgentsPerWorker < 1 {
		opts.MaxAgentsPerWorker = 1
	}
	if opts.Parallelism < 1 {
		opts.Parallelism = 1
	}
	s := &Scheduler{
		opts:   opts,
		logger: opts.Logger,
		step:   opts.Step,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.step == nil {
		s.step = SteerAgent
	}
	return s
}

// WorkerCount returns min(parallelism-1, ceil(n/maxPerWorker)), at least 1.
func WorkerCount(n, maxPerWorker, parallelism int) int {
	if maxPerWorker < 1 {
		maxPerWorker = 1
	}
	need := (n + maxPerWorker - 1) / maxPerWorker
	return max(1, min(parallelism-1, need))
}

// Partition splits [0, n) into at most groups contiguous ranges whose sizes
// differ by at most one. It never returns empty groups unless n is 0.
func Partition(n, groups int) []Group {
	if n <= 0 {
		return []Group{{}}
	}
	groups = max(1, min(groups, n))
	base, rem := n/groups, n%groups

	out := make([]Group, groups)
	start := 0
	for i := range out {
		size := base
		if i < rem {
			size++
		}
		out[i] = Group{Start: start, End: start + size}
		start += size
	}
	return out
}

// Busy reports whether a round is in flight.
func (s *Scheduler) Busy() bool {
	return s.outstanding.Load() != 0
}

// Schedule starts a round over a copy of agents. It returns false without
// queueing when a round is still in flight or the scheduler is stopping.
func (s *Scheduler) Schedule(agents []AgentSnapshot, ref r2.Vec, dt float64, walk Walkability) bool {
	s.startMu.Lock()
	defer s.startMu.Unlock()
	if s.stopping {
		return false
	}

	n := len(agents)
	groups := Partition(n, WorkerCount(n, s.opts.MaxAgentsPerWorker, s.opts.Parallelism))
	if !s.outstanding.CompareAndSwap(0, int32(len(groups)+1)) {
		s.skipped.Add(1)
		return false
	}

	s.nextID++
	round := &Round{
		ID:         s.nextID,
		Generation: walk.Generation(),
		Snapshots:  slices.Clone(agents),
		Intents:    make([]Intent, n),
		Groups:     groups,
	}
	s.dispatched.Add(1)

	s.wg.Add(1)
	go s.run(round, ref, dt, walk)
	return true
}

// run fans the round's groups out and publishes the result.
func (s *Scheduler) run(round *Round, ref r2.Vec, dt float64, walk Walkability) {
	defer s.wg.Done()
	defer s.outstanding.Add(-1)

	start := time.Now()
	errs := make([]error, len(round.Groups))

	var eg errgroup.Group
	for gi, grp := range round.Groups {
		eg.Go(func() error {
			defer s.outstanding.Add(-1)
			errs[gi] = s.runGroup(round, grp, ref, dt, walk)
			return errs[gi]
		})
	}
	_ = eg.Wait() // per-group errors are inspected below

	for gi, err := range errs {
		if err == nil {
			continue
		}
		grp := round.Groups[gi]
		clear(round.Intents[grp.Start:grp.End])
		round.Failed = append(round.Failed, gi)
		s.failedGroups.Add(1)
		s.logger.Error("agent group failed",
			"round", round.ID,
			"group", gi,
			"start", grp.Start,
			"end", grp.End,
			"err", err,
		)
	}
	round.Elapsed = time.Since(start)

	s.mu.Lock()
	if s.ready != nil {
		s.superseded.Add(1)
	}
	s.ready = round
	s.mu.Unlock()
}

// runGroup steers one group, converting a panic into an error.
func (s *Scheduler) runGroup(round *Round, grp Group, ref r2.Vec, dt float64, walk Walkability) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in agent group [%d,%d): %v\n%s", grp.Start, grp.End, r, debug.Stack())
		}
	}()
	for i := grp.Start; i < grp.End; i++ {
		round.Intents[i] = s.step(&round.Snapshots[i], ref, dt, walk, s.opts.Params)
	}
	return nil
}

// Collect returns the most recent finished round, if any, and clears it.
func (s *Scheduler) Collect() (Round, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ready == nil {
		return Round{}, false
	}
	r := *s.ready
	s.ready = nil
	return r, true
}

// Stop blocks new rounds and waits up to timeout for in-flight rounds.
// It reports whether they finished in time.
func (s *Scheduler) Stop(timeout time.Duration) bool {
	s.startMu.Lock()
	s.stopping = true
	s.startMu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return true
	case <-time.After(timeout):
		s.logger.Warn("scheduler stop timed out", "timeout", timeout)
		return false
	}
}

// Stats returns cumulative counters.
func (s *Scheduler) Stats() SchedulerStats {
	return SchedulerStats{
		Dispatched:   s.dispatched.Load(),
		Skipped:      s.skipped.Load(),
		FailedGroups: s.failedGroups.Load(),
		Superseded:   s.superseded.Load(),
	}
}
