// Package game owns the authoritative simulation state: the tile world,
// agents, projectiles and the per-tick update that ties them together.
package game

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/skirmish/components"
	"github.com/pthm-cable/skirmish/config"
	"github.com/pthm-cable/skirmish/pool"
	"github.com/pthm-cable/skirmish/systems"
	"github.com/pthm-cable/skirmish/telemetry"
	"github.com/pthm-cable/skirmish/tilemap"
)

// Options configures a Game.
type Options struct {
	Config        *config.Config // nil uses config.Cfg()
	Seed          uint64         // session RNG seed
	Logger        *slog.Logger   // nil uses slog.Default()
	LogStats      bool           // log window and perf stats on flush
	OutputDir     string         // CSV output directory, empty disables
	StatsCallback func(telemetry.WindowStats)
	Step          systems.StepFunc // nil uses systems.SteerAgent
}

// Game holds the complete simulation state.
type Game struct {
	cfg    *config.Config
	logger *slog.Logger
	world  *ecs.World
	rng    *rand.Rand

	// Agent mappers
	agentMapper *ecs.Map6[
		components.Position,
		components.PrevPosition,
		components.Heading,
		components.Body,
		components.Agent,
		components.Health,
	]
	agentFilter *ecs.Filter6[
		components.Position,
		components.PrevPosition,
		components.Heading,
		components.Body,
		components.Agent,
		components.Health,
	]

	// Individual component mappers for lookups
	posMap    *ecs.Map1[components.Position]
	prevMap   *ecs.Map1[components.PrevPosition]
	headMap   *ecs.Map1[components.Heading]
	bodyMap   *ecs.Map1[components.Body]
	agentMap  *ecs.Map1[components.Agent]
	healthMap *ecs.Map1[components.Health]

	// World
	generator   *tilemap.Generator
	initialTile tilemap.TileType
	terrain     *systems.TerrainSystem
	planner     *systems.PathPlanner
	generation  uint64
	spatialGrid *systems.SpatialGrid

	// Agents
	scheduler *systems.Scheduler
	snapshots []systems.AgentSnapshot

	// Projectiles
	projectiles *pool.Pool[*components.Projectile]
	active      []*components.Projectile
	scratch     []systems.Neighbor

	// Telemetry
	collector       *telemetry.Collector
	perfCollector   *telemetry.PerfCollector
	lifetimeTracker *telemetry.LifetimeTracker
	outputManager   *telemetry.OutputManager
	logStats        bool
	statsCallback   func(telemetry.WindowStats)

	// State
	tick     int64
	nextID   uint32
	pending  []Message // produced between ticks, returned by the next Tick
	messages []Message
}

// NewGameWithOptions creates a game and generates its initial world.
func NewGameWithOptions(opts Options) (*Game, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Cfg()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	rules, initial, err := tilemap.RulesFromConfig(cfg.Generation)
	if err != nil {
		return nil, fmt.Errorf("generation rules: %w", err)
	}
	generator, err := tilemap.NewGenerator(rules)
	if err != nil {
		return nil, fmt.Errorf("generation rules: %w", err)
	}

	outputManager, err := telemetry.NewOutputManager(opts.OutputDir)
	if err != nil {
		return nil, err
	}
	if err := outputManager.WriteConfig(cfg); err != nil {
		outputManager.Close()
		return nil, err
	}

	world := ecs.NewWorld()

	g := &Game{
		cfg:         cfg,
		logger:      logger,
		world:       world,
		rng:         tilemap.NewRand(opts.Seed),
		generator:   generator,
		initialTile: initial,
		agentMapper: ecs.NewMap6[
			components.Position,
			components.PrevPosition,
			components.Heading,
			components.Body,
			components.Agent,
			components.Health,
		](world),
		agentFilter: ecs.NewFilter6[
			components.Position,
			components.PrevPosition,
			components.Heading,
			components.Body,
			components.Agent,
			components.Health,
		](world),
		posMap:    ecs.NewMap1[components.Position](world),
		prevMap:   ecs.NewMap1[components.PrevPosition](world),
		headMap:   ecs.NewMap1[components.Heading](world),
		bodyMap:   ecs.NewMap1[components.Body](world),
		agentMap:  ecs.NewMap1[components.Agent](world),
		healthMap: ecs.NewMap1[components.Health](world),

		collector:       telemetry.NewCollector(cfg.Telemetry.StatsWindow, cfg.Physics.DT),
		perfCollector:   telemetry.NewPerfCollector(cfg.Telemetry.PerfCollectorWindow, time.Duration(cfg.Physics.DT*float64(time.Second))),
		lifetimeTracker: telemetry.NewLifetimeTracker(),
		outputManager:   outputManager,
		logStats:        opts.LogStats,
		statsCallback:   opts.StatsCallback,
		nextID:          1, // 0 is the player
	}

	schedOpts := systems.SchedulerOptionsFromConfig(cfg)
	schedOpts.Logger = logger
	schedOpts.Step = opts.Step
	g.scheduler = systems.NewScheduler(schedOpts)

	g.projectiles = pool.New(
		func() (*components.Projectile, error) { return &components.Projectile{}, nil },
		pool.WithReset(func(p *components.Projectile) { p.Reset() }),
		pool.WithPrealloc[*components.Projectile](cfg.Projectiles.Prealloc),
	)

	if cfg.World.Seed != 0 {
		_, err = g.ConfigureWorldSeeded(cfg.World.Width, cfg.World.Height, cfg.World.Seed)
	} else {
		_, err = g.ConfigureWorld(cfg.World.Width, cfg.World.Height)
	}
	if err != nil {
		outputManager.Close()
		return nil, err
	}

	return g, nil
}

// Config returns the game's configuration.
func (g *Game) Config() *config.Config { return g.cfg }

// Terrain returns the current terrain.
func (g *Game) Terrain() *systems.TerrainSystem { return g.terrain }

// CurrentTick returns the number of completed ticks.
func (g *Game) CurrentTick() int64 { return g.tick }

// OutputDir returns the CSV output directory, or "" when disabled.
func (g *Game) OutputDir() string { return g.outputManager.Dir() }

// AgentCount returns the number of live agent entities.
func (g *Game) AgentCount() int {
	n := 0
	query := g.agentFilter.Query()
	for query.Next() {
		n++
	}
	return n
}

// AgentPosition returns an agent's position.
func (g *Game) AgentPosition(e ecs.Entity) (r2.Vec, bool) {
	if !g.world.Alive(e) {
		return r2.Vec{}, false
	}
	return g.posMap.Get(e).Vec(), true
}

// AgentHealth returns an agent's remaining health.
func (g *Game) AgentHealth(e ecs.Entity) (float64, bool) {
	if !g.world.Alive(e) {
		return 0, false
	}
	return g.healthMap.Get(e).Value, true
}

// SchedulerStats returns cumulative scheduler counters.
func (g *Game) SchedulerStats() systems.SchedulerStats {
	return g.scheduler.Stats()
}

// Stop blocks new scheduling rounds and waits up to timeout for the
// in-flight round. It reports whether the round finished in time.
func (g *Game) Stop(timeout time.Duration) bool {
	return g.scheduler.Stop(timeout)
}

// Close stops the scheduler with the configured shutdown timeout and
// closes output files.
func (g *Game) Close() error {
	timeout := time.Duration(g.cfg.Scheduler.ShutdownTimeout * float64(time.Second))
	var errs []error
	if !g.Stop(timeout) {
		errs = append(errs, errors.New("scheduler did not stop in time"))
	}
	if err := g.outputManager.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing output: %w", err))
	}
	return errors.Join(errs...)
}
