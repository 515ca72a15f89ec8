package main

import (
	"flag"
	"log/slog"
	"math"
	"os"
	"time"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/skirmish/config"
	"github.com/pthm-cable/skirmish/game"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	logStats := flag.Bool("log-stats", false, "Output stats via slog")
	statsWindow := flag.Float64("stats-window", 0, "Stats window size in seconds (0 = use config)")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	seed := flag.Uint64("seed", 0, "RNG seed (0 = time-based)")
	width := flag.Int("width", 0, "World width in tiles (0 = use config)")
	height := flag.Int("height", 0, "World height in tiles (0 = use config)")
	agents := flag.Int("agents", -1, "Initial agents (-1 = use config)")
	maxTicks := flag.Int("max-ticks", 0, "Stop after N ticks (0 = unlimited)")
	fireEvery := flag.Int("fire-every", 10, "Ticks between shots from the reference point (0 = never)")

	flag.Parse()

	// Set up slog (JSON to stdout for structured logging)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Initialize config before anything else
	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	// CLI overrides
	if *statsWindow > 0 {
		cfg.Telemetry.StatsWindow = *statsWindow
	}
	if *width > 0 {
		cfg.World.Width = *width
	}
	if *height > 0 {
		cfg.World.Height = *height
	}
	if *agents >= 0 {
		cfg.Agents.Initial = *agents
	}
	if err := cfg.Refresh(); err != nil {
		slog.Error("invalid config overrides", "error", err)
		os.Exit(1)
	}

	// Set up seed
	rngSeed := *seed
	if rngSeed == 0 {
		rngSeed = uint64(time.Now().UnixNano())
	}

	g, err := game.NewGameWithOptions(game.Options{
		Config:    cfg,
		Seed:      rngSeed,
		Logger:    logger,
		LogStats:  *logStats,
		OutputDir: *outputDir,
	})
	if err != nil {
		slog.Error("failed to create game", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := g.Close(); err != nil {
			slog.Error("shutdown", "error", err)
		}
	}()

	spawned := g.SpawnInitialPopulation()
	slog.Info("starting headless simulation",
		"seed", rngSeed,
		"width", cfg.World.Width,
		"height", cfg.World.Height,
		"agents", spawned,
		"max_ticks", *maxTicks,
		"output_dir", g.OutputDir(),
	)

	run(g, *maxTicks, *fireEvery)
}

// run drives the game with a reference point orbiting the world centre,
// standing in for a player.
func run(g *game.Game, maxTicks, fireEvery int) {
	cfg := g.Config()
	dt := cfg.Physics.DT
	w, h := g.Terrain().Size()
	centre := r2.Vec{X: w / 2, Y: h / 2}
	orbit := math.Min(w, h) / 3

	var kills, hits int
	for tick := 0; maxTicks == 0 || tick < maxTicks; tick++ {
		angle := float64(tick) * dt * 0.5
		ref := r2.Add(centre, r2.Vec{X: math.Cos(angle) * orbit, Y: math.Sin(angle) * orbit})

		if fireEvery > 0 && tick%fireEvery == 0 {
			dir := r2.Vec{X: math.Cos(angle * 3), Y: math.Sin(angle * 3)}
			if _, err := g.AcquireProjectile(game.SpawnParams{Pos: ref, Dir: dir}); err != nil {
				slog.Debug("shot refused", "error", err)
			}
		}

		for _, msg := range g.Update(ref, dt) {
			switch msg.Kind {
			case game.MsgProjectileHit:
				hits++
			case game.MsgAgentKilled:
				kills++
			case game.MsgRoundFailed:
				slog.Warn("steering group failed", "round", msg.Round, "start", msg.Group.Start, "end", msg.Group.End)
			}
		}
	}

	slog.Info("max ticks reached",
		"tick", g.CurrentTick(),
		"hits", hits,
		"kills", kills,
		"agents", g.AgentCount(),
		"scheduler", g.SchedulerStats(),
	)
}
