// Map generation preview tool - prints a generated grid as text.
//
// Usage: go run ./cmd/mapgen -width 40 -height 20 -seed 42
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/pthm-cable/skirmish/config"
	"github.com/pthm-cable/skirmish/telemetry"
	"github.com/pthm-cable/skirmish/tilemap"
)

func main() {
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	width := flag.Int("width", 0, "Grid width in tiles (0 = use config)")
	height := flag.Int("height", 0, "Grid height in tiles (0 = use config)")
	seed := flag.Uint64("seed", 42, "Generation seed")
	initialName := flag.String("initial", "", "Initial tile name (empty = use config)")
	csvOut := flag.Bool("csv", false, "Print the generation report as CSV instead of the grid")
	flag.Parse()

	if err := run(*configPath, *width, *height, *seed, *initialName, *csvOut); err != nil {
		slog.Error("mapgen failed", "error", err)
		os.Exit(1)
	}
}

func run(configPath string, width, height int, seed uint64, initialName string, csvOut bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if width <= 0 {
		width = cfg.World.Width
	}
	if height <= 0 {
		height = cfg.World.Height
	}

	rules, initial, err := tilemap.RulesFromConfig(cfg.Generation)
	if err != nil {
		return err
	}
	if initialName != "" {
		if initial, err = tilemap.ParseTileType(initialName); err != nil {
			return err
		}
	}

	gen, err := tilemap.NewGenerator(rules)
	if err != nil {
		return err
	}
	grid, report, err := gen.GenerateWithReport(width, height, seed, initial)
	if err != nil {
		return err
	}

	if csvOut {
		return telemetry.WriteGenerationCSV(os.Stdout, []telemetry.GenerationRecord{
			telemetry.NewGenerationRecord(0, report),
		})
	}

	fmt.Print(grid.String())
	fmt.Printf("\nseed=%d size=%dx%d initial=%s elapsed=%s\n", seed, width, height, initial, report.Elapsed)
	for t := range tilemap.NumTileTypes {
		n := report.PostCleanup[t]
		fmt.Printf("  %c %-6s %6d  %5.1f%%\n", t.Glyph(), t, n, 100*float64(n)/float64(grid.Len()))
	}
	fmt.Printf("regions removed: %d, cells reassigned: %d, smoothing changes: %d\n",
		report.RegionsRemoved, report.CellsReassigned, report.SmoothingChanges)
	return nil
}
