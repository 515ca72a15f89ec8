package telemetry

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"

	"github.com/pthm-cable/skirmish/config"
	"github.com/pthm-cable/skirmish/tilemap"
)

// GenerationRecord is one generated world, flattened for CSV.
type GenerationRecord struct {
	Tick             int64  `csv:"tick"`
	Seed             uint64 `csv:"seed"`
	Width            int    `csv:"width"`
	Height           int    `csv:"height"`
	Initial          string `csv:"initial"`
	GrassPre         int    `csv:"grass_pre"`
	DirtPre          int    `csv:"dirt_pre"`
	WaterPre         int    `csv:"water_pre"`
	StonePre         int    `csv:"stone_pre"`
	SandPre          int    `csv:"sand_pre"`
	Grass            int    `csv:"grass"`
	Dirt             int    `csv:"dirt"`
	Water            int    `csv:"water"`
	Stone            int    `csv:"stone"`
	Sand             int    `csv:"sand"`
	UnvisitedFilled  int    `csv:"unvisited_filled"`
	SmoothingChanges int    `csv:"smoothing_changes"`
	RegionsRemoved   int    `csv:"regions_removed"`
	CellsReassigned  int    `csv:"cells_reassigned"`
	ElapsedUS        int64  `csv:"elapsed_us"`
}

// NewGenerationRecord flattens a generation report.
func NewGenerationRecord(tick int64, r tilemap.Report) GenerationRecord {
	return GenerationRecord{
		Tick:             tick,
		Seed:             r.Seed,
		Width:            r.Width,
		Height:           r.Height,
		Initial:          r.Initial.String(),
		GrassPre:         r.PreCleanup[tilemap.Grass],
		DirtPre:          r.PreCleanup[tilemap.Dirt],
		WaterPre:         r.PreCleanup[tilemap.Water],
		StonePre:         r.PreCleanup[tilemap.Stone],
		SandPre:          r.PreCleanup[tilemap.Sand],
		Grass:            r.PostCleanup[tilemap.Grass],
		Dirt:             r.PostCleanup[tilemap.Dirt],
		Water:            r.PostCleanup[tilemap.Water],
		Stone:            r.PostCleanup[tilemap.Stone],
		Sand:             r.PostCleanup[tilemap.Sand],
		UnvisitedFilled:  r.UnvisitedFilled,
		SmoothingChanges: r.SmoothingChanges,
		RegionsRemoved:   r.RegionsRemoved,
		CellsReassigned:  r.CellsReassigned,
		ElapsedUS:        r.Elapsed.Microseconds(),
	}
}

// csvFile is an output file that writes its header once.
type csvFile struct {
	f             *os.File
	headerWritten bool
}

// write appends records, including headers on the first call.
func (c *csvFile) write(records any) error {
	if !c.headerWritten {
		// First write includes headers
		if err := gocsv.Marshal(records, c.f); err != nil {
			return err
		}
		c.headerWritten = true
		return nil
	}
	// Subsequent writes skip headers
	return gocsv.MarshalWithoutHeaders(records, c.f)
}

// OutputManager handles structured run output with CSV logging.
type OutputManager struct {
	dir        string
	telemetry  csvFile
	perf       csvFile
	generation csvFile
	lifetimes  csvFile
}

// NewOutputManager creates a new output manager and initializes the output directory.
// Returns nil if dir is empty (output disabled).
func NewOutputManager(dir string) (*OutputManager, error) {
	if dir == "" {
		return nil, nil
	}

	// Create output directory
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	om := &OutputManager{dir: dir}
	files := []struct {
		name string
		dst  *csvFile
	}{
		{"telemetry.csv", &om.telemetry},
		{"perf.csv", &om.perf},
		{"generation.csv", &om.generation},
		{"lifetimes.csv", &om.lifetimes},
	}
	for _, spec := range files {
		f, err := os.Create(filepath.Join(dir, spec.name))
		if err != nil {
			om.Close()
			return nil, fmt.Errorf("creating %s: %w", spec.name, err)
		}
		spec.dst.f = f
	}

	return om, nil
}

// WriteConfig saves the current configuration as YAML.
func (om *OutputManager) WriteConfig(cfg *config.Config) error {
	if om == nil {
		return nil
	}
	configPath := filepath.Join(om.dir, "config.yaml")
	return cfg.WriteYAML(configPath)
}

// WriteTelemetry writes a window stats record to telemetry.csv.
func (om *OutputManager) WriteTelemetry(stats WindowStats) error {
	if om == nil {
		return nil
	}
	if err := om.telemetry.write([]WindowStats{stats}); err != nil {
		return fmt.Errorf("writing telemetry: %w", err)
	}
	return nil
}

// WritePerf writes a performance stats record to perf.csv.
func (om *OutputManager) WritePerf(stats PerfStats, windowEnd int64) error {
	if om == nil {
		return nil
	}
	if err := om.perf.write([]PerfStatsCSV{stats.ToCSV(windowEnd)}); err != nil {
		return fmt.Errorf("writing perf: %w", err)
	}
	return nil
}

// WriteGeneration writes a world generation record to generation.csv.
func (om *OutputManager) WriteGeneration(rec GenerationRecord) error {
	if om == nil {
		return nil
	}
	if err := om.generation.write([]GenerationRecord{rec}); err != nil {
		return fmt.Errorf("writing generation: %w", err)
	}
	return nil
}

// WriteLifetime writes a finished agent lifetime to lifetimes.csv.
func (om *OutputManager) WriteLifetime(s *LifetimeStats) error {
	if om == nil || s == nil {
		return nil
	}
	if err := om.lifetimes.write([]*LifetimeStats{s}); err != nil {
		return fmt.Errorf("writing lifetime: %w", err)
	}
	return nil
}

// Dir returns the output directory path.
func (om *OutputManager) Dir() string {
	if om == nil {
		return ""
	}
	return om.dir
}

// Close flushes and closes all output files.
func (om *OutputManager) Close() error {
	if om == nil {
		return nil
	}

	var firstErr error
	for _, c := range []*csvFile{&om.telemetry, &om.perf, &om.generation, &om.lifetimes} {
		if c.f == nil {
			continue
		}
		if err := c.f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		c.f = nil
	}
	return firstErr
}

// WriteGenerationCSV writes records with a header to w.
func WriteGenerationCSV(w io.Writer, records []GenerationRecord) error {
	return gocsv.Marshal(records, w)
}
