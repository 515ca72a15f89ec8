package telemetry

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/pthm-cable/skirmish/config"
	"github.com/pthm-cable/skirmish/tilemap"
)

func TestNewOutputManagerDisabled(t *testing.T) {
	om, err := NewOutputManager("")
	if err != nil || om != nil {
		t.Fatalf("NewOutputManager(\"\") = %v, %v; want nil, nil", om, err)
	}
	// Nil manager methods are no-ops.
	if err := om.WriteTelemetry(WindowStats{}); err != nil {
		t.Errorf("nil WriteTelemetry: %v", err)
	}
	if err := om.Close(); err != nil {
		t.Errorf("nil Close: %v", err)
	}
}

func TestOutputManagerWritesCSV(t *testing.T) {
	dir := t.TempDir()
	om, err := NewOutputManager(dir)
	if err != nil {
		t.Fatalf("NewOutputManager: %v", err)
	}

	for i := int64(1); i <= 3; i++ {
		if err := om.WriteTelemetry(WindowStats{WindowEndTick: i * 10, Shots: int(i)}); err != nil {
			t.Fatalf("WriteTelemetry: %v", err)
		}
	}
	if err := om.WritePerf(PerfStats{AvgTickDuration: time.Millisecond}, 30); err != nil {
		t.Fatalf("WritePerf: %v", err)
	}
	if err := om.WriteConfig(config.Defaults()); err != nil {
		t.Fatalf("WriteConfig: %v", err)
	}
	if err := om.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "telemetry.csv"))
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 4 {
		t.Fatalf("telemetry.csv has %d lines, want header + 3", len(lines))
	}
	if !strings.HasPrefix(lines[0], "window_end,") {
		t.Errorf("header = %q", lines[0])
	}

	var rows []*WindowStats
	if err := gocsv.UnmarshalBytes(data, &rows); err != nil {
		t.Fatalf("reading back telemetry.csv: %v", err)
	}
	if rows[2].WindowEndTick != 30 || rows[2].Shots != 3 {
		t.Errorf("last row = %+v", rows[2])
	}

	if _, err := os.Stat(filepath.Join(dir, "config.yaml")); err != nil {
		t.Errorf("config.yaml: %v", err)
	}
}

func TestGenerationRecord(t *testing.T) {
	_, report, err := mustGenerate(t)
	if err != nil {
		t.Fatal(err)
	}
	rec := NewGenerationRecord(5, report)

	if rec.Seed != 42 || rec.Width != 20 || rec.Height != 20 || rec.Initial != "grass" {
		t.Errorf("header fields = %+v", rec)
	}
	total := rec.Grass + rec.Dirt + rec.Water + rec.Stone + rec.Sand
	if total != 400 {
		t.Errorf("post-cleanup counts sum to %d, want 400", total)
	}

	var buf bytes.Buffer
	if err := WriteGenerationCSV(&buf, []GenerationRecord{rec}); err != nil {
		t.Fatalf("WriteGenerationCSV: %v", err)
	}
	if !strings.HasPrefix(buf.String(), "tick,seed,width,height,initial,") {
		t.Errorf("csv header = %q", strings.SplitN(buf.String(), "\n", 2)[0])
	}
}

func mustGenerate(t *testing.T) (*tilemap.Grid, tilemap.Report, error) {
	t.Helper()
	gen, err := tilemap.NewGenerator(tilemap.DefaultRules())
	if err != nil {
		return nil, tilemap.Report{}, err
	}
	return gen.GenerateWithReport(20, 20, 42, tilemap.Grass)
}
