// Package main tunes map generation rules with CMA-ES toward target
// terrain fractions and a well-connected walkable area.
package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"gonum.org/v1/gonum/optimize"

	"github.com/pthm-cable/skirmish/config"
)

type options struct {
	configPath string
	width      int
	height     int
	seeds      int
	seedBase   uint64
	maxEvals   int
	population int
	targets    Targets
	outputDir  string
}

func main() {
	var o options
	flag.StringVar(&o.configPath, "config", "", "Base config YAML file (empty = use defaults)")
	flag.IntVar(&o.width, "width", 64, "World width in tiles")
	flag.IntVar(&o.height, "height", 40, "World height in tiles")
	flag.IntVar(&o.seeds, "seeds", 8, "Worlds generated per evaluation")
	flag.Uint64Var(&o.seedBase, "seed-base", 42, "First generation seed; later seeds step by 1000")
	flag.IntVar(&o.maxEvals, "max-evals", 200, "Maximum number of evaluations")
	flag.IntVar(&o.population, "population", 0, "CMA-ES population size (0 = auto)")
	flag.Float64Var(&o.targets.Walkable, "walkable", 0.8, "Target walkable fraction (<0 = ignore)")
	flag.Float64Var(&o.targets.Water, "water", 0.1, "Target water fraction (<0 = ignore)")
	flag.Float64Var(&o.targets.Stone, "stone", 0.08, "Target stone fraction (<0 = ignore)")
	flag.StringVar(&o.outputDir, "output", "", "Output directory for results")
	flag.Parse()

	if err := run(o); err != nil {
		slog.Error("optimize failed", "error", err)
		os.Exit(1)
	}
}

func run(o options) error {
	if o.outputDir == "" {
		return fmt.Errorf("--output is required")
	}
	if o.seeds < 1 {
		return fmt.Errorf("--seeds must be >= 1")
	}
	if err := os.MkdirAll(o.outputDir, 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	baseCfg, err := config.Load(o.configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	params := NewParamVector(baseCfg)

	seeds := make([]uint64, o.seeds)
	for i := range seeds {
		seeds[i] = o.seedBase + uint64(i)*1000
	}
	evaluator := NewFitnessEvaluator(params, o.width, o.height, seeds, baseCfg, o.targets)

	logFile, err := os.Create(filepath.Join(o.outputDir, "optimize_log.csv"))
	if err != nil {
		return fmt.Errorf("creating eval log: %w", err)
	}
	defer logFile.Close()

	baseline := params.ExtractFromConfig(baseCfg)
	fmt.Printf("Baseline: fitness=%.4f %s\n", evaluator.Evaluate(baseline), formatParams(params, baseline))

	tr := &tracker{
		params:    params,
		evaluator: evaluator,
		log:       logFile,
		maxEvals:  o.maxEvals,
		best:      math.Inf(1),
		start:     time.Now(),
	}
	problem := optimize.Problem{Func: tr.evaluate}

	popSize := o.population
	if popSize == 0 {
		// Standard CMA-ES sizing: 4 + floor(3*ln(n))
		popSize = 4 + int(3*math.Log(float64(params.Dim())))
	}
	method := &optimize.CmaEsChol{InitStepSize: 0.3, Population: popSize}

	// Seeds are generated in parallel inside each evaluation, so the
	// optimizer itself runs sequentially.
	settings := &optimize.Settings{FuncEvaluations: o.maxEvals}

	fmt.Printf("Starting CMA-ES: %d parameters, population=%d, max_evals=%d, %d seeds of %dx%d\n",
		params.Dim(), popSize, o.maxEvals, o.seeds, o.width, o.height)

	result, err := optimize.Minimize(problem, params.Normalize(params.DefaultVector()), settings, method)
	if err != nil {
		slog.Warn("optimization ended", "error", err)
	}

	best := tr.bestParams
	if best == nil && result != nil {
		best = params.Clamp(params.Denormalize(result.X))
	}
	if best == nil {
		return fmt.Errorf("no evaluations completed")
	}

	fmt.Printf("\nDone after %d evaluations in %s, best fitness %.4f\n",
		tr.evals, formatDuration(time.Since(tr.start)), tr.best)
	for i, spec := range params.Specs {
		fmt.Printf("  %-16s %-40s %.4f\n", spec.Name, spec.Path, best[i])
	}

	params.ApplyToConfig(baseCfg, best)
	out := filepath.Join(o.outputDir, "best_config.yaml")
	if err := baseCfg.WriteYAML(out); err != nil {
		return fmt.Errorf("writing best config: %w", err)
	}
	fmt.Printf("Best config saved to %s\n", out)
	return nil
}

// evalRecord is one row of optimize_log.csv.
type evalRecord struct {
	Eval         int     `csv:"eval"`
	Fitness      float64 `csv:"fitness"`
	Connectivity float64 `csv:"connectivity"`
	Params       string  `csv:"params"` // clamped name=value pairs
}

// tracker wraps the evaluator to log every evaluation and keep the best
// parameters seen, which CMA-ES may not return as its final point.
type tracker struct {
	params     *ParamVector
	evaluator  *FitnessEvaluator
	log        io.Writer
	maxEvals   int
	evals      int
	best       float64
	bestParams []float64
	start      time.Time
}

func (tr *tracker) evaluate(x []float64) float64 {
	clamped := tr.params.Clamp(tr.params.Denormalize(x))
	fitness := tr.evaluator.Evaluate(clamped)
	tr.evals++
	if fitness < tr.best {
		tr.best = fitness
		tr.bestParams = clamped
	}

	rec := []evalRecord{{
		Eval:         tr.evals,
		Fitness:      fitness,
		Connectivity: tr.evaluator.LastQuality(),
		Params:       formatParams(tr.params, clamped),
	}}
	var err error
	if tr.evals == 1 {
		err = gocsv.Marshal(rec, tr.log)
	} else {
		err = gocsv.MarshalWithoutHeaders(rec, tr.log)
	}
	if err != nil {
		slog.Error("failed to write eval log", "error", err)
	}

	elapsed := time.Since(tr.start)
	eta := time.Duration(tr.maxEvals-tr.evals) * (elapsed / time.Duration(tr.evals))
	fmt.Printf("Eval %d/%d: fitness=%.4f connectivity=%.3f (best=%.4f) | elapsed %s, eta %s\n",
		tr.evals, tr.maxEvals, fitness, tr.evaluator.LastQuality(), tr.best,
		formatDuration(elapsed), formatDuration(eta))
	return fitness
}

// formatDuration renders d as 1h02m03s or 2m03s.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h, m, s := d/time.Hour, (d%time.Hour)/time.Minute, (d%time.Minute)/time.Second
	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, m, s)
	}
	return fmt.Sprintf("%dm%02ds", m, s)
}

// formatParams renders values as space-separated name=value pairs.
func formatParams(pv *ParamVector, values []float64) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprintf("%s=%.4f", pv.Specs[i].Name, v)
	}
	return strings.Join(parts, " ")
}
