package main

import (
	"github.com/pthm-cable/skirmish/config"
	"github.com/pthm-cable/skirmish/tilemap"
)

// ParamSpec defines a single optimizable parameter.
type ParamSpec struct {
	Name    string  // Human-readable name
	Path    string  // Config path for logging
	Min     float64 // Lower bound
	Max     float64 // Upper bound
	Default float64 // Default value
}

// ParamVector holds the set of all optimizable parameters.
type ParamVector struct {
	Specs []ParamSpec
}

// NewParamVector creates the standard set of optimizable parameters:
// the self-transition probability of every tile type plus the cleanup
// threshold. Defaults are read from cfg.
func NewParamVector(cfg *config.Config) *ParamVector {
	pv := &ParamVector{}
	for t := range tilemap.NumTileTypes {
		name := t.String()
		pv.Specs = append(pv.Specs, ParamSpec{
			Name:    name + "_stay",
			Path:    "generation.transitions." + name + "." + name,
			Min:     0.05,
			Max:     0.95,
			Default: cfg.Generation.Transitions[name][name],
		})
	}
	pv.Specs = append(pv.Specs, ParamSpec{
		Name:    "min_region_size",
		Path:    "generation.min_region_size",
		Min:     1,
		Max:     24,
		Default: float64(cfg.Generation.MinRegionSize),
	})
	return pv
}

// Dim returns the number of parameters.
func (pv *ParamVector) Dim() int {
	return len(pv.Specs)
}

// DefaultVector returns the default parameter values as a slice.
func (pv *ParamVector) DefaultVector() []float64 {
	v := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		v[i] = spec.Default
	}
	return v
}

// Normalize converts raw parameter values to [0,1] range.
func (pv *ParamVector) Normalize(raw []float64) []float64 {
	normalized := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		normalized[i] = (raw[i] - spec.Min) / (spec.Max - spec.Min)
	}
	return normalized
}

// Denormalize converts [0,1] values back to raw parameter values.
func (pv *ParamVector) Denormalize(normalized []float64) []float64 {
	raw := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		raw[i] = spec.Min + normalized[i]*(spec.Max-spec.Min)
	}
	return raw
}

// Clamp ensures all values are within bounds.
func (pv *ParamVector) Clamp(v []float64) []float64 {
	clamped := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		clamped[i] = min(max(v[i], spec.Min), spec.Max)
	}
	return clamped
}

// ApplyToConfig applies parameter values to a Config struct. Each
// self-transition replaces the diagonal of its row; the off-diagonal mass
// is rescaled so the row still sums to 1 in its original proportions.
func (pv *ParamVector) ApplyToConfig(cfg *config.Config, values []float64) {
	clamped := pv.Clamp(values)

	// Copy rows so the base config's maps are not shared.
	rows := make(map[string]map[string]float64, len(cfg.Generation.Transitions))
	for from, row := range cfg.Generation.Transitions {
		cp := make(map[string]float64, len(row))
		for to, p := range row {
			cp[to] = p
		}
		rows[from] = cp
	}

	for t := range tilemap.NumTileTypes {
		name := t.String()
		row := rows[name]
		if row == nil {
			row = make(map[string]float64)
			rows[name] = row
		}
		stay := clamped[int(t)]

		var others float64
		for to, p := range row {
			if to != name {
				others += p
			}
		}
		if others > 0 {
			for to, p := range row {
				if to != name {
					row[to] = p / others * (1 - stay)
				}
			}
		} else {
			// No off-diagonal weights to scale: spread evenly.
			share := (1 - stay) / float64(tilemap.NumTileTypes-1)
			for o := range tilemap.NumTileTypes {
				if o != t {
					row[o.String()] = share
				}
			}
		}
		row[name] = stay
	}

	cfg.Generation.Transitions = rows
	cfg.Generation.MinRegionSize = int(clamped[int(tilemap.NumTileTypes)] + 0.5)
}

// ExtractFromConfig extracts current parameter values from a Config struct.
func (pv *ParamVector) ExtractFromConfig(cfg *config.Config) []float64 {
	v := make([]float64, 0, len(pv.Specs))
	for t := range tilemap.NumTileTypes {
		name := t.String()
		v = append(v, cfg.Generation.Transitions[name][name])
	}
	return append(v, float64(cfg.Generation.MinRegionSize))
}
