package tilemap

import (
	"errors"
	"testing"

	"github.com/pthm-cable/skirmish/config"
)

func TestDefaultRulesValid(t *testing.T) {
	rules := DefaultRules()
	if err := rules.Validate(); err != nil {
		t.Fatalf("DefaultRules invalid: %v", err)
	}
}

func TestRulesFromConfigMatchesDefaults(t *testing.T) {
	cfg := config.Defaults()
	rules, initial, err := RulesFromConfig(cfg.Generation)
	if err != nil {
		t.Fatalf("RulesFromConfig error: %v", err)
	}
	if initial != Grass {
		t.Errorf("initial = %v, want grass", initial)
	}
	if rules != DefaultRules() {
		t.Errorf("rules from embedded config differ from DefaultRules:\n%+v\n%+v", rules, DefaultRules())
	}
}

func TestRulesFromConfigErrors(t *testing.T) {
	base := config.Defaults().Generation

	tests := []struct {
		name   string
		mutate func(g *config.GenerationConfig)
		want   error
	}{
		{
			name:   "unknown initial",
			mutate: func(g *config.GenerationConfig) { g.InitialTile = "lava" },
			want:   ErrUnknownTile,
		},
		{
			name:   "unknown background",
			mutate: func(g *config.GenerationConfig) { g.Background = "void" },
			want:   ErrUnknownTile,
		},
		{
			name: "unknown source row",
			mutate: func(g *config.GenerationConfig) {
				g.Transitions = map[string]map[string]float64{"ice": {"grass": 1}}
			},
			want: ErrUnknownTile,
		},
		{
			name: "unknown destination",
			mutate: func(g *config.GenerationConfig) {
				g.Transitions = map[string]map[string]float64{"grass": {"ice": 1}}
			},
			want: ErrUnknownTile,
		},
		{
			name: "row does not sum to one",
			mutate: func(g *config.GenerationConfig) {
				g.Transitions = map[string]map[string]float64{"grass": {"grass": 0.5}}
			},
			want: ErrInvalidRules,
		},
		{
			name: "negative weight",
			mutate: func(g *config.GenerationConfig) {
				g.Transitions = map[string]map[string]float64{"grass": {"grass": 1.5, "dirt": -0.5}}
			},
			want: ErrInvalidRules,
		},
		{
			name:   "inverted survival",
			mutate: func(g *config.GenerationConfig) { g.Survival = map[string][2]int{"stone": {6, 2}} },
			want:   ErrInvalidRules,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			gen := base
			tc.mutate(&gen)
			_, _, err := RulesFromConfig(gen)
			if !errors.Is(err, tc.want) {
				t.Errorf("error = %v, want %v", err, tc.want)
			}
		})
	}
}
