// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"runtime"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all simulation configuration parameters.
type Config struct {
	World       WorldConfig       `yaml:"world"`
	Generation  GenerationConfig  `yaml:"generation"`
	Collision   CollisionConfig   `yaml:"collision"`
	Scheduler   SchedulerConfig   `yaml:"scheduler"`
	Agents      AgentsConfig      `yaml:"agents"`
	Projectiles ProjectilesConfig `yaml:"projectiles"`
	Physics     PhysicsConfig     `yaml:"physics"`
	Telemetry   TelemetryConfig   `yaml:"telemetry"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// WorldConfig holds tile world dimensions.
type WorldConfig struct {
	Width          int     `yaml:"width"`           // Grid width in tiles
	Height         int     `yaml:"height"`          // Grid height in tiles
	TileSize       float64 `yaml:"tile_size"`       // World units per tile
	Seed           uint64  `yaml:"seed"`            // 0 = derive from run seed
	RegenThreshold int     `yaml:"regen_threshold"` // Ignore resizes smaller than this many tiles
}

// GenerationConfig holds map generation rules keyed by tile name.
type GenerationConfig struct {
	InitialTile   string                        `yaml:"initial_tile"`
	Background    string                        `yaml:"background"`
	Iterations    int                           `yaml:"iterations"`
	MinRegionSize int                           `yaml:"min_region_size"`
	Transitions   map[string]map[string]float64 `yaml:"transitions"` // P(next | current)
	Survival      map[string][2]int             `yaml:"survival"`    // [min, max] same-type neighbours
}

// CollisionConfig holds collider parameters.
type CollisionConfig struct {
	Shrink            float64 `yaml:"shrink"`               // Collider side as a fraction of tile size
	AgentGridCellSize float64 `yaml:"agent_grid_cell_size"` // Broadphase bucket size for agents
}

// SchedulerConfig holds agent scheduler parameters.
type SchedulerConfig struct {
	MaxAgentsPerWorker int     `yaml:"max_agents_per_worker"`
	Parallelism        int     `yaml:"parallelism"`       // 0 = GOMAXPROCS
	VisibilityRange    float64 `yaml:"visibility_range"`  // World units around the reference position
	VisibilityMargin   float64 `yaml:"visibility_margin"` // Extra slack beyond visibility
	NearDistance       float64 `yaml:"near_distance"`
	FarDistance        float64 `yaml:"far_distance"`
	NearInterval       float64 `yaml:"near_interval"` // Seconds between re-targets
	MidInterval        float64 `yaml:"mid_interval"`
	FarInterval        float64 `yaml:"far_interval"`
	StopDistance       float64 `yaml:"stop_distance"`
	ShutdownTimeout    float64 `yaml:"shutdown_timeout"` // Seconds
}

// AgentsConfig holds agent spawn parameters.
type AgentsConfig struct {
	Initial          int     `yaml:"initial"`
	Speed            float64 `yaml:"speed"`
	Radius           float64 `yaml:"radius"`
	Health           float64 `yaml:"health"`
	SpawnAttempts    int     `yaml:"spawn_attempts"`
	AllowUnsafeSpawn bool    `yaml:"allow_unsafe_spawn"` // Last-resort spawn in solid terrain
	RepathAfter      int     `yaml:"repath_after"`       // Blocked steps before planning a path (0 = never)
}

// ProjectilesConfig holds projectile parameters.
type ProjectilesConfig struct {
	Speed     float64 `yaml:"speed"`
	Radius    float64 `yaml:"radius"`
	Damage    float64 `yaml:"damage"`
	TTL       float64 `yaml:"ttl"` // Seconds
	Prealloc  int     `yaml:"prealloc"`
	MaxActive int     `yaml:"max_active"`
}

// PhysicsConfig holds simulation timing.
type PhysicsConfig struct {
	DT float64 `yaml:"dt"`
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	StatsWindow         float64 `yaml:"stats_window"`
	PerfCollectorWindow int     `yaml:"perf_collector_window"`
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	Parallelism     int     // Scheduler.Parallelism or GOMAXPROCS
	VisibilityBound float64 // VisibilityRange + VisibilityMargin
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Defaults returns a fresh copy of the embedded defaults.
func Defaults() *Config {
	cfg, err := Load("")
	if err != nil {
		panic(fmt.Sprintf("config: embedded defaults invalid: %v", err))
	}
	return cfg
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := cfg.merge(data); err != nil {
			return nil, err
		}
	}

	if err := cfg.Refresh(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Parse builds a config from YAML bytes layered over the embedded defaults.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}
	if err := cfg.merge(data); err != nil {
		return nil, err
	}
	if err := cfg.Refresh(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// merge overlays user YAML. Only fields present in data are overwritten;
// a transition row named in data replaces the default row wholesale.
func (c *Config) merge(data []byte) error {
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}
	return nil
}

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid config")

// Validate checks values that would otherwise corrupt downstream systems.
// Tile names are checked by tilemap.RulesFromConfig.
func (c *Config) Validate() error {
	switch {
	case c.World.Width < 1 || c.World.Height < 1:
		return fmt.Errorf("%w: world size %dx%d", ErrInvalid, c.World.Width, c.World.Height)
	case c.World.TileSize <= 0:
		return fmt.Errorf("%w: world.tile_size must be positive", ErrInvalid)
	case c.Collision.Shrink <= 0 || c.Collision.Shrink > 1:
		return fmt.Errorf("%w: collision.shrink must be in (0,1]", ErrInvalid)
	case c.Collision.AgentGridCellSize <= 0:
		return fmt.Errorf("%w: collision.agent_grid_cell_size must be positive", ErrInvalid)
	case c.Scheduler.MaxAgentsPerWorker < 1:
		return fmt.Errorf("%w: scheduler.max_agents_per_worker must be >= 1", ErrInvalid)
	case c.Scheduler.Parallelism < 0:
		return fmt.Errorf("%w: scheduler.parallelism must be >= 0", ErrInvalid)
	case c.Scheduler.NearDistance > c.Scheduler.FarDistance:
		return fmt.Errorf("%w: scheduler.near_distance exceeds far_distance", ErrInvalid)
	case c.Physics.DT <= 0:
		return fmt.Errorf("%w: physics.dt must be positive", ErrInvalid)
	case c.Agents.SpawnAttempts < 1:
		return fmt.Errorf("%w: agents.spawn_attempts must be >= 1", ErrInvalid)
	case c.Agents.RepathAfter < 0:
		return fmt.Errorf("%w: agents.repath_after must be >= 0", ErrInvalid)
	case c.Generation.Iterations < 0 || c.Generation.MinRegionSize < 0:
		return fmt.Errorf("%w: generation iterations and min_region_size must be >= 0", ErrInvalid)
	}
	return nil
}

// Refresh re-validates the config and recomputes Derived. Call it after
// mutating fields of a loaded config.
func (c *Config) Refresh() error {
	if err := c.Validate(); err != nil {
		return err
	}
	c.computeDerived()
	return nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	c.Derived.Parallelism = c.Scheduler.Parallelism
	if c.Derived.Parallelism == 0 {
		c.Derived.Parallelism = runtime.GOMAXPROCS(0)
	}
	c.Derived.VisibilityBound = c.Scheduler.VisibilityRange + c.Scheduler.VisibilityMargin
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
