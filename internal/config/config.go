package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/collidebench/internal/manager"
	"github.com/san-kum/collidebench/internal/state"
)

const (
	DefaultStepSize = 1e-3
	DefaultDataDir  = "runs"
)

type Config struct {
	// Engines names the comparison lanes, resolved through the engine
	// registry.
	Engines []string `yaml:"engines"`

	// Scenario selects a preset by name, or names a scenario file
	// when ScenarioFile is set.
	Scenario     string `yaml:"scenario"`
	ScenarioFile string `yaml:"scenario_file"`

	StepSize   float64             `yaml:"step_size"`
	Parallel   bool                `yaml:"parallel"`
	DataDir    string              `yaml:"data_dir"`
	Tolerances state.Tolerances    `yaml:"tolerances"`
	Sweep      manager.SweepConfig `yaml:"sweep"`
}

func DefaultConfig() *Config {
	return &Config{
		Engines:    []string{"analytic", "sampled"},
		Scenario:   "box-cylinder",
		StepSize:   DefaultStepSize,
		DataDir:    DefaultDataDir,
		Tolerances: state.DefaultTolerances(),
		Sweep:      manager.DefaultSweepConfig(),
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	if len(c.Engines) < 2 {
		return fmt.Errorf("need at least two engines to compare, got %d", len(c.Engines))
	}
	if c.StepSize <= 0 {
		return fmt.Errorf("step size must be positive, got %g", c.StepSize)
	}
	if c.Scenario == "" && c.ScenarioFile == "" {
		return fmt.Errorf("no scenario configured")
	}
	return nil
}
