package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if len(cfg.Engines) < 2 {
		t.Errorf("default engines = %v, want at least two lanes", cfg.Engines)
	}
	if _, err := GetPreset(cfg.Scenario); err != nil {
		t.Errorf("default scenario %q is not a preset: %v", cfg.Scenario, err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"one engine", func(c *Config) { c.Engines = []string{"analytic"} }, true},
		{"zero step size", func(c *Config) { c.StepSize = 0 }, true},
		{"no scenario", func(c *Config) { c.Scenario, c.ScenarioFile = "", "" }, true},
		{"file instead of preset", func(c *Config) { c.Scenario, c.ScenarioFile = "", "scene.yaml" }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSaveLoad(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Engines = []string{"analytic", "sampled", "planar"}
	cfg.Parallel = true
	cfg.Sweep.CellSizeFactor = 0.25

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Engines) != 3 || got.Engines[2] != "planar" {
		t.Errorf("engines = %v", got.Engines)
	}
	if !got.Parallel {
		t.Error("parallel flag lost")
	}
	if got.Sweep.CellSizeFactor != 0.25 {
		t.Errorf("cell size factor = %v", got.Sweep.CellSizeFactor)
	}
	// Fields absent from the file keep their defaults.
	if got.StepSize != DefaultStepSize {
		t.Errorf("step size = %v", got.StepSize)
	}
}

func TestLoad_PartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("scenario: sphere-mesh\n"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Scenario != "sphere-mesh" {
		t.Errorf("scenario = %q", cfg.Scenario)
	}
	if cfg.DataDir != DefaultDataDir {
		t.Errorf("data dir = %q", cfg.DataDir)
	}
}

func TestLoad_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("engines: [analytic]\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("single-engine config accepted")
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("missing file accepted")
	}
}

func TestGetPreset(t *testing.T) {
	for _, name := range PresetNames() {
		p, err := GetPreset(name)
		if err != nil {
			t.Fatalf("preset %s: %v", name, err)
		}
		if err := p.Scenario.Validate(); err != nil {
			t.Errorf("preset %s scenario invalid: %v", name, err)
		}
		if err := p.Sweep.Validate(); err != nil {
			t.Errorf("preset %s sweep invalid: %v", name, err)
		}
		if p.Scenario.Model(p.Sweep.Model1) == nil || p.Scenario.Model(p.Sweep.Model2) == nil {
			t.Errorf("preset %s sweep names models missing from its scenario", name)
		}
	}
}

func TestGetPreset_Unknown(t *testing.T) {
	if _, err := GetPreset("box-box"); err == nil {
		t.Error("unknown preset accepted")
	}
}
