// Package config declares the YAML experiment format: one file describes the
// network, the rates, the functional response, the growth term, and the
// simulation settings of a run.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ecodyn/foodweb/internal/sim"
)

type Config struct {
	Network     NetworkConfig     `yaml:"network"`
	Rates       RatesConfig       `yaml:"rates"`
	Response    ResponseConfig    `yaml:"response"`
	Growth      GrowthConfig      `yaml:"growth"`
	Environment EnvironmentConfig `yaml:"environment"`
	Sim         SimConfig         `yaml:"sim"`
	Integrator  string            `yaml:"integrator"`
	Seed        int64             `yaml:"seed"`
	// InitialBiomass seeds every species; zero means the driver default.
	InitialBiomass float64 `yaml:"initial_biomass"`
}

// NetworkConfig selects the web source: an inline adjacency matrix or one of
// the random generators.
type NetworkConfig struct {
	// Source is "adjacency", "niche", or "cascade".
	Source    string      `yaml:"source"`
	Adjacency [][]float64 `yaml:"adjacency,omitempty"`
	// Classes are per-species metabolic classes for inline adjacency;
	// generated webs assign them from topology.
	Classes     []string `yaml:"classes,omitempty"`
	Names       []string `yaml:"names,omitempty"`
	Species     int      `yaml:"species,omitempty"`
	Connectance float64  `yaml:"connectance,omitempty"`
}

type RatesConfig struct {
	// MassRatio is the consumer-resource body-mass ratio z; body mass then
	// scales with trophic level.
	MassRatio float64 `yaml:"mass_ratio"`
	// BodyMass overrides the allometric masses per species when set.
	BodyMass []float64 `yaml:"body_mass,omitempty"`
	// OverridesCSV points to a per-species rate override table.
	OverridesCSV string `yaml:"overrides_csv,omitempty"`
}

type ResponseConfig struct {
	// Kind is "bioenergetic" or "classic".
	Kind           string    `yaml:"kind"`
	Hill           float64   `yaml:"hill,omitempty"`
	HalfSaturation float64   `yaml:"half_saturation,omitempty"`
	Interference   []float64 `yaml:"interference,omitempty"`
	AttackRate     float64   `yaml:"attack_rate,omitempty"`
	HandlingTime   float64   `yaml:"handling_time,omitempty"`
}

type GrowthConfig struct {
	// Kind is "logistic" or "nutrients".
	Kind             string    `yaml:"kind"`
	CarryingCapacity []float64 `yaml:"carrying_capacity,omitempty"`
	Nutrients        int       `yaml:"nutrients,omitempty"`
	Turnover         []float64 `yaml:"turnover,omitempty"`
	Supply           []float64 `yaml:"supply,omitempty"`
}

type EnvironmentConfig struct {
	Temperature float64 `yaml:"temperature"`
	// Scaling is "none" or "boltzmann".
	Scaling string `yaml:"scaling,omitempty"`
}

type SimConfig struct {
	Dt                  float64 `yaml:"dt"`
	Horizon             float64 `yaml:"horizon"`
	Adaptive            bool    `yaml:"adaptive"`
	Tolerance           float64 `yaml:"tolerance"`
	ExtinctionThreshold float64 `yaml:"extinction_threshold"`
	SteadyStateTol      float64 `yaml:"steady_state_tol"`
}

func DefaultConfig() *Config {
	d := sim.DefaultConfig()
	return &Config{
		Network: NetworkConfig{
			Source:      "niche",
			Species:     20,
			Connectance: 0.15,
		},
		Rates:       RatesConfig{MassRatio: 10},
		Response:    ResponseConfig{Kind: "bioenergetic"},
		Growth:      GrowthConfig{Kind: "logistic"},
		Environment: EnvironmentConfig{Temperature: 20, Scaling: "none"},
		Sim: SimConfig{
			Dt:                  d.Dt,
			Horizon:             d.Horizon,
			Adaptive:            d.Adaptive,
			Tolerance:           d.Tolerance,
			ExtinctionThreshold: d.ExtinctionThreshold,
			SteadyStateTol:      d.SteadyStateTol,
		},
		Integrator: "rk45",
		Seed:       1,
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
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

// SimConfig translates the YAML block into the driver configuration, filling
// the bounds the file does not expose.
func (c *Config) SimConfig() sim.Config {
	out := sim.DefaultConfig()
	out.Dt = c.Sim.Dt
	out.Horizon = c.Sim.Horizon
	out.Adaptive = c.Sim.Adaptive
	out.Tolerance = c.Sim.Tolerance
	out.ExtinctionThreshold = c.Sim.ExtinctionThreshold
	out.SteadyStateTol = c.Sim.SteadyStateTol
	return out
}
