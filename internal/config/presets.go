package config

// Presets are ready-made experiment configurations, grouped by scenario.
var Presets = map[string]map[string]*Config{
	"chain": {
		"short": presetChain(200),
		"long":  presetChain(2000),
	},
	"niche": {
		"small": presetNiche(10, 0.1),
		"web":   presetNiche(20, 0.15),
		"dense": presetNiche(30, 0.25),
	},
	"cascade": {
		"web": {
			Network:     NetworkConfig{Source: "cascade", Species: 20, Connectance: 0.15},
			Rates:       RatesConfig{MassRatio: 10},
			Response:    ResponseConfig{Kind: "bioenergetic"},
			Growth:      GrowthConfig{Kind: "logistic"},
			Environment: EnvironmentConfig{Temperature: 20},
			Sim:         defaultSimBlock(500),
			Integrator:  "rk45",
			Seed:        1,
		},
	},
	"nutrients": {
		"web": {
			Network:     NetworkConfig{Source: "niche", Species: 20, Connectance: 0.15},
			Rates:       RatesConfig{MassRatio: 10},
			Response:    ResponseConfig{Kind: "bioenergetic"},
			Growth:      GrowthConfig{Kind: "nutrients", Nutrients: 2},
			Environment: EnvironmentConfig{Temperature: 20},
			Sim:         defaultSimBlock(500),
			Integrator:  "rk45",
			Seed:        1,
		},
	},
	"warming": {
		"web": {
			Network:     NetworkConfig{Source: "niche", Species: 20, Connectance: 0.15},
			Rates:       RatesConfig{MassRatio: 10},
			Response:    ResponseConfig{Kind: "bioenergetic"},
			Growth:      GrowthConfig{Kind: "logistic"},
			Environment: EnvironmentConfig{Temperature: 30, Scaling: "boltzmann"},
			Sim:         defaultSimBlock(500),
			Integrator:  "rk45",
			Seed:        1,
		},
	},
}

func presetChain(horizon float64) *Config {
	return &Config{
		Network: NetworkConfig{
			Source: "adjacency",
			Adjacency: [][]float64{
				{0, 0, 0},
				{1, 0, 0},
				{0, 1, 0},
			},
			Classes: []string{"producer", "invertebrate", "ectotherm vertebrate"},
			Names:   []string{"plant", "herbivore", "predator"},
		},
		Rates:       RatesConfig{MassRatio: 10},
		Response:    ResponseConfig{Kind: "bioenergetic"},
		Growth:      GrowthConfig{Kind: "logistic"},
		Environment: EnvironmentConfig{Temperature: 20},
		Sim:         defaultSimBlock(horizon),
		Integrator:  "rk45",
		Seed:        1,
	}
}

func presetNiche(species int, connectance float64) *Config {
	return &Config{
		Network:     NetworkConfig{Source: "niche", Species: species, Connectance: connectance},
		Rates:       RatesConfig{MassRatio: 10},
		Response:    ResponseConfig{Kind: "bioenergetic"},
		Growth:      GrowthConfig{Kind: "logistic"},
		Environment: EnvironmentConfig{Temperature: 20},
		Sim:         defaultSimBlock(500),
		Integrator:  "rk45",
		Seed:        1,
	}
}

func defaultSimBlock(horizon float64) SimConfig {
	return SimConfig{
		Dt:                  0.1,
		Horizon:             horizon,
		Adaptive:            true,
		Tolerance:           1e-8,
		ExtinctionThreshold: 1e-6,
		SteadyStateTol:      1e-6,
	}
}

func GetPreset(scenario, preset string) *Config {
	group, ok := Presets[scenario]
	if !ok {
		return nil
	}
	cfg, ok := group[preset]
	if !ok {
		return nil
	}
	return cfg
}

func ListPresets(scenario string) []string {
	group, ok := Presets[scenario]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(group))
	for name := range group {
		names = append(names, name)
	}
	return names
}
