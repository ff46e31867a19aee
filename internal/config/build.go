package config

import (
	"fmt"
	"math/rand"
	"os"

	"gonum.org/v1/gonum/mat"

	"github.com/ecodyn/foodweb/internal/dynamics"
	"github.com/ecodyn/foodweb/internal/foodweb"
	"github.com/ecodyn/foodweb/internal/integrators"
	"github.com/ecodyn/foodweb/internal/rates"
)

// Build assembles the full model from the configuration: network, rate
// tables, functional response, growth term, environment.
func (c *Config) Build() (*dynamics.Model, error) {
	net, err := c.buildNetwork()
	if err != nil {
		return nil, err
	}
	br, err := c.buildRates(net)
	if err != nil {
		return nil, err
	}
	resp, err := c.buildResponse(net)
	if err != nil {
		return nil, err
	}
	growth, err := c.buildGrowth(net)
	if err != nil {
		return nil, err
	}
	return dynamics.NewModel(net, br, resp, growth, c.modelOptions()...)
}

// BuildIntegrator resolves the integrator name.
func (c *Config) BuildIntegrator() (dynamics.Integrator, error) {
	switch c.Integrator {
	case "euler":
		return integrators.NewEuler(), nil
	case "rk4":
		return integrators.NewRK4(), nil
	case "rk45", "":
		return integrators.NewRK45(), nil
	}
	return nil, fmt.Errorf("config: unknown integrator %q", c.Integrator)
}

func (c *Config) buildNetwork() (*foodweb.Network, error) {
	rng := rand.New(rand.NewSource(c.Seed))
	switch c.Network.Source {
	case "adjacency":
		return c.inlineNetwork()
	case "niche", "":
		return foodweb.Niche(c.Network.Species, c.Network.Connectance, rng)
	case "cascade":
		return foodweb.Cascade(c.Network.Species, c.Network.Connectance, rng)
	}
	return nil, fmt.Errorf("config: unknown network source %q", c.Network.Source)
}

func (c *Config) inlineNetwork() (*foodweb.Network, error) {
	s := len(c.Network.Adjacency)
	if s == 0 {
		return nil, fmt.Errorf("config: adjacency source needs an adjacency matrix")
	}
	adj := mat.NewDense(s, s, nil)
	for i, row := range c.Network.Adjacency {
		if len(row) != s {
			return nil, fmt.Errorf("config: adjacency row %d has %d entries, want %d", i, len(row), s)
		}
		for j, v := range row {
			adj.Set(i, j, v)
		}
	}
	if len(c.Network.Classes) != s {
		return nil, fmt.Errorf("config: %d metabolic classes for %d species", len(c.Network.Classes), s)
	}
	classes := make([]foodweb.MetabolicClass, s)
	for i, cl := range c.Network.Classes {
		classes[i] = foodweb.MetabolicClass(cl)
	}
	var opts []foodweb.Option
	if len(c.Network.Names) > 0 {
		opts = append(opts, foodweb.WithNames(c.Network.Names))
	}
	return foodweb.New(adj, classes, opts...)
}

func (c *Config) buildRates(net *foodweb.Network) (*rates.BioRates, error) {
	mass := c.Rates.BodyMass
	if mass == nil {
		z := c.Rates.MassRatio
		if z <= 0 {
			z = 10
		}
		mass = rates.DefaultBodyMass(net, z)
	}
	if c.Rates.OverridesCSV != "" {
		f, err := os.Open(c.Rates.OverridesCSV)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		rows, err := rates.ReadOverrides(f)
		if err != nil {
			return nil, err
		}
		mass = append([]float64(nil), mass...)
		if err := rates.ApplyMassOverrides(net, mass, rows); err != nil {
			return nil, err
		}
		br, err := rates.Allometric(net, mass)
		if err != nil {
			return nil, err
		}
		if err := br.Apply(net, rows); err != nil {
			return nil, err
		}
		return br, nil
	}
	return rates.Allometric(net, mass)
}

func (c *Config) buildResponse(net *foodweb.Network) (dynamics.FunctionalResponse, error) {
	switch c.Response.Kind {
	case "bioenergetic", "":
		var opts []dynamics.BioenergeticOption
		if c.Response.Hill > 0 {
			opts = append(opts, dynamics.WithHill(c.Response.Hill))
		}
		if c.Response.HalfSaturation > 0 {
			opts = append(opts, dynamics.WithHalfSaturation(fillSlice(net.S(), c.Response.HalfSaturation)))
		}
		if c.Response.Interference != nil {
			opts = append(opts, dynamics.WithInterference(c.Response.Interference))
		}
		return dynamics.NewBioenergeticResponse(net, opts...)
	case "classic":
		var opts []dynamics.ClassicOption
		if c.Response.Hill > 0 {
			opts = append(opts, dynamics.WithClassicHill(c.Response.Hill))
		}
		if c.Response.Interference != nil {
			opts = append(opts, dynamics.WithClassicInterference(c.Response.Interference))
		}
		if c.Response.AttackRate > 0 {
			opts = append(opts, dynamics.WithAttackRates(linkMatrix(net, c.Response.AttackRate)))
		}
		if c.Response.HandlingTime > 0 {
			opts = append(opts, dynamics.WithHandlingTimes(linkMatrix(net, c.Response.HandlingTime)))
		}
		return dynamics.NewClassicResponse(net, opts...)
	}
	return nil, fmt.Errorf("config: unknown response kind %q", c.Response.Kind)
}

func (c *Config) buildGrowth(net *foodweb.Network) (dynamics.ProducerGrowth, error) {
	switch c.Growth.Kind {
	case "logistic", "":
		var opts []dynamics.LogisticOption
		if c.Growth.CarryingCapacity != nil {
			opts = append(opts, dynamics.WithCarryingCapacity(c.Growth.CarryingCapacity))
		}
		return dynamics.NewLogisticGrowth(net, opts...)
	case "nutrients":
		n := c.Growth.Nutrients
		if n == 0 {
			n = 2
		}
		var opts []dynamics.NutrientOption
		if c.Growth.Turnover != nil {
			opts = append(opts, dynamics.WithTurnover(c.Growth.Turnover))
		}
		if c.Growth.Supply != nil {
			opts = append(opts, dynamics.WithSupply(c.Growth.Supply))
		}
		return dynamics.NewNutrientIntake(net, n, opts...)
	}
	return nil, fmt.Errorf("config: unknown growth kind %q", c.Growth.Kind)
}

func (c *Config) modelOptions() []dynamics.ModelOption {
	opts := []dynamics.ModelOption{
		dynamics.WithEnvironment(dynamics.Environment{Temperature: c.Environment.Temperature}),
	}
	if c.Environment.Scaling == "boltzmann" {
		opts = append(opts, dynamics.WithTemperatureResponse(dynamics.DefaultBoltzmannArrhenius()))
	}
	return opts
}

func fillSlice(n int, v float64) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = v
	}
	return s
}

func linkMatrix(net *foodweb.Network, v float64) *mat.Dense {
	s := net.S()
	m := mat.NewDense(s, s, nil)
	for i := 0; i < s; i++ {
		for _, j := range net.PreyOf(i) {
			m.Set(i, j, v)
		}
	}
	return m
}
