package dynamics

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/ecodyn/foodweb/internal/foodweb"
	"github.com/ecodyn/foodweb/internal/rates"
)

// Model aggregates one network, one rate table, one functional response, one
// producer-growth term, and one environment into the full dynamical system.
// Immutable for the duration of integration: extinction is represented as
// zeroed biomass in the state, never as parameter mutation.
type Model struct {
	net    *foodweb.Network
	resp   FunctionalResponse
	growth ProducerGrowth
	env    Environment
	temp   TemperatureResponse

	// Temperature-scaled copies of the rate tables.
	r, x, y []float64
	e       *mat.Dense

	// Facilitation scales producer growth rates; only the classic response
	// consumes non-trophic layers.
	facilitation *foodweb.Layer

	warnings []string
	program  *compactProgram
}

type ModelOption func(*Model)

func WithEnvironment(env Environment) ModelOption {
	return func(m *Model) { m.env = env }
}

func WithTemperatureResponse(tr TemperatureResponse) ModelOption {
	return func(m *Model) { m.temp = tr }
}

// NewModel validates the configuration and builds both derivative evaluation
// strategies. Configuration and consistency errors abort construction.
func NewModel(net *foodweb.Network, br *rates.BioRates, resp FunctionalResponse, growth ProducerGrowth, opts ...ModelOption) (*Model, error) {
	s := net.S()
	m := &Model{
		net:    net,
		resp:   resp,
		growth: growth,
		env:    DefaultEnvironment(),
		temp:   NoTemperatureScaling{},
	}
	for _, opt := range opts {
		opt(m)
	}
	if resp.span() != s || growth.span() != s {
		return nil, fmt.Errorf("%w: response/growth built for %d/%d species, network has %d", ErrDimensionMismatch, resp.span(), growth.span(), s)
	}
	if len(br.R) != s || len(br.X) != s || len(br.Y) != s {
		return nil, fmt.Errorf("%w: rate vectors sized %d/%d/%d for %d species", ErrDimensionMismatch, len(br.R), len(br.X), len(br.Y), s)
	}
	if er, ec := br.E.Dims(); er != s || ec != s {
		return nil, fmt.Errorf("%w: efficiency matrix is %dx%d for %d species", ErrDimensionMismatch, er, ec, s)
	}

	fr, fx, fy := m.temp.Factors(m.env.Temperature)
	m.r = scaled(br.R, fr)
	m.x = scaled(br.X, fx)
	m.y = scaled(br.Y, fy)
	m.e = mat.DenseCopyOf(br.E)

	layersActive := resp.Classic()
	growth.setLayersActive(layersActive)
	if layersActive {
		if l, ok := net.Layer(foodweb.Facilitation); ok {
			m.facilitation = l
		}
	}
	if net.Multiplex() && !resp.Classic() {
		m.warnings = append(m.warnings,
			"non-trophic layers are inert under the bioenergetic functional response; use the classic response to activate them")
	}

	program, err := newCompactProgram(m)
	if err != nil {
		return nil, err
	}
	m.program = program
	return m, nil
}

func (m *Model) Network() *foodweb.Network { return m.net }

func (m *Model) S() int { return m.net.S() }

// Dim is the state-vector length: S biomasses plus any nutrient pools.
func (m *Model) Dim() int { return m.net.S() + m.growth.NutrientDim() }

// NutrientDim is the number of nutrient pools; zero under logistic growth.
func (m *Model) NutrientDim() int { return m.growth.NutrientDim() }

// Warnings returns the soft warnings raised at construction, once each.
func (m *Model) Warnings() []string { return m.warnings }

// Nutrients returns the nutrient-intake term, or ErrGrowthMismatch when the
// model is configured with logistic growth.
func (m *Model) Nutrients() (*NutrientIntake, error) {
	if ni, ok := m.growth.(*NutrientIntake); ok {
		return ni, nil
	}
	return nil, ErrGrowthMismatch
}

// InitialState assembles a full state vector from species biomasses and
// nutrient concentrations. Supplying nutrients to a logistic-growth model is
// a configuration error.
func (m *Model) InitialState(b0, n0 []float64) (State, error) {
	s := m.net.S()
	if len(b0) != s {
		return nil, fmt.Errorf("%w: %d initial biomasses for %d species", ErrDimensionMismatch, len(b0), s)
	}
	nd := m.growth.NutrientDim()
	if len(n0) > 0 && nd == 0 {
		return nil, ErrGrowthMismatch
	}
	if nd > 0 && len(n0) != nd {
		return nil, fmt.Errorf("%w: %d initial nutrient concentrations for %d pools", ErrDimensionMismatch, len(n0), nd)
	}
	st := make(State, 0, s+nd)
	st = append(st, b0...)
	st = append(st, n0...)
	return st, nil
}

// Generic returns the reference derivative evaluator: direct array
// arithmetic over the full parameter matrices on every call. ext may be nil
// when no extinction tracking is wanted.
func (m *Model) Generic(ext *Extinctions) System {
	return &genericEvaluator{m: m, ext: ext}
}

// Compact returns the optimized evaluator operating over the index lists
// precomputed at construction. Numerically identical to Generic for any
// input.
func (m *Model) Compact(ext *Extinctions) System {
	return m.program.bind(ext)
}

// growthRate is r_i, scaled by facilitation pressure when active.
func (m *Model) growthRate(i int, b []float64) float64 {
	r := m.r[i]
	if m.facilitation != nil {
		r *= 1 + m.facilitation.Effect(i, b)
	}
	return r
}

// effectiveBiomass writes the biomass vector actually fed to every term:
// negative entries (integrator overshoot) clamp to zero and extinct species
// are pinned to zero unconditionally.
func (m *Model) effectiveBiomass(dst []float64, x State, ext *Extinctions) {
	for i := range dst {
		v := x[i]
		if v < 0 || (ext != nil && ext.Extinct(i)) {
			v = 0
		}
		dst[i] = v
	}
}

// effectiveNutrients clamps negative pool concentrations to zero.
func (m *Model) effectiveNutrients(dst []float64, x State) {
	s := m.net.S()
	for k := range dst {
		v := x[s+k]
		if v < 0 {
			v = 0
		}
		dst[k] = v
	}
}

func scaled(v []float64, f float64) []float64 {
	out := make([]float64, len(v))
	for i := range v {
		out[i] = v[i] * f
	}
	return out
}
