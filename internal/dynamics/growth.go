package dynamics

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/ecodyn/foodweb/internal/foodweb"
)

// ProducerGrowth computes the intrinsic growth contribution of each producer.
// Non-producers always contribute zero.
type ProducerGrowth interface {
	// NutrientDim is the number of nutrient pools appended to the state
	// vector; zero for logistic growth.
	NutrientDim() int
	// Value returns the growth term for species i given its effective growth
	// rate r, the biomass vector b, and the nutrient concentrations n (empty
	// for logistic growth).
	Value(i int, r float64, b, n []float64) float64

	span() int
	setLayersActive(active bool)
}

// LogisticGrowth limits each producer by its carrying capacity and by
// competitive pressure from other producers:
//
//	g_i = r_i·B[i]·(1 − Σ_k a[i,k]·B[k] / K[i])
//
// A zero carrying capacity means the environment supports no standing stock;
// the term degenerates to plain decay −r_i·B[i].
type LogisticGrowth struct {
	net         *foodweb.Network
	carrying    []float64
	competition *mat.Dense

	layer       *foodweb.Layer
	layerActive bool
}

type LogisticOption func(*LogisticGrowth)

// WithCarryingCapacity sets per-species K; entries for non-producers are
// ignored.
func WithCarryingCapacity(k []float64) LogisticOption {
	return func(g *LogisticGrowth) { g.carrying = k }
}

// WithCompetition sets the producer-competition matrix a. The default is
// self-competition only (identity over producers).
func WithCompetition(a *mat.Dense) LogisticOption {
	return func(g *LogisticGrowth) { g.competition = mat.DenseCopyOf(a) }
}

func NewLogisticGrowth(net *foodweb.Network, opts ...LogisticOption) (*LogisticGrowth, error) {
	s := net.S()
	g := &LogisticGrowth{net: net}
	for _, opt := range opts {
		opt(g)
	}
	if g.carrying == nil {
		g.carrying = fill(s, 1)
	}
	if len(g.carrying) != s {
		return nil, fmt.Errorf("%w: %d carrying capacities for %d species", ErrDimensionMismatch, len(g.carrying), s)
	}
	if g.competition == nil {
		g.competition = mat.NewDense(s, s, nil)
		for _, i := range net.Producers() {
			g.competition.Set(i, i, 1)
		}
	}
	if ar, ac := g.competition.Dims(); ar != s || ac != s {
		return nil, fmt.Errorf("%w: competition matrix is %dx%d for %d species", ErrDimensionMismatch, ar, ac, s)
	}
	if l, ok := net.Layer(foodweb.Competition); ok {
		g.layer = l
	}
	return g, nil
}

func (g *LogisticGrowth) NutrientDim() int            { return 0 }
func (g *LogisticGrowth) span() int                   { return g.net.S() }
func (g *LogisticGrowth) setLayersActive(active bool) { g.layerActive = active }

// CarryingCapacity returns K_i.
func (g *LogisticGrowth) CarryingCapacity(i int) float64 { return g.carrying[i] }

func (g *LogisticGrowth) Value(i int, r float64, b, _ []float64) float64 {
	if !g.net.IsProducer(i) {
		return 0
	}
	k := g.carrying[i]
	if k <= 0 {
		return -r * b[i]
	}
	pressure := 0.0
	for c := 0; c < g.net.S(); c++ {
		if a := g.competition.At(i, c); a != 0 {
			pressure += a * b[c]
		}
	}
	if g.layer != nil && g.layerActive {
		pressure += g.layer.Effect(i, b)
	}
	return r * b[i] * (1 - pressure/k)
}

// competitors lists the nonzero competition pairs of producer i, used by the
// compact evaluator to walk the sparse structure once.
func (g *LogisticGrowth) competitors(i int) []int {
	var out []int
	for c := 0; c < g.net.S(); c++ {
		if g.competition.At(i, c) != 0 {
			out = append(out, c)
		}
	}
	return out
}

// NutrientIntake is nutrient-limited producer growth. The growth of producer
// i is capped by its single most limiting nutrient (Liebig's law):
//
//	g_i = r_i·B[i]·min_k N[k] / (N[k] + half_saturation[i,k])
//
// and the nutrient pools themselves follow
//
//	dN[k]/dt = turnover[k]·(supply[k] − N[k]) − Σ_i concentration[i,k]·g_i.
type NutrientIntake struct {
	net            *foodweb.Network
	turnover       []float64
	supply         []float64
	concentration  *mat.Dense
	halfSaturation *mat.Dense
	producerRow    []int
	n              int
}

type NutrientOption func(*NutrientIntake)

func WithTurnover(d []float64) NutrientOption {
	return func(g *NutrientIntake) { g.turnover = d }
}

func WithSupply(s []float64) NutrientOption {
	return func(g *NutrientIntake) { g.supply = s }
}

// WithConcentration sets the producer×nutrient content matrix (rows follow
// net.Producers() order).
func WithConcentration(c *mat.Dense) NutrientOption {
	return func(g *NutrientIntake) { g.concentration = mat.DenseCopyOf(c) }
}

// WithNutrientHalfSaturation sets the producer×nutrient half-saturation
// matrix (rows follow net.Producers() order).
func WithNutrientHalfSaturation(h *mat.Dense) NutrientOption {
	return func(g *NutrientIntake) { g.halfSaturation = mat.DenseCopyOf(h) }
}

// NewNutrientIntake builds nutrient-limited growth with n nutrient pools.
func NewNutrientIntake(net *foodweb.Network, n int, opts ...NutrientOption) (*NutrientIntake, error) {
	if n < 1 {
		return nil, fmt.Errorf("dynamics: nutrient intake needs at least one nutrient, got %d", n)
	}
	g := &NutrientIntake{net: net, n: n}
	for _, opt := range opts {
		opt(g)
	}
	p := len(net.Producers())
	if g.turnover == nil {
		g.turnover = fill(n, 0.25)
	}
	if g.supply == nil {
		g.supply = fill(n, 10)
	}
	if g.concentration == nil {
		g.concentration = constantDense(p, n, 1)
	}
	if g.halfSaturation == nil {
		g.halfSaturation = constantDense(p, n, 0.15)
	}
	if len(g.turnover) != n || len(g.supply) != n {
		return nil, fmt.Errorf("%w: turnover/supply sized %d/%d for %d nutrients", ErrDimensionMismatch, len(g.turnover), len(g.supply), n)
	}
	for _, m := range []*mat.Dense{g.concentration, g.halfSaturation} {
		if mr, mc := m.Dims(); mr != p || mc != n {
			return nil, fmt.Errorf("%w: nutrient matrix is %dx%d, want %dx%d", ErrDimensionMismatch, mr, mc, p, n)
		}
	}
	g.producerRow = make([]int, net.S())
	for i := range g.producerRow {
		g.producerRow[i] = -1
	}
	for row, i := range net.Producers() {
		g.producerRow[i] = row
	}
	return g, nil
}

func (g *NutrientIntake) NutrientDim() int     { return g.n }
func (g *NutrientIntake) span() int            { return g.net.S() }
func (g *NutrientIntake) setLayersActive(bool) {}

func (g *NutrientIntake) Value(i int, r float64, b, n []float64) float64 {
	row := g.producerRow[i]
	if row < 0 {
		return 0
	}
	limit := 1.0
	for k := 0; k < g.n; k++ {
		limit = min(limit, saturation(n[k], g.halfSaturation.At(row, k)))
	}
	return r * b[i] * limit
}

// DefaultPools returns the supply concentrations, the natural starting point
// for the nutrient state.
func (g *NutrientIntake) DefaultPools() []float64 {
	return append([]float64(nil), g.supply...)
}

// PoolDerivative writes the nutrient-pool derivatives into dst given the
// per-species growth terms already computed for this state.
func (g *NutrientIntake) PoolDerivative(dst, n, growth []float64) {
	for k := 0; k < g.n; k++ {
		uptake := 0.0
		for row, i := range g.net.Producers() {
			uptake += g.concentration.At(row, k) * growth[i]
		}
		dst[k] = g.turnover[k]*(g.supply[k]-n[k]) - uptake
	}
}

// saturation is N/(N+h) with the degenerate 0/0 case defined as 0.
func saturation(n, h float64) float64 {
	if n <= 0 {
		return 0
	}
	return n / (n + h)
}

func constantDense(r, c int, v float64) *mat.Dense {
	m := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			m.Set(i, j, v)
		}
	}
	return m
}
