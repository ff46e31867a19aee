package dynamics

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/ecodyn/foodweb/internal/foodweb"
)

// Default functional-response parameters (Brose et al. 2006).
const (
	DefaultHillExponent   = 2.0
	DefaultHalfSaturation = 0.5
	DefaultAttackRate     = 50.0
	DefaultHandlingTime   = 0.3
)

// FunctionalResponse computes the consumption intensity F(i,j) for every
// trophic (consumer, resource) pair as
//
//	F(i,j) = ω[i,j]·B[j]^h / (DenomBase(i) + Σ_k DenomTerm(i,k))
//
// The two evaluation strategies differ only in how they iterate the Σ_k sum:
// the generic evaluator runs it densely over all species, the compact one
// only over the consumer's prey list. Preference ω is zero off-link, so both
// sums agree.
type FunctionalResponse interface {
	HillExponent() float64
	// Preference returns the relative-preference matrix ω, nonzero only on
	// trophic links.
	Preference() *mat.Dense
	// DenomBase is the resource-independent part of consumer i's denominator,
	// including predator interference.
	DenomBase(i int, b []float64) float64
	// DenomTerm is resource k's contribution to consumer i's denominator.
	DenomTerm(i, k int, b, bpow []float64) float64
	// Classic reports whether the response consumes non-trophic layers.
	Classic() bool

	span() int
}

// hillPow is the biomass power shared by every response evaluation. Negative
// biomass is a solver artifact and is treated as zero.
func hillPow(b, h float64) float64 {
	if b <= 0 {
		return 0
	}
	if h == 2 {
		return b * b
	}
	if h == 1 {
		return b
	}
	return math.Pow(b, h)
}

// uniformPreference spreads ω evenly over each consumer's prey.
func uniformPreference(net *foodweb.Network) *mat.Dense {
	s := net.S()
	w := mat.NewDense(s, s, nil)
	for i := 0; i < s; i++ {
		prey := net.PreyOf(i)
		if len(prey) == 0 {
			continue
		}
		p := 1.0 / float64(len(prey))
		for _, j := range prey {
			w.Set(i, j, p)
		}
	}
	return w
}

// BioenergeticResponse is the default saturating response with a
// half-saturation density B0 in place of attack rates and handling times:
//
//	F(i,j) = ω[i,j]·B[j]^h / (B0[i]^h·(1 + c[i]·B[i]) + Σ_k ω[i,k]·B[k]^h)
//
// It is the only response available to single-layer trophic networks; it
// ignores non-trophic layers.
type BioenergeticResponse struct {
	hill           float64
	halfSaturation []float64
	interference   []float64
	preference     *mat.Dense
	s              int
}

type BioenergeticOption func(*BioenergeticResponse)

func WithHill(h float64) BioenergeticOption {
	return func(r *BioenergeticResponse) { r.hill = h }
}

func WithHalfSaturation(b0 []float64) BioenergeticOption {
	return func(r *BioenergeticResponse) { r.halfSaturation = b0 }
}

func WithInterference(c []float64) BioenergeticOption {
	return func(r *BioenergeticResponse) { r.interference = c }
}

func WithPreference(w *mat.Dense) BioenergeticOption {
	return func(r *BioenergeticResponse) { r.preference = mat.DenseCopyOf(w) }
}

func NewBioenergeticResponse(net *foodweb.Network, opts ...BioenergeticOption) (*BioenergeticResponse, error) {
	s := net.S()
	r := &BioenergeticResponse{hill: DefaultHillExponent, s: s}
	for _, opt := range opts {
		opt(r)
	}
	if r.halfSaturation == nil {
		r.halfSaturation = fill(s, DefaultHalfSaturation)
	}
	if r.interference == nil {
		r.interference = make([]float64, s)
	}
	if r.preference == nil {
		r.preference = uniformPreference(net)
	}
	if err := checkResponseDims(net, r.preference, len(r.halfSaturation), len(r.interference)); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *BioenergeticResponse) HillExponent() float64  { return r.hill }
func (r *BioenergeticResponse) Preference() *mat.Dense { return r.preference }
func (r *BioenergeticResponse) Classic() bool          { return false }
func (r *BioenergeticResponse) span() int              { return r.s }

func (r *BioenergeticResponse) DenomBase(i int, b []float64) float64 {
	return hillPow(r.halfSaturation[i], r.hill) * (1 + r.interference[i]*b[i])
}

func (r *BioenergeticResponse) DenomTerm(i, k int, b, bpow []float64) float64 {
	w := r.preference.At(i, k)
	if w == 0 {
		return 0
	}
	return w * bpow[k]
}

// ClassicResponse is the Holling-type response with explicit attack rates and
// handling times:
//
//	F(i,j) = ω[i,j]·B[j]^h / (1 + c[i]·B[i] + Σ_k aᵣ[i,k]·hₜ[i,k]·ω[i,k]·B[k]^h)
//
// It is the response that consumes non-trophic layers: interference adds to
// c, and refuge divides the attack rate on sheltered resources.
type ClassicResponse struct {
	hill         float64
	interference []float64
	attack       *mat.Dense
	handling     *mat.Dense
	preference   *mat.Dense
	s            int

	interferenceLayer *foodweb.Layer
	refugeLayer       *foodweb.Layer
}

type ClassicOption func(*ClassicResponse)

func WithClassicHill(h float64) ClassicOption {
	return func(r *ClassicResponse) { r.hill = h }
}

func WithClassicInterference(c []float64) ClassicOption {
	return func(r *ClassicResponse) { r.interference = c }
}

func WithAttackRates(a *mat.Dense) ClassicOption {
	return func(r *ClassicResponse) { r.attack = mat.DenseCopyOf(a) }
}

func WithHandlingTimes(h *mat.Dense) ClassicOption {
	return func(r *ClassicResponse) { r.handling = mat.DenseCopyOf(h) }
}

func WithClassicPreference(w *mat.Dense) ClassicOption {
	return func(r *ClassicResponse) { r.preference = mat.DenseCopyOf(w) }
}

func NewClassicResponse(net *foodweb.Network, opts ...ClassicOption) (*ClassicResponse, error) {
	s := net.S()
	r := &ClassicResponse{hill: DefaultHillExponent, s: s}
	for _, opt := range opts {
		opt(r)
	}
	if r.interference == nil {
		r.interference = make([]float64, s)
	}
	if r.attack == nil {
		r.attack = linkConstant(net, DefaultAttackRate)
	}
	if r.handling == nil {
		r.handling = linkConstant(net, DefaultHandlingTime)
	}
	if r.preference == nil {
		r.preference = uniformPreference(net)
	}
	if err := checkResponseDims(net, r.preference, s, len(r.interference)); err != nil {
		return nil, err
	}
	for _, m := range []*mat.Dense{r.attack, r.handling} {
		if mr, mc := m.Dims(); mr != s || mc != s {
			return nil, fmt.Errorf("%w: classic response matrix is %dx%d for %d species", ErrDimensionMismatch, mr, mc, s)
		}
	}
	if l, ok := net.Layer(foodweb.Interference); ok {
		r.interferenceLayer = l
	}
	if l, ok := net.Layer(foodweb.Refuge); ok {
		r.refugeLayer = l
	}
	return r, nil
}

func (r *ClassicResponse) HillExponent() float64  { return r.hill }
func (r *ClassicResponse) Preference() *mat.Dense { return r.preference }
func (r *ClassicResponse) Classic() bool          { return true }
func (r *ClassicResponse) span() int              { return r.s }

func (r *ClassicResponse) DenomBase(i int, b []float64) float64 {
	c := r.interference[i]
	if r.interferenceLayer != nil {
		c += r.interferenceLayer.Effect(i, b)
	}
	return 1 + c*b[i]
}

func (r *ClassicResponse) DenomTerm(i, k int, b, bpow []float64) float64 {
	w := r.preference.At(i, k)
	if w == 0 {
		return 0
	}
	a := r.attack.At(i, k)
	if r.refugeLayer != nil {
		a /= 1 + r.refugeLayer.Effect(k, b)
	}
	return a * r.handling.At(i, k) * w * bpow[k]
}

// linkConstant builds an S×S matrix holding v on every trophic link.
func linkConstant(net *foodweb.Network, v float64) *mat.Dense {
	s := net.S()
	m := mat.NewDense(s, s, nil)
	for i := 0; i < s; i++ {
		for _, j := range net.PreyOf(i) {
			m.Set(i, j, v)
		}
	}
	return m
}

func checkResponseDims(net *foodweb.Network, pref *mat.Dense, nHalf, nInterference int) error {
	s := net.S()
	if pr, pc := pref.Dims(); pr != s || pc != s {
		return fmt.Errorf("%w: preference matrix is %dx%d for %d species", ErrDimensionMismatch, pr, pc, s)
	}
	if nHalf != s || nInterference != s {
		return fmt.Errorf("%w: response vectors sized %d/%d for %d species", ErrDimensionMismatch, nHalf, nInterference, s)
	}
	for i := 0; i < s; i++ {
		for j := 0; j < s; j++ {
			if pref.At(i, j) != 0 && !net.HasLink(i, j) {
				return fmt.Errorf("%w: preference nonzero at (%d,%d) without a trophic link", ErrDimensionMismatch, i, j)
			}
		}
	}
	return nil
}

func fill(n int, v float64) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = v
	}
	return s
}
