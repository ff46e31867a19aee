package measure

import (
	"math"

	"github.com/ecodyn/foodweb/internal/dynamics"
)

// Streaming observers accumulate their metric step by step during a run, so
// long simulations need not keep the full trajectory around.

// MeanBiomass tracks the running mean of community biomass.
type MeanBiomass struct {
	s       int
	total   float64
	samples int
}

func NewMeanBiomass(s int) *MeanBiomass { return &MeanBiomass{s: s} }

func (m *MeanBiomass) Name() string { return "mean_biomass" }

func (m *MeanBiomass) OnStep(x dynamics.State, t float64) {
	m.total += TotalBiomass(x, m.s)
	m.samples++
}

func (m *MeanBiomass) Value() float64 {
	if m.samples == 0 {
		return 0
	}
	return m.total / float64(m.samples)
}

func (m *MeanBiomass) Reset() {
	m.total = 0
	m.samples = 0
}

// PeakBiomass tracks the largest community biomass seen, a cheap proxy for
// bloom amplitude.
type PeakBiomass struct {
	s    int
	peak float64
}

func NewPeakBiomass(s int) *PeakBiomass { return &PeakBiomass{s: s} }

func (p *PeakBiomass) Name() string { return "peak_biomass" }

func (p *PeakBiomass) OnStep(x dynamics.State, t float64) {
	p.peak = math.Max(p.peak, TotalBiomass(x, p.s))
}

func (p *PeakBiomass) Value() float64 { return p.peak }

func (p *PeakBiomass) Reset() { p.peak = 0 }
