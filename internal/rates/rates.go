package rates

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/ecodyn/foodweb/internal/foodweb"
)

// Allometric constants from the bioenergetic food-web literature
// (Yodzis & Innes 1992, Brose et al. 2006). Rates scale with body mass
// to the -1/4 power; coefficients depend on metabolic class.
const (
	allometricExponent = -0.25

	growthCoeffProducer = 1.0

	metabolicCoeffInvertebrate = 0.314
	metabolicCoeffVertebrate   = 0.88

	maxConsumptionInvertebrate = 8.0
	maxConsumptionVertebrate   = 4.0

	efficiencyHerbivory = 0.45
	efficiencyCarnivory = 0.85
)

// BioRates holds the per-species biological rates driving the dynamics:
// intrinsic growth r, metabolic rate x, maximum consumption y (all length S)
// and the pairwise assimilation efficiency e (S×S, nonzero only on trophic
// links). Immutable once handed to a model.
type BioRates struct {
	R []float64
	X []float64
	Y []float64
	E *mat.Dense
}

// Allometric derives the default rate tables from body masses and metabolic
// classes. Producers get growth but neither metabolism nor consumption;
// consumers get class-specific metabolic and consumption coefficients.
// Assimilation efficiency is 0.45 for herbivory links and 0.85 otherwise.
func Allometric(net *foodweb.Network, bodyMass []float64) (*BioRates, error) {
	s := net.S()
	if len(bodyMass) != s {
		return nil, fmt.Errorf("rates: %d body masses for %d species", len(bodyMass), s)
	}
	for i, m := range bodyMass {
		if m <= 0 {
			return nil, fmt.Errorf("rates: species %d has non-positive body mass %g", i, m)
		}
	}

	b := &BioRates{
		R: make([]float64, s),
		X: make([]float64, s),
		Y: make([]float64, s),
		E: mat.NewDense(s, s, nil),
	}
	for i := 0; i < s; i++ {
		scale := math.Pow(bodyMass[i], allometricExponent)
		switch net.Class(i) {
		case foodweb.Producer:
			b.R[i] = growthCoeffProducer * scale
		case foodweb.Invertebrate:
			b.X[i] = metabolicCoeffInvertebrate * scale
			b.Y[i] = maxConsumptionInvertebrate
		case foodweb.Vertebrate:
			b.X[i] = metabolicCoeffVertebrate * scale
			b.Y[i] = maxConsumptionVertebrate
		default:
			return nil, fmt.Errorf("rates: species %d: unknown metabolic class %q", i, net.Class(i))
		}
	}
	for i := 0; i < s; i++ {
		for _, j := range net.PreyOf(i) {
			if net.IsProducer(j) {
				b.E.Set(i, j, efficiencyHerbivory)
			} else {
				b.E.Set(i, j, efficiencyCarnivory)
			}
		}
	}
	return b, nil
}

// DefaultBodyMass assigns M_i = z^(TL_i − 1): body mass grows by a fixed
// consumer-resource ratio z per trophic level.
func DefaultBodyMass(net *foodweb.Network, z float64) []float64 {
	tl := TrophicLevels(net)
	mass := make([]float64, net.S())
	for i, l := range tl {
		mass[i] = math.Pow(z, l-1)
	}
	return mass
}

// TrophicLevels solves TL_i = 1 + mean(TL of prey of i) by fixed-point
// iteration, which also handles loops and cannibalism.
func TrophicLevels(net *foodweb.Network) []float64 {
	s := net.S()
	tl := make([]float64, s)
	next := make([]float64, s)
	for i := range tl {
		tl[i] = 1
	}
	for iter := 0; iter < 100; iter++ {
		delta := 0.0
		for i := 0; i < s; i++ {
			prey := net.PreyOf(i)
			if len(prey) == 0 {
				next[i] = 1
			} else {
				sum := 0.0
				for _, j := range prey {
					sum += tl[j]
				}
				next[i] = 1 + sum/float64(len(prey))
			}
			d := next[i] - tl[i]
			if d < 0 {
				d = -d
			}
			if d > delta {
				delta = d
			}
		}
		tl, next = next, tl
		if delta < 1e-10 {
			break
		}
	}
	return tl
}
