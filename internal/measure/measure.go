// Package measure computes community-level summaries of simulated
// trajectories: who survived, how much biomass the web carries, and how
// variable it is over time.
package measure

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/ecodyn/foodweb/internal/sim"
)

// Persistence is the fraction of species still alive at the end of a run.
func Persistence(res *sim.Result, s int) float64 {
	if s == 0 {
		return 0
	}
	return float64(s-len(res.Extinction)) / float64(s)
}

// TotalBiomass sums the species biomasses of one state sample; nutrient pools
// beyond index s are excluded.
func TotalBiomass(x []float64, s int) float64 {
	return floats.Sum(x[:s])
}

// ShannonDiversity is the Shannon entropy of the biomass distribution,
// exp-transformed to an effective species number. Empty communities score 0.
func ShannonDiversity(x []float64, s int) float64 {
	total := TotalBiomass(x, s)
	if total <= 0 {
		return 0
	}
	h := 0.0
	for _, b := range x[:s] {
		if b <= 0 {
			continue
		}
		p := b / total
		h -= p * math.Log(p)
	}
	return math.Exp(h)
}

// TemporalCV is the mean coefficient of variation of the surviving species'
// biomasses over the last fraction tail of the run. High CV means the web is
// still oscillating; near zero means it settled.
func TemporalCV(res *sim.Result, s int, tail float64) float64 {
	n := len(res.States)
	if n < 2 {
		return 0
	}
	start := int(float64(n) * (1 - tail))
	if start < 0 {
		start = 0
	}
	if start > n-2 {
		start = n - 2
	}

	cv := 0.0
	alive := 0
	series := make([]float64, n-start)
	for i := 0; i < s; i++ {
		for k := start; k < n; k++ {
			series[k-start] = res.States[k][i]
		}
		mean, std := stat.MeanStdDev(series, nil)
		if mean <= 0 {
			continue
		}
		cv += std / mean
		alive++
	}
	if alive == 0 {
		return 0
	}
	return cv / float64(alive)
}

// BiomassTrajectory extracts the community total at every sample, the series
// plotted by the live view.
func BiomassTrajectory(res *sim.Result, s int) []float64 {
	out := make([]float64, len(res.States))
	for k, st := range res.States {
		out[k] = TotalBiomass(st, s)
	}
	return out
}
