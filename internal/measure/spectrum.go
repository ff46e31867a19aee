package measure

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/stat"
)

// PowerSpectrum returns the magnitude spectrum of a biomass series. The
// series is demeaned and zero-padded to a power of two, so any sampled run
// can be fed in directly.
func PowerSpectrum(series []float64) []float64 {
	if len(series) < 2 {
		return nil
	}
	n := 1
	for n < len(series) {
		n *= 2
	}
	padded := make([]float64, n)
	mean := stat.Mean(series, nil)
	for i, v := range series {
		padded[i] = v - mean
	}

	spectrum := fft(padded)
	ps := make([]float64, n/2)
	for i := range ps {
		ps[i] = cmplx.Abs(spectrum[i])
	}
	return ps
}

// DominantPeriod estimates the period of a limit cycle from a uniformly
// sampled biomass series; zero means no oscillation was detected.
func DominantPeriod(series []float64, dt float64) float64 {
	ps := PowerSpectrum(series)
	if len(ps) < 2 {
		return 0
	}
	peak := 0
	for i := 1; i < len(ps); i++ {
		if ps[i] > ps[peak] {
			peak = i
		}
	}
	if peak == 0 {
		return 0
	}
	// Bin k corresponds to frequency k/(n·dt) of the padded length.
	n := 2 * len(ps)
	return float64(n) * dt / float64(peak)
}

// fft is a radix-2 Cooley-Tukey transform; len(data) must be a power of two.
func fft(data []float64) []complex128 {
	n := len(data)
	if n == 1 {
		return []complex128{complex(data[0], 0)}
	}

	even := make([]float64, n/2)
	odd := make([]float64, n/2)
	for i := 0; i < n/2; i++ {
		even[i] = data[2*i]
		odd[i] = data[2*i+1]
	}

	feven := fft(even)
	fodd := fft(odd)

	result := make([]complex128, n)
	for k := 0; k < n/2; k++ {
		w := cmplx.Exp(complex(0, -2*math.Pi*float64(k)/float64(n)))
		result[k] = feven[k] + w*fodd[k]
		result[k+n/2] = feven[k] - w*fodd[k]
	}
	return result
}
