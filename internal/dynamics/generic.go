package dynamics

// genericEvaluator is the reference derivative strategy: every call
// recomputes growth, consumption, and metabolic loss directly from the dense
// parameter matrices. Correct by construction; the compact strategy is
// verified against it.
type genericEvaluator struct {
	m   *Model
	ext *Extinctions
}

func (g *genericEvaluator) Dim() int { return g.m.Dim() }

func (g *genericEvaluator) Derive(x State, t float64) State {
	m := g.m
	s := m.net.S()
	dim := m.Dim()

	b := make([]float64, s)
	m.effectiveBiomass(b, x, g.ext)
	n := make([]float64, dim-s)
	m.effectiveNutrients(n, x)

	h := m.resp.HillExponent()
	bpow := make([]float64, s)
	for j := 0; j < s; j++ {
		bpow[j] = hillPow(b[j], h)
	}

	// Functional-response denominators, dense over all resources.
	den := make([]float64, s)
	for i := 0; i < s; i++ {
		d := m.resp.DenomBase(i, b)
		for k := 0; k < s; k++ {
			d += m.resp.DenomTerm(i, k, b, bpow)
		}
		den[i] = d
	}

	pref := m.resp.Preference()
	gain := make([]float64, s)
	loss := make([]float64, s)
	for i := 0; i < s; i++ {
		if m.y[i] == 0 || den[i] == 0 {
			continue
		}
		for j := 0; j < s; j++ {
			w := pref.At(i, j)
			if w == 0 {
				continue
			}
			f := w * bpow[j] / den[i]
			gain[i] += m.e.At(i, j) * m.y[i] * b[i] * f
			loss[j] += m.y[i] * b[i] * f
		}
	}

	growth := make([]float64, s)
	for i := 0; i < s; i++ {
		if m.r[i] == 0 {
			continue
		}
		growth[i] = m.growth.Value(i, m.growthRate(i, b), b, n)
	}

	dxdt := make(State, dim)
	for i := 0; i < s; i++ {
		if g.ext != nil && g.ext.Extinct(i) {
			continue
		}
		dxdt[i] = growth[i] + gain[i] - loss[i] - m.x[i]*b[i]
	}
	if ni, ok := m.growth.(*NutrientIntake); ok {
		ni.PoolDerivative(dxdt[s:], n, growth)
	}
	return dxdt
}
