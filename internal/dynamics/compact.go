package dynamics

import (
	"fmt"
	"reflect"
)

// The compact strategy walks the sparse interaction structure once at model
// construction and emits a fixed evaluation program: every contributing term
// (functional response, consumption, growth, metabolism, nutrient pools)
// supplies a fragment pairing the index lists it needs with the code that
// consumes them. Fragments are merged into one data table; two fragments
// disagreeing on a shared key is a construction-time consistency error.

type stepFunc func(sc *compactScratch, ext *Extinctions, x State, dxdt State)

type fragment struct {
	name    string
	data    map[string]any
	compile func(tbl map[string]any) (stepFunc, error)
}

type compiledStep struct {
	name string
	run  stepFunc
}

// compactProgram is the immutable compiled evaluator: index lists are baked
// into the step closures, so it can be shared. Per-run mutable state lives in
// compactScratch, owned by each bound evaluator.
type compactProgram struct {
	m     *Model
	steps []compiledStep
}

type compactScratch struct {
	b, n   []float64
	bpow   []float64
	den    []float64
	f      []float64 // per trophic pair
	growth []float64
}

func newCompactProgram(m *Model) (*compactProgram, error) {
	frags := []fragment{
		m.biomassFragment(),
		m.responseFragment(),
		m.consumptionFragment(),
		m.growthFragment(),
		m.metabolismFragment(),
	}
	if ni, ok := m.growth.(*NutrientIntake); ok {
		frags = append(frags, m.nutrientFragment(ni))
	}

	tbl, err := mergeFragments(frags)
	if err != nil {
		return nil, err
	}

	p := &compactProgram{m: m}
	for _, fr := range frags {
		step, err := fr.compile(tbl)
		if err != nil {
			return nil, fmt.Errorf("compile %s term: %w", fr.name, err)
		}
		p.steps = append(p.steps, compiledStep{name: fr.name, run: step})
	}
	return p, nil
}

// mergeFragments folds all data fragments into one table. Duplicate keys are
// fine as long as every fragment agrees on the value.
func mergeFragments(frags []fragment) (map[string]any, error) {
	tbl := make(map[string]any)
	owner := make(map[string]string)
	for _, fr := range frags {
		for key, val := range fr.data {
			if prev, ok := tbl[key]; ok {
				if !reflect.DeepEqual(prev, val) {
					return nil, fmt.Errorf("%w: %q from %s and %s", ErrFragmentConflict, key, owner[key], fr.name)
				}
				continue
			}
			tbl[key] = val
			owner[key] = fr.name
		}
	}
	return tbl, nil
}

func (p *compactProgram) bind(ext *Extinctions) *compactEvaluator {
	s := p.m.net.S()
	return &compactEvaluator{
		p:   p,
		ext: ext,
		sc: &compactScratch{
			b:      make([]float64, s),
			n:      make([]float64, p.m.Dim()-s),
			bpow:   make([]float64, s),
			den:    make([]float64, s),
			f:      make([]float64, p.m.net.NumLinks()),
			growth: make([]float64, s),
		},
	}
}

// compactEvaluator runs the compiled program against its own scratch. Not
// safe for concurrent use; each simulation run binds its own evaluator.
type compactEvaluator struct {
	p   *compactProgram
	ext *Extinctions
	sc  *compactScratch
}

func (c *compactEvaluator) Dim() int { return c.p.m.Dim() }

func (c *compactEvaluator) Derive(x State, t float64) State {
	dxdt := make(State, c.p.m.Dim())
	for _, step := range c.p.steps {
		step.run(c.sc, c.ext, x, dxdt)
	}
	return dxdt
}

// trophicLists flattens the link structure row-major, matching the iteration
// order of the generic evaluator so both strategies accumulate in the same
// order.
func (m *Model) trophicLists() (consumers, pairConsumer, pairResource []int) {
	s := m.net.S()
	for i := 0; i < s; i++ {
		prey := m.net.PreyOf(i)
		if len(prey) == 0 {
			continue
		}
		consumers = append(consumers, i)
		for _, j := range prey {
			pairConsumer = append(pairConsumer, i)
			pairResource = append(pairResource, j)
		}
	}
	return consumers, pairConsumer, pairResource
}

// biomassFragment resets the scratch accumulators and recomputes effective
// biomass, nutrient concentrations, and biomass powers. It runs first; every
// accumulator is fully overwritten on every call.
func (m *Model) biomassFragment() fragment {
	return fragment{
		name: "biomass",
		data: map[string]any{"species.count": m.net.S()},
		compile: func(tbl map[string]any) (stepFunc, error) {
			h := m.resp.HillExponent()
			return func(sc *compactScratch, ext *Extinctions, x State, dxdt State) {
				m.effectiveBiomass(sc.b, x, ext)
				m.effectiveNutrients(sc.n, x)
				for j := range sc.bpow {
					sc.bpow[j] = hillPow(sc.b[j], h)
				}
				for i := range sc.growth {
					sc.growth[i] = 0
				}
				for p := range sc.f {
					sc.f[p] = 0
				}
			}, nil
		},
	}
}

// responseFragment computes F for every trophic pair using the precomputed
// consumer and pair lists.
func (m *Model) responseFragment() fragment {
	consumers, pairConsumer, pairResource := m.trophicLists()
	data := map[string]any{
		"trophic.consumers":     consumers,
		"trophic.pair.consumer": pairConsumer,
		"trophic.pair.resource": pairResource,
	}
	return fragment{
		name: "response",
		data: data,
		compile: func(tbl map[string]any) (stepFunc, error) {
			cons, err := intList(tbl, "trophic.consumers")
			if err != nil {
				return nil, err
			}
			pc, err := intList(tbl, "trophic.pair.consumer")
			if err != nil {
				return nil, err
			}
			pr, err := intList(tbl, "trophic.pair.resource")
			if err != nil {
				return nil, err
			}
			pref := m.resp.Preference()
			weights := make([]float64, len(pc))
			for p := range pc {
				weights[p] = pref.At(pc[p], pr[p])
			}
			return func(sc *compactScratch, ext *Extinctions, x State, dxdt State) {
				for _, i := range cons {
					d := m.resp.DenomBase(i, sc.b)
					for _, j := range m.net.PreyOf(i) {
						d += m.resp.DenomTerm(i, j, sc.b, sc.bpow)
					}
					sc.den[i] = d
				}
				for p := range pc {
					i := pc[p]
					if sc.den[i] == 0 {
						sc.f[p] = 0
						continue
					}
					sc.f[p] = weights[p] * sc.bpow[pr[p]] / sc.den[i]
				}
			}, nil
		},
	}
}

// consumptionFragment turns pair intensities into assimilated gains for
// consumers and removal losses for resources.
func (m *Model) consumptionFragment() fragment {
	_, pairConsumer, pairResource := m.trophicLists()
	data := map[string]any{
		"trophic.pair.consumer": pairConsumer,
		"trophic.pair.resource": pairResource,
	}
	return fragment{
		name: "consumption",
		data: data,
		compile: func(tbl map[string]any) (stepFunc, error) {
			pc, err := intList(tbl, "trophic.pair.consumer")
			if err != nil {
				return nil, err
			}
			pr, err := intList(tbl, "trophic.pair.resource")
			if err != nil {
				return nil, err
			}
			eff := make([]float64, len(pc))
			for p := range pc {
				eff[p] = m.e.At(pc[p], pr[p])
			}
			return func(sc *compactScratch, ext *Extinctions, x State, dxdt State) {
				for p := range pc {
					i, j := pc[p], pr[p]
					if m.y[i] == 0 {
						continue
					}
					dxdt[i] += eff[p] * m.y[i] * sc.b[i] * sc.f[p]
					dxdt[j] -= m.y[i] * sc.b[i] * sc.f[p]
				}
			}, nil
		},
	}
}

// growthFragment evaluates producer growth over the precomputed (producer,
// competitor) pairs.
func (m *Model) growthFragment() fragment {
	producers := append([]int(nil), m.net.Producers()...)
	data := map[string]any{"growth.producers": producers}

	logistic, isLogistic := m.growth.(*LogisticGrowth)
	competitors := make(map[int][]int)
	if isLogistic {
		for _, i := range producers {
			competitors[i] = logistic.competitors(i)
		}
		data["growth.competitors"] = competitors
	}

	return fragment{
		name: "growth",
		data: data,
		compile: func(tbl map[string]any) (stepFunc, error) {
			prod, err := intList(tbl, "growth.producers")
			if err != nil {
				return nil, err
			}
			if !isLogistic {
				return func(sc *compactScratch, ext *Extinctions, x State, dxdt State) {
					for _, i := range prod {
						if m.r[i] == 0 {
							continue
						}
						g := m.growth.Value(i, m.growthRate(i, sc.b), sc.b, sc.n)
						sc.growth[i] = g
						dxdt[i] += g
					}
				}, nil
			}
			return func(sc *compactScratch, ext *Extinctions, x State, dxdt State) {
				for _, i := range prod {
					if m.r[i] == 0 {
						continue
					}
					r := m.growthRate(i, sc.b)
					var g float64
					if k := logistic.carrying[i]; k <= 0 {
						g = -r * sc.b[i]
					} else {
						pressure := 0.0
						for _, c := range competitors[i] {
							pressure += logistic.competition.At(i, c) * sc.b[c]
						}
						if logistic.layer != nil && logistic.layerActive {
							pressure += logistic.layer.Effect(i, sc.b)
						}
						g = r * sc.b[i] * (1 - pressure/k)
					}
					sc.growth[i] = g
					dxdt[i] += g
				}
			}, nil
		},
	}
}

// metabolismFragment subtracts maintenance loss for every species with a
// nonzero metabolic rate.
func (m *Model) metabolismFragment() fragment {
	var active []int
	for i, xi := range m.x {
		if xi != 0 {
			active = append(active, i)
		}
	}
	return fragment{
		name: "metabolism",
		data: map[string]any{"metabolism.species": active},
		compile: func(tbl map[string]any) (stepFunc, error) {
			idx, err := intList(tbl, "metabolism.species")
			if err != nil {
				return nil, err
			}
			return func(sc *compactScratch, ext *Extinctions, x State, dxdt State) {
				for _, i := range idx {
					dxdt[i] -= m.x[i] * sc.b[i]
				}
			}, nil
		},
	}
}

// nutrientFragment appends the nutrient-pool dynamics, consuming the growth
// terms computed earlier in the same call.
func (m *Model) nutrientFragment(ni *NutrientIntake) fragment {
	s := m.net.S()
	return fragment{
		name: "nutrients",
		data: map[string]any{"nutrients.count": ni.NutrientDim()},
		compile: func(tbl map[string]any) (stepFunc, error) {
			return func(sc *compactScratch, ext *Extinctions, x State, dxdt State) {
				ni.PoolDerivative(dxdt[s:], sc.n, sc.growth)
			}, nil
		},
	}
}

func intList(tbl map[string]any, key string) ([]int, error) {
	v, ok := tbl[key]
	if !ok {
		return nil, fmt.Errorf("missing data key %q", key)
	}
	list, ok := v.([]int)
	if !ok {
		return nil, fmt.Errorf("data key %q holds %T, want []int", key, v)
	}
	return list, nil
}
