package sim

import (
	"context"
	"math/rand"
	"sync"

	"github.com/ecodyn/foodweb/internal/dynamics"
)

// Ensemble runs replicate simulations of one model with jittered initial
// biomasses, one goroutine per replicate. Model parameters are shared
// read-only; every replicate binds its own evaluator and extinction record.
type Ensemble struct {
	model    *dynamics.Model
	numRuns  int
	seed     int64
	jitter   float64
	newInteg func() dynamics.Integrator
}

// NewEnsemble builds an ensemble of numRuns replicates. newInteg must return
// a fresh integrator per replicate (integrators keep scratch buffers).
// jitter is the relative spread applied to each initial biomass.
func NewEnsemble(model *dynamics.Model, numRuns int, seed int64, jitter float64, newInteg func() dynamics.Integrator) *Ensemble {
	return &Ensemble{model: model, numRuns: numRuns, seed: seed, jitter: jitter, newInteg: newInteg}
}

func (e *Ensemble) Run(ctx context.Context, b0 dynamics.State, cfg Config) ([]*Result, error) {
	results := make([]*Result, e.numRuns)
	errs := make([]error, e.numRuns)

	var wg sync.WaitGroup
	for i := 0; i < e.numRuns; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()

			rng := rand.New(rand.NewSource(e.seed + int64(idx)))
			init := e.perturb(b0, rng)
			sim := New(e.model, e.newInteg())
			results[idx], errs[idx] = sim.Run(ctx, init, cfg)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return results, nil
}

func (e *Ensemble) perturb(b0 dynamics.State, rng *rand.Rand) dynamics.State {
	s := e.model.S()
	init := make(dynamics.State, s)
	for i := 0; i < s; i++ {
		base := DefaultInitialBiomass
		if b0 != nil {
			base = b0[i]
		}
		init[i] = base * (1 + e.jitter*(2*rng.Float64()-1))
		if init[i] < 0 {
			init[i] = 0
		}
	}
	return init
}
