package foodweb

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

const maxGeneratorAttempts = 100

// Niche draws a random food web from the niche model (Williams & Martinez
// 2000): each species gets a niche value n ~ U(0,1) and eats every species
// whose niche value falls inside an interval of beta-distributed width
// centered below its own value. Species without prey become producers.
// Retries until the web is connected enough to pass construction invariants.
func Niche(s int, connectance float64, rng *rand.Rand) (*Network, error) {
	if s < 2 {
		return nil, fmt.Errorf("foodweb: niche model needs at least 2 species, got %d", s)
	}
	if connectance <= 0 || connectance >= 0.5 {
		return nil, fmt.Errorf("foodweb: niche model connectance must be in (0, 0.5), got %g", connectance)
	}
	beta := 1.0/(2.0*connectance) - 1.0

	for attempt := 0; attempt < maxGeneratorAttempts; attempt++ {
		niche := make([]float64, s)
		for i := range niche {
			niche[i] = rng.Float64()
		}

		adj := mat.NewDense(s, s, nil)
		for i := 0; i < s; i++ {
			// Beta(1, beta)-distributed fraction of the niche axis.
			width := niche[i] * (1 - math.Pow(1-rng.Float64(), 1/beta))
			lo := width / 2
			hi := niche[i]
			center := lo + rng.Float64()*(hi-lo)
			for j := 0; j < s; j++ {
				if niche[j] >= center-width/2 && niche[j] <= center+width/2 {
					adj.Set(i, j, 1)
				}
			}
		}

		net, err := fromAdjacency(adj)
		if err == nil {
			return net, nil
		}
	}
	return nil, fmt.Errorf("foodweb: niche model failed to produce a valid web after %d attempts", maxGeneratorAttempts)
}

// Cascade draws a random food web from the cascade model: species are ranked
// and each eats lower-ranked species independently with probability
// 2·C·S/(S−1).
func Cascade(s int, connectance float64, rng *rand.Rand) (*Network, error) {
	if s < 2 {
		return nil, fmt.Errorf("foodweb: cascade model needs at least 2 species, got %d", s)
	}
	p := 2 * connectance * float64(s) / float64(s-1)
	if p <= 0 || p > 1 {
		return nil, fmt.Errorf("foodweb: cascade model connectance %g infeasible for S=%d", connectance, s)
	}

	for attempt := 0; attempt < maxGeneratorAttempts; attempt++ {
		adj := mat.NewDense(s, s, nil)
		for i := 1; i < s; i++ {
			for j := 0; j < i; j++ {
				if rng.Float64() < p {
					adj.Set(i, j, 1)
				}
			}
		}
		net, err := fromAdjacency(adj)
		if err == nil {
			return net, nil
		}
	}
	return nil, fmt.Errorf("foodweb: cascade model failed to produce a valid web after %d attempts", maxGeneratorAttempts)
}

// fromAdjacency assigns metabolic classes from topology: basal species are
// producers, the rest invertebrates. Rejects webs without any basal species
// or without any consumer, and strips prey links of cannibal-only "producers"
// by classifying any species with prey as a consumer.
func fromAdjacency(adj *mat.Dense) (*Network, error) {
	s, _ := adj.Dims()
	classes := make([]MetabolicClass, s)
	basal := 0
	for i := 0; i < s; i++ {
		hasPrey := false
		for j := 0; j < s; j++ {
			if adj.At(i, j) != 0 {
				hasPrey = true
				break
			}
		}
		if hasPrey {
			classes[i] = Invertebrate
		} else {
			classes[i] = Producer
			basal++
		}
	}
	if basal == 0 || basal == s {
		return nil, fmt.Errorf("foodweb: degenerate web (%d basal of %d species)", basal, s)
	}
	return New(adj, classes)
}
