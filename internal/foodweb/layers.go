package foodweb

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// LayerKind identifies a non-trophic interaction layer of a multiplex network.
type LayerKind string

const (
	Competition  LayerKind = "competition"
	Facilitation LayerKind = "facilitation"
	Interference LayerKind = "interference"
	Refuge       LayerKind = "refuge"
)

// Layer is one non-trophic interaction layer. Adjacency entry (k,i) > 0 means
// species k exerts the layer's effect on species i; Intensity scales the
// biomass-weighted effect.
type Layer struct {
	Kind      LayerKind
	Adjacency *mat.Dense
	Intensity float64
}

// NewLayer copies the adjacency so the layer is immutable once attached.
// Whether the layer's dimension matches the network is checked in New, where
// the species count is known.
func NewLayer(kind LayerKind, adjacency *mat.Dense, intensity float64) (*Layer, error) {
	switch kind {
	case Competition, Facilitation, Interference, Refuge:
	default:
		return nil, fmt.Errorf("foodweb: unknown layer kind %q", kind)
	}
	r, c := adjacency.Dims()
	if r != c {
		return nil, fmt.Errorf("foodweb: layer adjacency is %dx%d, want square", r, c)
	}
	if intensity < 0 {
		return nil, fmt.Errorf("foodweb: layer intensity must be non-negative, got %g", intensity)
	}
	return &Layer{Kind: kind, Adjacency: mat.DenseCopyOf(adjacency), Intensity: intensity}, nil
}

// Effect is the biomass-weighted pressure of the layer on species i:
// intensity · Σ_k A[k,i]·b[k].
func (l *Layer) Effect(i int, b []float64) float64 {
	sum := 0.0
	for k := range b {
		if w := l.Adjacency.At(k, i); w != 0 {
			sum += w * b[k]
		}
	}
	return l.Intensity * sum
}
