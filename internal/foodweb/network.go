package foodweb

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// MetabolicClass determines which allometric constants apply to a species.
type MetabolicClass string

const (
	Producer     MetabolicClass = "producer"
	Invertebrate MetabolicClass = "invertebrate"
	Vertebrate   MetabolicClass = "ectotherm vertebrate"
)

func (c MetabolicClass) Valid() bool {
	switch c {
	case Producer, Invertebrate, Vertebrate:
		return true
	}
	return false
}

// Network is an immutable food-web topology: who eats whom, plus optional
// non-trophic layers. Adjacency entry (i,j) > 0 means species i eats species j.
// Self-loops are cannibalism and are kept.
type Network struct {
	s         int
	adjacency *mat.Dense
	classes   []MetabolicClass
	names     []string
	layers    map[LayerKind]*Layer

	producers []int
	prey      [][]int
	predators [][]int
}

type Option func(*Network)

// WithNames attaches display names to species; len(names) must equal S.
func WithNames(names []string) Option {
	return func(n *Network) { n.names = names }
}

// WithLayer attaches a non-trophic interaction layer.
func WithLayer(l *Layer) Option {
	return func(n *Network) { n.layers[l.Kind] = l }
}

// New validates and builds a network from a square adjacency matrix and
// per-species metabolic classes.
func New(adjacency *mat.Dense, classes []MetabolicClass, opts ...Option) (*Network, error) {
	r, c := adjacency.Dims()
	if r != c {
		return nil, fmt.Errorf("foodweb: adjacency must be square, got %dx%d", r, c)
	}
	if len(classes) != r {
		return nil, fmt.Errorf("foodweb: %d metabolic classes for %d species", len(classes), r)
	}
	n := &Network{
		s:         r,
		adjacency: mat.DenseCopyOf(adjacency),
		classes:   classes,
		layers:    make(map[LayerKind]*Layer),
	}
	for _, opt := range opts {
		opt(n)
	}
	if n.names == nil {
		n.names = make([]string, r)
		for i := range n.names {
			n.names[i] = fmt.Sprintf("s%d", i+1)
		}
	}
	if len(n.names) != r {
		return nil, fmt.Errorf("foodweb: %d names for %d species", len(n.names), r)
	}
	for i, cl := range classes {
		if !cl.Valid() {
			return nil, fmt.Errorf("foodweb: species %d: unknown metabolic class %q", i, cl)
		}
	}
	n.index()
	for _, i := range n.producers {
		if len(n.prey[i]) > 0 {
			return nil, fmt.Errorf("foodweb: species %d is a producer but has prey", i)
		}
	}
	for i := 0; i < n.s; i++ {
		if n.classes[i] != Producer && len(n.prey[i]) == 0 {
			return nil, fmt.Errorf("foodweb: species %d is a consumer but has no prey", i)
		}
	}
	for kind, l := range n.layers {
		lr, lc := l.Adjacency.Dims()
		if lr != n.s || lc != n.s {
			return nil, fmt.Errorf("foodweb: %s layer adjacency is %dx%d, want %dx%d", kind, lr, lc, n.s, n.s)
		}
	}
	return n, nil
}

func (n *Network) index() {
	n.prey = make([][]int, n.s)
	n.predators = make([][]int, n.s)
	for i := 0; i < n.s; i++ {
		for j := 0; j < n.s; j++ {
			if n.adjacency.At(i, j) != 0 {
				n.prey[i] = append(n.prey[i], j)
				n.predators[j] = append(n.predators[j], i)
			}
		}
	}
	n.producers = n.producers[:0]
	for i, c := range n.classes {
		if c == Producer {
			n.producers = append(n.producers, i)
		}
	}
}

// S returns the species count.
func (n *Network) S() int { return n.s }

func (n *Network) Name(i int) string          { return n.names[i] }
func (n *Network) Class(i int) MetabolicClass { return n.classes[i] }
func (n *Network) IsProducer(i int) bool      { return n.classes[i] == Producer }

// Producers returns the indices of all producer species.
func (n *Network) Producers() []int { return n.producers }

// HasLink reports whether consumer i eats resource j.
func (n *Network) HasLink(i, j int) bool { return n.adjacency.At(i, j) != 0 }

// PreyOf returns the resources of consumer i, ascending.
func (n *Network) PreyOf(i int) []int { return n.prey[i] }

// PredatorsOf returns the consumers of resource j, ascending.
func (n *Network) PredatorsOf(j int) []int { return n.predators[j] }

// Links returns every (consumer, resource) trophic pair.
func (n *Network) Links() [][2]int {
	var links [][2]int
	for i := 0; i < n.s; i++ {
		for _, j := range n.prey[i] {
			links = append(links, [2]int{i, j})
		}
	}
	return links
}

// NumLinks returns the number of trophic links.
func (n *Network) NumLinks() int {
	l := 0
	for i := range n.prey {
		l += len(n.prey[i])
	}
	return l
}

// Connectance is L/S².
func (n *Network) Connectance() float64 {
	return float64(n.NumLinks()) / float64(n.s*n.s)
}

// Layer returns the layer of the given kind, if attached.
func (n *Network) Layer(kind LayerKind) (*Layer, bool) {
	l, ok := n.layers[kind]
	return l, ok
}

// Multiplex reports whether any non-trophic layer is attached.
func (n *Network) Multiplex() bool { return len(n.layers) > 0 }
