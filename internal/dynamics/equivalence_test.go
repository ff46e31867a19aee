package dynamics

import (
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gonum.org/v1/gonum/mat"

	"github.com/ecodyn/foodweb/internal/foodweb"
	"github.com/ecodyn/foodweb/internal/rates"
)

// The compact evaluator is an optimization of the generic one and must stay
// interchangeable with it: for any model configuration and any state, both
// strategies produce the same derivative up to summation-order rounding.
var _ = Describe("derivative strategy equivalence", func() {
	const tol = 1e-12

	expectEquivalent := func(m *Model, states []State) {
		GinkgoHelper()
		generic := m.Generic(nil)
		compact := m.Compact(nil)
		for _, x := range states {
			dg := generic.Derive(x, 0)
			dc := compact.Derive(x, 0)
			Expect(dc).To(HaveLen(len(dg)))
			for i := range dg {
				Expect(dc[i]).To(BeNumerically("~", dg[i], tol),
					"component %d of %v", i, x)
			}
		}
	}

	randomStates := func(dim, count int, rng *rand.Rand) []State {
		states := make([]State, count)
		for k := range states {
			x := make(State, dim)
			for i := range x {
				x[i] = rng.Float64() * 2
			}
			states[k] = x
		}
		return states
	}

	buildNet := func(adj *mat.Dense, classes []foodweb.MetabolicClass, opts ...foodweb.Option) *foodweb.Network {
		net, err := foodweb.New(adj, classes, opts...)
		Expect(err).NotTo(HaveOccurred())
		return net
	}

	buildModel := func(net *foodweb.Network, resp FunctionalResponse, growth ProducerGrowth) *Model {
		br, err := rates.Allometric(net, rates.DefaultBodyMass(net, 10))
		Expect(err).NotTo(HaveOccurred())
		m, err := NewModel(net, br, resp, growth)
		Expect(err).NotTo(HaveOccurred())
		return m
	}

	It("agrees on a two-species chain with the bioenergetic response", func() {
		net := buildNet(mat.NewDense(2, 2, []float64{
			0, 0,
			1, 0,
		}), []foodweb.MetabolicClass{foodweb.Producer, foodweb.Invertebrate})
		resp, err := NewBioenergeticResponse(net)
		Expect(err).NotTo(HaveOccurred())
		growth, err := NewLogisticGrowth(net)
		Expect(err).NotTo(HaveOccurred())

		m := buildModel(net, resp, growth)
		expectEquivalent(m, randomStates(m.Dim(), 25, rand.New(rand.NewSource(1))))
	})

	It("agrees on a three-species web with producer competition", func() {
		net := buildNet(mat.NewDense(3, 3, []float64{
			0, 0, 0,
			0, 0, 0,
			1, 1, 0,
		}), []foodweb.MetabolicClass{foodweb.Producer, foodweb.Producer, foodweb.Vertebrate})
		resp, err := NewBioenergeticResponse(net, WithHill(1.2), WithInterference([]float64{0, 0, 0.8}))
		Expect(err).NotTo(HaveOccurred())
		growth, err := NewLogisticGrowth(net, WithCompetition(mat.NewDense(3, 3, []float64{
			1, 0.6, 0,
			0.4, 1, 0,
			0, 0, 0,
		})))
		Expect(err).NotTo(HaveOccurred())

		m := buildModel(net, resp, growth)
		expectEquivalent(m, randomStates(m.Dim(), 25, rand.New(rand.NewSource(2))))
	})

	It("agrees under the classic response with non-trophic layers", func() {
		interference, err := foodweb.NewLayer(foodweb.Interference, mat.NewDense(3, 3, []float64{
			0, 0, 0,
			0, 0, 0,
			0, 0, 1,
		}), 0.5)
		Expect(err).NotTo(HaveOccurred())
		refuge, err := foodweb.NewLayer(foodweb.Refuge, mat.NewDense(3, 3, []float64{
			0, 0, 0,
			1, 0, 0,
			0, 0, 0,
		}), 1.5)
		Expect(err).NotTo(HaveOccurred())

		net := buildNet(mat.NewDense(3, 3, []float64{
			0, 0, 0,
			0, 0, 0,
			1, 1, 0,
		}), []foodweb.MetabolicClass{foodweb.Producer, foodweb.Producer, foodweb.Invertebrate},
			foodweb.WithLayer(interference), foodweb.WithLayer(refuge))
		resp, err := NewClassicResponse(net)
		Expect(err).NotTo(HaveOccurred())
		growth, err := NewLogisticGrowth(net)
		Expect(err).NotTo(HaveOccurred())

		m := buildModel(net, resp, growth)
		expectEquivalent(m, randomStates(m.Dim(), 25, rand.New(rand.NewSource(3))))
	})

	It("agrees on nutrient-limited growth including the pool dynamics", func() {
		net := buildNet(mat.NewDense(3, 3, []float64{
			0, 0, 0,
			0, 0, 0,
			1, 1, 0,
		}), []foodweb.MetabolicClass{foodweb.Producer, foodweb.Producer, foodweb.Invertebrate})
		resp, err := NewBioenergeticResponse(net)
		Expect(err).NotTo(HaveOccurred())
		growth, err := NewNutrientIntake(net, 2,
			WithTurnover([]float64{0.25, 0.4}),
			WithSupply([]float64{10, 6}),
			WithConcentration(mat.NewDense(2, 2, []float64{1, 0.5, 0.8, 1})),
			WithNutrientHalfSaturation(mat.NewDense(2, 2, []float64{0.15, 0.3, 0.2, 0.1})))
		Expect(err).NotTo(HaveOccurred())

		m := buildModel(net, resp, growth)
		expectEquivalent(m, randomStates(m.Dim(), 25, rand.New(rand.NewSource(4))))
	})

	It("agrees with an active extinction record", func() {
		net := buildNet(mat.NewDense(3, 3, []float64{
			0, 0, 0,
			1, 0, 0,
			1, 1, 0,
		}), []foodweb.MetabolicClass{foodweb.Producer, foodweb.Invertebrate, foodweb.Vertebrate})
		resp, err := NewBioenergeticResponse(net)
		Expect(err).NotTo(HaveOccurred())
		growth, err := NewLogisticGrowth(net)
		Expect(err).NotTo(HaveOccurred())
		m := buildModel(net, resp, growth)

		ext := NewExtinctions()
		ext.Mark(1, 2.5)
		generic := m.Generic(ext)
		compact := m.Compact(ext)

		rng := rand.New(rand.NewSource(5))
		for _, x := range randomStates(m.Dim(), 25, rng) {
			dg := generic.Derive(x, 0)
			dc := compact.Derive(x, 0)
			Expect(dc[1]).To(BeZero())
			for i := range dg {
				Expect(dc[i]).To(BeNumerically("~", dg[i], tol))
			}
		}
	})

	It("agrees on random niche webs across seeds", func() {
		for seed := int64(0); seed < 8; seed++ {
			rng := rand.New(rand.NewSource(seed))
			net, err := foodweb.Niche(12, 0.15, rng)
			Expect(err).NotTo(HaveOccurred())

			resp, err := NewBioenergeticResponse(net)
			Expect(err).NotTo(HaveOccurred())
			growth, err := NewLogisticGrowth(net)
			Expect(err).NotTo(HaveOccurred())

			m := buildModel(net, resp, growth)
			expectEquivalent(m, randomStates(m.Dim(), 10, rng))
		}
	})
})
