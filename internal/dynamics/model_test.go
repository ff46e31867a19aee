package dynamics

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/ecodyn/foodweb/internal/foodweb"
	"github.com/ecodyn/foodweb/internal/rates"
)

func chainModel(t *testing.T, opts ...ModelOption) *Model {
	t.Helper()
	net := chainNet(t)
	br, err := rates.Allometric(net, []float64{1, 1})
	if err != nil {
		t.Fatalf("Allometric: %v", err)
	}
	resp, err := NewBioenergeticResponse(net)
	if err != nil {
		t.Fatalf("NewBioenergeticResponse: %v", err)
	}
	growth, err := NewLogisticGrowth(net)
	if err != nil {
		t.Fatalf("NewLogisticGrowth: %v", err)
	}
	m, err := NewModel(net, br, resp, growth, opts...)
	if err != nil {
		t.Fatalf("NewModel: %v", err)
	}
	return m
}

func TestDeriveKnownValues(t *testing.T) {
	m := chainModel(t)
	sys := m.Generic(nil)

	// At B = (0.5, 0.5) with unit body masses: F = 0.5, so
	//   producer: r·B·(1−B) − y·B·F = 0.25 − 8·0.5·0.5 = −1.75
	//   consumer: e·y·B·F − x·B   = 0.45·8·0.5·0.5 − 0.314·0.5 = 0.743
	d := sys.Derive(State{0.5, 0.5}, 0)
	if math.Abs(d[0]-(-1.75)) > 1e-12 {
		t.Errorf("producer derivative = %g, want -1.75", d[0])
	}
	if math.Abs(d[1]-0.743) > 1e-12 {
		t.Errorf("consumer derivative = %g, want 0.743", d[1])
	}
}

func TestDeriveMassBalance(t *testing.T) {
	m := chainModel(t)
	sys := m.Generic(nil)

	b := State{0.3, 0.8}
	d := sys.Derive(b, 0)

	// Reconstruct the flows: everything leaving the producer beyond its own
	// growth must reappear in the consumer scaled by e, plus metabolic loss.
	growth := 1.0 * b[0] * (1 - b[0])
	loss := growth - d[0]
	gain := d[1] + 0.314*b[1]
	if math.Abs(gain-0.45*loss) > 1e-12 {
		t.Errorf("assimilated gain %g != e·loss %g", gain, 0.45*loss)
	}
}

func TestDeriveExtinctSpeciesFrozen(t *testing.T) {
	m := chainModel(t)
	ext := NewExtinctions()
	ext.Mark(1, 3.0)
	sys := m.Generic(ext)

	// Raw state still carries stale consumer biomass; the evaluator must pin
	// it to zero: no predation pressure, no consumer dynamics.
	d := sys.Derive(State{0.5, 0.4}, 5)
	if d[1] != 0 {
		t.Errorf("extinct consumer derivative = %g, want 0", d[1])
	}
	want := 1.0 * 0.5 * 0.5 // undisturbed logistic growth
	if math.Abs(d[0]-want) > 1e-12 {
		t.Errorf("producer derivative = %g, want %g", d[0], want)
	}
}

func TestDeriveClampsNegativeBiomass(t *testing.T) {
	m := chainModel(t)
	sys := m.Generic(nil)

	d := sys.Derive(State{-0.1, 0.5}, 0)
	// Negative producer biomass reads as zero: no growth, nothing to eat.
	if d[0] != 0 {
		t.Errorf("producer derivative = %g, want 0", d[0])
	}
	want := -0.314 * 0.5 // starving consumer pays maintenance only
	if math.Abs(d[1]-want) > 1e-12 {
		t.Errorf("consumer derivative = %g, want %g", d[1], want)
	}
}

func TestNewModelDimensionErrors(t *testing.T) {
	net := chainNet(t)
	resp, err := NewBioenergeticResponse(net)
	if err != nil {
		t.Fatalf("NewBioenergeticResponse: %v", err)
	}
	growth, err := NewLogisticGrowth(net)
	if err != nil {
		t.Fatalf("NewLogisticGrowth: %v", err)
	}

	bad := &rates.BioRates{
		R: []float64{1},
		X: []float64{0, 0.3},
		Y: []float64{0, 8},
		E: mat.NewDense(2, 2, nil),
	}
	if _, err := NewModel(net, bad, resp, growth); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("err = %v, want ErrDimensionMismatch", err)
	}
}

func TestInitialStateGrowthMismatch(t *testing.T) {
	m := chainModel(t)
	if _, err := m.InitialState([]float64{0.5, 0.5}, []float64{10}); !errors.Is(err, ErrGrowthMismatch) {
		t.Errorf("err = %v, want ErrGrowthMismatch", err)
	}
	if _, err := m.Nutrients(); !errors.Is(err, ErrGrowthMismatch) {
		t.Errorf("Nutrients err = %v, want ErrGrowthMismatch", err)
	}
}

func TestInitialStateAppendsNutrients(t *testing.T) {
	net := chainNet(t)
	br, err := rates.Allometric(net, []float64{1, 1})
	if err != nil {
		t.Fatalf("Allometric: %v", err)
	}
	resp, err := NewBioenergeticResponse(net)
	if err != nil {
		t.Fatalf("NewBioenergeticResponse: %v", err)
	}
	growth, err := NewNutrientIntake(net, 2)
	if err != nil {
		t.Fatalf("NewNutrientIntake: %v", err)
	}
	m, err := NewModel(net, br, resp, growth)
	if err != nil {
		t.Fatalf("NewModel: %v", err)
	}

	if m.Dim() != 4 {
		t.Fatalf("Dim = %d, want 4", m.Dim())
	}
	st, err := m.InitialState([]float64{0.5, 0.5}, []float64{10, 4})
	if err != nil {
		t.Fatalf("InitialState: %v", err)
	}
	want := State{0.5, 0.5, 10, 4}
	for i := range want {
		if st[i] != want[i] {
			t.Fatalf("InitialState = %v, want %v", st, want)
		}
	}
	if _, err := m.InitialState([]float64{0.5, 0.5}, []float64{10}); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("err = %v, want ErrDimensionMismatch", err)
	}
}

func TestMultiplexWarningUnderBioenergetic(t *testing.T) {
	layerAdj := mat.NewDense(2, 2, []float64{
		0, 1,
		0, 0,
	})
	layer, err := foodweb.NewLayer(foodweb.Facilitation, layerAdj, 1.0)
	if err != nil {
		t.Fatalf("NewLayer: %v", err)
	}
	adj := mat.NewDense(2, 2, []float64{
		0, 0,
		1, 0,
	})
	net, err := foodweb.New(adj, []foodweb.MetabolicClass{foodweb.Producer, foodweb.Invertebrate},
		foodweb.WithLayer(layer))
	if err != nil {
		t.Fatalf("New network: %v", err)
	}
	br, err := rates.Allometric(net, []float64{1, 1})
	if err != nil {
		t.Fatalf("Allometric: %v", err)
	}
	growth, err := NewLogisticGrowth(net)
	if err != nil {
		t.Fatalf("NewLogisticGrowth: %v", err)
	}

	bio, err := NewBioenergeticResponse(net)
	if err != nil {
		t.Fatalf("NewBioenergeticResponse: %v", err)
	}
	m, err := NewModel(net, br, bio, growth)
	if err != nil {
		t.Fatalf("NewModel: %v", err)
	}
	if len(m.Warnings()) != 1 {
		t.Errorf("got %d warnings, want 1 for inert layers", len(m.Warnings()))
	}

	classic, err := NewClassicResponse(net)
	if err != nil {
		t.Fatalf("NewClassicResponse: %v", err)
	}
	growth2, err := NewLogisticGrowth(net)
	if err != nil {
		t.Fatalf("NewLogisticGrowth: %v", err)
	}
	m2, err := NewModel(net, br, classic, growth2)
	if err != nil {
		t.Fatalf("NewModel: %v", err)
	}
	if len(m2.Warnings()) != 0 {
		t.Errorf("unexpected warnings under classic response: %v", m2.Warnings())
	}
}

func TestFacilitationBoostsGrowthUnderClassic(t *testing.T) {
	layerAdj := mat.NewDense(2, 2, []float64{
		0, 0,
		1, 0, // the consumer facilitates the producer
	})
	layer, err := foodweb.NewLayer(foodweb.Facilitation, layerAdj, 1.0)
	if err != nil {
		t.Fatalf("NewLayer: %v", err)
	}
	adj := mat.NewDense(2, 2, []float64{
		0, 0,
		1, 0,
	})
	net, err := foodweb.New(adj, []foodweb.MetabolicClass{foodweb.Producer, foodweb.Invertebrate},
		foodweb.WithLayer(layer))
	if err != nil {
		t.Fatalf("New network: %v", err)
	}
	br, err := rates.Allometric(net, []float64{1, 1})
	if err != nil {
		t.Fatalf("Allometric: %v", err)
	}
	classic, err := NewClassicResponse(net)
	if err != nil {
		t.Fatalf("NewClassicResponse: %v", err)
	}
	growth, err := NewLogisticGrowth(net)
	if err != nil {
		t.Fatalf("NewLogisticGrowth: %v", err)
	}
	m, err := NewModel(net, br, classic, growth)
	if err != nil {
		t.Fatalf("NewModel: %v", err)
	}

	b := []float64{0.5, 0.5}
	// Facilitation pressure is B[1] = 0.5, so r scales by 1.5.
	if got, want := m.growthRate(0, b), 1.5; math.Abs(got-want) > 1e-12 {
		t.Errorf("growthRate = %g, want %g", got, want)
	}
}

func TestTemperatureScalingAppliedOnce(t *testing.T) {
	cold := chainModel(t,
		WithEnvironment(Environment{Temperature: 10}),
		WithTemperatureResponse(DefaultBoltzmannArrhenius()))
	ref := chainModel(t)

	// Below the 20°C reference every rate shrinks, slowing the whole system.
	dCold := cold.Generic(nil).Derive(State{0.5, 0.5}, 0)
	dRef := ref.Generic(nil).Derive(State{0.5, 0.5}, 0)
	if math.Abs(dCold[0]) >= math.Abs(dRef[0]) {
		t.Errorf("cold producer derivative |%g| not damped vs |%g|", dCold[0], dRef[0])
	}

	// At the reference temperature the scaling is the identity.
	same := chainModel(t, WithTemperatureResponse(DefaultBoltzmannArrhenius()))
	dSame := same.Generic(nil).Derive(State{0.5, 0.5}, 0)
	for i := range dSame {
		if math.Abs(dSame[i]-dRef[i]) > 1e-12 {
			t.Errorf("reference-temperature derivative[%d] = %g, want %g", i, dSame[i], dRef[i])
		}
	}
}
