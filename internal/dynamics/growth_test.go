package dynamics

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/ecodyn/foodweb/internal/foodweb"
)

func TestLogisticGrowthValue(t *testing.T) {
	net := chainNet(t)
	g, err := NewLogisticGrowth(net)
	if err != nil {
		t.Fatalf("NewLogisticGrowth: %v", err)
	}

	tests := []struct {
		name string
		i    int
		b    []float64
		want float64
	}{
		{"half capacity", 0, []float64{0.5, 0.3}, 1 * 0.5 * 0.5},
		{"at capacity", 0, []float64{1, 0.3}, 0},
		{"over capacity", 0, []float64{2, 0.3}, 1 * 2 * (1 - 2)},
		{"non-producer", 1, []float64{0.5, 0.3}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := g.Value(tt.i, 1, tt.b, nil); math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("Value = %g, want %g", got, tt.want)
			}
		})
	}
}

func TestLogisticGrowthZeroCapacityDecays(t *testing.T) {
	net := chainNet(t)
	g, err := NewLogisticGrowth(net, WithCarryingCapacity([]float64{0, 1}))
	if err != nil {
		t.Fatalf("NewLogisticGrowth: %v", err)
	}
	// K=0 supports no standing stock: pure decay, no division by zero.
	got := g.Value(0, 2, []float64{0.5, 0}, nil)
	if math.Abs(got-(-1.0)) > 1e-12 {
		t.Errorf("Value with K=0 = %g, want -1", got)
	}
}

func TestLogisticGrowthCompetitionMatrix(t *testing.T) {
	net := forkNet(t)
	a := mat.NewDense(3, 3, []float64{
		1, 0.5, 0,
		0.5, 1, 0,
		0, 0, 0,
	})
	g, err := NewLogisticGrowth(net, WithCompetition(a))
	if err != nil {
		t.Fatalf("NewLogisticGrowth: %v", err)
	}
	// pressure = B0 + 0.5·B1 = 0.4 + 0.1 = 0.5.
	got := g.Value(0, 1, []float64{0.4, 0.2, 0.7}, nil)
	want := 1 * 0.4 * (1 - 0.5)
	if math.Abs(got-want) > 1e-12 {
		t.Errorf("Value = %g, want %g", got, want)
	}
}

func TestLogisticGrowthCompetitionLayerGating(t *testing.T) {
	layerAdj := mat.NewDense(3, 3, []float64{
		0, 1, 0,
		0, 0, 0,
		0, 0, 0,
	})
	layer, err := foodweb.NewLayer(foodweb.Competition, layerAdj, 1.0)
	if err != nil {
		t.Fatalf("NewLayer: %v", err)
	}
	adj := mat.NewDense(3, 3, []float64{
		0, 0, 0,
		0, 0, 0,
		1, 1, 0,
	})
	net, err := foodweb.New(adj, []foodweb.MetabolicClass{
		foodweb.Producer, foodweb.Producer, foodweb.Invertebrate,
	}, foodweb.WithLayer(layer))
	if err != nil {
		t.Fatalf("New network: %v", err)
	}

	g, err := NewLogisticGrowth(net)
	if err != nil {
		t.Fatalf("NewLogisticGrowth: %v", err)
	}

	b := []float64{0.4, 0.3, 0.1}
	inert := g.Value(1, 1, b, nil)

	// The layer adds producer 0's biomass to producer 1's pressure, but only
	// once activated by a classic-response model.
	g.setLayersActive(true)
	active := g.Value(1, 1, b, nil)

	wantInert := 0.3 * (1 - 0.3)
	wantActive := 0.3 * (1 - (0.3 + 0.4))
	if math.Abs(inert-wantInert) > 1e-12 {
		t.Errorf("inert layer: Value = %g, want %g", inert, wantInert)
	}
	if math.Abs(active-wantActive) > 1e-12 {
		t.Errorf("active layer: Value = %g, want %g", active, wantActive)
	}
}

func TestNutrientIntakeLiebig(t *testing.T) {
	net := chainNet(t)
	g, err := NewNutrientIntake(net, 2,
		WithNutrientHalfSaturation(mat.NewDense(1, 2, []float64{0.5, 0.1})))
	if err != nil {
		t.Fatalf("NewNutrientIntake: %v", err)
	}

	// Saturations are 1/(1+0.5)=2/3 and 1/(1+0.1)=10/11; the first limits.
	got := g.Value(0, 1, []float64{0.5, 0}, []float64{1, 1})
	want := 1 * 0.5 * (1.0 / 1.5)
	if math.Abs(got-want) > 1e-12 {
		t.Errorf("Value = %g, want %g", got, want)
	}

	// Non-producer contributes nothing regardless of nutrients.
	if got := g.Value(1, 1, []float64{0.5, 0.5}, []float64{1, 1}); got != 0 {
		t.Errorf("non-producer Value = %g, want 0", got)
	}
}

func TestNutrientIntakeEmptyPoolStopsGrowth(t *testing.T) {
	net := chainNet(t)
	g, err := NewNutrientIntake(net, 1,
		WithNutrientHalfSaturation(mat.NewDense(1, 1, []float64{0})))
	if err != nil {
		t.Fatalf("NewNutrientIntake: %v", err)
	}
	// N=0, h=0 is the degenerate 0/0 case: defined as zero growth.
	if got := g.Value(0, 1, []float64{0.5, 0}, []float64{0}); got != 0 {
		t.Errorf("Value at empty pool = %g, want 0", got)
	}
}

func TestNutrientPoolDerivative(t *testing.T) {
	net := chainNet(t)
	g, err := NewNutrientIntake(net, 2,
		WithTurnover([]float64{0.25, 0.5}),
		WithSupply([]float64{10, 4}),
		WithConcentration(mat.NewDense(1, 2, []float64{1, 0.5})))
	if err != nil {
		t.Fatalf("NewNutrientIntake: %v", err)
	}

	dst := make([]float64, 2)
	growth := []float64{0.2, 0} // producer 0 grows, consumer never appears
	g.PoolDerivative(dst, []float64{2, 2}, growth)

	want0 := 0.25*(10-2) - 1*0.2
	want1 := 0.5*(4-2) - 0.5*0.2
	if math.Abs(dst[0]-want0) > 1e-12 || math.Abs(dst[1]-want1) > 1e-12 {
		t.Errorf("PoolDerivative = %v, want [%g %g]", dst, want0, want1)
	}
}

func TestNutrientIntakeDefaults(t *testing.T) {
	net := chainNet(t)
	g, err := NewNutrientIntake(net, 2)
	if err != nil {
		t.Fatalf("NewNutrientIntake: %v", err)
	}
	pools := g.DefaultPools()
	if len(pools) != 2 || pools[0] != 10 || pools[1] != 10 {
		t.Errorf("DefaultPools = %v, want [10 10]", pools)
	}
	if g.NutrientDim() != 2 {
		t.Errorf("NutrientDim = %d, want 2", g.NutrientDim())
	}
}

func TestNutrientIntakeDimensionErrors(t *testing.T) {
	net := chainNet(t)
	if _, err := NewNutrientIntake(net, 0); err == nil {
		t.Error("expected error for zero nutrients")
	}
	if _, err := NewNutrientIntake(net, 2, WithTurnover([]float64{0.1})); err == nil {
		t.Error("expected error for short turnover vector")
	}
	if _, err := NewNutrientIntake(net, 2,
		WithConcentration(mat.NewDense(2, 2, nil))); err == nil {
		t.Error("expected error for concentration rows != producers")
	}
}
