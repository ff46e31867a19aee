package rates

import (
	"math"
	"strings"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/ecodyn/foodweb/internal/foodweb"
)

func testWeb(t *testing.T) *foodweb.Network {
	t.Helper()
	adj := mat.NewDense(3, 3, []float64{
		0, 0, 0,
		1, 0, 0,
		0, 1, 0,
	})
	net, err := foodweb.New(adj,
		[]foodweb.MetabolicClass{foodweb.Producer, foodweb.Invertebrate, foodweb.Vertebrate},
		foodweb.WithNames([]string{"alga", "grazer", "fish"}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return net
}

func TestAllometricDefaults(t *testing.T) {
	net := testWeb(t)
	b, err := Allometric(net, []float64{1, 1, 1})
	if err != nil {
		t.Fatalf("Allometric: %v", err)
	}

	// At unit mass the rates equal the published class coefficients.
	if b.R[0] != 1.0 || b.R[1] != 0 || b.R[2] != 0 {
		t.Errorf("R = %v, want growth only for the producer", b.R)
	}
	if b.X[0] != 0 || b.X[1] != 0.314 || b.X[2] != 0.88 {
		t.Errorf("X = %v, want [0 0.314 0.88]", b.X)
	}
	if b.Y[1] != 8 || b.Y[2] != 4 {
		t.Errorf("Y = %v, want 8 for invertebrates, 4 for vertebrates", b.Y)
	}
	if got := b.E.At(1, 0); got != 0.45 {
		t.Errorf("herbivory efficiency = %g, want 0.45", got)
	}
	if got := b.E.At(2, 1); got != 0.85 {
		t.Errorf("carnivory efficiency = %g, want 0.85", got)
	}
	if got := b.E.At(0, 1); got != 0 {
		t.Errorf("efficiency off-link = %g, want 0", got)
	}
}

func TestAllometricMassScaling(t *testing.T) {
	net := testWeb(t)
	b, err := Allometric(net, []float64{1, 16, 16})
	if err != nil {
		t.Fatalf("Allometric: %v", err)
	}
	// 16^-0.25 = 0.5
	if got, want := b.X[1], 0.314*0.5; math.Abs(got-want) > 1e-12 {
		t.Errorf("X[1] = %g, want %g", got, want)
	}
}

func TestAllometricRejectsBadInput(t *testing.T) {
	net := testWeb(t)
	if _, err := Allometric(net, []float64{1, 1}); err == nil {
		t.Error("accepted wrong mass length")
	}
	if _, err := Allometric(net, []float64{1, -2, 1}); err == nil {
		t.Error("accepted negative body mass")
	}
}

func TestTrophicLevels(t *testing.T) {
	net := testWeb(t)
	tl := TrophicLevels(net)
	want := []float64{1, 2, 3}
	for i := range want {
		if math.Abs(tl[i]-want[i]) > 1e-9 {
			t.Errorf("TL[%d] = %g, want %g", i, tl[i], want[i])
		}
	}

	mass := DefaultBodyMass(net, 10)
	if math.Abs(mass[2]-100) > 1e-9 {
		t.Errorf("mass[2] = %g, want 100 for z=10 at TL 3", mass[2])
	}
}

func TestOverrides(t *testing.T) {
	net := testWeb(t)
	csv := strings.Join([]string{
		"name,body_mass,growth_rate,metabolic_rate,max_consumption",
		"alga,,2.5,,",
		"grazer,16,,,6",
	}, "\n")

	rows, err := ReadOverrides(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("ReadOverrides: %v", err)
	}

	mass := []float64{1, 1, 1}
	if err := ApplyMassOverrides(net, mass, rows); err != nil {
		t.Fatalf("ApplyMassOverrides: %v", err)
	}
	if mass[1] != 16 {
		t.Errorf("mass[1] = %g, want 16", mass[1])
	}

	b, err := Allometric(net, mass)
	if err != nil {
		t.Fatalf("Allometric: %v", err)
	}
	if err := b.Apply(net, rows); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if b.R[0] != 2.5 {
		t.Errorf("R[0] = %g, want override 2.5", b.R[0])
	}
	if b.Y[1] != 6 {
		t.Errorf("Y[1] = %g, want override 6", b.Y[1])
	}
	// Untouched cell keeps the mass-scaled derivation.
	if want := 0.314 * 0.5; math.Abs(b.X[1]-want) > 1e-12 {
		t.Errorf("X[1] = %g, want derived %g", b.X[1], want)
	}
}

func TestOverrideExplicitZeroRate(t *testing.T) {
	net := testWeb(t)
	// An explicit 0 cell overrides, unlike an empty cell which leaves the
	// derived value alone.
	csv := strings.Join([]string{
		"name,body_mass,growth_rate,metabolic_rate,max_consumption",
		"grazer,,,0,",
	}, "\n")

	rows, err := ReadOverrides(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("ReadOverrides: %v", err)
	}
	b, err := Allometric(net, []float64{1, 1, 1})
	if err != nil {
		t.Fatalf("Allometric: %v", err)
	}
	if err := b.Apply(net, rows); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if b.X[1] != 0 {
		t.Errorf("X[1] = %g, want explicit override 0", b.X[1])
	}
	if b.Y[1] != 8 {
		t.Errorf("Y[1] = %g, want derived 8 untouched", b.Y[1])
	}
}

func TestOverridesRejectBadCell(t *testing.T) {
	csv := strings.Join([]string{
		"name,body_mass,growth_rate,metabolic_rate,max_consumption",
		"alga,heavy,,,",
	}, "\n")
	if _, err := ReadOverrides(strings.NewReader(csv)); err == nil {
		t.Error("accepted non-numeric body mass cell")
	}
}

func TestOverrideUnknownSpecies(t *testing.T) {
	net := testWeb(t)
	rows := []OverrideRow{{Name: "kraken"}}
	b, err := Allometric(net, []float64{1, 1, 1})
	if err != nil {
		t.Fatalf("Allometric: %v", err)
	}
	if err := b.Apply(net, rows); err == nil {
		t.Error("accepted override for unknown species")
	}
}
