package dynamics

import "math"

// Environment holds the abiotic context of a simulation.
type Environment struct {
	// Temperature in degrees Celsius.
	Temperature float64
}

func DefaultEnvironment() Environment {
	return Environment{Temperature: 20}
}

// TemperatureResponse maps the environment temperature to multiplicative
// factors on the growth, metabolic, and consumption rates. Applied once at
// model construction; rate tables stay immutable afterwards.
type TemperatureResponse interface {
	Factors(tempC float64) (r, x, y float64)
}

// NoTemperatureScaling leaves all rates untouched.
type NoTemperatureScaling struct{}

func (NoTemperatureScaling) Factors(float64) (float64, float64, float64) { return 1, 1, 1 }

// BoltzmannArrhenius scales rates by exp(E·(T−T0)/(k·T·T0)) with T in kelvin
// and per-rate activation energies in eV.
type BoltzmannArrhenius struct {
	ReferenceTemp         float64
	ActivationGrowth      float64
	ActivationMetabolism  float64
	ActivationConsumption float64
}

func DefaultBoltzmannArrhenius() BoltzmannArrhenius {
	return BoltzmannArrhenius{
		ReferenceTemp:         20,
		ActivationGrowth:      0.84,
		ActivationMetabolism:  0.69,
		ActivationConsumption: 0.38,
	}
}

const boltzmannEV = 8.617e-5

func (ba BoltzmannArrhenius) Factors(tempC float64) (float64, float64, float64) {
	t := tempC + 273.15
	t0 := ba.ReferenceTemp + 273.15
	scale := func(e float64) float64 {
		return math.Exp(e * (t - t0) / (boltzmannEV * t * t0))
	}
	return scale(ba.ActivationGrowth), scale(ba.ActivationMetabolism), scale(ba.ActivationConsumption)
}
