package dynamics

import "math"

// State is the ODE state vector: species biomasses, extended with nutrient
// pool concentrations when nutrient-limited growth is active.
type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (s State) Norm() float64 {
	sum := 0.0
	for _, v := range s {
		sum += v * v
	}
	return math.Sqrt(sum)
}

// MaxAbs returns the infinity norm, used for steady-state detection.
func (s State) MaxAbs() float64 {
	m := 0.0
	for _, v := range s {
		if a := math.Abs(v); a > m {
			m = a
		}
	}
	return m
}

// System is an ODE right-hand side: dX/dt = Derive(X, t).
//
// Derive must be a pure function of the state, the model parameters, and the
// extinction record: integrators invoke it speculatively during step-size
// control and may re-evaluate the same time point.
type System interface {
	Derive(x State, t float64) State
	Dim() int
}

// Integrator advances a system by one step.
type Integrator interface {
	Step(sys System, x State, t, dt float64) State
}

// AdaptiveIntegrator additionally controls its own step size. StepAdaptive
// reports both the step size actually taken (after any rejected trials) and
// the suggested size for the next step, so callers can keep timestamps in
// sync with the state.
type AdaptiveIntegrator interface {
	Integrator
	StepAdaptive(sys System, x State, t, dt, tol float64) (newX State, usedDt, nextDt float64, err error)
}

// Observer is notified after every accepted integration step.
type Observer interface {
	OnStep(x State, t float64)
}
