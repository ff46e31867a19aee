package sim

import (
	"context"
	"fmt"
	"math"

	"github.com/ecodyn/foodweb/internal/dynamics"
)

// DefaultInitialBiomass seeds every species when no initial state is given.
const DefaultInitialBiomass = 0.5

// steadyStateStride spaces out the extra derivative evaluation behind the
// steady-state check: once every fourth accepted step.
const steadyStateStride = 4

// Simulator drives the numerical integration of one model: it owns the
// extinction record, clamps solver overshoot, and decides when a run is
// finished. A Simulator may be reused; each Run binds fresh evaluator state.
type Simulator struct {
	model      *dynamics.Model
	integrator dynamics.Integrator
	observers  []dynamics.Observer
	reference  bool
}

type Option func(*Simulator)

// WithObserver registers a callback invoked after every accepted step.
func WithObserver(o dynamics.Observer) Option {
	return func(s *Simulator) { s.observers = append(s.observers, o) }
}

// WithReferenceEvaluator integrates with the generic derivative strategy
// instead of the compact one. Slower; used for verification.
func WithReferenceEvaluator() Option {
	return func(s *Simulator) { s.reference = true }
}

func New(model *dynamics.Model, integrator dynamics.Integrator, opts ...Option) *Simulator {
	s := &Simulator{model: model, integrator: integrator}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run integrates from b0 (species biomasses; nil for the uniform default)
// until the horizon, a steady state, total extinction, or numerical failure.
// The returned error covers configuration problems and context cancellation;
// numerical failure is reported through Result.Status with the partial
// trajectory preserved.
func (s *Simulator) Run(ctx context.Context, b0 dynamics.State, cfg Config) (*Result, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	x, err := s.initialState(b0)
	if err != nil {
		return nil, err
	}

	ext := dynamics.NewExtinctions()
	var sys dynamics.System
	if s.reference {
		sys = s.model.Generic(ext)
	} else {
		sys = s.model.Compact(ext)
	}

	result := &Result{Status: StatusHorizon}
	t := 0.0
	dt := cfg.Dt

	// A species may already start below the threshold.
	s.applyExtinctions(ext, x, t, cfg.ExtinctionThreshold)
	s.record(result, t, x)

	for t < cfg.Horizon {
		select {
		case <-ctx.Done():
			result.Extinction = ext.Times()
			return result, ctx.Err()
		default:
		}

		var newX dynamics.State
		stepDt := dt
		if cfg.Adaptive {
			newX, stepDt, dt = s.adaptiveStep(sys, x, t, dt, cfg)
		} else {
			newX = s.integrator.Step(sys, x, t, dt)
		}

		if !newX.IsValid() {
			result.Status = StatusFailed
			result.Err = SimError{Time: t, Step: result.StepsTaken, Message: "non-finite state"}
			break
		}

		x = newX
		t += stepDt
		result.StepsTaken++

		clampNonNegative(x)
		s.applyExtinctions(ext, x, t, cfg.ExtinctionThreshold)
		s.record(result, t, x)
		for _, o := range s.observers {
			o.OnStep(x, t)
		}

		if ext.Count() == s.model.S() {
			result.Status = StatusAllExtinct
			break
		}
		if cfg.SteadyStateTol > 0 && result.StepsTaken%steadyStateStride == 0 {
			if d := sys.Derive(x, t); d.MaxAbs() < cfg.SteadyStateTol {
				result.Status = StatusConverged
				break
			}
		}
	}

	result.Extinction = ext.Times()
	return result, nil
}

func (s *Simulator) initialState(b0 dynamics.State) (dynamics.State, error) {
	if b0 == nil {
		b0 = make(dynamics.State, s.model.S())
		for i := range b0 {
			b0[i] = DefaultInitialBiomass
		}
	}
	if len(b0) == s.model.Dim() {
		return b0.Clone(), nil
	}
	var n0 []float64
	if s.model.NutrientDim() > 0 {
		ni, err := s.model.Nutrients()
		if err != nil {
			return nil, err
		}
		n0 = ni.DefaultPools()
	}
	return s.model.InitialState(b0, n0)
}

// adaptiveStep follows the integrator's own step-size control when offered.
// It returns the new state, the step size actually taken (time advances by
// this, never by the suggestion), and the next step size clamped to the
// configured bounds.
func (s *Simulator) adaptiveStep(sys dynamics.System, x dynamics.State, t, dt float64, cfg Config) (dynamics.State, float64, float64) {
	adaptive, ok := s.integrator.(dynamics.AdaptiveIntegrator)
	if !ok {
		return s.integrator.Step(sys, x, t, dt), dt, dt
	}
	newX, usedDt, nextDt, err := adaptive.StepAdaptive(sys, x, t, dt, cfg.Tolerance)
	if err != nil {
		return s.integrator.Step(sys, x, t, dt), dt, dt
	}
	nextDt = math.Max(cfg.MinDt, math.Min(cfg.MaxDt, nextDt))
	return newX, usedDt, nextDt
}

// applyExtinctions marks every live species whose biomass crossed below the
// threshold and pins it to zero. Mutation of the extinction record happens
// here, between solver steps, never inside the derivative evaluation.
func (s *Simulator) applyExtinctions(ext *dynamics.Extinctions, x dynamics.State, t, threshold float64) {
	for i := 0; i < s.model.S(); i++ {
		if ext.Extinct(i) {
			x[i] = 0
			continue
		}
		if threshold > 0 && x[i] < threshold {
			ext.Mark(i, t)
			x[i] = 0
		}
	}
}

func (s *Simulator) record(result *Result, t float64, x dynamics.State) {
	result.Times = append(result.Times, t)
	result.States = append(result.States, x.Clone())
}

// clampNonNegative zeroes negative entries: biomass and nutrient
// concentrations are physical quantities, negative values are integrator
// overshoot.
func clampNonNegative(x dynamics.State) {
	for i, v := range x {
		if v < 0 {
			x[i] = 0
		}
	}
}

func validateConfig(cfg Config) error {
	if cfg.Dt <= 0 {
		return fmt.Errorf("sim: dt must be positive, got %g", cfg.Dt)
	}
	if cfg.Horizon <= 0 {
		return fmt.Errorf("sim: horizon must be positive, got %g", cfg.Horizon)
	}
	if cfg.Adaptive && cfg.Tolerance <= 0 {
		return fmt.Errorf("sim: tolerance must be positive for adaptive stepping")
	}
	if cfg.ExtinctionThreshold < 0 {
		return fmt.Errorf("sim: extinction threshold must be non-negative, got %g", cfg.ExtinctionThreshold)
	}
	return nil
}
