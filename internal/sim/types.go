package sim

import (
	"fmt"

	"github.com/ecodyn/foodweb/internal/dynamics"
)

// Status is the terminal state of a simulation run.
type Status int

const (
	// StatusHorizon: integrated to the full time horizon.
	StatusHorizon Status = iota
	// StatusConverged: derivative fell below the steady-state tolerance.
	StatusConverged
	// StatusAllExtinct: every species went extinct; integration stopped early.
	StatusAllExtinct
	// StatusFailed: the solver produced non-finite values; the trajectory up
	// to the failure point is preserved.
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusHorizon:
		return "horizon"
	case StatusConverged:
		return "converged"
	case StatusAllExtinct:
		return "all-extinct"
	case StatusFailed:
		return "failed"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

type Config struct {
	Dt       float64
	Horizon  float64
	Adaptive bool
	// Tolerance is the local error tolerance for adaptive stepping.
	Tolerance float64
	MinDt     float64
	MaxDt     float64
	// ExtinctionThreshold marks a species extinct when its biomass drops
	// below it; zero disables extinction tracking.
	ExtinctionThreshold float64
	// SteadyStateTol terminates early once the derivative infinity norm falls
	// below it; zero disables early termination.
	SteadyStateTol float64
}

func DefaultConfig() Config {
	return Config{
		Dt:                  0.1,
		Horizon:             500,
		Adaptive:            true,
		Tolerance:           1e-8,
		MinDt:               1e-8,
		MaxDt:               1.0,
		ExtinctionThreshold: 1e-6,
		SteadyStateTol:      1e-6,
	}
}

// Result is the packaged trajectory: time-indexed state samples, the
// extinction record, and the terminal status tag.
type Result struct {
	Times      []float64
	States     []dynamics.State
	Extinction map[int]float64
	Status     Status
	StepsTaken int
	// Err carries diagnostic detail when Status is StatusFailed.
	Err error
}

// Final returns the last sampled state.
func (r *Result) Final() dynamics.State {
	if len(r.States) == 0 {
		return nil
	}
	return r.States[len(r.States)-1]
}

// Biomass extracts the trajectory of species i.
func (r *Result) Biomass(i int) []float64 {
	out := make([]float64, len(r.States))
	for k, st := range r.States {
		out[k] = st[i]
	}
	return out
}

// SimError reports where integration broke down.
type SimError struct {
	Time    float64
	Step    int
	Message string
}

func (e SimError) Error() string {
	return fmt.Sprintf("step %d (t=%.4f): %s", e.Step, e.Time, e.Message)
}
