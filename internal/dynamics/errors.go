package dynamics

import "errors"

// Construction errors. All abort model construction; none leaves a partially
// built model behind.
var (
	// ErrGrowthMismatch indicates nutrient-pool state was supplied to, or
	// requested from, a model configured with logistic growth.
	ErrGrowthMismatch = errors.New("dynamics: nutrient dynamics require nutrient-limited growth")

	// ErrFragmentConflict indicates two compact-evaluator term fragments
	// produced different values for the same data key. Well-formed terms can
	// never trigger this; it guards against bugs in term composition.
	ErrFragmentConflict = errors.New("dynamics: compact term fragments disagree on a shared key")

	// ErrDimensionMismatch indicates a state or parameter vector whose length
	// does not match the network.
	ErrDimensionMismatch = errors.New("dynamics: dimension mismatch")
)
