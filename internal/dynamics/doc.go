// Package dynamics assembles bio-energetic food-web models into ODE systems.
//
// A [Model] combines one network topology, one biological rate table, one
// functional response, and one producer-growth term into the state derivative
//
//	dB_i/dt = growth_i + gains_i − losses_i − metabolism_i
//
// optionally extended with nutrient-pool dynamics. Two derivative evaluation
// strategies are provided:
//
//   - [Model.Generic]: recomputes every term from the dense parameter
//     matrices on each call; the reference implementation.
//   - [Model.Compact]: compiled once at construction from precomputed sparse
//     index lists; numerically identical, amortizes the structural work.
//
// Derivative evaluators are pure functions of (state, parameters, extinction
// record); all mutation of the extinction record happens in the simulation
// driver between accepted steps.
package dynamics
