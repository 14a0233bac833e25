// Package environment outlines the interfaces and structs needed to
// implement concrete environments
package environment

import (
	"gonum.org/v1/gonum/mat"

	"github.com/samuelfneumann/nsteptd/space"
	"github.com/samuelfneumann/nsteptd/timestep"
)

// Starter implements a distribution of starting states and samples
// starting states for environments
type Starter interface {
	Start() *mat.VecDense
}

// Ender determines when episodes should end
type Ender interface {
	// End determines whether or not the episode should end at the
	// timestep t. If so, End sets the StepType of t to timestep.Last.
	End(t *timestep.TimeStep) bool
}

// Environment implements a simulated environment. Episodes begin with
// a call to Reset, after which Step is called with actions until a
// timestep with StepType timestep.Last is returned.
type Environment interface {
	// Reset resets the environment between episodes and returns the
	// first timestep of the new episode
	Reset() (timestep.TimeStep, error)

	// Step takes one environmental step with action a and returns the
	// resulting timestep
	Step(a *mat.VecDense) (timestep.TimeStep, error)

	ObservationSpace() space.Space
	ActionSpace() space.Space
}
