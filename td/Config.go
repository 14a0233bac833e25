// Package td implements temporal difference learning of state value
// functions from batches of n-step transitions.
package td

import (
	"fmt"

	"github.com/samuelfneumann/nsteptd/approx"
	"github.com/samuelfneumann/nsteptd/solver"
)

const (
	// DefaultStepSize is the step size of the default Adam solver
	DefaultStepSize = 1e-3

	// DefaultHuberDelta is the threshold of the default Huber loss
	DefaultHuberDelta = 1.0

	// Importance weights are clipped to [MinWeight, MaxWeight]
	MinWeight = 0.1
	MaxWeight = 10.0
)

// Config implements a configuration of a TD learner. Zero-valued fields
// are replaced by defaults: an Adam solver, the Huber loss, the
// identity value transform, and no policy regularization.
type Config struct {
	Solver      *solver.Solver
	Loss        approx.LossFunc
	Transform   *ValueTransform
	Regularizer PolicyRegularizer
}

// Validate checks a Config for errors, filling in defaults for unset
// fields
func (c *Config) Validate() error {
	if c.Solver == nil {
		adam, err := solver.NewDefaultAdam(DefaultStepSize, 1)
		if err != nil {
			return fmt.Errorf("validate: could not create solver: %v", err)
		}
		c.Solver = adam
	} else if c.Solver.Solver == nil {
		return fmt.Errorf("validate: solver %v was not created", c.Solver.Type)
	}

	if c.Loss == nil {
		c.Loss = Huber(DefaultHuberDelta)
	}

	if c.Transform == nil {
		c.Transform = Identity()
	} else if c.Transform.Transform == nil || c.Transform.Inverse == nil {
		return fmt.Errorf("validate: value transform must have both a " +
			"transform and an inverse")
	}

	return nil
}
