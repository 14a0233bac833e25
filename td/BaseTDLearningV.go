package td

import (
	"fmt"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/samuelfneumann/nsteptd/approx"
	"github.com/samuelfneumann/nsteptd/network"
	ts "github.com/samuelfneumann/nsteptd/timestep"
	"github.com/samuelfneumann/nsteptd/utils/floatutils"
)

// TargetFunc computes the TD targets of a batch of transitions in the
// transformed value domain, using a target value function with the
// given parameters and function state
type TargetFunc func(targetParams network.Params,
	targetState network.State, rng *rand.Rand,
	batch *ts.TransitionBatch) ([]float64, error)

// BaseTDLearningV implements the functionality shared by TD learners of
// state value functions. Concrete learners provide the TargetFunc.
//
// Each update fits the main value function v to the targets with one
// solver step. A separate target value function is only changed by
// SyncTarget. Without one, targets bootstrap from the current v.
type BaseTDLearningV struct {
	name   string
	v      *approx.V
	vTarg  *approx.V
	config Config
	target TargetFunc

	rng      *rand.Rand
	solver   approx.Solver
	trainers map[int]*approx.Trainer
}

// newBaseTDLearningV returns a new BaseTDLearningV. If vTarg is nil, v
// itself is used as the target value function.
func newBaseTDLearningV(name string, v, vTarg *approx.V, c Config,
	seed uint64) (*BaseTDLearningV, error) {
	if v == nil {
		return nil, fmt.Errorf("new%v: value function must be given", name)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("new%v: %v", name, err)
	}
	if vTarg == nil {
		vTarg = v
	}

	return &BaseTDLearningV{
		name:     name,
		v:        v,
		vTarg:    vTarg,
		config:   c,
		rng:      rand.New(rand.NewSource(seed)),
		solver:   c.Solver.Clone(),
		trainers: make(map[int]*approx.Trainer),
	}, nil
}

// Name returns the name of the learner, which prefixes its metrics
func (b *BaseTDLearningV) Name() string {
	return b.name
}

// V returns the main value function
func (b *BaseTDLearningV) V() *approx.V {
	return b.v
}

// TargetV returns the target value function, which is V if no
// separate target value function was given
func (b *BaseTDLearningV) TargetV() *approx.V {
	return b.vTarg
}

// Targets returns the regularized TD targets of a batch in the
// transformed value domain
func (b *BaseTDLearningV) Targets(batch *ts.TransitionBatch) ([]float64,
	error) {
	if err := batch.Validate(); err != nil {
		return nil, fmt.Errorf("targets: %v", err)
	}

	targets, err := b.target(b.vTarg.Params(), b.vTarg.FunctionState(), b.rng,
		batch)
	if err != nil {
		return nil, fmt.Errorf("targets: %v", err)
	}

	if b.config.Regularizer != nil {
		penalty, err := b.config.Regularizer.Penalty(batch.S)
		if err != nil {
			return nil, fmt.Errorf("targets: %v", err)
		}

		f := b.config.Transform
		f.InverseSlice(targets)
		floats.Sub(targets, penalty)
		f.TransformSlice(targets)
	}
	return targets, nil
}

// TDError returns the TD errors G - v(S) of a batch, where G are the
// TD targets. The value function is evaluated in inference mode.
func (b *BaseTDLearningV) TDError(batch *ts.TransitionBatch) ([]float64,
	error) {
	targets, err := b.Targets(batch)
	if err != nil {
		return nil, fmt.Errorf("tdError: %v", err)
	}
	return b.tdError(batch, targets)
}

func (b *BaseTDLearningV) tdError(batch *ts.TransitionBatch,
	targets []float64) ([]float64, error) {
	values, err := b.v.Batch(batch.S)
	if err != nil {
		return nil, fmt.Errorf("tdError: %v", err)
	}
	for i := range values {
		values[i] = targets[i] - values[i]
	}
	return values, nil
}

// Update performs one update of the main value function toward the TD
// targets of a batch, replacing its parameters and function state. The
// returned metrics are the loss and the mean TD error before the
// update, named <Name>/loss and <Name>/td_error.
func (b *BaseTDLearningV) Update(batch *ts.TransitionBatch) (
	map[string]float64, error) {
	targets, err := b.Targets(batch)
	if err != nil {
		return nil, fmt.Errorf("update: %v", err)
	}
	tdErrors, err := b.tdError(batch, targets)
	if err != nil {
		return nil, fmt.Errorf("update: %v", err)
	}

	trainer, err := b.trainer(batch.Len())
	if err != nil {
		return nil, fmt.Errorf("update: %v", err)
	}

	w := floatutils.ClipSlice(batch.W, MinWeight, MaxWeight)
	loss, err := trainer.Step(batch.S, targets, w)
	if err != nil {
		return nil, fmt.Errorf("update: %v", err)
	}

	return map[string]float64{
		b.name + "/loss":     loss,
		b.name + "/td_error": stat.Mean(tdErrors, nil),
	}, nil
}

// SyncTarget sets the target value function to the Polyak average
// (1-tau)*vTarg + tau*v. A tau of 1 copies the main value function.
// SyncTarget does nothing if the learner has no separate target value
// function.
func (b *BaseTDLearningV) SyncTarget(tau float64) error {
	if b.vTarg == b.v {
		return nil
	}
	if err := b.vTarg.SoftUpdate(b.v, tau); err != nil {
		return fmt.Errorf("syncTarget: %v", err)
	}
	return nil
}

// trainer returns the Trainer for batches of the given size
func (b *BaseTDLearningV) trainer(batch int) (*approx.Trainer, error) {
	if trainer, ok := b.trainers[batch]; ok {
		return trainer, nil
	}

	trainer, err := b.v.Trainer(batch, b.config.Loss, b.solver)
	if err != nil {
		return nil, err
	}
	b.trainers[batch] = trainer
	return trainer, nil
}
