package td

import (
	"fmt"

	"golang.org/x/exp/rand"

	"github.com/samuelfneumann/nsteptd/approx"
	"github.com/samuelfneumann/nsteptd/network"
	ts "github.com/samuelfneumann/nsteptd/timestep"
)

// SimpleTD implements n-step TD learning of a state value function with
// the bootstrapped target
//
//	G = f(Rn + In * f⁻¹(v_targ(S')))
//
// where f is the value transform. In is 0 for terminal transitions, so
// that they are not bootstrapped.
type SimpleTD struct {
	*BaseTDLearningV
}

// NewSimpleTD returns a new SimpleTD learner of v. If vTarg is nil,
// targets bootstrap from v itself.
func NewSimpleTD(v, vTarg *approx.V, c Config, seed uint64) (*SimpleTD,
	error) {
	base, err := newBaseTDLearningV("SimpleTD", v, vTarg, c, seed)
	if err != nil {
		return nil, err
	}

	s := &SimpleTD{base}
	base.target = s.TargetFunc
	return s, nil
}

// TargetFunc returns the TD targets of a batch, evaluating the target
// value function in inference mode with the given parameters and
// function state
func (s *SimpleTD) TargetFunc(targetParams network.Params,
	targetState network.State, _ *rand.Rand,
	batch *ts.TransitionBatch) ([]float64, error) {
	vNext, _, err := s.vTarg.Function(targetParams, targetState, batch.SNext,
		false)
	if err != nil {
		return nil, fmt.Errorf("targetFunc: %v", err)
	}

	f := s.config.Transform
	f.InverseSlice(vNext)
	targets := make([]float64, batch.Len())
	for i := range targets {
		targets[i] = batch.Rn[i] + batch.In[i]*vNext[i]
	}
	f.TransformSlice(targets)
	return targets, nil
}
