package approx

import (
	"fmt"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/samuelfneumann/nsteptd/initwfn"
	"github.com/samuelfneumann/nsteptd/network"
	"github.com/samuelfneumann/nsteptd/proba"
	"github.com/samuelfneumann/nsteptd/space"
)

// DynamicsModel implements a probabilistic model p(s'|s, a) of the
// next observation given an observation and an action.
//
// The func of a DynamicsModel is either a Type1Func, which takes
// encoded observations and actions and returns one distribution over
// next observations, or a Type2Func, which takes encoded observations
// and returns one distribution over next observations per discrete
// action. Type-2 outputs have numActions * d columns, where columns
// [i*d, (i+1)*d) parameterize the distribution of action i and d is the
// encoded dimension of the observation space.
type DynamicsModel struct {
	*funcApprox
	dist       proba.Dist
	numActions int
}

// NewDynamicsModel returns a new dynamics model. If init is nil,
// weights are initialized with the Glorot uniform initializer. All
// randomness is seeded with seed.
func NewDynamicsModel(fn interface{}, obs, act space.Space,
	init *initwfn.InitWFn, seed uint64) (*DynamicsModel, error) {
	const op = "newDynamicsModel"

	kind, f, err := parseFunc(op, fn, type1, type2)
	if err != nil {
		return nil, err
	}

	var numActions int
	if discrete, ok := act.(space.DiscreteSpace); ok {
		numActions = discrete.N
	} else if kind == type2 {
		return nil, errors.Wrap(ErrType2NonDiscrete, op)
	}

	dist, err := proba.New(obs)
	if err != nil {
		return nil, errors.Wrapf(ErrUnsupportedSpace, "%v: observation "+
			"space %v", op, obs)
	}

	width := obs.FlatDim()
	if kind == type2 {
		width *= numActions
	}

	base, err := newFuncApprox(op, kind, f, obs, act, dist.Family(), width,
		init, seed)
	if err != nil {
		return nil, err
	}
	return &DynamicsModel{funcApprox: base, dist: dist,
		numActions: numActions}, nil
}

// ActionSpace returns the action space
func (d *DynamicsModel) ActionSpace() space.Space {
	return d.act
}

// IsType2 returns whether the model predicts all actions at once
func (d *DynamicsModel) IsType2() bool {
	return d.kind == type2
}

// Function evaluates the model with the given parameters and function
// state, returning the distribution parameters and the next function
// state. Type-1 models require actions A, and type-2 models ignore A
// and return the parameters of all actions.
func (d *DynamicsModel) Function(params network.Params, state network.State,
	S, A *mat.Dense, training bool) (proba.Params, network.State, error) {
	if d.kind == type2 {
		A = nil
	} else if A == nil {
		return proba.Params{}, nil, d.missingAction("function")
	}

	outputs, next, err := d.function(params, state, S, A, training)
	if err != nil {
		return proba.Params{}, nil, err
	}
	return d.distParams(outputs), next, nil
}

// DistParams returns the parameters of the distribution over next
// observations after taking action a in observation s
func (d *DynamicsModel) DistParams(s, a *mat.VecDense) (proba.Params,
	error) {
	if a == nil {
		return proba.Params{}, d.missingAction("distParams")
	}
	if !d.act.Contains(a) {
		return proba.Params{}, fmt.Errorf("distParams: action %v not in "+
			"action space %v", mat.Formatted(a.T()), d.act)
	}

	if d.kind == type1 {
		params, _, err := d.Function(d.params, d.state, rowOf(s), rowOf(a),
			false)
		return params, err
	}

	params, _, err := d.Function(d.params, d.state, rowOf(s), nil, false)
	if err != nil {
		return proba.Params{}, err
	}
	return d.actionParams(params, int(a.AtVec(0))), nil
}

// Sample samples a next observation after taking action a in
// observation s
func (d *DynamicsModel) Sample(s, a *mat.VecDense) (*mat.VecDense, error) {
	next, _, err := d.SampleLogp(s, a)
	return next, err
}

// SampleLogp samples a next observation after taking action a in
// observation s and returns its log-probability
func (d *DynamicsModel) SampleLogp(s, a *mat.VecDense) (*mat.VecDense,
	float64, error) {
	params, err := d.DistParams(s, a)
	if err != nil {
		return nil, 0, errors.Wrap(err, "sampleLogp")
	}
	pred, err := predict(d.dist, params, d.rng, false)
	if err != nil {
		return nil, 0, errors.Wrap(err, "sampleLogp")
	}
	return pred.X, pred.Logp, nil
}

// Mode returns the most likely next observation after taking action a
// in observation s
func (d *DynamicsModel) Mode(s, a *mat.VecDense) (*mat.VecDense, error) {
	params, err := d.DistParams(s, a)
	if err != nil {
		return nil, errors.Wrap(err, "mode")
	}
	pred, err := predict(d.dist, params, d.rng, true)
	if err != nil {
		return nil, errors.Wrap(err, "mode")
	}
	return pred.X, nil
}

// SampleAll returns a Sequence of sampled next observations, one for
// each action of a Discrete action space, in action index order
func (d *DynamicsModel) SampleAll(s *mat.VecDense) (*Sequence, error) {
	return d.all("sampleAll", s, false)
}

// ModeAll returns a Sequence of the most likely next observations, one
// for each action of a Discrete action space, in action index order
func (d *DynamicsModel) ModeAll(s *mat.VecDense) (*Sequence, error) {
	return d.all("modeAll", s, true)
}

func (d *DynamicsModel) all(op string, s *mat.VecDense,
	mode bool) (*Sequence, error) {
	if !space.IsDiscrete(d.act) {
		return nil, d.missingAction(op)
	}

	// Type-2 models predict all actions in a single evaluation
	if d.kind == type2 {
		params, _, err := d.Function(d.params, d.state, rowOf(s), nil, false)
		if err != nil {
			return nil, errors.Wrap(err, op)
		}
		return newSequence(d.numActions, func(i int) (Prediction, error) {
			return predict(d.dist, d.actionParams(params, i), d.rng, mode)
		}), nil
	}

	return newSequence(d.numActions, func(i int) (Prediction, error) {
		a := mat.NewVecDense(1, []float64{float64(i)})
		params, err := d.DistParams(s, a)
		if err != nil {
			return Prediction{}, errors.Wrap(err, op)
		}
		return predict(d.dist, params, d.rng, mode)
	}), nil
}

// actionParams returns the distribution parameters of action i from
// the parameters of all actions predicted by a type-2 model
func (d *DynamicsModel) actionParams(params proba.Params,
	i int) proba.Params {
	dim := d.obs.FlatDim()
	slice := func(m *mat.Dense) *mat.Dense {
		if m == nil {
			return nil
		}
		r, _ := m.Dims()
		return mat.DenseCopyOf(m.Slice(0, r, i*dim, (i+1)*dim))
	}
	return proba.Params{
		Family: params.Family,
		Logits: slice(params.Logits),
		Mu:     slice(params.Mu),
		LogVar: slice(params.LogVar),
	}
}

// missingAction returns the error for a call without an action
func (d *DynamicsModel) missingAction(op string) error {
	if !space.IsDiscrete(d.act) {
		return &MissingInputError{Op: op, Input: "A", Reason: "for type-1 " +
			"dynamics model when action space is non-Discrete"}
	}
	return &MissingInputError{Op: op, Input: "A", Reason: "to predict a " +
		"single transition, use SampleAll or ModeAll to enumerate the " +
		"Discrete action space"}
}

// Copy returns a copy of the model with the same func and copies of
// its parameters and function state
func (d *DynamicsModel) Copy() *DynamicsModel {
	return &DynamicsModel{funcApprox: d.copy(), dist: d.dist,
		numActions: d.numActions}
}
