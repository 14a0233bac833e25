package approx

import (
	"github.com/pkg/errors"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"

	"github.com/samuelfneumann/nsteptd/initwfn"
	"github.com/samuelfneumann/nsteptd/network"
	"github.com/samuelfneumann/nsteptd/proba"
	"github.com/samuelfneumann/nsteptd/space"
)

// Policy implements a stochastic policy π(a|s).
//
// The func of a Policy must have the shape of a Type2Func, returning
// Logits for Discrete action spaces and a Gaussian for Box action
// spaces, with one column per encoded action dimension.
type Policy struct {
	*funcApprox
	dist proba.Dist
}

// NewPolicy returns a new policy over the action space act. If init is
// nil, weights are initialized with the Glorot uniform initializer. All
// randomness is seeded with seed.
func NewPolicy(fn interface{}, obs, act space.Space, init *initwfn.InitWFn,
	seed uint64) (*Policy, error) {
	const op = "newPolicy"

	kind, f, err := parseFunc(op, fn, type2)
	if err != nil {
		return nil, err
	}

	dist, err := proba.New(act)
	if err != nil {
		return nil, errors.Wrapf(ErrUnsupportedSpace, "%v: action space %v",
			op, act)
	}

	base, err := newFuncApprox(op, kind, f, obs, act, dist.Family(),
		act.FlatDim(), init, seed)
	if err != nil {
		return nil, err
	}
	return &Policy{funcApprox: base, dist: dist}, nil
}

// ActionSpace returns the action space
func (p *Policy) ActionSpace() space.Space {
	return p.act
}

// Function evaluates the policy on states S with the given parameters
// and function state, returning the distribution parameters and the
// next function state.
func (p *Policy) Function(params network.Params, state network.State,
	S *mat.Dense, training bool) (proba.Params, network.State, error) {
	outputs, next, err := p.function(params, state, S, nil, training)
	if err != nil {
		return proba.Params{}, nil, err
	}
	return p.distParams(outputs), next, nil
}

// DistParams returns the parameters of the action distributions at
// each row of S
func (p *Policy) DistParams(S *mat.Dense) (proba.Params, error) {
	params, _, err := p.Function(p.params, p.state, S, false)
	return params, err
}

// Sample samples an action in state s
func (p *Policy) Sample(s *mat.VecDense) (*mat.VecDense, error) {
	a, _, err := p.SampleLogp(s)
	return a, err
}

// SampleLogp samples an action in state s and returns its
// log-probability
func (p *Policy) SampleLogp(s *mat.VecDense) (*mat.VecDense, float64,
	error) {
	params, err := p.DistParams(rowOf(s))
	if err != nil {
		return nil, 0, err
	}
	pred, err := predict(p.dist, params, p.rng, false)
	if err != nil {
		return nil, 0, errors.Wrap(err, "sampleLogp")
	}
	return pred.X, pred.Logp, nil
}

// Mode returns the most likely action in state s
func (p *Policy) Mode(s *mat.VecDense) (*mat.VecDense, error) {
	params, err := p.DistParams(rowOf(s))
	if err != nil {
		return nil, err
	}
	pred, err := predict(p.dist, params, p.rng, true)
	if err != nil {
		return nil, errors.Wrap(err, "mode")
	}
	return pred.X, nil
}

// LogProb returns the log-probability of each row of actions A in the
// corresponding row of states S
func (p *Policy) LogProb(S, A *mat.Dense) ([]float64, error) {
	params, err := p.DistParams(S)
	if err != nil {
		return nil, err
	}
	return p.dist.LogProb(params, A)
}

// Entropy returns the entropy of the action distribution at each row of
// S
func (p *Policy) Entropy(S *mat.Dense) ([]float64, error) {
	params, err := p.DistParams(S)
	if err != nil {
		return nil, err
	}
	return p.dist.Entropy(params)
}

// Copy returns a copy of the policy with the same func and copies of
// its parameters and function state
func (p *Policy) Copy() *Policy {
	return &Policy{funcApprox: p.copy(), dist: p.dist}
}

// predict samples a single value, or takes the mode, of the single
// distribution described by params
func predict(dist proba.Dist, params proba.Params, rng *rand.Rand,
	mode bool) (Prediction, error) {
	var X *mat.Dense
	var logp []float64
	var err error

	if mode {
		X, err = dist.Mode(params)
		if err == nil {
			logp, err = dist.LogProb(params, X)
		}
	} else {
		X, logp, err = dist.SampleLogp(params, rng)
	}
	if err != nil {
		return Prediction{}, err
	}

	return Prediction{
		X:    mat.VecDenseCopyOf(X.RowView(0)),
		Logp: logp[0],
	}, nil
}
