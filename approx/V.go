package approx

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/samuelfneumann/nsteptd/initwfn"
	"github.com/samuelfneumann/nsteptd/network"
	"github.com/samuelfneumann/nsteptd/space"
)

// V implements a state value function v(s).
//
// The func of a V must have the shape of a ValueFunc and return a
// (batch, 1) prediction.
type V struct {
	*funcApprox
}

// NewV returns a new state value function over the observation space
// obs. If init is nil, weights are initialized with the Glorot uniform
// initializer. All randomness is seeded with seed.
func NewV(fn interface{}, obs space.Space, init *initwfn.InitWFn,
	seed uint64) (*V, error) {
	const op = "newV"

	kind, f, err := parseFunc(op, fn, value)
	if err != nil {
		return nil, err
	}

	base, err := newFuncApprox(op, kind, f, obs, nil, 0, 1, init, seed)
	if err != nil {
		return nil, err
	}
	return &V{base}, nil
}

// Value returns the value of a single observation s
func (v *V) Value(s *mat.VecDense) (float64, error) {
	values, err := v.Batch(rowOf(s))
	if err != nil {
		return 0, err
	}
	return values[0], nil
}

// Batch returns the values of each row of S
func (v *V) Batch(S *mat.Dense) ([]float64, error) {
	values, _, err := v.Function(v.params, v.state, S, false)
	return values, err
}

// Function evaluates the value function on states S with the given
// parameters and function state, returning the values and the next
// function state. Neither params nor state are modified, and the
// function state only changes when training is true.
func (v *V) Function(params network.Params, state network.State,
	S *mat.Dense, training bool) ([]float64, network.State, error) {
	outputs, next, err := v.function(params, state, S, nil, training)
	if err != nil {
		return nil, nil, err
	}
	return mat.Col(nil, 0, outputs[0]), next, nil
}

// Copy returns a copy of the value function with the same func and
// copies of its parameters and function state
func (v *V) Copy() *V {
	return &V{v.copy()}
}

// SoftUpdate sets the parameters and function state of v to the
// Polyak averages (1-tau)*v + tau*src
func (v *V) SoftUpdate(src *V, tau float64) error {
	return v.softUpdate(src.funcApprox, tau)
}

// Trainer returns a Trainer which fits v to targets with batches of the
// given size
func (v *V) Trainer(batch int, loss LossFunc, solver Solver) (*Trainer,
	error) {
	if batch < 1 {
		return nil, fmt.Errorf("trainer: batch size must be positive "+
			"\n\twant(>0)\n\thave(%v)", batch)
	}
	return newTrainer(v, batch, loss, solver)
}

// rowOf returns a vector as a single-row matrix
func rowOf(x mat.Vector) *mat.Dense {
	out := mat.NewDense(1, x.Len(), nil)
	for i := 0; i < x.Len(); i++ {
		out.Set(0, i, x.AtVec(i))
	}
	return out
}
