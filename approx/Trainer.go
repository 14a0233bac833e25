package approx

import (
	"fmt"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"

	"github.com/samuelfneumann/nsteptd/network"
)

// LossFunc adds a scalar loss between targets yTrue and predictions
// yPred, weighted by importance weights w, to the graph. All inputs are
// (batch, 1) matrices.
type LossFunc func(yTrue, yPred, w *G.Node) (*G.Node, error)

// Solver steps the learnable nodes of a graph along their gradients
type Solver interface {
	Step([]G.ValueGrad) error
}

// Trainer fits a value function to regression targets by gradient
// descent. Each step runs the value function in training mode and
// replaces both its parameters and its function state.
type Trainer struct {
	v      *V
	batch  int
	fwd    *forward
	solver Solver

	target  *G.Node
	weights *G.Node
	loss    G.Value
}

func newTrainer(v *V, batch int, loss LossFunc, solver Solver) (*Trainer,
	error) {
	fwd, err := v.build(batch, true, nil)
	if err != nil {
		return nil, err
	}
	g := fwd.module.Graph()

	target := G.NewMatrix(g, tensor.Float64, G.WithShape(batch, 1),
		G.WithName("target"), G.WithInit(G.Zeroes()))
	weights := G.NewMatrix(g, tensor.Float64, G.WithShape(batch, 1),
		G.WithName("W"), G.WithInit(G.Ones()))

	cost, err := loss(target, fwd.outputs[0], weights)
	if err != nil {
		return nil, errors.Wrap(err, "trainer: could not compute loss")
	}
	if !cost.IsScalar() {
		return nil, fmt.Errorf("trainer: loss must be a scalar, got shape %v",
			cost.Shape())
	}

	t := &Trainer{
		v:       v,
		batch:   batch,
		fwd:     fwd,
		solver:  solver,
		target:  target,
		weights: weights,
	}
	G.Read(cost, &t.loss)

	learnables := fwd.module.Learnables()
	if _, err := G.Grad(cost, learnables...); err != nil {
		return nil, errors.Wrap(err, "trainer: could not compute gradient")
	}
	fwd.compile(G.BindDualValues(learnables...))

	return t, nil
}

// BatchSize returns the batch size of the Trainer
func (t *Trainer) BatchSize() int {
	return t.batch
}

// Step performs one gradient step on the loss between the value
// function's predictions at S and target, weighted by w, and returns
// the loss before the step.
func (t *Trainer) Step(S *mat.Dense, target, w []float64) (float64, error) {
	if rows, _ := S.Dims(); rows != t.batch {
		return 0, fmt.Errorf("step: incorrect batch size \n\twant(%v)"+
			"\n\thave(%v)", t.batch, rows)
	}
	if len(target) != t.batch || len(w) != t.batch {
		return 0, fmt.Errorf("step: incorrect number of targets or weights "+
			"\n\twant(%v)\n\thave(%v, %v)", t.batch, len(target), len(w))
	}

	if err := G.Let(t.target, column(target)); err != nil {
		return 0, fmt.Errorf("step: could not set target: %v", err)
	}
	if err := G.Let(t.weights, column(w)); err != nil {
		return 0, fmt.Errorf("step: could not set weights: %v", err)
	}

	_, next, err := t.v.run(t.fwd, t.v.params, t.v.state, S, nil)
	if err != nil {
		return 0, err
	}
	if err := t.solver.Step(t.fwd.module.Model()); err != nil {
		return 0, fmt.Errorf("step: could not step solver: %v", err)
	}

	params, err := t.fwd.module.ParamValues()
	if err != nil {
		return 0, fmt.Errorf("step: %v", err)
	}
	t.v.params = params
	t.v.state = next

	return t.loss.Data().(float64), nil
}

// column returns data as a (len(data), 1) tensor
func column(data []float64) *tensor.Dense {
	return network.ToTensor(mat.NewDense(len(data), 1,
		append([]float64(nil), data...)))
}
