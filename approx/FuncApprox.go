// Package approx implements function approximators whose forward
// passes are user-defined funcs building Gorgonia computational graphs.
//
// A func receives a *network.Module and encoded input nodes, and builds
// its outputs using the layers of the Module. Three func shapes are
// supported: value functions, which return a single node; type-1 funcs,
// which take a state and an action and return the parameters of a
// single distribution; and type-2 funcs, which take a state and return
// the parameters of one distribution per discrete action.
//
// The trainable parameters and the non-trainable function state of a
// func are kept separately by each function approximator as
// network.Params and network.State records, which are only ever
// replaced wholesale.
package approx

import (
	"fmt"

	"github.com/pkg/errors"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"

	"github.com/samuelfneumann/nsteptd/initwfn"
	"github.com/samuelfneumann/nsteptd/network"
	"github.com/samuelfneumann/nsteptd/proba"
	"github.com/samuelfneumann/nsteptd/space"
)

// Type1Func builds an action-conditioned distribution from encoded
// states S and encoded actions A
type Type1Func func(m *network.Module, S, A *G.Node) (Output, error)

// Type2Func builds one distribution per discrete action from encoded
// states S. Policies also use this shape to build a single
// distribution over actions.
type Type2Func func(m *network.Module, S *G.Node) (Output, error)

// ValueFunc builds a (batch, 1) state value prediction from encoded
// states S
type ValueFunc func(m *network.Module, S *G.Node) (*G.Node, error)

const (
	type1Signature = "func(*network.Module, *G.Node, *G.Node) (Output, error)"
	type2Signature = "func(*network.Module, *G.Node) (Output, error)"
	valueSignature = "func(*network.Module, *G.Node) (*G.Node, error)"
)

type funcKind int

const (
	type1 funcKind = iota
	type2
	value
)

// parseFunc determines the shape of fn. Both the named func types and
// their underlying func types are accepted.
func parseFunc(op string, fn interface{}, allowed ...funcKind) (funcKind,
	interface{}, error) {
	var kind funcKind
	var f interface{}

	switch fn := fn.(type) {
	case Type1Func:
		kind, f = type1, fn
	case func(*network.Module, *G.Node, *G.Node) (Output, error):
		kind, f = type1, Type1Func(fn)
	case Type2Func:
		kind, f = type2, fn
	case func(*network.Module, *G.Node) (Output, error):
		kind, f = type2, Type2Func(fn)
	case ValueFunc:
		kind, f = value, fn
	case func(*network.Module, *G.Node) (*G.Node, error):
		kind, f = value, ValueFunc(fn)
	default:
		return 0, nil, signatureError(op, fn, allowed)
	}

	for _, k := range allowed {
		if k == kind {
			return kind, f, nil
		}
	}
	return 0, nil, signatureError(op, fn, allowed)
}

func signatureError(op string, fn interface{}, allowed []funcKind) error {
	want := make([]string, len(allowed))
	for i, k := range allowed {
		switch k {
		case type1:
			want[i] = type1Signature
		case type2:
			want[i] = type2Signature
		case value:
			want[i] = valueSignature
		}
	}
	return &SignatureError{Op: op, Got: fmt.Sprintf("%T", fn), Want: want}
}

// graphKey identifies a computational graph built from a func
type graphKey struct {
	batch    int
	training bool
}

// forward is a func built into a computational graph
type forward struct {
	module  *network.Module
	s, a    *G.Node
	outputs []*G.Node
	values  []G.Value
	vm      G.VM
}

// compile creates the tape machine which runs the graph
func (f *forward) compile(opts ...G.VMOpt) {
	f.vm = G.NewTapeMachine(f.module.Graph(), opts...)
}

// funcApprox implements the functionality shared by all function
// approximators: building funcs into graphs, validating their outputs,
// and evaluating them with given parameters and function state.
type funcApprox struct {
	op    string
	kind  funcKind
	type1 Type1Func
	type2 Type2Func
	value ValueFunc

	obs    space.Space
	act    space.Space
	family proba.Family
	width  int

	seed   uint64
	rng    *rand.Rand
	params network.Params
	state  network.State
	graphs map[graphKey]*forward
}

// newFuncApprox returns a new funcApprox. Outputs of the func must have
// width columns. Actions are only input to type-1 funcs.
//
// The func is built and run once on inputs sampled from the spaces in
// training mode, which initializes the parameters with init and the
// function state.
func newFuncApprox(op string, kind funcKind, fn interface{}, obs,
	act space.Space, family proba.Family, width int, init *initwfn.InitWFn,
	seed uint64) (*funcApprox, error) {
	if obs.Kind() == space.Tuple {
		return nil, errors.Wrapf(ErrUnsupportedSpace, "%v: observation "+
			"space %v", op, obs)
	}
	if kind == type1 && act.Kind() == space.Tuple {
		return nil, errors.Wrapf(ErrUnsupportedSpace, "%v: action space %v",
			op, act)
	}

	if init == nil {
		var err error
		init, err = initwfn.NewGlorotU(1.0)
		if err != nil {
			return nil, errors.Wrap(err, op)
		}
	}

	f := &funcApprox{
		op:     op,
		kind:   kind,
		obs:    obs,
		act:    act,
		family: family,
		width:  width,
		seed:   seed,
		rng:    rand.New(rand.NewSource(seed)),
		graphs: make(map[graphKey]*forward),
	}
	switch kind {
	case type1:
		f.type1 = fn.(Type1Func)
	case type2:
		f.type2 = fn.(Type2Func)
	case value:
		f.value = fn.(ValueFunc)
	}

	if err := f.initialize(init.InitWFn(seed)); err != nil {
		return nil, err
	}
	return f, nil
}

// initialize builds the func with batch size 1 in training mode,
// creating its parameters and function state, then runs it once on
// sampled inputs to initialize the function state
func (f *funcApprox) initialize(init G.InitWFn) error {
	fwd, err := f.build(1, true, init)
	if err != nil {
		return err
	}
	fwd.compile()

	params := fwd.module.Params()
	state := fwd.module.State()

	S := space.SampleBatch(f.obs, 1, f.rng)
	var A *mat.Dense
	if f.kind == type1 {
		A = space.SampleBatch(f.act, 1, f.rng)
	}
	_, next, err := f.run(fwd, params, state, S, A)
	if err != nil {
		return errors.Wrapf(err, "%v: could not initialize func", f.op)
	}

	f.params = params
	f.state = next
	f.graphs[graphKey{batch: 1, training: true}] = fwd
	return nil
}

// build builds the func into a new graph with the given batch size.
// The outputs of the func are validated, but the graph is not compiled.
func (f *funcApprox) build(batch int, training bool,
	init G.InitWFn) (*forward, error) {
	g := G.NewGraph()
	m := network.NewModule(g, batch, training, f.params, f.state, init)
	fwd := &forward{module: m}

	fwd.s = G.NewMatrix(g, tensor.Float64,
		G.WithShape(batch, f.obs.FlatDim()), G.WithName("S"),
		G.WithInit(G.Zeroes()))
	if f.kind == type1 {
		fwd.a = G.NewMatrix(g, tensor.Float64,
			G.WithShape(batch, f.act.FlatDim()), G.WithName("A"),
			G.WithInit(G.Zeroes()))
	}

	var outputs []*G.Node
	if f.kind == value {
		v, err := f.value(m, fwd.s)
		if err != nil {
			return nil, errors.Wrapf(err, "%v: could not build func", f.op)
		}
		if v == nil {
			return nil, &ShapeError{Op: f.op, Name: "value",
				Want: []int{batch, 1}}
		}
		outputs = []*G.Node{v}
	} else {
		var out Output
		var err error
		if f.kind == type1 {
			out, err = f.type1(m, fwd.s, fwd.a)
		} else {
			out, err = f.type2(m, fwd.s)
		}
		if err != nil {
			return nil, errors.Wrapf(err, "%v: could not build func", f.op)
		}

		got := []string{}
		if out != nil {
			got = out.Fields()
		}
		if expected := f.family.Fields(); !sameFields(expected, got) {
			return nil, &StructureError{Op: f.op, Expected: expected, Got: got}
		}
		outputs = out.nodes()
	}

	names := f.family.Fields()
	if f.family == proba.GaussianParams {
		names = []string{"mu", "logvar"}
	}
	for i, node := range outputs {
		name := "value"
		if f.kind != value {
			name = names[i]
		}
		shape := node.Shape()
		if len(shape) != 2 || shape[0] != batch || shape[1] != f.width {
			return nil, &ShapeError{Op: f.op, Name: name,
				Want: []int{batch, f.width}, Have: []int(shape.Clone())}
		}
	}

	fwd.outputs = outputs
	fwd.values = make([]G.Value, len(outputs))
	for i, node := range outputs {
		G.Read(node, &fwd.values[i])
	}
	return fwd, nil
}

// graph returns the compiled graph for the given batch size and mode,
// building it if needed
func (f *funcApprox) graph(batch int, training bool) (*forward, error) {
	key := graphKey{batch: batch, training: training}
	if fwd, ok := f.graphs[key]; ok {
		return fwd, nil
	}

	fwd, err := f.build(batch, training, nil)
	if err != nil {
		return nil, err
	}
	fwd.compile()
	f.graphs[key] = fwd
	return fwd, nil
}

// run runs a built graph on raw states S and actions A with the given
// parameters and function state, returning the outputs and the next
// function state. Neither params nor state are modified.
func (f *funcApprox) run(fwd *forward, params network.Params,
	state network.State, S, A *mat.Dense) ([]*mat.Dense, network.State,
	error) {
	encS, err := space.EncodeBatch(f.obs, S)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "%v: S", f.op)
	}
	if err := G.Let(fwd.s, network.ToTensor(encS)); err != nil {
		return nil, nil, errors.Wrapf(err, "%v: could not set S", f.op)
	}

	if fwd.a != nil {
		if A == nil {
			return nil, nil, &MissingInputError{Op: f.op, Input: "A",
				Reason: "for type-1 func"}
		}
		encA, err := space.EncodeBatch(f.act, A)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "%v: A", f.op)
		}
		if err := G.Let(fwd.a, network.ToTensor(encA)); err != nil {
			return nil, nil, errors.Wrapf(err, "%v: could not set A", f.op)
		}
	}

	if err := fwd.module.Load(params, state); err != nil {
		return nil, nil, errors.Wrap(err, f.op)
	}

	fwd.vm.Reset()
	if err := fwd.vm.RunAll(); err != nil {
		return nil, nil, errors.Wrapf(err, "%v: could not run func", f.op)
	}

	outputs := make([]*mat.Dense, len(fwd.values))
	for i, v := range fwd.values {
		outputs[i], err = network.FromValue(v)
		if err != nil {
			return nil, nil, errors.Wrap(err, f.op)
		}
	}

	next, err := fwd.module.NextState(state)
	if err != nil {
		return nil, nil, errors.Wrap(err, f.op)
	}
	return outputs, next, nil
}

// function evaluates the func on raw states S and actions A with the
// given parameters and function state
func (f *funcApprox) function(params network.Params, state network.State,
	S, A *mat.Dense, training bool) ([]*mat.Dense, network.State, error) {
	batch, _ := S.Dims()
	if A != nil {
		if rows, _ := A.Dims(); rows != batch {
			return nil, nil, fmt.Errorf("%v: S and A have different batch "+
				"sizes \n\twant(%v)\n\thave(%v)", f.op, batch, rows)
		}
	}

	fwd, err := f.graph(batch, training)
	if err != nil {
		return nil, nil, err
	}
	return f.run(fwd, params, state, S, A)
}

// distParams returns the outputs of a func as distribution parameters
func (f *funcApprox) distParams(outputs []*mat.Dense) proba.Params {
	if f.family == proba.DiscreteLogits {
		return proba.Params{Family: f.family, Logits: outputs[0]}
	}
	return proba.Params{Family: f.family, Mu: outputs[0], LogVar: outputs[1]}
}

// ObservationSpace returns the observation space
func (f *funcApprox) ObservationSpace() space.Space {
	return f.obs
}

// Params returns a copy of the trainable parameters
func (f *funcApprox) Params() network.Params {
	return f.params.Copy()
}

// SetParams replaces the trainable parameters. The new parameters must
// have the same names and shapes as the current ones.
func (f *funcApprox) SetParams(params network.Params) error {
	if err := sameRecord(f.params, params); err != nil {
		return fmt.Errorf("setParams: %v", err)
	}
	f.params = params.Copy()
	return nil
}

// FunctionState returns a copy of the function state
func (f *funcApprox) FunctionState() network.State {
	return f.state.Copy()
}

// SetFunctionState replaces the function state. The new state must
// have the same names and shapes as the current one.
func (f *funcApprox) SetFunctionState(state network.State) error {
	if err := sameRecord(f.state, state); err != nil {
		return fmt.Errorf("setFunctionState: %v", err)
	}
	f.state = state.Copy()
	return nil
}

// copy returns a copy of the funcApprox with a new graph cache and a
// random number generator seeded from the original
func (f *funcApprox) copy() *funcApprox {
	seed := f.rng.Uint64()
	return &funcApprox{
		op:     f.op,
		kind:   f.kind,
		type1:  f.type1,
		type2:  f.type2,
		value:  f.value,
		obs:    f.obs,
		act:    f.act,
		family: f.family,
		width:  f.width,
		seed:   seed,
		rng:    rand.New(rand.NewSource(seed)),
		params: f.params.Copy(),
		state:  f.state.Copy(),
		graphs: make(map[graphKey]*forward),
	}
}

// softUpdate Polyak-averages the parameters and function state of src
// into f
func (f *funcApprox) softUpdate(src *funcApprox, tau float64) error {
	if tau < 0 || tau > 1 {
		return fmt.Errorf("softUpdate: tau must be in [0, 1] "+
			"\n\twant(0 <= tau <= 1)\n\thave(%v)", tau)
	}

	params, err := f.params.Polyak(src.params, tau)
	if err != nil {
		return fmt.Errorf("softUpdate: %v", err)
	}
	state, err := network.Params(f.state).Polyak(network.Params(src.state),
		tau)
	if err != nil {
		return fmt.Errorf("softUpdate: %v", err)
	}

	f.params = params
	f.state = network.State(state)
	return nil
}

// sameFields returns whether two sorted field lists are equal
func sameFields(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// sameRecord returns an error if the records have different names or
// shapes
func sameRecord(current, next map[string]*mat.Dense) error {
	if len(current) != len(next) {
		return fmt.Errorf("incorrect number of entries \n\twant(%v)"+
			"\n\thave(%v)", len(current), len(next))
	}
	for name, value := range current {
		newValue, ok := next[name]
		if !ok {
			return fmt.Errorf("missing entry %v", name)
		}
		r, c := value.Dims()
		nr, nc := newValue.Dims()
		if r != nr || c != nc {
			return fmt.Errorf("incorrect shape for %v \n\twant(%v, %v)"+
				"\n\thave(%v, %v)", name, r, c, nr, nc)
		}
	}
	return nil
}
