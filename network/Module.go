// Package network implements the building blocks of neural network
// function approximators as Gorgonia computational graphs.
//
// A function approximator is written as a Go function which receives a
// *Module and input nodes and builds its forward pass using the layers
// of the Module. The Module keeps track of the trainable parameters and
// the non-trainable state that the layers use, so that the same
// function can be built into many graphs (for different batch sizes or
// for training and inference) which all share the same Params and
// State records.
package network

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// Module tracks the parameters and state used while building a
// function's computational graph.
//
// A Module is either initializing, in which case parameters and state
// that are not given are created with the Module's weight initializer,
// or applying, in which case every parameter and state the function
// uses must already exist.
type Module struct {
	g        *G.ExprGraph
	batch    int
	training bool
	init     G.InitWFn

	params Params
	state  State

	nodes  map[string]*G.Node
	order  []string
	norms  []*batchNorm
	counts map[string]int
}

// NewModule returns a new Module which builds into the graph g for
// inputs of batch size batch.
//
// If init is nil, the Module applies the given params and state.
// Otherwise, the Module initializes any parameters and state which are
// not given, using init for weights.
func NewModule(g *G.ExprGraph, batch int, training bool, params Params,
	state State, init G.InitWFn) *Module {
	if params == nil {
		params = Params{}
	}
	if state == nil {
		state = State{}
	}

	return &Module{
		g:        g,
		batch:    batch,
		training: training,
		init:     init,
		params:   params.Copy(),
		state:    state.Copy(),
		nodes:    make(map[string]*G.Node),
		counts:   make(map[string]int),
	}
}

// Graph returns the graph that the Module builds into
func (m *Module) Graph() *G.ExprGraph {
	return m.g
}

// BatchSize returns the batch size of inputs to the function
func (m *Module) BatchSize() int {
	return m.batch
}

// Training returns whether the graph is built for training. Some
// layers, such as BatchNorm, behave differently during training.
func (m *Module) Training() bool {
	return m.training
}

// Initializing returns whether the Module creates missing parameters
func (m *Module) Initializing() bool {
	return m.init != nil
}

// name returns a unique name for a new layer of the given kind. The
// first layer of a kind is named kind, and subsequent layers are named
// kind_1, kind_2, and so on.
func (m *Module) name(kind string) string {
	count := m.counts[kind]
	m.counts[kind]++
	if count == 0 {
		return kind
	}
	return fmt.Sprintf("%v_%v", kind, count)
}

// Param returns a trainable parameter node with the given name and
// shape. If the Module is initializing and the parameter does not
// exist, it is created using init, or the Module's initializer if init
// is nil.
func (m *Module) Param(name string, rows, cols int,
	init G.InitWFn) (*G.Node, error) {
	if _, ok := m.nodes[name]; ok {
		return nil, fmt.Errorf("param: parameter %v used twice", name)
	}

	value, ok := m.params[name]
	if ok {
		r, c := value.Dims()
		if r != rows || c != cols {
			return nil, fmt.Errorf("param: incorrect shape for parameter "+
				"%v \n\twant(%v, %v)\n\thave(%v, %v)", name, rows, cols, r, c)
		}
	} else if m.Initializing() {
		if init == nil {
			init = m.init
		}
		backing := init(tensor.Float64, rows, cols).([]float64)
		value = mat.NewDense(rows, cols, backing)
		m.params[name] = value
	} else {
		return nil, fmt.Errorf("param: unknown parameter %v", name)
	}

	node := G.NewMatrix(
		m.g,
		tensor.Float64,
		G.WithShape(rows, cols),
		G.WithName(name),
		G.WithValue(ToTensor(value)),
	)
	m.nodes[name] = node
	m.order = append(m.order, name)

	return node, nil
}

// stateValue returns the value of the state with the given name. If
// the Module is initializing and the state does not exist, it is
// created with value init.
func (m *Module) stateValue(name string, cols int,
	init float64) ([]float64, error) {
	value, ok := m.state[name]
	if ok {
		r, c := value.Dims()
		if r != 1 || c != cols {
			return nil, fmt.Errorf("state: incorrect shape for state %v "+
				"\n\twant(1, %v)\n\thave(%v, %v)", name, cols, r, c)
		}
		return append([]float64(nil), value.RawRowView(0)...), nil
	} else if !m.Initializing() {
		return nil, fmt.Errorf("state: unknown state %v", name)
	}

	data := make([]float64, cols)
	for i := range data {
		data[i] = init
	}
	m.state[name] = rowMatrix(data)
	return data, nil
}

// Learnables returns the trainable parameter nodes in the order they
// were created
func (m *Module) Learnables() G.Nodes {
	learnables := make(G.Nodes, len(m.order))
	for i, name := range m.order {
		learnables[i] = m.nodes[name]
	}
	return learnables
}

// Model returns the learnable nodes with their gradients.
func (m *Module) Model() []G.ValueGrad {
	return G.NodesToValueGrads(m.Learnables())
}

// Params returns the parameters that the graph was built with
func (m *Module) Params() Params {
	used := make(Params, len(m.order))
	for _, name := range m.order {
		used[name] = m.params[name]
	}
	return used.Copy()
}

// State returns the state that the graph was built with
func (m *Module) State() State {
	return m.state.Copy()
}

// Load sets the values of all parameter and state nodes of the graph
// before running it. Neither params nor state are modified.
func (m *Module) Load(params Params, state State) error {
	for _, name := range m.order {
		value, ok := params[name]
		if !ok {
			return fmt.Errorf("load: missing parameter %v", name)
		}
		node := m.nodes[name]
		r, c := value.Dims()
		if shape := node.Shape(); shape[0] != r || shape[1] != c {
			return fmt.Errorf("load: incorrect shape for parameter %v "+
				"\n\twant(%v)\n\thave(%v, %v)", name, shape, r, c)
		}
		if err := G.Let(node, ToTensor(value)); err != nil {
			return fmt.Errorf("load: could not set parameter %v: %v", name,
				err)
		}
	}

	for _, norm := range m.norms {
		if err := norm.load(state); err != nil {
			return fmt.Errorf("load: %v", err)
		}
	}
	return nil
}

// ParamValues returns the current values of the parameter nodes, which
// differ from the loaded parameters after a solver step
func (m *Module) ParamValues() (Params, error) {
	params := make(Params, len(m.order))
	for _, name := range m.order {
		value, err := FromValue(m.nodes[name].Value())
		if err != nil {
			return nil, fmt.Errorf("paramValues: parameter %v: %v", name, err)
		}
		params[name] = value
	}
	return params, nil
}

// NextState returns the state after running the graph, given the state
// before running it. In inference mode, the state is unchanged.
func (m *Module) NextState(prev State) (State, error) {
	next := prev.Copy()
	if next == nil {
		next = State{}
	}
	if !m.training {
		return next, nil
	}

	for _, norm := range m.norms {
		if err := norm.update(prev, next); err != nil {
			return nil, fmt.Errorf("nextState: %v", err)
		}
	}
	return next, nil
}
