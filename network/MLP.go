package network

import (
	"fmt"

	G "gorgonia.org/gorgonia"
)

// MLP adds a multi-layered perceptron to the graph with
// len(hiddenSizes) + 1 layers. For index i, hiddenSizes[i] is the
// number of units in hidden layer i, biases[i] is whether that layer
// has a bias unit, and activations[i] is its activation function. A
// final linear layer with a bias and no activation maps to outputs
// units.
//
// If multiple inputs are given, they are first concatenated along the
// feature (column) dimension.
func (m *Module) MLP(inputs []*G.Node, outputs int, hiddenSizes []int,
	biases []bool, activations []*Activation) (*G.Node, error) {
	// Ensure we have one activation per layer
	if len(hiddenSizes) != len(activations) {
		msg := "mlp: invalid number of activations\n\twant(%d)\n\thave(%d)"
		return nil, fmt.Errorf(msg, len(hiddenSizes), len(activations))
	}

	// Ensure one bias bool per layer
	if len(hiddenSizes) != len(biases) {
		msg := "mlp: invalid number of biases\n\twant(%d)\n\thave(%d)"
		return nil, fmt.Errorf(msg, len(hiddenSizes), len(biases))
	}

	x, err := Concat(inputs...)
	if err != nil {
		return nil, fmt.Errorf("mlp: %v", err)
	}

	for i := range hiddenSizes {
		x, err = m.Linear(x, hiddenSizes[i], biases[i], activations[i])
		if err != nil {
			return nil, fmt.Errorf("mlp: hidden layer %d: %v", i, err)
		}
	}
	return m.Linear(x, outputs, true, Identity())
}

// Concat concatenates matrix inputs along the feature (column)
// dimension. A single input is returned as is.
func Concat(inputs ...*G.Node) (*G.Node, error) {
	switch len(inputs) {
	case 0:
		return nil, fmt.Errorf("concat: no inputs given")
	case 1:
		return inputs[0], nil
	}

	for _, input := range inputs {
		if !input.IsMatrix() {
			return nil, fmt.Errorf("concat: input %v must be a matrix, got "+
				"shape %v", input.Name(), input.Shape())
		}
		if input.Graph() != inputs[0].Graph() {
			return nil, fmt.Errorf("concat: not all inputs have the same " +
				"graph")
		}
	}
	return G.Concat(1, inputs...)
}
