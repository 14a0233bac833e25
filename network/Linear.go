package network

import (
	"fmt"

	G "gorgonia.org/gorgonia"
)

// Linear adds a fully connected layer with outputs units to the graph.
// The layer's weights are named <layer>/w and have shape
// (features, outputs). If bias is true, a bias named <layer>/b of shape
// (1, outputs) is broadcast along the batch dimension. Biases are
// initialized to zero.
//
// A nil act is treated as the identity.
func (m *Module) Linear(x *G.Node, outputs int, bias bool,
	act *Activation) (*G.Node, error) {
	if !x.IsMatrix() {
		return nil, fmt.Errorf("linear: input must be a matrix, got shape %v",
			x.Shape())
	}
	if outputs <= 0 {
		return nil, fmt.Errorf("linear: outputs must be positive "+
			"\n\twant(> 0)\n\thave(%v)", outputs)
	}

	name := m.name("linear")
	features := x.Shape()[1]

	weights, err := m.Param(name+"/w", features, outputs, nil)
	if err != nil {
		return nil, fmt.Errorf("linear: %v", err)
	}
	x, err = G.Mul(x, weights)
	if err != nil {
		return nil, fmt.Errorf("linear: %v", err)
	}

	if bias {
		b, err := m.Param(name+"/b", 1, outputs, G.Zeroes())
		if err != nil {
			return nil, fmt.Errorf("linear: %v", err)
		}

		// Broadcast the bias weights to all samples along the batch
		// dimension
		x, err = G.BroadcastAdd(x, b, nil, []byte{0})
		if err != nil {
			return nil, fmt.Errorf("linear: %v", err)
		}
	}

	return act.fwd(x)
}
