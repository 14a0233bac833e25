package network

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"

	"github.com/samuelfneumann/nsteptd/utils/op"
)

const (
	// DefaultDecay is the default decay rate of the moving averages
	// tracked by BatchNorm
	DefaultDecay = 0.99

	// DefaultEpsilon is the default value added to the variance in
	// BatchNorm to avoid division by zero
	DefaultEpsilon = 1e-5
)

// batchNorm implements batch normalization over the batch dimension.
//
// During training, inputs are normalized with the statistics of the
// batch, and exponential moving averages of these statistics are kept
// in the function State as <name>/~/mean_ema and <name>/~/var_ema.
// During inference, the moving averages are used instead.
type batchNorm struct {
	name     string
	features int
	decay    float64

	// Batch statistics, read from the graph during training
	mean     G.Value
	variance G.Value

	// Moving average inputs, set before running during inference
	meanIn *G.Node
	varIn  *G.Node
}

// BatchNorm adds a batch normalization layer with a learned scale and
// offset to the graph. The input x must be a (batch, features) matrix.
func (m *Module) BatchNorm(x *G.Node, decay, eps float64) (*G.Node, error) {
	if !x.IsMatrix() {
		return nil, fmt.Errorf("batchNorm: input must be a matrix, got "+
			"shape %v", x.Shape())
	}
	if decay < 0 || decay > 1 {
		return nil, fmt.Errorf("batchNorm: decay must be in [0, 1] "+
			"\n\twant(0 <= decay <= 1)\n\thave(%v)", decay)
	}

	name := m.name("batch_norm")
	features := x.Shape()[1]
	norm := &batchNorm{name: name, features: features, decay: decay}

	meanEMA, err := m.stateValue(norm.meanKey(), features, 0)
	if err != nil {
		return nil, fmt.Errorf("batchNorm: %v", err)
	}
	varEMA, err := m.stateValue(norm.varKey(), features, 1)
	if err != nil {
		return nil, fmt.Errorf("batchNorm: %v", err)
	}

	var centered, variance *G.Node
	if m.training {
		batch := x.Shape()[0]
		avgBacking := make([]float64, batch)
		for i := range avgBacking {
			avgBacking[i] = 1.0 / float64(batch)
		}
		avg := G.NewMatrix(m.g, tensor.Float64, G.WithShape(1, batch),
			G.WithName(name+"/batch_avg"),
			G.WithValue(tensor.New(tensor.WithShape(1, batch),
				tensor.WithBacking(avgBacking))))

		// Batch statistics are (1, features) matrices
		mean, err := G.Mul(avg, x)
		if err != nil {
			return nil, fmt.Errorf("batchNorm: could not compute batch "+
				"mean: %v", err)
		}
		centered = G.Must(G.BroadcastSub(x, mean, nil, []byte{0}))
		variance = G.Must(G.Mul(avg, G.Must(G.Square(centered))))

		G.Read(mean, &norm.mean)
		G.Read(variance, &norm.variance)
	} else {
		norm.meanIn = G.NewMatrix(m.g, tensor.Float64,
			G.WithShape(1, features), G.WithName(norm.meanKey()),
			G.WithValue(ToTensor(rowMatrix(meanEMA))))
		norm.varIn = G.NewMatrix(m.g, tensor.Float64,
			G.WithShape(1, features), G.WithName(norm.varKey()),
			G.WithValue(ToTensor(rowMatrix(varEMA))))

		centered = G.Must(G.BroadcastSub(x, norm.meanIn, nil, []byte{0}))
		variance = norm.varIn
	}

	epsNode := op.Scalar(m.g, x, eps, name+"/eps")
	std := G.Must(G.Sqrt(G.Must(G.Add(variance, epsNode))))
	normed := G.Must(G.BroadcastHadamardDiv(centered, std, nil, []byte{0}))

	scale, err := m.Param(name+"/scale", 1, features, G.Ones())
	if err != nil {
		return nil, fmt.Errorf("batchNorm: %v", err)
	}
	offset, err := m.Param(name+"/offset", 1, features, G.Zeroes())
	if err != nil {
		return nil, fmt.Errorf("batchNorm: %v", err)
	}

	out := G.Must(G.BroadcastHadamardProd(normed, scale, nil, []byte{0}))
	out = G.Must(G.BroadcastAdd(out, offset, nil, []byte{0}))

	m.norms = append(m.norms, norm)
	return out, nil
}

func (b *batchNorm) meanKey() string {
	return b.name + "/~/mean_ema"
}

func (b *batchNorm) varKey() string {
	return b.name + "/~/var_ema"
}

// load sets the moving average inputs of the layer during inference
func (b *batchNorm) load(state State) error {
	if b.meanIn == nil {
		return nil
	}

	for _, in := range []struct {
		key  string
		node *G.Node
	}{{b.meanKey(), b.meanIn}, {b.varKey(), b.varIn}} {
		value, ok := state[in.key]
		if !ok {
			return fmt.Errorf("missing state %v", in.key)
		}
		if r, c := value.Dims(); r != 1 || c != b.features {
			return fmt.Errorf("incorrect shape for state %v \n\twant(1, %v)"+
				"\n\thave(%v, %v)", in.key, b.features, r, c)
		}
		if err := G.Let(in.node, ToTensor(value)); err != nil {
			return fmt.Errorf("could not set state %v: %v", in.key, err)
		}
	}
	return nil
}

// update writes the moving averages after a training run into next,
// given the moving averages prev from before the run
func (b *batchNorm) update(prev, next State) error {
	for _, stat := range []struct {
		key   string
		value G.Value
	}{{b.meanKey(), b.mean}, {b.varKey(), b.variance}} {
		batchStat, err := FromValue(stat.value)
		if err != nil {
			return fmt.Errorf("batch statistic %v: %v", stat.key, err)
		}
		old, ok := prev[stat.key]
		if !ok {
			return fmt.Errorf("missing state %v", stat.key)
		}

		ema := mat.DenseCopyOf(old)
		ema.Scale(b.decay, ema)
		batchStat.Scale(1-b.decay, batchStat)
		ema.Add(ema, batchStat)
		next[stat.key] = ema
	}
	return nil
}

// rowMatrix returns data as a single-row matrix
func rowMatrix(data []float64) *mat.Dense {
	return mat.NewDense(1, len(data), append([]float64(nil), data...))
}
