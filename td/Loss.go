package td

import (
	"fmt"

	G "gorgonia.org/gorgonia"

	"github.com/samuelfneumann/nsteptd/approx"
	"github.com/samuelfneumann/nsteptd/utils/op"
)

// Huber returns the Huber loss with threshold delta, which is quadratic
// for errors smaller than delta and linear otherwise. The loss of each
// sample is weighted by w before averaging.
func Huber(delta float64) approx.LossFunc {
	return func(yTrue, yPred, w *G.Node) (*G.Node, error) {
		if delta <= 0 {
			return nil, fmt.Errorf("huber: delta must be positive "+
				"\n\twant(>0)\n\thave(%v)", delta)
		}

		diff, err := G.Sub(yPred, yTrue)
		if err != nil {
			return nil, fmt.Errorf("huber: %v", err)
		}

		// With q = clip(diff, -δ, δ), the Huber loss is q * (diff - q/2)
		q, err := op.Clip(diff, -delta, delta)
		if err != nil {
			return nil, fmt.Errorf("huber: could not clip: %v", err)
		}
		half := op.Scalar(diff.Graph(), diff, 0.5, "huber_half")
		halfQ, err := G.Mul(half, q)
		if err != nil {
			return nil, fmt.Errorf("huber: %v", err)
		}
		linear, err := G.Sub(diff, halfQ)
		if err != nil {
			return nil, fmt.Errorf("huber: %v", err)
		}
		loss, err := G.HadamardProd(q, linear)
		if err != nil {
			return nil, fmt.Errorf("huber: %v", err)
		}

		return weightedMean(loss, w)
	}
}

// MSE returns the mean squared error loss. The loss of each sample is
// weighted by w before averaging.
func MSE() approx.LossFunc {
	return func(yTrue, yPred, w *G.Node) (*G.Node, error) {
		diff, err := G.Sub(yPred, yTrue)
		if err != nil {
			return nil, fmt.Errorf("mse: %v", err)
		}
		loss, err := G.Square(diff)
		if err != nil {
			return nil, fmt.Errorf("mse: %v", err)
		}

		return weightedMean(loss, w)
	}
}

func weightedMean(loss, w *G.Node) (*G.Node, error) {
	weighted, err := G.HadamardProd(w, loss)
	if err != nil {
		return nil, fmt.Errorf("could not weight loss: %v", err)
	}
	return G.Mean(weighted)
}
