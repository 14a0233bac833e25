package proba

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/samuelfneumann/nsteptd/space"
)

// Normal implements diagonal Gaussian distributions over a Box space,
// parameterized by a mean and a log-variance.
//
// Samples and modes are clipped to the bounds of the space. The
// log-probability of a sample is that of the value before clipping.
type Normal struct {
	space space.BoxSpace
}

// NewNormal returns a new diagonal Gaussian distribution family over s
func NewNormal(s space.BoxSpace) *Normal {
	return &Normal{space: s}
}

// Family implements the Dist interface
func (n *Normal) Family() Family {
	return GaussianParams
}

// Space implements the Dist interface
func (n *Normal) Space() space.Space {
	return n.space
}

// Sample implements the Dist interface
func (n *Normal) Sample(p Params, rng *rand.Rand) (*mat.Dense, error) {
	X, _, err := n.SampleLogp(p, rng)
	return X, err
}

// SampleLogp implements the Dist interface
func (n *Normal) SampleLogp(p Params, rng *rand.Rand) (*mat.Dense,
	[]float64, error) {
	dim := n.space.FlatDim()
	if err := checkParams(p, GaussianParams, dim); err != nil {
		return nil, nil, fmt.Errorf("sampleLogp: %v", err)
	}

	rows := p.Len()
	X := mat.NewDense(rows, dim, nil)
	logp := make([]float64, rows)
	for i := 0; i < rows; i++ {
		sample := mat.NewVecDense(dim, nil)
		for j := 0; j < dim; j++ {
			dist := n.dist(p, i, j)
			dist.Src = rng
			x := dist.Rand()

			logp[i] += dist.LogProb(x)
			sample.SetVec(j, x)
		}
		n.space.Clip(sample)
		X.SetRow(i, sample.RawVector().Data)
	}
	return X, logp, nil
}

// Mode implements the Dist interface
func (n *Normal) Mode(p Params) (*mat.Dense, error) {
	dim := n.space.FlatDim()
	if err := checkParams(p, GaussianParams, dim); err != nil {
		return nil, fmt.Errorf("mode: %v", err)
	}

	rows := p.Len()
	X := mat.NewDense(rows, dim, nil)
	for i := 0; i < rows; i++ {
		mode := mat.VecDenseCopyOf(p.Mu.RowView(i))
		n.space.Clip(mode)
		X.SetRow(i, mode.RawVector().Data)
	}
	return X, nil
}

// LogProb implements the Dist interface
func (n *Normal) LogProb(p Params, X *mat.Dense) ([]float64, error) {
	dim := n.space.FlatDim()
	if err := checkParams(p, GaussianParams, dim); err != nil {
		return nil, fmt.Errorf("logProb: %v", err)
	}
	rows := p.Len()
	if err := checkValues(X, rows, dim); err != nil {
		return nil, fmt.Errorf("logProb: %v", err)
	}

	logp := make([]float64, rows)
	for i := 0; i < rows; i++ {
		for j := 0; j < dim; j++ {
			logp[i] += n.dist(p, i, j).LogProb(X.At(i, j))
		}
	}
	return logp, nil
}

// Entropy implements the Dist interface
func (n *Normal) Entropy(p Params) ([]float64, error) {
	dim := n.space.FlatDim()
	if err := checkParams(p, GaussianParams, dim); err != nil {
		return nil, fmt.Errorf("entropy: %v", err)
	}

	rows := p.Len()
	entropy := make([]float64, rows)
	for i := 0; i < rows; i++ {
		for j := 0; j < dim; j++ {
			entropy[i] += n.dist(p, i, j).Entropy()
		}
	}
	return entropy, nil
}

// dist returns the univariate Gaussian of dimension j of the
// distribution at row i
func (n *Normal) dist(p Params, i, j int) distuv.Normal {
	return distuv.Normal{
		Mu:    p.Mu.At(i, j),
		Sigma: math.Exp(0.5 * p.LogVar.At(i, j)),
	}
}
