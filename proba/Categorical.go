package proba

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/samuelfneumann/nsteptd/space"
	"github.com/samuelfneumann/nsteptd/utils/matutils"
)

// Categorical implements categorical distributions over a Discrete
// space, parameterized by logits
type Categorical struct {
	space space.DiscreteSpace
}

// NewCategorical returns a new categorical distribution family over s
func NewCategorical(s space.DiscreteSpace) *Categorical {
	return &Categorical{space: s}
}

// Family implements the Dist interface
func (c *Categorical) Family() Family {
	return DiscreteLogits
}

// Space implements the Dist interface
func (c *Categorical) Space() space.Space {
	return c.space
}

// Sample implements the Dist interface
func (c *Categorical) Sample(p Params, rng *rand.Rand) (*mat.Dense, error) {
	X, _, err := c.SampleLogp(p, rng)
	return X, err
}

// SampleLogp implements the Dist interface
func (c *Categorical) SampleLogp(p Params, rng *rand.Rand) (*mat.Dense,
	[]float64, error) {
	if err := checkParams(p, DiscreteLogits, c.space.N); err != nil {
		return nil, nil, fmt.Errorf("sampleLogp: %v", err)
	}

	rows := p.Len()
	X := mat.NewDense(rows, 1, nil)
	logp := make([]float64, rows)
	for i := 0; i < rows; i++ {
		logProbs := logSoftmax(p.Logits.RawRowView(i))
		probs := make([]float64, len(logProbs))
		for j := range probs {
			probs[j] = math.Exp(logProbs[j])
		}

		category := int(distuv.NewCategorical(probs, rng).Rand())
		X.Set(i, 0, float64(category))
		logp[i] = logProbs[category]
	}
	return X, logp, nil
}

// Mode implements the Dist interface
func (c *Categorical) Mode(p Params) (*mat.Dense, error) {
	if err := checkParams(p, DiscreteLogits, c.space.N); err != nil {
		return nil, fmt.Errorf("mode: %v", err)
	}

	rows := p.Len()
	X := mat.NewDense(rows, 1, nil)
	for i := 0; i < rows; i++ {
		X.Set(i, 0, float64(matutils.MaxVec(p.Logits.RowView(i))))
	}
	return X, nil
}

// LogProb implements the Dist interface
func (c *Categorical) LogProb(p Params, X *mat.Dense) ([]float64, error) {
	if err := checkParams(p, DiscreteLogits, c.space.N); err != nil {
		return nil, fmt.Errorf("logProb: %v", err)
	}
	rows := p.Len()
	if err := checkValues(X, rows, 1); err != nil {
		return nil, fmt.Errorf("logProb: %v", err)
	}

	logp := make([]float64, rows)
	for i := 0; i < rows; i++ {
		if !c.space.Contains(X.RowView(i)) {
			return nil, fmt.Errorf("logProb: value %v not in space %v",
				X.At(i, 0), c.space)
		}
		logProbs := logSoftmax(p.Logits.RawRowView(i))
		logp[i] = logProbs[int(X.At(i, 0))]
	}
	return logp, nil
}

// Entropy implements the Dist interface
func (c *Categorical) Entropy(p Params) ([]float64, error) {
	if err := checkParams(p, DiscreteLogits, c.space.N); err != nil {
		return nil, fmt.Errorf("entropy: %v", err)
	}

	rows := p.Len()
	entropy := make([]float64, rows)
	for i := 0; i < rows; i++ {
		for _, logProb := range logSoftmax(p.Logits.RawRowView(i)) {
			entropy[i] -= math.Exp(logProb) * logProb
		}
	}
	return entropy, nil
}

// logSoftmax returns the normalized log-probabilities of logits
func logSoftmax(logits []float64) []float64 {
	lse := floats.LogSumExp(logits)
	out := append([]float64(nil), logits...)
	floats.AddConst(-lse, out)
	return out
}
