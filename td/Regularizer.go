package td

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/samuelfneumann/nsteptd/approx"
)

// PolicyRegularizer computes a penalty from a policy's distributions at
// states S. The negated penalty is added to TD targets, so that
// regularization only changes the trainable parameters of a value
// function and never its function state.
type PolicyRegularizer interface {
	Penalty(S *mat.Dense) ([]float64, error)
}

// EntropyRegularizer is a PolicyRegularizer which rewards entropy of a
// policy with penalty -β H(π(·|s))
type EntropyRegularizer struct {
	Policy *approx.Policy
	Beta   float64
}

// NewEntropyRegularizer returns a new EntropyRegularizer
func NewEntropyRegularizer(pi *approx.Policy,
	beta float64) (*EntropyRegularizer, error) {
	if pi == nil {
		return nil, fmt.Errorf("newEntropyRegularizer: policy must be given")
	}
	if beta < 0 {
		return nil, fmt.Errorf("newEntropyRegularizer: beta must be "+
			"non-negative \n\twant(>=0)\n\thave(%v)", beta)
	}
	return &EntropyRegularizer{Policy: pi, Beta: beta}, nil
}

// Penalty implements the PolicyRegularizer interface
func (e *EntropyRegularizer) Penalty(S *mat.Dense) ([]float64, error) {
	entropy, err := e.Policy.Entropy(S)
	if err != nil {
		return nil, fmt.Errorf("penalty: %v", err)
	}
	for i := range entropy {
		entropy[i] *= -e.Beta
	}
	return entropy, nil
}
