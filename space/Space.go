// Package space implements descriptors of observation and action spaces.
//
// A Space describes the set of values that an observation or action may
// take on. Spaces are immutable once constructed and are used to validate
// function approximators, to encode inputs to neural networks, and to
// sample example values.
package space

import (
	"fmt"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
)

// Kind determines the kind of a Space
type Kind string

const (
	Discrete Kind = "Discrete"
	Box      Kind = "Box"
	Tuple    Kind = "Tuple"
)

// Space describes the layout of observations or actions
type Space interface {
	fmt.Stringer

	// Kind returns the kind of space
	Kind() Kind

	// Dim returns the length of a raw value vector in the space. A
	// value of a discrete space is a single category index.
	Dim() int

	// FlatDim returns the length of the encoded value vector which is
	// fed to neural networks. Discrete values are encoded one-hot.
	FlatDim() int

	// Sample samples a value from the space
	Sample(rng *rand.Rand) *mat.VecDense

	// Contains returns whether x is a value of the space
	Contains(x mat.Vector) bool

	// Encode returns the network encoding of x
	Encode(x mat.Vector) ([]float64, error)
}

// IsDiscrete returns whether s is a Discrete space
func IsDiscrete(s Space) bool {
	return s.Kind() == Discrete
}

// EncodeBatch encodes each row of X, returning a matrix with
// s.FlatDim() columns.
func EncodeBatch(s Space, X *mat.Dense) (*mat.Dense, error) {
	rows, cols := X.Dims()
	if cols != s.Dim() {
		return nil, fmt.Errorf("encodeBatch: incorrect number of columns "+
			"for space %v \n\twant(%v)\n\thave(%v)", s, s.Dim(), cols)
	}

	out := mat.NewDense(rows, s.FlatDim(), nil)
	for i := 0; i < rows; i++ {
		enc, err := s.Encode(X.RowView(i))
		if err != nil {
			return nil, fmt.Errorf("encodeBatch: row %v: %v", i, err)
		}
		out.SetRow(i, enc)
	}
	return out, nil
}

// SampleBatch samples n values from s and stacks them as the rows of a
// matrix.
func SampleBatch(s Space, n int, rng *rand.Rand) *mat.Dense {
	out := mat.NewDense(n, s.Dim(), nil)
	for i := 0; i < n; i++ {
		out.SetRow(i, s.Sample(rng).RawVector().Data)
	}
	return out
}
