package space

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
)

// DiscreteSpace is a space of n categories {0, 1, ..., n-1}. Values of
// the space are length-1 vectors holding the category index.
type DiscreteSpace struct {
	N int
}

// NewDiscrete returns a new discrete space with n categories
func NewDiscrete(n int) (DiscreteSpace, error) {
	if n < 1 {
		return DiscreteSpace{}, fmt.Errorf("newDiscrete: number of "+
			"categories must be positive \n\twant(>0)\n\thave(%v)", n)
	}
	return DiscreteSpace{N: n}, nil
}

// Kind implements the Space interface
func (d DiscreteSpace) Kind() Kind {
	return Discrete
}

// Dim implements the Space interface
func (d DiscreteSpace) Dim() int {
	return 1
}

// FlatDim implements the Space interface
func (d DiscreteSpace) FlatDim() int {
	return d.N
}

// Sample implements the Space interface
func (d DiscreteSpace) Sample(rng *rand.Rand) *mat.VecDense {
	return mat.NewVecDense(1, []float64{float64(rng.Intn(d.N))})
}

// Contains implements the Space interface
func (d DiscreteSpace) Contains(x mat.Vector) bool {
	if x.Len() != 1 {
		return false
	}
	v := x.AtVec(0)
	return v == math.Floor(v) && v >= 0 && v < float64(d.N)
}

// Encode returns the one-hot encoding of x
func (d DiscreteSpace) Encode(x mat.Vector) ([]float64, error) {
	if !d.Contains(x) {
		return nil, fmt.Errorf("encode: value %v not in space %v",
			mat.Formatted(x.T()), d)
	}
	out := make([]float64, d.N)
	out[int(x.AtVec(0))] = 1.0
	return out, nil
}

func (d DiscreteSpace) String() string {
	return fmt.Sprintf("Discrete(%v)", d.N)
}
