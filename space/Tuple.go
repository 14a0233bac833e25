package space

import (
	"fmt"
	"strings"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
)

// TupleSpace is the Cartesian product of a number of spaces. Values are
// the concatenation of the values of each subspace.
type TupleSpace struct {
	Spaces []Space
}

// NewTuple returns a new Tuple space over the given subspaces
func NewTuple(spaces ...Space) (TupleSpace, error) {
	if len(spaces) == 0 {
		return TupleSpace{}, fmt.Errorf("newTuple: at least one subspace " +
			"is required")
	}
	return TupleSpace{Spaces: append([]Space(nil), spaces...)}, nil
}

// Kind implements the Space interface
func (t TupleSpace) Kind() Kind {
	return Tuple
}

// Dim implements the Space interface
func (t TupleSpace) Dim() int {
	dim := 0
	for _, s := range t.Spaces {
		dim += s.Dim()
	}
	return dim
}

// FlatDim implements the Space interface
func (t TupleSpace) FlatDim() int {
	dim := 0
	for _, s := range t.Spaces {
		dim += s.FlatDim()
	}
	return dim
}

// Sample implements the Space interface
func (t TupleSpace) Sample(rng *rand.Rand) *mat.VecDense {
	out := make([]float64, 0, t.Dim())
	for _, s := range t.Spaces {
		out = append(out, s.Sample(rng).RawVector().Data...)
	}
	return mat.NewVecDense(len(out), out)
}

// Contains implements the Space interface
func (t TupleSpace) Contains(x mat.Vector) bool {
	if x.Len() != t.Dim() {
		return false
	}
	start := 0
	for _, s := range t.Spaces {
		if !s.Contains(sliceVec(x, start, start+s.Dim())) {
			return false
		}
		start += s.Dim()
	}
	return true
}

// Encode implements the Space interface
func (t TupleSpace) Encode(x mat.Vector) ([]float64, error) {
	if x.Len() != t.Dim() {
		return nil, fmt.Errorf("encode: incorrect value length for space "+
			"%v \n\twant(%v)\n\thave(%v)", t, t.Dim(), x.Len())
	}

	out := make([]float64, 0, t.FlatDim())
	start := 0
	for _, s := range t.Spaces {
		enc, err := s.Encode(sliceVec(x, start, start+s.Dim()))
		if err != nil {
			return nil, err
		}
		out = append(out, enc...)
		start += s.Dim()
	}
	return out, nil
}

func (t TupleSpace) String() string {
	names := make([]string, len(t.Spaces))
	for i, s := range t.Spaces {
		names[i] = s.String()
	}
	return fmt.Sprintf("Tuple(%v)", strings.Join(names, ", "))
}

func sliceVec(x mat.Vector, start, end int) *mat.VecDense {
	out := mat.NewVecDense(end-start, nil)
	for i := start; i < end; i++ {
		out.SetVec(i-start, x.AtVec(i))
	}
	return out
}
