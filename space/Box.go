package space

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/samuelfneumann/nsteptd/utils/floatutils"
	"github.com/samuelfneumann/nsteptd/utils/intutils"
)

// BoxSpace is a space of real-valued tensors of a fixed shape with
// elementwise bounds. Values are stored flattened in row-major order.
type BoxSpace struct {
	Low   []float64
	High  []float64
	Shape []int
}

// NewBox returns a new Box space with the same bounds for every element
func NewBox(low, high float64, shape ...int) (BoxSpace, error) {
	size := intutils.Prod(shape...)
	lowBounds := make([]float64, size)
	highBounds := make([]float64, size)
	for i := range lowBounds {
		lowBounds[i] = low
		highBounds[i] = high
	}
	return NewBoxBounds(lowBounds, highBounds, shape)
}

// NewBoxBounds returns a new Box space with elementwise bounds. The
// bounds are given in flattened, row-major order.
func NewBoxBounds(low, high []float64, shape []int) (BoxSpace, error) {
	if len(shape) == 0 {
		return BoxSpace{}, fmt.Errorf("newBoxBounds: shape must have " +
			"at least one dimension")
	}
	for _, dim := range shape {
		if dim < 1 {
			return BoxSpace{}, fmt.Errorf("newBoxBounds: dimensions must "+
				"be positive \n\twant(>0)\n\thave(%v)", shape)
		}
	}

	size := intutils.Prod(shape...)
	if len(low) != size || len(high) != size {
		return BoxSpace{}, fmt.Errorf("newBoxBounds: bounds do not match "+
			"shape \n\twant(%v)\n\thave(%v, %v)", size, len(low), len(high))
	}
	for i := range low {
		if low[i] > high[i] {
			return BoxSpace{}, fmt.Errorf("newBoxBounds: lower bound "+
				"exceeds upper bound at index %v \n\twant(<= %v)\n\t"+
				"have(%v)", i, high[i], low[i])
		}
	}

	b := BoxSpace{
		Low:   append([]float64(nil), low...),
		High:  append([]float64(nil), high...),
		Shape: append([]int(nil), shape...),
	}
	return b, nil
}

// Kind implements the Space interface
func (b BoxSpace) Kind() Kind {
	return Box
}

// Dim implements the Space interface
func (b BoxSpace) Dim() int {
	return len(b.Low)
}

// FlatDim implements the Space interface
func (b BoxSpace) FlatDim() int {
	return len(b.Low)
}

// Sample implements the Space interface. Elements bounded on both
// sides are sampled uniformly, elements bounded on one side are sampled
// from a shifted exponential distribution, and unbounded elements are
// sampled from a standard normal distribution.
func (b BoxSpace) Sample(rng *rand.Rand) *mat.VecDense {
	out := make([]float64, len(b.Low))

	for i := range out {
		lowBounded := !math.IsInf(b.Low[i], -1)
		highBounded := !math.IsInf(b.High[i], 1)

		switch {
		case lowBounded && highBounded:
			if b.Low[i] == b.High[i] {
				out[i] = b.Low[i]
				continue
			}
			out[i] = distuv.Uniform{Min: b.Low[i], Max: b.High[i],
				Src: rng}.Rand()

		case lowBounded:
			out[i] = b.Low[i] + distuv.Exponential{Rate: 1, Src: rng}.Rand()

		case highBounded:
			out[i] = b.High[i] - distuv.Exponential{Rate: 1, Src: rng}.Rand()

		default:
			out[i] = distuv.Normal{Mu: 0, Sigma: 1, Src: rng}.Rand()
		}
	}

	return mat.NewVecDense(len(out), out)
}

// Contains implements the Space interface
func (b BoxSpace) Contains(x mat.Vector) bool {
	if x.Len() != len(b.Low) {
		return false
	}
	for i := 0; i < x.Len(); i++ {
		v := x.AtVec(i)
		if math.IsNaN(v) || v < b.Low[i] || v > b.High[i] {
			return false
		}
	}
	return true
}

// Encode returns the flattened values of x
func (b BoxSpace) Encode(x mat.Vector) ([]float64, error) {
	if x.Len() != len(b.Low) {
		return nil, fmt.Errorf("encode: incorrect value length for space "+
			"%v \n\twant(%v)\n\thave(%v)", b, len(b.Low), x.Len())
	}
	out := make([]float64, x.Len())
	for i := range out {
		out[i] = x.AtVec(i)
	}
	return out, nil
}

// Clip clips each element of x to the bounds of the space in place
func (b BoxSpace) Clip(x *mat.VecDense) {
	for i := 0; i < x.Len(); i++ {
		x.SetVec(i, floatutils.Clip(x.AtVec(i), b.Low[i], b.High[i]))
	}
}

func (b BoxSpace) String() string {
	return fmt.Sprintf("Box(%v, %v, shape=%v)", floatutils.Min(b.Low...),
		floatutils.Max(b.High...), b.Shape)
}
