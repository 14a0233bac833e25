package network

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// Params holds the trainable parameters of a function, keyed by
// parameter path, for example "linear_1/w".
//
// Params are treated as immutable records: functions in this module
// never modify a Params in place, they return new records instead.
type Params map[string]*mat.Dense

// State holds the non-trainable internal state of a function, such as
// running normalization statistics, keyed by module path, for example
// "batch_norm/~/mean_ema".
//
// Like Params, State records are never modified in place.
type State map[string]*mat.Dense

// Copy returns a deep copy of the parameters
func (p Params) Copy() Params {
	return Params(copyRecord(p))
}

// Names returns the sorted parameter names
func (p Params) Names() []string {
	return sortedKeys(p)
}

// Equal returns whether p and q hold the same parameters with values
// equal to within tol
func (p Params) Equal(q Params, tol float64) bool {
	return equalRecords(p, q, tol)
}

// Polyak returns the Polyak average (1-tau)*p + tau*src as a new
// record. Both records must hold the same parameters.
func (p Params) Polyak(src Params, tau float64) (Params, error) {
	if len(p) != len(src) {
		return nil, fmt.Errorf("polyak: incompatible parameters "+
			"\n\twant(%v)\n\thave(%v)", p.Names(), src.Names())
	}

	out := make(Params, len(p))
	for name, value := range p {
		srcValue, ok := src[name]
		if !ok {
			return nil, fmt.Errorf("polyak: missing parameter %v", name)
		}
		if !sameDims(value, srcValue) {
			r, c := value.Dims()
			sr, sc := srcValue.Dims()
			return nil, fmt.Errorf("polyak: incompatible shapes for %v "+
				"\n\twant(%v, %v)\n\thave(%v, %v)", name, r, c, sr, sc)
		}

		avg := mat.DenseCopyOf(srcValue)
		avg.Scale(tau, avg)
		scaled := mat.DenseCopyOf(value)
		scaled.Scale(1-tau, scaled)
		avg.Add(avg, scaled)
		out[name] = avg
	}
	return out, nil
}

// Copy returns a deep copy of the state
func (s State) Copy() State {
	return State(copyRecord(s))
}

// Names returns the sorted state names
func (s State) Names() []string {
	return sortedKeys(s)
}

// Equal returns whether s and o hold the same state with values equal
// to within tol
func (s State) Equal(o State, tol float64) bool {
	return equalRecords(s, o, tol)
}

func copyRecord(r map[string]*mat.Dense) map[string]*mat.Dense {
	if r == nil {
		return nil
	}
	out := make(map[string]*mat.Dense, len(r))
	for name, value := range r {
		out[name] = mat.DenseCopyOf(value)
	}
	return out
}

func equalRecords(a, b map[string]*mat.Dense, tol float64) bool {
	if len(a) != len(b) {
		return false
	}
	for name, value := range a {
		other, ok := b[name]
		if !ok || !sameDims(value, other) {
			return false
		}
		if !mat.EqualApprox(value, other, tol) {
			return false
		}
	}
	return true
}

func sortedKeys(r map[string]*mat.Dense) []string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func sameDims(a, b mat.Matrix) bool {
	ar, ac := a.Dims()
	br, bc := b.Dims()
	return ar == br && ac == bc
}

// ToTensor returns a copy of m as a 2-dimensional tensor
func ToTensor(m mat.Matrix) *tensor.Dense {
	r, c := m.Dims()
	data := make([]float64, 0, r*c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			data = append(data, m.At(i, j))
		}
	}
	return tensor.New(tensor.WithShape(r, c), tensor.WithBacking(data))
}

// FromValue returns a copy of a 1 or 2-dimensional Gorgonia value as a
// matrix. Vectors are returned as a single column.
func FromValue(v G.Value) (*mat.Dense, error) {
	if v == nil {
		return nil, fmt.Errorf("fromValue: value not computed")
	}
	data, ok := v.Data().([]float64)
	if !ok {
		if scalar, isScalar := v.Data().(float64); isScalar {
			return mat.NewDense(1, 1, []float64{scalar}), nil
		}
		return nil, fmt.Errorf("fromValue: unsupported data type %T",
			v.Data())
	}

	shape := v.Shape()
	var r, c int
	switch len(shape) {
	case 0:
		r, c = 1, 1
	case 1:
		r, c = shape[0], 1
	case 2:
		r, c = shape[0], shape[1]
	default:
		return nil, fmt.Errorf("fromValue: unsupported shape %v", shape)
	}
	if len(data) != r*c {
		return nil, fmt.Errorf("fromValue: data does not match shape %v",
			shape)
	}
	return mat.NewDense(r, c, append([]float64(nil), data...)), nil
}
