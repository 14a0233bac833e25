package td

import (
	"fmt"
	"math"
)

// ValueTransform is a monotonic transformation of values and its
// inverse. TD targets are computed in the transformed domain as
// f(Rn + In * f⁻¹(v(s'))), where f is the Transform.
type ValueTransform struct {
	Transform func(float64) float64
	Inverse   func(float64) float64
}

// Identity returns the identity ValueTransform
func Identity() *ValueTransform {
	id := func(x float64) float64 { return x }
	return &ValueTransform{Transform: id, Inverse: id}
}

// LogTransform returns the ValueTransform
//
//	f(x) = sign(x) * scale * log(1 + |x| / scale)
func LogTransform(scale float64) (*ValueTransform, error) {
	if scale <= 0 {
		return nil, fmt.Errorf("logTransform: scale must be positive "+
			"\n\twant(>0)\n\thave(%v)", scale)
	}

	return &ValueTransform{
		Transform: func(x float64) float64 {
			return sign(x) * scale * math.Log1p(math.Abs(x)/scale)
		},
		Inverse: func(y float64) float64 {
			return sign(y) * scale * math.Expm1(math.Abs(y)/scale)
		},
	}, nil
}

// SignedHyperbolic returns the ValueTransform of Pohlen et al. (2018)
//
//	f(x) = sign(x) * (sqrt(|x| + 1) - 1) + eps * x
func SignedHyperbolic(eps float64) (*ValueTransform, error) {
	if eps < 0 {
		return nil, fmt.Errorf("signedHyperbolic: eps must be non-negative "+
			"\n\twant(>=0)\n\thave(%v)", eps)
	}

	return &ValueTransform{
		Transform: func(x float64) float64 {
			return sign(x)*(math.Sqrt(math.Abs(x)+1)-1) + eps*x
		},
		Inverse: func(y float64) float64 {
			if eps == 0 {
				return sign(y) * (math.Pow(math.Abs(y)+1, 2) - 1)
			}
			root := (math.Sqrt(1+4*eps*(math.Abs(y)+1+eps)) - 1) / (2 * eps)
			return sign(y) * (root*root - 1)
		},
	}, nil
}

// TransformSlice applies the Transform to each element of x in place
func (v *ValueTransform) TransformSlice(x []float64) {
	for i := range x {
		x[i] = v.Transform(x[i])
	}
}

// InverseSlice applies the Inverse to each element of x in place
func (v *ValueTransform) InverseSlice(x []float64) {
	for i := range x {
		x[i] = v.Inverse(x[i])
	}
}

func sign(x float64) float64 {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	}
	return 0
}
