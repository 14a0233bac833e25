package timestep

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Transition is a single step of agent-environment interaction. Discrete
// actions are stored as length-1 vectors holding the action index.
//
// If Done is true, no bootstrapping should happen beyond this transition.
type Transition struct {
	S        *mat.VecDense
	A        *mat.VecDense
	Logp     float64
	R        float64
	Done     bool
	SNext    *mat.VecDense
	ANext    *mat.VecDense
	LogpNext float64
}

// ToBatch converts the Transition to a TransitionBatch of size 1. The
// gamma argument is the discount applied to the bootstrap target, so
// that In is 0 if the transition is terminal and gamma otherwise.
func (t Transition) ToBatch(gamma float64) *TransitionBatch {
	in := gamma
	if t.Done {
		in = 0.0
	}

	return &TransitionBatch{
		S:        rowOf(t.S),
		A:        rowOf(t.A),
		Logp:     []float64{t.Logp},
		Rn:       []float64{t.R},
		In:       []float64{in},
		SNext:    rowOf(t.SNext),
		ANext:    rowOf(t.ANext),
		LogpNext: []float64{t.LogpNext},
		W:        []float64{1.0},
	}
}

// TransitionBatch is a batch of transitions, where row i of each field
// belongs to the same transition. Rn holds the (possibly n-step)
// discounted partial returns and In holds the discount applied to the
// bootstrap target, which is 0 for terminal transitions. W holds
// importance weights.
type TransitionBatch struct {
	S        *mat.Dense
	A        *mat.Dense
	Logp     []float64
	Rn       []float64
	In       []float64
	SNext    *mat.Dense
	ANext    *mat.Dense
	LogpNext []float64
	W        []float64
}

// Len returns the number of transitions in the batch
func (b *TransitionBatch) Len() int {
	if b == nil || b.S == nil {
		return 0
	}
	r, _ := b.S.Dims()
	return r
}

// Validate checks that every field of the batch holds the same number
// of transitions
func (b *TransitionBatch) Validate() error {
	if b == nil || b.S == nil {
		return &BatchError{Op: "validate", Field: "S", Want: 1, Have: 0}
	}
	n := b.Len()

	dense := []struct {
		name string
		m    *mat.Dense
	}{{"A", b.A}, {"SNext", b.SNext}, {"ANext", b.ANext}}
	for _, field := range dense {
		rows := 0
		if field.m != nil {
			rows, _ = field.m.Dims()
		}
		if rows != n {
			return &BatchError{Op: "validate", Field: field.name, Want: n,
				Have: rows}
		}
	}

	vecs := []struct {
		name string
		v    []float64
	}{
		{"Logp", b.Logp}, {"Rn", b.Rn}, {"In", b.In},
		{"LogpNext", b.LogpNext}, {"W", b.W},
	}
	for _, field := range vecs {
		if len(field.v) != n {
			return &BatchError{Op: "validate", Field: field.name, Want: n,
				Have: len(field.v)}
		}
	}

	_, sCols := b.S.Dims()
	_, sNextCols := b.SNext.Dims()
	if sCols != sNextCols {
		return &BatchError{Op: "validate", Field: "SNext columns",
			Want: sCols, Have: sNextCols}
	}
	_, aCols := b.A.Dims()
	_, aNextCols := b.ANext.Dims()
	if aCols != aNextCols {
		return &BatchError{Op: "validate", Field: "ANext columns",
			Want: aCols, Have: aNextCols}
	}

	return nil
}

// Row returns a copy of the i-th transition of the batch as a batch of
// size 1
func (b *TransitionBatch) Row(i int) *TransitionBatch {
	return &TransitionBatch{
		S:        rowOf(b.S.RowView(i)),
		A:        rowOf(b.A.RowView(i)),
		Logp:     []float64{b.Logp[i]},
		Rn:       []float64{b.Rn[i]},
		In:       []float64{b.In[i]},
		SNext:    rowOf(b.SNext.RowView(i)),
		ANext:    rowOf(b.ANext.RowView(i)),
		LogpNext: []float64{b.LogpNext[i]},
		W:        []float64{b.W[i]},
	}
}

func (b *TransitionBatch) String() string {
	return fmt.Sprintf("TransitionBatch | Size: %v  |  Rn: %v  |  In: %v",
		b.Len(), b.Rn, b.In)
}

// Concat concatenates a number of batches into a single batch
func Concat(batches ...*TransitionBatch) (*TransitionBatch, error) {
	if len(batches) == 0 {
		return nil, fmt.Errorf("concat: no batches to concatenate")
	}
	for i, batch := range batches {
		if err := batch.Validate(); err != nil {
			return nil, fmt.Errorf("concat: batch %v: %v", i, err)
		}
	}

	out := &TransitionBatch{}
	var err error
	if out.S, err = stack("S", batches, func(b *TransitionBatch) *mat.Dense {
		return b.S
	}); err != nil {
		return nil, err
	}
	if out.A, err = stack("A", batches, func(b *TransitionBatch) *mat.Dense {
		return b.A
	}); err != nil {
		return nil, err
	}
	if out.SNext, err = stack("SNext", batches,
		func(b *TransitionBatch) *mat.Dense { return b.SNext }); err != nil {
		return nil, err
	}
	if out.ANext, err = stack("ANext", batches,
		func(b *TransitionBatch) *mat.Dense { return b.ANext }); err != nil {
		return nil, err
	}

	for _, b := range batches {
		out.Logp = append(out.Logp, b.Logp...)
		out.Rn = append(out.Rn, b.Rn...)
		out.In = append(out.In, b.In...)
		out.LogpNext = append(out.LogpNext, b.LogpNext...)
		out.W = append(out.W, b.W...)
	}

	return out, nil
}

// stack stacks a field of each batch vertically
func stack(name string, batches []*TransitionBatch,
	field func(*TransitionBatch) *mat.Dense) (*mat.Dense, error) {
	rows := 0
	_, cols := field(batches[0]).Dims()
	for _, b := range batches {
		r, c := field(b).Dims()
		if c != cols {
			return nil, &BatchError{Op: "concat", Field: name + " columns",
				Want: cols, Have: c}
		}
		rows += r
	}

	out := mat.NewDense(rows, cols, nil)
	start := 0
	for _, b := range batches {
		r, _ := field(b).Dims()
		out.Slice(start, start+r, 0, cols).(*mat.Dense).Copy(field(b))
		start += r
	}
	return out, nil
}

// rowOf returns a copy of v as a single-row matrix
func rowOf(v mat.Vector) *mat.Dense {
	data := make([]float64, v.Len())
	for i := range data {
		data[i] = v.AtVec(i)
	}
	return mat.NewDense(1, len(data), data)
}

// BatchError reports a malformed TransitionBatch
type BatchError struct {
	Op    string
	Field string
	Want  int
	Have  int
}

// Error satisfies the error interface
func (e *BatchError) Error() string {
	return fmt.Sprintf("%v: malformed transition batch field %v "+
		"\n\twant(%v)\n\thave(%v)", e.Op, e.Field, e.Want, e.Have)
}
