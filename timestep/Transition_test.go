package timestep

import (
	"testing"

	"gonum.org/v1/gonum/mat"
)

func newTransition(s, r float64, done bool) Transition {
	return Transition{
		S:        mat.NewVecDense(2, []float64{s, s}),
		A:        mat.NewVecDense(1, []float64{1}),
		Logp:     -0.5,
		R:        r,
		Done:     done,
		SNext:    mat.NewVecDense(2, []float64{s + 1, s + 1}),
		ANext:    mat.NewVecDense(1, []float64{0}),
		LogpNext: -0.25,
	}
}

func TestToBatch(t *testing.T) {
	tests := []struct {
		done   bool
		wantIn float64
	}{
		{false, 0.9},
		{true, 0.0},
	}

	for _, test := range tests {
		b := newTransition(1, 2, test.done).ToBatch(0.9)
		if err := b.Validate(); err != nil {
			t.Fatal(err)
		}
		if b.Len() != 1 {
			t.Errorf("batch length \n\twant(1)\n\thave(%v)", b.Len())
		}
		if b.In[0] != test.wantIn {
			t.Errorf("In (done=%v) \n\twant(%v)\n\thave(%v)", test.done,
				test.wantIn, b.In[0])
		}
		if b.Rn[0] != 2 || b.W[0] != 1 || b.Logp[0] != -0.5 {
			t.Errorf("unexpected batch fields: %v", b)
		}
	}
}

func TestToBatchCopies(t *testing.T) {
	tr := newTransition(1, 0, false)
	b := tr.ToBatch(1)
	tr.S.SetVec(0, 100)

	if b.S.At(0, 0) != 1 {
		t.Errorf("batch should not alias transition state")
	}
}

func TestConcatAndRow(t *testing.T) {
	b1 := newTransition(0, 1, false).ToBatch(0.5)
	b2 := newTransition(1, 2, true).ToBatch(0.5)

	b, err := Concat(b1, b2)
	if err != nil {
		t.Fatal(err)
	}
	if b.Len() != 2 {
		t.Fatalf("batch length \n\twant(2)\n\thave(%v)", b.Len())
	}
	if b.S.At(1, 0) != 1 || b.SNext.At(1, 1) != 2 {
		t.Errorf("rows concatenated in wrong order: %v",
			mat.Formatted(b.S))
	}

	row := b.Row(1)
	if !mat.Equal(row.S, b2.S) || row.In[0] != 0 {
		t.Errorf("row 1 does not match second batch")
	}
}

func TestValidateMalformed(t *testing.T) {
	tests := []struct {
		name   string
		mangle func(*TransitionBatch)
		field  string
	}{
		{"short Rn", func(b *TransitionBatch) { b.Rn = b.Rn[:1] }, "Rn"},
		{"missing W", func(b *TransitionBatch) { b.W = nil }, "W"},
		{"short A", func(b *TransitionBatch) {
			b.A = mat.NewDense(1, 1, nil)
		}, "A"},
		{"wide SNext", func(b *TransitionBatch) {
			b.SNext = mat.NewDense(2, 3, nil)
		}, "SNext columns"},
	}

	for _, test := range tests {
		b, err := Concat(newTransition(0, 1, false).ToBatch(1),
			newTransition(1, 1, false).ToBatch(1))
		if err != nil {
			t.Fatal(err)
		}
		test.mangle(b)

		err = b.Validate()
		batchErr, ok := err.(*BatchError)
		if !ok {
			t.Errorf("%v: expected *BatchError, got %v", test.name, err)
			continue
		}
		if batchErr.Field != test.field {
			t.Errorf("%v: field \n\twant(%v)\n\thave(%v)", test.name,
				test.field, batchErr.Field)
		}
	}

	if _, err := Concat(); err == nil {
		t.Error("expected error concatenating no batches")
	}
}
