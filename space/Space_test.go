package space

import (
	"math"
	"testing"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
)

func TestDiscreteEncode(t *testing.T) {
	d, err := NewDiscrete(7)
	if err != nil {
		t.Fatal(err)
	}

	enc, err := d.Encode(mat.NewVecDense(1, []float64{3}))
	if err != nil {
		t.Fatal(err)
	}
	if len(enc) != 7 {
		t.Fatalf("encoding length \n\twant(7)\n\thave(%v)", len(enc))
	}
	for i, v := range enc {
		want := 0.0
		if i == 3 {
			want = 1.0
		}
		if v != want {
			t.Errorf("encoding index %v \n\twant(%v)\n\thave(%v)", i, want, v)
		}
	}

	for _, bad := range []float64{-1, 7, 2.5} {
		if _, err := d.Encode(mat.NewVecDense(1, []float64{bad})); err == nil {
			t.Errorf("expected error encoding %v", bad)
		}
	}
}

func TestBoxSampleContains(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	bounded, err := NewBox(0, 1, 3, 5)
	if err != nil {
		t.Fatal(err)
	}
	if bounded.FlatDim() != 15 {
		t.Errorf("flat dim \n\twant(15)\n\thave(%v)", bounded.FlatDim())
	}

	low := []float64{math.Inf(-1), 0, math.Inf(-1)}
	high := []float64{math.Inf(1), math.Inf(1), 0}
	halfBounded, err := NewBoxBounds(low, high, []int{3})
	if err != nil {
		t.Fatal(err)
	}

	for _, s := range []Space{bounded, halfBounded} {
		for i := 0; i < 100; i++ {
			x := s.Sample(rng)
			if !s.Contains(x) {
				t.Fatalf("sample %v not in space %v", x.RawVector().Data, s)
			}
		}
	}

	if bounded.Contains(mat.NewVecDense(15, nil).SliceVec(0, 14)) {
		t.Error("space should not contain vector of the wrong length")
	}
}

func TestNewBoxBoundsErrors(t *testing.T) {
	tests := []struct {
		name      string
		low, high []float64
		shape     []int
	}{
		{"empty shape", nil, nil, nil},
		{"zero dim", []float64{}, []float64{}, []int{0}},
		{"length mismatch", []float64{0}, []float64{1, 1}, []int{2}},
		{"low > high", []float64{2}, []float64{1}, []int{1}},
	}

	for _, test := range tests {
		if _, err := NewBoxBounds(test.low, test.high, test.shape); err == nil {
			t.Errorf("%v: expected error", test.name)
		}
	}
}

func TestTupleEncode(t *testing.T) {
	d, _ := NewDiscrete(3)
	b, _ := NewBox(-1, 1, 2)
	tuple, err := NewTuple(d, b)
	if err != nil {
		t.Fatal(err)
	}

	if tuple.Dim() != 3 || tuple.FlatDim() != 5 {
		t.Fatalf("tuple dims \n\twant(3, 5)\n\thave(%v, %v)", tuple.Dim(),
			tuple.FlatDim())
	}

	x := mat.NewVecDense(3, []float64{2, 0.5, -0.5})
	enc, err := tuple.Encode(x)
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{0, 0, 1, 0.5, -0.5}
	for i := range want {
		if enc[i] != want[i] {
			t.Errorf("encoding \n\twant(%v)\n\thave(%v)", want, enc)
			break
		}
	}

	rng := rand.New(rand.NewSource(3))
	for i := 0; i < 20; i++ {
		if s := tuple.Sample(rng); !tuple.Contains(s) {
			t.Errorf("sample %v not in space %v", s.RawVector().Data, tuple)
		}
	}
}

func TestEncodeBatch(t *testing.T) {
	d, _ := NewDiscrete(4)
	X := mat.NewDense(2, 1, []float64{0, 3})

	enc, err := EncodeBatch(d, X)
	if err != nil {
		t.Fatal(err)
	}
	want := mat.NewDense(2, 4, []float64{1, 0, 0, 0, 0, 0, 0, 1})
	if !mat.Equal(enc, want) {
		t.Errorf("encoding \n\twant(%v)\n\thave(%v)", mat.Formatted(want),
			mat.Formatted(enc))
	}

	if _, err := EncodeBatch(d, mat.NewDense(2, 2, nil)); err == nil {
		t.Error("expected error for wrong number of columns")
	}
}
