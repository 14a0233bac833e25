package proba

import (
	"math"
	"testing"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"

	"github.com/samuelfneumann/nsteptd/space"
)

func TestFamilyOf(t *testing.T) {
	discrete, _ := space.NewDiscrete(3)
	box, _ := space.NewBox(-1, 1, 2)
	tuple, _ := space.NewTuple(discrete, box)

	tests := []struct {
		space  space.Space
		family Family
		err    bool
	}{
		{discrete, DiscreteLogits, false},
		{box, GaussianParams, false},
		{tuple, 0, true},
	}

	for _, test := range tests {
		family, err := FamilyOf(test.space)
		if test.err {
			if err == nil {
				t.Errorf("%v: expected error", test.space)
			}
			continue
		}
		if err != nil {
			t.Errorf("%v: %v", test.space, err)
		}
		if family != test.family {
			t.Errorf("%v: family \n\twant(%v)\n\thave(%v)", test.space,
				test.family, family)
		}
	}
}

func TestCategorical(t *testing.T) {
	discrete, _ := space.NewDiscrete(3)
	dist := NewCategorical(discrete)

	p := Params{
		Family: DiscreteLogits,
		Logits: mat.NewDense(2, 3, []float64{0, 0, 0, 1, 5, 2}),
	}

	mode, err := dist.Mode(p)
	if err != nil {
		t.Fatal(err)
	}
	if mode.At(1, 0) != 1 {
		t.Errorf("mode \n\twant(1)\n\thave(%v)", mode.At(1, 0))
	}

	logp, err := dist.LogProb(p, mat.NewDense(2, 1, []float64{2, 1}))
	if err != nil {
		t.Fatal(err)
	}
	if want := math.Log(1.0 / 3); math.Abs(logp[0]-want) > 1e-12 {
		t.Errorf("uniform logp \n\twant(%v)\n\thave(%v)", want, logp[0])
	}

	entropy, err := dist.Entropy(p)
	if err != nil {
		t.Fatal(err)
	}
	if want := math.Log(3); math.Abs(entropy[0]-want) > 1e-12 {
		t.Errorf("uniform entropy \n\twant(%v)\n\thave(%v)", want, entropy[0])
	}
	if entropy[1] >= entropy[0] {
		t.Errorf("peaked distribution should have lower entropy than " +
			"uniform")
	}

	rng := rand.New(rand.NewSource(1))
	X, sampleLogp, err := dist.SampleLogp(p, rng)
	if err != nil {
		t.Fatal(err)
	}
	checkLogp, err := dist.LogProb(p, X)
	if err != nil {
		t.Fatal(err)
	}
	for i := range sampleLogp {
		if !discrete.Contains(X.RowView(i)) {
			t.Errorf("sample %v not in space", X.At(i, 0))
		}
		if math.Abs(sampleLogp[i]-checkLogp[i]) > 1e-12 {
			t.Errorf("sample logp \n\twant(%v)\n\thave(%v)", checkLogp[i],
				sampleLogp[i])
		}
	}
}

func TestNormal(t *testing.T) {
	box, _ := space.NewBox(-1, 1, 2)
	dist := NewNormal(box)

	p := Params{
		Family: GaussianParams,
		Mu:     mat.NewDense(1, 2, []float64{0.5, 3}),
		LogVar: mat.NewDense(1, 2, []float64{0, 0}),
	}

	mode, err := dist.Mode(p)
	if err != nil {
		t.Fatal(err)
	}
	if mode.At(0, 0) != 0.5 || mode.At(0, 1) != 1 {
		t.Errorf("mode should be the clipped mean, got %v",
			mat.Formatted(mode))
	}

	logp, err := dist.LogProb(p, mat.NewDense(1, 2, []float64{0.5, 3}))
	if err != nil {
		t.Fatal(err)
	}
	if want := -math.Log(2 * math.Pi); math.Abs(logp[0]-want) > 1e-12 {
		t.Errorf("logp at mean \n\twant(%v)\n\thave(%v)", want, logp[0])
	}

	entropy, err := dist.Entropy(p)
	if err != nil {
		t.Fatal(err)
	}
	if want := 1 + math.Log(2*math.Pi); math.Abs(entropy[0]-want) > 1e-12 {
		t.Errorf("entropy \n\twant(%v)\n\thave(%v)", want, entropy[0])
	}

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 20; i++ {
		X, err := dist.Sample(p, rng)
		if err != nil {
			t.Fatal(err)
		}
		if !box.Contains(X.RowView(0)) {
			t.Errorf("sample %v not in space", mat.Formatted(X))
		}
	}
}

func TestWrongFamily(t *testing.T) {
	box, _ := space.NewBox(-1, 1, 1)
	p := Params{
		Family: DiscreteLogits,
		Logits: mat.NewDense(1, 1, []float64{0}),
	}
	if _, err := NewNormal(box).Mode(p); err == nil {
		t.Error("expected error for parameters of the wrong family")
	}
}

func TestSampleDeterministic(t *testing.T) {
	discrete, _ := space.NewDiscrete(4)
	dist, err := New(discrete)
	if err != nil {
		t.Fatal(err)
	}
	p := Params{
		Family: DiscreteLogits,
		Logits: mat.NewDense(5, 4, nil),
	}

	first, _ := dist.Sample(p, rand.New(rand.NewSource(42)))
	second, _ := dist.Sample(p, rand.New(rand.NewSource(42)))
	if !mat.Equal(first, second) {
		t.Error("samples with the same seed should be identical")
	}
}
