package initwfn

import (
	"encoding/json"
	"math"
	"testing"

	"gorgonia.org/tensor"
)

func TestInitWFnSeeded(t *testing.T) {
	inits := []func() (*InitWFn, error){
		func() (*InitWFn, error) { return NewGlorotU(1.0) },
		func() (*InitWFn, error) { return NewGlorotN(1.0) },
		func() (*InitWFn, error) { return NewHeU(1.0) },
		func() (*InitWFn, error) { return NewHeN(1.0) },
		func() (*InitWFn, error) { return NewUniform(-1, 1) },
		func() (*InitWFn, error) { return NewGaussian(0, 1) },
	}

	for _, newInit := range inits {
		init, err := newInit()
		if err != nil {
			t.Fatal(err)
		}

		first := init.InitWFn(7)(tensor.Float64, 4, 3).([]float64)
		second := init.InitWFn(7)(tensor.Float64, 4, 3).([]float64)
		other := init.InitWFn(8)(tensor.Float64, 4, 3).([]float64)

		if len(first) != 12 {
			t.Fatalf("%v: length \n\twant(12)\n\thave(%v)", init,
				len(first))
		}

		same := true
		for i := range first {
			if first[i] != second[i] {
				t.Errorf("%v: same seed gave different weights", init)
				break
			}
			same = same && first[i] == other[i]
		}
		if same {
			t.Errorf("%v: different seeds gave the same weights", init)
		}
	}
}

func TestGlorotUBounds(t *testing.T) {
	init, _ := NewGlorotU(1.0)
	weights := init.InitWFn(1)(tensor.Float64, 10, 5).([]float64)

	limit := math.Sqrt(6.0 / 15.0)
	for _, w := range weights {
		if math.Abs(w) > limit {
			t.Errorf("weight %v outside of [-%v, %v]", w, limit, limit)
		}
	}
}

func TestConstantInitializers(t *testing.T) {
	zeroes, _ := NewZeroes()
	ones, _ := NewOnes()
	constant, _ := NewConstant(2.5)

	tests := []struct {
		init *InitWFn
		want float64
	}{
		{zeroes, 0},
		{ones, 1},
		{constant, 2.5},
	}

	for _, test := range tests {
		weights := test.init.InitWFn(0)(tensor.Float32, 2, 2).([]float32)
		for _, w := range weights {
			if float64(w) != test.want {
				t.Errorf("%v: weight \n\twant(%v)\n\thave(%v)", test.init,
					test.want, w)
			}
		}
	}
}

func TestInitWFnJSON(t *testing.T) {
	init, _ := NewHeN(2.0)

	data, err := json.Marshal(init)
	if err != nil {
		t.Fatal(err)
	}

	var decoded InitWFn
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.Type != HeN {
		t.Errorf("type \n\twant(%v)\n\thave(%v)", HeN, decoded.Type)
	}
	config, ok := decoded.Config.(HeNConfig)
	if !ok || config.Gain != 2.0 {
		t.Errorf("config \n\twant(%v)\n\thave(%v)", init.Config,
			decoded.Config)
	}

	if err := json.Unmarshal([]byte(`{"Type": "Bogus"}`), &decoded); err == nil {
		t.Error("expected error unmarshalling unknown type")
	}
}
