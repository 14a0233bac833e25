package network

import (
	"math"
	"reflect"
	"testing"

	"gonum.org/v1/gonum/mat"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

func input(g *G.ExprGraph, rows, cols int, data []float64) *G.Node {
	return G.NewMatrix(g, tensor.Float64, G.WithShape(rows, cols),
		G.WithName("x"), G.WithValue(tensor.New(tensor.WithShape(rows, cols),
			tensor.WithBacking(data))))
}

func TestMLPParams(t *testing.T) {
	g := G.NewGraph()
	x := input(g, 3, 2, []float64{1, 2, 3, 4, 5, 6})
	m := NewModule(g, 3, false, nil, nil, G.GlorotU(1))

	out, err := m.MLP([]*G.Node{x}, 1, []int{4}, []bool{true},
		[]*Activation{ReLU()})
	if err != nil {
		t.Fatal(err)
	}

	if shape := out.Shape(); shape[0] != 3 || shape[1] != 1 {
		t.Errorf("output shape \n\twant([3 1])\n\thave(%v)", shape)
	}

	params := m.Params()
	want := []string{"linear/b", "linear/w", "linear_1/b", "linear_1/w"}
	if names := params.Names(); !reflect.DeepEqual(names, want) {
		t.Errorf("parameter names \n\twant(%v)\n\thave(%v)", want, names)
	}

	if r, c := params["linear/w"].Dims(); r != 2 || c != 4 {
		t.Errorf("linear/w shape \n\twant(2, 4)\n\thave(%v, %v)", r, c)
	}
	if r, c := params["linear_1/b"].Dims(); r != 1 || c != 1 {
		t.Errorf("linear_1/b shape \n\twant(1, 1)\n\thave(%v, %v)", r, c)
	}
	if got := mat.Sum(params["linear/b"]); got != 0 {
		t.Errorf("bias should be initialized to zero, got sum %v", got)
	}
	if len(m.Learnables()) != 4 {
		t.Errorf("learnables \n\twant(4)\n\thave(%v)", len(m.Learnables()))
	}
}

func TestMLPInvalidConfig(t *testing.T) {
	g := G.NewGraph()
	x := input(g, 1, 2, []float64{1, 2})
	m := NewModule(g, 1, false, nil, nil, G.GlorotU(1))

	_, err := m.MLP([]*G.Node{x}, 1, []int{4, 4}, []bool{true},
		[]*Activation{ReLU(), ReLU()})
	if err == nil {
		t.Error("expected error for mismatched biases")
	}
}

func TestUnknownParam(t *testing.T) {
	g := G.NewGraph()
	x := input(g, 1, 2, []float64{1, 2})
	m := NewModule(g, 1, false, nil, nil, nil)

	if _, err := m.Linear(x, 3, true, nil); err == nil {
		t.Error("expected error for unknown parameter when not initializing")
	}
}

func TestLinearApply(t *testing.T) {
	params := Params{
		"linear/w": mat.NewDense(2, 1, []float64{1, -1}),
		"linear/b": mat.NewDense(1, 1, []float64{0.5}),
	}

	g := G.NewGraph()
	x := input(g, 2, 2, []float64{3, 1, 0, 2})
	m := NewModule(g, 2, false, params, nil, nil)
	out, err := m.Linear(x, 1, true, nil)
	if err != nil {
		t.Fatal(err)
	}
	var outVal G.Value
	G.Read(out, &outVal)

	vm := G.NewTapeMachine(g)
	defer vm.Close()
	if err := vm.RunAll(); err != nil {
		t.Fatal(err)
	}

	got := outVal.Data().([]float64)
	want := []float64{2.5, -1.5}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("linear output \n\twant(%v)\n\thave(%v)", want, got)
	}
}

func TestBatchNorm(t *testing.T) {
	const decay = 0.5
	data := []float64{1, 2, 3, 6}

	// Training: normalize with batch statistics and update the moving
	// averages
	g := G.NewGraph()
	x := input(g, 2, 2, data)
	m := NewModule(g, 2, true, nil, nil, G.GlorotU(1))
	out, err := m.BatchNorm(x, decay, 1e-8)
	if err != nil {
		t.Fatal(err)
	}
	var outVal G.Value
	G.Read(out, &outVal)

	vm := G.NewTapeMachine(g)
	defer vm.Close()
	if err := vm.RunAll(); err != nil {
		t.Fatal(err)
	}

	want := []float64{-1, -1, 1, 1}
	checkClose(t, "training output", want, outVal.Data().([]float64), 1e-6)

	initState := m.State()
	wantNames := []string{"batch_norm/~/mean_ema", "batch_norm/~/var_ema"}
	if names := initState.Names(); !reflect.DeepEqual(names, wantNames) {
		t.Errorf("state names \n\twant(%v)\n\thave(%v)", wantNames, names)
	}

	next, err := m.NextState(initState)
	if err != nil {
		t.Fatal(err)
	}
	checkClose(t, "mean_ema", []float64{1, 2},
		next["batch_norm/~/mean_ema"].RawRowView(0), 1e-12)
	checkClose(t, "var_ema", []float64{1, 2.5},
		next["batch_norm/~/var_ema"].RawRowView(0), 1e-12)
	if initState.Equal(next, 1e-12) {
		t.Error("state should change after a training run")
	}

	// Inference: normalize with the moving averages
	state := State{
		"batch_norm/~/mean_ema": mat.NewDense(1, 2, []float64{2, 4}),
		"batch_norm/~/var_ema":  mat.NewDense(1, 2, []float64{1, 4}),
	}
	g = G.NewGraph()
	x = input(g, 2, 2, data)
	m2 := NewModule(g, 2, false, m.Params(), state, nil)
	out, err = m2.BatchNorm(x, decay, 1e-8)
	if err != nil {
		t.Fatal(err)
	}
	G.Read(out, &outVal)
	if err := m2.Load(m.Params(), state); err != nil {
		t.Fatal(err)
	}

	vm2 := G.NewTapeMachine(g)
	defer vm2.Close()
	if err := vm2.RunAll(); err != nil {
		t.Fatal(err)
	}
	checkClose(t, "inference output", want, outVal.Data().([]float64), 1e-6)

	same, err := m2.NextState(state)
	if err != nil {
		t.Fatal(err)
	}
	if !same.Equal(state, 0) {
		t.Error("state should not change during inference")
	}
}

func TestPolyak(t *testing.T) {
	p := Params{"w": mat.NewDense(1, 2, []float64{0, 10})}
	src := Params{"w": mat.NewDense(1, 2, []float64{10, 0})}

	avg, err := p.Polyak(src, 0.25)
	if err != nil {
		t.Fatal(err)
	}
	checkClose(t, "polyak", []float64{2.5, 7.5}, avg["w"].RawRowView(0), 1e-12)
	if p["w"].At(0, 0) != 0 {
		t.Error("polyak should not modify its receiver")
	}

	if _, err := p.Polyak(Params{"v": src["w"]}, 0.5); err == nil {
		t.Error("expected error for incompatible parameters")
	}
}

func TestFromValue(t *testing.T) {
	v := tensor.New(tensor.WithShape(3), tensor.WithBacking([]float64{1, 2, 3}))
	m, err := FromValue(v)
	if err != nil {
		t.Fatal(err)
	}
	if r, c := m.Dims(); r != 3 || c != 1 {
		t.Errorf("vector shape \n\twant(3, 1)\n\thave(%v, %v)", r, c)
	}

	v.Set(0, 10.0)
	if m.At(0, 0) != 1 {
		t.Error("fromValue should copy its input")
	}
}

func checkClose(t *testing.T, what string, want, have []float64,
	tol float64) {
	t.Helper()
	if len(want) != len(have) {
		t.Errorf("%v length \n\twant(%v)\n\thave(%v)", what, len(want),
			len(have))
		return
	}
	for i := range want {
		if math.Abs(want[i]-have[i]) > tol {
			t.Errorf("%v \n\twant(%v)\n\thave(%v)", what, want, have)
			return
		}
	}
}
