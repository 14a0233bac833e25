package experiment

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/samuelfneumann/gomaze"
	"gonum.org/v1/gonum/mat"
	G "gorgonia.org/gorgonia"

	"github.com/samuelfneumann/nsteptd/approx"
	env "github.com/samuelfneumann/nsteptd/environment"
	"github.com/samuelfneumann/nsteptd/environment/cartpole"
	"github.com/samuelfneumann/nsteptd/environment/maze"
	"github.com/samuelfneumann/nsteptd/experiment/trackers"
	"github.com/samuelfneumann/nsteptd/expreplay"
	"github.com/samuelfneumann/nsteptd/network"
	"github.com/samuelfneumann/nsteptd/solver"
	"github.com/samuelfneumann/nsteptd/space"
	"github.com/samuelfneumann/nsteptd/td"
	ts "github.com/samuelfneumann/nsteptd/timestep"
)

// chain is an environment whose episodes last a fixed number of steps,
// each with a reward of 1. The observation is the step number.
type chain struct {
	length int
	last   ts.TimeStep
}

func (c *chain) Reset() (ts.TimeStep, error) {
	c.last = ts.New(ts.First, 0, mat.NewVecDense(1, []float64{0}), 0)
	return c.last, nil
}

func (c *chain) Step(a *mat.VecDense) (ts.TimeStep, error) {
	n := c.last.Number + 1
	t := ts.Mid
	if n == c.length {
		t = ts.Last
	}
	c.last = ts.New(t, 1, mat.NewVecDense(1, []float64{float64(n)}), n)
	return c.last, nil
}

func (c *chain) ObservationSpace() space.Space {
	obs, _ := space.NewBox(0, float64(c.length), 1)
	return obs
}

func (c *chain) ActionSpace() space.Space {
	act, _ := space.NewDiscrete(2)
	return act
}

// constant always selects action 0
type constant struct{}

func (constant) SampleLogp(s *mat.VecDense) (*mat.VecDense, float64,
	error) {
	return mat.NewVecDense(1, []float64{0}), math.Log(0.5), nil
}

// recorder records every batch it is updated with
type recorder struct {
	batches []*ts.TransitionBatch
	syncs   int
}

func (r *recorder) Update(b *ts.TransitionBatch) (map[string]float64,
	error) {
	r.batches = append(r.batches, b)
	return map[string]float64{"recorder/rows": float64(b.Len())}, nil
}

func (r *recorder) SyncTarget(tau float64) error {
	r.syncs++
	return nil
}

func TestOnlineTracing(t *testing.T) {
	updater := &recorder{}
	ret := trackers.NewReturn("")
	var out bytes.Buffer

	config := Config{MaxSteps: 6, N: 2, Gamma: 0.5, SyncEvery: 1, Tau: 1}
	o, err := NewOnline(&chain{length: 3}, constant{}, updater, config, &out,
		1, ret)
	if err != nil {
		t.Fatal(err)
	}
	if err := o.Run(); err != nil {
		t.Fatal(err)
	}

	// Each episode ends on its third step, so all of its transitions
	// are flushed together
	if len(updater.batches) != 2 {
		t.Fatalf("run: incorrect number of updates \n\twant(2)\n\thave(%v)",
			len(updater.batches))
	}
	wantRn := []float64{1.5, 1.5, 1}
	wantIn := []float64{0.25, 0, 0}
	wantS := []float64{0, 1, 2}
	wantSNext := []float64{2, 1, 2}
	for _, b := range updater.batches {
		if b.Len() != 3 {
			t.Fatalf("run: incorrect batch size \n\twant(3)\n\thave(%v)",
				b.Len())
		}
		for i := range wantRn {
			if math.Abs(b.Rn[i]-wantRn[i]) > 1e-12 ||
				math.Abs(b.In[i]-wantIn[i]) > 1e-12 {
				t.Errorf("run: row %v \n\twant(Rn=%v, In=%v)"+
					"\n\thave(Rn=%v, In=%v)", i, wantRn[i], wantIn[i],
					b.Rn[i], b.In[i])
			}
			if s := b.S.At(i, 0); s != wantS[i] {
				t.Errorf("run: row %v state \n\twant(%v)\n\thave(%v)", i,
					wantS[i], s)
			}
			if s := b.SNext.At(i, 0); s != wantSNext[i] {
				t.Errorf("run: row %v next state \n\twant(%v)\n\thave(%v)",
					i, wantSNext[i], s)
			}
		}
	}

	if updater.syncs != 2 {
		t.Errorf("run: incorrect number of target syncs \n\twant(2)"+
			"\n\thave(%v)", updater.syncs)
	}

	returns := o.Returns()
	tracked := ret.Returns()
	if len(returns) != 2 || returns[0] != 3 || returns[1] != 3 {
		t.Errorf("returns: \n\twant([3 3])\n\thave(%v)", returns)
	}
	if len(tracked) != len(returns) {
		t.Errorf("tracker returns: \n\twant(%v)\n\thave(%v)", returns,
			tracked)
	}

	summary := out.String()
	if strings.Count(summary, "Episode") != 2 {
		t.Errorf("run: expected 2 episode summaries, got:\n%v", summary)
	}
	if !strings.Contains(summary, o.RunID().String()) {
		t.Errorf("run: expected final summary with run ID %v, got:\n%v",
			o.RunID(), summary)
	}
	if o.Metrics()["recorder/rows"] != 3 {
		t.Errorf("metrics: \n\twant(map[recorder/rows:3])\n\thave(%v)",
			o.Metrics())
	}
}

func TestOnlineReplay(t *testing.T) {
	updater := &recorder{}
	config := Config{
		MaxSteps: 8,
		N:        1,
		Gamma:    0.9,
		Replay: &expreplay.Config{
			SampleMethod:      expreplay.Uniform,
			SampleSize:        4,
			MaxReplayCapacity: 10,
			MinReplayCapacity: 4,
		},
	}
	o, err := NewOnline(&chain{length: 100}, constant{}, updater, config, nil,
		1)
	if err != nil {
		t.Fatal(err)
	}

	ended, err := o.RunEpisode()
	if err != nil {
		t.Fatal(err)
	}
	if !ended || o.Steps() != 8 {
		t.Errorf("runEpisode: \n\twant(ended after 8 steps)\n\thave(%v, %v)",
			ended, o.Steps())
	}

	// With n = 1, one row is traced per step after the first, and
	// sampling starts once 4 rows are stored
	if len(updater.batches) != 4 {
		t.Fatalf("runEpisode: incorrect number of updates \n\twant(4)"+
			"\n\thave(%v)", len(updater.batches))
	}
	for _, b := range updater.batches {
		if b.Len() != 4 {
			t.Errorf("runEpisode: incorrect replay batch size \n\twant(4)"+
				"\n\thave(%v)", b.Len())
		}
	}
	if len(o.Returns()) != 0 {
		t.Errorf("returns: unfinished episodes should not be recorded, "+
			"have %v", o.Returns())
	}
}

func TestNewOnlineInvalid(t *testing.T) {
	tests := []Config{
		{MaxSteps: 0, N: 1, Gamma: 0.9},
		{MaxSteps: 1, N: 0, Gamma: 0.9},
		{MaxSteps: 1, N: 1, Gamma: 1.5},
		{MaxSteps: 1, N: 1, Gamma: 0.9, SyncEvery: -1},
		{MaxSteps: 1, N: 1, Gamma: 0.9, Replay: &expreplay.Config{
			SampleMethod: expreplay.Fifo, SampleSize: 0,
			MaxReplayCapacity: 1, MinReplayCapacity: 1}},
	}

	for _, c := range tests {
		_, err := NewOnline(&chain{length: 2}, constant{}, &recorder{}, c,
			nil, 1)
		if err == nil {
			t.Errorf("newOnline: expected error for config %+v", c)
		}
	}
}

func logitsPolicy(m *network.Module, S *G.Node) (approx.Output, error) {
	logits, err := m.MLP([]*G.Node{S}, 2, []int{8}, []bool{true},
		[]*network.Activation{network.TanH()})
	if err != nil {
		return nil, err
	}
	return approx.Logits{Logits: logits}, nil
}

func linearV(m *network.Module, S *G.Node) (*G.Node, error) {
	return m.Linear(S, 1, true, nil)
}

func TestOnlineCartpole(t *testing.T) {
	e, err := cartpole.New(env.NewStepLimit(25), 1)
	if err != nil {
		t.Fatal(err)
	}

	pi, err := approx.NewPolicy(logitsPolicy, e.ObservationSpace(),
		e.ActionSpace(), nil, 1)
	if err != nil {
		t.Fatal(err)
	}
	v, err := approx.NewV(linearV, e.ObservationSpace(), nil, 1)
	if err != nil {
		t.Fatal(err)
	}
	sgd, err := solver.NewSGD(0.01)
	if err != nil {
		t.Fatal(err)
	}
	learner, err := td.NewSimpleTD(v, nil, td.Config{Solver: sgd}, 1)
	if err != nil {
		t.Fatal(err)
	}

	config := Config{
		MaxSteps: 60,
		N:        3,
		Gamma:    0.99,
		Replay: &expreplay.Config{
			SampleMethod:      expreplay.Fifo,
			SampleSize:        8,
			MaxReplayCapacity: 32,
			MinReplayCapacity: 8,
		},
		SyncEvery: 10,
		Tau:       0.5,
	}
	var out bytes.Buffer
	o, err := NewOnline(e, pi, learner, config, &out, 1)
	if err != nil {
		t.Fatal(err)
	}
	if err := o.Run(); err != nil {
		t.Fatal(err)
	}

	if o.Steps() != 60 {
		t.Errorf("run: \n\twant(60)\n\thave(%v)", o.Steps())
	}
	if len(o.Returns()) == 0 {
		t.Fatal("run: expected at least one finished episode")
	}
	for _, r := range o.Returns() {
		if r < 1 || r > 25 {
			t.Errorf("run: cartpole return %v not in [1, 25]", r)
		}
	}

	metrics := o.Metrics()
	for _, name := range []string{"SimpleTD/loss", "SimpleTD/td_error"} {
		value, ok := metrics[name]
		if !ok {
			t.Errorf("metrics: missing %v in %v", name, metrics)
		} else if math.IsNaN(value) || math.IsInf(value, 0) {
			t.Errorf("metrics: %v is not finite: %v", name, value)
		}
	}
}

func TestOnlineMaze(t *testing.T) {
	e, err := maze.New(2, 2, gomaze.NewBacktracking(1), env.NewStepLimit(15))
	if err != nil {
		t.Fatal(err)
	}

	pi, err := approx.NewPolicy(logitsPolicy, e.ObservationSpace(),
		e.ActionSpace(), nil, 1)
	if err != nil {
		t.Fatal(err)
	}
	v, err := approx.NewV(linearV, e.ObservationSpace(), nil, 1)
	if err != nil {
		t.Fatal(err)
	}
	sgd, err := solver.NewSGD(0.1)
	if err != nil {
		t.Fatal(err)
	}
	learner, err := td.NewSimpleTD(v, nil, td.Config{Solver: sgd, Loss: td.MSE()},
		1)
	if err != nil {
		t.Fatal(err)
	}

	ret := trackers.NewReturn("")
	o, err := NewOnline(e, pi, learner, Config{MaxSteps: 100, N: 2,
		Gamma: 0.9}, nil, 1, ret)
	if err != nil {
		t.Fatal(err)
	}
	params := v.Params()
	if err := o.Run(); err != nil {
		t.Fatal(err)
	}

	if len(o.Returns()) == 0 {
		t.Fatal("run: expected at least one finished episode")
	}
	for _, r := range o.Returns() {
		// Every step costs 1 except the one reaching the goal
		if r > 0 || r < -15 || r != math.Floor(r) {
			t.Errorf("run: maze return %v not an integer in [-15, 0]", r)
		}
	}
	if len(ret.Returns()) != len(o.Returns()) {
		t.Errorf("tracker returns: \n\twant(%v)\n\thave(%v)", o.Returns(),
			ret.Returns())
	}

	if params.Equal(v.Params(), 1e-12) {
		t.Error("run: value function was not updated")
	}
	value, err := v.Value(e.Goal())
	if err != nil {
		t.Fatal(err)
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		t.Errorf("value of goal state is not finite: %v", value)
	}
}
