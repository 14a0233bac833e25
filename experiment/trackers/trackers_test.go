package trackers

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"gonum.org/v1/gonum/mat"

	ts "github.com/samuelfneumann/nsteptd/timestep"
)

// episode returns the timesteps of an episode with the given rewards
func episode(rewards ...float64) []ts.TimeStep {
	obs := mat.NewVecDense(1, nil)
	steps := []ts.TimeStep{ts.New(ts.First, 0, obs, 0)}
	for i, r := range rewards {
		t := ts.Mid
		if i == len(rewards)-1 {
			t = ts.Last
		}
		steps = append(steps, ts.New(t, r, obs, i+1))
	}
	return steps
}

func TestReturnSaveLoad(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "returns.bin")
	ret := NewReturn(filename)
	length := NewEpisodeLength(filepath.Join(t.TempDir(), "lengths.bin"))

	for _, ep := range [][]float64{{1, 1, 1}, {0.5, -2}} {
		for _, step := range episode(ep...) {
			ret.Track(step)
			length.Track(step)
		}
	}
	// An unfinished episode is not saved
	ret.Track(ts.New(ts.First, 0, mat.NewVecDense(1, nil), 0))

	want := []float64{3, -1.5}
	if err := ret.Save(); err != nil {
		t.Fatal(err)
	}
	have, err := LoadData(filename)
	if err != nil {
		t.Fatal(err)
	}
	if len(have) != len(want) {
		t.Fatalf("loadData: \n\twant(%v)\n\thave(%v)", want, have)
	}
	for i := range want {
		if have[i] != want[i] {
			t.Errorf("loadData: \n\twant(%v)\n\thave(%v)", want, have)
			break
		}
	}

	lengths := length.Lengths()
	if len(lengths) != 2 || lengths[0] != 3 || lengths[1] != 2 {
		t.Errorf("lengths: \n\twant([3 2])\n\thave(%v)", lengths)
	}
}

func TestReturnNonSequential(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("track: expected panic for non-sequential timesteps")
		}
	}()

	ret := NewReturn("")
	steps := episode(1, 1, 1)
	ret.Track(steps[0])
	ret.Track(steps[2])
}

func TestLoadMissing(t *testing.T) {
	if _, err := LoadData(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("loadData: expected error for missing file")
	}
}

func TestPlotReturns(t *testing.T) {
	var buf bytes.Buffer
	err := PlotReturns(&buf, "Cartpole", map[string][]float64{
		"SimpleTD": {1, 2, 3},
		"Random":   {1, 1},
	})
	if err != nil {
		t.Fatal(err)
	}

	html := buf.String()
	for _, want := range []string{"Cartpole", "SimpleTD", "Random"} {
		if !strings.Contains(html, want) {
			t.Errorf("plotReturns: rendered chart missing %q", want)
		}
	}

	if err := PlotReturns(&buf, "empty", nil); err == nil {
		t.Error("plotReturns: expected error for no series")
	}
}
