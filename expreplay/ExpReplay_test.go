package expreplay

import (
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/samuelfneumann/nsteptd/timestep"
)

// rows returns a batch of n transitions where the observation, action,
// and partial return of row i are start + i
func rows(start, n int) *timestep.TransitionBatch {
	b := &timestep.TransitionBatch{
		S:     mat.NewDense(n, 2, nil),
		A:     mat.NewDense(n, 1, nil),
		SNext: mat.NewDense(n, 2, nil),
		ANext: mat.NewDense(n, 1, nil),
	}
	for i := 0; i < n; i++ {
		v := float64(start + i)
		b.S.Set(i, 0, v)
		b.S.Set(i, 1, -v)
		b.A.Set(i, 0, v)
		b.SNext.Set(i, 0, v+1)
		b.SNext.Set(i, 1, -v-1)
		b.Logp = append(b.Logp, -v)
		b.Rn = append(b.Rn, v)
		b.In = append(b.In, 0.9)
		b.LogpNext = append(b.LogpNext, 0)
		b.W = append(b.W, 1)
	}
	return b
}

func TestSampleErrors(t *testing.T) {
	c := Config{
		SampleMethod:      Uniform,
		SampleSize:        2,
		MaxReplayCapacity: 5,
		MinReplayCapacity: 3,
	}
	replay, err := c.Create(2, 1, 1)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := replay.Sample(); !IsEmptyBuffer(err) {
		t.Errorf("sample: expected empty buffer error, have %v", err)
	}

	if err := replay.Add(rows(0, 2)); err != nil {
		t.Fatal(err)
	}
	if _, err := replay.Sample(); !IsInsufficientSamples(err) {
		t.Errorf("sample: expected insufficient samples error, have %v", err)
	}

	if err := replay.Add(rows(2, 1)); err != nil {
		t.Fatal(err)
	}
	batch, err := replay.Sample()
	if err != nil {
		t.Fatal(err)
	}
	if batch.Len() != 2 {
		t.Errorf("sample: incorrect batch size \n\twant(2)\n\thave(%v)",
			batch.Len())
	}
	if err := batch.Validate(); err != nil {
		t.Error(err)
	}
}

func TestFifoOverwrite(t *testing.T) {
	c := Config{
		SampleMethod:      Fifo,
		SampleSize:        3,
		MaxReplayCapacity: 4,
		MinReplayCapacity: 1,
	}
	replay, err := c.Create(2, 1, 1)
	if err != nil {
		t.Fatal(err)
	}

	if err := replay.Add(rows(0, 2)); err != nil {
		t.Fatal(err)
	}
	batch, err := replay.Sample()
	if err != nil {
		t.Fatal(err)
	}
	if batch.Len() != 2 {
		t.Errorf("sample: fifo should return all rows when fewer than the "+
			"batch size \n\twant(2)\n\thave(%v)", batch.Len())
	}

	// Rows 0 and 1 are overwritten by rows 4 and 5
	if err := replay.Add(rows(2, 4)); err != nil {
		t.Fatal(err)
	}
	if replay.Capacity() != 4 {
		t.Errorf("capacity: \n\twant(4)\n\thave(%v)", replay.Capacity())
	}

	batch, err = replay.Sample()
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{2, 3, 4}
	for i := range want {
		if batch.Rn[i] != want[i] {
			t.Errorf("sample: incorrect fifo order \n\twant(%v)\n\thave(%v)",
				want, batch.Rn)
			break
		}
		if s := batch.S.At(i, 1); s != -want[i] {
			t.Errorf("sample: row %v has mismatched observation "+
				"\n\twant(%v)\n\thave(%v)", i, -want[i], s)
		}
		if s := batch.SNext.At(i, 0); s != want[i]+1 {
			t.Errorf("sample: row %v has mismatched next observation "+
				"\n\twant(%v)\n\thave(%v)", i, want[i]+1, s)
		}
		if logp := batch.Logp[i]; logp != -want[i] {
			t.Errorf("sample: row %v has mismatched log-probability "+
				"\n\twant(%v)\n\thave(%v)", i, -want[i], logp)
		}
	}
}

func TestUniformDeterministic(t *testing.T) {
	c := Config{
		SampleMethod:      Uniform,
		SampleSize:        8,
		MaxReplayCapacity: 10,
		MinReplayCapacity: 1,
	}

	sample := func() []float64 {
		replay, err := c.Create(2, 1, 42)
		if err != nil {
			t.Fatal(err)
		}
		if err := replay.Add(rows(0, 10)); err != nil {
			t.Fatal(err)
		}
		batch, err := replay.Sample()
		if err != nil {
			t.Fatal(err)
		}
		return batch.Rn
	}

	first, second := sample(), sample()
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("sample: same seed should give same batch "+
				"\n\twant(%v)\n\thave(%v)", first, second)
			break
		}
		if first[i] < 0 || first[i] >= 10 {
			t.Errorf("sample: row %v not in buffer", first[i])
		}
	}
}

func TestAddInvalid(t *testing.T) {
	replay, err := Config{
		SampleMethod:      Uniform,
		SampleSize:        1,
		MaxReplayCapacity: 2,
		MinReplayCapacity: 1,
	}.Create(3, 1, 1)
	if err != nil {
		t.Fatal(err)
	}

	if err := replay.Add(rows(0, 1)); err == nil {
		t.Error("add: expected error for wrong feature size")
	}

	malformed := rows(0, 2)
	malformed.W = malformed.W[:1]
	if err := replay.Add(malformed); err == nil {
		t.Error("add: expected error for malformed batch")
	}

	if replay.Capacity() != 0 {
		t.Errorf("capacity: rejected rows should not be added "+
			"\n\twant(0)\n\thave(%v)", replay.Capacity())
	}
}

func TestInvalidConfig(t *testing.T) {
	tests := []Config{
		{SampleMethod: "Prioritized", SampleSize: 1, MaxReplayCapacity: 1,
			MinReplayCapacity: 1},
		{SampleMethod: Uniform, SampleSize: 0, MaxReplayCapacity: 1,
			MinReplayCapacity: 1},
		{SampleMethod: Uniform, SampleSize: 1, MaxReplayCapacity: 1,
			MinReplayCapacity: 2},
		{SampleMethod: Fifo, SampleSize: 1, MaxReplayCapacity: 1,
			MinReplayCapacity: 0},
	}

	for _, test := range tests {
		if _, err := test.Create(1, 1, 0); err == nil {
			t.Errorf("create: expected error for config %+v", test)
		}
	}
}

func BenchmarkUniformSample(b *testing.B) {
	replay, err := Config{
		SampleMethod:      Uniform,
		SampleSize:        64,
		MaxReplayCapacity: 10000,
		MinReplayCapacity: 64,
	}.Create(2, 1, 1)
	if err != nil {
		b.Fatal(err)
	}
	if err := replay.Add(rows(0, 10000)); err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := replay.Sample(); err != nil {
			b.Fatal(err)
		}
	}
}
