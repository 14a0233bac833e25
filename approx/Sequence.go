package approx

import (
	"gonum.org/v1/gonum/mat"
)

// Prediction is a single prediction of a model, together with its
// log-probability
type Prediction struct {
	X    *mat.VecDense
	Logp float64
}

// Sequence is a lazy, finite sequence of predictions, one per discrete
// action in action index order. Predictions are computed as the
// Sequence is iterated, and a Sequence can be restarted with Reset.
//
//	for seq.Next() {
//		p := seq.Prediction()
//		...
//	}
//	if err := seq.Err(); err != nil {
//		...
//	}
type Sequence struct {
	n  int
	at func(i int) (Prediction, error)

	i    int
	curr Prediction
	err  error
}

func newSequence(n int, at func(int) (Prediction, error)) *Sequence {
	return &Sequence{n: n, at: at}
}

// Len returns the number of predictions in the Sequence
func (s *Sequence) Len() int {
	return s.n
}

// Next computes the next prediction and returns whether it exists.
// Iteration stops at the first error.
func (s *Sequence) Next() bool {
	if s.err != nil || s.i >= s.n {
		return false
	}
	s.curr, s.err = s.at(s.i)
	s.i++
	return s.err == nil
}

// Prediction returns the prediction computed by the last call to Next
func (s *Sequence) Prediction() Prediction {
	return s.curr
}

// Action returns the index of the action of the current prediction
func (s *Sequence) Action() int {
	return s.i - 1
}

// Err returns the error which stopped iteration, if any
func (s *Sequence) Err() error {
	return s.err
}

// Reset restarts the Sequence from the first action
func (s *Sequence) Reset() {
	s.i = 0
	s.curr = Prediction{}
	s.err = nil
}

// All restarts the Sequence and returns all its predictions
func (s *Sequence) All() ([]Prediction, error) {
	s.Reset()
	predictions := make([]Prediction, 0, s.n)
	for s.Next() {
		predictions = append(predictions, s.Prediction())
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	return predictions, nil
}
