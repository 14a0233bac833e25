// Package tracing implements reward tracers, which turn a stream of
// single-step transitions into a stream of n-step bootstrapped
// transitions.
package tracing

import (
	"fmt"
	"math"
	"os"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	ts "github.com/samuelfneumann/nsteptd/timestep"
	"github.com/samuelfneumann/nsteptd/utils/intutils"
)

// sap is a cached (state, action, log-probability) tuple
type sap struct {
	s    *mat.VecDense
	a    *mat.VecDense
	logp float64
}

// NStepCache caches transitions of a single episode and emits n-step
// bootstrapped transitions. The partial return of an emitted transition
// is
//
//	Rn = r_t + γ r_{t+1} + ... + γ^{n-1} r_{t+n-1}
//
// and its bootstrap discount In is γ^n, or 0 if the episode ends
// before n more steps have been observed.
//
// Each episode rollout should own its own NStepCache. NStepCache is not
// safe for concurrent use.
type NStepCache struct {
	n      int
	gamma  float64
	gammas []float64
	gamman float64

	saps    []sap
	rewards []float64
	done    bool
}

// New returns a new NStepCache which traces n-step returns with
// discount factor gamma
func New(n int, gamma float64) (*NStepCache, error) {
	if n < 1 {
		return nil, fmt.Errorf("new: n must be positive \n\twant(>0)"+
			"\n\thave(%v)", n)
	}
	if gamma < 0 || gamma > 1 || math.IsNaN(gamma) {
		return nil, fmt.Errorf("new: discount must be in [0, 1] "+
			"\n\twant(0 <= γ <= 1)\n\thave(%v)", gamma)
	}

	c := &NStepCache{n: n, gamma: gamma}
	c.Reset()
	return c, nil
}

// N returns the number of steps to trace
func (c *NStepCache) N() int {
	return c.n
}

// Gamma returns the discount factor
func (c *NStepCache) Gamma() float64 {
	return c.gamma
}

// Reset clears the cache so that it can be used for a new episode
func (c *NStepCache) Reset() {
	if len(c.saps) > 0 {
		fmt.Fprintf(os.Stderr, "Warning: reset discards %v untraced "+
			"transitions\n", len(c.saps))
	}

	c.saps = make([]sap, 0, c.n+1)
	c.rewards = make([]float64, 0, c.n+1)
	c.done = false

	c.gammas = make([]float64, c.n)
	for k := range c.gammas {
		c.gammas[k] = math.Pow(c.gamma, float64(k))
	}
	c.gamman = math.Pow(c.gamma, float64(c.n))
}

// Add adds a transition to the cache. The state s and action a are
// copied. An error is returned if the cache still holds transitions
// from an episode which has already ended, in which case the cache
// must be drained with Pop or Flush first.
func (c *NStepCache) Add(s, a *mat.VecDense, r float64, done bool,
	logp float64) error {
	if c.done && len(c.saps) > 0 {
		return &TracingError{Op: "add", Err: errEpisodeDone}
	}
	if s == nil || a == nil {
		return fmt.Errorf("add: state and action must not be nil")
	}

	c.saps = append(c.saps, sap{
		s:    mat.VecDenseCopyOf(s),
		a:    mat.VecDenseCopyOf(a),
		logp: logp,
	})
	c.rewards = append(c.rewards, r)
	c.done = done

	return nil
}

// Len returns the number of transitions in the cache which have not
// yet been emitted
func (c *NStepCache) Len() int {
	return len(c.saps)
}

// Ready returns whether a transition can be popped from the cache
func (c *NStepCache) Ready() bool {
	return len(c.saps) > 0 && (c.done || len(c.saps) > c.n)
}

// Pop removes the oldest transition from the cache and returns it as an
// n-step bootstrapped transition batch of size 1. If fewer than n
// transitions remain in the cache after the oldest is removed, then the
// returned transition is terminal and its next state, action, and
// log-probability are those of the removed transition itself.
func (c *NStepCache) Pop() (*ts.TransitionBatch, error) {
	if !c.Ready() {
		return nil, &TracingError{Op: "pop", Err: errInsufficientCache}
	}

	popped := c.saps[0]
	c.saps = popFront(c.saps)

	k := intutils.Min(c.n, len(c.rewards))
	rn := floats.Dot(c.gammas[:k], c.rewards[:k])
	copy(c.rewards, c.rewards[1:])
	c.rewards = c.rewards[:len(c.rewards)-1]

	next, done := popped, true
	if len(c.saps) >= c.n {
		next, done = c.saps[c.n-1], false
	}

	t := ts.Transition{
		S:        popped.s,
		A:        popped.a,
		Logp:     popped.logp,
		R:        rn,
		Done:     done,
		SNext:    next.s,
		ANext:    next.a,
		LogpNext: next.logp,
	}
	return t.ToBatch(c.gamman), nil
}

// Flush pops all transitions that can currently be popped and returns
// them as a single batch
func (c *NStepCache) Flush() (*ts.TransitionBatch, error) {
	if !c.Ready() {
		return nil, &TracingError{Op: "flush", Err: errInsufficientCache}
	}

	var batches []*ts.TransitionBatch
	for c.Ready() {
		b, err := c.Pop()
		if err != nil {
			return nil, err
		}
		batches = append(batches, b)
	}
	return ts.Concat(batches...)
}

func (c *NStepCache) String() string {
	return fmt.Sprintf("NStepCache | n: %v  |  γ: %v  |  Len: %v  |  "+
		"Done: %v", c.n, c.gamma, len(c.saps), c.done)
}

// popFront removes the first element of q, reusing its backing array
func popFront(q []sap) []sap {
	copy(q, q[1:])
	q[len(q)-1] = sap{}
	return q[:len(q)-1]
}
