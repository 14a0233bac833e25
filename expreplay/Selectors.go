package expreplay

import (
	"fmt"

	"golang.org/x/exp/rand"

	"github.com/samuelfneumann/nsteptd/utils/intutils"
)

// SelectorType determines how rows are drawn from a buffer
type SelectorType string

const (
	Uniform SelectorType = "Uniform"
	Fifo    SelectorType = "Fifo"
)

// Selector implements functionality for choosing which rows of an
// experience replay buffer should be sampled
type Selector interface {
	// choose selects the indices at which rows should be sampled from
	// the experience replay buffer
	choose(c *cache) []int

	// BatchSize returns the maximum number of rows that will be
	// selected
	BatchSize() int
}

// NewSelector returns a new Selector of type t which selects samples
// rows at a time
func NewSelector(t SelectorType, samples int, seed uint64) (Selector,
	error) {
	if samples <= 0 {
		return nil, fmt.Errorf("newSelector: batch size must be positive "+
			"\n\twant(> 0)\n\thave(%v)", samples)
	}

	switch t {
	case Uniform:
		return NewUniformSelector(samples, seed), nil
	case Fifo:
		return NewFifoSelector(samples), nil
	}
	return nil, fmt.Errorf("newSelector: no such selector type %v", t)
}

// uniformSelector is a Selector which selects rows from an experience
// replay buffer uniformly randomly with replacement
type uniformSelector struct {
	samples int
	rng     *rand.Rand
}

// NewUniformSelector returns a new Selector which selects rows
// uniformly randomly from an experience replay buffer
func NewUniformSelector(samples int, seed uint64) Selector {
	source := rand.NewSource(seed)
	rng := rand.New(source)

	return &uniformSelector{samples: samples, rng: rng}
}

// BatchSize gets the number of samples in a batch drawn from the buffer
func (u *uniformSelector) BatchSize() int {
	return u.samples
}

// choose selects a number of indices at which to draw rows from the
// buffer
func (u *uniformSelector) choose(c *cache) []int {
	selected := make([]int, u.BatchSize())
	inUse := c.sampleFrom()

	for i := range selected {
		selected[i] = inUse[u.rng.Intn(len(inUse))]
	}

	return selected
}

// fifoSelector is a Selector which selects the oldest rows of an
// experience replay buffer first
type fifoSelector struct {
	samples int
}

// NewFifoSelector returns a new Selector which draws rows from an
// experience replay buffer as first-in-first-out
func NewFifoSelector(samples int) Selector {
	return &fifoSelector{samples: samples}
}

// BatchSize gets the number of samples in a batch drawn from the buffer
func (f *fifoSelector) BatchSize() int {
	return f.samples
}

// choose selects a number of indices at which to draw rows from the
// buffer. If fewer rows than the batch size are in the buffer, all rows
// are selected.
func (f *fifoSelector) choose(c *cache) []int {
	n := intutils.Min(f.BatchSize(), c.Capacity())
	return c.insertOrder(n)
}
