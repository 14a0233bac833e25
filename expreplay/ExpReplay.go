// Package expreplay implements experience replay buffers which store
// rows of (possibly n-step) transitions and sample them in batches.
package expreplay

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/samuelfneumann/nsteptd/timestep"
)

// Config implements a specific configuration of an ExperienceReplayer
type Config struct {
	SampleMethod      SelectorType
	SampleSize        int
	MaxReplayCapacity int
	MinReplayCapacity int
}

// Create creates and returns the ExperienceReplayer with the specified
// Config for observations with featureSize features and actions with
// actionSize dimensions.
func (c Config) Create(featureSize, actionSize int,
	seed uint64) (ExperienceReplayer, error) {
	sampler, err := NewSelector(c.SampleMethod, c.SampleSize, seed)
	if err != nil {
		return nil, fmt.Errorf("create: %v", err)
	}

	return New(sampler, c.MinReplayCapacity, c.MaxReplayCapacity,
		featureSize, actionSize)
}

// ExperienceReplayer implements an experience replay buffer
type ExperienceReplayer interface {
	// Add adds every row of a batch of transitions to the buffer
	Add(b *timestep.TransitionBatch) error

	// Sample samples a batch of transition rows from the buffer
	Sample() (*timestep.TransitionBatch, error)

	// Capacity returns the current number of rows in the buffer
	Capacity() int

	// MaxCapacity returns the maximum allowable rows in the buffer
	MaxCapacity() int

	// MinCapacity returns the number of rows required to be in the
	// buffer before the buffer can be sampled
	MinCapacity() int

	// BatchSize returns the number of rows returned by Sample()
	BatchSize() int
}

// cache implements a concrete ExperienceReplayer as a ring of fixed
// capacity. Once full, the oldest rows are overwritten first.
type cache struct {
	stateCache      []float64
	actionCache     []float64
	logpCache       []float64
	rewardCache     []float64
	discountCache   []float64
	nextStateCache  []float64
	nextActionCache []float64
	logpNextCache   []float64
	weightCache     []float64

	indices         []int
	currentInUsePos int
	isFull          bool

	sampler Selector

	minCapacity int
	maxCapacity int
	featureSize int
	actionSize  int
}

// New returns a new ExperienceReplayer which draws batches with the
// sampler
func New(sampler Selector, minCapacity, maxCapacity, featureSize,
	actionSize int) (ExperienceReplayer, error) {
	if minCapacity <= 0 {
		return nil, fmt.Errorf("new: minimum capacity must be positive "+
			"\n\twant(> 0)\n\thave(%v)", minCapacity)
	}
	if maxCapacity < minCapacity {
		return nil, fmt.Errorf("new: maximum capacity must be at least the "+
			"minimum capacity \n\twant(>= %v)\n\thave(%v)", minCapacity,
			maxCapacity)
	}
	if featureSize <= 0 || actionSize <= 0 {
		return nil, fmt.Errorf("new: feature and action sizes must be "+
			"positive \n\twant(> 0, > 0)\n\thave(%v, %v)", featureSize,
			actionSize)
	}

	indices := make([]int, maxCapacity)
	for i := range indices {
		indices[i] = i
	}

	return &cache{
		stateCache:      make([]float64, maxCapacity*featureSize),
		actionCache:     make([]float64, maxCapacity*actionSize),
		logpCache:       make([]float64, maxCapacity),
		rewardCache:     make([]float64, maxCapacity),
		discountCache:   make([]float64, maxCapacity),
		nextStateCache:  make([]float64, maxCapacity*featureSize),
		nextActionCache: make([]float64, maxCapacity*actionSize),
		logpNextCache:   make([]float64, maxCapacity),
		weightCache:     make([]float64, maxCapacity),

		indices:         indices,
		currentInUsePos: 0,
		isFull:          false,

		sampler: sampler,

		minCapacity: minCapacity,
		maxCapacity: maxCapacity,
		featureSize: featureSize,
		actionSize:  actionSize,
	}, nil
}

// String returns the string representation of the cache
func (c *cache) String() string {
	return fmt.Sprintf("ExpReplay | Capacity: %v / %v  |  Rewards: %v  |  "+
		"Discounts: %v", c.Capacity(), c.MaxCapacity(),
		c.rewardCache[:c.Capacity()], c.discountCache[:c.Capacity()])
}

// BatchSize returns the number of samples sampled using Sample()
func (c *cache) BatchSize() int {
	return c.sampler.BatchSize()
}

// insertOrder returns the first n indices in the order their rows were
// added to the buffer, oldest first
func (c *cache) insertOrder(n int) []int {
	if !c.isFull {
		return append([]int(nil), c.indices[:n]...)
	}

	order := make([]int, n)
	for i := range order {
		order[i] = c.indices[(c.currentInUsePos+i)%c.maxCapacity]
	}
	return order
}

// sampleFrom returns the slice of indices to sample from
func (c *cache) sampleFrom() []int {
	if !c.isFull {
		return c.indices[:c.currentInUsePos]
	}
	return c.indices
}

// Sample samples and returns a batch of transition rows from the
// replay buffer
func (c *cache) Sample() (*timestep.TransitionBatch, error) {
	if c.Capacity() == 0 {
		return nil, &ExpReplayError{Op: "sample", Err: errEmptyCache}
	}
	if c.Capacity() < c.MinCapacity() {
		return nil, &ExpReplayError{Op: "sample", Err: errInsufficientSamples}
	}

	indices := c.sampler.choose(c)
	n := len(indices)

	stateBatch := make([]float64, n*c.featureSize)
	nextStateBatch := make([]float64, n*c.featureSize)
	actionBatch := make([]float64, n*c.actionSize)
	nextActionBatch := make([]float64, n*c.actionSize)

	batch := &timestep.TransitionBatch{
		Logp:     make([]float64, n),
		Rn:       make([]float64, n),
		In:       make([]float64, n),
		LogpNext: make([]float64, n),
		W:        make([]float64, n),
	}

	for i, index := range indices {
		copyInto(stateBatch, i*c.featureSize, c.stateCache, index*c.featureSize,
			c.featureSize)
		copyInto(nextStateBatch, i*c.featureSize, c.nextStateCache,
			index*c.featureSize, c.featureSize)
		copyInto(actionBatch, i*c.actionSize, c.actionCache,
			index*c.actionSize, c.actionSize)
		copyInto(nextActionBatch, i*c.actionSize, c.nextActionCache,
			index*c.actionSize, c.actionSize)

		batch.Logp[i] = c.logpCache[index]
		batch.Rn[i] = c.rewardCache[index]
		batch.In[i] = c.discountCache[index]
		batch.LogpNext[i] = c.logpNextCache[index]
		batch.W[i] = c.weightCache[index]
	}

	batch.S = mat.NewDense(n, c.featureSize, stateBatch)
	batch.A = mat.NewDense(n, c.actionSize, actionBatch)
	batch.SNext = mat.NewDense(n, c.featureSize, nextStateBatch)
	batch.ANext = mat.NewDense(n, c.actionSize, nextActionBatch)

	return batch, nil
}

// Capacity returns the current number of rows in the cache that are
// available for sampling
func (c *cache) Capacity() int {
	if c.isFull {
		return c.MaxCapacity()
	}
	return c.currentInUsePos
}

// MaxCapacity returns the maximum number of rows that are allowed in
// the cache
func (c *cache) MaxCapacity() int {
	return c.maxCapacity
}

// MinCapacity returns the minimum number of rows required in the cache
// before sampling is allowed
func (c *cache) MinCapacity() int {
	return c.minCapacity
}

// Add adds every row of a batch of transitions to the cache. If the
// cache is full, the oldest rows are overwritten.
func (c *cache) Add(b *timestep.TransitionBatch) error {
	if err := b.Validate(); err != nil {
		return &ExpReplayError{Op: "add", Err: err}
	}
	if _, cols := b.S.Dims(); cols != c.featureSize {
		return fmt.Errorf("add: invalid feature size \n\twant(%v)\n\thave(%v)",
			c.featureSize, cols)
	}
	if _, cols := b.A.Dims(); cols != c.actionSize {
		return fmt.Errorf("add: invalid action size \n\twant(%v)\n\thave(%v)",
			c.actionSize, cols)
	}

	for i := 0; i < b.Len(); i++ {
		index := c.currentInUsePos

		stateInd := index * c.featureSize
		copy(c.stateCache[stateInd:stateInd+c.featureSize], b.S.RawRowView(i))
		copy(c.nextStateCache[stateInd:stateInd+c.featureSize],
			b.SNext.RawRowView(i))

		actionInd := index * c.actionSize
		copy(c.actionCache[actionInd:actionInd+c.actionSize], b.A.RawRowView(i))
		copy(c.nextActionCache[actionInd:actionInd+c.actionSize],
			b.ANext.RawRowView(i))

		c.logpCache[index] = b.Logp[i]
		c.rewardCache[index] = b.Rn[i]
		c.discountCache[index] = b.In[i]
		c.logpNextCache[index] = b.LogpNext[i]
		c.weightCache[index] = b.W[i]

		if !c.isFull && index+1 == c.MaxCapacity() {
			c.isFull = true
		}
		c.currentInUsePos = (c.currentInUsePos + 1) % c.MaxCapacity()
	}
	return nil
}

// copyInto copies n elements of src starting at srcStart into dst
// starting at dstStart
func copyInto(dst []float64, dstStart int, src []float64, srcStart, n int) {
	copy(dst[dstStart:dstStart+n], src[srcStart:srcStart+n])
}
