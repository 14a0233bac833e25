// Package cartpole implements the Cartpole classic control environment
package cartpole

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"

	env "github.com/samuelfneumann/nsteptd/environment"
	"github.com/samuelfneumann/nsteptd/space"
	ts "github.com/samuelfneumann/nsteptd/timestep"
	"github.com/samuelfneumann/nsteptd/utils/matutils"
)

const (
	// Physical constants
	Gravity        float64 = 9.8
	CartMass       float64 = 1.0
	PoleMass       float64 = 0.1
	TotalMass      float64 = CartMass + PoleMass
	HalfPoleLength float64 = 0.5  // half of pole length
	ForceMag       float64 = 10.0 // Magnification of force applied
	Dt             float64 = 0.02 // seconds between state updates

	// Episodes end when the cart position or pole angle leave these
	// bounds (+/-)
	PositionThreshold float64 = 2.4
	AngleThreshold    float64 = 12 * 2 * math.Pi / 360

	// Bounds of starting state features (+/-)
	StartBounds float64 = 0.05

	// Actions
	Left  int = 0
	Right int = 1
)

// Cartpole implements the classic control environment Cartpole. In
// this environment, a pole is attached to a cart, which can move
// horizontally. The agent must keep the pole upright for as long as
// possible.
//
// The state features are continuous and consist of the cart's x
// position and speed, as well as the pole's angle from the positive
// y-axis and the pole's angular velocity. Episodes end when the cart
// leaves [-2.4, 2.4] or the pole angle leaves ±12 degrees, or when the
// optional Ender ends them.
//
// Actions are discrete and consist of the direction of the force
// applied to the cart:
//
//	Action	Meaning
//	  0		Push left
//	  1		Push right
//
// A reward of +1 is given for every step.
type Cartpole struct {
	env.Starter
	ender    env.Ender
	boundary *env.IntervalLimit
	lastStep ts.TimeStep
	started  bool

	obs space.BoxSpace
	act space.DiscreteSpace
}

// New constructs a new Cartpole environment. Starting states are
// sampled uniformly from [-0.05, 0.05] for each feature. If ender is
// not nil, it can additionally end episodes, e.g. with a
// environment.StepLimit.
func New(ender env.Ender, seed uint64) (*Cartpole, error) {
	bounds := make([]r1.Interval, 4)
	for i := range bounds {
		bounds[i] = r1.Interval{Min: -StartBounds, Max: StartBounds}
	}
	starter := env.NewUniformStarter(bounds, seed)

	boundary, err := env.NewIntervalLimit([]r1.Interval{
		{Min: -PositionThreshold, Max: PositionThreshold},
		{Min: -AngleThreshold, Max: AngleThreshold},
	}, []int{0, 2})
	if err != nil {
		return nil, fmt.Errorf("new: %v", err)
	}

	high := []float64{PositionThreshold * 2, math.Inf(1), AngleThreshold * 2,
		math.Inf(1)}
	low := make([]float64, len(high))
	for i := range low {
		low[i] = -high[i]
	}
	obs, err := space.NewBoxBounds(low, high, []int{4})
	if err != nil {
		return nil, fmt.Errorf("new: %v", err)
	}
	act, err := space.NewDiscrete(2)
	if err != nil {
		return nil, fmt.Errorf("new: %v", err)
	}

	return &Cartpole{
		Starter:  starter,
		ender:    ender,
		boundary: boundary,
		obs:      obs,
		act:      act,
	}, nil
}

// ObservationSpace returns the space of observations
func (c *Cartpole) ObservationSpace() space.Space {
	return c.obs
}

// ActionSpace returns the space of actions
func (c *Cartpole) ActionSpace() space.Space {
	return c.act
}

// Reset resets the environment and returns a starting state drawn from
// the environment Starter
func (c *Cartpole) Reset() (ts.TimeStep, error) {
	state := c.Start()
	if !c.obs.Contains(state) {
		return ts.TimeStep{}, fmt.Errorf("reset: starting state %v not in "+
			"observation space %v", matutils.Format(state.T()), c.obs)
	}

	c.lastStep = ts.New(ts.First, 0, state, 0)
	c.started = true
	return c.lastStep, nil
}

// Step takes one environmental step given action a and returns the next
// timestep. Step returns an error if called before Reset or after the
// episode has ended.
func (c *Cartpole) Step(a *mat.VecDense) (ts.TimeStep, error) {
	if !c.started || c.lastStep.Last() {
		return ts.TimeStep{}, fmt.Errorf("step: environment must be reset " +
			"before stepping")
	}
	if !c.act.Contains(a) {
		return ts.TimeStep{}, fmt.Errorf("step: illegal action %v ∉ "+
			"{0, 1}", matutils.Format(a.T()))
	}

	// Get state variables
	state := c.lastStep.Observation
	x, xDot := state.AtVec(0), state.AtVec(1)
	th, thDot := state.AtVec(2), state.AtVec(3)

	force := -ForceMag
	if int(a.AtVec(0)) == Right {
		force = ForceMag
	}

	// Calculate physical variables to determine next state
	cosTheta := math.Cos(th)
	sinTheta := math.Sin(th)
	poleMassLength := PoleMass * HalfPoleLength

	temp := (force + poleMassLength*thDot*thDot*sinTheta) / TotalMass
	thAcc := (Gravity*sinTheta - cosTheta*temp) / (HalfPoleLength *
		(4.0/3.0 - PoleMass*cosTheta*cosTheta/TotalMass))
	xAcc := temp - poleMassLength*thAcc*cosTheta/TotalMass

	// Update state variables using Euler kinematic integration
	x += Dt * xDot
	xDot += Dt * xAcc
	th += Dt * thDot
	thDot += Dt * thAcc

	newState := mat.NewVecDense(4, []float64{x, xDot, th, thDot})
	c.obs.Clip(newState)
	nextStep := ts.New(ts.Mid, 1.0, newState, c.lastStep.Number+1)

	// Leaving the boundary is terminal and never marked as truncated
	if !c.boundary.End(&nextStep) && c.ender != nil {
		c.ender.End(&nextStep)
	}

	c.lastStep = nextStep
	return nextStep, nil
}

func (c *Cartpole) String() string {
	msg := "Cartpole  |  Position: %v  | Speed: %v  |  Angle: %v" +
		"  |  Angular Velocity: %v"

	state := c.lastStep.Observation
	if state == nil {
		return "Cartpole  |  Not started"
	}
	position, speed := state.AtVec(0), state.AtVec(1)
	angle, velocity := state.AtVec(2), state.AtVec(3)

	return fmt.Sprintf(msg, position, speed, angle, velocity)
}
