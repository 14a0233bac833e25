// Package maze implements maze environments using GoMaze
package maze

import (
	"fmt"

	"github.com/samuelfneumann/gomaze"
	"gonum.org/v1/gonum/mat"

	env "github.com/samuelfneumann/nsteptd/environment"
	"github.com/samuelfneumann/nsteptd/space"
	ts "github.com/samuelfneumann/nsteptd/timestep"
	"github.com/samuelfneumann/nsteptd/utils/matutils"
)

// Actions
const (
	North int = iota
	South
	West
	East
)

// Maze implements a maze environment, where the agent starts in the
// top left cell and must reach the goal in the bottom right cell.
//
// Observations are Discrete and consist of the index row*cols + col of
// the agent's cell. Actions are Discrete and move the agent one cell
// North, South, West, or East, unless a wall is in the way. A reward of
// -1 is given for each step and 0 for reaching the goal, which ends the
// episode.
type Maze struct {
	maze     *gomaze.Maze
	ender    env.Ender
	lastStep ts.TimeStep
	started  bool

	obs space.DiscreteSpace
	act space.DiscreteSpace
}

// New returns a new rows x cols maze whose walls are generated by
// init, e.g. gomaze.NewBacktracking(seed). If ender is not nil, it can
// additionally end episodes, e.g. with a environment.StepLimit.
func New(rows, cols int, init gomaze.Initer, ender env.Ender) (*Maze,
	error) {
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("new: maze dimensions must be positive "+
			"\n\twant(> 0 x > 0)\n\thave(%v x %v)", rows, cols)
	}
	if init == nil {
		return nil, fmt.Errorf("new: maze initializer must be given")
	}

	maze, err := gomaze.NewMaze(rows, cols, -1, -1, -1, -1, init, false)
	if err != nil {
		return nil, fmt.Errorf("new: could not create maze: %v", err)
	}

	obs, err := space.NewDiscrete(rows * cols)
	if err != nil {
		return nil, fmt.Errorf("new: %v", err)
	}
	act, err := space.NewDiscrete(gomaze.Actions)
	if err != nil {
		return nil, fmt.Errorf("new: %v", err)
	}

	return &Maze{
		maze:  maze,
		ender: ender,
		obs:   obs,
		act:   act,
	}, nil
}

// ObservationSpace returns the space of observations
func (m *Maze) ObservationSpace() space.Space {
	return m.obs
}

// ActionSpace returns the space of actions
func (m *Maze) ActionSpace() space.Space {
	return m.act
}

// Goal returns the observation of the goal cell
func (m *Maze) Goal() *mat.VecDense {
	row, col := m.maze.Goal()
	return m.index(col, row)
}

// Reset resets the environment, moving the agent to the starting cell
func (m *Maze) Reset() (ts.TimeStep, error) {
	pos := m.maze.Reset()
	m.lastStep = ts.New(ts.First, 0, m.index(int(pos[0]), int(pos[1])), 0)
	m.started = true
	return m.lastStep, nil
}

// Step takes one environmental step given action a and returns the next
// timestep. Step returns an error if called before Reset or after the
// episode has ended.
func (m *Maze) Step(a *mat.VecDense) (ts.TimeStep, error) {
	if !m.started || m.lastStep.Last() {
		return ts.TimeStep{}, fmt.Errorf("step: environment must be reset " +
			"before stepping")
	}
	if !m.act.Contains(a) {
		return ts.TimeStep{}, fmt.Errorf("step: illegal action %v ∉ "+
			"[0, %v)", matutils.Format(a.T()), m.act.N)
	}

	pos, reward, atGoal, err := m.maze.Step(int(a.AtVec(0)))
	if err != nil {
		return ts.TimeStep{}, fmt.Errorf("step: %v", err)
	}
	nextStep := ts.New(ts.Mid, reward, m.index(int(pos[0]), int(pos[1])),
		m.lastStep.Number+1)

	if atGoal {
		nextStep.StepType = ts.Last
	} else if m.ender != nil {
		m.ender.End(&nextStep)
	}

	m.lastStep = nextStep
	return nextStep, nil
}

// index returns the observation of the cell at (col, row)
func (m *Maze) index(col, row int) *mat.VecDense {
	return mat.NewVecDense(1, []float64{float64(m.maze.Index(col, row))})
}

func (m *Maze) String() string {
	return m.maze.String()
}
