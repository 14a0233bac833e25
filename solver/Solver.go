// Package solver implements functionality to wrap Gorgonia Solvers
// so that they can be JSON serialized into configuration files.
package solver

import (
	"encoding/json"
	"fmt"

	G "gorgonia.org/gorgonia"
)

// Type describes different types of solvers that are available
type Type string

// Available solver types
const (
	Adam    Type = "Adam"
	Vanilla Type = "Vanilla"
	RMSProp Type = "RMSProp"
)

// solverType describes how a Gorgonia Solver of some Type is created
// and which of the Config hyperparameters it uses
type solverType struct {
	create  func(opts ...G.SolverOpt) G.Solver
	options func(c Config) []G.SolverOpt
}

var solverTypes = map[Type]solverType{
	Adam: {
		create: func(opts ...G.SolverOpt) G.Solver {
			return G.NewAdamSolver(opts...)
		},
		options: func(c Config) []G.SolverOpt {
			return []G.SolverOpt{
				G.WithEps(c.Epsilon),
				G.WithBeta1(c.Beta1),
				G.WithBeta2(c.Beta2),
			}
		},
	},
	RMSProp: {
		create: func(opts ...G.SolverOpt) G.Solver {
			return G.NewRMSPropSolver(opts...)
		},
		options: func(c Config) []G.SolverOpt {
			// Gorgonia only supports the default η = 0.001
			return []G.SolverOpt{G.WithEps(c.Epsilon), G.WithRho(c.Rho)}
		},
	},
	Vanilla: {
		create: func(opts ...G.SolverOpt) G.Solver {
			return G.NewVanillaSolver(opts...)
		},
		options: func(Config) []G.SolverOpt { return nil },
	},
}

// Config describes the hyperparameters of a solver. Hyperparameters
// which a solver Type does not use are ignored.
type Config struct {
	StepSize float64
	Batch    int
	Clip     float64 `json:",omitempty"` // <= 0 if no clipping

	Epsilon float64 `json:",omitempty"` // Smoothing factor
	Beta1   float64 `json:",omitempty"`
	Beta2   float64 `json:",omitempty"`
	Rho     float64 `json:",omitempty"`
}

// Validate returns an error if a solver of type t cannot be created
// with the Config
func (c Config) Validate(t Type) error {
	if _, ok := solverTypes[t]; !ok {
		return fmt.Errorf("validate: unknown solver type %v", t)
	}
	if c.StepSize <= 0 {
		return fmt.Errorf("validate: step size must be positive "+
			"\n\twant(>0)\n\thave(%v)", c.StepSize)
	}
	if c.Batch <= 0 {
		return fmt.Errorf("validate: batch size must be positive "+
			"\n\twant(>0)\n\thave(%v)", c.Batch)
	}
	return nil
}

// Create returns a new Gorgonia Solver of type t as described by the
// Config. Each call returns a solver with a fresh internal state.
func (c Config) Create(t Type) (G.Solver, error) {
	if err := c.Validate(t); err != nil {
		return nil, fmt.Errorf("create: %v", err)
	}

	ty := solverTypes[t]
	opts := []G.SolverOpt{
		G.WithLearnRate(c.StepSize),
		G.WithBatchSize(float64(c.Batch)),
	}
	opts = append(opts, ty.options(c)...)
	if c.Clip > 0 {
		opts = append(opts, G.WithClip(c.Clip))
	}

	return ty.create(opts...), nil
}

// Solver wraps Gorgonia Solvers so that they can be JSON marshalled and
// unmarshalled.
type Solver struct {
	G.Solver `json:"-"`
	Type
	Config `json:"Config"`
}

// New returns a new solver with the given type and configuration
func New(t Type, c Config) (*Solver, error) {
	solver, err := c.Create(t)
	if err != nil {
		return nil, fmt.Errorf("new: %v", err)
	}
	return &Solver{Solver: solver, Type: t, Config: c}, nil
}

// NewDefaultAdam returns a new Adam Solver with default hyperparameters
func NewDefaultAdam(stepSize float64, batchSize int) (*Solver, error) {
	return NewAdam(stepSize, 1e-8, 0.9, 0.999, batchSize)
}

// NewAdam returns a new Adam Solver
func NewAdam(stepSize, epsilon, beta1, beta2 float64, batchSize int) (*Solver,
	error) {
	return New(Adam, Config{
		StepSize: stepSize,
		Batch:    batchSize,
		Epsilon:  epsilon,
		Beta1:    beta1,
		Beta2:    beta2,
	})
}

// NewRMSProp returns a new RMSProp Solver
func NewRMSProp(stepSize, epsilon, rho float64, batchSize int,
	clip float64) (*Solver, error) {
	return New(RMSProp, Config{
		StepSize: stepSize,
		Batch:    batchSize,
		Clip:     clip,
		Epsilon:  epsilon,
		Rho:      rho,
	})
}

// NewVanilla returns a new Vanilla Solver
func NewVanilla(stepSize float64, batchSize int, clip float64) (*Solver,
	error) {
	return New(Vanilla, Config{StepSize: stepSize, Batch: batchSize,
		Clip: clip})
}

// NewSGD returns a new Vanilla Solver which takes unclipped steps of
// size stepSize on single batches
func NewSGD(stepSize float64) (*Solver, error) {
	return NewVanilla(stepSize, 1, -1.0)
}

// Clone returns a new Solver with the same configuration and a fresh
// internal state, so that the clone can be used to optimize a different
// set of parameters.
func (s *Solver) Clone() *Solver {
	// The configuration was validated when s was created
	solver, err := s.Config.Create(s.Type)
	if err != nil {
		panic(fmt.Sprintf("clone: %v", err))
	}
	return &Solver{Solver: solver, Type: s.Type, Config: s.Config}
}

// UnmarshalJSON implements the json.Unmarshaller interface
func (s *Solver) UnmarshalJSON(data []byte) error {
	type config struct {
		Type   Type
		Config Config
	}
	var c config
	if err := json.Unmarshal(data, &c); err != nil {
		return err
	}
	if c.Type == "" {
		return fmt.Errorf("unmarshalJSON: missing field Type")
	}

	solver, err := New(c.Type, c.Config)
	if err != nil {
		return fmt.Errorf("unmarshalJSON: %v", err)
	}
	*s = *solver
	return nil
}
