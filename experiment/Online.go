// Package experiment implements functionality for running an experiment
package experiment

import (
	"fmt"
	"io"
	"sort"

	"github.com/google/uuid"
	"github.com/logrusorgru/aurora"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	env "github.com/samuelfneumann/nsteptd/environment"
	"github.com/samuelfneumann/nsteptd/experiment/trackers"
	"github.com/samuelfneumann/nsteptd/expreplay"
	ts "github.com/samuelfneumann/nsteptd/timestep"
	"github.com/samuelfneumann/nsteptd/tracing"
)

// Actor selects actions in an environment. *approx.Policy is an Actor.
type Actor interface {
	SampleLogp(s *mat.VecDense) (*mat.VecDense, float64, error)
}

// Updater learns from batches of n-step transitions. *td.SimpleTD is
// an Updater.
type Updater interface {
	Update(b *ts.TransitionBatch) (map[string]float64, error)
}

// targetSyncer is an Updater with a target network
type targetSyncer interface {
	SyncTarget(tau float64) error
}

// Config represents a configuration of an online experiment
type Config struct {
	// MaxSteps is the total number of environment steps to run
	MaxSteps int

	// N and Gamma configure the n-step reward tracing
	N     int
	Gamma float64

	// Replay configures an optional experience replay buffer. If nil,
	// the Updater learns from each traced transition batch directly.
	Replay *expreplay.Config

	// SyncEvery is the number of updates between target network syncs
	// with step size Tau. Targets are never synced if SyncEvery is 0.
	SyncEvery int
	Tau       float64
}

// Online is an experiment that runs an agent online, tracing n-step
// transitions from the environment and updating after each step.
type Online struct {
	env     env.Environment
	actor   Actor
	updater Updater
	cache   *tracing.NStepCache
	replay  expreplay.ExperienceReplayer

	maxSteps     int
	currentSteps int
	episodes     int
	updates      int
	syncEvery    int
	tau          float64

	trackers []trackers.Tracker
	returns  []float64
	metrics  map[string]float64

	runID uuid.UUID
	out   io.Writer
}

// NewOnline creates and returns a new online experiment. Episode
// summaries are written to out if it is not nil.
func NewOnline(e env.Environment, actor Actor, updater Updater, c Config,
	out io.Writer, seed uint64, t ...trackers.Tracker) (*Online, error) {
	if c.MaxSteps <= 0 {
		return nil, fmt.Errorf("newOnline: maximum steps must be positive "+
			"\n\twant(> 0)\n\thave(%v)", c.MaxSteps)
	}
	if c.SyncEvery < 0 {
		return nil, fmt.Errorf("newOnline: sync interval must be "+
			"non-negative \n\twant(>= 0)\n\thave(%v)", c.SyncEvery)
	}

	cache, err := tracing.New(c.N, c.Gamma)
	if err != nil {
		return nil, fmt.Errorf("newOnline: %v", err)
	}

	var replay expreplay.ExperienceReplayer
	if c.Replay != nil {
		replay, err = c.Replay.Create(e.ObservationSpace().Dim(),
			e.ActionSpace().Dim(), seed)
		if err != nil {
			return nil, fmt.Errorf("newOnline: %v", err)
		}
	}

	return &Online{
		env:       e,
		actor:     actor,
		updater:   updater,
		cache:     cache,
		replay:    replay,
		maxSteps:  c.MaxSteps,
		syncEvery: c.SyncEvery,
		tau:       c.Tau,
		trackers:  t,
		runID:     uuid.New(),
		out:       out,
	}, nil
}

// RunID returns the unique ID of the experiment run
func (o *Online) RunID() uuid.UUID {
	return o.runID
}

// Register registers a Tracker with the experiment so that data
// generated during the experiment can be tracked and saved
func (o *Online) Register(t trackers.Tracker) {
	o.trackers = append(o.trackers, t)
}

// Returns returns the returns of all finished episodes
func (o *Online) Returns() []float64 {
	return append([]float64(nil), o.returns...)
}

// Metrics returns the metrics of the most recent update
func (o *Online) Metrics() map[string]float64 {
	metrics := make(map[string]float64, len(o.metrics))
	for k, v := range o.metrics {
		metrics[k] = v
	}
	return metrics
}

// Steps returns the number of environment steps taken so far
func (o *Online) Steps() int {
	return o.currentSteps
}

// RunEpisode runs a single episode of the experiment and returns
// whether the maximum number of steps has been reached
func (o *Online) RunEpisode() (bool, error) {
	step, err := o.env.Reset()
	if err != nil {
		return false, fmt.Errorf("runEpisode: %v", err)
	}
	o.cache.Reset()
	o.track(step)

	episodeReturn := 0.0
	for !step.Last() && o.currentSteps < o.maxSteps {
		o.currentSteps++

		action, logp, err := o.actor.SampleLogp(step.Observation)
		if err != nil {
			return false, fmt.Errorf("runEpisode: %v", err)
		}
		next, err := o.env.Step(action)
		if err != nil {
			return false, fmt.Errorf("runEpisode: %v", err)
		}
		o.track(next)
		episodeReturn += next.Reward

		err = o.cache.Add(step.Observation, action, next.Reward, next.Last(),
			logp)
		if err != nil {
			return false, fmt.Errorf("runEpisode: %v", err)
		}

		if next.Last() {
			// Emit all remaining transitions of the episode at once
			batch, err := o.cache.Flush()
			if err != nil {
				return false, fmt.Errorf("runEpisode: %v", err)
			}
			if err := o.learn(batch); err != nil {
				return false, fmt.Errorf("runEpisode: %v", err)
			}
		} else {
			for o.cache.Ready() {
				batch, err := o.cache.Pop()
				if err != nil {
					return false, fmt.Errorf("runEpisode: %v", err)
				}
				if err := o.learn(batch); err != nil {
					return false, fmt.Errorf("runEpisode: %v", err)
				}
			}
		}

		step = next
	}

	if step.Last() {
		o.episodes++
		o.returns = append(o.returns, episodeReturn)
		o.summarize(step, episodeReturn)
	}
	o.cache.Reset()

	return o.currentSteps >= o.maxSteps, nil
}

// Run runs the entire experiment for all timesteps
func (o *Online) Run() error {
	for {
		ended, err := o.RunEpisode()
		if err != nil {
			return fmt.Errorf("run: %v", err)
		}
		if ended {
			break
		}
	}

	if o.out != nil && len(o.returns) > 0 {
		mean, std := stat.MeanStdDev(o.returns, nil)
		fmt.Fprintf(o.out, "%v finished %v episodes in %v steps  |  "+
			"Return: %.3f ± %.3f\n", aurora.Cyan(o.runID.String()),
			o.episodes, o.currentSteps, mean, std)
	}
	return nil
}

// Save saves all the data cached by the Trackers to disk
func (o *Online) Save() error {
	for _, tracker := range o.trackers {
		if err := tracker.Save(); err != nil {
			return fmt.Errorf("save: %v", err)
		}
	}
	return nil
}

// learn updates the Updater with a traced batch of transitions, or
// with a batch sampled from the replay buffer if one is used
func (o *Online) learn(batch *ts.TransitionBatch) error {
	if o.replay != nil {
		if err := o.replay.Add(batch); err != nil {
			return fmt.Errorf("learn: %v", err)
		}

		var err error
		batch, err = o.replay.Sample()
		if expreplay.IsEmptyBuffer(err) ||
			expreplay.IsInsufficientSamples(err) {
			return nil
		} else if err != nil {
			return fmt.Errorf("learn: %v", err)
		}
	}

	metrics, err := o.updater.Update(batch)
	if err != nil {
		return fmt.Errorf("learn: %v", err)
	}
	o.metrics = metrics
	o.updates++

	if syncer, ok := o.updater.(targetSyncer); ok && o.syncEvery > 0 &&
		o.updates%o.syncEvery == 0 {
		if err := syncer.SyncTarget(o.tau); err != nil {
			return fmt.Errorf("learn: %v", err)
		}
	}
	return nil
}

// track tracks the current timestep by caching its data in each Tracker
func (o *Online) track(t ts.TimeStep) {
	for _, tracker := range o.trackers {
		tracker.Track(t)
	}
}

// summarize writes a summary of a finished episode
func (o *Online) summarize(last ts.TimeStep, episodeReturn float64) {
	if o.out == nil {
		return
	}

	names := make([]string, 0, len(o.metrics))
	for name := range o.metrics {
		names = append(names, name)
	}
	sort.Strings(names)

	metrics := ""
	for _, name := range names {
		metrics += fmt.Sprintf("  |  %v: %.4f", name, o.metrics[name])
	}

	ending := aurora.Green("terminated")
	if truncated, _ := last.Info[env.TruncatedKey].(bool); truncated {
		ending = aurora.Yellow("truncated")
	}

	fmt.Fprintf(o.out, "%v Episode %v %v after %v steps  |  Return: %v%v\n",
		aurora.Cyan(o.runID.String()[:8]), aurora.Bold(o.episodes), ending,
		last.Number, aurora.Magenta(fmt.Sprintf("%.3f", episodeReturn)),
		metrics)
}
