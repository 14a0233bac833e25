package environment

import "github.com/samuelfneumann/nsteptd/timestep"

// TruncatedKey is the Info key set to true on timesteps whose episode
// was ended by a StepLimit rather than by reaching a terminal state
const TruncatedKey = "truncated"

// StepLimit implements the Ender interface to end episodes at specific
// timestep limits
type StepLimit struct {
	episodeSteps int
}

// NewStepLimit creates and returns a new step limit
func NewStepLimit(episodeSteps int) StepLimit {
	return StepLimit{episodeSteps}
}

// End determines whether or not the current episode should be ended,
// returning a boolean to indicate episode termination. If the episode
// should be ended End() will modify the timestep so that its StepType
// field is timestep.Last and mark it as truncated.
func (s StepLimit) End(t *timestep.TimeStep) bool {
	if t.Number >= s.episodeSteps {
		t.StepType = timestep.Last
		if t.Info == nil {
			t.Info = make(map[string]interface{})
		}
		t.Info[TruncatedKey] = true
		return true
	}
	return false
}
