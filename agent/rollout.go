package agent

import "github.com/vadim0x60/bff/vm"

// RolloutStep is one interaction: the observation the agent saw, what it
// did, and what it got for it.
type RolloutStep struct {
	Observation []float64
	Action      vm.Action
	Reward      float64
	Value       float64
	Done        bool
}

// Rollout is the step-by-step record of one episode.
type Rollout struct {
	Steps []RolloutStep
}

// Add appends one interaction.
func (r *Rollout) Add(observation []float64, action vm.Action, reward, value float64, done bool) {
	r.Steps = append(r.Steps, RolloutStep{
		Observation: observation,
		Action:      action,
		Reward:      reward,
		Value:       value,
		Done:        done,
	})
}

// Len returns the number of recorded interactions.
func (r *Rollout) Len() int { return len(r.Steps) }

// TotalReward sums the rewards over the episode.
func (r *Rollout) TotalReward() float64 {
	total := 0.0
	for _, step := range r.Steps {
		total += step.Reward
	}
	return total
}

// Finished reports whether the episode reached a terminal state.
func (r *Rollout) Finished() bool {
	return len(r.Steps) > 0 && r.Steps[len(r.Steps)-1].Done
}
