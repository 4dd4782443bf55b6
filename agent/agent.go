// Package agent runs policy agents against simulated environments: the
// interaction loop, the rollout record it produces, and the contracts both
// sides implement.
package agent

import (
	"errors"

	"github.com/vadim0x60/bff/vm"
)

// Agent is a control policy interacting with one environment. The policy
// machine (vm.Executable) implements it; so can anything else that maps
// observations to actions.
type Agent interface {
	// Init resets the agent for a fresh episode.
	Init()
	// Input feeds one observation to the agent.
	Input(observation []float64) error
	// Act asks the agent for its next action.
	Act() (vm.Action, error)
	// Reward informs the agent of the reward for its last action.
	Reward(reward float64)
	// Value asks the agent how it thinks it is doing.
	Value() float64
	// Done tells the agent the episode is over.
	Done()
}

// Environment is the simulated world an agent acts in. Implementations live
// outside this repository; test fixtures are enough here.
type Environment interface {
	// Reset starts a fresh episode and returns the first observation.
	Reset() ([]float64, error)
	// Step applies an action and returns the next observation, the reward
	// and whether the episode ended.
	Step(action vm.Action) (observation []float64, reward float64, done bool, err error)
	// Render draws the current state, or returns ErrRenderUnsupported.
	Render() error
	// Close releases the environment.
	Close() error
}

// ErrRenderUnsupported is returned by environments that cannot draw
// themselves; the interaction loop downgrades to not rendering.
var ErrRenderUnsupported = errors.New("agent: render unsupported")
