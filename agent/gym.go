package agent

import (
	"errors"
	"fmt"

	"github.com/tliron/commonlog"

	"github.com/vadim0x60/bff/vm"
)

var log = commonlog.GetLogger("bff.agent")

// GymOption configures an interaction run.
type GymOption func(*gymConfig)

type gymConfig struct {
	maxReps int
	render  bool
}

// WithMaxReps caps the number of interactions; zero means unbounded.
func WithMaxReps(n int) GymOption {
	return func(c *gymConfig) { c.maxReps = n }
}

// WithRender asks the environment to draw itself each step. Environments
// that cannot render downgrade the run to non-rendering after the first
// attempt.
func WithRender() GymOption {
	return func(c *gymConfig) { c.render = true }
}

// AttendGym runs one episode of agent-environment interaction and returns
// the rollout. The loop is synchronous and single-threaded: observation in,
// action out, one interaction at a time, until the environment reports done,
// the interaction cap is hit, or the agent reports it cannot act any more
// (a machine that terminated; logged as a warning, not an error). The
// environment is closed and the agent told Done on every path out.
func AttendGym(env Environment, ag Agent, opts ...GymOption) (*Rollout, error) {
	cfg := gymConfig{maxReps: 1000}
	for _, opt := range opts {
		opt(&cfg)
	}

	rollout := &Rollout{}
	ag.Init()
	defer ag.Done()
	defer env.Close()

	observation, err := env.Reset()
	if err != nil {
		return rollout, fmt.Errorf("agent: reset: %w", err)
	}

	render := cfg.render
	for rep := 0; cfg.maxReps == 0 || rep < cfg.maxReps; rep++ {
		if err := ag.Input(observation); err != nil {
			if errors.Is(err, vm.ErrProgramFinished) {
				log.Warningf("gym run finished prematurely: %s", err.Error())
				return rollout, nil
			}
			return rollout, err
		}

		if render {
			if err := env.Render(); err != nil {
				if !errors.Is(err, ErrRenderUnsupported) {
					return rollout, fmt.Errorf("agent: render: %w", err)
				}
				render = false
			}
		}

		action, err := ag.Act()
		if err != nil {
			if errors.Is(err, vm.ErrProgramFinished) {
				log.Warningf("gym run finished prematurely: %s", err.Error())
				return rollout, nil
			}
			return rollout, err
		}

		prev := observation
		next, reward, done, err := env.Step(action)
		if err != nil {
			return rollout, fmt.Errorf("agent: step: %w", err)
		}
		rollout.Add(prev, action, reward, ag.Value(), done)
		ag.Reward(reward)

		if done {
			break
		}
		observation = next
	}

	return rollout, nil
}
