package agent

import (
	"errors"
	"fmt"
	"testing"

	"github.com/vadim0x60/bff/vm"
)

// scriptedEnv counts interactions: the observation is the interaction index
// modulo 5 and the reward is 1 when the agent echoes it back.
type scriptedEnv struct {
	limit     int // episodes end after this many steps; zero means never
	step      int
	renderErr error
	renders   int
	closed    bool
	stepErr   error
}

func (e *scriptedEnv) Reset() ([]float64, error) {
	e.step = 0
	return []float64{0}, nil
}

func (e *scriptedEnv) Step(action vm.Action) ([]float64, float64, bool, error) {
	if e.stepErr != nil {
		return nil, 0, false, e.stepErr
	}
	reward := 0.0
	if action.Scalar() == e.step%5 {
		reward = 1
	}
	e.step++
	done := e.limit > 0 && e.step >= e.limit
	return []float64{float64(e.step % 5)}, reward, done, nil
}

func (e *scriptedEnv) Render() error {
	e.renders++
	return e.renderErr
}

func (e *scriptedEnv) Close() error {
	e.closed = true
	return nil
}

// echoMachine wraps around after each pass, reading one observation and
// emitting it back as the action.
func echoMachine(t *testing.T) *vm.Executable {
	t.Helper()
	discretizer, err := vm.NewObservationDiscretizer(vm.Discrete{N: 5})
	if err != nil {
		t.Fatalf("NewObservationDiscretizer: %v", err)
	}
	sampler, err := vm.NewActionSampler(vm.Discrete{N: 5})
	if err != nil {
		t.Fatalf("NewActionSampler: %v", err)
	}
	return vm.NewExecutable("a!", discretizer, sampler, vm.WithCyclicMode())
}

func TestAttendGymEchoEpisode(t *testing.T) {
	env := &scriptedEnv{limit: 7}
	machine := echoMachine(t)

	rollout, err := AttendGym(env, machine)
	if err != nil {
		t.Fatalf("AttendGym: %v", err)
	}

	if rollout.Len() != 7 {
		t.Fatalf("rollout length = %d, want 7", rollout.Len())
	}
	if !rollout.Finished() {
		t.Error("rollout not marked finished")
	}
	// A perfect echo earns the reward on every interaction.
	if got := rollout.TotalReward(); got != 7 {
		t.Errorf("total reward = %v, want 7", got)
	}
	if !env.closed {
		t.Error("environment left open")
	}
	if machine.State() != vm.StateFinished {
		t.Errorf("machine state = %s, want finished after the episode", machine.State())
	}
}

func TestAttendGymRecordsObservations(t *testing.T) {
	env := &scriptedEnv{limit: 3}

	rollout, err := AttendGym(env, echoMachine(t))
	if err != nil {
		t.Fatalf("AttendGym: %v", err)
	}
	for i, step := range rollout.Steps {
		if step.Observation[0] != float64(i%5) {
			t.Errorf("step %d observation = %v", i, step.Observation)
		}
		if step.Action.Scalar() != i%5 {
			t.Errorf("step %d action = %d", i, step.Action.Scalar())
		}
	}
	if rollout.Steps[2].Done != true {
		t.Error("final step not marked done")
	}
}

func TestAttendGymMaxReps(t *testing.T) {
	env := &scriptedEnv{} // never reports done

	rollout, err := AttendGym(env, echoMachine(t), WithMaxReps(5))
	if err != nil {
		t.Fatalf("AttendGym: %v", err)
	}
	if rollout.Len() != 5 {
		t.Errorf("rollout length = %d, want the cap", rollout.Len())
	}
	if rollout.Finished() {
		t.Error("capped rollout marked finished")
	}
}

func TestAttendGymPrematureTermination(t *testing.T) {
	// A non-cyclic program terminates after one pass; the loop treats the
	// dead machine as the end of the run, not as an error.
	discretizer, err := vm.NewObservationDiscretizer(vm.Discrete{N: 5})
	if err != nil {
		t.Fatalf("NewObservationDiscretizer: %v", err)
	}
	sampler, err := vm.NewActionSampler(vm.Discrete{N: 5})
	if err != nil {
		t.Fatalf("NewActionSampler: %v", err)
	}
	machine := vm.NewExecutable(",a!", discretizer, sampler)

	env := &scriptedEnv{}
	rollout, err := AttendGym(env, machine)
	if err != nil {
		t.Fatalf("AttendGym: %v", err)
	}
	if rollout.Len() != 1 {
		t.Errorf("rollout length = %d, want the single pass", rollout.Len())
	}
	if !env.closed {
		t.Error("environment left open after premature termination")
	}
}

func TestAttendGymSyntaxErrorProgram(t *testing.T) {
	discretizer, err := vm.NewObservationDiscretizer(vm.Discrete{N: 5})
	if err != nil {
		t.Fatalf("NewObservationDiscretizer: %v", err)
	}
	sampler, err := vm.NewActionSampler(vm.Discrete{N: 5})
	if err != nil {
		t.Fatalf("NewActionSampler: %v", err)
	}
	machine := vm.NewExecutable("[+", discretizer, sampler)

	rollout, err := AttendGym(&scriptedEnv{}, machine)
	if err != nil {
		t.Fatalf("AttendGym: %v", err)
	}
	if rollout.Len() != 0 {
		t.Errorf("broken program produced %d interactions", rollout.Len())
	}
}

func TestAttendGymRenderDowngrade(t *testing.T) {
	env := &scriptedEnv{limit: 4, renderErr: ErrRenderUnsupported}

	if _, err := AttendGym(env, echoMachine(t), WithRender()); err != nil {
		t.Fatalf("AttendGym: %v", err)
	}
	if env.renders != 1 {
		t.Errorf("render attempted %d times, want downgrade after 1", env.renders)
	}
}

func TestAttendGymRenderFailure(t *testing.T) {
	env := &scriptedEnv{limit: 4, renderErr: errors.New("display gone")}

	if _, err := AttendGym(env, echoMachine(t), WithRender()); err == nil {
		t.Error("render failure swallowed")
	}
	if !env.closed {
		t.Error("environment left open after render failure")
	}
}

func TestAttendGymStepFailure(t *testing.T) {
	env := &scriptedEnv{stepErr: fmt.Errorf("simulator crashed")}

	if _, err := AttendGym(env, echoMachine(t)); err == nil {
		t.Error("step failure swallowed")
	}
	if !env.closed {
		t.Error("environment left open after step failure")
	}
}
