package vm

import (
	"errors"
	"fmt"
	"math/rand"
)

// ---------------------------------------------------------------------------
// Machine state and terminal results
// ---------------------------------------------------------------------------

// State is the machine's lifecycle state. Exactly one is current at any
// time.
type State int

const (
	StateNotStarted State = iota
	StateExecuting
	StateAwaitingInput
	StateFinished
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not-started"
	case StateExecuting:
		return "executing"
	case StateAwaitingInput:
		return "awaiting-input"
	case StateFinished:
		return "finished"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Result is set once, when the machine reaches StateFinished.
type Result int

const (
	ResultNone Result = iota
	ResultSuccess
	ResultStepLimit
	ResultSyntaxError
	ResultKilled
)

func (r Result) String() string {
	switch r {
	case ResultNone:
		return "none"
	case ResultSuccess:
		return "success"
	case ResultStepLimit:
		return "step-limit"
	case ResultSyntaxError:
		return "syntax-error"
	case ResultKilled:
		return "killed"
	}
	return fmt.Sprintf("Result(%d)", int(r))
}

// ErrProgramFinished is matched (via errors.Is) by every
// ProgramFinishedError.
var ErrProgramFinished = errors.New("program already finished")

// ProgramFinishedError reports an attempt to resume a machine that has
// already reached a terminal result. This is a caller contract violation,
// not a normal execution outcome.
type ProgramFinishedError struct {
	Code   string
	Result Result
}

func (e *ProgramFinishedError) Error() string {
	return fmt.Sprintf("vm: program %q already finished with %s", e.Code, e.Result)
}

func (e *ProgramFinishedError) Is(target error) bool {
	return target == ErrProgramFinished
}

// ---------------------------------------------------------------------------
// Executable: the interpreter
// ---------------------------------------------------------------------------

// DefaultMaxSteps caps how many instructions may run between two inputs.
const DefaultMaxSteps = 1 << 12

// Executable is one policy program loaded into a machine: an instruction
// sequence with its jump table, a growable integer memory tape, an action
// buffer and the discretization layers on both sides. A machine instance is
// exclusively owned by one caller; it is not safe for concurrent use.
type Executable struct {
	code     []rune
	source   string
	alphabet *Alphabet
	bracemap Bracemap
	valid    bool

	discretizer *ObservationDiscretizer
	sampler     *ActionSampler

	initMemory []int
	nullValue  int
	maxSteps   int
	cyclic     bool
	stepCount  int
	rng        *rand.Rand
	trace      TraceSink

	codeptr int
	cellptr int
	steps   int
	cells   []int
	actions *ActionBuffer
	state   State
	result  Result
}

// ExecOption configures an Executable.
type ExecOption func(*execConfig)

type execConfig struct {
	initMemory    []int
	nullValue     int
	maxSteps      int
	cyclic        bool
	lenientSyntax bool
	stepCount     int
	alphabet      *Alphabet
	rng           *rand.Rand
	trace         TraceSink
}

// WithInitMemory seeds the memory tape instead of the default single zero
// cell.
func WithInitMemory(cells []int) ExecOption {
	return func(c *execConfig) { c.initMemory = cells }
}

// WithNullValue sets the fill value used when the tape grows.
func WithNullValue(v int) ExecOption {
	return func(c *execConfig) { c.nullValue = v }
}

// WithMaxSteps caps the instructions executed between two inputs. Zero
// disables the cap.
func WithMaxSteps(n int) ExecOption {
	return func(c *execConfig) { c.maxSteps = n }
}

// WithCyclicMode makes the program wrap around instead of terminating:
// running past the end suspends for input and resumes at position zero.
func WithCyclicMode() ExecOption {
	return func(c *execConfig) { c.cyclic = true }
}

// WithLenientSyntax accepts programs with unmatched brackets instead of
// starting them Finished with ResultSyntaxError. An empty program is
// rejected regardless.
func WithLenientSyntax() ExecOption {
	return func(c *execConfig) { c.lenientSyntax = true }
}

// WithStepCount sets the exclusive upper bound of the random draw
// instruction.
func WithStepCount(n int) ExecOption {
	return func(c *execConfig) { c.stepCount = n }
}

// WithAlphabet runs the program over a custom alphabet.
func WithAlphabet(a *Alphabet) ExecOption {
	return func(c *execConfig) { c.alphabet = a }
}

// WithRand injects the random source used by the random draw instruction.
func WithRand(r *rand.Rand) ExecOption {
	return func(c *execConfig) { c.rng = r }
}

// WithTrace attaches an execution trace sink.
func WithTrace(sink TraceSink) ExecOption {
	return func(c *execConfig) { c.trace = sink }
}

// NewExecutable loads source into a fresh machine. Syntax problems never
// fail construction: a malformed program (unmatched brackets, symbols
// outside the alphabet, or an empty body) yields a machine that is already
// Finished with ResultSyntaxError, so callers can score broken and bad
// programs uniformly.
func NewExecutable(source string, discretizer *ObservationDiscretizer, sampler *ActionSampler, opts ...ExecOption) *Executable {
	cfg := execConfig{
		maxSteps:  DefaultMaxSteps,
		stepCount: DefaultBinCount,
		alphabet:  DefaultAlphabet(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.rng == nil {
		cfg.rng = rand.New(rand.NewSource(rand.Int63()))
	}

	code := []rune(source)
	bracemap, wellFormed := BuildBracemap(code)
	for _, r := range code {
		if !cfg.alphabet.Contains(r) {
			wellFormed = false
			break
		}
	}
	if len(code) == 0 {
		// An empty program would be a very easy way to dodge the penalty
		// for syntax errors. It gets the penalty, lenient or not.
		cfg.lenientSyntax = false
	}

	e := &Executable{
		code:        code,
		source:      source,
		alphabet:    cfg.alphabet,
		bracemap:    bracemap,
		valid:       wellFormed || cfg.lenientSyntax,
		discretizer: discretizer,
		sampler:     sampler,
		initMemory:  cfg.initMemory,
		nullValue:   cfg.nullValue,
		maxSteps:    cfg.maxSteps,
		cyclic:      cfg.cyclic,
		stepCount:   cfg.stepCount,
		rng:         cfg.rng,
		trace:       cfg.trace,
	}
	e.Init()
	return e
}

// Source returns the program text.
func (e *Executable) Source() string { return e.source }

// State returns the current machine state.
func (e *Executable) State() State { return e.state }

// Result returns the terminal result, or ResultNone before termination.
func (e *Executable) Result() Result { return e.result }

// Memory returns a copy of the tape.
func (e *Executable) Memory() []int {
	out := make([]int, len(e.cells))
	copy(out, e.cells)
	return out
}

// Actions returns the machine's action buffer.
func (e *Executable) Actions() *ActionBuffer { return e.actions }

// CellPtr returns the current cell pointer.
func (e *Executable) CellPtr() int { return e.cellptr }

// Init resets memory, the action buffer, both pointers and the machine
// state to their initial values. An invalid program starts (and stays)
// Finished with ResultSyntaxError.
func (e *Executable) Init() {
	e.codeptr, e.cellptr = 0, 0
	e.steps = 0
	if e.initMemory != nil {
		e.cells = make([]int, len(e.initMemory))
		copy(e.cells, e.initMemory)
	} else {
		e.cells = []int{0}
	}
	e.actions = NewActionBuffer()

	if !e.valid {
		e.state = StateFinished
		e.result = ResultSyntaxError
	} else {
		e.state = StateNotStarted
		e.result = ResultNone
	}
}

// Done forces termination. A machine that already finished keeps its
// result; calling Done again is a no-op.
func (e *Executable) Done() {
	if e.state != StateFinished {
		e.state = StateFinished
		e.result = ResultKilled
	}
}

// ---------------------------------------------------------------------------
// Tape access
// ---------------------------------------------------------------------------

// ensureCells grows the tape with the null value until cellsRequired cells
// exist at the cell pointer. The tape never shrinks.
func (e *Executable) ensureCells(cellsRequired int) {
	for shortage := e.cellptr + cellsRequired - len(e.cells); shortage > 0; shortage-- {
		e.cells = append(e.cells, e.nullValue)
	}
}

// read returns the current cell, growing the tape first if the pointer is
// past the end.
func (e *Executable) read() int {
	e.ensureCells(1)
	return e.cells[e.cellptr]
}

// write stores a single value at the current cell. The pointer does not
// move.
func (e *Executable) write(value int) {
	e.ensureCells(1)
	e.cells[e.cellptr] = value
}

// writeAll stores a value sequence starting at the current cell and leaves
// the pointer one past the last written cell.
func (e *Executable) writeAll(values []int) {
	e.ensureCells(len(values))
	for _, v := range values {
		e.cells[e.cellptr] = v
		e.cellptr++
	}
}

// ---------------------------------------------------------------------------
// Instruction stepping
// ---------------------------------------------------------------------------

func (e *Executable) snapshot(command rune) {
	if e.trace == nil {
		return
	}
	e.trace.Record(ExecutionSnapshot{
		CodePtr: e.codeptr,
		Command: command,
		MemPtr:  e.cellptr,
		MemVal:  e.read(),
		Memory:  e.Memory(),
		Actions: e.actions.Tokens(),
		State:   e.state,
	})
}

// step executes one instruction. It is a no-op while awaiting input and
// fails if the machine already finished.
func (e *Executable) step() error {
	if e.state == StateFinished {
		return &ProgramFinishedError{Code: e.source, Result: e.result}
	}
	if e.state == StateAwaitingInput {
		return nil
	}

	e.state = StateExecuting

	if e.maxSteps > 0 && e.steps >= e.maxSteps {
		e.state = StateFinished
		e.result = ResultStepLimit
		return nil
	}

	if e.codeptr == len(e.code) {
		if e.cyclic {
			// Wrap to just before the start; the input that resumes us
			// advances the pointer to position zero.
			e.codeptr = -1
			e.state = StateAwaitingInput
			e.snapshot(',')
			return nil
		}
		e.state = StateFinished
		e.result = ResultSuccess
		return nil
	}

	command := e.code[e.codeptr]
	e.snapshot(command)

	switch command {
	case '>':
		e.cellptr++
	case '<':
		if e.cellptr > 0 {
			e.cellptr--
		}
	case '^':
		if target := e.read(); target >= 0 {
			e.cellptr = target
		}
	case '+':
		e.write(e.read() + 1)
	case '-':
		e.write(e.read() - 1)
	case '~':
		e.write(-e.read())
	case '@':
		e.write(e.rng.Intn(e.stepCount))
	case '[':
		if e.read() <= 0 {
			e.codeptr = e.bracemap[e.codeptr]
		}
	case ']':
		if e.read() > 0 {
			e.codeptr = e.bracemap[e.codeptr]
		}
	case '.':
		e.actions.PushFront(e.read())
	case '!':
		e.actions.PushBack(e.read())
	case ',':
		e.state = StateAwaitingInput
		return nil
	default:
		if idx := e.alphabet.actionIndex(command); idx >= 0 {
			e.write(idx)
		} else if idx := e.alphabet.cellIndex(command); idx >= 0 {
			e.cellptr = idx
		}
		// Anything else in a leniently accepted program is a no-op.
	}

	e.codeptr++
	e.steps++
	return nil
}

// run executes instructions until the machine suspends or terminates.
func (e *Executable) run() error {
	if err := e.step(); err != nil {
		return err
	}
	for e.state == StateExecuting {
		if err := e.step(); err != nil {
			return err
		}
	}
	return nil
}

// Input discretizes one observation, drives execution to the next input
// suspension, writes the discretized values into memory at the cell
// pointer, resets the per-burst step counter and advances past the input
// instruction. It returns ProgramFinishedError if the program terminates
// before it ever asks for input again.
func (e *Executable) Input(observation []float64) error {
	for e.state != StateAwaitingInput {
		if err := e.run(); err != nil {
			return err
		}
	}

	e.state = StateExecuting
	e.snapshot(',')

	var values []int
	if e.discretizer != nil {
		values = e.discretizer.Discretize(observation)
	} else {
		values = make([]int, len(observation))
		for i, v := range observation {
			values[i] = int(v)
		}
	}
	e.writeAll(values)

	e.codeptr++
	e.steps = 0
	return nil
}

// Act drives execution to the next suspension or termination, then samples
// one action from the buffered output tokens. With fewer buffered tokens
// than the action dimensionality the sampler's default action is returned
// and the buffer is left alone.
func (e *Executable) Act() (Action, error) {
	if e.state != StateFinished {
		if err := e.run(); err != nil {
			return Action{}, err
		}
	}
	return e.sampler.Sample(e.actions), nil
}

// Execute runs the program to suspension or termination without supplying
// input. Useful for programs that never read observations.
func (e *Executable) Execute() error {
	return e.run()
}

// Reward is part of the agent contract; the machine ignores rewards.
func (e *Executable) Reward(float64) {}

// Value is part of the agent contract; the machine offers no value
// estimate.
func (e *Executable) Value() float64 { return 0 }
