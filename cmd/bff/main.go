// bff CLI - run, check and canonicalize BF++ policy programs
package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/vadim0x60/bff/experiment"
	"github.com/vadim0x60/bff/vm"
)

func main() {
	program := flag.String("c", "", "Program text (reads a file path argument when empty)")
	canonicalize := flag.Bool("canonicalize", false, "Print the canonical form of the program and exit")
	check := flag.Bool("check", false, "Check program syntax and exit (0 = well formed)")
	trace := flag.Bool("trace", false, "Print an execution snapshot per instruction")
	cyclic := flag.Bool("cyclic", false, "Cyclic mode: wrap around at the end of the program")
	maxSteps := flag.Int("max-steps", 0, "Step cap per input burst (0 = project default)")
	actions := flag.Int("actions", 2, "Size of the discrete action space")
	fluid := flag.Bool("fluid", false, "Adaptively discretize observations instead of passing them through")
	verbosity := flag.Int("v", 0, "Log verbosity")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: bff [options] [program-file]\n\n")
		fmt.Fprintf(os.Stderr, "Runs a BF++ policy program. Observations are read from stdin, one\n")
		fmt.Fprintf(os.Stderr, "whitespace-separated vector per line; the sampled action is printed\n")
		fmt.Fprintf(os.Stderr, "after each one.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  bff -c '1>2!'                # run a closed program\n")
		fmt.Fprintf(os.Stderr, "  echo 3 | bff -c 'a!' -cyclic # echo-style policy\n")
		fmt.Fprintf(os.Stderr, "  bff -check -c '[+'           # syntax check\n")
		fmt.Fprintf(os.Stderr, "  bff -canonicalize -c '+->1<' # canonical form\n")
	}
	flag.Parse()

	commonlog.Configure(*verbosity, nil)

	source := *program
	if source == "" {
		if flag.NArg() != 1 {
			flag.Usage()
			os.Exit(2)
		}
		data, err := os.ReadFile(flag.Arg(0))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		source = strings.TrimSpace(string(data))
	}

	alphabet := vm.DefaultAlphabet()

	if *canonicalize {
		fmt.Println(alphabet.Canonicalize(source))
		return
	}

	// Engine defaults come from bff.toml when one is in scope.
	manifest, err := experiment.FindAndLoad(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: ignoring manifest: %v\n", err)
	}
	if *maxSteps == 0 {
		if manifest != nil {
			*maxSteps = manifest.Engine.MaxSteps
		} else {
			*maxSteps = vm.DefaultMaxSteps
		}
	}

	sampler, err := vm.NewActionSampler(vm.Discrete{N: *actions})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	var discretizer *vm.ObservationDiscretizer
	if *fluid {
		space := vm.Box{
			Low:  []float64{math.Inf(-1)},
			High: []float64{math.Inf(1)},
		}
		discretizer, err = vm.NewObservationDiscretizer(space)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	opts := []vm.ExecOption{vm.WithMaxSteps(*maxSteps)}
	if *cyclic {
		opts = append(opts, vm.WithCyclicMode())
	}
	if manifest != nil {
		opts = append(opts, vm.WithNullValue(manifest.Engine.NullValue))
	}
	recorder := &vm.TraceRecorder{}
	if *trace {
		opts = append(opts, vm.WithTrace(recorder))
	}

	machine := vm.NewExecutable(source, discretizer, sampler, opts...)

	if *check {
		if machine.Result() == vm.ResultSyntaxError {
			fmt.Println("ill-formed")
			os.Exit(1)
		}
		fmt.Println("well-formed")
		return
	}

	if err := runMachine(machine, sampler); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *trace {
		printTrace(recorder)
	}
	fmt.Fprintf(os.Stderr, "result: %s\n", machine.Result())
}

// runMachine feeds stdin observations to the machine and prints one action
// per observation. Programs that never suspend run straight to completion.
func runMachine(machine *vm.Executable, sampler *vm.ActionSampler) error {
	scanner := bufio.NewScanner(os.Stdin)
	for machine.State() != vm.StateFinished {
		if err := machine.Execute(); err != nil {
			return err
		}
		if machine.State() != vm.StateAwaitingInput {
			continue
		}

		if !scanner.Scan() {
			machine.Done()
			break
		}
		observation, err := parseObservation(scanner.Text())
		if err != nil {
			return err
		}
		if err := machine.Input(observation); err != nil {
			if errors.Is(err, vm.ErrProgramFinished) {
				break
			}
			return err
		}

		action, err := machine.Act()
		if err != nil {
			return err
		}
		fmt.Println(action.Scalar())
	}

	// A closed program produces its actions only at the end.
	if machine.Result() == vm.ResultSuccess && machine.Actions().Len() > 0 {
		action, err := machine.Act()
		if err != nil {
			return err
		}
		fmt.Println(action.Scalar())
	}
	return scanner.Err()
}

func parseObservation(line string) ([]float64, error) {
	fields := strings.Fields(line)
	observation := make([]float64, len(fields))
	for i, field := range fields {
		v, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return nil, fmt.Errorf("bad observation %q: %w", field, err)
		}
		observation[i] = v
	}
	return observation, nil
}

func printTrace(recorder *vm.TraceRecorder) {
	for _, s := range recorder.Snapshots {
		fmt.Fprintf(os.Stderr, "%4d %q mem[%d]=%d memory=%v actions=%v %s\n",
			s.CodePtr, s.Command, s.MemPtr, s.MemVal, s.Memory, s.Actions, s.State)
	}
}
