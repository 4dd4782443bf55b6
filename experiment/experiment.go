package experiment

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Experiment is one YAML experiment definition: which environment to run,
// which programs to run in it, and how.
type Experiment struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`

	// Episodes is how many episodes each program gets.
	Episodes int `yaml:"episodes"`

	// MaxInteractions caps the interactions per episode; zero means
	// unbounded.
	MaxInteractions int `yaml:"max-interactions"`

	Seed   int64 `yaml:"seed"`
	Render bool  `yaml:"render"`

	// FreshDiscretizer gives every episode its own adaptive discretizer
	// instead of sharing one (and its rolling history) across the whole
	// experiment. Sharing lets thresholds keep adapting across episodes;
	// isolation makes episodes comparable. There is no right default, so
	// it is an explicit knob.
	FreshDiscretizer bool `yaml:"fresh-discretizer"`

	// Programs are the policy programs to evaluate.
	Programs []string `yaml:"programs"`
}

// ParseExperiment decodes one experiment definition.
func ParseExperiment(data []byte) (*Experiment, error) {
	var ex Experiment
	if err := yaml.Unmarshal(data, &ex); err != nil {
		return nil, fmt.Errorf("experiment: parse: %w", err)
	}
	if ex.Name == "" {
		return nil, fmt.Errorf("experiment: name is required")
	}
	if ex.Environment == "" {
		return nil, fmt.Errorf("experiment: environment is required")
	}
	if len(ex.Programs) == 0 {
		return nil, fmt.Errorf("experiment: at least one program is required")
	}
	if ex.Episodes == 0 {
		ex.Episodes = 1
	}
	return &ex, nil
}

// LoadExperiment reads and decodes an experiment definition file.
func LoadExperiment(path string) (*Experiment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("experiment: read %s: %w", path, err)
	}
	ex, err := ParseExperiment(data)
	if err != nil {
		return nil, fmt.Errorf("%w (in %s)", err, path)
	}
	return ex, nil
}
