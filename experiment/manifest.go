// Package experiment holds the orchestration glue around the machine:
// the bff.toml project manifest, YAML experiment definitions, and the
// results log.
package experiment

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Manifest represents a bff.toml project configuration.
type Manifest struct {
	Project Project `toml:"project"`
	Storage Storage `toml:"storage"`
	Engine  Engine  `toml:"engine"`

	// Dir is the directory containing the bff.toml file (set at load time).
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
}

// Storage configures where programs and results live.
type Storage struct {
	CodebaseFile string `toml:"codebase-file"`
	ResultsFile  string `toml:"results-file"`
	FlushEvery   int    `toml:"flush-every"`
}

// Engine configures machine defaults for every program run under this
// project.
type Engine struct {
	MaxSteps            int  `toml:"max-steps"`
	NullValue           int  `toml:"null-value"`
	Cyclic              bool `toml:"cyclic"`
	DiscretizationSteps int  `toml:"discretization-steps"`
}

// Load parses a bff.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, "bff.toml")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	// Defaults
	if m.Storage.CodebaseFile == "" {
		m.Storage.CodebaseFile = "codebase.db"
	}
	if m.Storage.ResultsFile == "" {
		m.Storage.ResultsFile = "results.db"
	}
	if m.Storage.FlushEvery == 0 {
		m.Storage.FlushEvery = 20
	}
	if m.Engine.MaxSteps == 0 {
		m.Engine.MaxSteps = 1 << 12
	}
	if m.Engine.DiscretizationSteps == 0 {
		m.Engine.DiscretizationSteps = 5
	}

	return &m, nil
}

// FindAndLoad walks up from startDir to find a bff.toml file, then loads
// and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, "bff.toml")
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, nil
		}
		dir = parent
	}
}
