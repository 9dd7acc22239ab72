// Package config loads solver scenarios from YAML or JSON files.
//
// A scenario declares the model, the constraints and tasks, the priority stack
// and the backend tunables. Build turns it into a registry and a solver.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/sot/pkg/domain"
	"gopkg.in/yaml.v3"
)

// Scenario is the root of a scenario file.
type Scenario struct {
	Name              string             `yaml:"name" json:"name"`
	XSize             int                `yaml:"x_size" json:"x_size"`
	Q0                []float64          `yaml:"q0" json:"q0"`
	Ticks             int                `yaml:"ticks" json:"ticks"`
	Tolerance         float64            `yaml:"tolerance" json:"tolerance"`
	Model             *ModelConfig       `yaml:"model" json:"model"`
	Constraints       []ConstraintConfig `yaml:"constraints" json:"constraints"`
	Tasks             []TaskConfig       `yaml:"tasks" json:"tasks"`
	Stack             [][]string         `yaml:"stack" json:"stack"`
	GlobalConstraints []string           `yaml:"global_constraints" json:"global_constraints"`
	Solver            SolverConfig       `yaml:"solver" json:"solver"`
	Sink              SinkConfig         `yaml:"sink" json:"sink"`
}

// ModelConfig selects the kinematic model.
type ModelConfig struct {
	Type    string    `yaml:"type" json:"type"`
	Lengths []float64 `yaml:"lengths" json:"lengths"`
	Masses  []float64 `yaml:"masses" json:"masses"`
	QMin    []float64 `yaml:"qmin" json:"qmin"`
	QMax    []float64 `yaml:"qmax" json:"qmax"`
}

// ConstraintConfig declares one constraint. Params depend on Type.
type ConstraintConfig struct {
	ID     string         `yaml:"id" json:"id"`
	Type   string         `yaml:"type" json:"type"`
	Params map[string]any `yaml:"params" json:"params"`
}

// TaskConfig declares one task. Params depend on Type.
type TaskConfig struct {
	ID          string         `yaml:"id" json:"id"`
	Type        string         `yaml:"type" json:"type"`
	Lambda      *float64       `yaml:"lambda" json:"lambda"`
	Weight      [][]float64    `yaml:"weight" json:"weight"`
	Constraints []string       `yaml:"constraints" json:"constraints"`
	Params      map[string]any `yaml:"params" json:"params"`
}

// SolverConfig holds the backend tunables. Zero values keep the defaults.
type SolverConfig struct {
	NWSR              int     `yaml:"nwsr" json:"nwsr"`
	EpsRegularisation float64 `yaml:"eps_regularisation" json:"eps_regularisation"`
	Infinity          float64 `yaml:"infinity" json:"infinity"`
	HessianType       string  `yaml:"hessian_type" json:"hessian_type"`
	Policy            string  `yaml:"policy" json:"policy"`
	BandEps           float64 `yaml:"band_eps" json:"band_eps"`
}

// SinkConfig selects where tick snapshots go.
type SinkConfig struct {
	Type     string `yaml:"type" json:"type"` // none, memory, file, sqlite, redis
	Path     string `yaml:"path" json:"path"`
	Address  string `yaml:"address" json:"address"`
	Prefix   string `yaml:"prefix" json:"prefix"`
	TTL      string `yaml:"ttl" json:"ttl"`
	Sampling uint64 `yaml:"sampling" json:"sampling"`
	// Include and Exclude are regular expressions over snapshot entry names.
	Include []string `yaml:"include" json:"include"`
	Exclude []string `yaml:"exclude" json:"exclude"`
	// Precision rounds stored values to that many decimals. Zero keeps them as is.
	Precision int `yaml:"precision" json:"precision"`
}

// Load reads a scenario file (YAML or JSON, by extension) and validates it.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario: %w", err)
	}
	format := "yaml"
	if strings.ToLower(filepath.Ext(path)) == ".json" {
		format = "json"
	}
	return Parse(data, format)
}

// Parse decodes a scenario in the given format ("yaml" or "json").
func Parse(data []byte, format string) (*Scenario, error) {
	var sc Scenario
	if format == "json" {
		if err := json.Unmarshal(data, &sc); err != nil {
			return nil, fmt.Errorf("failed to parse scenario json: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, &sc); err != nil {
			return nil, fmt.Errorf("failed to parse scenario yaml: %w", err)
		}
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

// Validate checks the structure of the scenario. It does not build anything.
func (sc *Scenario) Validate() error {
	if sc.XSize <= 0 {
		return fmt.Errorf("%w: x_size must be positive", domain.ErrValidation)
	}
	if len(sc.Q0) != 0 && len(sc.Q0) != sc.XSize {
		return fmt.Errorf("%w: q0 has %d elements, want %d", domain.ErrValidation, len(sc.Q0), sc.XSize)
	}
	if len(sc.Stack) == 0 {
		return fmt.Errorf("%w: stack is empty", domain.ErrValidation)
	}

	constraints := make(map[string]bool, len(sc.Constraints))
	for i, c := range sc.Constraints {
		if c.ID == "" {
			return fmt.Errorf("%w: constraint %d has no id", domain.ErrValidation, i)
		}
		if constraints[c.ID] {
			return fmt.Errorf("%w: duplicate constraint %q", domain.ErrValidation, c.ID)
		}
		constraints[c.ID] = true
	}

	tasks := make(map[string]bool, len(sc.Tasks))
	for i, t := range sc.Tasks {
		if t.ID == "" {
			return fmt.Errorf("%w: task %d has no id", domain.ErrValidation, i)
		}
		if tasks[t.ID] {
			return fmt.Errorf("%w: duplicate task %q", domain.ErrValidation, t.ID)
		}
		tasks[t.ID] = true
		for _, ref := range t.Constraints {
			if !constraints[ref] {
				return fmt.Errorf("%w: task %q references unknown constraint %q", domain.ErrValidation, t.ID, ref)
			}
		}
	}
	for _, ref := range sc.GlobalConstraints {
		if !constraints[ref] {
			return fmt.Errorf("%w: unknown global constraint %q", domain.ErrValidation, ref)
		}
	}

	seen := make(map[string]int)
	for k, lvl := range sc.Stack {
		if len(lvl) == 0 {
			return fmt.Errorf("%w: stack level %d is empty", domain.ErrValidation, k)
		}
		for _, id := range lvl {
			if !tasks[id] {
				return fmt.Errorf("%w: stack level %d references unknown task %q", domain.ErrValidation, k, id)
			}
			if prev, ok := seen[id]; ok {
				return fmt.Errorf("%w: task %q appears at levels %d and %d", domain.ErrValidation, id, prev, k)
			}
			seen[id] = k
		}
	}
	return nil
}
