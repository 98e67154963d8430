package graphtune

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/expr-lang/expr"
	"gopkg.in/yaml.v3"
)

//go:embed playbooks/movies.yaml
var embeddedPlaybooks embed.FS

// Playbook is an ordered script of statements to run against an engine.
type Playbook struct {
	// Name identifies the playbook in output.
	Name string `yaml:"name"`

	// Description is shown before the run.
	Description string `yaml:"description,omitempty"`

	// Stages run strictly in declared order.
	Stages []*Stage `yaml:"stages"`
}

// Stage groups related steps (e.g., ingest, tuning).
type Stage struct {
	Name        string  `yaml:"name"`
	Description string  `yaml:"description,omitempty"`
	Steps       []*Step `yaml:"steps"`
}

// Step is a single statement sent to the engine.
type Step struct {
	Name string `yaml:"name"`

	// Comment explains what the step demonstrates; rendered alongside output.
	Comment string `yaml:"comment,omitempty"`

	// Cypher is the statement body, forwarded verbatim.
	Cypher string `yaml:"cypher"`

	// Params are statement parameters.
	Params map[string]any `yaml:"params,omitempty"`

	// Profile captures runtime operator statistics for the statement.
	Profile bool `yaml:"profile,omitempty"`

	// Explain compiles the plan without executing. Mutually exclusive
	// with Profile; Profile wins if both are set.
	Explain bool `yaml:"explain,omitempty"`

	// Optional steps report a skip instead of an error when the engine
	// refuses them (e.g., administrative statements on restricted servers).
	Optional bool `yaml:"optional,omitempty"`

	// Rollback runs the statement inside a transaction that is rolled
	// back, so verification writes leave the store untouched.
	Rollback bool `yaml:"rollback,omitempty"`

	// Expect holds boolean expressions evaluated against the step result.
	Expect []string `yaml:"expect,omitempty"`
}

// Mode returns the plan-capture mode for the step.
func (s *Step) Mode() ProfileMode {
	if s.Profile {
		return ModeProfile
	}

	return ModeExplain
}

// Captured returns true if the step requests plan capture.
func (s *Step) Captured() bool {
	return s.Profile || s.Explain
}

// ParsePlaybook parses a playbook from YAML and validates it.
func ParsePlaybook(data []byte) (*Playbook, error) {
	var pb Playbook

	err := yaml.Unmarshal(data, &pb)
	if err != nil {
		return nil, fmt.Errorf("parsing playbook: %w", err)
	}

	err = pb.Validate()
	if err != nil {
		return nil, err
	}

	return &pb, nil
}

// LoadPlaybook reads and parses a playbook file.
func LoadPlaybook(path string) (*Playbook, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}

	pb, err := ParsePlaybook(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	if pb.Name == "" {
		pb.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	return pb, nil
}

// MovieTutorial returns the embedded movie-graph tuning playbook.
func MovieTutorial() *Playbook {
	data, err := embeddedPlaybooks.ReadFile("playbooks/movies.yaml")
	if err != nil {
		panic(fmt.Sprintf("embedded playbook missing: %v", err))
	}

	pb, err := ParsePlaybook(data)
	if err != nil {
		panic(fmt.Sprintf("embedded playbook invalid: %v", err))
	}

	return pb
}

// MovieTutorialSource returns the raw YAML of the embedded tutorial, for
// writing out as a starting point.
func MovieTutorialSource() []byte {
	data, err := embeddedPlaybooks.ReadFile("playbooks/movies.yaml")
	if err != nil {
		panic(fmt.Sprintf("embedded playbook missing: %v", err))
	}

	return data
}

// expectEnv mirrors the runtime expectation environment so conditions
// type-check at load time instead of mid-run.
var expectEnv = map[string]any{
	"rows":      0,
	"first":     map[string]any{},
	"operators": []string{},
	"dbHits":    int64(0),
	"kind":      "",
	"has":       func(string) bool { return false },
}

// Validate checks structural invariants: at least one stage, unique step
// names per stage, non-empty statements, compilable expectations.
func (p *Playbook) Validate() error {
	if len(p.Stages) == 0 {
		return ErrEmptyPlaybook
	}

	for _, stage := range p.Stages {
		seen := make(map[string]bool, len(stage.Steps))

		for _, step := range stage.Steps {
			if seen[step.Name] {
				return fmt.Errorf("%w: %s/%s", ErrDuplicateStep, stage.Name, step.Name)
			}

			seen[step.Name] = true

			if strings.TrimSpace(step.Cypher) == "" {
				return fmt.Errorf("%w: %s/%s", ErrEmptyCypher, stage.Name, step.Name)
			}

			if step.Rollback && step.Captured() {
				return fmt.Errorf("%w: %s/%s", ErrRollbackProfile, stage.Name, step.Name)
			}

			for _, cond := range step.Expect {
				_, err := expr.Compile(cond, expr.Env(expectEnv), expr.AsBool())
				if err != nil {
					return fmt.Errorf("%w: %s/%s: %q: %v", ErrBadExpectation, stage.Name, step.Name, cond, err)
				}
			}
		}
	}

	return nil
}

// Stage returns the named stage, or nil.
func (p *Playbook) Stage(name string) *Stage {
	for _, stage := range p.Stages {
		if stage.Name == name {
			return stage
		}
	}

	return nil
}

// Filter returns a copy of the playbook containing only the named stages,
// in playbook order. An empty filter returns the playbook unchanged.
func (p *Playbook) Filter(stages ...string) (*Playbook, error) {
	if len(stages) == 0 {
		return p, nil
	}

	keep := make(map[string]bool, len(stages))

	for _, name := range stages {
		if p.Stage(name) == nil {
			return nil, fmt.Errorf("%w: %s", ErrUnknownStage, name)
		}

		keep[name] = true
	}

	filtered := &Playbook{Name: p.Name, Description: p.Description}

	for _, stage := range p.Stages {
		if keep[stage.Name] {
			filtered.Stages = append(filtered.Stages, stage)
		}
	}

	return filtered, nil
}

// StepCount returns the total number of steps across all stages.
func (p *Playbook) StepCount() int {
	n := 0
	for _, stage := range p.Stages {
		n += len(stage.Steps)
	}

	return n
}
