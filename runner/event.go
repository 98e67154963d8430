// Package runner executes graphtune playbooks against a database backend,
// emitting events to handlers and aggregating results.
package runner

import (
	"strings"
	"time"
)

// Action identifies what an event describes.
type Action string

const (
	// ActionRun marks the start of a step.
	ActionRun Action = "run"
	// ActionPass marks a step whose statement and expectations succeeded.
	ActionPass Action = "pass"
	// ActionFail marks a step with a failed expectation.
	ActionFail Action = "fail"
	// ActionSkip marks an optional step the engine refused.
	ActionSkip Action = "skip"
	// ActionError marks a step whose statement failed.
	ActionError Action = "error"
	// ActionOutput carries auxiliary output (comments, rendered plans).
	ActionOutput Action = "output"
)

// IsTerminal returns true if the action ends a step.
func (a Action) IsTerminal() bool {
	switch a {
	case ActionPass, ActionFail, ActionSkip, ActionError:
		return true
	case ActionRun, ActionOutput:
		return false
	}

	return false
}

// Event describes something that happened during a playbook run.
type Event struct {
	// Time the event occurred.
	Time time.Time

	// Action describes what happened.
	Action Action

	// Playbook is the playbook name or source path.
	Playbook string

	// Path is the step location: [stage, step].
	Path []string

	// Elapsed is how long the step took (terminal events).
	Elapsed time.Duration

	// Field is the failed expectation (fail events).
	Field string

	// Expected and Actual describe the expectation mismatch.
	Expected any
	Actual   any

	// Error is the engine error (error events).
	Error error

	// Output is auxiliary text (output events).
	Output string
}

// PathString returns the slash-joined step path.
func (e Event) PathString() string {
	return strings.Join(e.Path, "/")
}

// StepName returns the last path element.
func (e Event) StepName() string {
	if len(e.Path) == 0 {
		return ""
	}

	return e.Path[len(e.Path)-1]
}
