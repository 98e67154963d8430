package runner

import (
	"strings"
	"time"
)

// StepRecord holds the outcome of one step.
type StepRecord struct {
	Path     []string
	Action   Action
	Elapsed  time.Duration
	Field    string
	Expected any
	Actual   any
	Error    error
	Output   []string
}

// PathString returns the slash-joined step path.
func (s *StepRecord) PathString() string {
	return strings.Join(s.Path, "/")
}

// Result aggregates step outcomes for a run.
type Result struct {
	Total   int
	Passed  int
	Failed  int
	Skipped int
	Errors  int

	// Steps maps step path to its record.
	Steps map[string]*StepRecord

	order []string
	start time.Time
	end   time.Time
}

// NewResult creates an empty result with the clock started.
func NewResult() *Result {
	return &Result{
		Steps: make(map[string]*StepRecord),
		start: time.Now(),
	}
}

// Add records an event. Non-terminal events update step output only.
func (r *Result) Add(event Event) {
	key := event.PathString()

	record, ok := r.Steps[key]
	if !ok {
		record = &StepRecord{Path: event.Path}
		r.Steps[key] = record
		r.order = append(r.order, key)
	}

	if event.Action == ActionOutput {
		record.Output = append(record.Output, event.Output)

		return
	}

	if !event.Action.IsTerminal() {
		return
	}

	record.Action = event.Action
	record.Elapsed = event.Elapsed
	record.Field = event.Field
	record.Expected = event.Expected
	record.Actual = event.Actual
	record.Error = event.Error

	r.Total++

	switch event.Action {
	case ActionPass:
		r.Passed++
	case ActionFail:
		r.Failed++
	case ActionSkip:
		r.Skipped++
	case ActionError:
		r.Errors++
	case ActionRun, ActionOutput:
	}
}

// Ok returns true if nothing failed or errored.
func (r *Result) Ok() bool {
	return r.Failed == 0 && r.Errors == 0
}

// FailedSteps returns failed and errored steps in run order.
func (r *Result) FailedSteps() []*StepRecord {
	var failed []*StepRecord

	for _, key := range r.order {
		record := r.Steps[key]
		if record.Action == ActionFail || record.Action == ActionError {
			failed = append(failed, record)
		}
	}

	return failed
}

// Records returns all step records in run order.
func (r *Result) Records() []*StepRecord {
	records := make([]*StepRecord, 0, len(r.order))
	for _, key := range r.order {
		records = append(records, r.Steps[key])
	}

	return records
}

// Finish fixes the elapsed time.
func (r *Result) Finish() {
	r.end = time.Now()
}

// Elapsed returns the run duration; fixed once Finish has been called.
func (r *Result) Elapsed() time.Duration {
	if r.end.IsZero() {
		return time.Since(r.start)
	}

	return r.end.Sub(r.start)
}

// Merge folds another result's counts and records into this one.
func (r *Result) Merge(other *Result) {
	r.Total += other.Total
	r.Passed += other.Passed
	r.Failed += other.Failed
	r.Skipped += other.Skipped
	r.Errors += other.Errors

	for _, key := range other.order {
		if _, exists := r.Steps[key]; !exists {
			r.order = append(r.order, key)
		}

		r.Steps[key] = other.Steps[key]
	}

	if other.end.After(r.end) {
		r.end = other.end
	}
}
