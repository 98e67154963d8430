package runner

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/graphtune/graphtune"
	"github.com/graphtune/graphtune/plan"
)

// Runner executes graphtune playbooks.
type Runner struct {
	database graphtune.Database
	handler  Handler
	failFast bool
	filter   *regexp.Regexp
	stages   []string
	log      *zap.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithDatabase sets the database for statement execution.
func WithDatabase(db graphtune.Database) Option {
	return func(r *Runner) {
		r.database = db
	}
}

// WithHandler sets the event handler.
func WithHandler(h Handler) Option {
	return func(r *Runner) {
		r.handler = h
	}
}

// WithFailFast stops on first failure.
func WithFailFast(enabled bool) Option {
	return func(r *Runner) {
		r.failFast = enabled
	}
}

// WithFilter sets a regex pattern to filter which steps run.
// Steps whose stage/step path matches the pattern will be executed.
func WithFilter(pattern string) Option {
	return func(r *Runner) {
		if pattern != "" {
			r.filter = regexp.MustCompile(pattern)
		}
	}
}

// WithStages restricts the run to the named stages.
func WithStages(stages ...string) Option {
	return func(r *Runner) {
		r.stages = stages
	}
}

// WithLogger sets the logger for step-level debug logging.
func WithLogger(log *zap.Logger) Option {
	return func(r *Runner) {
		r.log = log
	}
}

// New creates a Runner with the given options.
func New(opts ...Option) *Runner {
	r := &Runner{
		log: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}

	return r
}

// RunFile loads and runs a playbook file.
func (r *Runner) RunFile(ctx context.Context, path string) (*Result, error) {
	if r.database == nil {
		return nil, ErrNoDatabase
	}

	pb, err := graphtune.LoadPlaybook(path)
	if err != nil {
		return nil, err
	}

	return r.Run(ctx, pb)
}

// Run executes a playbook and returns the results. Steps run strictly in
// declared order. A non-optional step error aborts the remainder of its
// stage (later steps may depend on its writes); later stages still run
// unless fail-fast is set.
func (r *Runner) Run(ctx context.Context, pb *graphtune.Playbook) (*Result, error) {
	if r.database == nil {
		return nil, ErrNoDatabase
	}

	filtered, err := pb.Filter(r.stages...)
	if err != nil {
		return nil, err
	}

	result := NewResult()

	handlers := []Handler{NewResultHandler()}
	if r.handler != nil {
		handlers = append(handlers, r.handler)
	}

	if r.failFast {
		handlers = append(handlers, NewStopOnFailHandler(1))
	}

	handler := NewMultiHandler(handlers...)

	for _, stage := range filtered.Stages {
		for _, step := range stage.Steps {
			action, err := r.runStep(ctx, pb.Name, stage, step, handler, result)
			if errors.Is(err, ErrMaxFailures) {
				result.Finish()

				return result, nil
			}

			if err != nil {
				return result, err
			}

			if action == ActionError {
				break
			}
		}
	}

	result.Finish()

	return result, nil
}

// runStep executes one step and reports its terminal action so the caller
// can abort the stage after an error.
func (r *Runner) runStep(
	ctx context.Context,
	playbook string,
	stage *graphtune.Stage,
	step *graphtune.Step,
	handler Handler,
	result *Result,
) (Action, error) {
	path := []string{stage.Name, step.Name}

	if !r.matchesFilter(path) {
		return "", nil
	}

	start := time.Now()

	err := handler.Event(ctx, Event{
		Time:     start,
		Action:   ActionRun,
		Playbook: playbook,
		Path:     path,
	}, result)
	if err != nil {
		return "", err
	}

	r.log.Debug("running step",
		zap.String("stage", stage.Name),
		zap.String("step", step.Name),
		zap.Bool("profile", step.Profile),
		zap.Bool("rollback", step.Rollback))

	rows, pl, execErr := r.execute(ctx, step)
	if execErr != nil {
		if step.Optional {
			return ActionSkip, handler.Event(ctx, Event{
				Time:     time.Now(),
				Action:   ActionSkip,
				Playbook: playbook,
				Path:     path,
				Elapsed:  time.Since(start),
				Output:   execErr.Error(),
			}, result)
		}

		return ActionError, handler.Event(ctx, Event{
			Time:     time.Now(),
			Action:   ActionError,
			Playbook: playbook,
			Path:     path,
			Elapsed:  time.Since(start),
			Error:    execErr,
		}, result)
	}

	if step.Comment != "" {
		err := handler.Event(ctx, Event{
			Time:     time.Now(),
			Action:   ActionOutput,
			Playbook: playbook,
			Path:     path,
			Output:   strings.TrimSpace(step.Comment),
		}, result)
		if err != nil {
			return "", err
		}
	}

	if pl != nil {
		err := handler.Event(ctx, Event{
			Time:     time.Now(),
			Action:   ActionOutput,
			Playbook: playbook,
			Path:     path,
			Output:   pl.Render(),
		}, result)
		if err != nil {
			return "", err
		}
	}

	env := BuildEnv(rows, pl)

	for _, cond := range step.Expect {
		eval := EvalExpr(cond, env)
		if eval.Error != nil {
			return ActionError, handler.Event(ctx, Event{
				Time:     time.Now(),
				Action:   ActionError,
				Playbook: playbook,
				Path:     path,
				Elapsed:  time.Since(start),
				Error:    eval.Error,
			}, result)
		}

		if !eval.Passed {
			return ActionFail, handler.Event(ctx, Event{
				Time:     time.Now(),
				Action:   ActionFail,
				Playbook: playbook,
				Path:     path,
				Elapsed:  time.Since(start),
				Field:    cond,
				Expected: true,
				Actual:   false,
			}, result)
		}
	}

	return ActionPass, handler.Event(ctx, Event{
		Time:     time.Now(),
		Action:   ActionPass,
		Playbook: playbook,
		Path:     path,
		Elapsed:  time.Since(start),
	}, result)
}

// execute runs the step's statement, capturing a plan when requested and
// the backend supports it. Rollback steps run inside a transaction that
// is always rolled back.
func (r *Runner) execute(ctx context.Context, step *graphtune.Step) ([]map[string]any, *plan.Plan, error) {
	if step.Rollback {
		return r.executeRolledBack(ctx, step)
	}

	if step.Captured() {
		if profiler, ok := r.database.(graphtune.Profiler); ok {
			pl, rows, err := profiler.Profile(ctx, step.Cypher, step.Params, step.Mode())
			if !errors.Is(err, graphtune.ErrNoProfileSupport) {
				return rows, pl, err
			}
		}
	}

	rows, err := r.database.Execute(ctx, step.Cypher, step.Params)

	return rows, nil, err
}

func (r *Runner) executeRolledBack(ctx context.Context, step *graphtune.Step) ([]map[string]any, *plan.Plan, error) {
	if !graphtune.CanTransact(r.database) {
		return nil, nil, graphtune.ErrNoTransactionSupport
	}

	txdb, _ := r.database.(graphtune.Transactional)

	tx, err := txdb.Begin(ctx)
	if err != nil {
		return nil, nil, err
	}

	rows, execErr := tx.Execute(ctx, step.Cypher, step.Params)

	rbErr := tx.Rollback(ctx)
	if execErr != nil {
		return nil, nil, execErr
	}

	if rbErr != nil {
		return nil, nil, rbErr
	}

	return rows, nil, nil
}

// matchesFilter returns true if the step path matches the filter pattern.
// If no filter is set, all steps match.
func (r *Runner) matchesFilter(path []string) bool {
	if r.filter == nil {
		return true
	}

	return r.filter.MatchString(strings.Join(path, "/"))
}
