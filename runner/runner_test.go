package runner //nolint:testpackage

import (
	"context"
	"errors"
	"testing"

	"github.com/graphtune/graphtune"
	"github.com/graphtune/graphtune/plan"
)

// fakeDB is a scripted backend keyed by query text.
type fakeDB struct {
	rows  map[string][]map[string]any
	plans map[string]*plan.Plan
	errs  map[string]error

	executed []string
	profiled []string
}

func newFakeDB() *fakeDB {
	return &fakeDB{
		rows:  map[string][]map[string]any{},
		plans: map[string]*plan.Plan{},
		errs:  map[string]error{},
	}
}

func (f *fakeDB) Name() string { return "fake" }

func (f *fakeDB) Close() error { return nil }

func (f *fakeDB) Execute(_ context.Context, query string, _ map[string]any) ([]map[string]any, error) {
	f.executed = append(f.executed, query)

	if err := f.errs[query]; err != nil {
		return nil, err
	}

	return f.rows[query], nil
}

func (f *fakeDB) Profile(
	_ context.Context, query string, _ map[string]any, _ graphtune.ProfileMode,
) (*plan.Plan, []map[string]any, error) {
	f.profiled = append(f.profiled, query)

	if err := f.errs[query]; err != nil {
		return nil, nil, err
	}

	return f.plans[query], f.rows[query], nil
}

var (
	_ graphtune.Database = (*fakeDB)(nil)
	_ graphtune.Profiler = (*fakeDB)(nil)
)

func testPlaybook() *graphtune.Playbook {
	return &graphtune.Playbook{
		Name: "test",
		Stages: []*graphtune.Stage{
			{
				Name: "ingest",
				Steps: []*graphtune.Step{
					{Name: "load", Cypher: "CREATE (m:Movie {title: 'Apollo 13'})"},
				},
			},
			{
				Name: "tuning",
				Steps: []*graphtune.Step{
					{
						Name:    "lookup",
						Cypher:  "MATCH (p:Person {name: 'Tom Hanks'}) RETURN p",
						Profile: true,
						Expect:  []string{`has("NodeIndexSeek")`},
					},
				},
			},
		},
	}
}

func seekPlan() *plan.Plan {
	return &plan.Plan{
		Root: &plan.Operator{
			Type: "ProduceResults",
			Children: []*plan.Operator{
				{Type: "NodeIndexSeek"},
			},
		},
		Profiled: true,
	}
}

func TestRunner_Run_Pass(t *testing.T) {
	db := newFakeDB()
	db.plans["MATCH (p:Person {name: 'Tom Hanks'}) RETURN p"] = seekPlan()

	handler := &mockHandler{}

	r := New(WithDatabase(db), WithHandler(handler))

	result, err := r.Run(context.Background(), testPlaybook())
	if err != nil {
		t.Fatal(err)
	}

	if !result.Ok() {
		t.Errorf("expected all steps to pass: %+v", result)
	}

	if result.Passed != 2 {
		t.Errorf("Passed = %d, want 2", result.Passed)
	}

	if len(db.executed) != 1 || len(db.profiled) != 1 {
		t.Errorf("executed %v, profiled %v", db.executed, db.profiled)
	}

	var sawPlanOutput bool

	for _, ev := range handler.events {
		if ev.Action == ActionOutput && ev.StepName() == "lookup" {
			sawPlanOutput = true
		}
	}

	if !sawPlanOutput {
		t.Error("expected a plan output event for the profiled step")
	}
}

func TestRunner_Run_ExpectationFails(t *testing.T) {
	db := newFakeDB()
	db.plans["MATCH (p:Person {name: 'Tom Hanks'}) RETURN p"] = &plan.Plan{
		Root:     &plan.Operator{Type: "AllNodesScan"},
		Profiled: true,
	}

	handler := &mockHandler{}

	r := New(WithDatabase(db), WithHandler(handler))

	result, err := r.Run(context.Background(), testPlaybook())
	if err != nil {
		t.Fatal(err)
	}

	if result.Ok() {
		t.Error("expected failure with AllNodesScan plan")
	}

	if result.Failed != 1 {
		t.Errorf("Failed = %d, want 1", result.Failed)
	}

	var fail *Event

	for i := range handler.events {
		if handler.events[i].Action == ActionFail {
			fail = &handler.events[i]
		}
	}

	if fail == nil {
		t.Fatal("no fail event")
	}

	if fail.Field != `has("NodeIndexSeek")` {
		t.Errorf("Field = %q", fail.Field)
	}
}

func TestRunner_Run_OptionalStepSkips(t *testing.T) {
	db := newFakeDB()
	db.errs["CREATE DATABASE movies IF NOT EXISTS"] = errors.New("Unsupported administration command")

	pb := &graphtune.Playbook{
		Name: "test",
		Stages: []*graphtune.Stage{
			{
				Name: "setup",
				Steps: []*graphtune.Step{
					{Name: "create-database", Cypher: "CREATE DATABASE movies IF NOT EXISTS", Optional: true},
					{Name: "counts", Cypher: "MATCH (n) RETURN count(n)"},
				},
			},
		},
	}

	r := New(WithDatabase(db))

	result, err := r.Run(context.Background(), pb)
	if err != nil {
		t.Fatal(err)
	}

	if !result.Ok() {
		t.Errorf("optional failure should not fail the run: %+v", result)
	}

	if result.Skipped != 1 || result.Passed != 1 {
		t.Errorf("Skipped = %d, Passed = %d", result.Skipped, result.Passed)
	}
}

func TestRunner_Run_ErrorAbortsStage(t *testing.T) {
	db := newFakeDB()
	db.errs["LOAD MOVIES"] = errors.New("connection reset")
	db.plans["MATCH (p:Person {name: 'Tom Hanks'}) RETURN p"] = seekPlan()

	pb := &graphtune.Playbook{
		Name: "test",
		Stages: []*graphtune.Stage{
			{
				Name: "ingest",
				Steps: []*graphtune.Step{
					{Name: "load-movies", Cypher: "LOAD MOVIES"},
					{Name: "load-actors", Cypher: "LOAD ACTORS"},
				},
			},
			{
				Name: "tuning",
				Steps: []*graphtune.Step{
					{
						Name:    "lookup",
						Cypher:  "MATCH (p:Person {name: 'Tom Hanks'}) RETURN p",
						Profile: true,
						Expect:  []string{`has("NodeIndexSeek")`},
					},
				},
			},
		},
	}

	r := New(WithDatabase(db))

	result, err := r.Run(context.Background(), pb)
	if err != nil {
		t.Fatal(err)
	}

	if result.Errors != 1 {
		t.Errorf("Errors = %d, want 1", result.Errors)
	}

	// The failed load aborts the rest of its stage; dependent steps must
	// not run against a half-loaded graph.
	for _, q := range db.executed {
		if q == "LOAD ACTORS" {
			t.Error("step after a stage error still ran")
		}
	}

	// The next stage is independent and still runs.
	if result.Passed != 1 {
		t.Errorf("Passed = %d, want 1: later stages should still run", result.Passed)
	}
}

func TestRunner_Run_FailFast(t *testing.T) {
	db := newFakeDB()
	db.errs["CREATE (m:Movie {title: 'Apollo 13'})"] = errors.New("connection reset")

	r := New(WithDatabase(db), WithFailFast(true))

	result, err := r.Run(context.Background(), testPlaybook())
	if err != nil {
		t.Fatal(err)
	}

	if result.Total != 1 {
		t.Errorf("Total = %d, want 1: fail-fast should stop after the error", result.Total)
	}

	if len(db.profiled) != 0 {
		t.Errorf("later step still ran: %v", db.profiled)
	}
}

func TestRunner_Run_StageFilter(t *testing.T) {
	db := newFakeDB()

	r := New(WithDatabase(db), WithStages("ingest"))

	result, err := r.Run(context.Background(), testPlaybook())
	if err != nil {
		t.Fatal(err)
	}

	if result.Total != 1 {
		t.Errorf("Total = %d, want 1", result.Total)
	}

	if len(db.executed) != 1 || db.executed[0] != "CREATE (m:Movie {title: 'Apollo 13'})" {
		t.Errorf("executed %v", db.executed)
	}
}

func TestRunner_Run_UnknownStage(t *testing.T) {
	r := New(WithDatabase(newFakeDB()), WithStages("nope"))

	_, err := r.Run(context.Background(), testPlaybook())
	if !errors.Is(err, graphtune.ErrUnknownStage) {
		t.Errorf("err = %v, want ErrUnknownStage", err)
	}
}

func TestRunner_Run_StepRegexFilter(t *testing.T) {
	db := newFakeDB()
	db.plans["MATCH (p:Person {name: 'Tom Hanks'}) RETURN p"] = seekPlan()

	r := New(WithDatabase(db), WithFilter("tuning/"))

	result, err := r.Run(context.Background(), testPlaybook())
	if err != nil {
		t.Fatal(err)
	}

	if result.Total != 1 {
		t.Errorf("Total = %d, want 1", result.Total)
	}

	if len(db.executed) != 0 {
		t.Errorf("filtered step ran: %v", db.executed)
	}
}

// txFakeDB adds explicit transactions so rollback steps can run.
type txFakeDB struct {
	fakeDB

	txQueries []string
	rollbacks int
	commits   int
}

func (f *txFakeDB) Begin(_ context.Context) (graphtune.Transaction, error) {
	return &fakeTx{db: f}, nil
}

type fakeTx struct {
	db *txFakeDB
}

func (t *fakeTx) Execute(_ context.Context, query string, _ map[string]any) ([]map[string]any, error) {
	t.db.txQueries = append(t.db.txQueries, query)

	if err := t.db.errs[query]; err != nil {
		return nil, err
	}

	return t.db.rows[query], nil
}

func (t *fakeTx) Commit(_ context.Context) error {
	t.db.commits++

	return nil
}

func (t *fakeTx) Rollback(_ context.Context) error {
	t.db.rollbacks++

	return nil
}

var _ graphtune.Transactional = (*txFakeDB)(nil)

func TestRunner_Run_RollbackStep(t *testing.T) {
	db := &txFakeDB{fakeDB: *newFakeDB()}
	db.rows["MERGE (m:Movie {title: 'Apollo 13'}) RETURN m.title AS title"] = []map[string]any{
		{"title": "Apollo 13"},
	}

	pb := &graphtune.Playbook{
		Name: "test",
		Stages: []*graphtune.Stage{
			{
				Name: "inspect",
				Steps: []*graphtune.Step{
					{
						Name:     "merge-check",
						Cypher:   "MERGE (m:Movie {title: 'Apollo 13'}) RETURN m.title AS title",
						Rollback: true,
						Expect:   []string{"rows == 1"},
					},
				},
			},
		},
	}

	r := New(WithDatabase(db))

	result, err := r.Run(context.Background(), pb)
	if err != nil {
		t.Fatal(err)
	}

	if !result.Ok() {
		t.Errorf("rollback step should pass: %+v", result)
	}

	if len(db.txQueries) != 1 {
		t.Errorf("txQueries = %v, want the merge inside the transaction", db.txQueries)
	}

	if len(db.executed) != 0 {
		t.Errorf("rollback step ran outside the transaction: %v", db.executed)
	}

	if db.rollbacks != 1 || db.commits != 0 {
		t.Errorf("rollbacks = %d, commits = %d; want 1 rollback and no commit", db.rollbacks, db.commits)
	}
}

func TestRunner_Run_RollbackWithoutTransactions(t *testing.T) {
	pb := &graphtune.Playbook{
		Name: "test",
		Stages: []*graphtune.Stage{
			{
				Name: "inspect",
				Steps: []*graphtune.Step{
					{Name: "merge-check", Cypher: "MERGE (m:Movie {title: 'X'})", Rollback: true},
				},
			},
		},
	}

	r := New(WithDatabase(newFakeDB()))

	result, err := r.Run(context.Background(), pb)
	if err != nil {
		t.Fatal(err)
	}

	if result.Errors != 1 {
		t.Errorf("Errors = %d, want 1", result.Errors)
	}

	record := result.Records()[0]
	if !errors.Is(record.Error, graphtune.ErrNoTransactionSupport) {
		t.Errorf("step error = %v, want ErrNoTransactionSupport", record.Error)
	}
}

// plainDB implements only the base Database interface, no plan capture.
type plainDB struct {
	rows map[string][]map[string]any
}

func (p *plainDB) Name() string { return "plain" }

func (p *plainDB) Close() error { return nil }

func (p *plainDB) Execute(_ context.Context, query string, _ map[string]any) ([]map[string]any, error) {
	return p.rows[query], nil
}

func TestRunner_Run_ProfileFallback(t *testing.T) {
	db := &plainDB{rows: map[string][]map[string]any{
		"MATCH (p:Person {name: 'Tom Hanks'}) RETURN p": {{"p.name": "Tom Hanks"}},
	}}

	pb := &graphtune.Playbook{
		Name: "test",
		Stages: []*graphtune.Stage{
			{
				Name: "tuning",
				Steps: []*graphtune.Step{
					{
						Name:    "lookup",
						Cypher:  "MATCH (p:Person {name: 'Tom Hanks'}) RETURN p",
						Profile: true,
						Expect:  []string{"rows == 1", `has("NodeIndexSeek")`},
					},
				},
			},
		},
	}

	r := New(WithDatabase(db))

	result, err := r.Run(context.Background(), pb)
	if err != nil {
		t.Fatal(err)
	}

	// Without plan capture the statement still executes, and operator
	// expectations fail loudly instead of passing vacuously.
	if result.Failed != 1 {
		t.Errorf("Failed = %d, want 1", result.Failed)
	}

	record := result.Records()[0]
	if record.Field != `has("NodeIndexSeek")` {
		t.Errorf("failed expectation = %q", record.Field)
	}
}

func TestRunner_Run_NoDatabase(t *testing.T) {
	r := New()

	_, err := r.Run(context.Background(), testPlaybook())
	if !errors.Is(err, ErrNoDatabase) {
		t.Errorf("err = %v, want ErrNoDatabase", err)
	}

	_, err = r.RunFile(context.Background(), "playbook.yaml")
	if !errors.Is(err, ErrNoDatabase) {
		t.Errorf("err = %v, want ErrNoDatabase", err)
	}
}
