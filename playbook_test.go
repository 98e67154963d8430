package graphtune_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graphtune/graphtune"
)

func TestParsePlaybook(t *testing.T) {
	t.Parallel()

	data := []byte(`
name: sample
stages:
  - name: ingest
    steps:
      - name: load
        cypher: "MERGE (m:Movie {title: $title})"
        params:
          title: The Matrix
  - name: tuning
    steps:
      - name: lookup
        profile: true
        cypher: "MATCH (p:Person {name: $name}) RETURN p.name AS name"
        params:
          name: Tom Hanks
        expect:
          - rows == 1
          - has("NodeIndexSeek")
      - name: counts
        cypher: MATCH (n) RETURN count(n) AS nodes
        expect:
          - first.nodes > 0
          - first.missing == nil
`)

	pb, err := graphtune.ParsePlaybook(data)
	require.NoError(t, err)

	assert.Equal(t, "sample", pb.Name)
	require.Len(t, pb.Stages, 2)
	assert.Equal(t, 3, pb.StepCount())

	lookup := pb.Stages[1].Steps[0]
	assert.True(t, lookup.Profile)
	assert.True(t, lookup.Captured())
	assert.Equal(t, graphtune.ModeProfile, lookup.Mode())
	assert.Equal(t, map[string]any{"name": "Tom Hanks"}, lookup.Params)
}

func TestParsePlaybook_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{
			name:    "no stages",
			input:   "name: empty\n",
			wantErr: graphtune.ErrEmptyPlaybook,
		},
		{
			name: "duplicate step",
			input: `
stages:
  - name: s
    steps:
      - name: a
        cypher: RETURN 1
      - name: a
        cypher: RETURN 2
`,
			wantErr: graphtune.ErrDuplicateStep,
		},
		{
			name: "empty cypher",
			input: `
stages:
  - name: s
    steps:
      - name: a
        cypher: "  "
`,
			wantErr: graphtune.ErrEmptyCypher,
		},
		{
			name: "bad expectation",
			input: `
stages:
  - name: s
    steps:
      - name: a
        cypher: RETURN 1
        expect:
          - "rows =="
`,
			wantErr: graphtune.ErrBadExpectation,
		},
		{
			name: "unknown expectation variable",
			input: `
stages:
  - name: s
    steps:
      - name: a
        cypher: RETURN 1
        expect:
          - "nodes > 0"
`,
			wantErr: graphtune.ErrBadExpectation,
		},
		{
			name: "rollback with profile",
			input: `
stages:
  - name: s
    steps:
      - name: a
        cypher: RETURN 1
        rollback: true
        profile: true
`,
			wantErr: graphtune.ErrRollbackProfile,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := graphtune.ParsePlaybook([]byte(tt.input))
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestMovieTutorial(t *testing.T) {
	t.Parallel()

	pb := graphtune.MovieTutorial()

	assert.Equal(t, "movie-tuning", pb.Name)

	for _, stage := range []string{"setup", "ingest", "inspect", "tuning"} {
		assert.NotNil(t, pb.Stage(stage), "missing stage %s", stage)
	}

	// Ingestion is merge-based so the stage can be re-run safely.
	ingest := pb.Stage("ingest")
	require.NotNil(t, ingest)

	for _, name := range []string{"load-movies", "load-actors", "load-directors"} {
		found := false

		for _, step := range ingest.Steps {
			if step.Name == name {
				found = true

				assert.Contains(t, step.Cypher, "MERGE")
			}
		}

		assert.True(t, found, "missing ingest step %s", name)
	}

	// The setup stage must not abort runs on restricted servers.
	setup := pb.Stage("setup")
	require.NotEmpty(t, setup.Steps)
	assert.True(t, setup.Steps[0].Optional)

	// The idempotence check writes inside a rolled-back transaction.
	inspect := pb.Stage("inspect")
	require.NotNil(t, inspect)

	rollback := false

	for _, step := range inspect.Steps {
		if step.Rollback {
			rollback = true
		}
	}

	assert.True(t, rollback, "inspect stage should carry a rollback step")

	// Tuning steps capture plans.
	tuning := pb.Stage("tuning")

	profiled := 0

	for _, step := range tuning.Steps {
		if step.Profile {
			profiled++
		}
	}

	assert.GreaterOrEqual(t, profiled, 5)
}

func TestPlaybook_Filter(t *testing.T) {
	t.Parallel()

	pb := graphtune.MovieTutorial()

	filtered, err := pb.Filter("ingest", "tuning")
	require.NoError(t, err)
	require.Len(t, filtered.Stages, 2)
	assert.Equal(t, "ingest", filtered.Stages[0].Name)
	assert.Equal(t, "tuning", filtered.Stages[1].Name)

	_, err = pb.Filter("nope")
	assert.ErrorIs(t, err, graphtune.ErrUnknownStage)

	same, err := pb.Filter()
	require.NoError(t, err)
	assert.Equal(t, pb, same)
}

func TestLoadPlaybook(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "demo.yaml")

	err := os.WriteFile(path, []byte(`
stages:
  - name: s
    steps:
      - name: a
        cypher: RETURN 1
`), 0o600)
	require.NoError(t, err)

	pb, err := graphtune.LoadPlaybook(path)
	require.NoError(t, err)

	// Name falls back to the file basename.
	assert.Equal(t, "demo", pb.Name)

	_, err = graphtune.LoadPlaybook(filepath.Join(dir, "missing.yaml"))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}
