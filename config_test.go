package graphtune_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graphtune/graphtune"
)

func TestLoadConfig(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, ".graphtune.yaml")

	err := os.WriteFile(path, []byte(`
backend: cypher
connection:
  uri: bolt://localhost:7687
  username: neo4j
  password: secret
  database: moviegraph
playbooks:
  - movie-tuning.yaml
`), 0o600)
	require.NoError(t, err)

	cfg, err := graphtune.LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "cypher", cfg.Backend)
	assert.Equal(t, "bolt://localhost:7687", cfg.Connection.URI)
	assert.Equal(t, "neo4j", cfg.Connection.Username)
	assert.Equal(t, "moviegraph", cfg.Connection.Database)
	assert.Equal(t, []string{"movie-tuning.yaml"}, cfg.Playbooks)
}

func TestFindConfig_WalksUp(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o750))

	path := filepath.Join(root, "graphtune.yaml")
	require.NoError(t, os.WriteFile(path, []byte("backend: cypher\n"), 0o600))

	found, err := graphtune.FindConfig(nested)
	require.NoError(t, err)
	assert.Equal(t, path, found)
}

func TestFindConfig_NotFound(t *testing.T) {
	t.Parallel()

	_, err := graphtune.FindConfig(t.TempDir())
	assert.ErrorIs(t, err, graphtune.ErrConfigNotFound)
}
