package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bigdegenenergy/open-cloud-ops/janus/internal/topology"
	"github.com/bigdegenenergy/open-cloud-ops/janus/pkg/models"
)

// setupData copies the m1 maintenance into a temp data path and points
// JANUS_PATH at an empty home so no user config is read.
func setupData(t *testing.T) string {
	t.Helper()
	t.Setenv("JANUS_PATH", t.TempDir())
	dataPath := t.TempDir()
	src := filepath.Join("..", "internal", "maintenance", "testdata", "m1")
	dst := filepath.Join(dataPath, "m1")
	require.NoError(t, os.MkdirAll(dst, 0755))
	entries, err := os.ReadDir(src)
	require.NoError(t, err)
	for _, e := range entries {
		data, err := os.ReadFile(filepath.Join(src, e.Name()))
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(dst, e.Name()), data, 0644))
	}
	return dataPath
}

func run(t *testing.T, dataPath string, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := newRootCommand(&out, &errOut)
	root.SetArgs(append([]string{"--data", dataPath, "--log-level", "error"}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestRenderCommand(t *testing.T) {
	dataPath := setupData(t)
	dist := t.TempDir()

	out, err := run(t, dataPath, "render", "m1", "--dist", dist)
	require.NoError(t, err)
	assert.Contains(t, out, "alice-0-update-ecs-task-count-ZERO.sh")
	assert.Contains(t, out, "completed (5 written, 3 skipped, 0 failed)")

	entries, err := os.ReadDir(dist)
	require.NoError(t, err)
	assert.Len(t, entries, 5)

	t.Run("json", func(t *testing.T) {
		out, err := run(t, dataPath, "render", "m1", "--operator", "bob", "--steps", "1-2", "--dist", t.TempDir(), "-o", "json")
		require.NoError(t, err)
		var r models.RenderRun
		require.NoError(t, json.Unmarshal([]byte(out), &r))
		assert.Equal(t, []string{"bob"}, r.Operators)
		assert.Equal(t, 2, r.Written)
	})

	t.Run("errors", func(t *testing.T) {
		_, err := run(t, dataPath, "render", "m1", "--steps", "x")
		assert.Error(t, err)

		_, err = run(t, dataPath, "render", "missing")
		assert.ErrorIs(t, err, topology.ErrNotFound)

		_, err = run(t, dataPath, "render", "m1", "--publish")
		assert.Error(t, err)
	})
}

func TestValidateCommand(t *testing.T) {
	dataPath := setupData(t)

	out, err := run(t, dataPath, "validate", "m1")
	require.NoError(t, err)
	assert.Contains(t, out, "m1: passed (0 errors, 0 warnings, 0 infos)")

	_, err = run(t, dataPath, "validate", "m1", "--disable", "no-such-rule")
	assert.Error(t, err)

	for _, name := range []string{"resource.yaml", "operator.yaml"} {
		path := filepath.Join(dataPath, "m1", name)
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		data = []byte(strings.ReplaceAll(string(data), "search:", "Search_NS:"))
		require.NoError(t, os.WriteFile(path, data, 0644))
	}

	out, err = run(t, dataPath, "validate", "m1")
	assert.ErrorIs(t, err, errLintFailed)
	assert.Contains(t, out, "k8s-name")
	assert.Contains(t, out, "namespace platform/Search_NS")

	_, err = run(t, dataPath, "validate", "m1", "--disable", "k8s-name")
	assert.NoError(t, err)
}

func TestStepsCommand(t *testing.T) {
	dataPath := setupData(t)

	out, err := run(t, dataPath, "steps")
	require.NoError(t, err)
	assert.Contains(t, out, "update-ecs-task-count")
	assert.Contains(t, out, "query-k8s-deployment-status")

	out, err = run(t, dataPath, "steps", "m1")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 5)
	assert.Regexp(t, `^0\s+update-ecs-task-count\s+ZERO$`, lines[1])
	assert.Regexp(t, `^2\s+dump-pgstats\s*$`, lines[3])

	out, err = run(t, dataPath, "steps", "-o", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "kind: update-ecs-task-count")
}

func TestOperatorsCommand(t *testing.T) {
	dataPath := setupData(t)

	out, err := run(t, dataPath, "operators", "m1")
	require.NoError(t, err)
	assert.Regexp(t, `alice\s+2\s+3\s+0\s+0`, out)
	assert.Regexp(t, `bob\s+2\s+0\s+3\s+1`, out)

	_, err = run(t, dataPath, "operators", "m1", "-o", "xml")
	assert.Error(t, err)
}

func TestMaskDSN(t *testing.T) {
	assert.Equal(t, "postgres://janus:****@db:5432/janus", maskDSN("postgres://janus:secret@db:5432/janus"))
	assert.Equal(t, "postgres://db:5432/janus", maskDSN("postgres://db:5432/janus"))
}
