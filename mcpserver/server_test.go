package mcpserver

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dependents/node-app-root/config"
	"github.com/dependents/node-app-root/roots"
)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return dir
}

var tree = map[string]string{
	"app/main.js":  "require('./view');\nrequire('../lib/util');",
	"app/view.js":  "require('../lib/util');",
	"lib/util.js":  "module.exports = {};",
	"lone.js":      "module.exports = 'alone';",
	"cycle/a.js":   "require('./b');",
	"cycle/b.js":   "require('./a');",
	"cycle/use.js": "require('./a');",
}

func TestFindRoots(t *testing.T) {
	dir := writeTree(t, tree)
	s := New(config.Defaults(), "test")

	_, out, err := s.findRoots(context.Background(), nil, FindRootsInput{Directory: dir})
	require.NoError(t, err)
	assert.Equal(t, []string{"app/main.js", "cycle/use.js"}, out.Roots)
	assert.Equal(t, "zero-incoming", out.Policy)
	assert.Equal(t, 7, out.Files)
	assert.Equal(t, 7, out.Modules)
	assert.Empty(t, out.Diagnostics)

	_, out, err = s.findRoots(context.Background(), nil, FindRootsInput{Directory: dir, IncludeNoDependencyModules: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"app/main.js", "cycle/use.js", "lone.js"}, out.Roots)

	_, out, err = s.findRoots(context.Background(), nil, FindRootsInput{Directory: dir, IgnoreDirectories: []string{"cycle"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"app/main.js"}, out.Roots)
}

func TestFindRootsErrors(t *testing.T) {
	s := New(config.Defaults(), "test")

	_, _, err := s.findRoots(context.Background(), nil, FindRootsInput{})
	assert.ErrorIs(t, err, roots.ErrMissingDirectory)

	_, _, err = s.findRoots(context.Background(), nil, FindRootsInput{Directory: t.TempDir(), Policy: "widest"})
	assert.ErrorIs(t, err, roots.ErrUnknownPolicy)
}

func TestDependencyGraph(t *testing.T) {
	dir := writeTree(t, tree)
	s := New(config.Defaults(), "test")

	_, out, err := s.dependencyGraph(context.Background(), nil, FindRootsInput{Directory: dir})
	require.NoError(t, err)

	assert.Equal(t, []string{"app/view.js", "lib/util.js"}, out.Graph["app/main.js"])
	assert.Equal(t, []string{}, out.Graph["lib/util.js"])
	assert.Equal(t, []string{"app/main.js", "app/view.js"}, out.Importers["lib/util.js"])
	assert.Equal(t, []string{}, out.Importers["app/main.js"])
	assert.Equal(t, 2, out.Degrees["app/main.js"])
	assert.Equal(t, 1, out.Degrees["cycle/a.js"])
	require.Len(t, out.Cycles, 1)
	assert.Equal(t, []string{"cycle/a.js", "cycle/b.js"}, out.Cycles[0])
}

func TestBaseConfigApplies(t *testing.T) {
	dir := writeTree(t, tree)
	base := config.Defaults()
	base.Policy = config.PolicyCumulativeDegree
	s := New(base, "test")

	_, out, err := s.findRoots(context.Background(), nil, FindRootsInput{Directory: dir})
	require.NoError(t, err)
	assert.Equal(t, config.PolicyCumulativeDegree, out.Policy)
	assert.Equal(t, []string{"app/main.js", "cycle/use.js"}, out.Roots, "both reach two other files")
}
