package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
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

func execute(t *testing.T, args ...string) (stdout, stderr string, code int) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := NewRootCommand("test", &out, &errOut)
	code = run(root, args, &errOut)
	return out.String(), errOut.String(), code
}

var chain = map[string]string{
	"a.js":      "var b = require('./b');",
	"b.js":      "var c = require('./c');\nmodule.exports = c;",
	"c.js":      "module.exports = 1;",
	"d.js":      "module.exports = 'alone';",
	"vendor.js": "require('./a');",
}

func TestFindPrintsRoots(t *testing.T) {
	dir := writeTree(t, chain)

	out, _, code := execute(t, dir)
	require.Equal(t, 0, code)
	abs, err := filepath.Abs(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(abs, "vendor.js")+"\n", out)

	out, _, code = execute(t, "find", dir, "--include-no-deps")
	require.Equal(t, 0, code)
	assert.Equal(t, filepath.Join(abs, "d.js")+"\n"+filepath.Join(abs, "vendor.js")+"\n", out)
}

func TestFindFlags(t *testing.T) {
	dir := writeTree(t, chain)

	out, _, code := execute(t, dir, "--ignore-file", "vendor.js")
	require.Equal(t, 0, code)
	assert.True(t, strings.HasSuffix(strings.TrimSpace(out), "a.js"), out)

	out, _, code = execute(t, dir, "--policy", "cumulative-degree")
	require.Equal(t, 0, code)
	assert.True(t, strings.HasSuffix(strings.TrimSpace(out), "vendor.js"), out)
}

func TestFindJSON(t *testing.T) {
	dir := writeTree(t, chain)

	out, _, code := execute(t, "--json", dir)
	require.Equal(t, 0, code)

	var report map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, "zero-incoming", report["policy"])
	assert.Len(t, report["roots"], 1)
	assert.Len(t, report["graph"], 5)
}

func TestFindGraph(t *testing.T) {
	dir := writeTree(t, chain)

	out, _, code := execute(t, "--graph", dir)
	require.Equal(t, 0, code)
	assert.Contains(t, out, "a.js -> b.js\n")
	assert.Contains(t, out, "vendor.js -> a.js\n")
	assert.Contains(t, out, "d.js\n")

	out, _, code = execute(t, "--graph", "--json", dir)
	require.Equal(t, 0, code)
	var g map[string][]string
	require.NoError(t, json.Unmarshal([]byte(out), &g))
	assert.Equal(t, []string{"c.js"}, g["b.js"])
}

func TestConfigFile(t *testing.T) {
	dir := writeTree(t, chain)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".approot.yaml"),
		[]byte("include_no_dependency_modules: true\n"), 0o644))

	out, _, code := execute(t, dir)
	require.Equal(t, 0, code)
	assert.Equal(t, 2, strings.Count(out, "\n"), out)
}

func TestEnvironmentOverride(t *testing.T) {
	dir := writeTree(t, chain)
	t.Setenv("APPROOT_POLICY", "widest")

	_, stderr, code := execute(t, dir)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "widest")
}

func TestMissingDirectoryIsUsageError(t *testing.T) {
	out, stderr, code := execute(t)
	assert.Equal(t, 1, code)
	assert.Empty(t, out)
	assert.Contains(t, stderr, "missing directory")
	assert.Contains(t, stderr, "Usage:")

	_, stderr, code = execute(t, "watch")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "Usage:")
}

func TestNonexistentDirectory(t *testing.T) {
	_, stderr, code := execute(t, filepath.Join(t.TempDir(), "missing"))
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "Error:")
	assert.NotContains(t, stderr, "Usage:")
}

func TestUnknownPolicyFlag(t *testing.T) {
	_, stderr, code := execute(t, t.TempDir(), "--policy", "deepest")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "deepest")
}

func TestStatusWithoutDaemon(t *testing.T) {
	out, _, code := execute(t, "status", t.TempDir())
	require.Equal(t, 0, code)
	assert.Contains(t, out, "No watch state recorded")
}

func TestHelp(t *testing.T) {
	out, _, code := execute(t, "--help")
	require.Equal(t, 0, code)
	for _, expected := range []string{"approot", "Usage:", "--policy", "--ignore-dir", "--include-no-deps", "--json", "--graph", "watch", "status", "mcp"} {
		assert.Contains(t, out, expected)
	}
}

func TestFindPretty(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"admin/main.js": "require('../lib/util');",
		"shop/main.js":  "require('../lib/util');",
		"lib/util.js":   "module.exports = {};",
	})

	out, _, code := execute(t, "--pretty", dir)
	require.Equal(t, 0, code)
	for _, expected := range []string{"2 roots", "admin/", "shop/", "main.js", "(1 deps)"} {
		assert.Contains(t, out, expected)
	}
}
