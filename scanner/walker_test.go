package scanner

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

// writeTree creates files (with placeholder content) under root.
func writeTree(t *testing.T, root string, files ...string) {
	t.Helper()
	for _, f := range files {
		path := filepath.Join(root, filepath.FromSlash(f))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("Failed to create directory: %v", err)
		}
		if err := os.WriteFile(path, []byte("module.exports = {};\n"), 0644); err != nil {
			t.Fatalf("Failed to create file: %v", err)
		}
	}
}

// relPaths strips root from collected paths for readable comparisons.
func relPaths(t *testing.T, root string, files []string) []string {
	t.Helper()
	out := make([]string, 0, len(files))
	for _, f := range files {
		if !filepath.IsAbs(f) {
			t.Errorf("Expected absolute path, got %s", f)
		}
		rel, err := filepath.Rel(root, f)
		if err != nil {
			t.Fatal(err)
		}
		out = append(out, filepath.ToSlash(rel))
	}
	return out
}

func TestDefaultIgnoredDirs(t *testing.T) {
	for _, dir := range []string{".git", "node_modules", "bower_components", ".approot"} {
		if !DefaultIgnoredDirs[dir] {
			t.Errorf("Expected %q to be in DefaultIgnoredDirs", dir)
		}
	}
}

func TestCollectFiles(t *testing.T) {
	tmpDir := t.TempDir()
	writeTree(t, tmpDir,
		"main.js",
		"README.md",
		"src/app.js",
		"src/util/helper.js",
		"styles/site.css",
	)

	result, err := CollectFiles(tmpDir, Options{})
	if err != nil {
		t.Fatalf("CollectFiles failed: %v", err)
	}

	want := []string{"main.js", "src/app.js", "src/util/helper.js"}
	if got := relPaths(t, tmpDir, result); !reflect.DeepEqual(got, want) {
		t.Errorf("CollectFiles() = %v, want %v", got, want)
	}
}

func TestCollectFilesRelativeRoot(t *testing.T) {
	tmpDir := t.TempDir()
	writeTree(t, tmpDir, "a.js")

	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(wd) })
	if err := os.Chdir(tmpDir); err != nil {
		t.Fatal(err)
	}

	result, err := CollectFiles(".", Options{})
	if err != nil {
		t.Fatalf("CollectFiles failed: %v", err)
	}
	if len(result) != 1 || !filepath.IsAbs(result[0]) {
		t.Errorf("Expected one absolute path, got %v", result)
	}
}

func TestCollectFilesIgnoreDirectories(t *testing.T) {
	tmpDir := t.TempDir()
	writeTree(t, tmpDir,
		"index.js",
		"bower_components/jquery.js",
		"bower_components_backup/keep.js",
		"lib/bower_components/nested.js",
		"test/spec.js",
	)

	result, err := CollectFiles(tmpDir, Options{IgnoreDirectories: []string{"bower_components", "test"}})
	if err != nil {
		t.Fatalf("CollectFiles failed: %v", err)
	}

	want := []string{"bower_components_backup/keep.js", "index.js"}
	if got := relPaths(t, tmpDir, result); !reflect.DeepEqual(got, want) {
		t.Errorf("CollectFiles() = %v, want %v", got, want)
	}
}

func TestCollectFilesIgnorePathPattern(t *testing.T) {
	tmpDir := t.TempDir()
	writeTree(t, tmpDir,
		"app/vendor/a.js",
		"vendor/b.js",
		"app/main.js",
	)

	result, err := CollectFiles(tmpDir, Options{IgnoreDirectories: []string{"app/vendor"}})
	if err != nil {
		t.Fatalf("CollectFiles failed: %v", err)
	}

	want := []string{"app/main.js", "vendor/b.js"}
	if got := relPaths(t, tmpDir, result); !reflect.DeepEqual(got, want) {
		t.Errorf("CollectFiles() = %v, want %v", got, want)
	}
}

func TestCollectFilesIgnoreFiles(t *testing.T) {
	tmpDir := t.TempDir()
	writeTree(t, tmpDir,
		"app.js",
		"app.min.js",
		"Gruntfile.js",
		"lib/Gruntfile.js",
	)

	result, err := CollectFiles(tmpDir, Options{IgnoreFiles: []string{"Gruntfile.js", "*.min.js"}})
	if err != nil {
		t.Fatalf("CollectFiles failed: %v", err)
	}

	want := []string{"app.js"}
	if got := relPaths(t, tmpDir, result); !reflect.DeepEqual(got, want) {
		t.Errorf("CollectFiles() = %v, want %v", got, want)
	}
}

func TestCollectFilesExtensions(t *testing.T) {
	tmpDir := t.TempDir()
	writeTree(t, tmpDir, "a.js", "b.jsx", "c.JS", "d.ts", "Makefile")

	tests := []struct {
		name string
		exts []string
		want []string
	}{
		{"default", nil, []string{"a.js", "c.JS"}},
		{"without dot", []string{"jsx"}, []string{"b.jsx"}},
		{"several", []string{".js", ".jsx"}, []string{"a.js", "b.jsx", "c.JS"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := CollectFiles(tmpDir, Options{Extensions: tt.exts})
			if err != nil {
				t.Fatalf("CollectFiles failed: %v", err)
			}
			if got := relPaths(t, tmpDir, result); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("CollectFiles() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCollectFilesDefaultIgnores(t *testing.T) {
	tmpDir := t.TempDir()
	writeTree(t, tmpDir, "index.js", "node_modules/lodash/index.js")

	withDefaults, err := CollectFiles(tmpDir, Options{DefaultIgnores: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(withDefaults) != 1 {
		t.Errorf("Expected node_modules to be skipped, got %v", withDefaults)
	}

	without, err := CollectFiles(tmpDir, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(without) != 2 {
		t.Errorf("Expected node_modules to be walked without defaults, got %v", without)
	}
}

func TestCollectFilesGitignore(t *testing.T) {
	tmpDir := t.TempDir()
	writeTree(t, tmpDir, "index.js", "generated/out.js", "lib/a.js", "lib/tmp.js")
	if err := os.WriteFile(filepath.Join(tmpDir, ".gitignore"), []byte("generated/\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(tmpDir, "lib", ".gitignore"), []byte("tmp.js\n"), 0644); err != nil {
		t.Fatal(err)
	}

	result, err := CollectFiles(tmpDir, Options{Gitignore: true})
	if err != nil {
		t.Fatalf("CollectFiles failed: %v", err)
	}

	want := []string{"index.js", "lib/a.js"}
	if got := relPaths(t, tmpDir, result); !reflect.DeepEqual(got, want) {
		t.Errorf("CollectFiles() = %v, want %v", got, want)
	}
}

func TestCollectFilesEmptyDirectory(t *testing.T) {
	result, err := CollectFiles(t.TempDir(), Options{})
	if err != nil {
		t.Fatalf("CollectFiles failed: %v", err)
	}
	if len(result) != 0 {
		t.Errorf("Expected no files, got %v", result)
	}
}

func TestCollectFilesMissingRoot(t *testing.T) {
	_, err := CollectFiles(filepath.Join(t.TempDir(), "missing"), Options{})
	if !errors.Is(err, ErrRootNotFound) {
		t.Errorf("Expected ErrRootNotFound, got %v", err)
	}
}

func TestCollectFilesRootIsFile(t *testing.T) {
	tmpDir := t.TempDir()
	writeTree(t, tmpDir, "a.js")

	_, err := CollectFiles(filepath.Join(tmpDir, "a.js"), Options{})
	if !errors.Is(err, ErrNotDirectory) {
		t.Errorf("Expected ErrNotDirectory, got %v", err)
	}
}

func TestCollectFilesInvalidPattern(t *testing.T) {
	if _, err := CollectFiles(t.TempDir(), Options{IgnoreFiles: []string{"[unclosed"}}); err == nil {
		t.Error("Expected an error for an invalid pattern")
	}
}

func TestDirFilter(t *testing.T) {
	tmpDir := t.TempDir()
	writeTree(t, tmpDir, "app/vendor/lib.js", "node_modules/x/index.js", "generated/out.js", "src/a.js")
	if err := os.WriteFile(filepath.Join(tmpDir, ".gitignore"), []byte("generated/\n"), 0644); err != nil {
		t.Fatal(err)
	}

	f, err := NewDirFilter(tmpDir, Options{
		IgnoreDirectories: []string{"app/vendor"},
		DefaultIgnores:    true,
		Gitignore:         true,
	})
	if err != nil {
		t.Fatalf("NewDirFilter failed: %v", err)
	}

	tests := []struct {
		dir  string
		want bool
	}{
		{".", false},
		{"src", false},
		{"app", false},
		{"app/vendor", true},
		{"node_modules", true},
		{"generated", true},
	}
	for _, tt := range tests {
		path := filepath.Join(tmpDir, filepath.FromSlash(tt.dir))
		if got := f.Skip(path); got != tt.want {
			t.Errorf("Skip(%s) = %v, want %v", tt.dir, got, tt.want)
		}
	}
}

func TestNormalizeExtensions(t *testing.T) {
	got := NormalizeExtensions([]string{"JSX", ".js", " "})
	want := map[string]bool{".jsx": true, ".js": true}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("NormalizeExtensions = %v, want %v", got, want)
	}
	if def := NormalizeExtensions(nil); !def[DefaultExtension] || len(def) != 1 {
		t.Errorf("Expected default extension only, got %v", def)
	}
}
