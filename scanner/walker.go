package scanner

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

var (
	// ErrRootNotFound is returned when the scan root does not exist.
	ErrRootNotFound = errors.New("scan root not found")
	// ErrNotDirectory is returned when the scan root is not a directory.
	ErrNotDirectory = errors.New("scan root is not a directory")
)

// DefaultExtension is the source extension collected when none is configured.
const DefaultExtension = ".js"

// DefaultIgnoredDirs are vendor, VCS and build output directories skipped
// when Options.DefaultIgnores is set.
var DefaultIgnoredDirs = map[string]bool{
	".git":             true,
	".hg":              true,
	".svn":             true,
	"node_modules":     true,
	"bower_components": true,
	"jspm_packages":    true,
	"vendor":           true,
	"coverage":         true,
	".nyc_output":      true,
	"dist":             true,
	"build":            true,
	".next":            true,
	".nuxt":            true,
	".cache":           true,
	".idea":            true,
	".vscode":          true,
	".approot":         true,
}

// Options controls which files CollectFiles returns.
type Options struct {
	// Extensions lists the source extensions to collect (".js" when empty).
	Extensions []string
	// IgnoreDirectories are patterns for directories that are not descended into.
	IgnoreDirectories []string
	// IgnoreFiles are patterns for files that are never collected.
	IgnoreFiles []string
	// DefaultIgnores additionally skips DefaultIgnoredDirs.
	DefaultIgnores bool
	// Gitignore honours nested .gitignore files.
	Gitignore bool
}

// NormalizeExtensions lower-cases extensions and makes sure each has a leading dot.
func NormalizeExtensions(exts []string) map[string]bool {
	set := make(map[string]bool, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		set[ext] = true
	}
	if len(set) == 0 {
		set[DefaultExtension] = true
	}
	return set
}

// DirFilter decides which directories a scan descends into. It is shared by
// CollectFiles and the watch daemon so both see the same tree.
type DirFilter struct {
	root     string
	defaults bool
	matcher  *Matcher
	git      *GitIgnoreCache
}

// NewDirFilter compiles the directory rules of opts for the tree at root.
func NewDirFilter(root string, opts Options) (*DirFilter, error) {
	matcher, err := NewMatcher(opts.IgnoreDirectories)
	if err != nil {
		return nil, err
	}
	f := &DirFilter{root: root, defaults: opts.DefaultIgnores, matcher: matcher}
	if opts.Gitignore {
		f.git = NewGitIgnoreCache(root)
	}
	return f, nil
}

// Skip reports whether the directory at path is excluded. Directories that
// are kept have their .gitignore loaded for the entries below them.
func (f *DirFilter) Skip(path string) bool {
	if path == f.root {
		return false
	}
	name := filepath.Base(path)
	if f.defaults && DefaultIgnoredDirs[name] {
		return true
	}
	rel, err := filepath.Rel(f.root, path)
	if err != nil {
		return true
	}
	if f.matcher.Match(name, filepath.ToSlash(rel)) {
		return true
	}
	if f.git != nil {
		if f.git.ShouldIgnoreDir(path) {
			return true
		}
		f.git.visit(path)
	}
	return false
}

// CollectFiles walks root and returns the sorted absolute paths of every
// candidate source file. A missing or unreadable root, or any traversal error,
// fails the whole walk; no partial result is returned.
func CollectFiles(root string, opts Options) ([]string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", root, err)
	}

	info, err := os.Stat(absRoot)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrRootNotFound, absRoot)
		}
		return nil, fmt.Errorf("stat %s: %w", absRoot, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotDirectory, absRoot)
	}

	dirs, err := NewDirFilter(absRoot, opts)
	if err != nil {
		return nil, err
	}
	fileMatcher, err := NewMatcher(opts.IgnoreFiles)
	if err != nil {
		return nil, err
	}
	exts := NormalizeExtensions(opts.Extensions)

	var files []string
	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == absRoot {
			return nil
		}

		if d.IsDir() {
			if dirs.Skip(path) {
				return filepath.SkipDir
			}
			return nil
		}

		name := d.Name()
		rel, _ := filepath.Rel(absRoot, path)
		rel = filepath.ToSlash(rel)

		// Symlinks and other irregular entries are never followed.
		if !d.Type().IsRegular() {
			return nil
		}
		if !exts[strings.ToLower(filepath.Ext(name))] {
			return nil
		}
		if fileMatcher.Match(name, rel) {
			return nil
		}
		if dirs.git != nil && dirs.git.ShouldIgnore(path) {
			return nil
		}

		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", absRoot, err)
	}

	sort.Strings(files)
	return files, nil
}
