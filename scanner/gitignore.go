package scanner

import (
	"path/filepath"

	ignore "github.com/sabhiram/go-gitignore"
)

// GitIgnoreCache manages nested .gitignore files throughout a scanned tree.
// Gitignore files are compiled lazily as directories are visited.
type GitIgnoreCache struct {
	root    string
	cache   map[string]*ignore.GitIgnore // abs dir -> compiled rules (only dirs that have a .gitignore)
	visited map[string]struct{}
}

// NewGitIgnoreCache creates a cache rooted at the scan directory.
func NewGitIgnoreCache(root string) *GitIgnoreCache {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		absRoot = root
	}
	c := &GitIgnoreCache{
		root:    absRoot,
		cache:   make(map[string]*ignore.GitIgnore),
		visited: make(map[string]struct{}),
	}
	c.visit(absRoot)
	return c
}

// visit compiles dir/.gitignore once per directory.
func (c *GitIgnoreCache) visit(dir string) {
	if _, seen := c.visited[dir]; seen {
		return
	}
	c.visited[dir] = struct{}{}

	if gi, err := ignore.CompileIgnoreFile(filepath.Join(dir, ".gitignore")); err == nil {
		c.cache[dir] = gi
	}
}

// ShouldIgnore reports whether any .gitignore between absPath's parent and the
// root excludes it. absPath must live under the cache root.
func (c *GitIgnoreCache) ShouldIgnore(absPath string) bool {
	return c.matches(absPath, false)
}

// ShouldIgnoreDir is ShouldIgnore for directories, so that "dir/" rules
// match the directory itself.
func (c *GitIgnoreCache) ShouldIgnoreDir(absPath string) bool {
	return c.matches(absPath, true)
}

func (c *GitIgnoreCache) matches(absPath string, isDir bool) bool {
	if len(c.cache) == 0 {
		return false
	}

	dir := filepath.Dir(absPath)
	for {
		if gi, ok := c.cache[dir]; ok {
			rel, err := filepath.Rel(dir, absPath)
			if err == nil {
				rel = filepath.ToSlash(rel)
				if gi.MatchesPath(rel) || (isDir && gi.MatchesPath(rel+"/")) {
					return true
				}
			}
		}
		if dir == c.root {
			return false
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return false
		}
		dir = parent
	}
}
