// Package resolve turns raw dependency specifiers into absolute file paths.
package resolve

import (
	"path/filepath"
	"strings"
)

// Dependency is a resolved specifier. Core dependencies carry no path and
// never become graph edges; an empty Path means the specifier was unusable.
type Dependency struct {
	Specifier string `json:"specifier"`
	Path      string `json:"path,omitempty"`
	Core      bool   `json:"core,omitempty"`
}

// Resolver resolves specifiers relative to a scan root.
type Resolver struct {
	root  string
	known func(path string) bool
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithKnown lets the resolver probe candidate paths, enabling directory
// modules (./lib -> ./lib/index.js) and dotted names (./jquery.ui -> ./jquery.ui.js).
func WithKnown(known func(path string) bool) Option {
	return func(r *Resolver) { r.known = known }
}

// New returns a Resolver for bare specifiers rooted at root.
func New(root string, opts ...Option) *Resolver {
	r := &Resolver{root: filepath.Clean(root)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Root returns the directory bare specifiers resolve against.
func (r *Resolver) Root() string {
	return r.root
}

// Resolve resolves specifier as written in the file at from.
func (r *Resolver) Resolve(specifier, from string) Dependency {
	dep := Dependency{Specifier: specifier}

	spec := strings.TrimSpace(specifier)
	// AMD loader plugins: "text!./tpl.html" loads "./tpl.html".
	if i := strings.LastIndex(spec, "!"); i >= 0 {
		spec = spec[i+1:]
	}
	if spec == "" {
		return dep
	}
	if IsCore(spec) {
		dep.Core = true
		return dep
	}

	var target string
	switch {
	case isRelative(spec):
		target = filepath.Join(filepath.Dir(from), filepath.FromSlash(spec))
	case filepath.IsAbs(spec):
		target = filepath.Clean(spec)
	default:
		target = filepath.Join(r.root, filepath.FromSlash(spec))
	}

	dep.Path = r.pick(target, filepath.Ext(from))
	return dep
}

// pick chooses the first candidate the known set accepts, or the primary
// candidate when there is no known set or nothing matches.
func (r *Resolver) pick(target, ext string) string {
	primary := target
	if filepath.Ext(target) == "" {
		primary = target + ext
	}
	if r.known == nil || r.known(primary) {
		return primary
	}

	candidates := []string{filepath.Join(target, "index"+ext)}
	if primary == target && ext != "" && !strings.HasSuffix(target, ext) {
		candidates = append([]string{target + ext}, candidates...)
	}
	for _, c := range candidates {
		if r.known(c) {
			return c
		}
	}
	return primary
}

func isRelative(spec string) bool {
	return spec == "." || spec == ".." ||
		strings.HasPrefix(spec, "./") || strings.HasPrefix(spec, "../")
}
