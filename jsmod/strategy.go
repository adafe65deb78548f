package jsmod

import (
	"fmt"
	"sort"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

// Strategy extracts dependency specifiers for one module convention.
type Strategy interface {
	Format() Format
	Specifiers(s *Source) []string
}

// Registry dispatches extraction to the strategy registered for a format.
type Registry struct {
	strategies map[Format]Strategy
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{strategies: make(map[Format]Strategy)}
}

// DefaultRegistry returns a registry with the CommonJS, AMD and ES module strategies.
func DefaultRegistry() (*Registry, error) {
	r := NewRegistry()
	for _, build := range []func() (Strategy, error){newCommonJSStrategy, newAMDStrategy, newES6Strategy} {
		st, err := build()
		if err != nil {
			return nil, err
		}
		r.Register(st)
	}
	return r, nil
}

// Register adds or replaces the strategy for st.Format().
func (r *Registry) Register(st Strategy) {
	r.strategies[st.Format()] = st
}

// Formats lists the registered formats.
func (r *Registry) Formats() []Format {
	out := make([]Format, 0, len(r.strategies))
	for f := range r.strategies {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// specifiers runs the strategy for format. Unknown formats and None yield nil
// without invoking anything; malformed sources yield ErrMalformedSource.
func (r *Registry) specifiers(s *Source, format Format) ([]string, error) {
	st, ok := r.strategies[format]
	if format == None || !ok {
		return nil, nil
	}
	if s.Malformed() {
		return nil, ErrMalformedSource
	}
	return dedupe(st.Specifiers(s)), nil
}

// queryStrategy runs a tree-sitter query and hands captures to collect.
type queryStrategy struct {
	format  Format
	query   *tree_sitter.Query
	collect func(s *Source, captures map[string]*tree_sitter.Node) []string
}

func newQueryStrategy(format Format, src string, collect func(*Source, map[string]*tree_sitter.Node) []string) (*queryStrategy, error) {
	query, qerr := tree_sitter.NewQuery(javascript, src)
	if qerr != nil {
		return nil, fmt.Errorf("bad %s query: %v", format, qerr)
	}
	return &queryStrategy{format: format, query: query, collect: collect}, nil
}

func (q *queryStrategy) Format() Format { return q.format }

func (q *queryStrategy) Specifiers(s *Source) []string {
	cursor := tree_sitter.NewQueryCursor()
	defer cursor.Close()

	names := q.query.CaptureNames()
	var out []string
	matches := cursor.Matches(q.query, s.Root(), s.Content)
	for match := matches.Next(); match != nil; match = matches.Next() {
		captures := make(map[string]*tree_sitter.Node, len(match.Captures))
		for i := range match.Captures {
			c := &match.Captures[i]
			captures[names[c.Index]] = &c.Node
		}
		out = append(out, q.collect(s, captures)...)
	}
	return out
}

const requireCallPattern = `
(call_expression
  function: (identifier) @callee
  arguments: (arguments . (string) @specifier))
`

// requireSpecifier accepts require("x") captures.
func requireSpecifier(s *Source, c map[string]*tree_sitter.Node) []string {
	callee, spec := c["callee"], c["specifier"]
	if callee == nil || spec == nil || s.Text(callee) != "require" {
		return nil
	}
	return []string{stringValue(s, spec)}
}

func newCommonJSStrategy() (Strategy, error) {
	return newQueryStrategy(CommonJS, requireCallPattern, requireSpecifier)
}

// AMD: dependency arrays of define/require plus require("x") inside factories.
const amdPattern = `
(call_expression
  function: (identifier) @callee
  arguments: (arguments (array) @dependencies))
` + requireCallPattern

func newAMDStrategy() (Strategy, error) {
	return newQueryStrategy(AMD, amdPattern, func(s *Source, c map[string]*tree_sitter.Node) []string {
		deps := c["dependencies"]
		if deps == nil {
			return requireSpecifier(s, c)
		}
		switch s.Text(c["callee"]) {
		case "define", "require", "requirejs":
		default:
			return nil
		}
		var out []string
		for i := uint(0); i < deps.NamedChildCount(); i++ {
			if el := deps.NamedChild(i); el.Kind() == "string" {
				out = append(out, stringValue(s, el))
			}
		}
		return out
	})
}

const es6Pattern = `
(import_statement source: (string) @specifier)
(export_statement source: (string) @specifier)
(call_expression
  function: (import)
  arguments: (arguments . (string) @specifier))
`

func newES6Strategy() (Strategy, error) {
	return newQueryStrategy(ES6, es6Pattern, func(s *Source, c map[string]*tree_sitter.Node) []string {
		if spec := c["specifier"]; spec != nil {
			return []string{stringValue(s, spec)}
		}
		return nil
	})
}
