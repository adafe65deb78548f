package jsmod

import (
	"fmt"
	"os"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
)

var javascript = tree_sitter.NewLanguage(tree_sitter_javascript.Language())

// Source is a parsed file. Callers must Close it.
type Source struct {
	Path    string
	Content []byte
	tree    *tree_sitter.Tree
}

// Close releases the syntax tree.
func (s *Source) Close() {
	if s.tree != nil {
		s.tree.Close()
	}
}

// Root returns the program node.
func (s *Source) Root() *tree_sitter.Node {
	return s.tree.RootNode()
}

// Malformed reports whether tree-sitter had to recover from syntax errors.
func (s *Source) Malformed() bool {
	return s.Root().HasError()
}

// Text returns the source text of n.
func (s *Source) Text(n *tree_sitter.Node) string {
	return n.Utf8Text(s.Content)
}

// parseFile reads and parses path, refusing files above maxBytes (0 = no limit).
func parseFile(path string, maxBytes int64) (*Source, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if maxBytes > 0 && info.Size() > maxBytes {
		return nil, fmt.Errorf("%d bytes: %w", info.Size(), ErrFileTooLarge)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parseSource(path, content)
}

func parseSource(path string, content []byte) (*Source, error) {
	parser := tree_sitter.NewParser()
	defer parser.Close()
	if err := parser.SetLanguage(javascript); err != nil {
		return nil, fmt.Errorf("set javascript grammar: %w", err)
	}

	tree := parser.Parse(content, nil)
	if tree == nil {
		return nil, ErrMalformedSource
	}
	return &Source{Path: path, Content: content, tree: tree}, nil
}

// stringValue returns the contents of a string literal node without quotes.
func stringValue(s *Source, n *tree_sitter.Node) string {
	if n == nil || n.Kind() != "string" {
		return ""
	}
	return strings.Trim(s.Text(n), "\"'")
}

// calleeName returns the identifier called by a call_expression, or "".
func calleeName(s *Source, call *tree_sitter.Node) string {
	fn := call.ChildByFieldName("function")
	if fn == nil || fn.Kind() != "identifier" {
		return ""
	}
	return s.Text(fn)
}

// firstArgument returns the first named argument of a call_expression.
func firstArgument(call *tree_sitter.Node) *tree_sitter.Node {
	args := call.ChildByFieldName("arguments")
	if args == nil || args.NamedChildCount() == 0 {
		return nil
	}
	return args.NamedChild(0)
}

func dedupe(s []string) []string {
	seen := make(map[string]bool, len(s))
	out := make([]string, 0, len(s))
	for _, v := range s {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
