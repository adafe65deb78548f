package jsmod

import (
	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

// classify inspects a parsed file. AMD wins over ES module syntax, which wins
// over CommonJS; a file with none of them declares no dependencies.
func classify(s *Source) Format {
	root := s.Root()

	es6 := false
	for i := uint(0); i < root.NamedChildCount(); i++ {
		stmt := root.NamedChild(i)
		switch stmt.Kind() {
		case "expression_statement":
			if isAMDCall(s, stmt.NamedChild(0)) {
				return AMD
			}
		case "import_statement", "export_statement":
			es6 = true
		}
	}
	if es6 {
		return ES6
	}
	if hasCommonJS(s, root) {
		return CommonJS
	}
	return None
}

// isAMDCall matches define(...) and require([...], ...) at statement level.
func isAMDCall(s *Source, expr *tree_sitter.Node) bool {
	if expr == nil || expr.Kind() != "call_expression" {
		return false
	}
	switch calleeName(s, expr) {
	case "define":
		return true
	case "require", "requirejs":
		arg := firstArgument(expr)
		return arg != nil && arg.Kind() == "array"
	}
	return false
}

// hasCommonJS walks the whole tree with an explicit stack looking for
// require("x") calls or module.exports / exports.* usage.
func hasCommonJS(s *Source, root *tree_sitter.Node) bool {
	stack := []*tree_sitter.Node{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		switch n.Kind() {
		case "call_expression":
			if calleeName(s, n) == "require" {
				if arg := firstArgument(n); arg != nil && arg.Kind() == "string" {
					return true
				}
			}
		case "member_expression":
			obj := n.ChildByFieldName("object")
			prop := n.ChildByFieldName("property")
			if obj != nil && prop != nil && obj.Kind() == "identifier" &&
				s.Text(obj) == "module" && s.Text(prop) == "exports" {
				return true
			}
		case "assignment_expression":
			left := n.ChildByFieldName("left")
			if left != nil && left.Kind() == "member_expression" {
				if obj := left.ChildByFieldName("object"); obj != nil && obj.Kind() == "identifier" && s.Text(obj) == "exports" {
					return true
				}
			}
		}

		for i := int(n.NamedChildCount()) - 1; i >= 0; i-- {
			if child := n.NamedChild(uint(i)); child != nil {
				stack = append(stack, child)
			}
		}
	}
	return false
}
