package render

import (
	"path"
	"sort"
	"strings"
)

// treeNode is a directory or file in a rendered path tree
type treeNode struct {
	name     string
	isFile   bool
	children map[string]*treeNode
	note     string // shown after file names, e.g. a degree
}

// buildTreeStructure turns slash-separated relative paths into a tree
func buildTreeStructure(paths []string, notes map[string]string) *treeNode {
	root := &treeNode{children: make(map[string]*treeNode)}
	for _, p := range paths {
		parts := strings.Split(path.Clean(p), "/")
		current := root
		for i, part := range parts {
			child, ok := current.children[part]
			if !ok {
				child = &treeNode{name: part, children: make(map[string]*treeNode)}
				current.children[part] = child
			}
			if i == len(parts)-1 {
				child.isFile = true
				child.note = notes[p]
			}
			current = child
		}
	}
	return root
}

// sortedChildren lists directories first, then files, each alphabetically
func (n *treeNode) sortedChildren() []*treeNode {
	out := make([]*treeNode, 0, len(n.children))
	for _, c := range n.children {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].isFile != out[j].isFile {
			return !out[i].isFile
		}
		return out[i].name < out[j].name
	})
	return out
}

// renderTree draws node's children with box-drawing connectors
func renderTree(sb *strings.Builder, node *treeNode, prefix string, color bool) {
	children := node.sortedChildren()
	for i, child := range children {
		last := i == len(children)-1
		connector := "├── "
		next := prefix + "│   "
		if last {
			connector = "└── "
			next = prefix + "    "
		}

		sb.WriteString(prefix)
		sb.WriteString(connector)
		switch {
		case !child.isFile && color:
			sb.WriteString(BoldBlue + child.name + "/" + Reset)
		case !child.isFile:
			sb.WriteString(child.name + "/")
		case color:
			sb.WriteString(GetFileColor(path.Ext(child.name)) + child.name + Reset)
		default:
			sb.WriteString(child.name)
		}
		if child.note != "" {
			if color {
				sb.WriteString(" " + Dim + child.note + Reset)
			} else {
				sb.WriteString(" " + child.note)
			}
		}
		sb.WriteString("\n")

		if !child.isFile {
			renderTree(sb, child, next, color)
		}
	}
}
