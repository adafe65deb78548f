package render

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dependents/node-app-root/roots"
)

// Roots writes one absolute root path per line
func Roots(w io.Writer, report *roots.Report) {
	for _, r := range report.Roots {
		fmt.Fprintln(w, r)
	}
}

// JSON writes the full report
func JSON(w io.Writer, report *roots.Report) error {
	report.EnsureDegrees()
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

// Graph writes the adjacency list, one "file -> dependency" line per edge.
// Files without dependencies are listed on their own.
func Graph(w io.Writer, report *roots.Report) {
	for _, file := range report.Graph.Nodes() {
		deps := report.Graph[file]
		rel := relPath(report.Directory, file)
		if len(deps) == 0 {
			fmt.Fprintln(w, rel)
			continue
		}
		for _, dep := range deps {
			fmt.Fprintf(w, "%s -> %s\n", rel, relPath(report.Directory, dep))
		}
	}
}

// GraphJSON writes the adjacency list keyed by relative path
func GraphJSON(w io.Writer, report *roots.Report) error {
	out := make(map[string][]string, len(report.Graph))
	for file, deps := range report.Graph {
		rels := make([]string, 0, len(deps))
		for _, dep := range deps {
			rels = append(rels, relPath(report.Directory, dep))
		}
		out[relPath(report.Directory, file)] = rels
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// Styled writes a boxed summary and the roots as a directory tree
func Styled(w io.Writer, report *roots.Report, color bool) {
	var sb strings.Builder
	report.EnsureDegrees()
	width := 0
	if color {
		width = GetTerminalWidth(w)
	}

	name := filepath.Base(report.Directory)
	count := fmt.Sprintf("%d roots", len(report.Roots))
	if len(report.Roots) == 1 {
		count = "1 root"
	}
	header := titleStyle.Render(name) + "  " + dimStyle.Render(count)
	sb.WriteString(headerBox.Render(header))
	sb.WriteString("\n")

	sb.WriteString(statLabel.Render("files ") + statValue.Render(fmt.Sprint(report.Files)) +
		statLabel.Render("  ·  modules ") + statValue.Render(fmt.Sprint(len(report.Graph))) +
		statLabel.Render("  ·  edges ") + statValue.Render(fmt.Sprint(report.Graph.EdgeCount())) +
		statLabel.Render("  ·  policy ") + statValue.Render(report.Policy) +
		statLabel.Render("  ·  ") + timeStyle.Render(report.Duration.Round(time.Millisecond).String()))
	sb.WriteString("\n")

	sb.WriteString(sectionTitle.Render("◆ Roots"))
	sb.WriteString("\n")
	if len(report.Roots) == 0 {
		sb.WriteString(dimStyle.Render("  No roots found"))
		sb.WriteString("\n")
	} else {
		rels := make([]string, 0, len(report.Roots))
		notes := make(map[string]string, len(report.Roots))
		for _, r := range report.Roots {
			rel := relPath(report.Directory, r)
			rels = append(rels, rel)
			if d, ok := report.Degrees[r]; ok {
				notes[rel] = fmt.Sprintf("(%d deps)", d)
			}
		}
		renderTree(&sb, buildTreeStructure(rels, notes), "  ", color)
	}

	if len(report.Diagnostics) > 0 {
		sb.WriteString(sectionTitle.Render("◆ Diagnostics"))
		sb.WriteString("\n")
		for _, d := range report.Diagnostics {
			rel := relPath(report.Directory, d.Path)
			msg := fmt.Sprintf("%s: %v", d.Stage, d.Err)
			if width > 0 {
				msg = truncate(msg, max(width-5-len([]rune(rel)), 1))
			}
			fmt.Fprintf(&sb, "  %s %s %s\n", eventRemove.Render("!"), hubStyle.Render(rel), dimStyle.Render(msg))
		}
	}

	if len(report.Cycles) > 0 {
		sb.WriteString(sectionTitle.Render("◆ Cycles"))
		sb.WriteString("\n")
		for _, c := range report.Cycles {
			members := make([]string, 0, len(c))
			for _, m := range c {
				members = append(members, relPath(report.Directory, m))
			}
			sort.Strings(members)
			fmt.Fprintf(&sb, "  %s %s\n", eventWrite.Render("↻"), strings.Join(members, " ↔ "))
		}
	}

	fmt.Fprint(w, sb.String())
}

func relPath(root, path string) string {
	if rel, err := filepath.Rel(root, path); err == nil {
		return filepath.ToSlash(rel)
	}
	return filepath.ToSlash(path)
}
