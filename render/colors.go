package render

import (
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// ANSI color codes
const (
	Reset    = "\033[0m"
	Dim      = "\033[2m"
	White    = "\033[37m"
	Cyan     = "\033[36m"
	Yellow   = "\033[33m"
	Magenta  = "\033[35m"
	Red      = "\033[31m"
	BoldBlue = "\033[1;34m"
)

// GetFileColor returns the ANSI color for a source file extension
func GetFileColor(ext string) string {
	switch strings.ToLower(ext) {
	case ".js", ".cjs", ".mjs":
		return Yellow
	case ".jsx":
		return Cyan
	case ".ts", ".tsx", ".mts", ".cts":
		return BoldBlue
	case ".json":
		return Red
	case ".html", ".htm", ".hbs", ".mustache":
		return Magenta
	default:
		return White
	}
}

// GetTerminalWidth returns the width of w, or 80 when it isn't a terminal
func GetTerminalWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok {
		return 80
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 {
		return 80
	}
	return width
}

// truncate cuts s to width runes, marking the cut with an ellipsis
func truncate(s string, width int) string {
	r := []rune(s)
	if width <= 0 || len(r) <= width {
		return s
	}
	if width == 1 {
		return "…"
	}
	return string(r[:width-1]) + "…"
}

// IsTerminal reports whether w is an interactive terminal
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}
