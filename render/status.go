package render

import (
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/dependents/node-app-root/watch"
)

// Color palette
var (
	pink     = lipgloss.Color("212")
	purple   = lipgloss.Color("99")
	cyan     = lipgloss.Color("86")
	green    = lipgloss.Color("78")
	yellow   = lipgloss.Color("220")
	orange   = lipgloss.Color("208")
	red      = lipgloss.Color("196")
	gray     = lipgloss.Color("245")
	darkGray = lipgloss.Color("238")
	white    = lipgloss.Color("255")
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(pink)

	headerBox = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(purple).
			Padding(0, 2)

	sectionTitle = lipgloss.NewStyle().
			Bold(true).
			Foreground(cyan).
			MarginTop(1)

	statLabel = lipgloss.NewStyle().
			Foreground(gray)

	statValue = lipgloss.NewStyle().
			Bold(true).
			Foreground(white)

	hubStyle = lipgloss.NewStyle().
			Foreground(purple)

	eventCreate = lipgloss.NewStyle().
			Foreground(green).
			Bold(true)

	eventWrite = lipgloss.NewStyle().
			Foreground(yellow)

	eventRemove = lipgloss.NewStyle().
			Foreground(red)

	deltaPlus = lipgloss.NewStyle().
			Foreground(green)

	deltaMinus = lipgloss.NewStyle().
			Foreground(red)

	timeStyle = lipgloss.NewStyle().
			Foreground(darkGray)

	dimStyle = lipgloss.NewStyle().
			Foreground(gray)

	activeStyle = lipgloss.NewStyle().
			Foreground(pink).
			Bold(true)

	sparkFull  = lipgloss.NewStyle().Foreground(green).Render("█")
	sparkMed   = lipgloss.NewStyle().Foreground(yellow).Render("▆")
	sparkLow   = lipgloss.NewStyle().Foreground(orange).Render("▃")
	sparkEmpty = lipgloss.NewStyle().Foreground(darkGray).Render("▁")
)

// Status renders the watch daemon's last state for root
func Status(w io.Writer, root string) {
	fmt.Fprint(w, statusView(root, watch.ReadState(root), watch.IsRunning(root)))
}

// statusView renders state; state may be nil when nothing was recorded
func statusView(root string, state *watch.State, running bool) string {
	var sb strings.Builder

	var meaningful []watch.Event
	if state != nil {
		meaningful = filterMeaningful(state.RecentEvents)
	}

	// === HEADER ===
	var statusDot, statusText string
	if running {
		statusDot = lipgloss.NewStyle().Foreground(green).Render("●")
		statusText = "watching"
	} else {
		statusDot = lipgloss.NewStyle().Foreground(gray).Render("○")
		statusText = "idle"
	}
	header := titleStyle.Render(filepath.Base(root)) + "  " + statusDot + " " + dimStyle.Render(statusText)
	sb.WriteString(headerBox.Render(header))
	sb.WriteString("\n")

	if state == nil {
		sb.WriteString("\n")
		sb.WriteString(dimStyle.Render("  No watch state recorded"))
		sb.WriteString("\n")
		sb.WriteString(dimStyle.Render("  Run: ") + activeStyle.Render("approot watch "+root))
		sb.WriteString("\n")
		return sb.String()
	}

	// === STATS ROW ===
	statsLine := statLabel.Render("files ") + statValue.Render(fmt.Sprint(state.FileCount)) +
		statLabel.Render("  ·  modules ") + statValue.Render(fmt.Sprint(state.ModuleCount)) +
		statLabel.Render("  ·  roots ") + statValue.Render(fmt.Sprint(len(state.Roots)))
	if state.Diagnostics > 0 {
		statsLine += statLabel.Render("  ·  diagnostics ") + eventRemove.Render(fmt.Sprint(state.Diagnostics))
	}
	if state.Cycles > 0 {
		statsLine += statLabel.Render("  ·  cycles ") + eventWrite.Render(fmt.Sprint(state.Cycles))
	}
	if len(meaningful) > 0 {
		statsLine += statLabel.Render("  ·  activity ") + generateActivitySpark(meaningful, time.Now())
	}
	sb.WriteString(statsLine)
	sb.WriteString("\n")

	// === ROOTS ===
	sb.WriteString(sectionTitle.Render("◆ Roots") + " " + dimStyle.Render(state.Policy))
	sb.WriteString("\n")
	if len(state.Roots) == 0 {
		sb.WriteString(dimStyle.Render("  No roots found"))
		sb.WriteString("\n")
	}
	maxShow := 12
	for i, r := range state.Roots {
		if i >= maxShow {
			sb.WriteString(dimStyle.Render(fmt.Sprintf("  ... +%d more", len(state.Roots)-maxShow)))
			sb.WriteString("\n")
			break
		}
		sb.WriteString("  " + hubStyle.Render(r) + "\n")
	}

	// === RECENT ACTIVITY ===
	if len(meaningful) > 0 {
		sb.WriteString(sectionTitle.Render("◆ Recent Activity"))
		sb.WriteString("\n")

		maxEvents := 8
		for i, e := range meaningful {
			if i >= maxEvents {
				break
			}

			var icon, pathStyled string
			switch e.Op {
			case "CREATE":
				icon = eventCreate.Render("+")
				pathStyled = eventCreate.Render(e.Path)
			case "WRITE":
				icon = eventWrite.Render("~")
				pathStyled = eventWrite.Render(e.Path)
			case "REMOVE", "RENAME":
				icon = eventRemove.Render("-")
				pathStyled = eventRemove.Render(e.Path)
			default:
				icon = dimStyle.Render("·")
				pathStyled = dimStyle.Render(e.Path)
			}

			delta := ""
			for _, a := range e.Added {
				delta += deltaPlus.Render(" +" + a)
			}
			for _, r := range e.Removed {
				delta += deltaMinus.Render(" -" + r)
			}
			if e.Error != "" {
				delta += eventRemove.Render(" ! " + e.Error)
			}

			fmt.Fprintf(&sb, "  %s %s%s %s\n", icon, pathStyled, delta, timeStyle.Render(formatTimeAgo(e.Time)))
		}
	} else if !running {
		sb.WriteString("\n")
		sb.WriteString(dimStyle.Render("  No activity tracked"))
		sb.WriteString("\n")
		sb.WriteString(dimStyle.Render("  Run: ") + activeStyle.Render("approot watch "+root))
		sb.WriteString("\n")
	}

	// === HOT FILES ===
	if len(meaningful) > 5 {
		hot := findHotFiles(meaningful)
		if len(hot) > 0 {
			sb.WriteString(sectionTitle.Render("◆ Hot Files"))
			sb.WriteString("\n")
			maxHot := 3
			for i, h := range hot {
				if i >= maxHot {
					break
				}
				fmt.Fprintf(&sb, "  %s %s\n",
					activeStyle.Render(h.path),
					dimStyle.Render(fmt.Sprintf("%d edits", h.count)))
			}
		}
	}

	return sb.String()
}

// generateActivitySpark creates a mini sparkline of the last hour's activity
func generateActivitySpark(events []watch.Event, now time.Time) string {
	// 6 buckets of 10 minutes, newest rightmost
	buckets := make([]int, 6)
	bucketDuration := 10 * time.Minute

	for _, e := range events {
		age := now.Sub(e.Time)
		bucket := int(age / bucketDuration)
		if age >= 0 && bucket < len(buckets) {
			buckets[len(buckets)-1-bucket]++
		}
	}

	maxCount := 1
	for _, c := range buckets {
		if c > maxCount {
			maxCount = c
		}
	}

	var spark string
	for _, c := range buckets {
		ratio := float64(c) / float64(maxCount)
		if ratio > 0.75 {
			spark += sparkFull
		} else if ratio > 0.4 {
			spark += sparkMed
		} else if ratio > 0 {
			spark += sparkLow
		} else {
			spark += sparkEmpty
		}
	}

	return spark
}

// formatTimeAgo returns a human-readable relative time
func formatTimeAgo(t time.Time) string {
	d := time.Since(t)

	if d < time.Minute {
		return "just now"
	} else if d < time.Hour {
		mins := int(d.Minutes())
		if mins == 1 {
			return "1m ago"
		}
		return fmt.Sprintf("%dm ago", mins)
	} else if d < 24*time.Hour {
		hours := int(d.Hours())
		if hours == 1 {
			return "1h ago"
		}
		return fmt.Sprintf("%dh ago", hours)
	}
	days := int(d.Hours() / 24)
	if days == 1 {
		return "yesterday"
	}
	return fmt.Sprintf("%dd ago", days)
}

// filterMeaningful returns events newest first, collapsing bursts of the
// same op on the same path within 5 seconds
func filterMeaningful(events []watch.Event) []watch.Event {
	reversed := make([]watch.Event, 0, len(events))
	for i := len(events) - 1; i >= 0; i-- {
		reversed = append(reversed, events[i])
	}

	result := make([]watch.Event, 0, len(reversed))
	for _, e := range reversed {
		if n := len(result); n > 0 {
			prev := result[n-1]
			if e.Path == prev.Path && e.Op == prev.Op && prev.Time.Sub(e.Time) < 5*time.Second &&
				len(e.Added) == 0 && len(e.Removed) == 0 && e.Error == "" {
				continue
			}
		}
		result = append(result, e)
	}
	return result
}

// hotFile tracks edit frequency
type hotFile struct {
	path  string
	count int
}

// findHotFiles finds files with most edits
func findHotFiles(events []watch.Event) []hotFile {
	counts := make(map[string]int)
	for _, e := range events {
		if e.Op == "WRITE" || e.Op == "CREATE" {
			counts[e.Path]++
		}
	}

	var hot []hotFile
	for path, count := range counts {
		if count > 1 {
			hot = append(hot, hotFile{path, count})
		}
	}

	sort.Slice(hot, func(i, j int) bool {
		if hot[i].count != hot[j].count {
			return hot[i].count > hot[j].count
		}
		return hot[i].path < hot[j].path
	})

	return hot
}
