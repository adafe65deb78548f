package render

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/dependents/node-app-root/watch"
)

// StateMsg delivers a fresh daemon state to WatchModel
type StateMsg watch.State

// ErrMsg reports a daemon failure; the model shows it and quits
type ErrMsg struct{ Err error }

// WatchModel is a live view of a running watch daemon
type WatchModel struct {
	root     string
	state    *watch.State
	updates  int
	err      error
	width    int
	height   int
	quitting bool
}

// NewWatchModel creates a model for the daemon watching root
func NewWatchModel(root string) WatchModel {
	return WatchModel{root: root}
}

// Init implements tea.Model
func (m WatchModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model
func (m WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case StateMsg:
		state := watch.State(msg)
		m.state = &state
		m.updates++
		return m, nil

	case ErrMsg:
		m.err = msg.Err
		return m, tea.Quit

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}
	}

	return m, nil
}

// View implements tea.Model
func (m WatchModel) View() string {
	if m.quitting {
		return ""
	}
	if m.err != nil {
		return eventRemove.Render(fmt.Sprintf("watch failed: %v", m.err)) + "\n"
	}

	var b strings.Builder
	if m.state == nil {
		b.WriteString(dimStyle.Render("Scanning " + m.root + "..."))
		b.WriteString("\n")
	} else {
		b.WriteString(statusView(m.root, m.state, true))
	}
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("%d updates · q to quit", m.updates)))
	return b.String()
}

// Err returns the daemon failure that ended the program, if any
func (m WatchModel) Err() error {
	return m.err
}
