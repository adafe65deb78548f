// Package watch provides a file system watcher daemon that keeps the root set
// of a directory up to date
package watch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/dependents/node-app-root/config"
	"github.com/dependents/node-app-root/limits"
	"github.com/dependents/node-app-root/roots"
	"github.com/dependents/node-app-root/scanner"
	"github.com/dependents/node-app-root/telemetry"
)

// StateDir holds the daemon's state and PID files inside the watched directory.
const StateDir = ".approot"

// Event is a file change and what it did to the root set
type Event struct {
	Time    time.Time `json:"time"`
	Op      string    `json:"op"`   // CREATE, WRITE, REMOVE, RENAME
	Path    string    `json:"path"` // relative path
	Roots   int       `json:"roots"`
	Added   []string  `json:"added,omitempty"`   // roots gained
	Removed []string  `json:"removed,omitempty"` // roots lost
	Error   string    `json:"error,omitempty"`   // re-run failure
}

// State is what the daemon persists for `approot status`
type State struct {
	UpdatedAt    time.Time `json:"updated_at"`
	Directory    string    `json:"directory"`
	Policy       string    `json:"policy"`
	FileCount    int       `json:"file_count"`
	ModuleCount  int       `json:"module_count"`
	Roots        []string  `json:"roots"` // relative paths
	Diagnostics  int       `json:"diagnostics"`
	Cycles       int       `json:"cycles"`
	RecentEvents []Event   `json:"recent_events"` // last limits.MaxWatchEvents events
}

// Daemon re-runs root inference whenever a source file changes
type Daemon struct {
	root    string
	cfg     config.Config
	finder  *roots.Finder
	watcher *fsnotify.Watcher
	dirs    *scanner.DirFilter
	exts    map[string]bool
	verbose bool
	out     io.Writer

	mu       sync.RWMutex
	report   *roots.Report
	events   []Event
	onUpdate func(State)

	stopped  bool // guarded by mu
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// ErrStopped is returned by Start once Stop has been called.
var ErrStopped = errors.New("watch daemon stopped")

// NewDaemon creates a daemon for cfg.Directory
func NewDaemon(cfg config.Config, verbose bool) (*Daemon, error) {
	if cfg.Directory == "" {
		return nil, roots.ErrMissingDirectory
	}
	absRoot, err := filepath.Abs(cfg.Directory)
	if err != nil {
		return nil, fmt.Errorf("invalid root path: %w", err)
	}
	cfg.Directory = absRoot

	opts := scanner.Options{
		Extensions:        cfg.Extensions,
		IgnoreDirectories: cfg.IgnoreDirectories,
		IgnoreFiles:       cfg.IgnoreFiles,
		DefaultIgnores:    cfg.DefaultIgnores,
		Gitignore:         cfg.Gitignore,
	}
	dirs, err := scanner.NewDirFilter(absRoot, opts)
	if err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	return &Daemon{
		root:    absRoot,
		cfg:     cfg,
		finder:  roots.NewFinder(),
		watcher: watcher,
		dirs:    dirs,
		exts:    scanner.NormalizeExtensions(cfg.Extensions),
		verbose: verbose,
		out:     os.Stdout,
		done:    make(chan struct{}),
	}, nil
}

// SetOutput redirects the verbose [watch] lines
func (d *Daemon) SetOutput(w io.Writer) {
	d.out = w
}

// OnUpdate registers fn to receive the state after every run
func (d *Daemon) OnUpdate(fn func(State)) {
	d.mu.Lock()
	d.onUpdate = fn
	d.mu.Unlock()
}

// Start runs inference once, starts watching and returns
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.RLock()
	stopped := d.stopped
	d.mu.RUnlock()
	if stopped {
		return ErrStopped
	}
	if err := os.MkdirAll(filepath.Join(d.root, StateDir), 0755); err != nil {
		return fmt.Errorf("failed to create %s dir: %w", StateDir, err)
	}

	start := time.Now()
	report, err := d.finder.Run(ctx, d.cfg)
	if err != nil {
		d.watcher.Close()
		return fmt.Errorf("initial run failed: %w", err)
	}
	d.mu.Lock()
	d.report = report
	d.mu.Unlock()
	d.logf("[watch] Initial run: %d files, %d roots in %v\n", report.Files, len(report.Roots), time.Since(start))

	if err := d.addWatchDirs(d.root); err != nil {
		d.watcher.Close()
		return fmt.Errorf("failed to add watch dirs: %w", err)
	}

	d.writeState()
	d.notify()

	// Add must not race with the Wait in Stop.
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return ErrStopped
	}
	d.wg.Add(1)
	d.mu.Unlock()

	go d.eventLoop(ctx)
	return nil
}

// Stop shuts the daemon down and waits for the event loop to exit
func (d *Daemon) Stop() {
	d.stopOnce.Do(func() {
		d.mu.Lock()
		d.stopped = true
		d.mu.Unlock()
		close(d.done)
		d.watcher.Close()
	})
	d.wg.Wait()
}

// Report returns the latest report
func (d *Daemon) Report() *roots.Report {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.report
}

// addWatchDirs adds dir and every kept directory below it to the watcher
func (d *Daemon) addWatchDirs(dir string) error {
	return filepath.WalkDir(dir, func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			return nil // skip errors
		}
		if !entry.IsDir() {
			return nil
		}
		if path != d.root && d.dirs.Skip(path) {
			return filepath.SkipDir
		}
		return d.watcher.Add(path)
	})
}

// eventLoop processes file system events. Source file events are batched
// until limits.WatchDebounce passes without a new one (e.g. save + format).
func (d *Daemon) eventLoop(ctx context.Context) {
	defer d.wg.Done()

	pending := make(map[string]fsnotify.Event)
	var order []string
	timer := time.NewTimer(limits.WatchDebounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-d.done:
			return
		case <-ctx.Done():
			return

		case event, ok := <-d.watcher.Events:
			if !ok {
				return
			}

			isDir := false
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if d.dirs.Skip(event.Name) {
						continue
					}
					if err := d.addWatchDirs(event.Name); err != nil {
						telemetry.Logger(ctx).Warn("watch new directory", "path", event.Name, "error", err)
					}
					// a moved-in directory may already hold sources
					isDir = true
				}
			}

			if !isDir && !d.isSourceFile(event.Name) {
				continue
			}

			prev, seen := pending[event.Name]
			if !seen {
				order = append(order, event.Name)
			}
			pending[event.Name] = mergeEvents(prev, event, seen)
			timer.Reset(limits.WatchDebounce)

		case <-timer.C:
			for _, name := range order {
				d.handleEvent(ctx, pending[name])
			}
			pending = make(map[string]fsnotify.Event)
			order = order[:0]

		case err, ok := <-d.watcher.Errors:
			if !ok {
				return
			}
			telemetry.Logger(ctx).Warn("watcher error", "error", err)
		}
	}
}

// mergeEvents folds next into the pending event for the same path: a
// create followed by writes stays a create, anything else takes the latest op.
func mergeEvents(prev, next fsnotify.Event, seen bool) fsnotify.Event {
	if seen && prev.Op&fsnotify.Create != 0 && next.Op&fsnotify.Write != 0 {
		return prev
	}
	return next
}

// isSourceFile checks if a file takes part in inference
func (d *Daemon) isSourceFile(path string) bool {
	return d.exts[strings.ToLower(filepath.Ext(path))]
}

// handleEvent re-runs inference for a single file event
func (d *Daemon) handleEvent(ctx context.Context, fsEvent fsnotify.Event) {
	var op string
	switch {
	case fsEvent.Op&fsnotify.Create != 0:
		op = "CREATE"
	case fsEvent.Op&fsnotify.Write != 0:
		op = "WRITE"
	case fsEvent.Op&fsnotify.Remove != 0:
		op = "REMOVE"
	case fsEvent.Op&fsnotify.Rename != 0:
		op = "RENAME"
	default:
		return
	}
	if op == "REMOVE" || op == "RENAME" {
		d.finder.Forget(fsEvent.Name)
	}

	relPath, err := filepath.Rel(d.root, fsEvent.Name)
	if err != nil {
		relPath = fsEvent.Name
	}
	event := Event{Time: time.Now(), Op: op, Path: filepath.ToSlash(relPath)}

	report, err := d.finder.Run(ctx, d.cfg)

	d.mu.Lock()
	if err != nil {
		event.Error = err.Error()
		if d.report != nil {
			event.Roots = len(d.report.Roots)
		}
	} else {
		if d.report != nil {
			event.Added, event.Removed = diffRoots(d.root, d.report.Roots, report.Roots)
		}
		event.Roots = len(report.Roots)
		d.report = report
	}
	d.events = append(d.events, event)
	if len(d.events) > limits.MaxWatchEvents {
		d.events = d.events[len(d.events)-limits.MaxWatchEvents:]
	}
	d.mu.Unlock()

	if err != nil {
		telemetry.Logger(ctx).Warn("re-run failed", "path", event.Path, "error", err)
	}

	d.writeState()
	d.notify()

	if d.verbose {
		changes := ""
		for _, r := range event.Added {
			changes += " +" + r
		}
		for _, r := range event.Removed {
			changes += " -" + r
		}
		d.logf("[watch] %s %s %s [roots:%d]%s\n", event.Time.Format("15:04:05"), op, event.Path, event.Roots, changes)
	}
}

// diffRoots returns the relative roots gained and lost between two runs
func diffRoots(root string, before, after []string) (added, removed []string) {
	prev := make(map[string]bool, len(before))
	for _, r := range before {
		prev[r] = true
	}
	next := make(map[string]bool, len(after))
	for _, r := range after {
		next[r] = true
		if !prev[r] {
			added = append(added, relSlash(root, r))
		}
	}
	for _, r := range before {
		if !next[r] {
			removed = append(removed, relSlash(root, r))
		}
	}
	sort.Strings(added)
	sort.Strings(removed)
	return added, removed
}

func relSlash(root, path string) string {
	if rel, err := filepath.Rel(root, path); err == nil {
		return filepath.ToSlash(rel)
	}
	return filepath.ToSlash(path)
}

func (d *Daemon) logf(format string, args ...any) {
	if d.verbose {
		fmt.Fprintf(d.out, format, args...)
	}
}

// State returns a snapshot of the current state
func (d *Daemon) State() State {
	d.mu.RLock()
	defer d.mu.RUnlock()

	events := d.events
	if len(events) > limits.MaxWatchEvents {
		events = events[len(events)-limits.MaxWatchEvents:]
	}
	state := State{
		UpdatedAt:    time.Now(),
		Directory:    d.root,
		Policy:       d.cfg.Policy,
		Roots:        []string{},
		RecentEvents: append([]Event{}, events...),
	}
	if r := d.report; r != nil {
		state.Policy = r.Policy
		state.FileCount = r.Files
		state.ModuleCount = len(r.Graph)
		state.Diagnostics = len(r.Diagnostics)
		state.Cycles = len(r.Cycles)
		for _, root := range r.Roots {
			state.Roots = append(state.Roots, relSlash(d.root, root))
		}
	}
	return state
}

func (d *Daemon) notify() {
	d.mu.RLock()
	fn := d.onUpdate
	d.mu.RUnlock()
	if fn != nil {
		fn(d.State())
	}
}

// writeState persists current state for `approot status` to read
func (d *Daemon) writeState() {
	data, err := json.MarshalIndent(d.State(), "", "  ")
	if err != nil {
		return
	}
	stateFile := filepath.Join(d.root, StateDir, "state.json")
	os.WriteFile(stateFile, data, 0644)
}

// ReadState reads the daemon state from disk.
// Returns nil if state doesn't exist, or is stale and the daemon is not running.
func ReadState(root string) *State {
	stateFile := filepath.Join(root, StateDir, "state.json")
	data, err := os.ReadFile(stateFile)
	if err != nil {
		return nil
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil
	}

	// The daemon only writes on change, so old state is fine while it runs.
	if time.Since(state.UpdatedAt) > limits.StateStaleAge && !IsRunning(root) {
		return nil
	}

	return &state
}

// WritePID writes the daemon PID to .approot/watch.pid
func WritePID(root string) error {
	if err := os.MkdirAll(filepath.Join(root, StateDir), 0755); err != nil {
		return err
	}
	pidFile := filepath.Join(root, StateDir, "watch.pid")
	return os.WriteFile(pidFile, []byte(fmt.Sprintf("%d", os.Getpid())), 0644)
}

// ReadPID reads the daemon PID from .approot/watch.pid
func ReadPID(root string) (int, error) {
	pidFile := filepath.Join(root, StateDir, "watch.pid")
	data, err := os.ReadFile(pidFile)
	if err != nil {
		return 0, err
	}
	var pid int
	_, err = fmt.Sscanf(string(data), "%d", &pid)
	return pid, err
}

// RemovePID removes the PID file
func RemovePID(root string) {
	pidFile := filepath.Join(root, StateDir, "watch.pid")
	os.Remove(pidFile)
}

// IsRunning checks if the daemon is running
func IsRunning(root string) bool {
	pid, err := ReadPID(root)
	if err != nil {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	// On Unix, FindProcess always succeeds, so send signal 0 to check
	err = proc.Signal(syscall.Signal(0))
	return err == nil
}

// Stop sends SIGTERM to the daemon process
func Stop(root string) error {
	pid, err := ReadPID(root)
	if err != nil {
		return fmt.Errorf("no daemon running: %w", err)
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		return err
	}
	RemovePID(root)
	return nil
}
