package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/dependents/node-app-root/render"
	"github.com/dependents/node-app-root/roots"
	"github.com/dependents/node-app-root/watch"
)

func newWatchCommand(opts *options, stdout, stderr io.Writer) *cobra.Command {
	var tui, quiet bool

	cmd := &cobra.Command{
		Use:   "watch <directory>",
		Short: "Re-run root inference whenever a source file changes",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return usageError{roots.ErrMissingDirectory}
			}
			return runWatch(cmd, opts, args[0], tui, quiet, stdout, stderr)
		},
	}
	addConfigFlags(cmd)
	cmd.Flags().BoolVar(&tui, "tui", false, "show a live view instead of log lines")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "don't print [watch] lines")

	stopCmd := &cobra.Command{
		Use:   "stop <directory>",
		Short: "Stop the watch daemon running for a directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return usageError{roots.ErrMissingDirectory}
			}
			root, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			if err := watch.Stop(root); err != nil {
				return err
			}
			fmt.Fprintf(stdout, "Stopped watch daemon for %s\n", root)
			return nil
		},
	}
	cmd.AddCommand(stopCmd)
	return cmd
}

func runWatch(cmd *cobra.Command, opts *options, dir string, tui, quiet bool, stdout, stderr io.Writer) error {
	cfg, err := loadConfig(cmd, opts, dir)
	if err != nil {
		return err
	}
	ctx, shutdown, err := setup(cmd.Context(), cfg, cmd.Root().Version, stderr)
	if err != nil {
		return err
	}
	defer shutdown()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	daemon, err := watch.NewDaemon(cfg, !tui && !quiet)
	if err != nil {
		return err
	}
	daemon.SetOutput(stdout)

	root, err := filepath.Abs(cfg.Directory)
	if err != nil {
		return err
	}
	if watch.IsRunning(root) {
		return fmt.Errorf("a watch daemon is already running for %s", root)
	}
	if err := watch.WritePID(root); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer watch.RemovePID(root)

	if tui {
		return runWatchTUI(ctx, daemon, root)
	}

	if err := daemon.Start(ctx); err != nil {
		return err
	}
	defer daemon.Stop()

	if !quiet {
		fmt.Fprintf(stdout, "[watch] Watching %s (Ctrl+C to stop)\n", root)
	}
	<-ctx.Done()
	return nil
}

// runWatchTUI starts the daemon behind a bubbletea program. The daemon is
// started from a goroutine because Program.Send blocks until Run is reading.
func runWatchTUI(ctx context.Context, daemon *watch.Daemon, root string) error {
	p := tea.NewProgram(render.NewWatchModel(root), tea.WithAltScreen(), tea.WithContext(ctx))
	daemon.OnUpdate(func(s watch.State) {
		p.Send(render.StateMsg(s))
	})

	go func() {
		if err := daemon.Start(ctx); err != nil && !errors.Is(err, watch.ErrStopped) {
			p.Send(render.ErrMsg{Err: err})
		}
	}()
	defer daemon.Stop()

	final, err := p.Run()
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	if m, ok := final.(render.WatchModel); ok && m.Err() != nil {
		return m.Err()
	}
	return nil
}
