// Package cmd implements the approot command line.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/dependents/node-app-root/config"
	"github.com/dependents/node-app-root/render"
	"github.com/dependents/node-app-root/roots"
	"github.com/dependents/node-app-root/telemetry"
)

// usageError marks errors that should be followed by the command's usage.
type usageError struct{ error }

func (e usageError) Unwrap() error { return e.error }

// options are the flags that don't map to config keys.
type options struct {
	configFile string
	debug      bool
	json       bool
	graph      bool
	pretty     bool
}

// NewRootCommand builds the approot command tree writing to stdout and stderr.
func NewRootCommand(version string, stdout, stderr io.Writer) *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "approot <directory>",
		Short: "Find the root files of a JavaScript dependency tree",
		Long: `approot walks a directory, builds the file-level dependency graph of its
CommonJS, AMD and ES modules, and prints the files no other file depends on:
the entry points of the applications that live there.`,
		Version:       version,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFind(cmd, opts, args, stdout, stderr)
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	addFindFlags(root, opts)
	root.PersistentFlags().StringVar(&opts.configFile, "config", "", "config file (default <directory>/"+config.FileName+")")
	root.PersistentFlags().BoolVar(&opts.debug, "debug", false, "log at debug level")
	root.PersistentFlags().String("log-format", "text", "log format: text or json")
	root.PersistentFlags().String("otlp-endpoint", "", "OTLP gRPC endpoint for traces (disabled when empty)")

	findCmd := &cobra.Command{
		Use:   "find <directory>",
		Short: "Print the root files of a directory (same as approot <directory>)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFind(cmd, opts, args, stdout, stderr)
		},
	}
	addFindFlags(findCmd, opts)

	root.AddCommand(findCmd, newWatchCommand(opts, stdout, stderr), newStatusCommand(stdout), newMCPCommand(opts, version, stderr))
	return root
}

// addFindFlags registers the flags shared by every command that runs inference.
func addFindFlags(cmd *cobra.Command, opts *options) {
	f := cmd.Flags()
	f.BoolVar(&opts.json, "json", false, "print the full report as JSON")
	f.BoolVar(&opts.graph, "graph", false, "print the dependency graph instead of the roots")
	f.BoolVar(&opts.pretty, "pretty", false, "print a styled summary with the roots as a tree")
	addConfigFlags(cmd)
}

// addConfigFlags registers the flags bound to config keys.
func addConfigFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("policy", config.PolicyZeroIncoming, "root policy: zero-incoming or cumulative-degree")
	f.StringSlice("ignore-dir", nil, "directory name or glob to skip (repeatable)")
	f.StringSlice("ignore-file", nil, "file name or glob to skip (repeatable)")
	f.Bool("include-no-deps", false, "also report modules that import nothing and nothing imports")
	f.StringSlice("ext", []string{".js"}, "source extension to collect (repeatable)")
	f.Bool("default-ignores", false, "skip node_modules, bower_components, .git and similar")
	f.Bool("gitignore", false, "honor .gitignore files")
	f.Int("workers", 0, "parallel file workers (0 = GOMAXPROCS)")
	f.Duration("file-timeout", 0, "per-file classify/extract budget (default 10s)")
}

// loadConfig layers defaults, the config file, the environment and flags,
// with dir taken from the positional argument.
func loadConfig(cmd *cobra.Command, opts *options, dir string) (config.Config, error) {
	loader := config.NewLoader()
	if err := loader.BindFlags(cmd.Flags()); err != nil {
		return config.Config{}, err
	}
	if dir != "" {
		loader.Set("directory", dir)
	}
	cfg, err := loader.Load(opts.configFile, dir)
	if err != nil {
		return config.Config{}, err
	}
	if opts.debug {
		cfg.Log.Level = "debug"
	}
	return cfg, nil
}

// setup installs the logger and tracer for cfg and returns a context carrying
// the logger plus a shutdown func.
func setup(ctx context.Context, cfg config.Config, version string, stderr io.Writer) (context.Context, func(), error) {
	logger := telemetry.NewLogger(stderr, cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(logger)
	ctx = telemetry.WithLogger(ctx, logger)

	tp, err := telemetry.InitTracing(ctx, telemetry.TracingConfig{
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: version,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		SampleRate:     cfg.Telemetry.SampleRate,
	})
	if err != nil {
		return nil, nil, err
	}
	shutdown := func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			logger.Warn("tracer shutdown failed", "error", err)
		}
	}
	return ctx, shutdown, nil
}

func runFind(cmd *cobra.Command, opts *options, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		return usageError{roots.ErrMissingDirectory}
	}
	cfg, err := loadConfig(cmd, opts, args[0])
	if err != nil {
		return err
	}
	ctx, shutdown, err := setup(cmd.Context(), cfg, cmd.Root().Version, stderr)
	if err != nil {
		return err
	}
	defer shutdown()

	report, err := roots.FindRoots(ctx, cfg)
	if err != nil {
		return err
	}

	switch {
	case opts.graph && opts.json:
		return render.GraphJSON(stdout, report)
	case opts.graph:
		render.Graph(stdout, report)
	case opts.json:
		return render.JSON(stdout, report)
	case opts.pretty:
		render.Styled(stdout, report, render.IsTerminal(stdout))
	default:
		render.Roots(stdout, report)
	}
	return nil
}

// Execute runs the CLI with os.Args and returns the process exit code.
func Execute(version string) int {
	root := NewRootCommand(version, os.Stdout, os.Stderr)
	return run(root, os.Args[1:], os.Stderr)
}

func run(root *cobra.Command, args []string, stderr io.Writer) int {
	root.SetArgs(args)
	cmd, err := root.ExecuteC()
	if err == nil {
		return 0
	}
	fmt.Fprintf(stderr, "Error: %v\n", err)
	var usage usageError
	if errors.As(err, &usage) {
		fmt.Fprintln(stderr)
		fmt.Fprint(stderr, cmd.UsageString())
	}
	return 1
}
