package graph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dependents/node-app-root/jsmod"
	"github.com/dependents/node-app-root/limits"
	"github.com/dependents/node-app-root/resolve"
	"github.com/dependents/node-app-root/telemetry"
)

// ErrTimeout is recorded for files that exceed the per-file budget.
var ErrTimeout = errors.New("file processing timed out")

// Stage names the pipeline step a per-file failure happened in.
type Stage string

const (
	StageClassify Stage = "classify"
	StageExtract  Stage = "extract"
)

// Diagnostic is a recoverable per-file failure.
type Diagnostic struct {
	Path  string
	Stage Stage
	Err   error
}

func (d Diagnostic) Error() string {
	return fmt.Sprintf("%s: %s: %v", d.Stage, d.Path, d.Err)
}

func (d Diagnostic) Unwrap() error { return d.Err }

// MarshalJSON renders the error as its message.
func (d Diagnostic) MarshalJSON() ([]byte, error) {
	msg := ""
	if d.Err != nil {
		msg = d.Err.Error()
	}
	return json.Marshal(struct {
		Path  string `json:"path"`
		Stage Stage  `json:"stage"`
		Error string `json:"error"`
	}{d.Path, d.Stage, msg})
}

// Resolver turns a specifier written in from into a dependency.
type Resolver interface {
	Resolve(specifier, from string) resolve.Dependency
}

// Options configures Build.
type Options struct {
	Classifier jsmod.Classifier
	Extractor  jsmod.Extractor
	// Resolver defaults to resolve.New(Root) probing the collected files.
	Resolver Resolver
	Root     string
	// Workers bounds concurrent per-file tasks. Zero means GOMAXPROCS.
	Workers int
	// FileTimeout bounds classification plus extraction of one file.
	// Zero means limits.DefaultFileTimeout.
	FileTimeout time.Duration
}

// Result is a built graph plus what was learned along the way.
type Result struct {
	Graph       DependencyGraph
	Formats     map[string]jsmod.Format
	Diagnostics []Diagnostic
	// Skipped lists collected files that are not modules, in input order.
	Skipped []string
}

type fileResult struct {
	node   bool
	format jsmod.Format
	deps   []string
	diag   *Diagnostic
}

// Build classifies, extracts and resolves every file concurrently, then
// assembles the graph once all of them are done. Only cancellation of ctx
// fails the build; per-file problems become diagnostics.
func Build(ctx context.Context, files []string, opts Options) (*Result, error) {
	if opts.Classifier == nil || opts.Extractor == nil {
		return nil, errors.New("graph: classifier and extractor are required")
	}

	known := make(map[string]bool, len(files))
	for _, f := range files {
		known[f] = true
	}
	resolver := opts.Resolver
	if resolver == nil {
		if opts.Root == "" {
			return nil, errors.New("graph: resolver or root is required")
		}
		resolver = resolve.New(opts.Root, resolve.WithKnown(func(p string) bool { return known[p] }))
	}
	timeout := opts.FileTimeout
	if timeout <= 0 {
		timeout = limits.DefaultFileTimeout
	}

	slots := make([]fileResult, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limits.Workers(opts.Workers, runtime.GOMAXPROCS(0)))
	for i, path := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := processFile(gctx, path, opts, resolver, timeout)
			if err != nil {
				return err
			}
			slots[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return assemble(ctx, files, slots), nil
}

func processFile(ctx context.Context, path string, opts Options, resolver Resolver, timeout time.Duration) (fileResult, error) {
	fctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	format, err := bounded(fctx, func(c context.Context) (jsmod.Format, error) {
		return opts.Classifier.Classify(c, path)
	})
	if err != nil {
		if ctx.Err() != nil {
			return fileResult{}, ctx.Err()
		}
		diag := &Diagnostic{Path: path, Stage: StageClassify, Err: timeoutErr(err)}
		// A file that could not be classified is still a node, just without dependencies.
		return fileResult{node: true, format: jsmod.None, diag: diag}, nil
	}
	if format == jsmod.None {
		return fileResult{format: jsmod.None}, nil
	}

	res := fileResult{node: true, format: format}
	specs, err := bounded(fctx, func(c context.Context) ([]string, error) {
		return opts.Extractor.Extract(c, path, format)
	})
	if err != nil {
		if ctx.Err() != nil {
			return fileResult{}, ctx.Err()
		}
		res.diag = &Diagnostic{Path: path, Stage: StageExtract, Err: timeoutErr(err)}
		return res, nil
	}

	for _, spec := range specs {
		dep := resolver.Resolve(spec, path)
		if dep.Core || dep.Path == "" || dep.Path == path {
			continue
		}
		res.deps = append(res.deps, dep.Path)
	}
	return res, nil
}

// bounded runs fn but stops waiting once ctx is done, so a stuck parse
// cannot hold up its worker.
func bounded[T any](ctx context.Context, fn func(context.Context) (T, error)) (T, error) {
	type outcome struct {
		v   T
		err error
	}
	ch := make(chan outcome, 1)
	go func() {
		v, err := fn(ctx)
		ch <- outcome{v, err}
	}()

	select {
	case o := <-ch:
		return o.v, o.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

func timeoutErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return err
}

// assemble runs after the barrier; nothing else touches the slots by now.
func assemble(ctx context.Context, files []string, slots []fileResult) *Result {
	log := telemetry.Logger(ctx)
	res := &Result{
		Graph:   make(DependencyGraph),
		Formats: make(map[string]jsmod.Format, len(files)),
	}

	for i, path := range files {
		s := slots[i]
		if s.diag != nil {
			res.Diagnostics = append(res.Diagnostics, *s.diag)
			log.Warn("file degraded", "path", s.diag.Path, "stage", string(s.diag.Stage), "error", s.diag.Err)
		}
		if !s.node {
			res.Skipped = append(res.Skipped, path)
			continue
		}
		res.Formats[path] = s.format
		res.Graph[path] = []string{}
	}

	for i, path := range files {
		if _, ok := res.Graph[path]; !ok {
			continue
		}
		seen := make(map[string]bool)
		for _, dep := range slots[i].deps {
			if seen[dep] {
				continue
			}
			seen[dep] = true
			if _, ok := res.Graph[dep]; !ok {
				log.Debug("dropping unresolved dependency", "from", path, "target", relTo(path, dep))
				continue
			}
			res.Graph[path] = append(res.Graph[path], dep)
		}
	}
	return res
}

func relTo(from, target string) string {
	if rel, err := filepath.Rel(filepath.Dir(from), target); err == nil {
		return rel
	}
	return target
}
