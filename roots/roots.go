// Package roots finds the files of a directory tree that no other file
// depends on: the candidate entry points of the applications living there.
package roots

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/dependents/node-app-root/config"
	"github.com/dependents/node-app-root/graph"
	"github.com/dependents/node-app-root/jsmod"
	"github.com/dependents/node-app-root/limits"
	"github.com/dependents/node-app-root/scanner"
	"github.com/dependents/node-app-root/telemetry"
)

var (
	// ErrMissingDirectory is returned when no directory to scan was given.
	ErrMissingDirectory = errors.New("missing directory to scan")
	// ErrMissingCompletionHandler is returned by Find when done is nil.
	ErrMissingCompletionHandler = errors.New("missing completion handler")
	// ErrUnknownPolicy is returned for policy names that do not exist.
	ErrUnknownPolicy = errors.New("unknown root policy")
)

// Report is the outcome of one run.
type Report struct {
	Directory   string                  `json:"directory"`
	Policy      string                  `json:"policy"`
	Roots       []string                `json:"roots"`
	Files       int                     `json:"files"`
	Graph       graph.DependencyGraph   `json:"graph"`
	Formats     map[string]jsmod.Format `json:"formats"`
	Degrees     map[string]int          `json:"degrees,omitempty"`
	Cycles      [][]string              `json:"cycles,omitempty"`
	Diagnostics []graph.Diagnostic      `json:"diagnostics,omitempty"`
	Skipped     []string                `json:"skipped,omitempty"`
	Duration    time.Duration           `json:"duration_ns"`
}

// EnsureDegrees fills Degrees when the run's policy did not need them.
func (r *Report) EnsureDegrees() {
	if r.Degrees == nil {
		r.Degrees = r.Graph.CumulativeDegrees()
	}
}

// Finder runs the pipeline. It keeps its parse cache between runs, so a
// long-lived Finder makes repeated runs over the same tree cheap. Runs are
// serialized.
type Finder struct {
	// Classifier and Extractor default to a shared jsmod.Detector.
	Classifier jsmod.Classifier
	Extractor  jsmod.Extractor

	mu       sync.Mutex
	detector *jsmod.Detector
}

// NewFinder returns a Finder backed by a jsmod.Detector.
func NewFinder() *Finder {
	return &Finder{}
}

// Find runs the pipeline for cfg and hands the sorted roots to done. done is
// called exactly once on success and never on failure.
func Find(ctx context.Context, cfg config.Config, done func([]string)) error {
	if cfg.Directory == "" {
		return ErrMissingDirectory
	}
	if done == nil {
		return ErrMissingCompletionHandler
	}
	report, err := FindRoots(ctx, cfg)
	if err != nil {
		return err
	}
	done(report.Roots)
	return nil
}

// FindRoots runs the pipeline for cfg with a fresh Finder.
func FindRoots(ctx context.Context, cfg config.Config) (*Report, error) {
	return NewFinder().Run(ctx, cfg)
}

// Run validates cfg, collects files, builds the graph and infers roots.
func (f *Finder) Run(ctx context.Context, cfg config.Config) (*Report, error) {
	if cfg.Directory == "" {
		return nil, ErrMissingDirectory
	}
	policy, err := ParsePolicy(cfg.Policy)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	inferrer, err := New(policy, Options{IncludeNoDependencyModules: cfg.IncludeNoDependencyModules})
	if err != nil {
		return nil, err
	}

	dir, err := filepath.Abs(cfg.Directory)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", cfg.Directory, err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	log := telemetry.Logger(ctx)
	start := time.Now()

	files, err := f.collect(ctx, dir, cfg)
	if err != nil {
		return nil, err
	}
	log.Debug("collected files", "dir", dir, "count", len(files))

	classifier, extractor, err := f.modules(len(files))
	if err != nil {
		return nil, err
	}

	bctx, span := telemetry.StartSpan(ctx, telemetry.SpanBuild, attribute.Int("approot.files", len(files)))
	built, err := graph.Build(bctx, files, graph.Options{
		Classifier:  classifier,
		Extractor:   extractor,
		Root:        dir,
		Workers:     cfg.Workers,
		FileTimeout: cfg.FileTimeout,
	})
	telemetry.RecordError(span, err)
	span.End()
	if err != nil {
		return nil, err
	}

	_, span = telemetry.StartSpan(ctx, telemetry.SpanInfer,
		attribute.String("approot.policy", policy.String()),
		attribute.Int("approot.modules", len(built.Graph)),
	)
	defer span.End()

	var (
		roots   []string
		degrees map[string]int
	)
	if policy == CumulativeDegree {
		degrees = built.Graph.CumulativeDegrees()
		roots = maxDegree(degrees)
	} else {
		roots, err = inferrer.Infer(built.Graph)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, fmt.Errorf("infer roots: %w", err)
		}
	}
	cycles, err := built.Graph.Cycles()
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("cycles: %w", err)
	}
	for _, c := range cycles {
		log.Debug("dependency cycle", "files", c)
	}
	span.SetAttributes(attribute.Int("approot.roots", len(roots)))

	report := &Report{
		Directory:   dir,
		Policy:      policy.String(),
		Roots:       roots,
		Files:       len(files),
		Graph:       built.Graph,
		Formats:     built.Formats,
		Degrees:     degrees,
		Cycles:      cycles,
		Diagnostics: built.Diagnostics,
		Skipped:     built.Skipped,
		Duration:    time.Since(start),
	}
	attrs := []any{"policy", report.Policy, "roots", len(roots), "modules", len(built.Graph), "took", report.Duration}
	if f.detector != nil {
		attrs = append(attrs, "cached_parses", f.detector.Cached())
	}
	log.Debug("inferred roots", attrs...)
	return report, nil
}

func (f *Finder) collect(ctx context.Context, dir string, cfg config.Config) ([]string, error) {
	_, span := telemetry.StartSpan(ctx, telemetry.SpanCollect, attribute.String("approot.dir", dir))
	defer span.End()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	files, err := scanner.CollectFiles(dir, scanner.Options{
		Extensions:        cfg.Extensions,
		IgnoreDirectories: cfg.IgnoreDirectories,
		IgnoreFiles:       cfg.IgnoreFiles,
		DefaultIgnores:    cfg.DefaultIgnores,
		Gitignore:         cfg.Gitignore,
	})
	telemetry.RecordError(span, err)
	return files, err
}

// modules returns the configured collaborators, creating the shared detector
// on first use sized for the tree.
func (f *Finder) modules(fileCount int) (jsmod.Classifier, jsmod.Extractor, error) {
	classifier, extractor := f.Classifier, f.Extractor
	if classifier != nil && extractor != nil {
		return classifier, extractor, nil
	}
	if f.detector == nil {
		d, err := jsmod.NewDetector(jsmod.Options{CacheSize: limits.ParseCacheSize(fileCount)})
		if err != nil {
			return nil, nil, err
		}
		f.detector = d
	}
	if classifier == nil {
		classifier = f.detector
	}
	if extractor == nil {
		extractor = f.detector
	}
	return classifier, extractor, nil
}

// Forget drops any cached parse of path, e.g. after it was removed.
func (f *Finder) Forget(path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.detector != nil {
		f.detector.Forget(path)
	}
}
