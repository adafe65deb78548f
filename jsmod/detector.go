package jsmod

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dependents/node-app-root/limits"
)

// Options configures a Detector.
type Options struct {
	// Registry supplies extraction strategies. Nil means DefaultRegistry.
	Registry *Registry
	// CacheSize bounds the parse cache. Zero means limits.DefaultParseCacheEntries.
	CacheSize int
	// MaxBytes refuses files above this size. Zero means limits.MaxSourceFileBytes,
	// negative disables the check.
	MaxBytes int64
}

// Detector classifies files and extracts their specifiers. A file is parsed
// once per (modtime, size); Classify caches the specifiers of the detected
// format so the following Extract is free. Safe for concurrent use.
type Detector struct {
	registry *Registry
	cache    *lru.Cache[string, entry]
	maxBytes int64

	parses atomic.Int64
}

type stamp struct {
	modTime time.Time
	size    int64
}

type entry struct {
	stamp      stamp
	format     Format
	specifiers []string
	err        error
}

var (
	_ Classifier = (*Detector)(nil)
	_ Extractor  = (*Detector)(nil)
)

// NewDetector builds a Detector.
func NewDetector(opts Options) (*Detector, error) {
	reg := opts.Registry
	if reg == nil {
		var err error
		if reg, err = DefaultRegistry(); err != nil {
			return nil, err
		}
	}

	size := opts.CacheSize
	if size <= 0 {
		size = limits.DefaultParseCacheEntries
	}
	cache, err := lru.New[string, entry](size)
	if err != nil {
		return nil, fmt.Errorf("parse cache: %w", err)
	}

	maxBytes := opts.MaxBytes
	switch {
	case maxBytes == 0:
		maxBytes = limits.MaxSourceFileBytes
	case maxBytes < 0:
		maxBytes = 0
	}

	return &Detector{registry: reg, cache: cache, maxBytes: maxBytes}, nil
}

// Classify reports the module format of path.
func (d *Detector) Classify(ctx context.Context, path string) (Format, error) {
	if err := ctx.Err(); err != nil {
		return None, err
	}
	st, err := statFile(path)
	if err != nil {
		return None, err
	}
	if e, ok := d.cache.Get(path); ok && e.stamp == st {
		return e.format, nil
	}

	src, err := d.parse(path)
	if err != nil {
		return None, err
	}
	defer src.Close()

	format := classify(src)
	specs, serr := d.registry.specifiers(src, format)
	d.cache.Add(path, entry{stamp: st, format: format, specifiers: specs, err: serr})
	return format, nil
}

// Extract returns the de-duplicated specifiers path declares under format.
func (d *Detector) Extract(ctx context.Context, path string, format Format) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if format == None {
		return nil, nil
	}
	st, err := statFile(path)
	if err != nil {
		return nil, err
	}
	if e, ok := d.cache.Get(path); ok && e.stamp == st && e.format == format {
		return append([]string(nil), e.specifiers...), e.err
	}

	src, err := d.parse(path)
	if err != nil {
		return nil, err
	}
	defer src.Close()
	return d.registry.specifiers(src, format)
}

// Forget drops the cached result for path.
func (d *Detector) Forget(path string) {
	d.cache.Remove(path)
}

// Cached reports how many files currently have a cached parse.
func (d *Detector) Cached() int {
	return d.cache.Len()
}

func (d *Detector) parse(path string) (*Source, error) {
	d.parses.Add(1)
	return parseFile(path, d.maxBytes)
}

func statFile(path string) (stamp, error) {
	info, err := os.Stat(path)
	if err != nil {
		return stamp{}, err
	}
	return stamp{modTime: info.ModTime(), size: info.Size()}, nil
}
