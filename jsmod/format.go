// Package jsmod detects the module-definition convention of JavaScript files
// and extracts the dependency specifiers they declare.
package jsmod

import (
	"context"
	"errors"
)

// Format is the dependency-declaration convention used by a file.
type Format string

const (
	None     Format = "none"
	CommonJS Format = "commonjs"
	AMD      Format = "amd"
	ES6      Format = "es6"
)

var (
	// ErrMalformedSource is returned when a file does not parse cleanly.
	ErrMalformedSource = errors.New("malformed source")
	// ErrFileTooLarge is returned for files above the parse budget.
	ErrFileTooLarge = errors.New("file too large to parse")
)

// Classifier reports the module format of a single file.
type Classifier interface {
	Classify(ctx context.Context, path string) (Format, error)
}

// Extractor returns the raw dependency specifiers of a file, in source order.
type Extractor interface {
	Extract(ctx context.Context, path string, format Format) ([]string, error)
}
