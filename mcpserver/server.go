// Package mcpserver exposes root inference to MCP clients over stdio.
package mcpserver

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dependents/node-app-root/config"
	"github.com/dependents/node-app-root/roots"
	"github.com/dependents/node-app-root/telemetry"
)

// FindRootsInput selects the directory and options of a run. Unset fields
// fall back to the server's base configuration.
type FindRootsInput struct {
	Directory                  string   `json:"directory" jsonschema:"directory to scan, absolute or relative to the server's working directory"`
	Policy                     string   `json:"policy,omitempty" jsonschema:"root policy: zero-incoming (default) or cumulative-degree"`
	IgnoreDirectories          []string `json:"ignore_directories,omitempty" jsonschema:"directory names or globs to skip"`
	IgnoreFiles                []string `json:"ignore_files,omitempty" jsonschema:"file names or globs to skip"`
	IncludeNoDependencyModules bool     `json:"include_no_dependency_modules,omitempty" jsonschema:"also report modules that import nothing and are imported by nothing"`
	Extensions                 []string `json:"extensions,omitempty" jsonschema:"source extensions to collect, e.g. .js"`
}

// FindRootsOutput lists the roots relative to the scanned directory.
type FindRootsOutput struct {
	Directory   string   `json:"directory"`
	Policy      string   `json:"policy"`
	Roots       []string `json:"roots"`
	Files       int      `json:"files"`
	Modules     int      `json:"modules"`
	Diagnostics []string `json:"diagnostics,omitempty"`
}

// GraphOutput is the dependency graph with paths relative to the directory.
type GraphOutput struct {
	Directory string              `json:"directory"`
	Graph     map[string][]string `json:"graph"`
	Importers map[string][]string `json:"importers"`
	Degrees   map[string]int      `json:"degrees"`
	Roots     []string            `json:"roots"`
	Cycles    [][]string          `json:"cycles,omitempty"`
}

// Server answers tool calls with a shared Finder, so repeated calls over the
// same tree reuse parses.
type Server struct {
	base   config.Config
	finder *roots.Finder
	server *mcp.Server
}

// New creates a server whose tool calls start from base.
func New(base config.Config, version string) *Server {
	s := &Server{
		base:   base,
		finder: roots.NewFinder(),
		server: mcp.NewServer(&mcp.Implementation{Name: "approot", Version: version}, nil),
	}

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "find_roots",
		Description: "Find the root files of a JavaScript directory tree: files no other file in the tree depends on.",
	}, s.findRoots)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "dependency_graph",
		Description: "Build the file-level dependency graph of a JavaScript directory tree, with importers, cumulative degrees and cycles.",
	}, s.dependencyGraph)

	return s
}

// Serve runs the server on stdin/stdout until the client disconnects or ctx ends.
func (s *Server) Serve(ctx context.Context) error {
	telemetry.Logger(ctx).Info("mcp server listening on stdio")
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) configFor(in FindRootsInput) (config.Config, error) {
	if in.Directory == "" {
		return config.Config{}, roots.ErrMissingDirectory
	}
	cfg := s.base
	cfg.Directory = in.Directory
	if in.Policy != "" {
		cfg.Policy = in.Policy
	}
	if len(in.IgnoreDirectories) > 0 {
		cfg.IgnoreDirectories = in.IgnoreDirectories
	}
	if len(in.IgnoreFiles) > 0 {
		cfg.IgnoreFiles = in.IgnoreFiles
	}
	if len(in.Extensions) > 0 {
		cfg.Extensions = in.Extensions
	}
	if in.IncludeNoDependencyModules {
		cfg.IncludeNoDependencyModules = true
	}
	return cfg, nil
}

func (s *Server) run(ctx context.Context, in FindRootsInput) (*roots.Report, error) {
	cfg, err := s.configFor(in)
	if err != nil {
		return nil, err
	}
	report, err := s.finder.Run(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("find roots in %s: %w", in.Directory, err)
	}
	return report, nil
}

func (s *Server) findRoots(ctx context.Context, _ *mcp.CallToolRequest, in FindRootsInput) (*mcp.CallToolResult, FindRootsOutput, error) {
	report, err := s.run(ctx, in)
	if err != nil {
		return nil, FindRootsOutput{}, err
	}
	out := FindRootsOutput{
		Directory: report.Directory,
		Policy:    report.Policy,
		Roots:     relAll(report.Directory, report.Roots),
		Files:     report.Files,
		Modules:   len(report.Graph),
	}
	for _, d := range report.Diagnostics {
		out.Diagnostics = append(out.Diagnostics, fmt.Sprintf("%s: %s: %v", rel(report.Directory, d.Path), d.Stage, d.Err))
	}
	return nil, out, nil
}

func (s *Server) dependencyGraph(ctx context.Context, _ *mcp.CallToolRequest, in FindRootsInput) (*mcp.CallToolResult, GraphOutput, error) {
	report, err := s.run(ctx, in)
	if err != nil {
		return nil, GraphOutput{}, err
	}
	report.EnsureDegrees()
	out := GraphOutput{
		Directory: report.Directory,
		Graph:     make(map[string][]string, len(report.Graph)),
		Importers: make(map[string][]string, len(report.Graph)),
		Degrees:   make(map[string]int, len(report.Degrees)),
		Roots:     relAll(report.Directory, report.Roots),
	}
	for file, deps := range report.Graph {
		out.Graph[rel(report.Directory, file)] = relAll(report.Directory, deps)
	}
	for file, from := range report.Graph.Importers() {
		out.Importers[rel(report.Directory, file)] = relAll(report.Directory, from)
	}
	for file, d := range report.Degrees {
		out.Degrees[rel(report.Directory, file)] = d
	}
	for _, c := range report.Cycles {
		out.Cycles = append(out.Cycles, relAll(report.Directory, c))
	}
	return nil, out, nil
}

func rel(root, path string) string {
	if r, err := filepath.Rel(root, path); err == nil {
		return filepath.ToSlash(r)
	}
	return filepath.ToSlash(path)
}

func relAll(root string, paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		out = append(out, rel(root, p))
	}
	return out
}
