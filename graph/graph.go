// Package graph builds the directory-scoped dependency graph of module files.
package graph

import (
	"errors"
	"fmt"
	"sort"

	graphlib "github.com/dominikbraun/graph"
)

// DependencyGraph maps every module file of a run to the ordered, de-duplicated
// module files it depends on.
type DependencyGraph map[string][]string

// Nodes returns the files of the graph, sorted.
func (g DependencyGraph) Nodes() []string {
	nodes := make([]string, 0, len(g))
	for n := range g {
		nodes = append(nodes, n)
	}
	sort.Strings(nodes)
	return nodes
}

// EdgeCount returns the number of edges.
func (g DependencyGraph) EdgeCount() int {
	n := 0
	for _, deps := range g {
		n += len(deps)
	}
	return n
}

// Importers returns, for every node, the sorted files that depend on it.
func (g DependencyGraph) Importers() map[string][]string {
	importers := make(map[string][]string, len(g))
	for _, from := range g.Nodes() {
		if _, ok := importers[from]; !ok {
			importers[from] = []string{}
		}
		for _, to := range g[from] {
			importers[to] = append(importers[to], from)
		}
	}
	return importers
}

// library returns g as a directed dominikbraun graph.
func (g DependencyGraph) library() (graphlib.Graph[string, string], error) {
	lg := graphlib.New(graphlib.StringHash, graphlib.Directed())
	nodes := g.Nodes()
	for _, n := range nodes {
		if err := lg.AddVertex(n); err != nil && !errors.Is(err, graphlib.ErrVertexAlreadyExists) {
			return nil, fmt.Errorf("add vertex %s: %w", n, err)
		}
	}
	for _, from := range nodes {
		for _, to := range g[from] {
			if _, ok := g[to]; !ok {
				continue
			}
			if err := lg.AddEdge(from, to); err != nil && !errors.Is(err, graphlib.ErrEdgeAlreadyExists) {
				return nil, fmt.Errorf("add edge %s -> %s: %w", from, to, err)
			}
		}
	}
	return lg, nil
}

// CumulativeDegrees returns, per node, how many distinct other nodes are
// reachable by following dependencies. Each node counts once per traversal
// and the start node never counts itself, even through a cycle.
func (g DependencyGraph) CumulativeDegrees() map[string]int {
	nodes := g.Nodes()
	index := make(map[string]int, len(nodes))
	for i, n := range nodes {
		index[n] = i
	}
	adj := make([][]int, len(nodes))
	for i, n := range nodes {
		for _, dep := range g[n] {
			if j, ok := index[dep]; ok {
				adj[i] = append(adj[i], j)
			}
		}
	}

	// visited[v] == start+1 marks v as seen in the traversal from start.
	visited := make([]int, len(nodes))
	var stack []int
	degrees := make(map[string]int, len(nodes))
	for start := range nodes {
		mark := start + 1
		visited[start] = mark
		stack = append(stack[:0], start)
		reached := 0
		for len(stack) > 0 {
			v := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			for _, w := range adj[v] {
				if visited[w] == mark {
					continue
				}
				visited[w] = mark
				reached++
				stack = append(stack, w)
			}
		}
		degrees[nodes[start]] = reached
	}
	return degrees
}

// Cycles returns the strongly connected components with more than one node,
// each sorted, ordered by their first file.
func (g DependencyGraph) Cycles() ([][]string, error) {
	lg, err := g.library()
	if err != nil {
		return nil, err
	}
	components, err := graphlib.StronglyConnectedComponents(lg)
	if err != nil {
		return nil, err
	}

	var cycles [][]string
	for _, c := range components {
		if len(c) < 2 {
			continue
		}
		c = append([]string(nil), c...)
		sort.Strings(c)
		cycles = append(cycles, c)
	}
	sort.Slice(cycles, func(i, j int) bool { return cycles[i][0] < cycles[j][0] })
	return cycles, nil
}
