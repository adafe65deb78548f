package roots

import (
	"fmt"
	"sort"

	"github.com/dependents/node-app-root/config"
	"github.com/dependents/node-app-root/graph"
)

// Policy selects how roots are picked from a dependency graph.
type Policy int

const (
	// ZeroIncoming picks files no other file depends on directly.
	ZeroIncoming Policy = iota
	// CumulativeDegree picks files reaching the most other files.
	CumulativeDegree
)

// ParsePolicy maps a configured policy name to a Policy. Empty means ZeroIncoming.
func ParsePolicy(name string) (Policy, error) {
	switch name {
	case "", config.PolicyZeroIncoming:
		return ZeroIncoming, nil
	case config.PolicyCumulativeDegree:
		return CumulativeDegree, nil
	}
	return ZeroIncoming, fmt.Errorf("%w: %q", ErrUnknownPolicy, name)
}

func (p Policy) String() string {
	switch p {
	case ZeroIncoming:
		return config.PolicyZeroIncoming
	case CumulativeDegree:
		return config.PolicyCumulativeDegree
	}
	return fmt.Sprintf("Policy(%d)", int(p))
}

// Options tunes inference.
type Options struct {
	// IncludeNoDependencyModules keeps unreferenced files without dependencies
	// as roots under ZeroIncoming.
	IncludeNoDependencyModules bool
}

// Inferrer selects the root files of a graph. Results are sorted.
type Inferrer interface {
	Infer(g graph.DependencyGraph) ([]string, error)
}

// New returns the Inferrer for policy.
func New(policy Policy, opts Options) (Inferrer, error) {
	switch policy {
	case ZeroIncoming:
		return zeroIncoming{includeLeaves: opts.IncludeNoDependencyModules}, nil
	case CumulativeDegree:
		return cumulativeDegree{}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownPolicy, policy)
}

type zeroIncoming struct {
	includeLeaves bool
}

func (z zeroIncoming) Infer(g graph.DependencyGraph) ([]string, error) {
	used := make(map[string]bool, len(g))
	for file, deps := range g {
		if len(deps) == 0 && !z.includeLeaves {
			used[file] = true
		}
		for _, dep := range deps {
			used[dep] = true
		}
	}

	roots := []string{}
	for file := range g {
		if !used[file] {
			roots = append(roots, file)
		}
	}
	sort.Strings(roots)
	return roots, nil
}

type cumulativeDegree struct{}

func (cumulativeDegree) Infer(g graph.DependencyGraph) ([]string, error) {
	return maxDegree(g.CumulativeDegrees()), nil
}

// maxDegree returns every file whose degree equals the maximum. When all
// degrees are zero every file ties.
func maxDegree(degrees map[string]int) []string {
	best := -1
	for _, d := range degrees {
		if d > best {
			best = d
		}
	}

	roots := []string{}
	for file, d := range degrees {
		if d == best {
			roots = append(roots, file)
		}
	}
	sort.Strings(roots)
	return roots
}
