// Package supervisor implements the Supervisor & Dependency Graph
// validator (spec §4.5): cycle/self-dependency errors and
// coupled-rejection/broken-dependency/discuss-blocking-approval warnings
// over a draft's artifact graph.
package supervisor

import (
	"fmt"
	"sort"

	"github.com/michaelhunley/TrustedAutonomy-sub000/internal/types"
)

// CyclicDependency is a validation error naming the cycle's path.
type CyclicDependency struct{ Cycle []string }

func (e CyclicDependency) Error() string { return fmt.Sprintf("cyclic dependency: %v", e.Cycle) }

// SelfDependency is a validation error for a node depending on itself.
type SelfDependency struct{ URI string }

func (e SelfDependency) Error() string { return fmt.Sprintf("self dependency: %s", e.URI) }

// CoupledRejection is a warning: artifact is Rejected but something
// non-rejected depends on it.
type CoupledRejection struct {
	Artifact    string
	RequiredBy  []string
}

func (w CoupledRejection) String() string {
	return fmt.Sprintf("%s is rejected but required by %v", w.Artifact, w.RequiredBy)
}

// BrokenDependency is a warning: artifact is Approved but rests (directly
// or transitively) on a Rejected artifact.
type BrokenDependency struct {
	Artifact         string
	DependsOnRejected []string
}

func (w BrokenDependency) String() string {
	return fmt.Sprintf("%s is approved but depends on rejected %v", w.Artifact, w.DependsOnRejected)
}

// DiscussBlockingApproval is a warning: artifact is Discuss while Approved
// artifacts depend on it.
type DiscussBlockingApproval struct {
	Artifact string
	Blocking []string
}

func (w DiscussBlockingApproval) String() string {
	return fmt.Sprintf("%s is under discussion but blocks approved %v", w.Artifact, w.Blocking)
}

// Result is the outcome of validating an artifact graph (spec §4.5).
type Result struct {
	Valid    bool
	Warnings []string
	Errors   []string
}

// graph is the directed dependency graph keyed by URI, with DependsOn and
// its symmetric inverse DependedBy maintained as two edge maps.
type graph struct {
	dependsOn  map[string]map[string]bool
	dependedBy map[string]map[string]bool
	nodes      []string
}

func buildGraph(artifacts []types.Artifact) *graph {
	g := &graph{dependsOn: map[string]map[string]bool{}, dependedBy: map[string]map[string]bool{}}
	ensure := func(uri string) {
		if _, ok := g.dependsOn[uri]; !ok {
			g.dependsOn[uri] = map[string]bool{}
			g.dependedBy[uri] = map[string]bool{}
			g.nodes = append(g.nodes, uri)
		}
	}
	for _, a := range artifacts {
		ensure(a.URI)
	}
	addEdge := func(from, to string) {
		ensure(from)
		ensure(to)
		g.dependsOn[from][to] = true
		g.dependedBy[to][from] = true
	}
	for _, a := range artifacts {
		for _, dep := range a.Dependencies {
			switch dep.Kind {
			case types.DependsOn:
				addEdge(a.URI, dep.TargetURI)
			case types.DependedBy:
				// DependedBy(A->B) is stored as DependsOn(B->A).
				addEdge(dep.TargetURI, a.URI)
			}
		}
	}
	sort.Strings(g.nodes)
	return g
}

// detectCycles runs DFS with a recursion stack; any back-edge yields the
// path slice from the entry point back to itself (spec §4.5).
func (g *graph) detectCycles() [][]string {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := map[string]int{}
	var stack []string
	var cycles [][]string

	var visit func(node string)
	visit = func(node string) {
		color[node] = gray
		stack = append(stack, node)
		var deps []string
		for d := range g.dependsOn[node] {
			deps = append(deps, d)
		}
		sort.Strings(deps)
		for _, dep := range deps {
			switch color[dep] {
			case white:
				visit(dep)
			case gray:
				idx := indexOf(stack, dep)
				cycle := append(append([]string{}, stack[idx:]...), dep)
				cycles = append(cycles, cycle)
			}
		}
		stack = stack[:len(stack)-1]
		color[node] = black
	}

	for _, n := range g.nodes {
		if color[n] == white {
			visit(n)
		}
	}
	return cycles
}

func indexOf(s []string, v string) int {
	for i, x := range s {
		if x == v {
			return i
		}
	}
	return -1
}

// Validate constructs the dependency graph from artifacts and returns a
// ValidationResult per spec §4.5.
func Validate(artifacts []types.Artifact) Result {
	g := buildGraph(artifacts)
	result := Result{Valid: true}

	for _, uri := range g.nodes {
		if g.dependsOn[uri][uri] {
			result.Errors = append(result.Errors, SelfDependency{URI: uri}.Error())
			result.Valid = false
		}
	}
	for _, cycle := range g.detectCycles() {
		hasSelf := len(cycle) == 2 && cycle[0] == cycle[1]
		if hasSelf {
			continue // already reported as SelfDependency
		}
		result.Errors = append(result.Errors, CyclicDependency{Cycle: cycle}.Error())
		result.Valid = false
	}

	disposition := map[string]types.Disposition{}
	for _, a := range artifacts {
		disposition[a.URI] = a.Disposition
	}

	for _, a := range artifacts {
		switch a.Disposition {
		case types.DispositionRejected:
			var requiredBy []string
			for dependent := range g.dependedBy[a.URI] {
				if d := disposition[dependent]; d == types.DispositionApproved || d == types.DispositionDiscuss || d == types.DispositionPending {
					requiredBy = append(requiredBy, dependent)
				}
			}
			if len(requiredBy) > 0 {
				sort.Strings(requiredBy)
				result.Warnings = append(result.Warnings, CoupledRejection{Artifact: a.URI, RequiredBy: requiredBy}.String())
			}
		case types.DispositionApproved:
			var rejected []string
			seen := map[string]bool{}
			var walk func(string)
			walk = func(node string) {
				for dep := range g.dependsOn[node] {
					if seen[dep] {
						continue
					}
					seen[dep] = true
					if disposition[dep] == types.DispositionRejected {
						rejected = append(rejected, dep)
					}
					walk(dep)
				}
			}
			walk(a.URI)
			if len(rejected) > 0 {
				sort.Strings(rejected)
				result.Warnings = append(result.Warnings, BrokenDependency{Artifact: a.URI, DependsOnRejected: rejected}.String())
			}
		case types.DispositionDiscuss:
			var blocking []string
			for dependent := range g.dependedBy[a.URI] {
				if disposition[dependent] == types.DispositionApproved {
					blocking = append(blocking, dependent)
				}
			}
			if len(blocking) > 0 {
				sort.Strings(blocking)
				result.Warnings = append(result.Warnings, DiscussBlockingApproval{Artifact: a.URI, Blocking: blocking}.String())
			}
		}
	}

	return result
}
