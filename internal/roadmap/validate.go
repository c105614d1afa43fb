package roadmap

import (
	"fmt"
	"strings"

	"github.com/p-n-ai/lightup/internal/domain"
)

// Validate performs the structural checks a roadmap must pass before it is
// stored: unique non-empty ids, positive estimated hours, known
// prerequisites, at least one entry point and no cycles. It returns one
// error describing every problem found.
func Validate(nodes []domain.Node) error {
	var errs []string

	if len(nodes) == 0 {
		return fmt.Errorf("roadmap validation failed: roadmap has no nodes")
	}

	ids := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		if n.ID == "" {
			errs = append(errs, fmt.Sprintf("node %q has an empty id", n.Title))
			continue
		}
		if ids[n.ID] {
			errs = append(errs, fmt.Sprintf("duplicate node id: %q", n.ID))
		}
		ids[n.ID] = true
		if n.EstimatedHours <= 0 {
			errs = append(errs, fmt.Sprintf("node %q: estimated hours must be > 0, got %g", n.ID, n.EstimatedHours))
		}
	}

	hasRoot := false
	for _, n := range nodes {
		if len(n.Prerequisites) == 0 {
			hasRoot = true
		}
		for _, p := range n.Prerequisites {
			switch {
			case p == n.ID:
				errs = append(errs, fmt.Sprintf("node %q lists itself as a prerequisite", n.ID))
			case !ids[p]:
				errs = append(errs, fmt.Sprintf("node %q references nonexistent prerequisite %q", n.ID, p))
			}
		}
	}
	if !hasRoot {
		errs = append(errs, "no entry nodes found (at least one node must have no prerequisites)")
	}

	if cycle := cycleNodes(nodes); len(cycle) > 0 {
		errs = append(errs, fmt.Sprintf("cycle detected involving nodes: %s", strings.Join(cycle, ", ")))
	}

	if len(errs) > 0 {
		return fmt.Errorf("roadmap validation failed:\n  %s", strings.Join(errs, "\n  "))
	}
	return nil
}

// cycleNodes runs Kahn's algorithm over the known edges and returns the ids
// left with a positive in-degree, which are exactly the nodes on or behind a
// cycle.
func cycleNodes(nodes []domain.Node) []string {
	g := NewGraph(nodes)

	inDegree := make(map[string]int, len(nodes))
	for _, n := range nodes {
		for _, p := range g.Prerequisites(n.ID) {
			if g.Has(p) {
				inDegree[n.ID]++
			}
		}
	}

	var queue []string
	for _, n := range nodes {
		if inDegree[n.ID] == 0 {
			queue = append(queue, n.ID)
		}
	}

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, dep := range g.Dependents(id) {
			inDegree[dep]--
			if inDegree[dep] == 0 {
				queue = append(queue, dep)
			}
		}
	}

	var stuck []string
	for _, n := range nodes {
		if inDegree[n.ID] > 0 {
			stuck = append(stuck, n.ID)
		}
	}
	return stuck
}
