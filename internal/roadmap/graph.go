// Package roadmap indexes a roadmap's prerequisite DAG and loads preset
// roadmaps from YAML.
package roadmap

import (
	"log/slog"
	"slices"

	"github.com/p-n-ai/lightup/internal/domain"
)

// Graph holds the prerequisite DAG of one roadmap with precomputed indices.
// Prerequisites that reference unknown nodes are kept, so the dependent can
// never be satisfied.
type Graph struct {
	nodes      []domain.Node
	byID       map[string]int
	prereqs    map[string][]string
	dependents map[string][]string
	roots      []string
}

// NewGraph builds the indices for nodes. Duplicate prerequisite ids are
// collapsed; the graph is not checked for cycles.
func NewGraph(nodes []domain.Node) *Graph {
	g := &Graph{
		nodes:      slices.Clone(nodes),
		byID:       make(map[string]int, len(nodes)),
		prereqs:    make(map[string][]string, len(nodes)),
		dependents: make(map[string][]string),
	}

	for i, n := range g.nodes {
		g.byID[n.ID] = i
	}

	for _, n := range g.nodes {
		seen := make(map[string]bool, len(n.Prerequisites))
		var prereqs []string
		for _, p := range n.Prerequisites {
			if seen[p] {
				continue
			}
			seen[p] = true
			prereqs = append(prereqs, p)
			g.dependents[p] = append(g.dependents[p], n.ID)

			if _, ok := g.byID[p]; !ok {
				slog.Warn("node references unknown prerequisite, it will never unlock",
					"node_id", n.ID,
					"prerequisite", p,
				)
			}
		}
		g.prereqs[n.ID] = prereqs
		if len(prereqs) == 0 {
			g.roots = append(g.roots, n.ID)
		}
	}

	return g
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// Node returns a node by ID.
func (g *Graph) Node(id string) (domain.Node, bool) {
	i, ok := g.byID[id]
	if !ok {
		return domain.Node{}, false
	}
	return g.nodes[i], true
}

// Has reports whether id is a node of the roadmap.
func (g *Graph) Has(id string) bool {
	_, ok := g.byID[id]
	return ok
}

// Nodes returns all nodes in roadmap order.
func (g *Graph) Nodes() []domain.Node {
	return slices.Clone(g.nodes)
}

// Roots returns the entry points: nodes with no prerequisites.
func (g *Graph) Roots() []string {
	return slices.Clone(g.roots)
}

// Prerequisites returns the distinct prerequisite ids of a node.
func (g *Graph) Prerequisites(id string) []string {
	return slices.Clone(g.prereqs[id])
}

// Dependents returns the nodes that list id as a direct prerequisite.
func (g *Graph) Dependents(id string) []string {
	return slices.Clone(g.dependents[id])
}

// Satisfied reports whether every prerequisite of id is in completed.
// Unknown nodes are never satisfied.
func (g *Graph) Satisfied(id string, completed map[string]bool) bool {
	if !g.Has(id) {
		return false
	}
	for _, p := range g.prereqs[id] {
		if !completed[p] {
			return false
		}
	}
	return true
}

// Ready returns, in roadmap order, every node whose prerequisites are all in
// completed. Entry points are always ready.
func (g *Graph) Ready(completed map[string]bool) []string {
	var ready []string
	for _, n := range g.nodes {
		if g.Satisfied(n.ID, completed) {
			ready = append(ready, n.ID)
		}
	}
	return ready
}
