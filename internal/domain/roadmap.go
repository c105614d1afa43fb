// Package domain holds the entities shared by the roadmap, progress,
// assessment, statistics and study-plan packages.
package domain

import "time"

// Position is the layout hint for drawing a node on the roadmap canvas.
type Position struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Node is a knowledge node of a roadmap. Nodes are immutable once the
// roadmap is created.
type Node struct {
	ID             string   `json:"id" yaml:"id"`
	Title          string   `json:"title" yaml:"title"`
	Description    string   `json:"description" yaml:"description"`
	EstimatedHours float64  `json:"estimatedHours" yaml:"estimated_hours"`
	Prerequisites  []string `json:"prerequisites" yaml:"prerequisites"`
	Position       Position `json:"position" yaml:"position"`
}

// Edge is a prerequisite edge: From must be completed before To unlocks.
type Edge struct {
	From string `json:"from"`
	To   string `json:"to"`
	Type string `json:"type"`
}

// EdgePrerequisite is the only edge type a roadmap carries.
const EdgePrerequisite = "prerequisite"

// Roadmap is the prerequisite DAG of one course.
type Roadmap struct {
	ID       string `json:"id"`
	CourseID string `json:"courseId"`
	Title    string `json:"title"`
	Nodes    []Node `json:"nodes"`
}

// Edges derives the prerequisite edges from the node prerequisite sets.
func (r Roadmap) Edges() []Edge {
	var edges []Edge
	for _, n := range r.Nodes {
		for _, p := range n.Prerequisites {
			edges = append(edges, Edge{From: p, To: n.ID, Type: EdgePrerequisite})
		}
	}
	return edges
}

// TotalHours sums the estimated hours of every node.
func (r Roadmap) TotalHours() float64 {
	var total float64
	for _, n := range r.Nodes {
		total += n.EstimatedHours
	}
	return total
}

// Course is a catalogue entry. Preset courses ship with a roadmap; custom
// courses get one from the AI capability, or none if generation failed.
type Course struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	IsPreset    bool      `json:"isPreset"`
	CreatedAt   time.Time `json:"createdAt"`
}
