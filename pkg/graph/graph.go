// Package graph implements the labeled directed graphs used to compare a
// character's context with stored narrative patterns, and the approximate
// subgraph matcher that scores them.
package graph

import (
	"fmt"
	"slices"
	"strings"
)

// Edge is a directed, labeled connection between two nodes. A self-loop
// (Source == Target) carries a single-node fact.
type Edge struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Label  string `json:"label"`
}

func (e Edge) String() string {
	return fmt.Sprintf("%s-[%s]->%s", e.Source, e.Label, e.Target)
}

// Graph is an ordered multiset of edges. Nodes are implied by the edges.
type Graph struct {
	edges []Edge
}

// New creates a graph holding the given edges in order.
func New(edges ...Edge) *Graph {
	return &Graph{edges: slices.Clone(edges)}
}

// Add appends an edge.
func (g *Graph) Add(source, target, label string) {
	g.edges = append(g.edges, Edge{Source: source, Target: target, Label: label})
}

// Len returns the number of edges. A nil graph is empty.
func (g *Graph) Len() int {
	if g == nil {
		return 0
	}
	return len(g.edges)
}

// Edges returns a copy of the edge list.
func (g *Graph) Edges() []Edge {
	if g == nil {
		return nil
	}
	return slices.Clone(g.edges)
}

// Nodes returns the sorted set of nodes referenced by any edge.
func (g *Graph) Nodes() []string {
	if g == nil {
		return nil
	}
	seen := make(map[string]struct{})
	for _, e := range g.edges {
		seen[e.Source] = struct{}{}
		seen[e.Target] = struct{}{}
	}
	nodes := make([]string, 0, len(seen))
	for n := range seen {
		nodes = append(nodes, n)
	}
	slices.Sort(nodes)
	return nodes
}

// Clone returns an independent copy.
func (g *Graph) Clone() *Graph {
	if g == nil {
		return &Graph{}
	}
	return &Graph{edges: slices.Clone(g.edges)}
}

// removeAt drops the edge at index i, preserving order.
func (g *Graph) removeAt(i int) {
	g.edges = slices.Delete(g.edges, i, i+1)
}

func (g *Graph) String() string {
	parts := make([]string, 0, g.Len())
	for _, e := range g.Edges() {
		parts = append(parts, e.String())
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
