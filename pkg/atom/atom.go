// Package atom holds the narrative patterns mined from prior stories and
// the index used to retrieve the ones that resemble a character's context.
package atom

import (
	"fmt"
	"slices"

	"github.com/jwebster45206/plotweaver/pkg/condition"
	"github.com/jwebster45206/plotweaver/pkg/graph"
)

// NextAction is an action that followed the pattern in the story it was
// mined from. Performer and Receiver name atom nodes, not characters.
type NextAction struct {
	Action    string `json:"action"`
	Performer string `json:"performer"`
	Receiver  string `json:"receiver,omitempty"`
}

// Atom is an immutable labeled graph over abstract characters ("a", "b", ...).
// Cluster and Connected are bookkeeping from the mining process and play no
// part in matching.
type Atom struct {
	ID          string       `json:"id"`
	Cluster     int          `json:"cluster"`
	Connected   bool         `json:"connected"`
	Edges       []graph.Edge `json:"edges"`
	NextActions []NextAction `json:"next_actions"`
}

// Size is the number of edges.
func (a *Atom) Size() int {
	return len(a.Edges)
}

// Graph builds the matchable graph of the atom.
func (a *Atom) Graph() *graph.Graph {
	return graph.New(a.Edges...)
}

// Nodes returns the abstract characters referenced by the atom's edges.
func (a *Atom) Nodes() []string {
	return a.Graph().Nodes()
}

// Validate checks that every edge carries a known label and that every next
// action names a performer.
func (a *Atom) Validate() error {
	if a.ID == "" {
		return fmt.Errorf("atom id is required")
	}
	if len(a.Edges) == 0 {
		return fmt.Errorf("atom %s has no edges", a.ID)
	}
	for _, e := range a.Edges {
		if e.Source == "" || e.Target == "" {
			return fmt.Errorf("atom %s: edge %s has an empty node", a.ID, e)
		}
		if !validLabel(e.Label) {
			return fmt.Errorf("atom %s: unknown label %q", a.ID, e.Label)
		}
	}
	for _, na := range a.NextActions {
		if na.Action == "" || na.Performer == "" {
			return fmt.Errorf("atom %s: next action needs an action and a performer", a.ID)
		}
	}
	return nil
}

func validLabel(label string) bool {
	if _, n, ok := condition.ParseEmotionLabel(label); ok {
		return n != 0 && n >= -condition.MaxStrength && n <= condition.MaxStrength
	}
	return condition.NewTension(condition.TensionKind(label), condition.SlotA, condition.SlotNone).Validate() == nil
}

// Match is an atom together with its best match against a fact graph.
type Match struct {
	Atom     *Atom
	Solution *graph.Solution
}

// SortMatches orders matches by descending similarity, then atom id.
func SortMatches(ms []Match) {
	slices.SortStableFunc(ms, func(x, y Match) int {
		if d := y.Solution.Similarity() - x.Solution.Similarity(); d != 0 {
			return d
		}
		switch {
		case x.Atom.ID < y.Atom.ID:
			return -1
		case x.Atom.ID > y.Atom.ID:
			return 1
		}
		return 0
	})
}
