package atom

import (
	"fmt"
	"slices"

	"github.com/jwebster45206/plotweaver/pkg/graph"
)

// Cell is a bucket of atoms sharing a coarse signature.
type Cell interface {
	// Size is the edge count shared by every atom in the cell.
	Size() int
	Atoms() []*Atom
	// Match returns every atom whose similarity to facts clears the
	// threshold the cell was built with, best first.
	Match(facts *graph.Graph) []Match
}

// Repository exposes the stored atoms as an ordered collection of cells.
type Repository interface {
	Cells() []Cell
}

// Index partitions atoms by edge count. It is read-only once built and safe
// for concurrent readers.
type Index struct {
	cells         []*cell
	byID          map[string]*Atom
	minSimilarity int
}

var _ Repository = (*Index)(nil)

// NewIndex validates atoms and buckets them by size. minSimilarity is the
// lowest score, in [0,100], for which a match is reported.
func NewIndex(atoms []*Atom, minSimilarity int, ev *graph.Evaluator) (*Index, error) {
	if minSimilarity < 0 || minSimilarity > graph.MaxSimilarity {
		return nil, fmt.Errorf("min similarity %d out of range [0,100]", minSimilarity)
	}
	if ev == nil {
		ev = graph.NewEvaluator()
	}
	ix := &Index{byID: make(map[string]*Atom, len(atoms)), minSimilarity: minSimilarity}
	bySize := make(map[int]*cell)
	for _, a := range atoms {
		if err := a.Validate(); err != nil {
			return nil, err
		}
		if _, dup := ix.byID[a.ID]; dup {
			return nil, fmt.Errorf("duplicate atom id %q", a.ID)
		}
		ix.byID[a.ID] = a
		c, ok := bySize[a.Size()]
		if !ok {
			c = &cell{size: a.Size(), evaluator: ev, minSimilarity: minSimilarity}
			bySize[a.Size()] = c
			ix.cells = append(ix.cells, c)
		}
		c.atoms = append(c.atoms, a)
	}
	slices.SortFunc(ix.cells, func(x, y *cell) int { return x.size - y.size })
	for _, c := range ix.cells {
		slices.SortFunc(c.atoms, func(x, y *Atom) int {
			switch {
			case x.ID < y.ID:
				return -1
			case x.ID > y.ID:
				return 1
			}
			return 0
		})
	}
	return ix, nil
}

// Cells returns the cells ordered by size.
func (ix *Index) Cells() []Cell {
	out := make([]Cell, len(ix.cells))
	for i, c := range ix.cells {
		out[i] = c
	}
	return out
}

// Atom looks an atom up by id.
func (ix *Index) Atom(id string) (*Atom, bool) {
	a, ok := ix.byID[id]
	return a, ok
}

// Len is the number of atoms.
func (ix *Index) Len() int {
	return len(ix.byID)
}

// MinSimilarity is the threshold the index was built with.
func (ix *Index) MinSimilarity() int {
	return ix.minSimilarity
}

// All returns every atom, ordered by cell then id.
func (ix *Index) All() []*Atom {
	var out []*Atom
	for _, c := range ix.cells {
		out = append(out, c.atoms...)
	}
	return out
}

// MatchAll queries every cell of repo and merges the results, best first.
func MatchAll(repo Repository, facts *graph.Graph) []Match {
	var out []Match
	for _, c := range repo.Cells() {
		out = append(out, c.Match(facts)...)
	}
	SortMatches(out)
	return out
}

type cell struct {
	size          int
	atoms         []*Atom
	evaluator     *graph.Evaluator
	minSimilarity int
}

func (c *cell) Size() int { return c.size }

func (c *cell) Atoms() []*Atom { return slices.Clone(c.atoms) }

func (c *cell) Match(facts *graph.Graph) []Match {
	if facts.Len() == 0 || upperBound(c.size, facts.Len()) < c.minSimilarity {
		return nil
	}
	var out []Match
	for _, a := range c.atoms {
		s := c.evaluator.Evaluate(a.Graph(), facts)
		if s.Removed == 0 || s.Similarity() < c.minSimilarity {
			continue
		}
		out = append(out, Match{Atom: a, Solution: s})
	}
	SortMatches(out)
	return out
}

// upperBound is the best similarity any pair of graphs with n and m edges
// can reach.
func upperBound(n, m int) int {
	lo, hi := min(n, m), max(n, m)
	s := &graph.Solution{Total: hi, Removed: lo, Unmatched: hi - lo}
	return s.Similarity()
}
