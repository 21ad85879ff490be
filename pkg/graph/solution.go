package graph

import "fmt"

// MaxSimilarity is the score of a complete match.
const MaxSimilarity = 100

// Solution is one partial match between two graphs: the accumulated node
// mapping plus the edges of the larger graph that are still unmatched.
// Removed + Unmatched == Total holds for every solution handed to callers.
type Solution struct {
	Remaining *Graph
	Mapping   *Mapping[string]
	Total     int
	Removed   int
	Unmatched int
	Level     int
}

func newRootSolution(large *Graph) *Solution {
	return &Solution{
		Remaining: large.Clone(),
		Mapping:   NewMapping[string](),
		Total:     large.Len(),
		Unmatched: large.Len(),
	}
}

// Similarity is Removed*100/(Total-Removed), clamped to [0,100]. A solution
// with nothing left unmatched scores 100.
func (s *Solution) Similarity() int {
	den := s.Total - s.Removed
	if den <= 0 {
		return MaxSimilarity
	}
	sim := s.Removed * MaxSimilarity / den
	if sim > MaxSimilarity {
		return MaxSimilarity
	}
	return sim
}

// Clone returns a deep copy.
func (s *Solution) Clone() *Solution {
	return &Solution{
		Remaining: s.Remaining.Clone(),
		Mapping:   s.Mapping.Clone(),
		Total:     s.Total,
		Removed:   s.Removed,
		Unmatched: s.Unmatched,
		Level:     s.Level,
	}
}

// consume marks the remaining edge at index i as matched.
func (s *Solution) consume(i int) {
	s.Remaining.removeAt(i)
	s.Removed++
	s.Unmatched--
}

func (s *Solution) String() string {
	return fmt.Sprintf("solution{level=%d removed=%d/%d similarity=%d mapping=%v}",
		s.Level, s.Removed, s.Total, s.Similarity(), s.Mapping.Pairs())
}
