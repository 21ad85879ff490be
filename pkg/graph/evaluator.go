package graph

import "github.com/jwebster45206/plotweaver/pkg/condition"

// DefaultLevelLimit caps the partial solutions kept per expansion level.
const DefaultLevelLimit = 512

// Evaluator finds the node mapping between two graphs that maximizes the
// number of label-compatible matched edges.
type Evaluator struct {
	// LevelLimit bounds the number of solutions per level; zero means no limit.
	LevelLimit int
}

// NewEvaluator returns an evaluator with the default level limit.
func NewEvaluator() *Evaluator {
	return &Evaluator{LevelLimit: DefaultLevelLimit}
}

// Evaluate matches pattern against candidate. Edges of the smaller graph
// are expanded against the larger one; when that means expanding the
// candidate, the returned mapping is inverted so it always maps pattern
// nodes to candidate nodes. Emotion labels are compared with the pattern
// side as the requirement.
//
// The result is never nil: when nothing matches, the root solution
// (no mapping, nothing removed) is returned.
func (ev *Evaluator) Evaluate(pattern, candidate *Graph) *Solution {
	small, large := pattern, candidate
	inverted := false
	if pattern.Len() > candidate.Len() {
		small, large = candidate, pattern
		inverted = true
	}

	bundle := [][]*Solution{{newRootSolution(large)}}
	for _, e := range small.Edges() {
		current := bundle[len(bundle)-1]
		next := ev.expand(current, e, inverted)
		if len(next) > 0 {
			bundle = append(bundle, next)
		}
	}

	best := bundle[0][0]
	for _, level := range bundle {
		for _, s := range level {
			// Ties go to the deeper solution.
			if s.Similarity() > best.Similarity() ||
				(s.Similarity() == best.Similarity() && s.Removed > best.Removed) {
				best = s
			}
		}
	}

	if inverted {
		best = best.Clone()
		best.Mapping = best.Mapping.Inverted()
	}
	return best
}

func (ev *Evaluator) expand(current []*Solution, e Edge, inverted bool) []*Solution {
	var next []*Solution
	for _, s := range current {
		for i, c := range s.Remaining.edges {
			if !compatible(e.Label, c.Label, inverted) {
				continue
			}
			added, ok := s.Mapping.Extend(
				Pair[string]{Source: e.Source, Target: c.Source},
				Pair[string]{Source: e.Target, Target: c.Target},
			)
			if !ok {
				continue
			}
			clone := s.Clone()
			for _, p := range added {
				clone.Mapping.Put(p.Source, p.Target)
			}
			clone.consume(i)
			clone.Level = s.Level + 1
			next = append(next, clone)
			if ev.LevelLimit > 0 && len(next) >= ev.LevelLimit {
				return next
			}
		}
	}
	return next
}

// compatible applies the emotion intensity rule with the pattern on the
// correct side: when the graphs were swapped, the expanded edge belongs to
// the candidate and the scanned edge to the pattern.
func compatible(expanded, scanned string, inverted bool) bool {
	if inverted {
		return condition.Compatible(scanned, expanded)
	}
	return condition.Compatible(expanded, scanned)
}
