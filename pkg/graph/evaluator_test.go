package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluate_SingleIdenticalEdge(t *testing.T) {
	g1 := New(Edge{"a", "b", "E1(+3)"})
	g2 := New(Edge{"JK", "PR", "E1(+3)"})

	sol := NewEvaluator().Evaluate(g1, g2)
	require.NotNil(t, sol)

	assert.Equal(t, 100, sol.Similarity())
	assert.Equal(t, 2, sol.Mapping.Len())
	target, ok := sol.Mapping.Get("a")
	assert.True(t, ok)
	assert.Equal(t, "JK", target)
	target, ok = sol.Mapping.Get("b")
	assert.True(t, ok)
	assert.Equal(t, "PR", target)
}

func TestEvaluate_EmotionIntensityDirection(t *testing.T) {
	ev := NewEvaluator()

	weakPattern := New(Edge{"a", "b", "E1(+1)"})
	strongPattern := New(Edge{"a", "b", "E1(+3)"})
	strongFact := New(Edge{"JK", "PR", "E1(+3)"})
	weakFact := New(Edge{"JK", "PR", "E1(+1)"})

	assert.Equal(t, 1, ev.Evaluate(weakPattern, strongFact).Removed, "stronger candidate should match")
	assert.Equal(t, 0, ev.Evaluate(strongPattern, weakFact).Removed, "weaker candidate should not match")
}

func TestEvaluate_EmotionDirectionSurvivesSwap(t *testing.T) {
	ev := NewEvaluator()

	// The pattern is larger than the candidate, so the candidate is expanded.
	pattern := New(
		Edge{"a", "b", "E1(+1)"},
		Edge{"b", "c", "Lr"},
		Edge{"c", "c", "Pr"},
	)
	strong := New(Edge{"JK", "PR", "E1(+3)"})
	weak := New(Edge{"JK", "PR", "E1(-1)"})

	sol := ev.Evaluate(pattern, strong)
	assert.Equal(t, 1, sol.Removed)
	target, ok := sol.Mapping.Get("a")
	assert.True(t, ok, "mapping must be expressed pattern -> candidate")
	assert.Equal(t, "JK", target)

	assert.Equal(t, 0, ev.Evaluate(pattern, weak).Removed)

	strongerPattern := New(
		Edge{"a", "b", "E1(+3)"},
		Edge{"b", "c", "Lr"},
		Edge{"c", "c", "Pr"},
	)
	weaker := New(Edge{"JK", "PR", "E1(+2)"})
	assert.Equal(t, 0, ev.Evaluate(strongerPattern, weaker).Removed)
}

func TestEvaluate_SwapSymmetry(t *testing.T) {
	ev := NewEvaluator()

	tests := []struct {
		name string
		g1   *Graph
		g2   *Graph
	}{
		{
			name: "equal sizes",
			g1:   New(Edge{"a", "b", "Lr"}, Edge{"b", "c", "Pd"}, Edge{"c", "c", "Pr"}),
			g2:   New(Edge{"EK", "JK", "Lr"}, Edge{"JK", "PR", "Pd"}, Edge{"PR", "PR", "Pr"}),
		},
		{
			name: "different sizes",
			g1:   New(Edge{"a", "b", "Lr"}, Edge{"b", "a", "Ce"}),
			g2:   New(Edge{"EK", "JK", "Lr"}, Edge{"JK", "EK", "Ce"}, Edge{"PR", "PR", "Ad"}, Edge{"TL", "PR", "Hr"}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			forward := ev.Evaluate(tt.g1, tt.g2)
			backward := ev.Evaluate(tt.g2, tt.g1)

			assert.Equal(t, forward.Similarity(), backward.Similarity())
			assert.Equal(t, forward.Mapping.Pairs(), backward.Mapping.Inverted().Pairs())
		})
	}
}

// The first argument is always read as the intensity requirement, so
// swapping emotion graphs of different strength changes the score.
func TestEvaluate_EmotionSwapIsAsymmetric(t *testing.T) {
	ev := NewEvaluator()
	weak := New(Edge{"a", "b", "E1(+1)"})
	strong := New(Edge{"JK", "PR", "E1(+3)"})

	forward := ev.Evaluate(weak, strong)
	backward := ev.Evaluate(strong, weak)

	assert.Equal(t, 100, forward.Similarity())
	assert.Equal(t, 1, forward.Removed)
	assert.Equal(t, 0, backward.Similarity())
	assert.Equal(t, 0, backward.Removed)
}

func TestEvaluate_LevelLimitCanHideBestMapping(t *testing.T) {
	pattern := New(Edge{"a", "b", "Lr"}, Edge{"b", "c", "Pd"})
	context := New(
		Edge{"EK", "JK", "Lr"},
		Edge{"PR", "TL", "Lr"},
		Edge{"TL", "HU", "Pd"},
	)

	capped := (&Evaluator{LevelLimit: 1}).Evaluate(pattern, context)
	assert.Equal(t, 1, capped.Removed, "the cap keeps only the first expansion of a-b")
	assert.Equal(t, 50, capped.Similarity())

	full := (&Evaluator{}).Evaluate(pattern, context)
	assert.Equal(t, 2, full.Removed)
	assert.Equal(t, 100, full.Similarity())
	target, ok := full.Mapping.Get("b")
	require.True(t, ok)
	assert.Equal(t, "TL", target)
}

func TestEvaluate_InvariantsHold(t *testing.T) {
	ev := NewEvaluator()
	pattern := New(
		Edge{"a", "b", "E2(+2)"},
		Edge{"c", "b", "E2(+1)"},
		Edge{"a", "c", "Lc"},
	)
	context := New(
		Edge{"JK", "PR", "E2(+3)"},
		Edge{"EK", "PR", "E2(+2)"},
		Edge{"JK", "EK", "Lc"},
		Edge{"EK", "JK", "Lc"},
		Edge{"PR", "PR", "Pr"},
	)

	sol := ev.Evaluate(pattern, context)
	assertInjective(t, sol.Mapping)
	assert.Equal(t, sol.Total, sol.Removed+sol.Unmatched)
	assert.Equal(t, 3, sol.Removed)
	assert.GreaterOrEqual(t, sol.Similarity(), 0)
	assert.LessOrEqual(t, sol.Similarity(), 100)
}

func TestEvaluate_PartialMatchIsKept(t *testing.T) {
	ev := NewEvaluator()
	pattern := New(
		Edge{"a", "b", "Lr"},
		Edge{"a", "b", "Hr"}, // no counterpart
		Edge{"b", "b", "Pr"},
	)
	context := New(
		Edge{"JK", "PR", "Lr"},
		Edge{"PR", "PR", "Pr"},
		Edge{"EK", "EK", "Ad"},
	)

	sol := ev.Evaluate(pattern, context)
	assert.Equal(t, 2, sol.Removed)
	assert.Equal(t, 1, sol.Unmatched)
	assert.Equal(t, 100, sol.Similarity()) // 2*100/1 clamps to 100
}

func TestEvaluate_NoMatchReturnsRoot(t *testing.T) {
	sol := NewEvaluator().Evaluate(
		New(Edge{"a", "b", "Lr"}),
		New(Edge{"JK", "PR", "Pd"}, Edge{"PR", "JK", "Ce"}),
	)
	require.NotNil(t, sol)
	assert.Equal(t, 0, sol.Removed)
	assert.Equal(t, 0, sol.Similarity())
	assert.Equal(t, 0, sol.Mapping.Len())
}

func TestSolution_SimilarityBounds(t *testing.T) {
	tests := []struct {
		total, removed, expected int
	}{
		{0, 0, 100},
		{4, 0, 0},
		{4, 1, 33},
		{4, 2, 100},
		{4, 4, 100},
		{10, 2, 25},
	}
	for _, tt := range tests {
		s := &Solution{Total: tt.total, Removed: tt.removed, Unmatched: tt.total - tt.removed}
		assert.Equal(t, tt.expected, s.Similarity(), "total=%d removed=%d", tt.total, tt.removed)
	}
}

func TestEvaluate_LevelLimit(t *testing.T) {
	ev := &Evaluator{LevelLimit: 1}
	pattern := New(Edge{"a", "b", "Lr"}, Edge{"c", "d", "Lr"})
	context := New(
		Edge{"JK", "PR", "Lr"},
		Edge{"EK", "HU", "Lr"},
		Edge{"TL", "LA", "Lr"},
	)
	sol := ev.Evaluate(pattern, context)
	assert.Equal(t, 2, sol.Removed)
	assertInjective(t, sol.Mapping)
}

func assertInjective(t *testing.T, m *Mapping[string]) {
	t.Helper()
	seen := make(map[string]string)
	for _, p := range m.Pairs() {
		if prev, ok := seen[p.Target]; ok {
			t.Errorf("target %q mapped from both %q and %q", p.Target, prev, p.Source)
		}
		seen[p.Target] = p.Source
		back, ok := m.Source(p.Target)
		if !ok || back != p.Source {
			t.Errorf("inverse lookup of %q = %q, want %q", p.Target, back, p.Source)
		}
	}
}
