package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"

	"github.com/jwebster45206/plotweaver/pkg/action"
	"github.com/jwebster45206/plotweaver/pkg/atom"
	"github.com/jwebster45206/plotweaver/pkg/character"
	"github.com/jwebster45206/plotweaver/pkg/condition"
	"github.com/jwebster45206/plotweaver/pkg/graph"
	"github.com/jwebster45206/plotweaver/pkg/guideline"
	"github.com/jwebster45206/plotweaver/pkg/story"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func testCatalog(t *testing.T) *action.Catalog {
	t.Helper()
	a, b := condition.SlotA, condition.SlotB
	c, err := action.NewCatalog([]action.Definition{
		{
			Name: "attack", Kind: action.Simple, Characters: 2,
			Postconditions: []condition.Condition{
				condition.NewEmotion(condition.Brotherly, -3, b, a),
				condition.NewTension(condition.HealthAtRisk, b, a),
			},
		},
		{
			Name: "greet", Kind: action.Social, Characters: 2,
			Postconditions: []condition.Condition{condition.NewEmotion(condition.Brotherly, 1, b, a)},
		},
		{
			Name: "die", Kind: action.Simple, Characters: 1,
			Postconditions: []condition.Condition{condition.NewTension(condition.ActorDead, a, condition.SlotNone)},
		},
		{
			Name: "capture", Kind: action.Simple, Characters: 2,
			Postconditions: []condition.Condition{condition.NewTension(condition.Prisoner, b, a)},
		},
		{
			Name: "free", Kind: action.Simple, Characters: 2,
			Preconditions: []condition.Condition{condition.NewTension(condition.Prisoner, b, a)},
			Postconditions: []condition.Condition{
				{Kind: condition.Tension, Tension: condition.Prisoner, A: b, B: a, Deactivates: true},
				condition.NewEmotion(condition.Gratitude, 3, b, a),
			},
		},
	})
	require.NoError(t, err)
	return c
}

func hatredIndex(t *testing.T, receiverNode string) *atom.Index {
	t.Helper()
	ix, err := atom.NewIndex([]*atom.Atom{{
		ID:          "hatred",
		Edges:       []graph.Edge{{Source: "a", Target: "b", Label: "E1(-2)"}},
		NextActions: []atom.NextAction{{Action: "attack", Performer: "a", Receiver: receiverNode}},
	}}, 50, nil)
	require.NoError(t, err)
	return ix
}

func hate(from, to character.Character) condition.Instantiated {
	return condition.Instantiated{
		Condition: condition.NewEmotion(condition.Brotherly, -3, condition.SlotA, condition.SlotB),
		From:      from,
		To:        to,
	}
}

func like(from, to character.Character) condition.Instantiated {
	return condition.Instantiated{
		Condition: condition.NewEmotion(condition.Brotherly, 1, condition.SlotA, condition.SlotB),
		From:      from,
		To:        to,
	}
}

func newEngine(t *testing.T, atoms atom.Repository, mutate func(*Policy)) *Engine {
	t.Helper()
	p := DefaultPolicy()
	if mutate != nil {
		mutate(&p)
	}
	e, err := New(Deps{Actions: testCatalog(t), Atoms: atoms, Logger: quiet}, p)
	require.NoError(t, err)
	return e
}

// stubRepo always proposes greet(PR, PC) for any non-empty context.
type stubRepo struct {
	disabled bool
	action   string

	mu      sync.Mutex
	queried []int
}

func (r *stubRepo) Cells() []atom.Cell {
	return []atom.Cell{stubCell{r}}
}

type stubCell struct{ r *stubRepo }

func (c stubCell) Size() int { return 1 }

func (c stubCell) Atoms() []*atom.Atom { return []*atom.Atom{c.atom()} }

func (c stubCell) atom() *atom.Atom {
	name := c.r.action
	if name == "" {
		name = "greet"
	}
	return &atom.Atom{
		ID:          "stub",
		Edges:       []graph.Edge{{Source: "a", Target: "b", Label: "E1(+1)"}},
		NextActions: []atom.NextAction{{Action: name, Performer: "a", Receiver: "b"}},
	}
}

func (c stubCell) Match(facts *graph.Graph) []atom.Match {
	c.r.mu.Lock()
	c.r.queried = append(c.r.queried, facts.Len())
	c.r.mu.Unlock()
	if c.r.disabled || facts.Len() == 0 {
		return nil
	}
	m := graph.NewMapping[string]()
	m.Put("a", "PR")
	m.Put("b", "PC")
	return []atom.Match{{Atom: c.atom(), Solution: &graph.Solution{Mapping: m, Total: 1, Removed: 1}}}
}

func courtStory() *story.Story {
	st := story.New(character.Palace)
	st.Seed(character.Princess, character.Palace, like(character.Prince, character.Princess))
	return st
}

func TestEngage_StopsAtMaxEngagementActions(t *testing.T) {
	e := newEngine(t, &stubRepo{}, func(p *Policy) { p.MaxEngagementActions = 3 })
	st := courtStory()
	st.BeginIteration()

	n, err := e.Engage(st)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Len(t, st.Actions, 3)
	assert.Equal(t, 3, st.Current().Committed)
	assert.Zero(t, st.Impasses)
	for _, a := range st.Actions {
		assert.Equal(t, "greet", a.Action.Name)
		assert.Equal(t, character.Princess, a.Performer)
		assert.Equal(t, character.Prince, a.Receiver)
	}
}

func TestEngage_RespectsStoryActionLimit(t *testing.T) {
	e := newEngine(t, &stubRepo{}, func(p *Policy) { p.MaxStoryActions = 2 })
	st := courtStory()

	n, err := e.Engage(st)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = e.Reflect(st)
	require.NoError(t, err)
	assert.True(t, st.Ended())
}

func TestEngage_CommitsMatchedAction(t *testing.T) {
	e := newEngine(t, hatredIndex(t, "b"), nil)
	st := story.New(character.City)
	st.Seed(character.Enemy, character.City, hate(character.Enemy, character.Warrior))

	n, err := e.Engage(st)
	require.NoError(t, err)
	// The warrior's fresh context matches the same atom and strikes back;
	// after that both contexts are too large for a one-edge atom.
	require.Equal(t, 2, n)
	first, second := st.Actions[0], st.Actions[1]
	assert.Equal(t, "attack", first.Action.Name)
	assert.Equal(t, character.Enemy, first.Performer)
	assert.Equal(t, character.Warrior, first.Receiver)
	assert.Equal(t, character.Warrior, second.Performer)
	assert.Equal(t, character.Enemy, second.Receiver)
}

func TestEngage_PartialInstantiation(t *testing.T) {
	e := newEngine(t, hatredIndex(t, "c"), nil)
	st := story.New(character.City)
	st.Seed(character.Enemy, character.City, hate(character.Enemy, character.Warrior))
	st.Seed(character.Priest, character.City)

	n, err := e.Engage(st)
	require.NoError(t, err)
	require.Positive(t, n)
	assert.Equal(t, character.Warrior, st.Actions[0].Receiver,
		"an unmapped role is filled from the owner's acquaintances")
}

func TestEngage_GuidelinesFilterCandidates(t *testing.T) {
	e := newEngine(t, hatredIndex(t, "b"), nil)
	st := story.New(character.City)
	st.Seed(character.Enemy, character.City, hate(character.Enemy, character.Warrior))
	require.NoError(t, st.Guidelines.Add(guideline.TensionDecrease))

	n, err := e.Engage(st)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, 1, st.Impasses)
	assert.Equal(t, 1, st.Current().Impasses)
}

func TestEngage_UnknownActionIsConfigurationFault(t *testing.T) {
	e := newEngine(t, &stubRepo{action: "dance"}, nil)
	st := courtStory()

	_, err := e.Engage(st)
	assert.True(t, errors.Is(err, story.ErrConfiguration))
	assert.False(t, story.Recoverable(err))
}

func TestEngage_ImpasseResetsOnSuccess(t *testing.T) {
	repo := &stubRepo{disabled: true}
	e := newEngine(t, repo, nil)
	st := courtStory()

	res, err := e.Step(st)
	require.NoError(t, err)
	assert.True(t, res.Impasse)
	assert.Equal(t, 1, st.Impasses)

	repo.disabled = false
	res, err = e.Step(st)
	require.NoError(t, err)
	assert.False(t, res.Impasse)
	assert.Zero(t, st.Impasses)
	assert.Equal(t, 1, st.TotalImpasses)
}

func owners(cands []candidate) []character.Character {
	var out []character.Character
	for _, c := range cands {
		if !slices.Contains(out, c.owner.Character) {
			out = append(out, c.owner.Character)
		}
	}
	return out
}

func TestCandidates_RepresentativeContexts(t *testing.T) {
	newStory := func() *story.Story {
		st := story.New(character.City)
		st.Seed(character.Enemy, character.City,
			hate(character.Enemy, character.Warrior),
			like(character.Enemy, character.Priest),
			like(character.Enemy, character.Prince),
			like(character.Enemy, character.Farmer),
		)
		st.Seed(character.Warrior, character.City, hate(character.Enemy, character.Warrior))
		return st
	}

	tests := []struct {
		name        string
		filter      bool
		wantQueried []int
		wantOwners  []character.Character
	}{
		{"small context skipped", true, []int{4}, []character.Character{character.Enemy}},
		{"filter off", false, []int{4, 1}, []character.Character{character.Enemy, character.Warrior}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &stubRepo{}
			e := newEngine(t, repo, func(p *Policy) {
				p.RepresentativeContexts = tt.filter
				p.RepresentativeRatio = 0.5
			})
			cands, err := e.candidates(newStory())
			require.NoError(t, err)
			assert.ElementsMatch(t, tt.wantQueried, repo.queried)
			assert.ElementsMatch(t, tt.wantOwners, owners(cands))
		})
	}
}

func TestCandidates_DeadLookback(t *testing.T) {
	e := newEngine(t, &stubRepo{}, func(p *Policy) {
		p.DeadLookback = 2
		p.RepresentativeContexts = false
	})
	st := story.New(character.City)
	st.Seed(character.Warrior, character.City, like(character.Enemy, character.Warrior))
	require.True(t, st.Cast[character.Warrior].Kill(0))

	filler, err := action.Instantiate(testCatalog(t), "greet", character.Prince, character.Princess)
	require.NoError(t, err)

	for year := 0; year <= 2; year++ {
		cands, err := e.candidates(st)
		require.NoError(t, err)
		assert.Equal(t, []character.Character{character.Warrior}, owners(cands), "year %d", year)
		st.Actions = append(st.Actions, filler)
	}

	require.Equal(t, 3, st.Year())
	assert.Empty(t, e.active(st))
	cands, err := e.candidates(st)
	require.NoError(t, err)
	assert.Empty(t, cands, "dead for longer than the lookback")

	st.Cast[character.Warrior].Vampire = true
	cands, err = e.candidates(st)
	require.NoError(t, err)
	assert.Equal(t, []character.Character{character.Warrior}, owners(cands), "vampires stay active")
}

func TestRun_EndsAfterRepeatedImpasses(t *testing.T) {
	e := newEngine(t, &stubRepo{disabled: true}, func(p *Policy) { p.MaxImpasses = 3 })
	st := courtStory()

	results, err := e.Run(context.Background(), st)
	require.NoError(t, err)
	require.Len(t, results, 4)
	assert.True(t, results[3].Ended)
	assert.False(t, results[2].Ended)
	assert.Equal(t, 4, st.Totals().Impasses)
	assert.Contains(t, st.Guidelines.Names(), guideline.EndOfStory)

	_, err = e.Step(st)
	assert.True(t, errors.Is(err, story.ErrStoryEnded))
	_, err = e.Engage(st)
	assert.True(t, errors.Is(err, story.ErrStoryEnded))
}

func TestRun_HonorsContext(t *testing.T) {
	e := newEngine(t, &stubRepo{}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := e.Run(ctx, courtStory())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, results)
}

func TestReflect_EndsWhenEveryoneIsDead(t *testing.T) {
	e := newEngine(t, &stubRepo{}, nil)
	st := story.New(character.City)
	st.Seed(character.Warrior, character.City)
	st.Seed(character.Enemy, character.City)

	for _, c := range []character.Character{character.Warrior, character.Enemy} {
		a, err := action.Instantiate(testCatalog(t), "die", c, character.None)
		require.NoError(t, err)
		require.NoError(t, e.Pipeline().Commit(st, a))
	}
	require.False(t, st.Ended())

	_, err := e.Reflect(st)
	require.NoError(t, err)
	assert.True(t, st.Ended())
	assert.Contains(t, st.Guidelines.Names(), guideline.EndOfStory)
	assert.Less(t, st.Year(), e.Policy().MaxStoryActions)
}

func TestReflect_Retune(t *testing.T) {
	tests := []struct {
		name    string
		history []int
		want    guideline.Tendency
	}{
		{"rising", []int{1, 2}, guideline.Increase},
		{"no history", nil, guideline.Increase},
		{"climax in window", []int{1, 4, 2}, guideline.Decrease},
		{"after climax", []int{4, 3, 2, 1}, guideline.Decrease},
		{"resolved", []int{4, 3, 2, 1, 0}, guideline.Neutral},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEngine(t, &stubRepo{}, nil)
			st := courtStory()
			st.TensionHistory = tt.history

			_, err := e.Reflect(st)
			require.NoError(t, err)
			assert.False(t, st.Ended())
			assert.Equal(t, tt.want, st.Guidelines.Tendency)
		})
	}
}

func TestReflect_ForbidsNormBreakingAfterABreak(t *testing.T) {
	e := newEngine(t, &stubRepo{}, nil)
	st := courtStory()
	st.NormBreaks = []int{0}

	_, err := e.Reflect(st)
	require.NoError(t, err)
	assert.Equal(t, guideline.ForbidNorms, st.Guidelines.Norms)

	st.NormBreaks = nil
	_, err = e.Reflect(st)
	require.NoError(t, err)
	assert.Equal(t, guideline.AnyNorm, st.Guidelines.Norms)
}

func TestReflect_RepairsMissingPrecondition(t *testing.T) {
	e := newEngine(t, &stubRepo{}, nil)
	st := story.New(character.City)
	st.Seed(character.Warrior, character.City)
	st.BeginIteration()

	free, err := action.Instantiate(testCatalog(t), "free", character.Warrior, character.Slave)
	require.NoError(t, err)
	require.NoError(t, e.Pipeline().Commit(st, free))
	require.Len(t, st.Missing, 1)

	repaired, err := e.Reflect(st)
	require.NoError(t, err)
	assert.Equal(t, 1, repaired)
	require.Len(t, st.Actions, 2)
	assert.Equal(t, "capture", st.Actions[0].Action.Name)
	assert.Equal(t, character.Warrior, st.Actions[0].Performer)
	assert.Equal(t, character.Slave, st.Actions[0].Receiver)
	assert.Empty(t, st.Missing)
	assert.Equal(t, 1, st.Current().Repaired)
	assert.Equal(t, 2, st.Reviewed)

	repaired, err = e.Reflect(st)
	require.NoError(t, err)
	assert.Zero(t, repaired)
}

func TestReflect_RepairBudget(t *testing.T) {
	e := newEngine(t, &stubRepo{}, func(p *Policy) { p.MaxReflectionActions = 0 })
	st := story.New(character.City)
	free, err := action.Instantiate(testCatalog(t), "free", character.Warrior, character.Slave)
	require.NoError(t, err)
	require.NoError(t, e.Pipeline().Commit(st, free))

	repaired, err := e.Reflect(st)
	require.NoError(t, err)
	assert.Zero(t, repaired)
	assert.Len(t, st.Actions, 1)
}

func TestBatch(t *testing.T) {
	defer goleak.VerifyNone(t)

	deps := Deps{Actions: testCatalog(t), Atoms: hatredIndex(t, "b"), Logger: quiet}
	stories, err := Batch(context.Background(), 4, 2, deps, DefaultPolicy(), func(int) (*story.Story, error) {
		st := story.New(character.City)
		st.Seed(character.Enemy, character.City, hate(character.Enemy, character.Warrior))
		return st, nil
	})
	require.NoError(t, err)
	require.Len(t, stories, 4)
	for _, st := range stories {
		assert.True(t, st.Ended())
		require.NotEmpty(t, st.Actions)
		assert.Equal(t, "attack", st.Actions[0].Action.Name)
	}
}

func TestBatch_PropagatesErrors(t *testing.T) {
	defer goleak.VerifyNone(t)

	deps := Deps{Actions: testCatalog(t), Atoms: &stubRepo{}, Logger: quiet}
	_, err := Batch(context.Background(), 3, 3, deps, DefaultPolicy(), func(i int) (*story.Story, error) {
		if i == 1 {
			return nil, errors.New("no cast")
		}
		return courtStory(), nil
	})
	assert.ErrorContains(t, err, "no cast")
}

func TestPolicy_Validate(t *testing.T) {
	require.NoError(t, DefaultPolicy().Validate())

	tests := []struct {
		name   string
		mutate func(*Policy)
	}{
		{"engagement", func(p *Policy) { p.MaxEngagementActions = 0 }},
		{"story", func(p *Policy) { p.MaxStoryActions = 0 }},
		{"similarity", func(p *Policy) { p.MinSimilarity = 120 }},
		{"ratio", func(p *Policy) { p.RepresentativeRatio = 1.5 }},
		{"window", func(p *Policy) { p.TendencyWindow = 0 }},
		{"attempts", func(p *Policy) { p.MaxAttempts = 0 }},
		{"flow", func(p *Policy) { p.StoryFlow = "maybe" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultPolicy()
			tt.mutate(&p)
			assert.Error(t, p.Validate())
			_, err := New(Deps{Actions: testCatalog(t), Atoms: &stubRepo{}}, p)
			assert.Error(t, err)
		})
	}
}

func TestLoadPolicy(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max_engagement_actions: 5\nstory_flow: error\nallow_illogical: true\n"), 0o644))

	p, err := LoadPolicy(path)
	require.NoError(t, err)
	assert.Equal(t, 5, p.MaxEngagementActions)
	assert.Equal(t, story.FlowError, p.StoryFlow)
	assert.True(t, p.AllowIllogical)
	assert.Equal(t, DefaultPolicy().MaxStoryActions, p.MaxStoryActions)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("min_similarity: 500\n"), 0o644))
	_, err = LoadPolicy(bad)
	assert.Error(t, err)

	_, err = LoadPolicy(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
