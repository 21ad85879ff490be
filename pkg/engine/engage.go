package engine

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/jwebster45206/plotweaver/pkg/action"
	"github.com/jwebster45206/plotweaver/pkg/atom"
	"github.com/jwebster45206/plotweaver/pkg/avatar"
	"github.com/jwebster45206/plotweaver/pkg/character"
	"github.com/jwebster45206/plotweaver/pkg/guideline"
	"github.com/jwebster45206/plotweaver/pkg/story"
)

// candidate is a next action proposed by an atom matched against the
// context of owner.
type candidate struct {
	owner  *avatar.Avatar
	match  atom.Match
	next   atom.NextAction
	def    action.Definition
	weight int
}

// Engage commits up to MaxEngagementActions actions. An engagement that
// commits nothing is an impasse; any commit resets the impasse count.
func (e *Engine) Engage(st *story.Story) (int, error) {
	if st.Ended() {
		return 0, story.ErrStoryEnded
	}
	log := e.log.With("story_id", st.ID.String(), "iteration", st.Iteration)

	committed := 0
	for committed < e.policy.MaxEngagementActions && st.Year() < e.policy.MaxStoryActions {
		a, ok, err := e.engageOnce(st, log)
		if err != nil {
			return committed, err
		}
		if !ok {
			break
		}
		committed++
		log.Debug("Action committed", "year", st.Year()-1, "action", a.String())
	}

	if committed == 0 {
		st.Impasses++
		st.TotalImpasses++
		st.Current().Impasses++
		log.Info("Engagement impasse", "consecutive", st.Impasses)
		return 0, nil
	}
	st.Impasses = 0
	return committed, nil
}

// engageOnce picks candidates by weighted chance until one commits, the
// candidates run out or MaxAttempts is reached. Recoverable errors only
// move on to the next candidate.
func (e *Engine) engageOnce(st *story.Story, log *slog.Logger) (action.Instantiated, bool, error) {
	cands, err := e.candidates(st)
	if err != nil {
		return action.Instantiated{}, false, err
	}
	for attempt := 0; attempt < e.policy.MaxAttempts && len(cands) > 0; attempt++ {
		i := e.pick(cands)
		c := cands[i]
		cands = append(cands[:i], cands[i+1:]...)

		a, err := e.bind(st, c)
		if err != nil {
			if story.Recoverable(err) {
				log.Debug("Candidate binding failed", "action", c.def.Name, "error", err)
				continue
			}
			return action.Instantiated{}, false, err
		}

		breaks, err := a.BreaksNorm(e.hierarchy)
		if err != nil {
			return action.Instantiated{}, false, &story.ConfigurationError{What: "norm of " + a.Action.Name, Err: err}
		}
		if !st.Guidelines.Satisfies(guideline.Candidate{TensionDelta: a.TensionDelta(), BreaksNorm: breaks}) {
			log.Debug("Candidate outside guidelines", "action", a.String())
			continue
		}

		if err := e.pipeline.Commit(st, a); err != nil {
			if story.Recoverable(err) {
				log.Debug("Candidate rejected", "action", a.String(), "error", err)
				continue
			}
			return action.Instantiated{}, false, err
		}
		return a, true, nil
	}
	return action.Instantiated{}, false, nil
}

// candidates collects the next actions of every atom matching the context
// of an active avatar, keeping those whose tension delta fits the current
// tendency.
func (e *Engine) candidates(st *story.Story) ([]candidate, error) {
	active := e.active(st)
	largest := 0
	for _, av := range active {
		largest = max(largest, av.Context.Len())
	}

	var out []candidate
	for _, av := range active {
		if av.Context.Len() == 0 {
			continue
		}
		if e.policy.RepresentativeContexts &&
			float64(av.Context.Len()) < e.policy.RepresentativeRatio*float64(largest) {
			continue
		}
		for _, m := range atom.MatchAll(e.atoms, av.Context.Graph()) {
			if m.Solution.Removed == 0 || m.Solution.Similarity() < e.policy.MinSimilarity {
				continue
			}
			for _, next := range m.Atom.NextActions {
				def, ok := e.actions.Lookup(next.Action)
				if !ok {
					return nil, &story.ConfigurationError{
						What: fmt.Sprintf("atom %s names unknown action %q", m.Atom.ID, next.Action),
					}
				}
				if !st.Guidelines.SatisfiesTendency(e.definitionDelta(def)) {
					continue
				}
				out = append(out, candidate{
					owner:  av,
					match:  m,
					next:   next,
					def:    def,
					weight: max(1, m.Solution.Similarity()),
				})
			}
		}
	}
	return out, nil
}

func (e *Engine) definitionDelta(def action.Definition) int {
	d := def.TensionDelta()
	if def.IsComposite() {
		if inner, ok := e.actions.Lookup(def.Contained); ok {
			d += inner.TensionDelta()
		}
	}
	return d
}

// active returns the living avatars and vampires plus those dead for at
// most DeadLookback years.
func (e *Engine) active(st *story.Story) []*avatar.Avatar {
	var out []*avatar.Avatar
	for _, av := range st.Avatars() {
		if av.Active(st.Year(), e.policy.DeadLookback) {
			out = append(out, av)
		}
	}
	return out
}

func (e *Engine) pick(cands []candidate) int {
	total := 0
	for _, c := range cands {
		total += c.weight
	}
	r := e.rng.IntN(total)
	for i, c := range cands {
		if r < c.weight {
			return i
		}
		r -= c.weight
	}
	return len(cands) - 1
}

// bind resolves the atom nodes of a candidate to characters. Nodes the
// match mapped keep their character; the others are drawn from the
// owner's acquaintances, or from every living character under full
// instantiation.
func (e *Engine) bind(st *story.Story, c candidate) (action.Instantiated, error) {
	used := make(map[character.Character]bool)
	performer, err := e.resolve(st, c, c.next.Performer, used)
	if err != nil {
		return action.Instantiated{}, err
	}
	used[performer] = true

	receiver := character.None
	if c.def.Characters == 2 {
		receiver, err = e.resolve(st, c, c.next.Receiver, used)
		if err != nil {
			return action.Instantiated{}, err
		}
	}

	a, err := action.Instantiate(e.actions, c.def.Name, performer, receiver)
	if err != nil {
		if errors.Is(err, action.ErrArity) {
			return action.Instantiated{}, &story.BindingError{Action: c.def.Name, Role: "receiver", Character: receiver, Err: story.ErrInvalidBinding}
		}
		return action.Instantiated{}, &story.ConfigurationError{What: "instantiating " + c.def.Name, Err: err}
	}
	return a, nil
}

func (e *Engine) resolve(st *story.Story, c candidate, node string, used map[character.Character]bool) (character.Character, error) {
	if node != "" {
		if abbrev, ok := c.match.Solution.Mapping.Get(node); ok {
			if ch, ok := character.FromAbbrev(abbrev); ok {
				return ch, nil
			}
		}
	}

	var pool []character.Character
	if e.policy.FullInstantiation {
		for _, av := range st.Living() {
			pool = append(pool, av.Character)
		}
	} else {
		pool = append(pool, c.owner.Character)
		pool = append(pool, c.owner.Context.Characters()...)
	}
	var eligible []character.Character
	seen := make(map[character.Character]bool)
	for _, ch := range pool {
		if seen[ch] || used[ch] || !st.Alive(ch) {
			continue
		}
		seen[ch] = true
		eligible = append(eligible, ch)
	}
	if len(eligible) == 0 {
		return character.None, &story.BindingError{Action: c.def.Name, Role: node, Err: story.ErrInvalidBinding}
	}
	return eligible[e.rng.IntN(len(eligible))], nil
}
