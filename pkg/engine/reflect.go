package engine

import (
	"fmt"
	"slices"

	"github.com/jwebster45206/plotweaver/pkg/action"
	"github.com/jwebster45206/plotweaver/pkg/character"
	"github.com/jwebster45206/plotweaver/pkg/condition"
	"github.com/jwebster45206/plotweaver/pkg/guideline"
	"github.com/jwebster45206/plotweaver/pkg/story"
)

// Reflect decides whether the story is over, repairs missing preconditions
// and recomputes the guidelines. It returns the number of repair actions
// inserted.
func (e *Engine) Reflect(st *story.Story) (int, error) {
	if st.Ended() {
		return 0, nil
	}
	log := e.log.With("story_id", st.ID.String(), "iteration", st.Iteration)

	if reason, done := e.finished(st); done {
		if err := st.Guidelines.Add(guideline.EndOfStory); err != nil {
			return 0, err
		}
		st.End()
		log.Info("Story ended", "reason", reason, "actions", st.Year())
		return 0, nil
	}

	repaired, err := e.repair(st)
	if err != nil {
		return repaired, err
	}
	if repaired > 0 {
		st.Current().Repaired += repaired
		log.Debug("Story repaired", "inserted", repaired)
	}

	e.retune(st)
	log.Debug("Guidelines updated", "guidelines", st.Guidelines.Names())

	// Repairs grow the story too.
	if st.Year() >= e.policy.MaxStoryActions {
		st.End()
		log.Info("Story ended", "reason", "action limit", "actions", st.Year())
	}
	return repaired, nil
}

// finished reports whether the story reached a terminal condition.
func (e *Engine) finished(st *story.Story) (string, bool) {
	if st.Year() >= e.policy.MaxStoryActions {
		return "action limit", true
	}
	if len(e.active(st)) == 0 {
		return "no active characters", true
	}
	if allDead(st) {
		return "all characters dead", true
	}
	if st.Impasses > e.policy.MaxImpasses {
		return "impasse", true
	}
	return "", false
}

// allDead reports whether every avatar died before the current year.
func allDead(st *story.Story) bool {
	avatars := st.Avatars()
	if len(avatars) == 0 {
		return false
	}
	for _, av := range avatars {
		if !av.DeadSince(st.Year()) {
			return false
		}
	}
	return true
}

// retune recomputes the tendency from the tension history: increase until
// the peak is reached, decrease while the climax is within the window or
// tension remains, neutral once everything is resolved. Norm breaking is
// forbidden for a window after a norm was broken.
func (e *Engine) retune(st *story.Story) {
	h := st.TensionHistory
	window := h[max(0, len(h)-e.policy.TendencyWindow):]
	current := 0
	if len(h) > 0 {
		current = h[len(h)-1]
	}

	name := guideline.TensionIncrease
	switch {
	case len(window) > 0 && slices.Max(window) >= e.policy.TensionPeak:
		name = guideline.TensionDecrease
	case len(h) > 0 && slices.Max(h) >= e.policy.TensionPeak:
		if current > 0 {
			name = guideline.TensionDecrease
		} else {
			name = guideline.TensionNeutral
		}
	}
	_ = st.Guidelines.Add(name)

	if last := st.LastNormBreak(); last >= 0 && st.Year()-last <= e.policy.TendencyWindow {
		_ = st.Guidelines.Add(guideline.NoNormBreaking)
	} else {
		st.Guidelines.Norms = guideline.AnyNorm
	}
}

// repair inserts, before each offending action reflection has not yet
// reviewed, an action establishing its missing precondition.
func (e *Engine) repair(st *story.Story) (int, error) {
	defer func() { st.Reviewed = st.Year() }()

	repaired := 0
	for _, m := range st.Pending() {
		if repaired >= e.policy.MaxReflectionActions {
			break
		}
		ok, err := e.repairOne(st, m)
		if err != nil {
			return repaired, err
		}
		if ok {
			repaired++
		}
	}
	return repaired, nil
}

func (e *Engine) repairOne(st *story.Story, m story.MissingCondition) (bool, error) {
	offending := st.Actions[m.ActionIndex]
	for _, def := range action.Establishing(e.actions, m.Condition.Condition) {
		performer, receiver, ok := bindFor(def, m.Condition, offending)
		if !ok {
			continue
		}
		a, err := action.Instantiate(e.actions, def.Name, performer, receiver)
		if err != nil {
			continue
		}
		breaks, err := a.BreaksNorm(e.hierarchy)
		if err != nil {
			return false, &story.ConfigurationError{What: fmt.Sprintf("norm of %s", def.Name), Err: err}
		}
		if breaks && st.Guidelines.Norms == guideline.ForbidNorms {
			continue
		}
		backup := *st
		if err := e.pipeline.Insert(st, m.ActionIndex, a); err != nil {
			continue
		}
		if stillMissing(st, m) {
			*st = backup
			continue
		}
		return true, nil
	}
	return false, nil
}

// stillMissing reports whether the offending action of m, now one index
// later, still lacks the condition.
func stillMissing(st *story.Story, m story.MissingCondition) bool {
	return slices.ContainsFunc(st.Missing, func(x story.MissingCondition) bool {
		return x.ActionIndex == m.ActionIndex+1 && x.Condition.Key() == m.Condition.Key()
	})
}

// bindFor maps the slots of def's establishing postcondition onto the
// characters of the missing fact. A slot the fact leaves open is given to
// whichever character of the offending action is not yet bound.
func bindFor(def action.Definition, want condition.Instantiated, offending action.Instantiated) (character.Character, character.Character, bool) {
	for _, post := range def.Postconditions {
		if post.Deactivates || post.Kind != want.Kind {
			continue
		}
		if want.Kind == condition.Tension && post.Tension != want.Tension {
			continue
		}
		if want.Kind == condition.Emotion && !condition.Compatible(want.Label(), post.Label()) {
			continue
		}
		b := condition.Binding{post.A: want.From}
		if post.B != condition.SlotNone && want.To != character.None {
			if _, taken := b[post.B]; taken {
				continue
			}
			b[post.B] = want.To
		}
		performer, receiver := b[condition.SlotA], b[condition.SlotB]
		if def.Characters == 1 {
			if performer == character.None {
				continue
			}
			return performer, character.None, true
		}
		for _, c := range []character.Character{offending.Performer, offending.Receiver} {
			switch {
			case c == character.None || c == performer || c == receiver:
			case performer == character.None:
				performer = c
			case receiver == character.None:
				receiver = c
			}
		}
		if performer == character.None || receiver == character.None || performer == receiver {
			continue
		}
		return performer, receiver, true
	}
	return character.None, character.None, false
}
