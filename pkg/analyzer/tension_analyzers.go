package analyzer

import (
	"github.com/jwebster45206/plotweaver/pkg/avatar"
	"github.com/jwebster45206/plotweaver/pkg/character"
	"github.com/jwebster45206/plotweaver/pkg/condition"
)

// CharacterDead reacts to an actor-dead tension: the avatar is marked dead
// as of the current year, and facts sourced by it are stripped from the
// contexts of every avatar sharing its position at the time of death.
type CharacterDead struct{}

func (CharacterDead) Name() string { return "character_dead" }

func (CharacterDead) Analyze(w World, owner *avatar.Avatar) bool {
	changed := false
	for _, t := range owner.Context.Tensions() {
		if t.Tension != condition.ActorDead {
			continue
		}
		dead, ok := w.Avatar(t.From)
		if !ok || !dead.Kill(w.Year()) {
			continue
		}
		changed = true
		for _, av := range w.Avatars() {
			if !av.CoLocated(dead) {
				continue
			}
			av.Context.RemoveFunc(func(f condition.Instantiated) bool {
				return f.From == dead.Character && !isActorDead(f)
			})
		}
	}
	return changed
}

// PresenceConditioned strips tensions flagged presence-conditioned once the
// two characters are apart or either has died.
type PresenceConditioned struct{}

func (PresenceConditioned) Name() string { return "presence_conditioned" }

func (PresenceConditioned) Analyze(w World, owner *avatar.Avatar) bool {
	removed := owner.Context.RemoveFunc(func(f condition.Instantiated) bool {
		if f.Kind != condition.Tension || !f.PresenceConditioned || f.To == character.None {
			return false
		}
		return !alive(w, f.From) || !alive(w, f.To) || !coLocated(w, f.From, f.To)
	})
	return len(removed) > 0
}

// DeadSource removes every tension whose source character is dead, so no
// tension outlives the character it belongs to. Actor-dead tensions are
// kept since they record the death itself.
type DeadSource struct{}

func (DeadSource) Name() string { return "dead_source" }

func (DeadSource) Analyze(w World, owner *avatar.Avatar) bool {
	removed := owner.Context.RemoveFunc(func(f condition.Instantiated) bool {
		if f.Kind != condition.Tension || isActorDead(f) {
			return false
		}
		av, ok := w.Avatar(f.From)
		return ok && !av.Alive
	})
	return len(removed) > 0
}

func isActorDead(f condition.Instantiated) bool {
	return f.Kind == condition.Tension && f.Tension == condition.ActorDead
}
