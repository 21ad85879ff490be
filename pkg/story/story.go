// Package story owns the state of one narrative: its committed actions,
// the avatars of the characters it references, its guidelines and the
// bookkeeping the engagement and reflection phases rely on.
package story

import (
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/plotweaver/pkg/action"
	"github.com/jwebster45206/plotweaver/pkg/analyzer"
	"github.com/jwebster45206/plotweaver/pkg/avatar"
	"github.com/jwebster45206/plotweaver/pkg/character"
	"github.com/jwebster45206/plotweaver/pkg/condition"
	"github.com/jwebster45206/plotweaver/pkg/guideline"
)

// MissingCondition is a precondition that did not hold when its action was
// committed.
type MissingCondition struct {
	ActionIndex int                    `json:"action_index"`
	Condition   condition.Instantiated `json:"condition"`
}

// Seed is the starting state of a character. A vampire keeps acting
// after its death.
type Seed struct {
	Position character.Position       `json:"position"`
	Facts    []condition.Instantiated `json:"facts,omitempty"`
	Vampire  bool                     `json:"vampire,omitempty"`
}

// Story is the sole mutator of its avatars. It is not safe for concurrent use.
type Story struct {
	ID              uuid.UUID                              `json:"id"`
	Actions         []action.Instantiated                  `json:"actions"`
	Cast            map[character.Character]*avatar.Avatar `json:"avatars"`
	Guidelines      guideline.Set                          `json:"guidelines"`
	DefaultPosition character.Position                     `json:"default_position"`
	Seeds           map[character.Character]Seed           `json:"seeds,omitempty"`
	Iteration       int                                    `json:"iteration"`
	Impasses        int                                    `json:"impasses"`
	TotalImpasses   int                                    `json:"total_impasses"`
	TensionHistory  []int                                  `json:"tension_history,omitempty"`
	NormBreaks      []int                                  `json:"norm_breaks,omitempty"`
	Missing         []MissingCondition                     `json:"missing,omitempty"`
	Reviewed        int                                    `json:"reviewed"`
	Iterations      []Diagnostics                          `json:"diagnostics,omitempty"`
	CreatedAt       time.Time                              `json:"created_at"`
	UpdatedAt       time.Time                              `json:"updated_at"`
}

var _ analyzer.World = (*Story)(nil)

// New creates an empty story whose characters start at pos.
func New(pos character.Position) *Story {
	now := time.Now()
	return &Story{
		ID:              uuid.New(),
		Cast:            make(map[character.Character]*avatar.Avatar),
		Guidelines:      guideline.New(),
		DefaultPosition: pos,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// Year is the number of committed actions. An action committed at index i
// happens in year i.
func (s *Story) Year() int {
	return len(s.Actions)
}

// Ended reports whether the story reached its terminal state.
func (s *Story) Ended() bool {
	return s.Guidelines.Ended
}

// Avatar returns the avatar of c if the story has referenced it.
func (s *Story) Avatar(c character.Character) (*avatar.Avatar, bool) {
	av, ok := s.Cast[c]
	return av, ok
}

// Avatars returns every avatar ordered by character.
func (s *Story) Avatars() []*avatar.Avatar {
	out := make([]*avatar.Avatar, 0, len(s.Cast))
	for _, av := range s.Cast {
		out = append(out, av)
	}
	slices.SortFunc(out, func(a, b *avatar.Avatar) int { return int(a.Character) - int(b.Character) })
	return out
}

// Ensure returns the avatar of c, creating it at its seeded position, or
// the default one, on first reference.
func (s *Story) Ensure(c character.Character) *avatar.Avatar {
	if av, ok := s.Cast[c]; ok {
		return av
	}
	if s.Cast == nil {
		s.Cast = make(map[character.Character]*avatar.Avatar)
	}
	pos := s.DefaultPosition
	if seed, ok := s.Seeds[c]; ok {
		pos = seed.Position
	}
	av := avatar.New(c, pos)
	s.Cast[c] = av
	return av
}

// Seed places c at pos before the story starts and adds the given facts
// to its context.
func (s *Story) Seed(c character.Character, pos character.Position, facts ...condition.Instantiated) {
	if s.Seeds == nil {
		s.Seeds = make(map[character.Character]Seed)
	}
	s.Seeds[c] = Seed{Position: pos, Facts: slices.Clone(facts)}
	av := s.Ensure(c)
	av.Position = pos
	for _, f := range facts {
		av.Context.Add(f)
	}
}

// plant applies a stored seed, flags included.
func (s *Story) plant(c character.Character, seed Seed) {
	s.Seed(c, seed.Position, seed.Facts...)
	if seed.Vampire {
		seed.Facts = slices.Clone(seed.Facts)
		s.Seeds[c] = seed
		s.Cast[c].Vampire = true
	}
}

func (s *Story) seeded() []character.Character {
	out := make([]character.Character, 0, len(s.Seeds))
	for c := range s.Seeds {
		out = append(out, c)
	}
	slices.Sort(out)
	return out
}

// Context returns the context of c, or an empty one if c is not referenced.
func (s *Story) Context(c character.Character) *avatar.Context {
	if av, ok := s.Cast[c]; ok {
		return av.Context
	}
	return &avatar.Context{}
}

// Alive reports whether c is alive. Characters not yet referenced are alive.
func (s *Story) Alive(c character.Character) bool {
	av, ok := s.Cast[c]
	return !ok || av.Alive
}

// Vampire reports whether c acts on after death.
func (s *Story) Vampire(c character.Character) bool {
	av, ok := s.Cast[c]
	return ok && av.Vampire
}

// Living returns the living avatars ordered by character.
func (s *Story) Living() []*avatar.Avatar {
	return slices.DeleteFunc(s.Avatars(), func(av *avatar.Avatar) bool { return !av.Alive })
}

// Tension counts the distinct tensions held across every context.
func (s *Story) Tension() int {
	seen := make(map[string]struct{})
	for _, av := range s.Cast {
		for _, t := range av.Context.Tensions() {
			seen[t.Key()] = struct{}{}
		}
	}
	return len(seen)
}

// LastNormBreak returns the index of the most recent norm-breaking action,
// or -1.
func (s *Story) LastNormBreak() int {
	if len(s.NormBreaks) == 0 {
		return -1
	}
	return s.NormBreaks[len(s.NormBreaks)-1]
}

// End moves the story to its terminal state.
func (s *Story) End() {
	s.Guidelines.Ended = true
	s.UpdatedAt = time.Now()
}

// Pending returns the missing conditions of actions reflection has not
// reviewed yet, latest action first.
func (s *Story) Pending() []MissingCondition {
	var out []MissingCondition
	for _, m := range s.Missing {
		if m.ActionIndex >= s.Reviewed {
			out = append(out, m)
		}
	}
	slices.SortStableFunc(out, func(a, b MissingCondition) int { return b.ActionIndex - a.ActionIndex })
	return out
}
