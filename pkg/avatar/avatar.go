// Package avatar holds the per-story state of one character.
package avatar

import "github.com/jwebster45206/plotweaver/pkg/character"

// StillAlive is the DiedYear of a living avatar.
const StillAlive = -1

// Avatar is one character's presence in a story.
type Avatar struct {
	Character character.Character `json:"character"`
	Context   *Context            `json:"context"`
	Alive     bool                `json:"alive"`
	Vampire   bool                `json:"vampire,omitempty"`
	Position  character.Position  `json:"position"`
	DiedYear  int                 `json:"died_year"`
}

// New creates a living avatar at the given position with an empty context.
func New(c character.Character, pos character.Position) *Avatar {
	return &Avatar{
		Character: c,
		Context:   &Context{},
		Alive:     true,
		Position:  pos,
		DiedYear:  StillAlive,
	}
}

// Kill marks the avatar dead as of year. Killing a dead avatar is a no-op
// and reports false.
func (a *Avatar) Kill(year int) bool {
	if !a.Alive {
		return false
	}
	a.Alive = false
	a.DiedYear = year
	return true
}

// DeadSince reports whether the avatar died strictly before year.
func (a *Avatar) DeadSince(year int) bool {
	return !a.Alive && a.DiedYear < year
}

// Active reports whether the avatar still takes part in year. The living
// and vampires always do; the dead stay for lookback years after death.
func (a *Avatar) Active(year, lookback int) bool {
	return a.Alive || a.Vampire || year-a.DiedYear <= lookback
}

// CoLocated reports whether both avatars share a position.
func (a *Avatar) CoLocated(other *Avatar) bool {
	return a.Position == other.Position
}
