// Package hierarchy answers rank questions between characters along named
// orderings such as social rank or age.
package hierarchy

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/jwebster45206/d20"
	"github.com/jwebster45206/plotweaver/pkg/character"
)

// ErrUnknown is returned when a hierarchy or a character's rank in it is missing.
var ErrUnknown = errors.New("unknown hierarchy entry")

// Repository resolves signed distances between two characters.
type Repository interface {
	Distance(name string, a, b character.Character) (int, error)
}

// Ranks maps hierarchy name to the rank of each character in it.
type Ranks map[string]map[character.Character]int

// Table is a Repository backed by one d20 actor per character. Each
// hierarchy is an actor attribute holding the character's rank.
type Table struct {
	names  []string
	actors map[character.Character]*d20.Actor
}

var _ Repository = (*Table)(nil)

// New builds a table. Ranks must be positive.
func New(ranks Ranks) (*Table, error) {
	attrs := make(map[character.Character]map[string]int)
	t := &Table{actors: make(map[character.Character]*d20.Actor)}
	for name, byChar := range ranks {
		key := normalize(name)
		if key == "" {
			return nil, fmt.Errorf("hierarchy name is required")
		}
		if slices.Contains(t.names, key) {
			return nil, fmt.Errorf("duplicate hierarchy %q", key)
		}
		t.names = append(t.names, key)
		for c, rank := range byChar {
			if !c.Valid() {
				return nil, fmt.Errorf("hierarchy %s: invalid character %d", key, c)
			}
			if rank <= 0 {
				return nil, fmt.Errorf("hierarchy %s: rank of %s must be positive, got %d", key, c, rank)
			}
			if attrs[c] == nil {
				attrs[c] = make(map[string]int)
			}
			attrs[c][key] = rank
		}
	}
	slices.Sort(t.names)

	for c, a := range attrs {
		actor, err := d20.NewActor(c.String()).
			WithHP(1).
			WithAC(10).
			WithAttributes(a).
			Build()
		if err != nil {
			return nil, fmt.Errorf("failed to build actor for %s: %w", c, err)
		}
		t.actors[c] = actor
	}
	return t, nil
}

// Names lists the hierarchies, sorted.
func (t *Table) Names() []string {
	return slices.Clone(t.names)
}

// Has reports whether the named hierarchy exists.
func (t *Table) Has(name string) bool {
	return slices.Contains(t.names, normalize(name))
}

// Rank returns c's rank in the named hierarchy.
func (t *Table) Rank(name string, c character.Character) (int, bool) {
	actor, ok := t.actors[c]
	if !ok {
		return 0, false
	}
	return actor.Attribute(normalize(name))
}

// Distance returns rank(a) - rank(b) in the named hierarchy.
func (t *Table) Distance(name string, a, b character.Character) (int, error) {
	if !t.Has(name) {
		return 0, fmt.Errorf("%w: hierarchy %q", ErrUnknown, name)
	}
	ra, ok := t.Rank(name, a)
	if !ok {
		return 0, fmt.Errorf("%w: %s has no rank in %q", ErrUnknown, a, name)
	}
	rb, ok := t.Rank(name, b)
	if !ok {
		return 0, fmt.Errorf("%w: %s has no rank in %q", ErrUnknown, b, name)
	}
	return ra - rb, nil
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
