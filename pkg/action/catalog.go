package action

import (
	"fmt"
	"strings"

	"github.com/jwebster45206/plotweaver/pkg/character"
	"github.com/jwebster45206/plotweaver/pkg/condition"
)

// Repository resolves action definitions.
type Repository interface {
	Lookup(name string) (Definition, bool)
	All() []Definition
	LocationChanges() []Definition
	Killers() []Definition
}

// Catalog is a read-only Repository built once from loaded definitions.
type Catalog struct {
	byName map[string]int
	defs   []Definition
}

var _ Repository = (*Catalog)(nil)

// NewCatalog validates defs and indexes them by case-insensitive name.
// Composite actions must contain a known, non-composite action.
func NewCatalog(defs []Definition) (*Catalog, error) {
	c := &Catalog{byName: make(map[string]int, len(defs))}
	for _, d := range defs {
		if err := d.Validate(); err != nil {
			return nil, err
		}
		key := normalize(d.Name)
		if _, dup := c.byName[key]; dup {
			return nil, fmt.Errorf("duplicate action %q", d.Name)
		}
		c.byName[key] = len(c.defs)
		c.defs = append(c.defs, d)
	}
	for _, d := range c.defs {
		if !d.IsComposite() {
			continue
		}
		inner, ok := c.Lookup(d.Contained)
		if !ok {
			return nil, fmt.Errorf("action %s contains unknown action %q", d.Name, d.Contained)
		}
		if inner.IsComposite() {
			return nil, fmt.Errorf("action %s contains composite action %s", d.Name, inner.Name)
		}
		if inner.Characters > d.Characters {
			return nil, fmt.Errorf("action %s cannot contain two-character action %s", d.Name, inner.Name)
		}
	}
	return c, nil
}

// Lookup finds a definition by name, case-insensitive.
func (c *Catalog) Lookup(name string) (Definition, bool) {
	i, ok := c.byName[normalize(name)]
	if !ok {
		return Definition{}, false
	}
	return c.defs[i], true
}

// All returns every definition in load order.
func (c *Catalog) All() []Definition {
	return c.filter(func(Definition) bool { return true })
}

// LocationChanges returns the actions that only move characters.
func (c *Catalog) LocationChanges() []Definition {
	return c.filter(func(d Definition) bool { return d.ChangesLocation() })
}

// Killers returns the actions that kill a character.
func (c *Catalog) Killers() []Definition {
	return c.filter(func(d Definition) bool { return d.Kills() })
}

// Establishing returns the non-composite actions of repo with a
// postcondition that produces want when bound to the same slot pair.
func Establishing(repo Repository, want condition.Condition) []Definition {
	var out []Definition
	for _, d := range repo.All() {
		if !d.IsComposite() && d.establishes(want) {
			out = append(out, d)
		}
	}
	return out
}

func (d *Definition) establishes(want condition.Condition) bool {
	for _, post := range d.Postconditions {
		if post.Deactivates || post.Kind != want.Kind {
			continue
		}
		if want.Kind == condition.Tension && post.Tension == want.Tension {
			return true
		}
		if want.Kind == condition.Emotion && condition.Compatible(want.Label(), post.Label()) {
			return true
		}
	}
	return false
}

func (c *Catalog) filter(keep func(Definition) bool) []Definition {
	var out []Definition
	for _, d := range c.defs {
		if keep(d) {
			out = append(out, d)
		}
	}
	return out
}

// Instantiate binds the named action, and its contained action, to the
// given characters.
func Instantiate(repo Repository, name string, performer, receiver character.Character) (Instantiated, error) {
	def, ok := repo.Lookup(name)
	if !ok {
		return Instantiated{}, fmt.Errorf("unknown action %q", name)
	}
	if !performer.Valid() {
		return Instantiated{}, fmt.Errorf("%w: %s needs a performer", ErrArity, def.Name)
	}
	switch def.Characters {
	case 1:
		receiver = character.None
	case 2:
		if !receiver.Valid() || receiver == performer {
			return Instantiated{}, fmt.Errorf("%w: %s needs a receiver distinct from %s", ErrArity, def.Name, performer)
		}
	}
	inst := Instantiated{Action: def, Performer: performer, Receiver: receiver}
	if def.IsComposite() {
		inner, err := Instantiate(repo, def.Contained, performer, receiver)
		if err != nil {
			return Instantiated{}, fmt.Errorf("contained action of %s: %w", def.Name, err)
		}
		inst.Contained = &inner
	}
	return inst, nil
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
