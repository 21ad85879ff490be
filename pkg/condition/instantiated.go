package condition

import (
	"fmt"

	"github.com/jwebster45206/plotweaver/pkg/character"
)

// Instantiated is a Condition bound to concrete characters.
type Instantiated struct {
	Condition
	From character.Character `json:"from"`
	To   character.Character `json:"to,omitempty"`

	// DerivedBy names the analyzer that produced this fact, if any.
	DerivedBy string `json:"derived_by,omitempty"`
}

// Binding maps action slots to concrete characters.
type Binding map[Slot]character.Character

// Bind instantiates c using the given slot binding.
func (c Condition) Bind(b Binding) (Instantiated, error) {
	from, ok := b[c.A]
	if !ok || from == character.None {
		return Instantiated{}, fmt.Errorf("slot %q is unbound in %s", c.A, c)
	}
	inst := Instantiated{Condition: c, From: from}
	if c.B != SlotNone {
		to, ok := b[c.B]
		if !ok || to == character.None {
			return Instantiated{}, fmt.Errorf("slot %q is unbound in %s", c.B, c)
		}
		inst.To = to
	}
	return inst, nil
}

// Key identifies the fact slot that this instance occupies in a context:
// two emotions of the same type between the same ordered pair share a key,
// so a newer emotion replaces the older one.
func (i Instantiated) Key() string {
	if i.Kind == Emotion {
		sign := "+"
		if i.Intensity < 0 {
			sign = "-"
		}
		return fmt.Sprintf("E%d%s:%s>%s", i.Emotion, sign, i.From.Abbrev(), i.To.Abbrev())
	}
	return fmt.Sprintf("%s:%s>%s", i.Tension, i.From.Abbrev(), i.To.Abbrev())
}

// Satisfies reports whether this fact makes the requirement true: same kind,
// same characters in the same slots, and for emotions a compatible label
// (matching sign and at least the required intensity).
func (i Instantiated) Satisfies(req Instantiated) bool {
	if i.Kind != req.Kind || i.From != req.From || i.To != req.To {
		return false
	}
	if i.Kind == Tension {
		return i.Tension == req.Tension
	}
	return Compatible(req.Label(), i.Label())
}

// Involves reports whether c is either participant.
func (i Instantiated) Involves(c character.Character) bool {
	return i.From == c || (i.To != character.None && i.To == c)
}

// Nodes returns the source and target graph nodes. Single-character facts
// become self-loops.
func (i Instantiated) Nodes() (string, string) {
	if i.To == character.None {
		return i.From.Abbrev(), i.From.Abbrev()
	}
	return i.From.Abbrev(), i.To.Abbrev()
}

func (i Instantiated) String() string {
	if i.To == character.None {
		return fmt.Sprintf("%s(%s)", i.Label(), i.From.Abbrev())
	}
	return fmt.Sprintf("%s(%s,%s)", i.Label(), i.From.Abbrev(), i.To.Abbrev())
}
