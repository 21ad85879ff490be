package action

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jwebster45206/plotweaver/pkg/character"
	"github.com/jwebster45206/plotweaver/pkg/condition"
	"github.com/jwebster45206/plotweaver/pkg/hierarchy"
)

// ErrArity is returned when the bound characters do not fit the action.
var ErrArity = errors.New("characters do not fit the action")

// Instantiated is an action bound to concrete characters. It is immutable
// once created; a composite action holds its contained action by value.
type Instantiated struct {
	Action    Definition          `json:"action"`
	Performer character.Character `json:"performer"`
	Receiver  character.Character `json:"receiver,omitempty"`
	Contained *Instantiated       `json:"contained,omitempty"`
}

// Binding maps condition slots to the bound characters.
func (i Instantiated) Binding() condition.Binding {
	b := condition.Binding{condition.SlotA: i.Performer}
	if i.Receiver != character.None {
		b[condition.SlotB] = i.Receiver
	}
	return b
}

// Preconditions binds the preconditions of the action.
func (i Instantiated) Preconditions() ([]condition.Instantiated, error) {
	return bindAll(i.Action.Preconditions, i.Binding())
}

// Postconditions binds the postconditions of the action, followed by those
// of the contained action.
func (i Instantiated) Postconditions() ([]condition.Instantiated, error) {
	out, err := bindAll(i.Action.Postconditions, i.Binding())
	if err != nil {
		return nil, err
	}
	if i.Contained != nil {
		inner, err := i.Contained.Postconditions()
		if err != nil {
			return nil, err
		}
		out = append(out, inner...)
	}
	return out, nil
}

// Kills reports whether the action, or the one it contains, kills.
func (i Instantiated) Kills() bool {
	return i.Action.Kills() || (i.Contained != nil && i.Contained.Kills())
}

// TensionDelta sums the tension delta of the action and its contained action.
func (i Instantiated) TensionDelta() int {
	d := i.Action.TensionDelta()
	if i.Contained != nil {
		d += i.Contained.TensionDelta()
	}
	return d
}

// MovesTo is the destination of the action or of its contained action.
func (i Instantiated) MovesTo() character.Position {
	if i.Action.MovesTo != character.Nowhere {
		return i.Action.MovesTo
	}
	if i.Contained != nil {
		return i.Contained.MovesTo()
	}
	return character.Nowhere
}

// Involves reports whether c performs or receives the action.
func (i Instantiated) Involves(c character.Character) bool {
	return i.Performer == c || (i.Receiver != character.None && i.Receiver == c)
}

// BreaksNorm reports whether a social action breaks its norm. Missing
// hierarchy data is returned as an error wrapping hierarchy.ErrUnknown.
func (i Instantiated) BreaksNorm(h hierarchy.Repository) (bool, error) {
	n := i.Action.Norm
	if n == nil || i.Receiver == character.None {
		return false, nil
	}
	if h == nil {
		return false, fmt.Errorf("%w: no hierarchies loaded for %s", hierarchy.ErrUnknown, i.Action.Name)
	}
	d, err := h.Distance(n.Hierarchy, i.Performer, i.Receiver)
	if err != nil {
		return false, err
	}
	return d < n.MinDistance, nil
}

func (i Instantiated) String() string {
	name := strings.ReplaceAll(i.Action.Name, "_", " ")
	if i.Receiver == character.None {
		return fmt.Sprintf("%s %s", i.Performer.Display(), name)
	}
	return fmt.Sprintf("%s %s %s", i.Performer.Display(), name, i.Receiver.Display())
}

func bindAll(conds []condition.Condition, b condition.Binding) ([]condition.Instantiated, error) {
	out := make([]condition.Instantiated, 0, len(conds))
	for _, c := range conds {
		inst, err := c.Bind(b)
		if err != nil {
			return nil, err
		}
		out = append(out, inst)
	}
	return out, nil
}
