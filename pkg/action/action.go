// Package action defines the actions a story is built from and the catalog
// that resolves them by name.
package action

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/jwebster45206/plotweaver/pkg/character"
	"github.com/jwebster45206/plotweaver/pkg/condition"
)

// Kind discriminates the action variants.
type Kind string

const (
	Simple    Kind = "simple"
	Social    Kind = "social"
	Composite Kind = "composite"
)

// Norm is the social rule a social action can break. The action breaks it
// when the performer's distance over the receiver in Hierarchy is below
// MinDistance.
type Norm struct {
	Hierarchy   string `json:"hierarchy"`
	MinDistance int    `json:"min_distance"`
}

// Definition is an action template. Condition slots "a" and "b" bind to the
// performer and the receiver.
type Definition struct {
	Name           string                `json:"name"`
	Kind           Kind                  `json:"kind"`
	Characters     int                   `json:"characters"`
	Preconditions  []condition.Condition `json:"preconditions,omitempty"`
	Postconditions []condition.Condition `json:"postconditions,omitempty"`

	// MovesTo relocates the performer, and the receiver if any.
	MovesTo character.Position `json:"moves_to,omitempty"`

	AllowDeadReceiver bool  `json:"allow_dead_receiver,omitempty"`
	Norm              *Norm `json:"norm,omitempty"`

	// Contained names the action a composite action wraps.
	Contained string `json:"contained,omitempty"`
}

// Validate checks the definition in isolation; references to other actions
// are checked by the catalog.
func (d *Definition) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return errors.New("action name is required")
	}
	switch d.Kind {
	case Simple, Social:
		if d.Contained != "" {
			return fmt.Errorf("action %s: only composite actions contain another action", d.Name)
		}
	case Composite:
		if d.Contained == "" {
			return fmt.Errorf("action %s: composite action must name its contained action", d.Name)
		}
	default:
		return fmt.Errorf("action %s: unknown kind %q", d.Name, d.Kind)
	}
	if d.Characters != 1 && d.Characters != 2 {
		return fmt.Errorf("action %s: characters must be 1 or 2, got %d", d.Name, d.Characters)
	}
	if d.Norm != nil && d.Kind != Social {
		return fmt.Errorf("action %s: only social actions carry a norm", d.Name)
	}
	for _, c := range slices.Concat(d.Preconditions, d.Postconditions) {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("action %s: %w", d.Name, err)
		}
		if d.Characters == 1 && (c.A == condition.SlotB || c.B == condition.SlotB) {
			return fmt.Errorf("action %s: slot b used by a one-character action", d.Name)
		}
	}
	return nil
}

func (d *Definition) IsSocial() bool { return d.Kind == Social }

func (d *Definition) IsComposite() bool { return d.Kind == Composite }

// ChangesLocation reports whether the action only moves characters.
func (d *Definition) ChangesLocation() bool {
	return d.MovesTo != character.Nowhere && len(d.Postconditions) == 0
}

// Kills reports whether a postcondition activates an actor-dead tension.
func (d *Definition) Kills() bool {
	for _, c := range d.Postconditions {
		if c.Kind == condition.Tension && c.Tension == condition.ActorDead && !c.Deactivates {
			return true
		}
	}
	return false
}

// TensionDelta is the number of tensions the action activates minus the
// number it deactivates.
func (d *Definition) TensionDelta() int {
	delta := 0
	for _, c := range d.Postconditions {
		if c.Kind != condition.Tension {
			continue
		}
		if c.Deactivates {
			delta--
		} else {
			delta++
		}
	}
	return delta
}
