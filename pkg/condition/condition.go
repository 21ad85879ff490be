package condition

import (
	"fmt"
	"strconv"
)

// Kind discriminates emotions from tensions.
type Kind string

const (
	Emotion Kind = "emotion"
	Tension Kind = "tension"
)

// Slot is an abstract character role inside an action ("a" performs, "b" receives).
type Slot string

const (
	SlotA    Slot = "a"
	SlotB    Slot = "b"
	SlotNone Slot = ""
)

// EmotionType is an emotion category.
type EmotionType int

const (
	AnyType   EmotionType = 0
	Brotherly EmotionType = 1
	Amorous   EmotionType = 2
	Gratitude EmotionType = 3
)

// MaxStrength bounds emotion intensity on both sides of zero.
const MaxStrength = 3

// Category returns the label category ("1", "2", or "*" for AnyType).
func (t EmotionType) Category() string {
	if t == AnyType {
		return AnyEmotion
	}
	return strconv.Itoa(int(t))
}

// TensionKind is a two-letter tension code.
type TensionKind string

const (
	ActorDead        TensionKind = "Ad"
	LifeAtRisk       TensionKind = "Lr"
	HealthAtRisk     TensionKind = "Hr"
	Prisoner         TensionKind = "Pr"
	ClashingEmotions TensionKind = "Ce"
	LoveCompetition  TensionKind = "Lc"
	PotentialDanger  TensionKind = "Pd"
)

var tensionKinds = map[TensionKind]bool{
	ActorDead: true, LifeAtRisk: true, HealthAtRisk: true, Prisoner: true,
	ClashingEmotions: true, LoveCompetition: true, PotentialDanger: true,
}

// Condition is a fact template over abstract slots.
type Condition struct {
	Kind      Kind        `json:"kind"`
	Emotion   EmotionType `json:"emotion,omitempty"`
	Intensity int         `json:"intensity,omitempty"`
	Tension   TensionKind `json:"tension,omitempty"`
	A         Slot        `json:"a"`
	B         Slot        `json:"b,omitempty"`

	// Deactivates marks a tension postcondition that removes the tension
	// instead of triggering it.
	Deactivates bool `json:"deactivates,omitempty"`

	// PresenceConditioned tensions only hold while both characters share a
	// position and are alive.
	PresenceConditioned bool `json:"presence_conditioned,omitempty"`
}

// NewEmotion builds an emotion template felt by slot a towards slot b.
func NewEmotion(t EmotionType, intensity int, a, b Slot) Condition {
	return Condition{Kind: Emotion, Emotion: t, Intensity: intensity, A: a, B: b}
}

// NewTension builds a tension template.
func NewTension(k TensionKind, a, b Slot) Condition {
	return Condition{Kind: Tension, Tension: k, A: a, B: b}
}

// Validate checks intensity range, tension codes and slot usage.
func (c Condition) Validate() error {
	switch c.Kind {
	case Emotion:
		if c.Intensity == 0 || c.Intensity < -MaxStrength || c.Intensity > MaxStrength {
			return fmt.Errorf("emotion intensity %d out of range [-3,3] (0 excluded)", c.Intensity)
		}
		if c.Emotion < AnyType {
			return fmt.Errorf("invalid emotion type %d", c.Emotion)
		}
		if c.B == SlotNone {
			return fmt.Errorf("emotion requires both slots")
		}
	case Tension:
		if !tensionKinds[c.Tension] {
			return fmt.Errorf("unknown tension %q", c.Tension)
		}
	default:
		return fmt.Errorf("unknown condition kind %q", c.Kind)
	}
	if c.A == SlotNone {
		return fmt.Errorf("condition requires slot a")
	}
	return nil
}

// Label returns the edge label for this template.
func (c Condition) Label() string {
	if c.Kind == Emotion {
		return EmotionLabel(c.Emotion.Category(), c.Intensity)
	}
	return string(c.Tension)
}

func (c Condition) String() string {
	prefix := ""
	if c.Deactivates {
		prefix = "!"
	}
	if c.B == SlotNone {
		return fmt.Sprintf("%s%s(%s)", prefix, c.Label(), c.A)
	}
	return fmt.Sprintf("%s%s(%s,%s)", prefix, c.Label(), c.A, c.B)
}
