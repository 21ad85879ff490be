// Package guideline holds the declarative constraints that steer which
// actions a story may grow with.
package guideline

import (
	"fmt"
	"strings"
)

// Tendency is the desired direction of story tension.
type Tendency string

const (
	Increase Tendency = "increase"
	Neutral  Tendency = "neutral"
	Decrease Tendency = "decrease"
)

// NormPolicy controls norm-breaking actions.
type NormPolicy string

const (
	AnyNorm     NormPolicy = "any"
	ForbidNorms NormPolicy = "forbid"
	RequireNorm NormPolicy = "require"
)

// Guideline names accepted by Add.
const (
	TensionIncrease = "tension-increase"
	TensionNeutral  = "tension-neutral"
	TensionDecrease = "tension-decrease"
	NormBreaking    = "norm-breaking"
	NoNormBreaking  = "no-norm-breaking"
	EndOfStory      = "end-of-story"
)

// Candidate is what a guideline set judges.
type Candidate struct {
	TensionDelta int
	BreaksNorm   bool
}

// Set is the active guidelines of one story. The zero value accepts
// anything; use New for the usual starting point.
type Set struct {
	Tendency Tendency   `json:"tendency,omitempty"`
	Norms    NormPolicy `json:"norms,omitempty"`
	Ended    bool       `json:"end_of_story,omitempty"`
}

// New returns the guidelines a fresh story starts with.
func New() Set {
	return Set{Tendency: Increase, Norms: AnyNorm}
}

// Add activates a named guideline, replacing any conflicting one.
func (s *Set) Add(name string) error {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case TensionIncrease:
		s.Tendency = Increase
	case TensionNeutral:
		s.Tendency = Neutral
	case TensionDecrease:
		s.Tendency = Decrease
	case NormBreaking:
		s.Norms = RequireNorm
	case NoNormBreaking:
		s.Norms = ForbidNorms
	case EndOfStory:
		s.Ended = true
	default:
		return fmt.Errorf("unknown guideline %q", name)
	}
	return nil
}

// Names lists the active guidelines.
func (s Set) Names() []string {
	var out []string
	switch s.Tendency {
	case Increase:
		out = append(out, TensionIncrease)
	case Neutral:
		out = append(out, TensionNeutral)
	case Decrease:
		out = append(out, TensionDecrease)
	}
	switch s.Norms {
	case RequireNorm:
		out = append(out, NormBreaking)
	case ForbidNorms:
		out = append(out, NoNormBreaking)
	}
	if s.Ended {
		out = append(out, EndOfStory)
	}
	return out
}

// SatisfiesTendency reports whether a tension delta fits the tendency.
func (s Set) SatisfiesTendency(delta int) bool {
	if s.Ended {
		return false
	}
	switch s.Tendency {
	case Increase:
		return delta >= 0
	case Decrease:
		return delta <= 0
	}
	return true
}

// Satisfies reports whether the candidate fits every active guideline.
// Nothing satisfies a set that has reached the end of the story.
func (s Set) Satisfies(c Candidate) bool {
	if !s.SatisfiesTendency(c.TensionDelta) {
		return false
	}
	switch s.Norms {
	case ForbidNorms:
		return !c.BreaksNorm
	case RequireNorm:
		return c.BreaksNorm
	}
	return true
}
