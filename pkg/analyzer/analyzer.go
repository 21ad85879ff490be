// Package analyzer derives secondary tensions from avatar contexts and
// retracts them when their justification disappears.
//
// Condition analyzers react to new emotion or tension facts; tension
// analyzers react to tension changes. Every analyzer is idempotent: a
// second run over an unchanged world reports no change.
package analyzer

import (
	"slices"
	"strings"

	"github.com/jwebster45206/plotweaver/pkg/avatar"
	"github.com/jwebster45206/plotweaver/pkg/character"
	"github.com/jwebster45206/plotweaver/pkg/condition"
)

// World is the read/write view of a story that analyzers operate on.
type World interface {
	Avatar(c character.Character) (*avatar.Avatar, bool)
	Avatars() []*avatar.Avatar
	Year() int
}

// Analyzer inspects one avatar's context and reports whether anything changed.
type Analyzer interface {
	Name() string
	Analyze(w World, owner *avatar.Avatar) bool
}

// maxPasses bounds Settle; derivations converge in two or three passes.
const maxPasses = 8

// Pipeline runs condition analyzers, then tension analyzers when tensions changed.
type Pipeline struct {
	Condition []Analyzer
	Tension   []Analyzer
}

// DefaultPipeline returns every analyzer in its canonical order.
func DefaultPipeline() *Pipeline {
	return &Pipeline{
		Condition: []Analyzer{PotentialDanger{}, ClashingEmotions{}, LoveCompetition{}},
		Tension:   []Analyzer{CharacterDead{}, PresenceConditioned{}, DeadSource{}},
	}
}

// Settle runs the pipeline over every avatar until nothing changes.
// tensionsChanged forces the tension analyzers on the first pass. It
// returns the number of passes that produced a change.
func (p *Pipeline) Settle(w World, tensionsChanged bool) int {
	passes := 0
	for range maxPasses {
		before := tensionFingerprint(w)
		changed := false
		for _, av := range w.Avatars() {
			for _, a := range p.Condition {
				if a.Analyze(w, av) {
					changed = true
				}
			}
		}
		if tensionsChanged || tensionFingerprint(w) != before {
			for _, av := range w.Avatars() {
				for _, a := range p.Tension {
					if a.Analyze(w, av) {
						changed = true
					}
				}
			}
		}
		if !changed {
			break
		}
		tensionsChanged = false
		passes++
	}
	return passes
}

func tensionFingerprint(w World) string {
	var keys []string
	for _, av := range w.Avatars() {
		for _, f := range av.Context.Tensions() {
			keys = append(keys, av.Character.Abbrev()+"/"+f.Key())
		}
	}
	slices.Sort(keys)
	return strings.Join(keys, ",")
}

func alive(w World, c character.Character) bool {
	av, ok := w.Avatar(c)
	return ok && av.Alive
}

func coLocated(w World, a, b character.Character) bool {
	x, ok := w.Avatar(a)
	if !ok {
		return false
	}
	y, ok := w.Avatar(b)
	if !ok {
		return false
	}
	return x.CoLocated(y)
}

func derived(name string, k condition.TensionKind, from, to character.Character) condition.Instantiated {
	return condition.Instantiated{
		Condition: condition.NewTension(k, condition.SlotA, condition.SlotB),
		From:      from,
		To:        to,
		DerivedBy: name,
	}
}

// reconcile makes the facts derived by name in ctx equal to want: stale
// derived facts are removed, missing ones added. Facts that already hold
// for another reason are left alone.
func reconcile(ctx *avatar.Context, name string, want []condition.Instantiated) bool {
	wanted := make(map[string]bool, len(want))
	for _, f := range want {
		wanted[f.Key()] = true
	}
	removed := ctx.RemoveFunc(func(f condition.Instantiated) bool {
		return f.DerivedBy == name && !wanted[f.Key()]
	})
	changed := len(removed) > 0
	for _, f := range want {
		if !ctx.Contains(f) {
			ctx.Add(f)
			changed = true
		}
	}
	return changed
}
