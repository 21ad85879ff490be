package analyzer

import (
	"github.com/jwebster45206/plotweaver/pkg/avatar"
	"github.com/jwebster45206/plotweaver/pkg/character"
	"github.com/jwebster45206/plotweaver/pkg/condition"
)

// PotentialDanger derives Pd(b,a) while a holds a -3 emotion towards b
// and both are alive and co-located.
type PotentialDanger struct{}

func (PotentialDanger) Name() string { return "potential_danger" }

func (p PotentialDanger) Analyze(w World, owner *avatar.Avatar) bool {
	var want []condition.Instantiated
	for _, e := range owner.Context.Emotions() {
		if e.Intensity != -condition.MaxStrength {
			continue
		}
		if !alive(w, e.From) || !alive(w, e.To) || !coLocated(w, e.From, e.To) {
			continue
		}
		want = append(want, derived(p.Name(), condition.PotentialDanger, e.To, e.From))
	}
	return reconcile(owner.Context, p.Name(), want)
}

// ClashingEmotions derives Ce(a,b) while a holds both a positive and a
// negative emotion towards b.
type ClashingEmotions struct{}

func (ClashingEmotions) Name() string { return "clashing_emotions" }

func (c ClashingEmotions) Analyze(w World, owner *avatar.Avatar) bool {
	type pair struct{ from, to character.Character }
	positive := make(map[pair]bool)
	negative := make(map[pair]bool)
	var order []pair
	for _, e := range owner.Context.Emotions() {
		p := pair{e.From, e.To}
		if !positive[p] && !negative[p] {
			order = append(order, p)
		}
		if e.Intensity > 0 {
			positive[p] = true
		} else {
			negative[p] = true
		}
	}
	var want []condition.Instantiated
	for _, p := range order {
		if positive[p] && negative[p] {
			want = append(want, derived(c.Name(), condition.ClashingEmotions, p.from, p.to))
		}
	}
	return reconcile(owner.Context, c.Name(), want)
}

// LoveCompetition derives Lc(x,t) for every living x in love with a living
// target t that at least one other living character is also in love with.
type LoveCompetition struct{}

func (LoveCompetition) Name() string { return "love_competition" }

func (l LoveCompetition) Analyze(w World, owner *avatar.Avatar) bool {
	lovers := make(map[character.Character][]character.Character)
	var targets []character.Character
	for _, e := range owner.Context.Emotions() {
		if e.Emotion != condition.Amorous || e.Intensity <= 0 {
			continue
		}
		if !alive(w, e.To) || !alive(w, e.From) {
			continue
		}
		if _, ok := lovers[e.To]; !ok {
			targets = append(targets, e.To)
		}
		lovers[e.To] = appendUnique(lovers[e.To], e.From)
	}
	var want []condition.Instantiated
	for _, t := range targets {
		if len(lovers[t]) < 2 {
			continue
		}
		for _, x := range lovers[t] {
			want = append(want, derived(l.Name(), condition.LoveCompetition, x, t))
		}
	}
	return reconcile(owner.Context, l.Name(), want)
}

func appendUnique(list []character.Character, c character.Character) []character.Character {
	for _, existing := range list {
		if existing == c {
			return list
		}
	}
	return append(list, c)
}
