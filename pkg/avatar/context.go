package avatar

import (
	"slices"

	"github.com/jwebster45206/plotweaver/pkg/character"
	"github.com/jwebster45206/plotweaver/pkg/condition"
	"github.com/jwebster45206/plotweaver/pkg/graph"
)

// Context is the set of facts currently true for one character.
// Facts are kept in insertion order; a fact with the same Key as an
// existing one replaces it in place.
type Context struct {
	Facts []condition.Instantiated `json:"facts"`
}

// Len returns the number of facts.
func (c *Context) Len() int {
	return len(c.Facts)
}

// Add inserts or replaces a fact and reports whether the context changed.
func (c *Context) Add(f condition.Instantiated) bool {
	for i, existing := range c.Facts {
		if existing.Key() == f.Key() {
			if existing == f {
				return false
			}
			c.Facts[i] = f
			return true
		}
	}
	c.Facts = append(c.Facts, f)
	return true
}

// Remove deletes the fact occupying f's key and reports whether it existed.
func (c *Context) Remove(f condition.Instantiated) bool {
	n := len(c.Facts)
	c.Facts = slices.DeleteFunc(c.Facts, func(existing condition.Instantiated) bool {
		return existing.Key() == f.Key()
	})
	return len(c.Facts) != n
}

// RemoveFunc deletes every fact for which drop returns true and returns
// the removed facts.
func (c *Context) RemoveFunc(drop func(condition.Instantiated) bool) []condition.Instantiated {
	var removed []condition.Instantiated
	kept := c.Facts[:0]
	for _, f := range c.Facts {
		if drop(f) {
			removed = append(removed, f)
			continue
		}
		kept = append(kept, f)
	}
	c.Facts = kept
	return removed
}

// Contains reports whether some fact satisfies req (same characters, same
// tension, or an emotion of matching sign and at least the same strength).
func (c *Context) Contains(req condition.Instantiated) bool {
	return slices.ContainsFunc(c.Facts, func(f condition.Instantiated) bool {
		return f.Satisfies(req)
	})
}

// Tensions returns the tension facts.
func (c *Context) Tensions() []condition.Instantiated {
	return c.filter(condition.Tension)
}

// Emotions returns the emotion facts.
func (c *Context) Emotions() []condition.Instantiated {
	return c.filter(condition.Emotion)
}

func (c *Context) filter(k condition.Kind) []condition.Instantiated {
	var out []condition.Instantiated
	for _, f := range c.Facts {
		if f.Kind == k {
			out = append(out, f)
		}
	}
	return out
}

// Characters returns every character referenced by a fact.
func (c *Context) Characters() []character.Character {
	seen := make(map[character.Character]bool)
	var out []character.Character
	for _, f := range c.Facts {
		for _, ch := range []character.Character{f.From, f.To} {
			if ch != character.None && !seen[ch] {
				seen[ch] = true
				out = append(out, ch)
			}
		}
	}
	slices.Sort(out)
	return out
}

// Graph renders the context as a labeled graph over character abbreviations.
func (c *Context) Graph() *graph.Graph {
	g := graph.New()
	for _, f := range c.Facts {
		src, tgt := f.Nodes()
		g.Add(src, tgt, f.Label())
	}
	return g
}

// Clone returns an independent copy.
func (c *Context) Clone() *Context {
	return &Context{Facts: slices.Clone(c.Facts)}
}
