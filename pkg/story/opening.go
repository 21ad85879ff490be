package story

import (
	"errors"
	"fmt"

	"github.com/jwebster45206/plotweaver/pkg/analyzer"
	"github.com/jwebster45206/plotweaver/pkg/character"
)

// Opening is a reusable starting situation: where everyone stands and what
// they already feel before the first action.
type Opening struct {
	Name            string                       `json:"name"`
	Description     string                       `json:"description,omitempty"`
	DefaultPosition character.Position           `json:"default_position"`
	Seeds           map[character.Character]Seed `json:"seeds"`
}

// Validate checks the seeded characters and their facts.
func (o *Opening) Validate() error {
	if len(o.Seeds) == 0 {
		return errors.New("opening must seed at least one character")
	}
	for c, seed := range o.Seeds {
		if !c.Valid() {
			return fmt.Errorf("opening %s: invalid character %d", o.Name, c)
		}
		for _, f := range seed.Facts {
			if err := f.Validate(); err != nil {
				return fmt.Errorf("opening %s: %s: %w", o.Name, c, err)
			}
			if !f.Involves(c) {
				return fmt.Errorf("opening %s: fact %s seeded on %s does not involve it", o.Name, f, c)
			}
		}
	}
	return nil
}

// Start creates a fresh story from the opening. Tensions derived from the
// seeded facts are in place before the first engagement.
func (o *Opening) Start() *Story {
	s := New(o.DefaultPosition)
	tmp := &Story{Seeds: o.Seeds}
	for _, c := range tmp.seeded() {
		s.plant(c, o.Seeds[c])
	}
	analyzer.DefaultPipeline().Settle(s, true)
	return s
}
