package character

import (
	"fmt"
	"strings"
)

// Character is one of the fixed story characters. The set is closed;
// new characters cannot be added at runtime.
type Character int

const (
	None Character = iota
	JaguarKnight
	EagleKnight
	Princess
	Hunter
	Priest
	Virgin
	Lady
	Tlatoani
	Fisherman
	Enemy
	Warrior
	Prince
	Farmer
	Trader
	Slave
)

type info struct {
	name   string
	abbrev string
}

var infos = map[Character]info{
	JaguarKnight: {"jaguar_knight", "JK"},
	EagleKnight:  {"eagle_knight", "EK"},
	Princess:     {"princess", "PR"},
	Hunter:       {"hunter", "HU"},
	Priest:       {"priest", "PT"},
	Virgin:       {"virgin", "VI"},
	Lady:         {"lady", "LA"},
	Tlatoani:     {"tlatoani", "TL"},
	Fisherman:    {"fisherman", "FI"},
	Enemy:        {"enemy", "EN"},
	Warrior:      {"warrior", "WA"},
	Prince:       {"prince", "PC"},
	Farmer:       {"farmer", "FA"},
	Trader:       {"trader", "TR"},
	Slave:        {"slave", "SL"},
}

// All returns every character in declaration order.
func All() []Character {
	out := make([]Character, 0, len(infos))
	for c := JaguarKnight; c <= Slave; c++ {
		out = append(out, c)
	}
	return out
}

// Valid reports whether c is a member of the closed set.
func (c Character) Valid() bool {
	_, ok := infos[c]
	return ok
}

// String returns the snake_case name, or "none".
func (c Character) String() string {
	if i, ok := infos[c]; ok {
		return i.name
	}
	return "none"
}

// Abbrev returns the two-letter label used for graph nodes.
func (c Character) Abbrev() string {
	if i, ok := infos[c]; ok {
		return i.abbrev
	}
	return ""
}

// Display returns a human readable name ("jaguar knight").
func (c Character) Display() string {
	return strings.ReplaceAll(c.String(), "_", " ")
}

// Parse resolves a character by name or abbreviation, case-insensitive.
// Spaces and hyphens are treated as underscores.
func Parse(s string) (Character, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.NewReplacer(" ", "_", "-", "_").Replace(key)
	if key == "" || key == "none" {
		return None, nil
	}
	for c, i := range infos {
		if i.name == key || strings.ToLower(i.abbrev) == key {
			return c, nil
		}
	}
	return None, fmt.Errorf("unknown character: %q", s)
}

// FromAbbrev resolves a graph node label back to a character.
func FromAbbrev(abbrev string) (Character, bool) {
	for c, i := range infos {
		if i.abbrev == abbrev {
			return c, true
		}
	}
	return None, false
}

func (c Character) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Character) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
