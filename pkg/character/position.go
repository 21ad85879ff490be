package character

import (
	"fmt"
	"strings"
)

// Position is a place in the story world.
type Position int

const (
	Nowhere Position = iota
	TexcocoLake
	Popocatepetl
	ChapultepecForest
	TlatelolcoMarket
	City
	Palace
	Temple
)

var positionNames = map[Position]string{
	TexcocoLake:       "texcoco_lake",
	Popocatepetl:      "popocatepetl",
	ChapultepecForest: "chapultepec_forest",
	TlatelolcoMarket:  "tlatelolco_market",
	City:              "city",
	Palace:            "palace",
	Temple:            "temple",
}

func (p Position) String() string {
	if n, ok := positionNames[p]; ok {
		return n
	}
	return "nowhere"
}

// ParsePosition resolves a position by name, case-insensitive.
func ParsePosition(s string) (Position, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.NewReplacer(" ", "_", "-", "_").Replace(key)
	if key == "" || key == "nowhere" {
		return Nowhere, nil
	}
	for p, n := range positionNames {
		if n == key {
			return p, nil
		}
	}
	return Nowhere, fmt.Errorf("unknown position: %q", s)
}

func (p Position) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Position) UnmarshalText(text []byte) error {
	parsed, err := ParsePosition(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
