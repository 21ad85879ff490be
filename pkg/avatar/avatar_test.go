package avatar

import (
	"testing"

	"github.com/jwebster45206/plotweaver/pkg/character"
	"github.com/stretchr/testify/assert"
)

func TestAvatar_Active(t *testing.T) {
	dead := func(year int, vampire bool) *Avatar {
		a := New(character.Warrior, character.City)
		a.Kill(year)
		a.Vampire = vampire
		return a
	}

	tests := []struct {
		name     string
		avatar   *Avatar
		year     int
		lookback int
		want     bool
	}{
		{"alive", New(character.Warrior, character.City), 10, 0, true},
		{"died this year", dead(4, false), 4, 0, true},
		{"within lookback", dead(4, false), 6, 2, true},
		{"past lookback", dead(4, false), 7, 2, false},
		{"vampire past lookback", dead(4, true), 20, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.avatar.Active(tt.year, tt.lookback))
		})
	}
}
