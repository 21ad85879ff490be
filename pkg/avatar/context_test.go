package avatar

import (
	"testing"

	"github.com/jwebster45206/plotweaver/pkg/character"
	"github.com/jwebster45206/plotweaver/pkg/condition"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func emotion(t condition.EmotionType, n int, from, to character.Character) condition.Instantiated {
	return condition.Instantiated{
		Condition: condition.NewEmotion(t, n, condition.SlotA, condition.SlotB),
		From:      from,
		To:        to,
	}
}

func tension(k condition.TensionKind, from, to character.Character) condition.Instantiated {
	b := condition.SlotB
	if to == character.None {
		b = condition.SlotNone
	}
	return condition.Instantiated{
		Condition: condition.NewTension(k, condition.SlotA, b),
		From:      from,
		To:        to,
	}
}

func TestContext_AddReplacesSameKey(t *testing.T) {
	ctx := &Context{}
	assert.True(t, ctx.Add(emotion(condition.Brotherly, 1, character.Hunter, character.Princess)))
	assert.False(t, ctx.Add(emotion(condition.Brotherly, 1, character.Hunter, character.Princess)))
	assert.True(t, ctx.Add(emotion(condition.Brotherly, 3, character.Hunter, character.Princess)))
	require.Equal(t, 1, ctx.Len())
	assert.Equal(t, 3, ctx.Facts[0].Intensity)

	assert.True(t, ctx.Add(emotion(condition.Brotherly, -2, character.Hunter, character.Princess)))
	assert.Equal(t, 2, ctx.Len(), "opposite sign is a separate fact")
}

func TestContext_ContainsUsesCompatibility(t *testing.T) {
	ctx := &Context{}
	ctx.Add(emotion(condition.Amorous, 2, character.Prince, character.Princess))
	ctx.Add(tension(condition.Prisoner, character.Slave, character.None))

	assert.True(t, ctx.Contains(emotion(condition.Amorous, 1, character.Prince, character.Princess)))
	assert.True(t, ctx.Contains(emotion(condition.AnyType, 2, character.Prince, character.Princess)))
	assert.False(t, ctx.Contains(emotion(condition.Amorous, 3, character.Prince, character.Princess)))
	assert.False(t, ctx.Contains(emotion(condition.Amorous, -1, character.Prince, character.Princess)))
	assert.False(t, ctx.Contains(emotion(condition.Amorous, 1, character.Princess, character.Prince)))
	assert.True(t, ctx.Contains(tension(condition.Prisoner, character.Slave, character.None)))
}

func TestContext_RemoveAndGraph(t *testing.T) {
	ctx := &Context{}
	ctx.Add(emotion(condition.Brotherly, -3, character.Enemy, character.Warrior))
	ctx.Add(tension(condition.ActorDead, character.Farmer, character.None))
	ctx.Add(tension(condition.LifeAtRisk, character.Warrior, character.Enemy))

	g := ctx.Graph()
	require.Equal(t, 3, g.Len())
	edges := g.Edges()
	assert.Equal(t, "E1(-3)", edges[0].Label)
	assert.Equal(t, "FA", edges[1].Source)
	assert.Equal(t, "FA", edges[1].Target, "single-character facts become self loops")

	assert.ElementsMatch(t,
		[]character.Character{character.Enemy, character.Warrior, character.Farmer},
		ctx.Characters())

	removed := ctx.RemoveFunc(func(f condition.Instantiated) bool { return f.Kind == condition.Tension })
	assert.Len(t, removed, 2)
	assert.Equal(t, 1, ctx.Len())
	assert.True(t, ctx.Remove(emotion(condition.Brotherly, -1, character.Enemy, character.Warrior)))
	assert.Equal(t, 0, ctx.Len())
}

func TestAvatar_Kill(t *testing.T) {
	a := New(character.Hunter, character.ChapultepecForest)
	assert.True(t, a.Alive)
	assert.Equal(t, StillAlive, a.DiedYear)

	assert.True(t, a.Kill(4))
	assert.False(t, a.Kill(6))
	assert.Equal(t, 4, a.DiedYear)
	assert.False(t, a.DeadSince(4))
	assert.True(t, a.DeadSince(5))
}
