package main

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// drain runs cmd and any batched commands, returning every message produced.
func drain(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, drain(c)...)
		}
		return out
	}
	return []tea.Msg{msg}
}

func find[T tea.Msg](t *testing.T, msgs []tea.Msg) T {
	t.Helper()
	for _, m := range msgs {
		if v, ok := m.(T); ok {
			return v
		}
	}
	var zero T
	require.Failf(t, "message not produced", "%T", zero)
	return zero
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestConsoleUI_SelectOpeningAndStep(t *testing.T) {
	var m tea.Model = NewConsoleUI(newTestAPI(t, nil))
	m, _ = m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})

	m, _ = m.Update(find[openingsLoadedMsg](t, drain(m.Init())))
	ui := m.(ConsoleUI)
	require.Equal(t, []string{"rivals"}, ui.openings)
	assert.Contains(t, ui.View(), "Select an Opening")

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m, _ = m.Update(find[storyMsg](t, drain(cmd)))
	ui = m.(ConsoleUI)
	require.False(t, ui.showOpeningModal)
	require.NotNil(t, ui.story)
	assert.True(t, ui.ready)

	m, cmd = m.Update(key("s"))
	assert.True(t, m.(ConsoleUI).loading)
	m, cmd = m.Update(find[advanceMsg](t, drain(cmd)))
	assert.Equal(t, "ran 1 steps", m.(ConsoleUI).status)
	m, _ = m.Update(find[storyMsg](t, drain(cmd)))

	ui = m.(ConsoleUI)
	assert.False(t, ui.loading)
	assert.Positive(t, ui.story.Year)
	assert.Contains(t, ui.View(), "PLOTWEAVER")
}

func TestConsoleUI_RunToEndStopsStepping(t *testing.T) {
	api := newTestAPI(t, nil)
	created, err := api.CreateStory("rivals.json")
	require.NoError(t, err)

	ui := NewConsoleUI(api)
	ui.showOpeningModal = false
	var m tea.Model = ui
	m, _ = m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	m, _ = m.Update(storyMsg{story: created})

	m, cmd := m.Update(key("r"))
	m, cmd = m.Update(find[advanceMsg](t, drain(cmd)))
	m, _ = m.Update(find[storyMsg](t, drain(cmd)))
	require.True(t, m.(ConsoleUI).story.Ended)

	m, cmd = m.Update(key("s"))
	assert.Nil(t, cmd)
	assert.Contains(t, m.(ConsoleUI).status, "ended")
}

func TestConsoleUI_QueuedStepSchedulesRefresh(t *testing.T) {
	q := &discardQueue{}
	api := newTestAPI(t, q)
	created, err := api.CreateStory("rivals.json")
	require.NoError(t, err)

	ui := NewConsoleUI(api)
	ui.showOpeningModal = false
	var m tea.Model = ui
	m, _ = m.Update(storyMsg{story: created})

	m, cmd := m.Update(key("f"))
	m, cmd = m.Update(find[advanceMsg](t, drain(cmd)))
	assert.True(t, strings.HasPrefix(m.(ConsoleUI).status, "queued request "))
	find[refreshMsg](t, drain(cmd))
	require.Len(t, q.requests, 1)
	assert.Equal(t, fastForwardSteps, q.requests[0].StepCount())
}

func TestConsoleUI_QuitModal(t *testing.T) {
	var m tea.Model = NewConsoleUI(newTestAPI(t, nil))
	m, _ = m.Update(openingsLoadedMsg{openings: []string{"rivals"}, openingMap: map[string]string{"rivals": "rivals.json"}})

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.True(t, m.(ConsoleUI).showQuitModal)

	m, _ = m.Update(key("n"))
	assert.False(t, m.(ConsoleUI).showQuitModal)

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	_, cmd := m.Update(key("y"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestFormatTranscript(t *testing.T) {
	out := formatTranscript("Enemy Attack Warrior.\n\nWarrior Flee Enemy.\nThe end.\n", 80)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "Enemy Attack Warrior")
	assert.Contains(t, lines[2], "The end.")
}
