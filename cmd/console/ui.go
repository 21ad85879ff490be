package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/jwebster45206/plotweaver/internal/handlers"
	"github.com/muesli/reflow/wordwrap"
)

const (
	fastForwardSteps  = 5
	queuedRefreshWait = time.Second
)

// ConsoleUI is the BubbleTea model that runs the UI.
// https://github.com/charmbracelet/bubbletea
type ConsoleUI struct {
	api           *APIClient
	story         *handlers.StoryResponse
	storyViewport viewport.Model
	metaViewport  viewport.Model
	ready         bool
	width         int
	height        int
	err           error
	status        string
	loading       bool

	// Opening selection state
	showOpeningModal bool
	openings         []string
	openingMap       map[string]string
	selectedOpening  int
	loadingOpenings  bool

	// Quit confirmation state
	showQuitModal bool

	// Progress bar state
	progressTick int
}

type openingsLoadedMsg struct {
	openings   []string
	openingMap map[string]string
	err        error
}

type storyMsg struct {
	story *handlers.StoryResponse
	err   error
}

type advanceMsg struct {
	advance *Advance
	err     error
}

type refreshMsg struct{}

type progressTickMsg struct{}

var (
	storyPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(1).
			PaddingLeft(3).
			PaddingRight(0)

	metaPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(0).
			PaddingLeft(0).
			PaddingRight(2)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")). // pink
			Bold(true)

	actionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")) // green

	endStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")). // purple
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")) // red

	loadingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")) // yellow

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2).
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("255"))

	modalTitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true).
			Align(lipgloss.Center)

	modalItemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	modalSelectedItemStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("0")).
				Background(lipgloss.Color("205")).
				Bold(true)
)

var separatorStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("240")) // dark grey

func NewConsoleUI(api *APIClient) ConsoleUI {
	storyVp := viewport.New(50, 20)
	storyVp.MouseWheelEnabled = true

	metaVp := viewport.New(20, 20)

	return ConsoleUI{
		api:              api,
		storyViewport:    storyVp,
		metaViewport:     metaVp,
		showOpeningModal: true,
		loadingOpenings:  true,
	}
}

// formatTranscript wraps the rendered story to width, one action per line.
func formatTranscript(transcript string, width int) string {
	if width < 10 {
		width = 10
	}
	var content strings.Builder
	for _, line := range strings.Split(strings.TrimRight(transcript, "\n"), "\n") {
		line = strings.TrimSpace(line)
		switch {
		case line == "":
			continue
		case strings.HasPrefix(line, "The end"):
			content.WriteString(endStyle.Render(line))
		default:
			content.WriteString(actionStyle.Render(wordwrap.String(line, width)))
		}
		content.WriteString("\n")
	}
	return content.String()
}

func writeMetadata(s *handlers.StoryResponse) string {
	var content strings.Builder
	content.WriteString(titleStyle.Render("STORY") + "\n\n")

	content.WriteString("Story ID:\n")
	content.WriteString(s.Story.ID.String()[:8] + "...\n\n")

	content.WriteString("Actions:\n")
	content.WriteString(fmt.Sprintf("%d\n\n", s.Year))

	content.WriteString("Status:\n")
	if s.Ended {
		content.WriteString("ended\n\n")
	} else {
		content.WriteString("running\n\n")
	}

	t := s.Totals
	content.WriteString("Diagnostics:\n")
	content.WriteString(fmt.Sprintf("• iterations: %d\n", t.Iteration))
	content.WriteString(fmt.Sprintf("• committed: %d\n", t.Committed))
	content.WriteString(fmt.Sprintf("• missing: %d\n", t.MissingConditions))
	content.WriteString(fmt.Sprintf("• irrelevant: %d\n", t.IrrelevantActions))
	content.WriteString(fmt.Sprintf("• illogical: %d\n", t.IllogicalActions))
	content.WriteString(fmt.Sprintf("• impasses: %d\n", t.Impasses))
	content.WriteString(fmt.Sprintf("• repaired: %d\n", t.Repaired))

	content.WriteString("\n")
	content.WriteString("Keys:\n")
	content.WriteString("• s: Step\n")
	content.WriteString(fmt.Sprintf("• f: %d steps\n", fastForwardSteps))
	content.WriteString("• r: Run to end\n")
	content.WriteString("• c: Copy story\n")
	content.WriteString("• n: New story\n")
	content.WriteString("• Esc: Quit\n")

	return content.String()
}

// writeStoryContent rebuilds the story panel for the current viewport width
func (m *ConsoleUI) writeStoryContent() {
	width := m.storyViewport.Width - 6

	var content strings.Builder
	content.WriteString(titleStyle.Render("PLOTWEAVER") + "\n\n")
	content.WriteString(separatorStyle.Render(strings.Repeat("─", max(width, 1))) + "\n\n")
	if m.story != nil {
		content.WriteString(formatTranscript(m.story.Transcript, width))
	}
	if m.err != nil {
		content.WriteString("\n" + errorStyle.Render("Error: "+m.err.Error()) + "\n")
	}
	if m.loading {
		content.WriteString("\n" + m.renderProgressBar())
	}

	m.storyViewport.SetContent(content.String())
	m.storyViewport.GotoBottom()
}

func (m *ConsoleUI) resize() {
	storyWidth := int(float64(m.width)*0.75) - 4
	metaWidth := m.width - storyWidth - 6

	m.storyViewport.Width = storyWidth - 2
	m.storyViewport.Height = m.height - 6
	m.metaViewport.Width = metaWidth - 2
	m.metaViewport.Height = m.height - 4
}

func (m ConsoleUI) Init() tea.Cmd {
	return m.loadOpenings()
}

func (m ConsoleUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.showQuitModal {
		return m.updateQuitModal(msg)
	}
	if m.showOpeningModal {
		return m.updateOpeningModal(msg)
	}

	var vpCmd, mvCmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		m.ready = true
		m.writeStoryContent()
		if m.story != nil {
			m.metaViewport.SetContent(writeMetadata(m.story))
		}

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.showQuitModal = true
			return m, nil
		}
		if m.loading || m.story == nil {
			break
		}
		switch msg.String() {
		case "s", "enter":
			return m.advance(1)
		case "f":
			return m.advance(fastForwardSteps)
		case "r":
			return m.advance(0)
		case "c":
			if err := clipboard.WriteAll(m.story.Transcript); err != nil {
				m.status = "copy failed: " + err.Error()
			} else {
				m.status = "story copied to clipboard"
			}
			return m, nil
		case "n":
			m.story = nil
			m.err = nil
			m.status = ""
			m.showOpeningModal = true
			return m, nil
		}

	case advanceMsg:
		m.loading = false
		m.err = msg.err
		switch {
		case msg.err != nil:
		case msg.advance.Queued != nil:
			m.status = "queued request " + msg.advance.Queued.RequestID
			return m, refreshAfter(queuedRefreshWait)
		default:
			m.status = fmt.Sprintf("ran %d steps", len(msg.advance.Step.Results))
		}
		m.writeStoryContent()
		return m, m.refreshStory()

	case refreshMsg:
		return m, m.refreshStory()

	case storyMsg:
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.story = msg.story
			m.metaViewport.SetContent(writeMetadata(m.story))
		}
		m.writeStoryContent()

	case progressTickMsg:
		if m.loading {
			m.progressTick++
			m.writeStoryContent()
			return m, progressTick()
		}
	}

	m.storyViewport, vpCmd = m.storyViewport.Update(msg)
	m.metaViewport, mvCmd = m.metaViewport.Update(msg)
	return m, tea.Batch(vpCmd, mvCmd)
}

func (m ConsoleUI) advance(n int) (tea.Model, tea.Cmd) {
	if m.story.Ended {
		m.status = "the story has ended, press n for a new one"
		return m, nil
	}
	m.loading = true
	m.err = nil
	m.progressTick = 0
	m.writeStoryContent()

	id := m.story.Story.ID
	return m, tea.Batch(func() tea.Msg {
		adv, err := m.api.Step(id, n)
		return advanceMsg{adv, err}
	}, progressTick())
}

func (m ConsoleUI) refreshStory() tea.Cmd {
	id := m.story.Story.ID
	return func() tea.Msg {
		s, err := m.api.GetStory(id)
		return storyMsg{s, err}
	}
}

func (m ConsoleUI) loadOpenings() tea.Cmd {
	return func() tea.Msg {
		names, openingMap, err := m.api.ListOpenings()
		return openingsLoadedMsg{names, openingMap, err}
	}
}

func (m ConsoleUI) createStory(openingFile string) tea.Cmd {
	return func() tea.Msg {
		s, err := m.api.CreateStory(openingFile)
		return storyMsg{s, err}
	}
}

func (m ConsoleUI) updateOpeningModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case openingsLoadedMsg:
		m.loadingOpenings = false
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.openings = msg.openings
			m.openingMap = msg.openingMap
		}

	case storyMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.story = msg.story
		m.showOpeningModal = false
		if m.width > 0 && m.height > 0 {
			m.resize()
			m.ready = true
		}
		m.writeStoryContent()
		m.metaViewport.SetContent(writeMetadata(m.story))
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyEsc {
			if m.loadingOpenings {
				return m, tea.Quit
			}
			m.showQuitModal = true
			return m, nil
		}
		if m.loadingOpenings || m.loading || m.err != nil {
			return m, nil
		}

		switch msg.Type {
		case tea.KeyUp:
			if m.selectedOpening > 0 {
				m.selectedOpening--
			}
		case tea.KeyDown:
			if m.selectedOpening < len(m.openings)-1 {
				m.selectedOpening++
			}
		case tea.KeyEnter:
			if len(m.openings) > 0 {
				name := m.openings[m.selectedOpening]
				m.loading = true
				return m, m.createStory(m.openingMap[name])
			}
		}
	}

	return m, nil
}

func (m ConsoleUI) updateQuitModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc, tea.KeyEnter:
			return m, tea.Quit
		default:
			switch msg.String() {
			case "y", "Y":
				return m, tea.Quit
			case "n", "N":
				m.showQuitModal = false
				return m, nil
			}
		}
	}

	return m, nil
}

func (m ConsoleUI) renderQuitModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder
	content.WriteString(modalTitleStyle.Render("Quit?"))
	content.WriteString("\n\n")
	content.WriteString("Stories stay on the server until they expire.")
	content.WriteString("\n\n")
	content.WriteString(promptStyle.Render("Press Y to quit, N to continue, or Ctrl+C to force quit"))

	modal := modalStyle.Width(50).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) renderOpeningModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder

	switch {
	case m.loadingOpenings:
		content.WriteString(modalTitleStyle.Render("Loading Openings..."))
		content.WriteString("\n\n")
		content.WriteString(loadingStyle.Render("Please wait while we fetch available openings..."))
	case m.err != nil:
		content.WriteString(modalTitleStyle.Render("Error"))
		content.WriteString("\n\n")
		content.WriteString(errorStyle.Render(fmt.Sprintf("Failed to start a story: %v", m.err)))
		content.WriteString("\n\n")
		content.WriteString("Press Ctrl+C to exit")
	case m.loading:
		content.WriteString(modalTitleStyle.Render("Creating Story..."))
		content.WriteString("\n\n")
		content.WriteString(loadingStyle.Render("Placing the characters..."))
	default:
		content.WriteString(modalTitleStyle.Render("Select an Opening"))
		content.WriteString("\n\n")

		for i, name := range m.openings {
			if i == m.selectedOpening {
				content.WriteString(modalSelectedItemStyle.Render(fmt.Sprintf("▶ %s", name)))
			} else {
				content.WriteString(modalItemStyle.Render(fmt.Sprintf("  %s", name)))
			}
			content.WriteString("\n")
		}

		content.WriteString("\n")
		content.WriteString(promptStyle.Render("Use ↑/↓ to navigate, Enter to select, Ctrl+C to exit"))
	}

	modal := modalStyle.Width(60).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) View() string {
	if m.showQuitModal {
		return m.renderQuitModal()
	}
	if m.showOpeningModal {
		return m.renderOpeningModal()
	}
	if !m.ready {
		return "\n  Initializing..."
	}

	storyWidth := int(float64(m.width)*0.75) - 4
	metaWidth := m.width - storyWidth - 6

	storyPanel := storyPanelStyle.Width(storyWidth).Height(m.height - 3).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			m.storyViewport.View(),
			"",
			separatorStyle.Render(strings.Repeat("─", max(storyWidth-4, 1))),
			promptStyle.Render(m.status),
		),
	)

	metaPanel := metaPanelStyle.Width(metaWidth).Height(m.height - 2).Render(
		m.metaViewport.View(),
	)

	return lipgloss.JoinHorizontal(lipgloss.Top, storyPanel, metaPanel)
}

// renderProgressBar creates an animated progress bar for loading states
func (m ConsoleUI) renderProgressBar() string {
	usable := m.storyViewport.Width - 6
	if usable <= 0 {
		usable = 30 // fallback before sizing
	}
	if usable > 80 {
		usable = 80
	} else if usable < 10 {
		usable = 10
	}

	const totalFrames = 40
	frame := m.progressTick % totalFrames
	filled := (frame * usable) / totalFrames

	var bar strings.Builder
	for i := 0; i < usable; i++ {
		if i < filled {
			bar.WriteString("█")
		} else if i == filled && frame%4 < 2 {
			bar.WriteString("▓")
		} else {
			bar.WriteString("░")
		}
	}
	return separatorStyle.Render(bar.String())
}

// progressTick creates a command that sends a progress tick message
func progressTick() tea.Cmd {
	return tea.Tick(time.Millisecond*200, func(time.Time) tea.Msg {
		return progressTickMsg{}
	})
}

func refreshAfter(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg {
		return refreshMsg{}
	})
}
