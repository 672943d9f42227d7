package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/tessellary/ideastream/types"
)

// RunInfo identifies the run shown in the header.
type RunInfo struct {
	Title    string
	Model    string
	Provider string
}

// StateMsg delivers a pipeline state snapshot to the view.
type StateMsg types.PipelineState

// EndMsg delivers the terminal outcome.
type EndMsg types.Outcome

// NavigateMsg delivers the result location on success.
type NavigateMsg struct {
	Target string
}

// keyMap defines key bindings.
type keyMap struct {
	Quit key.Binding
}

var keys = keyMap{
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

// RunModel is the Bubble Tea model for a live generation run.
type RunModel struct {
	info   RunInfo
	cancel func()

	spinner  spinner.Model
	viewport viewport.Model
	ready    bool

	state    types.PipelineState
	outcome  *types.Outcome
	target   string
	canceled bool
	quitting bool

	width  int
	height int
}

// NewRunModel creates the run view. cancel aborts the underlying run and
// is invoked at most once.
func NewRunModel(info RunInfo, cancel func()) RunModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = StreamingStyle

	return RunModel{
		info:    info,
		cancel:  cancel,
		spinner: s,
		state:   types.NewPipelineState(),
	}
}

// Init implements tea.Model.
func (m RunModel) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update implements tea.Model.
func (m RunModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		vpHeight := msg.Height - 8
		if vpHeight < 3 {
			vpHeight = 3
		}
		if !m.ready {
			m.viewport = viewport.New(msg.Width-4, vpHeight)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width - 4
			m.viewport.Height = vpHeight
		}
		m.viewport.SetContent(m.state.Text)
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) {
			if m.outcome != nil {
				m.quitting = true
				return m, tea.Quit
			}
			// Mid-run: cancel and keep the view open until the end
			// notification arrives.
			if !m.canceled && m.cancel != nil {
				m.canceled = true
				m.cancel()
			}
			return m, nil
		}
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case StateMsg:
		atBottom := !m.ready || m.viewport.AtBottom()
		m.state = types.PipelineState(msg)
		if m.ready {
			m.viewport.SetContent(m.state.Text)
			if atBottom {
				m.viewport.GotoBottom()
			}
		}
		return m, nil

	case EndMsg:
		out := types.Outcome(msg)
		m.outcome = &out
		return m, nil

	case NavigateMsg:
		m.target = msg.Target
		return m, nil

	case spinner.TickMsg:
		if m.outcome != nil {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m RunModel) View() string {
	if m.quitting {
		return ""
	}

	header := TitleStyle.Render(m.info.Title) + "\n" +
		LabelStyle.Render(fmt.Sprintf("%s via %s", m.info.Model, m.info.Provider))

	body := m.state.Text
	if m.ready {
		body = BoxStyle.Render(m.viewport.View())
	}

	help := "q: quit"
	if m.outcome == nil {
		help = "q: cancel"
	}

	return fmt.Sprintf("%s\n\n%s\n%s\n%s",
		header,
		m.statusLine(),
		body,
		HelpStyle.Render(help),
	)
}

func (m RunModel) statusLine() string {
	switch m.state.Phase {
	case types.PhaseStreaming:
		return m.spinner.View() + StreamingStyle.Render("streaming")
	case types.PhaseSummarizing:
		return m.spinner.View() + StreamingStyle.Render("summarizing")
	case types.PhaseSucceeded:
		line := SuccessStyle.Render(fmt.Sprintf("✓ succeeded (conversation %d)", m.state.ResultID))
		if m.target != "" {
			line += LabelStyle.Render("  → " + m.target)
		}
		return line
	case types.PhaseFailed:
		return ErrorStyle.Render("✗ failed: " + m.state.Err)
	default:
		return LabelStyle.Render("idle")
	}
}
