// Package tui hosts the toggle view in a terminal.
package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ryanhamamura/hellovia/views/toggle"
)

var (
	headingStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF8C00"))
	restStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#808080"))
	buttonStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#5A56E0")).Padding(0, 2)
	buttonOnStyle = buttonStyle.BorderForeground(lipgloss.Color("#04B575"))
)

type keyMap struct {
	Toggle key.Binding
	Quit   key.Binding
}

func (k keyMap) ShortHelp() []key.Binding  { return []key.Binding{k.Toggle, k.Quit} }
func (k keyMap) FullHelp() [][]key.Binding { return [][]key.Binding{k.ShortHelp()} }

var keys = keyMap{
	Toggle: key.NewBinding(key.WithKeys("enter", " ", "t"), key.WithHelp("enter/space", "toggle")),
	Quit:   key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("q", "quit")),
}

// Model is the bubbletea model for the toggle view.
type Model struct {
	state toggle.ViewState
	help  help.Model
}

// New returns a model in the initial toggle state.
func New(hello string) Model {
	return Model{state: toggle.NewState(hello), help: help.New()}
}

// State returns the current toggle state.
func (m Model) State() toggle.ViewState {
	return m.state
}

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, keys.Toggle):
			m.state = m.state.Flip()
		}
	case tea.WindowSizeMsg:
		m.help.Width = msg.Width
	}
	return m, nil
}

func (m Model) View() string {
	style := buttonStyle
	if m.state.Toggle {
		style = buttonOnStyle
	}
	var b strings.Builder
	b.WriteString(headingStyle.Render(fmt.Sprintf("Hello, %s", m.state.Hello)))
	b.WriteString("\n")
	b.WriteString(restStyle.Render(m.state.Rest()))
	b.WriteString("\n")
	b.WriteString(style.Render(toggle.Prompt(m.state.Toggle)))
	b.WriteString("\n")
	b.WriteString(m.help.View(keys))
	b.WriteString("\n")
	return b.String()
}

// Run starts the program on in/out and returns the final state.
func Run(hello string, in io.Reader, out io.Writer) (toggle.ViewState, error) {
	p := tea.NewProgram(New(hello), tea.WithInput(in), tea.WithOutput(out))
	final, err := p.Run()
	if err != nil {
		return toggle.ViewState{}, fmt.Errorf("tui: %w", err)
	}
	m, ok := final.(Model)
	if !ok {
		return toggle.ViewState{}, nil
	}
	return m.state, nil
}
