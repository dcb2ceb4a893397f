package prompt

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var labelStyle = lipgloss.NewStyle().Bold(true)

type textModel struct {
	label    string
	fallback string
	input    textinput.Model
	done     bool
	canceled bool
}

func newTextModel(label, defaultValue string) textModel {
	in := textinput.New()
	in.Placeholder = defaultValue
	in.Focus()
	return textModel{label: label, fallback: defaultValue, input: in}
}

func (m textModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m textModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyEnter:
			m.done = true
			return m, tea.Quit
		case tea.KeyCtrlC, tea.KeyEsc:
			m.canceled = true
			return m, tea.Quit
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m textModel) View() string {
	if m.done || m.canceled {
		return ""
	}
	return labelStyle.Render(m.label) + "\n" + m.input.View() + "\n"
}

// Value returns the typed answer, or the default when left empty.
func (m textModel) Value() string {
	v := strings.TrimSpace(m.input.Value())
	if v == "" {
		return m.fallback
	}
	return v
}

type confirmModel struct {
	question string
	answer   bool
	done     bool
	canceled bool
}

func newConfirmModel(question string, defaultYes bool) confirmModel {
	return confirmModel{question: question, answer: defaultYes}
}

func (m confirmModel) Init() tea.Cmd {
	return nil
}

func (m confirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.Type {
	case tea.KeyEnter:
		m.done = true
		return m, tea.Quit
	case tea.KeyCtrlC, tea.KeyEsc:
		m.canceled = true
		return m, tea.Quit
	}
	switch strings.ToLower(key.String()) {
	case "y":
		m.answer = true
		m.done = true
		return m, tea.Quit
	case "n":
		m.answer = false
		m.done = true
		return m, tea.Quit
	}
	return m, nil
}

func (m confirmModel) View() string {
	if m.done || m.canceled {
		return ""
	}
	hint := "[y/N]"
	if m.answer {
		hint = "[Y/n]"
	}
	return labelStyle.Render(m.question) + " " + hint + "\n"
}
