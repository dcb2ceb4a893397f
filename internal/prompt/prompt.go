// Package prompt collects the few interactive questions the CLI asks:
// project description, author identity and destructive-action confirmation.
package prompt

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
)

// Prompter asks the user for input. Implementations must be safe to call
// when no terminal is attached.
type Prompter interface {
	// Text asks for a free-form value, offering a default.
	Text(label, defaultValue string) (string, error)
	// Confirm asks a yes/no question.
	Confirm(question string, defaultYes bool) (bool, error)
}

// New returns a terminal-backed Prompter when stdin is a TTY, otherwise a
// Static one that answers every question with its default.
func New() Prompter {
	info, err := os.Stdin.Stat()
	if err == nil && info.Mode()&os.ModeCharDevice != 0 {
		return &TTY{}
	}
	return &Static{}
}

// TTY asks questions through small bubbletea programs.
type TTY struct{}

func (p *TTY) Text(label, defaultValue string) (string, error) {
	m := newTextModel(label, defaultValue)
	out, err := tea.NewProgram(m).Run()
	if err != nil {
		return "", fmt.Errorf("run prompt: %w", err)
	}
	final := out.(textModel)
	if final.canceled {
		return "", ErrCanceled
	}
	return final.Value(), nil
}

func (p *TTY) Confirm(question string, defaultYes bool) (bool, error) {
	m := newConfirmModel(question, defaultYes)
	out, err := tea.NewProgram(m).Run()
	if err != nil {
		return false, fmt.Errorf("run prompt: %w", err)
	}
	final := out.(confirmModel)
	if final.canceled {
		return false, ErrCanceled
	}
	return final.answer, nil
}

// Static answers from a canned table, falling back to defaults. It backs
// non-interactive runs and tests.
type Static struct {
	Answers  map[string]string
	Confirms map[string]bool
}

func (p *Static) Text(label, defaultValue string) (string, error) {
	if v, ok := p.Answers[label]; ok {
		return v, nil
	}
	return defaultValue, nil
}

func (p *Static) Confirm(question string, defaultYes bool) (bool, error) {
	if v, ok := p.Confirms[question]; ok {
		return v, nil
	}
	return defaultYes, nil
}

// ErrCanceled is returned when the user aborts a prompt.
var ErrCanceled = fmt.Errorf("prompt canceled")
