package prompt

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticReturnsDefaults(t *testing.T) {
	p := &Static{}

	v, err := p.Text("Description", "A statistics project")
	require.NoError(t, err)
	assert.Equal(t, "A statistics project", v)

	ok, err := p.Confirm("Delete the virtual environment?", false)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStaticUsesCannedAnswers(t *testing.T) {
	p := &Static{
		Answers:  map[string]string{"Description": "Custom"},
		Confirms: map[string]bool{"Delete the virtual environment?": true},
	}

	v, err := p.Text("Description", "ignored")
	require.NoError(t, err)
	assert.Equal(t, "Custom", v)

	ok, err := p.Confirm("Delete the virtual environment?", false)
	require.NoError(t, err)
	assert.True(t, ok)
}

func typeString(m tea.Model, s string) tea.Model {
	for _, r := range s {
		m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	return m
}

func TestTextModelTypedValue(t *testing.T) {
	var m tea.Model = newTextModel("Description", "default")
	m = typeString(m, "my project")
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})

	tm := m.(textModel)
	assert.True(t, tm.done)
	assert.Equal(t, "my project", tm.Value())
}

func TestTextModelEmptyFallsBack(t *testing.T) {
	var m tea.Model = newTextModel("Description", "default")
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})

	tm := m.(textModel)
	assert.Equal(t, "default", tm.Value())
}

func TestTextModelCancel(t *testing.T) {
	var m tea.Model = newTextModel("Description", "default")
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	assert.True(t, m.(textModel).canceled)
}

func TestConfirmModelKeys(t *testing.T) {
	var m tea.Model = newConfirmModel("Proceed?", false)
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'y'}})
	cm := m.(confirmModel)
	assert.True(t, cm.done)
	assert.True(t, cm.answer)

	m = newConfirmModel("Proceed?", true)
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'n'}})
	cm = m.(confirmModel)
	assert.True(t, cm.done)
	assert.False(t, cm.answer)

	// Enter keeps the default.
	m = newConfirmModel("Proceed?", true)
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	cm = m.(confirmModel)
	assert.True(t, cm.done)
	assert.True(t, cm.answer)
}
