// Package report accumulates per-step outcomes and renders the final summary.
package report

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"statproj/internal/errs"
)

// Status is the outcome of a single workflow step.
type Status string

const (
	StatusOK      Status = "ok"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
	StatusWarning Status = "warning"
)

// StepResult records the outcome of one step of a command invocation.
type StepResult struct {
	Name    string
	Status  Status
	Message string
	Hint    string // actionable next step, shown for failures
}

// Summary collects step results over a single invocation. It is discarded
// when the process exits; nothing here is persisted.
type Summary struct {
	steps []StepResult
}

func NewSummary() *Summary {
	return &Summary{}
}

// Add appends a step result.
func (s *Summary) Add(r StepResult) {
	s.steps = append(s.steps, r)
}

// OK records a successful step.
func (s *Summary) OK(name, message string) {
	s.Add(StepResult{Name: name, Status: StatusOK, Message: message})
}

// Skip records a step that was intentionally not run.
func (s *Summary) Skip(name, message string) {
	s.Add(StepResult{Name: name, Status: StatusSkipped, Message: message})
}

// Warn records a non-fatal failure.
func (s *Summary) Warn(name, message string) {
	s.Add(StepResult{Name: name, Status: StatusWarning, Message: message})
}

// Fail records a fatal step failure from a coded error.
func (s *Summary) Fail(name string, err error) {
	s.Add(StepResult{
		Name:    name,
		Status:  StatusFailed,
		Message: err.Error(),
		Hint:    errs.HintOf(err),
	})
}

// Steps returns the recorded results in order.
func (s *Summary) Steps() []StepResult {
	return s.steps
}

// Failed reports whether any step failed fatally.
func (s *Summary) Failed() bool {
	for _, r := range s.steps {
		if r.Status == StatusFailed {
			return true
		}
	}
	return false
}

// Counts returns (succeeded, failed, skipped, warnings).
func (s *Summary) Counts() (ok, failed, skipped, warned int) {
	for _, r := range s.steps {
		switch r.Status {
		case StatusOK:
			ok++
		case StatusFailed:
			failed++
		case StatusSkipped:
			skipped++
		case StatusWarning:
			warned++
		}
	}
	return
}

var (
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	skipStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

func styledStatus(st Status) string {
	switch st {
	case StatusOK:
		return okStyle.Render("ok")
	case StatusFailed:
		return failStyle.Render("failed")
	case StatusSkipped:
		return skipStyle.Render("skipped")
	case StatusWarning:
		return warnStyle.Render("warning")
	}
	return string(st)
}

// Render writes the summary table followed by a one-line tally and the hints
// for any failed steps.
func (s *Summary) Render(w io.Writer) {
	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		Headers("STEP", "STATUS", "DETAIL")

	for _, r := range s.steps {
		tbl.Row(r.Name, styledStatus(r.Status), r.Message)
	}
	fmt.Fprintln(w, tbl.String())

	ok, failed, skipped, warned := s.Counts()
	fmt.Fprintf(w, "%d succeeded, %d failed, %d skipped", ok, failed, skipped)
	if warned > 0 {
		fmt.Fprintf(w, ", %d warning(s)", warned)
	}
	fmt.Fprintln(w)

	for _, r := range s.steps {
		if r.Status == StatusFailed && r.Hint != "" {
			fmt.Fprintf(w, "next step: %s\n", r.Hint)
		}
	}
}
