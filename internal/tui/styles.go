package tui

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/felixgeelhaar/taleyport/internal/task"
	"github.com/felixgeelhaar/taleyport/internal/wizard"
)

// Styles contains lipgloss styles for the TUI
type Styles struct {
	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Error    lipgloss.Style
	Success  lipgloss.Style
	Warning  lipgloss.Style
	Muted    lipgloss.Style
	Border   lipgloss.Style
	Help     lipgloss.Style
	Key      lipgloss.Style
	KeyDesc  lipgloss.Style

	StepCurrent lipgloss.Style
	StepDone    lipgloss.Style
	StepTodo    lipgloss.Style

	Pending    lipgloss.Style
	Processing lipgloss.Style
	Completed  lipgloss.Style
	Failed     lipgloss.Style
	Unknown    lipgloss.Style
}

// DefaultStyles returns the default lipgloss styles
func DefaultStyles() Styles {
	return Styles{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("63")). // Purple
			MarginBottom(1),
		Subtitle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")),
		Error: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196")),
		Success: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("46")),
		Warning: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("226")),
		Muted: lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")),
		Border: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 2),
		Help: lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			MarginTop(1),
		Key: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("63")),
		KeyDesc: lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")),

		StepCurrent: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("255")).
			Padding(0, 1),
		StepDone: lipgloss.NewStyle().
			Foreground(lipgloss.Color("46")),
		StepTodo: lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")),

		Pending:    lipgloss.NewStyle().Foreground(lipgloss.Color("220")), // Yellow
		Processing: lipgloss.NewStyle().Foreground(lipgloss.Color("39")),  // Blue
		Completed:  lipgloss.NewStyle().Foreground(lipgloss.Color("46")),
		Failed:     lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		Unknown:    lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
	}
}

// StatusLabel is the plain text badge of a status.
func StatusLabel(s task.Status) string {
	switch s {
	case task.StatusPending:
		return "⏳ Pending"
	case task.StatusProcessing:
		return "⚙ Processing"
	case task.StatusCompleted:
		return "✅ Completed"
	case task.StatusFailed:
		return "❌ Failed"
	default:
		return string(s)
	}
}

// Badge renders the coloured status badge.
func (s Styles) Badge(status task.Status) string {
	style := s.Unknown
	switch status {
	case task.StatusPending:
		style = s.Pending
	case task.StatusProcessing:
		style = s.Processing
	case task.StatusCompleted:
		style = s.Completed
	case task.StatusFailed:
		style = s.Failed
	}
	return style.Render(StatusLabel(status))
}

// StepIndicator renders "1 Upload Image › 2 Generate Audio › 3 Generate Video"
// with finished steps ticked and the current one highlighted.
func (s Styles) StepIndicator(current wizard.Step) string {
	parts := make([]string, 0, len(wizard.Steps))
	for _, step := range wizard.Steps {
		switch {
		case step == current:
			parts = append(parts, s.StepCurrent.Render(stepText(step, false)))
		case step < current:
			parts = append(parts, s.StepDone.Render(stepText(step, true)))
		default:
			parts = append(parts, s.StepTodo.Render(stepText(step, false)))
		}
	}
	return strings.Join(parts, s.Muted.Render(" › "))
}

func stepText(step wizard.Step, done bool) string {
	if done {
		return "✓ " + step.String()
	}
	return strconv.Itoa(step.Number()) + " " + step.String()
}

// ShortTaskID is the first eight characters of a task id followed by "...".
func ShortTaskID(id string) string {
	if len(id) > 8 {
		id = id[:8]
	}
	return id + "..."
}
