package tui

import (
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/felixgeelhaar/taleyport/internal/poller"
	"github.com/felixgeelhaar/taleyport/internal/task"
	"github.com/felixgeelhaar/taleyport/internal/wizard"
)

// keyMap defines the keyboard shortcuts of the status view
type keyMap struct {
	Quit key.Binding
	Copy key.Binding
}

var statusKeys = keyMap{
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
	Copy: key.NewBinding(
		key.WithKeys("c"),
		key.WithHelp("c", "copy video URLs"),
	),
}

// EventMsg carries a poll event into the status view.
type EventMsg poller.Event

// SessionEndedMsg is sent once the poll session has ended.
type SessionEndedMsg struct {
	Err error
}

// StatusModel renders a batch of video tasks while it is being polled.
type StatusModel struct {
	session *poller.Session
	events  <-chan poller.Event
	batch   task.TaskBatch
	attempt int
	lastErr error
	notice  string

	ended    bool
	endErr   error
	quitting bool

	table   table.Model
	spinner spinner.Model
	styles  Styles
	width   int

	copyFn func(string) error
}

// NewStatusModel creates the status view for session. A nil session shows
// a static batch, which is how resumed finished sessions are rendered.
func NewStatusModel(session *poller.Session, batch task.TaskBatch) StatusModel {
	if session != nil {
		batch = session.Snapshot()
	}

	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "Scene", Width: 9},
			{Title: "Status", Width: 14},
			{Title: "Task ID", Width: 12},
			{Title: "Video URL", Width: 60},
		}),
		table.WithFocused(true),
		table.WithHeight(min(max(len(batch.Tasks), 1)+3, 15)),
	)
	ts := table.DefaultStyles()
	ts.Header = ts.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(true)
	ts.Selected = ts.Selected.
		Foreground(lipgloss.Color("230")).
		Background(lipgloss.Color("63"))
	t.SetStyles(ts)

	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("63"))

	m := StatusModel{
		session: session,
		batch:   batch,
		table:   t,
		spinner: sp,
		styles:  DefaultStyles(),
		ended:   session == nil,
		copyFn:  clipboard.WriteAll,
	}
	if session != nil {
		m.events = session.Updates()
	}
	m.table.SetRows(taskRows(batch))
	return m
}

// WithEvents makes the view read events from ch instead of the session's
// own channel, for callers that observe the session themselves. ch must be
// closed once the session has ended.
func (m StatusModel) WithEvents(ch <-chan poller.Event) StatusModel {
	m.events = ch
	return m
}

func taskRows(batch task.TaskBatch) []table.Row {
	rows := make([]table.Row, 0, len(batch.Tasks))
	for _, t := range batch.Tasks {
		url := t.VideoURL
		if url == "" {
			url = "Waiting..."
		}
		rows = append(rows, table.Row{
			"Scene " + t.SceneID,
			StatusLabel(t.Status),
			ShortTaskID(t.TaskID),
			url,
		})
	}
	return rows
}

// waitForEvent reads the next poll event, or reports the end of the session.
func waitForEvent(events <-chan poller.Event, s *poller.Session) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return SessionEndedMsg{Err: s.Err()}
		}
		return EventMsg(ev)
	}
}

// Init starts the spinner and the event reader.
func (m StatusModel) Init() tea.Cmd {
	if m.session == nil {
		return nil
	}
	return tea.Batch(m.spinner.Tick, waitForEvent(m.events, m.session))
}

// Update handles messages and updates the model state (required by Bubble Tea)
func (m StatusModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, statusKeys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, statusKeys.Copy):
			m.notice = m.copyURLs()
			return m, nil
		}
		var cmd tea.Cmd
		m.table, cmd = m.table.Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case EventMsg:
		m.batch = msg.Batch
		m.attempt = msg.Attempt
		m.lastErr = msg.Err
		m.table.SetRows(taskRows(m.batch))
		if m.session == nil {
			return m, nil
		}
		return m, waitForEvent(m.events, m.session)

	case SessionEndedMsg:
		m.ended = true
		m.endErr = msg.Err
		if m.session != nil {
			m.batch = m.session.Snapshot()
			m.table.SetRows(taskRows(m.batch))
		}
		return m, nil

	case spinner.TickMsg:
		if m.ended {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m StatusModel) copyURLs() string {
	urls := m.batch.VideoURLs()
	if len(urls) == 0 {
		return "No videos are ready yet"
	}
	if err := m.copyFn(strings.Join(urls, "\n")); err != nil {
		return "Copy failed: " + err.Error()
	}
	if len(urls) == 1 {
		return "Copied 1 video URL"
	}
	return fmt.Sprintf("Copied %d video URLs", len(urls))
}

// View renders the TUI (required by Bubble Tea)
func (m StatusModel) View() string {
	var b strings.Builder

	b.WriteString(m.styles.StepIndicator(wizard.StepVideo))
	b.WriteString("\n\n")
	b.WriteString(m.styles.Title.Render("🎬 Video Generation Status"))
	b.WriteString("\n")
	if m.batch.StoryID != "" {
		b.WriteString(m.styles.Muted.Render("Story: ") + m.batch.StoryID)
		b.WriteString("\n\n")
	}

	b.WriteString(m.table.View())
	b.WriteString("\n\n")

	b.WriteString(m.statusLine())
	b.WriteString("\n")

	if m.lastErr != nil && !m.ended {
		b.WriteString(m.styles.Warning.Render("⚠ Last status check failed: ") + firstLine(m.lastErr))
		b.WriteString("\n")
	}
	if m.notice != "" {
		b.WriteString(m.styles.Muted.Render(m.notice))
		b.WriteString("\n")
	}

	b.WriteString(m.helpLine())
	return b.String()
}

func (m StatusModel) statusLine() string {
	counts := m.batch.Counts()

	switch {
	case m.batch.Done() && counts.Failed == 0:
		return m.styles.Border.BorderForeground(lipgloss.Color("46")).Render(
			m.styles.Success.Render("🎉 All videos generated successfully!") + "\n" +
				m.styles.Muted.Render("All your videos are ready to view and download"))
	case m.batch.Done():
		return m.styles.Warning.Render(fmt.Sprintf("Finished: %d completed, %d failed", counts.Completed, counts.Failed))
	case m.ended && m.endErr != nil:
		return m.styles.Error.Render("Polling ended: ") + firstLine(m.endErr)
	case m.ended:
		return m.styles.Muted.Render(counts.String())
	default:
		return fmt.Sprintf("%s Checking video status (attempt %d)  %s",
			m.spinner.View(), m.attempt, m.styles.Muted.Render(counts.String()))
	}
}

func (m StatusModel) helpLine() string {
	parts := []string{
		m.styles.Key.Render("c") + " " + m.styles.KeyDesc.Render("copy video URLs"),
		m.styles.Key.Render("↑/↓") + " " + m.styles.KeyDesc.Render("scroll"),
		m.styles.Key.Render("q") + " " + m.styles.KeyDesc.Render("quit"),
	}
	return m.styles.Help.Render(strings.Join(parts, "  •  "))
}

// Batch returns the last rendered batch.
func (m StatusModel) Batch() task.TaskBatch {
	return m.batch
}

// Quitting reports whether the user asked to leave the view.
func (m StatusModel) Quitting() bool {
	return m.quitting
}

func firstLine(err error) string {
	s := err.Error()
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return s
}
