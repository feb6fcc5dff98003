// Package progress renders poll progress as plain text for CI logs and
// non-interactive terminals.
package progress

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/felixgeelhaar/taleyport/internal/checkpoint"
	"github.com/felixgeelhaar/taleyport/internal/task"
)

// Indicator tracks a batch and prints progress as polls come in.
type Indicator struct {
	writer      io.Writer
	batch       task.TaskBatch
	seen        map[string]task.Status
	startTime   time.Time
	mu          sync.Mutex
	showSpinner bool
	spinnerIdx  int
	stopChan    chan struct{}
	stopOnce    sync.Once
	isCI        bool
}

// Config holds configuration for progress indicator
type Config struct {
	Writer      io.Writer
	ShowSpinner bool
	IsCI        bool // disables the spinner and cursor tricks
}

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// NewIndicator creates a new progress indicator
func NewIndicator(cfg Config) *Indicator {
	if cfg.Writer == nil {
		cfg.Writer = os.Stdout
	}

	if !cfg.IsCI {
		cfg.IsCI = os.Getenv("CI") == "true" || os.Getenv("GITHUB_ACTIONS") == "true"
	}

	return &Indicator{
		writer:      cfg.Writer,
		seen:        make(map[string]task.Status),
		startTime:   time.Now(),
		showSpinner: cfg.ShowSpinner && !cfg.IsCI,
		stopChan:    make(chan struct{}),
		isCI:        cfg.IsCI,
	}
}

// Start begins the spinner, if enabled.
func (p *Indicator) Start() {
	if p.showSpinner {
		go p.spinnerLoop()
	}
}

// Stop stops the progress indicator
func (p *Indicator) Stop() {
	p.stopOnce.Do(func() {
		if p.showSpinner {
			close(p.stopChan)
			p.mu.Lock()
			fmt.Fprintf(p.writer, "\r%s\r", strings.Repeat(" ", 80))
			p.mu.Unlock()
		}
	})
}

func (p *Indicator) spinnerLoop() {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopChan:
			return
		case <-ticker.C:
			p.mu.Lock()
			if len(p.batch.Tasks) > 0 {
				p.renderProgress()
			}
			p.spinnerIdx = (p.spinnerIdx + 1) % len(spinnerFrames)
			p.mu.Unlock()
		}
	}
}

func (p *Indicator) renderProgress() {
	c := p.batch.Counts()
	total := c.Total()
	if total == 0 {
		return
	}
	ratio := float64(c.Terminal()) / float64(total)

	barWidth := 30
	filled := int(float64(barWidth) * ratio)
	bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)

	fmt.Fprintf(p.writer, "\r%s [%s] %d/%d scenes | ✓ %d | ✗ %d | %s",
		spinnerFrames[p.spinnerIdx],
		bar,
		c.Terminal(),
		total,
		c.Completed,
		c.Failed,
		formatDuration(time.Since(p.startTime)),
	)
}

// Observe records a batch snapshot and prints one line for every task whose
// status changed since the previous snapshot.
func (p *Indicator) Observe(batch task.TaskBatch) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.batch = batch
	for _, t := range batch.Tasks {
		if prev, ok := p.seen[t.SceneID]; ok && prev == t.Status {
			continue
		}
		p.seen[t.SceneID] = t.Status
		if p.showSpinner {
			fmt.Fprint(p.writer, "\r\033[K")
		}
		p.printTaskStatus(t)
	}
}

// ObserveError prints a failed poll.
func (p *Indicator) ObserveError(attempt int, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.showSpinner {
		fmt.Fprint(p.writer, "\r\033[K")
	}
	fmt.Fprintf(p.writer, "⚠ poll %d failed: %v (will retry)\n", attempt, firstLine(err))
}

func (p *Indicator) printTaskStatus(t task.SceneTask) {
	symbol := "⟲"
	switch t.Status {
	case task.StatusProcessing:
		symbol = "▶"
	case task.StatusCompleted:
		symbol = "✓"
	case task.StatusFailed:
		symbol = "✗"
	}

	msg := fmt.Sprintf("%s scene %s [%s]", symbol, t.SceneID, t.Status)
	if t.VideoURL != "" {
		msg += " " + t.VideoURL
	}
	fmt.Fprintln(p.writer, msg)
}

// PrintSummary prints the final state of the batch.
func (p *Indicator) PrintSummary() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.batch.Tasks) == 0 {
		return
	}

	c := p.batch.Counts()
	fmt.Fprintln(p.writer)
	fmt.Fprintln(p.writer, "═══════════════════════════════════════════════════════════")
	fmt.Fprintln(p.writer, "Video Generation Summary")
	fmt.Fprintln(p.writer, "═══════════════════════════════════════════════════════════")
	fmt.Fprintf(p.writer, "Story:           %s\n", p.batch.StoryID)
	fmt.Fprintf(p.writer, "Scenes:          %d\n", c.Total())
	fmt.Fprintf(p.writer, "Completed:       %d ✓\n", c.Completed)
	fmt.Fprintf(p.writer, "Failed:          %d ✗\n", c.Failed)
	if pending := c.Total() - c.Terminal(); pending > 0 {
		fmt.Fprintf(p.writer, "Still running:   %d ⟲\n", pending)
	}
	fmt.Fprintf(p.writer, "Total Time:      %s\n", formatDuration(time.Since(p.startTime)))
	fmt.Fprintln(p.writer, "═══════════════════════════════════════════════════════════")

	if urls := p.batch.VideoURLs(); len(urls) > 0 {
		fmt.Fprintln(p.writer)
		fmt.Fprintln(p.writer, "Videos:")
		for _, t := range p.batch.Tasks {
			if t.Status == task.StatusCompleted && t.VideoURL != "" {
				fmt.Fprintf(p.writer, "  scene %s: %s\n", t.SceneID, t.VideoURL)
			}
		}
	}
}

// PrintResumeInfo prints the stored state of a session being resumed.
func (p *Indicator) PrintResumeInfo(state *checkpoint.State) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if state == nil {
		return
	}

	c := state.Counts()
	fmt.Fprintln(p.writer, "─────────────────────────────────────────────────────────")
	fmt.Fprintf(p.writer, "Resuming: %s (story %s)\n", state.SessionID, state.StoryID)
	fmt.Fprintln(p.writer, "─────────────────────────────────────────────────────────")
	fmt.Fprintf(p.writer, "  Completed:  %d scenes ✓\n", c.Completed)
	fmt.Fprintf(p.writer, "  Pending:    %d scenes ⟲\n", c.Total()-c.Terminal())
	fmt.Fprintf(p.writer, "  Failed:     %d scenes ✗\n", c.Failed)
	fmt.Fprintf(p.writer, "  Polls:      %d\n", state.Attempts)
	fmt.Fprintln(p.writer, "─────────────────────────────────────────────────────────")
	fmt.Fprintln(p.writer)
}

func firstLine(err error) string {
	if err == nil {
		return ""
	}
	s := err.Error()
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// formatDuration formats a duration for display
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh%dm%ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm%ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}
