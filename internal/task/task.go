// Package task holds the video generation domain model: per-scene task
// records, the batch they belong to and the merge of backend status
// results into that batch.
package task

import (
	"fmt"
	"strings"

	"github.com/felixgeelhaar/taleyport/internal/errors"
)

// Status is the backend-reported state of a single scene task.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// ParseStatus normalises a backend status string. "error" is an alias of
// failed; any other unknown value is kept verbatim.
func ParseStatus(s string) Status {
	v := strings.ToLower(strings.TrimSpace(s))
	switch v {
	case "error":
		return StatusFailed
	case string(StatusPending), string(StatusProcessing), string(StatusCompleted), string(StatusFailed):
		return Status(v)
	default:
		return Status(s)
	}
}

// IsTerminal reports whether no further transition is expected.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// SceneTask is the unit of remote video generation for one scene.
type SceneTask struct {
	SceneID  string `json:"scene_id"`
	TaskID   string `json:"task_id"`
	Status   Status `json:"status"`
	VideoURL string `json:"video_url,omitempty"`
}

// StatusUpdate is one entry of a status response.
type StatusUpdate struct {
	SceneID  string `json:"scene_id"`
	Status   Status `json:"status"`
	VideoURL string `json:"video_url,omitempty"`
}

// TaskBatch is the ordered set of tasks from one video submission.
type TaskBatch struct {
	StoryID string      `json:"story_id"`
	Tasks   []SceneTask `json:"tasks"`
}

// NewBatch builds a batch, rejecting empty task sets and duplicate scene ids.
func NewBatch(storyID string, tasks []SceneTask) (*TaskBatch, error) {
	if len(tasks) == 0 {
		return nil, errors.New(errors.ErrCodeBackendEmptyBatch, "backend returned no tasks").
			WithSuggestion("Check that the selected scenes exist for this story")
	}

	seen := make(map[string]struct{}, len(tasks))
	out := make([]SceneTask, 0, len(tasks))
	for _, t := range tasks {
		if _, dup := seen[t.SceneID]; dup {
			return nil, errors.NewSceneDuplicateError(t.SceneID)
		}
		seen[t.SceneID] = struct{}{}
		t.Status = ParseStatus(string(t.Status))
		if t.Status == "" {
			t.Status = StatusPending
		}
		out = append(out, t)
	}

	return &TaskBatch{StoryID: storyID, Tasks: out}, nil
}

// Reconcile merges status results into the batch and returns how many
// tasks changed. Results for unknown scenes are ignored, a result without
// a status keeps the task's current one, and terminal tasks are never moved
// back out of their terminal state.
func (b *TaskBatch) Reconcile(updates []StatusUpdate) int {
	if len(updates) == 0 {
		return 0
	}

	byScene := make(map[string]StatusUpdate, len(updates))
	for _, u := range updates {
		byScene[u.SceneID] = u
	}

	changed := 0
	for i := range b.Tasks {
		t := &b.Tasks[i]
		u, ok := byScene[t.SceneID]
		if !ok || t.Status.IsTerminal() {
			continue
		}
		status := t.Status
		if strings.TrimSpace(string(u.Status)) != "" {
			status = ParseStatus(string(u.Status))
		}
		if t.Status == status && t.VideoURL == u.VideoURL {
			continue
		}
		t.Status = status
		t.VideoURL = u.VideoURL
		changed++
	}
	return changed
}

// Done reports whether the batch is non-empty and every task is terminal.
func (b *TaskBatch) Done() bool {
	if b == nil || len(b.Tasks) == 0 {
		return false
	}
	for _, t := range b.Tasks {
		if !t.Status.IsTerminal() {
			return false
		}
	}
	return true
}

// Clone returns a deep copy.
func (b *TaskBatch) Clone() TaskBatch {
	if b == nil {
		return TaskBatch{}
	}
	tasks := make([]SceneTask, len(b.Tasks))
	copy(tasks, b.Tasks)
	return TaskBatch{StoryID: b.StoryID, Tasks: tasks}
}

// Counts tallies tasks per status.
type Counts struct {
	Pending    int
	Processing int
	Completed  int
	Failed     int
	Other      int
}

// Total is the number of tasks counted.
func (c Counts) Total() int {
	return c.Pending + c.Processing + c.Completed + c.Failed + c.Other
}

// Terminal is the number of tasks that reached a terminal state.
func (c Counts) Terminal() int {
	return c.Completed + c.Failed
}

// String renders a compact summary such as "2/3 done (1 failed)".
func (c Counts) String() string {
	s := fmt.Sprintf("%d/%d done", c.Terminal(), c.Total())
	if c.Failed > 0 {
		s += fmt.Sprintf(" (%d failed)", c.Failed)
	}
	return s
}

// Counts returns per-status tallies.
func (b *TaskBatch) Counts() Counts {
	var c Counts
	if b == nil {
		return c
	}
	for _, t := range b.Tasks {
		switch t.Status {
		case StatusPending:
			c.Pending++
		case StatusProcessing:
			c.Processing++
		case StatusCompleted:
			c.Completed++
		case StatusFailed:
			c.Failed++
		default:
			c.Other++
		}
	}
	return c
}

// VideoURLs returns the URLs of completed tasks in batch order.
func (b *TaskBatch) VideoURLs() []string {
	var urls []string
	for _, t := range b.Tasks {
		if t.Status == StatusCompleted && t.VideoURL != "" {
			urls = append(urls, t.VideoURL)
		}
	}
	return urls
}
