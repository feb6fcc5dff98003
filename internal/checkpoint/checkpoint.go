// Package checkpoint persists poll sessions so that a batch can be resumed
// after the CLI exits.
package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/zeebo/blake3"

	"github.com/felixgeelhaar/taleyport/internal/errors"
	"github.com/felixgeelhaar/taleyport/internal/task"
)

// Session statuses.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusStopped   = "stopped"
	StatusFailed    = "failed"
)

const stateVersion = "1"

// Metadata keys written by the CLI.
const (
	MetaImageURL   = "image_url"
	MetaFaceURL    = "face_url"
	MetaBackendURL = "backend_url"
)

// State is the persisted form of one poll session.
type State struct {
	Version   string            `json:"version"`
	SessionID string            `json:"session_id"`
	StoryID   string            `json:"story_id"`
	StartedAt time.Time         `json:"started_at"`
	UpdatedAt time.Time         `json:"updated_at"`
	Status    string            `json:"status"`
	Attempts  int               `json:"attempts"`
	Tasks     []task.SceneTask  `json:"tasks"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Digest    string            `json:"digest"`
}

// NewState creates a running state for batch with a fresh session id.
func NewState(batch task.TaskBatch) *State {
	now := time.Now().UTC()
	return &State{
		Version:   stateVersion,
		SessionID: uuid.NewString(),
		StoryID:   batch.StoryID,
		StartedAt: now,
		UpdatedAt: now,
		Status:    StatusRunning,
		Tasks:     batch.Clone().Tasks,
		Metadata:  make(map[string]string),
	}
}

// Update replaces the task list and attempt count from a poll snapshot.
func (s *State) Update(batch task.TaskBatch, attempts int) {
	s.Tasks = batch.Clone().Tasks
	s.Attempts = attempts
	if batch.Done() {
		s.Status = StatusCompleted
	}
}

// Batch rebuilds the task batch for resuming.
func (s *State) Batch() (*task.TaskBatch, error) {
	return task.NewBatch(s.StoryID, s.Tasks)
}

// Counts returns per-status tallies of the stored tasks.
func (s *State) Counts() task.Counts {
	b := task.TaskBatch{StoryID: s.StoryID, Tasks: s.Tasks}
	return b.Counts()
}

// SetMetadata sets a metadata key-value pair
func (s *State) SetMetadata(key, value string) {
	if s.Metadata == nil {
		s.Metadata = make(map[string]string)
	}
	s.Metadata[key] = value
}

// GetMetadata retrieves a metadata value
func (s *State) GetMetadata(key string) (string, bool) {
	value, ok := s.Metadata[key]
	return value, ok
}

// ComputeDigest hashes the fields that change while polling: status,
// attempts and the task list in scene order.
func (s *State) ComputeDigest() (string, error) {
	tasks := make([]task.SceneTask, len(s.Tasks))
	copy(tasks, s.Tasks)
	sort.SliceStable(tasks, func(i, j int) bool { return tasks[i].SceneID < tasks[j].SceneID })

	canonical, err := json.Marshal(struct {
		Status   string           `json:"status"`
		Attempts int              `json:"attempts"`
		Tasks    []task.SceneTask `json:"tasks"`
	}{s.Status, s.Attempts, tasks})
	if err != nil {
		return "", fmt.Errorf("canonicalize checkpoint: %w", err)
	}

	hasher := blake3.New()
	if _, err := hasher.Write(canonical); err != nil {
		return "", fmt.Errorf("hash checkpoint: %w", err)
	}
	return fmt.Sprintf("%x", hasher.Sum(nil)), nil
}

// Manager stores session states as JSON files in one directory.
type Manager struct {
	dir string
}

// NewManager creates a manager rooted at dir.
func NewManager(dir string) *Manager {
	return &Manager{dir: dir}
}

// Dir returns the checkpoint directory.
func (m *Manager) Dir() string {
	return m.dir
}

// checkSessionID rejects ids that would resolve outside the directory.
func checkSessionID(sessionID string) error {
	if sessionID == "" {
		return errors.New(errors.ErrCodeFileNotFound, "session id is empty")
	}
	if strings.ContainsAny(sessionID, `/\`) || strings.Contains(sessionID, "..") || filepath.Base(sessionID) != sessionID {
		return errors.New(errors.ErrCodeSessionIDInvalid, fmt.Sprintf("invalid session id: %q", sessionID)).
			WithSuggestion("Run 'taleyport sessions list' to see saved sessions")
	}
	return nil
}

func (m *Manager) path(sessionID string) string {
	return filepath.Join(m.dir, sessionID+".json")
}

// Save writes state unless its digest matches the stored one. It reports
// whether the file was written.
func (m *Manager) Save(state *State) (bool, error) {
	if state == nil {
		return false, errors.New(errors.ErrCodeFileWriteFailed, "checkpoint state is nil")
	}
	if err := checkSessionID(state.SessionID); err != nil {
		return false, err
	}

	digest, err := state.ComputeDigest()
	if err != nil {
		return false, errors.Wrap(errors.ErrCodeFileMarshal, "failed to hash checkpoint", err)
	}
	if digest == state.Digest && m.Exists(state.SessionID) {
		return false, nil
	}

	previous := state.Digest
	state.Digest = digest
	state.UpdatedAt = time.Now().UTC()

	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		state.Digest = previous
		return false, errors.Wrap(errors.ErrCodeDirectoryFailed, "failed to create checkpoint directory", err)
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		state.Digest = previous
		return false, errors.Wrap(errors.ErrCodeFileMarshal, "failed to marshal checkpoint state", err)
	}

	tmp := m.path(state.SessionID) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		state.Digest = previous
		return false, errors.Wrap(errors.ErrCodeFileWriteFailed, "failed to write checkpoint file", err)
	}
	if err := os.Rename(tmp, m.path(state.SessionID)); err != nil {
		_ = os.Remove(tmp)
		state.Digest = previous
		return false, errors.Wrap(errors.ErrCodeFileWriteFailed, "failed to write checkpoint file", err)
	}

	return true, nil
}

// Load reads a session state. A unique session id prefix is accepted.
func (m *Manager) Load(sessionID string) (*State, error) {
	id, err := m.resolve(sessionID)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(m.path(id))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeFileReadFailed, "failed to read checkpoint file", err)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, errors.NewFileUnmarshalError(m.path(id), "json", err)
	}

	return &state, nil
}

// resolve expands a session id prefix to a full id.
func (m *Manager) resolve(sessionID string) (string, error) {
	if err := checkSessionID(sessionID); err != nil {
		return "", err
	}
	if m.Exists(sessionID) {
		return sessionID, nil
	}

	ids, err := m.List()
	if err != nil {
		return "", err
	}
	var matches []string
	for _, id := range ids {
		if strings.HasPrefix(id, sessionID) {
			matches = append(matches, id)
		}
	}

	switch len(matches) {
	case 0:
		return "", errors.New(errors.ErrCodeFileNotFound, fmt.Sprintf("checkpoint not found: %s", sessionID)).
			WithSuggestion("Run 'taleyport sessions list' to see saved sessions")
	case 1:
		return matches[0], nil
	default:
		return "", errors.New(errors.ErrCodeFileNotFound, fmt.Sprintf("session id %q is ambiguous (%d matches)", sessionID, len(matches)))
	}
}

// Exists checks if a checkpoint exists for the given session id
func (m *Manager) Exists(sessionID string) bool {
	if checkSessionID(sessionID) != nil {
		return false
	}
	_, err := os.Stat(m.path(sessionID))
	return err == nil
}

// Delete removes a checkpoint file
func (m *Manager) Delete(sessionID string) error {
	id, err := m.resolve(sessionID)
	if err != nil {
		return err
	}
	if err := os.Remove(m.path(id)); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(errors.ErrCodeFileWriteFailed, "failed to delete checkpoint", err)
	}
	return nil
}

// List returns all stored session ids, sorted.
func (m *Manager) List() ([]string, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, errors.Wrap(errors.ErrCodeDirectoryFailed, "failed to read checkpoint directory", err)
	}

	ids := []string{}
	for _, entry := range entries {
		if !entry.IsDir() && filepath.Ext(entry.Name()) == ".json" {
			ids = append(ids, strings.TrimSuffix(entry.Name(), ".json"))
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// States loads every stored session, most recently updated first.
// Unreadable files are skipped.
func (m *Manager) States() ([]*State, error) {
	ids, err := m.List()
	if err != nil {
		return nil, err
	}

	states := make([]*State, 0, len(ids))
	for _, id := range ids {
		st, err := m.Load(id)
		if err != nil {
			continue
		}
		states = append(states, st)
	}
	sort.SliceStable(states, func(i, j int) bool { return states[i].UpdatedAt.After(states[j].UpdatedAt) })
	return states, nil
}
