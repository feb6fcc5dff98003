// Package scene validates the scene numbers a user selects for video
// generation.
package scene

import (
	"strconv"
	"strings"

	"github.com/felixgeelhaar/taleyport/internal/errors"
)

// Selection is an ordered set of scene ids bounded by a story's scene count.
// A total of zero disables the upper bound, which is the case while no
// story has been picked yet.
type Selection struct {
	total int
	ids   []string
}

// NewSelection creates an empty selection for a story with totalScenes scenes.
func NewSelection(totalScenes int) *Selection {
	return &Selection{total: totalScenes}
}

// Validate checks a single input against the selection without adding it.
// It returns the canonical id, so "01" and "+1" both become "1".
func (s *Selection) Validate(input string) (string, error) {
	id := strings.TrimSpace(input)
	if id == "" {
		return "", errors.NewSceneEmptyError()
	}

	n, err := strconv.Atoi(id)
	if err != nil || n < 1 {
		return "", errors.NewSceneInvalidError(id)
	}

	if s.total > 0 && n > s.total {
		return "", errors.NewSceneOutOfRangeError(n, s.total)
	}
	id = strconv.Itoa(n)

	for _, existing := range s.ids {
		if existing == id {
			return "", errors.NewSceneDuplicateError(id)
		}
	}

	return id, nil
}

// Add validates input and appends it to the selection.
func (s *Selection) Add(input string) (string, error) {
	id, err := s.Validate(input)
	if err != nil {
		return "", err
	}
	s.ids = append(s.ids, id)
	return id, nil
}

// Remove drops a scene id. It reports whether the id was present.
func (s *Selection) Remove(id string) bool {
	id = strings.TrimSpace(id)
	if n, err := strconv.Atoi(id); err == nil {
		id = strconv.Itoa(n)
	}
	for i, existing := range s.ids {
		if existing == id {
			s.ids = append(s.ids[:i], s.ids[i+1:]...)
			return true
		}
	}
	return false
}

// IDs returns a copy of the selected ids in insertion order.
func (s *Selection) IDs() []string {
	out := make([]string, len(s.ids))
	copy(out, s.ids)
	return out
}

// Len returns the number of selected scenes.
func (s *Selection) Len() int {
	return len(s.ids)
}

// Total returns the scene count the selection is bounded by.
func (s *Selection) Total() int {
	return s.total
}

// Reset clears the selection and rebinds it to a new scene count.
func (s *Selection) Reset(totalScenes int) {
	s.total = totalScenes
	s.ids = nil
}

// ParseList adds every comma separated entry of list in order, stopping at
// the first invalid one.
func (s *Selection) ParseList(list string) error {
	for _, part := range strings.Split(list, ",") {
		if _, err := s.Add(part); err != nil {
			return err
		}
	}
	return nil
}
