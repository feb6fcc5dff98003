package scene

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tperrors "github.com/felixgeelhaar/taleyport/internal/errors"
)

func TestAdd(t *testing.T) {
	tests := []struct {
		name     string
		total    int
		existing []string
		input    string
		want     string
		wantCode tperrors.ErrorCode
		wantMsg  string
	}{
		{name: "valid", total: 5, input: "3", want: "3"},
		{name: "trims whitespace", total: 5, input: "  2 ", want: "2"},
		{name: "empty", total: 5, input: "   ", wantCode: tperrors.ErrCodeSceneEmpty, wantMsg: "please enter a scene number"},
		{name: "non numeric", total: 5, input: "abc", wantCode: tperrors.ErrCodeSceneInvalid, wantMsg: "must be a positive number"},
		{name: "zero", total: 5, input: "0", wantCode: tperrors.ErrCodeSceneInvalid, wantMsg: "must be a positive number"},
		{name: "negative", total: 5, input: "-1", wantCode: tperrors.ErrCodeSceneInvalid, wantMsg: "must be a positive number"},
		{name: "above total", total: 5, input: "7", wantCode: tperrors.ErrCodeSceneOutOfRange, wantMsg: "must be between 1 and 5"},
		{name: "upper bound inclusive", total: 5, input: "5", want: "5"},
		{name: "no story bound", total: 0, input: "40", want: "40"},
		{name: "duplicate", total: 5, existing: []string{"2"}, input: "2", wantCode: tperrors.ErrCodeSceneDuplicate, wantMsg: "already been added"},
		{name: "leading zero is canonical", total: 5, input: "03", want: "3"},
		{name: "plus sign is canonical", total: 5, input: "+4", want: "4"},
		{name: "leading zero duplicate", total: 5, existing: []string{"1"}, input: "01", wantCode: tperrors.ErrCodeSceneDuplicate, wantMsg: "already been added"},
		{name: "plus sign duplicate", total: 5, existing: []string{"1"}, input: "+1", wantCode: tperrors.ErrCodeSceneDuplicate, wantMsg: "already been added"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSelection(tt.total)
			for _, id := range tt.existing {
				_, err := s.Add(id)
				require.NoError(t, err)
			}

			got, err := s.Add(tt.input)
			if tt.wantCode != "" {
				require.Error(t, err)
				code, ok := tperrors.CodeOf(err)
				require.True(t, ok)
				assert.Equal(t, tt.wantCode, code)
				assert.Contains(t, err.Error(), tt.wantMsg)
				assert.Equal(t, len(tt.existing), s.Len(), "rejected input must not be added")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Contains(t, s.IDs(), tt.want)
		})
	}
}

func TestRemove(t *testing.T) {
	s := NewSelection(5)
	require.NoError(t, s.ParseList("1,2,3"))

	assert.True(t, s.Remove("2"))
	assert.False(t, s.Remove("2"))
	assert.Equal(t, []string{"1", "3"}, s.IDs())

	_, err := s.Add("2")
	assert.NoError(t, err, "a removed scene can be added again")
}

func TestReset(t *testing.T) {
	s := NewSelection(5)
	require.NoError(t, s.ParseList("4,5"))

	s.Reset(3)
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, 3, s.Total())

	_, err := s.Add("4")
	assert.ErrorIs(t, err, tperrors.Sentinel(tperrors.ErrCodeSceneOutOfRange))
}

func TestParseList(t *testing.T) {
	s := NewSelection(5)
	require.NoError(t, s.ParseList("1, 3,5"))
	assert.Equal(t, []string{"1", "3", "5"}, s.IDs())

	s = NewSelection(5)
	err := s.ParseList("1,9,2")
	assert.ErrorIs(t, err, tperrors.Sentinel(tperrors.ErrCodeSceneOutOfRange))
	assert.Equal(t, []string{"1"}, s.IDs())
}

func TestIDsReturnsCopy(t *testing.T) {
	s := NewSelection(0)
	_, err := s.Add("1")
	require.NoError(t, err)

	ids := s.IDs()
	ids[0] = "99"
	assert.Equal(t, []string{"1"}, s.IDs())
}
