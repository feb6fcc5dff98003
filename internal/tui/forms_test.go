package tui

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/taleyport/internal/backend"
	tperrors "github.com/felixgeelhaar/taleyport/internal/errors"
	"github.com/felixgeelhaar/taleyport/internal/wizard"
)

var testStories = []backend.Story{
	{ID: "s1", Name: "Jungle Adventure", TotalScenes: 5},
	{ID: "s2", Name: "Space Trip", TotalScenes: 3},
}

func TestValidateSceneList(t *testing.T) {
	tests := []struct {
		name    string
		list    string
		storyID string
		code    tperrors.ErrorCode
	}{
		{"valid", "1, 3,5", "s1", ""},
		{"out of range", "1,4", "s2", tperrors.ErrCodeSceneOutOfRange},
		{"duplicate", "2,2", "s1", tperrors.ErrCodeSceneDuplicate},
		{"not a number", "1,x", "s1", tperrors.ErrCodeSceneInvalid},
		{"empty", "", "s1", tperrors.ErrCodeSceneEmpty},
		{"unknown story has no bound", "40", "zz", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateSceneList(tt.list, testStories, tt.storyID)
			if tt.code == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tperrors.Sentinel(tt.code))
		})
	}
}

func TestSplitScenes(t *testing.T) {
	assert.Equal(t, []string{"1", "3", "5"}, splitScenes(" 1, 3 ,5"))
	assert.Nil(t, splitScenes(""))
}

func TestValidateImagePath(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "a.png")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	assert.NoError(t, validateImagePath(file))
	assert.Error(t, validateImagePath(""))
	assert.Error(t, validateImagePath(dir))
	assert.Error(t, validateImagePath(filepath.Join(dir, "missing.png")))
}

func TestValidateURLs(t *testing.T) {
	assert.NoError(t, validateOptionalURL(""))
	assert.NoError(t, validateOptionalURL("https://cdn/a.png"))
	assert.Error(t, validateOptionalURL("cdn/a.png"))
	assert.Error(t, validateRequiredURL(" "))
	assert.NoError(t, validateRequiredURL("http://localhost:5001/x.png"))
}

func TestFormsBuild(t *testing.T) {
	var up UploadInput
	assert.NotNil(t, NewUploadForm(&up))
	assert.Equal(t, choiceUpload, up.Mode)

	mode := ""
	form := wizard.DefaultAudioForm()
	assert.NotNil(t, NewAudioForm(&mode, &form, testStories))
	assert.Equal(t, choiceGenerate, mode)

	assert.NotNil(t, NewVideoForm(&VideoInput{StoryID: "s1"}, testStories))
}
