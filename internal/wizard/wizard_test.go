package wizard

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/taleyport/internal/backend"
	tperrors "github.com/felixgeelhaar/taleyport/internal/errors"
	"github.com/felixgeelhaar/taleyport/internal/poller"
	"github.com/felixgeelhaar/taleyport/internal/task"
)

var png = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

type fakeBackend struct {
	mu         sync.Mutex
	stories    []backend.Story
	uploadErr  error
	videoErr   error
	audioReqs  []backend.AudioRequest
	videoReqs  []backend.VideoRequest
	uploads    int
	statusDone bool
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		stories: []backend.Story{
			{ID: "s1", Name: "Jungle Adventure", TotalScenes: 5},
			{ID: "s2", Name: "Space Trip", TotalScenes: 3},
		},
	}
}

func (f *fakeBackend) ListStories(context.Context) ([]backend.Story, error) {
	return f.stories, nil
}

func (f *fakeBackend) UploadImages(_ context.Context, _, _ backend.ImageFile) (*backend.UploadResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads++
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	return &backend.UploadResponse{
		Image1: &backend.UploadedImage{Filename: "a.png", URL: "https://cdn/a.png"},
		Image2: &backend.UploadedImage{Filename: "b.png", URL: "https://cdn/b.png"},
	}, nil
}

func (f *fakeBackend) GenerateAudio(_ context.Context, req backend.AudioRequest) (*backend.AudioResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.audioReqs = append(f.audioReqs, req)
	return &backend.AudioResponse{AudioURL: "https://cdn/audio.mp3", StoryName: "Jungle Adventure"}, nil
}

func (f *fakeBackend) GenerateVideos(_ context.Context, req backend.VideoRequest) (*task.TaskBatch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.videoReqs = append(f.videoReqs, req)
	if f.videoErr != nil {
		return nil, f.videoErr
	}
	tasks := make([]task.SceneTask, 0, len(req.SceneIDs))
	for _, id := range req.SceneIDs {
		tasks = append(tasks, task.SceneTask{SceneID: id, TaskID: "task-" + id, Status: task.StatusPending})
	}
	return task.NewBatch(req.StoryID, tasks)
}

func (f *fakeBackend) videoCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.videoReqs)
}

// pendingFetcher never finishes, so sessions stay alive until stopped.
func pendingFetcher() poller.Fetcher {
	return poller.FetcherFunc(func(context.Context, string, []task.SceneTask) ([]task.StatusUpdate, error) {
		return nil, nil
	})
}

func newWizard(t *testing.T, b *fakeBackend) *Wizard {
	t.Helper()
	p := poller.New(pendingFetcher(), poller.WithInterval(5*time.Millisecond))
	w := New(b, p)
	t.Cleanup(w.Close)
	return w
}

// toVideo walks a wizard to the video step with uploaded images, story s1
// and scenes 1 and 3.
func toVideo(t *testing.T, w *Wizard) {
	t.Helper()
	ctx := context.Background()
	_, err := w.LoadStories(ctx)
	require.NoError(t, err)
	require.NoError(t, w.SetImages(backend.ImageFile{Filename: "a.png", Data: png}, backend.ImageFile{Filename: "b.png", Data: png}))
	_, err = w.Upload(ctx)
	require.NoError(t, err)
	require.NoError(t, w.SkipAudio())
	require.NoError(t, w.SelectStory("s1"))
	_, err = w.AddScene("1")
	require.NoError(t, err)
	_, err = w.AddScene(" 3 ")
	require.NoError(t, err)
}

func TestNewStartsAtUpload(t *testing.T) {
	w := newWizard(t, newFakeBackend())
	assert.Equal(t, StepUpload, w.Step())
	assert.Equal(t, "English", w.AudioForm().Language)
	assert.Nil(t, w.Session())
}

func TestStepString(t *testing.T) {
	assert.Equal(t, "Upload Image", StepUpload.String())
	assert.Equal(t, "Generate Audio", StepAudio.String())
	assert.Equal(t, "Generate Video", StepVideo.String())
	assert.Equal(t, 3, StepVideo.Number())
}

func TestUploadPrefillsURLs(t *testing.T) {
	b := newFakeBackend()
	w := newWizard(t, b)

	_, err := w.Upload(context.Background())
	assert.ErrorIs(t, err, tperrors.Sentinel(tperrors.ErrCodeWizardImagesMissing))

	err = w.SetImages(backend.ImageFile{Filename: "a.png"}, backend.ImageFile{Filename: "b.png", Data: png})
	assert.ErrorIs(t, err, tperrors.Sentinel(tperrors.ErrCodeWizardImagesMissing))

	require.NoError(t, w.SetImages(backend.ImageFile{Filename: "a.png", Data: png}, backend.ImageFile{Filename: "b.png", Data: png}))
	resp, err := w.Upload(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "https://cdn/a.png", resp.ImageURL())

	image, face := w.URLs()
	assert.Equal(t, "https://cdn/a.png", image)
	assert.Equal(t, "https://cdn/b.png", face)
	assert.Equal(t, StepAudio, w.Step())
}

func TestUploadFailureKeepsStep(t *testing.T) {
	b := newFakeBackend()
	b.uploadErr = errors.New("boom")
	w := newWizard(t, b)

	require.NoError(t, w.SetImages(backend.ImageFile{Filename: "a.png", Data: png}, backend.ImageFile{Filename: "b.png", Data: png}))
	_, err := w.Upload(context.Background())
	require.Error(t, err)
	assert.Equal(t, StepUpload, w.Step())
}

func TestSkipUpload(t *testing.T) {
	w := newWizard(t, newFakeBackend())
	require.NoError(t, w.SkipUpload("https://x/full.png", ""))
	assert.Equal(t, StepAudio, w.Step())

	image, face := w.URLs()
	assert.Equal(t, "https://x/full.png", image)
	assert.Empty(t, face)

	err := w.SkipUpload("", "")
	assert.ErrorIs(t, err, tperrors.Sentinel(tperrors.ErrCodeWizardWrongStep))
}

func TestAudioFormValidation(t *testing.T) {
	tests := []struct {
		name    string
		form    AudioForm
		wantErr string
	}{
		{"valid", AudioForm{KidName: "Aarav", Language: "Hindi", Gender: "boy", StoryID: "s1"}, ""},
		{"missing name", AudioForm{KidName: "  ", Language: "English", Gender: "girl", StoryID: "s1"}, "kid_name is required"},
		{"bad language", AudioForm{KidName: "Mia", Language: "French", Gender: "girl", StoryID: "s1"}, "language must be one of English, Hindi"},
		{"bad gender", AudioForm{KidName: "Mia", Language: "English", Gender: "cat", StoryID: "s1"}, "gender must be one of boy, girl"},
		{"missing story", AudioForm{KidName: "Mia", Language: "English", Gender: "girl"}, "story_id is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.form.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, tperrors.Sentinel(tperrors.ErrCodeWizardInvalidForm))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestGenerateAudio(t *testing.T) {
	b := newFakeBackend()
	w := newWizard(t, b)
	ctx := context.Background()

	_, err := w.GenerateAudio(ctx)
	assert.ErrorIs(t, err, tperrors.Sentinel(tperrors.ErrCodeWizardWrongStep))

	require.NoError(t, w.SkipUpload("", ""))
	_, err = w.LoadStories(ctx)
	require.NoError(t, err)

	err = w.SetAudio(AudioForm{KidName: "Mia", Language: "English", Gender: "girl", StoryID: "missing"})
	assert.ErrorIs(t, err, tperrors.Sentinel(tperrors.ErrCodeWizardStoryUnknown))

	err = w.Continue()
	assert.ErrorIs(t, err, tperrors.Sentinel(tperrors.ErrCodeWizardWrongStep))

	require.NoError(t, w.SetAudio(AudioForm{KidName: " Mia ", Language: "English", Gender: "girl", StoryID: "s2"}))
	resp, err := w.GenerateAudio(ctx)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn/audio.mp3", resp.AudioURL)
	require.Len(t, b.audioReqs, 1)
	assert.Equal(t, backend.AudioRequest{KidName: "Mia", Language: "English", StoryID: "s2", Gender: "girl"}, b.audioReqs[0])
	assert.Equal(t, StepAudio, w.Step())

	require.NoError(t, w.Continue())
	assert.Equal(t, StepVideo, w.Step())

	// The audio story carries over to the video step.
	id, st, ok := w.Story()
	assert.Equal(t, "s2", id)
	assert.True(t, ok)
	assert.Equal(t, 3, st.TotalScenes)
}

func TestSceneSelectionFollowsStory(t *testing.T) {
	w := newWizard(t, newFakeBackend())
	toVideo(t, w)
	assert.Equal(t, []string{"1", "3"}, w.Scenes())

	_, err := w.AddScene("3")
	assert.ErrorIs(t, err, tperrors.Sentinel(tperrors.ErrCodeSceneDuplicate))
	_, err = w.AddScene("6")
	assert.ErrorIs(t, err, tperrors.Sentinel(tperrors.ErrCodeSceneOutOfRange))

	assert.True(t, w.RemoveScene("1"))
	assert.False(t, w.RemoveScene("1"))
	assert.Equal(t, []string{"3"}, w.Scenes())

	require.NoError(t, w.SelectStory("s2"))
	assert.Empty(t, w.Scenes())
	_, err = w.AddScene("4")
	assert.ErrorIs(t, err, tperrors.Sentinel(tperrors.ErrCodeSceneOutOfRange))

	err = w.SelectStory("nope")
	assert.ErrorIs(t, err, tperrors.Sentinel(tperrors.ErrCodeWizardStoryUnknown))
}

func TestSubmitVideosValidatesBeforeRequest(t *testing.T) {
	b := newFakeBackend()
	w := newWizard(t, b)
	ctx := context.Background()

	_, err := w.SubmitVideos(ctx)
	assert.ErrorIs(t, err, tperrors.Sentinel(tperrors.ErrCodeWizardWrongStep))

	require.NoError(t, w.SkipUpload("", ""))
	require.NoError(t, w.SkipAudio())
	_, err = w.LoadStories(ctx)
	require.NoError(t, err)

	_, err = w.SubmitVideos(ctx)
	assert.ErrorIs(t, err, tperrors.Sentinel(tperrors.ErrCodeWizardURLsMissing))

	w.SetURLs("https://x/a.png", "https://x/b.png")
	_, err = w.SubmitVideos(ctx)
	assert.ErrorIs(t, err, tperrors.Sentinel(tperrors.ErrCodeWizardInvalidForm))

	require.NoError(t, w.SelectStory("s1"))
	_, err = w.SubmitVideos(ctx)
	assert.ErrorIs(t, err, tperrors.Sentinel(tperrors.ErrCodeWizardNoScenes))

	assert.Equal(t, 0, b.videoCalls())
	assert.Nil(t, w.Session())
}

func TestSubmitVideosStartsSession(t *testing.T) {
	b := newFakeBackend()
	var hooked []backend.VideoRequest
	p := poller.New(pendingFetcher(), poller.WithInterval(5*time.Millisecond))
	w := New(b, p, WithSessionHook(func(_ *poller.Session, req backend.VideoRequest) {
		hooked = append(hooked, req)
	}))
	t.Cleanup(w.Close)
	toVideo(t, w)

	s, err := w.SubmitVideos(context.Background())
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Same(t, s, w.Session())

	require.Len(t, b.videoReqs, 1)
	assert.Equal(t, backend.VideoRequest{
		ImageURL: "https://cdn/a.png",
		FaceURL:  "https://cdn/b.png",
		SceneIDs: []string{"1", "3"},
		StoryID:  "s1",
	}, b.videoReqs[0])
	require.Len(t, hooked, 1)

	snap := s.Snapshot()
	assert.Equal(t, "s1", snap.StoryID)
	assert.Len(t, snap.Tasks, 2)
}

func TestResubmitReplacesSession(t *testing.T) {
	w := newWizard(t, newFakeBackend())
	toVideo(t, w)

	first, err := w.SubmitVideos(context.Background())
	require.NoError(t, err)
	second, err := w.SubmitVideos(context.Background())
	require.NoError(t, err)

	select {
	case <-first.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("previous session was not stopped")
	}
	assert.ErrorIs(t, first.Err(), poller.ErrStopped)
	assert.Same(t, second, w.Session())
}

func TestFailedSubmissionKeepsSession(t *testing.T) {
	b := newFakeBackend()
	w := newWizard(t, b)
	toVideo(t, w)

	first, err := w.SubmitVideos(context.Background())
	require.NoError(t, err)

	b.mu.Lock()
	b.videoErr = errors.New("backend down")
	b.mu.Unlock()

	_, err = w.SubmitVideos(context.Background())
	require.Error(t, err)
	assert.Same(t, first, w.Session())

	select {
	case <-first.Done():
		t.Fatal("running session must survive a failed resubmission")
	default:
	}
}

func TestBackStopsPolling(t *testing.T) {
	w := newWizard(t, newFakeBackend())
	toVideo(t, w)

	s, err := w.SubmitVideos(context.Background())
	require.NoError(t, err)

	require.NoError(t, w.Back())
	assert.Equal(t, StepAudio, w.Step())
	assert.Nil(t, w.Session())
	assert.ErrorIs(t, s.Err(), poller.ErrStopped)

	require.NoError(t, w.Back())
	assert.Equal(t, StepUpload, w.Step())
	err = w.Back()
	assert.ErrorIs(t, err, tperrors.Sentinel(tperrors.ErrCodeWizardWrongStep))
}

func TestReset(t *testing.T) {
	w := newWizard(t, newFakeBackend())
	toVideo(t, w)

	s, err := w.SubmitVideos(context.Background())
	require.NoError(t, err)

	w.Reset()
	assert.Equal(t, StepUpload, w.Step())
	assert.Nil(t, w.Session())
	assert.Empty(t, w.Scenes())
	image, face := w.URLs()
	assert.Empty(t, image)
	assert.Empty(t, face)
	assert.Len(t, w.Stories(), 2)
	assert.ErrorIs(t, s.Err(), poller.ErrStopped)
}
