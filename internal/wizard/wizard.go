// Package wizard drives the three-step story video flow: upload the child's
// photos, generate the narration audio, then generate videos for a set of
// scenes and track them until they finish.
package wizard

import (
	"context"
	"sync"

	"github.com/felixgeelhaar/taleyport/internal/backend"
	"github.com/felixgeelhaar/taleyport/internal/errors"
	"github.com/felixgeelhaar/taleyport/internal/log"
	"github.com/felixgeelhaar/taleyport/internal/poller"
	"github.com/felixgeelhaar/taleyport/internal/scene"
	"github.com/felixgeelhaar/taleyport/internal/task"
)

// Backend is the part of the backend client the wizard uses.
type Backend interface {
	ListStories(ctx context.Context) ([]backend.Story, error)
	UploadImages(ctx context.Context, fullBody, closeUp backend.ImageFile) (*backend.UploadResponse, error)
	GenerateAudio(ctx context.Context, req backend.AudioRequest) (*backend.AudioResponse, error)
	GenerateVideos(ctx context.Context, req backend.VideoRequest) (*task.TaskBatch, error)
}

// SessionHook is called with every poll session the wizard starts.
type SessionHook func(s *poller.Session, req backend.VideoRequest)

// Wizard holds the state of one run through the steps. It is safe for
// concurrent use.
type Wizard struct {
	backend Backend
	poller  *poller.Poller
	logger  *log.Logger
	onStart SessionHook

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	step     Step
	fullBody *backend.ImageFile
	closeUp  *backend.ImageFile
	upload   *backend.UploadResponse
	imageURL string
	faceURL  string
	form     AudioForm
	audio    *backend.AudioResponse
	stories  []backend.Story
	storyID  string
	scenes   *scene.Selection
	session  *poller.Session
}

// Option configures a Wizard.
type Option func(*Wizard)

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(w *Wizard) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithSessionHook registers fn to observe new poll sessions.
func WithSessionHook(fn SessionHook) Option {
	return func(w *Wizard) {
		w.onStart = fn
	}
}

// New creates a wizard at the upload step. Poll sessions run until they
// finish, are replaced, or the wizard is reset or closed.
func New(b Backend, p *poller.Poller, opts ...Option) *Wizard {
	ctx, cancel := context.WithCancel(context.Background())
	w := &Wizard{
		backend: b,
		poller:  p,
		logger:  log.New(log.Discard()),
		ctx:     ctx,
		cancel:  cancel,
		step:    StepUpload,
		form:    DefaultAudioForm(),
		scenes:  scene.NewSelection(0),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Step returns the current step.
func (w *Wizard) Step() Step {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.step
}

func (w *Wizard) requireStep(s Step) error {
	if w.step != s {
		return errors.New(errors.ErrCodeWizardWrongStep,
			"this action belongs to the "+s.String()+" step, current step is "+w.step.String())
	}
	return nil
}

// SetImages stores the full-body and close-up photos for upload.
func (w *Wizard) SetImages(fullBody, closeUp backend.ImageFile) error {
	if len(fullBody.Data) == 0 || len(closeUp.Data) == 0 {
		return errors.New(errors.ErrCodeWizardImagesMissing, "both a full body and a close-up image are required")
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.fullBody = &fullBody
	w.closeUp = &closeUp
	return nil
}

// Upload sends the stored images and advances to the audio step. The
// returned URLs pre-fill the video step.
func (w *Wizard) Upload(ctx context.Context) (*backend.UploadResponse, error) {
	w.mu.Lock()
	if err := w.requireStep(StepUpload); err != nil {
		w.mu.Unlock()
		return nil, err
	}
	if w.fullBody == nil || w.closeUp == nil {
		w.mu.Unlock()
		return nil, errors.New(errors.ErrCodeWizardImagesMissing, "both a full body and a close-up image are required")
	}
	fullBody, closeUp := *w.fullBody, *w.closeUp
	w.mu.Unlock()

	resp, err := w.backend.UploadImages(ctx, fullBody, closeUp)
	if err != nil {
		return nil, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.upload = resp
	if u := resp.ImageURL(); u != "" {
		w.imageURL = u
	}
	if u := resp.FaceURL(); u != "" {
		w.faceURL = u
	}
	w.step = StepAudio
	w.logger.Info("images uploaded", "image_url", w.imageURL, "face_url", w.faceURL)
	return resp, nil
}

// SkipUpload advances to the audio step using already hosted images.
// Empty URLs are left for the video step.
func (w *Wizard) SkipUpload(imageURL, faceURL string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.requireStep(StepUpload); err != nil {
		return err
	}
	if imageURL != "" {
		w.imageURL = imageURL
	}
	if faceURL != "" {
		w.faceURL = faceURL
	}
	w.step = StepAudio
	return nil
}

// LoadStories fetches the story catalogue and caches it.
func (w *Wizard) LoadStories(ctx context.Context) ([]backend.Story, error) {
	stories, err := w.backend.ListStories(ctx)
	if err != nil {
		return nil, err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stories = append([]backend.Story(nil), stories...)
	if st, ok := w.findStory(w.storyID); ok {
		w.scenes.Reset(st.TotalScenes)
	}
	return append([]backend.Story(nil), stories...), nil
}

// Stories returns the cached catalogue.
func (w *Wizard) Stories() []backend.Story {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]backend.Story(nil), w.stories...)
}

func (w *Wizard) findStory(id string) (backend.Story, bool) {
	for _, s := range w.stories {
		if s.ID == id {
			return s, true
		}
	}
	return backend.Story{}, false
}

// SetAudio validates and stores the audio form.
func (w *Wizard) SetAudio(form AudioForm) error {
	if err := form.Validate(); err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.stories) > 0 {
		if _, ok := w.findStory(form.StoryID); !ok {
			return errors.NewStoryUnknownError(form.StoryID)
		}
	}
	w.form = form
	return nil
}

// AudioForm returns the stored audio form.
func (w *Wizard) AudioForm() AudioForm {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.form
}

// GenerateAudio requests the narration for the stored form. The wizard
// stays on the audio step; Continue moves on.
func (w *Wizard) GenerateAudio(ctx context.Context) (*backend.AudioResponse, error) {
	w.mu.Lock()
	if err := w.requireStep(StepAudio); err != nil {
		w.mu.Unlock()
		return nil, err
	}
	form := w.form
	w.mu.Unlock()

	if err := form.Validate(); err != nil {
		return nil, err
	}

	resp, err := w.backend.GenerateAudio(ctx, form.Request())
	if err != nil {
		return nil, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.audio = resp
	w.logger.Info("audio generated", "story_id", form.StoryID, "audio_url", resp.AudioURL)
	return resp, nil
}

// Audio returns the last generated audio, if any.
func (w *Wizard) Audio() *backend.AudioResponse {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.audio
}

// Continue moves from the audio step to the video step once audio exists.
func (w *Wizard) Continue() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.requireStep(StepAudio); err != nil {
		return err
	}
	if w.audio == nil {
		return errors.New(errors.ErrCodeWizardWrongStep, "generate the audio first or skip to video generation")
	}
	w.enterVideo()
	return nil
}

// SkipAudio moves to the video step without generating audio.
func (w *Wizard) SkipAudio() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.requireStep(StepAudio); err != nil {
		return err
	}
	w.enterVideo()
	return nil
}

func (w *Wizard) enterVideo() {
	w.step = StepVideo
	if w.storyID == "" && w.form.StoryID != "" {
		w.selectStory(w.form.StoryID)
	}
}

// SetURLs overrides the hosted image URLs used for video generation.
func (w *Wizard) SetURLs(imageURL, faceURL string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.imageURL = imageURL
	w.faceURL = faceURL
}

// URLs returns the full body and face image URLs.
func (w *Wizard) URLs() (imageURL, faceURL string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.imageURL, w.faceURL
}

// SelectStory picks the story to render and clears the scene selection.
func (w *Wizard) SelectStory(id string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.findStory(id); !ok && len(w.stories) > 0 {
		return errors.NewStoryUnknownError(id)
	}
	w.selectStory(id)
	return nil
}

func (w *Wizard) selectStory(id string) {
	w.storyID = id
	total := 0
	if st, ok := w.findStory(id); ok {
		total = st.TotalScenes
	}
	w.scenes.Reset(total)
}

// Story returns the selected story id and, when known, its details.
func (w *Wizard) Story() (string, backend.Story, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	st, ok := w.findStory(w.storyID)
	return w.storyID, st, ok
}

// AddScene validates input against the selected story and adds it.
func (w *Wizard) AddScene(input string) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.scenes.Add(input)
}

// RemoveScene drops a scene from the selection.
func (w *Wizard) RemoveScene(id string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.scenes.Remove(id)
}

// Scenes returns the selected scene ids in insertion order.
func (w *Wizard) Scenes() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.scenes.IDs()
}

// VideoRequest builds the submission from the current state, reporting
// input errors without contacting the backend.
func (w *Wizard) VideoRequest() (backend.VideoRequest, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.videoRequest()
}

func (w *Wizard) videoRequest() (backend.VideoRequest, error) {
	if err := w.requireStep(StepVideo); err != nil {
		return backend.VideoRequest{}, err
	}
	if w.imageURL == "" || w.faceURL == "" {
		return backend.VideoRequest{}, errors.New(errors.ErrCodeWizardURLsMissing, "both the image URL and the face URL are required").
			WithSuggestion("Upload images first or pass --image-url and --face-url")
	}
	if w.storyID == "" {
		return backend.VideoRequest{}, errors.New(errors.ErrCodeWizardInvalidForm, "select a story first")
	}
	if w.scenes.Len() == 0 {
		return backend.VideoRequest{}, errors.New(errors.ErrCodeWizardNoScenes, "add at least one scene")
	}
	return backend.VideoRequest{
		ImageURL: w.imageURL,
		FaceURL:  w.faceURL,
		SceneIDs: w.scenes.IDs(),
		StoryID:  w.storyID,
	}, nil
}

// SubmitVideos requests videos for the selected scenes and starts polling
// them. Input errors never reach the backend and a failed submission leaves
// any running session alone. On success the previous session is stopped
// and replaced.
func (w *Wizard) SubmitVideos(ctx context.Context) (*poller.Session, error) {
	w.mu.Lock()
	req, err := w.videoRequest()
	w.mu.Unlock()
	if err != nil {
		return nil, err
	}

	batch, err := w.backend.GenerateVideos(ctx, req)
	if err != nil {
		return nil, err
	}

	w.mu.Lock()
	w.stopSession()
	session := w.poller.Start(w.ctx, batch)
	w.session = session
	hook := w.onStart
	w.mu.Unlock()

	w.logger.Info("video generation started", "story_id", batch.StoryID, "tasks", len(batch.Tasks))
	if hook != nil {
		hook(session, req)
	}
	return session, nil
}

// Session returns the active poll session, or nil.
func (w *Wizard) Session() *poller.Session {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.session
}

func (w *Wizard) stopSession() {
	if w.session != nil {
		w.session.Stop()
		w.session = nil
	}
}

// Back returns to the previous step. Leaving the video step stops polling.
func (w *Wizard) Back() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	switch w.step {
	case StepAudio:
		w.step = StepUpload
	case StepVideo:
		w.stopSession()
		w.step = StepAudio
	default:
		return errors.New(errors.ErrCodeWizardWrongStep, "already at the first step")
	}
	return nil
}

// Reset stops polling and clears everything except the story catalogue.
func (w *Wizard) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stopSession()
	w.step = StepUpload
	w.fullBody, w.closeUp, w.upload = nil, nil, nil
	w.imageURL, w.faceURL = "", ""
	w.form = DefaultAudioForm()
	w.audio = nil
	w.storyID = ""
	w.scenes = scene.NewSelection(0)
}

// Close stops polling for good.
func (w *Wizard) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stopSession()
	w.cancel()
}
