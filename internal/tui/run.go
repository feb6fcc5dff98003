package tui

import (
	"context"
	"fmt"
	"io"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/felixgeelhaar/taleyport/internal/backend"
	"github.com/felixgeelhaar/taleyport/internal/poller"
	"github.com/felixgeelhaar/taleyport/internal/wizard"
)

// RunWizard walks the user through the three steps with forms and submits
// the video request. It returns the poll session the submission started;
// callers show it with RunStatus.
func RunWizard(ctx context.Context, w *wizard.Wizard, out io.Writer) (*poller.Session, error) {
	styles := DefaultStyles()

	stories, err := w.LoadStories(ctx)
	if err != nil {
		return nil, err
	}

	// Step 1
	fmt.Fprintln(out, styles.StepIndicator(wizard.StepUpload))
	var up UploadInput
	if err := NewUploadForm(&up).RunWithContext(ctx); err != nil {
		return nil, err
	}
	if up.Mode == choiceUpload {
		full, err := backend.ReadImageFile(strings.TrimSpace(up.FullBodyPath))
		if err != nil {
			return nil, err
		}
		closeUp, err := backend.ReadImageFile(strings.TrimSpace(up.CloseUpPath))
		if err != nil {
			return nil, err
		}
		if err := w.SetImages(full, closeUp); err != nil {
			return nil, err
		}
		resp, err := w.Upload(ctx)
		if err != nil {
			return nil, err
		}
		fmt.Fprintln(out, styles.Success.Render("✓ Images uploaded"))
		fmt.Fprintf(out, "  image: %s\n  face:  %s\n\n", resp.ImageURL(), resp.FaceURL())
	} else if err := w.SkipUpload(strings.TrimSpace(up.ImageURL), strings.TrimSpace(up.FaceURL)); err != nil {
		return nil, err
	}

	// Step 2
	fmt.Fprintln(out, styles.StepIndicator(wizard.StepAudio))
	var mode string
	form := w.AudioForm()
	if len(stories) > 0 && form.StoryID == "" {
		form.StoryID = stories[0].ID
	}
	if err := NewAudioForm(&mode, &form, stories).RunWithContext(ctx); err != nil {
		return nil, err
	}
	if mode == choiceGenerate {
		if err := w.SetAudio(form); err != nil {
			return nil, err
		}
		audio, err := w.GenerateAudio(ctx)
		if err != nil {
			return nil, err
		}
		fmt.Fprintln(out, styles.Success.Render("✓ Audio generated"))
		fmt.Fprintf(out, "  %s\n\n", audio.AudioURL)
		if err := w.Continue(); err != nil {
			return nil, err
		}
	} else if err := w.SkipAudio(); err != nil {
		return nil, err
	}

	// Step 3
	fmt.Fprintln(out, styles.StepIndicator(wizard.StepVideo))
	imageURL, faceURL := w.URLs()
	storyID, _, _ := w.Story()
	if storyID == "" && len(stories) > 0 {
		storyID = stories[0].ID
	}
	in := VideoInput{ImageURL: imageURL, FaceURL: faceURL, StoryID: storyID}
	if err := NewVideoForm(&in, stories).RunWithContext(ctx); err != nil {
		return nil, err
	}

	return SubmitVideoInput(ctx, w, in)
}

// SubmitVideoInput applies the video step input to w and submits it.
func SubmitVideoInput(ctx context.Context, w *wizard.Wizard, in VideoInput) (*poller.Session, error) {
	w.SetURLs(strings.TrimSpace(in.ImageURL), strings.TrimSpace(in.FaceURL))
	if err := w.SelectStory(in.StoryID); err != nil {
		return nil, err
	}
	for _, id := range splitScenes(in.Scenes) {
		if _, err := w.AddScene(id); err != nil {
			return nil, err
		}
	}
	return w.SubmitVideos(ctx)
}

// RunStatus runs the status view until the user quits and returns the
// final model.
func RunStatus(ctx context.Context, m StatusModel) (StatusModel, error) {
	p := tea.NewProgram(m, tea.WithContext(ctx))
	final, err := p.Run()
	if err != nil {
		return StatusModel{}, fmt.Errorf("status view failed: %w", err)
	}
	m, _ := final.(StatusModel)
	return m, nil
}
