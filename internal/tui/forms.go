package tui

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/felixgeelhaar/taleyport/internal/backend"
	"github.com/felixgeelhaar/taleyport/internal/scene"
	"github.com/felixgeelhaar/taleyport/internal/wizard"
)

const (
	choiceUpload   = "upload"
	choiceSkip     = "skip"
	choiceGenerate = "generate"
)

// UploadInput collects the upload step.
type UploadInput struct {
	Mode         string
	FullBodyPath string
	CloseUpPath  string
	ImageURL     string
	FaceURL      string
}

// VideoInput collects the video step.
type VideoInput struct {
	ImageURL string
	FaceURL  string
	StoryID  string
	Scenes   string
}

// NewUploadForm asks for the two photos, or for hosted URLs when the user
// skips the upload.
func NewUploadForm(in *UploadInput) *huh.Form {
	if in.Mode == "" {
		in.Mode = choiceUpload
	}
	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("📷 Upload Image").
				Description("Upload a full body photo and a close-up of the face").
				Options(
					huh.NewOption("Upload two photos", choiceUpload),
					huh.NewOption("Skip, I already have image URLs", choiceSkip),
				).
				Value(&in.Mode),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Full body photo").
				Placeholder("./photos/full.jpg").
				Value(&in.FullBodyPath).
				Validate(validateImagePath),
			huh.NewInput().
				Title("Close-up photo").
				Placeholder("./photos/face.jpg").
				Value(&in.CloseUpPath).
				Validate(validateImagePath),
		).WithHideFunc(func() bool { return in.Mode != choiceUpload }),
		huh.NewGroup(
			huh.NewInput().
				Title("Image URL").
				Description("Optional, can be entered later").
				Value(&in.ImageURL).
				Validate(validateOptionalURL),
			huh.NewInput().
				Title("Face URL").
				Description("Optional, can be entered later").
				Value(&in.FaceURL).
				Validate(validateOptionalURL),
		).WithHideFunc(func() bool { return in.Mode != choiceSkip }),
	)
}

// NewAudioForm asks whether to generate audio and for the narration
// details.
func NewAudioForm(mode *string, form *wizard.AudioForm, stories []backend.Story) *huh.Form {
	if *mode == "" {
		*mode = choiceGenerate
	}
	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("🎵 Generate Audio").
				Options(
					huh.NewOption("Generate narration audio", choiceGenerate),
					huh.NewOption("Already have audio? Skip to video generation", choiceSkip),
				).
				Value(mode),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Kid's name").
				Value(&form.KidName).
				Validate(required("kid's name")),
			huh.NewSelect[string]().
				Title("Language").
				Options(huh.NewOptions(wizard.Languages...)...).
				Value(&form.Language),
			huh.NewSelect[string]().
				Title("Gender").
				Options(huh.NewOptions(wizard.Genders...)...).
				Value(&form.Gender),
			huh.NewSelect[string]().
				Title("Story").
				Options(storyOptions(stories)...).
				Value(&form.StoryID),
		).WithHideFunc(func() bool { return *mode != choiceGenerate }),
	)
}

// NewVideoForm asks for the image URLs, story and scenes.
func NewVideoForm(in *VideoInput, stories []backend.Story) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Image URL").
				Description("Full body image").
				Value(&in.ImageURL).
				Validate(validateRequiredURL),
			huh.NewInput().
				Title("Face URL").
				Description("Close-up image").
				Value(&in.FaceURL).
				Validate(validateRequiredURL),
			huh.NewSelect[string]().
				Title("Story").
				Options(storyOptions(stories)...).
				Value(&in.StoryID),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Scenes").
				DescriptionFunc(func() string {
					if st, ok := findStory(stories, in.StoryID); ok {
						return fmt.Sprintf("Comma separated scene numbers between 1 and %d", st.TotalScenes)
					}
					return "Comma separated scene numbers"
				}, &in.StoryID).
				Placeholder("1, 2, 5").
				Value(&in.Scenes).
				Validate(func(s string) error {
					return validateSceneList(s, stories, in.StoryID)
				}),
		),
	)
}

func findStory(stories []backend.Story, id string) (backend.Story, bool) {
	for _, s := range stories {
		if s.ID == id {
			return s, true
		}
	}
	return backend.Story{}, false
}

func required(name string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", name)
		}
		return nil
	}
}

func validateImagePath(p string) error {
	p = strings.TrimSpace(p)
	if p == "" {
		return fmt.Errorf("a photo is required")
	}
	info, err := os.Stat(p)
	if err != nil {
		return fmt.Errorf("cannot open %s", p)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", p)
	}
	return nil
}

func validateRequiredURL(s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("a URL is required")
	}
	return validateOptionalURL(s)
}

func validateOptionalURL(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	u, err := url.Parse(s)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%q is not an absolute URL", s)
	}
	return nil
}

// validateSceneList checks a comma separated scene list against the story.
func validateSceneList(list string, stories []backend.Story, storyID string) error {
	total := 0
	if st, ok := findStory(stories, storyID); ok {
		total = st.TotalScenes
	}
	sel := scene.NewSelection(total)
	if err := sel.ParseList(list); err != nil {
		return err
	}
	if sel.Len() == 0 {
		return fmt.Errorf("add at least one scene")
	}
	return nil
}

// splitScenes splits a validated scene list.
func splitScenes(list string) []string {
	var out []string
	for _, part := range strings.Split(list, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
