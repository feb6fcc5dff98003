package tui

import (
	"fmt"
	"os"

	"github.com/charmbracelet/huh"

	"github.com/felixgeelhaar/taleyport/internal/backend"
	"github.com/felixgeelhaar/taleyport/internal/errors"
)

// Prompt is a single line question.
type Prompt struct {
	Message     string
	Default     string
	Placeholder string
	Required    bool
}

// PromptForString asks for a line of text.
func PromptForString(p Prompt) (string, error) {
	value := p.Default

	input := huh.NewInput().
		Title(p.Message).
		Placeholder(p.Placeholder).
		Value(&value)

	if err := huh.NewForm(huh.NewGroup(input)).Run(); err != nil {
		return "", fmt.Errorf("prompt failed: %w", err)
	}

	if p.Required && value == "" {
		return "", errors.New(errors.ErrCodeWizardInvalidForm, p.Message+" is required")
	}
	return value, nil
}

// PromptForConfirmation asks a yes/no question.
func PromptForConfirmation(message string, defaultValue bool) (bool, error) {
	confirmed := defaultValue

	confirm := huh.NewConfirm().
		Title(message).
		Value(&confirmed)

	if err := huh.NewForm(huh.NewGroup(confirm)).Run(); err != nil {
		return false, fmt.Errorf("prompt failed: %w", err)
	}
	return confirmed, nil
}

// PromptForStory asks the user to pick a story and returns its id.
func PromptForStory(message string, stories []backend.Story) (string, error) {
	if len(stories) == 0 {
		return "", errors.New(errors.ErrCodeWizardStoryUnknown, "the backend returned no stories")
	}

	var selected string
	field := huh.NewSelect[string]().
		Title(message).
		Options(storyOptions(stories)...).
		Value(&selected)

	if err := huh.NewForm(huh.NewGroup(field)).Run(); err != nil {
		return "", fmt.Errorf("prompt failed: %w", err)
	}
	return selected, nil
}

func storyOptions(stories []backend.Story) []huh.Option[string] {
	opts := make([]huh.Option[string], len(stories))
	for i, s := range stories {
		opts[i] = huh.NewOption(StoryLabel(s), s.ID)
	}
	return opts
}

// StoryLabel renders a story for selection lists.
func StoryLabel(s backend.Story) string {
	return fmt.Sprintf("%s (%d scenes)", s.Name, s.TotalScenes)
}

// IsInteractive returns true if stdin is a terminal (not piped)
func IsInteractive() bool {
	fileInfo, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (fileInfo.Mode() & os.ModeCharDevice) != 0
}

// ShouldPrompt returns true if prompts should be shown based on environment.
// Prompts are disabled in CI environments or when stdin is not a terminal.
func ShouldPrompt() bool {
	ciEnvVars := []string{
		"CI",
		"GITHUB_ACTIONS",
		"GITLAB_CI",
		"JENKINS_URL",
		"TRAVIS",
		"CIRCLECI",
		"BUILDKITE",
	}

	for _, envVar := range ciEnvVars {
		if os.Getenv(envVar) != "" {
			return false
		}
	}

	return IsInteractive()
}
