package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode represents a unique error identifier
type ErrorCode string

// Error categories
const (
	// Scene selection errors (SCENE-001 to SCENE-099)
	ErrCodeSceneEmpty      ErrorCode = "SCENE-001"
	ErrCodeSceneInvalid    ErrorCode = "SCENE-002"
	ErrCodeSceneOutOfRange ErrorCode = "SCENE-003"
	ErrCodeSceneDuplicate  ErrorCode = "SCENE-004"
	ErrCodeSceneNotFound   ErrorCode = "SCENE-005"

	// Wizard input errors (WIZARD-001 to WIZARD-099)
	ErrCodeWizardImagesMissing ErrorCode = "WIZARD-001"
	ErrCodeWizardURLsMissing   ErrorCode = "WIZARD-002"
	ErrCodeWizardNoScenes      ErrorCode = "WIZARD-003"
	ErrCodeWizardInvalidForm   ErrorCode = "WIZARD-004"
	ErrCodeWizardStoryUnknown  ErrorCode = "WIZARD-005"
	ErrCodeWizardWrongStep     ErrorCode = "WIZARD-006"
	ErrCodeWizardNotImage      ErrorCode = "WIZARD-007"

	// Backend errors (BACKEND-001 to BACKEND-099)
	ErrCodeBackendUnreachable ErrorCode = "BACKEND-001"
	ErrCodeBackendStatus      ErrorCode = "BACKEND-002"
	ErrCodeBackendDecode      ErrorCode = "BACKEND-003"
	ErrCodeBackendContract    ErrorCode = "BACKEND-004"
	ErrCodeBackendEmptyBatch  ErrorCode = "BACKEND-005"

	// Polling errors (POLL-001 to POLL-099)
	ErrCodePollStopped     ErrorCode = "POLL-001"
	ErrCodePollMaxAttempts ErrorCode = "POLL-002"

	// Configuration errors (CONFIG-001 to CONFIG-099)
	ErrCodeConfigInvalid ErrorCode = "CONFIG-001"
	ErrCodeConfigLoad    ErrorCode = "CONFIG-002"

	// File I/O errors (IO-001 to IO-099)
	ErrCodeFileNotFound     ErrorCode = "IO-001"
	ErrCodeFileReadFailed   ErrorCode = "IO-002"
	ErrCodeFileWriteFailed  ErrorCode = "IO-003"
	ErrCodeDirectoryFailed  ErrorCode = "IO-004"
	ErrCodeFileUnmarshal    ErrorCode = "IO-005"
	ErrCodeFileMarshal      ErrorCode = "IO-006"
	ErrCodeSessionIDInvalid ErrorCode = "IO-007"
)

// TaleyportError represents an enhanced error with code, suggestions, and documentation
type TaleyportError struct {
	Code        ErrorCode
	Message     string
	Suggestions []string
	DocsURL     string
	Cause       error
}

// Error implements the error interface
func (e *TaleyportError) Error() string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("[%s] %s", e.Code, e.Message))

	if e.Cause != nil {
		b.WriteString(fmt.Sprintf(": %v", e.Cause))
	}

	if len(e.Suggestions) > 0 {
		b.WriteString("\n\nSuggestions:")
		for _, suggestion := range e.Suggestions {
			b.WriteString(fmt.Sprintf("\n  • %s", suggestion))
		}
	}

	if e.DocsURL != "" {
		b.WriteString(fmt.Sprintf("\n\nDocumentation: %s", e.DocsURL))
	}

	return b.String()
}

// Unwrap implements error unwrapping for errors.Is and errors.As
func (e *TaleyportError) Unwrap() error {
	return e.Cause
}

// Is reports whether target carries the same error code.
func (e *TaleyportError) Is(target error) bool {
	t, ok := target.(*TaleyportError)
	if !ok {
		return false
	}
	return t.Code == e.Code && t.Message == ""
}

// New creates a new TaleyportError
func New(code ErrorCode, message string) *TaleyportError {
	return &TaleyportError{
		Code:    code,
		Message: message,
	}
}

// Wrap creates a new TaleyportError wrapping an existing error
func Wrap(code ErrorCode, message string, cause error) *TaleyportError {
	return &TaleyportError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Sentinel returns a code-only error usable as an errors.Is target.
func Sentinel(code ErrorCode) *TaleyportError {
	return &TaleyportError{Code: code}
}

// CodeOf returns the code of the first TaleyportError in err's chain.
func CodeOf(err error) (ErrorCode, bool) {
	var te *TaleyportError
	if errors.As(err, &te) {
		return te.Code, true
	}
	return "", false
}

// WithSuggestion adds a suggestion to the error
func (e *TaleyportError) WithSuggestion(suggestion string) *TaleyportError {
	e.Suggestions = append(e.Suggestions, suggestion)
	return e
}

// WithSuggestions adds multiple suggestions to the error
func (e *TaleyportError) WithSuggestions(suggestions ...string) *TaleyportError {
	e.Suggestions = append(e.Suggestions, suggestions...)
	return e
}

// WithDocs adds a documentation URL to the error
func (e *TaleyportError) WithDocs(url string) *TaleyportError {
	e.DocsURL = url
	return e
}

// Common error constructors for frequently used errors

// NewSceneEmptyError is returned when no scene number was entered.
func NewSceneEmptyError() *TaleyportError {
	return New(ErrCodeSceneEmpty, "please enter a scene number")
}

// NewSceneInvalidError is returned for non-numeric or non-positive scene numbers.
func NewSceneInvalidError(input string) *TaleyportError {
	return New(ErrCodeSceneInvalid, fmt.Sprintf("scene number must be a positive number: %q", input))
}

// NewSceneOutOfRangeError is returned when a scene number exceeds the story length.
func NewSceneOutOfRangeError(scene, total int) *TaleyportError {
	return New(ErrCodeSceneOutOfRange, fmt.Sprintf("scene number must be between 1 and %d (got %d)", total, scene)).
		WithSuggestion("Run 'taleyport stories' to see how many scenes each story has")
}

// NewSceneDuplicateError is returned when a scene was already added.
func NewSceneDuplicateError(sceneID string) *TaleyportError {
	return New(ErrCodeSceneDuplicate, fmt.Sprintf("scene %s has already been added", sceneID))
}

// NewStoryUnknownError is returned when a story id is not in the backend's list.
func NewStoryUnknownError(storyID string) *TaleyportError {
	return New(ErrCodeWizardStoryUnknown, fmt.Sprintf("unknown story: %s", storyID)).
		WithSuggestion("Run 'taleyport stories' to list available stories")
}

// NewBackendUnreachableError wraps a transport failure.
func NewBackendUnreachableError(baseURL string, cause error) *TaleyportError {
	return Wrap(ErrCodeBackendUnreachable, fmt.Sprintf("backend unreachable at %s", baseURL), cause).
		WithSuggestion("Check that the backend is running").
		WithSuggestion("Set TALEYPORT_BACKEND_URL or pass --backend-url")
}

// NewBackendStatusError wraps a non-2xx backend response.
func NewBackendStatusError(operation string, cause error) *TaleyportError {
	return Wrap(ErrCodeBackendStatus, fmt.Sprintf("backend rejected %s", operation), cause)
}

// NewFileNotFoundError creates a file not found error
func NewFileNotFoundError(path string) *TaleyportError {
	return New(ErrCodeFileNotFound, fmt.Sprintf("file not found: %s", path)).
		WithSuggestion("Check if the file path is correct").
		WithSuggestion("Verify the file exists and you have read permissions")
}

// NewFileUnmarshalError creates an unmarshal error
func NewFileUnmarshalError(path string, format string, cause error) *TaleyportError {
	return Wrap(ErrCodeFileUnmarshal, fmt.Sprintf("failed to parse %s file: %s", format, path), cause).
		WithSuggestion("Check the file syntax and format").
		WithSuggestion(fmt.Sprintf("Ensure the file is valid %s", format))
}
