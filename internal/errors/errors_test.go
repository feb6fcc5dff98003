package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(ErrCodeSceneDuplicate, "test error message")

	if err.Code != ErrCodeSceneDuplicate {
		t.Errorf("expected code %s, got %s", ErrCodeSceneDuplicate, err.Code)
	}

	if err.Message != "test error message" {
		t.Errorf("expected message 'test error message', got '%s'", err.Message)
	}

	if err.Cause != nil {
		t.Errorf("expected nil cause, got %v", err.Cause)
	}
}

func TestWrap(t *testing.T) {
	cause := fmt.Errorf("underlying error")
	err := Wrap(ErrCodeFileReadFailed, "failed to read file", cause)

	if err.Code != ErrCodeFileReadFailed {
		t.Errorf("expected code %s, got %s", ErrCodeFileReadFailed, err.Code)
	}

	if err.Cause != cause {
		t.Errorf("expected cause to be set")
	}

	if !errors.Is(err, cause) {
		t.Errorf("Wrap should support errors.Is")
	}
}

func TestErrorFormatting(t *testing.T) {
	tests := []struct {
		name     string
		err      *TaleyportError
		wantCode string
		wantMsg  string
	}{
		{
			name:     "simple error",
			err:      New(ErrCodeSceneInvalid, "invalid scene"),
			wantCode: "SCENE-002",
			wantMsg:  "invalid scene",
		},
		{
			name:     "error with cause",
			err:      Wrap(ErrCodeFileReadFailed, "read failed", fmt.Errorf("permission denied")),
			wantCode: "IO-002",
			wantMsg:  "permission denied",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errStr := tt.err.Error()

			if !strings.Contains(errStr, tt.wantCode) {
				t.Errorf("error string should contain code %s, got: %s", tt.wantCode, errStr)
			}

			if !strings.Contains(errStr, tt.wantMsg) {
				t.Errorf("error string should contain message '%s', got: %s", tt.wantMsg, errStr)
			}
		})
	}
}

func TestWithSuggestion(t *testing.T) {
	err := New(ErrCodeWizardNoScenes, "no scenes").
		WithSuggestion("add a scene").
		WithSuggestions("pick a story", "try again")

	if len(err.Suggestions) != 3 {
		t.Fatalf("expected 3 suggestions, got %d", len(err.Suggestions))
	}

	errStr := err.Error()
	if !strings.Contains(errStr, "Suggestions:") {
		t.Errorf("expected suggestions block, got: %s", errStr)
	}
	if !strings.Contains(errStr, "pick a story") {
		t.Errorf("expected suggestion text, got: %s", errStr)
	}
}

func TestWithDocs(t *testing.T) {
	err := New(ErrCodeConfigInvalid, "bad config").WithDocs("https://example.com/docs")

	if !strings.Contains(err.Error(), "Documentation: https://example.com/docs") {
		t.Errorf("expected docs link, got: %s", err.Error())
	}
}

func TestIsMatchesCode(t *testing.T) {
	err := fmt.Errorf("outer: %w", NewSceneDuplicateError("3"))

	if !errors.Is(err, Sentinel(ErrCodeSceneDuplicate)) {
		t.Error("expected errors.Is to match by code")
	}
	if errors.Is(err, Sentinel(ErrCodeSceneOutOfRange)) {
		t.Error("expected errors.Is not to match a different code")
	}
}

func TestCodeOf(t *testing.T) {
	code, ok := CodeOf(fmt.Errorf("wrapped: %w", NewSceneOutOfRangeError(9, 5)))
	if !ok || code != ErrCodeSceneOutOfRange {
		t.Errorf("expected %s, got %s (ok=%v)", ErrCodeSceneOutOfRange, code, ok)
	}

	if _, ok := CodeOf(errors.New("plain")); ok {
		t.Error("expected no code for a plain error")
	}
}

func TestCommonConstructors(t *testing.T) {
	tests := []struct {
		name string
		err  *TaleyportError
		code ErrorCode
	}{
		{"scene empty", NewSceneEmptyError(), ErrCodeSceneEmpty},
		{"scene invalid", NewSceneInvalidError("abc"), ErrCodeSceneInvalid},
		{"scene out of range", NewSceneOutOfRangeError(7, 5), ErrCodeSceneOutOfRange},
		{"scene duplicate", NewSceneDuplicateError("2"), ErrCodeSceneDuplicate},
		{"story unknown", NewStoryUnknownError("s9"), ErrCodeWizardStoryUnknown},
		{"backend unreachable", NewBackendUnreachableError("http://x", errors.New("refused")), ErrCodeBackendUnreachable},
		{"backend status", NewBackendStatusError("upload", errors.New("500")), ErrCodeBackendStatus},
		{"file not found", NewFileNotFoundError("/tmp/x"), ErrCodeFileNotFound},
		{"file unmarshal", NewFileUnmarshalError("/tmp/x", "yaml", errors.New("bad")), ErrCodeFileUnmarshal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.code {
				t.Errorf("expected code %s, got %s", tt.code, tt.err.Code)
			}
			if tt.err.Message == "" {
				t.Error("expected a message")
			}
		})
	}

	if !strings.Contains(NewSceneOutOfRangeError(7, 5).Message, "between 1 and 5") {
		t.Error("out of range message should name the valid range")
	}
}
