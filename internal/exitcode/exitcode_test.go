package exitcode

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/felixgeelhaar/taleyport/internal/backend"
	tperrors "github.com/felixgeelhaar/taleyport/internal/errors"
)

func TestExitCodes(t *testing.T) {
	tests := []struct {
		name     string
		code     int
		expected int
	}{
		{"Success", Success, 0},
		{"GeneralError", GeneralError, 1},
		{"UsageError", UsageError, 2},
		{"BackendError", BackendError, 3},
		{"IncompleteBatch", IncompleteBatch, 4},
		{"AuthError", AuthError, 5},
		{"NetworkError", NetworkError, 6},
		{"Interrupted", Interrupted, 130},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.code != tt.expected {
				t.Errorf("Exit code %s = %d, want %d", tt.name, tt.code, tt.expected)
			}
		})
	}
}

func TestDetermineExitCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{
			name:     "nil error returns success",
			err:      nil,
			expected: Success,
		},
		{
			name:     "scene validation error",
			err:      tperrors.NewSceneDuplicateError("2"),
			expected: UsageError,
		},
		{
			name:     "wrapped wizard error",
			err:      fmt.Errorf("submit: %w", tperrors.New(tperrors.ErrCodeWizardNoScenes, "no scenes")),
			expected: UsageError,
		},
		{
			name:     "backend unreachable",
			err:      tperrors.NewBackendUnreachableError("http://localhost:5001", errors.New("refused")),
			expected: NetworkError,
		},
		{
			name:     "backend status",
			err:      tperrors.NewBackendStatusError("generate videos", errors.New("500")),
			expected: BackendError,
		},
		{
			name:     "poll cap reached",
			err:      tperrors.New(tperrors.ErrCodePollMaxAttempts, "gave up"),
			expected: IncompleteBatch,
		},
		{
			name:     "io error",
			err:      tperrors.NewFileNotFoundError("/tmp/x.jpg"),
			expected: GeneralError,
		},
		{
			name:     "expired session cookie",
			err:      tperrors.NewBackendStatusError("list stories", &backend.APIError{StatusCode: 401}),
			expected: AuthError,
		},
		{
			name:     "forbidden",
			err:      fmt.Errorf("upload: %w", &backend.APIError{StatusCode: 403, Message: "nope"}),
			expected: AuthError,
		},
		{
			name:     "server error stays a backend error",
			err:      tperrors.NewBackendStatusError("generate videos", &backend.APIError{StatusCode: 502}),
			expected: BackendError,
		},
		{
			name:     "cancelled",
			err:      fmt.Errorf("watch: %w", context.Canceled),
			expected: Interrupted,
		},
		{
			name:     "deadline",
			err:      context.DeadlineExceeded,
			expected: NetworkError,
		},
		{
			name:     "connection refused",
			err:      errors.New("dial tcp 127.0.0.1:5001: connect: connection refused"),
			expected: NetworkError,
		},
		{
			name:     "dns error",
			err:      errors.New("dial tcp: lookup backend: no such host"),
			expected: NetworkError,
		},
		{
			name:     "required flag",
			err:      errors.New(`required flag(s) "story" not set`),
			expected: UsageError,
		},
		{
			name:     "unknown flag",
			err:      errors.New("unknown flag: --foo"),
			expected: UsageError,
		},
		{
			name:     "wrong arg count",
			err:      errors.New("accepts 1 arg(s), received 2"),
			expected: UsageError,
		},
		{
			name:     "generic error",
			err:      errors.New("something went wrong"),
			expected: GeneralError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetermineExitCode(tt.err); got != tt.expected {
				t.Errorf("DetermineExitCode(%v) = %d, want %d", tt.err, got, tt.expected)
			}
		})
	}
}

func TestGetExitCodeDescription(t *testing.T) {
	codes := []int{Success, GeneralError, UsageError, BackendError, IncompleteBatch, AuthError, NetworkError, Interrupted}
	for _, code := range codes {
		if desc := GetExitCodeDescription(code); desc == "Unknown error" {
			t.Errorf("expected a description for code %d", code)
		}
	}

	if desc := GetExitCodeDescription(99); desc != "Unknown error" {
		t.Errorf("expected 'Unknown error' for unmapped code, got %q", desc)
	}
}
