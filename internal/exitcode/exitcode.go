package exitcode

import (
	"context"
	stderrors "errors"
	"net/http"
	"os"
	"strings"

	"github.com/felixgeelhaar/taleyport/internal/errors"
)

// Exit codes for consistent error handling across the CLI
const (
	// Success indicates successful execution
	Success = 0

	// GeneralError indicates a general error condition
	GeneralError = 1

	// UsageError indicates invalid command usage or rejected input
	UsageError = 2

	// BackendError indicates the backend rejected a request
	BackendError = 3

	// IncompleteBatch indicates polling ended before every scene finished
	IncompleteBatch = 4

	// AuthError indicates the backend rejected the session cookie
	AuthError = 5

	// NetworkError indicates a network connectivity issue
	NetworkError = 6

	// Interrupted indicates the user cancelled the operation
	Interrupted = 130
)

// Exit terminates the program with the given exit code
func Exit(code int) {
	os.Exit(code)
}

// ExitWithError exits with an appropriate code based on error type
func ExitWithError(err error) {
	if err == nil {
		Exit(Success)
		return
	}

	Exit(DetermineExitCode(err))
}

// httpStatuser is implemented by backend response errors.
type httpStatuser interface {
	HTTPStatus() int
}

// DetermineExitCode maps err to an exit code. Cancellation and backend
// auth failures are checked first, then coded errors by category. Plain
// errors from cobra or the network stack fall back to their message text.
func DetermineExitCode(err error) int {
	if err == nil {
		return Success
	}

	if stderrors.Is(err, context.Canceled) {
		return Interrupted
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return NetworkError
	}

	var hs httpStatuser
	if stderrors.As(err, &hs) {
		switch hs.HTTPStatus() {
		case http.StatusUnauthorized, http.StatusForbidden:
			return AuthError
		}
	}

	if code, ok := errors.CodeOf(err); ok {
		return codeForCategory(code)
	}

	return fromMessage(strings.ToLower(err.Error()))
}

func fromMessage(msg string) int {
	for _, s := range []string{"connection refused", "no such host", "network is unreachable", "i/o timeout"} {
		if strings.Contains(msg, s) {
			return NetworkError
		}
	}
	// cobra's argument and flag errors
	for _, s := range []string{"invalid flag", "unknown flag", "unknown command", "unknown shorthand flag",
		"required flag", "missing argument", "accepts ", "requires at least", "flag needs an argument"} {
		if strings.Contains(msg, s) {
			return UsageError
		}
	}
	return GeneralError
}

func codeForCategory(code errors.ErrorCode) int {
	category, _, _ := strings.Cut(string(code), "-")
	switch category {
	case "SCENE", "WIZARD", "CONFIG":
		return UsageError
	case "BACKEND":
		if code == errors.ErrCodeBackendUnreachable {
			return NetworkError
		}
		return BackendError
	case "POLL":
		return IncompleteBatch
	default:
		return GeneralError
	}
}

// GetExitCodeDescription returns a human-readable description of an exit code
func GetExitCodeDescription(code int) string {
	switch code {
	case Success:
		return "Success"
	case GeneralError:
		return "General error"
	case UsageError:
		return "Usage error (invalid flags, arguments or input)"
	case BackendError:
		return "Backend rejected the request"
	case IncompleteBatch:
		return "Polling ended before all scenes finished"
	case AuthError:
		return "Authentication error"
	case NetworkError:
		return "Network error"
	case Interrupted:
		return "Interrupted"
	default:
		return "Unknown error"
	}
}
