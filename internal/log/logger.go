package log

import (
	"context"
	stderrors "errors"
	"log/slog"

	"github.com/felixgeelhaar/taleyport/internal/errors"
)

// Logger wraps a slog.Logger with helpers for the fields taleyport logs
// most: coded errors, sessions and poll attempts.
type Logger struct {
	slog   *slog.Logger
	config Config
}

// New builds a Logger. A nil Output falls back to stderr.
func New(config Config) *Logger {
	if config.Output == nil {
		config.Output = DefaultConfig().Output
	}

	opts := &slog.HandlerOptions{
		Level:     config.Level.ToSlogLevel(),
		AddSource: config.AddSource,
	}

	var handler slog.Handler
	if config.Format == FormatJSON {
		handler = slog.NewJSONHandler(config.Output, opts)
	} else {
		handler = slog.NewTextHandler(config.Output, opts)
	}

	l := slog.New(handler)
	if config.ServiceName != "" {
		l = l.With("service", config.ServiceName)
	}
	return &Logger{slog: l, config: config}
}

// With returns a Logger that adds args to every record.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{slog: l.slog.With(args...), config: l.config}
}

// WithSession tags records with a saved session and its story.
func (l *Logger) WithSession(sessionID, storyID string) *Logger {
	args := []any{"session_id", sessionID}
	if storyID != "" {
		args = append(args, "story_id", storyID)
	}
	return l.With(args...)
}

// WithAttempt tags records with a poll attempt number.
func (l *Logger) WithAttempt(attempt int) *Logger {
	return l.With("attempt", attempt)
}

// WithError adds err to the logger. Coded errors are split into
// error, error_code and cause.
func (l *Logger) WithError(err error) *Logger {
	if err == nil {
		return l
	}

	var te *errors.TaleyportError
	if !stderrors.As(err, &te) {
		return l.With("error", err.Error())
	}
	args := []any{"error", te.Message, "error_code", string(te.Code)}
	if te.Cause != nil {
		args = append(args, "cause", te.Cause.Error())
	}
	return l.With(args...)
}

func (l *Logger) Debug(msg string, args ...any) { l.slog.Debug(msg, args...) }
func (l *Logger) Info(msg string, args ...any)  { l.slog.Info(msg, args...) }
func (l *Logger) Warn(msg string, args ...any)  { l.slog.Warn(msg, args...) }
func (l *Logger) Error(msg string, args ...any) { l.slog.Error(msg, args...) }

// Enabled reports whether records at level would be written.
func (l *Logger) Enabled(ctx context.Context, level Level) bool {
	return l.slog.Enabled(ctx, level.ToSlogLevel())
}

// Config returns the configuration the logger was built with.
func (l *Logger) Config() Config {
	return l.config
}
