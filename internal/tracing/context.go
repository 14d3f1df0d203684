package tracing

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ContextKey is the type for context keys
type ContextKey string

const (
	// RunIDKey is the context key for run ID
	RunIDKey ContextKey = "run_id"
	// SessionFileKey is the context key for the session file being converted
	SessionFileKey ContextKey = "session_file"
)

// TraceContext holds tracing information
type TraceContext struct {
	RunID       string
	SessionFile string
}

// NewRunID generates a new run ID
func NewRunID() string {
	return uuid.New().String()
}

// WithRunID adds a run ID to the context
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, RunIDKey, runID)
}

// WithSessionFile adds the session file path to the context
func WithSessionFile(ctx context.Context, path string) context.Context {
	return context.WithValue(ctx, SessionFileKey, path)
}

// GetRunID retrieves the run ID from the context
func GetRunID(ctx context.Context) string {
	if runID, ok := ctx.Value(RunIDKey).(string); ok {
		return runID
	}
	return ""
}

// GetSessionFile retrieves the session file path from the context
func GetSessionFile(ctx context.Context) string {
	if path, ok := ctx.Value(SessionFileKey).(string); ok {
		return path
	}
	return ""
}

// FromContext extracts all tracing information from the context
func FromContext(ctx context.Context) *TraceContext {
	return &TraceContext{
		RunID:       GetRunID(ctx),
		SessionFile: GetSessionFile(ctx),
	}
}

// NewRunContext creates a context for one invocation with a new run ID
func NewRunContext(ctx context.Context, sessionFile string) context.Context {
	ctx = WithRunID(ctx, NewRunID())
	if sessionFile != "" {
		ctx = WithSessionFile(ctx, sessionFile)
	}
	return ctx
}

// LoggerFromContext adds the tracing fields found in ctx to baseLogger
func LoggerFromContext(ctx context.Context, baseLogger zerolog.Logger) zerolog.Logger {
	tc := FromContext(ctx)

	logger := baseLogger
	if tc.RunID != "" {
		logger = logger.With().Str("run_id", tc.RunID).Logger()
	}
	if tc.SessionFile != "" {
		logger = logger.With().Str("session_file", tc.SessionFile).Logger()
	}

	return logger
}
