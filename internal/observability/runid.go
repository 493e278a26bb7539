package observability

import (
	"context"

	"github.com/google/uuid"
)

type runIDKey struct{}

// NewRunID returns a fresh identifier for a verification run.
func NewRunID() string {
	return uuid.New().String()
}

// WithRunID attaches a run identifier to the context.
func WithRunID(ctx context.Context, runID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, runIDKey{}, runID)
}

// RunID returns the run identifier stored in the context, if any.
func RunID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if value, ok := ctx.Value(runIDKey{}).(string); ok {
		return value
	}
	return ""
}
