package pipeline

import "context"

// ProgressFunc reports sub-progress for the step currently executing.
// Percent is 0..100; message is a short human-readable state.
type ProgressFunc func(percent float64, message string)

type progressKey struct{}

// WithProgress returns a context carrying fn for the active step. The
// runner installs one per step; collaborators that can stream progress
// (job polling, ffmpeg passes) report through it.
func WithProgress(ctx context.Context, fn ProgressFunc) context.Context {
	if fn == nil {
		return ctx
	}
	return context.WithValue(ctx, progressKey{}, fn)
}

// ProgressFromContext extracts the step progress reporter. The returned
// function is never nil; when no reporter is installed it discards.
func ProgressFromContext(ctx context.Context) ProgressFunc {
	if ctx != nil {
		if fn, ok := ctx.Value(progressKey{}).(ProgressFunc); ok && fn != nil {
			return fn
		}
	}
	return func(float64, string) {}
}
