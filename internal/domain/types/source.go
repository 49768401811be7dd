package types

import "context"

// Evaluation sources, reported as a metrics label.
const (
	SourceHTTP = "http"
	SourceLive = "live"
	SourceCLI  = "cli"
)

type sourceKey struct{}

// ContextWithSource tags ctx with the caller that asked for an evaluation.
func ContextWithSource(ctx context.Context, source string) context.Context {
	return context.WithValue(ctx, sourceKey{}, source)
}

// SourceFrom returns the source set by ContextWithSource, or SourceHTTP.
func SourceFrom(ctx context.Context) string {
	if s, ok := ctx.Value(sourceKey{}).(string); ok && s != "" {
		return s
	}
	return SourceHTTP
}
