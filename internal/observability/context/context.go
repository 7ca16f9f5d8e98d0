// Package context carries request correlation values for logs and spans.
package context

import "context"

type requestIDKey struct{}
type documentIDKey struct{}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

func RequestIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(requestIDKey{}).(string)
	return v
}

// WithDocumentID tags the context with the billing document being worked on.
func WithDocumentID(ctx context.Context, documentID string) context.Context {
	return context.WithValue(ctx, documentIDKey{}, documentID)
}

func DocumentIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(documentIDKey{}).(string)
	return v
}
