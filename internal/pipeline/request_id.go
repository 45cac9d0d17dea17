package pipeline

import (
	"context"

	"github.com/BilalEnesS/doc-panel/internal/shared/telemetry"
)

// WithRequestID attaches a request ID to the context for logging.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return telemetry.WithRequestID(ctx, requestID)
}

// RequestIDFromContext returns the request ID set by WithRequestID or by the
// HTTP request id middleware.
func RequestIDFromContext(ctx context.Context) string {
	return telemetry.RequestIDFromContext(ctx)
}

// BackgroundWithRequestID detaches from ctx's deadline and cancellation but
// keeps its request ID.
func BackgroundWithRequestID(ctx context.Context) context.Context {
	requestID := RequestIDFromContext(ctx)
	if requestID == "" {
		return context.Background()
	}
	return WithRequestID(context.Background(), requestID)
}
