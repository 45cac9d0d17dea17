package queue

import (
	"context"
	"errors"

	"github.com/BilalEnesS/doc-panel/internal/pipeline"
	"github.com/BilalEnesS/doc-panel/internal/shared/metrics"
	"github.com/BilalEnesS/doc-panel/internal/shared/telemetry"
)

// ErrClosed is returned by dispatchers that no longer accept work.
var ErrClosed = errors.New("dispatcher closed")

// Client sends messages to a queue backend.
type Client interface {
	Send(ctx context.Context, msg Message) error
}

// ClientDispatcher schedules pipeline runs by publishing a Message per
// document to an out-of-process queue.
type ClientDispatcher struct {
	Client Client
}

// NewClientDispatcher wraps client as a documents dispatcher.
func NewClientDispatcher(client Client) *ClientDispatcher {
	return &ClientDispatcher{Client: client}
}

// Dispatch publishes one message and returns once the backend accepted it.
func (d *ClientDispatcher) Dispatch(ctx context.Context, documentID int64) error {
	if d == nil || d.Client == nil {
		return errors.New("queue client not configured")
	}
	requestID := pipeline.RequestIDFromContext(ctx)
	if err := d.Client.Send(ctx, NewMessage(documentID, requestID)); err != nil {
		metrics.IncQueueJob("enqueue_failed")
		return err
	}
	metrics.IncQueueJob("enqueued")
	telemetry.Debug("queue.enqueued", map[string]any{
		"request_id":  requestID,
		"document_id": documentID,
	})
	return nil
}
