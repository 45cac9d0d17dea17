package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/BilalEnesS/doc-panel/internal/pipeline"
)

func TestInlineDispatcherRunsDetachedAndWaits(t *testing.T) {
	var mu sync.Mutex
	var got []int64
	var requestIDs []string
	release := make(chan struct{})
	d := NewInlineDispatcher(func(ctx context.Context, id int64) error {
		<-release
		if ctx.Err() != nil {
			t.Errorf("run context should outlive the request")
		}
		mu.Lock()
		got = append(got, id)
		requestIDs = append(requestIDs, pipeline.RequestIDFromContext(ctx))
		mu.Unlock()
		return nil
	})

	reqCtx, cancel := context.WithCancel(pipeline.WithRequestID(context.Background(), "req-1"))
	if err := d.Dispatch(reqCtx, 7); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	cancel()
	close(release)

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer waitCancel()
	if err := d.Wait(waitCtx); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if len(got) != 1 || got[0] != 7 || requestIDs[0] != "req-1" {
		t.Fatalf("unexpected runs %v %v", got, requestIDs)
	}
	if err := d.Dispatch(context.Background(), 8); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed after Wait, got %v", err)
	}
}

func TestInlineDispatcherWaitHonorsDeadline(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	d := NewInlineDispatcher(func(ctx context.Context, id int64) error {
		<-block
		return nil
	})
	_ = d.Dispatch(context.Background(), 1)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := d.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestInlineDispatcherSurvivesPanicsAndErrors(t *testing.T) {
	d := NewInlineDispatcher(func(ctx context.Context, id int64) error {
		if id == 1 {
			panic("boom")
		}
		return errors.New("persist failed")
	})
	_ = d.Dispatch(context.Background(), 1)
	_ = d.Dispatch(context.Background(), 2)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := d.Wait(ctx); err != nil {
		t.Fatalf("Wait: %v", err)
	}
}

type recordingClient struct {
	sent []Message
	err  error
}

func (c *recordingClient) Send(ctx context.Context, msg Message) error {
	c.sent = append(c.sent, msg)
	return c.err
}

func TestClientDispatcherPublishesMessage(t *testing.T) {
	client := &recordingClient{}
	d := NewClientDispatcher(client)

	if err := d.Dispatch(pipeline.WithRequestID(context.Background(), "req-2"), 42); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if len(client.sent) != 1 {
		t.Fatalf("expected one message, got %d", len(client.sent))
	}
	msg := client.sent[0]
	if msg.DocumentID != 42 || msg.RequestID != "req-2" || msg.Version != MessageVersion {
		t.Fatalf("unexpected message %+v", msg)
	}

	client.err = errors.New("unreachable")
	if err := d.Dispatch(context.Background(), 43); err == nil {
		t.Fatalf("expected send error to surface")
	}
}
