package main

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-lambda-go/events"

	"github.com/BilalEnesS/doc-panel/internal/queue"
)

type fakeProcessor struct {
	fail map[int64]bool
}

func (f fakeProcessor) Run(ctx context.Context, documentID int64) error {
	if f.fail[documentID] {
		return errors.New("persist failed")
	}
	return nil
}

func record(t *testing.T, id string, documentID int64) events.SQSMessage {
	t.Helper()
	body, err := queue.EncodeMessage(queue.NewMessage(documentID, "req-"+id))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return events.SQSMessage{MessageId: id, Body: string(body)}
}

func TestProcessBatchReportsOnlyRetryableFailures(t *testing.T) {
	event := events.SQSEvent{Records: []events.SQSMessage{
		record(t, "ok", 1),
		record(t, "retry", 2),
		{MessageId: "poison", Body: "{nope"},
	}}

	resp := processBatch(context.Background(), fakeProcessor{fail: map[int64]bool{2: true}}, event)

	if len(resp.BatchItemFailures) != 1 || resp.BatchItemFailures[0].ItemIdentifier != "retry" {
		t.Fatalf("unexpected failures %+v", resp.BatchItemFailures)
	}
}
