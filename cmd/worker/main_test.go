package main

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"github.com/BilalEnesS/doc-panel/internal/pipeline"
	"github.com/BilalEnesS/doc-panel/internal/queue"
)

type fakeSQS struct {
	deleted []string
}

func (f *fakeSQS) ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	return &sqs.ReceiveMessageOutput{}, nil
}

func (f *fakeSQS) DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	f.deleted = append(f.deleted, aws.ToString(params.ReceiptHandle))
	return &sqs.DeleteMessageOutput{}, nil
}

type fakeProcessor struct {
	err       error
	ids       []int64
	requestID string
}

func (f *fakeProcessor) Run(ctx context.Context, documentID int64) error {
	f.ids = append(f.ids, documentID)
	f.requestID = pipeline.RequestIDFromContext(ctx)
	return f.err
}

func sqsMessage(t *testing.T, id string, msg queue.Message) sqstypes.Message {
	t.Helper()
	body, err := queue.EncodeMessage(msg)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return sqstypes.Message{
		MessageId:     aws.String(id),
		ReceiptHandle: aws.String("r-" + id),
		Body:          aws.String(string(body)),
		Attributes:    map[string]string{"ApproximateReceiveCount": "1"},
	}
}

func TestWorkerDeletesMessageOnSuccess(t *testing.T) {
	client := &fakeSQS{}
	proc := &fakeProcessor{}

	handleMessage(context.Background(), client, "queue", proc, sqsMessage(t, "m1", queue.NewMessage(41, "req-1")))

	if len(client.deleted) != 1 || client.deleted[0] != "r-m1" {
		t.Fatalf("expected delete of r-m1, got %v", client.deleted)
	}
	if len(proc.ids) != 1 || proc.ids[0] != 41 {
		t.Fatalf("expected run of document 41, got %v", proc.ids)
	}
	if proc.requestID != "req-1" {
		t.Fatalf("expected request id propagated, got %q", proc.requestID)
	}
}

func TestWorkerDoesNotDeleteOnFailure(t *testing.T) {
	client := &fakeSQS{}
	proc := &fakeProcessor{err: errors.New("boom")}

	handleMessage(context.Background(), client, "queue", proc, sqsMessage(t, "m2", queue.NewMessage(42, "req-2")))

	if len(client.deleted) != 0 {
		t.Fatalf("expected no delete, got %d", len(client.deleted))
	}
}

func TestWorkerDeletesUnprocessableMessages(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "invalid json", body: "{bad-json"},
		{name: "empty body", body: "   "},
		{name: "missing document id", body: `{"requestId":"req-3","version":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &fakeSQS{}
			proc := &fakeProcessor{}
			msg := sqstypes.Message{
				MessageId:     aws.String("m3"),
				ReceiptHandle: aws.String("r3"),
				Body:          aws.String(tt.body),
			}

			handleMessage(context.Background(), client, "queue", proc, msg)

			if len(client.deleted) != 1 {
				t.Fatalf("expected delete, got %d", len(client.deleted))
			}
			if len(proc.ids) != 0 {
				t.Fatalf("processor should not run, got %v", proc.ids)
			}
		})
	}
}

func TestReceiveCount(t *testing.T) {
	if got := receiveCount(sqstypes.Message{Attributes: map[string]string{"ApproximateReceiveCount": "3"}}); got != 3 {
		t.Fatalf("expected 3, got %d", got)
	}
	if got := receiveCount(sqstypes.Message{}); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
}
