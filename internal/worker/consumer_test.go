package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/kozaktomas/photo-search/internal/storage"
	"github.com/rs/zerolog"
)

type fakeSQS struct {
	mu         sync.Mutex
	batches    [][]types.Message
	receiveErr error
	receiveIn  *sqs.ReceiveMessageInput
	deleted    []string
}

func (f *fakeSQS) ReceiveMessage(ctx context.Context, in *sqs.ReceiveMessageInput, _ ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.receiveIn = in
	if f.receiveErr != nil {
		return nil, f.receiveErr
	}
	if len(f.batches) == 0 {
		return &sqs.ReceiveMessageOutput{}, nil
	}
	batch := f.batches[0]
	f.batches = f.batches[1:]
	return &sqs.ReceiveMessageOutput{Messages: batch}, nil
}

func (f *fakeSQS) DeleteMessage(ctx context.Context, in *sqs.DeleteMessageInput, _ ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, aws.ToString(in.ReceiptHandle))
	return &sqs.DeleteMessageOutput{}, nil
}

func (f *fakeSQS) deletedHandles() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.deleted...)
}

type recordingHandler struct {
	mu   sync.Mutex
	seen []storage.Location
	fail map[string]error
}

func (h *recordingHandler) Handle(ctx context.Context, loc storage.Location) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seen = append(h.seen, loc)
	return h.fail[loc.Key]
}

func message(receipt string, body *string) types.Message {
	return types.Message{MessageId: aws.String("m-" + receipt), ReceiptHandle: aws.String(receipt), Body: body}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func TestConsumer_Poll(t *testing.T) {
	retryEvent := `{"Records":[{"eventName":"ObjectCreated:Put","s3":{"bucket":{"name":"photos"},"object":{"key":"retry"}}}]}`
	client := &fakeSQS{batches: [][]types.Message{{
		message("ok", aws.String(createdEvent)),
		message("empty", nil),
		message("poison", aws.String("{not json")),
		message("retry", aws.String(retryEvent)),
	}}}
	handler := &recordingHandler{fail: map[string]error{"retry": errors.New("throttled")}}
	c := NewConsumer(client, "https://sqs.test/queue", handler, zerolog.Nop(), 2)

	if err := c.Poll(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	deleted := client.deletedHandles()
	for _, receipt := range []string{"ok", "empty", "poison"} {
		if !contains(deleted, receipt) {
			t.Errorf("expected %s to be deleted, deleted %v", receipt, deleted)
		}
	}
	if contains(deleted, "retry") {
		t.Error("expected failed message to stay on the queue")
	}
	if len(handler.seen) != 2 {
		t.Errorf("expected 2 handled objects, got %+v", handler.seen)
	}

	if aws.ToString(client.receiveIn.QueueUrl) != "https://sqs.test/queue" {
		t.Errorf("unexpected queue url %q", aws.ToString(client.receiveIn.QueueUrl))
	}
	if client.receiveIn.WaitTimeSeconds != 20 {
		t.Errorf("expected long polling, got wait %d", client.receiveIn.WaitTimeSeconds)
	}
}

func TestConsumer_PollReceiveError(t *testing.T) {
	client := &fakeSQS{receiveErr: errors.New("access denied")}
	c := NewConsumer(client, "q", &recordingHandler{}, zerolog.Nop(), 1)

	if err := c.Poll(context.Background()); err == nil {
		t.Error("expected error")
	}
}

func TestConsumer_RunStopsOnCancel(t *testing.T) {
	client := &fakeSQS{receiveErr: errors.New("unavailable")}
	c := NewConsumer(client, "q", &recordingHandler{}, zerolog.Nop(), 1)
	c.retryDelay = time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	select {
	case err := <-done:
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("expected deadline exceeded, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}
