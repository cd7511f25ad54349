package sqsx_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/matgreaves/loom/connect"
	"github.com/matgreaves/loom/connect/sqsx"
)

// TestSendReceiveDelete round-trips a message through a real queue. Like
// s3x's test, it needs LOOM_SQS_TEST_QUEUE_URL set since there is no
// single-container SQS image to launch via internal/testenv (LocalStack
// or a real AWS queue are both reached the same way, through the
// standard endpoint override environment variables).
func TestSendReceiveDelete(t *testing.T) {
	queueURL := os.Getenv("LOOM_SQS_TEST_QUEUE_URL")
	if queueURL == "" {
		t.Skip("LOOM_SQS_TEST_QUEUE_URL not set")
	}

	ctx := context.Background()
	ep := connect.Endpoint{Attributes: map[string]any{"SQS_QUEUE_URL": queueURL}}
	q, err := sqsx.Connect(ctx, ep)
	if err != nil {
		t.Fatalf("sqsx.Connect: %v", err)
	}

	id, err := q.Send(ctx, "hello from loom")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if id == "" {
		t.Fatal("Send returned empty message ID")
	}

	deadline := time.Now().Add(20 * time.Second)
	var msgs []sqsx.Message
	for time.Now().Before(deadline) {
		msgs, err = q.Receive(ctx, 1, 5)
		if err != nil {
			t.Fatalf("Receive: %v", err)
		}
		if len(msgs) > 0 {
			break
		}
	}
	if len(msgs) == 0 {
		t.Fatal("no message received before deadline")
	}
	if msgs[0].Body != "hello from loom" {
		t.Errorf("body = %q, want %q", msgs[0].Body, "hello from loom")
	}
	if err := q.Delete(ctx, msgs[0].ReceiptHandle); err != nil {
		t.Fatalf("Delete: %v", err)
	}
}
