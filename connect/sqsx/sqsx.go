// Package sqsx provides SQS connectivity built on loom endpoints, used by
// the example REST service to fan out long-running work off the request
// path: a handler enqueues a message and returns 202 Accepted immediately
// instead of blocking the connection on the work itself.
package sqsx

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/matgreaves/loom/connect"
)

// Queue wraps a single SQS queue URL.
type Queue struct {
	cli      *sqs.Client
	queueURL string
}

// Connect builds a Queue from a loom endpoint's SQS_QUEUE_URL attribute.
func Connect(ctx context.Context, ep connect.Endpoint) (*Queue, error) {
	url, _ := connect.SQSQueueURL.Get(ep)
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, err
	}
	return &Queue{cli: sqs.NewFromConfig(cfg), queueURL: url}, nil
}

// Send enqueues body as a message and returns the assigned message ID.
func (q *Queue) Send(ctx context.Context, body string) (string, error) {
	out, err := q.cli.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(q.queueURL),
		MessageBody: aws.String(body),
	})
	if err != nil {
		return "", err
	}
	return aws.ToString(out.MessageId), nil
}

// Message is a received SQS message along with its receipt handle, needed
// to delete it once processing succeeds.
type Message struct {
	Body          string
	ReceiptHandle string
}

// Receive long-polls for up to maxMessages messages, waiting up to
// waitSeconds for at least one to arrive.
func (q *Queue) Receive(ctx context.Context, maxMessages, waitSeconds int32) ([]Message, error) {
	out, err := q.cli.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(q.queueURL),
		MaxNumberOfMessages: maxMessages,
		WaitTimeSeconds:     waitSeconds,
	})
	if err != nil {
		return nil, err
	}
	msgs := make([]Message, len(out.Messages))
	for i, m := range out.Messages {
		msgs[i] = Message{Body: aws.ToString(m.Body), ReceiptHandle: aws.ToString(m.ReceiptHandle)}
	}
	return msgs, nil
}

// Delete removes a message from the queue after it has been processed.
func (q *Queue) Delete(ctx context.Context, receiptHandle string) error {
	_, err := q.cli.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(q.queueURL),
		ReceiptHandle: aws.String(receiptHandle),
	})
	return err
}
