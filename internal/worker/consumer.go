// Package worker consumes on-demand sync requests from an SQS queue.
package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/telemetry"
)

type SQSClient interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
	ChangeMessageVisibility(ctx context.Context, params *sqs.ChangeMessageVisibilityInput, optFns ...func(*sqs.Options)) (*sqs.ChangeMessageVisibilityOutput, error)
}

// Processor handles one message. shouldRetry with a non-nil error leaves the
// message on the queue, visible again after retryDelay seconds.
type Processor interface {
	Process(ctx context.Context, msg types.Message) (shouldRetry bool, retryDelay int32, err error)
}

// Worker polls a queue and hands messages to a Processor.
type Worker struct {
	client    SQSClient
	queueURL  string
	processor Processor

	Concurrency     int
	WaitTimeSeconds int32
	// ReceiveBackoff is the pause after a failed ReceiveMessage call.
	ReceiveBackoff time.Duration
}

func NewWorker(client SQSClient, queueURL string, proc Processor) *Worker {
	return &Worker{
		client:          client,
		queueURL:        queueURL,
		processor:       proc,
		Concurrency:     2,
		WaitTimeSeconds: 20,
		ReceiveBackoff:  5 * time.Second,
	}
}

// Start polls until ctx is cancelled, then waits for in-flight messages.
func (w *Worker) Start(ctx context.Context) error {
	slog.Info("Worker: polling for sync requests", "queue_url", w.queueURL, "concurrency", w.Concurrency)

	messagesCh := make(chan types.Message, w.Concurrency)

	var wg sync.WaitGroup
	for i := 0; i < w.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for msg := range messagesCh {
				// in-flight messages finish even after shutdown starts
				w.handleSingleMessage(context.WithoutCancel(ctx), msg)
			}
		}()
	}

	w.pollMessages(ctx, messagesCh)
	wg.Wait()

	slog.Info("Worker: stopped")
	return nil
}

func (w *Worker) pollMessages(ctx context.Context, messagesCh chan<- types.Message) {
	defer close(messagesCh)

	for {
		if ctx.Err() != nil {
			slog.Info("Worker: poller shutting down")
			return
		}

		output, err := w.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:              aws.String(w.queueURL),
			MaxNumberOfMessages:   int32(w.Concurrency),
			WaitTimeSeconds:       w.WaitTimeSeconds,
			MessageAttributeNames: []string{"All"},
			MessageSystemAttributeNames: []types.MessageSystemAttributeName{
				types.MessageSystemAttributeNameApproximateReceiveCount,
			},
		})
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			slog.Error("Worker: failed to receive messages", "error", err, "retry_in", w.ReceiveBackoff)
			select {
			case <-ctx.Done():
			case <-time.After(w.ReceiveBackoff):
			}
			continue
		}

		for _, msg := range output.Messages {
			messagesCh <- msg
		}
	}
}

// handleSingleMessage deletes the message on success or on an unrecoverable
// error, and delays redelivery when the processor asks for a retry.
func (w *Worker) handleSingleMessage(ctx context.Context, msg types.Message) {
	ctx, span := telemetry.StartSpanFromSQSMessage(ctx, msg)
	defer span.End()

	shouldRetry, retryDelay, err := w.processor.Process(ctx, msg)

	if err != nil && shouldRetry {
		slog.Warn("Worker: processing failed, will retry",
			"message_id", aws.ToString(msg.MessageId),
			"retry_delay", retryDelay,
			"error", err,
		)
		if _, verr := w.client.ChangeMessageVisibility(ctx, &sqs.ChangeMessageVisibilityInput{
			QueueUrl:          aws.String(w.queueURL),
			ReceiptHandle:     msg.ReceiptHandle,
			VisibilityTimeout: retryDelay,
		}); verr != nil {
			slog.Error("Worker: failed to change message visibility", "message_id", aws.ToString(msg.MessageId), "error", verr)
		}
		return
	}

	if err != nil {
		slog.Error("Worker: unrecoverable message dropped", "message_id", aws.ToString(msg.MessageId), "error", err)
	}

	if _, derr := w.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(w.queueURL),
		ReceiptHandle: msg.ReceiptHandle,
	}); derr != nil {
		slog.Error("Worker: failed to delete message", "message_id", aws.ToString(msg.MessageId), "error", derr)
	}
}
