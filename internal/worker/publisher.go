package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/telemetry"
)

type SQSSender interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// Publisher enqueues sync requests for the sync worker.
type Publisher struct {
	client   SQSSender
	queueURL string
}

func NewPublisher(client SQSSender, queueURL string) *Publisher {
	return &Publisher{client: client, queueURL: queueURL}
}

// EnqueueSync sends a request for date (YYYY-MM-DD) carrying the current
// trace context. It returns the SQS message id.
func (p *Publisher) EnqueueSync(ctx context.Context, date, correlationID string) (string, error) {
	body, err := json.Marshal(SyncRequest{Date: date, CorrelationID: correlationID})
	if err != nil {
		return "", fmt.Errorf("failed to encode sync request: %w", err)
	}

	out, err := p.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:          aws.String(p.queueURL),
		MessageBody:       aws.String(string(body)),
		MessageAttributes: telemetry.InjectTraceContext(ctx),
	})
	if err != nil {
		return "", fmt.Errorf("failed to enqueue sync request: %w", err)
	}

	return aws.ToString(out.MessageId), nil
}
