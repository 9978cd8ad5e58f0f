package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/civiltime"
	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSQS struct {
	mu         sync.Mutex
	queue      []types.Message
	deleted    []string
	visibility map[string]int32
	sent       []*sqs.SendMessageInput

	receiveErr   error
	receiveCalls int
}

func newFakeSQS(msgs ...types.Message) *fakeSQS {
	return &fakeSQS{queue: msgs, visibility: make(map[string]int32)}
}

func (f *fakeSQS) ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	f.mu.Lock()
	f.receiveCalls++
	if f.receiveErr != nil {
		err := f.receiveErr
		f.mu.Unlock()
		return nil, err
	}
	if len(f.queue) > 0 {
		msgs := f.queue
		f.queue = nil
		f.mu.Unlock()
		return &sqs.ReceiveMessageOutput{Messages: msgs}, nil
	}
	f.mu.Unlock()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(10 * time.Millisecond):
		return &sqs.ReceiveMessageOutput{}, nil
	}
}

func (f *fakeSQS) DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, aws.ToString(params.ReceiptHandle))
	return &sqs.DeleteMessageOutput{}, nil
}

func (f *fakeSQS) ChangeMessageVisibility(ctx context.Context, params *sqs.ChangeMessageVisibilityInput, optFns ...func(*sqs.Options)) (*sqs.ChangeMessageVisibilityOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.visibility[aws.ToString(params.ReceiptHandle)] = params.VisibilityTimeout
	return &sqs.ChangeMessageVisibilityOutput{}, nil
}

func (f *fakeSQS) SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, params)
	return &sqs.SendMessageOutput{MessageId: aws.String(fmt.Sprintf("msg-%d", len(f.sent)))}, nil
}

type fakeSync struct {
	mu       sync.Mutex
	dates    []string
	traceIDs []string
	err      error
}

func (f *fakeSync) SyncDate(ctx context.Context, date time.Time) (attendance.SyncResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	day := date.Format(civiltime.DateLayout)
	f.dates = append(f.dates, day)
	f.traceIDs = append(f.traceIDs, telemetry.CorrelationID(ctx))
	return attendance.SyncResult{Date: day}, f.err
}

func message(handle, body string, receiveCount int) types.Message {
	return types.Message{
		MessageId:     aws.String("id-" + handle),
		ReceiptHandle: aws.String(handle),
		Body:          aws.String(body),
		Attributes: map[string]string{
			string(types.MessageSystemAttributeNameApproximateReceiveCount): fmt.Sprint(receiveCount),
		},
	}
}

func TestSyncProcessor_Process(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		syncErr   error
		wantRetry bool
		wantDelay int32
		wantErr   error
	}{
		{name: "success", body: `{"date":"2024-01-15","correlation_id":"abc"}`},
		{name: "malformed json", body: `{"date":`, wantErr: ErrInvalidSyncRequest},
		{name: "bad date", body: `{"date":"15/01/2024"}`, wantErr: ErrInvalidSyncRequest},
		{
			name:      "provider unavailable",
			body:      `{"date":"2024-01-15"}`,
			syncErr:   attendance.ErrProviderUnavailable,
			wantRetry: true,
			wantDelay: 60,
			wantErr:   attendance.ErrProviderUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeSync{err: tt.syncErr}
			proc := NewSyncProcessor(svc)

			retry, delay, err := proc.Process(context.Background(), message("h1", tt.body, 2))

			assert.Equal(t, tt.wantRetry, retry)
			assert.Equal(t, tt.wantDelay, delay)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSyncProcessor_PassesCorrelationID(t *testing.T) {
	svc := &fakeSync{}
	proc := NewSyncProcessor(svc)

	_, _, err := proc.Process(context.Background(), message("h1", `{"date":"2024-01-15","correlation_id":"req-42"}`, 1))

	require.NoError(t, err)
	assert.Equal(t, []string{"2024-01-15"}, svc.dates)
	assert.Equal(t, []string{"req-42"}, svc.traceIDs)
}

func TestRetryDelay(t *testing.T) {
	assert.Equal(t, int32(30), retryDelay(1))
	assert.Equal(t, int32(120), retryDelay(3))
	assert.Equal(t, int32(maxRetryDelay), retryDelay(10))
}

func TestWorker_DeletesOrDelays(t *testing.T) {
	client := newFakeSQS(
		message("ok", `{"date":"2024-01-15"}`, 1),
		message("bad", `not json`, 1),
	)
	svc := &fakeSync{}
	w := NewWorker(client, "queue", NewSyncProcessor(svc))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = w.Start(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		client.mu.Lock()
		defer client.mu.Unlock()
		return len(client.deleted) == 2
	}, time.Second, 10*time.Millisecond)

	cancel()
	<-done

	assert.ElementsMatch(t, []string{"ok", "bad"}, client.deleted)
	assert.Empty(t, client.visibility)
}

func TestWorker_ProviderFailureLeavesMessage(t *testing.T) {
	client := newFakeSQS(message("retry-me", `{"date":"2024-01-15"}`, 1))
	svc := &fakeSync{err: errors.Join(attendance.ErrProviderUnavailable, errors.New("status=503"))}
	w := NewWorker(client, "queue", NewSyncProcessor(svc))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = w.Start(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		client.mu.Lock()
		defer client.mu.Unlock()
		return len(client.visibility) == 1
	}, time.Second, 10*time.Millisecond)

	cancel()
	<-done

	assert.Equal(t, int32(30), client.visibility["retry-me"])
	assert.Empty(t, client.deleted)
}

func TestPublisher_EnqueueSync(t *testing.T) {
	client := newFakeSQS()
	pub := NewPublisher(client, "https://sqs.local/queue")

	id, err := pub.EnqueueSync(context.Background(), "2024-01-15", "req-1")

	require.NoError(t, err)
	assert.Equal(t, "msg-1", id)
	require.Len(t, client.sent, 1)
	assert.Equal(t, "https://sqs.local/queue", aws.ToString(client.sent[0].QueueUrl))

	var req SyncRequest
	require.NoError(t, json.Unmarshal([]byte(aws.ToString(client.sent[0].MessageBody)), &req))
	assert.Equal(t, SyncRequest{Date: "2024-01-15", CorrelationID: "req-1"}, req)
}

func TestWorker_BacksOffOnReceiveError(t *testing.T) {
	client := newFakeSQS()
	client.receiveErr = errors.New("sqs unavailable")

	w := NewWorker(client, "queue", NewSyncProcessor(&fakeSync{}))
	w.ReceiveBackoff = 50 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Millisecond)
	defer cancel()

	require.NoError(t, w.Start(ctx))

	client.mu.Lock()
	defer client.mu.Unlock()
	assert.GreaterOrEqual(t, client.receiveCalls, 2)
	assert.LessOrEqual(t, client.receiveCalls, 4)
}
