package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/civiltime"
	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/telemetry"
)

// maxRetryDelay is in seconds.
const maxRetryDelay = 900

var ErrInvalidSyncRequest = errors.New("invalid sync request")

// SyncRequest is the queue message body.
type SyncRequest struct {
	Date          string `json:"date"`
	CorrelationID string `json:"correlation_id,omitempty"`
}

type SyncProcessor struct {
	syncService attendance.SyncService
}

func NewSyncProcessor(syncService attendance.SyncService) *SyncProcessor {
	return &SyncProcessor{syncService: syncService}
}

// Process runs a sync for the requested date. Malformed requests are not
// retried; any sync failure is.
func (p *SyncProcessor) Process(ctx context.Context, msg types.Message) (bool, int32, error) {
	var req SyncRequest
	if err := json.Unmarshal([]byte(aws.ToString(msg.Body)), &req); err != nil {
		return false, 0, fmt.Errorf("%w: %v", ErrInvalidSyncRequest, err)
	}

	date, err := civiltime.ParseDate(req.Date)
	if err != nil {
		return false, 0, fmt.Errorf("%w: date %q", ErrInvalidSyncRequest, req.Date)
	}

	if strings.TrimSpace(req.CorrelationID) != "" {
		ctx = telemetry.WithCorrelationID(ctx, req.CorrelationID)
	}
	ctx, traceID := telemetry.EnsureCorrelationID(ctx)

	result, err := p.syncService.SyncDate(ctx, date)
	if err != nil {
		return true, retryDelay(receiveCount(msg)), err
	}

	slog.Info("Worker: sync request completed",
		"date", result.Date,
		"trace_id", traceID,
		"synced", result.SyncedCount,
		"skipped", result.SkippedCount,
		"no_data", result.NoDataCount,
		"errors", result.ErrorCount,
	)
	return false, 0, nil
}

func receiveCount(msg types.Message) int {
	n, err := strconv.Atoi(msg.Attributes[string(types.MessageSystemAttributeNameApproximateReceiveCount)])
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// retryDelay doubles from 30 seconds per delivery attempt.
func retryDelay(attempt int) int32 {
	delay := math.Pow(2, float64(attempt-1)) * 30
	if delay > maxRetryDelay {
		return maxRetryDelay
	}
	return int32(delay)
}
