package http

import (
	"context"
	"net/http"
	"time"

	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance-go/internal/handler/http/response"
	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/civiltime"
	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/telemetry"
)

// SyncEnqueuer hands a sync request to the queue worker.
type SyncEnqueuer interface {
	EnqueueSync(ctx context.Context, date, correlationID string) (string, error)
}

type SyncHandler interface {
	RunSync(w http.ResponseWriter, r *http.Request)
}

type syncHandlerImpl struct {
	syncService attendance.SyncService
	enqueuer    SyncEnqueuer
	normalizer  *civiltime.Normalizer
	now         func() time.Time
}

// NewSyncHandler builds the sync trigger. enqueuer may be nil, in which case
// async requests are rejected.
func NewSyncHandler(syncService attendance.SyncService, enqueuer SyncEnqueuer, normalizer *civiltime.Normalizer) SyncHandler {
	return &syncHandlerImpl{
		syncService: syncService,
		enqueuer:    enqueuer,
		normalizer:  normalizer,
		now:         time.Now,
	}
}

type syncQueuedResponse struct {
	Date          string `json:"date"`
	CorrelationID string `json:"correlation_id"`
	MessageID     string `json:"message_id"`
}

// RunSync handles POST /attendance/sync?date=YYYY-MM-DD[&async=true]. The
// date defaults to the organization's today.
func (h *syncHandlerImpl) RunSync(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	date := h.normalizer.Today(h.now())
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := civiltime.ParseDate(raw)
		if err != nil {
			response.ValidationError(w, map[string]string{"date": "date must be in YYYY-MM-DD format"})
			return
		}
		date = parsed
	}
	day := date.Format(civiltime.DateLayout)

	if r.URL.Query().Get("async") == "true" {
		if h.enqueuer == nil {
			response.BadRequest(w, "asynchronous sync is not configured", nil)
			return
		}
		ctx, correlationID := telemetry.EnsureCorrelationID(ctx)
		messageID, err := h.enqueuer.EnqueueSync(ctx, day, correlationID)
		if err != nil {
			response.HandleError(w, err)
			return
		}
		response.Accepted(w, "Sync queued", syncQueuedResponse{Date: day, CorrelationID: correlationID, MessageID: messageID})
		return
	}

	result, err := h.syncService.SyncDate(ctx, date)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Sync completed", result)
}
