package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/attendance-tracker-api/internal/dto"
	appErrors "github.com/noah-isme/attendance-tracker-api/pkg/errors"
	"github.com/noah-isme/attendance-tracker-api/pkg/jobs"
)

// BackfillJobType identifies backfill jobs on the queue.
const BackfillJobType = "attendance.backfill"

type jobDispatcher interface {
	Enqueue(job jobs.Job) error
}

type backfillRunner interface {
	Backfill(ctx context.Context, userID string, rawDate string) (*dto.BackfillResult, error)
}

// BackfillService queues backfill runs for the worker pool.
type BackfillService struct {
	queue  jobDispatcher
	logger *zap.Logger
}

// NewBackfillService constructs the scheduler side of backfill.
func NewBackfillService(queue jobDispatcher, logger *zap.Logger) *BackfillService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BackfillService{queue: queue, logger: logger}
}

// Schedule enqueues a backfill of the user's unmarked classes on the requested date.
func (s *BackfillService) Schedule(ctx context.Context, userID string, req dto.BackfillRequest) (*dto.BackfillAccepted, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "missing user")
	}
	job := jobs.Job{
		ID:      uuid.NewString(),
		Type:    BackfillJobType,
		Payload: dto.BackfillJob{UserID: userID, Date: strings.TrimSpace(req.Date)},
	}
	if err := s.queue.Enqueue(job); err != nil {
		if errors.Is(err, jobs.ErrQueueFull) || errors.Is(err, jobs.ErrQueueClosed) {
			return nil, appErrors.Wrap(err, appErrors.ErrQueueUnavailable.Code, appErrors.ErrQueueUnavailable.Status, "backfill queue unavailable")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue backfill")
	}
	s.logger.Debug("backfill scheduled", zap.String("job_id", job.ID), zap.String("user_id", userID))
	return &dto.BackfillAccepted{JobID: job.ID, Date: strings.TrimSpace(req.Date)}, nil
}

// BackfillWorker executes queued backfill jobs.
type BackfillWorker struct {
	runner  backfillRunner
	metrics *MetricsService
	logger  *zap.Logger
}

// NewBackfillWorker constructs a worker.
func NewBackfillWorker(runner backfillRunner, metrics *MetricsService, logger *zap.Logger) *BackfillWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BackfillWorker{runner: runner, metrics: metrics, logger: logger}
}

// Handle processes a queue job. Validation failures are not retried.
func (w *BackfillWorker) Handle(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(dto.BackfillJob)
	if !ok {
		w.metrics.RecordBackfill("invalid")
		w.logger.Error("unexpected backfill payload", zap.String("job_id", job.ID), zap.String("type", fmt.Sprintf("%T", job.Payload)))
		return nil
	}
	result, err := w.runner.Backfill(ctx, payload.UserID, payload.Date)
	if err != nil {
		appErr := appErrors.FromError(err)
		if appErr.Status < 500 {
			w.metrics.RecordBackfill("rejected")
			w.logger.Warn("backfill rejected", zap.String("job_id", job.ID), zap.String("user_id", payload.UserID), zap.Error(err))
			return nil
		}
		w.metrics.RecordBackfill("failed")
		return err
	}
	if result.Skipped {
		w.metrics.RecordBackfill("skipped")
		return nil
	}
	w.metrics.RecordBackfill("completed")
	return nil
}
