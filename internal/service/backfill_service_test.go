package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/attendance-tracker-api/internal/dto"
	appErrors "github.com/noah-isme/attendance-tracker-api/pkg/errors"
	"github.com/noah-isme/attendance-tracker-api/pkg/jobs"
)

type stubDispatcher struct {
	jobs []jobs.Job
	err  error
}

func (s *stubDispatcher) Enqueue(job jobs.Job) error {
	if s.err != nil {
		return s.err
	}
	s.jobs = append(s.jobs, job)
	return nil
}

type stubBackfillRunner struct {
	calls  []dto.BackfillJob
	result *dto.BackfillResult
	err    error
}

func (s *stubBackfillRunner) Backfill(ctx context.Context, userID string, rawDate string) (*dto.BackfillResult, error) {
	s.calls = append(s.calls, dto.BackfillJob{UserID: userID, Date: rawDate})
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func TestBackfillServiceSchedule(t *testing.T) {
	dispatcher := &stubDispatcher{}
	svc := NewBackfillService(dispatcher, nil)

	accepted, err := svc.Schedule(context.Background(), "user-1", dto.BackfillRequest{Date: " 2025-04-07 "})
	require.NoError(t, err)
	require.Len(t, dispatcher.jobs, 1)

	job := dispatcher.jobs[0]
	assert.Equal(t, accepted.JobID, job.ID)
	assert.Equal(t, BackfillJobType, job.Type)
	assert.Equal(t, dto.BackfillJob{UserID: "user-1", Date: "2025-04-07"}, job.Payload)
}

func TestBackfillServiceScheduleQueueUnavailable(t *testing.T) {
	svc := NewBackfillService(&stubDispatcher{err: fmt.Errorf("queue backfill: %w", jobs.ErrQueueFull)}, nil)

	_, err := svc.Schedule(context.Background(), "user-1", dto.BackfillRequest{})
	require.Error(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, appErrors.FromError(err).Status)
}

func TestBackfillWorkerHandle(t *testing.T) {
	runner := &stubBackfillRunner{result: &dto.BackfillResult{Date: "2025-04-07", Marked: []string{"maths"}}}
	worker := NewBackfillWorker(runner, NewMetricsService(), nil)

	err := worker.Handle(context.Background(), jobs.Job{ID: "job-1", Payload: dto.BackfillJob{UserID: "user-1", Date: "2025-04-07"}})
	require.NoError(t, err)
	assert.Equal(t, []dto.BackfillJob{{UserID: "user-1", Date: "2025-04-07"}}, runner.calls)
}

func TestBackfillWorkerRetriesOnlyStoreFailures(t *testing.T) {
	runner := &stubBackfillRunner{err: appErrors.Clone(appErrors.ErrValidation, "invalid date")}
	worker := NewBackfillWorker(runner, nil, nil)
	job := jobs.Job{ID: "job-1", Payload: dto.BackfillJob{UserID: "user-1", Date: "nope"}}

	assert.NoError(t, worker.Handle(context.Background(), job), "validation errors are final")

	runner.err = appErrors.Wrap(errors.New("connection refused"), appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed")
	assert.Error(t, worker.Handle(context.Background(), job))

	assert.NoError(t, worker.Handle(context.Background(), jobs.Job{ID: "job-2", Payload: "garbage"}))
}
