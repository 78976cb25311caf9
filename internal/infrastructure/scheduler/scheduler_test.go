package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/retailops/fulfillment/internal/domain/shipping"
)

type countingExecutor struct {
	mu       sync.Mutex
	executed []*Job
	failures int
}

func (e *countingExecutor) Execute(_ context.Context, job *Job) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.executed = append(e.executed, job)
	if e.failures > 0 {
		e.failures--
		return errors.New("transient failure")
	}
	return nil
}

func (e *countingExecutor) count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.executed)
}

func newTestScheduler(t *testing.T, executor JobExecutor, cfg Config) *Scheduler {
	t.Helper()
	s := NewScheduler(cfg, executor, zap.NewNop())
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = s.Stop(ctx)
	})
	return s
}

func TestSchedulerExecutesSubmittedJobs(t *testing.T) {
	executor := &countingExecutor{}
	s := newTestScheduler(t, executor, Config{Workers: 2})

	job := NewJob(JobKindTrackingSweep, 0)
	job.BatchSize = 25
	require.NoError(t, s.Submit(job))

	assert.Eventually(t, func() bool {
		return executor.count() == 1
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, JobStatusSuccess, job.Status)
}

func TestSchedulerRetriesFailedJobs(t *testing.T) {
	executor := &countingExecutor{failures: 1}
	s := newTestScheduler(t, executor, Config{Workers: 1, RetryDelay: 10 * time.Millisecond})

	job := NewJob(JobKindWebhookRetry, 2)
	require.NoError(t, s.Submit(job))

	assert.Eventually(t, func() bool {
		return executor.count() == 2
	}, time.Second, 10*time.Millisecond)
	assert.Eventually(t, func() bool {
		return job.Status == JobStatusSuccess
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, job.RetryCount)
}

func TestSchedulerDefersFutureJobs(t *testing.T) {
	executor := &countingExecutor{}
	s := newTestScheduler(t, executor, Config{Workers: 1})

	job := NewJob(JobKindFollowUp, 0)
	job.RunAt = time.Now().Add(50 * time.Millisecond)
	require.NoError(t, s.Submit(job))

	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, executor.count())

	assert.Eventually(t, func() bool {
		return executor.count() == 1
	}, time.Second, 10*time.Millisecond)
}

func TestSchedulerRejectsWhenStopped(t *testing.T) {
	s := NewScheduler(Config{Workers: 1}, &countingExecutor{}, zap.NewNop())

	err := s.Submit(NewJob(JobKindTrackingSweep, 0))
	assert.ErrorIs(t, err, ErrSchedulerNotRunning)
}

func TestFollowUpQueueSchedulesJob(t *testing.T) {
	executor := &countingExecutor{}
	s := newTestScheduler(t, executor, Config{Workers: 1})
	queue := NewFollowUpQueue(s)

	orderID := uuid.New()
	err := queue.Schedule(context.Background(), orderID, shipping.FollowUpReviewRequest, time.Now())
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return executor.count() == 1
	}, time.Second, 10*time.Millisecond)

	executor.mu.Lock()
	defer executor.mu.Unlock()
	job := executor.executed[0]
	assert.Equal(t, JobKindFollowUp, job.Kind)
	assert.Equal(t, orderID, job.OrderID)
	assert.Equal(t, shipping.FollowUpReviewRequest, job.FollowUp)
}

func TestSweeperSubmitsPeriodicJobs(t *testing.T) {
	executor := &countingExecutor{}
	s := newTestScheduler(t, executor, Config{Workers: 1})

	sweeper := NewSweeper(SweeperConfig{
		TrackingSweepInterval:  20 * time.Millisecond,
		TrackingSweepBatchSize: 10,
		WebhookRetryInterval:   20 * time.Millisecond,
		WebhookRetryBatchSize:  5,
	}, s, zap.NewNop())

	require.NoError(t, sweeper.Start(context.Background()))
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = sweeper.Stop(ctx)
	}()

	assert.Eventually(t, func() bool {
		return executor.count() >= 2
	}, time.Second, 10*time.Millisecond)

	executor.mu.Lock()
	defer executor.mu.Unlock()
	kinds := map[JobKind]bool{}
	for _, job := range executor.executed {
		kinds[job.Kind] = true
	}
	assert.True(t, kinds[JobKindTrackingSweep] || kinds[JobKindWebhookRetry])
}
