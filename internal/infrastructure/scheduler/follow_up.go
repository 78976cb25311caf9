package scheduler

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/retailops/fulfillment/internal/domain/shipping"
)

// FollowUpQueue schedules post-delivery follow-ups as deferred jobs.
type FollowUpQueue struct {
	scheduler *Scheduler
}

// NewFollowUpQueue creates a follow-up scheduler backed by the worker pool.
func NewFollowUpQueue(scheduler *Scheduler) *FollowUpQueue {
	return &FollowUpQueue{scheduler: scheduler}
}

func (q *FollowUpQueue) Schedule(_ context.Context, orderID uuid.UUID, kind shipping.FollowUpKind, runAt time.Time) error {
	job := NewJob(JobKindFollowUp, q.scheduler.config.RetryAttempts)
	job.OrderID = orderID
	job.FollowUp = kind
	job.RunAt = runAt
	return q.scheduler.Submit(job)
}

var _ shipping.FollowUpScheduler = (*FollowUpQueue)(nil)
