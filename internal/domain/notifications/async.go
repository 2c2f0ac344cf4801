package notifications

import (
	"context"
	"maps"

	"expenseflow/internal/domain/expense"
	apperrors "expenseflow/internal/errors"
)

const JobNotify = "notify"

// Dispatcher runs work off the request path.
type Dispatcher interface {
	Enqueue(jobType string, run func(context.Context) error) bool
}

// AsyncNotifier queues deliveries so a slow inbox or mail server never
// delays a workflow transition.
type AsyncNotifier struct {
	jobs Dispatcher
	next expense.Notifier
}

func NewAsync(jobs Dispatcher, next expense.Notifier) *AsyncNotifier {
	return &AsyncNotifier{jobs: jobs, next: next}
}

var errQueueFull = apperrors.New(apperrors.CodeUnavailable, "notification queue is full")

func (a *AsyncNotifier) Notify(_ context.Context, userID, kind string, payload map[string]any) error {
	payload = maps.Clone(payload)
	if !a.jobs.Enqueue(JobNotify, func(ctx context.Context) error {
		return a.next.Notify(ctx, userID, kind, payload)
	}) {
		return errQueueFull
	}
	return nil
}
