package tasks

import (
	"context"
	"fmt"
	"log/slog"
)

var _ TaskSchedulerInterface = (*Runner)(nil)

// Runner executes tasks inline instead of through the worker pool. It
// backs the one-shot refresh mode: tasks enqueued during execution,
// including the sync task's drain continuations, run in order until
// the queue is empty.
type Runner struct {
	queue []TaskInterface
}

func NewRunner() *Runner {
	return &Runner{}
}

func (r *Runner) Start() {}

func (r *Runner) Stop() {}

func (r *Runner) EnqueueTask(task TaskInterface) error {
	r.queue = append(r.queue, task)
	return nil
}

// Run executes the given task and then drains the queue, returning
// the first error.
func (r *Runner) Run(ctx context.Context, task TaskInterface) error {
	if err := r.EnqueueTask(task); err != nil {
		return err
	}

	for len(r.queue) > 0 {
		next := r.queue[0]
		r.queue = r.queue[1:]

		next.Start()
		slog.Debug("Running task", "type", string(next.GetType()), "id", next.GetID())

		if err := next.Execute(ctx); err != nil {
			return fmt.Errorf("task %s failed: %w", string(next.GetType()), err)
		}
	}

	return nil
}
