package tasks

// TaskSchedulerInterface is the handle tasks and handlers use to queue
// further work. The sync task re-enqueues itself through it to drain
// the stale-channel backlog.
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
}
