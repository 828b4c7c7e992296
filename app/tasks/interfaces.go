package tasks

import (
	"context"

	"github.com/lysyi3m/course-comb/app/refresh"
)

// TaskSchedulerInterface is the background task queue used by the server.
//
//	scheduler := NewScheduler(coordinator, store, Options{Interval: time.Hour, WorkerCount: 2})
//	scheduler.Start()
//	defer scheduler.Stop()
//	scheduler.EnqueueTask(NewRefreshCatalogTask(coordinator))
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
}

// Refresher runs one catalog refresh. refresh.Coordinator satisfies it.
type Refresher interface {
	Run(ctx context.Context) (*refresh.Report, error)
}

var _ Refresher = (*refresh.Coordinator)(nil)
