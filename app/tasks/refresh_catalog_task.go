package tasks

import (
	"context"
	"fmt"
	"log/slog"
)

const catalogTarget = "catalog"

type RefreshCatalogTask struct {
	Task
	refresher Refresher
}

func NewRefreshCatalogTask(refresher Refresher) *RefreshCatalogTask {
	return &RefreshCatalogTask{
		Task:      NewTask(TaskTypeRefreshCatalog, catalogTarget),
		refresher: refresher,
	}
}

// Execute runs a full refresh. Source failures are part of the report and do
// not fail the task; only a fault that aborted the run is returned for retry.
func (t *RefreshCatalogTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	report, err := t.refresher.Run(ctx)
	if err != nil {
		return fmt.Errorf("failed to refresh catalog: %w", err)
	}

	slog.Info("Task completed",
		"type", "RefreshCatalog",
		"run_id", report.RunID,
		"new", report.TotalNew,
		"updated", report.TotalUpdated,
		"failed_sources", report.FailedSources(),
		"duration", t.GetDuration())

	return nil
}
