package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lysyi3m/course-comb/app/catalog"
)

type SeedCatalogTask struct {
	Task
	SeedFile string
	store    catalog.Store
}

func NewSeedCatalogTask(seedFile string, store catalog.Store) *SeedCatalogTask {
	return &SeedCatalogTask{
		Task:     NewTask(TaskTypeSeedCatalog, seedFile),
		SeedFile: seedFile,
		store:    store,
	}
}

func (t *SeedCatalogTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	courses, err := catalog.LoadSeed(t.SeedFile)
	if err != nil {
		slog.Error("Task failed", "type", "SeedCatalog", "file", t.SeedFile, "error", err)
		return fmt.Errorf("failed to load seed courses: %w", err)
	}

	created := 0
	for _, course := range courses {
		_, isNew, err := t.store.Upsert(ctx, course)
		if err != nil {
			return fmt.Errorf("failed to upsert seed course %q: %w", course.Title, err)
		}
		if isNew {
			created++
		}
	}

	slog.Info("Task completed",
		"type", "SeedCatalog",
		"file", t.SeedFile,
		"courses", len(courses),
		"new", created,
		"duration", t.GetDuration())

	return nil
}
