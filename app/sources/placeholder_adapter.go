package sources

import (
	"context"
	"log/slog"

	"github.com/lysyi3m/course-comb/app/catalog"
)

var _ Adapter = (*PlaceholderAdapter)(nil)

// PlaceholderAdapter stands in for a provider that has no integration yet.
type PlaceholderAdapter struct {
	base
}

func NewPlaceholderAdapter(config *Config) *PlaceholderAdapter {
	return &PlaceholderAdapter{base: base{config: config}}
}

func (a *PlaceholderAdapter) FetchCourses(ctx context.Context) ([]catalog.Course, error) {
	if err := ctx.Err(); err != nil {
		return nil, a.fail(err)
	}
	slog.Debug("Source not implemented, skipping", "source", a.Name())
	return []catalog.Course{}, nil
}
