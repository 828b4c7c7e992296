package catalog

import (
	"context"
)

// Store is the authoritative collection of courses.
//
// Upsert matches on the (source, url) natural key: an existing record keeps its
// ID, CreatedAt and IsActive flag while every other field and LastUpdated is
// replaced; a new record gets a fresh ID and CreatedAt = LastUpdated = now.
// List, Filter and Search return courses in insertion order.
type Store interface {
	Upsert(ctx context.Context, course Course) (id int64, created bool, err error)
	GetByID(ctx context.Context, id int64) (Course, error)
	List(ctx context.Context) ([]Course, error)
	Filter(ctx context.Context, filter Filter) ([]Course, error)
	Search(ctx context.Context, criteria SearchCriteria) ([]Course, error)
	SetActive(ctx context.Context, id int64, active bool) error
	Count(ctx context.Context) (int, error)
}

// Categories is the fixed category list offered to clients.
var Categories = []string{
	"Programming", "Data Science", "Marketing", "Design",
	"Business", "Languages", "Science", "Mathematics",
	"Personal Development", "Arts", "Health", "Technology",
}
