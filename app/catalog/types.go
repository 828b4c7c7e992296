package catalog

import (
	"time"
)

type Level string

const (
	LevelBeginner     Level = "beginner"
	LevelIntermediate Level = "intermediate"
	LevelAdvanced     Level = "advanced"
)

// Course is the normalized record every source adapter produces.
type Course struct {
	ID          int64     `json:"id" yaml:"-"`
	Title       string    `json:"title" yaml:"title"`
	Description string    `json:"description,omitempty" yaml:"description"`
	Instructor  string    `json:"instructor,omitempty" yaml:"instructor"`
	Duration    *int      `json:"duration,omitempty" yaml:"duration"` // minutes, nil when unknown
	Level       Level     `json:"level,omitempty" yaml:"level"`
	Category    string    `json:"category,omitempty" yaml:"category"`
	Source      string    `json:"source" yaml:"source"`
	URL         string    `json:"url" yaml:"url"`
	Thumbnail   string    `json:"thumbnail,omitempty" yaml:"thumbnail"`
	Rating      float64   `json:"rating" yaml:"rating"`
	Students    int       `json:"students" yaml:"students"`
	Tags        []string  `json:"tags" yaml:"tags"`
	Lessons     int       `json:"lessons" yaml:"lessons"`
	LastUpdated time.Time `json:"last_updated" yaml:"-"`
	CreatedAt   time.Time `json:"created_at" yaml:"-"`
	IsActive    bool      `json:"is_active" yaml:"-"`
}

// Key is the natural key used to deduplicate courses across refreshes.
type Key struct {
	Source string
	URL    string
}

func (c Course) Key() Key {
	return Key{Source: c.Source, URL: c.URL}
}

func (k Key) String() string {
	return k.Source + "|" + k.URL
}

// Filter narrows a course listing. Empty fields impose no constraint.
type Filter struct {
	Category string
	Level    string
	Source   string
	Search   string
	Limit    int
}

// SearchCriteria is the multi-criteria search request.
type SearchCriteria struct {
	Query       string   `json:"query,omitempty"`
	Category    string   `json:"category,omitempty"`
	Level       string   `json:"level,omitempty"`
	Source      string   `json:"source,omitempty"`
	MinRating   *float64 `json:"min_rating,omitempty"`
	MaxDuration *int     `json:"max_duration,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Limit       int      `json:"limit,omitempty"`
}

// IntPtr is a helper for the optional integer fields of Course and SearchCriteria.
func IntPtr(v int) *int {
	return &v
}

func Float64Ptr(v float64) *float64 {
	return &v
}
