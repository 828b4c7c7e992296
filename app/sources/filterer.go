package sources

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/lysyi3m/course-comb/app/catalog"
)

var filterFields = map[string]bool{
	"title":       true,
	"description": true,
	"instructor":  true,
	"category":    true,
	"level":       true,
	"tags":        true,
	"url":         true,
}

// filterCourse reports whether course is dropped by filters, and why.
// Excludes win over includes; patterns match case-insensitive substrings.
func filterCourse(course catalog.Course, filters []Filter) (bool, string) {
	for _, filter := range filters {
		value := fieldValue(course, filter.Field)

		for _, exclude := range filter.Excludes {
			if catalog.ContainsFold(value, exclude) {
				return true, fmt.Sprintf("excluded by %s filter: contains '%s'", filter.Field, exclude)
			}
		}

		if len(filter.Includes) > 0 {
			matched := false
			for _, include := range filter.Includes {
				if catalog.ContainsFold(value, include) {
					matched = true
					break
				}
			}
			if !matched {
				return true, fmt.Sprintf("excluded by %s filter: does not contain any of %v", filter.Field, filter.Includes)
			}
		}
	}

	return false, ""
}

func fieldValue(course catalog.Course, field string) string {
	switch field {
	case "title":
		return course.Title
	case "description":
		return course.Description
	case "instructor":
		return course.Instructor
	case "category":
		return course.Category
	case "level":
		return string(course.Level)
	case "tags":
		return strings.Join(course.Tags, " ")
	case "url":
		return course.URL
	default:
		return ""
	}
}

// keep applies the source's filters to a finished course.
func (b base) keep(course catalog.Course) bool {
	filtered, reason := filterCourse(course, b.config.Filters)
	if filtered {
		slog.Debug("Course filtered", "source", b.config.Name, "url", course.URL, "reason", reason)
	}
	return !filtered
}
