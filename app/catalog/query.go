package catalog

import (
	"strings"

	"golang.org/x/text/cases"
)

// Fold returns the case-folded form used for every case-insensitive comparison.
// A Caser is stateful, so one is created per call.
func Fold(s string) string {
	return cases.Fold().String(s)
}

// EqualFold reports whether a and b are equal under full Unicode case folding.
func EqualFold(a, b string) bool {
	return Fold(a) == Fold(b)
}

// ContainsFold reports whether substr appears in s ignoring case.
func ContainsFold(s, substr string) bool {
	return strings.Contains(Fold(s), Fold(substr))
}

// Matches reports whether c satisfies every set field of f.
func (f Filter) Matches(c Course) bool {
	if f.Category != "" && !EqualFold(c.Category, f.Category) {
		return false
	}
	if f.Level != "" && !EqualFold(string(c.Level), f.Level) {
		return false
	}
	if f.Source != "" && !EqualFold(c.Source, f.Source) {
		return false
	}
	if f.Search != "" {
		term := Fold(f.Search)
		if !strings.Contains(Fold(c.Title), term) &&
			!strings.Contains(Fold(c.Description), term) &&
			!anyTagContains(c.Tags, term) {
			return false
		}
	}
	return true
}

func anyTagContains(tags []string, foldedTerm string) bool {
	for _, tag := range tags {
		if strings.Contains(Fold(tag), foldedTerm) {
			return true
		}
	}
	return false
}

// Matches reports whether c satisfies the search criteria. Courses with an
// unknown duration never satisfy a MaxDuration bound.
func (s SearchCriteria) Matches(c Course) bool {
	if s.Query != "" {
		term := Fold(s.Query)
		if !strings.Contains(Fold(c.Title), term) && !strings.Contains(Fold(c.Description), term) {
			return false
		}
	}
	if s.Category != "" && !EqualFold(c.Category, s.Category) {
		return false
	}
	if s.Level != "" && !EqualFold(string(c.Level), s.Level) {
		return false
	}
	if s.Source != "" && !EqualFold(c.Source, s.Source) {
		return false
	}
	if s.MinRating != nil && c.Rating < *s.MinRating {
		return false
	}
	if s.MaxDuration != nil && (c.Duration == nil || *c.Duration > *s.MaxDuration) {
		return false
	}
	if len(s.Tags) > 0 && !hasAnyTag(c.Tags, s.Tags) {
		return false
	}
	return true
}

func hasAnyTag(courseTags, wanted []string) bool {
	folded := make(map[string]bool, len(courseTags))
	for _, tag := range courseTags {
		folded[Fold(tag)] = true
	}
	for _, tag := range wanted {
		if folded[Fold(tag)] {
			return true
		}
	}
	return false
}

// ApplyFilter keeps active courses matching f, preserving input order, then truncates to f.Limit.
func ApplyFilter(courses []Course, f Filter) []Course {
	out := make([]Course, 0, len(courses))
	for _, c := range courses {
		if c.IsActive && f.Matches(c) {
			out = append(out, c)
		}
	}
	return Limit(out, f.Limit)
}

// ApplySearch keeps active courses matching s, preserving input order, then truncates to s.Limit.
func ApplySearch(courses []Course, s SearchCriteria) []Course {
	out := make([]Course, 0, len(courses))
	for _, c := range courses {
		if c.IsActive && s.Matches(c) {
			out = append(out, c)
		}
	}
	return Limit(out, s.Limit)
}

// Limit truncates courses to the first n entries. n <= 0 means no limit.
func Limit(courses []Course, n int) []Course {
	if n <= 0 || len(courses) <= n {
		return courses
	}
	return courses[:n]
}
