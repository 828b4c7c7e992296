// Package query is the read and refresh facade used by the HTTP layer.
package query

import (
	"context"
	"fmt"
	"time"

	"github.com/lysyi3m/course-comb/app/catalog"
	"github.com/lysyi3m/course-comb/app/refresh"
	"github.com/lysyi3m/course-comb/app/sources"
)

const (
	DefaultListLimit           = 50
	MaxListLimit               = 100
	DefaultRecommendationLimit = 6
	MaxRecommendationLimit     = 20
	MaxQuizResults             = 6

	DefaultQuizLevel = catalog.LevelBeginner
)

type Refresher interface {
	Run(ctx context.Context) (*refresh.Report, error)
	LastReport() *refresh.Report
}

type SourceLister interface {
	List() []sources.SourceInfo
}

// QuizAnswers.Level defaults to beginner only when absent. An explicit empty
// level matches no course.
type QuizAnswers struct {
	Interests []string `json:"interests"`
	Level     *string  `json:"level"`
}

type Stats struct {
	TotalCourses  int        `json:"total_courses"`
	ActiveCourses int        `json:"active_courses"`
	Sources       int        `json:"course_platforms"`
	ActiveSources int        `json:"active_sources"`
	Categories    int        `json:"categories"`
	LastRefresh   *time.Time `json:"last_updated,omitempty"`
	LastRunID     string     `json:"last_run_id,omitempty"`
}

type Service struct {
	store     catalog.Store
	refresher Refresher
	sources   SourceLister
}

func NewService(store catalog.Store, refresher Refresher, sources SourceLister) *Service {
	return &Service{
		store:     store,
		refresher: refresher,
		sources:   sources,
	}
}

func clampLimit(limit, def, max int) int {
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}

// ListCourses returns active courses matching filter in catalog order.
func (s *Service) ListCourses(ctx context.Context, filter catalog.Filter) ([]catalog.Course, error) {
	filter.Limit = clampLimit(filter.Limit, DefaultListLimit, MaxListLimit)
	courses, err := s.store.Filter(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list courses: %w", err)
	}
	return courses, nil
}

func (s *Service) GetCourse(ctx context.Context, id int64) (catalog.Course, error) {
	return s.store.GetByID(ctx, id)
}

// Recommendations picks the first active course of each distinct category,
// in catalog order, until limit is reached. userID is accepted for API
// compatibility; no per-user profile exists.
func (s *Service) Recommendations(ctx context.Context, userID string, limit int) ([]catalog.Course, error) {
	limit = clampLimit(limit, DefaultRecommendationLimit, MaxRecommendationLimit)

	courses, err := s.store.Filter(ctx, catalog.Filter{})
	if err != nil {
		return nil, fmt.Errorf("failed to load courses for recommendations: %w", err)
	}

	recommendations := make([]catalog.Course, 0, limit)
	seen := make(map[string]bool)
	for _, course := range courses {
		category := catalog.Fold(course.Category)
		if seen[category] {
			continue
		}
		seen[category] = true
		recommendations = append(recommendations, course)
		if len(recommendations) >= limit {
			break
		}
	}
	return recommendations, nil
}

func (s *Service) AdvancedSearch(ctx context.Context, criteria catalog.SearchCriteria) ([]catalog.Course, error) {
	criteria.Limit = clampLimit(criteria.Limit, DefaultListLimit, MaxListLimit)
	courses, err := s.store.Search(ctx, criteria)
	if err != nil {
		return nil, fmt.Errorf("failed to search courses: %w", err)
	}
	return courses, nil
}

// SubmitQuiz matches courses whose level equals the requested level exactly
// and whose category or one of whose tags contains any interest. No interests
// means no matches.
func (s *Service) SubmitQuiz(ctx context.Context, answers QuizAnswers) ([]catalog.Course, error) {
	recommendations := []catalog.Course{}
	if len(answers.Interests) == 0 {
		return recommendations, nil
	}

	level := DefaultQuizLevel
	if answers.Level != nil {
		level = catalog.Level(*answers.Level)
	}

	courses, err := s.store.Filter(ctx, catalog.Filter{})
	if err != nil {
		return nil, fmt.Errorf("failed to load courses for quiz: %w", err)
	}

	for _, course := range courses {
		if course.Level != level || !matchesInterest(course, answers.Interests) {
			continue
		}
		recommendations = append(recommendations, course)
		if len(recommendations) >= MaxQuizResults {
			break
		}
	}
	return recommendations, nil
}

func matchesInterest(course catalog.Course, interests []string) bool {
	for _, interest := range interests {
		if catalog.ContainsFold(course.Category, interest) {
			return true
		}
		for _, tag := range course.Tags {
			if catalog.ContainsFold(tag, interest) {
				return true
			}
		}
	}
	return false
}

func (s *Service) RefreshAll(ctx context.Context) (*refresh.Report, error) {
	return s.refresher.Run(ctx)
}

func (s *Service) ListSources() []sources.SourceInfo {
	return s.sources.List()
}

func (s *Service) ListCategories() []string {
	return append([]string(nil), catalog.Categories...)
}

func (s *Service) Stats(ctx context.Context) (Stats, error) {
	total, err := s.store.Count(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to count courses: %w", err)
	}

	active, err := s.store.Filter(ctx, catalog.Filter{})
	if err != nil {
		return Stats{}, fmt.Errorf("failed to count active courses: %w", err)
	}

	stats := Stats{
		TotalCourses:  total,
		ActiveCourses: len(active),
		Categories:    len(catalog.Categories),
	}

	for _, info := range s.sources.List() {
		stats.Sources++
		if info.Active {
			stats.ActiveSources++
		}
	}

	if report := s.refresher.LastReport(); report != nil {
		finished := report.FinishedAt
		stats.LastRefresh = &finished
		stats.LastRunID = report.RunID
	}

	return stats, nil
}
