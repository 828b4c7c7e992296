package query

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"testing"
	"time"

	"github.com/lysyi3m/course-comb/app/catalog"
	"github.com/lysyi3m/course-comb/app/refresh"
	"github.com/lysyi3m/course-comb/app/sources"
)

type mockRefresher struct {
	report *refresh.Report
	err    error
	calls  int
}

var _ Refresher = (*mockRefresher)(nil)

func (m *mockRefresher) Run(ctx context.Context) (*refresh.Report, error) {
	m.calls++
	return m.report, m.err
}

func (m *mockRefresher) LastReport() *refresh.Report {
	if m.calls == 0 {
		return nil
	}
	return m.report
}

type mockSources []sources.SourceInfo

func (m mockSources) List() []sources.SourceInfo { return m }

func seedCourses(t *testing.T, store catalog.Store, courses ...catalog.Course) []int64 {
	t.Helper()
	ids := make([]int64, 0, len(courses))
	for _, c := range courses {
		id, _, err := store.Upsert(context.Background(), c)
		if err != nil {
			t.Fatalf("Failed to seed course %q: %v", c.Title, err)
		}
		ids = append(ids, id)
	}
	return ids
}

func newCourse(title, category string, level catalog.Level, tags ...string) catalog.Course {
	return catalog.Course{
		Title:    title,
		Category: category,
		Level:    level,
		Source:   "youtube",
		URL:      "https://youtube.com/watch?v=" + url.QueryEscape(title),
		Tags:     tags,
		Rating:   4.5,
	}
}

func newTestService(t *testing.T) (*Service, *catalog.MemoryStore, *mockRefresher) {
	t.Helper()
	store := catalog.NewMemoryStore()
	refresher := &mockRefresher{}
	srcs := mockSources{
		{Name: "saylor", Type: sources.KindAcademic, Active: true},
		{Name: "youtube", Type: sources.KindVideo, Active: false},
	}
	return NewService(store, refresher, srcs), store, refresher
}

func TestRecommendationsOnePerCategory(t *testing.T) {
	service, store, _ := newTestService(t)
	seedCourses(t, store,
		newCourse("a1", "Programming", catalog.LevelBeginner),
		newCourse("a2", "programming", catalog.LevelBeginner),
		newCourse("b1", "Design", catalog.LevelBeginner),
		newCourse("c1", "Science", catalog.LevelAdvanced),
	)

	got, err := service.Recommendations(context.Background(), "user-1", 0)
	if err != nil {
		t.Fatal(err)
	}

	want := []string{"a1", "b1", "c1"}
	if len(got) != len(want) {
		t.Fatalf("Expected %d recommendations, got %d", len(want), len(got))
	}
	for i, title := range want {
		if got[i].Title != title {
			t.Errorf("Expected recommendation %d to be %s, got %s", i, title, got[i].Title)
		}
	}

	limited, _ := service.Recommendations(context.Background(), "user-1", 2)
	if len(limited) != 2 {
		t.Errorf("Expected 2 recommendations with limit 2, got %d", len(limited))
	}
}

func TestRecommendationsSkipInactiveAndClampLimit(t *testing.T) {
	service, store, _ := newTestService(t)

	var courses []catalog.Course
	for i := 0; i < 30; i++ {
		courses = append(courses, newCourse(fmt.Sprintf("c%d", i), fmt.Sprintf("Category %d", i), catalog.LevelBeginner))
	}
	ids := seedCourses(t, store, courses...)

	if err := store.SetActive(context.Background(), ids[0], false); err != nil {
		t.Fatal(err)
	}

	got, err := service.Recommendations(context.Background(), "", 500)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != MaxRecommendationLimit {
		t.Errorf("Expected %d recommendations, got %d", MaxRecommendationLimit, len(got))
	}
	if got[0].Title != "c1" {
		t.Errorf("Expected inactive course to be skipped, got %s first", got[0].Title)
	}
}

func levelOf(s string) *string {
	return &s
}

func TestSubmitQuiz(t *testing.T) {
	service, store, _ := newTestService(t)
	seedCourses(t, store,
		newCourse("python", "Programming", catalog.LevelBeginner, "python", "coding"),
		newCourse("ml", "Data Science", catalog.LevelIntermediate, "machine learning"),
		newCourse("stats", "Mathematics", catalog.LevelBeginner, "data analysis"),
		newCourse("css", "Design", catalog.LevelBeginner, "web design"),
	)

	tests := []struct {
		name    string
		answers QuizAnswers
		want    []string
	}{
		{
			name:    "default level is beginner",
			answers: QuizAnswers{Interests: []string{"data"}},
			want:    []string{"stats"},
		},
		{
			name:    "explicit level",
			answers: QuizAnswers{Interests: []string{"DATA"}, Level: levelOf("intermediate")},
			want:    []string{"ml"},
		},
		{
			name:    "substring of tag or category",
			answers: QuizAnswers{Interests: []string{"design", "program"}},
			want:    []string{"python", "css"},
		},
		{
			name:    "level comparison is case-sensitive",
			answers: QuizAnswers{Interests: []string{"python"}, Level: levelOf("Beginner")},
			want:    nil,
		},
		{
			name:    "explicit empty level matches nothing",
			answers: QuizAnswers{Interests: []string{"python"}, Level: levelOf("")},
			want:    nil,
		},
		{
			name:    "no interests yields nothing",
			answers: QuizAnswers{Level: levelOf("beginner")},
			want:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := service.SubmitQuiz(context.Background(), tt.answers)
			if err != nil {
				t.Fatal(err)
			}
			if got == nil {
				t.Fatal("Expected empty slice, got nil")
			}
			if len(got) != len(tt.want) {
				t.Fatalf("Expected %d courses, got %d", len(tt.want), len(got))
			}
			for i, title := range tt.want {
				if got[i].Title != title {
					t.Errorf("Expected %s at %d, got %s", title, i, got[i].Title)
				}
			}
		})
	}
}

func TestSubmitQuizCapsResults(t *testing.T) {
	service, store, _ := newTestService(t)
	for i := 0; i < 10; i++ {
		seedCourses(t, store, newCourse(fmt.Sprintf("go-%d", i), "Programming", catalog.LevelBeginner, "go"))
	}

	got, _ := service.SubmitQuiz(context.Background(), QuizAnswers{Interests: []string{"go"}})
	if len(got) != MaxQuizResults {
		t.Errorf("Expected %d results, got %d", MaxQuizResults, len(got))
	}
}

func TestListCoursesLimits(t *testing.T) {
	service, store, _ := newTestService(t)
	for i := 0; i < 120; i++ {
		seedCourses(t, store, newCourse(fmt.Sprintf("c%d", i), "Programming", catalog.LevelBeginner))
	}

	tests := []struct {
		limit int
		want  int
	}{
		{0, DefaultListLimit},
		{10, 10},
		{500, MaxListLimit},
	}

	for _, tt := range tests {
		got, err := service.ListCourses(context.Background(), catalog.Filter{Limit: tt.limit})
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != tt.want {
			t.Errorf("Limit %d: expected %d courses, got %d", tt.limit, tt.want, len(got))
		}
	}

	empty, err := service.ListCourses(context.Background(), catalog.Filter{Category: "Cooking"})
	if err != nil {
		t.Fatal(err)
	}
	if len(empty) != 0 {
		t.Errorf("Expected no courses for unknown category, got %d", len(empty))
	}
}

func TestAdvancedSearch(t *testing.T) {
	service, store, _ := newTestService(t)
	short := newCourse("Go Basics", "Programming", catalog.LevelBeginner, "go")
	short.Duration = catalog.IntPtr(60)
	long := newCourse("Go Deep Dive", "Programming", catalog.LevelAdvanced, "go")
	long.Duration = catalog.IntPtr(600)
	seedCourses(t, store, short, long)

	got, err := service.AdvancedSearch(context.Background(), catalog.SearchCriteria{
		Query:       "go",
		MaxDuration: catalog.IntPtr(120),
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Title != "Go Basics" {
		t.Errorf("Expected only 'Go Basics', got %v", got)
	}
}

func TestGetCourse(t *testing.T) {
	service, store, _ := newTestService(t)
	ids := seedCourses(t, store, newCourse("python", "Programming", catalog.LevelBeginner))

	course, err := service.GetCourse(context.Background(), ids[0])
	if err != nil {
		t.Fatal(err)
	}
	if course.Title != "python" {
		t.Errorf("Expected 'python', got %s", course.Title)
	}

	if _, err := service.GetCourse(context.Background(), 999); !errors.Is(err, catalog.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestStatsAndRefresh(t *testing.T) {
	service, store, refresher := newTestService(t)
	ids := seedCourses(t, store,
		newCourse("a", "Programming", catalog.LevelBeginner),
		newCourse("b", "Design", catalog.LevelBeginner),
	)
	_ = store.SetActive(context.Background(), ids[1], false)

	stats, err := service.Stats(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalCourses != 2 || stats.ActiveCourses != 1 {
		t.Errorf("Expected 2 total and 1 active, got %d and %d", stats.TotalCourses, stats.ActiveCourses)
	}
	if stats.Sources != 2 || stats.ActiveSources != 1 {
		t.Errorf("Expected 2 sources with 1 active, got %d and %d", stats.Sources, stats.ActiveSources)
	}
	if stats.LastRefresh != nil {
		t.Error("Expected no last refresh before any run")
	}

	finished := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	refresher.report = &refresh.Report{RunID: "run-1", FinishedAt: finished, Sources: map[string]refresh.SourceResult{}}

	report, err := service.RefreshAll(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if report.RunID != "run-1" {
		t.Errorf("Expected run-1, got %s", report.RunID)
	}

	stats, _ = service.Stats(context.Background())
	if stats.LastRefresh == nil || !stats.LastRefresh.Equal(finished) {
		t.Errorf("Expected last refresh %v, got %v", finished, stats.LastRefresh)
	}
}

func TestListCategoriesReturnsCopy(t *testing.T) {
	service, _, _ := newTestService(t)

	categories := service.ListCategories()
	if len(categories) != 12 {
		t.Fatalf("Expected 12 categories, got %d", len(categories))
	}
	categories[0] = "Changed"

	if service.ListCategories()[0] == "Changed" {
		t.Error("Expected ListCategories to return a copy")
	}
}
