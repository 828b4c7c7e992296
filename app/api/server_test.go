package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lysyi3m/course-comb/app/catalog"
	"github.com/lysyi3m/course-comb/app/metrics"
	"github.com/lysyi3m/course-comb/app/query"
	"github.com/lysyi3m/course-comb/app/refresh"
	"github.com/lysyi3m/course-comb/app/sources"
)

type brokenStore struct {
	*catalog.MemoryStore
}

func (s *brokenStore) Filter(ctx context.Context, f catalog.Filter) ([]catalog.Course, error) {
	return nil, errors.New("database is locked")
}

func (s *brokenStore) Upsert(ctx context.Context, c catalog.Course) (int64, bool, error) {
	return 0, false, errors.New("database is locked")
}

func newFixture(t *testing.T, store catalog.Store, apiKey string) *gin.Engine {
	t.Helper()

	registry := sources.NewRegistry()
	require.NoError(t, sources.RegisterConfigs(registry, sources.DefaultConfigs(), sources.FetcherOptions{}))

	coordinator := refresh.NewCoordinator(registry, store)
	service := query.NewService(store, coordinator, registry)

	return NewServer(NewHandler(service, store, "test"), apiKey, metrics.NewManager())
}

func seeded(t *testing.T) *catalog.MemoryStore {
	t.Helper()
	store := catalog.NewMemoryStore()
	courses := []catalog.Course{
		{Title: "Complete Python Course", Source: "youtube", URL: "https://youtube.com/watch?v=py", Category: "Programming", Level: catalog.LevelBeginner, Rating: 4.8, Tags: []string{"python"}, Duration: catalog.IntPtr(600)},
		{Title: "Machine Learning", Source: "opencourseware", URL: "https://ocw.mit.edu/ml", Category: "Data Science", Level: catalog.LevelIntermediate, Rating: 4.7, Tags: []string{"machine learning"}, Duration: catalog.IntPtr(2400)},
		{Title: "Web Design Basics", Source: "saylor", URL: "https://learn.saylor.org/design", Category: "Design", Level: catalog.LevelBeginner, Rating: 4.2, Tags: []string{"web design", "css"}},
	}
	for _, c := range courses {
		_, _, err := store.Upsert(context.Background(), c)
		require.NoError(t, err)
	}
	return store
}

func do(t *testing.T, r http.Handler, method, path, body string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestListCourses(t *testing.T) {
	r := newFixture(t, seeded(t), "")

	rec := do(t, r, http.MethodGet, "/api/courses", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]catalog.Course](t, rec), 3)

	rec = do(t, r, http.MethodGet, "/api/courses?category=programming&level=BEGINNER", "")
	require.Equal(t, http.StatusOK, rec.Code)
	courses := decode[[]catalog.Course](t, rec)
	require.Len(t, courses, 1)
	assert.Equal(t, "Complete Python Course", courses[0].Title)

	rec = do(t, r, http.MethodGet, "/api/courses?category=Cooking", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))
}

func TestListCoursesRejectsBadLimit(t *testing.T) {
	r := newFixture(t, seeded(t), "")

	for _, limit := range []string{"101", "0", "-1", "ten"} {
		rec := do(t, r, http.MethodGet, "/api/courses?limit="+limit, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, "limit=%s", limit)
	}

	rec := do(t, r, http.MethodGet, "/api/courses?limit=100", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGetCourse(t *testing.T) {
	r := newFixture(t, seeded(t), "")

	rec := do(t, r, http.MethodGet, "/api/courses/2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	course := decode[catalog.Course](t, rec)
	assert.Equal(t, int64(2), course.ID)
	assert.Equal(t, "Machine Learning", course.Title)
	assert.True(t, course.IsActive)

	assert.Equal(t, http.StatusNotFound, do(t, r, http.MethodGet, "/api/courses/999", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, r, http.MethodGet, "/api/courses/abc", "").Code)
}

func TestRecommendations(t *testing.T) {
	r := newFixture(t, seeded(t), "")

	rec := do(t, r, http.MethodGet, "/api/courses/recommended/user-42?limit=2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	courses := decode[[]catalog.Course](t, rec)
	require.Len(t, courses, 2)
	assert.Equal(t, "Programming", courses[0].Category)
	assert.Equal(t, "Data Science", courses[1].Category)

	assert.Equal(t, http.StatusBadRequest, do(t, r, http.MethodGet, "/api/courses/recommended/user-42?limit=21", "").Code)
}

func TestSearchCourses(t *testing.T) {
	r := newFixture(t, seeded(t), "")

	rec := do(t, r, http.MethodPost, "/api/courses/search", `{"min_rating":4.5,"max_duration":1000}`)
	require.Equal(t, http.StatusOK, rec.Code)
	courses := decode[[]catalog.Course](t, rec)
	require.Len(t, courses, 1)
	assert.Equal(t, "Complete Python Course", courses[0].Title)

	rec = do(t, r, http.MethodPost, "/api/courses/search", `{"tags":["CSS"]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]catalog.Course](t, rec), 1)

	assert.Equal(t, http.StatusBadRequest, do(t, r, http.MethodPost, "/api/courses/search", `{"min_rating":"high"}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, r, http.MethodPost, "/api/courses/search", `{"limit":500}`).Code)
}

func TestSubmitQuiz(t *testing.T) {
	r := newFixture(t, seeded(t), "")

	rec := do(t, r, http.MethodPost, "/api/quiz/submit", `{"user_id":"u1","answers":{"interests":["design","python"]}}`)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[quizResponse](t, rec)
	assert.True(t, resp.Success)
	assert.False(t, resp.ProfileUpdated)
	require.Len(t, resp.Recommendations, 2)
	assert.Equal(t, "Complete Python Course", resp.Recommendations[0].Title)

	rec = do(t, r, http.MethodPost, "/api/quiz/submit", `{"user_id":"u1","answers":{}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"recommendations":[]`)

	rec = do(t, r, http.MethodPost, "/api/quiz/submit", `{"answers":{"interests":["python"],"level":""}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[quizResponse](t, rec).Recommendations)
}

func TestRefreshRequiresKey(t *testing.T) {
	r := newFixture(t, seeded(t), "secret")

	assert.Equal(t, http.StatusUnauthorized, do(t, r, http.MethodPost, "/api/courses/refresh", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(t, r, http.MethodPost, "/api/courses/refresh", "", "X-API-Key", "wrong").Code)

	rec := do(t, r, http.MethodPost, "/api/courses/refresh", "", "Authorization", "Bearer secret")
	require.Equal(t, http.StatusOK, rec.Code)

	report := decode[refresh.Report](t, rec)
	assert.NotEmpty(t, report.RunID)
	assert.Len(t, report.Sources, 5)

	rec = do(t, r, http.MethodGet, "/api/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode[query.Stats](t, rec)
	assert.Equal(t, 3, stats.TotalCourses)
	assert.Equal(t, 5, stats.Sources)
	assert.Equal(t, report.RunID, stats.LastRunID)
}

func TestSourcesAndCategories(t *testing.T) {
	r := newFixture(t, seeded(t), "")

	rec := do(t, r, http.MethodGet, "/api/sources", "")
	require.Equal(t, http.StatusOK, rec.Code)
	srcs := decode[map[string][]sources.SourceInfo](t, rec)["sources"]
	require.Len(t, srcs, 5)
	assert.Equal(t, "opencourseware", srcs[0].Name)

	rec = do(t, r, http.MethodGet, "/api/categories", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[map[string][]string](t, rec)["categories"], 12)
}

func TestInternalErrorsAreGeneric(t *testing.T) {
	r := newFixture(t, &brokenStore{MemoryStore: seeded(t)}, "")

	for _, tc := range []struct{ method, path, body string }{
		{http.MethodGet, "/api/courses", ""},
		{http.MethodGet, "/api/courses/recommended/u1", ""},
		{http.MethodPost, "/api/quiz/submit", `{"answers":{"interests":["python"]}}`},
		{http.MethodGet, "/api/stats", ""},
	} {
		rec := do(t, r, tc.method, tc.path, tc.body)
		assert.Equal(t, http.StatusInternalServerError, rec.Code, tc.path)
		assert.JSONEq(t, `{"error":"Internal server error"}`, rec.Body.String(), tc.path)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	r := newFixture(t, seeded(t), "")

	rec := do(t, r, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	health := decode[map[string]any](t, rec)
	assert.Equal(t, "healthy", health["status"])
	assert.Equal(t, float64(3), health["courses"])

	do(t, r, http.MethodGet, "/api/courses", "")
	rec = do(t, r, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `course_comb_http_requests_total{method="GET",route="/api/courses",status="200"}`)
}

func TestRefreshSkipsNonNumericRating(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"items": [
			{"title": "Broken", "url": "https://x.org/a", "rating": "NaN"},
			{"title": "Fine", "url": "https://x.org/b", "rating": 4}
		]}`))
	}))
	defer upstream.Close()

	registry := sources.NewRegistry()
	require.NoError(t, sources.RegisterConfigs(registry, []*sources.Config{{
		Name: "swayam",
		Type: sources.TypeAPI,
		Kind: sources.KindAcademic,
		URL:  upstream.URL,
		Settings: sources.ConfigSettings{
			Enabled:  true,
			Timeout:  5,
			MaxItems: 10,
			MaxPages: 1,
		},
		API: sources.APIMapping{
			ItemsPath:    "items",
			MaxRetries:   1,
			DurationUnit: "minutes",
			RatingScale:  5,
			Fields:       map[string]string{"title": "title", "url": "url", "rating": "rating"},
		},
	}}, sources.FetcherOptions{}))

	store := catalog.NewMemoryStore()
	coordinator := refresh.NewCoordinator(registry, store)
	r := NewServer(NewHandler(query.NewService(store, coordinator, registry), store, "test"), "", metrics.NewManager())

	rec := do(t, r, http.MethodPost, "/api/courses/refresh", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	for _, path := range []string{"/api/courses", "/api/courses/recommended/u"} {
		rec = do(t, r, http.MethodGet, path, "")
		require.Equal(t, http.StatusOK, rec.Code, path)
		courses := decode[[]catalog.Course](t, rec)
		require.Len(t, courses, 1, path)
		assert.Equal(t, "Fine", courses[0].Title)
	}
}
