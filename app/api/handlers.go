package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lysyi3m/course-comb/app/catalog"
	"github.com/lysyi3m/course-comb/app/query"
)

func NewHandler(service *query.Service, store catalog.Store, version string) *Handler {
	return &Handler{
		service: service,
		store:   store,
		version: version,
	}
}

// parseLimit reads an optional positive limit no greater than max. Zero means
// the caller did not supply one.
func parseLimit(c *gin.Context, max int) (int, error) {
	raw := c.Query("limit")
	if raw == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("limit must be an integer")
	}
	if limit < 1 || limit > max {
		return 0, fmt.Errorf("limit must be between 1 and %d", max)
	}
	return limit, nil
}

func (h *Handler) ListCourses(c *gin.Context) {
	limit, err := parseLimit(c, query.MaxListLimit)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	courses, err := h.service.ListCourses(c.Request.Context(), catalog.Filter{
		Category: c.Query("category"),
		Level:    c.Query("level"),
		Source:   c.Query("source"),
		Search:   c.Query("search"),
		Limit:    limit,
	})
	if err != nil {
		slog.Error("Database error", "operation", "list_courses", "error", err)
		c.JSON(http.StatusInternalServerError, internalError)
		return
	}

	c.Header("X-Total-Courses", strconv.Itoa(len(courses)))
	c.JSON(http.StatusOK, courses)
}

func (h *Handler) GetCourse(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "Invalid course id"})
		return
	}

	course, err := h.service.GetCourse(c.Request.Context(), id)
	if errors.Is(err, catalog.ErrNotFound) {
		c.JSON(http.StatusNotFound, errorResponse{Error: "Course not found"})
		return
	}
	if err != nil {
		slog.Error("Database error", "operation", "get_course", "id", id, "error", err)
		c.JSON(http.StatusInternalServerError, internalError)
		return
	}

	c.JSON(http.StatusOK, course)
}

func (h *Handler) GetRecommendations(c *gin.Context) {
	limit, err := parseLimit(c, query.MaxRecommendationLimit)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	userID := c.Param("user_id")
	courses, err := h.service.Recommendations(c.Request.Context(), userID, limit)
	if err != nil {
		slog.Error("Database error", "operation", "recommendations", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, internalError)
		return
	}

	c.JSON(http.StatusOK, courses)
}

func (h *Handler) SearchCourses(c *gin.Context) {
	var criteria catalog.SearchCriteria
	if err := c.ShouldBindJSON(&criteria); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "Invalid search request"})
		return
	}

	if criteria.Limit < 0 || criteria.Limit > query.MaxListLimit {
		c.JSON(http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("limit must be between 1 and %d", query.MaxListLimit)})
		return
	}
	if criteria.MaxDuration != nil && *criteria.MaxDuration < 0 {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "max_duration cannot be negative"})
		return
	}

	courses, err := h.service.AdvancedSearch(c.Request.Context(), criteria)
	if err != nil {
		slog.Error("Database error", "operation", "search_courses", "error", err)
		c.JSON(http.StatusInternalServerError, internalError)
		return
	}

	c.JSON(http.StatusOK, courses)
}

// SubmitQuiz matches quiz answers against the catalog. No profile is stored,
// so profile_updated is always false.
func (h *Handler) SubmitQuiz(c *gin.Context) {
	var submission quizSubmission
	if err := c.ShouldBindJSON(&submission); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "Invalid quiz submission"})
		return
	}

	courses, err := h.service.SubmitQuiz(c.Request.Context(), submission.Answers)
	if err != nil {
		slog.Error("Database error", "operation", "submit_quiz", "user_id", submission.UserID, "error", err)
		c.JSON(http.StatusInternalServerError, internalError)
		return
	}

	c.JSON(http.StatusOK, quizResponse{
		Success:         true,
		Recommendations: courses,
		ProfileUpdated:  false,
	})
}

// RefreshCourses runs a full refresh and returns its report. The refresh
// outlives a client disconnect so other callers sharing it are not cut short.
func (h *Handler) RefreshCourses(c *gin.Context) {
	ctx := context.WithoutCancel(c.Request.Context())

	report, err := h.service.RefreshAll(ctx)
	if err != nil {
		slog.Error("Refresh failed", "error", err)
		c.JSON(http.StatusInternalServerError, internalError)
		return
	}

	c.JSON(http.StatusOK, report)
}

func (h *Handler) ListSources(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"sources": h.service.ListSources()})
}

func (h *Handler) ListCategories(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"categories": h.service.ListCategories()})
}

func (h *Handler) GetStats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context())
	if err != nil {
		slog.Error("Database error", "operation", "stats", "error", err)
		c.JSON(http.StatusInternalServerError, internalError)
		return
	}

	c.JSON(http.StatusOK, stats)
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"status":    "healthy",
		"version":   h.version,
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	if count, err := h.store.Count(c.Request.Context()); err == nil {
		health["courses"] = count
	} else {
		slog.Warn("Health check could not count courses", "error", err)
		health["status"] = "degraded"
	}

	health["sources"] = len(h.service.ListSources())

	c.JSON(http.StatusOK, health)
}
