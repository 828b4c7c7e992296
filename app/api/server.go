package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lysyi3m/course-comb/app/metrics"
)

// NewServer creates a new HTTP server with all routes configured
func NewServer(handler *Handler, apiAccessKey string, m *metrics.Manager) *gin.Engine {
	// Set Gin mode (can be controlled via GIN_MODE environment variable)
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// Middleware
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/health", "/metrics"},
		Formatter: func(param gin.LogFormatterParams) string {
			return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
				param.ClientIP,
				param.TimeStamp.Format(time.RFC3339),
				param.Method,
				param.Path,
				param.Request.Proto,
				param.StatusCode,
				param.Latency,
				param.Request.UserAgent(),
				param.ErrorMessage,
			)
		},
	}))

	r.Use(gin.CustomRecovery(func(c *gin.Context, recovered any) {
		slog.Error("Handler panicked", "path", c.Request.URL.Path, "panic", recovered)
		c.AbortWithStatusJSON(http.StatusInternalServerError, internalError)
	}))

	r.Use(metricsMiddleware(m))

	// CORS middleware for API endpoints
	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, X-API-Key, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	setupRoutes(r, handler, apiAccessKey, m)

	return r
}

// setupRoutes configures all the application routes
func setupRoutes(r *gin.Engine, handler *Handler, apiAccessKey string, m *metrics.Manager) {
	api := r.Group("/api")
	{
		api.GET("/courses", handler.ListCourses)
		api.GET("/courses/:id", handler.GetCourse)
		api.GET("/courses/recommended/:user_id", handler.GetRecommendations)
		api.POST("/courses/search", handler.SearchCourses)
		api.POST("/quiz/submit", handler.SubmitQuiz)
		api.GET("/sources", handler.ListSources)
		api.GET("/categories", handler.ListCategories)
		api.GET("/stats", handler.GetStats)
	}

	// Refresh is open when no access key is configured
	if apiAccessKey != "" {
		api.POST("/courses/refresh", authMiddleware(apiAccessKey), handler.RefreshCourses)
		slog.Info("Refresh endpoint requires authentication")
	} else {
		api.POST("/courses/refresh", handler.RefreshCourses)
		slog.Warn("Refresh endpoint is unauthenticated (API_ACCESS_KEY not set)")
	}

	r.GET("/health", handler.GetHealth)
	r.GET("/metrics", gin.WrapH(m.Handler()))

	// Root endpoint with basic information
	r.GET("/", func(c *gin.Context) {
		refresh := "/api/courses/refresh (POST)"
		if apiAccessKey != "" {
			refresh = "/api/courses/refresh (POST, requires X-API-Key header)"
		}

		c.JSON(http.StatusOK, gin.H{
			"service":     "Course Comb",
			"version":     handler.version,
			"description": "Free course aggregator with a unified catalog and query API",
			"endpoints": map[string]string{
				"courses":         "/api/courses",
				"course":          "/api/courses/<id>",
				"recommendations": "/api/courses/recommended/<user_id>",
				"search":          "/api/courses/search (POST)",
				"quiz":            "/api/quiz/submit (POST)",
				"refresh":         refresh,
				"sources":         "/api/sources",
				"categories":      "/api/categories",
				"stats":           "/api/stats",
				"health":          "/health",
				"metrics":         "/metrics",
			},
		})
	})

	// Favicon handler (return 204 to avoid 404s)
	r.GET("/favicon.ico", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
}

// metricsMiddleware records request counts and latency per matched route.
func metricsMiddleware(m *metrics.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.ObserveHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}

// authMiddleware creates authentication middleware for API endpoints
func authMiddleware(apiAccessKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		providedKey := c.GetHeader("X-API-Key")

		if providedKey == "" {
			authHeader := c.GetHeader("Authorization")
			if strings.HasPrefix(authHeader, "Bearer ") {
				providedKey = strings.TrimPrefix(authHeader, "Bearer ")
			}
		}

		if providedKey == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "API key required",
				"message": "Provide API key in X-API-Key header or Authorization: Bearer <key>",
			})
			c.Abort()
			return
		}

		if providedKey != apiAccessKey {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "Invalid API key",
				"message": "The provided API key is not valid",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
