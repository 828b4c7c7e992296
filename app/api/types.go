package api

import (
	"github.com/lysyi3m/course-comb/app/catalog"
	"github.com/lysyi3m/course-comb/app/query"
)

type Handler struct {
	service *query.Service
	store   catalog.Store
	version string
}

type quizSubmission struct {
	UserID  string            `json:"user_id"`
	Answers query.QuizAnswers `json:"answers"`
}

type quizResponse struct {
	Success         bool             `json:"success"`
	Recommendations []catalog.Course `json:"recommendations"`
	ProfileUpdated  bool             `json:"profile_updated"`
}

type errorResponse struct {
	Error string `json:"error"`
}

var internalError = errorResponse{Error: "Internal server error"}
