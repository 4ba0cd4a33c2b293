package quizzes

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/aura-quiz/backend/internal/middleware"
	"github.com/aura-quiz/backend/internal/models"
	"github.com/aura-quiz/backend/pkg/response"
)

// Handler handles quiz and question HTTP endpoints.
type Handler struct {
	svc *Service
}

// NewHandler creates a quiz handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// CreateQuiz handles POST /quizzes. created_by must be the caller.
func (h *Handler) CreateQuiz(c *gin.Context) {
	var req models.CreateQuizInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if !middleware.RequireOwner(c, req.CreatedBy, "quizzes of another user") {
		return
	}
	quiz, err := h.svc.CreateQuiz(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, quiz)
}

// CreateQuestion handles POST /questions. The caller must own the quiz.
func (h *Handler) CreateQuestion(c *gin.Context) {
	var req models.CreateQuestionInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	quiz, err := h.svc.GetQuiz(c.Request.Context(), req.QuizID)
	if err != nil {
		response.Error(c, err)
		return
	}
	if !middleware.RequireOwner(c, quiz.CreatedBy, "this quiz") {
		return
	}
	q, err := h.svc.CreateQuestion(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, q)
}

// List handles GET /quizzes.
func (h *Handler) List(c *gin.Context) {
	list, err := h.svc.ListQuizzes(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

// Get handles GET /quizzes/:id.
func (h *Handler) Get(c *gin.Context) {
	id, ok := response.ParamID(c, "id")
	if !ok {
		return
	}
	quiz, err := h.svc.GetQuizWithQuestions(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, quiz)
}

// ExportJSON handles GET /quizzes/:id/export and serves the document as a download.
func (h *Handler) ExportJSON(c *gin.Context) {
	id, ok := response.ParamID(c, "id")
	if !ok {
		return
	}
	doc, err := h.svc.Export(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="quiz-%d.json"`, id))
	c.Data(http.StatusOK, "application/json; charset=utf-8", raw)
}

// ExportS3 handles POST /quizzes/:id/export/s3. The caller must own the quiz.
func (h *Handler) ExportS3(c *gin.Context) {
	id, ok := response.ParamID(c, "id")
	if !ok {
		return
	}
	quiz, err := h.svc.GetQuiz(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	if !middleware.RequireOwner(c, quiz.CreatedBy, "this quiz") {
		return
	}
	loc, err := h.svc.ExportToStorage(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ErrExportsDisabled) {
			response.ServiceUnavailable(c, err.Error())
			return
		}
		response.Error(c, err)
		return
	}
	response.Created(c, loc)
}
