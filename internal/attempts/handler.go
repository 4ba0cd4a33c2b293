package attempts

import (
	"errors"
	"io"

	"github.com/gin-gonic/gin"

	"github.com/aura-quiz/backend/internal/middleware"
	"github.com/aura-quiz/backend/internal/models"
	"github.com/aura-quiz/backend/pkg/response"
)

// Handler handles attempt and answer HTTP endpoints.
type Handler struct {
	engine *Engine
}

// NewHandler creates an attempt handler.
func NewHandler(engine *Engine) *Handler {
	return &Handler{engine: engine}
}

// Start handles POST /attempts. user_id must be the caller.
func (h *Handler) Start(c *gin.Context) {
	var req models.StartQuizInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if !middleware.RequireOwner(c, req.UserID, "attempts of another user") {
		return
	}
	attempt, err := h.engine.Start(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, attempt)
}

// SubmitAnswer handles POST /answers. user_id must be the caller.
func (h *Handler) SubmitAnswer(c *gin.Context) {
	var req models.SubmitAnswerInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if !middleware.RequireOwner(c, req.UserID, "answers of another user") {
		return
	}
	answer, err := h.engine.SubmitAnswer(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, answer)
}

// Complete handles POST /attempts/:id/complete. A JSON body with attempt_id
// is optional and must match the path.
func (h *Handler) Complete(c *gin.Context) {
	id, ok := response.ParamID(c, "id")
	if !ok {
		return
	}
	var req models.CompleteQuizInput
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if req.AttemptID != 0 && req.AttemptID != id {
		response.BadRequest(c, "attempt_id does not match the path")
		return
	}

	attempt, err := h.engine.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	if !middleware.RequireOwner(c, attempt.UserID, "this attempt") {
		return
	}
	done, err := h.engine.Complete(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, done)
}

// Get handles GET /attempts/:id. Only the attempt owner may read it.
func (h *Handler) Get(c *gin.Context) {
	id, ok := response.ParamID(c, "id")
	if !ok {
		return
	}
	attempt, err := h.engine.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	if !middleware.RequireOwner(c, attempt.UserID, "this attempt") {
		return
	}
	response.OK(c, attempt)
}

// ListByUser handles GET /users/:id/attempts.
func (h *Handler) ListByUser(c *gin.Context) {
	id, ok := response.ParamID(c, "id")
	if !ok {
		return
	}
	list, err := h.engine.ListByUser(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}
