package leaderboard

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/aura-quiz/backend/internal/realtime"
	"github.com/aura-quiz/backend/pkg/response"
)

// Handler serves leaderboard reads and the live leaderboard stream.
type Handler struct {
	svc    *Service
	sub    realtime.Subscriber
	logger *zap.Logger
}

// NewHandler creates a leaderboard handler. A nil sub disables streaming.
func NewHandler(svc *Service, sub realtime.Subscriber, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, sub: sub, logger: logger}
}

// Get handles GET /quizzes/:id/leaderboard?limit=.
func (h *Handler) Get(c *gin.Context) {
	id, ok := response.ParamID(c, "id")
	if !ok {
		return
	}
	limit := 0
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			response.BadRequest(c, "limit must be a positive integer")
			return
		}
		limit = n
	}
	entries, err := h.svc.Get(c.Request.Context(), id, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, entries)
}

// Stream handles GET /quizzes/:id/leaderboard/ws. The first message is the
// current ranking; later messages are pushed whenever an attempt completes.
func (h *Handler) Stream(c *gin.Context) {
	id, ok := response.ParamID(c, "id")
	if !ok {
		return
	}
	if h.sub == nil {
		response.ServiceUnavailable(c, "live leaderboard requires redis")
		return
	}
	if err := h.svc.CheckQuiz(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	realtime.ServeQuizStream(c.Writer, c.Request, id, h.snapshot(c.Request.Context(), id), h.sub, h.logger)
}

// snapshot reads the ranking once the stream is subscribed.
func (h *Handler) snapshot(ctx context.Context, quizID int64) func() (realtime.WSMessage, error) {
	return func() (realtime.WSMessage, error) {
		entries, err := h.svc.Get(ctx, quizID, 0)
		if err != nil {
			return realtime.WSMessage{}, err
		}
		raw, err := json.Marshal(entries)
		if err != nil {
			return realtime.WSMessage{}, err
		}
		return realtime.WSMessage{Event: realtime.EventLeaderboard, Data: raw}, nil
	}
}
